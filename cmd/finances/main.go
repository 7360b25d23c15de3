// Package main is the entry point for the finances CLI.
package main

import (
	"os"

	"finances/cmd/finances/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
