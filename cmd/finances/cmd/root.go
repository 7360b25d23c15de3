// Package cmd provides the finances CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"finances/internal/cli"
	"finances/internal/config"
	"finances/internal/log"
)

// runtime is shared by every subcommand of one invocation.
type runtime struct {
	envFile string
	debug   bool

	logger *log.Logger
	cfg    *config.Config
	app    *cli.App
}

// skipApp marks commands that need configuration but not the ledger store.
const skipApp = "skip-app"

// Execute runs the root command against os.Args until it finishes or the
// process is interrupted.
func Execute() error {
	rt := &runtime{}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCmd(rt).ExecuteContext(ctx)
	if closeErr := rt.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "finances",
		Short: "Record and import personal income and expenses",
		Long: `finances records income and outcome transactions, imports them in bulk
from CSV files or Google Sheets and reports the balance.

Example:
  finances create --title Salary --value 1500 --type income --category Work
  finances import ./statement.csv
  finances balance`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd.Context(), cmd.Annotations[skipApp] == "")
		},
	}

	root.PersistentFlags().StringVar(&rt.envFile, "env-file", "", "env file to load (default is .env)")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newCreateCmd(rt),
		newListCmd(rt),
		newBalanceCmd(rt),
		newImportCmd(rt),
		newImportSheetCmd(rt),
		newEventsCmd(rt),
		newSheetsAuthCmd(rt),
	)
	return root
}

func (rt *runtime) open(ctx context.Context, withApp bool) error {
	if rt.envFile != "" {
		if err := godotenv.Load(rt.envFile); err != nil {
			return fmt.Errorf("load %s: %w", rt.envFile, err)
		}
	} else {
		cli.LoadEnvFile()
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if rt.debug {
		level = "debug"
	}
	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(level)
	logCfg.Component = log.ComponentCLI
	logCfg.Format = os.Getenv("LOG_FORMAT")
	logCfg.Writer = os.Stderr
	rt.logger = log.New(logCfg)
	log.SetDefault(rt.logger)
	rt.cfg = cfg
	if !withApp {
		return nil
	}

	app, err := cli.Build(ctx, cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	rt.app = app
	return nil
}

func (rt *runtime) close() error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close()
	rt.app = nil
	return err
}
