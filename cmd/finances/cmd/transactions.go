package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finances/internal/core"
	"finances/internal/services"
)

func newCreateCmd(rt *runtime) *cobra.Command {
	var (
		title    string
		value    string
		typ      string
		category string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record one transaction",
		Long: `Record one income or outcome transaction. An outcome larger than the
current balance is rejected.

Example:
  finances create --title Rent --value 450.00 --type outcome --category Home`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			money, err := core.ParseMoney(value)
			if err != nil {
				return &core.ValidationError{Field: "value", Err: err}
			}
			txType, err := core.ParseTransactionType(typ)
			if err != nil {
				return &core.ValidationError{Field: "type", Err: err}
			}
			tx, err := rt.app.Transactions.Create(cmd.Context(), services.CreateTransactionRequest{
				Title:    title,
				Value:    money,
				Type:     txType,
				Category: category,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s %s %s\n", tx.ID, tx.Type, tx.Value, tx.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "transaction title (required)")
	cmd.Flags().StringVar(&value, "value", "", "amount with up to two decimals (required)")
	cmd.Flags().StringVar(&typ, "type", "", "income or outcome (required)")
	cmd.Flags().StringVar(&category, "category", "", "category title, created if new")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newListCmd(rt *runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every transaction with the balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := rt.app.Transactions.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return writeTransactions(cmd.OutOrStdout(), list.Transactions, list.Balance)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newBalanceCmd(rt *runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show income, outcome and total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := rt.app.Transactions.Balance(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), balance)
			}
			writeBalance(cmd.OutOrStdout(), balance)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeTransactions(w io.Writer, txs []core.Transaction, balance core.Balance) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTYPE\tVALUE\tCATEGORY\tTITLE")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.CreatedAt.Format("2006-01-02 15:04"), tx.Type, tx.Value, tx.CategoryTitle(), tx.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	writeBalance(w, balance)
	return nil
}

func writeBalance(w io.Writer, b core.Balance) {
	fmt.Fprintf(w, "Income:  %s\n", b.Income)
	fmt.Fprintf(w, "Outcome: %s\n", b.Outcome)
	fmt.Fprintf(w, "Total:   %s\n", b.Total)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
