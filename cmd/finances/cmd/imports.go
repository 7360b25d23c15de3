package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"finances/internal/core"
)

func newImportCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Import every row of a CSV file as one transaction. The first line is a
header; columns are title, type, value and category. The import is all or
nothing, and the file is deleted once its rows are stored.

Example:
  finances import ./statement.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := rt.app.CSVImport.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printImported(cmd, args[0], created)
			return nil
		},
	}
}

func newImportSheetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import-sheet [tab]",
		Short: "Import transactions from a Google Sheets tab",
		Long: `Import every row of a Google Sheets tab (columns A to D, header on row 1)
and clear the imported rows afterwards. The tab defaults to GOOGLE_SHEET_NAME.

Requires GOOGLE_SPREADSHEET_ID and GOOGLE_SERVICE_ACCOUNT_FILE or
GOOGLE_SERVICE_ACCOUNT_JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importer, err := rt.app.RequireSheets()
			if err != nil {
				return err
			}
			tab := rt.app.Config.GoogleSheetName
			if len(args) == 1 {
				tab = args[0]
			}
			created, err := importer.Import(cmd.Context(), tab)
			if err != nil {
				return err
			}
			printImported(cmd, tab, created)
			return nil
		},
	}
}

func printImported(cmd *cobra.Command, source string, created []core.Transaction) {
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions from %s\n", len(created), source)
}
