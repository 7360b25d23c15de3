package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finances/internal/core"
	"finances/internal/services"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rt := &runtime{}
	root := newRootCmd(rt)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	require.NoError(t, rt.close())
	return out.String(), err
}

func TestCreateListBalance(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "create", "--title", "Salary", "--value", "500", "--type", "income", "--category", "Work")
	require.NoError(t, err)
	_, err = run(t, "create", "--title", "Rent", "--value", "200", "--type", "outcome", "--category", "Home")
	require.NoError(t, err)

	_, err = run(t, "create", "--title", "Car", "--value", "400", "--type", "outcome")
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)

	out, err := run(t, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "Income:  500.00")
	assert.Contains(t, out, "Outcome: 200.00")
	assert.Contains(t, out, "Total:   300.00")

	out, err = run(t, "list", "--json")
	require.NoError(t, err)
	var list services.TransactionList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, "Salary", list.Transactions[0].Title)
	assert.Equal(t, "Home", list.Transactions[1].CategoryTitle())
	assert.Equal(t, int64(30000), list.Balance.Total.Cents)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Rent")
	assert.Contains(t, out, "TITLE")
}

func TestCreateRejectsBadFlags(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "create", "--title", "x", "--value", "ten", "--type", "income")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = run(t, "create", "--title", "x", "--value", "10", "--type", "refund")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = run(t, "create", "--title", "x")
	assert.Error(t, err)
}

func TestImportCSV(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,type,value,category\nSalary,income,1000,Work\nBus,outcome,2.50,Transport\n"), 0o600))

	out, err := run(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 transactions")
	assert.NoFileExists(t, path)

	out, err = run(t, "balance", "--json")
	require.NoError(t, err)
	var balance core.Balance
	require.NoError(t, json.Unmarshal([]byte(out), &balance))
	assert.Equal(t, int64(99750), balance.Total.Cents)
}

func TestImportCSVMissingFile(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, "import", filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, core.ErrSourceRead)
}

func TestSheetAndEventsNeedConfiguration(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "import-sheet")
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")

	_, err = run(t, "events")
	assert.ErrorContains(t, err, "AMQP_URL")
}

func TestInvalidConfiguration(t *testing.T) {
	setupEnv(t)
	t.Setenv("DATA_BACKEND", "sheets")
	_, err := run(t, "balance")
	assert.ErrorContains(t, err, "invalid data backend")
}
