package csvfile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	rr, err := New().OpenRows(context.Background(), path)
	require.NoError(t, err)
	defer rr.Close()

	var out [][]string
	for {
		row, err := rr.Read()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, row)
	}
}

func TestOpenRowsSkipsHeaderAndAllowsRaggedRows(t *testing.T) {
	path := writeCSV(t, "title,type,value,category\n"+
		"Bus,outcome,10,Transport\n"+
		"Gift, income,100\n"+
		"\"Dinner, friends\",outcome,\"12,50\",Food\n")

	got := readAll(t, path)
	assert.Equal(t, [][]string{
		{"Bus", "outcome", "10", "Transport"},
		{"Gift", "income", "100"},
		{"Dinner, friends", "outcome", "12,50", "Food"},
	}, got)
}

func TestOpenRowsHeaderOnlyAndEmptyFile(t *testing.T) {
	assert.Empty(t, readAll(t, writeCSV(t, "title,type,value,category\n")))
	assert.Empty(t, readAll(t, writeCSV(t, "")))
}

func TestOpenRowsMissingFile(t *testing.T) {
	_, err := New().OpenRows(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadReportsMalformedRows(t *testing.T) {
	path := writeCSV(t, "h\n\"unterminated,outcome,1\n")
	rr, err := New().OpenRows(context.Background(), path)
	require.NoError(t, err)
	defer rr.Close()

	_, err = rr.Read()
	assert.Error(t, err)
}

func TestReleaseRemovesFile(t *testing.T) {
	path := writeCSV(t, "h\n")
	require.NoError(t, New().Release(context.Background(), path))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.NoError(t, New().Release(context.Background(), path), "releasing twice is harmless")
}
