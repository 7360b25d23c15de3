package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finances/internal/config"
	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/services"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataBackend:       "memory",
		DataDirectory:     t.TempDir(),
		CategoryCacheSize: 16,
		CategoryCacheTTL:  time.Minute,
	}
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Writer: &bytes.Buffer{}})
}

func TestBuildWiresServices(t *testing.T) {
	app, err := Build(context.Background(), memoryConfig(t), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.NotNil(t, app.Transactions)
	assert.NotNil(t, app.CSVImport)
	assert.Nil(t, app.SheetImport)
	assert.Nil(t, app.Events)

	value, err := core.ParseMoney("12.50")
	require.NoError(t, err)
	tx, err := app.Transactions.Create(context.Background(), services.CreateTransactionRequest{
		Title: "Salary", Value: value, Type: core.Income, Category: "Work",
	})
	require.NoError(t, err)
	require.NotNil(t, tx.Category)

	_, cached := app.Categories.Get("Work")
	assert.True(t, cached)

	_, err = app.RequireSheets()
	assert.Error(t, err)
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.DataBackend = "sheets"
	_, err := Build(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(quietLogger())
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
