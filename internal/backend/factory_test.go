package backend

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finances/internal/amqp"
	"finances/internal/config"
	"finances/internal/storage"
	"finances/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:    "sqlite",
		SQLiteDBPath:   "/tmp/x.db",
		AMQPURL:        "amqp://localhost/",
		AMQPExchange:   "finances",
		AMQPRoutingKey: "ledger_events",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "ledger_events", cfg.AMQPRoutingKey)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: "postgres"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: MemoryBackend, AMQPURL: "amqp://x/"}.Validate())
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Store)
	assert.Nil(t, res.Events)
	assert.NoError(t, res.Cleanup())
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLiteRepository{}, res.Store)
	assert.NoError(t, res.Store.Ping(context.Background()))
	assert.NoError(t, res.Cleanup())
}

func TestUnreachableBrokerDisablesEvents(t *testing.T) {
	f := &DefaultFactory{
		logger: slog.Default(),
		dial: func(string, string, string) (*amqp.Client, error) {
			return nil, errors.New("connection refused")
		},
	}
	res, err := f.CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		DataDirectory:  t.TempDir(),
		AMQPURL:        "amqp://localhost:1/",
		AMQPExchange:   "finances",
		AMQPRoutingKey: "ledger_events",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Events)
}
