package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var ledgerMigrations embed.FS

// RunMigrations brings the ledger schema at dbPath up to date and returns the
// resulting schema version. A schema left dirty by an interrupted migration
// is reported instead of being migrated further.
func RunMigrations(dbPath string) (uint, error) {
	// Own connection: closing the migrator closes it.
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer conn.Close()

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(ledgerMigrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if version, dirty, err := m.Version(); err == nil && dirty {
		return version, fmt.Errorf("ledger schema is dirty at version %d; fix it and force the version", version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	slog.Debug("Ledger schema ready", "db_path", dbPath, "version", version)
	return version, nil
}
