// Package storage implements ports.Store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"finances/internal/core"
	"finances/internal/ports"

	_ "modernc.org/sqlite"
)

// SQLite limits bound parameters per statement; IN lists are chunked.
const maxInParams = 500

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers inside the process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &core.StoreError{Op: "ping", Err: err}
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FindCategoriesByTitles implements ports.CategoryStore
func (r *SQLiteRepository) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	cats, err := findCategories(ctx, r.db, titles)
	if err != nil {
		return nil, &core.StoreError{Op: "find categories", Err: err}
	}
	return cats, nil
}

// CreateCategories implements ports.CategoryStore. Titles that already exist
// are left untouched by the unique constraint and re-read afterwards.
func (r *SQLiteRepository) CreateCategories(ctx context.Context, titles []string) ([]core.Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	var cats []core.Category
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO categories (id, title, created_at) VALUES (?, ?, ?)
			 ON CONFLICT(title) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare insert category: %w", err)
		}
		defer stmt.Close()

		now := formatTime(r.now())
		for _, title := range titles {
			if _, err := stmt.ExecContext(ctx, uuid.NewString(), title, now); err != nil {
				return fmt.Errorf("insert category %q: %w", title, err)
			}
		}

		cats, err = findCategories(ctx, tx, titles)
		return err
	})
	if err != nil {
		return nil, &core.StoreError{Op: "create categories", Err: err}
	}

	slog.InfoContext(ctx, "Categories saved to SQLite", "requested", len(titles), "resolved", len(cats))
	return cats, nil
}

// FindAllTransactions implements ports.TransactionStore
func (r *SQLiteRepository) FindAllTransactions(ctx context.Context) ([]core.Transaction, error) {
	out, err := findTransactions(ctx, r.db)
	if err != nil {
		return nil, &core.StoreError{Op: "find transactions", Err: err}
	}
	return out, nil
}

// CreateTransactions implements ports.TransactionStore. All rows are written
// in one SQL transaction.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, inputs []core.TransactionInput) ([]core.Transaction, error) {
	var out []core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = r.insertTransactions(ctx, tx, inputs)
		return err
	})
	if err != nil {
		return nil, &core.StoreError{Op: "create transactions", Err: err}
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(out))
	return out, nil
}

// CreateTransactionsChecked implements ports.TransactionStore. The read, the
// check and the insert share one BEGIN IMMEDIATE transaction, so a second
// process on the same file blocks (up to busy_timeout) until it commits.
func (r *SQLiteRepository) CreateTransactionsChecked(ctx context.Context, inputs []core.TransactionInput, check func([]core.Transaction) error) ([]core.Transaction, error) {
	var (
		out      []core.Transaction
		checkErr error
	)
	err := r.withImmediateTx(ctx, func(q dbtx) error {
		if check != nil {
			existing, err := findTransactions(ctx, q)
			if err != nil {
				return err
			}
			if checkErr = check(existing); checkErr != nil {
				return checkErr
			}
		}
		var err error
		out, err = r.insertTransactions(ctx, q, inputs)
		return err
	})
	if checkErr != nil {
		return nil, checkErr
	}
	if err != nil {
		return nil, &core.StoreError{Op: "create transactions", Err: err}
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(out))
	return out, nil
}

func (r *SQLiteRepository) insertTransactions(ctx context.Context, q dbtx, inputs []core.TransactionInput) ([]core.Transaction, error) {
	stmt, err := q.PrepareContext(ctx,
		`INSERT INTO transactions (id, title, value_cents, type, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert transaction: %w", err)
	}
	defer stmt.Close()

	now := r.now()
	out := make([]core.Transaction, 0, len(inputs))
	for _, in := range inputs {
		created := core.Transaction{
			ID:        uuid.NewString(),
			Title:     in.Title,
			Value:     in.Value,
			Type:      in.Type,
			CreatedAt: now,
		}
		var categoryID sql.NullString
		if in.Category != nil {
			c := *in.Category
			created.Category = &c
			categoryID = sql.NullString{String: c.ID, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			created.ID, created.Title, created.Value.Cents, created.Type.String(),
			categoryID, formatTime(now)); err != nil {
			return nil, fmt.Errorf("insert transaction %q: %w", in.Title, err)
		}
		out = append(out, created)
	}
	return out, nil
}

// GetCategoryCount returns the number of stored categories.
func (r *SQLiteRepository) GetCategoryCount(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, &core.StoreError{Op: "count categories", Err: err}
	}
	return n, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// withImmediateTx runs fn on a dedicated connection inside BEGIN IMMEDIATE,
// which takes the database write lock before the first read.
func (r *SQLiteRepository) withImmediateTx(ctx context.Context, fn func(dbtx) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}

	rollback := func(cause error) error {
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", cause, rbErr)
		}
		return cause
	}

	if err := fn(conn); err != nil {
		return rollback(err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return rollback(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// dbtx is satisfied by *sql.Tx and *sql.Conn.
type dbtx interface {
	queryer
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func findTransactions(ctx context.Context, q queryer) ([]core.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.title, t.value_cents, t.type, t.created_at,
		       c.id, c.title, c.created_at
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		ORDER BY t.rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func findCategories(ctx context.Context, q queryer, titles []string) ([]core.Category, error) {
	var out []core.Category
	for start := 0; start < len(titles); start += maxInParams {
		end := min(start+maxInParams, len(titles))
		chunk := titles[start:end]

		args := make([]any, len(chunk))
		for i, t := range chunk {
			args[i] = t
		}
		query := `SELECT id, title, created_at FROM categories WHERE title IN (` +
			strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",") + `) ORDER BY rowid`

		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query categories: %w", err)
		}
		for rows.Next() {
			var (
				c       core.Category
				created string
			)
			if err := rows.Scan(&c.ID, &c.Title, &created); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan category: %w", err)
			}
			if c.CreatedAt, err = parseTime(created); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, c)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate categories: %w", err)
		}
	}
	return out, nil
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		tx                         core.Transaction
		typ, created               string
		catID, catTitle, catCreate sql.NullString
	)
	if err := rows.Scan(&tx.ID, &tx.Title, &tx.Value.Cents, &typ, &created,
		&catID, &catTitle, &catCreate); err != nil {
		return tx, fmt.Errorf("scan transaction: %w", err)
	}

	var err error
	if tx.Type, err = core.ParseTransactionType(typ); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if tx.CreatedAt, err = parseTime(created); err != nil {
		return tx, err
	}
	if catID.Valid {
		c := core.Category{ID: catID.String, Title: catTitle.String}
		if c.CreatedAt, err = parseTime(catCreate.String); err != nil {
			return tx, err
		}
		tx.Category = &c
	}
	return tx, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
