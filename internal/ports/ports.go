// Package ports declares the collaborators the ledger core depends on.
// Adapters live under internal/storage and internal/source.
package ports

import (
	"context"

	"finances/internal/core"
)

type (
	CategoryStore interface {
		// FindCategoriesByTitles returns the stored categories whose title is
		// in titles. Missing titles are simply absent from the result.
		FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error)

		// CreateCategories inserts one category per title in a single batch.
		// A title that already exists is not inserted again; its stored row is
		// returned instead.
		CreateCategories(ctx context.Context, titles []string) ([]core.Category, error)
	}

	TransactionStore interface {
		// FindAllTransactions returns every transaction in creation order.
		FindAllTransactions(ctx context.Context) ([]core.Transaction, error)

		// CreateTransactions persists inputs atomically: either all rows are
		// stored or none are.
		CreateTransactions(ctx context.Context, inputs []core.TransactionInput) ([]core.Transaction, error)

		// CreateTransactionsChecked reads the stored transactions, passes them
		// to check and persists inputs only when check returns nil. No other
		// writer of the same store, in this process or another one sharing the
		// database, can interleave between the read and the write. The error
		// from check is returned unwrapped.
		CreateTransactionsChecked(ctx context.Context, inputs []core.TransactionInput, check func(existing []core.Transaction) error) ([]core.Transaction, error)
	}

	Store interface {
		CategoryStore
		TransactionStore
		// Ping reports whether the store can serve requests.
		Ping(ctx context.Context) error
		Close() error
	}

	// RowReader streams raw text rows. Read returns io.EOF after the last row.
	RowReader interface {
		Read() ([]string, error)
		Close() error
	}

	// TabularSource opens a file-like resource as rows of text fields, with
	// the header row already skipped.
	TabularSource interface {
		OpenRows(ctx context.Context, path string) (RowReader, error)
		// Release deletes or clears the resource after a successful import.
		Release(ctx context.Context, path string) error
	}
)
