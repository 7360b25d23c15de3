package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"finances/internal/core"
	"finances/internal/ports"
)

// Column order of an import row.
const (
	colTitle = iota
	colType
	colValue
	colCategory
	importColumns
)

// ImportService loads transactions from a tabular source in one batch.
type ImportService struct {
	source     ports.TabularSource
	reconciler *CategoryReconciler
	ledger     *Ledger
	events     EventPublisher
}

func NewImportService(source ports.TabularSource, reconciler *CategoryReconciler, ledger *Ledger, events EventPublisher) *ImportService {
	return &ImportService{
		source:     source,
		reconciler: reconciler,
		ledger:     ledger,
		events:     events,
	}
}

type importRow struct {
	line     int
	input    core.TransactionInput
	category string
}

// Import reads every row at path, reconciles the referenced categories once,
// and commits the transactions as one batch in row order. The source is
// released only after a successful commit.
func (s *ImportService) Import(ctx context.Context, path string) ([]core.Transaction, error) {
	rows, err := s.readRows(ctx, path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.category)
	}
	categories, err := s.reconciler.Reconcile(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}

	inputs := make([]core.TransactionInput, len(rows))
	for i, r := range rows {
		in := r.input
		if c, ok := categories[r.category]; ok {
			in.Category = &c
		}
		inputs[i] = in
	}

	created, err := s.ledger.CreateMany(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}

	if err := s.source.Release(ctx, path); err != nil {
		slog.WarnContext(ctx, "Failed to release import source", "path", path, "error", err)
	}

	slog.InfoContext(ctx, "Import completed",
		"path", path,
		"rows", len(rows),
		"created", len(created),
		"categories", len(categories))

	if s.events != nil {
		if err := s.events.PublishTransactionsImported(ctx, path, created); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import event", "path", path, "error", err)
		}
	}
	return created, nil
}

// readRows buffers the cleaned rows in arrival order. Rows missing a title,
// type or value are skipped; a row that has them but cannot be parsed fails
// the whole import.
func (s *ImportService) readRows(ctx context.Context, path string) ([]importRow, error) {
	rr, err := s.source.OpenRows(ctx, path)
	if err != nil {
		return nil, asSourceError(path, err)
	}
	defer rr.Close()

	var (
		rows    []importRow
		skipped int
	)
	// Line 1 is the header.
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := rr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, asSourceError(path, err)
		}

		cells := normalize(fields)
		if cells[colTitle] == "" || cells[colType] == "" || cells[colValue] == "" {
			skipped++
			slog.DebugContext(ctx, "Skipping incomplete import row", "path", path, "line", line)
			continue
		}

		typ, err := core.ParseTransactionType(cells[colType])
		if err != nil {
			return nil, fmt.Errorf("import %s line %d: %w", path, line, err)
		}
		value, err := core.ParseMoney(cells[colValue])
		if err != nil {
			return nil, fmt.Errorf("import %s line %d: %w", path, line,
				&core.ValidationError{Field: "value", Err: err})
		}

		rows = append(rows, importRow{
			line:     line,
			input:    core.TransactionInput{Title: cells[colTitle], Value: value, Type: typ},
			category: cells[colCategory],
		})
	}

	if skipped > 0 {
		slog.InfoContext(ctx, "Skipped incomplete import rows", "path", path, "skipped", skipped)
	}
	return rows, nil
}

// normalize trims every cell and pads short rows with empty cells.
func normalize(fields []string) [importColumns]string {
	var cells [importColumns]string
	for i := 0; i < importColumns && i < len(fields); i++ {
		cells[i] = strings.TrimSpace(fields[i])
	}
	return cells
}

func asSourceError(path string, err error) error {
	var srcErr *core.SourceReadError
	if errors.As(err, &srcErr) {
		return err
	}
	return &core.SourceReadError{Path: path, Err: err}
}
