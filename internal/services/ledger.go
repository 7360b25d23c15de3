package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"finances/internal/core"
	"finances/internal/ports"
)

// Ledger owns the transaction collection. All balance-affecting writes go
// through one write section, so an outcome can never be checked against a
// total that another write is about to change. The store repeats the check
// atomically with its insert, which covers writers in other processes.
type Ledger struct {
	store  ports.TransactionStore
	events EventPublisher
	write  *semaphore.Weighted
}

// Prepare completes an input after it has passed the balance check and
// before it is stored, e.g. by resolving its category.
type Prepare func(ctx context.Context, in *core.TransactionInput) error

func NewLedger(store ports.TransactionStore, events EventPublisher) *Ledger {
	return &Ledger{
		store:  store,
		events: events,
		write:  semaphore.NewWeighted(1),
	}
}

// Create validates in, checks outcomes against the current total and persists
// the transaction.
func (l *Ledger) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	return l.CreatePrepared(ctx, in, nil)
}

// CreatePrepared is Create with a prepare step that only runs for inputs the
// balance check admits. A rejected outcome leaves no trace of prepare.
func (l *Ledger) CreatePrepared(ctx context.Context, in core.TransactionInput, prepare Prepare) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := l.createChecked(ctx, in, prepare)
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"type", created.Type.String(),
		"value", created.Value.String(),
		"category", created.CategoryTitle())

	if l.events != nil {
		if err := l.events.PublishTransactionCreated(ctx, created); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event", "id", created.ID, "error", err)
		}
	}
	return created, nil
}

func (l *Ledger) createChecked(ctx context.Context, in core.TransactionInput, prepare Prepare) (core.Transaction, error) {
	if err := l.write.Acquire(ctx, 1); err != nil {
		return core.Transaction{}, fmt.Errorf("acquire ledger write: %w", err)
	}
	defer l.write.Release(1)

	if prepare != nil {
		balance, err := l.Balance(ctx)
		if err != nil {
			return core.Transaction{}, err
		}
		if err := admit(balance, in); err != nil {
			return core.Transaction{}, err
		}
		if err := prepare(ctx, &in); err != nil {
			return core.Transaction{}, err
		}
	}

	created, err := l.store.CreateTransactionsChecked(ctx, []core.TransactionInput{in},
		func(existing []core.Transaction) error {
			balance, err := core.ComputeBalance(existing)
			if err != nil {
				return fmt.Errorf("compute balance: %w", err)
			}
			return admit(balance, in)
		})
	if err != nil {
		if errors.Is(err, core.ErrInsufficientFunds) || errors.Is(err, core.ErrValidation) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if len(created) != 1 {
		return core.Transaction{}, &core.StoreError{
			Op:  "create transactions",
			Err: fmt.Errorf("expected 1 row, got %d", len(created)),
		}
	}
	return created[0], nil
}

// admit rejects an outcome larger than the total and an input that would push
// the balance out of range.
func admit(balance core.Balance, in core.TransactionInput) error {
	if in.Type == core.Outcome && in.Value.Cents > balance.Total.Cents {
		return &core.InsufficientFundsError{Requested: in.Value, Available: balance.Total}
	}
	return checkRange(balance, []core.TransactionInput{in})
}

func checkRange(balance core.Balance, inputs []core.TransactionInput) error {
	if _, err := balance.Apply(pendingTransactions(inputs)...); err != nil {
		return &core.ValidationError{Field: "value", Err: err}
	}
	return nil
}

func pendingTransactions(inputs []core.TransactionInput) []core.Transaction {
	out := make([]core.Transaction, len(inputs))
	for i, in := range inputs {
		out[i] = core.Transaction{Title: in.Title, Value: in.Value, Type: in.Type}
	}
	return out
}

// CreateMany validates every input, then persists all of them as one batch.
// Outcomes are not checked against the total: a bulk load is taken as
// authoritative history. The batch is still refused when it would push the
// balance out of range.
func (l *Ledger) CreateMany(ctx context.Context, inputs []core.TransactionInput) ([]core.Transaction, error) {
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
	}
	if len(inputs) == 0 {
		return []core.Transaction{}, nil
	}

	if err := l.write.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire ledger write: %w", err)
	}
	defer l.write.Release(1)

	created, err := l.store.CreateTransactionsChecked(ctx, inputs, func(existing []core.Transaction) error {
		balance, err := core.ComputeBalance(existing)
		if err != nil {
			return fmt.Errorf("compute balance: %w", err)
		}
		return checkRange(balance, inputs)
	})
	if err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions created in batch", "count", len(created))
	return created, nil
}

// All returns every stored transaction in creation order.
func (l *Ledger) All(ctx context.Context) ([]core.Transaction, error) {
	txs, err := l.store.FindAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (l *Ledger) Balance(ctx context.Context) (core.Balance, error) {
	txs, err := l.All(ctx)
	if err != nil {
		return core.Balance{}, err
	}
	balance, err := core.ComputeBalance(txs)
	if err != nil {
		return core.Balance{}, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}
