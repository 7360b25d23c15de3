package services

import (
	"context"
	"fmt"

	"finances/internal/core"
)

// CreateTransactionRequest is a single transaction as entered by a user,
// with its category given by title.
type CreateTransactionRequest struct {
	Title    string
	Value    core.Money
	Type     core.TransactionType
	Category string
}

// TransactionList is the ledger contents together with the balance they fold to.
type TransactionList struct {
	Transactions []core.Transaction `json:"transactions"`
	Balance      core.Balance       `json:"balance"`
}

// TransactionService is the entry point for interactive (non-bulk) use.
type TransactionService struct {
	reconciler *CategoryReconciler
	ledger     *Ledger
}

func NewTransactionService(reconciler *CategoryReconciler, ledger *Ledger) *TransactionService {
	return &TransactionService{reconciler: reconciler, ledger: ledger}
}

// Create resolves the category by title, creating it if needed, and records
// the transaction. A blank category means no category.
// The category is only created once the ledger has admitted the transaction,
// so a rejected outcome leaves the store unchanged.
func (s *TransactionService) Create(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	in := core.TransactionInput{Title: req.Title, Value: req.Value, Type: req.Type}
	return s.ledger.CreatePrepared(ctx, in, func(ctx context.Context, in *core.TransactionInput) error {
		categories, err := s.reconciler.Reconcile(ctx, []string{req.Category})
		if err != nil {
			return fmt.Errorf("resolve category: %w", err)
		}
		for _, c := range categories {
			in.Category = &c
		}
		return nil
	})
}

// List returns all transactions and the balance computed from the same snapshot.
func (s *TransactionService) List(ctx context.Context) (TransactionList, error) {
	txs, err := s.ledger.All(ctx)
	if err != nil {
		return TransactionList{}, err
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	balance, err := core.ComputeBalance(txs)
	if err != nil {
		return TransactionList{}, fmt.Errorf("balance: %w", err)
	}
	return TransactionList{Transactions: txs, Balance: balance}, nil
}

func (s *TransactionService) Balance(ctx context.Context) (core.Balance, error) {
	return s.ledger.Balance(ctx)
}
