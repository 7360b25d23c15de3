package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"finances/internal/core"
	"finances/internal/ports"
	"finances/internal/storage/memory"
)

var errBoom = errors.New("boom")

// flakyStore wraps a memory store and fails selected operations.
type flakyStore struct {
	*memory.Store

	mu               sync.Mutex
	failFind         bool
	failCreateCats   bool
	failCreateTxs    bool
	findCalls        int
	createCatsCalls  int
	createTxsCalls   int
	createdCatTitles []string
}

func newFlakyStore() *flakyStore { return &flakyStore{Store: memory.New()} }

func (s *flakyStore) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	s.mu.Lock()
	s.findCalls++
	fail := s.failFind
	s.mu.Unlock()
	if fail {
		return nil, &core.StoreError{Op: "find categories", Err: errBoom}
	}
	return s.Store.FindCategoriesByTitles(ctx, titles)
}

func (s *flakyStore) CreateCategories(ctx context.Context, titles []string) ([]core.Category, error) {
	s.mu.Lock()
	s.createCatsCalls++
	s.createdCatTitles = append(s.createdCatTitles, titles...)
	fail := s.failCreateCats
	s.mu.Unlock()
	if fail {
		return nil, &core.StoreError{Op: "create categories", Err: errBoom}
	}
	return s.Store.CreateCategories(ctx, titles)
}

func (s *flakyStore) CreateTransactions(ctx context.Context, inputs []core.TransactionInput) ([]core.Transaction, error) {
	s.mu.Lock()
	s.createTxsCalls++
	fail := s.failCreateTxs
	s.mu.Unlock()
	if fail {
		return nil, &core.StoreError{Op: "create transactions", Err: errBoom}
	}
	return s.Store.CreateTransactions(ctx, inputs)
}

func (s *flakyStore) CreateTransactionsChecked(ctx context.Context, inputs []core.TransactionInput, check func([]core.Transaction) error) ([]core.Transaction, error) {
	s.mu.Lock()
	s.createTxsCalls++
	fail := s.failCreateTxs
	s.mu.Unlock()
	if fail {
		return nil, &core.StoreError{Op: "create transactions", Err: errBoom}
	}
	return s.Store.CreateTransactionsChecked(ctx, inputs, check)
}

// fakeSource serves fixed rows (header excluded) and records releases.
type fakeSource struct {
	rows     [][]string
	openErr  error
	readErr  error
	released []string
	closed   int
	events   *[]string
}

func (f *fakeSource) OpenRows(_ context.Context, path string) (ports.RowReader, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeRows{src: f}, nil
}

func (f *fakeSource) Release(_ context.Context, path string) error {
	f.released = append(f.released, path)
	if f.events != nil {
		*f.events = append(*f.events, "release")
	}
	return nil
}

type fakeRows struct {
	src *fakeSource
	i   int
}

func (r *fakeRows) Read() ([]string, error) {
	if r.i >= len(r.src.rows) {
		if r.src.readErr != nil {
			return nil, r.src.readErr
		}
		return nil, io.EOF
	}
	row := r.src.rows[r.i]
	r.i++
	return row, nil
}

func (r *fakeRows) Close() error {
	r.src.closed++
	return nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu       sync.Mutex
	created  []core.Transaction
	imported [][]core.Transaction
	err      error
	events   *[]string
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, tx)
	return p.err
}

func (p *recordingPublisher) PublishTransactionsImported(_ context.Context, _ string, txs []core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imported = append(p.imported, txs)
	if p.events != nil {
		*p.events = append(*p.events, "publish")
	}
	return p.err
}
