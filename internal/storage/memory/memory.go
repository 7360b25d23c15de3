// Package memory is an in-process ports.Store. Data lives for the lifetime of
// the Store value.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finances/internal/core"
	"finances/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	byTitle map[string]core.Category
	cats    []core.Category
	items   []core.Transaction
}

func New(seedCategories ...string) *Store {
	s := &Store{byTitle: map[string]core.Category{}}
	now := time.Now().UTC()
	for _, title := range dedupe(seedCategories) {
		s.insertCategory(title, now)
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt when present.
func NewFromFiles(base string) *Store {
	return New(readLines(filepath.Join(base, "seed_categories.txt"))...)
}

func (s *Store) FindCategoriesByTitles(_ context.Context, titles []string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, 0, len(titles))
	for _, title := range dedupe(titles) {
		if c, ok := s.byTitle[title]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateCategories(_ context.Context, titles []string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	out := make([]core.Category, 0, len(titles))
	for _, title := range dedupe(titles) {
		if c, ok := s.byTitle[title]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, s.insertCategory(title, now))
	}
	return out, nil
}

func (s *Store) FindAllTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.items))
	for i, tx := range s.items {
		out[i] = cloneTx(tx)
	}
	return out, nil
}

// CreateTransactions validates the whole batch before storing any row.
func (s *Store) CreateTransactions(ctx context.Context, inputs []core.TransactionInput) ([]core.Transaction, error) {
	return s.CreateTransactionsChecked(ctx, inputs, nil)
}

// CreateTransactionsChecked runs check and the insert under the store lock.
func (s *Store) CreateTransactionsChecked(_ context.Context, inputs []core.TransactionInput, check func([]core.Transaction) error) ([]core.Transaction, error) {
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if check != nil {
		existing := make([]core.Transaction, len(s.items))
		for i, tx := range s.items {
			existing[i] = cloneTx(tx)
		}
		if err := check(existing); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	out := make([]core.Transaction, len(inputs))
	for i, in := range inputs {
		tx := core.Transaction{
			ID:        uuid.NewString(),
			Title:     in.Title,
			Value:     in.Value,
			Type:      in.Type,
			CreatedAt: now,
		}
		if in.Category != nil {
			c := *in.Category
			tx.Category = &c
		}
		out[i] = tx
	}
	for _, tx := range out {
		s.items = append(s.items, cloneTx(tx))
	}
	return out, nil
}

// Categories returns all categories in insertion order.
func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.cats...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) insertCategory(title string, now time.Time) core.Category {
	c := core.Category{ID: uuid.NewString(), Title: title, CreatedAt: now}
	s.byTitle[title] = c
	s.cats = append(s.cats, c)
	return c
}

func cloneTx(tx core.Transaction) core.Transaction {
	if tx.Category != nil {
		c := *tx.Category
		tx.Category = &c
	}
	return tx
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
