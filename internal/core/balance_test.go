package core

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func tx(typ TransactionType, cents int64) Transaction {
	return Transaction{Title: "t", Type: typ, Value: Money{Cents: cents}}
}

func TestComputeBalanceEmpty(t *testing.T) {
	got, err := ComputeBalance(nil)
	if err != nil || got != (Balance{}) {
		t.Fatalf("expected zero balance, got %+v (err=%v)", got, err)
	}
}

func TestComputeBalance(t *testing.T) {
	txs := []Transaction{
		tx(Income, 50000),
		tx(Outcome, 20000),
		tx(Income, 1),
		tx(Outcome, 40001),
	}
	got, err := ComputeBalance(txs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Balance{
		Income:  Money{Cents: 50001},
		Outcome: Money{Cents: 60001},
		Total:   Money{Cents: -10000},
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestComputeBalanceOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	txs := make([]Transaction, 200)
	for i := range txs {
		typ := Income
		if r.Intn(2) == 0 {
			typ = Outcome
		}
		txs[i] = tx(typ, r.Int63n(1_000_000))
	}
	want, err := ComputeBalance(txs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff, _ := want.Income.Sub(want.Outcome); want.Total != diff {
		t.Fatalf("total must equal income - outcome: %+v", want)
	}
	for i := 0; i < 20; i++ {
		shuffled := append([]Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got, _ := ComputeBalance(shuffled); got != want {
			t.Fatalf("permutation %d changed balance: %+v vs %+v", i, got, want)
		}
	}
}

func TestComputeBalanceOverflow(t *testing.T) {
	incomes := []Transaction{tx(Income, math.MaxInt64-10), tx(Income, 11)}
	if _, err := ComputeBalance(incomes); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow for income sum, got %v", err)
	}

	wide := []Transaction{tx(Outcome, math.MaxInt64), tx(Outcome, 1)}
	if _, err := ComputeBalance(wide); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow for outcome sum, got %v", err)
	}
}

func TestBalanceApply(t *testing.T) {
	start := Balance{Income: Money{Cents: 500}, Outcome: Money{Cents: 200}, Total: Money{Cents: 300}}
	got, err := start.Apply(tx(Income, 100), tx(Outcome, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Balance{Income: Money{Cents: 600}, Outcome: Money{Cents: 250}, Total: Money{Cents: 350}}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	full := Balance{Income: Money{Cents: math.MaxInt64}, Total: Money{Cents: math.MaxInt64}}
	if _, err := full.Apply(tx(Income, 1)); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
}
