package core

import "fmt"

// Balance is derived from the stored transactions, never persisted.
type Balance struct {
	Income  Money `json:"income"`
	Outcome Money `json:"outcome"`
	Total   Money `json:"total"`
}

// ComputeBalance folds txs into income, outcome and total.
// The result does not depend on the order of txs. ErrBalanceOverflow is
// returned when a sum leaves the int64 range.
func ComputeBalance(txs []Transaction) (Balance, error) {
	var (
		b   Balance
		err error
	)
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			b.Income, err = b.Income.Add(tx.Value)
		case Outcome:
			b.Outcome, err = b.Outcome.Add(tx.Value)
		}
		if err != nil {
			return Balance{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}
	if b.Total, err = b.Income.Sub(b.Outcome); err != nil {
		return Balance{}, err
	}
	return b, nil
}

// Apply returns the balance after adding txs to b, with the same overflow rules
// as ComputeBalance.
func (b Balance) Apply(txs ...Transaction) (Balance, error) {
	more, err := ComputeBalance(txs)
	if err != nil {
		return Balance{}, err
	}
	if b.Income, err = b.Income.Add(more.Income); err != nil {
		return Balance{}, err
	}
	if b.Outcome, err = b.Outcome.Add(more.Outcome); err != nil {
		return Balance{}, err
	}
	if b.Total, err = b.Income.Sub(b.Outcome); err != nil {
		return Balance{}, err
	}
	return b, nil
}
