package amqp

import (
	"encoding/json"
	"time"

	"finances/internal/core"
)

const (
	EventTransactionCreated   = "transaction.created"
	EventTransactionsImported = "transactions.imported"
)

// LedgerEvent is a lightweight notification of a committed write. It carries
// IDs only; consumers read the rows from the ledger.
type LedgerEvent struct {
	Type           string    `json:"type"`
	TransactionIDs []string  `json:"transaction_ids"`
	Count          int       `json:"count"`
	Source         string    `json:"source,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewTransactionCreatedEvent(tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Type:           EventTransactionCreated,
		TransactionIDs: []string{tx.ID},
		Count:          1,
		Timestamp:      time.Now().UTC(),
	}
}

func NewTransactionsImportedEvent(source string, txs []core.Transaction) *LedgerEvent {
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return &LedgerEvent{
		Type:           EventTransactionsImported,
		TransactionIDs: ids,
		Count:          len(txs),
		Source:         source,
		Timestamp:      time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
