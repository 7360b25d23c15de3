package services

import (
	"context"

	"finances/internal/core"
)

// EventPublisher announces committed ledger writes. Implementations must not
// block for long; a nil EventPublisher disables publishing.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, tx core.Transaction) error
	PublishTransactionsImported(ctx context.Context, source string, txs []core.Transaction) error
}
