package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/shared"
)

// TransactionRepository provides persistence for ledger documents and their
// owned items and batch lines.
type TransactionRepository interface {
	shared.Repository[Transaction]

	// FindBySerialNumber returns the document of the given type carrying
	// the given serial number
	FindBySerialNumber(ctx context.Context, transactionType TransactionType, serialNumber string) (*Transaction, error)

	// FindWithPlaceholderSerial returns documents still carrying the
	// server-issued placeholder serial number
	FindWithPlaceholderSerial(ctx context.Context) ([]Transaction, error)

	// FindUnfinalisedByType returns documents of the given type that have
	// not been finalised yet
	FindUnfinalisedByType(ctx context.Context, transactionType TransactionType) ([]Transaction, error)

	// OutgoingQuantityForItem sums the confirmed outgoing quantity of an
	// item over [since, until), used for usage calculations
	OutgoingQuantityForItem(ctx context.Context, itemID uuid.UUID, since, until time.Time) (decimal.Decimal, error)
}
