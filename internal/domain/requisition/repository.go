package requisition

import (
	"context"

	"github.com/medistock/ledger/internal/domain/shared"
)

// Repository defines the persistence port for requisitions
type Repository interface {
	shared.Repository[Requisition]

	// FindWithPlaceholderSerial returns requisitions still carrying the
	// offline placeholder serial number
	FindWithPlaceholderSerial(ctx context.Context) ([]Requisition, error)

	// FindUnfinalisedResponses returns response requisitions that have not
	// reached their terminal state
	FindUnfinalisedResponses(ctx context.Context) ([]Requisition, error)
}
