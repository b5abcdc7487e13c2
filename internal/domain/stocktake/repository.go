package stocktake

import (
	"context"

	"github.com/medistock/ledger/internal/domain/shared"
)

// Repository provides persistence for stocktakes and their owned items and
// batches.
type Repository interface {
	shared.Repository[Stocktake]

	// FindUnfinalised returns stocktakes still open for counting
	FindUnfinalised(ctx context.Context) ([]Stocktake, error)

	// FindWithPlaceholderSerial returns stocktakes still carrying the
	// offline placeholder serial number
	FindWithPlaceholderSerial(ctx context.Context) ([]Stocktake, error)
}
