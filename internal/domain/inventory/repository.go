package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/medistock/ledger/internal/domain/shared"
)

// ItemRepository provides persistence for items and their owned batches.
//
// Deleting an item destroys its batches recursively, together with any
// dependent transaction/stocktake lines that reference them; the
// implementation enforces that ownership direction.
type ItemRepository interface {
	shared.Repository[Item]

	// FindResolved returns the item with the given id, following the
	// cross-reference alias so the returned aggregate carries the real
	// item's batches.
	FindResolved(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindByCode returns the item with the given code
	FindByCode(ctx context.Context, code string) (*Item, error)

	// SaveBatch persists a single batch that was mutated outside its
	// owning aggregate, e.g. by a confirmed transaction pushing a
	// quantity delta into it.
	SaveBatch(ctx context.Context, batch *ItemBatch) error

	// DeleteBatch removes a batch. Implementations must refuse to delete
	// a batch still referenced by movement lines with nonzero history.
	DeleteBatch(ctx context.Context, id uuid.UUID) error
}
