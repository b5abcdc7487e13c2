package inventory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/shared"
)

// Item represents a stock item. It is the aggregate root for the batch
// store: the item owns its batches, and stock on hand is always the sum of
// batch quantities, never a separately maintained counter.
//
// An item may alias another item as its "real item" (cross-reference).
// Quantity and usage queries must resolve through the alias; the repository
// performs that resolution when loading, so an Item handed to the ledger
// always carries the real batches.
type Item struct {
	shared.BaseAggregateRoot
	Code            string          `gorm:"size:255;not null;uniqueIndex"`
	Name            string          `gorm:"size:255;not null"`
	DefaultPackSize decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
	DefaultPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RealItemID      *uuid.UUID      `gorm:"type:uuid;index"` // cross-reference alias

	Batches []ItemBatch `gorm:"foreignKey:ItemID;references:ID"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "items"
}

// NewItem creates a new stock item
func NewItem(code, name string, defaultPackSize decimal.Decimal) (*Item, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Item code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if defaultPackSize.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PACK_SIZE", "Default pack size must be positive")
	}

	return &Item{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		DefaultPackSize:   defaultPackSize,
		DefaultPrice:      decimal.Zero,
		Batches:           make([]ItemBatch, 0),
	}, nil
}

// IsCrossReference returns true if this item aliases another item
func (i *Item) IsCrossReference() bool {
	return i.RealItemID != nil && *i.RealItemID != uuid.Nil
}

// TotalQuantity returns the stock on hand summed over all batches
func (i *Item) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for idx := range i.Batches {
		total = total.Add(i.Batches[idx].TotalQuantity())
	}
	return total
}

// HasStock returns true if any batch holds stock
func (i *Item) HasStock() bool {
	return i.TotalQuantity().GreaterThan(decimal.Zero)
}

// Batch returns the owned batch with the given id, or nil
func (i *Item) Batch(id uuid.UUID) *ItemBatch {
	for idx := range i.Batches {
		if i.Batches[idx].ID == id {
			return &i.Batches[idx]
		}
	}
	return nil
}

// BatchesWithStock returns the batches that currently hold stock
func (i *Item) BatchesWithStock() []*ItemBatch {
	batches := make([]*ItemBatch, 0, len(i.Batches))
	for idx := range i.Batches {
		if i.Batches[idx].HasStock() {
			batches = append(batches, &i.Batches[idx])
		}
	}
	return batches
}

// BatchesWithoutStock returns the batches that are currently empty
func (i *Item) BatchesWithoutStock() []*ItemBatch {
	batches := make([]*ItemBatch, 0, len(i.Batches))
	for idx := range i.Batches {
		if !i.Batches[idx].HasStock() {
			batches = append(batches, &i.Batches[idx])
		}
	}
	return batches
}

// EarliestExpiringBatch returns the batch with stock expiring soonest, or nil
func (i *Item) EarliestExpiringBatch() *ItemBatch {
	withStock := i.BatchesWithStock()
	if len(withStock) == 0 {
		return nil
	}
	SortBatchesByExpiry(withStock, true)
	return withStock[0]
}

// AddBatch attaches a batch to this item
func (i *Item) AddBatch(batch *ItemBatch) error {
	if batch == nil {
		return shared.NewDomainError("INVALID_BATCH", "Batch cannot be nil")
	}
	if batch.ItemID != i.ID {
		return shared.NewDomainError("INVALID_BATCH", "Batch belongs to a different item")
	}
	i.Batches = append(i.Batches, *batch)
	i.Touch()
	i.IncrementVersion()
	return nil
}

// AddBatchIfUnique attaches a batch unless one with the same id is already owned
func (i *Item) AddBatchIfUnique(batch *ItemBatch) error {
	if batch != nil && i.Batch(batch.ID) != nil {
		return nil
	}
	return i.AddBatch(batch)
}

// NewEmptyBatch creates, attaches and returns a fresh zero-quantity batch,
// used when an incoming movement introduces stock that no existing batch can
// represent. Pack size starts at 1; prices default from the item.
func (i *Item) NewEmptyBatch(batchLabel string) (*ItemBatch, error) {
	batch, err := NewItemBatch(i.ID, batchLabel, decimal.NewFromInt(1), nil, i.DefaultPrice, i.DefaultPrice)
	if err != nil {
		return nil, err
	}
	if err := i.AddBatch(batch); err != nil {
		return nil, err
	}
	return i.Batch(batch.ID), nil
}

// SortBatchesByExpiry sorts batches in place by expiry date. Ascending order
// puts the soonest-expiring batch first (FEFO); absent expiry sorts as the
// earliest possible date.
func SortBatchesByExpiry(batches []*ItemBatch, ascending bool) {
	sort.SliceStable(batches, func(a, b int) bool {
		if ascending {
			return batches[a].expiresBefore(batches[b])
		}
		return batches[b].expiresBefore(batches[a])
	})
}
