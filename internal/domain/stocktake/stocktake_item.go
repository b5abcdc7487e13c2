package stocktake

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/shared"
)

// StocktakeItem groups the stocktake batches for one item within one
// stocktake. It is unique per (stocktake, item) pair.
type StocktakeItem struct {
	shared.BaseEntity
	StocktakeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stocktake_item,priority:1"`
	ItemID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stocktake_item,priority:2"`
	ItemCode    string    `gorm:"size:255"`
	ItemName    string    `gorm:"size:255"`

	Batches []StocktakeBatch `gorm:"foreignKey:StocktakeItemID;references:ID"`
}

// TableName returns the table name for GORM
func (StocktakeItem) TableName() string {
	return "stocktake_items"
}

func newStocktakeItem(stocktakeID uuid.UUID, stock *inventory.Item) *StocktakeItem {
	return &StocktakeItem{
		BaseEntity:  shared.NewBaseEntity(),
		StocktakeID: stocktakeID,
		ItemID:      stock.ID,
		ItemCode:    stock.Code,
		ItemName:    stock.Name,
		Batches:     make([]StocktakeBatch, 0),
	}
}

// SnapshotTotalQuantity returns the item quantity recorded at snapshot time
func (si *StocktakeItem) SnapshotTotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for idx := range si.Batches {
		total = total.Add(si.Batches[idx].SnapshotTotalQuantity())
	}
	return total
}

// CountedTotalQuantity returns the counted item quantity, with uncounted
// batches contributing their snapshot
func (si *StocktakeItem) CountedTotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for idx := range si.Batches {
		total = total.Add(si.Batches[idx].CountedTotalQuantity())
	}
	return total
}

// Difference returns counted minus snapshot for the whole item
func (si *StocktakeItem) Difference() decimal.Decimal {
	return si.CountedTotalQuantity().Sub(si.SnapshotTotalQuantity())
}

// HasCountedBatches returns true if any batch has a physical count entered
func (si *StocktakeItem) HasCountedBatches() bool {
	for idx := range si.Batches {
		if si.Batches[idx].HasBeenCounted() {
			return true
		}
	}
	return false
}

// NumberOfBatches returns how many batches the item snapshot carries
func (si *StocktakeItem) NumberOfBatches() int {
	return len(si.Batches)
}

// Batch returns the stocktake batch with the given id, or nil
func (si *StocktakeItem) Batch(id uuid.UUID) *StocktakeBatch {
	for idx := range si.Batches {
		if si.Batches[idx].ID == id {
			return &si.Batches[idx]
		}
	}
	return nil
}

// BatchForItemBatch returns the stocktake batch snapshotting the given item
// batch, or nil
func (si *StocktakeItem) BatchForItemBatch(itemBatchID uuid.UUID) *StocktakeBatch {
	for idx := range si.Batches {
		if si.Batches[idx].ItemBatchID == itemBatchID {
			return &si.Batches[idx]
		}
	}
	return nil
}

// IsReducedBelowMinimum reports whether any batch difference would drive
// real inventory negative if the stocktake were finalised now.
func (si *StocktakeItem) IsReducedBelowMinimum(stock *inventory.Item) bool {
	for idx := range si.Batches {
		batch := &si.Batches[idx]
		var live *inventory.ItemBatch
		if stock != nil {
			live = stock.Batch(batch.ItemBatchID)
		}
		if batch.IsReducedBelowMinimum(live) {
			return true
		}
	}
	return false
}

// IsOutdated reports whether the snapshot no longer matches live stock:
// either a snapshotted batch's quantity has moved, or the item now holds
// stock in batches the snapshot never captured. The presentation layer
// should re-snapshot before counting continues.
func (si *StocktakeItem) IsOutdated(stock *inventory.Item) bool {
	if stock == nil {
		return true
	}
	for idx := range si.Batches {
		batch := &si.Batches[idx]
		live := stock.Batch(batch.ItemBatchID)
		if live == nil {
			if !batch.SnapshotTotalQuantity().IsZero() {
				return true
			}
			continue
		}
		if !batch.SnapshotTotalQuantity().Equal(live.TotalQuantity()) {
			return true
		}
	}
	for _, live := range stock.BatchesWithStock() {
		if si.BatchForItemBatch(live.ID) == nil {
			return true
		}
	}
	return false
}

// Reset re-snapshots the item from live stock, dropping all counts
func (si *StocktakeItem) Reset(stock *inventory.Item) {
	si.Batches = si.Batches[:0]
	for _, live := range stock.BatchesWithStock() {
		si.Batches = append(si.Batches, *newStocktakeBatch(si.StocktakeID, si.ID, live))
	}
	si.Touch()
}

// setCountedTotalQuantity distributes a counted item quantity across the
// item's batches with the same expiry discipline the ledger uses: increases
// fill soonest-expiring batches first, decreases drain latest-expiring
// batches first. Counting exactly the snapshot clears all not-counted
// placeholders instead of recording a zero-difference edit.
func (si *StocktakeItem) setCountedTotalQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("Counted quantity cannot be negative")
	}

	if quantity.Equal(si.SnapshotTotalQuantity()) {
		for idx := range si.Batches {
			if !si.Batches[idx].HasBeenCounted() {
				si.Batches[idx].clearCount()
			}
		}
		si.Touch()
		return nil
	}

	remaining := quantity.Sub(si.CountedTotalQuantity())
	increase := remaining.IsPositive()
	for _, batch := range si.batchesSortedByExpiry(increase) {
		if remaining.IsZero() {
			break
		}
		amount := batch.AmountToAllocate(remaining)
		if amount.IsZero() {
			continue
		}
		batch.setCountedTotalQuantity(batch.CountedTotalQuantity().Add(amount))
		remaining = remaining.Sub(amount)
	}
	if !remaining.IsZero() {
		return shared.ErrAllocationExhausted.WithMessage(
			"Failed to allocate counted quantity across stocktake batches for " + si.ItemName)
	}
	si.Touch()
	return nil
}

// batchesSortedByExpiry returns the item's batches ordered by snapshot
// expiry: ascending when increasing the count, descending when decreasing.
func (si *StocktakeItem) batchesSortedByExpiry(ascending bool) []*StocktakeBatch {
	batches := make([]*StocktakeBatch, 0, len(si.Batches))
	for idx := range si.Batches {
		batches = append(batches, &si.Batches[idx])
	}
	sort.SliceStable(batches, func(a, b int) bool {
		if ascending {
			return batches[a].expiresBefore(batches[b])
		}
		return batches[b].expiresBefore(batches[a])
	})
	return batches
}
