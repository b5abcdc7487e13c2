package stocktake

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/shared"
)

// StocktakeBatch snapshots one item batch at stocktake creation time and
// accepts a physically counted quantity later. PackSize is snapshotted
// independently of the source batch.
type StocktakeBatch struct {
	shared.BaseEntity
	StocktakeID           uuid.UUID `gorm:"type:uuid;not null;index"`
	StocktakeItemID       uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemBatchID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Batch                 string    `gorm:"size:255"`
	ExpiryDate            *time.Time
	PackSize              decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:1"`
	SnapshotNumberOfPacks decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	CountedNumberOfPacks  decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	CostPrice             decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	SellPrice             decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StocktakeBatch) TableName() string {
	return "stocktake_batches"
}

func newStocktakeBatch(stocktakeID, stocktakeItemID uuid.UUID, source *inventory.ItemBatch) *StocktakeBatch {
	return &StocktakeBatch{
		BaseEntity:            shared.NewBaseEntity(),
		StocktakeID:           stocktakeID,
		StocktakeItemID:       stocktakeItemID,
		ItemBatchID:           source.ID,
		Batch:                 source.Batch,
		ExpiryDate:            source.ExpiryDate,
		PackSize:              source.PackSize,
		SnapshotNumberOfPacks: source.NumberOfPacks,
		CostPrice:             source.CostPrice,
		SellPrice:             source.SellPrice,
	}
}

// SnapshotTotalQuantity returns the quantity recorded when the snapshot was taken
func (b *StocktakeBatch) SnapshotTotalQuantity() decimal.Decimal {
	return b.SnapshotNumberOfPacks.Mul(b.PackSize)
}

// HasBeenCounted returns true once a physical count has been entered
func (b *StocktakeBatch) HasBeenCounted() bool {
	return b.CountedNumberOfPacks.Valid
}

// CountedTotalQuantity returns the counted quantity, defaulting to the
// snapshot while the batch has not been counted yet
func (b *StocktakeBatch) CountedTotalQuantity() decimal.Decimal {
	if !b.HasBeenCounted() {
		return b.SnapshotTotalQuantity()
	}
	return b.CountedNumberOfPacks.Decimal.Mul(b.PackSize)
}

// Difference returns counted minus snapshot; zero while uncounted
func (b *StocktakeBatch) Difference() decimal.Decimal {
	return b.CountedTotalQuantity().Sub(b.SnapshotTotalQuantity())
}

// IsFresh returns true for batches auto-created by the stocktake that were
// never touched: nothing snapshotted and no counted difference.
func (b *StocktakeBatch) IsFresh() bool {
	return b.SnapshotTotalQuantity().IsZero() && b.Difference().IsZero()
}

// IsReducedBelowMinimum reports whether finalising this batch's difference
// would drive real inventory negative: concurrent movements may have
// consumed stock after the snapshot was taken, so the check is against the
// batch's live quantity, not the snapshot.
func (b *StocktakeBatch) IsReducedBelowMinimum(live *inventory.ItemBatch) bool {
	if live == nil {
		return b.Difference().IsNegative()
	}
	return live.TotalQuantity().Add(b.Difference()).IsNegative()
}

// setCountedTotalQuantity records the counted quantity in units
func (b *StocktakeBatch) setCountedTotalQuantity(quantity decimal.Decimal) {
	b.CountedNumberOfPacks = decimal.NewNullDecimal(quantity.Div(b.PackSize))
	b.Touch()
}

// clearCount drops the counted value, returning the batch to its
// not-counted placeholder state
func (b *StocktakeBatch) clearCount() {
	b.CountedNumberOfPacks = decimal.NullDecimal{}
	b.Touch()
}

// AmountToAllocate returns how much of the given signed remainder this
// batch's counted quantity can absorb. A negative remainder is capped at
// draining the counted quantity; a positive remainder is uncapped, since a
// count may find arbitrarily more stock than the snapshot.
func (b *StocktakeBatch) AmountToAllocate(remainder decimal.Decimal) decimal.Decimal {
	if remainder.IsNegative() {
		return decimal.Max(remainder, b.CountedTotalQuantity().Neg())
	}
	return remainder
}

// expiresBefore orders stocktake batches by snapshot expiry; absent expiry
// sorts earliest, ties break on creation time.
func (b *StocktakeBatch) expiresBefore(other *StocktakeBatch) bool {
	switch {
	case b.ExpiryDate == nil && other.ExpiryDate == nil:
		return b.CreatedAt.Before(other.CreatedAt)
	case b.ExpiryDate == nil:
		return true
	case other.ExpiryDate == nil:
		return false
	case !b.ExpiryDate.Equal(*other.ExpiryDate):
		return b.ExpiryDate.Before(*other.ExpiryDate)
	}
	return b.CreatedAt.Before(other.CreatedAt)
}
