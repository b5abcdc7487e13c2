package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/shared"
)

// ItemBatch represents one physically distinct lot of an item: its own pack
// size, quantity on hand, expiry date and prices. The batch's TotalQuantity
// is the single source of truth for real stock; transaction and stocktake
// lines are movement records that adjust it by signed deltas.
type ItemBatch struct {
	shared.BaseEntity
	ItemID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Batch         string          `gorm:"size:255"` // batch/lot label
	PackSize      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
	NumberOfPacks decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ExpiryDate    *time.Time      // optional; absent expiry sorts as earliest
	CostPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SellPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ItemBatch) TableName() string {
	return "item_batches"
}

// NewItemBatch creates a new batch for an item
func NewItemBatch(itemID uuid.UUID, batchLabel string, packSize decimal.Decimal, expiryDate *time.Time, costPrice, sellPrice decimal.Decimal) (*ItemBatch, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	if packSize.LessThanOrEqual(decimal.Zero) {
		return nil, shared.ErrInvariantViolation.WithMessage("Batch pack size must be positive")
	}
	if costPrice.IsNegative() || sellPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Batch prices cannot be negative")
	}

	return &ItemBatch{
		BaseEntity:    shared.NewBaseEntity(),
		ItemID:        itemID,
		Batch:         batchLabel,
		PackSize:      packSize,
		NumberOfPacks: decimal.Zero,
		ExpiryDate:    expiryDate,
		CostPrice:     costPrice,
		SellPrice:     sellPrice,
	}, nil
}

// TotalQuantity returns the quantity on hand in this batch
func (b *ItemBatch) TotalQuantity() decimal.Decimal {
	return b.NumberOfPacks.Mul(b.PackSize)
}

// SetTotalQuantity sets the quantity on hand in this batch, expressed as
// units rather than packs. Setting a negative quantity is an invariant
// violation and leaves the batch untouched.
func (b *ItemBatch) SetTotalQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.ErrInvariantViolation.WithMessage("Cannot set a negative item batch quantity")
	}
	b.NumberOfPacks = quantity.Div(b.PackSize)
	b.Touch()
	return nil
}

// AdjustTotalQuantity applies a signed delta to the quantity on hand.
// The result must not go negative.
func (b *ItemBatch) AdjustTotalQuantity(delta decimal.Decimal) error {
	return b.SetTotalQuantity(b.TotalQuantity().Add(delta))
}

// HasStock returns true if the batch has quantity on hand
func (b *ItemBatch) HasStock() bool {
	return b.TotalQuantity().GreaterThan(decimal.Zero)
}

// IsExpired returns true if the batch has expired
func (b *ItemBatch) IsExpired() bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(time.Now())
}

// DaysUntilExpiry returns the number of days until expiry, -1 if no expiry date
func (b *ItemBatch) DaysUntilExpiry() int {
	if b.ExpiryDate == nil {
		return -1
	}
	return int(time.Until(*b.ExpiryDate).Hours() / 24)
}

// expiresBefore orders batches by expiry with absent expiry sorting as the
// earliest possible date. Ties fall back to creation time so ordering is
// stable across allocation passes.
func (b *ItemBatch) expiresBefore(other *ItemBatch) bool {
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
