package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/shared"
)

// TransactionBatch is the atomic ledger line: it links a transaction item
// to one item batch and records the number of packs moved. PackSize is an
// independent snapshot taken when the line is created, since the source
// batch's own pack size may later change.
type TransactionBatch struct {
	shared.BaseEntity
	TransactionID     uuid.UUID `gorm:"type:uuid;not null;index"`
	TransactionItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemID            uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemName          string    `gorm:"size:255"`
	ItemBatchID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Batch             string    `gorm:"size:255"`
	ExpiryDate        *time.Time
	PackSize          decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:1"`
	NumberOfPacks     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	NumberOfPacksSent decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	CostPrice         decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	SellPrice         decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Note              string
}

// TableName returns the table name for GORM
func (TransactionBatch) TableName() string {
	return "transaction_batches"
}

func newTransactionBatch(transactionID uuid.UUID, item *TransactionItem, source *inventory.ItemBatch) *TransactionBatch {
	return &TransactionBatch{
		BaseEntity:        shared.NewBaseEntity(),
		TransactionID:     transactionID,
		TransactionItemID: item.ID,
		ItemID:            item.ItemID,
		ItemName:          item.ItemName,
		ItemBatchID:       source.ID,
		Batch:             source.Batch,
		ExpiryDate:        source.ExpiryDate,
		PackSize:          source.PackSize,
		NumberOfPacks:     decimal.Zero,
		CostPrice:         source.CostPrice,
		SellPrice:         source.SellPrice,
	}
}

// TotalQuantity returns the quantity this line moves
func (b *TransactionBatch) TotalQuantity() decimal.Decimal {
	return b.NumberOfPacks.Mul(b.PackSize)
}

// TotalQuantitySent returns the quantity recorded as sent on this line
func (b *TransactionBatch) TotalQuantitySent() decimal.Decimal {
	if !b.NumberOfPacksSent.Valid {
		return decimal.Zero
	}
	return b.NumberOfPacksSent.Decimal.Mul(b.PackSize)
}

// HasBeenSent returns true if the line carries any historical sent quantity
func (b *TransactionBatch) HasBeenSent() bool {
	return b.NumberOfPacksSent.Valid && b.NumberOfPacksSent.Decimal.GreaterThan(decimal.Zero)
}

// TotalPrice returns the line total, priced by sell price on outgoing
// documents and cost price on incoming ones
func (b *TransactionBatch) TotalPrice(t *Transaction) decimal.Decimal {
	if b.NumberOfPacks.IsZero() {
		return decimal.Zero
	}
	if t.IsOutgoing() {
		return b.SellPrice.Mul(b.NumberOfPacks)
	}
	return b.CostPrice.Mul(b.NumberOfPacks)
}

// setTotalQuantity records the line quantity without touching stock; the
// stock-side delta is the transaction's responsibility.
func (b *TransactionBatch) setTotalQuantity(quantity decimal.Decimal) {
	b.NumberOfPacks = quantity.Div(b.PackSize)
	b.Touch()
}

// AmountToAllocate returns how much of the given signed remainder this line
// can absorb. A negative remainder is capped at draining the line; a
// positive remainder is capped, for outgoing documents, at the source
// batch's remaining free stock. Incoming documents are uncapped, since a
// supplier invoice may introduce arbitrary new stock.
//
// Until the document is confirmed its lines have not been deducted from
// stock yet, so the line's own claim still sits inside the source batch's
// quantity and must be subtracted from the free stock.
func (b *TransactionBatch) AmountToAllocate(t *Transaction, source *inventory.ItemBatch, remainder decimal.Decimal) decimal.Decimal {
	if remainder.IsNegative() {
		return decimal.Max(remainder, b.TotalQuantity().Neg())
	}
	if t.IsOutgoing() && source != nil {
		free := source.TotalQuantity()
		if !t.IsConfirmed() {
			free = free.Sub(b.TotalQuantity())
		}
		if free.IsNegative() {
			free = decimal.Zero
		}
		return decimal.Min(remainder, free)
	}
	return remainder
}
