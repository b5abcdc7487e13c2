package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/shared"
)

// TransactionItem groups all batch lines for one item within one
// transaction. It is unique per (transaction, item) pair; its totals are
// always sums over its lines, never stored separately.
type TransactionItem struct {
	shared.BaseEntity
	TransactionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_transaction_item,priority:1"`
	ItemID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_transaction_item,priority:2"`
	ItemCode      string    `gorm:"size:255"`
	ItemName      string    `gorm:"size:255"`

	Batches []TransactionBatch `gorm:"foreignKey:TransactionItemID;references:ID"`
}

// TableName returns the table name for GORM
func (TransactionItem) TableName() string {
	return "transaction_items"
}

func newTransactionItem(transactionID uuid.UUID, stock *inventory.Item) *TransactionItem {
	return &TransactionItem{
		BaseEntity:    shared.NewBaseEntity(),
		TransactionID: transactionID,
		ItemID:        stock.ID,
		ItemCode:      stock.Code,
		ItemName:      stock.Name,
		Batches:       make([]TransactionBatch, 0),
	}
}

// TotalQuantity returns the quantity moved for this item, summed over lines
func (ti *TransactionItem) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for idx := range ti.Batches {
		total = total.Add(ti.Batches[idx].TotalQuantity())
	}
	return total
}

// TotalQuantitySent returns the quantity recorded as sent, summed over lines
func (ti *TransactionItem) TotalQuantitySent() decimal.Decimal {
	total := decimal.Zero
	for idx := range ti.Batches {
		total = total.Add(ti.Batches[idx].TotalQuantitySent())
	}
	return total
}

// TotalPrice returns the item total priced per the document's direction
func (ti *TransactionItem) TotalPrice(t *Transaction) decimal.Decimal {
	total := decimal.Zero
	for idx := range ti.Batches {
		total = total.Add(ti.Batches[idx].TotalPrice(t))
	}
	return total
}

// NumberOfBatches returns how many lines the item carries
func (ti *TransactionItem) NumberOfBatches() int {
	return len(ti.Batches)
}

// Line returns the line with the given id, or nil
func (ti *TransactionItem) Line(id uuid.UUID) *TransactionBatch {
	for idx := range ti.Batches {
		if ti.Batches[idx].ID == id {
			return &ti.Batches[idx]
		}
	}
	return nil
}

// LineForItemBatch returns the line referencing the given item batch, or nil
func (ti *TransactionItem) LineForItemBatch(itemBatchID uuid.UUID) *TransactionBatch {
	for idx := range ti.Batches {
		if ti.Batches[idx].ItemBatchID == itemBatchID {
			return &ti.Batches[idx]
		}
	}
	return nil
}

// AvailableQuantity returns how much of the item can be issued in total by
// this document. Once an outgoing document is confirmed its own holdings
// have already been taken out of stock, so they are added back in; edits to
// one's own open invoice must not self-block.
func (ti *TransactionItem) AvailableQuantity(t *Transaction, stock *inventory.Item) decimal.Decimal {
	if t.IsOutgoing() && t.IsConfirmed() {
		return stock.TotalQuantity().Add(ti.TotalQuantity())
	}
	return stock.TotalQuantity()
}
