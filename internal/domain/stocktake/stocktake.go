package stocktake

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
)

// Stocktake snapshots current stock per batch at creation time and accepts
// physically counted quantities later. It is the aggregate root for
// stocktake reconciliation; finalisation is one-way and emits inventory
// adjustment transactions for every counted difference.
type Stocktake struct {
	shared.BaseAggregateRoot
	Name          string                `gorm:"size:255"`
	SerialNumber  string                `gorm:"size:64;not null;index"`
	Status        ledger.DocumentStatus `gorm:"size:16;not null;default:new"`
	CreatedDate   time.Time
	StocktakeDate *time.Time
	Comment       string
	// AdditionsID/ReductionsID reference the inventory adjustment
	// transactions created lazily during finalisation.
	AdditionsID  *uuid.UUID `gorm:"type:uuid"`
	ReductionsID *uuid.UUID `gorm:"type:uuid"`

	Items []StocktakeItem `gorm:"foreignKey:StocktakeID;references:ID"`
}

// TableName returns the table name for GORM
func (Stocktake) TableName() string {
	return "stocktakes"
}

// NewStocktake creates a new stocktake document in status "new"
func NewStocktake(serialNumber, name string) (*Stocktake, error) {
	if serialNumber == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Serial number cannot be empty")
	}

	st := &Stocktake{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		SerialNumber:      serialNumber,
		Status:            ledger.DocumentStatusNew,
		CreatedDate:       time.Now(),
		Items:             make([]StocktakeItem, 0),
	}

	st.AddDomainEvent(NewStocktakeCreatedEvent(st))

	return st, nil
}

// HasPlaceholderSerial returns true while the stocktake still carries the
// offline placeholder serial number
func (st *Stocktake) HasPlaceholderSerial() bool {
	return st.SerialNumber == ledger.PlaceholderSerialNumber
}

// AssignSerialNumber replaces the placeholder serial with a real one. It is
// a no-op once a real serial has been assigned, so repeated post-sync
// processing cannot burn extra sequence numbers.
func (st *Stocktake) AssignSerialNumber(serial string) {
	if !st.HasPlaceholderSerial() {
		return
	}
	st.SerialNumber = serial
	st.Touch()
}

// IsConfirmed returns true once counting has started
func (st *Stocktake) IsConfirmed() bool {
	return st.Status == ledger.DocumentStatusConfirmed || st.Status == ledger.DocumentStatusFinalised
}

// IsFinalised returns true once the stocktake is locked
func (st *Stocktake) IsFinalised() bool {
	return st.Status == ledger.DocumentStatusFinalised
}

// ValidateMutation implements shared.Lifecycle: finalised stocktakes are
// permanently read-only.
func (st *Stocktake) ValidateMutation() error {
	if st.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("Cannot modify a finalised stocktake")
	}
	return nil
}

// OnDelete implements shared.Lifecycle
func (st *Stocktake) OnDelete() error {
	if st.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("Cannot delete a finalised stocktake")
	}
	return nil
}

// Item returns the stocktake item for the given stock item id, or nil
func (st *Stocktake) Item(itemID uuid.UUID) *StocktakeItem {
	for idx := range st.Items {
		if st.Items[idx].ItemID == itemID {
			return &st.Items[idx]
		}
	}
	return nil
}

// NumberOfBatches returns the batch count across all items
func (st *Stocktake) NumberOfBatches() int {
	count := 0
	for idx := range st.Items {
		count += st.Items[idx].NumberOfBatches()
	}
	return count
}

// HasSomeCountedItems returns true if any item has a count entered
func (st *Stocktake) HasSomeCountedItems() bool {
	for idx := range st.Items {
		if st.Items[idx].HasCountedBatches() {
			return true
		}
	}
	return false
}

// AddItem snapshots the given stock item into the stocktake, capturing
// every batch currently holding stock. Adding an item twice is a no-op.
func (st *Stocktake) AddItem(stock *inventory.Item) error {
	if err := st.ValidateMutation(); err != nil {
		return err
	}
	if stock == nil {
		return shared.ErrInvalidInput.WithMessage("Stock item cannot be nil")
	}
	if st.Item(stock.ID) != nil {
		return nil
	}

	item := newStocktakeItem(st.ID, stock)
	for _, batch := range stock.BatchesWithStock() {
		item.Batches = append(item.Batches, *newStocktakeBatch(st.ID, item.ID, batch))
	}
	st.Items = append(st.Items, *item)
	st.Touch()
	st.IncrementVersion()
	return nil
}

// SetItems aligns the stocktake's items to the given set of stock items,
// removing items no longer wanted and snapshotting new ones.
func (st *Stocktake) SetItems(stocks []*inventory.Item) error {
	if err := st.ValidateMutation(); err != nil {
		return err
	}

	wanted := make(map[uuid.UUID]bool, len(stocks))
	for _, stock := range stocks {
		wanted[stock.ID] = true
	}
	kept := st.Items[:0]
	for idx := range st.Items {
		if wanted[st.Items[idx].ItemID] {
			kept = append(kept, st.Items[idx])
		}
	}
	st.Items = kept

	for _, stock := range stocks {
		if err := st.AddItem(stock); err != nil {
			return err
		}
	}
	st.Touch()
	st.IncrementVersion()
	return nil
}

// SetCountedTotalQuantity records the physically counted quantity for one
// item, distributing it across the item's snapshot batches. The first count
// moves the stocktake from new to confirmed.
func (st *Stocktake) SetCountedTotalQuantity(itemID uuid.UUID, quantity decimal.Decimal) error {
	if err := st.ValidateMutation(); err != nil {
		return err
	}
	item := st.Item(itemID)
	if item == nil {
		return shared.ErrNotFound.WithMessage("Item is not part of this stocktake")
	}
	if err := item.setCountedTotalQuantity(quantity); err != nil {
		return err
	}
	if st.Status == ledger.DocumentStatusNew {
		st.Status = ledger.DocumentStatusConfirmed
	}
	st.Touch()
	st.IncrementVersion()
	return nil
}

// ItemsBelowMinimum returns the items whose counted differences would drive
// real inventory negative if finalised now
func (st *Stocktake) ItemsBelowMinimum(lookup ledger.StockLookup) []*StocktakeItem {
	below := make([]*StocktakeItem, 0)
	for idx := range st.Items {
		if st.Items[idx].IsReducedBelowMinimum(lookup(st.Items[idx].ItemID)) {
			below = append(below, &st.Items[idx])
		}
	}
	return below
}

// ItemsOutdated returns the items whose snapshot no longer matches live stock
func (st *Stocktake) ItemsOutdated(lookup ledger.StockLookup) []*StocktakeItem {
	outdated := make([]*StocktakeItem, 0)
	for idx := range st.Items {
		if st.Items[idx].IsOutdated(lookup(st.Items[idx].ItemID)) {
			outdated = append(outdated, &st.Items[idx])
		}
	}
	return outdated
}

// ResetItems re-snapshots the given items from live stock, dropping counts
func (st *Stocktake) ResetItems(lookup ledger.StockLookup, itemIDs []uuid.UUID) error {
	if err := st.ValidateMutation(); err != nil {
		return err
	}
	for _, id := range itemIDs {
		item := st.Item(id)
		if item == nil {
			return shared.ErrNotFound.WithMessage("Item is not part of this stocktake")
		}
		stock := lookup(id)
		if stock == nil {
			return shared.ErrNotFound.WithMessage("No stock found for stocktake item")
		}
		item.Reset(stock)
	}
	st.Touch()
	st.IncrementVersion()
	return nil
}
