package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/shared"
)

// TransactionType identifies the kind of stock movement a transaction records
type TransactionType string

const (
	TransactionTypeCustomerInvoice     TransactionType = "customer_invoice"
	TransactionTypeCustomerCredit      TransactionType = "customer_credit"
	TransactionTypeSupplierInvoice     TransactionType = "supplier_invoice"
	TransactionTypeSupplierCredit      TransactionType = "supplier_credit"
	TransactionTypeInventoryAdjustment TransactionType = "inventory_adjustment"
)

// IsValid checks if the type is a valid TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeCustomerInvoice, TransactionTypeCustomerCredit,
		TransactionTypeSupplierInvoice, TransactionTypeSupplierCredit,
		TransactionTypeInventoryAdjustment:
		return true
	}
	return false
}

// String returns the string representation
func (t TransactionType) String() string {
	return string(t)
}

// AllTransactionTypes returns all valid transaction types
func AllTransactionTypes() []TransactionType {
	return []TransactionType{
		TransactionTypeCustomerInvoice,
		TransactionTypeCustomerCredit,
		TransactionTypeSupplierInvoice,
		TransactionTypeSupplierCredit,
		TransactionTypeInventoryAdjustment,
	}
}

// DocumentStatus represents the lifecycle status of a ledger document.
// The progression new -> confirmed -> finalised is strictly monotonic.
type DocumentStatus string

const (
	DocumentStatusNew       DocumentStatus = "new"
	DocumentStatusConfirmed DocumentStatus = "confirmed"
	DocumentStatusFinalised DocumentStatus = "finalised"
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusNew, DocumentStatusConfirmed, DocumentStatusFinalised:
		return true
	}
	return false
}

// String returns the string representation
func (s DocumentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	switch s {
	case DocumentStatusNew:
		return target == DocumentStatusConfirmed || target == DocumentStatusFinalised
	case DocumentStatusConfirmed:
		return target == DocumentStatusFinalised
	case DocumentStatusFinalised:
		return false // terminal
	}
	return false
}

// PlaceholderSerialNumber marks a document issued by the server as
// counterparty that has not yet been assigned a local serial number.
const PlaceholderSerialNumber = "-1"

// StockLookup resolves the inventory item (with its batches loaded) for an
// item id. Operations that push quantity deltas into item batches receive
// one so that all mutation stays inside the caller's write scope.
type StockLookup func(itemID uuid.UUID) *inventory.Item

// Transaction is a ledger document header. It is the aggregate root for
// stock movements and owns an ordered set of TransactionItem, each grouping
// the batch lines for one item.
type Transaction struct {
	shared.BaseAggregateRoot
	SerialNumber string          `gorm:"size:64;not null;index"`
	Type         TransactionType `gorm:"size:32;not null;index"`
	Status       DocumentStatus  `gorm:"size:16;not null;default:new"`
	// Addition gives inventory adjustments their direction; other types
	// derive direction from Type alone.
	Addition            bool
	EntryDate           time.Time
	ConfirmDate         *time.Time
	OtherPartyName      string `gorm:"size:255"`
	Comment             string
	LinkedRequisitionID *uuid.UUID `gorm:"type:uuid;index"`

	Items []TransactionItem `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction creates a new ledger document in status "new"
func NewTransaction(transactionType TransactionType, serialNumber string, entryDate time.Time) (*Transaction, error) {
	if !transactionType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Unknown transaction type")
	}
	if serialNumber == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Serial number cannot be empty")
	}

	t := &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SerialNumber:      serialNumber,
		Type:              transactionType,
		Status:            DocumentStatusNew,
		EntryDate:         entryDate,
		Items:             make([]TransactionItem, 0),
	}

	t.AddDomainEvent(NewTransactionCreatedEvent(t))

	return t, nil
}

// NewInventoryAdjustment creates a confirmed inventory adjustment document.
// Adjustments are born confirmed so that quantity changes on their lines
// take effect on stock immediately.
func NewInventoryAdjustment(serialNumber string, date time.Time, isAddition bool) (*Transaction, error) {
	t, err := NewTransaction(TransactionTypeInventoryAdjustment, serialNumber, date)
	if err != nil {
		return nil, err
	}
	t.Addition = isAddition
	t.Status = DocumentStatusConfirmed
	t.ConfirmDate = &date
	return t, nil
}

// IsCustomerInvoice returns true for customer invoices
func (t *Transaction) IsCustomerInvoice() bool {
	return t.Type == TransactionTypeCustomerInvoice
}

// IsSupplierInvoice returns true for supplier invoices
func (t *Transaction) IsSupplierInvoice() bool {
	return t.Type == TransactionTypeSupplierInvoice
}

// IsInventoryAdjustment returns true for inventory adjustments
func (t *Transaction) IsInventoryAdjustment() bool {
	return t.Type == TransactionTypeInventoryAdjustment
}

// IsIncoming returns true if this document moves stock into inventory
func (t *Transaction) IsIncoming() bool {
	switch t.Type {
	case TransactionTypeSupplierInvoice, TransactionTypeCustomerCredit:
		return true
	case TransactionTypeInventoryAdjustment:
		return t.Addition
	}
	return false
}

// IsOutgoing returns true if this document moves stock out of inventory
func (t *Transaction) IsOutgoing() bool {
	return !t.IsIncoming()
}

// IsConfirmed returns true once the document's stock effects are live
func (t *Transaction) IsConfirmed() bool {
	return t.Status == DocumentStatusConfirmed || t.Status == DocumentStatusFinalised
}

// IsFinalised returns true once the document is locked
func (t *Transaction) IsFinalised() bool {
	return t.Status == DocumentStatusFinalised
}

// HasPlaceholderSerial returns true if the document still carries the
// server-issued placeholder serial number.
func (t *Transaction) HasPlaceholderSerial() bool {
	return t.SerialNumber == PlaceholderSerialNumber
}

// AssignSerialNumber replaces the placeholder serial with a locally issued
// one. Assigning over a real serial is refused; the operation is idempotent
// for reconciliation reruns only because the guard makes reruns a no-op.
func (t *Transaction) AssignSerialNumber(serial string) error {
	if !t.HasPlaceholderSerial() {
		return shared.ErrInvalidState.WithMessage("Transaction already has a serial number")
	}
	if serial == "" || serial == PlaceholderSerialNumber {
		return shared.NewDomainError("INVALID_SERIAL", "Serial number cannot be empty or the placeholder")
	}
	t.SerialNumber = serial
	t.Touch()
	t.IncrementVersion()
	return nil
}

// ValidateMutation implements shared.Lifecycle: finalised documents are
// permanently read-only.
func (t *Transaction) ValidateMutation() error {
	if t.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("Cannot modify a finalised transaction")
	}
	return nil
}

// OnDelete implements shared.Lifecycle
func (t *Transaction) OnDelete() error {
	if t.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("Cannot delete a finalised transaction")
	}
	return nil
}

// Item returns the transaction item for the given stock item id, or nil
func (t *Transaction) Item(itemID uuid.UUID) *TransactionItem {
	for idx := range t.Items {
		if t.Items[idx].ItemID == itemID {
			return &t.Items[idx]
		}
	}
	return nil
}

// EnsureItem returns the transaction item grouping lines for the given
// stock item, creating it if the document does not carry one yet. Items are
// unique per (transaction, item) pair.
func (t *Transaction) EnsureItem(stock *inventory.Item) (*TransactionItem, error) {
	if err := t.ValidateMutation(); err != nil {
		return nil, err
	}
	if existing := t.Item(stock.ID); existing != nil {
		return existing, nil
	}
	item := newTransactionItem(t.ID, stock)
	t.Items = append(t.Items, *item)
	t.Touch()
	t.IncrementVersion()
	return t.Item(stock.ID), nil
}

// RemoveItem deletes the transaction item for the given stock item,
// reverting any stock effect its lines had.
func (t *Transaction) RemoveItem(stock *inventory.Item) error {
	if err := t.ValidateMutation(); err != nil {
		return err
	}
	item := t.Item(stock.ID)
	if item == nil {
		return shared.ErrNotFound.WithMessage("Item is not part of this transaction")
	}
	if err := t.SetItemQuantity(stock, decimal.Zero); err != nil {
		return err
	}
	for idx := range t.Items {
		if t.Items[idx].ItemID == stock.ID {
			t.Items = append(t.Items[:idx], t.Items[idx+1:]...)
			break
		}
	}
	t.Touch()
	t.IncrementVersion()
	return nil
}

// TotalQuantity returns the quantity moved across all items
func (t *Transaction) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for idx := range t.Items {
		total = total.Add(t.Items[idx].TotalQuantity())
	}
	return total
}

// TotalPrice returns the document total priced per direction
func (t *Transaction) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for idx := range t.Items {
		total = total.Add(t.Items[idx].TotalPrice(t))
	}
	return total
}

// Confirm moves the document from new to confirmed and applies every line's
// quantity to its linked item batch as a signed delta. Confirming an
// already confirmed document is a no-op; confirming a finalised one fails.
//
// The whole confirmation is validated before any batch is touched so a
// failure leaves no partial quantity changes; it must still run inside one
// write scope so the store can abort cleanly on error.
func (t *Transaction) Confirm(lookup StockLookup) error {
	if t.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("Cannot confirm a finalised transaction")
	}
	if t.IsConfirmed() {
		return nil
	}

	type pending struct {
		batch *inventory.ItemBatch
		delta decimal.Decimal
	}
	deltas := make([]pending, 0)
	index := make(map[uuid.UUID]int)
	for i := range t.Items {
		stock := lookup(t.Items[i].ItemID)
		if stock == nil {
			return shared.ErrNotFound.WithMessage("No stock found for transaction item")
		}
		for j := range t.Items[i].Batches {
			line := &t.Items[i].Batches[j]
			batch := stock.Batch(line.ItemBatchID)
			if batch == nil {
				return shared.ErrNotFound.WithMessage("Transaction line references an unknown item batch")
			}
			delta := line.TotalQuantity()
			if t.IsOutgoing() {
				delta = delta.Neg()
			}
			// Deltas are accumulated per batch so several lines on the
			// same batch are validated against their combined effect.
			if idx, ok := index[batch.ID]; ok {
				deltas[idx].delta = deltas[idx].delta.Add(delta)
				continue
			}
			index[batch.ID] = len(deltas)
			deltas = append(deltas, pending{batch: batch, delta: delta})
		}
	}
	for _, p := range deltas {
		if p.batch.TotalQuantity().Add(p.delta).IsNegative() {
			return shared.ErrInvariantViolation.WithMessage("Confirming would reduce an item batch below zero")
		}
	}
	for _, p := range deltas {
		if err := p.batch.AdjustTotalQuantity(p.delta); err != nil {
			return err
		}
	}

	now := time.Now()
	t.Status = DocumentStatusConfirmed
	t.ConfirmDate = &now
	t.Touch()
	t.IncrementVersion()
	t.AddDomainEvent(NewTransactionConfirmedEvent(t))
	return nil
}

// Finalise locks the document, confirming it first if necessary. The
// transition is one-way: a finalised transaction never accepts another
// mutation and its totals never change.
func (t *Transaction) Finalise(lookup StockLookup) error {
	if t.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("Transaction is already finalised")
	}
	if err := t.Confirm(lookup); err != nil {
		return err
	}
	t.Status = DocumentStatusFinalised
	t.Touch()
	t.IncrementVersion()
	t.AddDomainEvent(NewTransactionFinalisedEvent(t))
	return nil
}
