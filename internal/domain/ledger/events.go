package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeTransaction = "Transaction"

// Event type constants
const (
	EventTypeTransactionCreated   = "TransactionCreated"
	EventTypeTransactionConfirmed = "TransactionConfirmed"
	EventTypeTransactionFinalised = "TransactionFinalised"
	EventTypeItemQuantitySet      = "ItemQuantitySet"
)

// TransactionCreatedEvent is raised when a new ledger document is created
type TransactionCreatedEvent struct {
	shared.BaseDomainEvent
	SerialNumber    string          `json:"serial_number"`
	TransactionType TransactionType `json:"transaction_type"`
}

// NewTransactionCreatedEvent creates a new TransactionCreatedEvent
func NewTransactionCreatedEvent(t *Transaction) *TransactionCreatedEvent {
	return &TransactionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionCreated, AggregateTypeTransaction, t.ID),
		SerialNumber:    t.SerialNumber,
		TransactionType: t.Type,
	}
}

// TransactionConfirmedEvent is raised when a document's stock effects go live
type TransactionConfirmedEvent struct {
	shared.BaseDomainEvent
	SerialNumber    string          `json:"serial_number"`
	TransactionType TransactionType `json:"transaction_type"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
}

// NewTransactionConfirmedEvent creates a new TransactionConfirmedEvent
func NewTransactionConfirmedEvent(t *Transaction) *TransactionConfirmedEvent {
	return &TransactionConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionConfirmed, AggregateTypeTransaction, t.ID),
		SerialNumber:    t.SerialNumber,
		TransactionType: t.Type,
		TotalQuantity:   t.TotalQuantity(),
	}
}

// TransactionFinalisedEvent is raised when a document is locked for good
type TransactionFinalisedEvent struct {
	shared.BaseDomainEvent
	SerialNumber    string          `json:"serial_number"`
	TransactionType TransactionType `json:"transaction_type"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// NewTransactionFinalisedEvent creates a new TransactionFinalisedEvent
func NewTransactionFinalisedEvent(t *Transaction) *TransactionFinalisedEvent {
	return &TransactionFinalisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionFinalised, AggregateTypeTransaction, t.ID),
		SerialNumber:    t.SerialNumber,
		TransactionType: t.Type,
		TotalQuantity:   t.TotalQuantity(),
		TotalPrice:      t.TotalPrice(),
	}
}

// ItemQuantitySetEvent is raised after an allocation pass settles the
// quantity for one item within a document
type ItemQuantitySetEvent struct {
	shared.BaseDomainEvent
	ItemID        string          `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	NumberOfLines int             `json:"number_of_lines"`
}

// NewItemQuantitySetEvent creates a new ItemQuantitySetEvent
func NewItemQuantitySetEvent(t *Transaction, item *TransactionItem, quantity decimal.Decimal) *ItemQuantitySetEvent {
	return &ItemQuantitySetEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemQuantitySet, AggregateTypeTransaction, t.ID),
		ItemID:          item.ItemID.String(),
		ItemName:        item.ItemName,
		Quantity:        quantity,
		NumberOfLines:   item.NumberOfBatches(),
	}
}
