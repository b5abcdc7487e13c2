package requisition

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
)

// RequisitionType distinguishes an order we are asking for from an order we
// are filling for someone else
type RequisitionType string

const (
	// RequisitionTypeRequest is an outgoing request for stock from a supplier
	RequisitionTypeRequest RequisitionType = "request"
	// RequisitionTypeResponse is an incoming request we supply stock against
	RequisitionTypeResponse RequisitionType = "response"
)

// IsValid checks if the requisition type is valid
func (rt RequisitionType) IsValid() bool {
	return rt == RequisitionTypeRequest || rt == RequisitionTypeResponse
}

// String returns the string representation
func (rt RequisitionType) String() string {
	return string(rt)
}

// DefaultDaysToSupply is the planning horizon used when none is given
var DefaultDaysToSupply = decimal.NewFromInt(30)

// Requisition is the planning aggregate. A request requisition computes what
// to order from usage history; a response requisition drives a linked
// customer invoice that supplies stock to the requesting party.
type Requisition struct {
	shared.BaseAggregateRoot
	SerialNumber        string                `gorm:"size:64;not null;index"`
	Type                RequisitionType       `gorm:"size:32;not null;index"`
	Status              ledger.DocumentStatus `gorm:"size:32;not null;default:'new'"`
	EntryDate           time.Time             `gorm:"not null"`
	DaysToSupply        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	ThresholdMOS        decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	OtherPartyName      string                `gorm:"size:255"`
	Comment             string
	LinkedTransactionID *uuid.UUID        `gorm:"type:uuid"`
	Items               []RequisitionItem `gorm:"foreignKey:RequisitionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Requisition) TableName() string {
	return "requisitions"
}

// NewRequisition creates a requisition with a placeholder serial number.
// The real serial is assigned once the device is back in contact with the
// number sequence authority.
func NewRequisition(reqType RequisitionType, otherPartyName string) (*Requisition, error) {
	if !reqType.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("invalid requisition type: " + reqType.String())
	}

	r := &Requisition{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SerialNumber:      ledger.PlaceholderSerialNumber,
		Type:              reqType,
		Status:            ledger.DocumentStatusNew,
		EntryDate:         time.Now(),
		DaysToSupply:      DefaultDaysToSupply,
		OtherPartyName:    otherPartyName,
	}
	r.AddDomainEvent(NewRequisitionCreatedEvent(r.ID, string(reqType)))
	return r, nil
}

// IsRequest reports whether this requisition asks a supplier for stock
func (r *Requisition) IsRequest() bool {
	return r.Type == RequisitionTypeRequest
}

// IsResponse reports whether this requisition supplies stock to a requester
func (r *Requisition) IsResponse() bool {
	return r.Type == RequisitionTypeResponse
}

// IsFinalised reports whether the requisition has reached its terminal state
func (r *Requisition) IsFinalised() bool {
	return r.Status == ledger.DocumentStatusFinalised
}

// HasPlaceholderSerial reports whether the serial number is still the
// offline placeholder
func (r *Requisition) HasPlaceholderSerial() bool {
	return r.SerialNumber == ledger.PlaceholderSerialNumber
}

// AssignSerialNumber replaces the placeholder serial with a real one.
// Calling it on a requisition that already has a serial is a no-op, so
// reprocessing a record queue twice is safe.
func (r *Requisition) AssignSerialNumber(serial string) {
	if !r.HasPlaceholderSerial() {
		return
	}
	r.SerialNumber = serial
	r.Touch()
}

// ValidateMutation returns an error if the requisition may no longer change
func (r *Requisition) ValidateMutation() error {
	if r.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("requisition " + r.SerialNumber + " is finalised and cannot be modified")
	}
	return nil
}

// OnDelete refuses deletion of finalised requisitions
func (r *Requisition) OnDelete() error {
	if r.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("cannot delete finalised requisition " + r.SerialNumber)
	}
	return nil
}

// Item returns the line for the given item, or nil
func (r *Requisition) Item(itemID uuid.UUID) *RequisitionItem {
	for i := range r.Items {
		if r.Items[i].ItemID == itemID {
			return &r.Items[i]
		}
	}
	return nil
}

// AddItem snapshots the given item's stock on hand and usage into a new
// line. Adding an item that is already present is a no-op.
func (r *Requisition) AddItem(stock *inventory.Item, dailyUsage decimal.Decimal) (*RequisitionItem, error) {
	if err := r.ValidateMutation(); err != nil {
		return nil, err
	}
	if existing := r.Item(stock.ID); existing != nil {
		return existing, nil
	}

	line := newRequisitionItem(r.ID, stock, dailyUsage)
	r.Items = append(r.Items, *line)
	r.Touch()
	r.IncrementVersion()
	return &r.Items[len(r.Items)-1], nil
}

// RemoveItem drops the line for the given item
func (r *Requisition) RemoveItem(itemID uuid.UUID) error {
	if err := r.ValidateMutation(); err != nil {
		return err
	}
	for i := range r.Items {
		if r.Items[i].ItemID == itemID {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			r.Touch()
			r.IncrementVersion()
			return nil
		}
	}
	return shared.ErrNotFound.WithMessage("requisition line not found for item")
}

// ItemsBelowThreshold returns the lines whose stock on hand is below the
// requisition's months-of-supply threshold
func (r *Requisition) ItemsBelowThreshold() []*RequisitionItem {
	var below []*RequisitionItem
	for i := range r.Items {
		if r.Items[i].IsLessThanThresholdMOS(r.ThresholdMOS) {
			below = append(below, &r.Items[i])
		}
	}
	return below
}

// ApplySuggestedQuantities sets every line's required quantity to its
// derived suggestion
func (r *Requisition) ApplySuggestedQuantities() error {
	if err := r.ValidateMutation(); err != nil {
		return err
	}
	for i := range r.Items {
		r.Items[i].RequiredQuantity = r.Items[i].SuggestedQuantity(r.DaysToSupply)
		r.Items[i].Touch()
	}
	r.Touch()
	return nil
}

// SetRequiredQuantity overrides the requested quantity on one line
func (r *Requisition) SetRequiredQuantity(itemID uuid.UUID, quantity decimal.Decimal) error {
	if err := r.ValidateMutation(); err != nil {
		return err
	}
	if quantity.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("required quantity cannot be negative")
	}
	line := r.Item(itemID)
	if line == nil {
		return shared.ErrNotFound.WithMessage("requisition line not found for item")
	}
	line.RequiredQuantity = quantity
	line.Touch()
	r.Touch()
	return nil
}

// LinkTransaction attaches the customer invoice that supplies this
// response requisition
func (r *Requisition) LinkTransaction(t *ledger.Transaction) error {
	if err := r.ValidateMutation(); err != nil {
		return err
	}
	if !r.IsResponse() {
		return shared.ErrInvalidState.WithMessage("only response requisitions carry a supplying transaction")
	}
	if r.LinkedTransactionID != nil && *r.LinkedTransactionID != t.ID {
		return shared.ErrInvalidState.WithMessage("requisition is already linked to a transaction")
	}
	id := t.ID
	r.LinkedTransactionID = &id
	t.LinkedRequisitionID = &r.ID
	r.Touch()
	return nil
}

// SetSuppliedQuantity records how much of a line we are supplying by
// driving the linked customer invoice, then copies the quantity the invoice
// actually managed to allocate back onto the line. The two documents never
// disagree: the invoice's allocation is the ground truth.
func (r *Requisition) SetSuppliedQuantity(linked *ledger.Transaction, stock *inventory.Item, quantity decimal.Decimal) error {
	if err := r.ValidateMutation(); err != nil {
		return err
	}
	if !r.IsResponse() {
		return shared.ErrInvalidState.WithMessage("only response requisitions supply stock")
	}
	if r.LinkedTransactionID == nil || *r.LinkedTransactionID != linked.ID {
		return shared.ErrInvalidState.WithMessage("transaction is not linked to this requisition")
	}
	line := r.Item(stock.ID)
	if line == nil {
		return shared.ErrNotFound.WithMessage("requisition line not found for item")
	}

	if err := linked.SetItemQuantity(stock, quantity); err != nil {
		return err
	}

	line.SuppliedQuantity = decimal.Zero
	if invoiceLine := linked.Item(stock.ID); invoiceLine != nil {
		line.SuppliedQuantity = invoiceLine.TotalQuantity()
	}
	line.Touch()
	r.Touch()
	r.IncrementVersion()
	return nil
}

// Finalise locks the requisition. A response requisition finalises its
// linked invoice first; if that fails the requisition stays open.
func (r *Requisition) Finalise(linked *ledger.Transaction, lookup ledger.StockLookup) error {
	if r.IsFinalised() {
		return shared.ErrFinalisedMutation.WithMessage("requisition " + r.SerialNumber + " is already finalised")
	}
	if r.IsResponse() {
		if linked == nil {
			return shared.ErrInvalidState.WithMessage("response requisition cannot finalise without its linked transaction")
		}
		if err := linked.Finalise(lookup); err != nil {
			return err
		}
	}

	r.Status = ledger.DocumentStatusFinalised
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRequisitionFinalisedEvent(r.ID, r.SerialNumber, r.LinkedTransactionID))
	return nil
}
