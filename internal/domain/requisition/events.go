package requisition

import (
	"github.com/google/uuid"

	"github.com/medistock/ledger/internal/domain/shared"
)

// RequisitionCreatedEvent is raised when a requisition is created
type RequisitionCreatedEvent struct {
	shared.BaseDomainEvent
	RequisitionID   uuid.UUID `json:"requisition_id"`
	RequisitionType string    `json:"requisition_type"`
}

// NewRequisitionCreatedEvent creates a requisition created event
func NewRequisitionCreatedEvent(requisitionID uuid.UUID, requisitionType string) *RequisitionCreatedEvent {
	return &RequisitionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("requisition.created", "Requisition", requisitionID),
		RequisitionID:   requisitionID,
		RequisitionType: requisitionType,
	}
}

// RequisitionFinalisedEvent is raised when a requisition reaches its
// terminal state
type RequisitionFinalisedEvent struct {
	shared.BaseDomainEvent
	RequisitionID       uuid.UUID  `json:"requisition_id"`
	SerialNumber        string     `json:"serial_number"`
	LinkedTransactionID *uuid.UUID `json:"linked_transaction_id,omitempty"`
}

// NewRequisitionFinalisedEvent creates a requisition finalised event
func NewRequisitionFinalisedEvent(requisitionID uuid.UUID, serialNumber string, linkedTransactionID *uuid.UUID) *RequisitionFinalisedEvent {
	return &RequisitionFinalisedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent("requisition.finalised", "Requisition", requisitionID),
		RequisitionID:       requisitionID,
		SerialNumber:        serialNumber,
		LinkedTransactionID: linkedTransactionID,
	}
}
