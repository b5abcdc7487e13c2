package stocktake

import (
	"github.com/google/uuid"

	"github.com/medistock/ledger/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeStocktake = "Stocktake"

// Event type constants
const (
	EventTypeStocktakeCreated   = "StocktakeCreated"
	EventTypeStocktakeFinalised = "StocktakeFinalised"
)

// StocktakeCreatedEvent is raised when a new stocktake is created
type StocktakeCreatedEvent struct {
	shared.BaseDomainEvent
	SerialNumber string `json:"serial_number"`
}

// NewStocktakeCreatedEvent creates a new StocktakeCreatedEvent
func NewStocktakeCreatedEvent(st *Stocktake) *StocktakeCreatedEvent {
	return &StocktakeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStocktakeCreated, AggregateTypeStocktake, st.ID),
		SerialNumber:    st.SerialNumber,
	}
}

// StocktakeFinalisedEvent is raised when a stocktake locks and its
// adjustments are applied to the ledger
type StocktakeFinalisedEvent struct {
	shared.BaseDomainEvent
	SerialNumber string     `json:"serial_number"`
	AdditionsID  *uuid.UUID `json:"additions_id,omitempty"`
	ReductionsID *uuid.UUID `json:"reductions_id,omitempty"`
}

// NewStocktakeFinalisedEvent creates a new StocktakeFinalisedEvent
func NewStocktakeFinalisedEvent(st *Stocktake, result *FinaliseResult) *StocktakeFinalisedEvent {
	event := &StocktakeFinalisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStocktakeFinalised, AggregateTypeStocktake, st.ID),
		SerialNumber:    st.SerialNumber,
	}
	if result.Additions != nil {
		event.AdditionsID = &result.Additions.ID
	}
	if result.Reductions != nil {
		event.ReductionsID = &result.Reductions.ID
	}
	return event
}
