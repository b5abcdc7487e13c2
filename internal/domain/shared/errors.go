package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so callers can test against the
// sentinel values below with errors.Is regardless of the detail message.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return e.Code == de.Code
}

// WithMessage returns a copy of the error carrying a more specific message
// while keeping the code (and therefore errors.Is identity) intact.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// ErrInvariantViolation covers synchronous invariant breaches such as
	// setting a negative batch quantity or releasing a serial number that
	// was never issued. No partial effect remains after it is returned.
	ErrInvariantViolation = NewDomainError("INVARIANT_VIOLATION", "Operation would violate a ledger invariant")

	// ErrFinalisedMutation is returned for any write attempted against a
	// finalised document. Finalised documents are permanently read-only.
	ErrFinalisedMutation = NewDomainError("FINALISED_MUTATION", "Cannot modify a finalised document")

	// ErrAllocationExhausted is returned when a requested quantity exceeds
	// the stock available across every batch. The whole allocation is
	// aborted, never partially applied.
	ErrAllocationExhausted = NewDomainError("ALLOCATION_EXHAUSTED", "Requested quantity exceeds available stock across all batches")

	// ErrNegativeStock is returned when finalising a stocktake would drive
	// real inventory negative because of concurrent stock movements.
	ErrNegativeStock = NewDomainError("NEGATIVE_STOCK", "Finalisation would reduce stock below zero")
)
