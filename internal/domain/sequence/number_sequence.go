package sequence

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medistock/ledger/internal/domain/shared"
)

// Well-known sequence keys for document serial numbers
const (
	KeyCustomerInvoiceSerialNumber     = "customer_invoice_serial_number"
	KeySupplierInvoiceSerialNumber     = "supplier_invoice_serial_number"
	KeyRequisitionSerialNumber         = "requisition_serial_number"
	KeyRequisitionRequestedSerial      = "requisition_requested_serial_number"
	KeyStocktakeSerialNumber           = "stocktake_serial_number"
	KeyInventoryAdjustmentSerialNumber = "inventory_adjustment_serial_number"
)

// NumberToReuse is a serial number released back into a sequence's reuse
// pool, e.g. after a document was deleted before being finalised.
type NumberToReuse struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SequenceKey string    `gorm:"size:255;not null;index"`
	Number      int64     `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (NumberToReuse) TableName() string {
	return "numbers_to_reuse"
}

// NumberSequence issues monotonically-bounded serial numbers per named
// sequence, preferring previously released numbers so documents keep short,
// gapless-where-possible human-facing references. It is keyed by its
// human-readable sequence name rather than an opaque id.
type NumberSequence struct {
	SequenceKey       string `gorm:"size:255;primaryKey"`
	HighestNumberUsed int64  `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	NumbersToReuse []NumberToReuse `gorm:"foreignKey:SequenceKey;references:SequenceKey"`
}

// TableName returns the table name for GORM
func (NumberSequence) TableName() string {
	return "number_sequences"
}

// NewNumberSequence creates a fresh sequence for the given key
func NewNumberSequence(sequenceKey string) (*NumberSequence, error) {
	if sequenceKey == "" {
		return nil, shared.NewDomainError("INVALID_SEQUENCE_KEY", "Sequence key cannot be empty")
	}
	now := time.Now()
	return &NumberSequence{
		SequenceKey:    sequenceKey,
		CreatedAt:      now,
		UpdatedAt:      now,
		NumbersToReuse: make([]NumberToReuse, 0),
	}, nil
}

// NextNumber returns the next number in the sequence. If the reuse pool is
// non-empty the smallest released number is popped and returned; otherwise
// the highest number used is incremented and returned. A sequence never
// hands out the same number twice while it is in use.
func (s *NumberSequence) NextNumber() int64 {
	if len(s.NumbersToReuse) > 0 {
		sort.Slice(s.NumbersToReuse, func(a, b int) bool {
			return s.NumbersToReuse[a].Number < s.NumbersToReuse[b].Number
		})
		number := s.NumbersToReuse[0].Number
		s.NumbersToReuse = s.NumbersToReuse[1:]
		s.UpdatedAt = time.Now()
		return number
	}

	s.HighestNumberUsed++
	s.UpdatedAt = time.Now()
	return s.HighestNumberUsed
}

// ReuseNumber releases a previously issued number back into the pool.
// Releasing a number that was never issued, or one already in the pool, is
// an invariant violation.
func (s *NumberSequence) ReuseNumber(number int64) error {
	if number <= 0 || number > s.HighestNumberUsed {
		return shared.ErrInvariantViolation.WithMessage("Cannot reuse a number this sequence never issued")
	}
	for idx := range s.NumbersToReuse {
		if s.NumbersToReuse[idx].Number == number {
			return shared.ErrInvariantViolation.WithMessage("Sequence " + s.SequenceKey + " is already reusing this number")
		}
	}
	s.NumbersToReuse = append(s.NumbersToReuse, NumberToReuse{
		ID:          uuid.New(),
		SequenceKey: s.SequenceKey,
		Number:      number,
		CreatedAt:   time.Now(),
	})
	s.UpdatedAt = time.Now()
	return nil
}
