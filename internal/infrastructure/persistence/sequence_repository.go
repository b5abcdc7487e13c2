package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/medistock/ledger/internal/domain/sequence"
)

// GormSequenceRepository implements sequence.Repository using GORM. The
// embedded store serialises writers, so loading and saving a sequence inside
// the caller's write scope is enough to keep NextNumber and ReuseNumber
// atomic.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// FindOrCreate returns the sequence for the given key, creating an empty
// one on first use
func (r *GormSequenceRepository) FindOrCreate(ctx context.Context, sequenceKey string) (*sequence.NumberSequence, error) {
	var seq sequence.NumberSequence
	err := r.db.WithContext(ctx).Preload("NumbersToReuse").
		First(&seq, "sequence_key = ?", sequenceKey).Error
	if err == nil {
		return &seq, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created, err := sequence.NewNumberSequence(sequenceKey)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

// Save persists the sequence together with its reuse pool. Numbers popped
// from the pool in memory are removed from the store as well.
func (r *GormSequenceRepository) Save(ctx context.Context, seq *sequence.NumberSequence) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sequence_key = ?", seq.SequenceKey).
			Delete(&sequence.NumberToReuse{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(seq).Error
	})
}

// NextNumber atomically obtains the next number for the given key
func (r *GormSequenceRepository) NextNumber(ctx context.Context, sequenceKey string) (int64, error) {
	seq, err := r.FindOrCreate(ctx, sequenceKey)
	if err != nil {
		return 0, err
	}
	number := seq.NextNumber()
	if err := r.Save(ctx, seq); err != nil {
		return 0, err
	}
	return number, nil
}

// ReuseNumber atomically releases a number back to the given key's pool
func (r *GormSequenceRepository) ReuseNumber(ctx context.Context, sequenceKey string, number int64) error {
	seq, err := r.FindOrCreate(ctx, sequenceKey)
	if err != nil {
		return err
	}
	if err := seq.ReuseNumber(number); err != nil {
		return err
	}
	return r.Save(ctx, seq)
}

// Ensure GormSequenceRepository implements Repository
var _ sequence.Repository = (*GormSequenceRepository)(nil)
