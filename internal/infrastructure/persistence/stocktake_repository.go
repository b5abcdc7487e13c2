package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
	"github.com/medistock/ledger/internal/domain/stocktake"
)

// GormStocktakeRepository implements stocktake.Repository using GORM
type GormStocktakeRepository struct {
	db *gorm.DB
}

// NewGormStocktakeRepository creates a new GormStocktakeRepository
func NewGormStocktakeRepository(db *gorm.DB) *GormStocktakeRepository {
	return &GormStocktakeRepository{db: db}
}

// FindByID finds a stocktake with its items and batch lines by id
func (r *GormStocktakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*stocktake.Stocktake, error) {
	var st stocktake.Stocktake
	if err := r.db.WithContext(ctx).Preload("Items.Batches").First(&st, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// FindAll finds all stocktakes matching the filter
func (r *GormStocktakeRepository) FindAll(ctx context.Context, filter shared.Filter) ([]stocktake.Stocktake, error) {
	var stocktakes []stocktake.Stocktake
	query := applyFilter(r.db.WithContext(ctx).Model(&stocktake.Stocktake{}).Preload("Items.Batches"), filter)
	if err := query.Find(&stocktakes).Error; err != nil {
		return nil, err
	}
	return stocktakes, nil
}

// FindUnfinalised finds stocktakes still open for counting
func (r *GormStocktakeRepository) FindUnfinalised(ctx context.Context) ([]stocktake.Stocktake, error) {
	var stocktakes []stocktake.Stocktake
	if err := r.db.WithContext(ctx).Preload("Items.Batches").
		Where("status <> ?", ledger.DocumentStatusFinalised).
		Order("created_at ASC").
		Find(&stocktakes).Error; err != nil {
		return nil, err
	}
	return stocktakes, nil
}

// FindWithPlaceholderSerial finds stocktakes still carrying the placeholder
// serial number
func (r *GormStocktakeRepository) FindWithPlaceholderSerial(ctx context.Context) ([]stocktake.Stocktake, error) {
	var stocktakes []stocktake.Stocktake
	if err := r.db.WithContext(ctx).Preload("Items.Batches").
		Where("serial_number = ?", ledger.PlaceholderSerialNumber).
		Order("created_at ASC").
		Find(&stocktakes).Error; err != nil {
		return nil, err
	}
	return stocktakes, nil
}

// Save creates or updates a stocktake together with its items and lines.
// Ids are assigned in the domain, so the root is upserted rather than
// handed to gorm's Save which would update a never-inserted row.
func (r *GormStocktakeRepository) Save(ctx context.Context, st *stocktake.Stocktake) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(st).Error
}

// Delete removes a stocktake and its owned lines
func (r *GormStocktakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st stocktake.Stocktake
		if err := tx.First(&st, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := st.OnDelete(); err != nil {
			return err
		}
		if err := tx.Delete(&stocktake.StocktakeBatch{}, "stocktake_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&stocktake.StocktakeItem{}, "stocktake_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&stocktake.Stocktake{}, "id = ?", id).Error
	})
}

// Count counts stocktakes matching the filter
func (r *GormStocktakeRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applyCountFilter(r.db.WithContext(ctx).Model(&stocktake.Stocktake{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormStocktakeRepository implements Repository
var _ stocktake.Repository = (*GormStocktakeRepository)(nil)
