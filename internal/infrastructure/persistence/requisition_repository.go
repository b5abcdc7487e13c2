package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/requisition"
	"github.com/medistock/ledger/internal/domain/shared"
)

// GormRequisitionRepository implements requisition.Repository using GORM
type GormRequisitionRepository struct {
	db *gorm.DB
}

// NewGormRequisitionRepository creates a new GormRequisitionRepository
func NewGormRequisitionRepository(db *gorm.DB) *GormRequisitionRepository {
	return &GormRequisitionRepository{db: db}
}

// FindByID finds a requisition with its lines by id
func (r *GormRequisitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*requisition.Requisition, error) {
	var req requisition.Requisition
	if err := r.db.WithContext(ctx).Preload("Items").First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindAll finds all requisitions matching the filter
func (r *GormRequisitionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]requisition.Requisition, error) {
	var requisitions []requisition.Requisition
	query := applyFilter(r.db.WithContext(ctx).Model(&requisition.Requisition{}).Preload("Items"), filter)
	if err := query.Find(&requisitions).Error; err != nil {
		return nil, err
	}
	return requisitions, nil
}

// FindWithPlaceholderSerial finds requisitions still carrying the
// placeholder serial number
func (r *GormRequisitionRepository) FindWithPlaceholderSerial(ctx context.Context) ([]requisition.Requisition, error) {
	var requisitions []requisition.Requisition
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("serial_number = ?", ledger.PlaceholderSerialNumber).
		Order("created_at ASC").
		Find(&requisitions).Error; err != nil {
		return nil, err
	}
	return requisitions, nil
}

// FindUnfinalisedResponses finds response requisitions that have not
// reached their terminal state
func (r *GormRequisitionRepository) FindUnfinalisedResponses(ctx context.Context) ([]requisition.Requisition, error) {
	var requisitions []requisition.Requisition
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("type = ? AND status <> ?", requisition.RequisitionTypeResponse, ledger.DocumentStatusFinalised).
		Order("created_at ASC").
		Find(&requisitions).Error; err != nil {
		return nil, err
	}
	return requisitions, nil
}

// Save creates or updates a requisition together with its lines. Ids are
// assigned in the domain, so the root is upserted rather than handed to
// gorm's Save which would update a never-inserted row.
func (r *GormRequisitionRepository) Save(ctx context.Context, req *requisition.Requisition) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(req).Error
}

// Delete removes a requisition and its lines
func (r *GormRequisitionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req requisition.Requisition
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := req.OnDelete(); err != nil {
			return err
		}
		if err := tx.Delete(&requisition.RequisitionItem{}, "requisition_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&requisition.Requisition{}, "id = ?", id).Error
	})
}

// Count counts requisitions matching the filter
func (r *GormRequisitionRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applyCountFilter(r.db.WithContext(ctx).Model(&requisition.Requisition{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormRequisitionRepository implements Repository
var _ requisition.Repository = (*GormRequisitionRepository)(nil)
