package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
	"github.com/medistock/ledger/internal/domain/stocktake"
)

// GormItemRepository implements inventory.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item with its batches by id
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).Preload("Batches").First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindResolved finds an item by id, following the cross-reference alias so
// the returned aggregate carries the real item's batches
func (r *GormItemRepository) FindResolved(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	item, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.RealItemID == nil || *item.RealItemID == item.ID {
		return item, nil
	}
	return r.FindByID(ctx, *item.RealItemID)
}

// FindByCode finds an item by its code
func (r *GormItemRepository) FindByCode(ctx context.Context, code string) (*inventory.Item, error) {
	var item inventory.Item
	if err := r.db.WithContext(ctx).Preload("Batches").First(&item, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindAll finds all items matching the filter
func (r *GormItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Item, error) {
	var items []inventory.Item
	query := applyFilter(r.db.WithContext(ctx).Model(&inventory.Item{}).Preload("Batches"), filter)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save creates or updates an item together with its batches. The root is
// upserted explicitly because ids are assigned in the domain, so gorm's
// Save would otherwise update a row that was never inserted.
func (r *GormItemRepository) Save(ctx context.Context, item *inventory.Item) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(item).Error
}

// SaveBatch persists a single batch mutated outside its owning aggregate
func (r *GormItemRepository) SaveBatch(ctx context.Context, batch *inventory.ItemBatch) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(batch).Error
}

// Delete removes an item, its batches, and any movement or stocktake
// lines that reference them. Lines go first so the foreign keys on the
// owning rows stay satisfied throughout the transaction.
func (r *GormItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ledger.TransactionBatch{}, "item_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ledger.TransactionItem{}, "item_id = ?", id).Error; err != nil {
			return err
		}
		lineIDs := tx.Model(&stocktake.StocktakeItem{}).Select("id").Where("item_id = ?", id)
		if err := tx.Delete(&stocktake.StocktakeBatch{}, "stocktake_item_id IN (?)", lineIDs).Error; err != nil {
			return err
		}
		if err := tx.Delete(&stocktake.StocktakeItem{}, "item_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&inventory.ItemBatch{}, "item_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&inventory.Item{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// DeleteBatch removes a batch unless movement or stocktake lines with
// nonzero history still reference it. A movement line counts as history
// when packs were allocated or sent; a stocktake line counts when it was
// counted or snapshotted nonzero stock.
func (r *GormItemRepository) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var references int64
		if err := tx.Model(&ledger.TransactionBatch{}).
			Where("item_batch_id = ? AND (number_of_packs <> 0 OR (number_of_packs_sent IS NOT NULL AND number_of_packs_sent <> 0))", id).
			Count(&references).Error; err != nil {
			return err
		}
		if references > 0 {
			return shared.ErrInvariantViolation.WithMessage("Item batch is still referenced by movement lines")
		}
		if err := tx.Model(&stocktake.StocktakeBatch{}).
			Where("item_batch_id = ? AND (counted_number_of_packs IS NOT NULL OR snapshot_number_of_packs <> 0)", id).
			Count(&references).Error; err != nil {
			return err
		}
		if references > 0 {
			return shared.ErrInvariantViolation.WithMessage("Item batch is still referenced by stocktake lines")
		}

		result := tx.Delete(&inventory.ItemBatch{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts items matching the filter
func (r *GormItemRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applyCountFilter(r.db.WithContext(ctx).Model(&inventory.Item{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormItemRepository implements ItemRepository
var _ inventory.ItemRepository = (*GormItemRepository)(nil)
