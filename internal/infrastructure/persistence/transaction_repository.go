package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
)

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a transaction with its items and batch lines by id
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var t ledger.Transaction
	if err := r.db.WithContext(ctx).Preload("Items.Batches").First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindBySerialNumber finds the document of the given type carrying the
// given serial number
func (r *GormTransactionRepository) FindBySerialNumber(ctx context.Context, transactionType ledger.TransactionType, serialNumber string) (*ledger.Transaction, error) {
	var t ledger.Transaction
	if err := r.db.WithContext(ctx).Preload("Items.Batches").
		Where("type = ? AND serial_number = ?", transactionType, serialNumber).
		First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindWithPlaceholderSerial finds documents still carrying the placeholder
// serial number
func (r *GormTransactionRepository) FindWithPlaceholderSerial(ctx context.Context) ([]ledger.Transaction, error) {
	var transactions []ledger.Transaction
	if err := r.db.WithContext(ctx).Preload("Items.Batches").
		Where("serial_number = ?", ledger.PlaceholderSerialNumber).
		Order("created_at ASC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// FindUnfinalisedByType finds documents of the given type that have not
// been finalised yet
func (r *GormTransactionRepository) FindUnfinalisedByType(ctx context.Context, transactionType ledger.TransactionType) ([]ledger.Transaction, error) {
	var transactions []ledger.Transaction
	if err := r.db.WithContext(ctx).Preload("Items.Batches").
		Where("type = ? AND status <> ?", transactionType, ledger.DocumentStatusFinalised).
		Order("created_at ASC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// FindAll finds all transactions matching the filter
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Transaction, error) {
	var transactions []ledger.Transaction
	query := applyFilter(r.db.WithContext(ctx).Model(&ledger.Transaction{}).Preload("Items.Batches"), filter)
	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// OutgoingQuantityForItem sums the confirmed outgoing quantity of an item
// over [since, until)
func (r *GormTransactionRepository) OutgoingQuantityForItem(ctx context.Context, itemID uuid.UUID, since, until time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Table("transaction_batches").
		Select("SUM(transaction_batches.number_of_packs * transaction_batches.pack_size) AS total").
		Joins("JOIN transactions ON transactions.id = transaction_batches.transaction_id").
		Where("transaction_batches.item_id = ?", itemID).
		Where("transactions.status IN ?", []ledger.DocumentStatus{ledger.DocumentStatusConfirmed, ledger.DocumentStatusFinalised}).
		Where("transactions.confirm_date >= ? AND transactions.confirm_date < ?", since, until).
		Where("transactions.type IN ? OR (transactions.type = ? AND transactions.addition = ?)",
			[]ledger.TransactionType{ledger.TransactionTypeCustomerInvoice, ledger.TransactionTypeSupplierCredit},
			ledger.TransactionTypeInventoryAdjustment, false).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !result.Total.Valid {
		return decimal.Zero, nil
	}
	return result.Total.Decimal, nil
}

// Save creates or updates a transaction together with its items and lines.
// Ids are assigned in the domain, so the root is upserted rather than
// handed to gorm's Save which would update a never-inserted row.
func (r *GormTransactionRepository) Save(ctx context.Context, t *ledger.Transaction) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(t).Error
}

// Delete removes a transaction and its owned lines. Finalised documents
// refuse deletion at the domain layer; the repository enforces it again
// against stale callers.
func (r *GormTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t ledger.Transaction
		if err := tx.First(&t, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := t.OnDelete(); err != nil {
			return err
		}
		if err := tx.Delete(&ledger.TransactionBatch{}, "transaction_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ledger.TransactionItem{}, "transaction_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&ledger.Transaction{}, "id = ?", id).Error
	})
}

// Count counts transactions matching the filter
func (r *GormTransactionRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applyCountFilter(r.db.WithContext(ctx).Model(&ledger.Transaction{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
