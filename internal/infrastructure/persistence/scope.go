package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/medistock/ledger/internal/application/postsync"
	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/requisition"
	"github.com/medistock/ledger/internal/domain/sequence"
	"github.com/medistock/ledger/internal/domain/stocktake"
)

// GormWriteScope implements postsync.WriteScope over the embedded store.
// Every repository handed to the function is bound to one store
// transaction; an error from the function rolls the whole scope back.
type GormWriteScope struct {
	db *gorm.DB
}

// NewGormWriteScope creates a write scope over the given store
func NewGormWriteScope(db *gorm.DB) *GormWriteScope {
	return &GormWriteScope{db: db}
}

// Execute runs fn inside one store transaction
func (s *GormWriteScope) Execute(ctx context.Context, fn func(repos postsync.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newScopedRepositories(tx))
	})
}

// scopedRepositories binds every repository to one transaction
type scopedRepositories struct {
	items        *GormItemRepository
	transactions *GormTransactionRepository
	requisitions *GormRequisitionRepository
	stocktakes   *GormStocktakeRepository
	sequences    *GormSequenceRepository
	syncState    *GormSyncStateRepository
}

func newScopedRepositories(tx *gorm.DB) *scopedRepositories {
	return &scopedRepositories{
		items:        NewGormItemRepository(tx),
		transactions: NewGormTransactionRepository(tx),
		requisitions: NewGormRequisitionRepository(tx),
		stocktakes:   NewGormStocktakeRepository(tx),
		sequences:    NewGormSequenceRepository(tx),
		syncState:    NewGormSyncStateRepository(tx),
	}
}

func (r *scopedRepositories) Items() inventory.ItemRepository          { return r.items }
func (r *scopedRepositories) Transactions() ledger.TransactionRepository { return r.transactions }
func (r *scopedRepositories) Requisitions() requisition.Repository     { return r.requisitions }
func (r *scopedRepositories) Stocktakes() stocktake.Repository         { return r.stocktakes }
func (r *scopedRepositories) Sequences() sequence.Repository           { return r.sequences }
func (r *scopedRepositories) SyncState() postsync.SyncStateRepository  { return r.syncState }

// Ensure GormWriteScope implements WriteScope
var _ postsync.WriteScope = (*GormWriteScope)(nil)
