package postsync

import (
	"context"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/requisition"
	"github.com/medistock/ledger/internal/domain/sequence"
	"github.com/medistock/ledger/internal/domain/stocktake"
)

// WriteScope runs a function against a transactional view of the store.
// If the function returns an error every write made inside it is rolled
// back; otherwise all writes commit together.
type WriteScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives post-sync processing access to every store it may need
// to touch. All repositories returned share the same underlying write scope.
type Repositories interface {
	Items() inventory.ItemRepository
	Transactions() ledger.TransactionRepository
	Requisitions() requisition.Repository
	Stocktakes() stocktake.Repository
	Sequences() sequence.Repository
	SyncState() SyncStateRepository
}

// NoOpWriteScope executes functions without an enclosing store transaction.
// Used in tests where the repositories are in-memory fakes.
type NoOpWriteScope struct {
	repos Repositories
}

// NewNoOpWriteScope creates a NoOpWriteScope over the given repositories
func NewNoOpWriteScope(repos Repositories) *NoOpWriteScope {
	return &NoOpWriteScope{repos: repos}
}

// Execute runs fn against the wrapped repositories directly
func (s *NoOpWriteScope) Execute(ctx context.Context, fn func(repos Repositories) error) error {
	return fn(s.repos)
}
