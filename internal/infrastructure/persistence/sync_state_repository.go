package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/medistock/ledger/internal/application/postsync"
)

// GormSyncStateRepository implements postsync.SyncStateRepository using GORM
type GormSyncStateRepository struct {
	db *gorm.DB
}

// NewGormSyncStateRepository creates a new GormSyncStateRepository
func NewGormSyncStateRepository(db *gorm.DB) *GormSyncStateRepository {
	return &GormSyncStateRepository{db: db}
}

// Load returns the sync state, creating a clean one on first use
func (r *GormSyncStateRepository) Load(ctx context.Context) (*postsync.SyncState, error) {
	var state postsync.SyncState
	err := r.db.WithContext(ctx).First(&state, "key = ?", postsync.SyncStateKey).Error
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	state = postsync.SyncState{Key: postsync.SyncStateKey, UpdatedAt: time.Now()}
	if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// Save persists the sync state
func (r *GormSyncStateRepository) Save(ctx context.Context, state *postsync.SyncState) error {
	state.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(state).Error
}

// Ensure GormSyncStateRepository implements SyncStateRepository
var _ postsync.SyncStateRepository = (*GormSyncStateRepository)(nil)
