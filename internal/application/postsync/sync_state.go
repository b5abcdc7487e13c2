package postsync

import (
	"context"
	"time"
)

// SyncState is the single persisted row recording how the last sync round
// went. The failure flags survive restarts, so a device that crashed halfway
// through processing knows to rescan on the next boot.
type SyncState struct {
	Key                      string `gorm:"primaryKey;size:32"`
	LastSyncFailed           bool   `gorm:"not null;default:false"`
	LastPostProcessingFailed bool   `gorm:"not null;default:false"`
	LastSyncAt               *time.Time
	UpdatedAt                time.Time
}

// TableName returns the table name for GORM
func (SyncState) TableName() string {
	return "sync_state"
}

// SyncStateKey is the key of the single sync state row
const SyncStateKey = "sync"

// SyncStateRepository persists the sync state row
type SyncStateRepository interface {
	// Load returns the sync state, creating a clean one on first use
	Load(ctx context.Context) (*SyncState, error)

	// Save persists the sync state
	Save(ctx context.Context, state *SyncState) error
}
