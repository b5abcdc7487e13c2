package postsync

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RecordType identifies the kind of record a sync delivered
type RecordType string

const (
	RecordTypeTransaction RecordType = "transaction"
	RecordTypeRequisition RecordType = "requisition"
	RecordTypeStocktake   RecordType = "stocktake"
	RecordTypeItem        RecordType = "item"
	RecordTypeItemBatch   RecordType = "item_batch"
)

// Record is one entry in the post-sync queue: a record the sync created or
// changed and that may need local follow-up work
type Record struct {
	ID   uuid.UUID
	Type RecordType
}

// RecordQueue collects records touched by an incoming sync, in arrival
// order, deduplicated by record ID. It is safe for concurrent use so the
// change observer can push from sync goroutines while the processor drains.
type RecordQueue struct {
	mu      sync.Mutex
	records []Record
	seen    map[uuid.UUID]struct{}
}

// NewRecordQueue creates an empty record queue
func NewRecordQueue() *RecordQueue {
	return &RecordQueue{seen: make(map[uuid.UUID]struct{})}
}

// Push appends a record unless it is already queued
func (q *RecordQueue) Push(id uuid.UUID, recordType RecordType) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.seen[id]; ok {
		return
	}
	q.seen[id] = struct{}{}
	q.records = append(q.records, Record{ID: id, Type: recordType})
}

// Drain removes and returns all queued records in arrival order
func (q *RecordQueue) Drain() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	records := q.records
	q.records = nil
	q.seen = make(map[uuid.UUID]struct{})
	return records
}

// Len returns the number of queued records
func (q *RecordQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

type syncCauseKey struct{}

// WithSyncCause marks a context so writes made under it are attributed to
// an incoming sync applying server records. The change observer enqueues
// only records written under such a context; local edits and post-sync
// follow-up writes stay out of the queue, which keeps the processor from
// feeding its own writes back to itself.
func WithSyncCause(ctx context.Context) context.Context {
	return context.WithValue(ctx, syncCauseKey{}, true)
}

// IsSyncCaused reports whether the context carries the sync attribution mark
func IsSyncCaused(ctx context.Context) bool {
	caused, _ := ctx.Value(syncCauseKey{}).(bool)
	return caused
}
