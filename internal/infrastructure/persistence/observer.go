package persistence

import (
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medistock/ledger/internal/application/postsync"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/requisition"
	"github.com/medistock/ledger/internal/domain/stocktake"
)

// RegisterChangeObserver hooks the store's create and update callbacks so
// every record written under a sync-caused context lands in the post-sync
// record queue. Writes without the sync mark are ignored.
func RegisterChangeObserver(db *gorm.DB, queue *postsync.RecordQueue) error {
	observe := func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil {
			return
		}
		if !postsync.IsSyncCaused(tx.Statement.Context) {
			return
		}
		enqueueModel(queue, tx.Statement.ReflectValue)
	}

	if err := db.Callback().Create().After("gorm:create").Register("postsync:observe_create", observe); err != nil {
		return err
	}
	return db.Callback().Update().After("gorm:update").Register("postsync:observe_update", observe)
}

// enqueueModel pushes the written record(s) onto the queue. Slices are
// walked element by element so batch writes enqueue every record.
func enqueueModel(queue *postsync.RecordQueue, value reflect.Value) {
	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			enqueueModel(queue, value.Index(i))
		}
	case reflect.Ptr:
		if !value.IsNil() {
			enqueueModel(queue, value.Elem())
		}
	case reflect.Struct:
		if !value.CanInterface() {
			return
		}
		switch record := value.Interface().(type) {
		case ledger.Transaction:
			push(queue, record.ID, postsync.RecordTypeTransaction)
		case requisition.Requisition:
			push(queue, record.ID, postsync.RecordTypeRequisition)
		case stocktake.Stocktake:
			push(queue, record.ID, postsync.RecordTypeStocktake)
		}
	}
}

func push(queue *postsync.RecordQueue, id uuid.UUID, recordType postsync.RecordType) {
	if id == uuid.Nil {
		return
	}
	queue.Push(id, recordType)
}
