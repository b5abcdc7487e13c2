package postsync

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/requisition"
	"github.com/medistock/ledger/internal/domain/sequence"
	"github.com/medistock/ledger/internal/domain/shared"
	"github.com/medistock/ledger/internal/domain/stocktake"
)

// Processor repairs records an incoming sync left in a locally incomplete
// state. The server sends documents with placeholder serial numbers,
// response requisitions without their supplying invoice, and customer
// credits that should finalise on arrival; the processor applies each rule
// inside one write scope per record.
type Processor struct {
	scope  WriteScope
	queue  *RecordQueue
	events shared.EventPublisher
	logger *zap.Logger
}

// NewProcessor creates a post-sync processor draining the given queue.
// The event publisher may be nil; repairs then run without emitting
// domain events.
func NewProcessor(scope WriteScope, queue *RecordQueue, events shared.EventPublisher, logger *zap.Logger) *Processor {
	return &Processor{
		scope:  scope,
		queue:  queue,
		events: events,
		logger: logger,
	}
}

// ProcessRecordQueue drains the queue and processes each record in arrival
// order. The failure flag is persisted before any record is touched and
// cleared only after every record succeeded, so a crash mid-way leaves the
// flag set and the next startup rescans.
func (p *Processor) ProcessRecordQueue(ctx context.Context) error {
	records := p.queue.Drain()
	if len(records) == 0 {
		return nil
	}

	if err := p.setPostProcessingFailed(ctx, true); err != nil {
		return err
	}

	for _, record := range records {
		if err := p.processRecord(ctx, record); err != nil {
			p.logger.Error("Post-sync processing failed",
				zap.String("record_id", record.ID.String()),
				zap.String("record_type", string(record.Type)),
				zap.Error(err),
			)
			return err
		}
	}

	p.logger.Info("Post-sync record queue processed", zap.Int("count", len(records)))
	return p.setPostProcessingFailed(ctx, false)
}

// ProcessAnyUnprocessedRecords rescans the whole store for records the
// queue may have missed. Used for recovery after a failed sync or a crash
// during queue processing; every rule is idempotent, so rescanning records
// that were already handled is harmless.
func (p *Processor) ProcessAnyUnprocessedRecords(ctx context.Context) error {
	if err := p.setPostProcessingFailed(ctx, true); err != nil {
		return err
	}

	err := p.scope.Execute(ctx, func(repos Repositories) error {
		transactions, err := repos.Transactions().FindWithPlaceholderSerial(ctx)
		if err != nil {
			return err
		}
		for idx := range transactions {
			if err := p.repairTransaction(ctx, repos, &transactions[idx]); err != nil {
				return err
			}
		}

		credits, err := repos.Transactions().FindUnfinalisedByType(ctx, ledger.TransactionTypeCustomerCredit)
		if err != nil {
			return err
		}
		for idx := range credits {
			if err := p.repairTransaction(ctx, repos, &credits[idx]); err != nil {
				return err
			}
		}

		requisitions, err := repos.Requisitions().FindWithPlaceholderSerial(ctx)
		if err != nil {
			return err
		}
		responses, err := repos.Requisitions().FindUnfinalisedResponses(ctx)
		if err != nil {
			return err
		}
		seen := make(map[uuid.UUID]struct{}, len(requisitions))
		for idx := range requisitions {
			seen[requisitions[idx].ID] = struct{}{}
			if err := p.repairRequisition(ctx, repos, &requisitions[idx]); err != nil {
				return err
			}
		}
		for idx := range responses {
			if _, ok := seen[responses[idx].ID]; ok {
				continue
			}
			if err := p.repairRequisition(ctx, repos, &responses[idx]); err != nil {
				return err
			}
		}

		stocktakes, err := repos.Stocktakes().FindWithPlaceholderSerial(ctx)
		if err != nil {
			return err
		}
		for idx := range stocktakes {
			if err := p.repairStocktake(ctx, repos, &stocktakes[idx]); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		p.logger.Error("Post-sync rescan failed", zap.Error(err))
		return err
	}

	p.logger.Info("Post-sync rescan completed")
	return p.setPostProcessingFailed(ctx, false)
}

// Recover inspects the persisted sync state on startup and rescans the
// store if the previous sync round or its post-processing did not complete
func (p *Processor) Recover(ctx context.Context) error {
	var state SyncState
	err := p.scope.Execute(ctx, func(repos Repositories) error {
		loaded, err := repos.SyncState().Load(ctx)
		if err != nil {
			return err
		}
		state = *loaded
		return nil
	})
	if err != nil {
		return err
	}

	if !state.LastSyncFailed && !state.LastPostProcessingFailed {
		return nil
	}

	p.logger.Warn("Previous sync round did not complete, rescanning",
		zap.Bool("sync_failed", state.LastSyncFailed),
		zap.Bool("post_processing_failed", state.LastPostProcessingFailed),
	)
	if err := p.ProcessAnyUnprocessedRecords(ctx); err != nil {
		return err
	}
	return p.setSyncFailed(ctx, false)
}

// OnSyncCompleted records the outcome of a sync round and, on success,
// drains the record queue
func (p *Processor) OnSyncCompleted(ctx context.Context, syncErr error) error {
	if syncErr != nil {
		return p.setSyncFailed(ctx, true)
	}
	if err := p.setSyncFailed(ctx, false); err != nil {
		return err
	}
	return p.ProcessRecordQueue(ctx)
}

func (p *Processor) processRecord(ctx context.Context, record Record) error {
	return p.scope.Execute(ctx, func(repos Repositories) error {
		switch record.Type {
		case RecordTypeTransaction:
			t, err := repos.Transactions().FindByID(ctx, record.ID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil
				}
				return err
			}
			return p.repairTransaction(ctx, repos, t)
		case RecordTypeRequisition:
			r, err := repos.Requisitions().FindByID(ctx, record.ID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil
				}
				return err
			}
			return p.repairRequisition(ctx, repos, r)
		case RecordTypeStocktake:
			st, err := repos.Stocktakes().FindByID(ctx, record.ID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil
				}
				return err
			}
			return p.repairStocktake(ctx, repos, st)
		default:
			return nil
		}
	})
}

func (p *Processor) repairTransaction(ctx context.Context, repos Repositories, t *ledger.Transaction) error {
	changed := false

	if t.HasPlaceholderSerial() {
		number, err := repos.Sequences().NextNumber(ctx, sequenceKeyForTransaction(t))
		if err != nil {
			return err
		}
		if err := t.AssignSerialNumber(strconv.FormatInt(number, 10)); err != nil {
			return err
		}
		changed = true
	}

	// Customer credits arriving from the server take effect immediately:
	// confirm them against live stock and lock them.
	if t.Type == ledger.TransactionTypeCustomerCredit && !t.IsFinalised() {
		session := newStockSession(ctx, repos.Items())
		if err := t.Finalise(session.lookup); err != nil {
			return err
		}
		if err := session.saveTouched(ctx); err != nil {
			return err
		}
		changed = true
	}

	if !changed {
		return nil
	}
	if err := repos.Transactions().Save(ctx, t); err != nil {
		return err
	}
	p.publishEvents(ctx, t)
	return nil
}

func (p *Processor) repairRequisition(ctx context.Context, repos Repositories, r *requisition.Requisition) error {
	changed := false

	if r.HasPlaceholderSerial() {
		key := sequence.KeyRequisitionSerialNumber
		if r.IsRequest() {
			key = sequence.KeyRequisitionRequestedSerial
		}
		number, err := repos.Sequences().NextNumber(ctx, key)
		if err != nil {
			return err
		}
		r.AssignSerialNumber(strconv.FormatInt(number, 10))
		changed = true
	}

	// A response requisition supplies stock through a customer invoice; if
	// the server sent the requisition without one, create it now.
	if r.IsResponse() && !r.IsFinalised() && r.LinkedTransactionID == nil {
		number, err := repos.Sequences().NextNumber(ctx, sequence.KeyCustomerInvoiceSerialNumber)
		if err != nil {
			return err
		}
		invoice, err := ledger.NewTransaction(ledger.TransactionTypeCustomerInvoice, strconv.FormatInt(number, 10), time.Now())
		if err != nil {
			return err
		}
		invoice.OtherPartyName = r.OtherPartyName
		if err := r.LinkTransaction(invoice); err != nil {
			return err
		}
		if err := repos.Transactions().Save(ctx, invoice); err != nil {
			return err
		}
		p.publishEvents(ctx, invoice)
		changed = true
	}

	if !changed {
		return nil
	}
	if err := repos.Requisitions().Save(ctx, r); err != nil {
		return err
	}
	p.publishEvents(ctx, r)
	return nil
}

func (p *Processor) repairStocktake(ctx context.Context, repos Repositories, st *stocktake.Stocktake) error {
	if !st.HasPlaceholderSerial() {
		return nil
	}
	number, err := repos.Sequences().NextNumber(ctx, sequence.KeyStocktakeSerialNumber)
	if err != nil {
		return err
	}
	st.AssignSerialNumber(strconv.FormatInt(number, 10))
	if err := repos.Stocktakes().Save(ctx, st); err != nil {
		return err
	}
	p.publishEvents(ctx, st)
	return nil
}

// publishEvents flushes the aggregate's pending domain events to the bus
func (p *Processor) publishEvents(ctx context.Context, agg shared.AggregateRoot) {
	if p.events == nil {
		return
	}
	events := agg.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := p.events.Publish(ctx, events...); err != nil {
		p.logger.Warn("Failed to publish domain events", zap.Error(err))
	}
	agg.ClearDomainEvents()
}

func (p *Processor) setSyncFailed(ctx context.Context, failed bool) error {
	return p.scope.Execute(ctx, func(repos Repositories) error {
		state, err := repos.SyncState().Load(ctx)
		if err != nil {
			return err
		}
		state.LastSyncFailed = failed
		if !failed {
			now := time.Now()
			state.LastSyncAt = &now
		}
		return repos.SyncState().Save(ctx, state)
	})
}

func (p *Processor) setPostProcessingFailed(ctx context.Context, failed bool) error {
	return p.scope.Execute(ctx, func(repos Repositories) error {
		state, err := repos.SyncState().Load(ctx)
		if err != nil {
			return err
		}
		state.LastPostProcessingFailed = failed
		return repos.SyncState().Save(ctx, state)
	})
}

func sequenceKeyForTransaction(t *ledger.Transaction) string {
	switch t.Type {
	case ledger.TransactionTypeSupplierInvoice, ledger.TransactionTypeSupplierCredit:
		return sequence.KeySupplierInvoiceSerialNumber
	case ledger.TransactionTypeInventoryAdjustment:
		return sequence.KeyInventoryAdjustmentSerialNumber
	default:
		return sequence.KeyCustomerInvoiceSerialNumber
	}
}

// stockSession adapts an item repository into the StockLookup the ledger
// operations take, remembering every item it resolved so the caller can
// persist the quantity deltas the operation pushed into them.
type stockSession struct {
	ctx     context.Context
	items   inventory.ItemRepository
	touched map[uuid.UUID]*inventory.Item
	err     error
}

func newStockSession(ctx context.Context, items inventory.ItemRepository) *stockSession {
	return &stockSession{
		ctx:     ctx,
		items:   items,
		touched: make(map[uuid.UUID]*inventory.Item),
	}
}

func (s *stockSession) lookup(itemID uuid.UUID) *inventory.Item {
	if item, ok := s.touched[itemID]; ok {
		return item
	}
	item, err := s.items.FindByID(s.ctx, itemID)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return nil
	}
	s.touched[itemID] = item
	return item
}

func (s *stockSession) saveTouched(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	for _, item := range s.touched {
		if err := s.items.Save(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
