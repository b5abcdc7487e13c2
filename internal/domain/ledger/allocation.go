package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/shared"
)

// SetItemQuantity sets the total quantity moved for one item within this
// transaction, allocating the change across batch lines under a
// first-expiry-first-out discipline.
//
// For outgoing documents the requested quantity is capped to the item's
// available quantity. Increases fill the soonest-expiring lines first;
// decreases drain the latest-expiring lines first, protecting soon-to-expire
// stock from being over-committed. If existing lines cannot absorb an
// increase, previously unused item batches are pulled in: batches with free
// stock soonest-expiry-first, then empty batches latest-expiry-first.
//
// The operation must run inside one write scope: on error the scope must
// abort, which is what guarantees no partial quantity change survives.
func (t *Transaction) SetItemQuantity(stock *inventory.Item, quantity decimal.Decimal) error {
	if err := t.ValidateMutation(); err != nil {
		return err
	}
	if stock == nil {
		return shared.ErrInvalidInput.WithMessage("Stock item cannot be nil")
	}
	if quantity.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("Quantity cannot be negative")
	}

	item, err := t.EnsureItem(stock)
	if err != nil {
		return err
	}

	capped := quantity
	if t.IsOutgoing() {
		if available := item.AvailableQuantity(t, stock); capped.GreaterThan(available) {
			capped = available
		}
	}

	if err := t.allocateDifferenceToBatches(stock, item, capped.Sub(item.TotalQuantity())); err != nil {
		return err
	}

	t.pruneEmptyLines(item)
	t.Touch()
	t.IncrementVersion()
	t.AddDomainEvent(NewItemQuantitySetEvent(t, item, capped))
	return nil
}

// allocateDifferenceToBatches walks the item's lines in expiry order and
// absorbs the signed difference, pulling in unused item batches when the
// existing lines cannot cover a positive remainder.
func (t *Transaction) allocateDifferenceToBatches(stock *inventory.Item, item *TransactionItem, difference decimal.Decimal) error {
	remaining := difference
	increase := difference.IsPositive()

	for _, line := range item.linesSortedByExpiry(stock, increase) {
		if remaining.IsZero() {
			break
		}
		amount := line.AmountToAllocate(t, stock.Batch(line.ItemBatchID), remaining)
		if amount.IsZero() {
			continue
		}
		if err := t.setBatchQuantity(stock, line, line.TotalQuantity().Add(amount)); err != nil {
			return err
		}
		remaining = remaining.Sub(amount)
	}

	if remaining.IsPositive() {
		for _, source := range candidateBatches(stock, item) {
			if remaining.IsZero() {
				break
			}
			line, err := t.AddBatchLine(stock, source)
			if err != nil {
				return err
			}
			amount := line.AmountToAllocate(t, source, remaining)
			if amount.IsZero() {
				continue
			}
			if err := t.setBatchQuantity(stock, line, amount); err != nil {
				return err
			}
			remaining = remaining.Sub(amount)
		}
	}

	if remaining.IsPositive() {
		return shared.ErrAllocationExhausted.WithMessage(
			"Failed to allocate " + remaining.String() + " of " + item.ItemName + " across available batches")
	}
	return nil
}

// setBatchQuantity records a line quantity and, once the document is
// confirmed, immediately pushes the signed difference into the linked item
// batch. Validation happens before either side is touched.
func (t *Transaction) setBatchQuantity(stock *inventory.Item, line *TransactionBatch, quantity decimal.Decimal) error {
	if err := t.ValidateMutation(); err != nil {
		return err
	}
	if quantity.IsNegative() {
		return shared.ErrInvariantViolation.WithMessage("Cannot set a negative line quantity")
	}

	difference := quantity.Sub(line.TotalQuantity())
	if !t.IsConfirmed() {
		line.setTotalQuantity(quantity)
		return nil
	}

	source := stock.Batch(line.ItemBatchID)
	if source == nil {
		return shared.ErrNotFound.WithMessage("Transaction line references an unknown item batch")
	}
	delta := difference
	if t.IsOutgoing() {
		delta = delta.Neg()
	}
	newStock := source.TotalQuantity().Add(delta)
	if newStock.IsNegative() {
		return shared.ErrInvariantViolation.WithMessage("Stock change would reduce an item batch below zero")
	}
	line.setTotalQuantity(quantity)
	return source.SetTotalQuantity(newStock)
}

// SetLineQuantity is the exported entry point for adjusting a single line,
// e.g. from the supplier invoice receiving flow.
func (t *Transaction) SetLineQuantity(stock *inventory.Item, line *TransactionBatch, quantity decimal.Decimal) error {
	return t.setBatchQuantity(stock, line, quantity)
}

// AddBatchLine ensures the document has a line for the given item batch,
// creating a zero-quantity one if needed, and returns it.
func (t *Transaction) AddBatchLine(stock *inventory.Item, source *inventory.ItemBatch) (*TransactionBatch, error) {
	if err := t.ValidateMutation(); err != nil {
		return nil, err
	}
	item, err := t.EnsureItem(stock)
	if err != nil {
		return nil, err
	}
	if existing := item.LineForItemBatch(source.ID); existing != nil {
		return existing, nil
	}
	line := newTransactionBatch(t.ID, item, source)
	item.Batches = append(item.Batches, *line)
	item.Touch()
	return item.Line(line.ID), nil
}

// SplitLine divides one line into two, both referencing the same item
// batch, used when part of a batch must carry different attributes after
// physical repackaging. Conservation holds: the two lines' pack counts sum
// to the original count, so no stock delta is involved.
func (t *Transaction) SplitLine(item *TransactionItem, line *TransactionBatch, splitNumberOfPacks decimal.Decimal) (*TransactionBatch, error) {
	if err := t.ValidateMutation(); err != nil {
		return nil, err
	}
	if splitNumberOfPacks.LessThanOrEqual(decimal.Zero) || splitNumberOfPacks.GreaterThanOrEqual(line.NumberOfPacks) {
		return nil, shared.ErrInvalidInput.WithMessage("Split must be between zero and the line's pack count")
	}

	split := &TransactionBatch{
		BaseEntity:        shared.NewBaseEntity(),
		TransactionID:     line.TransactionID,
		TransactionItemID: line.TransactionItemID,
		ItemID:            line.ItemID,
		ItemName:          line.ItemName,
		ItemBatchID:       line.ItemBatchID,
		Batch:             line.Batch,
		ExpiryDate:        line.ExpiryDate,
		PackSize:          line.PackSize,
		NumberOfPacks:     splitNumberOfPacks,
		CostPrice:         line.CostPrice,
		SellPrice:         line.SellPrice,
	}
	line.NumberOfPacks = line.NumberOfPacks.Sub(splitNumberOfPacks)
	line.Touch()
	item.Batches = append(item.Batches, *split)
	item.Touch()
	t.Touch()
	t.IncrementVersion()
	return item.Line(split.ID), nil
}

// pruneEmptyLines deletes lines left at zero quantity that were never
// actually sent, so edits do not accumulate empty lines.
func (t *Transaction) pruneEmptyLines(item *TransactionItem) {
	kept := item.Batches[:0]
	for idx := range item.Batches {
		line := item.Batches[idx]
		if line.TotalQuantity().IsZero() && !line.HasBeenSent() {
			continue
		}
		kept = append(kept, line)
	}
	item.Batches = kept
}

// linesSortedByExpiry returns the item's lines ordered by the underlying
// batch's expiry: ascending when filling (FEFO), descending when draining.
// Lines whose source batch is gone fall back to their snapshot expiry.
func (ti *TransactionItem) linesSortedByExpiry(stock *inventory.Item, ascending bool) []*TransactionBatch {
	lines := make([]*TransactionBatch, 0, len(ti.Batches))
	for idx := range ti.Batches {
		lines = append(lines, &ti.Batches[idx])
	}
	expiry := func(line *TransactionBatch) *time.Time {
		if source := stock.Batch(line.ItemBatchID); source != nil {
			return source.ExpiryDate
		}
		return line.ExpiryDate
	}
	less := func(a, b *TransactionBatch) bool {
		ea, eb := expiry(a), expiry(b)
		switch {
		case ea == nil && eb == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case ea == nil:
			return true
		case eb == nil:
			return false
		case !ea.Equal(*eb):
			return ea.Before(*eb)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	sort.SliceStable(lines, func(a, b int) bool {
		if ascending {
			return less(lines[a], lines[b])
		}
		return less(lines[b], lines[a])
	})
	return lines
}

// candidateBatches returns the item batches not yet referenced by the
// transaction item: batches with free stock soonest-expiry-first, then
// empty batches latest-expiry-first, a heuristic for most recently stocked.
func candidateBatches(stock *inventory.Item, item *TransactionItem) []*inventory.ItemBatch {
	unused := func(batches []*inventory.ItemBatch) []*inventory.ItemBatch {
		kept := batches[:0]
		for _, batch := range batches {
			if item.LineForItemBatch(batch.ID) == nil {
				kept = append(kept, batch)
			}
		}
		return kept
	}

	withStock := unused(stock.BatchesWithStock())
	inventory.SortBatchesByExpiry(withStock, true)
	empty := unused(stock.BatchesWithoutStock())
	inventory.SortBatchesByExpiry(empty, false)

	return append(withStock, empty...)
}
