package stocktake

import (
	"time"

	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
)

// FinaliseDeps carries the collaborators a stocktake needs to apply itself
// to the ledger: live stock resolution and a factory for the lazily created
// additions/reductions adjustment transactions (which obtains the serial
// number). Everything must operate inside the caller's write scope.
type FinaliseDeps struct {
	Stock         ledger.StockLookup
	NewAdjustment func(isAddition bool) (*ledger.Transaction, error)
}

// FinaliseResult reports the adjustment transactions a finalisation
// produced. Either may be nil when no difference in that direction existed.
type FinaliseResult struct {
	Additions  *ledger.Transaction
	Reductions *ledger.Transaction
}

// Finalise locks the stocktake and converts every counted difference into
// inventory adjustment transaction lines, which apply the real stock
// deltas. The operation is all-or-nothing: if any item would drive real
// inventory negative it fails with no mutation, and any later failure must
// abort the enclosing write scope.
func (st *Stocktake) Finalise(deps FinaliseDeps) (*FinaliseResult, error) {
	if st.IsFinalised() {
		return nil, shared.ErrFinalisedMutation.WithMessage("Stocktake is already finalised")
	}
	if deps.Stock == nil || deps.NewAdjustment == nil {
		return nil, shared.ErrInvalidInput.WithMessage("Finalise requires stock lookup and adjustment factory")
	}

	if below := st.ItemsBelowMinimum(deps.Stock); len(below) > 0 {
		return nil, shared.ErrNegativeStock.WithMessage(
			"Finalising would reduce " + below[0].ItemName + " below zero stock")
	}

	// Prune snapshot-only noise: items never counted, then batches the
	// stocktake auto-created but nobody touched.
	counted := st.Items[:0]
	for idx := range st.Items {
		if st.Items[idx].HasCountedBatches() {
			counted = append(counted, st.Items[idx])
		}
	}
	st.Items = counted
	for idx := range st.Items {
		item := &st.Items[idx]
		kept := item.Batches[:0]
		for bidx := range item.Batches {
			if !item.Batches[bidx].IsFresh() {
				kept = append(kept, item.Batches[bidx])
			}
		}
		item.Batches = kept
	}

	result := &FinaliseResult{}
	adjustment := func(isAddition bool) (*ledger.Transaction, error) {
		if isAddition && result.Additions != nil {
			return result.Additions, nil
		}
		if !isAddition && result.Reductions != nil {
			return result.Reductions, nil
		}
		tx, err := deps.NewAdjustment(isAddition)
		if err != nil {
			return nil, err
		}
		if isAddition {
			result.Additions = tx
			st.AdditionsID = &tx.ID
		} else {
			result.Reductions = tx
			st.ReductionsID = &tx.ID
		}
		return tx, nil
	}

	for idx := range st.Items {
		item := &st.Items[idx]
		stock := deps.Stock(item.ItemID)
		if stock == nil {
			return nil, shared.ErrNotFound.WithMessage("No stock found for stocktake item " + item.ItemName)
		}
		for bidx := range item.Batches {
			batch := &item.Batches[bidx]
			difference := batch.Difference()
			if difference.IsZero() {
				continue
			}
			source := stock.Batch(batch.ItemBatchID)
			if source == nil {
				return nil, shared.ErrNotFound.WithMessage("Stocktake batch references an unknown item batch")
			}
			tx, err := adjustment(difference.IsPositive())
			if err != nil {
				return nil, err
			}
			line, err := tx.AddBatchLine(stock, source)
			if err != nil {
				return nil, err
			}
			if err := tx.SetLineQuantity(stock, line, difference.Abs()); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now()
	st.Status = ledger.DocumentStatusFinalised
	st.StocktakeDate = &now
	st.Touch()
	st.IncrementVersion()
	st.AddDomainEvent(NewStocktakeFinalisedEvent(st, result))
	return result, nil
}
