package ledger

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/ledger/internal/domain/shared"
)

func TestSetItemQuantity_FEFO(t *testing.T) {
	t.Run("fills soonest-expiring batches first", func(t *testing.T) {
		stock := createTestStock(t)
		late := stockBatch(t, stock, "LATE", 50, 90)
		soon := stockBatch(t, stock, "SOON", 50, 30)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(60)))

		item := tx.Item(stock.ID)
		require.NotNil(t, item)
		assert.Equal(t, "60", item.TotalQuantity().String())

		soonLine := item.LineForItemBatch(soon.ID)
		require.NotNil(t, soonLine)
		assert.Equal(t, "50", soonLine.TotalQuantity().String())

		lateLine := item.LineForItemBatch(late.ID)
		require.NotNil(t, lateLine)
		assert.Equal(t, "10", lateLine.TotalQuantity().String())
	})

	t.Run("drains latest-expiring lines first on decrease", func(t *testing.T) {
		stock := createTestStock(t)
		late := stockBatch(t, stock, "LATE", 50, 90)
		soon := stockBatch(t, stock, "SOON", 50, 30)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(60)))
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(45)))

		item := tx.Item(stock.ID)
		assert.Equal(t, "45", item.TotalQuantity().String())

		// The late-expiring line gives its quantity back first and is
		// pruned once empty.
		assert.Nil(t, item.LineForItemBatch(late.ID))
		soonLine := item.LineForItemBatch(soon.ID)
		require.NotNil(t, soonLine)
		assert.Equal(t, "45", soonLine.TotalQuantity().String())
	})

	t.Run("batches without expiry are used before dated ones", func(t *testing.T) {
		stock := createTestStock(t)
		dated := stockBatch(t, stock, "DATED", 50, 30)
		undated := stockBatch(t, stock, "UNDATED", 50, 0)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(20)))

		item := tx.Item(stock.ID)
		require.NotNil(t, item.LineForItemBatch(undated.ID))
		assert.Equal(t, "20", item.LineForItemBatch(undated.ID).TotalQuantity().String())
		assert.Nil(t, item.LineForItemBatch(dated.ID))
	})
}

func TestSetItemQuantity_Caps(t *testing.T) {
	t.Run("outgoing requests are capped to available stock", func(t *testing.T) {
		stock := createTestStock(t)
		stockBatch(t, stock, "B1", 30, 30)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(100)))

		assert.Equal(t, "30", tx.Item(stock.ID).TotalQuantity().String())
	})

	t.Run("confirmed outgoing documents count their own holdings as available", func(t *testing.T) {
		stock := createTestStock(t)
		stockBatch(t, stock, "B1", 100, 30)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(100)))
		require.NoError(t, tx.Confirm(lookupFor(stock)))
		require.Equal(t, "0", stock.TotalQuantity().String())

		// Everything the document holds can still be re-requested even
		// though live stock is zero.
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(100)))
		assert.Equal(t, "100", tx.Item(stock.ID).TotalQuantity().String())
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		stock := createTestStock(t)
		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)

		err = tx.SetItemQuantity(stock, decimal.NewFromInt(-1))
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestSetItemQuantity_Conservation(t *testing.T) {
	// Once confirmed, every edit moves quantity between the document and
	// the batches; the sum stays constant.
	stock := createTestStock(t)
	stockBatch(t, stock, "B1", 60, 30)
	stockBatch(t, stock, "B2", 40, 90)

	tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
	require.NoError(t, err)
	require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(70)))
	require.NoError(t, tx.Confirm(lookupFor(stock)))

	for _, quantity := range []int64{10, 95, 0, 33} {
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(quantity)))
		sum := stock.TotalQuantity().Add(tx.Item(stock.ID).TotalQuantity())
		assert.Equal(t, "100", sum.String(), "conservation broken at quantity %d", quantity)
	}
}

func TestSetItemQuantity_PullsInUnusedBatches(t *testing.T) {
	stock := createTestStock(t)
	first := stockBatch(t, stock, "FIRST", 10, 30)
	second := stockBatch(t, stock, "SECOND", 10, 60)
	third := stockBatch(t, stock, "THIRD", 10, 90)

	tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
	require.NoError(t, err)

	// Start small, then grow beyond the first line's batch.
	require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(5)))
	require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(25)))

	item := tx.Item(stock.ID)
	assert.Equal(t, "10", item.LineForItemBatch(first.ID).TotalQuantity().String())
	assert.Equal(t, "10", item.LineForItemBatch(second.ID).TotalQuantity().String())
	assert.Equal(t, "5", item.LineForItemBatch(third.ID).TotalQuantity().String())
}

func TestIncomingFlow_SupplierInvoice(t *testing.T) {
	stock := createTestStock(t)

	tx, err := NewTransaction(TransactionTypeSupplierInvoice, "1", time.Now())
	require.NoError(t, err)

	// Receiving introduces stock no existing batch can represent, so the
	// caller creates a fresh batch and a line against it.
	batch, err := stock.NewEmptyBatch("RCV-01")
	require.NoError(t, err)
	line, err := tx.AddBatchLine(stock, batch)
	require.NoError(t, err)
	require.NoError(t, tx.SetLineQuantity(stock, line, decimal.NewFromInt(200)))

	assert.Equal(t, "0", stock.TotalQuantity().String(), "unconfirmed receipt must not move stock")

	require.NoError(t, tx.Confirm(lookupFor(stock)))
	assert.Equal(t, "200", stock.TotalQuantity().String())

	// Growing a line on a confirmed incoming document moves stock at once.
	require.NoError(t, tx.SetLineQuantity(stock, tx.Item(stock.ID).LineForItemBatch(batch.ID), decimal.NewFromInt(250)))
	assert.Equal(t, "250", stock.TotalQuantity().String())
}

func TestAddBatchLine_Idempotent(t *testing.T) {
	stock := createTestStock(t)
	batch := stockBatch(t, stock, "B1", 10, 30)

	tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
	require.NoError(t, err)

	first, err := tx.AddBatchLine(stock, batch)
	require.NoError(t, err)
	second, err := tx.AddBatchLine(stock, batch)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, tx.Item(stock.ID).Batches, 1)
}

func TestSplitLine(t *testing.T) {
	stock := createTestStock(t)
	batch := stockBatch(t, stock, "B1", 100, 30)

	tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
	require.NoError(t, err)
	require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(60)))

	item := tx.Item(stock.ID)
	line := item.LineForItemBatch(batch.ID)

	t.Run("conserves the total across both lines", func(t *testing.T) {
		split, err := tx.SplitLine(item, line, decimal.NewFromInt(20))
		require.NoError(t, err)

		assert.Equal(t, "20", split.TotalQuantity().String())
		assert.Equal(t, "60", item.TotalQuantity().String())
		assert.Len(t, item.Batches, 2)
	})

	t.Run("rejects out-of-range splits", func(t *testing.T) {
		line := item.LineForItemBatch(batch.ID)
		_, err := tx.SplitLine(item, line, decimal.Zero)
		assert.Error(t, err)
		_, err = tx.SplitLine(item, line, line.NumberOfPacks)
		assert.Error(t, err)
	})
}

func TestSetItemQuantity_AllocationExhausted(t *testing.T) {
	// An incoming adjustment with no batches to receive into cannot
	// allocate anything.
	stock := createTestStock(t)

	tx, err := NewInventoryAdjustment("1", time.Now(), true)
	require.NoError(t, err)

	err = tx.SetItemQuantity(stock, decimal.NewFromInt(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrAllocationExhausted))
}

// TestSetItemQuantity_RandomisedWalk drives a long random sequence of
// incoming and outgoing edits against confirmed documents sharing one
// item. After every step no batch may be negative and the stock on hand
// plus the outgoing holdings minus the received quantity must equal the
// opening stock.
func TestSetItemQuantity_RandomisedWalk(t *testing.T) {
	stock := createTestStock(t)
	stockBatch(t, stock, "B1", 20, 30)
	stockBatch(t, stock, "B2", 15, 90)
	stockBatch(t, stock, "B3", 10, 0)
	opening := stock.TotalQuantity()
	lookup := lookupFor(stock)

	incoming, err := NewTransaction(TransactionTypeSupplierInvoice, "1", time.Now())
	require.NoError(t, err)
	require.NoError(t, incoming.Confirm(lookup))
	outgoing, err := NewTransaction(TransactionTypeCustomerInvoice, "2", time.Now())
	require.NoError(t, err)
	require.NoError(t, outgoing.Confirm(lookup))

	quantityOf := func(tx *Transaction) decimal.Decimal {
		if item := tx.Item(stock.ID); item != nil {
			return item.TotalQuantity()
		}
		return decimal.Zero
	}

	rng := rand.New(rand.NewSource(1))
	received := int64(0)
	for step := 0; step < 200; step++ {
		if rng.Intn(2) == 0 {
			received += int64(rng.Intn(20))
			require.NoError(t, incoming.SetItemQuantity(stock, decimal.NewFromInt(received)), "step %d", step)
		} else {
			want := decimal.NewFromInt(int64(rng.Intn(120)))
			require.NoError(t, outgoing.SetItemQuantity(stock, want), "step %d", step)
		}

		for idx := range stock.Batches {
			require.False(t, stock.Batches[idx].TotalQuantity().IsNegative(),
				"step %d left batch %s negative", step, stock.Batches[idx].Batch)
		}
		balance := stock.TotalQuantity().Add(quantityOf(outgoing)).Sub(decimal.NewFromInt(received))
		require.True(t, balance.Equal(opening), "step %d broke conservation: %s != %s", step, balance, opening)
	}
}
