package stocktake

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
)

func createTestStock(t *testing.T) *inventory.Item {
	t.Helper()
	item, err := inventory.NewItem("CTM500", "Cotrimoxazole 500mg", decimal.NewFromInt(1))
	require.NoError(t, err)
	return item
}

func stockBatch(t *testing.T, item *inventory.Item, label string, quantity int64, expiryDays int) *inventory.ItemBatch {
	t.Helper()
	var expiry *time.Time
	if expiryDays != 0 {
		d := time.Now().AddDate(0, 0, expiryDays)
		expiry = &d
	}
	batch, err := inventory.NewItemBatch(item.ID, label, decimal.NewFromInt(1), expiry, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, batch.SetTotalQuantity(decimal.NewFromInt(quantity)))
	require.NoError(t, item.AddBatch(batch))
	return item.Batch(batch.ID)
}

func lookupFor(items ...*inventory.Item) ledger.StockLookup {
	return func(itemID uuid.UUID) *inventory.Item {
		for _, item := range items {
			if item.ID == itemID {
				return item
			}
		}
		return nil
	}
}

func adjustmentFactory(t *testing.T) func(isAddition bool) (*ledger.Transaction, error) {
	t.Helper()
	serial := 0
	return func(isAddition bool) (*ledger.Transaction, error) {
		serial++
		return ledger.NewInventoryAdjustment(decimal.NewFromInt(int64(serial)).String(), time.Now(), isAddition)
	}
}

func TestStocktake_AddItem(t *testing.T) {
	stock := createTestStock(t)
	stockBatch(t, stock, "FULL", 50, 30)
	stockBatch(t, stock, "EMPTY", 0, 60)

	st, err := NewStocktake("1", "Monthly count")
	require.NoError(t, err)
	require.NoError(t, st.AddItem(stock))

	t.Run("snapshots only batches holding stock", func(t *testing.T) {
		item := st.Item(stock.ID)
		require.NotNil(t, item)
		assert.Equal(t, 1, item.NumberOfBatches())
		assert.Equal(t, "50", item.SnapshotTotalQuantity().String())
	})

	t.Run("adding twice is a no-op", func(t *testing.T) {
		require.NoError(t, st.AddItem(stock))
		assert.Len(t, st.Items, 1)
	})
}

func TestStocktake_SetCountedTotalQuantity(t *testing.T) {
	t.Run("first count moves the stocktake to confirmed", func(t *testing.T) {
		stock := createTestStock(t)
		stockBatch(t, stock, "B1", 50, 30)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))
		assert.False(t, st.IsConfirmed())

		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(45)))

		assert.True(t, st.IsConfirmed())
		item := st.Item(stock.ID)
		assert.Equal(t, "45", item.CountedTotalQuantity().String())
		assert.Equal(t, "-5", item.Difference().String())
	})

	t.Run("shortfall lands on the latest-expiring batch", func(t *testing.T) {
		stock := createTestStock(t)
		soon := stockBatch(t, stock, "SOON", 50, 30)
		late := stockBatch(t, stock, "LATE", 30, 90)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))
		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(70)))

		item := st.Item(stock.ID)
		assert.Equal(t, "20", item.BatchForItemBatch(late.ID).CountedTotalQuantity().String())
		assert.Equal(t, "50", item.BatchForItemBatch(soon.ID).CountedTotalQuantity().String())
	})

	t.Run("surplus lands on the soonest-expiring batch", func(t *testing.T) {
		stock := createTestStock(t)
		soon := stockBatch(t, stock, "SOON", 50, 30)
		stockBatch(t, stock, "LATE", 30, 90)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))
		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(90)))

		item := st.Item(stock.ID)
		assert.Equal(t, "60", item.BatchForItemBatch(soon.ID).CountedTotalQuantity().String())
	})

	t.Run("counting the exact snapshot records no difference", func(t *testing.T) {
		stock := createTestStock(t)
		stockBatch(t, stock, "B1", 50, 30)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))
		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(50)))

		assert.True(t, st.Item(stock.ID).Difference().IsZero())
	})

	t.Run("rejects a negative count", func(t *testing.T) {
		stock := createTestStock(t)
		stockBatch(t, stock, "B1", 50, 30)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))

		err = st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(-1))
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestStocktakeItem_OutdatedAndReset(t *testing.T) {
	stock := createTestStock(t)
	batch := stockBatch(t, stock, "B1", 50, 30)

	st, err := NewStocktake("1", "")
	require.NoError(t, err)
	require.NoError(t, st.AddItem(stock))

	item := st.Item(stock.ID)
	assert.False(t, item.IsOutdated(stock))

	// Live stock moves underneath the snapshot
	require.NoError(t, batch.SetTotalQuantity(decimal.NewFromInt(40)))
	assert.True(t, item.IsOutdated(stock))
	assert.Len(t, st.ItemsOutdated(lookupFor(stock)), 1)

	require.NoError(t, st.ResetItems(lookupFor(stock), []uuid.UUID{stock.ID}))
	assert.Equal(t, "40", st.Item(stock.ID).SnapshotTotalQuantity().String())
	assert.False(t, st.Item(stock.ID).IsOutdated(stock))
}

func TestStocktake_Finalise(t *testing.T) {
	t.Run("applies counted differences through adjustments", func(t *testing.T) {
		stock := createTestStock(t)
		soon := stockBatch(t, stock, "SOON", 50, 30)
		late := stockBatch(t, stock, "LATE", 30, 90)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))
		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(70)))

		result, err := st.Finalise(FinaliseDeps{
			Stock:         lookupFor(stock),
			NewAdjustment: adjustmentFactory(t),
		})

		require.NoError(t, err)
		assert.True(t, st.IsFinalised())
		assert.Nil(t, result.Additions)
		require.NotNil(t, result.Reductions)
		assert.Equal(t, "70", stock.TotalQuantity().String())
		assert.Equal(t, "20", stock.Batch(late.ID).TotalQuantity().String())
		assert.Equal(t, "50", stock.Batch(soon.ID).TotalQuantity().String())
		assert.Equal(t, st.ReductionsID, &result.Reductions.ID)
	})

	t.Run("splits surplus and shortfall across two adjustments", func(t *testing.T) {
		stock := createTestStock(t)
		soon := stockBatch(t, stock, "SOON", 50, 30)
		late := stockBatch(t, stock, "LATE", 30, 90)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))

		// Count up then down: the surplus sticks to the soonest-expiring
		// batch, the later correction drains the latest-expiring one.
		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(90)))
		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(60)))

		result, err := st.Finalise(FinaliseDeps{
			Stock:         lookupFor(stock),
			NewAdjustment: adjustmentFactory(t),
		})

		require.NoError(t, err)
		require.NotNil(t, result.Additions)
		require.NotNil(t, result.Reductions)
		assert.Equal(t, "10", result.Additions.TotalQuantity().String())
		assert.Equal(t, "30", result.Reductions.TotalQuantity().String())
		assert.Equal(t, "60", stock.TotalQuantity().String())
		assert.Equal(t, "60", stock.Batch(soon.ID).TotalQuantity().String())
		assert.Equal(t, "0", stock.Batch(late.ID).TotalQuantity().String())
	})

	t.Run("refuses to drive stock below zero and leaves no mutation", func(t *testing.T) {
		stock := createTestStock(t)
		batch := stockBatch(t, stock, "B1", 50, 30)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))
		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(10)))

		// Stock drains externally after the snapshot
		require.NoError(t, batch.SetTotalQuantity(decimal.NewFromInt(30)))

		_, err = st.Finalise(FinaliseDeps{
			Stock:         lookupFor(stock),
			NewAdjustment: adjustmentFactory(t),
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNegativeStock))
		assert.False(t, st.IsFinalised())
		assert.Equal(t, "30", stock.TotalQuantity().String())
	})

	t.Run("prunes uncounted items before applying", func(t *testing.T) {
		counted := createTestStock(t)
		stockBatch(t, counted, "B1", 10, 30)
		uncounted := createTestStock(t)
		stockBatch(t, uncounted, "B1", 10, 30)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(counted))
		require.NoError(t, st.AddItem(uncounted))
		require.NoError(t, st.SetCountedTotalQuantity(counted.ID, decimal.NewFromInt(8)))

		_, err = st.Finalise(FinaliseDeps{
			Stock:         lookupFor(counted, uncounted),
			NewAdjustment: adjustmentFactory(t),
		})

		require.NoError(t, err)
		assert.Len(t, st.Items, 1)
		assert.Equal(t, "10", uncounted.TotalQuantity().String())
		assert.Equal(t, "8", counted.TotalQuantity().String())
	})

	t.Run("finalising twice fails", func(t *testing.T) {
		stock := createTestStock(t)
		stockBatch(t, stock, "B1", 10, 30)

		st, err := NewStocktake("1", "")
		require.NoError(t, err)
		require.NoError(t, st.AddItem(stock))
		require.NoError(t, st.SetCountedTotalQuantity(stock.ID, decimal.NewFromInt(9)))

		deps := FinaliseDeps{Stock: lookupFor(stock), NewAdjustment: adjustmentFactory(t)}
		_, err = st.Finalise(deps)
		require.NoError(t, err)

		_, err = st.Finalise(deps)
		assert.True(t, errors.Is(err, shared.ErrFinalisedMutation))
	})
}

func TestStocktake_SerialAssignment(t *testing.T) {
	st, err := NewStocktake(ledger.PlaceholderSerialNumber, "")
	require.NoError(t, err)
	require.True(t, st.HasPlaceholderSerial())

	st.AssignSerialNumber("12")
	assert.Equal(t, "12", st.SerialNumber)

	st.AssignSerialNumber("13")
	assert.Equal(t, "12", st.SerialNumber, "assignment is a no-op once a real serial exists")
}
