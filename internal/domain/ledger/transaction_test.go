package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/shared"
)

func createTestStock(t *testing.T) *inventory.Item {
	t.Helper()
	item, err := inventory.NewItem("ORS200", "Oral rehydration salts", decimal.NewFromInt(1))
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

func lookupFor(items ...*inventory.Item) StockLookup {
	return func(itemID uuid.UUID) *inventory.Item {
		for _, item := range items {
			if item.ID == itemID {
				return item
			}
		}
		return nil
	}
}

func TestNewTransaction(t *testing.T) {
	t.Run("creates document in status new", func(t *testing.T) {
		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "17", time.Now())

		require.NoError(t, err)
		assert.Equal(t, DocumentStatusNew, tx.Status)
		assert.False(t, tx.IsConfirmed())
		assert.True(t, tx.IsOutgoing())
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewTransaction(TransactionType("refund"), "17", time.Now())
		assert.Error(t, err)
	})

	t.Run("rejects empty serial", func(t *testing.T) {
		_, err := NewTransaction(TransactionTypeCustomerInvoice, "", time.Now())
		assert.Error(t, err)
	})
}

func TestTransaction_Direction(t *testing.T) {
	cases := []struct {
		txType   TransactionType
		addition bool
		incoming bool
	}{
		{TransactionTypeCustomerInvoice, false, false},
		{TransactionTypeCustomerCredit, false, true},
		{TransactionTypeSupplierInvoice, false, true},
		{TransactionTypeSupplierCredit, false, false},
		{TransactionTypeInventoryAdjustment, true, true},
		{TransactionTypeInventoryAdjustment, false, false},
	}

	for _, tc := range cases {
		tx, err := NewTransaction(tc.txType, "1", time.Now())
		require.NoError(t, err)
		tx.Addition = tc.addition

		assert.Equal(t, tc.incoming, tx.IsIncoming(), "%s addition=%v", tc.txType, tc.addition)
		assert.Equal(t, !tc.incoming, tx.IsOutgoing(), "%s addition=%v", tc.txType, tc.addition)
	}
}

func TestTransaction_SerialAssignment(t *testing.T) {
	tx, err := NewTransaction(TransactionTypeCustomerInvoice, PlaceholderSerialNumber, time.Now())
	require.NoError(t, err)
	require.True(t, tx.HasPlaceholderSerial())

	t.Run("assigns over the placeholder", func(t *testing.T) {
		require.NoError(t, tx.AssignSerialNumber("42"))
		assert.Equal(t, "42", tx.SerialNumber)
	})

	t.Run("refuses to assign twice", func(t *testing.T) {
		err := tx.AssignSerialNumber("43")
		require.Error(t, err)
		assert.Equal(t, "42", tx.SerialNumber)
	})
}

func TestDocumentStatus_Transitions(t *testing.T) {
	assert.True(t, DocumentStatusNew.CanTransitionTo(DocumentStatusConfirmed))
	assert.True(t, DocumentStatusConfirmed.CanTransitionTo(DocumentStatusFinalised))
	assert.False(t, DocumentStatusConfirmed.CanTransitionTo(DocumentStatusNew))
	assert.False(t, DocumentStatusFinalised.CanTransitionTo(DocumentStatusConfirmed))
	assert.False(t, DocumentStatusFinalised.CanTransitionTo(DocumentStatusNew))
}

func TestTransaction_Confirm(t *testing.T) {
	t.Run("applies signed deltas to item batches", func(t *testing.T) {
		stock := createTestStock(t)
		stockBatch(t, stock, "B1", 100, 30)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(40)))
		assert.Equal(t, "100", stock.TotalQuantity().String(), "unconfirmed documents must not move stock")

		require.NoError(t, tx.Confirm(lookupFor(stock)))

		assert.True(t, tx.IsConfirmed())
		assert.NotNil(t, tx.ConfirmDate)
		assert.Equal(t, "60", stock.TotalQuantity().String())
	})

	t.Run("confirming twice is a no-op", func(t *testing.T) {
		stock := createTestStock(t)
		stockBatch(t, stock, "B1", 100, 30)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(40)))
		require.NoError(t, tx.Confirm(lookupFor(stock)))
		require.NoError(t, tx.Confirm(lookupFor(stock)))

		assert.Equal(t, "60", stock.TotalQuantity().String())
	})

	t.Run("refuses to push a batch below zero", func(t *testing.T) {
		stock := createTestStock(t)
		batch := stockBatch(t, stock, "B1", 100, 30)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(80)))

		// Stock drains between entry and confirmation
		require.NoError(t, batch.SetTotalQuantity(decimal.NewFromInt(50)))

		err = tx.Confirm(lookupFor(stock))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvariantViolation))
		assert.False(t, tx.IsConfirmed())
		assert.Equal(t, "50", stock.TotalQuantity().String(), "failed confirmation must leave stock untouched")
	})

	t.Run("validates split lines against their combined drain", func(t *testing.T) {
		stock := createTestStock(t)
		batch := stockBatch(t, stock, "B1", 10, 30)

		tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
		require.NoError(t, err)
		require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(8)))

		item := tx.Item(stock.ID)
		line := item.LineForItemBatch(batch.ID)
		_, err = tx.SplitLine(item, line, decimal.NewFromInt(4))
		require.NoError(t, err)
		require.Len(t, item.Batches, 2)

		// Each line alone fits in the remaining five packs but the two
		// together overdraw the batch.
		require.NoError(t, batch.SetTotalQuantity(decimal.NewFromInt(5)))

		err = tx.Confirm(lookupFor(stock))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvariantViolation))
		assert.False(t, tx.IsConfirmed())
		assert.Equal(t, "5", stock.TotalQuantity().String(), "failed confirmation must leave stock untouched")
	})
}

func TestTransaction_Finalise(t *testing.T) {
	stock := createTestStock(t)
	stockBatch(t, stock, "B1", 100, 30)

	tx, err := NewTransaction(TransactionTypeCustomerInvoice, "1", time.Now())
	require.NoError(t, err)
	require.NoError(t, tx.SetItemQuantity(stock, decimal.NewFromInt(10)))

	t.Run("confirms then locks", func(t *testing.T) {
		require.NoError(t, tx.Finalise(lookupFor(stock)))
		assert.True(t, tx.IsFinalised())
		assert.Equal(t, "90", stock.TotalQuantity().String())
	})

	t.Run("finalised documents refuse every mutation", func(t *testing.T) {
		err := tx.SetItemQuantity(stock, decimal.NewFromInt(5))
		assert.True(t, errors.Is(err, shared.ErrFinalisedMutation))

		err = tx.Finalise(lookupFor(stock))
		assert.True(t, errors.Is(err, shared.ErrFinalisedMutation))

		err = tx.OnDelete()
		assert.True(t, errors.Is(err, shared.ErrFinalisedMutation))

		assert.Equal(t, "90", stock.TotalQuantity().String())
	})
}

func TestNewInventoryAdjustment(t *testing.T) {
	tx, err := NewInventoryAdjustment("7", time.Now(), true)

	require.NoError(t, err)
	assert.True(t, tx.IsConfirmed(), "adjustments take effect immediately")
	assert.True(t, tx.IsIncoming())
	assert.NotNil(t, tx.ConfirmDate)
}
