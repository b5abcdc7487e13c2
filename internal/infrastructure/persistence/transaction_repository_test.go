package persistence

import (
	"context"
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

// confirmedInvoice builds a customer invoice that moved the given quantity
// out of the item's first batch
func confirmedInvoice(t *testing.T, item *inventory.Item, serial string, quantity int64) *ledger.Transaction {
	t.Helper()

	invoice, err := ledger.NewTransaction(ledger.TransactionTypeCustomerInvoice, serial, time.Now())
	require.NoError(t, err)
	require.NoError(t, invoice.SetItemQuantity(item, decimal.NewFromInt(quantity)))
	lookup := func(id uuid.UUID) *inventory.Item {
		if id == item.ID {
			return item
		}
		return nil
	}
	require.NoError(t, invoice.Confirm(lookup))
	return invoice
}

func TestGormTransactionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a document with its lines", func(t *testing.T) {
		db := newTestDatabase(t)
		repo := NewGormTransactionRepository(db.DB)
		item := newStockedItem(t, "AMX250", 100)
		invoice := confirmedInvoice(t, item, "7", 30)
		require.NoError(t, repo.Save(ctx, invoice))

		loaded, err := repo.FindByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, "7", loaded.SerialNumber)
		assert.True(t, loaded.IsConfirmed())
		require.Len(t, loaded.Items, 1)
		require.Len(t, loaded.Items[0].Batches, 1)
		assert.Equal(t, "30", loaded.Items[0].TotalQuantity().String())
	})

	t.Run("finds by type and serial number", func(t *testing.T) {
		db := newTestDatabase(t)
		repo := NewGormTransactionRepository(db.DB)
		item := newStockedItem(t, "AMX250", 100)
		require.NoError(t, repo.Save(ctx, confirmedInvoice(t, item, "12", 5)))

		loaded, err := repo.FindBySerialNumber(ctx, ledger.TransactionTypeCustomerInvoice, "12")
		require.NoError(t, err)
		assert.Equal(t, "12", loaded.SerialNumber)

		_, err = repo.FindBySerialNumber(ctx, ledger.TransactionTypeSupplierInvoice, "12")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds documents with placeholder serials", func(t *testing.T) {
		db := newTestDatabase(t)
		repo := NewGormTransactionRepository(db.DB)

		placeholder, err := ledger.NewTransaction(ledger.TransactionTypeSupplierInvoice, ledger.PlaceholderSerialNumber, time.Now())
		require.NoError(t, err)
		numbered, err := ledger.NewTransaction(ledger.TransactionTypeSupplierInvoice, "3", time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, placeholder))
		require.NoError(t, repo.Save(ctx, numbered))

		found, err := repo.FindWithPlaceholderSerial(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, placeholder.ID, found[0].ID)
	})

	t.Run("finds unfinalised documents by type", func(t *testing.T) {
		db := newTestDatabase(t)
		repo := NewGormTransactionRepository(db.DB)
		item := newStockedItem(t, "AMX250", 100)

		open := confirmedInvoice(t, item, "1", 5)
		locked := confirmedInvoice(t, item, "2", 5)
		require.NoError(t, locked.Finalise(nil))
		require.NoError(t, repo.Save(ctx, open))
		require.NoError(t, repo.Save(ctx, locked))

		found, err := repo.FindUnfinalisedByType(ctx, ledger.TransactionTypeCustomerInvoice)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, open.ID, found[0].ID)
	})

	t.Run("sums outgoing quantity inside the window", func(t *testing.T) {
		db := newTestDatabase(t)
		repo := NewGormTransactionRepository(db.DB)
		item := newStockedItem(t, "AMX250", 1000)

		require.NoError(t, repo.Save(ctx, confirmedInvoice(t, item, "1", 30)))
		require.NoError(t, repo.Save(ctx, confirmedInvoice(t, item, "2", 12)))

		since := time.Now().Add(-time.Hour)
		until := time.Now().Add(time.Hour)
		total, err := repo.OutgoingQuantityForItem(ctx, item.ID, since, until)
		require.NoError(t, err)
		assert.Equal(t, "42", total.String())

		t.Run("window excludes documents confirmed outside it", func(t *testing.T) {
			past := time.Now().Add(-48 * time.Hour)
			total, err := repo.OutgoingQuantityForItem(ctx, item.ID, past, since)
			require.NoError(t, err)
			assert.True(t, total.IsZero())
		})

		t.Run("unknown item sums to zero", func(t *testing.T) {
			total, err := repo.OutgoingQuantityForItem(ctx, uuid.New(), since, until)
			require.NoError(t, err)
			assert.True(t, total.IsZero())
		})
	})

	t.Run("delete refuses finalised documents", func(t *testing.T) {
		db := newTestDatabase(t)
		repo := NewGormTransactionRepository(db.DB)
		item := newStockedItem(t, "AMX250", 100)

		locked := confirmedInvoice(t, item, "9", 5)
		require.NoError(t, locked.Finalise(nil))
		require.NoError(t, repo.Save(ctx, locked))

		err := repo.Delete(ctx, locked.ID)
		assert.ErrorIs(t, err, shared.ErrFinalisedMutation)

		_, err = repo.FindByID(ctx, locked.ID)
		assert.NoError(t, err, "refused delete must leave the document in place")
	})

	t.Run("delete removes the document and its lines", func(t *testing.T) {
		db := newTestDatabase(t)
		repo := NewGormTransactionRepository(db.DB)
		item := newStockedItem(t, "AMX250", 100)

		invoice := confirmedInvoice(t, item, "4", 5)
		require.NoError(t, repo.Save(ctx, invoice))
		require.NoError(t, repo.Delete(ctx, invoice.ID))

		_, err := repo.FindByID(ctx, invoice.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var lines int64
		require.NoError(t, db.DB.Table("transaction_batches").Where("transaction_id = ?", invoice.ID).Count(&lines).Error)
		assert.Zero(t, lines)
	})
}
