package requisition

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medistock/ledger/internal/domain/ledger"
	"github.com/medistock/ledger/internal/domain/shared"
)

// fakeLedger records the window it was asked about and returns a fixed total
type fakeLedger struct {
	total decimal.Decimal
	since time.Time
	until time.Time
}

func (f *fakeLedger) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return nil, shared.ErrNotFound
}

func (f *fakeLedger) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) Save(ctx context.Context, t *ledger.Transaction) error { return nil }

func (f *fakeLedger) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeLedger) Count(ctx context.Context, filter shared.Filter) (int64, error) { return 0, nil }

func (f *fakeLedger) FindBySerialNumber(ctx context.Context, transactionType ledger.TransactionType, serialNumber string) (*ledger.Transaction, error) {
	return nil, shared.ErrNotFound
}

func (f *fakeLedger) FindWithPlaceholderSerial(ctx context.Context) ([]ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) FindUnfinalisedByType(ctx context.Context, transactionType ledger.TransactionType) ([]ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) OutgoingQuantityForItem(ctx context.Context, itemID uuid.UUID, since, until time.Time) (decimal.Decimal, error) {
	f.since = since
	f.until = until
	return f.total, nil
}

func TestUsageCalculator_DailyUsage(t *testing.T) {
	t.Run("averages outgoing quantity over the window", func(t *testing.T) {
		repo := &fakeLedger{total: decimal.NewFromInt(180)}
		calc := NewUsageCalculator(repo, 90)

		usage, err := calc.DailyUsage(context.Background(), uuid.New())

		require.NoError(t, err)
		assert.Equal(t, "2", usage.String())
		assert.InDelta(t, 90*24, repo.until.Sub(repo.since).Hours(), 25)
	})

	t.Run("zero history means zero usage", func(t *testing.T) {
		repo := &fakeLedger{total: decimal.Zero}
		calc := NewUsageCalculator(repo, 30)

		usage, err := calc.DailyUsage(context.Background(), uuid.New())

		require.NoError(t, err)
		assert.True(t, usage.IsZero())
	})

	t.Run("non-positive lookback falls back to the default", func(t *testing.T) {
		repo := &fakeLedger{total: decimal.NewFromInt(90)}
		calc := NewUsageCalculator(repo, 0)

		usage, err := calc.DailyUsage(context.Background(), uuid.New())

		require.NoError(t, err)
		assert.Equal(t, "1", usage.String())
	})
}
