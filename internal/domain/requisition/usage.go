package requisition

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/ledger"
)

// DefaultUsageLookbackDays is the history window used to derive daily usage
const DefaultUsageLookbackDays = 90

// UsageCalculator derives an item's daily usage from confirmed outgoing
// ledger movements over a lookback window
type UsageCalculator struct {
	ledger       ledger.TransactionRepository
	lookbackDays int
	now          func() time.Time
}

// NewUsageCalculator creates a usage calculator over the given ledger.
// A non-positive lookback falls back to the default window.
func NewUsageCalculator(repo ledger.TransactionRepository, lookbackDays int) *UsageCalculator {
	if lookbackDays <= 0 {
		lookbackDays = DefaultUsageLookbackDays
	}
	return &UsageCalculator{
		ledger:       repo,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// DailyUsage returns the item's average outgoing quantity per day over the
// lookback window
func (c *UsageCalculator) DailyUsage(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	until := c.now()
	since := until.AddDate(0, 0, -c.lookbackDays)

	total, err := c.ledger.OutgoingQuantityForItem(ctx, itemID, since, until)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Div(decimal.NewFromInt(int64(c.lookbackDays))), nil
}
