package requisition

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medistock/ledger/internal/domain/inventory"
	"github.com/medistock/ledger/internal/domain/shared"
)

// DaysInMonth is the ordering convention used for monthly usage figures
const DaysInMonth = 30

// RequisitionItem is a planning line: a snapshot of stock on hand and daily
// usage for one item, plus the quantities requested and supplied. The
// suggested quantity is always derived, never stored as ground truth.
type RequisitionItem struct {
	shared.BaseEntity
	RequisitionID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_requisition_item,priority:1"`
	ItemID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_requisition_item,priority:2"`
	ItemCode         string          `gorm:"size:255"`
	ItemName         string          `gorm:"size:255"`
	StockOnHand      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DailyUsage       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RequiredQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SuppliedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Comment          string
}

// TableName returns the table name for GORM
func (RequisitionItem) TableName() string {
	return "requisition_items"
}

func newRequisitionItem(requisitionID uuid.UUID, stock *inventory.Item, dailyUsage decimal.Decimal) *RequisitionItem {
	return &RequisitionItem{
		BaseEntity:    shared.NewBaseEntity(),
		RequisitionID: requisitionID,
		ItemID:        stock.ID,
		ItemCode:      stock.Code,
		ItemName:      stock.Name,
		StockOnHand:   stock.TotalQuantity(),
		DailyUsage:    dailyUsage,
	}
}

// MonthlyUsage returns the item's usage per month
func (ri *RequisitionItem) MonthlyUsage() decimal.Decimal {
	return ri.DailyUsage.Mul(decimal.NewFromInt(DaysInMonth))
}

// SuggestedQuantity derives the order quantity expected to cover the given
// days of supply after accounting for stock on hand, rounded up to whole
// units and never negative.
func (ri *RequisitionItem) SuggestedQuantity(daysToSupply decimal.Decimal) decimal.Decimal {
	suggested := ri.DailyUsage.Mul(daysToSupply).Sub(ri.StockOnHand)
	if suggested.IsNegative() {
		return decimal.Zero
	}
	return suggested.Ceil()
}

// IsLessThanThresholdMOS reports whether stock on hand has fallen below the
// given months-of-supply threshold
func (ri *RequisitionItem) IsLessThanThresholdMOS(threshold decimal.Decimal) bool {
	return ri.StockOnHand.LessThan(ri.MonthlyUsage().Mul(threshold))
}

// HasVariance reports whether the requested quantity differs from the
// derived suggestion
func (ri *RequisitionItem) HasVariance(daysToSupply decimal.Decimal) bool {
	return !ri.RequiredQuantity.Equal(ri.SuggestedQuantity(daysToSupply))
}
