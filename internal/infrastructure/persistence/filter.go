package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/medistock/ledger/internal/domain/shared"
)

// applyFilter applies ordering and limiting from the shared filter. Keyed
// filters are matched against plain columns; repository-specific keys are
// handled by the individual repositories before calling this.
func applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		query = query.Where(key+" = ?", value)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at ASC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	return query
}

// applyCountFilter applies only the keyed filters, for Count queries
func applyCountFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		query = query.Where(key+" = ?", value)
	}
	return query
}
