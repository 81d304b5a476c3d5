// Package classifier groups orders into mutually exclusive fulfillment
// categories based purely on line shape.
package classifier

import (
	"github.com/rs/zerolog/log"

	"github.com/Juan7731/bol.com/internal/models"
)

// Classify groups orders by derived category, preserving input order
// within each group. Orders with an Unknown category carry no batchable
// shape and are dropped from every group; each drop is logged so the
// gap stays visible.
func Classify(orders []models.Order) map[models.Category][]models.Order {
	groups := map[models.Category][]models.Order{
		models.CategorySingle:     nil,
		models.CategorySingleLine: nil,
		models.CategoryMulti:      nil,
	}

	for _, order := range orders {
		cat := order.Category()
		if cat == models.CategoryUnknown {
			log.Warn().
				Str("order_id", order.OrderID).
				Int("lines", len(order.Lines)).
				Msg("Order has no batchable category, dropping from all groups")
			continue
		}
		groups[cat] = append(groups[cat], order)
	}

	return groups
}
