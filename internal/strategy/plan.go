package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/mkraev/binance-assistant/pkg/models"
)

// Step is one planned order placement. TWAP steps are time-triggered
// market orders; grid steps are price-triggered limit orders.
type Step struct {
	Index    int              `json:"index"`
	Side     models.OrderSide `json:"side"`
	Type     models.OrderType `json:"type"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    decimal.Decimal  `json:"price,omitempty"` // zero for market orders
}

// planTWAP expands a TWAP spec into its slice steps.
func planTWAP(spec *Spec) []Step {
	steps := make([]Step, spec.Slices)
	for i := range steps {
		steps[i] = Step{
			Index:    i,
			Side:     spec.Side,
			Type:     models.TypeMarket,
			Quantity: spec.SliceQuantity(i),
		}
	}
	return steps
}

// planGrid expands a grid spec into its level steps. Sides are decided
// once, from the market price snapshot taken at submission: levels
// below it buy, levels at or above it sell.
func planGrid(spec *Spec, marketPrice decimal.Decimal) []Step {
	steps := make([]Step, spec.Levels)
	for i := range steps {
		price := spec.LevelPrice(i)
		side := models.SideSell
		if price.LessThan(marketPrice) {
			side = models.SideBuy
		}
		steps[i] = Step{
			Index:    i,
			Side:     side,
			Type:     models.TypeLimit,
			Quantity: spec.QtyPerLevel,
			Price:    price,
		}
	}
	return steps
}

// triggered reports whether a grid level fires at the given price:
// buy levels fire when price falls to or through them, sell levels
// when price rises to or through them.
func triggered(step Step, price decimal.Decimal) bool {
	if step.Side == models.SideBuy {
		return price.LessThanOrEqual(step.Price)
	}
	return price.GreaterThanOrEqual(step.Price)
}
