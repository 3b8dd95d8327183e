package strategy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkraev/binance-assistant/internal/conditions"
	"github.com/mkraev/binance-assistant/pkg/models"
)

// ErrInvalidSpec rejects a strategy specification before any run exists.
var ErrInvalidSpec = errors.New("invalid strategy spec")

// ErrNotFound is returned for unknown run IDs.
var ErrNotFound = errors.New("run not found")

// ErrConditionNeverSatisfied terminates a run that exhausted its skip budget.
var ErrConditionNeverSatisfied = errors.New("condition never satisfied")

// Kind selects the execution style of a strategy.
type Kind string

const (
	KindTWAP Kind = "TWAP"
	KindGrid Kind = "GRID"
)

// Spec is the immutable declarative input of one strategy run.
type Spec struct {
	Kind   Kind             `json:"kind"`
	Symbol string           `json:"symbol"`
	Side   models.OrderSide `json:"side,omitempty"` // TWAP only; grid is two-sided

	// TWAP parameters
	TotalQuantity decimal.Decimal `json:"total_quantity,omitempty"`
	Duration      time.Duration   `json:"duration,omitempty"`
	Slices        int             `json:"slices,omitempty"`

	// Grid parameters
	LowerPrice  decimal.Decimal `json:"lower_price,omitempty"`
	UpperPrice  decimal.Decimal `json:"upper_price,omitempty"`
	Levels      int             `json:"levels,omitempty"`
	QtyPerLevel decimal.Decimal `json:"qty_per_level,omitempty"`

	Conditions conditions.Set `json:"conditions,omitempty"`
}

// Normalize uppercases symbol and side in place.
func (s *Spec) Normalize() {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	s.Side = models.OrderSide(strings.ToUpper(strings.TrimSpace(string(s.Side))))
	s.Kind = Kind(strings.ToUpper(strings.TrimSpace(string(s.Kind))))
}

// Validate checks the spec before a run is created. All failures wrap
// ErrInvalidSpec so callers can map them to a 400-class response.
func (s *Spec) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: symbol cannot be empty", ErrInvalidSpec)
	}

	switch s.Kind {
	case KindTWAP:
		if s.Side != models.SideBuy && s.Side != models.SideSell {
			return fmt.Errorf("%w: side must be BUY or SELL", ErrInvalidSpec)
		}
		if s.TotalQuantity.Sign() <= 0 {
			return fmt.Errorf("%w: total quantity must be positive", ErrInvalidSpec)
		}
		if s.Duration <= 0 {
			return fmt.Errorf("%w: duration must be positive", ErrInvalidSpec)
		}
		if s.Slices < 1 {
			return fmt.Errorf("%w: slices must be >= 1", ErrInvalidSpec)
		}
	case KindGrid:
		if s.LowerPrice.Sign() <= 0 || s.UpperPrice.Sign() <= 0 {
			return fmt.Errorf("%w: grid prices must be positive", ErrInvalidSpec)
		}
		if s.LowerPrice.GreaterThanOrEqual(s.UpperPrice) {
			return fmt.Errorf("%w: lower price must be less than upper price", ErrInvalidSpec)
		}
		if s.Levels < 2 {
			return fmt.Errorf("%w: levels must be >= 2", ErrInvalidSpec)
		}
		if s.QtyPerLevel.Sign() <= 0 {
			return fmt.Errorf("%w: quantity per level must be positive", ErrInvalidSpec)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSpec, s.Kind)
	}

	if err := s.Conditions.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	return nil
}

// SliceQuantity returns the per-slice quantity for slice index i.
// The last slice absorbs the rounding remainder so the total is exact.
func (s *Spec) SliceQuantity(i int) decimal.Decimal {
	base := s.TotalQuantity.DivRound(decimal.NewFromInt(int64(s.Slices)), 8)
	if i < s.Slices-1 {
		return base
	}
	return s.TotalQuantity.Sub(base.Mul(decimal.NewFromInt(int64(s.Slices - 1))))
}

// SliceInterval returns the spacing between TWAP slices.
func (s *Spec) SliceInterval() time.Duration {
	return s.Duration / time.Duration(s.Slices)
}

// LevelPrice returns the price of grid level i. Levels are evenly
// spaced; the first is exactly LowerPrice, the last exactly UpperPrice.
func (s *Spec) LevelPrice(i int) decimal.Decimal {
	if i <= 0 {
		return s.LowerPrice
	}
	if i >= s.Levels-1 {
		return s.UpperPrice
	}
	step := s.UpperPrice.Sub(s.LowerPrice).Div(decimal.NewFromInt(int64(s.Levels - 1)))
	return s.LowerPrice.Add(step.Mul(decimal.NewFromInt(int64(i))))
}
