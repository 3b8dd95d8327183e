package indicators

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cinar/indicator"
	"go.uber.org/zap"

	"github.com/mkraev/binance-assistant/internal/adapters/exchange"
	"github.com/mkraev/binance-assistant/pkg/logger"
)

// ErrUnavailable is returned when there is not enough data to compute
// the indicator. Callers treat it as "value unknown", not a failure.
var ErrUnavailable = errors.New("indicator unavailable")

// RSIService computes the Relative Strength Index over a bounded window
// of recent close prices fetched from the exchange.
type RSIService struct {
	exchange exchange.Exchange
	period   int
	interval string
}

// NewRSIService creates new RSI service
func NewRSIService(ex exchange.Exchange, period int, interval string) *RSIService {
	if period < 2 {
		period = 14
	}
	if interval == "" {
		interval = "1h"
	}
	return &RSIService{exchange: ex, period: period, interval: interval}
}

// GetRSI returns the latest RSI value (0..100) for symbol.
func (s *RSIService) GetRSI(ctx context.Context, symbol string) (float64, error) {
	// A few periods of warmup keeps Wilder smoothing stable.
	limit := s.period*3 + 1
	if limit < 50 {
		limit = 50
	}

	closes, err := s.exchange.ClosePrices(ctx, symbol, s.interval, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch close prices: %w", err)
	}

	value, err := Compute(closes, s.period)
	if err != nil {
		logger.Warn("RSI unavailable",
			zap.String("symbol", symbol),
			zap.Int("candles", len(closes)),
		)
		return 0, err
	}

	logger.Debug("RSI computed",
		zap.String("symbol", symbol),
		zap.Float64("rsi", value),
	)

	return value, nil
}

// Compute calculates RSI for the given closes and period. Returns
// ErrUnavailable when the window is too short.
func Compute(closes []float64, period int) (float64, error) {
	if len(closes) < period+1 {
		return 0, ErrUnavailable
	}

	_, rsi := indicator.RsiPeriod(period, closes)
	if len(rsi) == 0 {
		return 0, ErrUnavailable
	}

	value := rsi[len(rsi)-1]
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrUnavailable
	}

	return value, nil
}
