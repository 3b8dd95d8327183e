package sentiment

import (
	"errors"
	"sync"
	"time"

	"github.com/mkraev/binance-assistant/pkg/models"
)

// MarketSymbol aggregates samples that mention no specific pair.
const MarketSymbol = "MARKET"

// ErrUnavailable is returned when no recent samples exist for a symbol.
var ErrUnavailable = errors.New("sentiment unavailable")

// Sample is one scored headline attributed to a symbol.
type Sample struct {
	Score      float64
	Confidence float64
	Source     string
	Title      string
	Timestamp  time.Time
}

// Aggregator keeps a sliding window of samples per symbol and serves
// confidence-weighted snapshots to the condition gate and front ends.
type Aggregator struct {
	mu      sync.RWMutex
	window  time.Duration
	history map[string][]Sample
}

// NewAggregator creates new sentiment aggregator
func NewAggregator(window time.Duration) *Aggregator {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Aggregator{
		window:  window,
		history: make(map[string][]Sample),
	}
}

// Add records a sample for symbol and drops expired ones.
func (a *Aggregator) Add(symbol string, sample Sample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.history[symbol] = append(a.history[symbol], sample)
	a.pruneLocked(symbol)
}

// Snapshot returns the aggregated sentiment for symbol. Falls back to
// the market-wide aggregate when the pair has no samples of its own.
func (a *Aggregator) Snapshot(symbol string) (*models.SentimentSnapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	samples := a.recentLocked(symbol)
	if len(samples) == 0 && symbol != MarketSymbol {
		samples = a.recentLocked(MarketSymbol)
	}
	if len(samples) == 0 {
		return nil, ErrUnavailable
	}

	var weightedSum, weightTotal float64
	var last time.Time
	for _, s := range samples {
		w := s.Confidence
		if w <= 0 {
			w = 0.1
		}
		weightedSum += s.Score * w
		weightTotal += w
		if s.Timestamp.After(last) {
			last = s.Timestamp
		}
	}

	score := weightedSum / weightTotal
	return &models.SentimentSnapshot{
		Symbol:     symbol,
		Score:      score,
		Label:      Label(score),
		Samples:    len(samples),
		LastUpdate: last,
	}, nil
}

// Symbols lists symbols with at least one recent sample.
func (a *Aggregator) Symbols() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.history))
	for symbol := range a.history {
		if len(a.recentLocked(symbol)) > 0 {
			out = append(out, symbol)
		}
	}
	return out
}

func (a *Aggregator) recentLocked(symbol string) []Sample {
	cutoff := time.Now().UTC().Add(-a.window)
	all := a.history[symbol]

	out := make([]Sample, 0, len(all))
	for _, s := range all {
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

func (a *Aggregator) pruneLocked(symbol string) {
	cutoff := time.Now().UTC().Add(-a.window)
	all := a.history[symbol]

	kept := all[:0]
	for _, s := range all {
		if s.Timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	a.history[symbol] = kept
}
