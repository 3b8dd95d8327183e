package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	name      string
	enabled   bool
	headlines []Headline
	err       error
}

func (f *fakeSource) GetName() string { return f.name }
func (f *fakeSource) IsEnabled() bool { return f.enabled }
func (f *fakeSource) FetchHeadlines(ctx context.Context, keywords []string, limit int) ([]Headline, error) {
	return f.headlines, f.err
}

func TestFeedWorker_Run(t *testing.T) {
	now := time.Now().UTC()
	agg := NewAggregator(time.Hour)
	source := &fakeSource{
		name:    "fake",
		enabled: true,
		headlines: []Headline{
			{Source: "fake", Title: "Bitcoin rally continues, bulls in control", Published: now},
			{Source: "fake", Title: "Ethereum crash deepens, panic selling", Published: now},
			{Source: "fake", Title: "Crypto markets pump across the board", Published: now},
			{Source: "fake", Title: "Exchange publishes quarterly report", Published: now},
		},
	}

	w := NewFeedWorker([]Source{source}, NewAnalyzer(), agg, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	btc, err := agg.Snapshot("BTCUSDT")
	if err != nil {
		t.Fatalf("btc snapshot: %v", err)
	}
	if btc.Label != "Bullish" {
		t.Errorf("btc label = %s, want Bullish", btc.Label)
	}

	eth, err := agg.Snapshot("ETHUSDT")
	if err != nil {
		t.Fatalf("eth snapshot: %v", err)
	}
	if eth.Label != "Bearish" {
		t.Errorf("eth label = %s, want Bearish", eth.Label)
	}

	// The pump headline names no pair and lands in the market bucket;
	// the neutral report has no sentiment words and is dropped.
	market, err := agg.Snapshot(MarketSymbol)
	if err != nil {
		t.Fatalf("market snapshot: %v", err)
	}
	if market.Samples != 1 {
		t.Errorf("market samples = %d, want 1", market.Samples)
	}
}

func TestFeedWorker_BrokenSourceDoesNotStarveOthers(t *testing.T) {
	now := time.Now().UTC()
	agg := NewAggregator(time.Hour)
	broken := &fakeSource{name: "broken", enabled: true, err: errors.New("feed down")}
	healthy := &fakeSource{
		name:    "healthy",
		enabled: true,
		headlines: []Headline{
			{Source: "healthy", Title: "Bitcoin surge to new highs", Published: now},
		},
	}

	w := NewFeedWorker([]Source{broken, healthy}, NewAnalyzer(), agg, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := agg.Snapshot("BTCUSDT"); err != nil {
		t.Errorf("healthy source output missing: %v", err)
	}
}

func TestFeedWorker_SkipsDisabledSources(t *testing.T) {
	agg := NewAggregator(time.Hour)
	disabled := &fakeSource{
		name:      "off",
		headlines: []Headline{{Title: "Bitcoin rally"}},
	}

	w := NewFeedWorker([]Source{disabled}, NewAnalyzer(), agg, nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if symbols := agg.Symbols(); len(symbols) != 0 {
		t.Errorf("disabled source produced samples: %v", symbols)
	}
}

func TestMentionedSymbols(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Bitcoin and Ethereum both rally", 2},
		{"Solana breaks out", 1},
		{"Stocks close higher", 0},
	}
	for _, tt := range tests {
		if got := mentionedSymbols(tt.text); len(got) != tt.want {
			t.Errorf("mentionedSymbols(%q) = %v, want %d symbols", tt.text, got, tt.want)
		}
	}
}

func TestIsRelevant(t *testing.T) {
	keywords := []string{"bitcoin", "eth"}
	if !isRelevant("Bitcoin hits new high", keywords) {
		t.Error("keyword match missed")
	}
	if isRelevant("Gold prices steady", keywords) {
		t.Error("irrelevant text matched")
	}
	if !isRelevant("anything", nil) {
		t.Error("empty keyword list should match everything")
	}
}
