package sentiment

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mkraev/binance-assistant/pkg/logger"
)

// symbolMentions maps trading pairs to the words that count as a mention.
var symbolMentions = map[string][]string{
	"BTCUSDT": {"bitcoin", "btc"},
	"ETHUSDT": {"ethereum", "eth", "ether"},
	"SOLUSDT": {"solana", "sol"},
	"BNBUSDT": {"bnb", "binance coin"},
	"XRPUSDT": {"xrp", "ripple"},
}

// FeedWorker periodically pulls headlines from all enabled sources,
// scores them, and feeds the aggregator. Runs under pkg/worker.
type FeedWorker struct {
	sources    []Source
	analyzer   *Analyzer
	aggregator *Aggregator
	keywords   []string
	limit      int
}

// NewFeedWorker creates new sentiment feed worker
func NewFeedWorker(sources []Source, analyzer *Analyzer, aggregator *Aggregator, keywords []string) *FeedWorker {
	return &FeedWorker{
		sources:    sources,
		analyzer:   analyzer,
		aggregator: aggregator,
		keywords:   keywords,
		limit:      30,
	}
}

func (w *FeedWorker) Name() string {
	return "sentiment_feed"
}

// Run executes one scrape-score-aggregate cycle.
func (w *FeedWorker) Run(ctx context.Context) error {
	total := 0

	for _, source := range w.sources {
		if !source.IsEnabled() {
			continue
		}

		headlines, err := source.FetchHeadlines(ctx, w.keywords, w.limit)
		if err != nil {
			// One broken feed must not starve the others.
			logger.Warn("sentiment source failed",
				zap.String("source", source.GetName()),
				zap.Error(err),
			)
			continue
		}

		for _, h := range headlines {
			score, confidence := w.analyzer.Analyze(h.Title + " " + h.Summary)
			if confidence == 0 {
				continue
			}

			sample := Sample{
				Score:      score,
				Confidence: confidence,
				Source:     h.Source,
				Title:      h.Title,
				Timestamp:  h.Published,
			}

			symbols := mentionedSymbols(h.Title + " " + h.Summary)
			if len(symbols) == 0 {
				symbols = []string{MarketSymbol}
			}
			for _, symbol := range symbols {
				w.aggregator.Add(symbol, sample)
			}
			total++
		}
	}

	logger.Info("sentiment cycle completed", zap.Int("scored", total))
	return nil
}

func mentionedSymbols(text string) []string {
	lower := strings.ToLower(text)

	var out []string
	for symbol, words := range symbolMentions {
		for _, word := range words {
			if strings.Contains(lower, word) {
				out = append(out, symbol)
				break
			}
		}
	}
	return out
}
