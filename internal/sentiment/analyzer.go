package sentiment

import (
	"strings"
)

// Analyzer performs keyword-based sentiment analysis on headlines.
type Analyzer struct {
	positiveWords map[string]float64
	negativeWords map[string]float64
}

// NewAnalyzer creates new sentiment analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		positiveWords: buildPositiveWords(),
		negativeWords: buildNegativeWords(),
	}
}

// Analyze scores text on a 0..100 scale: 0 maximally bearish, 50
// neutral, 100 maximally bullish. The second return is a confidence
// in 0..1, driven by how many sentiment-bearing words matched.
func (a *Analyzer) Analyze(text string) (float64, float64) {
	if text == "" {
		return 50, 0
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 50, 0
	}

	var raw float64
	matches := 0

	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'()[]")

		if weight, ok := a.positiveWords[word]; ok {
			raw += weight
			matches++
		}
		if weight, ok := a.negativeWords[word]; ok {
			raw -= weight
			matches++
		}
	}

	if matches == 0 {
		return 50, 0
	}

	normalized := raw / float64(matches)
	if normalized > 1.0 {
		normalized = 1.0
	} else if normalized < -1.0 {
		normalized = -1.0
	}

	confidence := float64(matches) / float64(len(words))
	if confidence > 1.0 {
		confidence = 1.0
	}

	return 50 + normalized*50, confidence
}

// Label maps a 0..100 score onto the three-way label the condition
// gate and front ends use.
func Label(score float64) string {
	switch {
	case score >= 60:
		return "Bullish"
	case score <= 40:
		return "Bearish"
	default:
		return "Neutral"
	}
}

// buildPositiveWords returns positive keywords for crypto
func buildPositiveWords() map[string]float64 {
	return map[string]float64{
		"bullish":      1.0,
		"bull":         0.9,
		"rally":        0.9,
		"surge":        0.8,
		"soar":         0.8,
		"pump":         0.7,
		"moon":         0.7,
		"rocket":       0.7,
		"gain":         0.6,
		"profit":       0.6,
		"win":          0.6,
		"green":        0.6,
		"up":           0.5,
		"rise":         0.5,
		"grow":         0.5,
		"growth":       0.5,
		"increase":     0.5,
		"positive":     0.5,
		"optimistic":   0.5,
		"breakthrough": 0.6,
		"adoption":     0.6,
		"partnership":  0.5,
		"upgrade":      0.5,
		"halving":      0.6,
		"breakout":     0.7,
		"ath":          0.8,
		"etf":          0.7,
		"approved":     0.6,
		"accumulation": 0.5,
	}
}

// buildNegativeWords returns negative keywords for crypto
func buildNegativeWords() map[string]float64 {
	return map[string]float64{
		"bearish":      1.0,
		"bear":         0.9,
		"crash":        1.0,
		"dump":         0.9,
		"plunge":       0.8,
		"fall":         0.6,
		"drop":         0.6,
		"decline":      0.6,
		"loss":         0.7,
		"red":          0.6,
		"down":         0.5,
		"negative":     0.5,
		"pessimistic":  0.5,
		"fear":         0.6,
		"panic":        0.8,
		"sell":         0.5,
		"selloff":      0.7,
		"correction":   0.6,
		"hack":         1.0,
		"exploit":      1.0,
		"scam":         1.0,
		"rug":          1.0,
		"fraud":        1.0,
		"lawsuit":      0.7,
		"ban":          0.8,
		"crackdown":    0.7,
		"liquidation":  0.8,
		"capitulation": 0.8,
		"fud":          0.7,
		"bubble":       0.6,
		"overvalued":   0.6,
	}
}
