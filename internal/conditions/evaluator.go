// Package conditions gates strategy steps on indicator and sentiment
// thresholds. Evaluation is pure: callers pass a snapshot of whatever
// data is currently available and get back a decision with reasons.
package conditions

import "fmt"

// Set declares the optional thresholds attached to a strategy. All
// present conditions must hold for a step to proceed (AND semantics).
type Set struct {
	RSIBelow       *float64 `json:"rsi_below,omitempty"`
	RSIAbove       *float64 `json:"rsi_above,omitempty"`
	SentimentAbove *float64 `json:"sentiment_above,omitempty"`
	SentimentBelow *float64 `json:"sentiment_below,omitempty"`
	PauseOnBearish bool     `json:"pause_on_bearish,omitempty"`
}

// Empty reports whether no condition is declared.
func (s Set) Empty() bool {
	return s.RSIBelow == nil && s.RSIAbove == nil &&
		s.SentimentAbove == nil && s.SentimentBelow == nil &&
		!s.PauseOnBearish
}

// NeedsRSI reports whether evaluating the set requires an RSI value.
func (s Set) NeedsRSI() bool {
	return s.RSIBelow != nil || s.RSIAbove != nil
}

// NeedsSentiment reports whether evaluating the set requires sentiment.
func (s Set) NeedsSentiment() bool {
	return s.SentimentAbove != nil || s.SentimentBelow != nil || s.PauseOnBearish
}

// Validate rejects threshold combinations that can never be satisfied.
func (s Set) Validate() error {
	if s.RSIBelow != nil && s.RSIAbove != nil && *s.RSIBelow <= *s.RSIAbove {
		return fmt.Errorf("rsi_below (%.1f) must be greater than rsi_above (%.1f)", *s.RSIBelow, *s.RSIAbove)
	}
	if s.SentimentBelow != nil && s.SentimentAbove != nil && *s.SentimentBelow <= *s.SentimentAbove {
		return fmt.Errorf("sentiment_below (%.1f) must be greater than sentiment_above (%.1f)", *s.SentimentBelow, *s.SentimentAbove)
	}
	return nil
}

// Snapshot carries the data available at evaluation time. Nil fields
// mean the corresponding input could not be obtained.
type Snapshot struct {
	RSI            *float64
	SentimentScore *float64
	SentimentLabel string
}

// Evaluate checks every declared condition against the snapshot.
// A condition whose input is unavailable is NOT satisfied: the engine
// must fail safe rather than trade on missing data.
func Evaluate(set Set, snap Snapshot) (bool, []string) {
	if set.Empty() {
		return true, nil
	}

	allowed := true
	var reasons []string

	if set.NeedsRSI() {
		if snap.RSI == nil {
			allowed = false
			reasons = append(reasons, "rsi unavailable")
		} else {
			rsi := *snap.RSI
			if set.RSIBelow != nil {
				if rsi < *set.RSIBelow {
					reasons = append(reasons, fmt.Sprintf("RSI %.1f < %.1f", rsi, *set.RSIBelow))
				} else {
					allowed = false
					reasons = append(reasons, fmt.Sprintf("RSI %.1f not below %.1f", rsi, *set.RSIBelow))
				}
			}
			if set.RSIAbove != nil {
				if rsi > *set.RSIAbove {
					reasons = append(reasons, fmt.Sprintf("RSI %.1f > %.1f", rsi, *set.RSIAbove))
				} else {
					allowed = false
					reasons = append(reasons, fmt.Sprintf("RSI %.1f not above %.1f", rsi, *set.RSIAbove))
				}
			}
		}
	}

	if set.NeedsSentiment() {
		if snap.SentimentScore == nil {
			allowed = false
			reasons = append(reasons, "sentiment unavailable")
		} else {
			score := *snap.SentimentScore
			if set.SentimentAbove != nil {
				if score > *set.SentimentAbove {
					reasons = append(reasons, fmt.Sprintf("sentiment %.0f > %.0f", score, *set.SentimentAbove))
				} else {
					allowed = false
					reasons = append(reasons, fmt.Sprintf("sentiment %.0f not above %.0f", score, *set.SentimentAbove))
				}
			}
			if set.SentimentBelow != nil {
				if score < *set.SentimentBelow {
					reasons = append(reasons, fmt.Sprintf("sentiment %.0f < %.0f", score, *set.SentimentBelow))
				} else {
					allowed = false
					reasons = append(reasons, fmt.Sprintf("sentiment %.0f not below %.0f", score, *set.SentimentBelow))
				}
			}
			if set.PauseOnBearish {
				if snap.SentimentLabel == "Bearish" {
					allowed = false
					reasons = append(reasons, "paused on bearish sentiment")
				} else {
					reasons = append(reasons, fmt.Sprintf("sentiment %s, not paused", snap.SentimentLabel))
				}
			}
		}
	}

	return allowed, reasons
}
