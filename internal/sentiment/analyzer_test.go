package sentiment

import (
	"testing"
)

func TestAnalyzer_Analyze(t *testing.T) {
	analyzer := NewAnalyzer()

	tests := []struct {
		name     string
		text     string
		expected string // Bullish, Bearish or Neutral
	}{
		{
			name:     "bullish text",
			text:     "Bitcoin rally continues, bulls in control, massive pump incoming!",
			expected: "Bullish",
		},
		{
			name:     "bearish text",
			text:     "Market crash imminent, massive dump expected, panic selling everywhere",
			expected: "Bearish",
		},
		{
			name:     "neutral text",
			text:     "Bitcoin price remains within yesterday's band",
			expected: "Neutral",
		},
		{
			name:     "empty text",
			text:     "",
			expected: "Neutral",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := analyzer.Analyze(tt.text)
			if got := Label(score); got != tt.expected {
				t.Errorf("expected %s, got %s (score %.1f)", tt.expected, got, score)
			}
		})
	}
}

func TestAnalyzer_ScoreRange(t *testing.T) {
	analyzer := NewAnalyzer()

	texts := []string{
		"bullish rally pump moon rocket",
		"bearish crash dump panic",
		"stable sideways boring market",
		"",
	}

	for _, text := range texts {
		score, confidence := analyzer.Analyze(text)
		if score < 0 || score > 100 {
			t.Errorf("score %.1f out of range for %q", score, text)
		}
		if confidence < 0 || confidence > 1 {
			t.Errorf("confidence %.2f out of range for %q", confidence, text)
		}
	}
}

func TestAnalyzer_ConfidenceZeroWithoutMatches(t *testing.T) {
	analyzer := NewAnalyzer()
	score, confidence := analyzer.Analyze("the weather is nice today")
	if confidence != 0 {
		t.Errorf("confidence = %.2f, want 0 for sentiment-free text", confidence)
	}
	if score != 50 {
		t.Errorf("score = %.1f, want 50 for sentiment-free text", score)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{75, "Bullish"},
		{60, "Bullish"},
		{59.9, "Neutral"},
		{50, "Neutral"},
		{40.1, "Neutral"},
		{40, "Bearish"},
		{10, "Bearish"},
	}
	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%.1f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
