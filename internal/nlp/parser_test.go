package nlp

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkraev/binance-assistant/internal/strategy"
	"github.com/mkraev/binance-assistant/pkg/models"
)

func TestDecodeResult(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		content := `{"intent": "twap", "parameters": {"symbol": "BTCUSDT", "side": "BUY", "quantity": 0.5, "duration_seconds": 7200, "num_orders": 12}, "confidence": 0.92, "error": null}`
		result, err := decodeResult(content)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Intent != "twap" || result.Confidence != 0.92 {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.Parameters.Symbol != "BTCUSDT" || result.Parameters.NumOrders != 12 {
			t.Errorf("unexpected parameters: %+v", result.Parameters)
		}
	})

	t.Run("fenced json", func(t *testing.T) {
		content := "```json\n{\"intent\": \"grid\", \"parameters\": {\"symbol\": \"SOLUSDT\", \"lower_price\": 130, \"upper_price\": 150, \"grids\": 10, \"conditions\": {\"rsi_below\": 40}}, \"confidence\": 0.95}\n```"
		result, err := decodeResult(content)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Intent != "grid" {
			t.Errorf("intent = %s, want grid", result.Intent)
		}
		if result.Parameters.Conditions.RSIBelow == nil || *result.Parameters.Conditions.RSIBelow != 40 {
			t.Errorf("conditions not decoded: %+v", result.Parameters.Conditions)
		}
	})

	t.Run("missing intent", func(t *testing.T) {
		result, err := decodeResult(`{"parameters": {}, "confidence": 0.8}`)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Error == "" || result.Confidence != 0 {
			t.Errorf("missing intent should zero confidence: %+v", result)
		}
	})

	t.Run("unknown intent", func(t *testing.T) {
		result, err := decodeResult(`{"intent": "arbitrage", "parameters": {}, "confidence": 0.9}`)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Error == "" || result.Confidence != 0 {
			t.Errorf("unknown intent should be refused: %+v", result)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := decodeResult("sure, here is your strategy"); err == nil {
			t.Error("non-JSON response must error")
		}
	})

	t.Run("model reported error", func(t *testing.T) {
		result, err := decodeResult(`{"intent": "twap", "parameters": {}, "confidence": 0.2, "error": "no quantity given"}`)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Error != "no quantity given" {
			t.Errorf("error not carried: %+v", result)
		}
	})
}

func TestResult_ToSpec(t *testing.T) {
	t.Run("twap", func(t *testing.T) {
		result := &Result{
			Intent: "twap",
			Parameters: Parameters{
				Symbol:          "BTCUSDT",
				Side:            "buy",
				Quantity:        0.5,
				DurationSeconds: 7200,
				NumOrders:       12,
			},
		}
		spec, err := result.ToSpec()
		if err != nil {
			t.Fatalf("to spec: %v", err)
		}
		if spec.Kind != strategy.KindTWAP || spec.Side != models.SideBuy {
			t.Errorf("unexpected spec: %+v", spec)
		}
		if spec.Duration != 2*time.Hour || spec.Slices != 12 {
			t.Errorf("schedule wrong: %v / %d", spec.Duration, spec.Slices)
		}
		spec.Normalize()
		if err := spec.Validate(); err != nil {
			t.Errorf("converted spec invalid: %v", err)
		}
	})

	t.Run("grid derives per-level quantity", func(t *testing.T) {
		result := &Result{
			Intent: "grid",
			Parameters: Parameters{
				Symbol:     "SOLUSDT",
				Quantity:   5,
				LowerPrice: 130,
				UpperPrice: 150,
				Grids:      10,
			},
		}
		spec, err := result.ToSpec()
		if err != nil {
			t.Fatalf("to spec: %v", err)
		}
		if spec.Kind != strategy.KindGrid || spec.Levels != 10 {
			t.Errorf("unexpected spec: %+v", spec)
		}
		if !spec.QtyPerLevel.Equal(decimal.RequireFromString("0.5")) {
			t.Errorf("qty per level = %s, want 0.5", spec.QtyPerLevel)
		}
	})

	t.Run("market intent is not a spec", func(t *testing.T) {
		result := &Result{Intent: "market"}
		if _, err := result.ToSpec(); err == nil {
			t.Error("market intent must not convert to a spec")
		}
	})
}

func TestResult_ToOrder(t *testing.T) {
	result := &Result{
		Intent: "market",
		Parameters: Parameters{
			Symbol:   "ethusdt",
			Side:     "sell",
			Quantity: 1,
		},
	}
	order, err := result.ToOrder()
	if err != nil {
		t.Fatalf("to order: %v", err)
	}
	if order.Symbol != "ETHUSDT" || order.Side != models.SideSell || order.Type != models.TypeMarket {
		t.Errorf("unexpected order: %+v", order)
	}

	bad := &Result{Intent: "twap"}
	if _, err := bad.ToOrder(); err == nil {
		t.Error("non-market intent must not convert to an order")
	}
}

func TestStripFences(t *testing.T) {
	plain := `{"a":1}`
	if got := stripFences(plain); got != plain {
		t.Errorf("plain input altered: %q", got)
	}
	fenced := "```json\n{\"a\":1}\n```"
	if got := stripFences(fenced); got != `{"a":1}` {
		t.Errorf("fences not stripped: %q", got)
	}
}
