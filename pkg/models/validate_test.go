package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderRequest_Validate(t *testing.T) {
	valid := func() OrderRequest {
		return OrderRequest{
			Symbol:   "BTCUSDT",
			Side:     SideBuy,
			Type:     TypeMarket,
			Quantity: decimal.RequireFromString("0.01"),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*OrderRequest)
		wantErr bool
	}{
		{"valid market", func(r *OrderRequest) {}, false},
		{"valid limit", func(r *OrderRequest) {
			r.Type = TypeLimit
			r.Price = decimal.NewFromInt(65000)
		}, false},
		{"empty symbol", func(r *OrderRequest) { r.Symbol = " " }, true},
		{"bad side", func(r *OrderRequest) { r.Side = "HOLD" }, true},
		{"bad type", func(r *OrderRequest) { r.Type = "STOP" }, true},
		{"zero quantity", func(r *OrderRequest) { r.Quantity = decimal.Zero }, true},
		{"negative quantity", func(r *OrderRequest) { r.Quantity = decimal.NewFromInt(-1) }, true},
		{"limit without price", func(r *OrderRequest) { r.Type = TypeLimit }, true},
		{"limit with negative price", func(r *OrderRequest) {
			r.Type = TypeLimit
			r.Price = decimal.NewFromInt(-5)
		}, true},
		{"market with price", func(r *OrderRequest) { r.Price = decimal.NewFromInt(65000) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOrder) {
					t.Fatalf("expected ErrInvalidOrder, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestOrderRequest_Normalize(t *testing.T) {
	req := OrderRequest{
		Symbol:   " btcusdt ",
		Side:     "buy",
		Type:     "limit",
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(100),
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if req.Symbol != "BTCUSDT" || req.Side != SideBuy || req.Type != TypeLimit {
		t.Errorf("not normalized: %+v", req)
	}
}

func TestOrderSide_Opposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Error("Opposite() should flip the side")
	}
}
