package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewDecimal creates decimal from float64
func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// OrderSide represents buy or sell
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType represents order type
type OrderType string

const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// OrderStatus represents normalized exchange order status
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusFilled          OrderStatus = "FILLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusCanceled        OrderStatus = "CANCELED"
)

// OrderRequest describes a single order to be placed on the exchange.
// ClientOrderID lets the caller re-identify the order after a timeout.
type OrderRequest struct {
	Symbol        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	Type          OrderType       `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price,omitempty"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
}

// OrderResult is the normalized exchange response for a placed order.
type OrderResult struct {
	OrderID     string          `json:"order_id"`
	Symbol      string          `json:"symbol"`
	Status      OrderStatus     `json:"status"`
	ExecutedQty decimal.Decimal `json:"executed_qty"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Ticker represents market ticker data
type Ticker struct {
	Symbol    string          `json:"symbol"`
	Last      decimal.Decimal `json:"last"`
	Timestamp time.Time       `json:"timestamp"`
}

// AccountSummary aggregates balance and position info for the dashboard.
type AccountSummary struct {
	TotalWalletBalance decimal.Decimal   `json:"total_wallet_balance"`
	AvailableBalance   decimal.Decimal   `json:"available_balance"`
	Positions          []PositionSummary `json:"positions"`
	Timestamp          time.Time         `json:"timestamp"`
}

// PositionSummary is a single open position.
type PositionSummary struct {
	Symbol        string          `json:"symbol"`
	Size          decimal.Decimal `json:"size"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	Leverage      int             `json:"leverage"`
}

// SentimentSnapshot is the read-only view the condition gate consumes.
type SentimentSnapshot struct {
	Symbol     string    `json:"symbol"`
	Score      float64   `json:"score"` // 0..100
	Label      string    `json:"label"` // Bullish / Neutral / Bearish
	Samples    int       `json:"samples"`
	LastUpdate time.Time `json:"last_update"`
}
