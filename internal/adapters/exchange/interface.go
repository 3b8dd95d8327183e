package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mkraev/binance-assistant/pkg/models"
)

// Exchange is the narrow surface the strategy engine and dashboard need.
// Every call is bounded by the request timeout configured on the adapter.
type Exchange interface {
	// GetName returns exchange name
	GetName() string

	// PlaceOrder submits a market or limit order and returns the
	// normalized result as reported by the exchange.
	PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error)

	// FetchOrderByClientID looks up an order by its client order ID.
	// Used after a timed-out placement to decide whether the order is
	// already live before retrying. Returns ErrOrderNotFound when the
	// exchange has no such order.
	FetchOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*models.OrderResult, error)

	// CurrentPrice returns the last traded price for symbol.
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// ClosePrices returns up to limit recent close prices for symbol,
	// oldest first. Used for indicator windows.
	ClosePrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error)

	// FetchAccount returns balance and open positions for the dashboard.
	FetchAccount(ctx context.Context) (*models.AccountSummary, error)

	// Close releases adapter resources.
	Close() error
}
