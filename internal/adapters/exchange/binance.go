package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mkraev/binance-assistant/internal/adapters/config"
	"github.com/mkraev/binance-assistant/pkg/logger"
	"github.com/mkraev/binance-assistant/pkg/models"
)

// BinanceAdapter wraps the CCXT Binance USDT-M futures client. A token
// bucket in front of every call keeps us inside the exchange rate limits.
type BinanceAdapter struct {
	exchange *ccxt.Binance
	limiter  *rate.Limiter
}

// NewBinanceAdapter creates new Binance adapter
func NewBinanceAdapter(cfg *config.ExchangeConfig) (*BinanceAdapter, error) {
	options := map[string]interface{}{
		"apiKey":  cfg.APIKey,
		"secret":  cfg.Secret,
		"timeout": cfg.RequestTimeout.Milliseconds(),
	}

	if cfg.Testnet {
		options["testnet"] = true
	}

	exchange := ccxt.NewBinance(options)
	exchange.SetOption("defaultType", "future")
	exchange.SetOption("adjustForTimeDifference", true)

	if err := exchange.LoadMarkets(); err != nil {
		return nil, fmt.Errorf("failed to load Binance markets: %w", err)
	}

	logger.Info("Binance adapter initialized",
		zap.Bool("testnet", cfg.Testnet),
		zap.Int("markets_count", len(exchange.Markets)),
	)

	return &BinanceAdapter{
		exchange: exchange,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestBurst),
	}, nil
}

func (b *BinanceAdapter) GetName() string {
	return "binance"
}

func (b *BinanceAdapter) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	side := strings.ToLower(string(req.Side))
	amount := models.ToFloat64(req.Quantity)

	params := map[string]interface{}{}
	if req.ClientOrderID != "" {
		params["newClientOrderId"] = req.ClientOrderID
	}

	var order *ccxt.Order
	var err error

	if req.Type == models.TypeMarket {
		order, err = b.exchange.CreateOrder(
			req.Symbol,
			"market",
			side,
			amount,
			ccxt.WithCreateOrderParams(params),
		)
	} else {
		order, err = b.exchange.CreateOrder(
			req.Symbol,
			"limit",
			side,
			amount,
			ccxt.WithCreateOrderPrice(models.ToFloat64(req.Price)),
			ccxt.WithCreateOrderParams(params),
		)
	}

	if err != nil {
		return nil, classify(err)
	}

	return toOrderResult(order), nil
}

func (b *BinanceAdapter) FetchOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*models.OrderResult, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	orders, err := b.exchange.FetchOpenOrders(symbol)
	if err != nil {
		return nil, classify(err)
	}

	for i := range orders {
		order := orders[i]
		if order.ClientOrderId != nil && *order.ClientOrderId == clientOrderID {
			return toOrderResult(&order), nil
		}
	}

	return nil, ErrOrderNotFound
}

func (b *BinanceAdapter) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	ticker, err := b.exchange.FetchTicker(symbol)
	if err != nil {
		return decimal.Zero, classify(err)
	}
	if ticker.Last == nil {
		return decimal.Zero, NewRetryable("ticker has no last price")
	}

	return models.NewDecimal(*ticker.Last), nil
}

func (b *BinanceAdapter) ClosePrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ohlcv, err := b.exchange.FetchOHLCV(
		symbol,
		ccxt.WithFetchOHLCVTimeframe(interval),
		ccxt.WithFetchOHLCVLimit(limit),
	)
	if err != nil {
		return nil, classify(err)
	}

	// Kline layout: [timestamp, open, high, low, close, volume]
	closes := make([]float64, len(ohlcv))
	for i, bar := range ohlcv {
		closes[i] = bar[4]
	}

	return closes, nil
}

func (b *BinanceAdapter) FetchAccount(ctx context.Context) (*models.AccountSummary, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	balance, err := b.exchange.FetchBalance()
	if err != nil {
		return nil, classify(err)
	}

	summary := &models.AccountSummary{
		TotalWalletBalance: models.NewDecimal(getFloat(balance, "total")),
		AvailableBalance:   models.NewDecimal(getFloat(balance, "free")),
		Timestamp:          time.Now().UTC(),
	}

	positions, err := b.exchange.FetchPositions()
	if err != nil {
		return nil, classify(err)
	}

	for _, pos := range positions {
		contracts := getFloat(pos, "contracts")
		if contracts == 0 {
			continue
		}
		summary.Positions = append(summary.Positions, models.PositionSummary{
			Symbol:        getString(pos, "symbol"),
			Size:          models.NewDecimal(contracts),
			EntryPrice:    models.NewDecimal(getFloat(pos, "entryPrice")),
			UnrealizedPnL: models.NewDecimal(getFloat(pos, "unrealizedPnl")),
			Leverage:      int(getFloat(pos, "leverage")),
		})
	}

	return summary, nil
}

func (b *BinanceAdapter) Close() error {
	// CCXT doesn't require explicit connection closing
	return nil
}

func toOrderResult(order *ccxt.Order) *models.OrderResult {
	res := &models.OrderResult{
		Status:    models.StatusNew,
		Timestamp: time.Now().UTC(),
	}
	if order.Id != nil {
		res.OrderID = *order.Id
	}
	if order.Symbol != nil {
		res.Symbol = *order.Symbol
	}
	if order.Status != nil {
		res.Status = normalizeStatus(*order.Status)
	}
	if order.Filled != nil {
		res.ExecutedQty = models.NewDecimal(*order.Filled)
	}
	if order.Average != nil {
		res.AvgPrice = models.NewDecimal(*order.Average)
	}
	if order.Timestamp != nil {
		res.Timestamp = time.UnixMilli(*order.Timestamp)
	}
	return res
}

// normalizeStatus maps ccxt order states onto the Binance status set.
func normalizeStatus(status string) models.OrderStatus {
	switch strings.ToLower(status) {
	case "closed", "filled":
		return models.StatusFilled
	case "canceled", "cancelled", "expired":
		return models.StatusCanceled
	case "rejected":
		return models.StatusRejected
	default:
		return models.StatusNew
	}
}

// Helper functions
func getFloat(m interface{}, key string) float64 {
	if m == nil {
		return 0
	}
	if mmap, ok := m.(map[string]interface{}); ok {
		if val, ok := mmap[key]; ok {
			if fval, ok := val.(float64); ok {
				return fval
			}
		}
	}
	return 0
}

func getString(m interface{}, key string) string {
	if m == nil {
		return ""
	}
	if mmap, ok := m.(map[string]interface{}); ok {
		if val, ok := mmap[key]; ok {
			if sval, ok := val.(string); ok {
				return sval
			}
		}
	}
	return ""
}
