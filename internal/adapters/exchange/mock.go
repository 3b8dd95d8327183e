package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkraev/binance-assistant/pkg/models"
)

// MockExchange implements Exchange for paper trading and tests. Market
// orders fill immediately at the simulated price; limit orders stay NEW.
type MockExchange struct {
	mu        sync.Mutex
	name      string
	lastPrice float64
	orders    map[string]*models.OrderResult // keyed by client order ID
	seq       int
}

// NewMockExchange creates new mock exchange
func NewMockExchange(name string, startPrice float64) *MockExchange {
	return &MockExchange{
		name:      name,
		lastPrice: startPrice,
		orders:    make(map[string]*models.OrderResult),
	}
}

// SetPrice pins the simulated market price.
func (m *MockExchange) SetPrice(price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrice = price
}

func (m *MockExchange) GetName() string {
	return m.name
}

func (m *MockExchange) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	result := &models.OrderResult{
		OrderID:   fmt.Sprintf("mock_%d", m.seq),
		Symbol:    req.Symbol,
		Timestamp: time.Now().UTC(),
	}

	if req.Type == models.TypeMarket {
		result.Status = models.StatusFilled
		result.ExecutedQty = req.Quantity
		result.AvgPrice = models.NewDecimal(m.lastPrice)
	} else {
		result.Status = models.StatusNew
	}

	if req.ClientOrderID != "" {
		m.orders[req.ClientOrderID] = result
	}

	return result, nil
}

func (m *MockExchange) FetchOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*models.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order, ok := m.orders[clientOrderID]; ok {
		return order, nil
	}
	return nil, ErrOrderNotFound
}

func (m *MockExchange) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.NewDecimal(m.lastPrice), nil
}

func (m *MockExchange) ClosePrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	m.mu.Lock()
	price := m.lastPrice
	m.mu.Unlock()

	// Random walk ending at the current price
	closes := make([]float64, limit)
	closes[limit-1] = price
	for i := limit - 2; i >= 0; i-- {
		closes[i] = closes[i+1] * (1.0 + (rand.Float64()-0.5)*0.01)
	}
	return closes, nil
}

func (m *MockExchange) FetchAccount(ctx context.Context) (*models.AccountSummary, error) {
	return &models.AccountSummary{
		TotalWalletBalance: models.NewDecimal(10000),
		AvailableBalance:   models.NewDecimal(10000),
		Timestamp:          time.Now().UTC(),
	}, nil
}

func (m *MockExchange) Close() error {
	return nil
}
