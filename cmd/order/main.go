// One-shot CLI for placing a single MARKET or LIMIT order on the
// Binance Futures testnet (USDT-M).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mkraev/binance-assistant/internal/adapters/config"
	"github.com/mkraev/binance-assistant/internal/adapters/exchange"
	"github.com/mkraev/binance-assistant/pkg/logger"
	"github.com/mkraev/binance-assistant/pkg/models"
)

func main() {
	symbol := flag.String("symbol", "", "Trading symbol, e.g. BTCUSDT")
	side := flag.String("side", "", "BUY or SELL")
	orderType := flag.String("type", "", "MARKET or LIMIT")
	quantity := flag.Float64("quantity", 0, "Order quantity")
	price := flag.Float64("price", 0, "Limit price (required for LIMIT, omitted for MARKET)")
	flag.Parse()

	if err := run(*symbol, *side, *orderType, *quantity, *price); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(symbol, side, orderType string, quantity, price float64) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	req := models.OrderRequest{
		Symbol:        symbol,
		Side:          models.OrderSide(side),
		Type:          models.OrderType(orderType),
		Quantity:      models.NewDecimal(quantity),
		ClientOrderID: uuid.NewString(),
	}
	if price > 0 {
		req.Price = models.NewDecimal(price)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	printSummary(req)

	ex, err := exchange.NewBinanceAdapter(&cfg.Exchange)
	if err != nil {
		return err
	}
	defer ex.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := ex.PlaceOrder(ctx, req)
	if err != nil {
		return err
	}

	printResponse(result)
	return nil
}

func printSummary(req models.OrderRequest) {
	fmt.Println("Order request summary")
	fmt.Printf("  symbol: %s\n", req.Symbol)
	fmt.Printf("  side: %s\n", req.Side)
	fmt.Printf("  type: %s\n", req.Type)
	fmt.Printf("  quantity: %s\n", req.Quantity)
	if req.Type == models.TypeLimit {
		fmt.Printf("  price: %s\n", req.Price)
	} else {
		fmt.Println("  price: N/A")
	}
}

func printResponse(res *models.OrderResult) {
	avgPrice := "N/A"
	if res.AvgPrice.IsPositive() {
		avgPrice = res.AvgPrice.String()
	}
	fmt.Println("Order response details")
	fmt.Printf("  orderId: %s\n", res.OrderID)
	fmt.Printf("  status: %s\n", res.Status)
	fmt.Printf("  executedQty: %s\n", res.ExecutedQty)
	fmt.Printf("  avgPrice: %s\n", avgPrice)
}
