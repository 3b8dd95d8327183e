package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mkraev/binance-assistant/internal/adapters/config"
	"github.com/mkraev/binance-assistant/internal/adapters/exchange"
	"github.com/mkraev/binance-assistant/internal/adapters/telegram"
	"github.com/mkraev/binance-assistant/internal/indicators"
	"github.com/mkraev/binance-assistant/internal/nlp"
	"github.com/mkraev/binance-assistant/internal/sentiment"
	"github.com/mkraev/binance-assistant/internal/strategy"
	"github.com/mkraev/binance-assistant/internal/web"
	"github.com/mkraev/binance-assistant/pkg/logger"
	"github.com/mkraev/binance-assistant/pkg/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Trading assistant starting...",
		zap.Bool("testnet", cfg.Exchange.Testnet),
		zap.Bool("paper", cfg.Exchange.Paper))

	ex, err := initExchange(cfg)
	if err != nil {
		return err
	}
	defer ex.Close()

	rsi := indicators.NewRSIService(ex, cfg.Engine.RSIPeriod, cfg.Engine.RSIInterval)

	aggregator := sentiment.NewAggregator(cfg.Sentiment.HistoryWindow)
	workers := startSentimentWorkers(ctx, cfg, aggregator)
	if workers != nil {
		defer workers.Stop(5 * time.Second)
	}

	engine := strategy.NewEngine(cfg.Engine, ex, rsi, aggregator)
	defer engine.Close()

	var parser *nlp.Parser
	if cfg.NLP.Enabled {
		parser = nlp.NewParser(cfg.NLP)
		logger.Info("NLP parser enabled", zap.String("model", cfg.NLP.Model))
	}

	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewBot(cfg.Telegram, engine, parser)
		if err != nil {
			return err
		}
		engine.Subscribe(bot.NotifyRun)
		go func() {
			if err := bot.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("Telegram bot stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Web.Enabled {
		server := web.NewServer(cfg.Web, engine, ex, parser, aggregator)
		return server.Run(ctx)
	}

	<-ctx.Done()
	return ctx.Err()
}

func initExchange(cfg *config.Config) (exchange.Exchange, error) {
	if cfg.Exchange.Paper {
		logger.Info("Paper trading mode, using mock exchange")
		return exchange.NewMockExchange("paper", 65000), nil
	}
	return exchange.NewBinanceAdapter(&cfg.Exchange)
}

func startSentimentWorkers(ctx context.Context, cfg *config.Config, aggregator *sentiment.Aggregator) *worker.Group {
	if !cfg.Sentiment.Enabled {
		return nil
	}

	sources := []sentiment.Source{
		sentiment.NewCoinDeskSource(cfg.Sentiment.CoinDeskEnabled),
		sentiment.NewRedditSource(cfg.Sentiment.RedditEnabled, cfg.Sentiment.Subreddits),
	}

	feed := sentiment.NewFeedWorker(sources, sentiment.NewAnalyzer(), aggregator, cfg.Sentiment.Keywords)

	group := worker.NewGroup(ctx)
	group.Add(feed, cfg.Sentiment.PollInterval)
	group.Start()

	logger.Info("Sentiment workers started",
		zap.Duration("poll_interval", cfg.Sentiment.PollInterval),
		zap.Duration("window", cfg.Sentiment.HistoryWindow))
	return group
}
