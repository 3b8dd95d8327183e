// Package telegram runs the chat interface: strategy commands plus
// free-text orders routed through the NLP parser.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkraev/binance-assistant/internal/adapters/config"
	"github.com/mkraev/binance-assistant/internal/nlp"
	"github.com/mkraev/binance-assistant/internal/strategy"
	"github.com/mkraev/binance-assistant/pkg/logger"
)

// Bot wires Telegram commands to the strategy engine.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	engine *strategy.Engine
	parser *nlp.Parser
}

// NewBot creates the bot and verifies the token with Telegram.
func NewBot(cfg config.TelegramConfig, eng *strategy.Engine, parser *nlp.Parser) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	logger.Info("Telegram bot initialized", zap.String("username", api.Self.UserName))

	return &Bot{
		api:    api,
		chatID: cfg.ChatID,
		engine: eng,
		parser: parser,
	}, nil
}

// Start polls for updates until the context is cancelled. Messages
// from any chat other than the configured one are ignored.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	logger.Info("Telegram bot started, listening for commands")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			if update.Message.Chat.ID != b.chatID {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

// NotifyRun is an engine notifier pushing terminal run transitions to
// the chat.
func (b *Bot) NotifyRun(snap strategy.Snapshot) {
	if !snap.Status.Terminal() {
		return
	}
	message := fmt.Sprintf(
		"📊 *RUN %s*\n\nID: `%s`\nStrategy: *%s* %s\nSteps done: `%d/%d`",
		snap.Status, snap.RunID, snap.Kind, snap.Symbol,
		len(snap.Results), snap.PlannedSteps,
	)
	if snap.Reason != "" {
		message += fmt.Sprintf("\nReason: _%s_", snap.Reason)
	}
	if err := b.sendMessage(message); err != nil {
		logger.Error("Failed to send run notification", zap.Error(err))
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	var response string
	var err error

	if message.IsCommand() {
		response, err = b.handleCommand(ctx, message)
	} else {
		response, err = b.handleFreeText(ctx, message.Text)
	}
	if err != nil {
		response = fmt.Sprintf("❌ Error: %v", err)
		logger.Error("Telegram handler error", zap.Error(err))
	}
	if response == "" {
		return
	}
	if err := b.sendMessage(response); err != nil {
		logger.Error("Failed to send telegram response", zap.Error(err))
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) (string, error) {
	command := message.Command()
	args := strings.TrimSpace(message.CommandArguments())

	logger.Info("Received telegram command",
		zap.String("command", command),
		zap.Int64("from_chat", message.Chat.ID))

	switch command {
	case "start", "help":
		return helpMessage, nil
	case "runs":
		return b.formatRuns(), nil
	case "status":
		if args == "" {
			return "Usage: /status <run_id>", nil
		}
		snap, err := b.engine.Status(args)
		if err != nil {
			return "", err
		}
		return formatRun(snap), nil
	case "cancel":
		if args == "" {
			return "Usage: /cancel <run_id>", nil
		}
		if err := b.engine.Cancel(args); err != nil {
			return "", err
		}
		return fmt.Sprintf("🛑 Cancellation requested for `%s`", args), nil
	case "purge":
		return fmt.Sprintf("🧹 Purged %d finished runs", b.engine.Purge()), nil
	default:
		return fmt.Sprintf("❓ Unknown command: /%s\nUse /help to see available commands", command), nil
	}
}

// handleFreeText parses plain text as a trading command and submits
// the result when the parser is confident enough.
func (b *Bot) handleFreeText(ctx context.Context, text string) (string, error) {
	if b.parser == nil || !b.parser.IsEnabled() {
		return "💬 Free-text commands need the NLP parser enabled. Use /help for commands.", nil
	}

	result, err := b.parser.Parse(ctx, text)
	if err != nil {
		return "", err
	}
	if result.Error != "" {
		return fmt.Sprintf("🤔 Could not parse that: %s", result.Error), nil
	}
	if result.Confidence < b.parser.MinConfidence() {
		return fmt.Sprintf("🤔 Not confident enough (%.0f%%). Try rephrasing, e.g.:\n_%s_",
			result.Confidence*100, nlp.ExampleCommands[0]), nil
	}

	if result.Intent == "market" {
		return "⚠️ Direct market orders are only available on the dashboard.", nil
	}

	spec, err := result.ToSpec()
	if err != nil {
		return "", err
	}
	id, err := b.engine.Submit(ctx, spec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ *%s* run started for %s\nID: `%s`\nConfidence: `%.0f%%`",
		spec.Kind, spec.Symbol, id, result.Confidence*100), nil
}

func (b *Bot) formatRuns() string {
	runs := b.engine.List()
	if len(runs) == 0 {
		return "No strategy runs yet."
	}
	var sb strings.Builder
	sb.WriteString("*Strategy runs:*\n")
	for _, snap := range runs {
		fmt.Fprintf(&sb, "\n`%s`\n%s %s — *%s* (%d/%d steps)\n",
			snap.RunID, snap.Kind, snap.Symbol, snap.Status,
			len(snap.Results), snap.PlannedSteps)
	}
	return sb.String()
}

func formatRun(snap strategy.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s %s* — %s\nID: `%s`\nSteps: `%d/%d`\n",
		snap.Kind, snap.Symbol, snap.Status, snap.RunID,
		len(snap.Results), snap.PlannedSteps)
	if snap.Reason != "" {
		fmt.Fprintf(&sb, "Reason: _%s_\n", snap.Reason)
	}
	for _, res := range snap.Results {
		fmt.Fprintf(&sb, "\n`#%d` %s %s — %s %s",
			res.Index, res.Side, res.Quantity, res.Outcome,
			res.Timestamp.Format(time.TimeOnly))
	}
	return sb.String()
}

func (b *Bot) sendMessage(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

const helpMessage = `🤖 *Trading Assistant*

Commands:
/runs — list strategy runs
/status <run_id> — run details
/cancel <run_id> — cancel a run
/purge — drop finished runs
/help — this message

Or just type a command in plain English:
_"Buy 0.5 BTC using TWAP over 1 hour with 12 slices"_`
