// Package nlp turns free-text trading commands into structured
// strategy specs via an OpenAI-compatible chat completion API.
package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mkraev/binance-assistant/internal/adapters/config"
	"github.com/mkraev/binance-assistant/internal/conditions"
	"github.com/mkraev/binance-assistant/internal/strategy"
	"github.com/mkraev/binance-assistant/pkg/logger"
	"github.com/mkraev/binance-assistant/pkg/models"
)

// ErrDisabled is returned when the parser has no API key configured.
var ErrDisabled = errors.New("nlp parser disabled")

// Parameters is the structured payload the model extracts.
type Parameters struct {
	Symbol          string         `json:"symbol"`
	Side            string         `json:"side,omitempty"`
	Quantity        float64        `json:"quantity,omitempty"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
	NumOrders       int            `json:"num_orders,omitempty"`
	LowerPrice      float64        `json:"lower_price,omitempty"`
	UpperPrice      float64        `json:"upper_price,omitempty"`
	Grids           int            `json:"grids,omitempty"`
	QtyPerGrid      float64        `json:"quantity_per_grid,omitempty"`
	Conditions      conditions.Set `json:"conditions,omitempty"`
}

// Result is the parser output: intent plus parameters, or an error
// message when the command was too ambiguous to act on.
type Result struct {
	Intent     string     `json:"intent"`
	Parameters Parameters `json:"parameters"`
	Confidence float64    `json:"confidence"`
	Error      string     `json:"error,omitempty"`
}

// Parser wraps a chat completion client with the command prompt.
type Parser struct {
	client  *openai.Client
	model   string
	minConf float64
	enabled bool
}

// NewParser builds a parser from config. BaseURL allows pointing at
// any OpenAI-compatible endpoint, including a local model server.
func NewParser(cfg config.NLPConfig) *Parser {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Parser{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		minConf: cfg.MinConf,
		enabled: cfg.Enabled && cfg.APIKey != "",
	}
}

// IsEnabled reports whether the parser can serve requests.
func (p *Parser) IsEnabled() bool { return p.enabled }

// MinConfidence is the threshold below which callers should ask the
// user to rephrase instead of acting.
func (p *Parser) MinConfidence() float64 { return p.minConf }

// Parse sends the command to the model and decodes the JSON reply.
func (p *Parser) Parse(ctx context.Context, command string) (*Result, error) {
	if !p.enabled {
		return nil, ErrDisabled
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return &Result{Confidence: 0, Error: "empty command"}, nil
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		MaxTokens:   500,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: command},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	logger.Debug("NLP response",
		zap.Duration("latency", time.Since(start)),
		zap.String("content", content))

	result, err := decodeResult(content)
	if err != nil {
		return nil, err
	}

	logger.Info("Parsed command",
		zap.String("intent", result.Intent),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

// decodeResult strips any markdown fencing the model wrapped the JSON
// in and validates the envelope.
func decodeResult(content string) (*Result, error) {
	content = stripFences(strings.TrimSpace(content))

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	switch result.Intent {
	case "twap", "grid", "market":
	case "":
		if result.Error == "" {
			result.Error = "missing intent in response"
		}
		result.Confidence = 0
	default:
		return &Result{
			Parameters: result.Parameters,
			Confidence: 0,
			Error:      fmt.Sprintf("unknown intent: %s", result.Intent),
		}, nil
	}
	return &result, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// ToSpec converts a twap or grid result into a strategy spec.
func (r *Result) ToSpec() (*strategy.Spec, error) {
	p := r.Parameters
	side := models.OrderSide(strings.ToUpper(p.Side))
	if side == "" {
		side = models.SideBuy
	}

	switch r.Intent {
	case "twap":
		return &strategy.Spec{
			Kind:          strategy.KindTWAP,
			Symbol:        p.Symbol,
			Side:          side,
			TotalQuantity: decimal.NewFromFloat(p.Quantity),
			Duration:      time.Duration(p.DurationSeconds * float64(time.Second)),
			Slices:        p.NumOrders,
			Conditions:    p.Conditions,
		}, nil
	case "grid":
		qty := p.QtyPerGrid
		if qty == 0 && p.Grids > 0 {
			qty = p.Quantity / float64(p.Grids)
		}
		return &strategy.Spec{
			Kind:        strategy.KindGrid,
			Symbol:      p.Symbol,
			LowerPrice:  decimal.NewFromFloat(p.LowerPrice),
			UpperPrice:  decimal.NewFromFloat(p.UpperPrice),
			Levels:      p.Grids,
			QtyPerLevel: decimal.NewFromFloat(qty),
			Conditions:  p.Conditions,
		}, nil
	default:
		return nil, fmt.Errorf("intent %q is not a strategy", r.Intent)
	}
}

// ToOrder converts a market result into a direct order request.
func (r *Result) ToOrder() (*models.OrderRequest, error) {
	if r.Intent != "market" {
		return nil, fmt.Errorf("intent %q is not a market order", r.Intent)
	}
	p := r.Parameters
	side := models.OrderSide(strings.ToUpper(p.Side))
	if side == "" {
		side = models.SideBuy
	}
	req := &models.OrderRequest{
		Symbol:   strings.ToUpper(p.Symbol),
		Side:     side,
		Type:     models.TypeMarket,
		Quantity: decimal.NewFromFloat(p.Quantity),
	}
	return req, req.Validate()
}
