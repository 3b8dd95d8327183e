package strategy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mkraev/binance-assistant/internal/adapters/config"
	"github.com/mkraev/binance-assistant/internal/adapters/exchange"
	"github.com/mkraev/binance-assistant/internal/conditions"
	"github.com/mkraev/binance-assistant/pkg/logger"
	"github.com/mkraev/binance-assistant/pkg/models"
)

// cancelCheckInterval bounds how long a sleeping run can take to
// notice a cancellation request.
const cancelCheckInterval = 500 * time.Millisecond

// RSIProvider supplies the current RSI value for a symbol.
type RSIProvider interface {
	GetRSI(ctx context.Context, symbol string) (float64, error)
}

// SentimentProvider supplies the current sentiment snapshot for a symbol.
type SentimentProvider interface {
	Snapshot(symbol string) (*models.SentimentSnapshot, error)
}

// Notifier receives a snapshot after every run state change.
type Notifier func(Snapshot)

// Engine owns all strategy runs. Each submitted run executes on its
// own goroutine; the engine only ever touches the exchange between
// cancellation checkpoints, so an in-flight order is never abandoned.
type Engine struct {
	cfg       config.EngineConfig
	exchange  exchange.Exchange
	rsi       RSIProvider
	sentiment SentimentProvider
	registry  *Registry

	mu        sync.Mutex
	notifiers []Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates an engine. rsi and sentiment may be nil; runs with
// conditions that need them then fail safe at the gate.
func NewEngine(cfg config.EngineConfig, ex exchange.Exchange, rsi RSIProvider, sentiment SentimentProvider) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:       cfg,
		exchange:  ex,
		rsi:       rsi,
		sentiment: sentiment,
		registry:  NewRegistry(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Subscribe registers a notifier for run state changes.
func (e *Engine) Subscribe(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifiers = append(e.notifiers, n)
}

func (e *Engine) notify(run *Run) {
	e.mu.Lock()
	subs := append([]Notifier(nil), e.notifiers...)
	e.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	snap := run.Snapshot()
	for _, n := range subs {
		n(snap)
	}
}

// Close requests cancellation of every active run and waits for their
// goroutines to finish.
func (e *Engine) Close() {
	for _, snap := range e.registry.List() {
		if !snap.Status.Terminal() {
			if run, err := e.registry.Get(snap.RunID); err == nil {
				run.RequestCancel()
			}
		}
	}
	e.cancel()
	e.wg.Wait()
}

// Submit validates the spec, plans its steps and starts the run.
// For grid specs the level sides are fixed here, from a single market
// price snapshot; they never flip afterwards.
func (e *Engine) Submit(ctx context.Context, spec *Spec) (string, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return "", err
	}

	var steps []Step
	switch spec.Kind {
	case KindTWAP:
		steps = planTWAP(spec)
	case KindGrid:
		price, err := e.exchange.CurrentPrice(ctx, spec.Symbol)
		if err != nil {
			return "", fmt.Errorf("fetch market price for %s: %w", spec.Symbol, err)
		}
		steps = planGrid(spec, price)
	}

	run := newRun(uuid.NewString(), spec, steps)
	e.registry.Add(run)

	logger.Info("Strategy run submitted",
		zap.String("run_id", run.ID),
		zap.String("kind", string(spec.Kind)),
		zap.String("symbol", spec.Symbol),
		zap.Int("steps", len(steps)))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.execute(run)
	}()

	return run.ID, nil
}

// Cancel requests cooperative cancellation. The run stops at its next
// step or poll boundary; a step already talking to the exchange
// completes and is recorded first.
func (e *Engine) Cancel(id string) error {
	run, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if run.Status().Terminal() {
		return fmt.Errorf("run %s already %s", id, run.Status())
	}
	run.RequestCancel()
	logger.Info("Cancellation requested", zap.String("run_id", id))
	return nil
}

// Status returns a snapshot of one run.
func (e *Engine) Status(id string) (Snapshot, error) {
	run, err := e.registry.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return run.Snapshot(), nil
}

// List returns snapshots of all runs, newest first.
func (e *Engine) List() []Snapshot {
	return e.registry.List()
}

// Purge drops finished runs from the registry.
func (e *Engine) Purge() int {
	return e.registry.Purge()
}

func (e *Engine) execute(run *Run) {
	run.setStatus(StatusRunning, "")
	e.notify(run)

	var err error
	switch run.Spec.Kind {
	case KindTWAP:
		err = e.runTWAP(run)
	case KindGrid:
		err = e.runGrid(run)
	}

	switch {
	case err != nil:
		run.setStatus(StatusFailed, err.Error())
		logger.Error("Strategy run failed", zap.String("run_id", run.ID), zap.Error(err))
	case run.CancelRequested() && run.remaining() > 0:
		run.setStatus(StatusCancelled, "cancelled by user")
		logger.Info("Strategy run cancelled", zap.String("run_id", run.ID))
	default:
		run.setStatus(StatusCompleted, "")
		logger.Info("Strategy run completed", zap.String("run_id", run.ID))
	}
	e.notify(run)
}

// runTWAP executes slices on an absolute schedule anchored at the
// start time, so per-slice latency never accumulates as drift. A slice
// blocked by its condition gate is retried at the next boundary; the
// boundaries of later slices stay where they were, which means they
// fire immediately once their time has passed.
func (e *Engine) runTWAP(run *Run) error {
	spec := run.Spec
	interval := spec.SliceInterval()
	start := time.Now()
	target := start
	skips := 0

	cursor := run.progress.(*SequentialCursor)
	for {
		run.mu.Lock()
		next, total := cursor.Next, cursor.Total
		run.mu.Unlock()
		if next >= total {
			return nil
		}

		if !e.waitUntil(run, target) {
			return nil
		}

		step := run.steps[next]

		ok, reasons := e.evaluateConditions(run)
		if !ok {
			skips++
			run.appendResult(StepResult{
				Index:    step.Index,
				Side:     step.Side,
				Quantity: step.Quantity,
				Outcome:  OutcomeSkippedCondition,
				Detail:   strings.Join(reasons, "; "),
			})
			if skips >= e.cfg.MaxSkips {
				return ErrConditionNeverSatisfied
			}
			run.setStatus(StatusPaused, strings.Join(reasons, "; "))
			e.notify(run)
			target = target.Add(interval)
			continue
		}
		skips = 0
		run.setStatus(StatusRunning, "")

		res, placed, err := e.placeStep(run, step)
		if !placed {
			return nil
		}
		run.appendResult(res)
		if err != nil {
			return err
		}
		run.advanceCursor()
		e.notify(run)

		target = start.Add(time.Duration(step.Index+1) * interval)
	}
}

// runGrid polls the market price and fires every still-pending level
// the price has reached. Sides were fixed at submission, so a level is
// placed at most once no matter how often price crosses it.
func (e *Engine) runGrid(run *Run) error {
	spec := run.Spec
	skips := 0

	ticker := time.NewTicker(e.cfg.GridPollInterval)
	defer ticker.Stop()

	for {
		if run.CancelRequested() {
			return nil
		}
		if run.remaining() == 0 {
			return nil
		}

		price, err := e.exchange.CurrentPrice(e.ctx, spec.Symbol)
		if err != nil {
			logger.Warn("Grid price poll failed",
				zap.String("run_id", run.ID),
				zap.String("symbol", spec.Symbol),
				zap.Error(err))
			if !e.sleepTick(run, ticker) {
				return nil
			}
			continue
		}

		fired, err := e.fireTriggeredLevels(run, price, &skips)
		if err != nil {
			return err
		}
		if fired {
			e.notify(run)
		}

		if run.remaining() == 0 {
			return nil
		}
		if !e.sleepTick(run, ticker) {
			return nil
		}
	}
}

// fireTriggeredLevels places an order for every pending level the
// current price triggers. One condition snapshot gates the whole
// sweep; a blocked sweep counts one skip regardless of level count.
func (e *Engine) fireTriggeredLevels(run *Run, price decimal.Decimal, skips *int) (bool, error) {
	var triggeredSteps []Step
	run.mu.Lock()
	pending := run.progress.(*PendingLevels)
	for i := range run.steps {
		if pending.Unfired[i] && triggered(run.steps[i], price) {
			triggeredSteps = append(triggeredSteps, run.steps[i])
		}
	}
	run.mu.Unlock()

	if len(triggeredSteps) == 0 {
		return false, nil
	}

	ok, reasons := e.evaluateConditions(run)
	if !ok {
		*skips++
		for _, step := range triggeredSteps {
			run.appendResult(StepResult{
				Index:    step.Index,
				Side:     step.Side,
				Quantity: step.Quantity,
				Price:    step.Price,
				Outcome:  OutcomeSkippedCondition,
				Detail:   strings.Join(reasons, "; "),
			})
		}
		if *skips >= e.cfg.MaxSkips {
			return true, ErrConditionNeverSatisfied
		}
		run.setStatus(StatusPaused, strings.Join(reasons, "; "))
		e.notify(run)
		return true, nil
	}
	*skips = 0
	run.setStatus(StatusRunning, "")

	for _, step := range triggeredSteps {
		if run.CancelRequested() {
			return true, nil
		}
		res, placed, err := e.placeStep(run, step)
		if !placed {
			return true, nil
		}
		run.appendResult(res)
		if err != nil {
			return true, err
		}
		run.markLevelFired(step.Index)
	}
	return true, nil
}

// placeStep submits one order with a fresh client order ID, retrying
// retryable failures with exponential backoff. After a timeout the
// open orders are checked by client order ID first, so a retry can
// never double-place an order that actually reached the exchange.
// placed is false when cancellation interrupted the backoff; nothing
// was sent in that case and the caller should wind down.
func (e *Engine) placeStep(run *Run, step Step) (result StepResult, placed bool, err error) {
	req := models.OrderRequest{
		Symbol:        run.Spec.Symbol,
		Side:          step.Side,
		Type:          step.Type,
		Quantity:      step.Quantity,
		ClientOrderID: uuid.NewString(),
	}
	if step.Type == models.TypeLimit {
		req.Price = step.Price
	}

	result = StepResult{
		Index:    step.Index,
		Side:     step.Side,
		Quantity: step.Quantity,
		Price:    step.Price,
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := e.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			logger.Warn("Retrying order placement",
				zap.String("run_id", run.ID),
				zap.Int("step", step.Index),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			if !e.sleep(run, backoff) {
				return result, false, nil
			}
			if prior, err := e.exchange.FetchOrderByClientID(e.ctx, req.Symbol, req.ClientOrderID); err == nil {
				return stepResultFromOrder(result, prior), true, nil
			}
		}

		order, err := e.exchange.PlaceOrder(e.ctx, req)
		if err == nil {
			return stepResultFromOrder(result, order), true, nil
		}
		if !exchange.IsRetryable(err) {
			result.Outcome = OutcomeRejected
			result.Detail = err.Error()
			return result, true, fmt.Errorf("step %d rejected: %w", step.Index, err)
		}
		lastErr = err
	}

	result.Outcome = OutcomeError
	result.Detail = lastErr.Error()
	return result, true, fmt.Errorf("step %d failed after %d retries: %w", step.Index, e.cfg.MaxRetries, lastErr)
}

func stepResultFromOrder(result StepResult, order *models.OrderResult) StepResult {
	result.OrderID = order.OrderID
	switch order.Status {
	case models.StatusFilled:
		result.Outcome = OutcomeFilled
	case models.StatusRejected:
		result.Outcome = OutcomeRejected
		result.Detail = "rejected by exchange"
	default:
		result.Outcome = OutcomeOpen
	}
	return result
}

// evaluateConditions gathers whatever inputs the run's condition set
// needs and evaluates it. A provider error leaves the input nil, which
// the evaluator treats as not satisfied.
func (e *Engine) evaluateConditions(run *Run) (bool, []string) {
	set := run.Spec.Conditions
	if set.Empty() {
		return true, nil
	}

	var snap conditions.Snapshot
	if set.NeedsRSI() && e.rsi != nil {
		if rsi, err := e.rsi.GetRSI(e.ctx, run.Spec.Symbol); err == nil {
			snap.RSI = &rsi
		} else {
			logger.Debug("RSI unavailable", zap.String("symbol", run.Spec.Symbol), zap.Error(err))
		}
	}
	if set.NeedsSentiment() && e.sentiment != nil {
		if s, err := e.sentiment.Snapshot(run.Spec.Symbol); err == nil {
			score := s.Score
			snap.SentimentScore = &score
			snap.SentimentLabel = s.Label
		} else {
			logger.Debug("Sentiment unavailable", zap.String("symbol", run.Spec.Symbol), zap.Error(err))
		}
	}

	return conditions.Evaluate(set, snap)
}

// waitUntil sleeps until the target time, waking periodically to honor
// cancellation. Returns false if the run should stop.
func (e *Engine) waitUntil(run *Run, target time.Time) bool {
	for {
		if run.CancelRequested() {
			return false
		}
		d := time.Until(target)
		if d <= 0 {
			return true
		}
		if d > cancelCheckInterval {
			d = cancelCheckInterval
		}
		select {
		case <-e.ctx.Done():
			return false
		case <-time.After(d):
		}
	}
}

// sleep waits the given duration, honoring cancellation.
func (e *Engine) sleep(run *Run, d time.Duration) bool {
	return e.waitUntil(run, time.Now().Add(d))
}

// sleepTick waits for the next poll tick, honoring cancellation.
func (e *Engine) sleepTick(run *Run, ticker *time.Ticker) bool {
	select {
	case <-e.ctx.Done():
		return false
	case <-ticker.C:
		return !run.CancelRequested()
	}
}
