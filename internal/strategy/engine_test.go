package strategy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkraev/binance-assistant/internal/adapters/config"
	"github.com/mkraev/binance-assistant/internal/adapters/exchange"
	"github.com/mkraev/binance-assistant/pkg/models"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		GridPollInterval: 5 * time.Millisecond,
		MaxRetries:       3,
		RetryBackoff:     time.Millisecond,
		MaxSkips:         2,
	}
}

// waitTerminal polls until the run reaches a terminal status.
func waitTerminal(t *testing.T, eng *Engine, id string, timeout time.Duration) Snapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		snap, err := eng.Status(id)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	snap, _ := eng.Status(id)
	t.Fatalf("run %s did not finish in %v, status %s", id, timeout, snap.Status)
	return Snapshot{}
}

func TestEngine_SubmitRejectsInvalidSpec(t *testing.T) {
	eng := NewEngine(testEngineConfig(), exchange.NewMockExchange("test", 65000), nil, nil)
	defer eng.Close()

	spec := validTWAP()
	spec.Slices = 0
	if _, err := eng.Submit(context.Background(), spec); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
	if len(eng.List()) != 0 {
		t.Error("invalid spec must not create a run")
	}
}

func TestEngine_TWAPCompletes(t *testing.T) {
	ex := exchange.NewMockExchange("test", 65000)
	eng := NewEngine(testEngineConfig(), ex, nil, nil)
	defer eng.Close()

	spec := validTWAP()
	spec.TotalQuantity = decimal.RequireFromString("0.002")
	spec.Slices = 3
	spec.Duration = 30 * time.Millisecond

	id, err := eng.Submit(context.Background(), spec)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := waitTerminal(t, eng, id, 2*time.Second)
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (%s)", snap.Status, snap.Reason)
	}
	if len(snap.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(snap.Results))
	}

	sum := decimal.Zero
	for _, res := range snap.Results {
		if res.Outcome != OutcomeFilled {
			t.Errorf("step %d outcome = %s, want FILLED", res.Index, res.Outcome)
		}
		if res.OrderID == "" {
			t.Errorf("step %d missing order ID", res.Index)
		}
		sum = sum.Add(res.Quantity)
	}
	if !sum.Equal(spec.TotalQuantity) {
		t.Errorf("executed quantity %s != total %s", sum, spec.TotalQuantity)
	}
}

func TestEngine_GridFiresLevelsAsPriceMoves(t *testing.T) {
	ex := exchange.NewMockExchange("test", 105)
	eng := NewEngine(testEngineConfig(), ex, nil, nil)
	defer eng.Close()

	id, err := eng.Submit(context.Background(), validGrid())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// At 105 only the sell level at 105 can fire.
	waitResults(t, eng, id, 1)
	snap, _ := eng.Status(id)
	if snap.Results[0].Side != models.SideSell || !snap.Results[0].Price.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("first fired level = %s @ %s, want SELL @ 105", snap.Results[0].Side, snap.Results[0].Price)
	}

	ex.SetPrice(99)
	waitResults(t, eng, id, 2)

	ex.SetPrice(111)
	snap = waitTerminal(t, eng, id, 2*time.Second)
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (%s)", snap.Status, snap.Reason)
	}
	if len(snap.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(snap.Results))
	}
	for _, res := range snap.Results {
		if res.Outcome != OutcomeOpen {
			t.Errorf("level %d outcome = %s, want OPEN", res.Index, res.Outcome)
		}
	}
	if len(snap.PendingLevels) != 0 {
		t.Errorf("pending levels left: %v", snap.PendingLevels)
	}
}

func waitResults(t *testing.T, eng *Engine, id string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := eng.Status(id)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if len(snap.Results) >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("run %s never reached %d results", id, n)
}

func TestEngine_CancelStopsBetweenSteps(t *testing.T) {
	ex := exchange.NewMockExchange("test", 65000)
	eng := NewEngine(testEngineConfig(), ex, nil, nil)
	defer eng.Close()

	spec := validTWAP()
	spec.Slices = 4
	spec.Duration = 2 * time.Second

	id, err := eng.Submit(context.Background(), spec)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// First slice fires immediately, the rest are spaced 500ms apart.
	waitResults(t, eng, id, 1)
	if err := eng.Cancel(id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	snap := waitTerminal(t, eng, id, 2*time.Second)
	if snap.Status != StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", snap.Status)
	}
	if len(snap.Results) != 1 {
		t.Errorf("got %d results after cancel, want 1", len(snap.Results))
	}

	if err := eng.Cancel(id); err == nil {
		t.Error("cancelling a finished run should fail")
	}
}

func TestEngine_CancelUnknownRun(t *testing.T) {
	eng := NewEngine(testEngineConfig(), exchange.NewMockExchange("test", 65000), nil, nil)
	defer eng.Close()

	if err := eng.Cancel("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type stubRSI struct {
	value float64
	err   error
}

func (s stubRSI) GetRSI(ctx context.Context, symbol string) (float64, error) {
	return s.value, s.err
}

func TestEngine_ConditionGate(t *testing.T) {
	below := 30.0

	t.Run("satisfied condition lets steps through", func(t *testing.T) {
		ex := exchange.NewMockExchange("test", 65000)
		eng := NewEngine(testEngineConfig(), ex, stubRSI{value: 25}, nil)
		defer eng.Close()

		spec := validTWAP()
		spec.Duration = 20 * time.Millisecond
		spec.Conditions.RSIBelow = &below

		id, _ := eng.Submit(context.Background(), spec)
		snap := waitTerminal(t, eng, id, 2*time.Second)
		if snap.Status != StatusCompleted {
			t.Fatalf("status = %s, want COMPLETED (%s)", snap.Status, snap.Reason)
		}
	})

	t.Run("unavailable input exhausts skip budget", func(t *testing.T) {
		ex := exchange.NewMockExchange("test", 65000)
		eng := NewEngine(testEngineConfig(), ex, stubRSI{err: errors.New("feed down")}, nil)
		defer eng.Close()

		spec := validTWAP()
		spec.Slices = 2
		spec.Duration = 20 * time.Millisecond
		spec.Conditions.RSIBelow = &below

		id, _ := eng.Submit(context.Background(), spec)
		snap := waitTerminal(t, eng, id, 2*time.Second)
		if snap.Status != StatusFailed {
			t.Fatalf("status = %s, want FAILED", snap.Status)
		}
		if !strings.Contains(snap.Reason, "condition never satisfied") {
			t.Errorf("reason = %q", snap.Reason)
		}
		if len(snap.Results) != 2 {
			t.Fatalf("got %d results, want 2 skips", len(snap.Results))
		}
		for _, res := range snap.Results {
			if res.Outcome != OutcomeSkippedCondition {
				t.Errorf("outcome = %s, want SKIPPED_CONDITION", res.Outcome)
			}
			if !strings.Contains(res.Detail, "rsi unavailable") {
				t.Errorf("detail = %q, want rsi unavailable", res.Detail)
			}
		}
	})
}

// flakyExchange fails the first n placements with a retryable error.
// With recordBeforeFail it stores the order first, simulating a reply
// lost after the exchange accepted it.
type flakyExchange struct {
	*exchange.MockExchange

	mu               sync.Mutex
	failures         int
	recordBeforeFail bool
	placeCalls       int
	failErr          error
}

func (f *flakyExchange) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	f.mu.Lock()
	f.placeCalls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if !fail {
		return f.MockExchange.PlaceOrder(ctx, req)
	}
	if f.recordBeforeFail {
		f.MockExchange.PlaceOrder(ctx, req)
	}
	if f.failErr != nil {
		return nil, f.failErr
	}
	return nil, exchange.NewRetryable("simulated timeout")
}

func (f *flakyExchange) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placeCalls
}

func TestEngine_RetryAfterTransientFailure(t *testing.T) {
	ex := &flakyExchange{MockExchange: exchange.NewMockExchange("test", 65000), failures: 2}
	eng := NewEngine(testEngineConfig(), ex, nil, nil)
	defer eng.Close()

	spec := validTWAP()
	spec.Slices = 1
	spec.Duration = time.Millisecond

	id, _ := eng.Submit(context.Background(), spec)
	snap := waitTerminal(t, eng, id, 2*time.Second)
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (%s)", snap.Status, snap.Reason)
	}
	if got := ex.calls(); got != 3 {
		t.Errorf("place calls = %d, want 3", got)
	}
	if len(snap.Results) != 1 || snap.Results[0].Outcome != OutcomeFilled {
		t.Fatalf("unexpected results: %+v", snap.Results)
	}
}

// A reply lost after acceptance must not produce a second live order:
// the retry path looks the order up by client order ID first.
func TestEngine_RetryFindsOrderByClientID(t *testing.T) {
	ex := &flakyExchange{
		MockExchange:     exchange.NewMockExchange("test", 65000),
		failures:         1,
		recordBeforeFail: true,
	}
	eng := NewEngine(testEngineConfig(), ex, nil, nil)
	defer eng.Close()

	spec := validTWAP()
	spec.Slices = 1
	spec.Duration = time.Millisecond

	id, _ := eng.Submit(context.Background(), spec)
	snap := waitTerminal(t, eng, id, 2*time.Second)
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (%s)", snap.Status, snap.Reason)
	}
	if got := ex.calls(); got != 1 {
		t.Errorf("place calls = %d, want 1 (retry must reuse the accepted order)", got)
	}
}

func TestEngine_RejectionFailsRun(t *testing.T) {
	ex := &flakyExchange{
		MockExchange: exchange.NewMockExchange("test", 65000),
		failures:     1,
		failErr:      exchange.NewRejected(-2010, "insufficient margin"),
	}
	eng := NewEngine(testEngineConfig(), ex, nil, nil)
	defer eng.Close()

	spec := validTWAP()
	spec.Slices = 2
	spec.Duration = 10 * time.Millisecond

	id, _ := eng.Submit(context.Background(), spec)
	snap := waitTerminal(t, eng, id, 2*time.Second)
	if snap.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", snap.Status)
	}
	if len(snap.Results) != 1 || snap.Results[0].Outcome != OutcomeRejected {
		t.Fatalf("unexpected results: %+v", snap.Results)
	}
	if got := ex.calls(); got != 1 {
		t.Errorf("place calls = %d, rejection must not be retried", got)
	}
}

func TestEngine_PurgeKeepsActiveRuns(t *testing.T) {
	ex := exchange.NewMockExchange("test", 65000)
	eng := NewEngine(testEngineConfig(), ex, nil, nil)
	defer eng.Close()

	done := validTWAP()
	done.Duration = time.Millisecond
	doneID, _ := eng.Submit(context.Background(), done)
	waitTerminal(t, eng, doneID, 2*time.Second)

	// Grid at a price outside the range never fires on its own.
	ex.SetPrice(200)
	active := validGrid()
	activeID, _ := eng.Submit(context.Background(), active)

	if purged := eng.Purge(); purged != 1 {
		t.Errorf("purged %d runs, want 1", purged)
	}
	if _, err := eng.Status(doneID); !errors.Is(err, ErrNotFound) {
		t.Error("finished run should be gone after purge")
	}
	if _, err := eng.Status(activeID); err != nil {
		t.Error("active run must survive purge")
	}

	if err := eng.Cancel(activeID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitTerminal(t, eng, activeID, 2*time.Second)
}
