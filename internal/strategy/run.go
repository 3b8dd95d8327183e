package strategy

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkraev/binance-assistant/pkg/models"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED" // waiting out a failed condition gate
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// StepOutcome classifies the result of one step attempt.
type StepOutcome string

const (
	OutcomeFilled           StepOutcome = "FILLED"
	OutcomeOpen             StepOutcome = "OPEN"
	OutcomeRejected         StepOutcome = "REJECTED"
	OutcomeSkippedCondition StepOutcome = "SKIPPED_CONDITION"
	OutcomeError            StepOutcome = "ERROR"
)

// StepResult records one step attempt. Immutable once appended.
type StepResult struct {
	Index     int              `json:"index"`
	Side      models.OrderSide `json:"side"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     decimal.Decimal  `json:"price,omitempty"` // zero means market
	Outcome   StepOutcome      `json:"outcome"`
	OrderID   string           `json:"order_id,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Progress tracks how far a run has advanced. TWAP runs use a scalar
// cursor over a strictly ordered plan; grid runs track the set of
// levels that have not fired yet, since price can cross levels in any
// order.
type Progress interface {
	// Remaining returns how many planned steps have not reached a
	// terminal outcome.
	Remaining() int
}

// SequentialCursor is TWAP progress: index of the next step to execute.
type SequentialCursor struct {
	Next  int `json:"next"`
	Total int `json:"total"`
}

func (c *SequentialCursor) Remaining() int { return c.Total - c.Next }

// PendingLevels is grid progress: the unfired level indices.
type PendingLevels struct {
	Unfired map[int]bool `json:"-"`
	Total   int          `json:"total"`
}

func (p *PendingLevels) Remaining() int { return len(p.Unfired) }

// Indices returns the unfired levels in ascending order.
func (p *PendingLevels) Indices() []int {
	out := make([]int, 0, len(p.Unfired))
	for i := range p.Unfired {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Run is the mutable state of one strategy execution. Only the engine
// goroutine that owns the run appends results and advances progress;
// everything else reads snapshots.
type Run struct {
	ID   string
	Spec *Spec

	mu           sync.Mutex
	status       Status
	reason       string
	steps        []Step
	results      []StepResult
	progress     Progress
	createdAt    time.Time
	lastActionAt time.Time

	cancelRequested atomic.Bool
}

func newRun(id string, spec *Spec, steps []Step) *Run {
	var progress Progress
	if spec.Kind == KindGrid {
		unfired := make(map[int]bool, len(steps))
		for i := range steps {
			unfired[i] = true
		}
		progress = &PendingLevels{Unfired: unfired, Total: len(steps)}
	} else {
		progress = &SequentialCursor{Total: len(steps)}
	}

	now := time.Now().UTC()
	return &Run{
		ID:           id,
		Spec:         spec,
		status:       StatusPending,
		steps:        steps,
		progress:     progress,
		createdAt:    now,
		lastActionAt: now,
	}
}

// RequestCancel flags the run for cooperative cancellation. The engine
// honors it at the next step or poll boundary, never mid-order.
func (r *Run) RequestCancel() {
	r.cancelRequested.Store(true)
}

// CancelRequested reports whether cancellation was requested.
func (r *Run) CancelRequested() bool {
	return r.cancelRequested.Load()
}

// Status returns the current status.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Run) setStatus(status Status, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = status
	r.reason = reason
	r.lastActionAt = time.Now().UTC()
}

// appendResult records a step attempt.
func (r *Run) appendResult(res StepResult) {
	res.Timestamp = time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	r.lastActionAt = res.Timestamp
}

// advanceCursor moves the TWAP cursor one step forward.
func (r *Run) advanceCursor() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.progress.(*SequentialCursor); ok && c.Next < c.Total {
		c.Next++
	}
}

// markLevelFired removes a grid level from the unfired set.
func (r *Run) markLevelFired(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.progress.(*PendingLevels); ok {
		delete(p.Unfired, index)
	}
}

// remaining returns the number of unfinished steps.
func (r *Run) remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress.Remaining()
}

// Snapshot is a read-only copy of a run's state.
type Snapshot struct {
	RunID         string           `json:"run_id"`
	Kind          Kind             `json:"kind"`
	Symbol        string           `json:"symbol"`
	Side          models.OrderSide `json:"side,omitempty"`
	Status        Status           `json:"status"`
	Reason        string           `json:"reason,omitempty"`
	PlannedSteps  int              `json:"planned_steps"`
	Results       []StepResult     `json:"results"`
	Cursor        int              `json:"cursor,omitempty"`         // TWAP: next step index
	PendingLevels []int            `json:"pending_levels,omitempty"` // grid: unfired levels
	CreatedAt     time.Time        `json:"created_at"`
	LastActionAt  time.Time        `json:"last_action_at"`
}

// Snapshot copies the run state for external readers.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		RunID:        r.ID,
		Kind:         r.Spec.Kind,
		Symbol:       r.Spec.Symbol,
		Side:         r.Spec.Side,
		Status:       r.status,
		Reason:       r.reason,
		PlannedSteps: len(r.steps),
		Results:      append([]StepResult(nil), r.results...),
		CreatedAt:    r.createdAt,
		LastActionAt: r.lastActionAt,
	}

	switch p := r.progress.(type) {
	case *SequentialCursor:
		snap.Cursor = p.Next
	case *PendingLevels:
		snap.PendingLevels = p.Indices()
	}

	return snap
}
