package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/curatewatch/engine/internal/store"
)

// Recorder persists transitions.
type Recorder interface {
	Record(ctx context.Context, t store.Transition) error
}

// Result is the outcome of handling one item.
type Result struct {
	Evaluation store.Evaluation
	Transition *store.Transition

	// AppealCostErr is set when the item was crowdfunding but its appeal
	// cost could not be read, so the evaluation carries no fees.
	AppealCostErr error
}

// Monitor runs each polled item through the evaluator and the transition
// tracker and records status changes.
type Monitor struct {
	evaluator *Evaluator
	tracker   *TransitionTracker
	history   Recorder
}

// New creates a Monitor. history may be nil to skip persistence.
func New(evaluator *Evaluator, tracker *TransitionTracker, history Recorder) *Monitor {
	return &Monitor{
		evaluator: evaluator,
		tracker:   tracker,
		history:   history,
	}
}

// Handle evaluates item and records a transition when its status changed.
// Appeal cost failures are logged and the fee-less evaluation is still used.
func (m *Monitor) Handle(ctx context.Context, item store.Item) (Result, error) {
	ev, err := m.evaluator.Evaluate(ctx, item)
	if err != nil && ev.Status == "" {
		return Result{}, err
	}

	res := Result{Evaluation: ev, AppealCostErr: err}
	if err != nil {
		slog.Warn("appeal_cost_unavailable", "item", shortID(item.ID), "error", err)
	}
	tr, changed := m.tracker.Observe(item.ID, ev.Status, time.Now())
	if !changed {
		return res, nil
	}
	res.Transition = &tr

	slog.Info("status_transition",
		"item", shortID(item.ID),
		"from", tr.From,
		"to", tr.To,
	)

	if m.history != nil {
		if err := m.history.Record(ctx, tr); err != nil {
			slog.Error("history_record_failed", "item", shortID(item.ID), "error", err)
		}
	}
	return res, nil
}

// shortID shortens an item ID for logging.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "..." + id[len(id)-4:]
}
