package metrics

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/curatewatch/engine/internal/store"
)

func TestSnapshotCountsAndOrdering(t *testing.T) {
	m := NewMetricsTracker()

	m.RecordEvaluation(store.Evaluation{ItemID: "b", Status: "registered"})
	m.RecordEvaluation(store.Evaluation{ItemID: "a", Status: "registered"})
	m.RecordEvaluation(store.Evaluation{ItemID: "c", Status: "crowdfunding",
		Requester:  &store.SideFees{Required: big.NewInt(1), Deadline: 3000},
		Challenger: &store.SideFees{Required: big.NewInt(1), Deadline: 3000},
	})
	m.RecordEvaluation(store.Evaluation{ItemID: "d", Status: "crowdfunding-winner-only",
		Requester: &store.SideFees{Required: big.NewInt(1), Deadline: 2000},
	})
	// Re-evaluation replaces the previous status.
	m.RecordEvaluation(store.Evaluation{ItemID: "b", Status: "pending-removal"})

	snap := m.Snapshot()
	if snap.ItemsTracked != 4 {
		t.Errorf("Expected 4 items, got %d", snap.ItemsTracked)
	}
	if snap.EvaluationsTotal != 5 {
		t.Errorf("Expected 5 evaluations, got %d", snap.EvaluationsTotal)
	}
	if snap.StatusCounts["registered"] != 1 || snap.StatusCounts["pending-removal"] != 1 {
		t.Errorf("Unexpected counts %v", snap.StatusCounts)
	}
	if snap.Items[0].ItemID != "a" || snap.Items[3].ItemID != "d" {
		t.Errorf("Expected items sorted by ID, got %v", snap.Items)
	}
	if len(snap.Crowdfunding) != 2 || snap.Crowdfunding[0].ItemID != "d" {
		t.Errorf("Expected crowdfunding sorted by deadline, got %v", snap.Crowdfunding)
	}
}

func TestRecordPoll(t *testing.T) {
	m := NewMetricsTracker()

	m.RecordPoll(12, nil)
	m.RecordPoll(0, errors.New("subgraph error: indexing"))

	snap := m.Snapshot()
	if snap.PollsTotal != 2 || snap.PollErrors != 1 {
		t.Errorf("Expected 2 polls and 1 error, got %d/%d", snap.PollsTotal, snap.PollErrors)
	}
	if snap.LastPollItems != 12 || snap.LastPoll.IsZero() {
		t.Errorf("Expected last good poll to be kept, got %d at %v", snap.LastPollItems, snap.LastPoll)
	}
	if snap.LastPollError == "" {
		t.Error("Expected last poll error to be recorded")
	}

	m.RecordPoll(3, nil)
	if m.Snapshot().LastPollError != "" {
		t.Error("Expected a good poll to clear the error")
	}
}

func TestSetHeadIgnoresStale(t *testing.T) {
	m := NewMetricsTracker()
	m.SetHead(store.Head{Number: 10, Timestamp: 100})
	m.SetHead(store.Head{Number: 9, Timestamp: 90})

	if got := m.Snapshot().Head.Number; got != 10 {
		t.Errorf("Expected head 10, got %d", got)
	}
}

func TestCleanup(t *testing.T) {
	m := NewMetricsTracker()
	m.RecordEvaluation(store.Evaluation{ItemID: "a", Status: "registered"})

	m.Cleanup(time.Hour)
	if m.Snapshot().ItemsTracked != 1 {
		t.Error("Expected fresh item to survive cleanup")
	}

	m.Cleanup(-time.Second)
	if m.Snapshot().ItemsTracked != 0 {
		t.Error("Expected stale item to be removed")
	}
}
