// Package metrics provides real-time metrics tracking for the watcher.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	ItemsTracked     int
	StatusCounts     map[string]int
	Items            []store.Evaluation // sorted by item ID
	Crowdfunding     []store.Evaluation // soonest deadline first
	EvaluationsTotal int64
	EvaluationRate   float64 // evaluations per second
	TransitionsTotal int64
	AppealCostErrors int64

	PollsTotal    int64
	PollErrors    int64
	LastPoll      time.Time
	LastPollItems int
	LastPollError string

	Head              store.Head
	HeadStatus        string
	Params            *store.RegistryParameters
	Uptime            time.Duration
	ChannelBufferUsed int
	ChannelBufferCap  int
}

type trackedItem struct {
	eval   store.Evaluation
	seenAt time.Time
}

// MetricsTracker provides thread-safe metrics tracking.
type MetricsTracker struct {
	mu               sync.RWMutex
	items            map[string]trackedItem
	evaluationsTotal int64
	evalTimestamps   []time.Time // for rate calculation
	transitionsTotal int64
	appealCostErrors int64

	pollsTotal    int64
	pollErrors    int64
	lastPoll      time.Time
	lastPollItems int
	lastPollError string

	head              store.Head
	headStatus        string
	params            *store.RegistryParameters
	startTime         time.Time
	channelBufferUsed int
	channelBufferCap  int
}

// NewMetricsTracker creates a new MetricsTracker.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{
		items:          make(map[string]trackedItem),
		evalTimestamps: make([]time.Time, 0, 1000),
		startTime:      time.Now(),
		headStatus:     "disconnected",
	}
}

// RecordEvaluation stores the latest evaluation of an item.
func (m *MetricsTracker) RecordEvaluation(ev store.Evaluation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.items[ev.ItemID] = trackedItem{eval: ev, seenAt: now}
	m.evaluationsTotal++

	m.evalTimestamps = append(m.evalTimestamps, now)

	// Keep only the last 60 seconds of timestamps
	cutoff := now.Add(-60 * time.Second)
	validIdx := 0
	for validIdx < len(m.evalTimestamps) && !m.evalTimestamps[validIdx].After(cutoff) {
		validIdx++
	}
	if validIdx > 0 {
		m.evalTimestamps = m.evalTimestamps[validIdx:]
	}
}

// RecordTransition counts a status transition.
func (m *MetricsTracker) RecordTransition(store.Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionsTotal++
}

// IncrementAppealCostErrors counts a failed appeal cost lookup.
func (m *MetricsTracker) IncrementAppealCostErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appealCostErrors++
}

// RecordPoll records the outcome of a subgraph poll.
func (m *MetricsTracker) RecordPoll(items int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pollsTotal++
	if err != nil {
		m.pollErrors++
		m.lastPollError = err.Error()
		return
	}
	m.lastPoll = time.Now()
	m.lastPollItems = items
	m.lastPollError = ""
}

// SetHead records the latest block head.
func (m *MetricsTracker) SetHead(h store.Head) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.Number > m.head.Number {
		m.head = h
	}
}

// SetHeadStatus sets the head subscription status.
func (m *MetricsTracker) SetHeadStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headStatus = status
}

// SetParams records the registry parameters in use.
func (m *MetricsTracker) SetParams(p *store.RegistryParameters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p
}

// SetChannelBuffer sets the channel buffer usage.
func (m *MetricsTracker) SetChannelBuffer(used, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channelBufferUsed = used
	m.channelBufferCap = capacity
}

// Snapshot returns a point-in-time snapshot of metrics.
func (m *MetricsTracker) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evalRate := 0.0
	if len(m.evalTimestamps) > 0 {
		duration := time.Since(m.evalTimestamps[0]).Seconds()
		if duration > 0 {
			evalRate = float64(len(m.evalTimestamps)) / duration
		}
	}

	counts := make(map[string]int)
	items := make([]store.Evaluation, 0, len(m.items))
	var crowdfunding []store.Evaluation
	for _, it := range m.items {
		counts[it.eval.Status]++
		items = append(items, it.eval)
		if status.Code(it.eval.Status).IsCrowdfunding() {
			crowdfunding = append(crowdfunding, it.eval)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	sort.Slice(crowdfunding, func(i, j int) bool {
		di, dj := nextDeadline(crowdfunding[i]), nextDeadline(crowdfunding[j])
		if di != dj {
			return di < dj
		}
		return crowdfunding[i].ItemID < crowdfunding[j].ItemID
	})

	return MetricsSnapshot{
		ItemsTracked:      len(m.items),
		StatusCounts:      counts,
		Items:             items,
		Crowdfunding:      crowdfunding,
		EvaluationsTotal:  m.evaluationsTotal,
		EvaluationRate:    evalRate,
		TransitionsTotal:  m.transitionsTotal,
		AppealCostErrors:  m.appealCostErrors,
		PollsTotal:        m.pollsTotal,
		PollErrors:        m.pollErrors,
		LastPoll:          m.lastPoll,
		LastPollItems:     m.lastPollItems,
		LastPollError:     m.lastPollError,
		Head:              m.head,
		HeadStatus:        m.headStatus,
		Params:            m.params,
		Uptime:            time.Since(m.startTime),
		ChannelBufferUsed: m.channelBufferUsed,
		ChannelBufferCap:  m.channelBufferCap,
	}
}

// nextDeadline returns the earliest funding deadline of an evaluation, or
// the largest int64 when it has none.
func nextDeadline(ev store.Evaluation) int64 {
	next := int64(1<<63 - 1)
	for _, sf := range []*store.SideFees{ev.Requester, ev.Challenger} {
		if sf != nil && sf.Deadline > 0 && sf.Deadline < next {
			next = sf.Deadline
		}
	}
	return next
}

// Cleanup drops items that have not been evaluated within maxAge, such as
// items that no longer appear in the subgraph.
func (m *MetricsTracker) Cleanup(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, it := range m.items {
		if it.seenAt.Before(cutoff) {
			delete(m.items, id)
		}
	}
}
