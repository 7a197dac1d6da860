package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/curatewatch/engine/internal/store"
)

// DefaultPollInterval is the default subgraph polling interval.
const DefaultPollInterval = 15 * time.Second

// ItemSource lists every item of a registry.
type ItemSource interface {
	FetchAllItems(ctx context.Context, registry common.Address, pageSize int) ([]store.Item, error)
}

// PollObserver is told about the outcome of each poll.
type PollObserver interface {
	RecordPoll(items int, err error)
}

// ItemsPoller polls the subgraph for the registry's items and pushes each one
// onto the item channel.
type ItemsPoller struct {
	source   ItemSource
	registry common.Address
	pageSize int
	interval time.Duration
	itemChan chan<- store.Item
	observer PollObserver
}

// NewItemsPoller creates a new ItemsPoller. observer may be nil.
func NewItemsPoller(source ItemSource, registry common.Address, pageSize int, interval time.Duration, itemChan chan<- store.Item, observer PollObserver) *ItemsPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &ItemsPoller{
		source:   source,
		registry: registry,
		pageSize: pageSize,
		interval: interval,
		itemChan: itemChan,
		observer: observer,
	}
}

// Start polls until ctx is cancelled.
func (p *ItemsPoller) Start(ctx context.Context) {
	slog.Info("starting_items_poller", "registry", p.registry.Hex(), "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if _, err := p.Poll(ctx); err != nil {
		slog.Warn("initial_poll_failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("items_poller_stopped")
			return
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil {
				slog.Warn("poll_failed", "error", err)
			}
		}
	}
}

// Poll fetches every item once and returns how many were queued. Every item
// of the snapshot is delivered; Poll blocks while the channel is full.
func (p *ItemsPoller) Poll(ctx context.Context) (int, error) {
	start := time.Now()
	items, err := p.source.FetchAllItems(ctx, p.registry, p.pageSize)
	if err != nil {
		p.record(0, err)
		return 0, fmt.Errorf("fetch failed: %w", err)
	}

	queued := 0
	for _, item := range items {
		select {
		case p.itemChan <- item:
			queued++
		case <-ctx.Done():
			p.record(queued, ctx.Err())
			return queued, ctx.Err()
		}
	}

	p.record(len(items), nil)
	slog.Debug("items_polled", "count", len(items), "queued", queued, "elapsed", time.Since(start))
	return queued, nil
}

func (p *ItemsPoller) record(items int, err error) {
	if p.observer != nil {
		p.observer.RecordPoll(items, err)
	}
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
