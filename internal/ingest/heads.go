package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/curatewatch/engine/internal/store"
)

// HeaderReader is the subset of ethclient.Client the head poller needs.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// HeadPoller polls the latest block header over HTTP RPC. It stands in for
// the websocket listener when no websocket endpoint is configured.
type HeadPoller struct {
	reader   HeaderReader
	interval time.Duration
	headChan chan<- store.Head
	last     uint64
}

// NewHeadPoller creates a HeadPoller.
func NewHeadPoller(reader HeaderReader, interval time.Duration, headChan chan<- store.Head) *HeadPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &HeadPoller{
		reader:   reader,
		interval: interval,
		headChan: headChan,
	}
}

// Start polls until ctx is cancelled.
func (p *HeadPoller) Start(ctx context.Context) {
	slog.Info("starting_head_poller", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.Poll(ctx); err != nil {
		slog.Warn("initial_head_poll_failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("head_poller_stopped")
			return
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				slog.Warn("head_poll_failed", "error", err)
			}
		}
	}
}

// Poll reads the latest header and emits it when it is new.
func (p *HeadPoller) Poll(ctx context.Context) error {
	header, err := p.reader.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("latest header: %w", err)
	}
	if header.Number == nil || !header.Number.IsUint64() {
		return fmt.Errorf("latest header: invalid number %v", header.Number)
	}

	number := header.Number.Uint64()
	if number <= p.last {
		return nil
	}
	p.last = number

	head := store.Head{Number: number, Timestamp: int64(header.Time)}
	select {
	case p.headChan <- head:
	default:
		slog.Warn("head_channel_full", "dropped_head", number)
	}
	return nil
}
