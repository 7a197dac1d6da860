package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/curatewatch/engine/internal/chain"
	"github.com/curatewatch/engine/internal/config"
	"github.com/curatewatch/engine/internal/ingest"
	"github.com/curatewatch/engine/internal/metrics"
	"github.com/curatewatch/engine/internal/monitor"
	"github.com/curatewatch/engine/internal/store"
	"github.com/curatewatch/engine/internal/ui"
)

const (
	// ItemChannelBuffer is the size of the buffered item channel
	ItemChannelBuffer = 1000
	// HeadChannelBuffer is the size of the buffered head channel
	HeadChannelBuffer = 64
	// TransitionChannelBuffer is the size of the buffered transition channel
	TransitionChannelBuffer = 100
)

func watchCmd() *cobra.Command {
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the registry and show the live dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if noTUI {
				cfg.EnableTUI = false
			}
			return runWatch(cfg)
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "log to stdout instead of showing the dashboard")
	return cmd
}

func runWatch(cfg *config.Config) error {
	logOut, closeLog, err := logOutput(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(setupLogger(cfg.LogLevel, logOut))

	active, err := cfg.ActiveRegistry()
	if err != nil {
		return err
	}
	registryKey := strings.ToLower(cfg.Registry().Hex())

	slog.Info("curatewatch starting", "version", version)
	slog.Info("config_loaded",
		"registry", active.Name,
		"registry_address", cfg.Registry().Hex(),
		"subgraph_url", active.SubgraphURL,
		"rpc_url", cfg.RPCURL,
		"rpc_ws_url", cfg.RPCWSURL,
		"rpc_api_key", cfg.MaskedRPCKey(),
		"poll_interval", cfg.PollInterval,
		"page_size", cfg.PageSize,
		"params_refresh_blocks", cfg.ParamsRefreshBlocks,
		"worker_count", cfg.WorkerCount,
		"db_path", cfg.DBPath,
		"enable_tui", cfg.EnableTUI,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	client, err := chain.Dial(ctx, cfg.RPCEndpoint())
	if err != nil {
		slog.Error("rpc_dial_failed", "error", err)
		return err
	}
	defer client.Close()

	registry, err := chain.NewRegistry(client, cfg.Registry())
	if err != nil {
		return err
	}
	costs := chain.NewAppealCostCache(registry)

	history, err := store.OpenHistory(cfg.DBPath)
	if err != nil {
		slog.Error("history_open_failed", "error", err)
		return err
	}
	defer history.Close()

	seed, err := history.LastStatuses(ctx, registryKey)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	slog.Info("history_loaded", "items", len(seed))

	tracker := metrics.NewMetricsTracker()
	clock := monitor.NewClock()
	evaluator := monitor.NewEvaluator(registry, costs, clock, cfg.ParamsRefreshBlocks)

	params, err := evaluator.RefreshParams(ctx)
	if err != nil {
		slog.Error("registry_params_failed", "error", err)
		return err
	}
	tracker.SetParams(params)

	mon := monitor.New(evaluator, monitor.NewTransitionTracker(registryKey, seed), history)

	itemChan := make(chan store.Item, ItemChannelBuffer)
	headChan := make(chan store.Head, HeadChannelBuffer)
	transitionChan := make(chan store.Transition, TransitionChannelBuffer)

	// Head source: websocket subscription when configured, HTTP polling otherwise
	var listener *ingest.HeadListener
	if ws := cfg.WSEndpoint(); ws != "" {
		listener = ingest.NewHeadListener(ws, headChan, tracker.SetHeadStatus)
		listener.Start(ctx)
	} else {
		tracker.SetHeadStatus("polling")
		go ingest.NewHeadPoller(client, cfg.PollInterval, headChan).Start(ctx)
	}
	go consumeHeads(ctx, headChan, clock, costs, evaluator, tracker)

	subgraph := ingest.NewSubgraphClient(active.SubgraphURL)
	poller := ingest.NewItemsPoller(subgraph, cfg.Registry(), cfg.PageSize, cfg.PollInterval, itemChan, tracker)
	go poller.Start(ctx)

	// Items that stop appearing in the subgraph age out of the dashboard
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tracker.Cleanup(10 * cfg.PollInterval)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(ctx, id, itemChan, transitionChan, mon, tracker)
		}(i)
	}

	slog.Info("watcher_started",
		"status", "polling registry",
		"workers", cfg.WorkerCount,
		"tui_enabled", cfg.EnableTUI,
	)

	if cfg.EnableTUI {
		slog.Info("starting_tui")
		app := ui.NewApp(active.Name, transitionChan, tracker, clock.Now, cfg.UIRefreshRate)

		recent, err := history.Recent(ctx, registryKey, 50)
		if err != nil {
			slog.Warn("history_recent_failed", "error", err)
		} else {
			app.LoadHistory(recent)
		}

		go func() {
			if err := app.Run(); err != nil {
				slog.Error("tui_error", "error", err)
			}
			cancel()
		}()

		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
			app.Stop()
		case <-app.Done():
		case <-ctx.Done():
			app.Stop()
		}
	} else {
		go drainTransitions(ctx, transitionChan)

		sig := <-sigChan
		slog.Info("shutdown_signal_received", "signal", sig.String())
	}

	cancel()

	slog.Info("shutting_down", "status", "stopping head source")
	if listener != nil {
		listener.Stop()
	}
	wg.Wait()

	drainItems(itemChan)

	slog.Info("shutdown_complete")
	return nil
}

// worker evaluates items, records transitions and updates metrics.
func worker(ctx context.Context, id int, itemChan <-chan store.Item,
	transitionChan chan<- store.Transition, mon *monitor.Monitor,
	tracker *metrics.MetricsTracker) {

	slog.Debug("worker_started", "id", id)
	defer slog.Debug("worker_stopped", "id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-itemChan:
			if !ok {
				return
			}

			tracker.SetChannelBuffer(len(itemChan), cap(itemChan))

			res, err := mon.Handle(ctx, item)
			if err != nil {
				slog.Warn("evaluation_failed", "item", truncateID(item.ID), "error", err)
				continue
			}
			if res.AppealCostErr != nil {
				tracker.IncrementAppealCostErrors()
			}
			tracker.RecordEvaluation(res.Evaluation)

			if res.Transition == nil {
				continue
			}
			tracker.RecordTransition(*res.Transition)

			select {
			case transitionChan <- *res.Transition:
			default:
				slog.Warn("transition_channel_full", "item", truncateID(item.ID))
			}
		}
	}
}

// consumeHeads advances the chain clock, invalidates per-block caches and
// refreshes registry parameters when they are due.
func consumeHeads(ctx context.Context, headChan <-chan store.Head, clock *monitor.Clock,
	costs *chain.AppealCostCache, evaluator *monitor.Evaluator, tracker *metrics.MetricsTracker) {

	for {
		select {
		case <-ctx.Done():
			return
		case head := <-headChan:
			if !clock.Observe(head) {
				continue
			}
			costs.OnHead(head.Number)
			tracker.SetHead(head)

			params, err := evaluator.Params(ctx)
			if err != nil {
				slog.Warn("registry_params_unavailable", "block", head.Number, "error", err)
				continue
			}
			tracker.SetParams(params)
		}
	}
}

// drainTransitions discards transitions when no dashboard consumes them.
func drainTransitions(ctx context.Context, transitionChan <-chan store.Transition) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-transitionChan:
		}
	}
}

// drainItems empties the item channel during shutdown.
func drainItems(itemChan <-chan store.Item) {
	timeout := time.After(5 * time.Second)
	drained := 0

	for {
		select {
		case <-itemChan:
			drained++
		case <-timeout:
			if drained > 0 {
				slog.Info("items_drained", "count", drained)
			}
			return
		default:
			if drained > 0 {
				slog.Info("items_drained", "count", drained)
			}
			return
		}
	}
}

// logOutput returns stdout, or LOG_FILE when the dashboard owns the terminal.
func logOutput(cfg *config.Config) (io.Writer, func(), error) {
	if !cfg.EnableTUI || cfg.LogFile == "" {
		return os.Stdout, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// truncateID shortens an ID for logging.
func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "..." + id[len(id)-4:]
}
