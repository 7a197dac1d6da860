package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/curatewatch/engine/internal/chain"
	"github.com/curatewatch/engine/internal/config"
	"github.com/curatewatch/engine/internal/fees"
	"github.com/curatewatch/engine/internal/ingest"
	"github.com/curatewatch/engine/internal/monitor"
	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

func statusCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status <itemID>",
		Short: "Evaluate a single item against the latest block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(setupLogger(cfg.LogLevel, os.Stderr))

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return runStatus(ctx, cfg, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout for subgraph and RPC calls")
	return cmd
}

func runStatus(ctx context.Context, cfg *config.Config, itemID string, out io.Writer) error {
	active, err := cfg.ActiveRegistry()
	if err != nil {
		return err
	}

	client, err := chain.Dial(ctx, cfg.RPCEndpoint())
	if err != nil {
		return err
	}
	defer client.Close()

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("latest header: %w", err)
	}
	clock := monitor.NewClock()
	clock.Observe(store.Head{Number: header.Number.Uint64(), Timestamp: int64(header.Time)})

	registry, err := chain.NewRegistry(client, cfg.Registry())
	if err != nil {
		return err
	}
	evaluator := monitor.NewEvaluator(registry, chain.NewAppealCostCache(registry), clock, 1)

	item, err := ingest.NewSubgraphClient(active.SubgraphURL).FetchItem(ctx, cfg.Registry(), itemID)
	if err != nil {
		return err
	}

	ev, err := evaluator.Evaluate(ctx, item)
	if err != nil {
		if ev.ItemID == "" {
			return err
		}
		// Without an appeal cost the status is still meaningful.
		slog.Warn("appeal_cost_unavailable", "item", truncateID(item.ID), "error", err)
	}

	printEvaluation(out, active.Name, header.Number.Uint64(), &item, ev)
	return nil
}

func printEvaluation(out io.Writer, registry string, block uint64, item *store.Item, ev store.Evaluation) {
	code := status.Code(ev.Status)

	fmt.Fprintf(out, "Registry: %s\n", registry)
	fmt.Fprintf(out, "Item:     %s\n", item.ID)
	if item.DataCID != "" {
		fmt.Fprintf(out, "Data:     ipfs://%s\n", item.DataCID)
	}
	fmt.Fprintf(out, "Block:    %d (%s)\n", block, time.Unix(ev.EvaluatedAt, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "Status:   %s [%s]\n", code.Label(), code)
	if ev.Disputed {
		fmt.Fprintf(out, "Ruling:   %s\n", ev.Ruling)
	}

	for _, side := range []struct {
		party store.Party
		fees  *store.SideFees
	}{
		{store.PartyRequester, ev.Requester},
		{store.PartyChallenger, ev.Challenger},
	} {
		if side.fees == nil {
			continue
		}
		printFees(out, side.party, fees.Fees{
			Required:        side.fees.Required,
			Paid:            side.fees.Paid,
			StillRequired:   side.fees.StillRequired,
			PotentialReward: side.fees.PotentialReward,
			FullyFunded:     side.fees.FullyFunded,
		}, side.fees.Deadline, ev.EvaluatedAt)
	}
}
