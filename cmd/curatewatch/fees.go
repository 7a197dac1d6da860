package main

import (
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/curatewatch/engine/internal/fees"
	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

func feesCmd() *cobra.Command {
	var (
		side, ruling                   string
		appealCost, paidReq, paidChal  bigFlag
		shared, winner, loser, divisor int64
		start, end, now                int64
	)

	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Compute appeal crowdfunding figures offline",
		Long: `Compute the amount a side must raise in the current appeal round, what
is still missing and the reward a contributor covering it would earn.

Amounts accept wei or an eth/gwei suffix, e.g. --appeal-cost 0.5eth.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if appealCost.v == nil {
				return fmt.Errorf("--appeal-cost is required")
			}

			params := fees.StakeParams{
				Shared:  big.NewInt(shared),
				Winner:  big.NewInt(winner),
				Loser:   big.NewInt(loser),
				Divisor: big.NewInt(divisor),
			}
			round := &store.Round{
				AmountPaidRequester:  paidReq.v,
				AmountPaidChallenger: paidChal.v,
				Ruling:               store.ParseRuling(ruling),
				AppealPeriodStart:    start,
				AppealPeriodEnd:      end,
			}

			sides := []store.Party{store.PartyRequester, store.PartyChallenger}
			if side != "" && side != "both" {
				p, err := store.ParseParty(side)
				if err != nil {
					return err
				}
				sides = []store.Party{p}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ruling: %s\n", round.Ruling)
			for _, p := range sides {
				f, ok := fees.Compute(p, params, round.Ruling, round, appealCost.v)
				if !ok {
					return fmt.Errorf("fees for %s are not computable with these inputs", p)
				}
				printFees(out, p, f, status.AppealDeadline(round, p), now)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&side, "side", "both", "requester, challenger or both")
	flags.StringVar(&ruling, "ruling", "None", "current ruling: None/Accept/Reject or 0/1/2")
	flags.Var(&appealCost, "appeal-cost", "arbitrator appeal cost")
	flags.Var(&paidReq, "paid-requester", "amount already raised by the requester")
	flags.Var(&paidChal, "paid-challenger", "amount already raised by the challenger")
	flags.Int64Var(&shared, "shared", 10000, "shared stake multiplier")
	flags.Int64Var(&winner, "winner", 10000, "winner stake multiplier")
	flags.Int64Var(&loser, "loser", 20000, "loser stake multiplier")
	flags.Int64Var(&divisor, "divisor", 10000, "multiplier divisor")
	flags.Int64Var(&start, "period-start", 0, "appeal period start (unix seconds)")
	flags.Int64Var(&end, "period-end", 0, "appeal period end (unix seconds)")
	flags.Int64Var(&now, "now", 0, "evaluation time for the deadline countdown (unix seconds)")

	return cmd
}

func printFees(out io.Writer, side store.Party, f fees.Fees, deadline, now int64) {
	fmt.Fprintf(out, "\n%s\n", side)
	fmt.Fprintf(out, "  Required:         %s (%s wei)\n", fees.FormatETH(f.Required), f.Required)
	fmt.Fprintf(out, "  Paid:             %s\n", fees.FormatETH(f.Paid))
	fmt.Fprintf(out, "  Still required:   %s (%s wei)\n", fees.FormatETH(f.StillRequired), f.StillRequired)
	fmt.Fprintf(out, "  Potential reward: %s (%s wei)\n", fees.FormatETH(f.PotentialReward), f.PotentialReward)
	if deadline > 0 {
		line := fmt.Sprintf("  Deadline:         %d", deadline)
		if now > 0 {
			line += fmt.Sprintf(" (%ds left)", max(deadline-now, 0))
		}
		fmt.Fprintln(out, line)
	}
}
