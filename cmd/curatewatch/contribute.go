package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/curatewatch/engine/internal/fees"
)

func contributeCmd() *cobra.Command {
	var (
		share             string
		amount, remaining bigFlag
		divisor           int64
	)

	cmd := &cobra.Command{
		Use:   "contribute",
		Short: "Scale a contribution to a share of the amount still required",
		Long: `Compute the value to send when funding a given share of an appeal.

The share is rounded up to the multiplier divisor's precision so a
contribution never falls short, e.g. --share 25% --amount 1.5eth.
With --remaining, also report the share of it that --amount covers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount.v == nil {
				return fmt.Errorf("--amount is required")
			}
			div := big.NewInt(divisor)
			out := cmd.OutOrStdout()

			if share != "" {
				s, err := fees.ParseShare(share)
				if err != nil {
					return err
				}
				value := fees.ScaleContribution(s, amount.v, div)
				fmt.Fprintf(out, "Share:  %s\n", s.String())
				fmt.Fprintf(out, "Value:  %s (%s wei)\n", fees.FormatETH(value), value)
			}

			if remaining.v != nil {
				covered := fees.ShareOf(amount.v, remaining.v, div)
				fmt.Fprintf(out, "Covers: %s of %s\n", covered.String(), fees.FormatETH(remaining.v))
			}

			if share == "" && remaining.v == nil {
				return fmt.Errorf("one of --share or --remaining is required")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&share, "share", "", "share to fund, as a fraction (0.25) or percentage (25%)")
	flags.Var(&amount, "amount", "amount the share applies to")
	flags.Var(&remaining, "remaining", "amount still required, to express --amount as a share")
	flags.Int64Var(&divisor, "divisor", 10000, "multiplier divisor used for rounding")

	return cmd
}
