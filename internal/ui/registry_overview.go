package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/curatewatch/engine/internal/fees"
	"github.com/curatewatch/engine/internal/metrics"
	"github.com/curatewatch/engine/internal/store"
)

// RegistryOverviewView displays the registry's parameters and deposits.
type RegistryOverviewView struct {
	textView *tview.TextView
	name     string
}

// NewRegistryOverviewView creates a new registry overview view.
func NewRegistryOverviewView(name string) *RegistryOverviewView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(fmt.Sprintf(" Registry: %s ", name)).SetBorder(true)

	return &RegistryOverviewView{
		textView: textView,
		name:     name,
	}
}

// Widget returns the tview primitive.
func (v *RegistryOverviewView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the view with new metrics data.
func (v *RegistryOverviewView) Update(snapshot metrics.MetricsSnapshot) {
	v.textView.Clear()

	p := snapshot.Params
	if p == nil {
		fmt.Fprint(v.textView, "[gray]Loading registry parameters...[-]")
		return
	}

	text := fmt.Sprintf(`[yellow]Address[-]     %s
[yellow]Arbitrator[-]  %s
[yellow]Challenge[-]   %s
[yellow]Stake[-]       shared %s  winner %s  loser %s  (/ %s)

[yellow]Deposits[-]
Submission             %s
Removal                %s
Challenge submission   %s
Challenge removal      %s
Arbitration cost       %s
`,
		p.Address.Hex(),
		shortID(p.Arbitrator.Hex()),
		formatDuration(durationSeconds(p.ChallengePeriodDuration)),
		p.SharedStakeMultiplier, p.WinnerStakeMultiplier, p.LoserStakeMultiplier, p.MultiplierDivisor,
		fees.FormatETH(fees.DepositFor(p, store.DepositSubmission)),
		fees.FormatETH(fees.DepositFor(p, store.DepositRemoval)),
		fees.FormatETH(fees.DepositFor(p, store.DepositSubmissionChallenge)),
		fees.FormatETH(fees.DepositFor(p, store.DepositRemovalChallenge)),
		fees.FormatETH(p.ArbitrationCost),
	)

	fmt.Fprint(v.textView, text)
	v.textView.SetTitle(fmt.Sprintf(" Registry: %s (params %s) ", v.name, formatTimeAgo(p.FetchedAt)))
}
