package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/curatewatch/engine/internal/metrics"
	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

// CrowdfundingView displays per-side appeal funding for items in their
// appeal period.
type CrowdfundingView struct {
	textView *tview.TextView
	maxItems int
}

// NewCrowdfundingView creates a new crowdfunding view.
func NewCrowdfundingView() *CrowdfundingView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)

	textView.SetTitle(" Appeal Crowdfunding ").SetBorder(true)

	return &CrowdfundingView{
		textView: textView,
		maxItems: 10,
	}
}

// Widget returns the tview primitive.
func (v *CrowdfundingView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the crowdfunding display.
func (v *CrowdfundingView) Update(snapshot metrics.MetricsSnapshot, now int64) {
	v.textView.Clear()
	fmt.Fprint(v.textView, renderCrowdfunding(snapshot.Crowdfunding, now, v.maxItems))
	v.textView.SetTitle(fmt.Sprintf(" Appeal Crowdfunding (%d) ", len(snapshot.Crowdfunding)))
}

// renderCrowdfunding renders up to limit crowdfunding evaluations.
func renderCrowdfunding(evals []store.Evaluation, now int64, limit int) string {
	if len(evals) == 0 {
		return "[gray]No appeals are being crowdfunded[-]"
	}
	if len(evals) > limit {
		evals = evals[:limit]
	}

	var b strings.Builder
	for _, ev := range evals {
		fmt.Fprintf(&b, "[yellow]%s[-] %s, ruling %s\n", shortID(ev.ItemID), status.Code(ev.Status).Label(), ev.Ruling)
		if ev.Requester == nil && ev.Challenger == nil {
			b.WriteString("  [gray]appeal cost unavailable[-]\n")
			continue
		}
		fmt.Fprintf(&b, "  %s\n", formatSide(store.PartyRequester, ev.Requester, now))
		fmt.Fprintf(&b, "  %s\n", formatSide(store.PartyChallenger, ev.Challenger, now))
	}
	return b.String()
}
