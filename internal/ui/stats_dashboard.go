package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/curatewatch/engine/internal/metrics"
	"github.com/curatewatch/engine/internal/status"
)

// StatsDashboardView displays watcher health and status counts.
type StatsDashboardView struct {
	textView *tview.TextView
}

// NewStatsDashboardView creates a new stats dashboard view.
func NewStatsDashboardView() *StatsDashboardView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Stats Dashboard ").SetBorder(true)

	return &StatsDashboardView{
		textView: textView,
	}
}

// Widget returns the tview primitive.
func (v *StatsDashboardView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the stats display.
func (v *StatsDashboardView) Update(snapshot metrics.MetricsSnapshot) {
	v.textView.Clear()

	headColor := "red"
	if snapshot.HeadStatus == "connected" || snapshot.HeadStatus == "polling" {
		headColor = "green"
	}

	pollStatus := formatTimeAgo(snapshot.LastPoll)
	if snapshot.LastPollError != "" {
		pollStatus += " [red](last failed)[-]"
	}

	bufferPct := 0.0
	if snapshot.ChannelBufferCap > 0 {
		bufferPct = (float64(snapshot.ChannelBufferUsed) / float64(snapshot.ChannelBufferCap)) * 100
	}

	var counts strings.Builder
	for _, code := range status.Codes() {
		if n := snapshot.StatusCounts[string(code)]; n > 0 {
			fmt.Fprintf(&counts, "[%s]%s[-]: %d\n", statusColor(string(code)), code.Label(), n)
		}
	}
	if counts.Len() == 0 {
		counts.WriteString("[gray]none yet[-]\n")
	}

	text := fmt.Sprintf(`[yellow]System Status[-]
Uptime: %s
Heads: [%s]%s[-] (block %d)
Subgraph: %s, %d items
Polls: %d (%d failed)

[yellow]Evaluations[-]
Total: %d
Rate: %.2f/sec
Transitions: %d
Appeal cost errors: %d

[yellow]Items by Status[-]
%s
[yellow]Performance[-]
Channel Buffer: %d/%d (%.1f%%)
`,
		formatDuration(snapshot.Uptime),
		headColor, snapshot.HeadStatus, snapshot.Head.Number,
		pollStatus, snapshot.LastPollItems,
		snapshot.PollsTotal, snapshot.PollErrors,
		snapshot.EvaluationsTotal,
		snapshot.EvaluationRate,
		snapshot.TransitionsTotal,
		snapshot.AppealCostErrors,
		counts.String(),
		snapshot.ChannelBufferUsed,
		snapshot.ChannelBufferCap,
		bufferPct,
	)

	fmt.Fprint(v.textView, text)
}
