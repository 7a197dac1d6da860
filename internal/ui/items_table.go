package ui

import (
	"fmt"
	"sort"

	"github.com/rivo/tview"

	"github.com/curatewatch/engine/internal/metrics"
	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

var itemHeaders = []string{"Item", "Status", "Disputed", "Ruling", "Next deadline"}

// ItemsView displays every tracked item with its current status.
type ItemsView struct {
	table   *tview.Table
	maxRows int
}

// NewItemsView creates a new items view.
func NewItemsView() *ItemsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Items ").SetBorder(true)
	setHeader(table, itemHeaders)

	return &ItemsView{
		table:   table,
		maxRows: 200,
	}
}

// Widget returns the tview primitive.
func (v *ItemsView) Widget() tview.Primitive {
	return v.table
}

// Update refreshes the table. Items needing attention sort first.
func (v *ItemsView) Update(snapshot metrics.MetricsSnapshot, now int64) {
	v.table.Clear()
	setHeader(v.table, itemHeaders)

	items := make([]store.Evaluation, len(snapshot.Items))
	copy(items, snapshot.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return statusRank(items[i].Status) < statusRank(items[j].Status)
	})

	if len(items) > v.maxRows {
		items = items[:v.maxRows]
	}

	for i, ev := range items {
		row := i + 1

		disputed := ""
		ruling := ""
		if ev.Disputed {
			disputed = "yes"
			ruling = ev.Ruling.String()
		}

		cells := []string{
			shortID(ev.ItemID),
			fmt.Sprintf("[%s]%s[-]", statusColor(ev.Status), status.Code(ev.Status).Label()),
			disputed,
			ruling,
			nextDeadlineText(ev, now),
		}

		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft)
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Items (%d) ", snapshot.ItemsTracked))
}

// statusRank orders codes by urgency for display.
func statusRank(code string) int {
	switch c := status.Code(code); {
	case c.IsCrowdfunding():
		return 0
	case c == status.Challenged:
		return 1
	case c.IsPending():
		return 2
	case c == status.Submitted || c == status.RemovalRequested:
		return 3
	}
	return 4
}

func nextDeadlineText(ev store.Evaluation, now int64) string {
	var next int64
	for _, sf := range []*store.SideFees{ev.Requester, ev.Challenger} {
		if sf != nil && sf.Deadline > 0 && (next == 0 || sf.Deadline < next) {
			next = sf.Deadline
		}
	}
	if next == 0 {
		return ""
	}
	return formatCountdown(next, now)
}
