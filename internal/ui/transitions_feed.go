package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

// TransitionsView displays status transitions as they are observed.
type TransitionsView struct {
	list        *tview.List
	transitions []store.Transition
	maxItems    int
}

// NewTransitionsView creates a new transitions view.
func NewTransitionsView() *TransitionsView {
	list := tview.NewList().
		ShowSecondaryText(true)

	list.SetTitle(" Transitions ").SetBorder(true)
	list.SetMainTextColor(tcell.ColorWhite)

	v := &TransitionsView{
		list:        list,
		transitions: make([]store.Transition, 0, 50),
		maxItems:    50,
	}
	v.rebuildList()
	return v
}

// Widget returns the tview primitive.
func (v *TransitionsView) Widget() tview.Primitive {
	return v.list
}

// AddTransition adds a transition to the front of the feed.
func (v *TransitionsView) AddTransition(t store.Transition) {
	v.transitions = append([]store.Transition{t}, v.transitions...)

	if len(v.transitions) > v.maxItems {
		v.transitions = v.transitions[:v.maxItems]
	}

	v.rebuildList()
}

// Refresh redraws the list.
func (v *TransitionsView) Refresh() {
	v.rebuildList()
}

func (v *TransitionsView) rebuildList() {
	v.list.Clear()

	if len(v.transitions) == 0 {
		v.list.AddItem("No transitions observed yet", "", 0, nil)
		return
	}

	for _, t := range v.transitions {
		main, secondary := formatTransition(t)
		v.list.AddItem(main, secondary, 0, nil)
	}

	v.list.SetTitle(fmt.Sprintf(" Transitions (%d) ", len(v.transitions)))
}

// formatTransition renders a transition as list main and secondary text.
func formatTransition(t store.Transition) (string, string) {
	from := "new"
	if t.From != "" {
		from = status.Code(t.From).Label()
	}
	main := fmt.Sprintf("%s [%s]%s[-]",
		t.ObservedAt.Format("15:04:05"),
		statusColor(t.To),
		status.Code(t.To).Label(),
	)
	secondary := fmt.Sprintf("Item %s | from %s", shortID(t.ItemID), from)
	return main, secondary
}
