// Package ui provides the terminal dashboard.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/curatewatch/engine/internal/metrics"
	"github.com/curatewatch/engine/internal/store"
)

// DefaultRefreshRate is how often panels are redrawn from metrics.
const DefaultRefreshRate = 500 * time.Millisecond

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	// Views
	registryOverview *RegistryOverviewView
	transitions      *TransitionsView
	items            *ItemsView
	statsDashboard   *StatsDashboardView
	crowdfunding     *CrowdfundingView

	// Data sources
	transitionChan <-chan store.Transition
	metricsTracker *metrics.MetricsTracker
	now            func() int64
	refreshRate    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a new TUI application. now returns the chain time used for
// deadline countdowns.
func NewApp(registryName string, transitionChan <-chan store.Transition, tracker *metrics.MetricsTracker, now func() int64, refreshRate time.Duration) *App {
	ctx, cancel := context.WithCancel(context.Background())
	if refreshRate <= 0 {
		refreshRate = DefaultRefreshRate
	}

	app := &App{
		app:            tview.NewApplication(),
		transitionChan: transitionChan,
		metricsTracker: tracker,
		now:            now,
		refreshRate:    refreshRate,
		ctx:            ctx,
		cancel:         cancel,
	}

	app.registryOverview = NewRegistryOverviewView(registryName)
	app.transitions = NewTransitionsView()
	app.items = NewItemsView()
	app.statsDashboard = NewStatsDashboardView()
	app.crowdfunding = NewCrowdfundingView()

	app.setupLayout()
	app.setupKeyboard()

	return app
}

// setupLayout creates the 5-panel layout.
func (a *App) setupLayout() {
	// Top row: Registry Overview (left) | Transitions (right)
	topRow := tview.NewFlex().
		AddItem(a.registryOverview.Widget(), 0, 1, false).
		AddItem(a.transitions.Widget(), 0, 1, false)

	// Middle row: Items (full width)
	middleRow := a.items.Widget()

	// Bottom row: Stats Dashboard (left) | Crowdfunding (right)
	bottomRow := tview.NewFlex().
		AddItem(a.statsDashboard.Widget(), 0, 1, false).
		AddItem(a.crowdfunding.Widget(), 0, 2, false)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 2, false).
		AddItem(middleRow, 0, 3, false).
		AddItem(bottomRow, 0, 3, false)

	a.app.SetRoot(a.layout, true)
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				a.refresh()
				return nil
			}
		}
		return event
	})
}

// LoadHistory seeds the transitions feed with recorded transitions, newest
// first. Call it before Run.
func (a *App) LoadHistory(transitions []store.Transition) {
	for i := len(transitions) - 1; i >= 0; i-- {
		a.transitions.AddTransition(transitions[i])
	}
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	go a.processTransitions()
	go a.updateLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// Done is closed once the application is stopped.
func (a *App) Done() <-chan struct{} {
	return a.ctx.Done()
}

// processTransitions feeds observed transitions into the transitions view.
func (a *App) processTransitions() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case t, ok := <-a.transitionChan:
			if !ok {
				return
			}

			a.app.QueueUpdateDraw(func() {
				a.transitions.AddTransition(t)
			})
		}
	}
}

// updateLoop periodically refreshes views with metrics data.
func (a *App) updateLoop() {
	ticker := time.NewTicker(a.refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// refresh redraws every view from a fresh snapshot.
func (a *App) refresh() {
	snapshot := a.metricsTracker.Snapshot()
	now := a.now()

	a.app.QueueUpdateDraw(func() {
		a.registryOverview.Update(snapshot)
		a.transitions.Refresh()
		a.items.Update(snapshot, now)
		a.statsDashboard.Update(snapshot)
		a.crowdfunding.Update(snapshot, now)
	})
}
