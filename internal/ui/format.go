package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/curatewatch/engine/internal/fees"
	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

// setHeader writes the header row of a table.
func setHeader(table *tview.Table, headers []string) {
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		table.SetCell(0, col, cell)
	}
}

// statusColor returns the tview color tag for a status code.
func statusColor(code string) string {
	c := status.Code(code)
	switch {
	case c.IsCrowdfunding():
		return "yellow"
	case c == status.Challenged:
		return "red"
	case c.IsPending():
		return "orange"
	case c == status.Registered:
		return "green"
	case c == status.Submitted || c == status.RemovalRequested:
		return "aqua"
	}
	return "white"
}

// formatCountdown renders the time left until deadline, both unix seconds.
func formatCountdown(deadline, now int64) string {
	if deadline == 0 {
		return "-"
	}
	left := deadline - now
	if left < 0 {
		return "closed"
	}
	return formatDuration(time.Duration(left) * time.Second)
}

// formatSide renders one side's crowdfunding figures on a single line.
func formatSide(side store.Party, sf *store.SideFees, now int64) string {
	if sf == nil {
		return fmt.Sprintf("%-10s [gray]not funding[-]", side)
	}
	state := fmt.Sprintf("needs %s", fees.FormatETH(sf.StillRequired))
	if sf.FullyFunded || sf.StillRequired.Sign() == 0 {
		state = "[green]funded[-]"
	}
	return fmt.Sprintf("%-10s %s / %s  %s  reward %s  ends %s",
		side,
		fees.FormatETH(sf.Paid),
		fees.FormatETH(sf.Required),
		state,
		fees.FormatETH(sf.PotentialReward),
		formatCountdown(sf.Deadline, now),
	)
}

// shortID shortens an item ID or address for display.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "..." + id[len(id)-4:]
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < 48*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := time.Since(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf("%.0fh ago", elapsed.Hours())
	}
	return fmt.Sprintf("%.0fd ago", elapsed.Hours()/24)
}

func durationSeconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}
