// Package main is the entry point for the curatewatch registry watcher.
package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "curatewatch",
		Short:   "Watch a Kleros Curate registry",
		Version: version,
		Long: `curatewatch follows a Curate registry through its subgraph and RPC node.

It classifies every item's lifecycle status, tracks appeal crowdfunding for
disputed items and records status transitions to a local history.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		watchCmd(),
		statusCmd(),
		feesCmd(),
		contributeCmd(),
	)

	return rootCmd
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 level=INFO msg=message key=value
func setupLogger(levelStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
