package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseWei(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1500000000000000000", "1500000000000000000"},
		{"1.5eth", "1500000000000000000"},
		{"1.5 ETH", "1500000000000000000"},
		{"0.000000000000000001eth", "1"},
		{"2gwei", "2000000000"},
		{"42wei", "42"},
		{"0", "0"},
	}
	for _, tt := range tests {
		got, err := parseWei(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got.String(), tt.in)
	}

	for _, bad := range []string{"", "abc", "-1", "1.5", "0.0000000000000000001eth"} {
		_, err := parseWei(bad)
		require.Error(t, err, bad)
	}
}

func TestFeesCommand(t *testing.T) {
	out, err := runCmd(t, "fees",
		"--appeal-cost", "1eth",
		"--paid-requester", "0.5eth",
		"--side", "requester",
	)
	require.NoError(t, err)
	require.Contains(t, out, "Ruling: None")
	require.Contains(t, out, "Required:         2 ETH")
	require.Contains(t, out, "Paid:             0.5 ETH")
	require.Contains(t, out, "Still required:   1.5 ETH")
	require.Contains(t, out, "Potential reward: 0.75 ETH")
	require.NotContains(t, out, "challenger")
}

func TestFeesCommandRuling(t *testing.T) {
	// Accept: requester wins and pays the winner stake, challenger the loser stake.
	out, err := runCmd(t, "fees",
		"--appeal-cost", "1eth",
		"--ruling", "1",
		"--period-start", "1000",
		"--period-end", "2000",
		"--now", "1200",
	)
	require.NoError(t, err)
	require.Contains(t, out, "Ruling: Accept")

	requester, challenger, ok := strings.Cut(out, "challenger")
	require.True(t, ok)
	require.Contains(t, requester, "Required:         2 ETH")
	require.Contains(t, requester, "Deadline:         2000 (800s left)")
	require.Contains(t, challenger, "Required:         3 ETH")
	require.Contains(t, challenger, "Deadline:         1499 (299s left)")
}

func TestFeesCommandErrors(t *testing.T) {
	_, err := runCmd(t, "fees")
	require.ErrorContains(t, err, "--appeal-cost")

	_, err = runCmd(t, "fees", "--appeal-cost", "1eth", "--divisor", "0")
	require.ErrorContains(t, err, "not computable")

	_, err = runCmd(t, "fees", "--appeal-cost", "1eth", "--side", "juror")
	require.Error(t, err)

	_, err = runCmd(t, "fees", "--appeal-cost", "lots")
	require.Error(t, err)
}

func TestContributeCommand(t *testing.T) {
	out, err := runCmd(t, "contribute", "--share", "25%", "--amount", "1.5eth")
	require.NoError(t, err)
	require.Contains(t, out, "Share:  0.25")
	require.Contains(t, out, "Value:  0.375 ETH")

	out, err = runCmd(t, "contribute", "--amount", "0.5eth", "--remaining", "2eth")
	require.NoError(t, err)
	require.Contains(t, out, "Covers: 0.25 of 2 ETH")

	_, err = runCmd(t, "contribute", "--amount", "1eth")
	require.Error(t, err)

	_, err = runCmd(t, "contribute", "--share", "150%", "--amount", "1eth")
	require.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "level=WARN msg=shown key=value")
	require.True(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestTruncateID(t *testing.T) {
	require.Equal(t, "0xabc", truncateID("0xabc"))
	require.Equal(t, "0x1234...cdef", truncateID("0x1234567890abcdef"))
}
