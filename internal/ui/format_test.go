package ui

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/curatewatch/engine/internal/store"
)

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		deadline, now int64
		want          string
	}{
		{0, 100, "-"},
		{100, 101, "closed"},
		{100, 100, "0s"},
		{1000, 100, "15m"},
		{100 + 3*3600 + 120, 100, "3h 2m"},
		{100 + 3*86400 + 7200, 100, "3d 2h"},
	}
	for _, tt := range tests {
		if got := formatCountdown(tt.deadline, tt.now); got != tt.want {
			t.Errorf("formatCountdown(%d, %d) = %q, want %q", tt.deadline, tt.now, got, tt.want)
		}
	}
}

func TestFormatSide(t *testing.T) {
	sf := &store.SideFees{
		Required:        big.NewInt(2e18),
		Paid:            big.NewInt(5e17),
		StillRequired:   big.NewInt(15e17),
		PotentialReward: big.NewInt(75e16),
		Deadline:        1600,
	}
	got := formatSide(store.PartyRequester, sf, 1000)
	for _, want := range []string{"requester", "0.5 ETH / 2 ETH", "needs 1.5 ETH", "reward 0.75 ETH", "ends 10m"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatSide = %q, missing %q", got, want)
		}
	}

	sf.StillRequired = new(big.Int)
	if got := formatSide(store.PartyRequester, sf, 1000); !strings.Contains(got, "funded") {
		t.Errorf("Expected funded side, got %q", got)
	}

	if got := formatSide(store.PartyChallenger, nil, 1000); !strings.Contains(got, "not funding") {
		t.Errorf("Expected placeholder for missing side, got %q", got)
	}
}

func TestRenderCrowdfunding(t *testing.T) {
	if got := renderCrowdfunding(nil, 0, 10); !strings.Contains(got, "No appeals") {
		t.Errorf("Expected empty message, got %q", got)
	}

	evals := []store.Evaluation{
		{ItemID: "0x1234567890abcdef", Status: "crowdfunding", Ruling: store.RulingReject,
			Requester: &store.SideFees{Required: big.NewInt(1), Paid: big.NewInt(0), StillRequired: big.NewInt(1), PotentialReward: big.NewInt(0)}},
		{ItemID: "0x02", Status: "crowdfunding"},
	}
	got := renderCrowdfunding(evals, 0, 10)
	if !strings.Contains(got, "0x1234...cdef") || !strings.Contains(got, "ruling Reject") {
		t.Errorf("Unexpected render %q", got)
	}
	if !strings.Contains(got, "appeal cost unavailable") {
		t.Errorf("Expected placeholder for item without fees, got %q", got)
	}

	if got := renderCrowdfunding(evals, 0, 1); strings.Contains(got, "0x02") {
		t.Errorf("Expected limit to apply, got %q", got)
	}
}

func TestFormatTransition(t *testing.T) {
	main, secondary := formatTransition(store.Transition{
		ItemID:     "0xabcdef0123456789",
		From:       "",
		To:         "challenged",
		ObservedAt: time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC),
	})
	if !strings.Contains(main, "13:04:05") || !strings.Contains(main, "Challenged") {
		t.Errorf("Unexpected main text %q", main)
	}
	if !strings.Contains(secondary, "from new") {
		t.Errorf("Unexpected secondary text %q", secondary)
	}
}

func TestStatusRank(t *testing.T) {
	if statusRank("crowdfunding") >= statusRank("challenged") {
		t.Error("Expected crowdfunding before challenged")
	}
	if statusRank("pending-removal") >= statusRank("registered") {
		t.Error("Expected pending before registered")
	}
}
