package fees

import (
	"math/big"
	"testing"

	"github.com/curatewatch/engine/internal/store"
)

func params(shared, winner, loser, divisor int64) StakeParams {
	return StakeParams{
		Shared:  big.NewInt(shared),
		Winner:  big.NewInt(winner),
		Loser:   big.NewInt(loser),
		Divisor: big.NewInt(divisor),
	}
}

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad int " + s)
	}
	return v
}

func round(ruling store.Ruling, paidRequester, paidChallenger string) *store.Round {
	return &store.Round{
		Ruling:               ruling,
		AppealPeriodStart:    1000,
		AppealPeriodEnd:      2000,
		AmountPaidRequester:  bi(paidRequester),
		AmountPaidChallenger: bi(paidChallenger),
	}
}

// Scenario A
func TestComputeWinnerRequired(t *testing.T) {
	p := params(5000, 10000, 20000, 10000)
	f, ok := Compute(store.PartyRequester, p, store.RulingAccept, round(store.RulingAccept, "0", "0"), big.NewInt(1000))
	if !ok {
		t.Fatal("Expected fees to be computable")
	}
	if f.Required.Int64() != 2000 {
		t.Errorf("Expected required 2000, got %s", f.Required)
	}
	if f.StillRequired.Int64() != 2000 {
		t.Errorf("Expected still required 2000, got %s", f.StillRequired)
	}
}

// Scenario B
func TestComputePartiallyPaid(t *testing.T) {
	p := params(5000, 10000, 20000, 10000)
	f, ok := Compute(store.PartyRequester, p, store.RulingAccept, round(store.RulingAccept, "1500", "0"), big.NewInt(1000))
	if !ok {
		t.Fatal("Expected fees to be computable")
	}
	if f.StillRequired.Int64() != 500 {
		t.Errorf("Expected still required 500, got %s", f.StillRequired)
	}
	if f.Paid.Int64() != 1500 {
		t.Errorf("Expected paid 1500, got %s", f.Paid)
	}
}

// Scenario C
func TestComputeNoRulingShared(t *testing.T) {
	p := params(5000, 10000, 20000, 10000)
	for _, ruling := range []string{"None", "0"} {
		r := round(store.ParseRuling(ruling), "0", "0")
		req, ok1 := Compute(store.PartyRequester, p, r.Ruling, r, big.NewInt(1000))
		chal, ok2 := Compute(store.PartyChallenger, p, r.Ruling, r, big.NewInt(1000))
		if !ok1 || !ok2 {
			t.Fatal("Expected fees to be computable")
		}
		if req.Required.Int64() != 1500 || chal.Required.Int64() != 1500 {
			t.Errorf("ruling %q: expected 1500 for both sides, got %s and %s", ruling, req.Required, chal.Required)
		}
	}
}

func TestComputeLoserMultiplier(t *testing.T) {
	p := params(5000, 10000, 20000, 10000)
	f, ok := Compute(store.PartyRequester, p, store.RulingReject, round(store.RulingReject, "0", "0"), big.NewInt(1000))
	if !ok {
		t.Fatal("Expected fees to be computable")
	}
	// 1000 + 1000*20000/10000
	if f.Required.Int64() != 3000 {
		t.Errorf("Expected loser required 3000, got %s", f.Required)
	}
	// Opponent (winner) stakes 1000*10000/10000 = 1000; full shortfall earns all of it.
	if f.PotentialReward.Int64() != 1000 {
		t.Errorf("Expected potential reward 1000, got %s", f.PotentialReward)
	}
}

func TestComputePotentialRewardDoubleRounding(t *testing.T) {
	// required = 1000 + 1000*3333/10000 = 1333
	// still = 1333 - 700 = 633
	// opponent stake = 1000*7000/10000 = 700
	// reward = (633*10000/1333) * 700 / 10000 = 4748 * 700 / 10000 = 332
	p := params(3333, 3333, 7000, 10000)
	f, ok := Compute(store.PartyRequester, p, store.RulingAccept, round(store.RulingAccept, "700", "0"), big.NewInt(1000))
	if !ok {
		t.Fatal("Expected fees to be computable")
	}
	if f.Required.Int64() != 1333 {
		t.Errorf("Expected required 1333, got %s", f.Required)
	}
	if f.StillRequired.Int64() != 633 {
		t.Errorf("Expected still required 633, got %s", f.StillRequired)
	}
	if f.PotentialReward.Int64() != 332 {
		t.Errorf("Expected potential reward 332, got %s", f.PotentialReward)
	}
}

func TestComputeOverpaidNeverNegative(t *testing.T) {
	p := params(5000, 10000, 20000, 10000)
	r := round(store.RulingAccept, "999999999999999999999999", "0")
	r.HasPaidRequester = true
	f, ok := Compute(store.PartyRequester, p, store.RulingAccept, r, big.NewInt(1000))
	if !ok {
		t.Fatal("Expected fees to be computable")
	}
	if f.StillRequired.Sign() != 0 {
		t.Errorf("Expected still required 0, got %s", f.StillRequired)
	}
	if f.PotentialReward.Sign() != 0 {
		t.Errorf("Expected no reward once funded, got %s", f.PotentialReward)
	}
	if !f.FullyFunded {
		t.Error("Expected FullyFunded to follow the round flag")
	}
}

func TestComputeZeroAppealCost(t *testing.T) {
	p := params(5000, 10000, 20000, 10000)
	f, ok := Compute(store.PartyChallenger, p, store.RulingAccept, round(store.RulingAccept, "0", "0"), big.NewInt(0))
	if !ok {
		t.Fatal("Expected fees to be computable with zero appeal cost")
	}
	if f.Required.Sign() != 0 || f.StillRequired.Sign() != 0 || f.PotentialReward.Sign() != 0 {
		t.Errorf("Expected all zero, got %+v", f)
	}
}

func TestComputeMissingInputs(t *testing.T) {
	good := params(5000, 10000, 20000, 10000)
	r := round(store.RulingAccept, "0", "0")
	cost := big.NewInt(1000)

	tests := []struct {
		name   string
		side   store.Party
		params StakeParams
		round  *store.Round
		cost   *big.Int
	}{
		{"party none", store.PartyNone, good, r, cost},
		{"no appeal cost", store.PartyRequester, good, r, nil},
		{"no round", store.PartyRequester, good, nil, cost},
		{"no shared", store.PartyRequester, StakeParams{Winner: good.Winner, Loser: good.Loser, Divisor: good.Divisor}, r, cost},
		{"no winner", store.PartyRequester, StakeParams{Shared: good.Shared, Loser: good.Loser, Divisor: good.Divisor}, r, cost},
		{"no loser", store.PartyRequester, StakeParams{Shared: good.Shared, Winner: good.Winner, Divisor: good.Divisor}, r, cost},
		{"no divisor", store.PartyRequester, StakeParams{Shared: good.Shared, Winner: good.Winner, Loser: good.Loser}, r, cost},
		{"zero divisor", store.PartyRequester, params(5000, 10000, 20000, 0), r, cost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Compute(tt.side, tt.params, store.RulingAccept, tt.round, tt.cost); ok {
				t.Error("Expected not computable")
			}
		})
	}
}

func TestComputeRulingEncodingEquivalence(t *testing.T) {
	p := params(5000, 10000, 20000, 10000)
	cost := bi("123456789012345678901")
	for _, pair := range [][2]string{{"None", "0"}, {"Accept", "1"}, {"Reject", "2"}} {
		for _, side := range []store.Party{store.PartyRequester, store.PartyChallenger} {
			a, _ := Compute(side, p, store.ParseRuling(pair[0]), round(store.ParseRuling(pair[0]), "100", "200"), cost)
			b, _ := Compute(side, p, store.ParseRuling(pair[1]), round(store.ParseRuling(pair[1]), "100", "200"), cost)
			if a.Required.Cmp(b.Required) != 0 || a.StillRequired.Cmp(b.StillRequired) != 0 || a.PotentialReward.Cmp(b.PotentialReward) != 0 {
				t.Errorf("%v %s: %+v != %+v", pair, side, a, b)
			}
		}
	}
}

func TestComputeConservationLargeValues(t *testing.T) {
	p := StakeParams{
		Shared:  big.NewInt(10000),
		Winner:  big.NewInt(10000),
		Loser:   big.NewInt(20000),
		Divisor: big.NewInt(10000),
	}
	cost := bi("340282366920938463463374607431768211455") // 2^128-1
	paidValues := []string{"0", "1", "340282366920938463463374607431768211455", "1000000000000000000000000000000000000000000"}

	for _, paid := range paidValues {
		for _, side := range []store.Party{store.PartyRequester, store.PartyChallenger} {
			f, ok := Compute(side, p, store.RulingAccept, round(store.RulingAccept, paid, paid), cost)
			if !ok {
				t.Fatal("Expected fees to be computable")
			}
			if f.StillRequired.Sign() < 0 {
				t.Errorf("still required negative: %s", f.StillRequired)
			}
			if f.StillRequired.Cmp(f.Required) > 0 {
				t.Errorf("still required %s exceeds required %s", f.StillRequired, f.Required)
			}
		}
	}
}

func TestComputeDoesNotAliasInputs(t *testing.T) {
	p := params(5000, 10000, 20000, 10000)
	r := round(store.RulingAccept, "1500", "0")
	cost := big.NewInt(1000)

	f, _ := Compute(store.PartyRequester, p, store.RulingAccept, r, cost)
	f.Paid.SetInt64(0)
	f.Required.SetInt64(0)

	if r.AmountPaidRequester.Int64() != 1500 {
		t.Error("Compute result aliases the round's paid amount")
	}
	if cost.Int64() != 1000 {
		t.Error("Compute result aliases the appeal cost")
	}
}

func TestDeposit(t *testing.T) {
	p := &store.RegistryParameters{
		SubmissionBaseDeposit:          big.NewInt(100),
		RemovalBaseDeposit:             big.NewInt(200),
		SubmissionChallengeBaseDeposit: big.NewInt(300),
		ArbitrationCost:                big.NewInt(50),
	}
	if got := DepositFor(p, store.DepositSubmission); got.Int64() != 150 {
		t.Errorf("submission deposit: expected 150, got %s", got)
	}
	if got := DepositFor(p, store.DepositSubmissionChallenge); got.Int64() != 350 {
		t.Errorf("challenge deposit: expected 350, got %s", got)
	}
	// Missing base counts as zero.
	if got := DepositFor(p, store.DepositRemovalChallenge); got.Int64() != 50 {
		t.Errorf("removal challenge deposit: expected 50, got %s", got)
	}
}
