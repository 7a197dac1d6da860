// Package fees computes appeal crowdfunding amounts the way the registry
// contract does: all arithmetic is on big integers and every multiplier is
// applied as value*multiplier/divisor with truncating division.
package fees

import (
	"math/big"

	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

// StakeParams are the registry's stake multipliers.
type StakeParams struct {
	Shared  *big.Int
	Winner  *big.Int
	Loser   *big.Int
	Divisor *big.Int
}

// StakeParamsFrom extracts the stake multipliers from registry parameters.
func StakeParamsFrom(p *store.RegistryParameters) StakeParams {
	if p == nil {
		return StakeParams{}
	}
	return StakeParams{
		Shared:  p.SharedStakeMultiplier,
		Winner:  p.WinnerStakeMultiplier,
		Loser:   p.LoserStakeMultiplier,
		Divisor: p.MultiplierDivisor,
	}
}

func (s StakeParams) complete() bool {
	return s.Shared != nil && s.Winner != nil && s.Loser != nil &&
		s.Divisor != nil && s.Divisor.Sign() != 0
}

// Multiplier returns the stake multiplier that applies to side under ruling.
func (s StakeParams) Multiplier(side store.Party, ruling store.Ruling) *big.Int {
	if !ruling.Decisive() {
		return s.Shared
	}
	if status.Winner(ruling) == side {
		return s.Winner
	}
	return s.Loser
}

// Fees are the crowdfunding figures for one side of the current round.
type Fees struct {
	// Required is the total the side must raise this round.
	Required *big.Int

	// Paid is what the side has raised so far.
	Paid *big.Int

	// StillRequired is Required-Paid, never negative.
	StillRequired *big.Int

	// PotentialReward is what a contributor covering all of StillRequired
	// would receive if the side wins.
	PotentialReward *big.Int

	// FullyFunded mirrors the round's has-paid flag for the side.
	FullyFunded bool
}

// Compute returns the crowdfunding figures for side. ok is false when the
// inputs are not complete enough to compute anything (still loading, or
// side is None).
func Compute(side store.Party, params StakeParams, ruling store.Ruling, round *store.Round, appealCost *big.Int) (f Fees, ok bool) {
	if side == store.PartyNone || appealCost == nil || round == nil || !params.complete() {
		return Fees{}, false
	}

	multiplier := params.Multiplier(side, ruling)
	required := Required(appealCost, multiplier, params.Divisor)

	paid := new(big.Int).Set(round.AmountPaid(side))
	still := new(big.Int).Sub(required, paid)
	if still.Sign() < 0 {
		still.SetInt64(0)
	}

	// The opponent's stake is the pool this side's contributors share if it wins.
	opponentMultiplier := params.Multiplier(side.Opponent(), ruling)
	totalReward := new(big.Int).Mul(appealCost, opponentMultiplier)
	totalReward.Quo(totalReward, params.Divisor)

	reward := new(big.Int)
	if required.Sign() > 0 {
		reward.Mul(still, params.Divisor)
		reward.Quo(reward, required)
		reward.Mul(reward, totalReward)
		reward.Quo(reward, params.Divisor)
	}

	return Fees{
		Required:        required,
		Paid:            paid,
		StillRequired:   still,
		PotentialReward: reward,
		FullyFunded:     round.HasPaid(side),
	}, true
}

// Required returns appealCost + appealCost*multiplier/divisor.
func Required(appealCost, multiplier, divisor *big.Int) *big.Int {
	stake := new(big.Int).Mul(appealCost, multiplier)
	stake.Quo(stake, divisor)
	return stake.Add(stake, appealCost)
}

// Deposit returns the amount a request or challenge must send: the
// registry's base deposit plus the arbitration cost. Missing values count as
// zero.
func Deposit(base, arbitrationCost *big.Int) *big.Int {
	total := new(big.Int)
	if base != nil {
		total.Add(total, base)
	}
	if arbitrationCost != nil {
		total.Add(total, arbitrationCost)
	}
	return total
}

// DepositFor returns the deposit of a given kind for a registry.
func DepositFor(p *store.RegistryParameters, kind store.DepositKind) *big.Int {
	return Deposit(p.BaseDeposit(kind), p.ArbitrationCost)
}
