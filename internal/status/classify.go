// Package status derives an item's lifecycle status from registry snapshots.
//
// Every function here is pure: the caller passes the current time in, so the
// same snapshot and timestamp always produce the same code.
package status

import (
	"github.com/curatewatch/engine/internal/store"
)

// Code is the coarse lifecycle classification of an item.
type Code string

const (
	Absent                        Code = "absent"
	Registered                    Code = "registered"
	Submitted                     Code = "submitted"
	RemovalRequested              Code = "removal-requested"
	PendingSubmission             Code = "pending-submission"
	PendingRemoval                Code = "pending-removal"
	Challenged                    Code = "challenged"
	Crowdfunding                  Code = "crowdfunding"
	CrowdfundingWinnerOnly        Code = "crowdfunding-winner-only"
	AwaitingArbitratorEnforcement Code = "awaiting-arbitrator-enforcement"
	WaitingEnforcement            Code = "waiting-enforcement"
)

var labels = map[Code]string{
	Absent:                        "Removed",
	Registered:                    "Registered",
	Submitted:                     "Submitted",
	RemovalRequested:              "Removal Requested",
	PendingSubmission:             "Pending Execution (submission)",
	PendingRemoval:                "Pending Execution (removal)",
	Challenged:                    "Challenged",
	Crowdfunding:                  "Crowdfunding",
	CrowdfundingWinnerOnly:        "Crowdfunding (winner only)",
	AwaitingArbitratorEnforcement: "Awaiting Arbitrator",
	WaitingEnforcement:            "Waiting Enforcement",
}

// Label returns a human readable name for the code.
func (c Code) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// IsCrowdfunding reports whether either side may still fund the current round.
func (c Code) IsCrowdfunding() bool {
	return c == Crowdfunding || c == CrowdfundingWinnerOnly
}

// IsPending reports whether the item waits on someone to execute or enforce.
func (c Code) IsPending() bool {
	switch c {
	case PendingSubmission, PendingRemoval, AwaitingArbitratorEnforcement, WaitingEnforcement:
		return true
	}
	return false
}

// Codes lists every code in display order.
func Codes() []Code {
	return []Code{
		Registered, Absent, Submitted, RemovalRequested, PendingSubmission, PendingRemoval,
		Challenged, Crowdfunding, CrowdfundingWinnerOnly, AwaitingArbitratorEnforcement, WaitingEnforcement,
	}
}

// Classify maps an item snapshot to its status at time now (unix seconds).
// challengePeriod is the registry's challenge period duration in seconds.
func Classify(item *store.Item, now, challengePeriod int64) Code {
	request := item.LatestRequest()

	// Nothing open: the item simply is or is not on the list.
	if request == nil || request.Resolved || !item.Status.Pending() {
		if item.Status == store.StatusRegistered {
			return Registered
		}
		return Absent
	}

	isRegistration := item.Status == store.StatusRegistrationRequested

	if !request.Disputed {
		deadline := request.SubmissionTime + challengePeriod
		if now > deadline {
			if isRegistration {
				return PendingSubmission
			}
			return PendingRemoval
		}
		if isRegistration {
			return Submitted
		}
		return RemovalRequested
	}

	round := request.LatestRound()
	if round == nil || round.AppealPeriodStart == 0 {
		return Challenged
	}

	if !round.Ruling.Decisive() {
		if now <= round.AppealPeriodEnd {
			return Crowdfunding
		}
		return AwaitingArbitratorEnforcement
	}

	if now > round.AppealPeriodEnd {
		return AwaitingArbitratorEnforcement
	}
	if now < HalfTime(round) {
		return Crowdfunding
	}
	if round.HasPaid(Loser(round.Ruling)) {
		return CrowdfundingWinnerOnly
	}
	return WaitingEnforcement
}

// HalfTime returns the end of the first half of the appeal period. An
// inverted period counts as zero length.
func HalfTime(round *store.Round) int64 {
	duration := round.AppealPeriodEnd - round.AppealPeriodStart
	if duration < 0 {
		duration = 0
	}
	return round.AppealPeriodStart + duration/2
}

// Winner returns the side favoured by a ruling.
func Winner(r store.Ruling) store.Party {
	switch r {
	case store.RulingAccept:
		return store.PartyRequester
	case store.RulingReject:
		return store.PartyChallenger
	}
	return store.PartyNone
}

// Loser returns the side ruled against.
func Loser(r store.Ruling) store.Party {
	return Winner(r).Opponent()
}

// AppealDeadline returns the last second at which side may still fund the
// round: the loser has until half time, the winner (or either side when
// there is no ruling) until the end of the appeal period. It returns 0 when
// the appeal period has not opened.
func AppealDeadline(round *store.Round, side store.Party) int64 {
	if round == nil || round.AppealPeriodStart == 0 || side == store.PartyNone {
		return 0
	}
	if round.Ruling.Decisive() && side == Loser(round.Ruling) {
		// Funding is open while now < half time.
		return HalfTime(round) - 1
	}
	return round.AppealPeriodEnd
}
