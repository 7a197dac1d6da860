// Package store provides registry data models and the local status history.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ItemStatus is the on-chain status of a registry item.
type ItemStatus int

const (
	StatusAbsent ItemStatus = iota
	StatusRegistered
	StatusRegistrationRequested
	StatusClearingRequested
)

var itemStatusNames = []string{"Absent", "Registered", "RegistrationRequested", "ClearingRequested"}

// ParseItemStatus accepts the subgraph word or the legacy numeric encoding.
func ParseItemStatus(s string) (ItemStatus, error) {
	s = strings.TrimSpace(s)
	for i, name := range itemStatusNames {
		if s == name || s == fmt.Sprint(i) {
			return ItemStatus(i), nil
		}
	}
	return StatusAbsent, fmt.Errorf("unknown item status %q", s)
}

func (s ItemStatus) String() string {
	if s < 0 || int(s) >= len(itemStatusNames) {
		return "Unknown"
	}
	return itemStatusNames[s]
}

// Pending reports whether the item has an open registration or removal request.
func (s ItemStatus) Pending() bool {
	return s == StatusRegistrationRequested || s == StatusClearingRequested
}

// UnmarshalJSON accepts either a string or a number.
func (s *ItemStatus) UnmarshalJSON(data []byte) error {
	parsed, err := ParseItemStatus(unquote(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Ruling is the arbitrator's current ruling on a dispute.
type Ruling int

const (
	RulingNone Ruling = iota
	RulingAccept
	RulingReject
)

// ParseRuling normalises both encodings ("Accept" and "1" are the same ruling).
// Anything unrecognised is treated as no ruling.
func ParseRuling(s string) Ruling {
	switch strings.TrimSpace(s) {
	case "Accept", "1":
		return RulingAccept
	case "Reject", "2":
		return RulingReject
	default:
		return RulingNone
	}
}

func (r Ruling) String() string {
	switch r {
	case RulingAccept:
		return "Accept"
	case RulingReject:
		return "Reject"
	default:
		return "None"
	}
}

// Decisive reports whether the ruling picks a side.
func (r Ruling) Decisive() bool {
	return r == RulingAccept || r == RulingReject
}

// UnmarshalJSON accepts either a string or a number and never fails on
// unknown values.
func (r *Ruling) UnmarshalJSON(data []byte) error {
	*r = ParseRuling(unquote(data))
	return nil
}

// Party is a side of a request.
type Party int

const (
	PartyNone Party = iota
	PartyRequester
	PartyChallenger
)

// ParseParty parses a side name as used on the command line.
func ParseParty(s string) (Party, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "requester", "1":
		return PartyRequester, nil
	case "challenger", "2":
		return PartyChallenger, nil
	case "none", "0", "":
		return PartyNone, nil
	}
	return PartyNone, fmt.Errorf("unknown party %q", s)
}

func (p Party) String() string {
	switch p {
	case PartyRequester:
		return "requester"
	case PartyChallenger:
		return "challenger"
	default:
		return "none"
	}
}

// Opponent returns the other side. None has no opponent.
func (p Party) Opponent() Party {
	switch p {
	case PartyRequester:
		return PartyChallenger
	case PartyChallenger:
		return PartyRequester
	default:
		return PartyNone
	}
}

// Item is a registry entry as read from the subgraph.
type Item struct {
	// ID is the item ID (keccak of the item data)
	ID string

	Status   ItemStatus
	Disputed bool

	// Data is the item data URI, usually /ipfs/<cid>/item.json
	Data string

	// DataCID is the CID parsed out of Data, empty when Data is not an IPFS path
	DataCID string

	// Requests are ordered latest first
	Requests []Request
}

// LatestRequest returns the most recent request, or nil.
func (i *Item) LatestRequest() *Request {
	if len(i.Requests) == 0 {
		return nil
	}
	return &i.Requests[0]
}

// Request is a registration or removal attempt on an item.
type Request struct {
	Disputed       bool
	Resolved       bool
	SubmissionTime int64
	DisputeID      *big.Int
	Requester      common.Address
	Challenger     common.Address

	// Rounds are ordered latest first
	Rounds []Round
}

// LatestRound returns the most recent round, or nil.
func (r *Request) LatestRound() *Round {
	if len(r.Rounds) == 0 {
		return nil
	}
	return &r.Rounds[0]
}

// Round is one funding round of a dispute.
type Round struct {
	HasPaidRequester     bool
	HasPaidChallenger    bool
	AmountPaidRequester  *big.Int
	AmountPaidChallenger *big.Int
	Ruling               Ruling

	// AppealPeriodStart is 0 until the arbitrator opens the appeal period
	AppealPeriodStart int64
	AppealPeriodEnd   int64
}

// AmountPaid returns the amount contributed by a side. Missing amounts are zero.
func (r *Round) AmountPaid(side Party) *big.Int {
	var v *big.Int
	switch side {
	case PartyRequester:
		v = r.AmountPaidRequester
	case PartyChallenger:
		v = r.AmountPaidChallenger
	}
	if v == nil {
		return new(big.Int)
	}
	return v
}

// HasPaid reports whether a side fully funded the round.
func (r *Round) HasPaid(side Party) bool {
	switch side {
	case PartyRequester:
		return r.HasPaidRequester
	case PartyChallenger:
		return r.HasPaidChallenger
	}
	return false
}

// DepositKind selects one of the registry's base deposits.
type DepositKind int

const (
	DepositSubmission DepositKind = iota
	DepositRemoval
	DepositSubmissionChallenge
	DepositRemovalChallenge
)

// RegistryParameters are the registry constants read through view calls.
type RegistryParameters struct {
	Address common.Address

	SharedStakeMultiplier *big.Int
	WinnerStakeMultiplier *big.Int
	LoserStakeMultiplier  *big.Int
	MultiplierDivisor     *big.Int

	// ChallengePeriodDuration is in seconds
	ChallengePeriodDuration int64

	Arbitrator          common.Address
	ArbitratorExtraData []byte
	ArbitrationCost     *big.Int

	SubmissionBaseDeposit          *big.Int
	RemovalBaseDeposit             *big.Int
	SubmissionChallengeBaseDeposit *big.Int
	RemovalChallengeBaseDeposit    *big.Int

	FetchedAt time.Time
}

// BaseDeposit returns the base deposit for a request or challenge kind.
func (p *RegistryParameters) BaseDeposit(kind DepositKind) *big.Int {
	switch kind {
	case DepositSubmission:
		return p.SubmissionBaseDeposit
	case DepositRemoval:
		return p.RemovalBaseDeposit
	case DepositSubmissionChallenge:
		return p.SubmissionChallengeBaseDeposit
	case DepositRemovalChallenge:
		return p.RemovalChallengeBaseDeposit
	}
	return nil
}

// Head is a new block observed on the chain.
type Head struct {
	Number    uint64
	Timestamp int64
}

// Evaluation is the derived view of one item at one point in time.
type Evaluation struct {
	ItemID      string
	Status      string
	EvaluatedAt int64
	Disputed    bool
	Ruling      Ruling

	// Requester and Challenger are set only while the round is crowdfunding
	Requester  *SideFees
	Challenger *SideFees
}

// SideFees are the crowdfunding numbers for one side.
type SideFees struct {
	Required        *big.Int
	Paid            *big.Int
	StillRequired   *big.Int
	PotentialReward *big.Int
	FullyFunded     bool
	Deadline        int64
}

// Transition records an observed status change of an item.
type Transition struct {
	ID         string
	Registry   string
	ItemID     string
	From       string
	To         string
	ObservedAt time.Time
}

// unquote strips JSON string quotes so numbers and strings decode alike.
func unquote(data []byte) string {
	data = bytes.TrimSpace(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}
