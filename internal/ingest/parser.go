// Package ingest reads registry items from the subgraph and block heads from
// the RPC websocket.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"

	"github.com/curatewatch/engine/internal/store"
)

// flexString decodes a JSON string, number or null into its text form. The
// subgraph returns BigInt fields as strings, but older deployments and
// hand-written fixtures use numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// rawItem mirrors the subgraph Item entity.
type rawItem struct {
	ItemID   string       `json:"itemID"`
	Status   flexString   `json:"status"`
	Disputed bool         `json:"disputed"`
	Data     string       `json:"data"`
	Requests []rawRequest `json:"requests"`
}

type rawRequest struct {
	Disputed       bool       `json:"disputed"`
	Resolved       bool       `json:"resolved"`
	SubmissionTime flexString `json:"submissionTime"`
	DisputeID      flexString `json:"disputeID"`
	Requester      string     `json:"requester"`
	Challenger     string     `json:"challenger"`
	Rounds         []rawRound `json:"rounds"`
}

type rawRound struct {
	HasPaidRequester     bool       `json:"hasPaidRequester"`
	HasPaidChallenger    bool       `json:"hasPaidChallenger"`
	AmountPaidRequester  flexString `json:"amountPaidRequester"`
	AmountPaidChallenger flexString `json:"amountPaidChallenger"`
	Ruling               flexString `json:"ruling"`
	AppealPeriodStart    flexString `json:"appealPeriodStart"`
	AppealPeriodEnd      flexString `json:"appealPeriodEnd"`
}

// ParseItem decodes a single subgraph item object.
func ParseItem(data []byte) (store.Item, error) {
	var raw rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return store.Item{}, fmt.Errorf("decode item: %w", err)
	}
	return convertItem(raw)
}

// convertItem turns the wire form into a store.Item. Requests and rounds keep
// the latest-first order the query asks for.
func convertItem(raw rawItem) (store.Item, error) {
	status, err := store.ParseItemStatus(string(raw.Status))
	if err != nil {
		return store.Item{}, fmt.Errorf("item %s: %w", raw.ItemID, err)
	}

	item := store.Item{
		ID:       raw.ItemID,
		Status:   status,
		Disputed: raw.Disputed,
		Data:     raw.Data,
		DataCID:  ParseDataCID(raw.Data),
		Requests: make([]store.Request, 0, len(raw.Requests)),
	}

	for i, rr := range raw.Requests {
		req, err := convertRequest(rr)
		if err != nil {
			return store.Item{}, fmt.Errorf("item %s request %d: %w", raw.ItemID, i, err)
		}
		item.Requests = append(item.Requests, req)
	}
	return item, nil
}

func convertRequest(rr rawRequest) (store.Request, error) {
	submitted, err := parseInt64(string(rr.SubmissionTime))
	if err != nil {
		return store.Request{}, fmt.Errorf("submissionTime: %w", err)
	}
	disputeID, err := parseBig(string(rr.DisputeID))
	if err != nil {
		return store.Request{}, fmt.Errorf("disputeID: %w", err)
	}

	req := store.Request{
		Disputed:       rr.Disputed,
		Resolved:       rr.Resolved,
		SubmissionTime: submitted,
		DisputeID:      disputeID,
		Requester:      parseAddress(rr.Requester),
		Challenger:     parseAddress(rr.Challenger),
		Rounds:         make([]store.Round, 0, len(rr.Rounds)),
	}

	for i, r := range rr.Rounds {
		round, err := convertRound(r)
		if err != nil {
			return store.Request{}, fmt.Errorf("round %d: %w", i, err)
		}
		req.Rounds = append(req.Rounds, round)
	}
	return req, nil
}

func convertRound(r rawRound) (store.Round, error) {
	paidRequester, err := parseBig(string(r.AmountPaidRequester))
	if err != nil {
		return store.Round{}, fmt.Errorf("amountPaidRequester: %w", err)
	}
	paidChallenger, err := parseBig(string(r.AmountPaidChallenger))
	if err != nil {
		return store.Round{}, fmt.Errorf("amountPaidChallenger: %w", err)
	}
	start, err := parseInt64(string(r.AppealPeriodStart))
	if err != nil {
		return store.Round{}, fmt.Errorf("appealPeriodStart: %w", err)
	}
	end, err := parseInt64(string(r.AppealPeriodEnd))
	if err != nil {
		return store.Round{}, fmt.Errorf("appealPeriodEnd: %w", err)
	}

	return store.Round{
		HasPaidRequester:     r.HasPaidRequester,
		HasPaidChallenger:    r.HasPaidChallenger,
		AmountPaidRequester:  paidRequester,
		AmountPaidChallenger: paidChallenger,
		Ruling:               store.ParseRuling(string(r.Ruling)),
		AppealPeriodStart:    start,
		AppealPeriodEnd:      end,
	}, nil
}

// ParseDataCID extracts the CID from an item data URI such as
// /ipfs/<cid>/item.json or ipfs://<cid>. It returns "" when the URI does not
// carry a valid CID.
func ParseDataCID(uri string) string {
	rest := strings.TrimSpace(uri)
	switch {
	case strings.HasPrefix(rest, "ipfs://"):
		rest = strings.TrimPrefix(rest, "ipfs://")
	case strings.HasPrefix(rest, "/ipfs/"):
		rest = strings.TrimPrefix(rest, "/ipfs/")
	default:
		return ""
	}

	seg, _, _ := strings.Cut(rest, "/")
	c, err := cid.Decode(seg)
	if err != nil {
		return ""
	}
	return c.String()
}

// parseInt64 parses a decimal timestamp. Empty means zero.
func parseInt64(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseBig parses a decimal or 0x-prefixed integer. Empty means absent.
func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

func parseAddress(s string) common.Address {
	if !common.IsHexAddress(s) {
		return common.Address{}
	}
	return common.HexToAddress(s)
}
