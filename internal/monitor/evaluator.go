// Package monitor turns polled registry items into evaluations: status,
// crowdfunding figures and status transitions.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"github.com/curatewatch/engine/internal/fees"
	"github.com/curatewatch/engine/internal/status"
	"github.com/curatewatch/engine/internal/store"
)

// ParamsMaxAge bounds how long registry parameters are reused when no new
// heads arrive.
const ParamsMaxAge = 10 * time.Minute

// ParamsFetcher reads the registry's parameters.
type ParamsFetcher interface {
	Parameters(ctx context.Context) (*store.RegistryParameters, error)
}

// AppealCoster returns a dispute's current appeal cost.
type AppealCoster interface {
	Get(ctx context.Context, arbitrator common.Address, disputeID *big.Int, extraData []byte) (*big.Int, error)
}

// Evaluator evaluates items against cached registry parameters and the
// chain clock.
type Evaluator struct {
	fetcher       ParamsFetcher
	costs         AppealCoster
	clock         *Clock
	refreshBlocks uint64
	group         singleflight.Group

	mu          sync.RWMutex
	params      *store.RegistryParameters
	paramsBlock uint64
}

// NewEvaluator creates an Evaluator. Parameters are refetched every
// refreshBlocks heads.
func NewEvaluator(fetcher ParamsFetcher, costs AppealCoster, clock *Clock, refreshBlocks int) *Evaluator {
	if refreshBlocks < 1 {
		refreshBlocks = 1
	}
	return &Evaluator{
		fetcher:       fetcher,
		costs:         costs,
		clock:         clock,
		refreshBlocks: uint64(refreshBlocks),
	}
}

// Params returns the cached registry parameters, refreshing them when they
// are missing, too many blocks old or older than ParamsMaxAge.
func (e *Evaluator) Params(ctx context.Context) (*store.RegistryParameters, error) {
	head := e.clock.Head()

	e.mu.RLock()
	p, at := e.params, e.paramsBlock
	e.mu.RUnlock()

	if p != nil && head.Number < at+e.refreshBlocks && time.Since(p.FetchedAt) < ParamsMaxAge {
		return p, nil
	}
	return e.RefreshParams(ctx)
}

// RefreshParams fetches the parameters now. Concurrent callers share one
// fetch. When the fetch fails but older parameters are cached, those are
// returned.
func (e *Evaluator) RefreshParams(ctx context.Context) (*store.RegistryParameters, error) {
	v, err, _ := e.group.Do("params", func() (interface{}, error) {
		head := e.clock.Head()
		p, err := e.fetcher.Parameters(ctx)
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		e.params = p
		e.paramsBlock = head.Number
		e.mu.Unlock()

		slog.Info("registry_params_refreshed",
			"block", head.Number,
			"challenge_period", p.ChallengePeriodDuration,
			"arbitration_cost", fees.FormatETH(p.ArbitrationCost),
		)
		return p, nil
	})
	if err != nil {
		e.mu.RLock()
		cached := e.params
		e.mu.RUnlock()
		if cached != nil {
			slog.Warn("registry_params_refresh_failed", "error", err, "using_cached_from", cached.FetchedAt)
			return cached, nil
		}
		return nil, fmt.Errorf("fetch registry parameters: %w", err)
	}
	return v.(*store.RegistryParameters), nil
}

// Evaluate classifies item at the current chain time and, while its round is
// crowdfunding, fetches the appeal cost and computes both sides' fees. When
// the appeal cost cannot be read the evaluation is still returned, without
// fees, alongside the error.
func (e *Evaluator) Evaluate(ctx context.Context, item store.Item) (store.Evaluation, error) {
	params, err := e.Params(ctx)
	if err != nil {
		return store.Evaluation{}, err
	}

	now := e.clock.Now()
	code := status.Classify(&item, now, params.ChallengePeriodDuration)
	if !code.IsCrowdfunding() {
		return evaluate(&item, params, code, nil, now), nil
	}

	req := item.LatestRequest()
	if req == nil || req.DisputeID == nil {
		return evaluate(&item, params, code, nil, now), nil
	}

	cost, err := e.costs.Get(ctx, params.Arbitrator, req.DisputeID, params.ArbitratorExtraData)
	if err != nil {
		return evaluate(&item, params, code, nil, now), fmt.Errorf("appeal cost for dispute %s: %w", req.DisputeID, err)
	}
	return evaluate(&item, params, code, cost, now), nil
}

// Evaluate builds the evaluation of item at time now. appealCost may be nil,
// in which case no fees are attached.
func Evaluate(item *store.Item, params *store.RegistryParameters, appealCost *big.Int, now int64) store.Evaluation {
	return evaluate(item, params, status.Classify(item, now, params.ChallengePeriodDuration), appealCost, now)
}

// evaluate builds the evaluation of item for an already classified code.
func evaluate(item *store.Item, params *store.RegistryParameters, code status.Code, appealCost *big.Int, now int64) store.Evaluation {
	ev := store.Evaluation{
		ItemID:      item.ID,
		Status:      string(code),
		EvaluatedAt: now,
	}

	req := item.LatestRequest()
	if req == nil {
		return ev
	}
	ev.Disputed = req.Disputed

	round := req.LatestRound()
	if round == nil {
		return ev
	}
	if req.Disputed {
		ev.Ruling = round.Ruling
	}

	if !code.IsCrowdfunding() || appealCost == nil {
		return ev
	}

	stake := fees.StakeParamsFrom(params)
	for _, side := range []store.Party{store.PartyRequester, store.PartyChallenger} {
		// Past half time the loser can no longer fund.
		if code == status.CrowdfundingWinnerOnly && side == status.Loser(round.Ruling) {
			continue
		}
		f, ok := fees.Compute(side, stake, round.Ruling, round, appealCost)
		if !ok {
			continue
		}
		sf := &store.SideFees{
			Required:        f.Required,
			Paid:            f.Paid,
			StillRequired:   f.StillRequired,
			PotentialReward: f.PotentialReward,
			FullyFunded:     f.FullyFunded,
			Deadline:        status.AppealDeadline(round, side),
		}
		if side == store.PartyRequester {
			ev.Requester = sf
		} else {
			ev.Challenger = sf
		}
	}
	return ev
}
