// Package chain reads registry and arbitrator state through eth_call.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/curatewatch/engine/internal/store"
)

var (
	// ErrNoContract is returned when a call comes back empty, which is what
	// an address without code returns.
	ErrNoContract = errors.New("chain: no contract at address")

	// ErrUnexpectedOutput is returned when a call decodes to the wrong type.
	ErrUnexpectedOutput = errors.New("chain: unexpected call output")
)

// ContractCaller is the subset of ethclient.Client the registry needs.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to an HTTP or websocket RPC endpoint.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", url, err)
	}
	return client, nil
}

// Registry reads a Curate registry and its arbitrator.
type Registry struct {
	caller     ContractCaller
	address    common.Address
	registry   abi.ABI
	arbitrator abi.ABI
}

// NewRegistry creates a reader for the registry at address.
func NewRegistry(caller ContractCaller, address common.Address) (*Registry, error) {
	reg, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse registry abi: %w", err)
	}
	arb, err := abi.JSON(strings.NewReader(arbitratorABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse arbitrator abi: %w", err)
	}
	return &Registry{
		caller:     caller,
		address:    address,
		registry:   reg,
		arbitrator: arb,
	}, nil
}

// Address returns the registry address.
func (r *Registry) Address() common.Address {
	return r.address
}

// Parameters fetches the registry's multipliers, deposits, challenge period,
// arbitrator and arbitration cost. The independent view calls run
// concurrently.
func (r *Registry) Parameters(ctx context.Context) (*store.RegistryParameters, error) {
	start := time.Now()
	p := &store.RegistryParameters{Address: r.address}

	var challengePeriod *big.Int
	uints := map[string]**big.Int{
		"sharedStakeMultiplier":          &p.SharedStakeMultiplier,
		"winnerStakeMultiplier":          &p.WinnerStakeMultiplier,
		"loserStakeMultiplier":           &p.LoserStakeMultiplier,
		"MULTIPLIER_DIVISOR":             &p.MultiplierDivisor,
		"challengePeriodDuration":        &challengePeriod,
		"submissionBaseDeposit":          &p.SubmissionBaseDeposit,
		"removalBaseDeposit":             &p.RemovalBaseDeposit,
		"submissionChallengeBaseDeposit": &p.SubmissionChallengeBaseDeposit,
		"removalChallengeBaseDeposit":    &p.RemovalChallengeBaseDeposit,
	}

	g, gctx := errgroup.WithContext(ctx)
	for method, dst := range uints {
		method, dst := method, dst
		g.Go(func() error {
			v, err := r.callUint(gctx, r.address, r.registry, method)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		})
	}
	g.Go(func() error {
		out, err := r.call(gctx, r.address, r.registry, "arbitrator")
		if err != nil {
			return err
		}
		addr, ok := out[0].(common.Address)
		if !ok {
			return fmt.Errorf("%w: arbitrator is %T", ErrUnexpectedOutput, out[0])
		}
		p.Arbitrator = addr
		return nil
	})
	g.Go(func() error {
		out, err := r.call(gctx, r.address, r.registry, "arbitratorExtraData")
		if err != nil {
			return err
		}
		data, ok := out[0].([]byte)
		if !ok {
			return fmt.Errorf("%w: arbitratorExtraData is %T", ErrUnexpectedOutput, out[0])
		}
		p.ArbitratorExtraData = data
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !challengePeriod.IsInt64() {
		return nil, fmt.Errorf("%w: challenge period %s overflows", ErrUnexpectedOutput, challengePeriod)
	}
	p.ChallengePeriodDuration = challengePeriod.Int64()

	cost, err := r.ArbitrationCost(ctx, p.Arbitrator, p.ArbitratorExtraData)
	if err != nil {
		return nil, err
	}
	p.ArbitrationCost = cost
	p.FetchedAt = time.Now()

	slog.Debug("registry_params_fetched",
		"registry", r.address.Hex(),
		"arbitrator", p.Arbitrator.Hex(),
		"challenge_period", p.ChallengePeriodDuration,
		"elapsed", time.Since(start),
	)
	return p, nil
}

// ArbitrationCost returns the arbitrator's cost of creating a dispute.
func (r *Registry) ArbitrationCost(ctx context.Context, arbitrator common.Address, extraData []byte) (*big.Int, error) {
	return r.callUint(ctx, arbitrator, r.arbitrator, "arbitrationCost", extraData)
}

// AppealCost returns the current cost of appealing a dispute.
func (r *Registry) AppealCost(ctx context.Context, arbitrator common.Address, disputeID *big.Int, extraData []byte) (*big.Int, error) {
	if disputeID == nil {
		return nil, fmt.Errorf("chain: appeal cost: missing dispute id")
	}
	return r.callUint(ctx, arbitrator, r.arbitrator, "appealCost", disputeID, extraData)
}

func (r *Registry) callUint(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	out, err := r.call(ctx, to, contract, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrUnexpectedOutput, method, out[0])
	}
	return v, nil
}

func (r *Registry) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}

	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s on %s: %w", method, to.Hex(), err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoContract, method, to.Hex())
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned nothing", ErrUnexpectedOutput, method)
	}
	return out, nil
}
