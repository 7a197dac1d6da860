package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	registryAddr   = common.HexToAddress("0x66260C69d03837016d88c9877e61e08Ef74C59F2")
	arbitratorAddr = common.HexToAddress("0x988b3A538b618C7A603e1c11Ab82Cd16dbE28069")
	extraData      = common.FromHex("0x00000000000000000000000000000000000000000000000000000000000000010000000000000000000000000000000000000000000000000000000000000003")
)

// fakeChain answers eth_call by decoding the selector against the same ABIs
// the registry uses.
type fakeChain struct {
	t   *testing.T
	reg abi.ABI
	arb abi.ABI

	uints map[string]*big.Int

	mu    sync.Mutex
	calls map[string]int
}

func newFakeChain(t *testing.T) *fakeChain {
	reg, err := abi.JSON(strings.NewReader(registryABI))
	require.NoError(t, err)
	arb, err := abi.JSON(strings.NewReader(arbitratorABI))
	require.NoError(t, err)

	return &fakeChain{
		t:   t,
		reg: reg,
		arb: arb,
		uints: map[string]*big.Int{
			"sharedStakeMultiplier":          big.NewInt(10000),
			"winnerStakeMultiplier":          big.NewInt(10000),
			"loserStakeMultiplier":           big.NewInt(20000),
			"MULTIPLIER_DIVISOR":             big.NewInt(10000),
			"challengePeriodDuration":        big.NewInt(302400),
			"submissionBaseDeposit":          big.NewInt(1e15),
			"removalBaseDeposit":             big.NewInt(2e15),
			"submissionChallengeBaseDeposit": big.NewInt(3e15),
			"removalChallengeBaseDeposit":    big.NewInt(4e15),
		},
		calls: make(map[string]int),
	}
}

func (f *fakeChain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	var contract abi.ABI
	switch *call.To {
	case registryAddr:
		contract = f.reg
	case arbitratorAddr:
		contract = f.arb
	default:
		return nil, nil
	}

	method, err := contract.MethodById(call.Data[:4])
	require.NoError(f.t, err)

	f.mu.Lock()
	f.calls[method.Name]++
	f.mu.Unlock()

	switch method.Name {
	case "arbitrator":
		return method.Outputs.Pack(arbitratorAddr)
	case "arbitratorExtraData":
		return method.Outputs.Pack(extraData)
	case "arbitrationCost":
		return method.Outputs.Pack(big.NewInt(5e17))
	case "appealCost":
		args, err := method.Inputs.Unpack(call.Data[4:])
		require.NoError(f.t, err)
		id := args[0].(*big.Int)
		return method.Outputs.Pack(new(big.Int).Mul(id, big.NewInt(1e18)))
	}
	return method.Outputs.Pack(f.uints[method.Name])
}

func (f *fakeChain) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func TestParameters(t *testing.T) {
	fake := newFakeChain(t)
	reg, err := NewRegistry(fake, registryAddr)
	require.NoError(t, err)
	require.Equal(t, registryAddr, reg.Address())

	p, err := reg.Parameters(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(10000), p.SharedStakeMultiplier.Int64())
	require.Equal(t, int64(20000), p.LoserStakeMultiplier.Int64())
	require.Equal(t, int64(10000), p.MultiplierDivisor.Int64())
	require.Equal(t, int64(302400), p.ChallengePeriodDuration)
	require.Equal(t, arbitratorAddr, p.Arbitrator)
	require.Equal(t, extraData, p.ArbitratorExtraData)
	require.Equal(t, int64(5e17), p.ArbitrationCost.Int64())
	require.Equal(t, int64(3e15), p.SubmissionChallengeBaseDeposit.Int64())
	require.False(t, p.FetchedAt.IsZero())
}

func TestAppealCost(t *testing.T) {
	reg, err := NewRegistry(newFakeChain(t), registryAddr)
	require.NoError(t, err)

	cost, err := reg.AppealCost(context.Background(), arbitratorAddr, big.NewInt(3), extraData)
	require.NoError(t, err)
	require.Equal(t, "3000000000000000000", cost.String())

	_, err = reg.AppealCost(context.Background(), arbitratorAddr, nil, extraData)
	require.Error(t, err)
}

func TestNoContract(t *testing.T) {
	reg, err := NewRegistry(newFakeChain(t), common.HexToAddress("0x0000000000000000000000000000000000000001"))
	require.NoError(t, err)

	_, err = reg.Parameters(context.Background())
	require.True(t, errors.Is(err, ErrNoContract), "got %v", err)
}

func TestAppealCostCache(t *testing.T) {
	fake := newFakeChain(t)
	reg, err := NewRegistry(fake, registryAddr)
	require.NoError(t, err)
	cache := NewAppealCostCache(reg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cost, err := cache.Get(ctx, arbitratorAddr, big.NewInt(2), extraData)
		require.NoError(t, err)
		require.Equal(t, "2000000000000000000", cost.String())
	}
	require.Equal(t, 1, fake.count("appealCost"))
	require.Equal(t, 1, cache.Len())

	// Mutating a returned value must not poison the cache.
	cost, _ := cache.Get(ctx, arbitratorAddr, big.NewInt(2), extraData)
	cost.SetInt64(0)
	again, _ := cache.Get(ctx, arbitratorAddr, big.NewInt(2), extraData)
	require.Equal(t, "2000000000000000000", again.String())

	cache.OnHead(10)
	require.Equal(t, 0, cache.Len())
	_, err = cache.Get(ctx, arbitratorAddr, big.NewInt(2), extraData)
	require.NoError(t, err)
	require.Equal(t, 2, fake.count("appealCost"))

	// An older or repeated head keeps the cache.
	cache.OnHead(10)
	cache.OnHead(9)
	require.Equal(t, 1, cache.Len())
}

// headDuringFetch advances the cache's head while a fetch is in flight.
type headDuringFetch struct {
	cache *AppealCostCache
	head  uint64
}

func (h *headDuringFetch) AppealCost(context.Context, common.Address, *big.Int, []byte) (*big.Int, error) {
	h.cache.OnHead(h.head)
	return big.NewInt(7), nil
}

func TestAppealCostCacheSkipsStaleFetch(t *testing.T) {
	source := &headDuringFetch{head: 5}
	cache := NewAppealCostCache(source)
	source.cache = cache

	cost, err := cache.Get(context.Background(), arbitratorAddr, big.NewInt(1), extraData)
	require.NoError(t, err)
	require.Equal(t, int64(7), cost.Int64())
	require.Equal(t, 0, cache.Len())
}
