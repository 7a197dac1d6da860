package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// AppealCoster fetches a dispute's current appeal cost.
type AppealCoster interface {
	AppealCost(ctx context.Context, arbitrator common.Address, disputeID *big.Int, extraData []byte) (*big.Int, error)
}

// AppealCostCache memoises appeal costs until the next block. Appeal costs
// change between rounds, so the cache is cleared on every new head.
type AppealCostCache struct {
	source AppealCoster

	mu    sync.RWMutex
	costs map[string]*big.Int
	block uint64
}

// NewAppealCostCache wraps source with a per-block cache.
func NewAppealCostCache(source AppealCoster) *AppealCostCache {
	return &AppealCostCache{
		source: source,
		costs:  make(map[string]*big.Int),
	}
}

// Get returns the cached cost or fetches it.
func (c *AppealCostCache) Get(ctx context.Context, arbitrator common.Address, disputeID *big.Int, extraData []byte) (*big.Int, error) {
	key := arbitrator.Hex() + "/" + disputeID.String()

	c.mu.RLock()
	cost, ok := c.costs[key]
	block := c.block
	c.mu.RUnlock()
	if ok {
		return new(big.Int).Set(cost), nil
	}

	cost, err := c.source.AppealCost(ctx, arbitrator, disputeID, extraData)
	if err != nil {
		return nil, err
	}

	// A cost read before a newer head is not cached for that head.
	c.mu.Lock()
	if c.block == block {
		c.costs[key] = cost
	}
	c.mu.Unlock()

	return new(big.Int).Set(cost), nil
}

// OnHead drops every cached cost when a newer block arrives.
func (c *AppealCostCache) OnHead(number uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if number <= c.block {
		return
	}
	c.block = number
	c.costs = make(map[string]*big.Int)
}

// Len returns the number of cached costs.
func (c *AppealCostCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.costs)
}
