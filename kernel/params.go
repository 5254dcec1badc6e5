package kernel

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"golang.org/x/sync/singleflight"
)

// ParamCache memoizes the registry parameters that never change for the
// lifetime of a registry deployment: the token location, the vouching pool
// location and the new version cost. Each is fetched at most once on success;
// failed fetches are not cached. Concurrent first calls share one fetch.
type ParamCache struct {
	src   ParamSource
	group singleflight.Group

	mu       sync.RWMutex
	token    *common.Address
	vouching *common.Address
	cost     *uint256.Int
}

// NewParamCache creates an empty cache over src.
func NewParamCache(src ParamSource) *ParamCache {
	return &ParamCache{src: src}
}

// TokenAddress returns the location of the registry's token.
func (c *ParamCache) TokenAddress(ctx context.Context) (common.Address, error) {
	return load(ctx, c, "token",
		func() (common.Address, bool) {
			if c.token == nil {
				return common.Address{}, false
			}
			return *c.token, true
		},
		func(addr common.Address) { c.token = &addr },
		c.src.Token,
	)
}

// VouchingAddress returns the location of the registry's vouching pool.
func (c *ParamCache) VouchingAddress(ctx context.Context) (common.Address, error) {
	return load(ctx, c, "vouches",
		func() (common.Address, bool) {
			if c.vouching == nil {
				return common.Address{}, false
			}
			return *c.vouching, true
		},
		func(addr common.Address) { c.vouching = &addr },
		c.src.Vouches,
	)
}

// NewVersionCost returns the number of tokens charged to register a release.
// The returned value is a copy and may be modified by the caller.
func (c *ParamCache) NewVersionCost(ctx context.Context) (*uint256.Int, error) {
	cost, err := load(ctx, c, "newVersionCost",
		func() (*uint256.Int, bool) { return c.cost, c.cost != nil },
		func(v *uint256.Int) { c.cost = v.Clone() },
		c.src.NewVersionCost,
	)
	if err != nil {
		return nil, err
	}
	return cost.Clone(), nil
}

// load returns the cached value, or fetches and stores it. get and set run
// under the cache lock. The shared fetch is detached from the cancellation of
// whichever caller started it; each caller stops waiting on its own ctx.
func load[T any](ctx context.Context, c *ParamCache, name string, get func() (T, bool), set func(T), fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	cached := func() (T, bool) {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return get()
	}
	if v, ok := cached(); ok {
		return v, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(name, func() (interface{}, error) {
		// A fetch that completed between the check above and DoChan has
		// already stored its result.
		if v, ok := cached(); ok {
			return v, nil
		}
		paramFetchCounter.Inc(1)
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		set(v)
		c.mu.Unlock()
		log.Debug("Cached registry parameter", "name", name, "value", v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
