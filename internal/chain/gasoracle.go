package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/cubecore/chainops/internal/cache"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/metrics"
)

// GasTiers is the three-speed gas price quote derived from the chain's
// suggested standard price: slow = 90%, fast = 120%.
type GasTiers struct {
	Slow     *big.Int
	Standard *big.Int
	Fast     *big.Int
}

// DefaultGasTTL bounds RPC call volume for gas quotes; within the TTL
// repeated reads return the identical cached tiers.
const DefaultGasTTL = 45 * time.Second

// GasOracle serves cached gas tiers and head-block heights per network.
// The cache is the only mutable shared structure; brief staleness is
// accepted over locking around the RPC client.
type GasOracle struct {
	registry *Registry
	gas      *cache.TTL[model.NetworkID, GasTiers]
	heads    *cache.TTL[model.NetworkID, int64]
}

func NewGasOracle(registry *Registry, ttl time.Duration) *GasOracle {
	if ttl <= 0 {
		ttl = DefaultGasTTL
	}
	return &GasOracle{
		registry: registry,
		gas:      cache.NewTTL[model.NetworkID, GasTiers](ttl),
		heads:    cache.NewTTL[model.NetworkID, int64](ttl),
	}
}

// Optimal returns the {slow, standard, fast} gas tiers for network,
// from cache when fresh, otherwise from a live RPC read.
func (o *GasOracle) Optimal(ctx context.Context, network model.NetworkID) (GasTiers, error) {
	if tiers, ok := o.gas.Get(network); ok {
		metrics.CacheHits.WithLabelValues("gas").Inc()
		return tiers, nil
	}
	metrics.CacheMisses.WithLabelValues("gas").Inc()

	client, err := o.registry.Client(network)
	if err != nil {
		return GasTiers{}, err
	}
	standard, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return GasTiers{}, err
	}
	metrics.GasOracleRefreshes.WithLabelValues(network.String()).Inc()

	tiers := DeriveTiers(standard)
	o.gas.Put(network, tiers)
	return tiers, nil
}

// HeadBlock returns the cached head height for network.
func (o *GasOracle) HeadBlock(ctx context.Context, network model.NetworkID) (int64, error) {
	if head, ok := o.heads.Get(network); ok {
		metrics.CacheHits.WithLabelValues("head").Inc()
		return head, nil
	}
	metrics.CacheMisses.WithLabelValues("head").Inc()

	client, err := o.registry.Client(network)
	if err != nil {
		return 0, err
	}
	head, err := client.HeadBlock(ctx)
	if err != nil {
		return 0, err
	}
	o.heads.Put(network, head)
	return head, nil
}

// DeriveTiers computes slow/fast from the standard price.
func DeriveTiers(standard *big.Int) GasTiers {
	return GasTiers{
		Slow:     scale(standard, 90),
		Standard: new(big.Int).Set(standard),
		Fast:     scale(standard, 120),
	}
}

func scale(v *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(pct))
	return out.Div(out, big.NewInt(100))
}
