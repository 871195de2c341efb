// Package registry implements the asset→pair mapping with create-once
// semantics. Every pair is instantiated through a registry and keeps a
// reference to it for routed swaps.
package registry

import (
	"nativeswap/core/exchange"
	"nativeswap/core/types"
)

// Registry maps each asset to the single pair trading it against the
// native currency. An entry, once written, is never overwritten.
type Registry struct {
	Addr    types.Address
	FeeRate uint64 // fee rate passed to every pair this registry creates
	Pairs   map[types.AssetID]types.Address
}

// New creates an empty registry.
func New(addr types.Address, feeRate uint64) *Registry {
	return &Registry{
		Addr:    addr,
		FeeRate: feeRate,
		Pairs:   make(map[types.AssetID]types.Address),
	}
}

// Create instantiates the pair for asset. Fails with ErrInvalidAsset for
// the null identifier and ErrPairExists if the asset already has a pair.
func (r *Registry) Create(asset types.AssetID) (*exchange.Pair, error) {
	if asset == types.ZeroAsset {
		return nil, types.ErrInvalidAsset
	}
	if _, ok := r.Pairs[asset]; ok {
		return nil, types.ErrPairExists
	}
	pair := exchange.NewPair(r.Addr, asset, r.FeeRate)
	r.Pairs[asset] = pair.Addr
	return pair, nil
}

// PairOf returns the pair bound to asset, or the zero address.
func (r *Registry) PairOf(asset types.AssetID) types.Address {
	return r.Pairs[asset]
}

// Clone creates a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	clone := &Registry{
		Addr:    r.Addr,
		FeeRate: r.FeeRate,
		Pairs:   make(map[types.AssetID]types.Address, len(r.Pairs)),
	}
	for asset, addr := range r.Pairs {
		clone.Pairs[asset] = addr
	}
	return clone
}
