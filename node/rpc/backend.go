// Package rpc implements the JSON-RPC API of the exchange node.
package rpc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/event"
	"github.com/prometheus/client_golang/prometheus"

	"nativeswap/core/pricing"
	"nativeswap/core/tx"
	"nativeswap/core/types"
	"nativeswap/node/engine"
)

// Backend is the surface the RPC server needs from the engine.
type Backend interface {
	// Queries
	NativeBalance(addr types.Address) *big.Int
	TokenBalance(asset types.AssetID, addr types.Address) (*big.Int, error)
	ShareBalance(asset types.AssetID, owner types.Address) (*big.Int, error)
	PairOf(asset types.AssetID) types.Address
	GetPair(asset types.AssetID) *PairInfo
	Quote(asset types.AssetID, assetToNative bool, amountIn *big.Int) (*big.Int, error)
	PriceRatios(asset types.AssetID) (nativePerAsset, assetPerNative *big.Int, err error)
	StateRoot() types.Hash

	// Operations
	Submit(op *tx.Operation) *tx.ExecuteResult

	// Observability
	SubscribeEvents(ch chan<- []tx.Event) event.Subscription
	MetricsRegistry() *prometheus.Registry
}

// PairInfo represents pair information for RPC.
type PairInfo struct {
	Pair          string `json:"pair"`
	Asset         string `json:"asset"`
	NativeReserve string `json:"nativeReserve"`
	AssetReserve  string `json:"assetReserve"`
	ShareSupply   string `json:"shareSupply"`
	FeeRate       uint64 `json:"feeRate"`
}

// EngineBackend implements the Backend interface on the engine.
type EngineBackend struct {
	eng *engine.Engine
}

// NewEngineBackend creates a new EngineBackend.
func NewEngineBackend(eng *engine.Engine) *EngineBackend {
	return &EngineBackend{eng: eng}
}

// NativeBalance returns the native balance of addr.
func (b *EngineBackend) NativeBalance(addr types.Address) *big.Int {
	return b.eng.State().NativeBalance(addr)
}

// TokenBalance returns addr's balance of asset.
func (b *EngineBackend) TokenBalance(asset types.AssetID, addr types.Address) (*big.Int, error) {
	ledger, err := b.eng.State().Ledger(asset)
	if err != nil {
		return nil, err
	}
	return ledger.BalanceOf(addr), nil
}

// ShareBalance returns owner's liquidity shares in asset's pair.
func (b *EngineBackend) ShareBalance(asset types.AssetID, owner types.Address) (*big.Int, error) {
	st := b.eng.State()
	pair := st.PairAt(st.PairFor(asset))
	if pair == nil {
		return nil, types.ErrNoSuchPair
	}
	return pair.ShareBalance(owner), nil
}

// PairOf returns the pair bound to asset, or the zero address.
func (b *EngineBackend) PairOf(asset types.AssetID) types.Address {
	return b.eng.State().PairFor(asset)
}

// GetPair returns pair information, or nil.
func (b *EngineBackend) GetPair(asset types.AssetID) *PairInfo {
	st := b.eng.State()
	pair := st.PairAt(st.PairFor(asset))
	if pair == nil {
		return nil
	}
	assetReserve, err := pair.AssetReserve(st)
	if err != nil {
		return nil
	}
	return &PairInfo{
		Pair:          pair.Addr.Hex(),
		Asset:         pair.Asset.Hex(),
		NativeReserve: pair.NativeReserve(st).String(),
		AssetReserve:  assetReserve.String(),
		ShareSupply:   pair.ShareSupply.String(),
		FeeRate:       pair.FeeRate,
	}
}

// Quote computes a read-only swap quote against the current reserves.
func (b *EngineBackend) Quote(asset types.AssetID, assetToNative bool, amountIn *big.Int) (*big.Int, error) {
	st := b.eng.State()
	pair := st.PairAt(st.PairFor(asset))
	if pair == nil {
		return nil, types.ErrNoSuchPair
	}
	assetReserve, err := pair.AssetReserve(st)
	if err != nil {
		return nil, err
	}
	nativeReserve := pair.NativeReserve(st)
	if assetToNative {
		return pricing.Quote(amountIn, assetReserve, nativeReserve, pair.FeeRate)
	}
	return pricing.Quote(amountIn, nativeReserve, assetReserve, pair.FeeRate)
}

// PriceRatios returns both display ratios of the pair's reserves, scaled
// by pricing.RatioScale.
func (b *EngineBackend) PriceRatios(asset types.AssetID) (*big.Int, *big.Int, error) {
	st := b.eng.State()
	pair := st.PairAt(st.PairFor(asset))
	if pair == nil {
		return nil, nil, types.ErrNoSuchPair
	}
	assetReserve, err := pair.AssetReserve(st)
	if err != nil {
		return nil, nil, err
	}
	nativeReserve := pair.NativeReserve(st)
	nativePerAsset, err := pricing.PriceRatio(nativeReserve, assetReserve)
	if err != nil {
		return nil, nil, err
	}
	assetPerNative, err := pricing.PriceRatio(assetReserve, nativeReserve)
	if err != nil {
		return nil, nil, err
	}
	return nativePerAsset, assetPerNative, nil
}

// StateRoot returns the current state root.
func (b *EngineBackend) StateRoot() types.Hash {
	return b.eng.State().StateHash()
}

// Submit executes an operation.
func (b *EngineBackend) Submit(op *tx.Operation) *tx.ExecuteResult {
	return b.eng.Submit(op)
}

// SubscribeEvents subscribes to operation events.
func (b *EngineBackend) SubscribeEvents(ch chan<- []tx.Event) event.Subscription {
	return b.eng.SubscribeEvents(ch)
}

// MetricsRegistry returns the engine's prometheus registry.
func (b *EngineBackend) MetricsRegistry() *prometheus.Registry {
	return b.eng.Metrics().Registry()
}

// Ensure EngineBackend implements Backend
var _ Backend = (*EngineBackend)(nil)
