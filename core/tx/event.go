package tx

import (
	"math/big"

	"nativeswap/core/types"
)

// EventType represents the type of emitted record.
type EventType uint8

const (
	EvPairCreated        EventType = 1
	EvLiquidityAdded     EventType = 2
	EvLiquidityRemoved   EventType = 3
	EvSwapAssetForNative EventType = 4
	EvSwapNativeForAsset EventType = 5
	EvTransfer           EventType = 6
	EvApproval           EventType = 7
)

// Event is an emitted record for observability. It carries no correctness
// obligations; all settlement state lives in the world state itself.
type Event struct {
	Type    EventType
	Pair    types.Address
	Asset   types.AssetID
	Account types.Address // caller, provider or recipient, per event type

	NativeAmount *big.Int
	AssetAmount  *big.Int
	Shares       *big.Int
}

func (t EventType) String() string {
	switch t {
	case EvPairCreated:
		return "pair_created"
	case EvLiquidityAdded:
		return "liquidity_added"
	case EvLiquidityRemoved:
		return "liquidity_removed"
	case EvSwapAssetForNative:
		return "swap_asset_for_native"
	case EvSwapNativeForAsset:
		return "swap_native_for_asset"
	case EvTransfer:
		return "transfer"
	case EvApproval:
		return "approval"
	}
	return "unknown"
}
