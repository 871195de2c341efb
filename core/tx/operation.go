// Package tx implements operation definitions and execution.
package tx

import (
	"bytes"
	"encoding/gob"
	"math/big"

	"nativeswap/core/types"
)

// OpType represents the type of operation.
type OpType uint8

const (
	OpTransfer           OpType = 1 // Move native currency or tokens between accounts
	OpCreatePair         OpType = 2 // Create the pair for an asset
	OpDeposit            OpType = 3 // Add liquidity to a pair
	OpWithdraw           OpType = 4 // Burn liquidity shares for reserves
	OpSwapAssetForNative OpType = 5 // Single-hop asset → native swap
	OpSwapNativeForAsset OpType = 6 // Single-hop native → asset swap
	OpSwapAssetForAsset  OpType = 7 // Registry-routed two-hop swap
	OpApprove            OpType = 8 // Grant a spender an allowance over the caller's tokens
)

func (t OpType) String() string {
	switch t {
	case OpTransfer:
		return "transfer"
	case OpCreatePair:
		return "create_pair"
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	case OpSwapAssetForNative:
		return "swap_asset_for_native"
	case OpSwapNativeForAsset:
		return "swap_native_for_asset"
	case OpSwapAssetForAsset:
		return "swap_asset_for_asset"
	case OpApprove:
		return "approve"
	}
	return "unknown"
}

// Operation represents one top-level call into the engine. Value is the
// attached native amount; it is moved from Caller to the target pair
// before the operation body runs.
type Operation struct {
	Type    OpType
	Caller  types.Address
	Value   *big.Int
	Payload []byte
}

// Hash returns the hash of the operation.
func (op *Operation) Hash() types.Hash {
	var buf bytes.Buffer
	buf.WriteByte(byte(op.Type))
	buf.Write(op.Caller[:])
	buf.Write(types.BigIntToBytes(op.Value))
	buf.Write(op.Payload)
	return types.Keccak256(buf.Bytes())
}

// TransferPayload moves Amount of Asset from the caller to To. The zero
// asset identifier marks the native currency.
type TransferPayload struct {
	To     types.Address
	Asset  types.AssetID
	Amount *big.Int
}

// CreatePairPayload creates the pair for Asset.
type CreatePairPayload struct {
	Asset types.AssetID
}

// DepositPayload adds liquidity to Asset's pair. The native side is the
// operation's attached value; AssetMax caps the asset side.
type DepositPayload struct {
	Asset    types.AssetID
	AssetMax *big.Int
}

// WithdrawPayload burns Shares of the caller's liquidity in Asset's pair.
type WithdrawPayload struct {
	Asset  types.AssetID
	Shares *big.Int
}

// SwapAssetForNativePayload swaps AmountIn of Asset for native currency.
type SwapAssetForNativePayload struct {
	Asset     types.AssetID
	AmountIn  *big.Int
	MinOut    *big.Int // Slippage protection
	Recipient types.Address
}

// SwapNativeForAssetPayload swaps the attached value for Asset.
type SwapNativeForAssetPayload struct {
	Asset     types.AssetID
	MinOut    *big.Int // Slippage protection
	Recipient types.Address
}

// ApprovePayload sets Spender's allowance over the caller's Asset to
// Amount. An empty Spender targets the asset's pair, which covers the
// common case of approving before a deposit or swap.
type ApprovePayload struct {
	Asset   types.AssetID
	Spender types.Address
	Amount  *big.Int
}

// SwapAssetForAssetPayload swaps AmountIn of Asset for TargetAsset,
// routed through the native currency.
type SwapAssetForAssetPayload struct {
	Asset       types.AssetID
	TargetAsset types.AssetID
	AmountIn    *big.Int
	MinOut      *big.Int // Slippage protection on the final output
}

func encodePayload(p any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodePayload(data []byte, p any) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(p); err != nil {
		return types.ErrInvalidPayload
	}
	return nil
}

// Encode encodes the payload to bytes.
func (p *TransferPayload) Encode() ([]byte, error) { return encodePayload(p) }

// DecodeTransferPayload decodes bytes to TransferPayload.
func DecodeTransferPayload(data []byte) (*TransferPayload, error) {
	var p TransferPayload
	if err := decodePayload(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode encodes the payload to bytes.
func (p *CreatePairPayload) Encode() ([]byte, error) { return encodePayload(p) }

// DecodeCreatePairPayload decodes bytes to CreatePairPayload.
func DecodeCreatePairPayload(data []byte) (*CreatePairPayload, error) {
	var p CreatePairPayload
	if err := decodePayload(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode encodes the payload to bytes.
func (p *DepositPayload) Encode() ([]byte, error) { return encodePayload(p) }

// DecodeDepositPayload decodes bytes to DepositPayload.
func DecodeDepositPayload(data []byte) (*DepositPayload, error) {
	var p DepositPayload
	if err := decodePayload(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode encodes the payload to bytes.
func (p *WithdrawPayload) Encode() ([]byte, error) { return encodePayload(p) }

// DecodeWithdrawPayload decodes bytes to WithdrawPayload.
func DecodeWithdrawPayload(data []byte) (*WithdrawPayload, error) {
	var p WithdrawPayload
	if err := decodePayload(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode encodes the payload to bytes.
func (p *SwapAssetForNativePayload) Encode() ([]byte, error) { return encodePayload(p) }

// DecodeSwapAssetForNativePayload decodes bytes to SwapAssetForNativePayload.
func DecodeSwapAssetForNativePayload(data []byte) (*SwapAssetForNativePayload, error) {
	var p SwapAssetForNativePayload
	if err := decodePayload(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode encodes the payload to bytes.
func (p *SwapNativeForAssetPayload) Encode() ([]byte, error) { return encodePayload(p) }

// DecodeSwapNativeForAssetPayload decodes bytes to SwapNativeForAssetPayload.
func DecodeSwapNativeForAssetPayload(data []byte) (*SwapNativeForAssetPayload, error) {
	var p SwapNativeForAssetPayload
	if err := decodePayload(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode encodes the payload to bytes.
func (p *ApprovePayload) Encode() ([]byte, error) { return encodePayload(p) }

// DecodeApprovePayload decodes bytes to ApprovePayload.
func DecodeApprovePayload(data []byte) (*ApprovePayload, error) {
	var p ApprovePayload
	if err := decodePayload(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode encodes the payload to bytes.
func (p *SwapAssetForAssetPayload) Encode() ([]byte, error) { return encodePayload(p) }

// DecodeSwapAssetForAssetPayload decodes bytes to SwapAssetForAssetPayload.
func DecodeSwapAssetForAssetPayload(data []byte) (*SwapAssetForAssetPayload, error) {
	var p SwapAssetForAssetPayload
	if err := decodePayload(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
