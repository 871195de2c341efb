package tx

import (
	"math/big"

	"nativeswap/core/exchange"
	"nativeswap/core/state"
	"nativeswap/core/types"
)

// Executor applies operations to state. Every operation runs against a
// clone of the submitted state and the clone is surfaced only on success,
// so a failing call chain (including the second hop of a routed swap)
// leaves no partial effects behind.
type Executor struct{}

// NewExecutor creates a new executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// ExecuteResult represents the result of executing an operation.
type ExecuteResult struct {
	Success bool
	Error   error
	Events  []Event

	// State is the post-operation state, set only on success. The
	// submitted state is never mutated.
	State     *state.State
	StateRoot types.Hash
}

func failed(err error) *ExecuteResult {
	return &ExecuteResult{Error: err}
}

// Execute executes an operation against s and returns the outcome. On
// success the result carries the committed state and its new root.
func (e *Executor) Execute(s *state.State, op *Operation) *ExecuteResult {
	work := s.Clone()

	pair, err := e.resolve(work, op)
	if err != nil {
		return failed(err)
	}

	// A value-bearing call credits the callee before the body runs.
	if op.Value != nil && op.Value.Sign() > 0 {
		if pair == nil {
			return failed(types.ErrInvalidAmount)
		}
		if err := work.TransferNative(op.Caller, pair.Addr, op.Value); err != nil {
			return failed(err)
		}
	}
	env := exchange.Env{Caller: op.Caller, Value: op.Value}

	var (
		events  []Event
		changes []state.StateChange
	)
	switch op.Type {
	case OpTransfer:
		events, changes, err = e.executeTransfer(work, op)
	case OpCreatePair:
		events, changes, err = e.executeCreatePair(work, op)
	case OpDeposit:
		events, changes, err = e.executeDeposit(work, pair, env, op)
	case OpWithdraw:
		events, changes, err = e.executeWithdraw(work, pair, env, op)
	case OpSwapAssetForNative:
		events, changes, err = e.executeSwapAssetForNative(work, pair, env, op)
	case OpSwapNativeForAsset:
		events, changes, err = e.executeSwapNativeForAsset(work, pair, env, op)
	case OpSwapAssetForAsset:
		events, changes, err = e.executeSwapAssetForAsset(work, pair, env, op)
	case OpApprove:
		events, changes, err = e.executeApprove(work, op)
	default:
		err = types.ErrUnknownOpType
	}
	if err != nil {
		return failed(err)
	}

	return &ExecuteResult{
		Success:   true,
		Events:    events,
		State:     work,
		StateRoot: work.ComputeIncrementalHash(changes),
	}
}

// resolve returns the pair an operation targets, or nil for operations
// that have no pair callee.
func (e *Executor) resolve(work *state.State, op *Operation) (*exchange.Pair, error) {
	var asset types.AssetID
	switch op.Type {
	case OpDeposit:
		p, err := DecodeDepositPayload(op.Payload)
		if err != nil {
			return nil, err
		}
		asset = p.Asset
	case OpWithdraw:
		p, err := DecodeWithdrawPayload(op.Payload)
		if err != nil {
			return nil, err
		}
		asset = p.Asset
	case OpSwapAssetForNative:
		p, err := DecodeSwapAssetForNativePayload(op.Payload)
		if err != nil {
			return nil, err
		}
		asset = p.Asset
	case OpSwapNativeForAsset:
		p, err := DecodeSwapNativeForAssetPayload(op.Payload)
		if err != nil {
			return nil, err
		}
		asset = p.Asset
	case OpSwapAssetForAsset:
		p, err := DecodeSwapAssetForAssetPayload(op.Payload)
		if err != nil {
			return nil, err
		}
		asset = p.Asset
	default:
		return nil, nil
	}
	pair := work.PairAt(work.PairFor(asset))
	if pair == nil {
		return nil, types.ErrNoSuchPair
	}
	return pair, nil
}

func (e *Executor) executeTransfer(work *state.State, op *Operation) ([]Event, []state.StateChange, error) {
	p, err := DecodeTransferPayload(op.Payload)
	if err != nil {
		return nil, nil, err
	}
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return nil, nil, types.ErrInvalidAmount
	}

	var changes []state.StateChange
	if p.Asset == types.ZeroAsset {
		if err := work.TransferNative(op.Caller, p.To, p.Amount); err != nil {
			return nil, nil, err
		}
		changes = append(changes,
			state.StateChange{Type: state.ChangeTypeNative, Key: op.Caller.Bytes()},
			state.StateChange{Type: state.ChangeTypeNative, Key: p.To.Bytes()})
	} else {
		ledger, err := work.Ledger(p.Asset)
		if err != nil {
			return nil, nil, err
		}
		if err := ledger.Transfer(op.Caller, p.To, p.Amount); err != nil {
			return nil, nil, err
		}
		changes = append(changes, state.StateChange{Type: state.ChangeTypeToken, Key: p.Asset.Bytes()})
	}

	events := []Event{{
		Type:         EvTransfer,
		Asset:        p.Asset,
		Account:      p.To,
		NativeAmount: nativeAmountOf(p),
		AssetAmount:  assetAmountOf(p),
	}}
	return events, changes, nil
}

func nativeAmountOf(p *TransferPayload) *big.Int {
	if p.Asset == types.ZeroAsset {
		return p.Amount
	}
	return big.NewInt(0)
}

func assetAmountOf(p *TransferPayload) *big.Int {
	if p.Asset != types.ZeroAsset {
		return p.Amount
	}
	return big.NewInt(0)
}

func (e *Executor) executeApprove(work *state.State, op *Operation) ([]Event, []state.StateChange, error) {
	p, err := DecodeApprovePayload(op.Payload)
	if err != nil {
		return nil, nil, err
	}
	if p.Amount == nil || p.Amount.Sign() < 0 {
		return nil, nil, types.ErrInvalidAmount
	}
	tok := work.Token(p.Asset)
	if tok == nil {
		return nil, nil, types.ErrNoSuchToken
	}
	spender := p.Spender
	if spender == types.ZeroAddress {
		spender = work.PairFor(p.Asset)
		if spender == types.ZeroAddress {
			return nil, nil, types.ErrNoSuchPair
		}
	}
	tok.Approve(op.Caller, spender, p.Amount)

	events := []Event{{
		Type:        EvApproval,
		Asset:       p.Asset,
		Account:     spender,
		AssetAmount: p.Amount,
	}}
	changes := []state.StateChange{{Type: state.ChangeTypeToken, Key: p.Asset.Bytes()}}
	return events, changes, nil
}

func (e *Executor) executeCreatePair(work *state.State, op *Operation) ([]Event, []state.StateChange, error) {
	p, err := DecodeCreatePairPayload(op.Payload)
	if err != nil {
		return nil, nil, err
	}
	pair, err := work.CreatePair(p.Asset)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Type:    EvPairCreated,
		Pair:    pair.Addr,
		Asset:   pair.Asset,
		Account: op.Caller,
	}}
	changes := []state.StateChange{
		{Type: state.ChangeTypePair, Key: pair.Addr.Bytes()},
		{Type: state.ChangeTypeRegistry, Key: pair.Asset.Bytes()},
	}
	return events, changes, nil
}

func (e *Executor) executeDeposit(work *state.State, pair *exchange.Pair, env exchange.Env, op *Operation) ([]Event, []state.StateChange, error) {
	p, err := DecodeDepositPayload(op.Payload)
	if err != nil {
		return nil, nil, err
	}
	minted, assetIn, err := pair.Deposit(work, env, p.AssetMax)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Type:         EvLiquidityAdded,
		Pair:         pair.Addr,
		Asset:        pair.Asset,
		Account:      env.Caller,
		NativeAmount: env.AttachedValue(),
		AssetAmount:  assetIn,
		Shares:       minted,
	}}
	return events, pairChanges(pair, env.Caller), nil
}

func (e *Executor) executeWithdraw(work *state.State, pair *exchange.Pair, env exchange.Env, op *Operation) ([]Event, []state.StateChange, error) {
	p, err := DecodeWithdrawPayload(op.Payload)
	if err != nil {
		return nil, nil, err
	}
	nativeOut, assetOut, err := pair.Withdraw(work, env, p.Shares)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Type:         EvLiquidityRemoved,
		Pair:         pair.Addr,
		Asset:        pair.Asset,
		Account:      env.Caller,
		NativeAmount: nativeOut,
		AssetAmount:  assetOut,
		Shares:       p.Shares,
	}}
	return events, pairChanges(pair, env.Caller), nil
}

func (e *Executor) executeSwapAssetForNative(work *state.State, pair *exchange.Pair, env exchange.Env, op *Operation) ([]Event, []state.StateChange, error) {
	p, err := DecodeSwapAssetForNativePayload(op.Payload)
	if err != nil {
		return nil, nil, err
	}
	recipient := p.Recipient
	if recipient == types.ZeroAddress {
		recipient = env.Caller
	}
	out, err := pair.SwapAssetForNative(work, env, p.AmountIn, p.MinOut, recipient)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Type:         EvSwapAssetForNative,
		Pair:         pair.Addr,
		Asset:        pair.Asset,
		Account:      recipient,
		NativeAmount: out,
		AssetAmount:  p.AmountIn,
	}}
	return events, pairChanges(pair, env.Caller), nil
}

func (e *Executor) executeSwapNativeForAsset(work *state.State, pair *exchange.Pair, env exchange.Env, op *Operation) ([]Event, []state.StateChange, error) {
	p, err := DecodeSwapNativeForAssetPayload(op.Payload)
	if err != nil {
		return nil, nil, err
	}
	recipient := p.Recipient
	if recipient == types.ZeroAddress {
		recipient = env.Caller
	}
	out, err := pair.SwapNativeForAsset(work, env, p.MinOut, recipient)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{{
		Type:         EvSwapNativeForAsset,
		Pair:         pair.Addr,
		Asset:        pair.Asset,
		Account:      recipient,
		NativeAmount: env.AttachedValue(),
		AssetAmount:  out,
	}}
	return events, pairChanges(pair, env.Caller), nil
}

func (e *Executor) executeSwapAssetForAsset(work *state.State, pair *exchange.Pair, env exchange.Env, op *Operation) ([]Event, []state.StateChange, error) {
	p, err := DecodeSwapAssetForAssetPayload(op.Payload)
	if err != nil {
		return nil, nil, err
	}
	nativeBought, assetOut, err := pair.SwapAssetForAsset(work, env, p.AmountIn, p.MinOut, p.TargetAsset)
	if err != nil {
		return nil, nil, err
	}

	targetAddr := work.PairFor(p.TargetAsset)
	events := []Event{
		{
			Type:         EvSwapAssetForNative,
			Pair:         pair.Addr,
			Asset:        pair.Asset,
			Account:      pair.Addr,
			NativeAmount: nativeBought,
			AssetAmount:  p.AmountIn,
		},
		{
			Type:         EvSwapNativeForAsset,
			Pair:         targetAddr,
			Asset:        p.TargetAsset,
			Account:      env.Caller,
			NativeAmount: nativeBought,
			AssetAmount:  assetOut,
		},
	}
	changes := append(pairChanges(pair, env.Caller),
		state.StateChange{Type: state.ChangeTypePair, Key: targetAddr.Bytes()},
		state.StateChange{Type: state.ChangeTypeToken, Key: p.TargetAsset.Bytes()})
	return events, changes, nil
}

func pairChanges(pair *exchange.Pair, caller types.Address) []state.StateChange {
	return []state.StateChange{
		{Type: state.ChangeTypePair, Key: pair.Addr.Bytes()},
		{Type: state.ChangeTypeToken, Key: pair.Asset.Bytes()},
		{Type: state.ChangeTypeNative, Key: caller.Bytes()},
	}
}
