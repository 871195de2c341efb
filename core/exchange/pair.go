// Package exchange implements the trading pair: reserve accounting, the
// liquidity-share ledger and swap settlement, including registry-routed
// two-hop swaps.
package exchange

import (
	"math/big"

	"nativeswap/core/pricing"
	"nativeswap/core/token"
	"nativeswap/core/types"
)

// WorldState is the slice of world state a pair needs: asset ledgers, the
// native-currency balances and the registry's asset→pair mapping. The state
// package provides the implementation; pairs never hold it, every operation
// receives it.
type WorldState interface {
	// Ledger returns the ledger for asset, or ErrNoSuchToken.
	Ledger(asset types.AssetID) (token.Ledger, error)
	// NativeBalance returns the native-currency balance of addr.
	NativeBalance(addr types.Address) *big.Int
	// TransferNative moves native currency between accounts.
	TransferNative(from, to types.Address, amount *big.Int) error
	// PairFor returns the pair bound to asset, or the zero address.
	PairFor(asset types.AssetID) types.Address
	// PairAt returns the pair at addr, or nil.
	PairAt(addr types.Address) *Pair
}

// Env carries the call context of one operation: who initiated it and how
// much native currency was attached. The attached value is credited to the
// callee before the operation body runs, the same way a value-bearing call
// credits its target up front.
type Env struct {
	Caller types.Address
	Value  *big.Int
}

// AttachedValue returns the attached native amount, never nil.
func (e Env) AttachedValue() *big.Int {
	if e.Value == nil {
		return big.NewInt(0)
	}
	return e.Value
}

// Pair is one trading venue binding the native currency to exactly one
// asset. Reserves are never stored: they are derived from the live ledger
// and native balances on every read.
type Pair struct {
	Addr     types.Address
	Asset    types.AssetID
	Registry types.Address
	FeeRate  uint64 // basis points, fixed at creation

	ShareSupply *big.Int
	Shares      map[types.Address]*big.Int
}

// PairAddress derives the deterministic identity of the pair a registry
// creates for asset.
func PairAddress(registry types.Address, asset types.AssetID) types.Address {
	h := types.Keccak256(registry[:], asset[:])
	return types.BytesToAddress(h[:])
}

// NewPair creates an unfunded pair bound to asset.
func NewPair(registry types.Address, asset types.AssetID, feeRate uint64) *Pair {
	return &Pair{
		Addr:        PairAddress(registry, asset),
		Asset:       asset,
		Registry:    registry,
		FeeRate:     feeRate,
		ShareSupply: big.NewInt(0),
		Shares:      make(map[types.Address]*big.Int),
	}
}

// AssetReserve returns the pair's live balance of its bound asset.
func (p *Pair) AssetReserve(st WorldState) (*big.Int, error) {
	ledger, err := st.Ledger(p.Asset)
	if err != nil {
		return nil, err
	}
	return ledger.BalanceOf(p.Addr), nil
}

// NativeReserve returns the pair's live native-currency balance. During a
// value-bearing call this already includes the attached amount; callers
// needing the pre-call reserve subtract env.Value explicitly.
func (p *Pair) NativeReserve(st WorldState) *big.Int {
	return st.NativeBalance(p.Addr)
}

// ShareBalance returns the liquidity shares held by owner.
func (p *Pair) ShareBalance(owner types.Address) *big.Int {
	if sh, ok := p.Shares[owner]; ok {
		return new(big.Int).Set(sh)
	}
	return big.NewInt(0)
}

// Deposit adds liquidity. The attached native amount fixes the native side;
// assetMax caps the asset side. On the first deposit any ratio is accepted,
// the full assetMax is pulled and shares are issued 1:1 with native units,
// fixing the pool's initial price. Afterwards the asset amount is derived
// from the current ratio so the deposit never moves the price:
//
//	requiredAsset = value * assetReserve / nativeReserveBefore
//	minted        = shareSupply * value / nativeReserveBefore
//
// Returns the minted shares and the asset amount actually pulled.
func (p *Pair) Deposit(st WorldState, env Env, assetMax *big.Int) (*big.Int, *big.Int, error) {
	value := env.AttachedValue()
	if value.Sign() <= 0 || assetMax == nil || assetMax.Sign() <= 0 {
		return nil, nil, types.ErrInvalidAmount
	}
	ledger, err := st.Ledger(p.Asset)
	if err != nil {
		return nil, nil, err
	}

	var minted, assetIn *big.Int
	if p.ShareSupply.Sign() == 0 {
		minted = new(big.Int).Set(value)
		assetIn = new(big.Int).Set(assetMax)
	} else {
		// The attached value is already part of our balance; back it out
		// to price against the pre-call reserve.
		nativeBefore := new(big.Int).Sub(p.NativeReserve(st), value)
		assetReserve := ledger.BalanceOf(p.Addr)

		assetIn = new(big.Int).Mul(value, assetReserve)
		assetIn.Div(assetIn, nativeBefore)
		if assetMax.Cmp(assetIn) < 0 {
			return nil, nil, types.ErrInsufficientAsset
		}

		minted = new(big.Int).Mul(p.ShareSupply, value)
		minted.Div(minted, nativeBefore)
	}

	// Shares first, transfers last.
	p.mint(env.Caller, minted)
	if err := ledger.TransferFrom(env.Caller, p.Addr, p.Addr, assetIn); err != nil {
		return nil, nil, err
	}
	return minted, assetIn, nil
}

// Withdraw burns shareAmount of the caller's shares and pays out the
// proportional slice of both reserves. Shares are burned before any funds
// move so a transfer that re-enters the pair can never observe burned
// shares alongside unpaid funds, or the reverse.
func (p *Pair) Withdraw(st WorldState, env Env, shareAmount *big.Int) (*big.Int, *big.Int, error) {
	if shareAmount == nil || shareAmount.Sign() <= 0 {
		return nil, nil, types.ErrInvalidAmount
	}
	if p.ShareSupply.Sign() == 0 {
		return nil, nil, types.ErrInsufficientShares
	}
	ledger, err := st.Ledger(p.Asset)
	if err != nil {
		return nil, nil, err
	}

	nativeReserve := new(big.Int).Sub(p.NativeReserve(st), env.AttachedValue())
	assetReserve := ledger.BalanceOf(p.Addr)

	nativeOut := new(big.Int).Mul(nativeReserve, shareAmount)
	nativeOut.Div(nativeOut, p.ShareSupply)
	assetOut := new(big.Int).Mul(assetReserve, shareAmount)
	assetOut.Div(assetOut, p.ShareSupply)

	if err := p.burn(env.Caller, shareAmount); err != nil {
		return nil, nil, err
	}
	if err := st.TransferNative(p.Addr, env.Caller, nativeOut); err != nil {
		return nil, nil, err
	}
	if err := ledger.Transfer(p.Addr, env.Caller, assetOut); err != nil {
		return nil, nil, err
	}
	return nativeOut, assetOut, nil
}

// SwapAssetForNative pulls amountIn of the bound asset from the caller and
// pays the quoted native amount to recipient. Fails with ErrSlippageExceeded
// if the quote is below minOut.
func (p *Pair) SwapAssetForNative(st WorldState, env Env, amountIn, minOut *big.Int, recipient types.Address) (*big.Int, error) {
	ledger, err := st.Ledger(p.Asset)
	if err != nil {
		return nil, err
	}
	reserveIn := ledger.BalanceOf(p.Addr)
	reserveOut := new(big.Int).Sub(p.NativeReserve(st), env.AttachedValue())

	out, err := pricing.Quote(amountIn, reserveIn, reserveOut, p.FeeRate)
	if err != nil {
		return nil, err
	}
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, types.ErrSlippageExceeded
	}

	if err := ledger.TransferFrom(env.Caller, p.Addr, p.Addr, amountIn); err != nil {
		return nil, err
	}
	if err := st.TransferNative(p.Addr, recipient, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SwapNativeForAsset swaps the attached native amount for the bound asset
// and pays the output to recipient. The recipient may differ from the
// caller; routed swaps rely on this to deliver the second hop to the
// original end user.
func (p *Pair) SwapNativeForAsset(st WorldState, env Env, minOut *big.Int, recipient types.Address) (*big.Int, error) {
	amountIn := env.AttachedValue()
	ledger, err := st.Ledger(p.Asset)
	if err != nil {
		return nil, err
	}
	reserveIn := new(big.Int).Sub(p.NativeReserve(st), amountIn)
	reserveOut := ledger.BalanceOf(p.Addr)

	out, err := pricing.Quote(amountIn, reserveIn, reserveOut, p.FeeRate)
	if err != nil {
		return nil, err
	}
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, types.ErrSlippageExceeded
	}

	if err := ledger.Transfer(p.Addr, recipient, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SwapAssetForAsset exchanges amountIn of this pair's asset for the target
// asset, routing through the native currency: hop one sells the asset for
// native against this pair, hop two buys the target asset from the target
// pair with the bought native attached and the original caller as
// recipient. minOut bounds the final asset output only.
//
// Returns the native amount bought in hop one and the final asset output.
func (p *Pair) SwapAssetForAsset(st WorldState, env Env, amountIn, minOut *big.Int, targetAsset types.AssetID) (*big.Int, *big.Int, error) {
	targetAddr := st.PairFor(targetAsset)
	if targetAddr == types.ZeroAddress {
		return nil, nil, types.ErrNoSuchPair
	}
	if targetAddr == p.Addr {
		return nil, nil, types.ErrSelfRouting
	}
	target := st.PairAt(targetAddr)
	if target == nil {
		return nil, nil, types.ErrNoSuchPair
	}

	nativeBought, err := p.SwapAssetForNative(st, env, amountIn, nil, p.Addr)
	if err != nil {
		return nil, nil, err
	}

	// Attach the bought native to the second hop.
	if err := st.TransferNative(p.Addr, target.Addr, nativeBought); err != nil {
		return nil, nil, err
	}
	hop := Env{Caller: p.Addr, Value: nativeBought}
	assetOut, err := target.SwapNativeForAsset(st, hop, minOut, env.Caller)
	if err != nil {
		return nil, nil, err
	}
	return nativeBought, assetOut, nil
}

func (p *Pair) mint(owner types.Address, amount *big.Int) {
	bal := p.ShareBalance(owner)
	p.Shares[owner] = bal.Add(bal, amount)
	p.ShareSupply = new(big.Int).Add(p.ShareSupply, amount)
}

func (p *Pair) burn(owner types.Address, amount *big.Int) error {
	bal := p.ShareBalance(owner)
	if bal.Cmp(amount) < 0 {
		return types.ErrInsufficientShares
	}
	bal.Sub(bal, amount)
	if bal.Sign() == 0 {
		delete(p.Shares, owner)
	} else {
		p.Shares[owner] = bal
	}
	p.ShareSupply = new(big.Int).Sub(p.ShareSupply, amount)
	return nil
}

// Clone creates a deep copy of the pair.
func (p *Pair) Clone() *Pair {
	clone := &Pair{
		Addr:        p.Addr,
		Asset:       p.Asset,
		Registry:    p.Registry,
		FeeRate:     p.FeeRate,
		ShareSupply: new(big.Int).Set(p.ShareSupply),
		Shares:      make(map[types.Address]*big.Int, len(p.Shares)),
	}
	for owner, sh := range p.Shares {
		clone.Shares[owner] = new(big.Int).Set(sh)
	}
	return clone
}
