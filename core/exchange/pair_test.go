package exchange_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nativeswap/core/exchange"
	"nativeswap/core/state"
	"nativeswap/core/token"
	"nativeswap/core/types"
)

var (
	assetA = types.BytesToAssetID([]byte{0xa1})
	assetC = types.BytesToAssetID([]byte{0xc1})
	alice  = types.Address{0x01}
	bob    = types.Address{0x02}
)

// newWorld builds a state with one funded user and a pair for assetA.
func newWorld(t *testing.T, feeRate uint64) (*state.State, *exchange.Pair) {
	t.Helper()
	st := state.NewState(feeRate)
	tok := token.New(assetA, "Asset A", "ASTA", 18)
	tok.Mint(alice, big.NewInt(1_000_000))
	st.AddToken(tok)
	st.CreditNative(alice, big.NewInt(1_000_000))

	pair, err := st.CreatePair(assetA)
	require.NoError(t, err)
	tok.Approve(alice, pair.Addr, big.NewInt(1_000_000))
	return st, pair
}

// call emulates a value-bearing call: the attached native amount is
// credited to the pair before the handler body runs.
func call(t *testing.T, st *state.State, pair *exchange.Pair, caller types.Address, value int64) exchange.Env {
	t.Helper()
	v := big.NewInt(value)
	if value > 0 {
		require.NoError(t, st.TransferNative(caller, pair.Addr, v))
	}
	return exchange.Env{Caller: caller, Value: v}
}

func deposit(t *testing.T, st *state.State, pair *exchange.Pair, value, assetMax int64) (*big.Int, *big.Int, error) {
	t.Helper()
	env := call(t, st, pair, alice, value)
	return pair.Deposit(st, env, big.NewInt(assetMax))
}

func TestFirstDeposit(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	minted, assetIn, err := deposit(t, st, pair, 500, 1000)
	require.NoError(err)
	require.Equal(int64(500), minted.Int64())
	require.Equal(int64(1000), assetIn.Int64())

	require.Equal(int64(500), pair.ShareSupply.Int64())
	require.Equal(int64(500), pair.ShareBalance(alice).Int64())
	require.Equal(int64(500), pair.NativeReserve(st).Int64())
	assetReserve, err := pair.AssetReserve(st)
	require.NoError(err)
	require.Equal(int64(1000), assetReserve.Int64())
}

func TestSecondDepositKeepsRatio(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 500, 1000)
	require.NoError(err)

	// 100 native at a 1:2 pool requires exactly 200 asset and mints 100.
	minted, assetIn, err := deposit(t, st, pair, 100, 200)
	require.NoError(err)
	require.Equal(int64(100), minted.Int64())
	require.Equal(int64(200), assetIn.Int64())
	require.Equal(int64(600), pair.ShareSupply.Int64())

	// A larger ceiling is simply unused.
	minted, assetIn, err = deposit(t, st, pair, 50, 5000)
	require.NoError(err)
	require.Equal(int64(50), minted.Int64())
	require.Equal(int64(100), assetIn.Int64())

	// Post-deposit ratio matches the pre-deposit 1:2 exactly.
	assetReserve, err := pair.AssetReserve(st)
	require.NoError(err)
	require.Equal(int64(650), pair.NativeReserve(st).Int64())
	require.Equal(int64(1300), assetReserve.Int64())
}

func TestDepositInsufficientAssetCeiling(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 500, 1000)
	require.NoError(err)

	_, _, err = deposit(t, st, pair, 100, 199)
	require.ErrorIs(err, types.ErrInsufficientAsset)
}

func TestDepositInvalidAmounts(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := pair.Deposit(st, exchange.Env{Caller: alice, Value: big.NewInt(0)}, big.NewInt(10))
	require.ErrorIs(err, types.ErrInvalidAmount)
	_, _, err = pair.Deposit(st, exchange.Env{Caller: alice, Value: big.NewInt(10)}, big.NewInt(0))
	require.ErrorIs(err, types.ErrInvalidAmount)
	_, _, err = pair.Deposit(st, exchange.Env{Caller: alice, Value: big.NewInt(10)}, nil)
	require.ErrorIs(err, types.ErrInvalidAmount)
}

func TestWithdraw(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 500, 1000)
	require.NoError(err)

	nativeBefore := st.NativeBalance(alice)
	tok := st.Token(assetA)
	assetBefore := tok.BalanceOf(alice)

	nativeOut, assetOut, err := pair.Withdraw(st, exchange.Env{Caller: alice}, big.NewInt(200))
	require.NoError(err)
	require.Equal(int64(200), nativeOut.Int64())
	require.Equal(int64(400), assetOut.Int64())
	require.Equal(int64(300), pair.ShareSupply.Int64())

	require.Equal(new(big.Int).Add(nativeBefore, nativeOut), st.NativeBalance(alice))
	require.Equal(new(big.Int).Add(assetBefore, assetOut), tok.BalanceOf(alice))
}

func TestWithdrawAllDrainsPool(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 500, 1000)
	require.NoError(err)

	nativeOut, assetOut, err := pair.Withdraw(st, exchange.Env{Caller: alice}, big.NewInt(500))
	require.NoError(err)
	require.Equal(int64(500), nativeOut.Int64())
	require.Equal(int64(1000), assetOut.Int64())

	require.Zero(pair.ShareSupply.Sign())
	require.Empty(pair.Shares)
	require.Zero(pair.NativeReserve(st).Sign())
	assetReserve, err := pair.AssetReserve(st)
	require.NoError(err)
	require.Zero(assetReserve.Sign())

	// Round trip with a single provider and no intervening trades gives
	// back exactly the deposited amounts.
	require.Equal(int64(1_000_000), st.NativeBalance(alice).Int64())
	require.Equal(int64(1_000_000), st.Token(assetA).BalanceOf(alice).Int64())
}

func TestWithdrawFromUnfundedPair(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	// Created but never funded.
	_, _, err := pair.Withdraw(st, exchange.Env{Caller: alice}, big.NewInt(1))
	require.ErrorIs(err, types.ErrInsufficientShares)

	// Fully drained pairs behave the same way.
	_, _, err = deposit(t, st, pair, 500, 1000)
	require.NoError(err)
	_, _, err = pair.Withdraw(st, exchange.Env{Caller: alice}, big.NewInt(500))
	require.NoError(err)
	_, _, err = pair.Withdraw(st, exchange.Env{Caller: alice}, big.NewInt(1))
	require.ErrorIs(err, types.ErrInsufficientShares)
}

func TestWithdrawErrors(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 500, 1000)
	require.NoError(err)

	_, _, err = pair.Withdraw(st, exchange.Env{Caller: alice}, big.NewInt(0))
	require.ErrorIs(err, types.ErrInvalidAmount)
	_, _, err = pair.Withdraw(st, exchange.Env{Caller: alice}, big.NewInt(501))
	require.ErrorIs(err, types.ErrInsufficientShares)
	_, _, err = pair.Withdraw(st, exchange.Env{Caller: bob}, big.NewInt(1))
	require.ErrorIs(err, types.ErrInsufficientShares)
}

func TestSwapAssetForNative(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 1000, 2000)
	require.NoError(err)

	// 2000 asset in against a 2000:1000 asset:native pool, no fee.
	out, err := pair.SwapAssetForNative(st, exchange.Env{Caller: alice}, big.NewInt(2000), big.NewInt(500), bob)
	require.NoError(err)
	require.Equal(int64(500), out.Int64())
	require.Equal(int64(500), st.NativeBalance(bob).Int64())

	assetReserve, err := pair.AssetReserve(st)
	require.NoError(err)
	require.Equal(int64(4000), assetReserve.Int64())
	require.Equal(int64(500), pair.NativeReserve(st).Int64())
}

func TestSwapNativeForAsset(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 1000, 2000)
	require.NoError(err)

	env := call(t, st, pair, alice, 1000)
	out, err := pair.SwapNativeForAsset(st, env, nil, bob)
	require.NoError(err)
	require.Equal(int64(1000), out.Int64())
	require.Equal(int64(1000), st.Token(assetA).BalanceOf(bob).Int64())
}

func TestSwapSlippage(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 1000, 2000)
	require.NoError(err)

	_, err = pair.SwapAssetForNative(st, exchange.Env{Caller: alice}, big.NewInt(2000), big.NewInt(501), alice)
	require.ErrorIs(err, types.ErrSlippageExceeded)

	env := call(t, st, pair, alice, 1000)
	_, err = pair.SwapNativeForAsset(st, env, big.NewInt(1001), alice)
	require.ErrorIs(err, types.ErrSlippageExceeded)
}

func TestSwapGrowsReserveProduct(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 100) // 1% fee

	_, _, err := deposit(t, st, pair, 10_000, 20_000)
	require.NoError(err)

	product := func() *big.Int {
		assetReserve, err := pair.AssetReserve(st)
		require.NoError(err)
		return new(big.Int).Mul(assetReserve, pair.NativeReserve(st))
	}

	before := product()
	for _, in := range []int64{1, 97, 5000} {
		_, err := pair.SwapAssetForNative(st, exchange.Env{Caller: alice}, big.NewInt(in), nil, alice)
		require.NoError(err)
		after := product()
		require.True(after.Cmp(before) >= 0, "product shrank: %s -> %s", before, after)
		before = after
	}
}

func TestReserveQueriesAreIdempotent(t *testing.T) {
	require := require.New(t)
	st, pair := newWorld(t, 0)

	_, _, err := deposit(t, st, pair, 500, 1000)
	require.NoError(err)

	first, err := pair.AssetReserve(st)
	require.NoError(err)
	second, err := pair.AssetReserve(st)
	require.NoError(err)
	require.Equal(first, second)
	require.Equal(pair.NativeReserve(st), pair.NativeReserve(st))
}

// routedWorld extends newWorld with a second funded pair for assetC.
func routedWorld(t *testing.T) (*state.State, *exchange.Pair, *exchange.Pair) {
	t.Helper()
	st, pairA := newWorld(t, 0)

	tokC := token.New(assetC, "Asset C", "ASTC", 18)
	tokC.Mint(alice, big.NewInt(1_000_000))
	st.AddToken(tokC)
	pairC, err := st.CreatePair(assetC)
	require.NoError(t, err)
	tokC.Approve(alice, pairC.Addr, big.NewInt(1_000_000))

	_, _, err = deposit(t, st, pairA, 10_000, 20_000)
	require.NoError(t, err)
	envC := call(t, st, pairC, alice, 10_000)
	_, _, err = pairC.Deposit(st, envC, big.NewInt(40_000))
	require.NoError(t, err)
	return st, pairA, pairC
}

func TestRoutedSwap(t *testing.T) {
	require := require.New(t)
	st, pairA, pairC := routedWorld(t)

	balABefore := st.Token(assetA).BalanceOf(alice)
	balCBefore := st.Token(assetC).BalanceOf(alice)
	nativeBefore := st.NativeBalance(alice)

	// Sell 2000 A for native (no fee: 2000*10000/22000 = 909), then buy C
	// with it (909*40000/10909 = 3333).
	nativeBought, assetOut, err := pairA.SwapAssetForAsset(
		st, exchange.Env{Caller: alice}, big.NewInt(2000), big.NewInt(3000), assetC)
	require.NoError(err)
	require.Equal(int64(909), nativeBought.Int64())
	require.Equal(int64(3333), assetOut.Int64())

	require.Equal(new(big.Int).Sub(balABefore, big.NewInt(2000)), st.Token(assetA).BalanceOf(alice))
	require.Equal(new(big.Int).Add(balCBefore, assetOut), st.Token(assetC).BalanceOf(alice))
	// The intermediary native never touches the caller.
	require.Equal(nativeBefore, st.NativeBalance(alice))
	// And none of it sticks to the source pair.
	require.Equal(int64(10_000-909), pairA.NativeReserve(st).Int64())
	require.Equal(int64(10_000+909), pairC.NativeReserve(st).Int64())
}

func TestRoutedSwapTargetErrors(t *testing.T) {
	require := require.New(t)
	st, pairA, _ := routedWorld(t)

	_, _, err := pairA.SwapAssetForAsset(st, exchange.Env{Caller: alice}, big.NewInt(100), nil, assetA)
	require.ErrorIs(err, types.ErrSelfRouting)

	unknown := types.BytesToAssetID([]byte{0xee})
	_, _, err = pairA.SwapAssetForAsset(st, exchange.Env{Caller: alice}, big.NewInt(100), nil, unknown)
	require.ErrorIs(err, types.ErrNoSuchPair)
}

func TestRoutedSwapSecondHopSlippage(t *testing.T) {
	require := require.New(t)
	st, pairA, _ := routedWorld(t)

	_, _, err := pairA.SwapAssetForAsset(
		st, exchange.Env{Caller: alice}, big.NewInt(2000), big.NewInt(3334), assetC)
	require.ErrorIs(err, types.ErrSlippageExceeded)
}
