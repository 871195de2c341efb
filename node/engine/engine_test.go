package engine

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nativeswap/core/tx"
	"nativeswap/core/types"
	"nativeswap/node/config"
)

const (
	tokenHex = "0x00000000000000000000000000000000000000a1"
	aliceHex = "0x0000000000000000000000000000000000000001"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.FeeRate = 0
	cfg.Tokens = []config.TokenConfig{
		{ID: tokenHex, Name: "Asset A", Symbol: "ASTA", Decimals: 18},
	}
	cfg.Genesis = []config.BalanceConfig{
		{Address: aliceHex, Amount: "1000000"},
		{Address: aliceHex, Asset: tokenHex, Amount: "2000000"},
	}
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return e
}

func mustPayload(t *testing.T, p interface{ Encode() ([]byte, error) }) []byte {
	t.Helper()
	data, err := p.Encode()
	require.NoError(t, err)
	return data
}

func TestGenesisState(t *testing.T) {
	require := require.New(t)
	e := newTestEngine(t, testConfig(t))

	alice, err := types.HexToAddress(aliceHex)
	require.NoError(err)
	asset, err := types.HexToAssetID(tokenHex)
	require.NoError(err)

	st := e.State()
	require.Equal(int64(1_000_000), st.NativeBalance(alice).Int64())
	tok := st.Token(asset)
	require.NotNil(tok)
	require.Equal("ASTA", tok.Symbol)
	require.Equal(int64(2_000_000), tok.BalanceOf(alice).Int64())
}

func TestGenesisRejectsUnknownAsset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Genesis = append(cfg.Genesis, config.BalanceConfig{
		Address: aliceHex,
		Asset:   "0x00000000000000000000000000000000000000ff",
		Amount:  "1",
	})
	_, err := New(cfg, zaptest.NewLogger(t))
	require.ErrorIs(t, err, types.ErrNoSuchToken)
}

func TestSubmitAdvancesState(t *testing.T) {
	require := require.New(t)
	e := newTestEngine(t, testConfig(t))
	alice, _ := types.HexToAddress(aliceHex)
	asset, _ := types.HexToAssetID(tokenHex)

	before := e.State()
	rootBefore := before.StateHash()

	res := e.Submit(&tx.Operation{
		Type:    tx.OpCreatePair,
		Caller:  alice,
		Payload: mustPayload(t, &tx.CreatePairPayload{Asset: asset}),
	})
	require.True(res.Success, "create pair failed: %v", res.Error)
	require.NotEqual(rootBefore, res.StateRoot)

	// The committed state moved on; the snapshot we held did not.
	require.NotEqual(types.ZeroAddress, e.State().PairFor(asset))
	require.Equal(types.ZeroAddress, before.PairFor(asset))
	require.Equal(rootBefore, before.StateHash())
}

func TestSubmitFailureKeepsState(t *testing.T) {
	require := require.New(t)
	e := newTestEngine(t, testConfig(t))
	alice, _ := types.HexToAddress(aliceHex)

	before := e.State()
	res := e.Submit(&tx.Operation{
		Type:   tx.OpTransfer,
		Caller: alice,
		Payload: mustPayload(t, &tx.TransferPayload{
			To:     types.Address{0x02},
			Asset:  types.ZeroAsset,
			Amount: big.NewInt(2_000_000),
		}),
	})
	require.False(res.Success)
	require.Same(before, e.State())
}

func TestSubmitWithdrawFromUnfundedPair(t *testing.T) {
	require := require.New(t)
	e := newTestEngine(t, testConfig(t))
	alice, _ := types.HexToAddress(aliceHex)
	asset, _ := types.HexToAssetID(tokenHex)

	res := e.Submit(&tx.Operation{
		Type:    tx.OpCreatePair,
		Caller:  alice,
		Payload: mustPayload(t, &tx.CreatePairPayload{Asset: asset}),
	})
	require.True(res.Success, "create pair failed: %v", res.Error)

	// Withdrawing from a pair that was never funded fails cleanly.
	res = e.Submit(&tx.Operation{
		Type:    tx.OpWithdraw,
		Caller:  alice,
		Payload: mustPayload(t, &tx.WithdrawPayload{Asset: asset, Shares: big.NewInt(1)}),
	})
	require.False(res.Success)
	require.ErrorIs(res.Error, types.ErrInsufficientShares)

	// The engine is still serving.
	require.NotNil(e.State())
	res = e.Submit(&tx.Operation{
		Type:   tx.OpTransfer,
		Caller: alice,
		Payload: mustPayload(t, &tx.TransferPayload{
			To:     types.Address{0x02},
			Asset:  types.ZeroAsset,
			Amount: big.NewInt(1),
		}),
	})
	require.True(res.Success, "transfer failed: %v", res.Error)
}

func TestSubmitPublishesEvents(t *testing.T) {
	require := require.New(t)
	e := newTestEngine(t, testConfig(t))
	alice, _ := types.HexToAddress(aliceHex)
	asset, _ := types.HexToAssetID(tokenHex)

	ch := make(chan []tx.Event, 4)
	sub := e.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	res := e.Submit(&tx.Operation{
		Type:    tx.OpCreatePair,
		Caller:  alice,
		Payload: mustPayload(t, &tx.CreatePairPayload{Asset: asset}),
	})
	require.True(res.Success, "create pair failed: %v", res.Error)

	select {
	case events := <-ch:
		require.Len(events, 1)
		require.Equal(tx.EvPairCreated, events[0].Type)
		require.Equal(asset, events[0].Asset)
	case <-time.After(time.Second):
		t.Fatal("no event batch received")
	}
}

func TestSnapshotRestore(t *testing.T) {
	require := require.New(t)
	cfg := testConfig(t)
	alice, _ := types.HexToAddress(aliceHex)
	asset, _ := types.HexToAssetID(tokenHex)

	e := newTestEngine(t, cfg)
	res := e.Submit(&tx.Operation{
		Type:    tx.OpCreatePair,
		Caller:  alice,
		Payload: mustPayload(t, &tx.CreatePairPayload{Asset: asset}),
	})
	require.True(res.Success, "create pair failed: %v", res.Error)
	root := e.State().StateHash()

	// Stop writes the final snapshot; a fresh engine on the same data dir
	// must come back at the same root.
	e.Stop()

	restored := newTestEngine(t, cfg)
	require.Equal(root, restored.State().StateHash())
	require.Equal(res.Events[0].Pair, restored.State().PairFor(asset))
}
