package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nativeswap/core/exchange"
	"nativeswap/core/registry"
	"nativeswap/core/types"
)

func TestCreate(t *testing.T) {
	require := require.New(t)
	regAddr := types.Address{0xf0}
	reg := registry.New(regAddr, 100)

	asset := types.BytesToAssetID([]byte{0x01})
	pair, err := reg.Create(asset)
	require.NoError(err)
	require.Equal(asset, pair.Asset)
	require.Equal(regAddr, pair.Registry)
	require.Equal(uint64(100), pair.FeeRate)
	require.Equal(exchange.PairAddress(regAddr, asset), pair.Addr)
	require.Equal(pair.Addr, reg.PairOf(asset))
}

func TestCreateOnce(t *testing.T) {
	require := require.New(t)
	reg := registry.New(types.Address{0xf0}, 100)

	asset := types.BytesToAssetID([]byte{0x01})
	first, err := reg.Create(asset)
	require.NoError(err)

	_, err = reg.Create(asset)
	require.ErrorIs(err, types.ErrPairExists)
	// The original binding is untouched.
	require.Equal(first.Addr, reg.PairOf(asset))
}

func TestCreateNullAsset(t *testing.T) {
	reg := registry.New(types.Address{0xf0}, 100)
	_, err := reg.Create(types.ZeroAsset)
	require.ErrorIs(t, err, types.ErrInvalidAsset)
}

func TestPairOfUnknownAsset(t *testing.T) {
	reg := registry.New(types.Address{0xf0}, 100)
	require.Equal(t, types.ZeroAddress, reg.PairOf(types.BytesToAssetID([]byte{0x7f})))
}

func TestPairAddressIsDeterministic(t *testing.T) {
	require := require.New(t)
	asset := types.BytesToAssetID([]byte{0x01})
	other := types.BytesToAssetID([]byte{0x02})

	a := exchange.PairAddress(types.Address{0xf0}, asset)
	require.Equal(a, exchange.PairAddress(types.Address{0xf0}, asset))
	require.NotEqual(a, exchange.PairAddress(types.Address{0xf0}, other))
	require.NotEqual(a, exchange.PairAddress(types.Address{0xf1}, asset))
}

func TestClone(t *testing.T) {
	require := require.New(t)
	reg := registry.New(types.Address{0xf0}, 100)
	asset := types.BytesToAssetID([]byte{0x01})
	_, err := reg.Create(asset)
	require.NoError(err)

	clone := reg.Clone()
	other := types.BytesToAssetID([]byte{0x02})
	_, err = clone.Create(other)
	require.NoError(err)

	require.Equal(types.ZeroAddress, reg.PairOf(other))
	require.NotEqual(types.ZeroAddress, clone.PairOf(other))
}
