// Package types defines common identities and helpers shared by the engine.
package types

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// Address represents a 20-byte account identity. Pairs, the registry and
// end users all live in the same address space.
type Address [20]byte

// AssetID represents a 20-byte fungible-asset identifier.
type AssetID [20]byte

// Hash represents a 32-byte hash.
type Hash [32]byte

// ZeroAddress is the "no account" sentinel.
var ZeroAddress = Address{}

// ZeroAsset is the null asset identifier. It doubles as the wire marker for
// the native currency where an operation can move either.
var ZeroAsset = AssetID{}

// ZeroHash is the zero hash.
var ZeroHash = Hash{}

// Keccak256 computes the Keccak-256 hash over the concatenation of data.
func Keccak256(data ...[]byte) Hash {
	var h Hash
	copy(h[:], crypto.Keccak256(data...))
	return h
}

// BytesToAddress converts bytes to Address, keeping the rightmost 20 bytes.
func BytesToAddress(b []byte) Address {
	var addr Address
	if len(b) > 20 {
		b = b[len(b)-20:]
	}
	copy(addr[20-len(b):], b)
	return addr
}

// BytesToAssetID converts bytes to AssetID, keeping the rightmost 20 bytes.
func BytesToAssetID(b []byte) AssetID {
	return AssetID(BytesToAddress(b))
}

// Bytes returns the byte slice of Address.
func (a Address) Bytes() []byte {
	return a[:]
}

// Hex returns the 0x-prefixed hex encoding of Address.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns the byte slice of AssetID.
func (t AssetID) Bytes() []byte {
	return t[:]
}

// Hex returns the 0x-prefixed hex encoding of AssetID.
func (t AssetID) Hex() string {
	return "0x" + hex.EncodeToString(t[:])
}

// Bytes returns the byte slice of Hash.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Hex returns the 0x-prefixed hex encoding of Hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// HexToAddress parses a 0x-prefixed hex string into an Address.
func HexToAddress(s string) (Address, error) {
	b, err := parseHex(s, 20)
	if err != nil {
		return Address{}, err
	}
	return BytesToAddress(b), nil
}

// HexToAssetID parses a 0x-prefixed hex string into an AssetID.
func HexToAssetID(s string) (AssetID, error) {
	b, err := parseHex(s, 20)
	if err != nil {
		return AssetID{}, err
	}
	return BytesToAssetID(b), nil
}

func parseHex(s string, maxLen int) ([]byte, error) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return nil, fmt.Errorf("missing 0x prefix in %q", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex in %q: %w", s, err)
	}
	if len(b) > maxLen {
		return nil, fmt.Errorf("value %q longer than %d bytes", s, maxLen)
	}
	return b, nil
}

// BigIntToBytes converts big.Int to bytes.
func BigIntToBytes(n *big.Int) []byte {
	if n == nil {
		return []byte{0}
	}
	return n.Bytes()
}

// BytesToBigInt converts bytes to big.Int.
func BytesToBigInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
