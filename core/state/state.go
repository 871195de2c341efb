// Package state implements the world state of the exchange engine.
package state

import (
	"bytes"
	"encoding/gob"
	"math/big"
	"sort"

	"nativeswap/core/exchange"
	"nativeswap/core/registry"
	"nativeswap/core/token"
	"nativeswap/core/types"
)

// RegistryAddress is the fixed identity of the engine's registry.
var RegistryAddress = types.BytesToAddress(types.Keccak256([]byte("nativeswap-registry-v1")).Bytes())

// State holds the native-currency balances, the asset ledgers, the pairs
// and the registry.
type State struct {
	Native   map[types.Address]*big.Int
	Tokens   map[types.AssetID]*token.Token
	Pairs    map[types.Address]*exchange.Pair
	Registry *registry.Registry

	// Incremental state hash, updated on every committed operation.
	stateHash types.Hash
}

// NewState creates an empty state whose registry creates pairs at the
// given fee rate (basis points).
func NewState(feeRate uint64) *State {
	genesisHash := types.Keccak256([]byte("nativeswap-genesis-state-v1"))
	return &State{
		Native:    make(map[types.Address]*big.Int),
		Tokens:    make(map[types.AssetID]*token.Token),
		Pairs:     make(map[types.Address]*exchange.Pair),
		Registry:  registry.New(RegistryAddress, feeRate),
		stateHash: genesisHash,
	}
}

// Ledger returns the ledger for asset, or ErrNoSuchToken.
func (s *State) Ledger(asset types.AssetID) (token.Ledger, error) {
	t, ok := s.Tokens[asset]
	if !ok {
		return nil, types.ErrNoSuchToken
	}
	return t, nil
}

// Token returns the full token ledger for asset, or nil.
func (s *State) Token(asset types.AssetID) *token.Token {
	return s.Tokens[asset]
}

// AddToken registers a token ledger.
func (s *State) AddToken(t *token.Token) {
	s.Tokens[t.ID] = t
}

// NativeBalance returns the native balance of addr. The result is a copy.
func (s *State) NativeBalance(addr types.Address) *big.Int {
	if bal, ok := s.Native[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// CreditNative adds amount to addr's native balance. Used by genesis
// funding; everything after genesis moves through TransferNative.
func (s *State) CreditNative(addr types.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	bal := s.NativeBalance(addr)
	s.Native[addr] = bal.Add(bal, amount)
}

// TransferNative moves native currency between accounts.
func (s *State) TransferNative(from, to types.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	bal := s.NativeBalance(from)
	if bal.Cmp(amount) < 0 {
		return types.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	s.Native[from] = bal.Sub(bal, amount)
	toBal := s.NativeBalance(to)
	s.Native[to] = toBal.Add(toBal, amount)
	return nil
}

// PairFor returns the pair bound to asset, or the zero address.
func (s *State) PairFor(asset types.AssetID) types.Address {
	return s.Registry.PairOf(asset)
}

// PairAt returns the pair at addr, or nil.
func (s *State) PairAt(addr types.Address) *exchange.Pair {
	return s.Pairs[addr]
}

// CreatePair creates the pair for asset through the registry and stores
// it. The asset must have a registered ledger.
func (s *State) CreatePair(asset types.AssetID) (*exchange.Pair, error) {
	if asset != types.ZeroAsset {
		if _, ok := s.Tokens[asset]; !ok {
			return nil, types.ErrNoSuchToken
		}
	}
	pair, err := s.Registry.Create(asset)
	if err != nil {
		return nil, err
	}
	s.Pairs[pair.Addr] = pair
	return pair, nil
}

// StateHash returns the current state hash.
func (s *State) StateHash() types.Hash {
	return s.stateHash
}

// SetStateHash sets the state hash (used when restoring a snapshot).
func (s *State) SetStateHash(hash types.Hash) {
	s.stateHash = hash
}

// StateChange records that one piece of state was touched by an operation.
type StateChange struct {
	Type StateChangeType
	Key  []byte
}

// StateChangeType represents the type of state change.
type StateChangeType uint8

const (
	ChangeTypeNative   StateChangeType = 1
	ChangeTypeToken    StateChangeType = 2
	ChangeTypePair     StateChangeType = 3
	ChangeTypeRegistry StateChangeType = 4
)

// ComputeIncrementalHash folds the sorted, serialized changes of one
// committed operation into the state hash:
//
//	hash_new = Keccak256(hash_old || serialize(changes))
func (s *State) ComputeIncrementalHash(changes []StateChange) types.Hash {
	if len(changes) == 0 {
		return s.stateHash
	}
	s.stateHash = types.Keccak256(s.stateHash[:], serializeChanges(changes))
	return s.stateHash
}

func serializeChanges(changes []StateChange) []byte {
	// Sort for determinism.
	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Type != changes[j].Type {
			return changes[i].Type < changes[j].Type
		}
		return bytes.Compare(changes[i].Key, changes[j].Key) < 0
	})
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(changes)
	return buf.Bytes()
}

// Clone creates a deep copy of the state.
func (s *State) Clone() *State {
	clone := &State{
		Native:    make(map[types.Address]*big.Int, len(s.Native)),
		Tokens:    make(map[types.AssetID]*token.Token, len(s.Tokens)),
		Pairs:     make(map[types.Address]*exchange.Pair, len(s.Pairs)),
		Registry:  s.Registry.Clone(),
		stateHash: s.stateHash,
	}
	for addr, bal := range s.Native {
		clone.Native[addr] = new(big.Int).Set(bal)
	}
	for id, t := range s.Tokens {
		clone.Tokens[id] = t.Clone()
	}
	for addr, pair := range s.Pairs {
		clone.Pairs[addr] = pair.Clone()
	}
	return clone
}

// Serialize serializes the state to bytes.
func (s *State) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.stateHash); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize deserializes the state from bytes.
func Deserialize(data []byte) (*State, error) {
	var s State
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	var hash types.Hash
	if err := dec.Decode(&hash); err != nil {
		return nil, err
	}
	s.stateHash = hash
	return &s, nil
}

var _ exchange.WorldState = (*State)(nil)
