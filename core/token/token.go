// Package token implements the fungible-asset ledger the exchange settles
// against. The exchange core only ever talks to the Ledger interface; Token
// is the in-process implementation backing it.
package token

import (
	"math/big"

	"nativeswap/core/types"
)

// Ledger is the narrow surface the exchange consumes. Transfer moves funds
// the owner already controls; TransferFrom spends an allowance the owner
// granted to spender beforehand. Both fail without side effects if the
// balance or allowance is insufficient.
type Ledger interface {
	BalanceOf(owner types.Address) *big.Int
	Transfer(from, to types.Address, amount *big.Int) error
	TransferFrom(owner, spender, to types.Address, amount *big.Int) error
}

// Token is an in-memory fungible-asset ledger with allowances.
type Token struct {
	ID          types.AssetID
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
	Balances    map[types.Address]*big.Int
	Allowances  map[types.Address]map[types.Address]*big.Int
}

// New creates an empty token ledger.
func New(id types.AssetID, name, symbol string, decimals uint8) *Token {
	return &Token{
		ID:          id,
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		TotalSupply: big.NewInt(0),
		Balances:    make(map[types.Address]*big.Int),
		Allowances:  make(map[types.Address]map[types.Address]*big.Int),
	}
}

// BalanceOf returns the balance of owner. The result is a copy.
func (t *Token) BalanceOf(owner types.Address) *big.Int {
	if bal, ok := t.Balances[owner]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// Allowance returns how much spender may still move on behalf of owner.
func (t *Token) Allowance(owner, spender types.Address) *big.Int {
	if granted, ok := t.Allowances[owner]; ok {
		if a, ok := granted[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return big.NewInt(0)
}

// Approve sets spender's allowance over owner's funds to amount.
func (t *Token) Approve(owner, spender types.Address, amount *big.Int) {
	granted, ok := t.Allowances[owner]
	if !ok {
		granted = make(map[types.Address]*big.Int)
		t.Allowances[owner] = granted
	}
	granted[spender] = new(big.Int).Set(amount)
}

// Transfer moves amount from from to to.
func (t *Token) Transfer(from, to types.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	bal := t.BalanceOf(from)
	if bal.Cmp(amount) < 0 {
		return types.ErrInsufficientBalance
	}
	t.Balances[from] = bal.Sub(bal, amount)
	t.credit(to, amount)
	return nil
}

// TransferFrom moves amount of owner's funds to to, consuming spender's
// allowance. The allowance is checked before the balance so a caller
// without approval never learns the owner's balance state.
func (t *Token) TransferFrom(owner, spender, to types.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	allowed := t.Allowance(owner, spender)
	if allowed.Cmp(amount) < 0 {
		return types.ErrInsufficientAllowance
	}
	if err := t.Transfer(owner, to, amount); err != nil {
		return err
	}
	t.Allowances[owner][spender] = allowed.Sub(allowed, amount)
	return nil
}

// Mint creates amount new units and credits them to to.
func (t *Token) Mint(to types.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	t.credit(to, amount)
	t.TotalSupply = new(big.Int).Add(t.TotalSupply, amount)
}

func (t *Token) credit(to types.Address, amount *big.Int) {
	bal := t.BalanceOf(to)
	t.Balances[to] = bal.Add(bal, amount)
}

// Clone creates a deep copy of the token ledger.
func (t *Token) Clone() *Token {
	clone := &Token{
		ID:          t.ID,
		Name:        t.Name,
		Symbol:      t.Symbol,
		Decimals:    t.Decimals,
		TotalSupply: new(big.Int).Set(t.TotalSupply),
		Balances:    make(map[types.Address]*big.Int, len(t.Balances)),
		Allowances:  make(map[types.Address]map[types.Address]*big.Int, len(t.Allowances)),
	}
	for owner, bal := range t.Balances {
		clone.Balances[owner] = new(big.Int).Set(bal)
	}
	for owner, granted := range t.Allowances {
		g := make(map[types.Address]*big.Int, len(granted))
		for spender, a := range granted {
			g[spender] = new(big.Int).Set(a)
		}
		clone.Allowances[owner] = g
	}
	return clone
}

var _ Ledger = (*Token)(nil)
