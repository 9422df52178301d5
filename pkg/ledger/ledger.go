// Package ledger implements the opaque token balance oracle the Pool and
// Factory move money through. It is deliberately dumb: it knows nothing
// about swaps, orders, or fees — only balances per (token, holder) pair.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownToken is returned by TotalSupply, Transfer and Airdrop for a
// token address that was never created via CreateToken (BalanceOf and
// AllBalancesOf read unknown tokens as zero instead).
var ErrUnknownToken = errors.New("ledger: unknown token")

// ErrInsufficientBalance is returned by Transfer when from holds less than
// amount of token.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

type token struct {
	name        string
	symbol      string
	decimals    uint8
	totalSupply float64
	balances    map[common.Address]float64
}

// Ledger is a multi-token balance store, safe for concurrent use. In this
// engine it is always accessed from inside the Hub's critical section, but
// it carries its own mutex so it remains correct if ever shared more
// broadly (mirrors the teacher's AccountManager discipline of locking at
// the collaborator, not trusting callers to serialise).
type Ledger struct {
	mu     sync.Mutex
	tokens map[common.Address]*token
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{tokens: make(map[common.Address]*token)}
}

// CreateToken registers a new token contract address and mints totalSupply
// entirely to initialHolder. It is the Go analogue of erc20factory.py's
// createErc20 / createErc20Test — this port always takes an explicit
// contract address (derived by internal/addrgen) rather than picking one
// with math/rand, so token creation is reproducible.
func (l *Ledger) CreateToken(tokenAddr, initialHolder common.Address, name, symbol string, decimals uint8, totalSupply float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens[tokenAddr] = &token{
		name:        name,
		symbol:      symbol,
		decimals:    decimals,
		totalSupply: totalSupply,
		balances:    map[common.Address]float64{initialHolder: totalSupply},
	}
}

// BalanceOf returns the balance of holder in token. Unknown tokens and
// unknown holders both read as zero, matching erc20factory.py's balanceOf.
func (l *Ledger) BalanceOf(tokenAddr, holder common.Address) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenAddr]
	if !ok {
		return 0
	}
	return t.balances[holder]
}

// TotalSupply returns the token's total minted supply.
func (l *Ledger) TotalSupply(tokenAddr common.Address) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenAddr]
	if !ok {
		return 0, ErrUnknownToken
	}
	return t.totalSupply, nil
}

// Transfer moves amount of token from from to to. It takes an explicit
// from argument rather than the Python original's stateful
// `use(address)`/`current_address` pair (spec.md §9's flagged
// shared-state-coupling anti-pattern), eliminating the race a second
// caller could introduce between use() and transfer().
func (l *Ledger) Transfer(tokenAddr, from, to common.Address, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("ledger: transfer amount cannot be negative: %v", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}
	if t.balances[from] < amount {
		return ErrInsufficientBalance
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

// Airdrop credits every recipient with the paired amount and mints the sum
// into totalSupply, matching erc20factory.py's airdrop: the
// "Σ balances == totalSupply" invariant is evaluated post-airdrop, since
// the mint and the credit happen together (see SPEC_FULL.md §4, resolved
// question 2).
func (l *Ledger) Airdrop(tokenAddr common.Address, recipients map[common.Address]float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}
	for addr, amount := range recipients {
		t.balances[addr] += amount
		t.totalSupply += amount
	}
	return nil
}

// TokenBalance is one entry of a holder's non-zero balances, returned by
// AllBalancesOf.
type TokenBalance struct {
	TokenAddr common.Address
	Name      string
	Symbol    string
	Balance   float64
}

// AllBalancesOf returns every non-zero balance holder owns, across every
// token the ledger knows about. Ported from erc20factory.py's
// allBalanceOf.
func (l *Ledger) AllBalancesOf(holder common.Address) []TokenBalance {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []TokenBalance
	for addr, t := range l.tokens {
		if bal := t.balances[holder]; bal > 0 {
			out = append(out, TokenBalance{TokenAddr: addr, Name: t.name, Symbol: t.symbol, Balance: bal})
		}
	}
	return out
}
