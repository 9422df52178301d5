package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	tokenAddr = common.HexToAddress("0x1")
	alice     = common.HexToAddress("0xa11ce")
	bob       = common.HexToAddress("0xb0b")
)

func TestCreateAndBalanceOf(t *testing.T) {
	l := New()
	l.CreateToken(tokenAddr, alice, "Test", "TST", 18, 1000)

	if got := l.BalanceOf(tokenAddr, alice); got != 1000 {
		t.Fatalf("BalanceOf(alice) = %v, want 1000", got)
	}
	if got := l.BalanceOf(tokenAddr, bob); got != 0 {
		t.Fatalf("BalanceOf(bob) = %v, want 0", got)
	}
}

func TestTransfer(t *testing.T) {
	l := New()
	l.CreateToken(tokenAddr, alice, "Test", "TST", 18, 1000)

	if err := l.Transfer(tokenAddr, alice, bob, 400); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.BalanceOf(tokenAddr, alice); got != 600 {
		t.Fatalf("alice balance = %v, want 600", got)
	}
	if got := l.BalanceOf(tokenAddr, bob); got != 400 {
		t.Fatalf("bob balance = %v, want 400", got)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	l := New()
	l.CreateToken(tokenAddr, alice, "Test", "TST", 18, 100)

	if err := l.Transfer(tokenAddr, alice, bob, 200); err != ErrInsufficientBalance {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	// Failure must leave balances untouched.
	if got := l.BalanceOf(tokenAddr, alice); got != 100 {
		t.Fatalf("alice balance = %v, want 100 (unchanged)", got)
	}
}

func TestAirdropMintsSupply(t *testing.T) {
	l := New()
	l.CreateToken(tokenAddr, alice, "Test", "TST", 18, 1000)

	err := l.Airdrop(tokenAddr, map[common.Address]float64{bob: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	supply, err := l.TotalSupply(tokenAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if supply != 1050 {
		t.Fatalf("totalSupply = %v, want 1050", supply)
	}

	balances := l.AllBalancesOf(alice)
	total := 0.0
	for _, b := range l.AllBalancesOf(bob) {
		total += b.Balance
	}
	if total != 50 {
		t.Fatalf("bob total balances = %v, want 50", total)
	}
	if len(balances) != 1 || balances[0].Balance != 1000 {
		t.Fatalf("alice balances = %+v, want [{Balance:1000}]", balances)
	}
}

func TestUnknownToken(t *testing.T) {
	l := New()
	if got := l.BalanceOf(tokenAddr, alice); got != 0 {
		t.Fatalf("BalanceOf on unknown token = %v, want 0", got)
	}
	if err := l.Transfer(tokenAddr, alice, bob, 1); err != ErrUnknownToken {
		t.Fatalf("err = %v, want ErrUnknownToken", err)
	}
}
