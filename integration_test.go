package shortswap_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/shortswap/pkg/config"
	"github.com/uhyunpark/shortswap/pkg/factory"
	"github.com/uhyunpark/shortswap/pkg/hub"
	"github.com/uhyunpark/shortswap/pkg/ledger"
)

// TestLifecycle exercises every public operation end to end against a
// freshly deployed pool: buy, sell (checking ledger/reserve conservation
// across the sell), open a leveraged short via the fast-open solver, fully
// close it, open a leveraged long, and fully close it. It stands in for the
// teacher's dropped tests/engine_e2e_test.go, which exercised the
// perp-matching/consensus stack this module replaces.
func TestLifecycle(t *testing.T) {
	lg := ledger.New()
	f := factory.New(lg, nil)

	token1 := common.HexToAddress("0xUSDT")
	poolAddr, pl := f.CreatePool(factory.CreatePoolParams{
		Name:            "ShortSwapped",
		Symbol:          "SSWP",
		Decimals:        18,
		TotalSupply:     1_000_000,
		ShortSupply:     500_000,
		TokenBase:       token1,
		TokenBaseAmount: 100_000,
		LoanReserve1:    100_000,
		PoolParams:      config.Default(),
	})

	lg.CreateToken(token1, common.HexToAddress("0xfaucet"), "Tether", "USDT", 6, 10_000_000)
	alice := common.HexToAddress("0xAlice")
	bob := common.HexToAddress("0xBob")
	if err := lg.Transfer(token1, common.HexToAddress("0xfaucet"), alice, 50_000); err != nil {
		t.Fatalf("fund alice: %v", err)
	}
	if err := lg.Transfer(token1, common.HexToAddress("0xfaucet"), bob, 50_000); err != nil {
		t.Fatalf("fund bob: %v", err)
	}

	h := hub.New(pl, nil)

	spotBefore := h.GetPrice()
	if ok, msg := h.Buy(alice, 1_000); !ok {
		t.Fatalf("buy rejected: %s", msg)
	}
	if h.GetPrice() == spotBefore {
		t.Fatalf("price should move after a buy")
	}

	aliceToken0 := lg.BalanceOf(pl.Token0, alice)
	if ok, msg := h.Sell(alice, aliceToken0/2); !ok {
		t.Fatalf("sell rejected: %s", msg)
	}
	// The pool address holds both the swap reserve and the token0 lending
	// reserve, so its ledger balance is reserve0 + loanReserve0.
	info := h.GetInfo()
	held := info.Reserve0 + info.LoanReserve0
	if poolBal := lg.BalanceOf(pl.Token0, poolAddr); poolBal-held > 1e-6 || held-poolBal > 1e-6 {
		t.Fatalf("pool token0 balance %v should equal reserve0+loanReserve0 %v after sell", poolBal, held)
	}

	ok, shortPlan, msg := h.ShortFastOpen(1_000, 3)
	if !ok {
		t.Fatalf("ShortFastOpen rejected: %s", msg)
	}
	ok, orderID := h.OpenShort(bob, 1_000, shortPlan.LendAmount, shortPlan.ForcedClosePrice, shortPlan.InsertAfterID)
	if !ok {
		t.Fatalf("OpenShort rejected: %s", orderID)
	}

	order, found := pl.GetOrderByID(orderID)
	if !found {
		t.Fatalf("short order %s missing after open", orderID)
	}
	if ok, msg := h.CloseShort(bob, orderID, order.LendAmount0, false); !ok {
		t.Fatalf("closeShort rejected: %s", msg)
	}
	if _, found := pl.GetOrderByID(orderID); found {
		t.Fatalf("short order should be archived after full close")
	}

	ok, longPlan, msg := h.LongFastOpen(1_500, 2)
	if !ok {
		t.Fatalf("LongFastOpen rejected: %s", msg)
	}
	ok, longOrderID := h.OpenLong(alice, 1_500, longPlan.LendAmount1, longPlan.ForcedClosePrice, longPlan.InsertAfterID)
	if !ok {
		t.Fatalf("OpenLong rejected: %s", longOrderID)
	}
	longOrder, found := pl.GetOrderByID(longOrderID)
	if !found {
		t.Fatalf("long order %s missing after open", longOrderID)
	}
	if ok, msg := h.CloseLong(alice, longOrderID, longOrder.BuyAmount0, false); !ok {
		t.Fatalf("closeLong rejected: %s", msg)
	}
	if _, found := pl.GetOrderByID(longOrderID); found {
		t.Fatalf("long order should be archived after full close")
	}

	history := h.GetAddressHistoryOrders(alice)
	if len(history) != 1 {
		t.Fatalf("expected 1 closed order in alice's history, got %d", len(history))
	}

	if len(h.GetPriceHistory()) == 0 {
		t.Fatalf("price history should be non-empty after trading")
	}
}
