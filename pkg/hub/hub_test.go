package hub

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/shortswap/pkg/config"
	"github.com/uhyunpark/shortswap/pkg/ledger"
	"github.com/uhyunpark/shortswap/pkg/orderbook"
	"github.com/uhyunpark/shortswap/pkg/pool"
)

var (
	token0Addr = common.HexToAddress("0x10")
	token1Addr = common.HexToAddress("0x11")
	poolAddr   = common.HexToAddress("0x20")
	feeAddr    = common.HexToAddress("0xfee")
	trader     = common.HexToAddress("0x30")
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	lg := ledger.New()
	lg.CreateToken(token0Addr, poolAddr, "Token0", "T0", 18, 1_000_000)
	lg.CreateToken(token1Addr, poolAddr, "Token1", "T1", 18, 1_000_000)
	if err := lg.Transfer(token1Addr, poolAddr, trader, 100_000); err != nil {
		t.Fatalf("seed trader balance: %v", err)
	}

	p := pool.New(token0Addr, token1Addr, poolAddr, feeAddr,
		500_000, 500_000, 100_000, 100_000, lg, config.Default(), nil)
	return New(p, nil)
}

func TestPriceHistoryGrowsOnMutatingCall(t *testing.T) {
	h := newTestHub(t)
	if len(h.GetPriceHistory()) != 0 {
		t.Fatalf("expected empty history before any trade")
	}

	ok, msg := h.Buy(trader, 1_000)
	if !ok {
		t.Fatalf("buy rejected: %s", msg)
	}

	history := h.GetPriceHistory()
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
}

func TestPriceHistoryBounded(t *testing.T) {
	h := newTestHub(t)
	for i := 0; i < 150; i++ {
		ok, msg := h.Buy(trader, 1)
		if !ok {
			t.Fatalf("buy %d rejected: %s", i, msg)
		}
	}
	if len(h.GetPriceHistory()) > priceHistoryLimit {
		t.Fatalf("history exceeded limit: %d", len(h.GetPriceHistory()))
	}
}

func TestShortFastOpenFindsSolventPrice(t *testing.T) {
	h := newTestHub(t)
	ok, result, msg := h.ShortFastOpen(1_000, 3)
	if !ok {
		t.Fatalf("ShortFastOpen rejected: %s", msg)
	}
	if result.ForcedClosePrice <= h.GetPrice() {
		t.Fatalf("forcedClosePrice %v should be above spot %v", result.ForcedClosePrice, h.GetPrice())
	}

	ok, orderID := h.OpenShort(trader, 1_000, result.LendAmount, result.ForcedClosePrice, result.InsertAfterID)
	if !ok {
		t.Fatalf("OpenShort with solver output rejected: %s", orderID)
	}
}

func TestLongFastOpenFindsSolventPrice(t *testing.T) {
	h := newTestHub(t)
	ok, result, msg := h.LongFastOpen(1_000, 3)
	if !ok {
		t.Fatalf("LongFastOpen rejected: %s", msg)
	}
	if result.ForcedClosePrice >= h.GetPrice() {
		t.Fatalf("forcedClosePrice %v should be below spot %v", result.ForcedClosePrice, h.GetPrice())
	}

	ok, orderID := h.OpenLong(trader, 1_000, result.LendAmount1, result.ForcedClosePrice, result.InsertAfterID)
	if !ok {
		t.Fatalf("OpenLong with solver output rejected: %s", orderID)
	}
}

func TestUnrealizedPnLPercentNonPositiveAtOpen(t *testing.T) {
	h := newTestHub(t)
	ok, orderID := h.OpenShort(trader, 2_000, 1_000, h.GetPrice()*1.5, "")
	if !ok {
		t.Fatalf("OpenShort rejected: %s", orderID)
	}

	orders := h.GetOrdersByAddress(trader)
	if len(orders) != 1 {
		t.Fatalf("expected 1 open order, got %d", len(orders))
	}
	order := orders[0]

	pnl := h.UnrealizedPnLPercent(orderbook.Short, order.BaseAmount1, order.SellAmount1, order.LendAmount0)
	// Immediately after open the position has already paid fees, so PnL
	// should not be positive.
	if pnl > 0 {
		t.Fatalf("expected non-positive PnL immediately after open, got %v", pnl)
	}
}
