package orderbook

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var addr1 = common.HexToAddress("0x1")
var addr2 = common.HexToAddress("0x2")

func shortOrder(id string, low, high float64) *Order {
	return &Order{OrderID: id, Type: Short, Address: addr1, LowPrice: low, HighPrice: high}
}

func longOrder(id string, low, high float64) *Order {
	return &Order{OrderID: id, Type: Long, Address: addr1, LowPrice: low, HighPrice: high}
}

func TestInsertShortOrderFirstNode(t *testing.T) {
	b := NewBook(50)
	o := shortOrder("short1", 0.11, 0.12)
	if err := b.InsertShortOrder(o, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.NearShortNode() != "short1" {
		t.Fatalf("NearShortNode = %q, want short1", b.NearShortNode())
	}
}

func TestInsertShortOrderAtBottomRejectsOverlap(t *testing.T) {
	b := NewBook(50)
	_ = b.InsertShortOrder(shortOrder("short1", 0.11, 0.12), "")

	// Touching endpoint (highPrice == existing lowPrice) must be rejected
	// (B2 — inclusive comparisons).
	err := b.InsertShortOrder(shortOrder("short2", 0.10, 0.11), "")
	if !errors.Is(err, ErrOverlapsLowestNode) {
		t.Fatalf("err = %v, want ErrOverlapsLowestNode", err)
	}

	// Strictly below is fine and becomes the new near node.
	if err := b.InsertShortOrder(shortOrder("short3", 0.09, 0.105), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.NearShortNode() != "short3" {
		t.Fatalf("NearShortNode = %q, want short3", b.NearShortNode())
	}
}

func TestInsertShortOrderAfterID(t *testing.T) {
	b := NewBook(50)
	_ = b.InsertShortOrder(shortOrder("short1", 0.11, 0.12), "")

	if err := b.InsertShortOrder(shortOrder("short2", 0.125, 0.13), "short1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := b.GetShortOrder("", 10)
	if len(got) != 2 || got[0].OrderID != "short1" || got[1].OrderID != "short2" {
		t.Fatalf("GetShortOrder = %+v, want [short1 short2]", got)
	}
}

func TestInsertLongOrderMirrored(t *testing.T) {
	b := NewBook(50)
	_ = b.InsertLongOrder(longOrder("long1", 0.08, 0.09), "")
	if b.NearLongNode() != "long1" {
		t.Fatalf("NearLongNode = %q, want long1", b.NearLongNode())
	}

	// Touching endpoint above the near node is rejected.
	err := b.InsertLongOrder(longOrder("long2", 0.09, 0.10), "")
	if !errors.Is(err, ErrOverlapsHighestNode) {
		t.Fatalf("err = %v, want ErrOverlapsHighestNode", err)
	}

	if err := b.InsertLongOrder(longOrder("long3", 0.095, 0.11), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.NearLongNode() != "long3" {
		t.Fatalf("NearLongNode = %q, want long3", b.NearLongNode())
	}
}

func TestDeleteShortOrderUpdatesNearNodeAndHistory(t *testing.T) {
	b := NewBook(50)
	_ = b.InsertShortOrder(shortOrder("short1", 0.11, 0.12), "")
	_ = b.InsertShortOrder(shortOrder("short2", 0.09, 0.105), "")

	if err := b.DeleteShortOrder("short2", Order{OrderID: "short2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.NearShortNode() != "short1" {
		t.Fatalf("NearShortNode = %q, want short1", b.NearShortNode())
	}
	history := b.GetAddressHistoryOrders(addr1)
	if len(history) != 1 || history[0].OrderID != "short2" {
		t.Fatalf("history = %+v, want [short2]", history)
	}
	if _, ok := b.GetOrderByID("short2"); ok {
		t.Fatalf("short2 should no longer be open")
	}
}

func TestCheckShortOrderRangeOverlap(t *testing.T) {
	b := NewBook(50)
	_ = b.InsertShortOrder(shortOrder("short1", 0.11, 0.12), "")

	if err := b.CheckShortOrderRange(0.115, 0.10, ""); err == nil {
		t.Fatalf("expected overlap error")
	}
	if err := b.CheckShortOrderRange(0.10, 0.09, ""); err != nil {
		t.Fatalf("unexpected error for non-overlapping range: %v", err)
	}
	// excludeID lets the order's own footprint pass.
	if err := b.CheckShortOrderRange(0.115, 0.10, "short1"); err != nil {
		t.Fatalf("unexpected error when excluding own order: %v", err)
	}
}

func TestAddressOrderLimit(t *testing.T) {
	b := NewBook(2)
	_ = b.InsertShortOrder(shortOrder("short1", 0.20, 0.21), "")
	_ = b.InsertShortOrder(shortOrder("short2", 0.215, 0.22), "short1")

	err := b.InsertShortOrder(shortOrder("short3", 0.225, 0.23), "short2")
	if !errors.Is(err, ErrAddressOrderLimit) {
		t.Fatalf("err = %v, want ErrAddressOrderLimit", err)
	}
}

func TestZeroWidthIntervalRejected(t *testing.T) {
	b := NewBook(50)
	err := b.InsertShortOrder(shortOrder("short1", 0.12, 0.12), "")
	if !errors.Is(err, ErrZeroWidthInterval) {
		t.Fatalf("err = %v, want ErrZeroWidthInterval", err)
	}
}

func TestGetOrdersByAddressAcrossBothBooks(t *testing.T) {
	b := NewBook(50)
	_ = b.InsertShortOrder(shortOrder("short1", 0.11, 0.12), "")
	_ = b.InsertLongOrder(longOrder("long1", 0.08, 0.09), "")

	orders := b.GetOrdersByAddress(addr1)
	if len(orders) != 2 {
		t.Fatalf("len(orders) = %d, want 2", len(orders))
	}
}
