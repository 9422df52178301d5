package config

import "testing"

func TestDefault(t *testing.T) {
	p := Default()
	if p.Fee != 0.997 {
		t.Fatalf("Fee = %v, want 0.997", p.Fee)
	}
	if p.OrderMaxLength != 50 {
		t.Fatalf("OrderMaxLength = %v, want 50", p.OrderMaxLength)
	}
	if p.ForceMoveSlack != 0.5*p.ForceMoveRate {
		t.Fatalf("ForceMoveSlack = %v, want half of ForceMoveRate (%v)", p.ForceMoveSlack, p.ForceMoveRate)
	}
}

func TestLoadFromEnvOverride(t *testing.T) {
	t.Setenv("POOL_FEE", "0.999")
	t.Setenv("POOL_ORDER_MAX_LENGTH", "10")

	p := LoadFromEnv("")
	if p.Fee != 0.999 {
		t.Fatalf("Fee = %v, want 0.999", p.Fee)
	}
	if p.OrderMaxLength != 10 {
		t.Fatalf("OrderMaxLength = %v, want 10", p.OrderMaxLength)
	}
}
