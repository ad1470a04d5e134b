package common

import (
	"errors"
	"testing"
)

func TestCheckQuotaOpsLimit(t *testing.T) {
	q := Quota{MaxOpsPerWindow: 10}
	prev := QuotaNow{WindowID: 1}

	next, err := CheckQuota(q, 1, prev, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Ops != 10 {
		t.Fatalf("unexpected op count: %d", next.Ops)
	}

	denied, err := CheckQuota(q, 1, next, 1, 0)
	if !errors.Is(err, ErrQuotaOpsExceeded) {
		t.Fatalf("expected ErrQuotaOpsExceeded, got %v", err)
	}
	if denied != next {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 2, next, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error after window rollover: %v", err)
	}
	if rollover.WindowID != 2 || rollover.Ops != 1 {
		t.Fatalf("unexpected state after rollover: %+v", rollover)
	}
}

func TestCheckQuotaAmount(t *testing.T) {
	q := Quota{MaxAmountPerWindow: 1000}
	prev := QuotaNow{WindowID: 5}

	next, err := CheckQuota(q, 5, prev, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Amount != 1000 {
		t.Fatalf("unexpected amount used: %d", next.Amount)
	}

	denied, err := CheckQuota(q, 5, next, 0, 1)
	if !errors.Is(err, ErrQuotaAmountExceeded) {
		t.Fatalf("expected ErrQuotaAmountExceeded, got %v", err)
	}
	if denied != next {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 6, next, 0, 500)
	if err != nil {
		t.Fatalf("unexpected error after window rollover: %v", err)
	}
	if rollover.Amount != 500 {
		t.Fatalf("unexpected amount after rollover: %d", rollover.Amount)
	}
}

func TestQuotaWindow(t *testing.T) {
	q := Quota{WindowSeconds: 60}
	if q.Window(59) != 0 || q.Window(60) != 1 || q.Window(125) != 2 {
		t.Fatalf("unexpected window ids")
	}
	if (Quota{}).Window(1_000) != 0 {
		t.Fatalf("zero-length window should collapse to 0")
	}
}
