package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	if err := Guard(nil, "staking"); err != nil {
		t.Fatalf("nil view should allow: %v", err)
	}
	p := Pauses{"staking": true}
	if err := Guard(p, "staking"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(p, "bank"); err != nil {
		t.Fatalf("unpaused module rejected: %v", err)
	}
	if err := Guard(p, ""); err != nil {
		t.Fatalf("empty module should allow: %v", err)
	}
}
