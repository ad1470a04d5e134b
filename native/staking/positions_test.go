package staking

import (
	"errors"
	"testing"
)

func TestLedgerOpenCloseReuse(t *testing.T) {
	ledger := NewUserLedger(makeAddress(1), makeAddress(2), 0, 255)
	for i := 0; i < MaxPositions; i++ {
		idx, err := ledger.Open(StakePosition{PoolID: uint64(i), StakedAmount: 10})
		if err != nil || idx != i {
			t.Fatalf("open %d: idx %d err %v", i, idx, err)
		}
		ledger.TotalStakedAmount += 10
	}
	if _, err := ledger.Open(StakePosition{PoolID: 99}); !errors.Is(err, ErrPositionCapacityExceeded) {
		t.Fatalf("expected ErrPositionCapacityExceeded, got %v", err)
	}
	if err := ledger.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}

	ledger.Positions[6].StakedAmount = 0
	ledger.TotalStakedAmount -= 10
	ledger.Close(6)
	ledger.Close(6)
	if ledger.ActivePositions != MaxPositions-1 {
		t.Fatalf("double close changed the count: %d", ledger.ActivePositions)
	}
	if _, ok := ledger.FindActive(6); ok {
		t.Fatalf("closed position still found")
	}
	idx, err := ledger.Open(StakePosition{PoolID: 99})
	if err != nil || idx != 6 {
		t.Fatalf("expected slot 6 reused, got %d %v", idx, err)
	}
	if ledger.Positions[6].PoolID != 99 || !ledger.Positions[6].Active {
		t.Fatalf("slot not overwritten: %+v", ledger.Positions[6])
	}
}

func TestCheckInvariantsReportsDrift(t *testing.T) {
	ledger := NewUserLedger(makeAddress(1), makeAddress(2), 0, 255)
	if _, err := ledger.Open(StakePosition{PoolID: 1, StakedAmount: 5}); err != nil {
		t.Fatalf("open: %v", err)
	}
	var invErr *InvariantError
	if err := ledger.CheckInvariants(); !errors.As(err, &invErr) || invErr.Field != "totalStakedAmount" {
		t.Fatalf("expected total staked drift, got %v", err)
	}
	ledger.TotalStakedAmount = 5
	ledger.ActivePositions = 3
	if err := ledger.CheckInvariants(); !errors.As(err, &invErr) || invErr.Field != "activePositions" {
		t.Fatalf("expected active count drift, got %v", err)
	}
}

func TestClaimHistoryShiftsLeft(t *testing.T) {
	ledger := NewUserLedger(makeAddress(1), makeAddress(2), 0, 255)
	for i := 1; i <= HistoryCapacity+3; i++ {
		ledger.PushClaim(ClaimEvent{Amount: Amount(i), Timestamp: int64(i)})
	}
	for i, ev := range ledger.ClaimHistory {
		if want := Amount(i + 4); ev.Amount != want {
			t.Fatalf("slot %d: got %d want %d", i, ev.Amount, want)
		}
	}
	ledger.PushPenalty(PenaltyEvent{Type: PenaltyEmergency, Amount: 7})
	if last := ledger.PenaltyHistory[HistoryCapacity-1]; last.Amount != 7 || last.Type != PenaltyEmergency {
		t.Fatalf("penalty not appended: %+v", last)
	}
	if first := ledger.PenaltyHistory[0]; first.Amount != 0 {
		t.Fatalf("unexpected oldest penalty: %+v", first)
	}
}
