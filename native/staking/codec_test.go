package staking

import (
	"reflect"
	"testing"
)

func TestUserLedgerRecordRoundTrip(t *testing.T) {
	ledger := NewUserLedger(makeAddress(1), makeAddress(2), 1_700_000_000, 254)
	ledger.TotalStakedAmount = 42
	ledger.PendingRewards = 7
	ledger.Paused = true
	if _, err := ledger.Open(StakePosition{
		PoolID:                 9,
		Pool:                   makeAddress(3),
		StakedAmount:           42,
		LSTTokens:              42,
		LockEnabled:            true,
		LockExpiry:             1_700_003_600,
		AutoCompound:           true,
		CompoundFrequencyHours: 6,
		MinCompoundAmount:      5,
	}); err != nil {
		t.Fatalf("open: %v", err)
	}
	ledger.PushClaim(ClaimEvent{Amount: 11, Timestamp: 12})
	ledger.PushPenalty(PenaltyEvent{Type: PenaltySlash, ID: 1, Amount: 3, User: makeAddress(1), Validator: makeAddress(4)})

	data := EncodeUserLedger(ledger)
	if len(data) != UserLedgerSize {
		t.Fatalf("record size %d, want %d", len(data), UserLedgerSize)
	}
	decoded, err := DecodeUserLedger(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(ledger, decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, ledger)
	}
}

func TestDecodeRejectsMalformedRecords(t *testing.T) {
	pool := &Pool{PoolID: 1, Status: PoolPaused, AccRewardPerShare: WideFromLimbs(5, 1)}
	data := EncodePool(pool)
	if _, err := DecodePool(data[:len(data)-1]); err == nil {
		t.Fatalf("expected short record rejected")
	}
	const statusOffset = 8 + 2*addrSize + 8 + 8
	corrupt := append([]byte(nil), data...)
	corrupt[statusOffset] = 9
	if _, err := DecodePool(corrupt); err == nil {
		t.Fatalf("expected unknown status rejected")
	}
	decoded, err := DecodePool(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Status != PoolPaused || decoded.AccRewardPerShare.Cmp(pool.AccRewardPerShare) != 0 {
		t.Fatalf("unexpected pool %+v", decoded)
	}
}
