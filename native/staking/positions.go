package staking

import (
	"fmt"

	"lstaking/crypto"
)

// NewUserLedger returns an empty ledger for owner with every slot inactive.
func NewUserLedger(owner, globalConfig crypto.Address, now int64, bump uint8) *UserLedger {
	return &UserLedger{
		Owner:         owner,
		GlobalConfig:  globalConfig,
		SourceAccount: owner,
		CreatedAt:     now,
		LastUpdate:    now,
		Bump:          bump,
	}
}

// FindActive returns the slot index of the first active position for
// poolID. The second result is false when none exists.
func (l *UserLedger) FindActive(poolID uint64) (int, bool) {
	for i := range l.Positions {
		if l.Positions[i].Active && l.Positions[i].PoolID == poolID {
			return i, true
		}
	}
	return -1, false
}

// Position returns a pointer to the active position for poolID or
// ErrPositionNotFound.
func (l *UserLedger) Position(poolID uint64) (*StakePosition, error) {
	idx, ok := l.FindActive(poolID)
	if !ok {
		return nil, ErrPositionNotFound
	}
	return &l.Positions[idx], nil
}

// Open activates the first inactive slot with pos. The slot's previous
// contents are overwritten.
func (l *UserLedger) Open(pos StakePosition) (int, error) {
	for i := range l.Positions {
		if l.Positions[i].Active {
			continue
		}
		pos.Active = true
		l.Positions[i] = pos
		l.ActivePositions++
		return i, nil
	}
	return -1, ErrPositionCapacityExceeded
}

// Close deactivates slot idx. The slot stays in place for reuse.
func (l *UserLedger) Close(idx int) {
	if idx < 0 || idx >= len(l.Positions) || !l.Positions[idx].Active {
		return
	}
	l.Positions[idx].Active = false
	if l.ActivePositions > 0 {
		l.ActivePositions--
	}
}

// PushClaim drops the oldest claim entry and appends ev at the end.
func (l *UserLedger) PushClaim(ev ClaimEvent) {
	copy(l.ClaimHistory[:], l.ClaimHistory[1:])
	l.ClaimHistory[len(l.ClaimHistory)-1] = ev
}

// PushPenalty drops the oldest penalty entry and appends ev at the end.
func (l *UserLedger) PushPenalty(ev PenaltyEvent) {
	copy(l.PenaltyHistory[:], l.PenaltyHistory[1:])
	l.PenaltyHistory[len(l.PenaltyHistory)-1] = ev
}

// countActive recomputes the number of active slots.
func (l *UserLedger) countActive() uint8 {
	var n uint8
	for i := range l.Positions {
		if l.Positions[i].Active {
			n++
		}
	}
	return n
}

// activeStaked sums StakedAmount over active slots.
func (l *UserLedger) activeStaked() Amount {
	var total Amount
	for i := range l.Positions {
		if l.Positions[i].Active {
			total = total.Add(l.Positions[i].StakedAmount)
		}
	}
	return total
}

// CheckInvariants verifies the position counters against the slots.
func (l *UserLedger) CheckInvariants() error {
	if got := l.countActive(); got != l.ActivePositions {
		return &InvariantError{Field: "activePositions", Want: uint64(got), Got: uint64(l.ActivePositions)}
	}
	if got := l.activeStaked(); got != l.TotalStakedAmount {
		return &InvariantError{Field: "totalStakedAmount", Want: uint64(got), Got: uint64(l.TotalStakedAmount)}
	}
	return nil
}

// InvariantError reports a ledger counter that disagrees with its slots.
type InvariantError struct {
	Field string
	Want  uint64
	Got   uint64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("staking: ledger invariant %s: want %d got %d", e.Field, e.Want, e.Got)
}
