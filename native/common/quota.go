package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaOpsExceeded     = errors.New("quota operations exceeded")
	ErrQuotaAmountExceeded  = errors.New("quota amount cap exceeded")
	ErrQuotaCounterOverflow = errors.New("quota counter overflow")
)

// QuotaNow captures the usage counters of one signer in the current window.
type QuotaNow struct {
	Ops      uint32
	Amount   uint64
	WindowID uint64
}

// Quota bounds how many operations and how much value a signer may move per
// window. Zero limits are unbounded.
type Quota struct {
	MaxOpsPerWindow    uint32
	MaxAmountPerWindow uint64
	WindowSeconds      uint32
}

// Window returns the window id containing the unix timestamp now.
func (q Quota) Window(now int64) uint64 {
	if q.WindowSeconds == 0 || now <= 0 {
		return 0
	}
	return uint64(now) / uint64(q.WindowSeconds)
}

// CheckQuota verifies whether the additional operations and amount fit
// within the configured quota. The returned QuotaNow reflects the updated
// counters when the quota is not exceeded; on denial prev is returned.
func CheckQuota(q Quota, window uint64, prev QuotaNow, addOps uint32, addAmount uint64) (QuotaNow, error) {
	next := prev
	if prev.WindowID != window {
		next = QuotaNow{WindowID: window}
	}

	if addOps > 0 {
		if next.Ops > math.MaxUint32-addOps {
			return prev, ErrQuotaCounterOverflow
		}
		next.Ops += addOps
	}
	if q.MaxOpsPerWindow > 0 && next.Ops > q.MaxOpsPerWindow {
		return prev, ErrQuotaOpsExceeded
	}

	if addAmount > 0 {
		if next.Amount > math.MaxUint64-addAmount {
			return prev, ErrQuotaCounterOverflow
		}
		next.Amount += addAmount
	}
	if q.MaxAmountPerWindow > 0 && next.Amount > q.MaxAmountPerWindow {
		return prev, ErrQuotaAmountExceeded
	}

	return next, nil
}
