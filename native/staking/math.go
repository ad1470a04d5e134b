package staking

const (
	// RewardScale is the fixed-point scale of AccRewardPerShare and of the
	// rate projection.
	RewardScale uint64 = 1_000_000_000_000
	// BasisPoints is the denominator for fee and penalty rates.
	BasisPoints uint64 = 10_000
	// NeutralMultiplier leaves rewards unchanged.
	NeutralMultiplier uint16 = 100
	// EmergencyPenaltyMultiplier scales the base penalty rate (percent) for
	// emergency exits.
	EmergencyPenaltyMultiplier uint64 = 150
	// MaxEmergencyPenaltyBps caps the emergency penalty at 50%.
	MaxEmergencyPenaltyBps uint64 = 5_000
)

func elapsedSince(now, since int64) uint64 {
	if now <= since {
		return 0
	}
	return uint64(now - since)
}

// RewardPerShareDelta returns rate*elapsed*RewardScale/totalStaked. A pool
// without stake accrues nothing.
func RewardPerShareDelta(rate Amount, elapsed uint64, totalStaked Amount) Wide {
	if totalStaked == 0 || elapsed == 0 {
		return Wide{}
	}
	earned := rate.Wide().MulU64(elapsed)
	return earned.MulU64(RewardScale).DivU64(uint64(totalStaked))
}

// RateProjection returns staked*rate*elapsed/RewardScale.
func RateProjection(staked, rate Amount, elapsed uint64) Wide {
	if staked == 0 || elapsed == 0 {
		return Wide{}
	}
	return staked.Wide().Mul(rate.Wide()).MulU64(elapsed).DivU64(RewardScale)
}

// ShareBased returns staked*acc/RewardScale plus the rate projection. A
// position with no elapsed time since its last update accrues nothing.
func ShareBased(staked Amount, acc Wide, rate Amount, elapsed uint64) Wide {
	if elapsed == 0 {
		return Wide{}
	}
	base := staked.Wide().Mul(acc).DivU64(RewardScale)
	return base.Add(RateProjection(staked, rate, elapsed))
}

// ApplyMultiplier scales x by multiplier/100. Multipliers at or below the
// neutral value pass x through unchanged.
func ApplyMultiplier(x Wide, multiplier uint16) Wide {
	if multiplier <= NeutralMultiplier {
		return x
	}
	return x.MulU64(uint64(multiplier)).DivU64(uint64(NeutralMultiplier))
}

func applyBps(amount Amount, bps uint64) Amount {
	return amount.Wide().MulU64(bps).DivU64(BasisPoints).Narrow()
}

// ProtocolFee returns amount*feeBps/10000.
func ProtocolFee(amount Amount, feeBps uint16) Amount {
	return applyBps(amount, uint64(feeBps))
}

// EarlyWithdrawPenalty returns amount*penaltyBps/10000.
func EarlyWithdrawPenalty(amount Amount, penaltyBps uint64) Amount {
	return applyBps(amount, penaltyBps)
}

// EmergencyPenaltyRate returns min(baseBps*1.5, 5000).
func EmergencyPenaltyRate(baseBps uint64) uint64 {
	rate := WideFromUint64(baseBps).MulU64(EmergencyPenaltyMultiplier).DivU64(100).Narrow()
	if uint64(rate) > MaxEmergencyPenaltyBps {
		return MaxEmergencyPenaltyBps
	}
	return uint64(rate)
}

// EmergencyPenalty returns amount*EmergencyPenaltyRate(baseBps)/10000.
func EmergencyPenalty(amount Amount, baseBps uint64) Amount {
	return applyBps(amount, EmergencyPenaltyRate(baseBps))
}

// lockRestricted reports whether the position is still inside its lock
// window at now.
func lockRestricted(pos *StakePosition, now int64) bool {
	return pos.LockEnabled && now < pos.LockExpiry
}

func withLockMultiplier(x Wide, pos *StakePosition, pool *Pool, now int64) Amount {
	if lockRestricted(pos, now) {
		x = ApplyMultiplier(x, pool.RewardMultiplier)
	}
	return x.Narrow()
}

// PositionRateRewards is the rate-projection accrual of pos since its last
// reward update. Claim and unstake settle with this formula.
func PositionRateRewards(pos *StakePosition, pool *Pool, now int64) Amount {
	elapsed := elapsedSince(now, pos.LastRewardUpdate)
	return withLockMultiplier(RateProjection(pos.StakedAmount, pool.RewardRatePerSecond, elapsed), pos, pool, now)
}

// PositionShareRewards is the accumulator-based accrual plus the rate
// projection. Only auto-compound settles with this formula.
func PositionShareRewards(pos *StakePosition, pool *Pool, now int64) Amount {
	elapsed := elapsedSince(now, pos.LastRewardUpdate)
	return withLockMultiplier(ShareBased(pos.StakedAmount, pool.AccRewardPerShare, pool.RewardRatePerSecond, elapsed), pos, pool, now)
}
