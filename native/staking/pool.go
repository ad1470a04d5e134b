package staking

import (
	"fmt"

	"lstaking/crypto"
)

// Refresh brings the accumulator up to now. Calling it again with the same
// timestamp is a no-op. A pool without stake advances its clock without
// accruing, so rewards never back-fill an empty interval.
func (p *Pool) Refresh(now int64) {
	elapsed := elapsedSince(now, p.LastUpdate)
	if elapsed == 0 {
		return
	}
	if p.TotalStaked > 0 {
		delta := RewardPerShareDelta(p.RewardRatePerSecond, elapsed, p.TotalStaked)
		p.AccRewardPerShare = p.AccRewardPerShare.Add(delta)
	}
	p.LastUpdate = now
}

// RecordStake adds principal and minted LST to the pool totals.
func (p *Pool) RecordStake(amount, lstMinted Amount) {
	p.TotalStaked = p.TotalStaked.Add(amount)
	p.LSTSupply = p.LSTSupply.Add(lstMinted)
}

// RecordUnstake removes principal and burned LST from the pool totals.
func (p *Pool) RecordUnstake(amount, lstBurned Amount) {
	p.TotalStaked = p.TotalStaked.Sub(amount)
	p.LSTSupply = p.LSTSupply.Sub(lstBurned)
}

// RecordRewardDistribution accounts for rewards paid out or compounded.
func (p *Pool) RecordRewardDistribution(amount Amount) {
	p.TotalRewardDistributed = p.TotalRewardDistributed.Add(amount)
}

// AcceptsStake reports whether new principal may enter the pool.
func (p *Pool) AcceptsStake() error {
	if p.EmergencyPaused {
		return ErrPoolEmergencyPaused
	}
	if p.Status != PoolActive {
		return fmt.Errorf("%w: status %s", ErrPoolNotActive, p.Status)
	}
	return nil
}

// CheckStakeBounds validates amount against the pool and global minimum
// and the pool's maximum limit.
func (p *Pool) CheckStakeBounds(amount, globalMin Amount) error {
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if amount < p.MinStake || amount < globalMin {
		return ErrBelowMinimumStake
	}
	if p.MaxStakeLimit != 0 && p.TotalStaked.Add(amount) > p.MaxStakeLimit {
		return ErrStakeLimitExceeded
	}
	return nil
}

// PoolField tags a mutable pool configuration field. The ordinals are the
// wire tags of UpdatePoolConfig.
type PoolField uint8

const (
	FieldRewardRate PoolField = iota
	FieldLockDuration
	FieldRewardMultiplier
	FieldEarlyWithdrawPenalty
	FieldSlashPercentage
	FieldMinEvidence
	FieldCooldownPeriod
	FieldMaxStakeLimit
	FieldMinStake
	FieldLockEnabled
	FieldSlashingEnabled
	FieldSlashType
	FieldPriceFeed
	FieldStatus
	FieldEmergencyPause
)

var poolFieldNames = [...]string{
	"rewardRate", "lockDuration", "rewardMultiplier", "earlyWithdrawPenalty",
	"slashPercentage", "minEvidence", "cooldownPeriod", "maxStakeLimit",
	"minStake", "lockEnabled", "slashingEnabled", "slashType", "priceFeed",
	"status", "emergencyPause",
}

func (f PoolField) String() string {
	if int(f) < len(poolFieldNames) {
		return poolFieldNames[f]
	}
	return fmt.Sprintf("field(%d)", uint8(f))
}

func (f PoolField) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *PoolField) UnmarshalText(text []byte) error {
	v, err := parseEnum("pool field", string(text), uint8(FieldEmergencyPause), func(b uint8) string { return PoolField(b).String() })
	if err != nil {
		return err
	}
	*f = PoolField(v)
	return nil
}

// PoolUpdate is a single configuration write. Only the value member that
// matches Field is read.
type PoolUpdate struct {
	Field   PoolField
	PoolID  uint64
	Uint    uint64
	Int     int64
	Flag    bool
	Address crypto.Address
}

// Validate checks the value in isolation.
func (u PoolUpdate) Validate() error {
	switch u.Field {
	case FieldRewardRate, FieldRewardMultiplier, FieldMinEvidence, FieldMinStake:
		if u.Uint == 0 {
			return fmt.Errorf("%w: %s must be non-zero", ErrInvalidArgument, u.Field)
		}
	case FieldLockDuration, FieldCooldownPeriod:
		if u.Int <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidArgument, u.Field)
		}
	case FieldSlashPercentage:
		if u.Uint > BasisPoints {
			return fmt.Errorf("%w: slash percentage exceeds %d bps", ErrInvalidArgument, BasisPoints)
		}
	case FieldSlashType:
		if _, err := SlashTypeFromByte(uint8(u.Uint)); err != nil || u.Uint > 0xff {
			return fmt.Errorf("%w: slash type %d", ErrInvalidEnum, u.Uint)
		}
	case FieldStatus:
		if _, err := PoolStatusFromByte(uint8(u.Uint)); err != nil || u.Uint > 0xff {
			return fmt.Errorf("%w: pool status %d", ErrInvalidEnum, u.Uint)
		}
	case FieldEarlyWithdrawPenalty, FieldMaxStakeLimit, FieldLockEnabled,
		FieldSlashingEnabled, FieldPriceFeed, FieldEmergencyPause:
	default:
		return fmt.Errorf("%w: unknown pool field %d", ErrInvalidArgument, uint8(u.Field))
	}
	return nil
}

func (u PoolUpdate) frozenAllowed() bool {
	return u.Field == FieldStatus || u.Field == FieldEmergencyPause
}

// ApplyUpdate writes u into the pool. While the pool is emergency paused
// only the status and the emergency flag itself may change.
func (p *Pool) ApplyUpdate(u PoolUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.PoolID != p.PoolID {
		return fmt.Errorf("%w: pool id %d does not match %d", ErrInvalidAccount, u.PoolID, p.PoolID)
	}
	if p.EmergencyPaused && !u.frozenAllowed() {
		return ErrPoolConfigFrozen
	}
	switch u.Field {
	case FieldRewardRate:
		p.RewardRatePerSecond = Amount(u.Uint)
	case FieldLockDuration:
		p.LockDuration = u.Int
	case FieldRewardMultiplier:
		if u.Uint > 0xffff {
			return fmt.Errorf("%w: multiplier %d", ErrInvalidArgument, u.Uint)
		}
		p.RewardMultiplier = uint16(u.Uint)
	case FieldEarlyWithdrawPenalty:
		p.EarlyWithdrawPenalty = u.Uint
	case FieldSlashPercentage:
		p.SlashPercentageBps = uint16(u.Uint)
	case FieldMinEvidence:
		if u.Uint > 0xff {
			return fmt.Errorf("%w: min evidence %d", ErrInvalidArgument, u.Uint)
		}
		p.MinEvidenceRequired = uint8(u.Uint)
	case FieldCooldownPeriod:
		p.CooldownPeriod = u.Int
	case FieldMaxStakeLimit:
		limit := Amount(u.Uint)
		if limit != 0 && (limit < p.TotalStaked || limit < p.MinStake) {
			return fmt.Errorf("%w: max stake limit %d below staked or minimum", ErrInvalidArgument, limit)
		}
		p.MaxStakeLimit = limit
	case FieldMinStake:
		minimum := Amount(u.Uint)
		if p.MaxStakeLimit != 0 && minimum > p.MaxStakeLimit {
			return fmt.Errorf("%w: min stake %d above limit", ErrInvalidArgument, minimum)
		}
		p.MinStake = minimum
	case FieldLockEnabled:
		p.LockEnabled = u.Flag
	case FieldSlashingEnabled:
		p.SlashingEnabled = u.Flag
	case FieldSlashType:
		p.SlashType = SlashType(u.Uint)
	case FieldPriceFeed:
		p.PriceFeed = u.Address
	case FieldStatus:
		p.Status = PoolStatus(u.Uint)
	case FieldEmergencyPause:
		p.EmergencyPaused = u.Flag
		if u.Flag {
			p.Status = PoolEmergency
		}
	}
	return nil
}

// PoolParams are the creation-time settings of a pool.
type PoolParams struct {
	PoolID               uint64
	RewardRatePerSecond  Amount
	LockEnabled          bool
	LockDuration         int64
	RewardMultiplier     uint16
	EarlyWithdrawPenalty uint64
	SlashingEnabled      bool
	SlashType            SlashType
	SlashPercentageBps   uint16
	MinEvidenceRequired  uint8
	CooldownPeriod       int64
	MaxStakeLimit        Amount
	MinStake             Amount
}

// Validate checks creation parameters.
func (pp PoolParams) Validate() error {
	if pp.RewardMultiplier == 0 {
		return fmt.Errorf("%w: reward multiplier must be non-zero", ErrInvalidArgument)
	}
	if uint64(pp.SlashPercentageBps) > BasisPoints {
		return fmt.Errorf("%w: slash percentage exceeds %d bps", ErrInvalidArgument, BasisPoints)
	}
	if pp.MinStake == 0 {
		return fmt.Errorf("%w: minimum stake must be non-zero", ErrInvalidArgument)
	}
	if pp.MaxStakeLimit != 0 && pp.MaxStakeLimit < pp.MinStake {
		return fmt.Errorf("%w: max stake limit below minimum stake", ErrInvalidArgument)
	}
	if pp.LockEnabled && pp.LockDuration <= 0 {
		return fmt.Errorf("%w: lock duration must be positive", ErrInvalidArgument)
	}
	if _, err := SlashTypeFromByte(uint8(pp.SlashType)); err != nil {
		return err
	}
	return nil
}
