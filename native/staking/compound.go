package staking

import (
	"fmt"

	"lstaking/core/events"
	"lstaking/crypto"
)

const secondsPerHour = 3600

// ExecuteAutoCompound restakes the position's share-based accrual. The
// protocol fee goes to the treasury; the remainder moves from the reward
// vault to the stake vault and is minted as LST to the owner. Only pools
// whose reward asset is the stake asset can compound.
func (e *Engine) ExecuteAutoCompound(signer crypto.Address, acc Accounts, poolID uint64) (CompoundResult, error) {
	var res CompoundResult
	if err := e.guard(); err != nil {
		return res, err
	}
	cfg, err := e.loadGlobal(acc)
	if err != nil {
		return res, err
	}
	pool, err := e.loadPoolInConfig(acc, poolID)
	if err != nil {
		return res, err
	}
	ledger, err := e.loadLedger(acc, signer)
	if err != nil {
		return res, err
	}
	if ledger.Paused {
		return res, ErrUserPaused
	}
	if cfg.EmergencyPause {
		return res, ErrGlobalPaused
	}
	if pool.EmergencyPaused {
		return res, ErrPoolEmergencyPaused
	}
	idx, ok := ledger.FindActive(poolID)
	if !ok {
		return res, ErrPositionNotFound
	}
	pos := &ledger.Positions[idx]
	if !pos.AutoCompound {
		return res, ErrAutoCompoundDisabled
	}

	now := e.now()
	interval := uint64(pos.CompoundFrequencyHours) * secondsPerHour
	if elapsedSince(now, pos.LastCompound) < interval {
		return res, fmt.Errorf("%w: next compound at %d", ErrIntervalNotElapsed, pos.LastCompound+int64(interval))
	}

	pool.Refresh(now)
	total := PositionShareRewards(pos, pool, now).Add(pos.PendingRewards)
	if total < pos.MinCompoundAmount {
		return res, fmt.Errorf("%w: %d < %d", ErrBelowMinimumCompound, total, pos.MinCompoundAmount)
	}
	if total == 0 {
		return res, ErrNothingToClaim
	}
	if err := same("reward vault", acc.RewardVault, pool.RewardVault); err != nil {
		return res, err
	}
	if err := same("stake vault", acc.StakeVault, pool.StakeVault); err != nil {
		return res, err
	}
	if err := same("lst mint", acc.LSTMint, pool.LSTMint); err != nil {
		return res, err
	}
	if err := same("treasury", acc.Treasury, cfg.Treasury); err != nil {
		return res, err
	}
	if err := e.requireBalance(pool.RewardAsset, pool.RewardVault, total, ErrInsufficientVaultBalance); err != nil {
		return res, err
	}
	if pool.RewardAsset != pool.StakeAsset {
		return res, ErrUnsupportedCrossAssetCompound
	}

	res.Total = total
	res.Fee = ProtocolFee(total, cfg.ProtocolFeeBps)
	res.Compounded = total.Sub(res.Fee)
	if err := e.transfer(pool.RewardAsset, pool.RewardVault, cfg.Treasury, res.Fee); err != nil {
		return res, err
	}
	if err := e.transfer(pool.RewardAsset, pool.RewardVault, pool.StakeVault, res.Compounded); err != nil {
		return res, err
	}
	if err := e.mint(pool.LSTMint, signer, res.Compounded); err != nil {
		return res, err
	}

	pos.StakedAmount = pos.StakedAmount.Add(res.Compounded)
	pos.LSTTokens = pos.LSTTokens.Add(res.Compounded)
	pos.PendingRewards = 0
	pos.LastRewardUpdate = now
	pos.LastCompound = now
	pos.CompoundCount++
	res.Count = pos.CompoundCount

	ledger.TotalStakedAmount = ledger.TotalStakedAmount.Add(res.Compounded)
	ledger.TotalLSTBalance = ledger.TotalLSTBalance.Add(res.Compounded)
	ledger.TotalEarned = ledger.TotalEarned.Add(total)
	ledger.LastUpdate = now
	pool.RecordStake(res.Compounded, res.Compounded)
	pool.RecordRewardDistribution(total)

	if err := e.savePoolAndLedger(acc, pool, ledger); err != nil {
		return res, err
	}
	e.emit(events.StakingCompounded{
		Owner:      signer,
		PoolID:     poolID,
		Total:      uint64(res.Total),
		Fee:        uint64(res.Fee),
		Compounded: uint64(res.Compounded),
		Count:      res.Count,
	})
	return res, nil
}

// EnableAutoCompound turns compounding on for the caller's position with
// the given interval and minimum reward threshold.
func (e *Engine) EnableAutoCompound(signer crypto.Address, acc Accounts, poolID uint64, frequencyHours uint32, minAmount Amount) error {
	if err := e.guard(); err != nil {
		return err
	}
	if frequencyHours == 0 {
		return fmt.Errorf("%w: compound frequency must be positive", ErrInvalidArgument)
	}
	if _, err := e.loadGlobal(acc); err != nil {
		return err
	}
	ledger, err := e.loadLedger(acc, signer)
	if err != nil {
		return err
	}
	pos, err := ledger.Position(poolID)
	if err != nil {
		return err
	}
	pos.AutoCompound = true
	pos.CompoundFrequencyHours = frequencyHours
	pos.MinCompoundAmount = minAmount
	ledger.LastUpdate = e.now()
	if err := e.state.PutUserLedger(acc.UserLedger, ledger); err != nil {
		return err
	}
	e.emit(events.StakingAutoCompound{Owner: signer, PoolID: poolID, Enabled: true, FrequencyHours: frequencyHours, MinAmount: uint64(minAmount)})
	return nil
}

// DisableAutoCompound turns compounding off for the caller's position.
func (e *Engine) DisableAutoCompound(signer crypto.Address, acc Accounts, poolID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.loadGlobal(acc); err != nil {
		return err
	}
	ledger, err := e.loadLedger(acc, signer)
	if err != nil {
		return err
	}
	pos, err := ledger.Position(poolID)
	if err != nil {
		return err
	}
	pos.AutoCompound = false
	ledger.LastUpdate = e.now()
	if err := e.state.PutUserLedger(acc.UserLedger, ledger); err != nil {
		return err
	}
	e.emit(events.StakingAutoCompound{Owner: signer, PoolID: poolID})
	return nil
}
