package staking

import (
	"fmt"

	"lstaking/core/events"
	"lstaking/crypto"
)

// stakeChecks runs the gates shared by Stake and IncreaseStake.
func (e *Engine) stakeChecks(signer crypto.Address, acc Accounts, poolID uint64, amount Amount) (*GlobalConfig, *Pool, *UserLedger, error) {
	if amount == 0 {
		return nil, nil, nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	cfg, err := e.loadGlobal(acc)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.EmergencyPause {
		return nil, nil, nil, ErrGlobalPaused
	}
	pool, err := e.loadPoolInConfig(acc, poolID)
	if err != nil {
		return nil, nil, nil, err
	}
	ledger, err := e.loadLedger(acc, signer)
	if err != nil {
		return nil, nil, nil, err
	}
	if ledger.Paused {
		return nil, nil, nil, ErrUserPaused
	}
	if err := pool.AcceptsStake(); err != nil {
		return nil, nil, nil, err
	}
	if err := pool.CheckStakeBounds(amount, cfg.MinStake); err != nil {
		return nil, nil, nil, err
	}
	if err := same("stake vault", acc.StakeVault, pool.StakeVault); err != nil {
		return nil, nil, nil, err
	}
	if err := same("lst mint", acc.LSTMint, pool.LSTMint); err != nil {
		return nil, nil, nil, err
	}
	if err := e.requireBalance(pool.StakeAsset, signer, amount, ErrInsufficientFunds); err != nil {
		return nil, nil, nil, err
	}
	return cfg, pool, ledger, nil
}

// Stake opens a new position in the first free slot, moving amount of the
// stake asset into the pool vault and minting the same amount of LST.
func (e *Engine) Stake(signer crypto.Address, acc Accounts, poolID uint64, amount Amount) (int, error) {
	if err := e.guard(); err != nil {
		return -1, err
	}
	_, pool, ledger, err := e.stakeChecks(signer, acc, poolID, amount)
	if err != nil {
		return -1, err
	}
	if _, ok := ledger.FindActive(poolID); ok {
		return -1, ErrDuplicatePosition
	}

	now := e.now()
	pool.Refresh(now)

	pos := StakePosition{
		PoolID:           poolID,
		Pool:             acc.Pool,
		LSTAccount:       signer,
		StakedAmount:     amount,
		LSTTokens:        amount,
		LastRewardUpdate: now,
		StakedAt:         now,
		LockEnabled:      pool.LockEnabled,
		LastCompound:     now,
	}
	if pool.LockEnabled {
		pos.LockExpiry = now + pool.LockDuration
	}
	slot, err := ledger.Open(pos)
	if err != nil {
		return -1, err
	}

	if err := e.transfer(pool.StakeAsset, signer, pool.StakeVault, amount); err != nil {
		return -1, err
	}
	if err := e.mint(pool.LSTMint, signer, amount); err != nil {
		return -1, err
	}

	pool.RecordStake(amount, amount)
	ledger.TotalStakedAmount = ledger.TotalStakedAmount.Add(amount)
	ledger.TotalLSTBalance = ledger.TotalLSTBalance.Add(amount)
	ledger.LastUpdate = now

	if err := e.savePoolAndLedger(acc, pool, ledger); err != nil {
		return -1, err
	}
	e.emit(events.StakingStaked{Owner: signer, PoolID: poolID, Amount: uint64(amount), LSTMinted: uint64(amount), Slot: slot})
	e.logger.Debug("stake opened", "owner", signer.String(), "poolId", poolID, "amount", uint64(amount), "slot", slot)
	return slot, nil
}

// IncreaseStake adds amount to the caller's active position for poolID.
// Accrual up to now is settled into the position's pending rewards first
// so the larger principal only earns from this point on.
func (e *Engine) IncreaseStake(signer crypto.Address, acc Accounts, poolID uint64, amount Amount) error {
	if err := e.guard(); err != nil {
		return err
	}
	_, pool, ledger, err := e.stakeChecks(signer, acc, poolID, amount)
	if err != nil {
		return err
	}
	idx, ok := ledger.FindActive(poolID)
	if !ok {
		return ErrPositionNotFound
	}
	pos := &ledger.Positions[idx]

	now := e.now()
	pool.Refresh(now)
	pos.PendingRewards = pos.PendingRewards.Add(PositionRateRewards(pos, pool, now))
	pos.LastRewardUpdate = now

	if err := e.transfer(pool.StakeAsset, signer, pool.StakeVault, amount); err != nil {
		return err
	}
	if err := e.mint(pool.LSTMint, signer, amount); err != nil {
		return err
	}

	pos.StakedAmount = pos.StakedAmount.Add(amount)
	pos.LSTTokens = pos.LSTTokens.Add(amount)
	pool.RecordStake(amount, amount)
	ledger.TotalStakedAmount = ledger.TotalStakedAmount.Add(amount)
	ledger.TotalLSTBalance = ledger.TotalLSTBalance.Add(amount)
	ledger.LastUpdate = now

	if err := e.savePoolAndLedger(acc, pool, ledger); err != nil {
		return err
	}
	e.emit(events.StakingStaked{Owner: signer, PoolID: poolID, Amount: uint64(amount), LSTMinted: uint64(amount), Slot: idx, Increase: true})
	e.logger.Debug("stake increased", "owner", signer.String(), "poolId", poolID, "amount", uint64(amount))
	return nil
}

// Unstake burns lstAmount of the position's LST and returns the same amount
// of the stake asset. Accrued rewards are settled into the position first;
// if the position empties, they are paid from the pool's reward vault and
// the slot is released.
//
// A locked position still has its early-withdraw penalty computed, but the
// penalty is only reported in the result and never deducted.
func (e *Engine) Unstake(signer crypto.Address, acc Accounts, poolID uint64, lstAmount Amount) (UnstakeResult, error) {
	var res UnstakeResult
	if err := e.ready(); err != nil {
		return res, err
	}
	if lstAmount == 0 {
		return res, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
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
	idx, ok := ledger.FindActive(poolID)
	if !ok {
		return res, ErrPositionNotFound
	}
	pos := &ledger.Positions[idx]
	if pos.LSTTokens < lstAmount {
		return res, fmt.Errorf("%w: position holds %d lst, requested %d", ErrInsufficientFunds, pos.LSTTokens, lstAmount)
	}
	if err := same("stake vault", acc.StakeVault, pool.StakeVault); err != nil {
		return res, err
	}
	if err := same("lst mint", acc.LSTMint, pool.LSTMint); err != nil {
		return res, err
	}
	if err := same("reward vault", acc.RewardVault, pool.RewardVault); err != nil {
		return res, err
	}
	if err := same("treasury", acc.Treasury, cfg.Treasury); err != nil {
		return res, err
	}
	if err := e.requireBalance(pool.LSTMint, signer, lstAmount, ErrInsufficientFunds); err != nil {
		return res, err
	}
	underlying := lstAmount
	if err := e.requireBalance(pool.StakeAsset, pool.StakeVault, underlying, ErrInsufficientFunds); err != nil {
		return res, err
	}

	now := e.now()
	if lockRestricted(pos, now) {
		res.UnappliedPenalty = EarlyWithdrawPenalty(lstAmount, pool.EarlyWithdrawPenalty)
	}

	pool.Refresh(now)
	res.Settled = PositionRateRewards(pos, pool, now)
	pos.PendingRewards = pos.PendingRewards.Add(res.Settled)

	if err := e.burn(pool.LSTMint, signer, lstAmount); err != nil {
		return res, err
	}
	if err := e.transfer(pool.StakeAsset, pool.StakeVault, signer, underlying); err != nil {
		return res, err
	}

	pos.StakedAmount = pos.StakedAmount.Sub(underlying)
	pos.LSTTokens = pos.LSTTokens.Sub(lstAmount)
	pos.LastRewardUpdate = now
	if pos.LSTTokens == 0 {
		res.Rewards, res.Forfeited, err = e.settleClosing(cfg, pool, ledger, pos, signer, now)
		if err != nil {
			return res, err
		}
		ledger.Close(idx)
		res.Closed = true
	}

	ledger.TotalStakedAmount = ledger.TotalStakedAmount.Sub(underlying)
	ledger.TotalLSTBalance = ledger.TotalLSTBalance.Sub(lstAmount)
	ledger.LastUpdate = now
	pool.RecordUnstake(underlying, lstAmount)
	res.Returned = underlying

	if err := e.savePoolAndLedger(acc, pool, ledger); err != nil {
		return res, err
	}
	e.emit(events.StakingUnstaked{
		Owner:            signer,
		PoolID:           poolID,
		Amount:           uint64(underlying),
		Settled:          uint64(res.Settled),
		UnappliedPenalty: uint64(res.UnappliedPenalty),
		Closed:           res.Closed,
		RewardsPaid:      uint64(res.Rewards.Total),
		Forfeited:        uint64(res.Forfeited),
	})
	if res.UnappliedPenalty > 0 {
		e.logger.Warn("early withdraw penalty computed but not applied",
			"owner", signer.String(), "poolId", poolID, "penalty", uint64(res.UnappliedPenalty))
	}
	return res, nil
}
