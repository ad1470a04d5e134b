package staking

import (
	"fmt"

	"lstaking/core/events"
	"lstaking/crypto"
)

// emergencyReason names the first emergency condition that holds for pool,
// or returns "" when none does.
func (e *Engine) emergencyReason(cfg *GlobalConfig, addr crypto.Address, pool *Pool) string {
	switch {
	case cfg.EmergencyPause:
		return "globalPause"
	case pool.EmergencyPaused:
		return "poolEmergencyPause"
	case pool.Status == PoolDeprecated:
		return "deprecated"
	case pool.SlashingEnabled && e.slashing != nil && e.slashing.SlashingDetected(addr, pool):
		return "slashing"
	}
	return ""
}

// EmergencyWithdraw closes the caller's position while an emergency
// condition holds. The full LST balance of the position is burned, the
// elevated penalty goes to the treasury and the rest of the principal is
// returned. Lock periods do not apply. Rewards accrued up to now are paid
// from the pool's reward vault as far as it can cover them.
func (e *Engine) EmergencyWithdraw(signer crypto.Address, acc Accounts, poolID uint64) (EmergencyResult, error) {
	var res EmergencyResult
	if err := e.ready(); err != nil {
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
	reason := e.emergencyReason(cfg, acc.Pool, pool)
	if reason == "" {
		return res, ErrNoEmergencyCondition
	}
	idx, ok := ledger.FindActive(poolID)
	if !ok {
		return res, ErrPositionNotFound
	}
	pos := &ledger.Positions[idx]
	if pos.LSTTokens == 0 {
		return res, ErrNothingToWithdraw
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
	if err := same("reward vault", acc.RewardVault, pool.RewardVault); err != nil {
		return res, err
	}

	res.Burned = pos.LSTTokens
	principal := pos.StakedAmount
	if err := e.requireBalance(pool.LSTMint, signer, res.Burned, ErrInsufficientFunds); err != nil {
		return res, err
	}
	if err := e.requireBalance(pool.StakeAsset, pool.StakeVault, principal, ErrInsufficientFunds); err != nil {
		return res, err
	}
	res.Penalty = EmergencyPenalty(principal, pool.EarlyWithdrawPenalty)
	res.Returned = principal.Sub(res.Penalty)

	now := e.now()
	pool.Refresh(now)
	pos.PendingRewards = pos.PendingRewards.Add(PositionRateRewards(pos, pool, now))

	if err := e.burn(pool.LSTMint, signer, res.Burned); err != nil {
		return res, err
	}
	if err := e.transfer(pool.StakeAsset, pool.StakeVault, cfg.Treasury, res.Penalty); err != nil {
		return res, err
	}
	if err := e.transfer(pool.StakeAsset, pool.StakeVault, signer, res.Returned); err != nil {
		return res, err
	}

	res.Rewards, res.Forfeited, err = e.settleClosing(cfg, pool, ledger, pos, signer, now)
	if err != nil {
		return res, err
	}
	pos.StakedAmount = 0
	pos.LSTTokens = 0
	pos.LastRewardUpdate = now
	ledger.Close(idx)

	ledger.TotalStakedAmount = ledger.TotalStakedAmount.Sub(principal)
	ledger.TotalLSTBalance = ledger.TotalLSTBalance.Sub(res.Burned)
	ledger.TotalPenalties = ledger.TotalPenalties.Add(res.Penalty)
	ledger.LastUpdate = now
	pool.RecordUnstake(principal, res.Burned)

	if err := e.savePoolAndLedger(acc, pool, ledger); err != nil {
		return res, err
	}
	e.emit(events.StakingEmergencyWithdraw{
		Owner:       signer,
		PoolID:      poolID,
		Burned:      uint64(res.Burned),
		Penalty:     uint64(res.Penalty),
		Returned:    uint64(res.Returned),
		RewardsPaid: uint64(res.Rewards.Total),
		Forfeited:   uint64(res.Forfeited),
		Reason:      reason,
	})
	e.logger.Warn("emergency withdraw", "owner", signer.String(), "poolId", poolID,
		"reason", reason, "penalty", uint64(res.Penalty), "returned", uint64(res.Returned))
	return res, nil
}

// EmergencyCondition reports the active emergency condition for a pool
// without mutating anything. The result is empty when withdrawals would be
// rejected.
func (e *Engine) EmergencyCondition(acc Accounts, poolID uint64) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	cfg, err := e.loadGlobal(acc)
	if err != nil {
		return "", err
	}
	pool, err := e.loadPoolInConfig(acc, poolID)
	if err != nil {
		return "", fmt.Errorf("staking: emergency condition: %w", err)
	}
	return e.emergencyReason(cfg, acc.Pool, pool), nil
}
