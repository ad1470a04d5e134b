package staking

import (
	"fmt"

	"lstaking/core/events"
	"lstaking/crypto"
)

// payout splits total into the protocol fee and the user's share and moves
// both out of the reward vault.
func (e *Engine) payout(asset, vault, user, treasury crypto.Address, total Amount, feeBps uint16) (ClaimResult, error) {
	res := ClaimResult{Total: total}
	if err := e.requireBalance(asset, vault, total, ErrInsufficientVaultBalance); err != nil {
		return res, err
	}
	res.Fee = ProtocolFee(total, feeBps)
	res.UserRewards = total.Sub(res.Fee)
	if err := e.transfer(asset, vault, user, res.UserRewards); err != nil {
		return res, err
	}
	if err := e.transfer(asset, vault, treasury, res.Fee); err != nil {
		return res, err
	}
	return res, nil
}

// settleClosing pays a closing position's pending rewards out of its own
// pool's reward vault, net of the protocol fee. The part the vault cannot
// cover is forfeited and stays in the vault.
func (e *Engine) settleClosing(cfg *GlobalConfig, pool *Pool, ledger *UserLedger, pos *StakePosition, owner crypto.Address, now int64) (ClaimResult, Amount, error) {
	pending := pos.PendingRewards
	pos.PendingRewards = 0
	if pending == 0 {
		return ClaimResult{}, 0, nil
	}
	available, err := e.balance(pool.RewardAsset, pool.RewardVault)
	if err != nil {
		return ClaimResult{}, 0, err
	}
	paid := pending.Min(available)
	forfeited := pending.Sub(paid)
	if paid == 0 {
		return ClaimResult{}, forfeited, nil
	}
	res, err := e.payout(pool.RewardAsset, pool.RewardVault, owner, cfg.Treasury, paid, cfg.ProtocolFeeBps)
	if err != nil {
		return ClaimResult{}, 0, err
	}
	ledger.TotalEarned = ledger.TotalEarned.Add(paid)
	ledger.TotalClaimed = ledger.TotalClaimed.Add(res.UserRewards)
	ledger.LastClaim = now
	ledger.PushClaim(ClaimEvent{Amount: res.UserRewards, Timestamp: now})
	pool.RecordRewardDistribution(paid)
	return res, forfeited, nil
}

func (e *Engine) claimGates(signer crypto.Address, acc Accounts) (*GlobalConfig, *UserLedger, error) {
	if err := e.guard(); err != nil {
		return nil, nil, err
	}
	cfg, err := e.loadGlobal(acc)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := e.loadLedger(acc, signer)
	if err != nil {
		return nil, nil, err
	}
	if ledger.Paused {
		return nil, nil, ErrUserPaused
	}
	if cfg.EmergencyPause {
		return nil, nil, ErrGlobalPaused
	}
	if err := same("treasury", acc.Treasury, cfg.Treasury); err != nil {
		return nil, nil, err
	}
	return cfg, ledger, nil
}

// ClaimRewards pays the position's rate-projection accrual plus any settled
// pending rewards, net of the protocol fee.
func (e *Engine) ClaimRewards(signer crypto.Address, acc Accounts, poolID uint64) (ClaimResult, error) {
	cfg, ledger, err := e.claimGates(signer, acc)
	if err != nil {
		return ClaimResult{}, err
	}
	pool, err := e.loadPoolInConfig(acc, poolID)
	if err != nil {
		return ClaimResult{}, err
	}
	idx, ok := ledger.FindActive(poolID)
	if !ok {
		return ClaimResult{}, ErrPositionNotFound
	}
	pos := &ledger.Positions[idx]

	now := e.now()
	pool.Refresh(now)
	total := PositionRateRewards(pos, pool, now).Add(pos.PendingRewards)
	if total == 0 {
		return ClaimResult{}, ErrNothingToClaim
	}
	if err := same("reward vault", acc.RewardVault, pool.RewardVault); err != nil {
		return ClaimResult{}, err
	}
	res, err := e.payout(pool.RewardAsset, pool.RewardVault, signer, cfg.Treasury, total, cfg.ProtocolFeeBps)
	if err != nil {
		return ClaimResult{}, err
	}

	pos.PendingRewards = 0
	pos.LastRewardUpdate = now
	ledger.TotalEarned = ledger.TotalEarned.Add(total)
	ledger.TotalClaimed = ledger.TotalClaimed.Add(res.UserRewards)
	ledger.LastClaim = now
	ledger.LastUpdate = now
	ledger.PushClaim(ClaimEvent{Amount: res.UserRewards, Timestamp: now})
	pool.RecordRewardDistribution(total)

	if err := e.savePoolAndLedger(acc, pool, ledger); err != nil {
		return ClaimResult{}, err
	}
	e.emit(events.StakingClaimed{
		Owner:       signer,
		PoolID:      poolID,
		Total:       uint64(res.Total),
		Fee:         uint64(res.Fee),
		UserRewards: uint64(res.UserRewards),
		Timestamp:   now,
	})
	return res, nil
}

// ClaimAllRewards pays the settled pending rewards of every active position
// whose pool distributes acc.RewardMint. Unsettled accrual is left in place.
func (e *Engine) ClaimAllRewards(signer crypto.Address, acc Accounts) (ClaimResult, error) {
	cfg, ledger, err := e.claimGates(signer, acc)
	if err != nil {
		return ClaimResult{}, err
	}
	if _, err := expect("reward vault", acc.RewardVault, func() (crypto.Address, uint8, error) {
		return e.derive.RewardVault(acc.RewardMint, acc.GlobalConfig)
	}); err != nil {
		return ClaimResult{}, err
	}

	now := e.now()
	var total Amount
	pools := make(map[crypto.Address]*Pool)
	var order []crypto.Address
	for i := range ledger.Positions {
		pos := &ledger.Positions[i]
		if !pos.Active || pos.StakedAmount == 0 || pos.PendingRewards == 0 {
			continue
		}
		pool, ok := pools[pos.Pool]
		if !ok {
			pool, err = e.state.GetPool(pos.Pool)
			if err != nil {
				return ClaimResult{}, err
			}
			if pool == nil {
				return ClaimResult{}, fmt.Errorf("%w: position pool %s", ErrPoolNotFound, pos.Pool)
			}
			pools[pos.Pool] = pool
			order = append(order, pos.Pool)
		}
		if pool.RewardAsset != acc.RewardMint {
			continue
		}
		total = total.Add(pos.PendingRewards)
		pool.RecordRewardDistribution(pos.PendingRewards)
		pos.PendingRewards = 0
	}
	if total == 0 {
		return ClaimResult{}, ErrNothingToClaim
	}

	res, err := e.payout(acc.RewardMint, acc.RewardVault, signer, cfg.Treasury, total, cfg.ProtocolFeeBps)
	if err != nil {
		return ClaimResult{}, err
	}

	ledger.TotalEarned = ledger.TotalEarned.Add(total)
	ledger.TotalClaimed = ledger.TotalClaimed.Add(res.UserRewards)
	ledger.LastClaim = now
	ledger.LastUpdate = now
	ledger.PushClaim(ClaimEvent{Amount: res.UserRewards, Timestamp: now})

	for _, addr := range order {
		if err := e.state.PutPool(addr, pools[addr]); err != nil {
			return ClaimResult{}, err
		}
	}
	if err := e.state.PutUserLedger(acc.UserLedger, ledger); err != nil {
		return ClaimResult{}, err
	}
	e.emit(events.StakingClaimed{
		Owner:       signer,
		All:         true,
		Total:       uint64(res.Total),
		Fee:         uint64(res.Fee),
		UserRewards: uint64(res.UserRewards),
		Timestamp:   now,
	})
	return res, nil
}
