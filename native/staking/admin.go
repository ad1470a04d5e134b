package staking

import (
	"fmt"
	"strconv"

	"lstaking/core/events"
	"lstaking/crypto"
)

// GlobalParams are the settings supplied when the global config is created.
type GlobalParams struct {
	ProtocolFeeBps uint16
	MinStake       Amount
	MaxPools       uint32
}

// Validate checks the parameters in isolation.
func (p GlobalParams) Validate() error {
	if uint64(p.ProtocolFeeBps) > BasisPoints {
		return fmt.Errorf("%w: protocol fee exceeds %d bps", ErrInvalidArgument, BasisPoints)
	}
	if p.MinStake == 0 {
		return fmt.Errorf("%w: minimum stake must be non-zero", ErrInvalidArgument)
	}
	if p.MaxPools == 0 {
		return fmt.Errorf("%w: max pools must be non-zero", ErrInvalidArgument)
	}
	return nil
}

// InitGlobalConfig creates the global config seeded by the signer and
// records its treasury.
func (e *Engine) InitGlobalConfig(signer crypto.Address, acc Accounts, params GlobalParams) error {
	if err := e.guard(); err != nil {
		return err
	}
	if signer != acc.Authority {
		return fmt.Errorf("%w: signer is not the config authority", ErrUnauthorized)
	}
	bump, err := expect("global config", acc.GlobalConfig, func() (crypto.Address, uint8, error) {
		return e.derive.GlobalConfig(acc.Authority)
	})
	if err != nil {
		return err
	}
	existing, err := e.state.GetGlobalConfig(acc.GlobalConfig)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	if err := params.Validate(); err != nil {
		return err
	}
	treasuryBump, err := expect("treasury", acc.Treasury, func() (crypto.Address, uint8, error) {
		return e.derive.Treasury(acc.GlobalConfig)
	})
	if err != nil {
		return err
	}
	cfg := &GlobalConfig{
		Authority:      acc.Authority,
		Treasury:       acc.Treasury,
		ProtocolFeeBps: params.ProtocolFeeBps,
		MaxPools:       params.MaxPools,
		MinStake:       params.MinStake,
		Bump:           bump,
		TreasuryBump:   treasuryBump,
	}
	if err := e.state.PutGlobalConfig(acc.GlobalConfig, cfg); err != nil {
		return err
	}
	e.emit(events.StakingGlobalInitialized{
		Config:         acc.GlobalConfig,
		Authority:      acc.Authority,
		Treasury:       acc.Treasury,
		ProtocolFeeBps: params.ProtocolFeeBps,
		MaxPools:       params.MaxPools,
		MinStake:       uint64(params.MinStake),
	})
	e.logger.Info("global config initialised", "config", acc.GlobalConfig.String(), "authority", acc.Authority.String())
	return nil
}

// loadGlobalForAdmin loads the global config and requires signer to be its
// current authority.
func (e *Engine) loadGlobalForAdmin(signer crypto.Address, acc Accounts) (*GlobalConfig, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	cfg, err := e.loadGlobal(acc)
	if err != nil {
		return nil, err
	}
	if cfg.Authority != signer {
		return nil, fmt.Errorf("%w: signer is not the config authority", ErrUnauthorized)
	}
	return cfg, nil
}

func (e *Engine) saveGlobal(acc Accounts, cfg *GlobalConfig, field, value string) error {
	if err := e.state.PutGlobalConfig(acc.GlobalConfig, cfg); err != nil {
		return err
	}
	e.emit(events.StakingGlobalUpdated{Config: acc.GlobalConfig, Field: field, Value: value})
	return nil
}

// UpdateAuthority hands config administration to next. The config keeps
// its address, which stays seeded by the original authority.
func (e *Engine) UpdateAuthority(signer crypto.Address, acc Accounts, next crypto.Address) error {
	cfg, err := e.loadGlobalForAdmin(signer, acc)
	if err != nil {
		return err
	}
	if next.IsZero() {
		return fmt.Errorf("%w: authority must be non-zero", ErrInvalidArgument)
	}
	cfg.Authority = next
	return e.saveGlobal(acc, cfg, "authority", next.String())
}

// UpdateProtocolFee sets the fee charged on claims and compounds.
func (e *Engine) UpdateProtocolFee(signer crypto.Address, acc Accounts, feeBps uint16) error {
	cfg, err := e.loadGlobalForAdmin(signer, acc)
	if err != nil {
		return err
	}
	if uint64(feeBps) > BasisPoints {
		return fmt.Errorf("%w: protocol fee exceeds %d bps", ErrInvalidArgument, BasisPoints)
	}
	cfg.ProtocolFeeBps = feeBps
	return e.saveGlobal(acc, cfg, "protocolFeeBps", strconv.FormatUint(uint64(feeBps), 10))
}

// SetGlobalEmergencyPause toggles the protocol-wide emergency pause.
func (e *Engine) SetGlobalEmergencyPause(signer crypto.Address, acc Accounts, paused bool) error {
	cfg, err := e.loadGlobalForAdmin(signer, acc)
	if err != nil {
		return err
	}
	cfg.EmergencyPause = paused
	if err := e.saveGlobal(acc, cfg, "emergencyPause", strconv.FormatBool(paused)); err != nil {
		return err
	}
	e.logger.Warn("global emergency pause changed", "config", acc.GlobalConfig.String(), "paused", paused)
	return nil
}

// CreatePool registers a new pool owned by the signer under the global
// config. Vault and mint references must match their derived addresses.
func (e *Engine) CreatePool(signer crypto.Address, acc Accounts, params PoolParams) error {
	if err := e.guard(); err != nil {
		return err
	}
	if signer != acc.Creator {
		return fmt.Errorf("%w: signer is not the pool creator", ErrUnauthorized)
	}
	cfg, err := e.loadGlobal(acc)
	if err != nil {
		return err
	}
	if cfg.MaxPools != 0 && cfg.ActivePools >= uint64(cfg.MaxPools) {
		return fmt.Errorf("%w: %d of %d", ErrMaxPoolsReached, cfg.ActivePools, cfg.MaxPools)
	}
	bump, err := expect("pool", acc.Pool, func() (crypto.Address, uint8, error) {
		return e.derive.Pool(acc.Creator, params.PoolID)
	})
	if err != nil {
		return err
	}
	existing, err := e.state.GetPool(acc.Pool)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if acc.StakeMint.IsZero() || acc.RewardMint.IsZero() {
		return fmt.Errorf("%w: stake and reward assets are required", ErrInvalidAccount)
	}
	if _, err := expect("stake vault", acc.StakeVault, func() (crypto.Address, uint8, error) {
		return e.derive.StakeVault(acc.StakeMint, acc.GlobalConfig)
	}); err != nil {
		return err
	}
	if _, err := expect("reward vault", acc.RewardVault, func() (crypto.Address, uint8, error) {
		return e.derive.RewardVault(acc.RewardMint, acc.GlobalConfig)
	}); err != nil {
		return err
	}
	if _, err := expect("lst mint", acc.LSTMint, func() (crypto.Address, uint8, error) {
		return e.derive.LSTMint(acc.Pool)
	}); err != nil {
		return err
	}

	now := e.now()
	pool := &Pool{
		PoolID:               params.PoolID,
		GlobalConfig:         acc.GlobalConfig,
		Creator:              acc.Creator,
		CreatedAt:            now,
		LastUpdate:           now,
		Status:               PoolActive,
		StakeAsset:           acc.StakeMint,
		RewardAsset:          acc.RewardMint,
		StakeVault:           acc.StakeVault,
		RewardVault:          acc.RewardVault,
		RewardRatePerSecond:  params.RewardRatePerSecond,
		LockEnabled:          params.LockEnabled,
		LockDuration:         params.LockDuration,
		RewardMultiplier:     params.RewardMultiplier,
		EarlyWithdrawPenalty: params.EarlyWithdrawPenalty,
		SlashingEnabled:      params.SlashingEnabled,
		SlashType:            params.SlashType,
		SlashPercentageBps:   params.SlashPercentageBps,
		MinEvidenceRequired:  params.MinEvidenceRequired,
		CooldownPeriod:       params.CooldownPeriod,
		PriceFeed:            acc.PriceFeed,
		MaxStakeLimit:        params.MaxStakeLimit,
		MinStake:             params.MinStake,
		LSTMint:              acc.LSTMint,
		Bump:                 bump,
	}
	cfg.PoolsCreated++
	cfg.ActivePools++
	if err := e.state.PutPool(acc.Pool, pool); err != nil {
		return err
	}
	if err := e.state.PutGlobalConfig(acc.GlobalConfig, cfg); err != nil {
		return err
	}
	e.emit(events.StakingPoolCreated{
		Pool:        acc.Pool,
		PoolID:      params.PoolID,
		Creator:     acc.Creator,
		StakeAsset:  acc.StakeMint,
		RewardAsset: acc.RewardMint,
		LSTMint:     acc.LSTMint,
		RewardRate:  uint64(params.RewardRatePerSecond),
	})
	e.logger.Info("pool created", "pool", acc.Pool.String(), "poolId", params.PoolID, "creator", acc.Creator.String())
	return nil
}

// loadPoolForCreator loads the pool and requires signer to be its creator.
func (e *Engine) loadPoolForCreator(signer crypto.Address, acc Accounts, poolID uint64) (*Pool, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	pool, err := e.loadPool(acc, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Creator != signer {
		return nil, fmt.Errorf("%w: signer is not the pool creator", ErrUnauthorized)
	}
	return pool, nil
}

func updateValue(u PoolUpdate) string {
	switch u.Field {
	case FieldLockDuration, FieldCooldownPeriod:
		return strconv.FormatInt(u.Int, 10)
	case FieldLockEnabled, FieldSlashingEnabled, FieldEmergencyPause:
		return strconv.FormatBool(u.Flag)
	case FieldPriceFeed:
		return u.Address.String()
	case FieldSlashType:
		return SlashType(u.Uint).String()
	case FieldStatus:
		return PoolStatus(u.Uint).String()
	default:
		return strconv.FormatUint(u.Uint, 10)
	}
}

// UpdatePoolConfig applies one configuration write. Accrual is brought up
// to date first so a rate change only affects future time.
func (e *Engine) UpdatePoolConfig(signer crypto.Address, acc Accounts, update PoolUpdate) error {
	pool, err := e.loadPoolForCreator(signer, acc, update.PoolID)
	if err != nil {
		return err
	}
	if update.Field == FieldPriceFeed {
		update.Address = acc.PriceFeed
	}
	pool.Refresh(e.now())
	if err := pool.ApplyUpdate(update); err != nil {
		return err
	}
	if err := e.state.PutPool(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(events.StakingPoolUpdated{Pool: acc.Pool, PoolID: pool.PoolID, Field: update.Field.String(), Value: updateValue(update)})
	return nil
}

func (e *Engine) setPoolStatus(signer crypto.Address, acc Accounts, poolID uint64, transition func(PoolStatus) (PoolStatus, error)) error {
	pool, err := e.loadPoolForCreator(signer, acc, poolID)
	if err != nil {
		return err
	}
	next, err := transition(pool.Status)
	if err != nil {
		return err
	}
	from := pool.Status
	pool.Refresh(e.now())
	pool.Status = next
	if err := e.state.PutPool(acc.Pool, pool); err != nil {
		return err
	}
	e.emit(events.StakingPoolStatus{Pool: acc.Pool, PoolID: poolID, From: from.String(), To: next.String()})
	return nil
}

// PausePool stops new stakes into an active pool.
func (e *Engine) PausePool(signer crypto.Address, acc Accounts, poolID uint64) error {
	return e.setPoolStatus(signer, acc, poolID, PoolStatus.Pause)
}

// ResumePool reopens a paused pool.
func (e *Engine) ResumePool(signer crypto.Address, acc Accounts, poolID uint64) error {
	return e.setPoolStatus(signer, acc, poolID, PoolStatus.Resume)
}

// FundRewardVault moves amount of the pool's reward asset from the signer
// into the reward vault. Anyone may fund a pool.
func (e *Engine) FundRewardVault(signer crypto.Address, acc Accounts, poolID uint64, amount Amount) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	pool, err := e.loadPool(acc, poolID)
	if err != nil {
		return err
	}
	if err := same("reward vault", acc.RewardVault, pool.RewardVault); err != nil {
		return err
	}
	if err := e.requireBalance(pool.RewardAsset, signer, amount, ErrInsufficientFunds); err != nil {
		return err
	}
	if err := e.transfer(pool.RewardAsset, signer, pool.RewardVault, amount); err != nil {
		return err
	}
	e.emit(events.StakingVaultFunded{Pool: acc.Pool, PoolID: poolID, Funder: signer, Amount: uint64(amount)})
	return nil
}

// InitUserLedger creates the signer's ledger under the global config.
func (e *Engine) InitUserLedger(signer crypto.Address, acc Accounts) error {
	if err := e.guard(); err != nil {
		return err
	}
	if _, err := e.loadGlobal(acc); err != nil {
		return err
	}
	bump, err := expect("user ledger", acc.UserLedger, func() (crypto.Address, uint8, error) {
		return e.derive.UserLedger(signer, acc.GlobalConfig)
	})
	if err != nil {
		return err
	}
	existing, err := e.state.GetUserLedger(acc.UserLedger)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	ledger := NewUserLedger(signer, acc.GlobalConfig, e.now(), bump)
	if err := e.state.PutUserLedger(acc.UserLedger, ledger); err != nil {
		return err
	}
	e.emit(events.StakingLedgerInitialized{Ledger: acc.UserLedger, Owner: signer})
	return nil
}
