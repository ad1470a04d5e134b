package events

import (
	"strconv"

	"lstaking/core/types"
	"lstaking/crypto"
)

const (
	TypeStakingGlobalInitialized = "staking.globalInitialized"
	TypeStakingGlobalUpdated     = "staking.globalUpdated"
	TypeStakingPoolCreated       = "staking.poolCreated"
	TypeStakingPoolUpdated       = "staking.poolUpdated"
	TypeStakingPoolStatus        = "staking.poolStatus"
	TypeStakingVaultFunded       = "staking.vaultFunded"
	TypeStakingLedgerInitialized = "staking.ledgerInitialized"
	TypeStakingStaked            = "staking.staked"
	TypeStakingUnstaked          = "staking.unstaked"
	TypeStakingClaimed           = "staking.claimed"
	TypeStakingCompounded        = "staking.compounded"
	TypeStakingAutoCompound      = "staking.autoCompound"
	TypeStakingEmergencyExit     = "staking.emergencyWithdraw"
	TypeStakingOraclePrice       = "staking.oraclePrice"
)

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

// StakingGlobalInitialized is emitted once per global config record.
type StakingGlobalInitialized struct {
	Config         crypto.Address
	Authority      crypto.Address
	Treasury       crypto.Address
	ProtocolFeeBps uint16
	MaxPools       uint32
	MinStake       uint64
}

func (StakingGlobalInitialized) EventType() string { return TypeStakingGlobalInitialized }

func (e StakingGlobalInitialized) Event() *types.Event {
	return &types.Event{Type: TypeStakingGlobalInitialized, Attributes: map[string]string{
		"config":         e.Config.String(),
		"authority":      e.Authority.String(),
		"treasury":       e.Treasury.String(),
		"protocolFeeBps": formatUint(uint64(e.ProtocolFeeBps)),
		"maxPools":       formatUint(uint64(e.MaxPools)),
		"minStake":       formatUint(e.MinStake),
	}}
}

// StakingGlobalUpdated captures a single global config write.
type StakingGlobalUpdated struct {
	Config crypto.Address
	Field  string
	Value  string
}

func (StakingGlobalUpdated) EventType() string { return TypeStakingGlobalUpdated }

func (e StakingGlobalUpdated) Event() *types.Event {
	return &types.Event{Type: TypeStakingGlobalUpdated, Attributes: map[string]string{
		"config": e.Config.String(),
		"field":  e.Field,
		"value":  e.Value,
	}}
}

// StakingPoolCreated is emitted when a pool record is initialised.
type StakingPoolCreated struct {
	Pool        crypto.Address
	PoolID      uint64
	Creator     crypto.Address
	StakeAsset  crypto.Address
	RewardAsset crypto.Address
	LSTMint     crypto.Address
	RewardRate  uint64
}

func (StakingPoolCreated) EventType() string { return TypeStakingPoolCreated }

func (e StakingPoolCreated) Event() *types.Event {
	return &types.Event{Type: TypeStakingPoolCreated, Attributes: map[string]string{
		"pool":        e.Pool.String(),
		"poolId":      formatUint(e.PoolID),
		"creator":     e.Creator.String(),
		"stakeAsset":  e.StakeAsset.String(),
		"rewardAsset": e.RewardAsset.String(),
		"lstMint":     e.LSTMint.String(),
		"rewardRate":  formatUint(e.RewardRate),
	}}
}

// StakingPoolUpdated captures a pool configuration write.
type StakingPoolUpdated struct {
	Pool   crypto.Address
	PoolID uint64
	Field  string
	Value  string
}

func (StakingPoolUpdated) EventType() string { return TypeStakingPoolUpdated }

func (e StakingPoolUpdated) Event() *types.Event {
	return &types.Event{Type: TypeStakingPoolUpdated, Attributes: map[string]string{
		"pool":   e.Pool.String(),
		"poolId": formatUint(e.PoolID),
		"field":  e.Field,
		"value":  e.Value,
	}}
}

// StakingPoolStatus is emitted by pause and resume.
type StakingPoolStatus struct {
	Pool   crypto.Address
	PoolID uint64
	From   string
	To     string
}

func (StakingPoolStatus) EventType() string { return TypeStakingPoolStatus }

func (e StakingPoolStatus) Event() *types.Event {
	return &types.Event{Type: TypeStakingPoolStatus, Attributes: map[string]string{
		"pool":   e.Pool.String(),
		"poolId": formatUint(e.PoolID),
		"from":   e.From,
		"to":     e.To,
	}}
}

// StakingVaultFunded records a deposit into a pool's reward vault.
type StakingVaultFunded struct {
	Pool   crypto.Address
	PoolID uint64
	Funder crypto.Address
	Amount uint64
}

func (StakingVaultFunded) EventType() string { return TypeStakingVaultFunded }

func (e StakingVaultFunded) Event() *types.Event {
	return &types.Event{Type: TypeStakingVaultFunded, Attributes: map[string]string{
		"pool":   e.Pool.String(),
		"poolId": formatUint(e.PoolID),
		"funder": e.Funder.String(),
		"amount": formatUint(e.Amount),
	}}
}

// StakingLedgerInitialized is emitted when a user ledger is created.
type StakingLedgerInitialized struct {
	Ledger crypto.Address
	Owner  crypto.Address
}

func (StakingLedgerInitialized) EventType() string { return TypeStakingLedgerInitialized }

func (e StakingLedgerInitialized) Event() *types.Event {
	return &types.Event{Type: TypeStakingLedgerInitialized, Attributes: map[string]string{
		"ledger": e.Ledger.String(),
		"owner":  e.Owner.String(),
	}}
}

// StakingStaked covers both new positions and stake increases.
type StakingStaked struct {
	Owner     crypto.Address
	PoolID    uint64
	Amount    uint64
	LSTMinted uint64
	Slot      int
	Increase  bool
}

func (StakingStaked) EventType() string { return TypeStakingStaked }

func (e StakingStaked) Event() *types.Event {
	return &types.Event{Type: TypeStakingStaked, Attributes: map[string]string{
		"owner":     e.Owner.String(),
		"poolId":    formatUint(e.PoolID),
		"amount":    formatUint(e.Amount),
		"lstMinted": formatUint(e.LSTMinted),
		"slot":      strconv.Itoa(e.Slot),
		"increase":  strconv.FormatBool(e.Increase),
	}}
}

// StakingUnstaked reports a principal withdrawal.
type StakingUnstaked struct {
	Owner            crypto.Address
	PoolID           uint64
	Amount           uint64
	Settled          uint64
	UnappliedPenalty uint64
	Closed           bool
	RewardsPaid      uint64
	Forfeited        uint64
}

func (StakingUnstaked) EventType() string { return TypeStakingUnstaked }

func (e StakingUnstaked) Event() *types.Event {
	attrs := map[string]string{
		"owner":   e.Owner.String(),
		"poolId":  formatUint(e.PoolID),
		"amount":  formatUint(e.Amount),
		"settled": formatUint(e.Settled),
		"closed":  strconv.FormatBool(e.Closed),
	}
	if e.UnappliedPenalty > 0 {
		attrs["unappliedPenalty"] = formatUint(e.UnappliedPenalty)
	}
	if e.Closed {
		attrs["rewardsPaid"] = formatUint(e.RewardsPaid)
		attrs["forfeited"] = formatUint(e.Forfeited)
	}
	return &types.Event{Type: TypeStakingUnstaked, Attributes: attrs}
}

// StakingClaimed reports a reward payout. All is set for claim-all, in which
// case PoolID is zero.
type StakingClaimed struct {
	Owner       crypto.Address
	PoolID      uint64
	All         bool
	Total       uint64
	Fee         uint64
	UserRewards uint64
	Timestamp   int64
}

func (StakingClaimed) EventType() string { return TypeStakingClaimed }

func (e StakingClaimed) Event() *types.Event {
	attrs := map[string]string{
		"owner":       e.Owner.String(),
		"total":       formatUint(e.Total),
		"fee":         formatUint(e.Fee),
		"userRewards": formatUint(e.UserRewards),
		"timestamp":   formatInt(e.Timestamp),
	}
	if e.All {
		attrs["scope"] = "all"
	} else {
		attrs["poolId"] = formatUint(e.PoolID)
	}
	return &types.Event{Type: TypeStakingClaimed, Attributes: attrs}
}

// StakingCompounded reports rewards restaked into a position.
type StakingCompounded struct {
	Owner      crypto.Address
	PoolID     uint64
	Total      uint64
	Fee        uint64
	Compounded uint64
	Count      uint32
}

func (StakingCompounded) EventType() string { return TypeStakingCompounded }

func (e StakingCompounded) Event() *types.Event {
	return &types.Event{Type: TypeStakingCompounded, Attributes: map[string]string{
		"owner":      e.Owner.String(),
		"poolId":     formatUint(e.PoolID),
		"total":      formatUint(e.Total),
		"fee":        formatUint(e.Fee),
		"compounded": formatUint(e.Compounded),
		"count":      formatUint(uint64(e.Count)),
	}}
}

// StakingAutoCompound reports an auto-compound toggle.
type StakingAutoCompound struct {
	Owner          crypto.Address
	PoolID         uint64
	Enabled        bool
	FrequencyHours uint32
	MinAmount      uint64
}

func (StakingAutoCompound) EventType() string { return TypeStakingAutoCompound }

func (e StakingAutoCompound) Event() *types.Event {
	attrs := map[string]string{
		"owner":   e.Owner.String(),
		"poolId":  formatUint(e.PoolID),
		"enabled": strconv.FormatBool(e.Enabled),
	}
	if e.Enabled {
		attrs["frequencyHours"] = formatUint(uint64(e.FrequencyHours))
		attrs["minAmount"] = formatUint(e.MinAmount)
	}
	return &types.Event{Type: TypeStakingAutoCompound, Attributes: attrs}
}

// StakingEmergencyWithdraw reports a penalised full exit.
type StakingEmergencyWithdraw struct {
	Owner       crypto.Address
	PoolID      uint64
	Burned      uint64
	Penalty     uint64
	Returned    uint64
	RewardsPaid uint64
	Forfeited   uint64
	Reason      string
}

func (StakingEmergencyWithdraw) EventType() string { return TypeStakingEmergencyExit }

func (e StakingEmergencyWithdraw) Event() *types.Event {
	return &types.Event{Type: TypeStakingEmergencyExit, Attributes: map[string]string{
		"owner":     e.Owner.String(),
		"poolId":    formatUint(e.PoolID),
		"burned":    formatUint(e.Burned),
		"penalty":   formatUint(e.Penalty),
		"returned":  formatUint(e.Returned),
		"rewards":   formatUint(e.RewardsPaid),
		"forfeited": formatUint(e.Forfeited),
		"reason":    e.Reason,
	}}
}

// StakingOraclePrice is emitted whenever an oracle record is written.
type StakingOraclePrice struct {
	Oracle    crypto.Address
	PriceFeed crypto.Address
	Price     uint64
	Timestamp int64
}

func (StakingOraclePrice) EventType() string { return TypeStakingOraclePrice }

func (e StakingOraclePrice) Event() *types.Event {
	return &types.Event{Type: TypeStakingOraclePrice, Attributes: map[string]string{
		"oracle":    e.Oracle.String(),
		"priceFeed": e.PriceFeed.String(),
		"price":     formatUint(e.Price),
		"timestamp": formatInt(e.Timestamp),
	}}
}
