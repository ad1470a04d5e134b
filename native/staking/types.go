package staking

import "lstaking/crypto"

const (
	// MaxPositions is the number of position slots in a user ledger.
	MaxPositions = 10
	// HistoryCapacity is the number of retained claim and penalty entries.
	HistoryCapacity = 10
)

// GlobalConfig holds protocol-wide settings shared by every pool.
type GlobalConfig struct {
	Authority      crypto.Address `json:"authority"`
	Treasury       crypto.Address `json:"treasury"`
	ProtocolFeeBps uint16         `json:"protocolFeeBps"`
	MaxPools       uint32         `json:"maxPools"`
	MinStake       Amount         `json:"minStake"`
	EmergencyPause bool           `json:"emergencyPause"`
	PoolsCreated   uint64         `json:"poolsCreated"`
	ActivePools    uint64         `json:"activePools"`
	Bump           uint8          `json:"bump"`
	TreasuryBump   uint8          `json:"treasuryBump"`
}

// Pool is the accrual state and configuration of one staking pool.
type Pool struct {
	PoolID                 uint64         `json:"poolId"`
	GlobalConfig           crypto.Address `json:"globalConfig"`
	Creator                crypto.Address `json:"creator"`
	CreatedAt              int64          `json:"createdAt"`
	LastUpdate             int64          `json:"lastUpdate"`
	Status                 PoolStatus     `json:"status"`
	StakeAsset             crypto.Address `json:"stakeAsset"`
	RewardAsset            crypto.Address `json:"rewardAsset"`
	StakeVault             crypto.Address `json:"stakeVault"`
	RewardVault            crypto.Address `json:"rewardVault"`
	TotalStaked            Amount         `json:"totalStaked"`
	TotalRewardDistributed Amount         `json:"totalRewardDistributed"`
	RewardRatePerSecond    Amount         `json:"rewardRatePerSecond"`
	AccRewardPerShare      Wide           `json:"accRewardPerShare"`
	LockEnabled            bool           `json:"lockEnabled"`
	LockDuration           int64          `json:"lockDuration"`
	RewardMultiplier       uint16         `json:"rewardMultiplier"`
	EarlyWithdrawPenalty   uint64         `json:"earlyWithdrawPenaltyBps"`
	SlashingEnabled        bool           `json:"slashingEnabled"`
	SlashType              SlashType      `json:"slashType"`
	SlashPercentageBps     uint16         `json:"slashPercentageBps"`
	MinEvidenceRequired    uint8          `json:"minEvidenceRequired"`
	CooldownPeriod         int64          `json:"cooldownPeriod"`
	PriceFeed              crypto.Address `json:"priceFeed"`
	MaxStakeLimit          Amount         `json:"maxStakeLimit"`
	MinStake               Amount         `json:"minStake"`
	LSTMint                crypto.Address `json:"lstMint"`
	LSTSupply              Amount         `json:"lstSupply"`
	EmergencyPaused        bool           `json:"emergencyPaused"`
	Bump                   uint8          `json:"bump"`
}

// StakePosition is one slot of a user ledger.
type StakePosition struct {
	PoolID                 uint64         `json:"poolId"`
	Pool                   crypto.Address `json:"pool"`
	LSTAccount             crypto.Address `json:"lstAccount"`
	StakedAmount           Amount         `json:"stakedAmount"`
	LSTTokens              Amount         `json:"lstTokens"`
	LastRewardUpdate       int64          `json:"lastRewardUpdate"`
	PendingRewards         Amount         `json:"pendingRewards"`
	StakedAt               int64          `json:"stakedAt"`
	LockEnabled            bool           `json:"lockEnabled"`
	LockExpiry             int64          `json:"lockExpiry"`
	AutoCompound           bool           `json:"autoCompound"`
	CompoundFrequencyHours uint32         `json:"compoundFrequencyHours"`
	MinCompoundAmount      Amount         `json:"minCompoundAmount"`
	LastCompound           int64          `json:"lastCompound"`
	CompoundCount          uint32         `json:"compoundCount"`
	Active                 bool           `json:"active"`
}

// ClaimEvent records a reward payout to the ledger owner.
type ClaimEvent struct {
	Amount    Amount `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// PenaltyEvent is reserved for the slashing subsystem. No handler in this
// package populates it.
type PenaltyEvent struct {
	Type           PenaltyType    `json:"type"`
	ID             uint64         `json:"id"`
	Amount         Amount         `json:"amount"`
	Timestamp      int64          `json:"timestamp"`
	GracePeriodEnd int64          `json:"gracePeriodEnd"`
	Resolved       bool           `json:"resolved"`
	ResolvedAt     int64          `json:"resolvedAt"`
	PoolID         uint64         `json:"poolId"`
	User           crypto.Address `json:"user"`
	Validator      crypto.Address `json:"validator"`
	OriginalStake  Amount         `json:"originalStake"`
	RecoveryPeriod int64          `json:"recoveryPeriod"`
}

// UserLedger aggregates every position owned by a single user.
type UserLedger struct {
	Owner             crypto.Address                `json:"owner"`
	GlobalConfig      crypto.Address                `json:"globalConfig"`
	SourceAccount     crypto.Address                `json:"sourceAccount"`
	TotalLSTBalance   Amount                        `json:"totalLstBalance"`
	TotalStakedAmount Amount                        `json:"totalStakedAmount"`
	TotalEarned       Amount                        `json:"totalEarned"`
	TotalClaimed      Amount                        `json:"totalClaimed"`
	PendingRewards    Amount                        `json:"pendingRewards"`
	TotalPenalties    Amount                        `json:"totalPenalties"`
	ActivePenalties   uint8                         `json:"activePenalties"`
	ActivePositions   uint8                         `json:"activePositions"`
	Paused            bool                          `json:"paused"`
	CreatedAt         int64                         `json:"createdAt"`
	LastUpdate        int64                         `json:"lastUpdate"`
	LastClaim         int64                         `json:"lastClaim"`
	Positions         [MaxPositions]StakePosition   `json:"positions"`
	ClaimHistory      [HistoryCapacity]ClaimEvent   `json:"claimHistory"`
	PenaltyHistory    [HistoryCapacity]PenaltyEvent `json:"penaltyHistory"`
	Bump              uint8                         `json:"bump"`
}

// OracleRecord is a timestamped price published by an oracle authority.
type OracleRecord struct {
	PriceFeed       crypto.Address `json:"priceFeed"`
	Authority       crypto.Address `json:"authority"`
	UpdateFrequency int64          `json:"updateFrequency"`
	LastUpdate      int64          `json:"lastUpdate"`
	Price           uint64         `json:"price"`
	Bump            uint8          `json:"bump"`
}

// UnstakeResult reports the outcome of an unstake.
type UnstakeResult struct {
	Returned Amount `json:"returned"`
	Settled  Amount `json:"settled"`
	Closed   bool   `json:"closed"`
	// UnappliedPenalty is the early-withdraw penalty computed for a locked
	// position. It is reported but not deducted from Returned.
	UnappliedPenalty Amount `json:"unappliedPenalty"`
	// Rewards is the payout made when the position closes.
	Rewards   ClaimResult `json:"rewards"`
	Forfeited Amount      `json:"forfeited"`
}

// ClaimResult reports a reward payout split.
type ClaimResult struct {
	Total       Amount `json:"total"`
	Fee         Amount `json:"fee"`
	UserRewards Amount `json:"userRewards"`
}

// CompoundResult reports an auto-compound.
type CompoundResult struct {
	Total      Amount `json:"total"`
	Fee        Amount `json:"fee"`
	Compounded Amount `json:"compounded"`
	Count      uint32 `json:"count"`
}

// EmergencyResult reports an emergency exit.
type EmergencyResult struct {
	Burned    Amount      `json:"burned"`
	Penalty   Amount      `json:"penalty"`
	Returned  Amount      `json:"returned"`
	Rewards   ClaimResult `json:"rewards"`
	Forfeited Amount      `json:"forfeited"`
}
