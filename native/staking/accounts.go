package staking

import (
	"encoding/binary"
	"errors"
	"fmt"

	"lstaking/crypto"
)

// Derivation seeds for every program-owned record.
var (
	seedGlobalConfig = []byte("global_config_account")
	seedTreasury     = []byte("treasury")
	seedPool         = []byte("staking_pool")
	seedStakeVault   = []byte("stake_token_vault")
	seedRewardVault  = []byte("reward_token_vault")
	seedLSTMint      = []byte("liquid_stake_mint")
	seedUserLedger   = []byte("user_stake_account")
	seedOracle       = []byte("oracle_config_account")
)

// Accounts names the records an instruction reads and writes. Which members
// are required depends on the instruction; see the layouts in
// instruction.go.
type Accounts struct {
	// Authority seeds the global config address. After an authority
	// rotation it still names the original key.
	Authority    crypto.Address `json:"authority"`
	Creator      crypto.Address `json:"creator"`
	GlobalConfig crypto.Address `json:"globalConfig"`
	Treasury     crypto.Address `json:"treasury"`
	Pool         crypto.Address `json:"pool"`
	StakeMint    crypto.Address `json:"stakeMint"`
	RewardMint   crypto.Address `json:"rewardMint"`
	StakeVault   crypto.Address `json:"stakeVault"`
	RewardVault  crypto.Address `json:"rewardVault"`
	LSTMint      crypto.Address `json:"lstMint"`
	PriceFeed    crypto.Address `json:"priceFeed"`
	UserLedger   crypto.Address `json:"userLedger"`
	Oracle       crypto.Address `json:"oracle"`
}

// Deriver computes record addresses for one program.
type Deriver struct {
	Program crypto.Address
}

func poolIDSeed(poolID uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], poolID)
	return buf[:]
}

func (d Deriver) GlobalConfig(authority crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveAddress(d.Program, seedGlobalConfig, authority[:])
}

func (d Deriver) Treasury(globalConfig crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveAddress(d.Program, seedTreasury, globalConfig[:])
}

func (d Deriver) Pool(creator crypto.Address, poolID uint64) (crypto.Address, uint8, error) {
	return crypto.DeriveAddress(d.Program, seedPool, creator[:], poolIDSeed(poolID))
}

func (d Deriver) StakeVault(stakeMint, globalConfig crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveAddress(d.Program, seedStakeVault, stakeMint[:], globalConfig[:])
}

func (d Deriver) RewardVault(rewardMint, globalConfig crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveAddress(d.Program, seedRewardVault, rewardMint[:], globalConfig[:])
}

func (d Deriver) LSTMint(pool crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveAddress(d.Program, seedLSTMint, pool[:])
}

func (d Deriver) UserLedger(owner, globalConfig crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveAddress(d.Program, seedUserLedger, owner[:], globalConfig[:])
}

func (d Deriver) Oracle(authority crypto.Address) (crypto.Address, uint8, error) {
	return crypto.DeriveAddress(d.Program, seedOracle, authority[:])
}

// expect checks a supplied reference against its derived address and
// returns the derivation nonce.
func expect(role string, got crypto.Address, derive func() (crypto.Address, uint8, error)) (uint8, error) {
	want, bump, err := derive()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidAccount, role, err)
	}
	if got != want {
		return 0, fmt.Errorf("%w: %s %s does not match derived %s", ErrInvalidAccount, role, got, want)
	}
	return bump, nil
}

// same checks a supplied reference against the address stored in a record.
func same(role string, got, want crypto.Address) error {
	if got != want {
		return fmt.Errorf("%w: %s %s, record holds %s", ErrInvalidAccount, role, got, want)
	}
	return nil
}

// AccountsFor fills the derived members of an Accounts for a user acting on
// a pool. Only Authority, Creator, StakeMint and RewardMint are read from
// base.
func (d Deriver) AccountsFor(base Accounts, owner crypto.Address, poolID uint64) (Accounts, error) {
	out := base
	var errs []error
	collect := func(addr crypto.Address, _ uint8, err error) crypto.Address {
		errs = append(errs, err)
		return addr
	}
	out.GlobalConfig = collect(d.GlobalConfig(base.Authority))
	out.Treasury = collect(d.Treasury(out.GlobalConfig))
	if !base.Creator.IsZero() {
		out.Pool = collect(d.Pool(base.Creator, poolID))
		out.LSTMint = collect(d.LSTMint(out.Pool))
	}
	if !base.StakeMint.IsZero() {
		out.StakeVault = collect(d.StakeVault(base.StakeMint, out.GlobalConfig))
	}
	if !base.RewardMint.IsZero() {
		out.RewardVault = collect(d.RewardVault(base.RewardMint, out.GlobalConfig))
	}
	if !owner.IsZero() {
		out.UserLedger = collect(d.UserLedger(owner, out.GlobalConfig))
	}
	return out, errors.Join(errs...)
}
