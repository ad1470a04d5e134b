package config

import (
	"fmt"

	"lstaking/core"
	"lstaking/crypto"
	nativecommon "lstaking/native/common"
	"lstaking/native/staking"
)

// IsPaused makes Pauses usable as the module pause view.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "staking":
		return p.Staking
	}
	return false
}

// StakingQuota converts the configured staking quota.
func (g Global) StakingQuota() nativecommon.Quota {
	q := g.Quotas.Staking
	return nativecommon.Quota{
		MaxOpsPerWindow:    q.MaxOpsPerWindow,
		MaxAmountPerWindow: q.MaxAmountPerWindow,
		WindowSeconds:      q.WindowSeconds,
	}
}

// SlashedPools parses the configured slashing evidence into a detector.
func (g Global) SlashedPools() (staking.SlashedPools, error) {
	pools := make([]crypto.Address, 0, len(g.Slashing.Pools))
	for i, raw := range g.Slashing.Pools {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("slashing.pools[%d]: %w", i, err)
		}
		pools = append(pools, addr)
	}
	return staking.NewSlashedPools(pools...), nil
}

// Program parses ProgramAddress.
func (c *Config) Program() (crypto.Address, error) {
	return crypto.ParseAddress(c.ProgramAddress)
}

// GenesisBalances parses the configured genesis holdings.
func (c *Config) GenesisBalances() ([]core.GenesisBalance, error) {
	out := make([]core.GenesisBalance, 0, len(c.Genesis))
	for i, g := range c.Genesis {
		asset, err := crypto.ParseAddress(g.Asset)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d].Asset: %w", i, err)
		}
		owner, err := crypto.ParseAddress(g.Owner)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d].Owner: %w", i, err)
		}
		out = append(out, core.GenesisBalance{Asset: asset, Owner: owner, Amount: g.Amount})
	}
	return out, nil
}
