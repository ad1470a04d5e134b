package staking

import "lstaking/crypto"

// SlashedPools is a SlashingDetector over an operator-maintained set of
// pool addresses with confirmed slashing evidence.
type SlashedPools map[crypto.Address]struct{}

// NewSlashedPools returns a detector that reports the given pools.
func NewSlashedPools(pools ...crypto.Address) SlashedPools {
	out := make(SlashedPools, len(pools))
	for _, addr := range pools {
		out[addr] = struct{}{}
	}
	return out
}

func (s SlashedPools) SlashingDetected(pool crypto.Address, _ *Pool) bool {
	_, ok := s[pool]
	return ok
}
