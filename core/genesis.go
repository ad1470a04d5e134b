package core

import (
	"fmt"

	"lstaking/core/state"
	"lstaking/crypto"
	"lstaking/native/bank"
)

// GenesisBalance seeds one holding when the store is first opened.
type GenesisBalance struct {
	Asset  crypto.Address
	Owner  crypto.Address
	Amount uint64
}

// ApplyGenesis mints the configured balances. It is a no-op once any
// supply of a listed asset exists, so restarting the daemon does not mint
// twice.
func ApplyGenesis(manager *state.Manager, balances []GenesisBalance) (bool, error) {
	if len(balances) == 0 {
		return false, nil
	}
	tx := manager.Begin()
	defer tx.Discard()
	for _, b := range balances {
		supply, err := tx.Supply(b.Asset)
		if err != nil {
			return false, err
		}
		if supply > 0 {
			return false, nil
		}
	}
	ledger := bank.NewLedger(tx)
	for _, b := range balances {
		if err := ledger.Mint(b.Asset, b.Owner, b.Amount); err != nil {
			return false, fmt.Errorf("genesis: mint %d of %s to %s: %w", b.Amount, b.Asset, b.Owner, err)
		}
	}
	if _, err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
