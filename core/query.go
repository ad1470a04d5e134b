package core

import (
	"github.com/ethereum/go-ethereum/common"

	"lstaking/core/state"
	"lstaking/crypto"
	"lstaking/native/bank"
	"lstaking/native/staking"
)

// LedgerView is a user ledger together with its address.
type LedgerView struct {
	Address crypto.Address      `json:"address"`
	Ledger  *staking.UserLedger `json:"ledger"`
}

// Balance is one holding of an asset.
type Balance struct {
	Asset  crypto.Address `json:"asset"`
	Owner  crypto.Address `json:"owner"`
	Amount uint64         `json:"amount"`
}

func (p *Processor) view(fn func(e *staking.Engine, tx *state.Tx) error) error {
	return p.state.View(func(tx *state.Tx) error {
		return fn(p.engine(tx), tx)
	})
}

// Pool returns the committed pool at addr.
func (p *Processor) Pool(addr crypto.Address) (*staking.Pool, error) {
	var out *staking.Pool
	err := p.view(func(e *staking.Engine, _ *state.Tx) error {
		pool, err := e.Pool(addr)
		out = pool
		return err
	})
	return out, err
}

// Pools lists every committed pool.
func (p *Processor) Pools() ([]state.PoolEntry, error) {
	return p.state.Pools()
}

// UserLedger returns the committed ledger at addr.
func (p *Processor) UserLedger(addr crypto.Address) (*staking.UserLedger, error) {
	var out *staking.UserLedger
	err := p.view(func(e *staking.Engine, _ *state.Tx) error {
		ledger, err := e.UserLedger(addr)
		out = ledger
		return err
	})
	return out, err
}

// PendingRewards previews the claimable rewards of a position.
func (p *Processor) PendingRewards(ledger, pool crypto.Address, poolID uint64) (staking.Amount, error) {
	var out staking.Amount
	err := p.view(func(e *staking.Engine, _ *state.Tx) error {
		amount, err := e.PendingRewards(ledger, pool, poolID)
		out = amount
		return err
	})
	return out, err
}

// EmergencyCondition reports the active emergency condition of a pool.
func (p *Processor) EmergencyCondition(acc staking.Accounts, poolID uint64) (string, error) {
	var out string
	err := p.view(func(e *staking.Engine, _ *state.Tx) error {
		reason, err := e.EmergencyCondition(acc, poolID)
		out = reason
		return err
	})
	return out, err
}

// OraclePrice reads an oracle record.
func (p *Processor) OraclePrice(addr crypto.Address) (staking.OracleQuote, error) {
	var out staking.OracleQuote
	err := p.view(func(e *staking.Engine, _ *state.Tx) error {
		quote, err := e.OraclePrice(addr)
		out = quote
		return err
	})
	return out, err
}

// Balance returns owner's committed holdings of asset.
func (p *Processor) Balance(asset, owner crypto.Address) (Balance, error) {
	out := Balance{Asset: asset, Owner: owner}
	err := p.state.View(func(tx *state.Tx) error {
		amount, err := bank.NewLedger(tx).Balance(asset, owner)
		out.Amount = amount
		return err
	})
	return out, err
}

// Nonce returns the next nonce expected from addr.
func (p *Processor) Nonce(addr crypto.Address) (uint64, error) {
	var out uint64
	err := p.state.View(func(tx *state.Tx) error {
		nonce, err := tx.Nonce(addr)
		out = nonce
		return err
	})
	return out, err
}

// Events returns journaled events starting at sequence from.
func (p *Processor) Events(from uint64, limit int) ([]state.JournaledEvent, error) {
	return p.state.Events(from, limit)
}

// StateRoot returns the Merkle root of the committed state.
func (p *Processor) StateRoot() (common.Hash, error) {
	return p.state.StateRoot()
}
