package bank

import (
	"errors"
	"fmt"
	"math"

	"lstaking/crypto"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrBalanceOverflow     = errors.New("bank: balance overflow")
	ErrNilStore            = errors.New("bank: balance store not configured")
	ErrZeroAsset           = errors.New("bank: asset address required")
)

// BalanceStore persists per-asset balances and supplies.
type BalanceStore interface {
	Balance(asset, owner crypto.Address) (uint64, error)
	SetBalance(asset, owner crypto.Address, amount uint64) error
	Supply(asset crypto.Address) (uint64, error)
	SetSupply(asset crypto.Address, amount uint64) error
}

// Ledger moves, mints and burns asset balances. Assets are identified by
// address, so a vault is simply an owner address holding the asset.
type Ledger struct {
	store BalanceStore
}

// NewLedger wraps store.
func NewLedger(store BalanceStore) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) ready(asset crypto.Address) error {
	if l == nil || l.store == nil {
		return ErrNilStore
	}
	if asset.IsZero() {
		return ErrZeroAsset
	}
	return nil
}

// Balance returns owner's holdings of asset.
func (l *Ledger) Balance(asset, owner crypto.Address) (uint64, error) {
	if err := l.ready(asset); err != nil {
		return 0, err
	}
	return l.store.Balance(asset, owner)
}

// Transfer moves amount of asset from one owner to another. A zero amount
// is a no-op.
func (l *Ledger) Transfer(asset, from, to crypto.Address, amount uint64) error {
	if err := l.ready(asset); err != nil {
		return err
	}
	if amount == 0 || from == to {
		return nil
	}
	fromBal, err := l.store.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientBalance, from, fromBal, asset, amount)
	}
	toBal, err := l.store.Balance(asset, to)
	if err != nil {
		return err
	}
	if toBal > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	if err := l.store.SetBalance(asset, from, fromBal-amount); err != nil {
		return err
	}
	return l.store.SetBalance(asset, to, toBal+amount)
}

// Mint credits amount of asset to owner and grows the supply.
func (l *Ledger) Mint(asset, to crypto.Address, amount uint64) error {
	if err := l.ready(asset); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	supply, err := l.store.Supply(asset)
	if err != nil {
		return err
	}
	bal, err := l.store.Balance(asset, to)
	if err != nil {
		return err
	}
	if supply > math.MaxUint64-amount || bal > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	if err := l.store.SetSupply(asset, supply+amount); err != nil {
		return err
	}
	return l.store.SetBalance(asset, to, bal+amount)
}

// Burn debits amount of asset from owner and shrinks the supply.
func (l *Ledger) Burn(asset, from crypto.Address, amount uint64) error {
	if err := l.ready(asset); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	bal, err := l.store.Balance(asset, from)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: %s holds %d of %s, burn %d", ErrInsufficientBalance, from, bal, asset, amount)
	}
	supply, err := l.store.Supply(asset)
	if err != nil {
		return err
	}
	if err := l.store.SetBalance(asset, from, bal-amount); err != nil {
		return err
	}
	if supply < amount {
		supply = amount
	}
	return l.store.SetSupply(asset, supply-amount)
}
