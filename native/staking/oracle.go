package staking

import (
	"fmt"

	"lstaking/core/events"
	"lstaking/crypto"
)

// OracleQuote is a price read back from an oracle record.
type OracleQuote struct {
	Price      uint64 `json:"price"`
	LastUpdate int64  `json:"lastUpdate"`
	Stale      bool   `json:"stale"`
}

func (e *Engine) oracleAddress(signer crypto.Address, acc Accounts) (uint8, error) {
	return expect("oracle", acc.Oracle, func() (crypto.Address, uint8, error) {
		return e.derive.Oracle(signer)
	})
}

// InitOracle creates the signer's oracle record for acc.PriceFeed.
func (e *Engine) InitOracle(signer crypto.Address, acc Accounts, updateFrequency int64, price uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	bump, err := e.oracleAddress(signer, acc)
	if err != nil {
		return err
	}
	if updateFrequency <= 0 {
		return fmt.Errorf("%w: update frequency must be positive", ErrInvalidArgument)
	}
	existing, err := e.state.GetOracle(acc.Oracle)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	now := e.now()
	record := &OracleRecord{
		PriceFeed:       acc.PriceFeed,
		Authority:       signer,
		UpdateFrequency: updateFrequency,
		LastUpdate:      now,
		Price:           price,
		Bump:            bump,
	}
	if err := e.state.PutOracle(acc.Oracle, record); err != nil {
		return err
	}
	e.emit(events.StakingOraclePrice{Oracle: acc.Oracle, PriceFeed: acc.PriceFeed, Price: price, Timestamp: now})
	return nil
}

// UpdateOraclePrice publishes a new price. Only the record's authority may
// write it.
func (e *Engine) UpdateOraclePrice(signer crypto.Address, acc Accounts, price uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	if _, err := e.oracleAddress(signer, acc); err != nil {
		return err
	}
	record, err := e.state.GetOracle(acc.Oracle)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: oracle %s", ErrNotInitialized, acc.Oracle)
	}
	if record.Authority != signer {
		return fmt.Errorf("%w: signer is not the oracle authority", ErrUnauthorized)
	}
	now := e.now()
	record.Price = price
	record.LastUpdate = now
	if err := e.state.PutOracle(acc.Oracle, record); err != nil {
		return err
	}
	e.emit(events.StakingOraclePrice{Oracle: acc.Oracle, PriceFeed: record.PriceFeed, Price: price, Timestamp: now})
	return nil
}

// OraclePrice reads a committed oracle record. A quote older than the
// record's update frequency is flagged stale but still returned.
func (e *Engine) OraclePrice(addr crypto.Address) (OracleQuote, error) {
	if err := e.ready(); err != nil {
		return OracleQuote{}, err
	}
	record, err := e.state.GetOracle(addr)
	if err != nil {
		return OracleQuote{}, err
	}
	if record == nil {
		return OracleQuote{}, fmt.Errorf("%w: oracle %s", ErrNotInitialized, addr)
	}
	stale := elapsedSince(e.now(), record.LastUpdate) > uint64(record.UpdateFrequency)
	return OracleQuote{Price: record.Price, LastUpdate: record.LastUpdate, Stale: stale}, nil
}
