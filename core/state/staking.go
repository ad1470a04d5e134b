package state

import (
	"fmt"

	"lstaking/crypto"
	"lstaking/native/staking"
)

// GetGlobalConfig returns nil when no record exists at addr.
func (tx *Tx) GetGlobalConfig(addr crypto.Address) (*staking.GlobalConfig, error) {
	data, err := tx.get(addrKey(globalConfigPrefix, addr))
	if err != nil || data == nil {
		return nil, err
	}
	cfg, err := staking.DecodeGlobalConfig(data)
	if err != nil {
		return nil, fmt.Errorf("state: global config %s: %w", addr, err)
	}
	return cfg, nil
}

func (tx *Tx) PutGlobalConfig(addr crypto.Address, cfg *staking.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("state: nil global config")
	}
	return tx.put(addrKey(globalConfigPrefix, addr), staking.EncodeGlobalConfig(cfg))
}

func (tx *Tx) GetPool(addr crypto.Address) (*staking.Pool, error) {
	data, err := tx.get(addrKey(poolPrefix, addr))
	if err != nil || data == nil {
		return nil, err
	}
	pool, err := staking.DecodePool(data)
	if err != nil {
		return nil, fmt.Errorf("state: pool %s: %w", addr, err)
	}
	return pool, nil
}

func (tx *Tx) PutPool(addr crypto.Address, pool *staking.Pool) error {
	if pool == nil {
		return fmt.Errorf("state: nil pool")
	}
	return tx.put(addrKey(poolPrefix, addr), staking.EncodePool(pool))
}

func (tx *Tx) GetUserLedger(addr crypto.Address) (*staking.UserLedger, error) {
	data, err := tx.get(addrKey(ledgerPrefix, addr))
	if err != nil || data == nil {
		return nil, err
	}
	ledger, err := staking.DecodeUserLedger(data)
	if err != nil {
		return nil, fmt.Errorf("state: user ledger %s: %w", addr, err)
	}
	return ledger, nil
}

func (tx *Tx) PutUserLedger(addr crypto.Address, ledger *staking.UserLedger) error {
	if ledger == nil {
		return fmt.Errorf("state: nil user ledger")
	}
	return tx.put(addrKey(ledgerPrefix, addr), staking.EncodeUserLedger(ledger))
}

func (tx *Tx) GetOracle(addr crypto.Address) (*staking.OracleRecord, error) {
	data, err := tx.get(addrKey(oraclePrefix, addr))
	if err != nil || data == nil {
		return nil, err
	}
	record, err := staking.DecodeOracleRecord(data)
	if err != nil {
		return nil, fmt.Errorf("state: oracle %s: %w", addr, err)
	}
	return record, nil
}

func (tx *Tx) PutOracle(addr crypto.Address, record *staking.OracleRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil oracle record")
	}
	return tx.put(addrKey(oraclePrefix, addr), staking.EncodeOracleRecord(record))
}

// PoolEntry pairs a committed pool record with its address.
type PoolEntry struct {
	Address crypto.Address `json:"address"`
	Pool    *staking.Pool  `json:"pool"`
}

// Pools lists every committed pool in address order.
func (m *Manager) Pools() ([]PoolEntry, error) {
	if m == nil || m.db == nil {
		return nil, errNilDB
	}
	var (
		out       []PoolEntry
		decodeErr error
	)
	err := m.db.Iterate(poolPrefix, func(key, value []byte) bool {
		addr, err := crypto.AddressFromBytes(key[len(poolPrefix):])
		if err != nil {
			decodeErr = err
			return false
		}
		pool, err := staking.DecodePool(value)
		if err != nil {
			decodeErr = fmt.Errorf("state: pool %s: %w", addr, err)
			return false
		}
		out = append(out, PoolEntry{Address: addr, Pool: pool})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decodeErr
}
