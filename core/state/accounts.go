package state

import (
	"encoding/binary"
	"fmt"

	"lstaking/crypto"
)

func decodeU64(data []byte, what string) (uint64, error) {
	if data == nil {
		return 0, nil
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("state: %s record is %d bytes", what, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

func encodeU64(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

// Balance returns owner's holdings of asset. Absent balances read as zero.
func (tx *Tx) Balance(asset, owner crypto.Address) (uint64, error) {
	data, err := tx.get(balanceKey(asset, owner))
	if err != nil {
		return 0, err
	}
	return decodeU64(data, "balance")
}

// SetBalance stores owner's holdings of asset. A zero balance removes the key.
func (tx *Tx) SetBalance(asset, owner crypto.Address, amount uint64) error {
	if amount == 0 {
		return tx.del(balanceKey(asset, owner))
	}
	return tx.put(balanceKey(asset, owner), encodeU64(amount))
}

// Supply returns the outstanding amount of asset.
func (tx *Tx) Supply(asset crypto.Address) (uint64, error) {
	data, err := tx.get(addrKey(supplyPrefix, asset))
	if err != nil {
		return 0, err
	}
	return decodeU64(data, "supply")
}

func (tx *Tx) SetSupply(asset crypto.Address, amount uint64) error {
	return tx.put(addrKey(supplyPrefix, asset), encodeU64(amount))
}

// Nonce returns the next expected transaction nonce for addr.
func (tx *Tx) Nonce(addr crypto.Address) (uint64, error) {
	data, err := tx.get(addrKey(noncePrefix, addr))
	if err != nil {
		return 0, err
	}
	return decodeU64(data, "nonce")
}

func (tx *Tx) SetNonce(addr crypto.Address, nonce uint64) error {
	return tx.put(addrKey(noncePrefix, addr), encodeU64(nonce))
}
