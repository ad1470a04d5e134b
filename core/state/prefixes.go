package state

import (
	"encoding/binary"

	"lstaking/crypto"
)

var (
	globalConfigPrefix = []byte("staking/global/")
	poolPrefix         = []byte("staking/pool/")
	ledgerPrefix       = []byte("staking/ledger/")
	oraclePrefix       = []byte("staking/oracle/")
	balancePrefix      = []byte("bank/balance/")
	supplyPrefix       = []byte("bank/supply/")
	noncePrefix        = []byte("account/nonce/")
	eventPrefix        = []byte("events/log/")
	eventSeqKey        = []byte("events/seq")

	stateRootPrefixes = [][]byte{[]byte("staking/"), []byte("bank/"), []byte("account/")}
)

func addrKey(prefix []byte, addr crypto.Address) []byte {
	buf := make([]byte, len(prefix)+crypto.AddressLength)
	copy(buf, prefix)
	copy(buf[len(prefix):], addr[:])
	return buf
}

func balanceKey(asset, owner crypto.Address) []byte {
	buf := make([]byte, len(balancePrefix)+2*crypto.AddressLength)
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], asset[:])
	copy(buf[len(balancePrefix)+crypto.AddressLength:], owner[:])
	return buf
}

func eventKey(seq uint64) []byte {
	buf := make([]byte, len(eventPrefix)+8)
	copy(buf, eventPrefix)
	binary.BigEndian.PutUint64(buf[len(eventPrefix):], seq)
	return buf
}
