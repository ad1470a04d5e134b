package types

import (
	"encoding/json"
	"testing"

	"lstaking/crypto"
)

func signedTx(t *testing.T) (*Transaction, *crypto.PrivateKey) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tx := &Transaction{
		ChainID:  3,
		Nonce:    9,
		Data:     []byte{10, 1, 0, 0, 0, 0, 0, 0, 0, 100, 0, 0, 0, 0, 0, 0, 0},
		Accounts: []crypto.Address{key.PubKey().Address()},
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tx, key
}

func TestTransactionSignAndRecover(t *testing.T) {
	tx, key := signedTx(t)
	from, err := tx.From()
	if err != nil {
		t.Fatalf("from: %v", err)
	}
	if from != key.PubKey().Address() {
		t.Fatalf("recovered %s, want %s", from, key.PubKey().Address())
	}
}

func TestTransactionJSONKeepsSignature(t *testing.T) {
	tx, key := signedTx(t)
	raw, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Transaction
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	from, err := decoded.From()
	if err != nil {
		t.Fatalf("from: %v", err)
	}
	if from != key.PubKey().Address() {
		t.Fatalf("signature lost across JSON")
	}
}

func TestTransactionTamperingChangesSigner(t *testing.T) {
	tx, key := signedTx(t)
	tampered := &Transaction{ChainID: tx.ChainID, Nonce: tx.Nonce + 1, Data: tx.Data, Accounts: tx.Accounts, R: tx.R, S: tx.S, V: tx.V}
	from, err := tampered.From()
	if err == nil && from == key.PubKey().Address() {
		t.Fatalf("tampered transaction still recovers the original signer")
	}
}

func TestUnsignedTransaction(t *testing.T) {
	tx := &Transaction{ChainID: 1}
	if _, err := tx.From(); !IsMissingSignature(err) {
		t.Fatalf("expected missing signature, got %v", err)
	}
}
