package types

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"lstaking/crypto"
)

var errMissingSignature = errors.New("transaction: missing signature")

// Transaction carries one staking instruction. Data holds the discriminator
// byte followed by the fixed-offset payload, Accounts the ordered record
// references the instruction reads and writes.
type Transaction struct {
	ChainID  uint64           `json:"chainId"`
	Nonce    uint64           `json:"nonce"`
	Data     []byte           `json:"data"`
	Accounts []crypto.Address `json:"accounts"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from *crypto.Address
}

// Hash returns the signing digest over every field except the signature.
func (tx *Transaction) Hash() ([]byte, error) {
	payload := struct {
		ChainID  uint64
		Nonce    uint64
		Data     []byte
		Accounts []crypto.Address
	}{tx.ChainID, tx.Nonce, tx.Data, tx.Accounts}

	b, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(b), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := ethcrypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer. An absent or malformed signature is an error.
func (tx *Transaction) From() (crypto.Address, error) {
	if tx.from != nil {
		return *tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return crypto.Address{}, errMissingSignature
	}
	if tx.R.BitLen() > 256 || tx.S.BitLen() > 256 || !tx.V.IsUint64() || tx.V.Uint64() < 27 || tx.V.Uint64() > 28 {
		return crypto.Address{}, errMissingSignature
	}
	hash, err := tx.Hash()
	if err != nil {
		return crypto.Address{}, err
	}
	sig := make([]byte, 65)
	tx.R.FillBytes(sig[:32])
	tx.S.FillBytes(sig[32:64])
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return crypto.Address{}, err
	}
	addr := crypto.Address(ethcrypto.PubkeyToAddress(*pubKey))
	tx.from = &addr
	return addr, nil
}

// IsMissingSignature reports whether err came from an unsigned transaction.
func IsMissingSignature(err error) bool {
	return errors.Is(err, errMissingSignature)
}
