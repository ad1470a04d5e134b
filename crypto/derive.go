package crypto

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds bounds the number of seeds accepted by DeriveAddress.
	MaxSeeds = 16
	// MaxSeedLength bounds the size of a single seed.
	MaxSeedLength = 32

	derivedMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds       = errors.New("crypto: too many derivation seeds")
	ErrSeedTooLong        = errors.New("crypto: derivation seed too long")
	ErrNoViableNonce      = errors.New("crypto: no viable derivation nonce")
	ErrDerivationMismatch = errors.New("crypto: address does not match derivation")
)

// DeriveAddress computes the deterministic record address owned by program
// for the given seeds. Nonces are tried from 255 downwards; a candidate is
// rejected while its digest is a valid secp256k1 x-coordinate so that no
// private key can ever sign for a derived address. The address and the
// accepted nonce are returned.
func DeriveAddress(program Address, seeds ...[]byte) (Address, uint8, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, 0, ErrTooManySeeds
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, 0, ErrSeedTooLong
		}
	}
	for nonce := 255; nonce >= 0; nonce-- {
		digest := derivationDigest(program, uint8(nonce), seeds)
		if onCurve(digest) {
			continue
		}
		var addr Address
		copy(addr[:], digest[len(digest)-AddressLength:])
		return addr, uint8(nonce), nil
	}
	return Address{}, 0, ErrNoViableNonce
}

// MustDeriveAddress panics on derivation failure; seeds are expected to be
// well-formed constants.
func MustDeriveAddress(program Address, seeds ...[]byte) Address {
	addr, _, err := DeriveAddress(program, seeds...)
	if err != nil {
		panic(err)
	}
	return addr
}

// VerifyDerived checks that got is the address derived from seeds.
func VerifyDerived(got, program Address, seeds ...[]byte) error {
	want, _, err := DeriveAddress(program, seeds...)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: got %s want %s", ErrDerivationMismatch, got, want)
	}
	return nil
}

func derivationDigest(program Address, nonce uint8, seeds [][]byte) []byte {
	parts := make([][]byte, 0, len(seeds)+3)
	parts = append(parts, seeds...)
	parts = append(parts, []byte{nonce}, program[:], []byte(derivedMarker))
	return ethcrypto.Keccak256(parts...)
}

func onCurve(digest []byte) bool {
	compressed := make([]byte, 33)
	compressed[0] = 0x02
	copy(compressed[1:], digest)
	_, err := ethcrypto.DecompressPubkey(compressed)
	return err == nil
}
