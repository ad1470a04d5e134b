package crypto

import (
	"errors"
	"testing"
)

func testProgram() Address {
	var program Address
	program[19] = 0x42
	return program
}

func TestDeriveAddressDeterministic(t *testing.T) {
	program := testProgram()
	first, nonce1, err := DeriveAddress(program, []byte("staking_pool"), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, nonce2, err := DeriveAddress(program, []byte("staking_pool"), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first != second || nonce1 != nonce2 {
		t.Fatalf("derivation not deterministic: %s/%d vs %s/%d", first, nonce1, second, nonce2)
	}
	if first.IsZero() {
		t.Fatalf("derived zero address")
	}

	other, _, err := DeriveAddress(program, []byte("staking_pool"), []byte{1, 2, 4})
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if other == first {
		t.Fatalf("distinct seeds produced the same address")
	}
}

func TestDeriveAddressAcceptedNonceIsOffCurve(t *testing.T) {
	program := testProgram()
	seeds := [][]byte{[]byte("user_stake_account"), []byte("owner")}
	addr, nonce, err := DeriveAddress(program, seeds...)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	digest := derivationDigest(program, nonce, seeds)
	if onCurve(digest) {
		t.Fatalf("accepted nonce %d yields an on-curve digest", nonce)
	}
	for n := 255; n > int(nonce); n-- {
		if !onCurve(derivationDigest(program, uint8(n), seeds)) {
			t.Fatalf("nonce %d should have been accepted before %d", n, nonce)
		}
	}
	if err := VerifyDerived(addr, program, seeds...); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyDerivedRejectsMismatch(t *testing.T) {
	program := testProgram()
	var bogus Address
	bogus[0] = 0xFF
	err := VerifyDerived(bogus, program, []byte("global_config_account"))
	if !errors.Is(err, ErrDerivationMismatch) {
		t.Fatalf("expected ErrDerivationMismatch, got %v", err)
	}
}

func TestDeriveAddressSeedLimits(t *testing.T) {
	program := testProgram()
	if _, _, err := DeriveAddress(program, make([]byte, MaxSeedLength+1)); !errors.Is(err, ErrSeedTooLong) {
		t.Fatalf("expected ErrSeedTooLong, got %v", err)
	}
	seeds := make([][]byte, MaxSeeds+1)
	if _, _, err := DeriveAddress(program, seeds...); !errors.Is(err, ErrTooManySeeds) {
		t.Fatalf("expected ErrTooManySeeds, got %v", err)
	}
}

func TestAddressTextRoundTrip(t *testing.T) {
	var addr Address
	for i := range addr {
		addr[i] = byte(i + 1)
	}
	text, err := addr.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Address
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != addr {
		t.Fatalf("round trip mismatch: %s vs %s", decoded, addr)
	}
	fromHex, err := ParseAddress(addr.Hex())
	if err != nil || fromHex != addr {
		t.Fatalf("hex parse mismatch: %v %s", err, fromHex)
	}
}
