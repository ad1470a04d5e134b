package staking

import (
	"encoding/json"
	"math"

	"github.com/holiman/uint256"
)

// Amount is a token quantity. Every arithmetic helper on Amount saturates at
// the type bounds instead of wrapping.
type Amount uint64

// MaxAmount is the saturation ceiling for Amount.
const MaxAmount = Amount(math.MaxUint64)

// Add returns a+b clamped at MaxAmount.
func (a Amount) Add(b Amount) Amount {
	sum := a + b
	if sum < a {
		return MaxAmount
	}
	return sum
}

// Sub returns a-b clamped at zero.
func (a Amount) Sub(b Amount) Amount {
	if b >= a {
		return 0
	}
	return a - b
}

// Min returns the smaller of a and b.
func (a Amount) Min(b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

func (a Amount) IsZero() bool { return a == 0 }

func (a Amount) Uint64() uint64 { return uint64(a) }

// Wide lifts a into the 128-bit intermediate domain.
func (a Amount) Wide() Wide { return WideFromUint64(uint64(a)) }

// Wide is an unsigned 128-bit intermediate. Results that would exceed 2^128-1
// clamp to that value and subtraction floors at zero.
type Wide struct {
	v uint256.Int
}

var maxU128 = func() uint256.Int {
	var one, out uint256.Int
	one.SetOne()
	out.Lsh(&one, 128)
	out.Sub(&out, &one)
	return out
}()

// MaxWide is the saturation ceiling for Wide.
var MaxWide = Wide{v: maxU128}

func WideFromUint64(x uint64) Wide {
	var w Wide
	w.v.SetUint64(x)
	return w
}

// WideFromLimbs rebuilds a Wide from its low and high 64-bit halves.
func WideFromLimbs(lo, hi uint64) Wide {
	var w Wide
	w.v[0] = lo
	w.v[1] = hi
	return w
}

// Limbs returns the low and high 64-bit halves.
func (w Wide) Limbs() (lo, hi uint64) { return w.v[0], w.v[1] }

func clampWide(v *uint256.Int, overflow bool) Wide {
	if overflow || v.Gt(&maxU128) {
		return MaxWide
	}
	return Wide{v: *v}
}

func (w Wide) Add(o Wide) Wide {
	var out uint256.Int
	_, overflow := out.AddOverflow(&w.v, &o.v)
	return clampWide(&out, overflow)
}

func (w Wide) Sub(o Wide) Wide {
	if !w.v.Gt(&o.v) {
		return Wide{}
	}
	var out uint256.Int
	out.Sub(&w.v, &o.v)
	return Wide{v: out}
}

func (w Wide) Mul(o Wide) Wide {
	var out uint256.Int
	_, overflow := out.MulOverflow(&w.v, &o.v)
	return clampWide(&out, overflow)
}

func (w Wide) MulU64(x uint64) Wide { return w.Mul(WideFromUint64(x)) }

// DivU64 truncates toward zero. Division by zero yields zero.
func (w Wide) DivU64(x uint64) Wide {
	if x == 0 {
		return Wide{}
	}
	var out uint256.Int
	out.Div(&w.v, uint256.NewInt(x))
	return Wide{v: out}
}

// Narrow converts back to Amount, clamping at MaxAmount.
func (w Wide) Narrow() Amount {
	if !w.v.IsUint64() {
		return MaxAmount
	}
	return Amount(w.v.Uint64())
}

func (w Wide) IsZero() bool { return w.v.IsZero() }

func (w Wide) Cmp(o Wide) int { return w.v.Cmp(&o.v) }

func (w Wide) String() string { return w.v.Dec() }

func (w Wide) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.v.Dec())
}

func (w *Wide) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return err
	}
	*w = clampWide(v, false)
	return nil
}
