// Package fixed implements Q16.16 fixed-point arithmetic.
//
// Every operation here is defined on integers only so that the same inputs produce the
// same output word on every platform. Products and quotients go through a 64-bit
// intermediate and are truncated back to 32 bits at exactly one point.
package fixed

import "math/bits"

// FP is a signed Q16.16 number: 16 integer bits, 16 fractional bits.
type FP int32

const (
	Shift = 16

	One  FP = 1 << Shift
	Half FP = One >> 1

	MaxValue FP = 1<<31 - 1
	MinValue FP = -1 << 31

	// SqrtIterations is the fixed Newton step count used by Sqrt. It is part of the
	// numeric contract and must not be replaced by a convergence test.
	SqrtIterations = 12
)

func FromInt(n int32) FP { return FP(n << Shift) }

// FromRatio returns num/den. A zero denominator follows the Div convention.
func FromRatio(num, den int32) FP {
	if den == 0 {
		if num >= 0 {
			return MaxValue
		}
		return MinValue
	}
	return FP((int64(num) << Shift) / int64(den))
}

// ToInt floors toward negative infinity (arithmetic shift).
func ToInt(a FP) int32 { return int32(a) >> Shift }

// Raw returns the underlying Q16.16 word.
func (a FP) Raw() int32 { return int32(a) }

// Float is for logs and tooling only; it must never feed back into the simulation.
func (a FP) Float() float64 { return float64(a) / float64(One) }

func Add(a, b FP) FP { return a + b }
func Sub(a, b FP) FP { return a - b }
func Neg(a FP) FP    { return -a }

func Abs(a FP) FP {
	if a < 0 {
		return -a
	}
	return a
}

func Min(a, b FP) FP {
	if a < b {
		return a
	}
	return b
}

func Max(a, b FP) FP {
	if a > b {
		return a
	}
	return b
}

func Clamp(a, lo, hi FP) FP {
	if a < lo {
		return lo
	}
	if a > hi {
		return hi
	}
	return a
}

// Mul computes (a*b)>>16 in 64 bits and truncates to 32 bits.
func Mul(a, b FP) FP {
	return FP((int64(a) * int64(b)) >> Shift)
}

// Div computes (a<<16)/b in 64 bits (truncating toward zero) and truncates to 32 bits.
// Division by zero returns MaxValue for a >= 0 and MinValue for a < 0.
func Div(a, b FP) FP {
	if b == 0 {
		if a >= 0 {
			return MaxValue
		}
		return MinValue
	}
	return FP((int64(a) << Shift) / int64(b))
}

// MulInt scales a by a plain integer with 32-bit wrapping.
func MulInt(a FP, n int32) FP { return a * FP(n) }

// Permille returns a*p/1000.
func Permille(a FP, p int32) FP {
	return FP((int64(a) * int64(p)) / 1000)
}

// Sqrt returns the Q16.16 square root of a. Non-positive inputs return 0.
//
// The result is isqrt(raw)<<8, where isqrt is the floor integer square root of the raw
// word. It is computed with SqrtIterations Newton steps from a power-of-two
// overestimate and a single final correction.
func Sqrt(a FP) FP {
	if a <= 0 {
		return 0
	}
	return FP(isqrt(uint32(a)) << 8)
}

func isqrt(n uint32) uint32 {
	if n < 2 {
		return n
	}
	// 1<<ceil(bitlen/2) is always >= sqrt(n), so Newton descends monotonically.
	x := uint64(1) << ((bits.Len32(n) + 1) / 2)
	nn := uint64(n)
	for i := 0; i < SqrtIterations; i++ {
		x = (x + nn/x) >> 1
	}
	// Integer Newton can settle one above the floor when n+1 is a perfect square.
	if x*x > nn {
		x--
	}
	return uint32(x)
}
