// Package decimal implements the bridge's 256-bit fixed-point number:
// internal scale 18, with rescaling between chains of differing decimal
// precision and 512-bit truncating multiply/divide.
package decimal

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Scale is the number of decimal places the internal representation holds.
const Scale = 18

var (
	// ErrOverflow is returned by any operation whose result does not fit
	// in 256 bits.
	ErrOverflow = errors.New("decimal: overflow")
	// ErrDivisionByZero is returned by Div/MulDiv when the divisor is zero.
	ErrDivisionByZero = errors.New("decimal: division by zero")
	// ErrScaleTooLarge is returned when a scale difference exceeds
	// maxPow10.
	ErrScaleTooLarge = errors.New("decimal: scale too large")
)

// maxPow10 is the largest exponent pow10 accepts. Scales are bytes, so a
// scale difference can exceed it; such a difference is rejected with
// ErrScaleTooLarge.
const maxPow10 = 76

var oneScaled = uint256.NewInt(1_000_000_000_000_000_000)

// Decimal is a fixed-point number with Scale decimal places, stored as an
// unsigned 256-bit integer.
type Decimal struct {
	raw *uint256.Int
}

// Zero returns the zero value.
func Zero() Decimal { return Decimal{raw: new(uint256.Int)} }

// One returns 1.0.
func One() Decimal { return Decimal{raw: new(uint256.Int).Set(oneScaled)} }

// Raw returns a copy of the underlying 256-bit fixed-point representation.
func (d Decimal) Raw() *uint256.Int {
	if d.raw == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(d.raw)
}

// FromRaw wraps a raw internal-scale value directly, with no rescaling.
func FromRaw(raw *uint256.Int) Decimal {
	return Decimal{raw: new(uint256.Int).Set(raw)}
}

func pow10(e uint) (*uint256.Int, error) {
	if e > maxPow10 {
		return nil, ErrScaleTooLarge
	}
	ten := uint256.NewInt(10)
	result := uint256.NewInt(1)
	for i := uint(0); i < e; i++ {
		if _, overflow := result.MulOverflow(result, ten); overflow {
			return nil, ErrOverflow
		}
	}
	return result, nil
}

func rescale(n *uint256.Int, diff int) (*uint256.Int, error) {
	switch {
	case diff > 0:
		p, err := pow10(uint(diff))
		if err != nil {
			return nil, err
		}
		result, overflow := new(uint256.Int).MulOverflow(n, p)
		if overflow {
			return nil, ErrOverflow
		}
		return result, nil
	case diff < 0:
		p, err := pow10(uint(-diff))
		if err != nil {
			return nil, err
		}
		if p.IsZero() {
			return nil, ErrDivisionByZero
		}
		return new(uint256.Int).Div(n, p), nil
	default:
		return new(uint256.Int).Set(n), nil
	}
}

// FromRawWithScale interprets raw as a fixed-point number with scale s
// decimal places and converts it to the internal 18-place scale.
func FromRawWithScale(raw *uint256.Int, s uint8) (Decimal, error) {
	diff := int(Scale) - int(s)
	rescaled, err := rescale(raw, diff)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{raw: rescaled}, nil
}

// ToRawWithScale converts d to a fixed-point number with scale s decimal
// places, the inverse of FromRawWithScale.
func (d Decimal) ToRawWithScale(s uint8) (*uint256.Int, error) {
	diff := int(s) - int(Scale)
	return rescale(d.Raw(), diff)
}

// Add returns d + o, or ErrOverflow if the sum does not fit in 256 bits.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	result, overflow := new(uint256.Int).AddOverflow(d.Raw(), o.Raw())
	if overflow {
		return Decimal{}, ErrOverflow
	}
	return Decimal{raw: result}, nil
}

// Sub returns d - o, or ErrOverflow on underflow.
func (d Decimal) Sub(o Decimal) (Decimal, error) {
	result, overflow := new(uint256.Int).SubOverflow(d.Raw(), o.Raw())
	if overflow {
		return Decimal{}, ErrOverflow
	}
	return Decimal{raw: result}, nil
}

// Mul returns d * o, computed with a 512-bit intermediate product divided
// by 10^18 and truncated toward zero, matching the internal scale.
func (d Decimal) Mul(o Decimal) (Decimal, error) {
	result, overflow := new(uint256.Int).MulDivOverflow(d.Raw(), o.Raw(), oneScaled)
	if overflow {
		return Decimal{}, ErrOverflow
	}
	return Decimal{raw: result}, nil
}

// Div returns d / o, computed as (d * 10^18) / o with a 512-bit
// intermediate numerator, truncated toward zero.
func (d Decimal) Div(o Decimal) (Decimal, error) {
	if o.Raw().IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	result, overflow := new(uint256.Int).MulDivOverflow(d.Raw(), oneScaled, o.Raw())
	if overflow {
		return Decimal{}, ErrOverflow
	}
	return Decimal{raw: result}, nil
}

// MulDiv returns (d * mul) / div in a single 512-bit intermediate, avoiding
// the precision loss of computing Mul then Div separately.
func (d Decimal) MulDiv(mul, div Decimal) (Decimal, error) {
	if div.Raw().IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	result, overflow := new(uint256.Int).MulDivOverflow(d.Raw(), mul.Raw(), div.Raw())
	if overflow {
		return Decimal{}, ErrOverflow
	}
	return Decimal{raw: result}, nil
}

// String renders d as an integer part, a dot, and an 18-digit fractional
// part, matching the teacher's base-10 decimal formatting.
func (d Decimal) String() string {
	scaleFactor, _ := pow10(Scale)
	q, r := new(uint256.Int).DivMod(d.Raw(), scaleFactor, new(uint256.Int))
	return fmt.Sprintf("%s.%018s", q.Dec(), r.Dec())
}
