package interval

import "math/big"

// Bound is one endpoint of an interval: a finite integer or ±∞.
// Bounds are immutable; arithmetic returns fresh values.
type Bound struct {
	inf int8 // -1 for -∞, +1 for +∞, 0 for finite
	val *big.Int
}

func NegInf() Bound { return Bound{inf: -1} }
func PosInf() Bound { return Bound{inf: 1} }

func Finite(v *big.Int) Bound {
	return Bound{val: new(big.Int).Set(v)}
}

func FiniteInt64(v int64) Bound {
	return Bound{val: big.NewInt(v)}
}

func (b Bound) IsNegInf() bool { return b.inf < 0 }
func (b Bound) IsPosInf() bool { return b.inf > 0 }
func (b Bound) IsFinite() bool { return b.inf == 0 }

// Value returns the finite value; callers must check IsFinite first.
func (b Bound) Value() *big.Int { return new(big.Int).Set(b.val) }

// Sign reports -1, 0 or +1.
func (b Bound) Sign() int {
	if b.inf != 0 {
		return int(b.inf)
	}
	return b.val.Sign()
}

// Cmp orders bounds on the extended integer line.
func (b Bound) Cmp(o Bound) int {
	if b.inf != 0 || o.inf != 0 {
		switch {
		case b.inf < o.inf:
			return -1
		case b.inf > o.inf:
			return 1
		default:
			return 0
		}
	}
	return b.val.Cmp(o.val)
}

func (b Bound) Eq(o Bound) bool { return b.Cmp(o) == 0 }

// add saturates: any infinite operand absorbs. The interval constructors
// never produce -∞ + +∞ for a non-bottom operand pair.
func (b Bound) add(o Bound) Bound {
	if b.inf != 0 {
		return b
	}
	if o.inf != 0 {
		return o
	}
	return Bound{val: new(big.Int).Add(b.val, o.val)}
}

func (b Bound) sub(o Bound) Bound {
	return b.add(o.neg())
}

func (b Bound) neg() Bound {
	if b.inf != 0 {
		return Bound{inf: -b.inf}
	}
	return Bound{val: new(big.Int).Neg(b.val)}
}

// mul treats 0 * ±∞ as 0; this keeps products of a constant-zero interval
// with an unbounded one exact.
func (b Bound) mul(o Bound) Bound {
	if b.Sign() == 0 || o.Sign() == 0 {
		return Bound{val: new(big.Int)}
	}
	if b.inf != 0 || o.inf != 0 {
		if b.Sign()*o.Sign() > 0 {
			return PosInf()
		}
		return NegInf()
	}
	return Bound{val: new(big.Int).Mul(b.val, o.val)}
}

// quo divides toward zero, matching EVM division. x/±∞ is 0; ±∞/y keeps
// the combined sign. Callers exclude zero divisors beforehand.
func (b Bound) quo(o Bound) Bound {
	if b.inf != 0 {
		if b.Sign()*o.Sign() > 0 {
			return PosInf()
		}
		return NegInf()
	}
	if o.inf != 0 {
		return Bound{val: new(big.Int)}
	}
	return Bound{val: new(big.Int).Quo(b.val, o.val)}
}

func minBound(bs ...Bound) Bound {
	m := bs[0]
	for _, b := range bs[1:] {
		if b.Cmp(m) < 0 {
			m = b
		}
	}
	return m
}

func maxBound(bs ...Bound) Bound {
	m := bs[0]
	for _, b := range bs[1:] {
		if b.Cmp(m) > 0 {
			m = b
		}
	}
	return m
}

func (b Bound) String() string {
	switch {
	case b.inf < 0:
		return "-∞"
	case b.inf > 0:
		return "+∞"
	default:
		return b.val.String()
	}
}
