// Package interval implements the interval abstract domain used by the
// range analysis: closed ranges [low, high] over the extended integers,
// with the lattice operators (join, meet, widen, narrow) and the interval
// arithmetic the transfer functions are built on.
package interval

import "math/big"

// Interval is a member of the interval lattice. The empty interval
// (bottom) is represented as [+∞, -∞]; any attempt to construct a
// reversed range collapses to bottom, which downstream analysis treats
// as unreachable.
type Interval struct {
	Low  Bound
	High Bound
}

// New builds an interval from two bounds. low > high yields Bottom.
func New(low, high Bound) Interval {
	if low.Cmp(high) > 0 {
		return Bottom()
	}
	return Interval{Low: low, High: high}
}

// NewBig builds a finite interval from big integers.
func NewBig(low, high *big.Int) Interval {
	return New(Finite(low), Finite(high))
}

// NewInt64 builds a finite interval from int64 endpoints.
func NewInt64(low, high int64) Interval {
	return New(FiniteInt64(low), FiniteInt64(high))
}

// Const builds the singleton interval [v, v].
func Const(v *big.Int) Interval {
	b := Finite(v)
	return Interval{Low: b, High: b}
}

// ConstInt64 builds the singleton interval [v, v].
func ConstInt64(v int64) Interval {
	return Const(big.NewInt(v))
}

// Top is the unbounded interval [-∞, +∞].
func Top() Interval {
	return Interval{Low: NegInf(), High: PosInf()}
}

// Bottom is the empty interval [+∞, -∞].
func Bottom() Interval {
	return Interval{Low: PosInf(), High: NegInf()}
}

func (iv Interval) IsBottom() bool { return iv.Low.Cmp(iv.High) > 0 }
func (iv Interval) IsTop() bool    { return iv.Low.IsNegInf() && iv.High.IsPosInf() }

func (iv Interval) Eq(o Interval) bool {
	if iv.IsBottom() && o.IsBottom() {
		return true
	}
	return iv.Low.Eq(o.Low) && iv.High.Eq(o.High)
}

// Contains reports whether o is fully inside iv.
func (iv Interval) Contains(o Interval) bool {
	if o.IsBottom() {
		return true
	}
	if iv.IsBottom() {
		return false
	}
	return iv.Low.Cmp(o.Low) <= 0 && iv.High.Cmp(o.High) >= 0
}

// ContainsBig reports whether the concrete value v lies in iv.
func (iv Interval) ContainsBig(v *big.Int) bool {
	return iv.Contains(Const(v))
}

// ContainsZero reports whether 0 lies in iv.
func (iv Interval) ContainsZero() bool {
	return iv.ContainsBig(new(big.Int))
}

// Join is the least upper bound: the smallest interval covering both.
func (iv Interval) Join(o Interval) Interval {
	if iv.IsBottom() {
		return o
	}
	if o.IsBottom() {
		return iv
	}
	return Interval{Low: minBound(iv.Low, o.Low), High: maxBound(iv.High, o.High)}
}

// Meet is the greatest lower bound: the intersection. An empty
// intersection yields Bottom.
func (iv Interval) Meet(o Interval) Interval {
	if iv.IsBottom() || o.IsBottom() {
		return Bottom()
	}
	return New(maxBound(iv.Low, o.Low), minBound(iv.High, o.High))
}

// Widen extrapolates iv towards o: a bound that o pushed outward jumps
// straight to ±∞, which bounds the number of distinct states per
// variable and forces the fixed point to terminate.
func (iv Interval) Widen(o Interval) Interval {
	if iv.IsBottom() {
		return o
	}
	if o.IsBottom() {
		return iv
	}
	low := iv.Low
	if o.Low.Cmp(iv.Low) < 0 {
		low = NegInf()
	}
	high := iv.High
	if o.High.Cmp(iv.High) > 0 {
		high = PosInf()
	}
	return Interval{Low: low, High: high}
}

// Narrow recovers precision after widening: an infinite bound of iv is
// replaced by o's bound. Applied with concrete (non-widened) transfer
// results it never loses soundness.
func (iv Interval) Narrow(o Interval) Interval {
	if iv.IsBottom() || o.IsBottom() {
		return Bottom()
	}
	low := iv.Low
	if low.IsNegInf() {
		low = o.Low
	}
	high := iv.High
	if high.IsPosInf() {
		high = o.High
	}
	return New(low, high)
}

// Add computes [a+c, b+d] with saturation to ±∞.
func (iv Interval) Add(o Interval) Interval {
	if iv.IsBottom() || o.IsBottom() {
		return Bottom()
	}
	return Interval{Low: iv.Low.add(o.Low), High: iv.High.add(o.High)}
}

// Sub computes [a-d, b-c].
func (iv Interval) Sub(o Interval) Interval {
	if iv.IsBottom() || o.IsBottom() {
		return Bottom()
	}
	return Interval{Low: iv.Low.sub(o.High), High: iv.High.sub(o.Low)}
}

// Neg computes [-b, -a].
func (iv Interval) Neg() Interval {
	if iv.IsBottom() {
		return Bottom()
	}
	return Interval{Low: iv.High.neg(), High: iv.Low.neg()}
}

// Mul computes the envelope of the four corner products. 0 * ±∞ is 0.
func (iv Interval) Mul(o Interval) Interval {
	if iv.IsBottom() || o.IsBottom() {
		return Bottom()
	}
	c1 := iv.Low.mul(o.Low)
	c2 := iv.Low.mul(o.High)
	c3 := iv.High.mul(o.Low)
	c4 := iv.High.mul(o.High)
	return Interval{Low: minBound(c1, c2, c3, c4), High: maxBound(c1, c2, c3, c4)}
}

// Div computes interval division. The boolean reports a division-by-zero
// risk: true whenever the divisor may be zero. The zero point is excluded
// from the divisor before dividing, so a divisor spanning zero still
// yields a finite envelope from its strictly-negative and strictly-positive
// parts; a divisor that is exactly [0, 0] yields Top.
func (iv Interval) Div(o Interval) (Interval, bool) {
	if iv.IsBottom() || o.IsBottom() {
		return Bottom(), false
	}
	risk := o.ContainsZero()
	neg := o.Meet(New(NegInf(), FiniteInt64(-1)))
	pos := o.Meet(New(FiniteInt64(1), PosInf()))
	res := Bottom()
	if !neg.IsBottom() {
		res = res.Join(iv.divNonZero(neg))
	}
	if !pos.IsBottom() {
		res = res.Join(iv.divNonZero(pos))
	}
	if res.IsBottom() {
		// divisor was exactly [0, 0]
		return Top(), risk
	}
	return res, risk
}

// divNonZero divides by an interval that does not contain zero.
func (iv Interval) divNonZero(o Interval) Interval {
	c1 := iv.Low.quo(o.Low)
	c2 := iv.Low.quo(o.High)
	c3 := iv.High.quo(o.Low)
	c4 := iv.High.quo(o.High)
	return Interval{Low: minBound(c1, c2, c3, c4), High: maxBound(c1, c2, c3, c4)}
}

// Mod computes a conservative remainder interval. For a divisor known
// strictly positive the result is within [-(hi-1), hi-1], tightened by
// the dividend's sign; the strictly-negative case mirrors. A divisor
// that may be zero yields Top with the risk flag set.
func (iv Interval) Mod(o Interval) (Interval, bool) {
	if iv.IsBottom() || o.IsBottom() {
		return Bottom(), false
	}
	if o.ContainsZero() {
		return Top(), true
	}
	one := FiniteInt64(1)
	var span Bound // largest |divisor| - 1
	if o.Low.Sign() > 0 {
		span = o.High.sub(one)
	} else {
		span = o.Low.neg().sub(one)
	}
	if span.IsPosInf() {
		span = PosInf()
	}
	switch {
	case iv.Low.Sign() >= 0:
		return New(FiniteInt64(0), minBound(iv.High, span)), false
	case iv.High.Sign() < 0:
		return New(maxBound(iv.Low, span.neg()), FiniteInt64(0)), false
	default:
		return New(span.neg(), span), false
	}
}

// expBitCap bounds the size of concretely computed powers; anything
// larger saturates to +∞.
const expBitCap = 1024

// Exp computes base**exponent for non-negative exponents, saturating
// when the result would be astronomically large. Negative or unbounded
// exponents yield Top.
func (iv Interval) Exp(o Interval) Interval {
	if iv.IsBottom() || o.IsBottom() {
		return Bottom()
	}
	if !o.Low.IsFinite() || !o.High.IsFinite() || o.Low.Sign() < 0 {
		return Top()
	}
	if !iv.Low.IsFinite() || !iv.High.IsFinite() {
		return Top()
	}
	corners := make([]Bound, 0, 4)
	for _, base := range []*big.Int{iv.Low.val, iv.High.val} {
		for _, exp := range []*big.Int{o.Low.val, o.High.val} {
			corners = append(corners, expBound(base, exp))
		}
	}
	return New(minBound(corners...), maxBound(corners...))
}

func expBound(base, exp *big.Int) Bound {
	if !exp.IsInt64() || base.BitLen()*int(exp.Int64()) > expBitCap {
		if base.Sign() < 0 {
			return NegInf()
		}
		return PosInf()
	}
	e := exp.Int64()
	if e == 0 {
		return FiniteInt64(1)
	}
	neg := base.Sign() < 0 && e%2 == 1
	r := new(big.Int).Exp(new(big.Int).Abs(base), big.NewInt(e), nil)
	if neg {
		r.Neg(r)
	}
	return Bound{val: r}
}

// Shl computes iv << o as iv * 2^o.
func (iv Interval) Shl(o Interval) Interval {
	return iv.Mul(ConstInt64(2).Exp(o))
}

// Shr computes iv >> o as iv / 2^o; the divisor is strictly positive so
// no risk flag is involved.
func (iv Interval) Shr(o Interval) Interval {
	res, _ := iv.Div(ConstInt64(2).Exp(o))
	return res
}

func (iv Interval) String() string {
	if iv.IsBottom() {
		return "⊥"
	}
	if iv.IsTop() {
		return "⊤"
	}
	return "[" + iv.Low.String() + ", " + iv.High.String() + "]"
}
