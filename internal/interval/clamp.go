package interval

import "math/big"

// TypeDomain returns the representable range of a declared integer type:
// [0, 2^bits-1] for unsigned, [-2^(bits-1), 2^(bits-1)-1] for signed.
func TypeDomain(bits int, signed bool) Interval {
	if bits <= 0 || bits > 256 {
		bits = 256
	}
	one := big.NewInt(1)
	if signed {
		half := new(big.Int).Lsh(one, uint(bits-1))
		return NewBig(new(big.Int).Neg(half), new(big.Int).Sub(half, one))
	}
	max := new(big.Int).Sub(new(big.Int).Lsh(one, uint(bits)), one)
	return NewBig(new(big.Int), max)
}

// Clamp intersects iv with the declared type's domain and reports whether
// the interval could exceed it above (overflow) or below (underflow).
// This is the core over/underflow detection signal: a clamped bound with
// the corresponding flag set means the concrete program may wrap.
func (iv Interval) Clamp(bits int, signed bool) (clamped Interval, overflow, underflow bool) {
	if iv.IsBottom() {
		return iv, false, false
	}
	domain := TypeDomain(bits, signed)
	overflow = iv.High.Cmp(domain.High) > 0
	underflow = iv.Low.Cmp(domain.Low) < 0
	clamped = iv.Meet(domain)
	if clamped.IsBottom() {
		// entirely out of range; keep the domain so analysis can continue
		clamped = domain
	}
	return clamped, overflow, underflow
}
