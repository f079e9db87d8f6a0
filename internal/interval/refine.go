package interval

// CmpOp is a comparison operator appearing in a branch condition.
type CmpOp int

const (
	Lt CmpOp = iota
	Le
	Gt
	Ge
	EqEq
	Ne
)

func (op CmpOp) String() string {
	switch op {
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case EqEq:
		return "=="
	default:
		return "!="
	}
}

// Negate returns the operator of the false branch.
func (op CmpOp) Negate() CmpOp {
	switch op {
	case Lt:
		return Ge
	case Le:
		return Gt
	case Gt:
		return Le
	case Ge:
		return Lt
	case EqEq:
		return Ne
	default:
		return EqEq
	}
}

// Refined holds the operand intervals under one branch assumption.
type Refined struct {
	Left  Interval
	Right Interval
}

// Refine narrows the operands of `l op r` under the condition-true and
// condition-false assumptions. Refinement is monotonic: each returned
// interval is contained in its input. A Bottom result marks the branch
// as unreachable.
func Refine(op CmpOp, l, r Interval) (whenTrue, whenFalse Refined) {
	whenTrue = refineOne(op, l, r)
	whenFalse = refineOne(op.Negate(), l, r)
	return whenTrue, whenFalse
}

func refineOne(op CmpOp, l, r Interval) Refined {
	if l.IsBottom() || r.IsBottom() {
		return Refined{Left: Bottom(), Right: Bottom()}
	}
	one := ConstInt64(1)
	switch op {
	case Lt:
		// l < r: l.high < r.high, r.low > l.low
		return Refined{
			Left:  l.Meet(New(NegInf(), r.High.sub(FiniteInt64(1)))),
			Right: r.Meet(New(l.Low.add(FiniteInt64(1)), PosInf())),
		}
	case Le:
		return Refined{
			Left:  l.Meet(New(NegInf(), r.High)),
			Right: r.Meet(New(l.Low, PosInf())),
		}
	case Gt:
		return Refined{
			Left:  l.Meet(New(r.Low.add(FiniteInt64(1)), PosInf())),
			Right: r.Meet(New(NegInf(), l.High.sub(FiniteInt64(1)))),
		}
	case Ge:
		return Refined{
			Left:  l.Meet(New(r.Low, PosInf())),
			Right: r.Meet(New(NegInf(), l.High)),
		}
	case EqEq:
		m := l.Meet(r)
		return Refined{Left: m, Right: m}
	case Ne:
		// Only the x != c case with c at an endpoint shaves anything off.
		lr := l
		if r.Low.Eq(r.High) {
			if l.Low.Eq(r.Low) {
				lr = l.Meet(New(l.Low.add(one.Low), PosInf()))
			} else if l.High.Eq(r.High) {
				lr = l.Meet(New(NegInf(), l.High.sub(one.Low)))
			}
		}
		rr := r
		if l.Low.Eq(l.High) {
			if r.Low.Eq(l.Low) {
				rr = r.Meet(New(r.Low.add(one.Low), PosInf()))
			} else if r.High.Eq(l.High) {
				rr = r.Meet(New(NegInf(), r.High.sub(one.Low)))
			}
		}
		return Refined{Left: lr, Right: rr}
	}
	return Refined{Left: l, Right: r}
}
