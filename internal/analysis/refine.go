package analysis

import (
	"github.com/xab-mack/solrange/internal/interval"
	"github.com/xab-mack/solrange/internal/solidity"
)

var cmpByOp = map[solidity.BinOp]interval.CmpOp{
	solidity.OpLt: interval.Lt,
	solidity.OpLe: interval.Le,
	solidity.OpGt: interval.Gt,
	solidity.OpGe: interval.Ge,
	solidity.OpEq: interval.EqEq,
	solidity.OpNe: interval.Ne,
}

// refineCond returns a copy of st narrowed by assuming cond evaluated
// to assumeTrue. Conditions it cannot decompose leave the state as is;
// refinement only ever shrinks intervals, so imprecision here costs
// findings, never soundness.
func refineCond(ctx *evalCtx, st State, cond solidity.Expr, assumeTrue bool) State {
	out := st.Clone()
	refineInto(ctx, out, cond, assumeTrue)
	return out
}

func refineInto(ctx *evalCtx, st State, cond solidity.Expr, assumeTrue bool) {
	switch x := cond.(type) {
	case *solidity.Unary:
		if x.Op == "!" {
			refineInto(ctx, st, x.X, !assumeTrue)
		}
	case *solidity.Binary:
		switch x.Op {
		case solidity.OpAnd:
			// a && b true means both hold; false gives a disjunction we
			// cannot represent, so no refinement
			if assumeTrue {
				refineInto(ctx, st, x.Left, true)
				refineInto(ctx, st, x.Right, true)
			}
		case solidity.OpOr:
			// dually, only the false branch of a || b is conjunctive
			if !assumeTrue {
				refineInto(ctx, st, x.Left, false)
				refineInto(ctx, st, x.Right, false)
			}
		default:
			op, ok := cmpByOp[x.Op]
			if !ok {
				return
			}
			l := evalExpr(ctx, st, x.Left)
			r := evalExpr(ctx, st, x.Right)
			whenTrue, whenFalse := interval.Refine(op, l, r)
			pick := whenTrue
			if !assumeTrue {
				pick = whenFalse
			}
			writeRefined(st, x.Left, pick.Left)
			writeRefined(st, x.Right, pick.Right)
		}
	case *solidity.Ident:
		// bare boolean flag: pin it to the assumed value
		v := int64(0)
		if assumeTrue {
			v = 1
		}
		st[x.Name] = interval.ConstInt64(v)
	}
}

// writeRefined stores a refined operand interval back only when the
// operand is a trackable lvalue. Literal and compound operands are
// narrowed transiently during Refine but have no slot to keep.
func writeRefined(st State, e solidity.Expr, iv interval.Interval) {
	switch e.(type) {
	case *solidity.Ident, *solidity.Index, *solidity.Member:
		if name := lvalName(e); name != "" {
			st[name] = iv
		}
	}
}
