package analysis

import (
	"math/big"
	"strings"

	"github.com/xab-mack/solrange/internal/interval"
	"github.com/xab-mack/solrange/internal/solidity"
)

// evalCtx carries per-function context through expression evaluation:
// declared types, the violation sink, and the statement position.
type evalCtx struct {
	contractName string
	functionName string
	types        map[string]solidity.ElemType
	opts         Options
	collect      func(Violation)
	line         int

	// set when the value being stored came through a SafeMath-style
	// call; suppresses the overflow report for that store
	safeMath bool
	// silences duplicate reports during narrowing passes
	quiet bool
}

func (c *evalCtx) report(kind ViolationKind, variable, msg string, iv interval.Interval, confidence float64) {
	if c.quiet || c.collect == nil {
		return
	}
	c.collect(Violation{
		Contract:   c.contractName,
		Function:   c.functionName,
		Variable:   variable,
		Violation:  msg,
		Interval:   iv.String(),
		Kind:       kind,
		Line:       c.line,
		Confidence: confidence,
	})
}

// lvalName canonicalizes an assignable expression to a tracking key.
// Mapping/array elements collapse onto their base (balances[x] and
// balances[y] share "balances[]"), which keeps per-variable tracking
// simple at the cost of element sensitivity.
func lvalName(e solidity.Expr) string {
	switch x := e.(type) {
	case *solidity.Ident:
		return x.Name
	case *solidity.Index:
		base := lvalName(x.X)
		if base == "" {
			return ""
		}
		return base + "[]"
	case *solidity.Member:
		base := lvalName(x.X)
		if base == "" {
			return ""
		}
		return base + "." + x.Field
	default:
		return ""
	}
}

var (
	uint256Domain = interval.TypeDomain(256, false)
	addressDomain = interval.TypeDomain(160, false)
	boolDomain    = interval.NewInt64(0, 1)
	// block.timestamp capped at the year 2100
	timestampDomain = interval.NewInt64(0, 4102444800)
	blockNumDomain  = interval.TypeDomain(64, false)
	gasPriceDomain  = interval.NewBig(new(big.Int), pow10(18))
	priceDomain     = interval.NewBig(new(big.Int), pow10(36))
)

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// typeDefault is the interval a freshly read variable of a declared
// type may hold.
func typeDefault(t solidity.ElemType) interval.Interval {
	switch t.Kind {
	case solidity.KindUint, solidity.KindInt:
		return interval.TypeDomain(t.Bits, t.Signed())
	case solidity.KindBool:
		return boolDomain
	case solidity.KindAddress:
		return addressDomain
	default:
		return interval.Top()
	}
}

// evalExpr computes the interval of an expression under state. Unknown
// shapes evaluate to Top so the analysis degrades instead of failing.
func evalExpr(ctx *evalCtx, st State, e solidity.Expr) interval.Interval {
	switch x := e.(type) {
	case nil:
		return interval.Top()
	case *solidity.Literal:
		return interval.Const(x.Value)
	case *solidity.Ident:
		if iv, ok := st[x.Name]; ok {
			return iv
		}
		if t, ok := ctx.types[x.Name]; ok {
			return typeDefault(t)
		}
		if x.Name == "now" {
			return timestampDomain
		}
		return interval.Top()
	case *solidity.Unary:
		return evalUnary(ctx, st, x)
	case *solidity.Binary:
		return evalBinary(ctx, st, x)
	case *solidity.Member:
		return evalMember(x)
	case *solidity.Index:
		if name := lvalName(x); name != "" {
			if iv, ok := st[name]; ok {
				return iv
			}
		}
		// mapping values are overwhelmingly uint256; assume that domain
		return uint256Domain
	case *solidity.Call:
		return evalCall(ctx, st, x)
	default:
		return interval.Top()
	}
}

func evalUnary(ctx *evalCtx, st State, x *solidity.Unary) interval.Interval {
	switch x.Op {
	case "-":
		return evalExpr(ctx, st, x.X).Neg()
	case "!":
		return boolDomain
	default:
		return interval.Top()
	}
}

// evalBinary dispatches over the closed operator set. Every BinOp value
// has a case; an operator added to the front end without a transfer
// rule would fall through to Top.
func evalBinary(ctx *evalCtx, st State, x *solidity.Binary) interval.Interval {
	l := evalExpr(ctx, st, x.Left)
	r := evalExpr(ctx, st, x.Right)
	switch x.Op {
	case solidity.OpAdd:
		return l.Add(r)
	case solidity.OpSub:
		return l.Sub(r)
	case solidity.OpMul:
		return l.Mul(r)
	case solidity.OpDiv:
		q, risk := l.Div(r)
		if risk {
			ctx.reportDivRisk(KindDivByZero, x.Right, r)
		}
		return q
	case solidity.OpMod:
		m, risk := l.Mod(r)
		if risk {
			ctx.reportDivRisk(KindModByZero, x.Right, r)
		}
		return m
	case solidity.OpExp:
		return l.Exp(r)
	case solidity.OpShl:
		return l.Shl(r)
	case solidity.OpShr:
		return l.Shr(r)
	case solidity.OpBitAnd, solidity.OpBitOr, solidity.OpBitXor:
		// bit ops on non-negative operands stay non-negative
		if !l.IsBottom() && !r.IsBottom() && l.Low.Sign() >= 0 && r.Low.Sign() >= 0 {
			return interval.New(interval.FiniteInt64(0), interval.PosInf())
		}
		return interval.Top()
	case solidity.OpLt, solidity.OpLe, solidity.OpGt, solidity.OpGe,
		solidity.OpEq, solidity.OpNe, solidity.OpAnd, solidity.OpOr:
		return boolDomain
	default:
		return interval.Top()
	}
}

func (c *evalCtx) reportDivRisk(kind ViolationKind, divisor solidity.Expr, iv interval.Interval) {
	name := lvalName(divisor)
	if name == "" {
		name = "<expr>"
	}
	conf := 0.6
	msg := "divisor interval " + iv.String() + " may include zero"
	if iv.Eq(interval.ConstInt64(0)) {
		conf = 0.95
		msg = "divisor is always zero"
	}
	c.report(kind, name, msg, iv, conf)
}

func evalMember(x *solidity.Member) interval.Interval {
	if base, ok := x.X.(*solidity.Ident); ok {
		switch base.Name + "." + x.Field {
		case "msg.value":
			return uint256Domain
		case "msg.sender", "tx.origin":
			return addressDomain
		case "block.timestamp":
			return timestampDomain
		case "block.number":
			return blockNumDomain
		case "tx.gasprice":
			return gasPriceDomain
		}
	}
	switch x.Field {
	case "balance":
		return uint256Domain
	case "length":
		return interval.New(interval.FiniteInt64(0), interval.PosInf())
	}
	return interval.Top()
}

var safeMathOps = map[string]solidity.BinOp{
	"add": solidity.OpAdd,
	"sub": solidity.OpSub,
	"mul": solidity.OpMul,
	"div": solidity.OpDiv,
	"mod": solidity.OpMod,
}

func evalCall(ctx *evalCtx, st State, x *solidity.Call) interval.Interval {
	name := strings.ToLower(x.Name)

	// SafeMath-style arithmetic: either SafeMath.add(a, b) or, with
	// `using SafeMath for uint256`, a.add(b). Both revert instead of
	// wrapping, so the result is exact and overflow reports are
	// suppressed for the store.
	if op, ok := safeMathOps[name]; ok {
		var l, r interval.Interval
		switch {
		case x.Target != nil && len(x.Args) == 1:
			l = evalExpr(ctx, st, x.Target)
			r = evalExpr(ctx, st, x.Args[0])
		case len(x.Args) == 2:
			l = evalExpr(ctx, st, x.Args[0])
			r = evalExpr(ctx, st, x.Args[1])
		default:
			return interval.Top()
		}
		ctx.safeMath = true
		switch op {
		case solidity.OpAdd:
			return l.Add(r)
		case solidity.OpSub:
			return l.Sub(r)
		case solidity.OpMul:
			return l.Mul(r)
		case solidity.OpDiv:
			q, _ := l.Div(r) // SafeMath div reverts on zero, no risk
			return q
		default:
			m, _ := l.Mod(r)
			return m
		}
	}

	switch name {
	case "min":
		if len(x.Args) == 2 {
			a := evalExpr(ctx, st, x.Args[0])
			b := evalExpr(ctx, st, x.Args[1])
			return minCall(a, b)
		}
	case "max":
		if len(x.Args) == 2 {
			a := evalExpr(ctx, st, x.Args[0])
			b := evalExpr(ctx, st, x.Args[1])
			return maxCall(a, b)
		}
	case "balanceof", "totalsupply", "allowance":
		return uint256Domain
	case "decimals":
		return interval.NewInt64(0, 18)
	case "transfer", "transferfrom", "approve", "send", "call", "staticcall", "delegatecall":
		return boolDomain
	case "type.max", "type.min":
		return interval.Top()
	}
	if strings.Contains(name, "price") || strings.Contains(name, "rate") {
		return priceDomain
	}
	if strings.Contains(name, "balance") || strings.Contains(name, "supply") || strings.Contains(name, "reserve") {
		return uint256Domain
	}
	return interval.Top()
}

func minCall(a, b interval.Interval) interval.Interval {
	if a.IsBottom() || b.IsBottom() {
		return interval.Bottom()
	}
	lo := a.Low
	if b.Low.Cmp(lo) < 0 {
		lo = b.Low
	}
	hi := a.High
	if b.High.Cmp(hi) < 0 {
		hi = b.High
	}
	return interval.New(lo, hi)
}

func maxCall(a, b interval.Interval) interval.Interval {
	if a.IsBottom() || b.IsBottom() {
		return interval.Bottom()
	}
	lo := a.Low
	if b.Low.Cmp(lo) > 0 {
		lo = b.Low
	}
	hi := a.High
	if b.High.Cmp(hi) > 0 {
		hi = b.High
	}
	return interval.New(lo, hi)
}

// applyStmt interprets one straight-line statement over st in place.
func applyStmt(ctx *evalCtx, st State, s solidity.Stmt) {
	ctx.line = s.Pos()
	ctx.safeMath = false
	switch stmt := s.(type) {
	case *solidity.DeclStmt:
		ctx.types[stmt.Var.Name] = stmt.Var.Type
		var iv interval.Interval
		if stmt.Value != nil {
			iv = evalExpr(ctx, st, stmt.Value)
		} else {
			iv = typeDefault(stmt.Var.Type)
		}
		storeClamped(ctx, st, stmt.Var.Name, stmt.Var.Type, iv)

	case *solidity.AssignStmt:
		name := lvalName(stmt.Target)
		rhs := evalExpr(ctx, st, stmt.Value)
		if stmt.Op != "=" {
			cur := evalExpr(ctx, st, stmt.Target)
			switch stmt.Op {
			case "+=":
				rhs = cur.Add(rhs)
			case "-=":
				rhs = cur.Sub(rhs)
			case "*=":
				rhs = cur.Mul(rhs)
			case "/=":
				q, risk := cur.Div(rhs)
				if risk {
					ctx.reportDivRisk(KindDivByZero, stmt.Value, rhs)
				}
				rhs = q
			case "%=":
				m, risk := cur.Mod(rhs)
				if risk {
					ctx.reportDivRisk(KindModByZero, stmt.Value, rhs)
				}
				rhs = m
			}
		}
		if name == "" {
			return // unmodeled target; nothing we can track
		}
		t, ok := ctx.types[name]
		if !ok {
			// untyped targets (mapping elements) are assumed uint256
			if strings.HasSuffix(name, "[]") {
				t = solidity.ElemType{Kind: solidity.KindUint, Bits: 256}
			}
		}
		storeClamped(ctx, st, name, t, rhs)

	case *solidity.RequireStmt:
		refined := refineCond(ctx, st, stmt.Cond, true)
		for k, v := range refined {
			st[k] = v
		}

	case *solidity.ReturnStmt:
		if stmt.Value == nil {
			return
		}
		iv := evalExpr(ctx, st, stmt.Value)
		name, t := returnSlot(ctx)
		storeClamped(ctx, st, name, t, iv)

	case *solidity.ExprStmt:
		evalExpr(ctx, st, stmt.X) // side effect: div/mod risk reports

	case *solidity.UnknownStmt:
		// unmodeled construct: degrade silently, note once per line
		ctx.report(KindUnmodeled, "<stmt>", "unmodeled construct, precision reduced", interval.Top(), 0.1)
	}
}

// returnSlot names the return value's tracking slot and type.
func returnSlot(ctx *evalCtx) (string, solidity.ElemType) {
	if t, ok := ctx.types[retKey]; ok {
		return retKey, t
	}
	return retKey, solidity.ElemType{Kind: solidity.KindUnknown}
}

// retKey tracks the (first) return value of the function under analysis.
const retKey = "<return>"

// storeClamped writes iv to name, clamping against the declared type
// and reporting over/underflow. Sign-certain violations (the whole
// interval outside the domain) report with high confidence; straddling
// ones with low.
func storeClamped(ctx *evalCtx, st State, name string, t solidity.ElemType, iv interval.Interval) {
	if !t.Numeric() || iv.IsBottom() {
		st[name] = iv
		return
	}
	clamped, over, under := iv.Clamp(t.Bits, t.Signed())
	if ctx.opts.OverflowChecks && !ctx.safeMath {
		domain := interval.TypeDomain(t.Bits, t.Signed())
		if over {
			conf := 0.6
			if iv.Low.Cmp(domain.High) > 0 {
				conf = 0.95
			}
			ctx.report(KindOverflow, name, "value may exceed "+typeString(t)+" range", iv, conf)
		}
		if under {
			conf := 0.6
			if iv.High.Cmp(domain.Low) < 0 {
				conf = 0.95
			}
			ctx.report(KindUnderflow, name, "value may fall below "+typeString(t)+" range", iv, conf)
		}
	}
	st[name] = clamped
}

func typeString(t solidity.ElemType) string {
	prefix := "uint"
	if t.Signed() {
		prefix = "int"
	}
	if t.Kind == solidity.KindUint || t.Kind == solidity.KindInt {
		return prefix + itoa(t.Bits)
	}
	return "numeric"
}

func itoa(n int) string {
	if n <= 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
