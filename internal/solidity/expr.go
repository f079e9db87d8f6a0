package solidity

import (
	"math/big"
	"strings"
)

// binary operator precedence, loosest first
var binPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"|": 5, "^": 6, "&": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
	"**": 11,
}

var binOpByText = map[string]BinOp{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod, "**": OpExp,
	"<<": OpShl, ">>": OpShr, "&": OpBitAnd, "|": OpBitOr, "^": OpBitXor,
	"<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe, "==": OpEq, "!=": OpNe,
	"&&": OpAnd, "||": OpOr,
}

// parseExpr parses an expression by precedence climbing. Returns nil on
// input it cannot make sense of; callers degrade to UnknownStmt.
func (p *parser) parseExpr() Expr {
	return p.parseBinary(1)
}

func (p *parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		t := p.cur()
		prec, ok := binPrec[t.text]
		if t.kind != tokPunct || !ok || prec < minPrec {
			return left
		}
		p.next()
		// ** is right-associative
		nextMin := prec + 1
		if t.text == "**" {
			nextMin = prec
		}
		right := p.parseBinary(nextMin)
		if right == nil {
			return left
		}
		left = &Binary{Op: binOpByText[t.text], Left: left, Right: right}
	}
}

func (p *parser) parseUnary() Expr {
	t := p.cur()
	if t.kind == tokPunct && (t.text == "-" || t.text == "!" || t.text == "~") {
		p.next()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		return &Unary{Op: t.text, X: x}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() Expr {
	x := p.parsePrimary()
	if x == nil {
		return nil
	}
	for {
		switch p.cur().text {
		case ".":
			p.next()
			field := p.cur()
			if field.kind != tokIdent {
				return x
			}
			p.next()
			if p.cur().text == "(" || p.cur().text == "{" {
				// call options like {value: x} precede the arg list
				if p.cur().text == "{" {
					p.skipBalanced("{", "}")
				}
				args := p.parseCallArgs()
				x = &Call{Target: x, Name: field.text, Args: args}
			} else {
				x = &Member{X: x, Field: field.text}
			}
		case "(":
			if id, ok := x.(*Ident); ok {
				x = &Call{Name: id.Name, Args: p.parseCallArgs()}
			} else {
				// calling a non-ident expression; consume args, keep callee
				p.parseCallArgs()
			}
		case "[":
			p.next()
			key := p.parseExpr()
			p.accept("]")
			x = &Index{X: x, Key: key}
		default:
			return x
		}
	}
}

func (p *parser) parseCallArgs() []Expr {
	var args []Expr
	p.accept("(")
	for p.cur().kind != tokEOF && p.cur().text != ")" {
		a := p.parseExpr()
		if a == nil {
			// skip to next comma or close paren
			for p.cur().kind != tokEOF && p.cur().text != "," && p.cur().text != ")" {
				if p.cur().text == "(" {
					p.skipBalanced("(", ")")
				} else {
					p.next()
				}
			}
		} else {
			args = append(args, a)
		}
		if !p.accept(",") {
			break
		}
	}
	p.accept(")")
	return args
}

func (p *parser) parsePrimary() Expr {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.next()
		if v := parseNumber(t.text); v != nil {
			return &Literal{Value: v}
		}
		return nil
	case tokString:
		p.next()
		return &Literal{Value: new(big.Int)}
	case tokIdent:
		switch t.text {
		case "true":
			p.next()
			return &Literal{Value: big.NewInt(1)}
		case "false":
			p.next()
			return &Literal{Value: new(big.Int)}
		case "new":
			p.next()
			return p.parsePostfix()
		case "type":
			// type(uint256).max and friends: treat as opaque call
			p.next()
			if p.cur().text == "(" {
				p.skipBalanced("(", ")")
			}
			if p.accept(".") && p.cur().kind == tokIdent {
				field := p.next().text
				return &Call{Name: "type." + field}
			}
			return &Call{Name: "type"}
		}
		p.next()
		return &Ident{Name: t.text}
	case tokPunct:
		if t.text == "(" {
			p.next()
			inner := p.parseExpr()
			p.accept(")")
			return inner
		}
	}
	return nil
}

// parseNumber handles decimal, hex, underscores and the NeM / N ether
// style suffixes handled as plain decimal exponents.
func parseNumber(s string) *big.Int {
	s = strings.ReplaceAll(s, "_", "")
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil
		}
		return v
	}
	if i := strings.IndexAny(s, "eE"); i > 0 {
		mant, ok1 := new(big.Int).SetString(s[:i], 10)
		exp, ok2 := new(big.Int).SetString(s[i+1:], 10)
		if ok1 && ok2 && exp.IsInt64() && exp.Int64() >= 0 && exp.Int64() <= 80 {
			pow := new(big.Int).Exp(big.NewInt(10), exp, nil)
			return mant.Mul(mant, pow)
		}
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}
