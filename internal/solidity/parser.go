package solidity

import (
	"math/big"
	"regexp"
	"strings"
)

// token kinds
type tokKind int

const (
	tokIdent tokKind = iota
	tokNumber
	tokString
	tokPunct
	tokEOF
)

type token struct {
	kind tokKind
	text string
	line int
}

var multiCharPuncts = []string{
	"**", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "=>", "->", "++", "--",
}

func tokenize(src string) []token {
	var toks []token
	line := 1
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				if src[i] == '\n' {
					line++
				}
				i++
			}
			i += 2
		case c == '"' || c == '\'':
			quote := c
			j := i + 1
			for j < n && src[j] != quote {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			toks = append(toks, token{tokString, src[i:min(j+1, n)], line})
			i = j + 1
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j], line})
			i = j
		case c >= '0' && c <= '9':
			j := i
			for j < n && (isIdentPart(src[j]) || src[j] == '_') {
				j++
			}
			toks = append(toks, token{tokNumber, src[i:j], line})
			i = j
		default:
			matched := false
			for _, p := range multiCharPuncts {
				if strings.HasPrefix(src[i:], p) {
					toks = append(toks, token{tokPunct, p, line})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				toks = append(toks, token{tokPunct, string(c), line})
				i++
			}
		}
	}
	toks = append(toks, token{tokEOF, "", line})
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

var reIntType = regexp.MustCompile(`^(u?)int(\d*)$`)

// ParseType maps a type token to an elementary type. Anything beyond
// the elementary set comes back as KindUnknown.
func ParseType(s string) ElemType {
	switch s {
	case "bool":
		return ElemType{Kind: KindBool, Bits: 1}
	case "address":
		return ElemType{Kind: KindAddress, Bits: 160}
	}
	if m := reIntType.FindStringSubmatch(s); m != nil {
		bits := 256
		if m[2] != "" {
			bits = atoi(m[2])
			if bits == 0 || bits > 256 || bits%8 != 0 {
				return ElemType{Kind: KindUnknown}
			}
		}
		if m[1] == "u" {
			return ElemType{Kind: KindUint, Bits: bits}
		}
		return ElemType{Kind: KindInt, Bits: bits}
	}
	return ElemType{Kind: KindUnknown}
}

func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// parser holds a token cursor; it never fails hard. Unparseable regions
// become UnknownStmt.
type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) peek() token { return p.toks[min(p.pos+1, len(p.toks)-1)] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) accept(text string) bool {
	if p.cur().text == text && p.cur().kind != tokString {
		p.next()
		return true
	}
	return false
}

// skipBalanced advances past a balanced open/close pair, assuming the
// cursor sits on the opener.
func (p *parser) skipBalanced(open, close string) {
	depth := 0
	for {
		t := p.next()
		if t.kind == tokEOF {
			return
		}
		if t.text == open {
			depth++
		} else if t.text == close {
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// skipToStmtEnd advances past the next ';' (or a balanced '{...}' block)
// and returns the raw token texts consumed, for UnknownStmt.
func (p *parser) skipToStmtEnd() string {
	var parts []string
	for {
		t := p.cur()
		if t.kind == tokEOF {
			return strings.Join(parts, " ")
		}
		if t.text == "{" {
			p.skipBalanced("{", "}")
			return strings.Join(parts, " ")
		}
		if t.text == "}" { // don't swallow the enclosing block
			return strings.Join(parts, " ")
		}
		p.next()
		if t.text == ";" {
			return strings.Join(parts, " ")
		}
		parts = append(parts, t.text)
	}
}

// Parse builds a Unit from Solidity source.
func Parse(file, src string) *Unit {
	p := &parser{toks: tokenize(src)}
	unit := &Unit{File: file}
	for p.cur().kind != tokEOF {
		t := p.cur()
		switch t.text {
		case "contract", "library", "interface":
			unit.Contracts = append(unit.Contracts, p.parseContract(t.text))
		case "abstract":
			p.next() // "abstract contract"
			if p.cur().text == "contract" {
				c := p.parseContract("contract")
				c.Kind = "abstract"
				unit.Contracts = append(unit.Contracts, c)
			}
		default:
			p.next() // pragma, import, file-level declarations
		}
	}
	return unit
}

func (p *parser) parseContract(kind string) *Contract {
	start := p.cur().line
	p.next() // keyword
	c := &Contract{Kind: kind, StartLine: start}
	if p.cur().kind == tokIdent {
		c.Name = p.next().text
	}
	if p.accept("is") {
		for p.cur().kind == tokIdent {
			c.Base = append(c.Base, p.next().text)
			// base constructor args
			if p.cur().text == "(" {
				p.skipBalanced("(", ")")
			}
			if !p.accept(",") {
				break
			}
		}
	}
	if !p.accept("{") {
		return c
	}
	for p.cur().kind != tokEOF && p.cur().text != "}" {
		t := p.cur()
		switch {
		case t.text == "function" || t.text == "constructor" || t.text == "receive" || t.text == "fallback":
			c.Functions = append(c.Functions, p.parseFunction())
		case t.text == "modifier":
			// keep the name so reentrancy-guard checks can see it, skip the body
			p.next()
			fn := &Function{Name: p.next().text, Visibility: "modifier", StartLine: t.line}
			if p.cur().text == "(" {
				p.skipBalanced("(", ")")
			}
			if p.cur().text == "{" {
				p.skipBalanced("{", "}")
			} else {
				p.skipToStmtEnd()
			}
			c.Functions = append(c.Functions, fn)
		case t.text == "event" || t.text == "error" || t.text == "using" || t.text == "enum" || t.text == "struct":
			p.next()
			if p.cur().text == "{" {
				p.skipBalanced("{", "}")
			} else {
				p.skipToStmtEnd()
			}
		case t.text == "mapping":
			c.StateVars = append(c.StateVars, p.parseStateVar(ElemType{Kind: KindUnknown}, t.line))
		case t.kind == tokIdent:
			et := ParseType(t.text)
			c.StateVars = append(c.StateVars, p.parseStateVar(et, t.line))
		default:
			p.next()
		}
	}
	p.accept("}")
	return c
}

// parseStateVar consumes `<type> [modifiers] name [= expr] ;`.
func (p *parser) parseStateVar(et ElemType, line int) *DeclStmt {
	p.next() // type token (or "mapping")
	if p.cur().text == "(" {
		p.skipBalanced("(", ")") // mapping key/value
	}
	name := ""
	constant := false
	for p.cur().kind == tokIdent {
		switch p.cur().text {
		case "constant", "immutable":
			constant = true
			p.next()
		case "public", "private", "internal", "override", "payable", "memory", "storage":
			p.next()
		default:
			name = p.next().text
		}
		if p.cur().kind != tokIdent {
			break
		}
	}
	d := &DeclStmt{Var: Variable{Name: name, Type: et, Line: line}, Constant: constant, Line: line}
	if p.accept("=") {
		d.Value = p.parseExpr()
	}
	p.skipToStmtEnd()
	return d
}

func (p *parser) parseFunction() *Function {
	start := p.cur().line
	kw := p.next().text
	fn := &Function{StartLine: start, Name: kw}
	if kw == "function" && p.cur().kind == tokIdent {
		fn.Name = p.next().text
	}
	if p.cur().text == "(" {
		fn.Params = p.parseParamList()
	}
	// header modifiers until body or ';'
	for {
		t := p.cur()
		if t.kind == tokEOF || t.text == "{" || t.text == ";" {
			break
		}
		switch t.text {
		case "public", "external", "internal", "private":
			fn.Visibility = p.next().text
		case "view", "pure", "payable":
			fn.Mutability = p.next().text
		case "returns":
			p.next()
			if p.cur().text == "(" {
				fn.Returns = p.parseParamList()
			}
		case "override", "virtual":
			p.next()
			if p.cur().text == "(" {
				p.skipBalanced("(", ")")
			}
		default:
			if t.kind == tokIdent {
				fn.Modifiers = append(fn.Modifiers, p.next().text)
				if p.cur().text == "(" {
					p.skipBalanced("(", ")")
				}
			} else {
				p.next()
			}
		}
	}
	if p.accept("{") {
		fn.HasBody = true
		fn.Body = p.parseBlockBody()
	} else {
		p.accept(";")
	}
	fn.EndLine = p.toks[max(p.pos-1, 0)].line
	return fn
}

func (p *parser) parseParamList() []Variable {
	var out []Variable
	p.accept("(")
	for p.cur().kind != tokEOF && p.cur().text != ")" {
		line := p.cur().line
		et := ElemType{Kind: KindUnknown}
		if p.cur().kind == tokIdent {
			et = ParseType(p.next().text)
		} else {
			p.next()
		}
		// skip location and array/calldata decorations
		name := ""
		for p.cur().text != "," && p.cur().text != ")" && p.cur().kind != tokEOF {
			t := p.cur()
			switch t.text {
			case "memory", "calldata", "storage", "payable", "indexed":
				p.next()
			case "[":
				et = ElemType{Kind: KindUnknown}
				p.skipBalanced("[", "]")
			default:
				if t.kind == tokIdent {
					name = p.next().text
				} else {
					p.next()
				}
			}
		}
		out = append(out, Variable{Name: name, Type: et, Line: line})
		p.accept(",")
	}
	p.accept(")")
	return out
}

// parseBlockBody parses statements until the matching '}'.
func (p *parser) parseBlockBody() []Stmt {
	var out []Stmt
	for p.cur().kind != tokEOF && p.cur().text != "}" {
		if s := p.parseStmt(); s != nil {
			out = append(out, s)
		}
	}
	p.accept("}")
	return out
}

func (p *parser) parseStmt() Stmt {
	t := p.cur()
	line := t.line
	switch t.text {
	case "{":
		p.next()
		return &BlockStmt{Body: p.parseBlockBody(), Line: line}
	case "unchecked":
		p.next()
		if p.accept("{") {
			return &BlockStmt{Body: p.parseBlockBody(), Line: line}
		}
		return &UnknownStmt{Text: "unchecked", Line: line}
	case "if":
		return p.parseIf()
	case "for":
		return p.parseFor()
	case "while":
		return p.parseWhile()
	case "require", "assert":
		p.next()
		st := &RequireStmt{Assert: t.text == "assert", Line: line}
		if p.accept("(") {
			st.Cond = p.parseExpr()
			// optional revert message
			if p.accept(",") {
				p.parseExpr()
			}
			p.accept(")")
		}
		p.accept(";")
		return st
	case "return":
		p.next()
		st := &ReturnStmt{Line: line}
		if p.cur().text != ";" {
			st.Value = p.parseExpr()
		}
		p.accept(";")
		return st
	case "emit", "revert", "delete", "continue", "break", "do", "try", "assembly":
		txt := p.skipToStmtEnd()
		return &UnknownStmt{Text: txt, Line: line}
	}
	// declaration: elementary type token followed by an identifier
	if t.kind == tokIdent {
		if et := ParseType(t.text); et.Kind != KindUnknown && p.peek().kind == tokIdent {
			p.next()
			name := p.next().text
			d := &DeclStmt{Var: Variable{Name: name, Type: et, Line: line}, Line: line}
			if p.accept("=") {
				d.Value = p.parseExpr()
			}
			p.accept(";")
			return d
		}
	}
	// tuple declaration `(bool ok, ) = <expr>;`
	if t.text == "(" {
		save := p.pos
		if d := p.tryTupleDecl(line); d != nil {
			return d
		}
		p.pos = save
	}
	// assignment or expression statement
	save := p.pos
	lhs := p.parseExpr()
	if lhs == nil {
		p.pos = save
		txt := p.skipToStmtEnd()
		return &UnknownStmt{Text: txt, Line: line}
	}
	switch op := p.cur().text; op {
	case "=", "+=", "-=", "*=", "/=", "%=":
		p.next()
		rhs := p.parseExpr()
		p.accept(";")
		return &AssignStmt{Target: lhs, Op: op, Value: rhs, Line: line}
	case "++", "--":
		p.next()
		p.accept(";")
		aop := "+="
		if op == "--" {
			aop = "-="
		}
		return &AssignStmt{Target: lhs, Op: aop, Value: &Literal{Value: big.NewInt(1)}, Line: line}
	default:
		p.accept(";")
		return &ExprStmt{X: lhs, Line: line}
	}
}

// tryTupleDecl handles `(bool ok, ) = rhs;`, binding the first declared
// name; returns nil when the shape doesn't match.
func (p *parser) tryTupleDecl(line int) Stmt {
	p.accept("(")
	var first *Variable
	for p.cur().kind != tokEOF && p.cur().text != ")" {
		if p.cur().kind == tokIdent {
			et := ParseType(p.cur().text)
			if et.Kind != KindUnknown && p.peek().kind == tokIdent {
				p.next()
				name := p.next().text
				if first == nil {
					first = &Variable{Name: name, Type: et, Line: line}
				}
				continue
			}
		}
		if p.cur().text == "," {
			p.next()
			continue
		}
		return nil
	}
	p.accept(")")
	if first == nil || !p.accept("=") {
		return nil
	}
	rhs := p.parseExpr()
	p.accept(";")
	return &DeclStmt{Var: *first, Value: rhs, Line: line}
}

func (p *parser) parseIf() Stmt {
	line := p.cur().line
	p.next() // if
	st := &IfStmt{Line: line}
	if p.accept("(") {
		st.Cond = p.parseExpr()
		p.accept(")")
	}
	st.Then = p.parseBranchBody()
	if p.accept("else") {
		if p.cur().text == "if" {
			st.Else = []Stmt{p.parseIf()}
		} else {
			st.Else = p.parseBranchBody()
		}
	}
	return st
}

func (p *parser) parseBranchBody() []Stmt {
	if p.accept("{") {
		return p.parseBlockBody()
	}
	if s := p.parseStmt(); s != nil {
		return []Stmt{s}
	}
	return nil
}

func (p *parser) parseFor() Stmt {
	line := p.cur().line
	p.next() // for
	st := &ForStmt{Line: line}
	if p.accept("(") {
		if !p.accept(";") {
			st.Init = p.parseStmt() // consumes its ';'
		}
		if p.cur().text != ";" {
			st.Cond = p.parseExpr()
		}
		p.accept(";")
		if p.cur().text != ")" {
			st.Post = p.parsePostClause()
		}
		p.accept(")")
	}
	st.Body = p.parseBranchBody()
	return st
}

// parsePostClause parses the `i++` / `i += 1` clause of a for header.
func (p *parser) parsePostClause() Stmt {
	line := p.cur().line
	lhs := p.parseExpr()
	if lhs == nil {
		return nil
	}
	switch op := p.cur().text; op {
	case "=", "+=", "-=", "*=", "/=", "%=":
		p.next()
		rhs := p.parseExpr()
		return &AssignStmt{Target: lhs, Op: op, Value: rhs, Line: line}
	case "++", "--":
		p.next()
		aop := "+="
		if op == "--" {
			aop = "-="
		}
		return &AssignStmt{Target: lhs, Op: aop, Value: &Literal{Value: big.NewInt(1)}, Line: line}
	}
	return &ExprStmt{X: lhs, Line: line}
}

func (p *parser) parseWhile() Stmt {
	line := p.cur().line
	p.next() // while
	st := &WhileStmt{Line: line}
	if p.accept("(") {
		st.Cond = p.parseExpr()
		p.accept(")")
	}
	st.Body = p.parseBranchBody()
	return st
}
