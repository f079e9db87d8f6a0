// Package solidity contains a lightweight Solidity front end: a tolerant
// tokenizer/parser producing a typed AST, and a control-flow graph
// builder over function bodies. It is deliberately tolerant: anything it
// cannot parse becomes an opaque statement the analysis treats
// conservatively. It makes no attempt to replace solc.
package solidity

import "math/big"

type TypeKind int

const (
	KindUnknown TypeKind = iota
	KindUint
	KindInt
	KindBool
	KindAddress
)

// ElemType is a declared elementary type. Bits is the declared width for
// integer kinds (256 when elided).
type ElemType struct {
	Kind TypeKind
	Bits int
}

func (t ElemType) Signed() bool  { return t.Kind == KindInt }
func (t ElemType) Numeric() bool { return t.Kind == KindUint || t.Kind == KindInt }

type Variable struct {
	Name string
	Type ElemType
	Line int
}

// BinOp enumerates binary operators as a closed set; the transfer
// functions dispatch over it exhaustively.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpExp
	OpShl
	OpShr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
)

var binOpNames = map[BinOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpExp: "**",
	OpShl: "<<", OpShr: ">>", OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=", OpEq: "==", OpNe: "!=",
	OpAnd: "&&", OpOr: "||",
}

func (op BinOp) String() string { return binOpNames[op] }

// Expressions.

type Expr interface{ exprNode() }

type Ident struct{ Name string }

type Literal struct{ Value *big.Int }

type Binary struct {
	Op          BinOp
	Left, Right Expr
}

type Unary struct {
	Op string // "-", "!", "~"
	X  Expr
}

// Call is a function or method invocation. Target is nil for plain
// calls; for member calls (token.transfer(...)) it is the receiver.
type Call struct {
	Target Expr
	Name   string
	Args   []Expr
}

type Member struct {
	X     Expr
	Field string
}

type Index struct {
	X   Expr
	Key Expr
}

func (*Ident) exprNode()   {}
func (*Literal) exprNode() {}
func (*Binary) exprNode()  {}
func (*Unary) exprNode()   {}
func (*Call) exprNode()    {}
func (*Member) exprNode()  {}
func (*Index) exprNode()   {}

// Statements.

type Stmt interface {
	stmtNode()
	Pos() int
}

type DeclStmt struct {
	Var      Variable
	Value    Expr // nil when uninitialized
	Constant bool // state vars declared constant or immutable
	Line     int
}

type AssignStmt struct {
	Target Expr
	Op     string // "=", "+=", "-=", "*=", "/=", "%="
	Value  Expr
	Line   int
}

type RequireStmt struct {
	Cond   Expr
	Assert bool
	Line   int
}

type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Line int
}

type ForStmt struct {
	Init Stmt // nil allowed
	Cond Expr
	Post Stmt
	Body []Stmt
	Line int
}

type WhileStmt struct {
	Cond Expr
	Body []Stmt
	Line int
}

type ReturnStmt struct {
	Value Expr // nil for bare return
	Line  int
}

type ExprStmt struct {
	X    Expr
	Line int
}

// BlockStmt is a nested plain block (including unchecked blocks).
type BlockStmt struct {
	Body []Stmt
	Line int
}

// UnknownStmt is anything the parser could not model. The analysis
// treats it as an unmodeled construct and degrades to Top for whatever
// it may write.
type UnknownStmt struct {
	Text string
	Line int
}

func (s *DeclStmt) stmtNode()    {}
func (s *AssignStmt) stmtNode()  {}
func (s *RequireStmt) stmtNode() {}
func (s *IfStmt) stmtNode()      {}
func (s *ForStmt) stmtNode()     {}
func (s *WhileStmt) stmtNode()   {}
func (s *ReturnStmt) stmtNode()  {}
func (s *ExprStmt) stmtNode()    {}
func (s *BlockStmt) stmtNode()   {}
func (s *UnknownStmt) stmtNode() {}

func (s *DeclStmt) Pos() int    { return s.Line }
func (s *AssignStmt) Pos() int  { return s.Line }
func (s *RequireStmt) Pos() int { return s.Line }
func (s *IfStmt) Pos() int      { return s.Line }
func (s *ForStmt) Pos() int     { return s.Line }
func (s *WhileStmt) Pos() int   { return s.Line }
func (s *ReturnStmt) Pos() int  { return s.Line }
func (s *ExprStmt) Pos() int    { return s.Line }
func (s *BlockStmt) Pos() int   { return s.Line }
func (s *UnknownStmt) Pos() int { return s.Line }

type Function struct {
	Name       string
	Visibility string // public, external, internal, private
	Mutability string // "", view, pure, payable
	Modifiers  []string
	Params     []Variable
	Returns    []Variable
	Body       []Stmt
	HasBody    bool
	StartLine  int
	EndLine    int
}

// Signature renders name(type,type,...) using canonical elementary type
// names; non-elementary parameter types render as their source text.
func (f *Function) Signature() string {
	sig := f.Name + "("
	for i, p := range f.Params {
		if i > 0 {
			sig += ","
		}
		sig += typeName(p.Type)
	}
	return sig + ")"
}

func typeName(t ElemType) string {
	switch t.Kind {
	case KindUint:
		return "uint" + itoa(t.Bits)
	case KindInt:
		return "int" + itoa(t.Bits)
	case KindBool:
		return "bool"
	case KindAddress:
		return "address"
	default:
		return "?"
	}
}

func itoa(n int) string {
	if n == 0 {
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

type Contract struct {
	Name      string
	Kind      string // contract, library, interface, abstract
	Base      []string
	StateVars []*DeclStmt
	Functions []*Function
	StartLine int
}

type Unit struct {
	File      string
	Contracts []*Contract
}
