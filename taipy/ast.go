package taipy

import (
	"errors"
	"fmt"
)

type Pos struct {
	Line int
	Col  int
}

func (p Pos) Position() Pos {
	return p
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

var ErrSource = errors.New("source error")

// SourceError is a parse or type error located in the snippet.
type SourceError struct {
	Pos Pos
	Msg string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%v: %s", e.Pos, e.Msg)
}

func (e *SourceError) Unwrap() error {
	return ErrSource
}

func errorAt(pos Pos, format string, args ...any) error {
	return &SourceError{
		Pos: pos,
		Msg: fmt.Sprintf(format, args...),
	}
}

type Node interface {
	Position() Pos
}

type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	Type() Type
	setType(Type)
}

type TypeRef struct {
	Pos
	Name string
}

type VarDef struct {
	Pos
	Name  string
	Decl  TypeRef
	Value Expr
}

type Assign struct {
	Pos
	Target Expr
	Value  Expr
}

type ExprStmt struct {
	Pos
	X Expr
}

type If struct {
	Pos
	Cond Expr
	Then []Stmt
	Else []Stmt
}

type While struct {
	Pos
	Cond Expr
	Body []Stmt
}

type For struct {
	Pos
	Var  *Name
	Iter Expr
	Body []Stmt
	// set by the checker
	Class *ClassInfo
}

type Return struct {
	Pos
	Value Expr
}

type Pass struct {
	Pos
}

type Global struct {
	Pos
	Name string
}

type Param struct {
	Pos
	Name string
	Decl TypeRef
}

type FuncDef struct {
	Pos
	Name   string
	Params []Param
	Result *TypeRef
	Body   []Stmt
	// set by the checker
	Info   *FuncInfo
	Locals []LocalVar
}

// LocalVar is a function local other than a parameter.
type LocalVar struct {
	Name string
	Type Type
	Init Expr
}

type ClassDef struct {
	Pos
	Name    string
	Super   string
	Fields  []*VarDef
	Methods []*FuncDef
	// set by the checker
	Info *ClassInfo
}

func (*VarDef) stmtNode()   {}
func (*Assign) stmtNode()   {}
func (*ExprStmt) stmtNode() {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}
func (*For) stmtNode()      {}
func (*Return) stmtNode()   {}
func (*Pass) stmtNode()     {}
func (*Global) stmtNode()   {}
func (*FuncDef) stmtNode()  {}
func (*ClassDef) stmtNode() {}

type exprBase struct {
	Pos
	typ Type
}

func (e *exprBase) Type() Type {
	return e.typ
}

func (e *exprBase) setType(t Type) {
	e.typ = t
}

type IntLit struct {
	exprBase
	Value int64
}

type BoolLit struct {
	exprBase
	Value bool
}

type NoneLit struct {
	exprBase
}

type StrLit struct {
	exprBase
	Value string
}

type Name struct {
	exprBase
	Name string
	// set by the checker
	Local bool
}

type Unary struct {
	exprBase
	Op string
	X  Expr
}

type Binary struct {
	exprBase
	Op string
	X  Expr
	Y  Expr
}

// Call is a call of a function, builtin or class by name.
type Call struct {
	exprBase
	Func string
	Args []Expr
	// set by the checker
	Target  *FuncInfo
	Class   *ClassInfo
	Builtin string
}

type MethodCall struct {
	exprBase
	Recv   Expr
	Method string
	Args   []Expr
	// set by the checker
	Target *FuncInfo
}

type Attr struct {
	exprBase
	X    Expr
	Name string
	// set by the checker
	Index int
}

func isLiteral(e Expr) bool {
	switch e.(type) {
	case *IntLit, *BoolLit, *NoneLit, *StrLit:
		return true
	}
	return false
}
