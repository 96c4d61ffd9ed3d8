package taipy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reusee/tairepl/taibind"
	"github.com/reusee/tairepl/taiword"
)

var ErrUnboundGlobal = errors.New("unbound global")

// HostFunc describes a host function called by generated code.
type HostFunc struct {
	Name      string
	NumParams int
}

const (
	IntrinsicModule = "imports"
	RuntimeModule   = "runtime"
	MemoryModule    = "js"
	MemoryName      = "memory"
	EntryName       = "exported_func"
	LastLocal       = "$last"
)

// Intrinsics are the caller supplied imports, in import order. All take and return tagged words.
var Intrinsics = []HostFunc{
	{"print_num", 1},
	{"print_bool", 1},
	{"print_none", 1},
	{"print_str", 1},
	{"abs", 1},
	{"min", 2},
	{"max", 2},
	{"pow", 2},
}

// RuntimeFuncs are imports implemented by the session.
// Like the intrinsics they take and return tagged words only: lengths, class ids
// and field counts are passed as tagged ints, never as raw i32 values.
var RuntimeFuncs = []HostFunc{
	{"alloc_text", 1},
	{"alloc_object", 2},
	{"concat_text", 2},
	{"print_obj", 1},
	{"check_none", 1},
	{"floordiv", 2},
	{"mod", 2},
	{"text_len", 1},
}

// RuntimeSymbol is the function id of a runtime import in module text.
func RuntimeSymbol(name string) string {
	return "rt." + name
}

// Code is the generated module text of a snippet.
type Code struct {
	// new function definitions
	Funcs string
	// the entry function
	Main string
	Type Type
}

// Generate emits module text for prog. New globals take the slots at slotBase, slotBase+4, ...
// in declaration order and are appended to bindings.
func Generate(prog *Program, bindings *taibind.Table, slotBase uint32) (*Code, *taibind.Table, error) {
	table := bindings
	for i, def := range prog.Globals {
		table, _ = table.Extend(def.Name, slotBase+uint32(i)*taiword.Size, def.Type)
	}
	g := &generator{
		bindings: table,
	}

	code := &Code{
		Type: prog.Type,
	}
	var funcs strings.Builder
	for _, def := range prog.Funcs {
		text, err := g.function(def)
		if err != nil {
			return nil, nil, err
		}
		funcs.WriteString(text)
	}
	code.Funcs = funcs.String()

	main, err := g.main(prog)
	if err != nil {
		return nil, nil, err
	}
	code.Main = main

	return code, table, nil
}

type generator struct {
	bindings *taibind.Table
}

type funcGen struct {
	*generator
	buf    strings.Builder
	depth  int
	temps  int
	locals []string
	top    bool
}

func (f *funcGen) emit(format string, args ...any) {
	for range f.depth + 1 {
		f.buf.WriteString("  ")
	}
	fmt.Fprintf(&f.buf, format, args...)
	f.buf.WriteByte('\n')
}

func (f *funcGen) temp() string {
	name := fmt.Sprintf("$t%d", f.temps)
	f.temps++
	f.locals = append(f.locals, name)
	return "$" + name
}

func (f *funcGen) open(format string, args ...any) {
	f.emit(format, args...)
	f.depth++
}

func (f *funcGen) close() {
	f.depth--
	f.emit("end")
}

func zeroWord(t Type) taiword.Word {
	switch t.Kind {
	case taiword.KindInt:
		return taiword.FromInt(0)
	case taiword.KindBool:
		return taiword.False
	}
	return taiword.None
}

func (f *funcGen) word(w taiword.Word) {
	f.emit("i32.const %d", int32(w))
}

func (f *funcGen) header(buf *strings.Builder, head string, locals []string) {
	buf.WriteString(head)
	buf.WriteByte('\n')
	for _, name := range locals {
		fmt.Fprintf(buf, "  (local $%s i32)\n", name)
	}
}

func (g *generator) function(def *FuncDef) (string, error) {
	f := &funcGen{
		generator: g,
	}
	for _, local := range def.Locals {
		f.locals = append(f.locals, local.Name)
		if local.Init != nil {
			if err := f.expr(local.Init); err != nil {
				return "", err
			}
		} else {
			f.word(zeroWord(local.Type))
		}
		f.emit("local.set $%s", local.Name)
	}
	if err := f.stmts(def.Body); err != nil {
		return "", err
	}
	f.word(zeroWord(def.Info.Result))

	var head strings.Builder
	fmt.Fprintf(&head, "(func $%s", def.Info.Symbol)
	for _, name := range def.Info.ParamNames {
		fmt.Fprintf(&head, " (param $%s i32)", name)
	}
	head.WriteString(" (result i32)")

	var buf strings.Builder
	f.header(&buf, head.String(), f.locals)
	buf.WriteString(f.buf.String())
	buf.WriteString(")\n")
	return buf.String(), nil
}

func (g *generator) main(prog *Program) (string, error) {
	f := &funcGen{
		generator: g,
		locals:    []string{LastLocal},
		top:       true,
	}

	for _, def := range prog.Globals {
		b, ok := g.bindings.Lookup(def.Name)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnboundGlobal, def.Name)
		}
		f.emit("i32.const %d", b.Addr)
		if def.Init != nil {
			if err := f.expr(def.Init); err != nil {
				return "", err
			}
		} else {
			f.word(zeroWord(def.Type))
		}
		f.emit("i32.store")
	}

	if err := f.stmts(prog.Stmts); err != nil {
		return "", err
	}

	head := fmt.Sprintf(`(func $%s (export %q)`, EntryName, EntryName)
	if prog.Type != NoneT {
		head += " (result i32)"
		f.emit("local.get $%s", LastLocal)
	}

	var buf strings.Builder
	f.header(&buf, head, f.locals)
	buf.WriteString(f.buf.String())
	buf.WriteString(")\n")
	return buf.String(), nil
}

func (f *funcGen) stmts(stmts []Stmt) error {
	for _, stmt := range stmts {
		if err := f.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (f *funcGen) nested(stmts []Stmt) error {
	top := f.top
	f.top = false
	defer func() {
		f.top = top
	}()
	return f.stmts(stmts)
}

// cond leaves 1 or 0 for a bool expression.
func (f *funcGen) cond(e Expr) error {
	if err := f.expr(e); err != nil {
		return err
	}
	f.emit("i32.const 1")
	f.emit("i32.shr_u")
	return nil
}

func (f *funcGen) global(name string) (taibind.Binding, error) {
	b, ok := f.bindings.Lookup(name)
	if !ok {
		return b, fmt.Errorf("%w: %s", ErrUnboundGlobal, name)
	}
	return b, nil
}

// store assigns the result of value to a variable.
func (f *funcGen) store(name *Name, value func() error) error {
	if name.Local {
		if err := value(); err != nil {
			return err
		}
		f.emit("local.set $%s", name.Name)
		return nil
	}
	b, err := f.global(name.Name)
	if err != nil {
		return err
	}
	f.emit("i32.const %d", b.Addr)
	if err := value(); err != nil {
		return err
	}
	f.emit("i32.store")
	return nil
}

func (f *funcGen) stmt(stmt Stmt) error {
	switch stmt := stmt.(type) {

	case *Pass, *Global, *VarDef:
		return nil

	case *ExprStmt:
		if err := f.expr(stmt.X); err != nil {
			return err
		}
		if f.top {
			f.emit("local.set $%s", LastLocal)
		} else {
			f.emit("drop")
		}
		return nil

	case *Assign:
		switch target := stmt.Target.(type) {
		case *Name:
			return f.store(target, func() error {
				return f.expr(stmt.Value)
			})
		case *Attr:
			if err := f.ref(target.X); err != nil {
				return err
			}
			if err := f.expr(stmt.Value); err != nil {
				return err
			}
			f.emit("i32.store offset=%d", taiword.FieldOffset(target.Index))
			return nil
		}

	case *If:
		if err := f.cond(stmt.Cond); err != nil {
			return err
		}
		f.open("if")
		if err := f.nested(stmt.Then); err != nil {
			return err
		}
		if len(stmt.Else) > 0 {
			f.depth--
			f.emit("else")
			f.depth++
			if err := f.nested(stmt.Else); err != nil {
				return err
			}
		}
		f.close()
		return nil

	case *While:
		f.open("block")
		f.open("loop")
		if err := f.cond(stmt.Cond); err != nil {
			return err
		}
		f.emit("i32.eqz")
		f.emit("br_if 1")
		if err := f.nested(stmt.Body); err != nil {
			return err
		}
		f.emit("br 0")
		f.close()
		f.close()
		return nil

	case *For:
		iter := f.temp()
		if err := f.expr(stmt.Iter); err != nil {
			return err
		}
		f.emit("local.set %s", iter)
		hasNext := stmt.Class.Methods["has_next"]
		next := stmt.Class.Methods["next"]
		f.open("block")
		f.open("loop")
		f.emit("local.get %s", iter)
		f.emit("call $%s", hasNext.Symbol)
		f.emit("i32.const 1")
		f.emit("i32.shr_u")
		f.emit("i32.eqz")
		f.emit("br_if 1")
		if err := f.store(stmt.Var, func() error {
			f.emit("local.get %s", iter)
			f.emit("call $%s", next.Symbol)
			return nil
		}); err != nil {
			return err
		}
		if err := f.nested(stmt.Body); err != nil {
			return err
		}
		f.emit("br 0")
		f.close()
		f.close()
		return nil

	case *Return:
		if stmt.Value != nil {
			if err := f.expr(stmt.Value); err != nil {
				return err
			}
		} else {
			f.word(taiword.None)
		}
		f.emit("return")
		return nil

	}
	return errorAt(stmt.Position(), "cannot generate code for %T", stmt)
}

// ref evaluates an object expression and traps if it is None.
func (f *funcGen) ref(e Expr) error {
	if err := f.expr(e); err != nil {
		return err
	}
	f.emit("call $%s", RuntimeSymbol("check_none"))
	return nil
}

// boolify turns a raw 0 or 1 into a tagged bool.
func (f *funcGen) boolify() {
	f.emit("i32.const 1")
	f.emit("i32.shl")
	f.emit("i32.const 1")
	f.emit("i32.or")
}

func (f *funcGen) untag() {
	f.emit("i32.const 1")
	f.emit("i32.shr_s")
}

func (f *funcGen) expr(e Expr) error {
	switch e := e.(type) {

	case *IntLit:
		f.word(taiword.FromInt(e.Value))

	case *BoolLit:
		f.word(taiword.FromBool(e.Value))

	case *NoneLit:
		f.word(taiword.None)

	case *StrLit:
		f.text(e.Value)

	case *Name:
		if e.Local {
			f.emit("local.get $%s", e.Name)
			return nil
		}
		b, err := f.global(e.Name)
		if err != nil {
			return err
		}
		f.emit("i32.const %d", b.Addr)
		f.emit("i32.load")

	case *Unary:
		switch e.Op {
		case "-":
			f.emit("i32.const 2")
			if err := f.expr(e.X); err != nil {
				return err
			}
			f.emit("i32.sub")
		case "not":
			if err := f.expr(e.X); err != nil {
				return err
			}
			f.emit("i32.const 2")
			f.emit("i32.xor")
		}

	case *Binary:
		return f.binary(e)

	case *Call:
		return f.call(e)

	case *MethodCall:
		if err := f.ref(e.Recv); err != nil {
			return err
		}
		for _, arg := range e.Args {
			if err := f.expr(arg); err != nil {
				return err
			}
		}
		f.emit("call $%s", e.Target.Symbol)

	case *Attr:
		if err := f.ref(e.X); err != nil {
			return err
		}
		f.emit("i32.load offset=%d", taiword.FieldOffset(e.Index))

	default:
		return errorAt(e.Position(), "cannot generate code for %T", e)
	}
	return nil
}

// text allocates a text block and fills it word by word.
func (f *funcGen) text(s string) {
	t := f.temp()
	f.word(taiword.FromInt(int64(len(s))))
	f.emit("call $%s", RuntimeSymbol("alloc_text"))
	f.emit("local.set %s", t)
	var word [4]byte
	for i := 0; i < len(s); i += 4 {
		clear(word[:])
		copy(word[:], s[i:])
		f.emit("local.get %s", t)
		f.emit("i32.const %d", int32(binary.LittleEndian.Uint32(word[:])))
		f.emit("i32.store offset=%d", taiword.TextDataOffset+i)
	}
	f.emit("local.get %s", t)
}

func (f *funcGen) binary(e *Binary) error {
	switch e.Op {
	case "and", "or":
		t := f.temp()
		if err := f.expr(e.X); err != nil {
			return err
		}
		f.emit("local.tee %s", t)
		f.emit("i32.const 1")
		f.emit("i32.shr_u")
		if e.Op == "or" {
			f.emit("i32.eqz")
		}
		f.open("if")
		if err := f.expr(e.Y); err != nil {
			return err
		}
		f.emit("local.set %s", t)
		f.close()
		f.emit("local.get %s", t)
		return nil
	}

	if err := f.expr(e.X); err != nil {
		return err
	}
	if e.Op == "*" {
		f.untag()
	}
	if err := f.expr(e.Y); err != nil {
		return err
	}

	switch e.Op {
	case "+":
		if e.Type() == Str {
			f.emit("call $%s", RuntimeSymbol("concat_text"))
			return nil
		}
		f.emit("i32.add")
		f.emit("i32.const 1")
		f.emit("i32.sub")
	case "-":
		f.emit("i32.sub")
		f.emit("i32.const 1")
		f.emit("i32.add")
	case "*":
		f.untag()
		f.emit("i32.mul")
		f.emit("i32.const 1")
		f.emit("i32.shl")
		f.emit("i32.const 1")
		f.emit("i32.or")
	case "//":
		f.emit("call $%s", RuntimeSymbol("floordiv"))
	case "%":
		f.emit("call $%s", RuntimeSymbol("mod"))
	case "==", "is":
		f.emit("i32.eq")
		f.boolify()
	case "!=":
		f.emit("i32.ne")
		f.boolify()
	case "<":
		f.emit("i32.lt_s")
		f.boolify()
	case "<=":
		f.emit("i32.le_s")
		f.boolify()
	case ">":
		f.emit("i32.gt_s")
		f.boolify()
	case ">=":
		f.emit("i32.ge_s")
		f.boolify()
	default:
		return errorAt(e.Pos, "cannot generate code for operator %s", e.Op)
	}
	return nil
}

func printer(t Type) string {
	switch t.Kind {
	case taiword.KindInt:
		return "print_num"
	case taiword.KindBool:
		return "print_bool"
	case taiword.KindText:
		return "print_str"
	case taiword.KindObject:
		return RuntimeSymbol("print_obj")
	}
	return "print_none"
}

func (f *funcGen) call(e *Call) error {
	if e.Class != nil {
		return f.construct(e)
	}
	for _, arg := range e.Args {
		if err := f.expr(arg); err != nil {
			return err
		}
	}
	switch e.Builtin {
	case "":
		f.emit("call $%s", e.Target.Symbol)
	case "print":
		f.emit("call $%s", printer(e.Args[0].Type()))
	case "len":
		f.emit("call $%s", RuntimeSymbol("text_len"))
	default:
		f.emit("call $%s", e.Builtin)
	}
	return nil
}

func (f *funcGen) construct(e *Call) error {
	class := e.Class
	obj := f.temp()
	f.word(taiword.FromInt(class.ID))
	f.word(taiword.FromInt(int64(len(class.Fields))))
	f.emit("call $%s", RuntimeSymbol("alloc_object"))
	f.emit("local.set %s", obj)
	for i, field := range class.Fields {
		if _, ok := field.Init.(*NoneLit); ok {
			continue
		}
		f.emit("local.get %s", obj)
		if err := f.expr(field.Init); err != nil {
			return err
		}
		f.emit("i32.store offset=%d", taiword.FieldOffset(i))
	}
	if e.Target != nil {
		f.emit("local.get %s", obj)
		f.emit("call $%s", e.Target.Symbol)
		f.emit("drop")
	}
	f.emit("local.get %s", obj)
	return nil
}

// Symbol returns the module function id of the gen-th definition of a function.
func Symbol(name string, gen int) string {
	if gen == 0 {
		return name
	}
	return name + "$" + strconv.Itoa(gen)
}
