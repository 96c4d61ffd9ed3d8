package taipy

import (
	"github.com/reusee/tairepl/taiword"
)

// GlobalDef is a global variable introduced by a snippet.
type GlobalDef struct {
	Name string
	Type Type
	// nil for implicitly declared loop variables
	Init Expr
}

// Program is a type-checked snippet.
type Program struct {
	Stmts   []Stmt
	Funcs   []*FuncDef
	Classes []*ClassDef
	Globals []GlobalDef
	// type of the trailing expression statement, None otherwise
	Type Type
}

var reservedNames = map[string]bool{
	"print":         true,
	"abs":           true,
	"min":           true,
	"max":           true,
	"pow":           true,
	"len":           true,
	"print_num":     true,
	"print_bool":    true,
	"print_none":    true,
	"print_str":     true,
	"exported_func": true,
	"int":           true,
	"bool":          true,
	"str":           true,
	"object":        true,
}

type checker struct {
	env      *TypeEnv
	prog     *Program
	declared map[string]bool
	scope    *funcScope
}

type funcScope struct {
	def     *FuncDef
	info    *FuncInfo
	locals  map[string]Type
	globals map[string]bool
}

// Check parses and type-checks src against prior. prior is never modified;
// the returned environment includes every definition of the snippet.
func Check(prior *TypeEnv, src string) (*Program, *TypeEnv, error) {
	stmts, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}
	c := &checker{
		env: prior.Clone(),
		prog: &Program{
			Type: NoneT,
		},
		declared: make(map[string]bool),
	}
	if err := c.check(stmts); err != nil {
		return nil, nil, err
	}
	return c.prog, c.env, nil
}

func (c *checker) check(stmts []Stmt) error {
	var classes []*ClassDef
	var funcs []*FuncDef
	var vars []*VarDef
	for _, stmt := range stmts {
		switch stmt := stmt.(type) {
		case *ClassDef:
			classes = append(classes, stmt)
		case *FuncDef:
			funcs = append(funcs, stmt)
		case *VarDef:
			vars = append(vars, stmt)
		}
	}

	for _, def := range classes {
		if err := c.declareClass(def); err != nil {
			return err
		}
	}
	for _, def := range classes {
		if err := c.declareMembers(def); err != nil {
			return err
		}
	}
	seen := make(map[string]bool)
	for _, def := range funcs {
		if seen[def.Name] {
			return errorAt(def.Pos, "duplicate definition of function %s", def.Name)
		}
		seen[def.Name] = true
		if err := c.declareFunc(def); err != nil {
			return err
		}
	}
	for _, def := range vars {
		if err := c.declareGlobal(def); err != nil {
			return err
		}
	}

	for _, stmt := range stmts {
		switch stmt.(type) {
		case *ClassDef, *FuncDef, *VarDef:
			continue
		}
		if err := c.stmt(stmt); err != nil {
			return err
		}
		c.prog.Stmts = append(c.prog.Stmts, stmt)
	}
	if len(stmts) > 0 {
		if stmt, ok := stmts[len(stmts)-1].(*ExprStmt); ok {
			c.prog.Type = stmt.X.Type()
		}
	}

	for _, def := range classes {
		for _, method := range def.Methods {
			if err := c.funcBody(method); err != nil {
				return err
			}
		}
	}
	for _, def := range funcs {
		if err := c.funcBody(def); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) declareClass(def *ClassDef) error {
	if reservedNames[def.Name] || def.Name == "None" {
		return errorAt(def.Pos, "%s is a reserved name", def.Name)
	}
	if c.env.HasClass(def.Name) {
		return errorAt(def.Pos, "class %s is already defined", def.Name)
	}
	if def.Super != "" && def.Super != "object" {
		return errorAt(def.Pos, "inheritance from %s is not supported", def.Super)
	}
	info := &ClassInfo{
		Name:    def.Name,
		ID:      c.env.NextClassID,
		Methods: make(map[string]*FuncInfo),
	}
	c.env.NextClassID++
	c.env.Classes[def.Name] = info
	def.Info = info
	c.prog.Classes = append(c.prog.Classes, def)
	return nil
}

func (c *checker) declareMembers(def *ClassDef) error {
	info := def.Info
	self := taiword.ObjectType(def.Name)

	for _, field := range def.Fields {
		if i, _ := info.Field(field.Name); i >= 0 {
			return errorAt(field.Pos, "duplicate attribute %s", field.Name)
		}
		t, err := c.env.resolve(field.Decl)
		if err != nil {
			return err
		}
		if err := c.literalInit(field, t); err != nil {
			return err
		}
		info.Fields = append(info.Fields, FieldInfo{
			Name: field.Name,
			Type: t,
			Init: field.Value,
		})
	}

	for _, method := range def.Methods {
		if _, ok := info.Methods[method.Name]; ok {
			return errorAt(method.Pos, "duplicate method %s", method.Name)
		}
		if i, _ := info.Field(method.Name); i >= 0 {
			return errorAt(method.Pos, "method %s conflicts with an attribute", method.Name)
		}
		fn, err := c.signature(method)
		if err != nil {
			return err
		}
		if len(fn.Params) == 0 || fn.Params[0] != self {
			return errorAt(method.Pos, "first parameter of method %s must be of type %s", method.Name, def.Name)
		}
		if method.Name == "__init__" && (len(fn.Params) != 1 || fn.Result != NoneT) {
			return errorAt(method.Pos, "__init__ must take only self and return None")
		}
		fn.Symbol = def.Name + "$" + method.Name
		fn.Method = def.Name
		info.Methods[method.Name] = fn
		method.Info = fn
		c.prog.Funcs = append(c.prog.Funcs, method)
	}
	return nil
}

func (c *checker) signature(def *FuncDef) (*FuncInfo, error) {
	fn := &FuncInfo{
		Name:   def.Name,
		Result: NoneT,
	}
	seen := make(map[string]bool)
	for _, param := range def.Params {
		if seen[param.Name] {
			return nil, errorAt(param.Pos, "duplicate parameter %s", param.Name)
		}
		seen[param.Name] = true
		t, err := c.env.resolve(param.Decl)
		if err != nil {
			return nil, err
		}
		fn.ParamNames = append(fn.ParamNames, param.Name)
		fn.Params = append(fn.Params, t)
	}
	if def.Result != nil {
		t, err := c.env.resolve(*def.Result)
		if err != nil {
			return nil, err
		}
		fn.Result = t
	}
	return fn, nil
}

func (c *checker) declareFunc(def *FuncDef) error {
	if reservedNames[def.Name] {
		return errorAt(def.Pos, "%s is a reserved name", def.Name)
	}
	if c.env.HasClass(def.Name) {
		return errorAt(def.Pos, "%s is a class", def.Name)
	}
	fn, err := c.signature(def)
	if err != nil {
		return err
	}
	gen := c.env.Gens[def.Name]
	fn.Symbol = Symbol(def.Name, gen)
	c.env.Gens[def.Name] = gen + 1
	c.env.Funcs[def.Name] = fn
	def.Info = fn
	c.prog.Funcs = append(c.prog.Funcs, def)
	return nil
}

func (c *checker) declareGlobal(def *VarDef) error {
	if reservedNames[def.Name] {
		return errorAt(def.Pos, "%s is a reserved name", def.Name)
	}
	if c.env.HasClass(def.Name) {
		return errorAt(def.Pos, "%s is a class", def.Name)
	}
	if c.declared[def.Name] {
		return errorAt(def.Pos, "duplicate declaration of %s", def.Name)
	}
	t, err := c.env.resolve(def.Decl)
	if err != nil {
		return err
	}
	if err := c.literalInit(def, t); err != nil {
		return err
	}
	c.declared[def.Name] = true
	c.env.Globals[def.Name] = t
	c.prog.Globals = append(c.prog.Globals, GlobalDef{
		Name: def.Name,
		Type: t,
		Init: def.Value,
	})
	return nil
}

func (c *checker) literalInit(def *VarDef, t Type) error {
	if !isLiteral(def.Value) {
		return errorAt(def.Value.Position(), "initializer of %s must be a literal", def.Name)
	}
	vt, err := c.expr(def.Value)
	if err != nil {
		return err
	}
	if !assignable(vt, t) {
		return errorAt(def.Value.Position(), "cannot initialize %s of type %v with %v", def.Name, t, vt)
	}
	return nil
}

func (c *checker) funcBody(def *FuncDef) error {
	scope := &funcScope{
		def:     def,
		info:    def.Info,
		locals:  make(map[string]Type),
		globals: make(map[string]bool),
	}
	for i, name := range def.Info.ParamNames {
		scope.locals[name] = def.Info.Params[i]
	}
	c.scope = scope
	defer func() {
		c.scope = nil
	}()

	for _, stmt := range def.Body {
		v, ok := stmt.(*VarDef)
		if !ok {
			continue
		}
		if _, ok := scope.locals[v.Name]; ok {
			return errorAt(v.Pos, "duplicate declaration of %s", v.Name)
		}
		t, err := c.env.resolve(v.Decl)
		if err != nil {
			return err
		}
		if err := c.literalInit(v, t); err != nil {
			return err
		}
		scope.locals[v.Name] = t
		def.Locals = append(def.Locals, LocalVar{
			Name: v.Name,
			Type: t,
			Init: v.Value,
		})
	}

	return c.block(def.Body, true)
}

func (c *checker) block(stmts []Stmt, top bool) error {
	for _, stmt := range stmts {
		switch stmt := stmt.(type) {
		case *VarDef:
			if !top {
				return errorAt(stmt.Pos, "declarations are only allowed at the start of a function or at top level")
			}
			continue
		case *FuncDef:
			return errorAt(stmt.Pos, "nested functions are not supported")
		case *ClassDef:
			return errorAt(stmt.Pos, "classes must be defined at top level")
		}
		if err := c.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) cond(e Expr) error {
	t, err := c.expr(e)
	if err != nil {
		return err
	}
	if t != Bool {
		return errorAt(e.Position(), "condition must be bool, not %v", t)
	}
	return nil
}

func (c *checker) stmt(stmt Stmt) error {
	switch stmt := stmt.(type) {

	case *Pass:
		return nil

	case *ExprStmt:
		_, err := c.expr(stmt.X)
		return err

	case *Assign:
		target, err := c.target(stmt.Target)
		if err != nil {
			return err
		}
		value, err := c.expr(stmt.Value)
		if err != nil {
			return err
		}
		if !assignable(value, target) {
			return errorAt(stmt.Pos, "cannot assign %v to %v", value, target)
		}
		return nil

	case *If:
		if err := c.cond(stmt.Cond); err != nil {
			return err
		}
		if err := c.block(stmt.Then, false); err != nil {
			return err
		}
		return c.block(stmt.Else, false)

	case *While:
		if err := c.cond(stmt.Cond); err != nil {
			return err
		}
		return c.block(stmt.Body, false)

	case *For:
		return c.forStmt(stmt)

	case *Return:
		if c.scope == nil {
			return errorAt(stmt.Pos, "return outside function")
		}
		want := c.scope.info.Result
		if stmt.Value == nil {
			if !assignable(NoneT, want) {
				return errorAt(stmt.Pos, "missing return value of type %v", want)
			}
			return nil
		}
		t, err := c.expr(stmt.Value)
		if err != nil {
			return err
		}
		if !assignable(t, want) {
			return errorAt(stmt.Pos, "cannot return %v from function returning %v", t, want)
		}
		return nil

	case *Global:
		if c.scope == nil {
			return errorAt(stmt.Pos, "global declaration outside function")
		}
		if _, ok := c.env.Globals[stmt.Name]; !ok {
			return errorAt(stmt.Pos, "undefined global %s", stmt.Name)
		}
		if _, ok := c.scope.locals[stmt.Name]; ok {
			return errorAt(stmt.Pos, "%s is a local variable", stmt.Name)
		}
		c.scope.globals[stmt.Name] = true
		return nil

	case *VarDef:
		return errorAt(stmt.Pos, "unexpected declaration of %s", stmt.Name)

	}
	return errorAt(stmt.Position(), "unsupported statement")
}

func (c *checker) forStmt(stmt *For) error {
	t, err := c.expr(stmt.Iter)
	if err != nil {
		return err
	}
	class, ok := c.classOf(t)
	if !ok {
		return errorAt(stmt.Iter.Position(), "cannot iterate over %v", t)
	}
	hasNext, ok := class.Methods["has_next"]
	if !ok || len(hasNext.Params) != 1 || hasNext.Result != Bool {
		return errorAt(stmt.Iter.Position(), "%s has no method has_next() -> bool", class.Name)
	}
	next, ok := class.Methods["next"]
	if !ok || len(next.Params) != 1 || next.Result == NoneT {
		return errorAt(stmt.Iter.Position(), "%s has no method next()", class.Name)
	}
	stmt.Class = class
	elem := next.Result

	name := stmt.Var.Name
	if vt, local, ok := c.lookup(name); ok {
		if !local && c.scope != nil && !c.scope.globals[name] {
			return errorAt(stmt.Var.Pos, "cannot assign to global %s without a global declaration", name)
		}
		if !assignable(elem, vt) {
			return errorAt(stmt.Var.Pos, "cannot assign %v to %v", elem, vt)
		}
		stmt.Var.Local = local
		stmt.Var.setType(vt)
	} else {
		if reservedNames[name] || c.env.HasClass(name) {
			return errorAt(stmt.Var.Pos, "%s is a reserved name", name)
		}
		if c.scope != nil {
			c.scope.locals[name] = elem
			c.scope.def.Locals = append(c.scope.def.Locals, LocalVar{
				Name: name,
				Type: elem,
			})
			stmt.Var.Local = true
		} else {
			c.declared[name] = true
			c.env.Globals[name] = elem
			c.prog.Globals = append(c.prog.Globals, GlobalDef{
				Name: name,
				Type: elem,
			})
		}
		stmt.Var.setType(elem)
	}

	return c.block(stmt.Body, false)
}

func (c *checker) classOf(t Type) (*ClassInfo, bool) {
	if t.Kind != taiword.KindObject {
		return nil, false
	}
	class, ok := c.env.Classes[t.Class]
	return class, ok
}

// lookup resolves a variable name to its type and whether it is a local.
func (c *checker) lookup(name string) (Type, bool, bool) {
	if c.scope != nil {
		if t, ok := c.scope.locals[name]; ok {
			return t, true, true
		}
	}
	if t, ok := c.env.Globals[name]; ok {
		return t, false, true
	}
	return Type{}, false, false
}

func (c *checker) target(e Expr) (Type, error) {
	switch e := e.(type) {
	case *Name:
		t, local, ok := c.lookup(e.Name)
		if !ok {
			return Type{}, errorAt(e.Pos, "undefined name %s", e.Name)
		}
		if !local && c.scope != nil && !c.scope.globals[e.Name] {
			return Type{}, errorAt(e.Pos, "cannot assign to global %s without a global declaration", e.Name)
		}
		e.Local = local
		e.setType(t)
		return t, nil
	case *Attr:
		return c.attr(e)
	}
	return Type{}, errorAt(e.Position(), "cannot assign to expression")
}

func (c *checker) expr(e Expr) (Type, error) {
	t, err := c.typeOf(e)
	if err != nil {
		return Type{}, err
	}
	e.setType(t)
	return t, nil
}

func (c *checker) typeOf(e Expr) (Type, error) {
	switch e := e.(type) {

	case *IntLit:
		if e.Value < taiword.MinInt || e.Value > taiword.MaxInt {
			return Type{}, errorAt(e.Pos, "integer literal %d out of range", e.Value)
		}
		return Int, nil

	case *BoolLit:
		return Bool, nil

	case *NoneLit:
		return NoneT, nil

	case *StrLit:
		return Str, nil

	case *Name:
		t, local, ok := c.lookup(e.Name)
		if !ok {
			return Type{}, errorAt(e.Pos, "undefined name %s", e.Name)
		}
		e.Local = local
		return t, nil

	case *Unary:
		t, err := c.expr(e.X)
		if err != nil {
			return Type{}, err
		}
		switch e.Op {
		case "-":
			if t != Int {
				return Type{}, errorAt(e.Pos, "bad operand type for unary -: %v", t)
			}
			return Int, nil
		case "not":
			if t != Bool {
				return Type{}, errorAt(e.Pos, "bad operand type for not: %v", t)
			}
			return Bool, nil
		}

	case *Binary:
		return c.binary(e)

	case *Call:
		return c.call(e)

	case *MethodCall:
		return c.methodCall(e)

	case *Attr:
		return c.attr(e)

	}
	return Type{}, errorAt(e.Position(), "unsupported expression")
}

func (c *checker) binary(e *Binary) (Type, error) {
	x, err := c.expr(e.X)
	if err != nil {
		return Type{}, err
	}
	y, err := c.expr(e.Y)
	if err != nil {
		return Type{}, err
	}
	bad := func() (Type, error) {
		return Type{}, errorAt(e.Pos, "unsupported operand types for %s: %v and %v", e.Op, x, y)
	}
	switch e.Op {
	case "+":
		if x == Int && y == Int {
			return Int, nil
		}
		if x == Str && y == Str {
			return Str, nil
		}
		return bad()
	case "-", "*", "//", "%":
		if x == Int && y == Int {
			return Int, nil
		}
		return bad()
	case "<", "<=", ">", ">=":
		if x == Int && y == Int {
			return Bool, nil
		}
		return bad()
	case "==", "!=":
		if x == y && (x == Int || x == Bool) {
			return Bool, nil
		}
		return bad()
	case "is":
		if x.IsRef() && y.IsRef() {
			return Bool, nil
		}
		return bad()
	case "and", "or":
		if x == Bool && y == Bool {
			return Bool, nil
		}
		return bad()
	}
	return bad()
}

func (c *checker) args(pos Pos, name string, args []Expr, params []Type) error {
	if len(args) != len(params) {
		return errorAt(pos, "%s takes %d arguments, got %d", name, len(params), len(args))
	}
	for i, arg := range args {
		t, err := c.expr(arg)
		if err != nil {
			return err
		}
		if !assignable(t, params[i]) {
			return errorAt(arg.Position(), "argument %d of %s: cannot use %v as %v", i+1, name, t, params[i])
		}
	}
	return nil
}

func (c *checker) call(e *Call) (Type, error) {
	switch e.Func {

	case "print":
		if len(e.Args) != 1 {
			return Type{}, errorAt(e.Pos, "print takes 1 argument, got %d", len(e.Args))
		}
		t, err := c.expr(e.Args[0])
		if err != nil {
			return Type{}, err
		}
		e.Builtin = e.Func
		return t, nil

	case "abs":
		e.Builtin = e.Func
		return Int, c.args(e.Pos, e.Func, e.Args, []Type{Int})

	case "min", "max", "pow":
		e.Builtin = e.Func
		return Int, c.args(e.Pos, e.Func, e.Args, []Type{Int, Int})

	case "len":
		e.Builtin = e.Func
		return Int, c.args(e.Pos, e.Func, e.Args, []Type{Str})

	}

	if _, _, ok := c.lookup(e.Func); ok {
		return Type{}, errorAt(e.Pos, "%s is not callable", e.Func)
	}

	if class, ok := c.env.Classes[e.Func]; ok {
		e.Class = class
		if init, ok := class.Methods["__init__"]; ok {
			e.Target = init
		}
		if len(e.Args) != 0 {
			return Type{}, errorAt(e.Pos, "%s() takes no arguments", class.Name)
		}
		return taiword.ObjectType(class.Name), nil
	}

	fn, ok := c.env.Funcs[e.Func]
	if !ok {
		return Type{}, errorAt(e.Pos, "undefined function %s", e.Func)
	}
	e.Target = fn
	if err := c.args(e.Pos, e.Func, e.Args, fn.Params); err != nil {
		return Type{}, err
	}
	return fn.Result, nil
}

func (c *checker) methodCall(e *MethodCall) (Type, error) {
	t, err := c.expr(e.Recv)
	if err != nil {
		return Type{}, err
	}
	class, ok := c.classOf(t)
	if !ok {
		return Type{}, errorAt(e.Pos, "%v has no method %s", t, e.Method)
	}
	fn, ok := class.Methods[e.Method]
	if !ok {
		return Type{}, errorAt(e.Pos, "%s has no method %s", class.Name, e.Method)
	}
	e.Target = fn
	if err := c.args(e.Pos, class.Name+"."+e.Method, e.Args, fn.Params[1:]); err != nil {
		return Type{}, err
	}
	return fn.Result, nil
}

func (c *checker) attr(e *Attr) (Type, error) {
	t, err := c.expr(e.X)
	if err != nil {
		return Type{}, err
	}
	class, ok := c.classOf(t)
	if !ok {
		return Type{}, errorAt(e.Pos, "%v has no attribute %s", t, e.Name)
	}
	i, field := class.Field(e.Name)
	if field == nil {
		return Type{}, errorAt(e.Pos, "%s has no attribute %s", class.Name, e.Name)
	}
	e.Index = i
	e.setType(field.Type)
	return field.Type, nil
}
