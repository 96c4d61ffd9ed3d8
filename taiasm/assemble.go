package taiasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/reusee/tairepl/taivm"
)

// Parse assembles module text.
// The text is either a single (module ...) form or a bare sequence of module fields.
func Parse(src string) (*taivm.Module, error) {
	return (*Cache)(nil).Parse(src)
}

type assembler struct {
	src    string
	cache  *Cache
	module *taivm.Module
}

func (a *assembler) fields(forms []*node) error {
	if len(forms) == 1 && forms[0].head() == "module" {
		forms = forms[0].list[1:]
		if len(forms) > 0 && forms[0].isAtom() && strings.HasPrefix(forms[0].atom, "$") {
			forms = forms[1:]
		}
	}
	for _, form := range forms {
		if err := a.field(form); err != nil {
			return err
		}
	}
	return nil
}

func errorf(n *node, format string, args ...any) error {
	return &Error{
		Pos: n.pos,
		Msg: fmt.Sprintf(format, args...),
	}
}

func (a *assembler) field(n *node) error {
	switch n.head() {

	case "func":
		return a.funcField(n)

	case "import":
		// (import "m" "n" (memory min))
		if len(n.list) != 4 || !n.list[1].quoted || !n.list[2].quoted || n.list[3].head() != "memory" {
			return errorf(n, "only memory imports are supported in this form")
		}
		desc := n.list[3]
		if len(desc.list) < 2 {
			return errorf(desc, "memory without size")
		}
		pages, err := strconv.ParseUint(desc.list[1].atom, 10, 32)
		if err != nil {
			return errorf(desc.list[1], "bad page count: %v", err)
		}
		if a.module.Memory != nil {
			return errorf(n, "duplicated memory")
		}
		a.module.Memory = &taivm.MemoryImport{
			Module:   n.list[1].atom,
			Name:     n.list[2].atom,
			MinPages: uint32(pages),
		}
		return nil

	case "export":
		// (export "n" (func $f))
		if len(n.list) != 3 || !n.list[1].quoted || n.list[2].head() != "func" || len(n.list[2].list) != 2 {
			return errorf(n, "bad export")
		}
		a.module.Exports = append(a.module.Exports, taivm.Export{
			Name: n.list[1].atom,
			Func: strings.TrimPrefix(n.list[2].list[1].atom, "$"),
		})
		return nil

	}
	return errorf(n, "unknown module field %q", n.head())
}

type funcHeader struct {
	name    string
	exports []string
	imp     *taivm.Import
	params  []string
	result  bool
	locals  []string
	body    []*node
}

func parseFuncHeader(n *node) (*funcHeader, error) {
	h := new(funcHeader)
	items := n.list[1:]
	if len(items) > 0 && items[0].isAtom() && strings.HasPrefix(items[0].atom, "$") {
		h.name = items[0].atom[1:]
		items = items[1:]
	}

	declare := func(item *node, into *[]string) error {
		// (param $x i32) or (param i32 i32)
		args := item.list[1:]
		if len(args) == 2 && strings.HasPrefix(args[0].atom, "$") {
			if args[1].atom != "i32" {
				return errorf(args[1], "unsupported type %s", args[1].atom)
			}
			*into = append(*into, args[0].atom[1:])
			return nil
		}
		for _, arg := range args {
			if arg.atom != "i32" {
				return errorf(arg, "unsupported type %s", arg.atom)
			}
			*into = append(*into, "")
		}
		return nil
	}

	for len(items) > 0 && items[0].isList {
		item := items[0]
		switch item.head() {
		case "export":
			if len(item.list) != 2 || !item.list[1].quoted {
				return nil, errorf(item, "bad export")
			}
			h.exports = append(h.exports, item.list[1].atom)
		case "import":
			if len(item.list) != 3 || !item.list[1].quoted || !item.list[2].quoted {
				return nil, errorf(item, "bad import")
			}
			h.imp = &taivm.Import{
				Module: item.list[1].atom,
				Name:   item.list[2].atom,
			}
		case "param":
			if len(h.locals) > 0 {
				return nil, errorf(item, "param after local")
			}
			if err := declare(item, &h.params); err != nil {
				return nil, err
			}
		case "result":
			if h.result || len(item.list) != 2 || item.list[1].atom != "i32" {
				return nil, errorf(item, "bad result")
			}
			h.result = true
		case "local":
			if err := declare(item, &h.locals); err != nil {
				return nil, err
			}
		default:
			return nil, errorf(item, "folded instructions are not supported")
		}
		items = items[1:]
	}
	h.body = items

	if h.name == "" && len(h.exports) > 0 {
		h.name = h.exports[0]
	}
	if h.name == "" {
		return nil, errorf(n, "function without name or export")
	}
	return h, nil
}

func (a *assembler) funcField(n *node) error {
	var key [32]byte
	if a.cache != nil {
		key = a.cache.key(a.src[n.start:n.end])
		if entry, ok := a.cache.get(key); ok {
			a.add(entry)
			return nil
		}
	}

	h, err := parseFuncHeader(n)
	if err != nil {
		return err
	}
	entry := &cacheEntry{
		exports: h.exports,
	}

	if h.imp != nil {
		if len(h.body) > 0 || len(h.locals) > 0 {
			return errorf(n, "imported function %s has a body", h.name)
		}
		h.imp.ID = h.name
		h.imp.NumParams = len(h.params)
		h.imp.Result = h.result
		entry.imp = h.imp

	} else {
		c := newFuncCompiler(h)
		if err := c.compileBody(h.body); err != nil {
			return err
		}
		entry.fn = c.toFunction()
	}

	if a.cache != nil {
		a.cache.put(key, entry)
	}
	a.add(entry)
	return nil
}

func (a *assembler) add(entry *cacheEntry) {
	name := ""
	if entry.imp != nil {
		a.module.Imports = append(a.module.Imports, *entry.imp)
		name = entry.imp.ID
	} else {
		a.module.Funcs = append(a.module.Funcs, entry.fn)
		name = entry.fn.Name
	}
	for _, export := range entry.exports {
		a.module.Exports = append(a.module.Exports, taivm.Export{
			Name: export,
			Func: name,
		})
	}
}

type label struct {
	name     string
	kind     string
	startIP  int
	endIPs   []int
	elseIP   int
	hasElse  bool
	openedAt *node
}

type funcCompiler struct {
	header    *funcHeader
	code      []taivm.OpCode
	constants []int32
	constMap  map[int32]int
	callees   []string
	calleeMap map[string]int
	locals    map[string]int
	labels    []*label
}

func newFuncCompiler(h *funcHeader) *funcCompiler {
	c := &funcCompiler{
		header:    h,
		constMap:  make(map[int32]int),
		calleeMap: make(map[string]int),
		locals:    make(map[string]int),
	}
	for i, name := range append(append([]string(nil), h.params...), h.locals...) {
		if name != "" {
			c.locals[name] = i
		}
	}
	return c
}

func (c *funcCompiler) toFunction() *taivm.Function {
	return &taivm.Function{
		Name:       c.header.name,
		NumParams:  len(c.header.params),
		NumLocals:  len(c.header.locals),
		Result:     c.header.result,
		Code:       c.code,
		Constants:  c.constants,
		Callees:    c.callees,
		LocalNames: append(append([]string(nil), c.header.params...), c.header.locals...),
	}
}

func (c *funcCompiler) addConst(val int32) int {
	if idx, ok := c.constMap[val]; ok {
		return idx
	}
	idx := len(c.constants)
	c.constants = append(c.constants, val)
	c.constMap[val] = idx
	return idx
}

func (c *funcCompiler) addCallee(name string) int {
	if idx, ok := c.calleeMap[name]; ok {
		return idx
	}
	idx := len(c.callees)
	c.callees = append(c.callees, name)
	c.calleeMap[name] = idx
	return idx
}

func (c *funcCompiler) emit(op taivm.OpCode) {
	c.code = append(c.code, op)
}

func (c *funcCompiler) currentIP() int {
	return len(c.code)
}

func (c *funcCompiler) patchJump(ip int, target int) {
	offset := target - ip - 1
	op := c.code[ip] & 0xff
	c.code[ip] = op.With(offset)
}

func (c *funcCompiler) compileBody(body []*node) error {
	for i := 0; i < len(body); i++ {
		n := body[i]
		if !n.isAtom() {
			return errorf(n, "expecting instruction")
		}

		// immediate operand
		operand := func() (*node, error) {
			if i+1 >= len(body) || !body[i+1].isAtom() {
				return nil, errorf(n, "%s: missing operand", n.atom)
			}
			i++
			return body[i], nil
		}
		optionalLabel := func() string {
			if i+1 < len(body) && body[i+1].isAtom() && strings.HasPrefix(body[i+1].atom, "$") {
				i++
				return body[i].atom[1:]
			}
			return ""
		}
		optionalOffset := func() (int, error) {
			offset := 0
			for i+1 < len(body) && body[i+1].isAtom() {
				next := body[i+1].atom
				switch {
				case strings.HasPrefix(next, "offset="):
					v, err := strconv.ParseUint(strings.TrimPrefix(next, "offset="), 0, 32)
					if err != nil || v > taivm.MaxArg {
						return 0, errorf(body[i+1], "bad offset %s", next)
					}
					offset = int(v)
				case strings.HasPrefix(next, "align="):
				default:
					return offset, nil
				}
				i++
			}
			return offset, nil
		}

		switch name := n.atom; name {

		case "i32.const":
			arg, err := operand()
			if err != nil {
				return err
			}
			v, err := strconv.ParseInt(arg.atom, 0, 64)
			if err != nil || v < math.MinInt32 || v > math.MaxUint32 {
				return errorf(arg, "bad i32 constant %s", arg.atom)
			}
			c.emit(taivm.OpConst.With(c.addConst(int32(uint32(v)))))

		case "local.get", "local.set", "local.tee":
			arg, err := operand()
			if err != nil {
				return err
			}
			idx, err := c.local(arg)
			if err != nil {
				return err
			}
			op, _ := taivm.LookupOp(name)
			c.emit(op.With(idx))

		case "i32.load", "i32.load8_u", "i32.store", "i32.store8":
			offset, err := optionalOffset()
			if err != nil {
				return err
			}
			op, _ := taivm.LookupOp(name)
			c.emit(op.With(offset))

		case "call":
			arg, err := operand()
			if err != nil {
				return err
			}
			if !strings.HasPrefix(arg.atom, "$") {
				return errorf(arg, "bad callee %s", arg.atom)
			}
			c.emit(taivm.OpCall.With(c.addCallee(arg.atom[1:])))

		case "block":
			c.labels = append(c.labels, &label{
				name:     optionalLabel(),
				kind:     name,
				openedAt: n,
			})

		case "loop":
			c.labels = append(c.labels, &label{
				name:     optionalLabel(),
				kind:     name,
				startIP:  c.currentIP(),
				openedAt: n,
			})

		case "if":
			l := &label{
				name:     optionalLabel(),
				kind:     name,
				elseIP:   c.currentIP(),
				openedAt: n,
			}
			c.emit(taivm.OpJumpIfNot)
			c.labels = append(c.labels, l)

		case "else":
			optionalLabel()
			if len(c.labels) == 0 {
				return errorf(n, "else outside if")
			}
			l := c.labels[len(c.labels)-1]
			if l.kind != "if" || l.hasElse {
				return errorf(n, "else without matching if")
			}
			l.endIPs = append(l.endIPs, c.currentIP())
			c.emit(taivm.OpJump)
			c.patchJump(l.elseIP, c.currentIP())
			l.hasElse = true

		case "end":
			optionalLabel()
			if len(c.labels) == 0 {
				return errorf(n, "end without block")
			}
			l := c.labels[len(c.labels)-1]
			c.labels = c.labels[:len(c.labels)-1]
			if l.kind == "if" && !l.hasElse {
				c.patchJump(l.elseIP, c.currentIP())
			}
			for _, ip := range l.endIPs {
				c.patchJump(ip, c.currentIP())
			}

		case "br", "br_if":
			arg, err := operand()
			if err != nil {
				return err
			}
			l, err := c.label(arg)
			if err != nil {
				return err
			}
			op := taivm.OpJump
			if name == "br_if" {
				op = taivm.OpJumpIf
			}
			if l.kind == "loop" {
				c.emit(op)
				c.patchJump(c.currentIP()-1, l.startIP)
			} else {
				l.endIPs = append(l.endIPs, c.currentIP())
				c.emit(op)
			}

		default:
			op, ok := taivm.LookupOp(name)
			if !ok || op == taivm.OpJump || op == taivm.OpJumpIf || op == taivm.OpJumpIfNot {
				return errorf(n, "unknown instruction %s", name)
			}
			c.emit(op)

		}
	}

	if len(c.labels) > 0 {
		l := c.labels[len(c.labels)-1]
		return errorf(l.openedAt, "unclosed %s", l.kind)
	}
	return nil
}

func (c *funcCompiler) local(n *node) (int, error) {
	if strings.HasPrefix(n.atom, "$") {
		idx, ok := c.locals[n.atom[1:]]
		if !ok {
			return 0, errorf(n, "unknown local %s", n.atom)
		}
		return idx, nil
	}
	idx, err := strconv.Atoi(n.atom)
	if err != nil || idx < 0 || idx >= len(c.header.params)+len(c.header.locals) {
		return 0, errorf(n, "bad local %s", n.atom)
	}
	return idx, nil
}

func (c *funcCompiler) label(n *node) (*label, error) {
	if strings.HasPrefix(n.atom, "$") {
		name := n.atom[1:]
		for i := len(c.labels) - 1; i >= 0; i-- {
			if c.labels[i].name == name {
				return c.labels[i], nil
			}
		}
		return nil, errorf(n, "unknown label %s", n.atom)
	}
	depth, err := strconv.Atoi(n.atom)
	if err != nil || depth < 0 || depth >= len(c.labels) {
		return nil, errorf(n, "bad label depth %s", n.atom)
	}
	return c.labels[len(c.labels)-1-depth], nil
}
