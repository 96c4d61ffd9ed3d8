package taivm

import (
	"fmt"
)

type linkedFunc struct {
	name      string
	numParams int
	result    bool
	fn        *Function
	native    NativeFunc
	isNative  bool
	callees   []int
}

func (l *linkedFunc) numLocals() int {
	if l.fn == nil {
		return 0
	}
	return l.fn.NumLocals
}

// Imports are the host values a module is instantiated against.
type Imports struct {
	Memory *Memory
	Funcs  map[string]NativeFunc
}

// Instance is a linked module bound to a memory.
// Functions of a Module are never mutated, so they may be shared between instances.
type Instance struct {
	Module  *Module
	Memory  *Memory
	funcs   []*linkedFunc
	byName  map[string]int
	exports map[string]int
}

func Instantiate(m *Module, imports Imports) (*Instance, error) {
	inst := &Instance{
		Module:  m,
		byName:  make(map[string]int),
		exports: make(map[string]int),
	}

	if m.Memory != nil {
		if imports.Memory == nil {
			return nil, fmt.Errorf("%w: memory %s not provided", ErrLink, ImportKey(m.Memory.Module, m.Memory.Name))
		}
		if imports.Memory.Pages() < m.Memory.MinPages {
			return nil, fmt.Errorf("%w: memory has %d pages, module wants %d",
				ErrLink, imports.Memory.Pages(), m.Memory.MinPages)
		}
		inst.Memory = imports.Memory
	}

	add := func(f *linkedFunc) error {
		if _, ok := inst.byName[f.name]; ok {
			return fmt.Errorf("%w: duplicated function %s", ErrLink, f.name)
		}
		inst.byName[f.name] = len(inst.funcs)
		inst.funcs = append(inst.funcs, f)
		return nil
	}

	for _, imp := range m.Imports {
		key := ImportKey(imp.Module, imp.Name)
		native, ok := imports.Funcs[key]
		if !ok || native.IsMissing() {
			return nil, fmt.Errorf("%w: import %s not provided", ErrLink, key)
		}
		if err := add(&linkedFunc{
			name:      imp.ID,
			numParams: imp.NumParams,
			result:    imp.Result,
			native:    native,
			isNative:  true,
		}); err != nil {
			return nil, err
		}
	}

	for _, fn := range m.Funcs {
		if err := add(&linkedFunc{
			name:      fn.Name,
			numParams: fn.NumParams,
			result:    fn.Result,
			fn:        fn,
		}); err != nil {
			return nil, err
		}
	}

	for _, f := range inst.funcs {
		if f.isNative {
			continue
		}
		for _, callee := range f.fn.Callees {
			idx, ok := inst.byName[callee]
			if !ok {
				return nil, fmt.Errorf("%w: %s calls undefined function %s", ErrLink, f.name, callee)
			}
			f.callees = append(f.callees, idx)
		}
		if err := validate(f, inst.Memory != nil); err != nil {
			return nil, err
		}
	}

	for _, export := range m.Exports {
		idx, ok := inst.byName[export.Func]
		if !ok {
			return nil, fmt.Errorf("%w: export %s of undefined function %s", ErrLink, export.Name, export.Func)
		}
		inst.exports[export.Name] = idx
	}

	return inst, nil
}

func validate(f *linkedFunc, hasMemory bool) error {
	fn := f.fn
	numLocals := fn.NumParams + fn.NumLocals
	for ip, inst := range fn.Code {
		arg := inst.Arg()
		switch inst.Op() {
		case OpConst:
			if arg >= len(fn.Constants) {
				return fmt.Errorf("%w: %s at %d: constant %d out of range", ErrLink, fn.Name, ip, arg)
			}
		case OpLocalGet, OpLocalSet, OpLocalTee:
			if arg >= numLocals {
				return fmt.Errorf("%w: %s at %d: local %d out of range", ErrLink, fn.Name, ip, arg)
			}
		case OpCall:
			if arg >= len(f.callees) {
				return fmt.Errorf("%w: %s at %d: callee %d out of range", ErrLink, fn.Name, ip, arg)
			}
		case OpLoad, OpLoad8U, OpStore, OpStore8:
			if !hasMemory {
				return fmt.Errorf("%w: %s at %d: memory access without memory", ErrLink, fn.Name, ip)
			}
		case OpJump, OpJumpIf, OpJumpIfNot:
			target := ip + 1 + inst.Offset()
			if target < 0 || target > len(fn.Code) {
				return fmt.Errorf("%w: %s at %d: jump target %d out of range", ErrLink, fn.Name, ip, target)
			}
		default:
			if _, ok := opNames[inst.Op()]; !ok {
				return fmt.Errorf("%w: %s at %d: %v", ErrBadOpCode, fn.Name, ip, inst)
			}
		}
	}
	return nil
}

func (i *Instance) Exported(name string) bool {
	_, ok := i.exports[name]
	return ok
}

// Invoke runs an exported function to completion.
// The returned bool reports whether the function produces a result.
func (i *Instance) Invoke(name string, args ...int32) (int32, bool, error) {
	idx, ok := i.exports[name]
	if !ok {
		return 0, false, fmt.Errorf("%w: no export named %s", ErrLink, name)
	}
	f := i.funcs[idx]
	if len(args) != f.numParams {
		return 0, false, fmt.Errorf("%w: %s wants %d arguments, got %d", ErrLink, name, f.numParams, len(args))
	}
	vm := NewVM(i)
	ret, err := vm.call(f, args)
	return ret, f.result, err
}
