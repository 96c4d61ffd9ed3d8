package taivm

import (
	"errors"
	"fmt"
	"testing"
)

func instantiate(t *testing.T, m *Module, imports Imports) *Instance {
	t.Helper()
	inst, err := Instantiate(m, imports)
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

func invoke(t *testing.T, inst *Instance, name string, args ...int32) int32 {
	t.Helper()
	ret, _, err := inst.Invoke(name, args...)
	if err != nil {
		t.Fatal(err)
	}
	return ret
}

func TestVM_NativeFunc(t *testing.T) {
	main := &Function{
		Name:      "main",
		Result:    true,
		Constants: []int32{1, 2},
		Callees:   []string{"add"},
		Code: []OpCode{
			OpConst.With(0),
			OpConst.With(1),
			OpCall.With(0),
		},
	}
	inst := instantiate(t, &Module{
		Imports: []Import{
			{Module: "env", Name: "add", ID: "add", NumParams: 2, Result: true},
		},
		Funcs:   []*Function{main},
		Exports: []Export{{Name: "main", Func: "main"}},
	}, Imports{
		Funcs: map[string]NativeFunc{
			"env.add": {
				Name: "add",
				Func: func(vm *VM, args []int32) (int32, error) {
					if len(args) != 2 {
						return 0, fmt.Errorf("bad args")
					}
					return args[0] + args[1], nil
				},
			},
		},
	})
	if got := invoke(t, inst, "main"); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestVM_Loop(t *testing.T) {
	sum := &Function{
		Name:      "sum",
		NumParams: 1,
		NumLocals: 1,
		Result:    true,
		Constants: []int32{1},
		Code: []OpCode{
			OpLocalGet.With(0),
			OpJumpIfNot.With(9),
			OpLocalGet.With(1),
			OpLocalGet.With(0),
			OpAdd,
			OpLocalSet.With(1),
			OpLocalGet.With(0),
			OpConst.With(0),
			OpSub,
			OpLocalSet.With(0),
			OpJump.With(-11),
			OpLocalGet.With(1),
			OpReturn,
		},
	}
	inst := instantiate(t, &Module{
		Funcs:   []*Function{sum},
		Exports: []Export{{Name: "sum", Func: "sum"}},
	}, Imports{})
	if got := invoke(t, inst, "sum", 10); got != 55 {
		t.Fatalf("expected 55, got %v", got)
	}
}

func factorialModule() *Module {
	fact := &Function{
		Name:      "fact",
		NumParams: 1,
		Result:    true,
		Constants: []int32{1},
		Callees:   []string{"fact"},
		Code: []OpCode{
			OpLocalGet.With(0),
			OpConst.With(0),
			OpGtS,
			OpJumpIf.With(2),
			OpConst.With(0),
			OpReturn,
			OpLocalGet.With(0),
			OpLocalGet.With(0),
			OpConst.With(0),
			OpSub,
			OpCall.With(0),
			OpMul,
			OpReturn,
		},
	}
	return &Module{
		Funcs:   []*Function{fact},
		Exports: []Export{{Name: "fact", Func: "fact"}},
	}
}

func TestVM_Recursion(t *testing.T) {
	inst := instantiate(t, factorialModule(), Imports{})
	if got := invoke(t, inst, "fact", 10); got != 3628800 {
		t.Fatalf("expected 3628800, got %v", got)
	}
}

func TestVM_StackOverflow(t *testing.T) {
	loop := &Function{
		Name:    "loop",
		Callees: []string{"loop"},
		Code: []OpCode{
			OpCall.With(0),
		},
	}
	inst := instantiate(t, &Module{
		Funcs:   []*Function{loop},
		Exports: []Export{{Name: "loop", Func: "loop"}},
	}, Imports{})
	_, _, err := inst.Invoke("loop")
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("got %v", err)
	}
}

func memoryModule(code ...OpCode) *Module {
	return &Module{
		Memory: &MemoryImport{Module: "js", Name: "memory", MinPages: 1},
		Funcs: []*Function{
			{
				Name:      "main",
				Result:    true,
				Constants: []int32{8, 42, 6, PageSize},
				Code:      code,
			},
		},
		Exports: []Export{{Name: "main", Func: "main"}},
	}
}

func TestVM_Memory(t *testing.T) {
	mem, err := NewMemory(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	inst := instantiate(t, memoryModule(
		OpConst.With(0),
		OpConst.With(1),
		OpStore.With(4),
		OpConst.With(0),
		OpLoad.With(4),
	), Imports{Memory: mem})
	if got := invoke(t, inst, "main"); got != 42 {
		t.Fatalf("got %d", got)
	}
	v, err := mem.Read32(12)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("got %d", v)
	}
}

func TestVM_MemoryTraps(t *testing.T) {
	mem, err := NewMemory(1, 1)
	if err != nil {
		t.Fatal(err)
	}

	inst := instantiate(t, memoryModule(
		OpConst.With(2),
		OpLoad,
	), Imports{Memory: mem})
	_, _, err = inst.Invoke("main")
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("got %v", err)
	}
	var trap *Trap
	if !errors.As(err, &trap) {
		t.Fatalf("got %T", err)
	}
	if trap.Func != "main" || trap.IP != 1 {
		t.Fatalf("got %+v", trap)
	}

	inst = instantiate(t, memoryModule(
		OpConst.With(3),
		OpLoad,
	), Imports{Memory: mem})
	_, _, err = inst.Invoke("main")
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got %v", err)
	}
}

func TestVM_MemoryRequired(t *testing.T) {
	_, err := Instantiate(memoryModule(OpConst.With(0), OpLoad), Imports{})
	if !errors.Is(err, ErrLink) {
		t.Fatalf("got %v", err)
	}
}

func TestVM_DivideByZero(t *testing.T) {
	inst := instantiate(t, &Module{
		Funcs: []*Function{
			{
				Name:      "main",
				Result:    true,
				Constants: []int32{1, 0},
				Code: []OpCode{
					OpConst.With(0),
					OpConst.With(1),
					OpDivS,
				},
			},
		},
		Exports: []Export{{Name: "main", Func: "main"}},
	}, Imports{})
	_, _, err := inst.Invoke("main")
	if !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("got %v", err)
	}
}

func TestVM_Underflow(t *testing.T) {
	inst := instantiate(t, &Module{
		Funcs: []*Function{
			{
				Name:   "main",
				Result: true,
				Code: []OpCode{
					OpAdd,
				},
			},
		},
		Exports: []Export{{Name: "main", Func: "main"}},
	}, Imports{})
	_, _, err := inst.Invoke("main")
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("got %v", err)
	}
}

func TestVM_Arithmetic(t *testing.T) {
	cases := []struct {
		op   OpCode
		a, b int32
		want int32
	}{
		{OpAdd, 3, 4, 7},
		{OpSub, 3, 4, -1},
		{OpMul, -3, 4, -12},
		{OpDivS, -7, 2, -3},
		{OpRemS, -7, 2, -1},
		{OpAnd, 6, 3, 2},
		{OpOr, 6, 3, 7},
		{OpXor, 6, 3, 5},
		{OpShl, 1, 4, 16},
		{OpShrS, -8, 1, -4},
		{OpShrU, -1, 28, 15},
		{OpEq, 2, 2, 1},
		{OpNe, 2, 2, 0},
		{OpLtS, -1, 0, 1},
		{OpLeS, 1, 0, 0},
		{OpGtS, 1, 0, 1},
		{OpGeS, 0, 0, 1},
	}
	for _, c := range cases {
		inst := instantiate(t, &Module{
			Funcs: []*Function{
				{
					Name:      "main",
					NumParams: 2,
					Result:    true,
					Code: []OpCode{
						OpLocalGet.With(0),
						OpLocalGet.With(1),
						c.op,
					},
				},
			},
			Exports: []Export{{Name: "main", Func: "main"}},
		}, Imports{})
		if got := invoke(t, inst, "main", c.a, c.b); got != c.want {
			t.Errorf("%v(%d, %d) = %d, want %d", c.op, c.a, c.b, got, c.want)
		}
	}
}

func TestVM_LiveWords(t *testing.T) {
	var seen []uint32
	main := &Function{
		Name:      "main",
		NumLocals: 1,
		Result:    true,
		Constants: []int32{100, 200},
		Callees:   []string{"record"},
		Code: []OpCode{
			OpConst.With(0),
			OpLocalSet.With(0),
			OpConst.With(1),
			OpCall.With(0),
		},
	}
	inst := instantiate(t, &Module{
		Imports: []Import{
			{Module: "env", Name: "record", ID: "record", NumParams: 1, Result: true},
		},
		Funcs:   []*Function{main},
		Exports: []Export{{Name: "main", Func: "main"}},
	}, Imports{
		Funcs: map[string]NativeFunc{
			"env.record": {
				Name: "record",
				Func: func(vm *VM, args []int32) (int32, error) {
					seen = vm.LiveWords()
					return args[0], nil
				},
			},
		},
	})
	if got := invoke(t, inst, "main"); got != 200 {
		t.Fatalf("got %d", got)
	}
	if len(seen) != 2 || seen[0] != 100 || seen[1] != 200 {
		t.Fatalf("got %v", seen)
	}
}

func TestInstantiate_LinkErrors(t *testing.T) {
	_, err := Instantiate(&Module{
		Imports: []Import{
			{Module: "env", Name: "missing", ID: "missing", NumParams: 0},
		},
	}, Imports{})
	if !errors.Is(err, ErrLink) {
		t.Fatalf("got %v", err)
	}

	_, err = Instantiate(&Module{
		Funcs: []*Function{
			{Name: "f", Callees: []string{"g"}, Code: []OpCode{OpCall.With(0)}},
		},
	}, Imports{})
	if !errors.Is(err, ErrLink) {
		t.Fatalf("got %v", err)
	}

	_, err = Instantiate(&Module{
		Funcs: []*Function{
			{Name: "f"},
			{Name: "f"},
		},
	}, Imports{})
	if !errors.Is(err, ErrLink) {
		t.Fatalf("got %v", err)
	}

	_, err = Instantiate(&Module{
		Funcs: []*Function{
			{Name: "f", Code: []OpCode{OpJump.With(5)}},
		},
	}, Imports{})
	if !errors.Is(err, ErrLink) {
		t.Fatalf("got %v", err)
	}
}

func TestInstanceSharesFunctions(t *testing.T) {
	m := factorialModule()
	a := instantiate(t, m, Imports{})
	b := instantiate(t, m, Imports{})
	if invoke(t, a, "fact", 5) != 120 || invoke(t, b, "fact", 6) != 720 {
		t.Fatal()
	}
}
