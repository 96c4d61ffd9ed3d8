package tairepl

import (
	"fmt"
	"unicode/utf8"

	"github.com/reusee/tairepl/taiheap"
	"github.com/reusee/tairepl/taipy"
	"github.com/reusee/tairepl/taivm"
	"github.com/reusee/tairepl/taiword"
)

// imports binds the intrinsics and the runtime functions of one run.
// env resolves class ids of objects printed by the run.
func (s *Session) imports(env *taipy.TypeEnv) taivm.Imports {
	funcs := make(map[string]taivm.NativeFunc)

	for _, entry := range s.intrinsics.ordered() {
		fn := entry.fn
		funcs[taivm.ImportKey(taipy.IntrinsicModule, entry.name)] = taivm.NativeFunc{
			Name: entry.name,
			Func: func(vm *taivm.VM, args []int32) (int32, error) {
				words := make([]taiword.Word, len(args))
				for i, arg := range args {
					words[i] = taiword.Word(arg)
				}
				ret, err := fn(vm.Memory(), words)
				if err != nil {
					return 0, err
				}
				return int32(ret), nil
			},
		}
	}

	rt := &runtime{
		heap: s.heap,
		env:  env,
	}
	for name, fn := range map[string]func(*taivm.VM, []int32) (int32, error){
		"alloc_text":   rt.allocText,
		"alloc_object": rt.allocObject,
		"concat_text":  rt.concatText,
		"print_obj":    s.printObject(env),
		"check_none":   rt.checkNone,
		"floordiv":     rt.arith(floorDiv),
		"mod":          rt.arith(floorMod),
		"text_len":     rt.textLen,
	} {
		funcs[taivm.ImportKey(taipy.RuntimeModule, name)] = taivm.NativeFunc{
			Name: name,
			Func: fn,
		}
	}

	return taivm.Imports{
		Memory: s.mem,
		Funcs:  funcs,
	}
}

type runtime struct {
	heap *taiheap.Heap
	env  *taipy.TypeEnv
}

// roots makes the running VM's stack visible to collections triggered by allocation.
func (r *runtime) roots(vm *taivm.VM) {
	r.heap.SetRoots(vm.LiveWords)
}

// allocText and allocObject take their sizes as tagged ints, like every runtime import.
func (r *runtime) allocText(vm *taivm.VM, args []int32) (int32, error) {
	n, err := intArg(taiword.Word(args[0]))
	if err != nil {
		return 0, fmt.Errorf("text length: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: text length %d", taiword.ErrOutOfRange, n)
	}
	r.roots(vm)
	addr, err := r.heap.Allocate(taiword.BlockText, uint32(taiword.TextDataOffset-taiword.HeaderSize+n))
	if err != nil {
		return 0, err
	}
	if err := vm.Memory().Write32(addr+taiword.TextLenOffset, uint32(n)); err != nil {
		return 0, err
	}
	return int32(taiword.FromAddr(addr)), nil
}

func (r *runtime) allocObject(vm *taivm.VM, args []int32) (int32, error) {
	classID, err := intArg(taiword.Word(args[0]))
	if err != nil {
		return 0, fmt.Errorf("class id: %w", err)
	}
	class, ok := r.env.ClassByID(classID)
	if !ok {
		return 0, fmt.Errorf("%w: class id %d", taiword.ErrBadValue, classID)
	}
	numFields, err := intArg(taiword.Word(args[1]))
	if err != nil {
		return 0, fmt.Errorf("field count: %w", err)
	}
	if numFields != int64(len(class.Fields)) {
		return 0, fmt.Errorf("%w: %d fields for class %s", taiword.ErrBadValue, numFields, class.Name)
	}
	if numFields < 0 {
		return 0, fmt.Errorf("%w: %d fields", taiword.ErrOutOfRange, numFields)
	}
	r.roots(vm)
	w, err := r.heap.AllocObject(classID, int(numFields))
	if err != nil {
		return 0, err
	}
	return int32(w), nil
}

func (r *runtime) concatText(vm *taivm.VM, args []int32) (int32, error) {
	var parts [2]string
	for i, arg := range args {
		w := taiword.Word(arg)
		if w == taiword.None {
			return 0, fmt.Errorf("%w: concatenate None", taiword.ErrBadValue)
		}
		s, err := taiword.DecodeText(w, vm.Memory())
		if err != nil {
			return 0, err
		}
		parts[i] = s
	}
	r.roots(vm)
	w, err := r.heap.AllocText(parts[0] + parts[1])
	if err != nil {
		return 0, err
	}
	return int32(w), nil
}

// textLen counts the characters of a text.
func (r *runtime) textLen(vm *taivm.VM, args []int32) (int32, error) {
	w := taiword.Word(args[0])
	if w == taiword.None {
		return 0, fmt.Errorf("%w: len of None", taiword.ErrBadValue)
	}
	s, err := taiword.DecodeText(w, vm.Memory())
	if err != nil {
		return 0, err
	}
	return int32(taiword.FromInt(int64(utf8.RuneCountInString(s)))), nil
}

func (r *runtime) checkNone(_ *taivm.VM, args []int32) (int32, error) {
	if taiword.Word(args[0]) == taiword.None {
		return 0, fmt.Errorf("%w: attribute of None", taiword.ErrBadValue)
	}
	return args[0], nil
}

func (r *runtime) arith(fn func(a, b int64) (int64, error)) func(*taivm.VM, []int32) (int32, error) {
	return func(_ *taivm.VM, args []int32) (int32, error) {
		a, err := intArg(taiword.Word(args[0]))
		if err != nil {
			return 0, err
		}
		b, err := intArg(taiword.Word(args[1]))
		if err != nil {
			return 0, err
		}
		n, err := fn(a, b)
		if err != nil {
			return 0, err
		}
		w, err := intResult(n)
		if err != nil {
			return 0, err
		}
		return int32(w), nil
	}
}

func floorDiv(a, b int64) (int64, error) {
	if b == 0 {
		return 0, taivm.ErrDivideByZero
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q, nil
}

func floorMod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, taivm.ErrDivideByZero
	}
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, nil
}

// printObject renders an object reference as text and hands it to the print_str intrinsic.
func (s *Session) printObject(env *taipy.TypeEnv) func(*taivm.VM, []int32) (int32, error) {
	return func(vm *taivm.VM, args []int32) (int32, error) {
		w := taiword.Word(args[0])
		if w == taiword.None {
			if _, err := s.intrinsics.PrintNone(vm.Memory(), []taiword.Word{w}); err != nil {
				return 0, err
			}
			return args[0], nil
		}
		obj, err := taiword.DecodeObject(w, vm.Memory())
		if err != nil {
			return 0, err
		}
		class, ok := env.ClassByID(obj.ClassID)
		if !ok {
			return 0, fmt.Errorf("%w: class id %d", taiword.ErrBadValue, obj.ClassID)
		}
		s.heap.SetRoots(vm.LiveWords)
		text, err := s.heap.AllocText(taiword.RenderObject(class.Name, obj.Addr))
		if err != nil {
			return 0, err
		}
		if _, err := s.intrinsics.PrintStr(vm.Memory(), []taiword.Word{text}); err != nil {
			return 0, err
		}
		return args[0], nil
	}
}
