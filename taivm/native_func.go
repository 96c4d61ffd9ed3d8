package taivm

import "fmt"

// NativeFunc is a host function bound to an import.
// Arguments stay on the operand stack for the duration of the call.
type NativeFunc struct {
	Name string
	Func func(vm *VM, args []int32) (int32, error)
}

func (n NativeFunc) IsMissing() bool {
	return n.Func == nil
}

func (n NativeFunc) Call(vm *VM, args []int32) (int32, error) {
	if n.Func == nil {
		return 0, fmt.Errorf("%w: native function %s is missing", ErrLink, n.Name)
	}
	return n.Func(vm, args)
}
