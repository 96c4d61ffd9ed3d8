package taivm

const DefaultMaxCallDepth = 4096

type VM struct {
	Instance     *Instance
	CurrentFun   *linkedFunc
	IP           int
	OperandStack []int32
	SP           int
	BP           int
	CallStack    []Frame
	MaxCallDepth int
}

func NewVM(inst *Instance) *VM {
	return &VM{
		Instance:     inst,
		OperandStack: make([]int32, 1024),
		CallStack:    make([]Frame, 0, 64),
		MaxCallDepth: DefaultMaxCallDepth,
	}
}

func (v *VM) Memory() *Memory {
	return v.Instance.Memory
}

// LiveWords returns the operand stack, locals included, of all active frames.
func (v *VM) LiveWords() []uint32 {
	ret := make([]uint32, v.SP)
	for i, w := range v.OperandStack[:v.SP] {
		ret[i] = uint32(w)
	}
	return ret
}

func (v *VM) push(val int32) {
	if v.SP >= len(v.OperandStack) {
		v.growOperandStack()
	}
	v.OperandStack[v.SP] = val
	v.SP++
}

func (v *VM) growOperandStack() {
	newCap := len(v.OperandStack) * 2
	if newCap == 0 {
		newCap = 8
	}
	newStack := make([]int32, newCap)
	copy(newStack, v.OperandStack)
	v.OperandStack = newStack
}

func (v *VM) pop() int32 {
	v.SP--
	return v.OperandStack[v.SP]
}

func (v *VM) drop(n int) {
	if n <= 0 {
		return
	}
	if n > v.SP {
		n = v.SP
	}
	v.SP -= n
}

// floor is the lowest operand stack index the current function may pop.
func (v *VM) floor() int {
	return v.BP + v.CurrentFun.numParams + v.CurrentFun.numLocals()
}

func (v *VM) enter(f *linkedFunc) error {
	if len(v.CallStack) >= v.MaxCallDepth {
		return ErrStackOverflow
	}
	v.CallStack = append(v.CallStack, Frame{
		Fun:      v.CurrentFun,
		ReturnIP: v.IP,
		BP:       v.BP,
	})
	v.BP = v.SP - f.numParams
	for range f.numLocals() {
		v.push(0)
	}
	v.CurrentFun = f
	v.IP = 0
	return nil
}

// leave pops the current frame. done reports the outermost frame was left.
func (v *VM) leave() (ret int32, done bool) {
	f := v.CurrentFun
	if f.result {
		ret = v.OperandStack[v.SP-1]
	}
	v.SP = v.BP
	frame := v.CallStack[len(v.CallStack)-1]
	v.CallStack = v.CallStack[:len(v.CallStack)-1]
	v.CurrentFun = frame.Fun
	v.IP = frame.ReturnIP
	v.BP = frame.BP
	if frame.Fun == nil {
		return ret, true
	}
	if f.result {
		v.push(ret)
	}
	return ret, false
}

func (v *VM) call(f *linkedFunc, args []int32) (int32, error) {
	for _, arg := range args {
		v.push(arg)
	}
	if f.isNative {
		ret, err := f.native.Call(v, v.OperandStack[v.SP-len(args):v.SP])
		v.drop(len(args))
		if err != nil {
			return 0, &Trap{Func: f.name, Err: err}
		}
		return ret, nil
	}
	if err := v.enter(f); err != nil {
		return 0, &Trap{Func: f.name, Err: err}
	}
	return v.Run()
}
