package taivm

import (
	"fmt"
	"math"
)

var popCounts = [256]int{
	OpLocalSet:  1,
	OpLocalTee:  1,
	OpDrop:      1,
	OpLoad:      1,
	OpLoad8U:    1,
	OpStore:     2,
	OpStore8:    2,
	OpAdd:       2,
	OpSub:       2,
	OpMul:       2,
	OpDivS:      2,
	OpRemS:      2,
	OpAnd:       2,
	OpOr:        2,
	OpXor:       2,
	OpShl:       2,
	OpShrS:      2,
	OpShrU:      2,
	OpEq:        2,
	OpNe:        2,
	OpLtS:       2,
	OpLeS:       2,
	OpGtS:       2,
	OpGeS:       2,
	OpEqz:       1,
	OpJumpIf:    1,
	OpJumpIfNot: 1,
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func effectiveAddr(base int32, offset int) (uint32, error) {
	ea := uint64(uint32(base)) + uint64(offset)
	if ea > math.MaxUint32 {
		return 0, fmt.Errorf("%w: address %d", ErrOutOfBounds, ea)
	}
	return uint32(ea), nil
}

// Run executes until the outermost frame returns.
func (v *VM) Run() (int32, error) {
	mem := v.Instance.Memory
	for {
		f := v.CurrentFun

		if v.IP >= len(f.fn.Code) {
			if f.result && v.SP-v.floor() < 1 {
				return 0, v.trap(ErrStackUnderflow)
			}
			if ret, done := v.leave(); done {
				return ret, nil
			}
			continue
		}

		inst := f.fn.Code[v.IP]
		v.IP++
		op := inst & 0xff
		if v.SP-v.floor() < popCounts[op] {
			return 0, v.trap(fmt.Errorf("%w: %v", ErrStackUnderflow, inst))
		}

		switch op {

		case OpNop:

		case OpUnreachable:
			return 0, v.trap(ErrUnreachable)

		case OpConst:
			v.push(f.fn.Constants[inst>>8])

		case OpLocalGet:
			v.push(v.OperandStack[v.BP+int(inst>>8)])

		case OpLocalSet:
			v.OperandStack[v.BP+int(inst>>8)] = v.pop()

		case OpLocalTee:
			v.OperandStack[v.BP+int(inst>>8)] = v.OperandStack[v.SP-1]

		case OpDrop:
			v.SP--

		case OpLoad:
			addr, err := effectiveAddr(v.pop(), int(inst>>8))
			if err != nil {
				return 0, v.trap(err)
			}
			val, err := mem.Read32(addr)
			if err != nil {
				return 0, v.trap(err)
			}
			v.push(int32(val))

		case OpLoad8U:
			addr, err := effectiveAddr(v.pop(), int(inst>>8))
			if err != nil {
				return 0, v.trap(err)
			}
			val, err := mem.Read8(addr)
			if err != nil {
				return 0, v.trap(err)
			}
			v.push(int32(val))

		case OpStore:
			val := v.pop()
			addr, err := effectiveAddr(v.pop(), int(inst>>8))
			if err != nil {
				return 0, v.trap(err)
			}
			if err := mem.Write32(addr, uint32(val)); err != nil {
				return 0, v.trap(err)
			}

		case OpStore8:
			val := v.pop()
			addr, err := effectiveAddr(v.pop(), int(inst>>8))
			if err != nil {
				return 0, v.trap(err)
			}
			if err := mem.Write8(addr, uint8(val)); err != nil {
				return 0, v.trap(err)
			}

		case OpAdd, OpSub, OpMul, OpDivS, OpRemS,
			OpAnd, OpOr, OpXor, OpShl, OpShrS, OpShrU,
			OpEq, OpNe, OpLtS, OpLeS, OpGtS, OpGeS:
			b := v.pop()
			a := v.pop()
			var res int32
			switch op {
			case OpAdd:
				res = a + b
			case OpSub:
				res = a - b
			case OpMul:
				res = a * b
			case OpDivS:
				if b == 0 {
					return 0, v.trap(ErrDivideByZero)
				}
				if a == math.MinInt32 && b == -1 {
					return 0, v.trap(fmt.Errorf("integer overflow: %d / %d", a, b))
				}
				res = a / b
			case OpRemS:
				if b == 0 {
					return 0, v.trap(ErrDivideByZero)
				}
				res = a % b
			case OpAnd:
				res = a & b
			case OpOr:
				res = a | b
			case OpXor:
				res = a ^ b
			case OpShl:
				res = a << (uint32(b) & 31)
			case OpShrS:
				res = a >> (uint32(b) & 31)
			case OpShrU:
				res = int32(uint32(a) >> (uint32(b) & 31))
			case OpEq:
				res = b2i(a == b)
			case OpNe:
				res = b2i(a != b)
			case OpLtS:
				res = b2i(a < b)
			case OpLeS:
				res = b2i(a <= b)
			case OpGtS:
				res = b2i(a > b)
			case OpGeS:
				res = b2i(a >= b)
			}
			v.push(res)

		case OpEqz:
			v.push(b2i(v.pop() == 0))

		case OpJump:
			v.IP += inst.Offset()

		case OpJumpIf:
			if v.pop() != 0 {
				v.IP += inst.Offset()
			}

		case OpJumpIfNot:
			if v.pop() == 0 {
				v.IP += inst.Offset()
			}

		case OpCall:
			callee := v.Instance.funcs[f.callees[inst>>8]]
			if v.SP-v.floor() < callee.numParams {
				return 0, v.trap(fmt.Errorf("%w: call %s", ErrStackUnderflow, callee.name))
			}
			if callee.isNative {
				n := callee.numParams
				ret, err := callee.native.Call(v, v.OperandStack[v.SP-n:v.SP])
				if err != nil {
					return 0, v.trap(fmt.Errorf("%s: %w", callee.name, err))
				}
				v.drop(n)
				if callee.result {
					v.push(ret)
				}
				continue
			}
			if err := v.enter(callee); err != nil {
				return 0, v.trap(err)
			}

		case OpReturn:
			if f.result && v.SP-v.floor() < 1 {
				return 0, v.trap(ErrStackUnderflow)
			}
			if ret, done := v.leave(); done {
				return ret, nil
			}

		default:
			return 0, v.trap(fmt.Errorf("%w: %v", ErrBadOpCode, inst))

		}
	}
}

func (v *VM) trap(err error) *Trap {
	return &Trap{
		Func: v.CurrentFun.name,
		IP:   v.IP - 1,
		Err:  err,
	}
}
