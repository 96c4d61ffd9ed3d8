package taivm

import "fmt"

type OpCode uint32

const (
	OpNop OpCode = iota + 8
	OpUnreachable
	OpConst
	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpDrop
	OpLoad
	OpLoad8U
	OpStore
	OpStore8
	OpAdd
	OpSub
	OpMul
	OpDivS
	OpRemS
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShrS
	OpShrU
	OpEq
	OpNe
	OpLtS
	OpLeS
	OpGtS
	OpGeS
	OpEqz
	OpJump
	OpJumpIf
	OpJumpIfNot
	OpCall
	OpReturn
)

func (o OpCode) With(arg int) OpCode {
	return o | (OpCode(arg) << 8)
}

func (o OpCode) Op() OpCode {
	return o & 0xff
}

func (o OpCode) Arg() int {
	return int(o >> 8)
}

// Offset is the signed argument of jumps.
func (o OpCode) Offset() int {
	return int(int32(o) >> 8)
}

// MaxArg is the largest unsigned instruction argument.
const MaxArg = 1<<24 - 1

var opNames = map[OpCode]string{
	OpNop:         "nop",
	OpUnreachable: "unreachable",
	OpConst:       "i32.const",
	OpLocalGet:    "local.get",
	OpLocalSet:    "local.set",
	OpLocalTee:    "local.tee",
	OpDrop:        "drop",
	OpLoad:        "i32.load",
	OpLoad8U:      "i32.load8_u",
	OpStore:       "i32.store",
	OpStore8:      "i32.store8",
	OpAdd:         "i32.add",
	OpSub:         "i32.sub",
	OpMul:         "i32.mul",
	OpDivS:        "i32.div_s",
	OpRemS:        "i32.rem_s",
	OpAnd:         "i32.and",
	OpOr:          "i32.or",
	OpXor:         "i32.xor",
	OpShl:         "i32.shl",
	OpShrS:        "i32.shr_s",
	OpShrU:        "i32.shr_u",
	OpEq:          "i32.eq",
	OpNe:          "i32.ne",
	OpLtS:         "i32.lt_s",
	OpLeS:         "i32.le_s",
	OpGtS:         "i32.gt_s",
	OpGeS:         "i32.ge_s",
	OpEqz:         "i32.eqz",
	OpJump:        "jump",
	OpJumpIf:      "jump_if",
	OpJumpIfNot:   "jump_if_not",
	OpCall:        "call",
	OpReturn:      "return",
}

var opsByName = func() map[string]OpCode {
	ret := make(map[string]OpCode, len(opNames))
	for op, name := range opNames {
		ret[name] = op
	}
	return ret
}()

// LookupOp finds an opcode by its text mnemonic.
func LookupOp(name string) (OpCode, bool) {
	op, ok := opsByName[name]
	return op, ok
}

func (o OpCode) String() string {
	name, ok := opNames[o.Op()]
	if !ok {
		return fmt.Sprintf("op(%d)", uint32(o.Op()))
	}
	switch o.Op() {
	case OpConst, OpLocalGet, OpLocalSet, OpLocalTee, OpCall:
		return fmt.Sprintf("%s %d", name, o.Arg())
	case OpLoad, OpLoad8U, OpStore, OpStore8:
		return fmt.Sprintf("%s offset=%d", name, o.Arg())
	case OpJump, OpJumpIf, OpJumpIfNot:
		return fmt.Sprintf("%s %+d", name, o.Offset())
	}
	return name
}
