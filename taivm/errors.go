package taivm

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds    = errors.New("memory access out of bounds")
	ErrMisaligned     = errors.New("misaligned memory access")
	ErrDivideByZero   = errors.New("integer divide by zero")
	ErrUnreachable    = errors.New("unreachable executed")
	ErrStackOverflow  = errors.New("call stack exhausted")
	ErrStackUnderflow = errors.New("operand stack underflow")
	ErrLink           = errors.New("link error")
	ErrBadOpCode      = errors.New("bad opcode")
	ErrMemoryLimit    = errors.New("memory limit exceeded")
)

// Trap is a fault raised while executing a function.
type Trap struct {
	Func string
	IP   int
	Err  error
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap in %s at %d: %v", t.Func, t.IP, t.Err)
}

func (t *Trap) Unwrap() error {
	return t.Err
}
