package taiword

import (
	"errors"
	"fmt"
)

// Word is a 32-bit tagged value.
// Low bit 1: immediate int or bool, payload in the upper 31 bits.
// Low bit 0: heap address, 0 is None.
type Word uint32

const (
	TagBits = 1
	Size    = 4

	None    Word = 0
	False   Word = 1
	True    Word = 3
	Invalid Word = 0xFFFFFFFF

	MaxInt int64 = 1<<30 - 1
	MinInt int64 = -(1 << 30)
)

var (
	ErrOutOfRange  = errors.New("out of range")
	ErrOutOfBounds = errors.New("out of bounds")
	ErrBadValue    = errors.New("bad value")
)

func FromInt(n int64) Word {
	return Word(uint32(int32(n)<<TagBits | 1))
}

func FromBool(b bool) Word {
	if b {
		return True
	}
	return False
}

func FromAddr(addr uint32) Word {
	return Word(addr)
}

func (w Word) IsImmediate() bool {
	return w&1 == 1
}

// IsRef reports whether w may address a heap block.
func (w Word) IsRef() bool {
	return w&1 == 0 && w != None
}

func (w Word) Int() int64 {
	return int64(int32(w) >> TagBits)
}

func (w Word) Bool() bool {
	return w>>TagBits == 1
}

func (w Word) Addr() uint32 {
	return uint32(w)
}

func (w Word) String() string {
	switch {
	case w == Invalid:
		return "invalid"
	case w.IsImmediate():
		return fmt.Sprintf("imm(%d)", w.Int())
	case w == None:
		return "None"
	}
	return fmt.Sprintf("ref(%d)", w.Addr())
}

// Align rounds n up to a multiple of the word size.
func Align(n uint32) uint32 {
	return (n + Size - 1) &^ (Size - 1)
}
