package taiword

import "fmt"

type BlockKind uint8

const (
	BlockText   BlockKind = 1
	BlockObject BlockKind = 2
	BlockFree   BlockKind = 3
)

func (k BlockKind) String() string {
	switch k {
	case BlockText:
		return "text"
	case BlockObject:
		return "object"
	case BlockFree:
		return "free"
	}
	return fmt.Sprintf("BlockKind(%d)", k)
}

func (k BlockKind) Valid() bool {
	return k >= BlockText && k <= BlockFree
}

// block layouts, offsets relative to the header address
const (
	HeaderSize = 4

	TextLenOffset  = 4
	TextDataOffset = 8

	ObjectClassOffset  = 4
	ObjectFieldsOffset = 8
)

// MakeHeader packs a block size (a multiple of 4, header included) and a kind.
func MakeHeader(kind BlockKind, size uint32) uint32 {
	return size<<4 | uint32(kind)
}

func SplitHeader(header uint32) (BlockKind, uint32) {
	return BlockKind(header & 0xf), header >> 4
}

func TextBlockSize(n int) uint32 {
	return Align(uint32(TextDataOffset + n))
}

func ObjectBlockSize(numFields int) uint32 {
	return uint32(ObjectFieldsOffset + numFields*Size)
}

// FieldOffset is the byte offset of field i from the object address.
func FieldOffset(i int) uint32 {
	return uint32(ObjectFieldsOffset + i*Size)
}
