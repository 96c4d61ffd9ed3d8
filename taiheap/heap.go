package taiheap

import (
	"errors"
	"fmt"
	"slices"

	"github.com/reusee/tairepl/taiword"
)

var (
	ErrOutOfMemory = errors.New("out of memory")
	ErrCorrupt     = errors.New("heap corrupt")
)

// Memory is the linear memory the heap lives in.
type Memory interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, v uint32) error
	Read(addr uint32, p []byte) error
	Write(addr uint32, p []byte) error
	Size() uint32
}

// RootSource reports words held outside the heap, such as a running VM's operand stack.
type RootSource func() []uint32

const (
	CursorAddr  = 0
	DefaultBase = 4
)

type Options struct {
	// Base is the first heap byte
	Base uint32
	// Limit is the end of the heap, defaults to memory size
	Limit uint32
	Roots RootSource
}

// Heap manages blocks in [Base, cursor) of a linear memory.
// The cursor itself is stored at offset 0 so that generated code can read it.
type Heap struct {
	mem         Memory
	base        uint32
	limit       uint32
	roots       RootSource
	pinned      map[uint32]struct{}
	collections int
}

func New(mem Memory, opts Options) (*Heap, error) {
	base := opts.Base
	if base == 0 {
		base = DefaultBase
	}
	limit := opts.Limit
	if limit == 0 || limit > mem.Size() {
		limit = mem.Size()
	}
	if base%taiword.Size != 0 || base < DefaultBase || base >= limit {
		return nil, fmt.Errorf("bad heap range [%d, %d)", base, limit)
	}
	h := &Heap{
		mem:    mem,
		base:   base,
		limit:  limit,
		roots:  opts.Roots,
		pinned: make(map[uint32]struct{}),
	}
	cursor, err := h.Cursor()
	if err != nil {
		return nil, err
	}
	if cursor == 0 {
		if err := h.setCursor(base); err != nil {
			return nil, err
		}
	} else if cursor < base || cursor > limit || cursor%taiword.Size != 0 {
		return nil, fmt.Errorf("%w: cursor %d", ErrCorrupt, cursor)
	}
	return h, nil
}

func (h *Heap) Base() uint32 {
	return h.base
}

func (h *Heap) Limit() uint32 {
	return h.limit
}

func (h *Heap) SetRoots(roots RootSource) {
	h.roots = roots
}

func (h *Heap) Cursor() (uint32, error) {
	return h.mem.Read32(CursorAddr)
}

func (h *Heap) setCursor(cursor uint32) error {
	return h.mem.Write32(CursorAddr, cursor)
}

// Reserve claims k zeroed words at the cursor for global slots and pins them.
// The returned address is the cursor before the call.
func (h *Heap) Reserve(k int) (uint32, error) {
	cursor, err := h.Cursor()
	if err != nil {
		return 0, err
	}
	if k <= 0 {
		return cursor, nil
	}
	end := uint64(cursor) + uint64(k)*taiword.Size
	if end > uint64(h.limit) {
		return 0, fmt.Errorf("%w: reserve %d slots at %d", ErrOutOfMemory, k, cursor)
	}
	if err := h.mem.Write(cursor, make([]byte, k*taiword.Size)); err != nil {
		return 0, err
	}
	for i := range k {
		h.pinned[cursor+uint32(i)*taiword.Size] = struct{}{}
	}
	if err := h.setCursor(uint32(end)); err != nil {
		return 0, err
	}
	return cursor, nil
}

func (h *Heap) IsPinned(addr uint32) bool {
	_, ok := h.pinned[addr]
	return ok
}

// Pins returns the pinned slot addresses in ascending order.
func (h *Heap) Pins() []uint32 {
	ret := make([]uint32, 0, len(h.pinned))
	for addr := range h.pinned {
		ret = append(ret, addr)
	}
	slices.Sort(ret)
	return ret
}

func (h *Heap) SetPins(addrs []uint32) {
	clear(h.pinned)
	for _, addr := range addrs {
		h.pinned[addr] = struct{}{}
	}
}

// Reset discards all blocks and pins.
func (h *Heap) Reset() error {
	clear(h.pinned)
	h.collections = 0
	return h.setCursor(h.base)
}

// Allocate returns the address of a new zeroed block with payload bytes after the header.
// On exhaustion it collects using the root source, then falls back to first-fit reuse of free blocks.
func (h *Heap) Allocate(kind taiword.BlockKind, payload uint32) (uint32, error) {
	if kind != taiword.BlockText && kind != taiword.BlockObject {
		return 0, fmt.Errorf("cannot allocate %v block", kind)
	}
	size := taiword.Align(taiword.HeaderSize + payload)

	addr, ok, err := h.bump(size)
	if err != nil {
		return 0, err
	}
	if !ok {
		var roots []uint32
		if h.roots != nil {
			roots = h.roots()
		}
		if _, err := h.Collect(roots); err != nil {
			return 0, err
		}
		addr, ok, err = h.bump(size)
		if err != nil {
			return 0, err
		}
	}
	if !ok {
		addr, size, ok, err = h.reuse(size)
		if err != nil {
			return 0, err
		}
	}
	if !ok {
		return 0, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
	}

	if err := h.mem.Write32(addr, taiword.MakeHeader(kind, size)); err != nil {
		return 0, err
	}
	if err := h.mem.Write(addr+taiword.HeaderSize, make([]byte, size-taiword.HeaderSize)); err != nil {
		return 0, err
	}
	return addr, nil
}

func (h *Heap) bump(size uint32) (uint32, bool, error) {
	cursor, err := h.Cursor()
	if err != nil {
		return 0, false, err
	}
	if uint64(cursor)+uint64(size) > uint64(h.limit) {
		return 0, false, nil
	}
	if err := h.setCursor(cursor + size); err != nil {
		return 0, false, err
	}
	return cursor, true, nil
}

func (h *Heap) reuse(size uint32) (addr uint32, got uint32, ok bool, err error) {
	for block, err := range h.Walk() {
		if err != nil {
			return 0, 0, false, err
		}
		if block.Slot || block.Kind != taiword.BlockFree || block.Size < size {
			continue
		}
		got = block.Size
		if rest := block.Size - size; rest >= taiword.HeaderSize {
			if err := h.mem.Write32(block.Addr+size, taiword.MakeHeader(taiword.BlockFree, rest)); err != nil {
				return 0, 0, false, err
			}
			got = size
		}
		return block.Addr, got, true, nil
	}
	return 0, 0, false, nil
}

func (h *Heap) AllocText(s string) (taiword.Word, error) {
	addr, err := h.Allocate(taiword.BlockText, uint32(taiword.TextDataOffset-taiword.HeaderSize+len(s)))
	if err != nil {
		return 0, err
	}
	if err := h.mem.Write32(addr+taiword.TextLenOffset, uint32(len(s))); err != nil {
		return 0, err
	}
	if err := h.mem.Write(addr+taiword.TextDataOffset, []byte(s)); err != nil {
		return 0, err
	}
	return taiword.FromAddr(addr), nil
}

// AllocObject allocates an instance with all fields None.
func (h *Heap) AllocObject(classID int64, numFields int) (taiword.Word, error) {
	addr, err := h.Allocate(taiword.BlockObject, uint32(taiword.ObjectFieldsOffset-taiword.HeaderSize+numFields*taiword.Size))
	if err != nil {
		return 0, err
	}
	if err := h.mem.Write32(addr+taiword.ObjectClassOffset, uint32(taiword.FromInt(classID))); err != nil {
		return 0, err
	}
	return taiword.FromAddr(addr), nil
}
