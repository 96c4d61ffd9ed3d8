package taiheap

import (
	"fmt"
	"iter"
	"sort"

	"github.com/reusee/tairepl/taiword"
)

// Block is a heap block or a pinned global slot.
type Block struct {
	Addr uint32
	Size uint32
	Kind taiword.BlockKind
	Slot bool
}

func (b Block) End() uint32 {
	return b.Addr + b.Size
}

// Walk yields blocks in address order from the base to the cursor.
func (h *Heap) Walk() iter.Seq2[Block, error] {
	return func(yield func(Block, error) bool) {
		cursor, err := h.Cursor()
		if err != nil {
			yield(Block{}, err)
			return
		}
		addr := h.base
		for addr < cursor {
			if h.IsPinned(addr) {
				if !yield(Block{Addr: addr, Size: taiword.Size, Slot: true}, nil) {
					return
				}
				addr += taiword.Size
				continue
			}
			header, err := h.mem.Read32(addr)
			if err != nil {
				yield(Block{}, err)
				return
			}
			kind, size := taiword.SplitHeader(header)
			if !kind.Valid() || size < taiword.HeaderSize || size%taiword.Size != 0 || uint64(addr)+uint64(size) > uint64(cursor) {
				yield(Block{}, fmt.Errorf("%w: header %#x at %d", ErrCorrupt, header, addr))
				return
			}
			if !yield(Block{Addr: addr, Size: size, Kind: kind}, nil) {
				return
			}
			addr += size
		}
	}
}

func (h *Heap) blocks() ([]Block, error) {
	var ret []Block
	for block, err := range h.Walk() {
		if err != nil {
			return nil, err
		}
		ret = append(ret, block)
	}
	return ret, nil
}

// Collect marks blocks reachable from pinned slots and the given roots,
// frees the rest, merges adjacent free blocks and lowers the cursor past trailing free space.
// Roots are treated conservatively: any even word inside a live block keeps that block.
// It returns the number of bytes reclaimed.
func (h *Heap) Collect(roots []uint32) (uint32, error) {
	blocks, err := h.blocks()
	if err != nil {
		return 0, err
	}
	cursor, err := h.Cursor()
	if err != nil {
		return 0, err
	}

	marked := make([]bool, len(blocks))
	var stack []int
	mark := func(w uint32) {
		word := taiword.Word(w)
		if !word.IsRef() || w < h.base || w >= cursor {
			return
		}
		i := sort.Search(len(blocks), func(i int) bool {
			return blocks[i].End() > w
		})
		if i >= len(blocks) {
			return
		}
		b := blocks[i]
		if b.Slot || b.Kind == taiword.BlockFree || marked[i] {
			return
		}
		marked[i] = true
		stack = append(stack, i)
	}

	for _, root := range roots {
		mark(root)
	}
	for _, b := range blocks {
		if !b.Slot {
			continue
		}
		w, err := h.mem.Read32(b.Addr)
		if err != nil {
			return 0, err
		}
		mark(w)
	}

	for len(stack) > 0 {
		b := blocks[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if b.Kind != taiword.BlockObject {
			continue
		}
		for off := uint32(taiword.ObjectFieldsOffset); off < b.Size; off += taiword.Size {
			w, err := h.mem.Read32(b.Addr + off)
			if err != nil {
				return 0, err
			}
			mark(w)
		}
	}

	// sweep
	var reclaimed uint32
	for i := range blocks {
		b := &blocks[i]
		if b.Slot || b.Kind == taiword.BlockFree || marked[i] {
			continue
		}
		reclaimed += b.Size
		b.Kind = taiword.BlockFree
	}

	// coalesce and find the new cursor
	newCursor := h.base
	for i := 0; i < len(blocks); {
		b := blocks[i]
		if b.Slot || b.Kind != taiword.BlockFree {
			newCursor = b.End()
			i++
			continue
		}
		size := b.Size
		j := i + 1
		for j < len(blocks) && !blocks[j].Slot && blocks[j].Kind == taiword.BlockFree {
			size += blocks[j].Size
			j++
		}
		if err := h.mem.Write32(b.Addr, taiword.MakeHeader(taiword.BlockFree, size)); err != nil {
			return 0, err
		}
		i = j
	}
	if err := h.setCursor(newCursor); err != nil {
		return 0, err
	}

	h.collections++
	return reclaimed, nil
}

type Stats struct {
	Base        uint32
	Cursor      uint32
	Limit       uint32
	Slots       int
	TextBlocks  int
	TextBytes   uint32
	Objects     int
	ObjectBytes uint32
	FreeBlocks  int
	FreeBytes   uint32
	Collections int
}

func (h *Heap) Stats() (Stats, error) {
	cursor, err := h.Cursor()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Base:        h.base,
		Cursor:      cursor,
		Limit:       h.limit,
		Collections: h.collections,
	}
	for b, err := range h.Walk() {
		if err != nil {
			return Stats{}, err
		}
		switch {
		case b.Slot:
			stats.Slots++
		case b.Kind == taiword.BlockText:
			stats.TextBlocks++
			stats.TextBytes += b.Size
		case b.Kind == taiword.BlockObject:
			stats.Objects++
			stats.ObjectBytes += b.Size
		case b.Kind == taiword.BlockFree:
			stats.FreeBlocks++
			stats.FreeBytes += b.Size
		}
	}
	return stats, nil
}
