package taiconfigs

import (
	"cmp"
	"github.com/reusee/tairepl/cmds"
	"github.com/reusee/tairepl/configs"
)

const DefaultMemoryPages = 16

// MemoryPages is the size of a session memory in pages.
type MemoryPages uint32

var memoryPagesFlag = cmds.Var[uint32]("-pages", "linear memory size in 64KiB pages")

func (Module) MemoryPages(
	loader configs.Loader,
) MemoryPages {
	return MemoryPages(cmp.Or(
		*memoryPagesFlag,
		configs.First[uint32](loader, "pages"),
		DefaultMemoryPages,
	))
}

// HeapLimit is the end of the heap in bytes. Zero means the whole memory.
type HeapLimit uint32

var heapLimitFlag = cmds.Var[uint32]("-heap-limit", "heap end in bytes, 0 for the whole memory")

func (Module) HeapLimit(
	loader configs.Loader,
) HeapLimit {
	return HeapLimit(cmp.Or(
		*heapLimitFlag,
		configs.First[uint32](loader, "heap_limit"),
	))
}
