package tairepl

import (
	"io"
	"os"

	"github.com/reusee/dscope"
	"github.com/reusee/tairepl/logs"
	"github.com/reusee/tairepl/modes"
	"github.com/reusee/tairepl/taiconfigs"
)

type Module struct {
	dscope.Module
	Configs taiconfigs.Module
	Logs    logs.Module
}

// Output receives what snippets print.
type Output io.Writer

func (Module) Output() Output {
	return os.Stdout
}

func (Module) Intrinsics(
	output Output,
) Intrinsics {
	return DefaultIntrinsics(output)
}

type OpenSession func() (*Session, error)

func (Module) OpenSession(
	pages taiconfigs.MemoryPages,
	limit taiconfigs.HeapLimit,
	intrinsics Intrinsics,
	logger logs.Logger,
	mode modes.Mode,
) OpenSession {
	return func() (*Session, error) {
		return NewSession(Options{
			Pages:      uint32(pages),
			HeapLimit:  uint32(limit),
			Intrinsics: intrinsics,
			Logger:     logger,
			CheckHeap:  mode.Verbose(),
		})
	}
}
