package tairepl

import (
	"bytes"
	"io"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/tairepl/logs"
	"github.com/reusee/tairepl/modes"
)

func TestModule(t *testing.T) {
	buf := new(bytes.Buffer)
	dscope.New(
		new(Module),
		modes.ForTest(t),
	).Fork(
		func() Output {
			return buf
		},
		func() logs.Writer {
			return io.Discard
		},
	).Call(func(
		open OpenSession,
	) {
		s, err := open()
		if err != nil {
			t.Fatal(err)
		}
		if !s.options.CheckHeap {
			t.Fatal("heap checks off in development mode")
		}
		if s.Memory().Pages() == 0 {
			t.Fatal()
		}
		repl := NewREPL(s)
		if _, err := repl.Run(t.Context(), "print('hello')"); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "hello\n" {
			t.Fatalf("got %q", buf.String())
		}
	})
}
