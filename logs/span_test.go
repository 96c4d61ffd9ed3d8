package logs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/reusee/dscope"
)

func TestNewSpan(t *testing.T) {
	level.Set(slog.LevelDebug)
	defer level.Set(slog.LevelInfo)
	buf := new(bytes.Buffer)
	dscope.New(new(Module)).Fork(
		func() Writer {
			return buf
		},
	).Call(func(
		newSpan NewSpan,
	) {
		ctx := WithSpan(context.Background(), "session-1")

		// snippet in session, nested run, run reparented to session
		snippetCtx, snippet := newSpan(ctx, "")
		runCtx, run := newSpan(snippetCtx, "")
		_, rerun := newSpan(runCtx, "session-1")

		lines := strings.Split(buf.String(), "\n")
		if !strings.Contains(lines[0], "span="+string(snippet)) ||
			!strings.Contains(lines[0], "parent=session-1") {
			t.Fatalf("got %v", lines[0])
		}
		if !strings.Contains(lines[1], "span="+string(run)) ||
			!strings.Contains(lines[1], "parent="+string(snippet)) {
			t.Fatalf("got %v", lines[1])
		}
		if !strings.Contains(lines[2], "span="+string(rerun)) ||
			!strings.Contains(lines[2], "parent=session-1") ||
			!strings.Contains(lines[2], "creator="+string(run)) {
			t.Fatalf("got %v", lines[2])
		}
	})
}

func TestSpanFrom(t *testing.T) {
	if _, ok := SpanFrom(context.Background()); ok {
		t.Fatal("span in empty context")
	}
	if _, ok := SpanFrom(WithSpan(context.Background(), "")); ok {
		t.Fatal("empty span reported")
	}
	span, ok := SpanFrom(WithSpan(context.Background(), "abc"))
	if !ok || span != "abc" {
		t.Fatalf("got %v %v", span, ok)
	}
}

func TestWrapSpan(t *testing.T) {
	errTrap := errors.New("trap")
	if err := WrapSpan(context.Background(), errTrap); err != errTrap {
		t.Fatalf("got %v", err)
	}
	ctx := WithSpan(context.Background(), "abc")
	if err := WrapSpan(ctx, nil); err != nil {
		t.Fatalf("got %v", err)
	}
	err := WrapSpan(ctx, errTrap)
	if !errors.Is(err, errTrap) {
		t.Fatalf("got %v", err)
	}
	if err.Error() != "trap (span abc)" {
		t.Fatalf("got %v", err)
	}
}
