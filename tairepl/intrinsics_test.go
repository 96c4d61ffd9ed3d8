package tairepl

import (
	"bytes"
	"errors"
	"testing"

	"github.com/reusee/tairepl/taipy"
	"github.com/reusee/tairepl/taivm"
	"github.com/reusee/tairepl/taiword"
)

func TestIntrinsicsOrder(t *testing.T) {
	entries := DefaultIntrinsics(new(bytes.Buffer)).ordered()
	if len(entries) != len(taipy.Intrinsics) {
		t.Fatalf("got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.name != taipy.Intrinsics[i].Name || entry.fn == nil {
			t.Fatalf("got %s at %d", entry.name, i)
		}
	}
}

func TestDefaultIntrinsics(t *testing.T) {
	buf := new(bytes.Buffer)
	intrinsics := DefaultIntrinsics(buf)
	call := func(fn Intrinsic, args ...taiword.Word) (taiword.Word, error) {
		return fn(nil, args)
	}
	n := taiword.FromInt

	for _, c := range []struct {
		fn   Intrinsic
		args []taiword.Word
		want int64
	}{
		{intrinsics.Abs, []taiword.Word{n(-5)}, 5},
		{intrinsics.Abs, []taiword.Word{n(5)}, 5},
		{intrinsics.Min, []taiword.Word{n(3), n(-2)}, -2},
		{intrinsics.Max, []taiword.Word{n(3), n(-2)}, 3},
		{intrinsics.Pow, []taiword.Word{n(2), n(0)}, 1},
		{intrinsics.Pow, []taiword.Word{n(-3), n(3)}, -27},
		{intrinsics.Pow, []taiword.Word{n(1), n(1 << 29)}, 1},
		{intrinsics.Pow, []taiword.Word{n(0), n(1 << 29)}, 0},
	} {
		got, err := call(c.fn, c.args...)
		if err != nil {
			t.Fatal(err)
		}
		if got.Int() != c.want {
			t.Fatalf("%v: got %d, want %d", c.args, got.Int(), c.want)
		}
	}

	if _, err := call(intrinsics.Pow, n(2), n(30)); !errors.Is(err, taiword.ErrOutOfRange) {
		t.Fatalf("got %v", err)
	}
	if _, err := call(intrinsics.Pow, n(2), n(-1)); !errors.Is(err, taiword.ErrOutOfRange) {
		t.Fatalf("got %v", err)
	}
	if _, err := call(intrinsics.Abs, n(taiword.MinInt)); !errors.Is(err, taiword.ErrOutOfRange) {
		t.Fatalf("got %v", err)
	}
	if _, err := call(intrinsics.Abs, taiword.FromAddr(8)); !errors.Is(err, taiword.ErrBadValue) {
		t.Fatalf("got %v", err)
	}

	for _, c := range []struct {
		fn  Intrinsic
		arg taiword.Word
	}{
		{intrinsics.PrintNum, n(-12)},
		{intrinsics.PrintBool, taiword.True},
		{intrinsics.PrintBool, taiword.False},
		{intrinsics.PrintNone, taiword.None},
	} {
		got, err := call(c.fn, c.arg)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.arg {
			t.Fatalf("got %v", got)
		}
	}
	if buf.String() != "-12\nTrue\nFalse\nNone\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestFloorArith(t *testing.T) {
	for _, c := range []struct {
		a, b     int64
		div, mod int64
	}{
		{7, 2, 3, 1},
		{-7, 2, -4, 1},
		{7, -2, -4, -1},
		{-7, -2, 3, -1},
		{6, 3, 2, 0},
		{-6, 3, -2, 0},
	} {
		div, err := floorDiv(c.a, c.b)
		if err != nil {
			t.Fatal(err)
		}
		mod, err := floorMod(c.a, c.b)
		if err != nil {
			t.Fatal(err)
		}
		if div != c.div || mod != c.mod {
			t.Fatalf("%d, %d: got %d %d", c.a, c.b, div, mod)
		}
	}
	if _, err := floorDiv(1, 0); !errors.Is(err, taivm.ErrDivideByZero) {
		t.Fatalf("got %v", err)
	}
	if _, err := floorMod(1, 0); !errors.Is(err, taivm.ErrDivideByZero) {
		t.Fatalf("got %v", err)
	}
}

func TestIntOverflowIsReported(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	_, err := s.Run(t.Context(), "print(-1073741824 // -1)", Config{})
	if !errors.Is(err, ErrHostTrap) || !errors.Is(err, taiword.ErrOutOfRange) {
		t.Fatalf("got %v", err)
	}
}
