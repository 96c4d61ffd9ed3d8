package taiheap

import (
	"errors"
	"testing"

	"github.com/reusee/tairepl/taivm"
	"github.com/reusee/tairepl/taiword"
)

func newHeap(t *testing.T, opts Options) (*Heap, *taivm.Memory) {
	t.Helper()
	mem, err := taivm.NewMemory(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	h, err := New(mem, opts)
	if err != nil {
		t.Fatal(err)
	}
	return h, mem
}

func cursor(t *testing.T, h *Heap) uint32 {
	t.Helper()
	c, err := h.Cursor()
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func text(t *testing.T, h *Heap, s string) taiword.Word {
	t.Helper()
	w, err := h.AllocText(s)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestNewHeap(t *testing.T) {
	h, mem := newHeap(t, Options{})
	if got := cursor(t, h); got != DefaultBase {
		t.Fatalf("got %d", got)
	}

	// existing cursor is kept
	text(t, h, "foo")
	before := cursor(t, h)
	h2, err := New(mem, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := cursor(t, h2); got != before {
		t.Fatalf("got %d, want %d", got, before)
	}

	// bad cursor
	if err := mem.Write32(CursorAddr, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := New(mem, Options{}); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("got %v", err)
	}
}

func TestAllocText(t *testing.T) {
	h, mem := newHeap(t, Options{})
	w := text(t, h, "hello")
	if w.Addr() != DefaultBase {
		t.Fatalf("got %v", w)
	}
	if got := cursor(t, h); got != DefaultBase+taiword.TextBlockSize(5) {
		t.Fatalf("got %d", got)
	}
	v, err := taiword.Decode(taiword.TextType, w, mem)
	if err != nil {
		t.Fatal(err)
	}
	if v != "hello" {
		t.Fatalf("got %v", v)
	}
}

func TestAllocObject(t *testing.T) {
	h, mem := newHeap(t, Options{})
	w, err := h.AllocObject(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	v, err := taiword.Decode(taiword.ObjectType("Point"), w, mem)
	if err != nil {
		t.Fatal(err)
	}
	obj := v.(*taiword.Object)
	if obj.ClassID != 3 || len(obj.Fields) != 2 || obj.Fields[0] != taiword.None {
		t.Fatalf("got %+v", obj)
	}
}

func TestReserve(t *testing.T) {
	h, mem := newHeap(t, Options{})
	text(t, h, "a")
	c := cursor(t, h)
	if err := mem.Write32(c, 0xdead); err != nil {
		t.Fatal(err)
	}
	addr, err := h.Reserve(3)
	if err != nil {
		t.Fatal(err)
	}
	if addr != c {
		t.Fatalf("got %d, want %d", addr, c)
	}
	if got := cursor(t, h); got != c+12 {
		t.Fatalf("got %d", got)
	}
	v, err := mem.Read32(addr)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("slot not zeroed: %d", v)
	}
	if len(h.Pins()) != 3 || !h.IsPinned(addr+8) {
		t.Fatalf("got %v", h.Pins())
	}

	var slots, blocks int
	for b, err := range h.Walk() {
		if err != nil {
			t.Fatal(err)
		}
		if b.Slot {
			slots++
		} else {
			blocks++
		}
	}
	if slots != 3 || blocks != 1 {
		t.Fatalf("got %d slots %d blocks", slots, blocks)
	}
}

func TestCollect(t *testing.T) {
	h, mem := newHeap(t, Options{})

	kept := text(t, h, "kept")
	garbage := text(t, h, "garbage")
	obj, err := h.AllocObject(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	inner := text(t, h, "inner")
	if err := mem.Write32(obj.Addr()+taiword.FieldOffset(0), uint32(inner)); err != nil {
		t.Fatal(err)
	}
	tail := text(t, h, "tail")

	slot, err := h.Reserve(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(slot, uint32(kept)); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(slot+4, uint32(obj)); err != nil {
		t.Fatal(err)
	}
	_ = tail

	reclaimed, err := h.Collect(nil)
	if err != nil {
		t.Fatal(err)
	}
	if reclaimed != taiword.TextBlockSize(len("garbage"))+taiword.TextBlockSize(len("tail")) {
		t.Fatalf("reclaimed %d", reclaimed)
	}

	for _, w := range []taiword.Word{kept, inner} {
		if _, err := taiword.Decode(taiword.TextType, w, mem); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := taiword.Decode(taiword.TextType, garbage, mem); !errors.Is(err, taiword.ErrOutOfBounds) {
		t.Fatalf("got %v", err)
	}

	stats, err := h.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Slots != 2 || stats.TextBlocks != 2 || stats.Objects != 1 || stats.FreeBlocks != 2 {
		t.Fatalf("got %+v", stats)
	}
	if stats.Collections != 1 {
		t.Fatalf("got %+v", stats)
	}
}

func TestCollectLowersCursor(t *testing.T) {
	h, _ := newHeap(t, Options{})
	text(t, h, "a")
	text(t, h, "b")
	if _, err := h.Collect(nil); err != nil {
		t.Fatal(err)
	}
	if got := cursor(t, h); got != DefaultBase {
		t.Fatalf("got %d", got)
	}
}

func TestCollectConservativeRoots(t *testing.T) {
	h, mem := newHeap(t, Options{})
	a := text(t, h, "interior")
	b := text(t, h, "dropped")
	_ = b
	// a pointer into the middle of a, and an odd word that looks like b
	roots := []uint32{a.Addr() + 8, uint32(b) + 1}
	if _, err := h.Collect(roots); err != nil {
		t.Fatal(err)
	}
	if _, err := taiword.Decode(taiword.TextType, a, mem); err != nil {
		t.Fatal(err)
	}
	if got := cursor(t, h); got != a.Addr()+taiword.TextBlockSize(len("interior")) {
		t.Fatalf("got %d", got)
	}
}

func TestAllocateCollects(t *testing.T) {
	h, _ := newHeap(t, Options{
		Limit: 64,
	})
	for range 20 {
		text(t, h, "garbage")
	}
	stats, err := h.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Collections == 0 {
		t.Fatal("expecting collections")
	}
}

func TestAllocateReuse(t *testing.T) {
	var live []uint32
	h, mem := newHeap(t, Options{
		Limit: 64,
		Roots: func() []uint32 {
			return live
		},
	})
	a := text(t, h, "a")      // [4, 16)
	b := text(t, h, "b")      // [16, 28)
	c := text(t, h, "c")      // [28, 40)
	slot, err := h.Reserve(2) // [40, 48)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(slot, uint32(a)); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(slot+4, uint32(c)); err != nil {
		t.Fatal(err)
	}
	x := text(t, h, "x") // [48, 60)
	live = append(live, uint32(x))

	y := text(t, h, "y")
	if y != b {
		t.Fatalf("got %v, want reuse of %v", y, b)
	}
	v, err := taiword.Decode(taiword.TextType, y, mem)
	if err != nil {
		t.Fatal(err)
	}
	if v != "y" {
		t.Fatalf("got %v", v)
	}
}

func TestOutOfMemory(t *testing.T) {
	var live []uint32
	h, _ := newHeap(t, Options{
		Limit: 64,
		Roots: func() []uint32 {
			return live
		},
	})
	for {
		w, err := h.AllocText("live")
		if errors.Is(err, ErrOutOfMemory) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		live = append(live, uint32(w))
		if len(live) > 10 {
			t.Fatal("expecting out of memory")
		}
	}
	if _, err := h.Reserve(100); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("got %v", err)
	}
}

func TestWalkCorrupt(t *testing.T) {
	h, mem := newHeap(t, Options{})
	w := text(t, h, "x")
	if err := mem.Write32(w.Addr(), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Collect(nil); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("got %v", err)
	}
}

func TestReset(t *testing.T) {
	h, _ := newHeap(t, Options{})
	text(t, h, "x")
	if _, err := h.Reserve(1); err != nil {
		t.Fatal(err)
	}
	if err := h.Reset(); err != nil {
		t.Fatal(err)
	}
	if got := cursor(t, h); got != DefaultBase || len(h.Pins()) != 0 {
		t.Fatalf("got %d %v", got, h.Pins())
	}
}
