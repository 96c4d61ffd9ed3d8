package taibind

import (
	"slices"
	"testing"

	"github.com/reusee/tairepl/taiword"
)

func TestShadowByAppend(t *testing.T) {
	t0 := New()
	t1, x1 := t0.Extend("x", 100, taiword.IntType)
	t2, y := t1.Extend("y", 104, taiword.BoolType)
	t3, x2 := t2.Extend("x", 108, taiword.TextType)

	if x1.Slot != 0 || y.Slot != 1 || x2.Slot != 2 {
		t.Fatalf("got %v %v %v", x1, y, x2)
	}
	if t3.Len() != 3 {
		t.Fatalf("got %d", t3.Len())
	}
	b, ok := t3.Lookup("x")
	if !ok || b.Addr != 108 || b.Type != taiword.TextType {
		t.Fatalf("got %+v", b)
	}
	// older tables are untouched
	b, ok = t2.Lookup("x")
	if !ok || b.Addr != 100 {
		t.Fatalf("got %+v", b)
	}
	if _, ok := t0.Lookup("x"); ok {
		t.Fatal()
	}
	if t0.Len() != 0 || t1.Len() != 1 {
		t.Fatal()
	}

	if got := t3.Addrs(); !slices.Equal(got, []uint32{100, 104, 108}) {
		t.Fatalf("got %v", got)
	}
	var names []string
	for b := range t3.Visible() {
		names = append(names, b.Name)
	}
	if !slices.Equal(names, []string{"y", "x"}) {
		t.Fatalf("got %v", names)
	}
}

func TestExtendDoesNotAlias(t *testing.T) {
	base, _ := New().Extend("a", 4, taiword.IntType)
	left, _ := base.Extend("b", 8, taiword.IntType)
	right, _ := base.Extend("c", 8, taiword.IntType)
	if left.At(1).Name != "b" || right.At(1).Name != "c" {
		t.Fatalf("got %v %v", left.At(1), right.At(1))
	}
	if left.Equal(right) {
		t.Fatal()
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if table.Len() != 0 {
		t.Fatal()
	}
	next, b := table.Extend("x", 4, taiword.IntType)
	if b.Slot != 0 || next.Len() != 1 {
		t.Fatalf("got %v", b)
	}
	if !table.Equal(New()) {
		t.Fatal()
	}
}
