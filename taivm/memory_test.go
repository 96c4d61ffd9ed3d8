package taivm

import (
	"errors"
	"testing"
)

func TestMemoryGrow(t *testing.T) {
	mem, err := NewMemory(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(PageSize-4, 7); err != nil {
		t.Fatal(err)
	}
	old, err := mem.Grow(1)
	if err != nil {
		t.Fatal(err)
	}
	if old != 1 || mem.Pages() != 2 || mem.Size() != 2*PageSize {
		t.Fatalf("got %d %d", old, mem.Pages())
	}
	v, err := mem.Read32(PageSize - 4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Fatalf("got %d", v)
	}
	if _, err := mem.Grow(1); !errors.Is(err, ErrMemoryLimit) {
		t.Fatalf("got %v", err)
	}
}

func TestMemorySnapshot(t *testing.T) {
	mem, err := NewMemory(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(0, 16); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(8, 99); err != nil {
		t.Fatal(err)
	}
	snapshot, err := mem.Snapshot(16)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(0, 64); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(8, 1); err != nil {
		t.Fatal(err)
	}
	if err := mem.Restore(snapshot); err != nil {
		t.Fatal(err)
	}
	for addr, want := range map[uint32]uint32{0: 16, 8: 99} {
		got, err := mem.Read32(addr)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("at %d got %d, want %d", addr, got, want)
		}
	}
}

func TestMemoryBounds(t *testing.T) {
	mem, err := NewMemory(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Write(PageSize-2, []byte{1, 2, 3}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got %v", err)
	}
	if _, err := mem.Read8(PageSize); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got %v", err)
	}
	if err := mem.Write32(6, 1); !errors.Is(err, ErrMisaligned) {
		t.Fatalf("got %v", err)
	}
}
