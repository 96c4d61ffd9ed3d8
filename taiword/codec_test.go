package taiword

import (
	"encoding/binary"
	"errors"
	"testing"
)

type testMemory []byte

func (m testMemory) Read32(addr uint32) (uint32, error) {
	if uint64(addr)+4 > uint64(len(m)) {
		return 0, ErrOutOfBounds
	}
	return binary.LittleEndian.Uint32(m[addr:]), nil
}

func (m testMemory) Read(addr uint32, p []byte) error {
	if uint64(addr)+uint64(len(p)) > uint64(len(m)) {
		return ErrOutOfBounds
	}
	copy(p, m[addr:])
	return nil
}

func (m testMemory) put32(addr uint32, v uint32) {
	binary.LittleEndian.PutUint32(m[addr:], v)
}

func TestIntRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 42, -42, MaxInt, MinInt, 1 << 20} {
		w, err := Encode(IntType, n)
		if err != nil {
			t.Fatal(err)
		}
		if !w.IsImmediate() {
			t.Fatalf("%d encoded as %v", n, w)
		}
		v, err := Decode(IntType, w, nil)
		if err != nil {
			t.Fatal(err)
		}
		if v != n {
			t.Errorf("decode(encode(%d)) = %v", n, v)
		}
	}
}

func TestIntOutOfRange(t *testing.T) {
	for _, n := range []int64{MaxInt + 1, MinInt - 1, 1 << 40} {
		_, err := Encode(IntType, n)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("encode %d: got %v", n, err)
		}
	}
}

func TestBoolWords(t *testing.T) {
	if FromBool(true) != 3 {
		t.Fatalf("True = %d", FromBool(true))
	}
	if FromBool(false) != 1 {
		t.Fatalf("False = %d", FromBool(false))
	}
	for _, b := range []bool{true, false} {
		w, err := Encode(BoolType, b)
		if err != nil {
			t.Fatal(err)
		}
		v, err := Decode(BoolType, w, nil)
		if err != nil {
			t.Fatal(err)
		}
		if v != b {
			t.Errorf("got %v, want %v", v, b)
		}
	}
}

func TestNone(t *testing.T) {
	w, err := Encode(NoneType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w != None || w.IsRef() || w.IsImmediate() {
		t.Fatalf("got %v", w)
	}
	if _, err := Encode(NoneType, 1); !errors.Is(err, ErrBadValue) {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeText(t *testing.T) {
	mem := make(testMemory, 64)
	s := "héllo"
	mem.put32(8, MakeHeader(BlockText, TextBlockSize(len(s))))
	mem.put32(8+TextLenOffset, uint32(len(s)))
	copy(mem[8+TextDataOffset:], s)

	v, err := Decode(TextType, FromAddr(8), mem)
	if err != nil {
		t.Fatal(err)
	}
	if v != s {
		t.Fatalf("got %q", v)
	}
	if got := Render(TextType, v); got != s {
		t.Fatalf("got %q", got)
	}
}

func TestDecodeTextInvalid(t *testing.T) {
	mem := make(testMemory, 64)
	_, err := Decode(TextType, Invalid, mem)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got %v", err)
	}
	_, err = Decode(TextType, FromAddr(1024), mem)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got %v", err)
	}
	// object block where text is expected
	mem.put32(4, MakeHeader(BlockObject, ObjectBlockSize(0)))
	_, err = Decode(TextType, FromAddr(4), mem)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeObject(t *testing.T) {
	mem := make(testMemory, 64)
	mem.put32(16, MakeHeader(BlockObject, ObjectBlockSize(2)))
	mem.put32(16+ObjectClassOffset, uint32(FromInt(7)))
	mem.put32(16+FieldOffset(0), uint32(FromInt(1)))
	mem.put32(16+FieldOffset(1), uint32(FromInt(2)))

	v, err := Decode(ObjectType("Range"), FromAddr(16), mem)
	if err != nil {
		t.Fatal(err)
	}
	obj := v.(*Object)
	if obj.ClassID != 7 || obj.Class != "Range" || obj.Addr != 16 {
		t.Fatalf("got %+v", obj)
	}
	if len(obj.Fields) != 2 || obj.Fields[1].Int() != 2 {
		t.Fatalf("got %+v", obj.Fields)
	}
	if got := Render(ObjectType("Range"), obj); got != "<Range object at 16>" {
		t.Fatalf("got %q", got)
	}

	w, err := Encode(ObjectType("Range"), obj)
	if err != nil {
		t.Fatal(err)
	}
	if w != 16 {
		t.Fatalf("got %v", w)
	}
}

func TestRender(t *testing.T) {
	cases := []struct {
		typ  Type
		v    any
		want string
	}{
		{IntType, int64(-3), "-3"},
		{BoolType, true, "True"},
		{BoolType, false, "False"},
		{NoneType, nil, "None"},
		{TextType, "abc", "abc"},
	}
	for _, c := range cases {
		if got := Render(c.typ, c.v); got != c.want {
			t.Errorf("Render(%v, %v) = %q, want %q", c.typ, c.v, got, c.want)
		}
	}
}

func TestHeader(t *testing.T) {
	h := MakeHeader(BlockText, 24)
	kind, size := SplitHeader(h)
	if kind != BlockText || size != 24 {
		t.Fatalf("got %v %d", kind, size)
	}
	if TextBlockSize(5) != 16 {
		t.Fatalf("got %d", TextBlockSize(5))
	}
	if ObjectBlockSize(3) != 20 {
		t.Fatalf("got %d", ObjectBlockSize(3))
	}
}
