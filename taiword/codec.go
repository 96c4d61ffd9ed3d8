package taiword

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Reader is a read-only view of linear memory.
type Reader interface {
	Read32(addr uint32) (uint32, error)
	Read(addr uint32, p []byte) error
}

// Object is a decoded class instance.
type Object struct {
	Class   string
	ClassID int64
	Addr    uint32
	Fields  []Word
}

// Ref is an undecoded heap reference.
type Ref uint32

// Encode converts a host value to a word.
// Text and object values are accepted as existing references only.
func Encode(t Type, v any) (Word, error) {
	switch t.Kind {

	case KindInt:
		var n int64
		switch v := v.(type) {
		case int:
			n = int64(v)
		case int32:
			n = int64(v)
		case int64:
			n = v
		default:
			return 0, fmt.Errorf("%w: %T as int", ErrBadValue, v)
		}
		if n < MinInt || n > MaxInt {
			return 0, fmt.Errorf("%w: %d", ErrOutOfRange, n)
		}
		return FromInt(n), nil

	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return 0, fmt.Errorf("%w: %T as bool", ErrBadValue, v)
		}
		return FromBool(b), nil

	case KindNone:
		if v != nil {
			return 0, fmt.Errorf("%w: %T as None", ErrBadValue, v)
		}
		return None, nil

	case KindText, KindObject:
		var addr uint32
		switch v := v.(type) {
		case nil:
			return None, nil
		case Ref:
			addr = uint32(v)
		case *Object:
			if v == nil {
				return None, nil
			}
			addr = v.Addr
		default:
			return 0, fmt.Errorf("%w: %T as %v", ErrBadValue, v, t)
		}
		if addr%Size != 0 {
			return 0, fmt.Errorf("%w: unaligned reference %d", ErrBadValue, addr)
		}
		return FromAddr(addr), nil

	}
	return 0, fmt.Errorf("%w: type %v", ErrBadValue, t)
}

// Decode converts a word to a host value: int64, bool, nil, string or *Object.
func Decode(t Type, w Word, mem Reader) (any, error) {
	switch t.Kind {

	case KindInt:
		if !w.IsImmediate() {
			return nil, fmt.Errorf("%w: %v as int", ErrBadValue, w)
		}
		return w.Int(), nil

	case KindBool:
		if !w.IsImmediate() {
			return nil, fmt.Errorf("%w: %v as bool", ErrBadValue, w)
		}
		return w.Bool(), nil

	case KindNone:
		return nil, nil

	case KindText:
		if w == None {
			return nil, nil
		}
		return DecodeText(w, mem)

	case KindObject:
		if w == None {
			return nil, nil
		}
		obj, err := DecodeObject(w, mem)
		if err != nil {
			return nil, err
		}
		obj.Class = t.Class
		return obj, nil

	}
	return nil, fmt.Errorf("%w: type %v", ErrBadValue, t)
}

func readBlock(w Word, mem Reader, want BlockKind) (addr uint32, size uint32, err error) {
	if w == Invalid || !w.IsRef() || w.Addr()%Size != 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrOutOfBounds, w)
	}
	addr = w.Addr()
	header, err := mem.Read32(addr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: header at %d: %w", ErrOutOfBounds, addr, err)
	}
	kind, size := SplitHeader(header)
	if kind != want {
		return 0, 0, fmt.Errorf("%w: %v block at %d, want %v", ErrOutOfBounds, kind, addr, want)
	}
	return addr, size, nil
}

func DecodeText(w Word, mem Reader) (string, error) {
	addr, size, err := readBlock(w, mem, BlockText)
	if err != nil {
		return "", err
	}
	n, err := mem.Read32(addr + TextLenOffset)
	if err != nil {
		return "", fmt.Errorf("%w: text length at %d: %w", ErrOutOfBounds, addr, err)
	}
	if TextDataOffset+n > size {
		return "", fmt.Errorf("%w: text length %d exceeds block of %d", ErrOutOfBounds, n, size)
	}
	buf := make([]byte, n)
	if err := mem.Read(addr+TextDataOffset, buf); err != nil {
		return "", fmt.Errorf("%w: text at %d: %w", ErrOutOfBounds, addr, err)
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: invalid utf-8 text at %d", ErrBadValue, addr)
	}
	return string(buf), nil
}

func DecodeObject(w Word, mem Reader) (*Object, error) {
	addr, size, err := readBlock(w, mem, BlockObject)
	if err != nil {
		return nil, err
	}
	if size < ObjectFieldsOffset {
		return nil, fmt.Errorf("%w: object block of %d", ErrOutOfBounds, size)
	}
	classWord, err := mem.Read32(addr + ObjectClassOffset)
	if err != nil {
		return nil, fmt.Errorf("%w: class at %d: %w", ErrOutOfBounds, addr, err)
	}
	obj := &Object{
		ClassID: Word(classWord).Int(),
		Addr:    addr,
	}
	for off := uint32(ObjectFieldsOffset); off < size; off += Size {
		field, err := mem.Read32(addr + off)
		if err != nil {
			return nil, fmt.Errorf("%w: field at %d: %w", ErrOutOfBounds, addr+off, err)
		}
		obj.Fields = append(obj.Fields, Word(field))
	}
	return obj, nil
}

// Render formats a decoded value the way print shows it.
func Render(t Type, v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return v
	case *Object:
		class := v.Class
		if class == "" {
			class = t.Class
		}
		return RenderObject(class, v.Addr)
	}
	return fmt.Sprint(v)
}

func RenderObject(class string, addr uint32) string {
	return fmt.Sprintf("<%s object at %d>", class, addr)
}
