package taiword

import "fmt"

type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindBool
	KindNone
	KindText
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindNone:
		return "None"
	case KindText:
		return "str"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Type is a static value type. Class is set for KindObject only.
type Type struct {
	Kind  Kind
	Class string
}

var (
	IntType  = Type{Kind: KindInt}
	BoolType = Type{Kind: KindBool}
	NoneType = Type{Kind: KindNone}
	TextType = Type{Kind: KindText}
)

func ObjectType(class string) Type {
	return Type{
		Kind:  KindObject,
		Class: class,
	}
}

func (t Type) String() string {
	if t.Kind == KindObject {
		return t.Class
	}
	return t.Kind.String()
}

// IsRef reports whether values of t are heap references or None.
func (t Type) IsRef() bool {
	return t.Kind == KindText || t.Kind == KindObject || t.Kind == KindNone
}
