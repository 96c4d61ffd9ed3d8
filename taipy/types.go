package taipy

import (
	"maps"

	"github.com/reusee/tairepl/taiword"
)

type Type = taiword.Type

var (
	Int    = taiword.IntType
	Bool   = taiword.BoolType
	Str    = taiword.TextType
	NoneT  = taiword.NoneType
	Object = taiword.ObjectType("object")
)

// FuncInfo is the signature of a function or method.
type FuncInfo struct {
	Name       string
	Symbol     string
	ParamNames []string
	Params     []Type
	Result     Type
	// Method is the class name for methods
	Method string
}

type FieldInfo struct {
	Name string
	Type Type
	Init Expr
}

type ClassInfo struct {
	Name    string
	ID      int64
	Fields  []FieldInfo
	Methods map[string]*FuncInfo
}

func (c *ClassInfo) Field(name string) (int, *FieldInfo) {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return i, &c.Fields[i]
		}
	}
	return -1, nil
}

// TypeEnv is the persistent typing context threaded between snippets.
// Check never mutates a TypeEnv it is given.
type TypeEnv struct {
	Globals     map[string]Type
	Funcs       map[string]*FuncInfo
	Classes     map[string]*ClassInfo
	Gens        map[string]int
	NextClassID int64
}

func NewTypeEnv() *TypeEnv {
	return &TypeEnv{
		Globals:     make(map[string]Type),
		Funcs:       make(map[string]*FuncInfo),
		Classes:     make(map[string]*ClassInfo),
		Gens:        make(map[string]int),
		NextClassID: 1,
	}
}

// Clone returns a copy that can be extended without affecting e.
// FuncInfo and ClassInfo values are shared; they are never modified after a successful Check.
func (e *TypeEnv) Clone() *TypeEnv {
	if e == nil {
		return NewTypeEnv()
	}
	return &TypeEnv{
		Globals:     maps.Clone(e.Globals),
		Funcs:       maps.Clone(e.Funcs),
		Classes:     maps.Clone(e.Classes),
		Gens:        maps.Clone(e.Gens),
		NextClassID: e.NextClassID,
	}
}

func (e *TypeEnv) HasClass(name string) bool {
	if e == nil {
		return false
	}
	_, ok := e.Classes[name]
	return ok
}

// ClassByID returns the class with the given runtime id.
func (e *TypeEnv) ClassByID(id int64) (*ClassInfo, bool) {
	if e == nil {
		return nil, false
	}
	for _, class := range e.Classes {
		if class.ID == id {
			return class, true
		}
	}
	return nil, false
}

func (e *TypeEnv) resolve(ref TypeRef) (Type, error) {
	switch ref.Name {
	case "int":
		return Int, nil
	case "bool":
		return Bool, nil
	case "str":
		return Str, nil
	case "None":
		return NoneT, nil
	case "object":
		return Object, nil
	}
	if _, ok := e.Classes[ref.Name]; ok {
		return taiword.ObjectType(ref.Name), nil
	}
	return Type{}, errorAt(ref.Pos, "unknown type %s", ref.Name)
}

// assignable reports whether a value of type from can be stored where to is expected.
func assignable(from, to Type) bool {
	if from == to {
		return true
	}
	switch to.Kind {
	case taiword.KindObject:
		if from.Kind == taiword.KindNone {
			return true
		}
		if to == Object && from.Kind == taiword.KindObject {
			return true
		}
	case taiword.KindText:
		return from.Kind == taiword.KindNone
	}
	return false
}
