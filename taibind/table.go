package taibind

import (
	"iter"
	"maps"
	"slices"

	"github.com/reusee/tairepl/taiword"
)

// Binding is a global name bound to a slot in linear memory.
type Binding struct {
	Name string
	Slot int
	Addr uint32
	Type taiword.Type
}

// Table is an append-only list of global bindings.
// Redefining a name appends a new slot that shadows the old one; old slots stay valid
// because previously compiled code still addresses them.
// Tables are immutable; Extend returns a new table. The nil *Table is empty.
type Table struct {
	entries []Binding
	index   map[string]int
}

func New() *Table {
	return &Table{
		index: make(map[string]int),
	}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Lookup returns the most recent binding of name.
func (t *Table) Lookup(name string) (Binding, bool) {
	if t == nil {
		return Binding{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Binding{}, false
	}
	return t.entries[i], true
}

func (t *Table) At(slot int) Binding {
	return t.entries[slot]
}

func (t *Table) Extend(name string, addr uint32, typ taiword.Type) (*Table, Binding) {
	b := Binding{
		Name: name,
		Slot: t.Len(),
		Addr: addr,
		Type: typ,
	}
	ret := &Table{
		index: make(map[string]int, t.Len()+1),
	}
	if t != nil {
		ret.entries = append(slices.Clip(t.entries), b)
		maps.Copy(ret.index, t.index)
	} else {
		ret.entries = []Binding{b}
	}
	ret.index[name] = b.Slot
	return ret, b
}

// All yields every binding, shadowed ones included, in slot order.
func (t *Table) All() iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		if t == nil {
			return
		}
		for _, b := range t.entries {
			if !yield(b) {
				return
			}
		}
	}
}

// Visible yields the current binding of each name in slot order.
func (t *Table) Visible() iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		if t == nil {
			return
		}
		for i, b := range t.entries {
			if t.index[b.Name] != i {
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

// Addrs returns the slot addresses of all bindings. All of them are collector roots.
func (t *Table) Addrs() []uint32 {
	ret := make([]uint32, 0, t.Len())
	for b := range t.All() {
		ret = append(ret, b.Addr)
	}
	return ret
}

func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() {
		return false
	}
	for i := range t.Len() {
		if t.entries[i] != o.entries[i] {
			return false
		}
	}
	return true
}
