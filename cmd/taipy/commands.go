package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/reusee/tairepl/taiword"
)

const help = `:gc                collect the heap
:heap              print heap statistics
:bindings          list global bindings
:inspect <expr>    evaluate a starlark expression over session state
:tap               open a starlark prompt over session state
:reset             discard all definitions and memory
:quit              exit`

// command runs a meta command and reports whether the loop should end.
func (i *interactive) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	session := i.repl.Session()

	switch name {

	case ":quit", ":q":
		return true, nil

	case ":help", ":h":
		fmt.Fprintln(i.out, help)

	case ":gc":
		reclaimed, err := i.repl.Collect()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(i.out, "reclaimed %d bytes\n", reclaimed)

	case ":heap":
		stats, err := session.Stats()
		if err != nil {
			return false, err
		}
		h := stats.Heap
		fmt.Fprintf(i.out, "session %s, %d runs, %d pages\n", session.ID, stats.Runs, stats.Pages)
		fmt.Fprintf(i.out, "heap [%d, %d), cursor %d, %d collections\n", h.Base, h.Limit, h.Cursor, h.Collections)
		fmt.Fprintf(i.out, "slots %d, text %d (%d bytes), objects %d (%d bytes), free %d (%d bytes)\n",
			h.Slots, h.TextBlocks, h.TextBytes, h.Objects, h.ObjectBytes, h.FreeBlocks, h.FreeBytes)
		fmt.Fprintf(i.out, "assembler cache %d entries, %d hits, %d misses\n",
			stats.Assembler.Entries, stats.Assembler.Hits, stats.Assembler.Misses)
		if stats.Broken {
			fmt.Fprintf(i.out, "broken: %v\n", session.Broken())
		}

	case ":bindings":
		for b := range i.repl.Bindings() {
			value, err := i.value(b.Type, b.Addr)
			if err != nil {
				return false, err
			}
			fmt.Fprintf(i.out, "%s : %s @%d = %s\n", b.Name, b.Type, b.Addr, taiword.Render(b.Type, value))
		}

	case ":inspect":
		if arg == "" {
			return false, fmt.Errorf("usage: :inspect <expr>")
		}
		globals, err := i.globals()
		if err != nil {
			return false, err
		}
		result, err := i.eval(ctx, arg, globals)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(i.out, result)

	case ":tap":
		globals, err := i.globals()
		if err != nil {
			return false, err
		}
		i.tap(ctx, "session", globals)

	case ":reset":
		if err := i.repl.Reset(); err != nil {
			return false, err
		}
		fmt.Fprintln(i.out, "reset")

	default:
		return false, fmt.Errorf("unknown command %s, :help for a list", name)
	}

	return false, nil
}

// value decodes the word in a global slot.
func (i *interactive) value(t taiword.Type, addr uint32) (any, error) {
	mem := i.repl.Session().Memory()
	w, err := mem.Read32(addr)
	if err != nil {
		return nil, err
	}
	v, err := taiword.Decode(t, taiword.Word(w), mem)
	if err != nil {
		return nil, err
	}
	if obj, ok := v.(*taiword.Object); ok {
		if class, ok := i.repl.Config().Types.ClassByID(obj.ClassID); ok {
			obj.Class = class.Name
		}
	}
	return v, nil
}

// globals is the starlark view of the session: stats, bindings and decoded global values.
func (i *interactive) globals() (map[string]any, error) {
	session := i.repl.Session()
	stats, err := session.Stats()
	if err != nil {
		return nil, err
	}
	values := make(map[string]any)
	var bindings []any
	for b := range i.repl.Bindings() {
		value, err := i.value(b.Type, b.Addr)
		if err != nil {
			value = err.Error()
		}
		values[b.Name] = value
		bindings = append(bindings, map[string]any{
			"name": b.Name,
			"slot": b.Slot,
			"addr": b.Addr,
			"type": b.Type,
		})
	}
	return map[string]any{
		"session":  session.ID,
		"stats":    stats,
		"values":   values,
		"bindings": bindings,
	}, nil
}
