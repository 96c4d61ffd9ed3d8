package cmds

import (
	"fmt"
	"reflect"
	"strings"
)

// Command is either a function consuming the arguments after its name, or a group of sub commands, or both.
type Command struct {
	Func        reflect.Value
	Subs        map[string]*Command
	Description string
	Aliases     []string
}

func (c *Command) Desc(desc string) *Command {
	c.Description = desc
	return c
}

func (c *Command) Alias(names ...string) *Command {
	c.Aliases = append(c.Aliases, names...)
	return c
}

// Params renders the arguments the command consumes, like " <uint32> [string]".
// Pointer parameters are optional.
func (c *Command) Params() string {
	if !c.Func.IsValid() {
		return ""
	}
	t := c.Func.Type()
	var b strings.Builder
	for i := range t.NumIn() {
		in := t.In(i)
		if in.Kind() == reflect.Pointer {
			fmt.Fprintf(&b, " [%s]", in.Elem())
		} else {
			fmt.Fprintf(&b, " <%s>", in)
		}
	}
	return b.String()
}

// Func wraps fn as a command. fn must return nothing or an error.
func Func(fn any) *Command {
	fnValue := reflect.ValueOf(fn)
	if fnValue.Kind() != reflect.Func {
		panic(fmt.Errorf("must be function, got %T", fn))
	}
	t := fnValue.Type()
	if t.IsVariadic() {
		panic(fmt.Errorf("variadic function not supported: %T", fn))
	}
	if t.NumOut() > 1 || t.NumOut() == 1 && t.Out(0) != errorType {
		panic(fmt.Errorf("must return nothing or an error, got %T", fn))
	}
	return &Command{
		Func: fnValue,
	}
}

func Sub(subs map[string]*Command) *Command {
	return &Command{
		Subs: subs,
	}
}
