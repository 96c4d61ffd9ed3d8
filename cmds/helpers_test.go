package cmds

import (
	"errors"
	"fmt"
	"testing"
)

var errFailed = errors.New("failed")

func TestVar(t *testing.T) {
	pages := Var[uint32]("TestVar-pages", "memory pages")
	history := Var[string]("TestVar-history", "history file")
	GlobalExecutor.MustExecute([]string{
		"TestVar-pages", "4",
		"TestVar-history", "/tmp/h",
	})
	if *pages != 4 {
		t.Fatalf("got %d", *pages)
	}
	if *history != "/tmp/h" {
		t.Fatalf("got %s", *history)
	}
	GlobalExecutor.MustExecute([]string{
		"TestVar-pages.",
	})
	if *pages != 0 {
		t.Fatalf("got %d", *pages)
	}
}

func TestSwitch(t *testing.T) {
	trace := Switch("TestSwitch", "trace runs")
	GlobalExecutor.MustExecute([]string{
		"TestSwitch",
	})
	if !*trace {
		t.Fatal()
	}
	GlobalExecutor.MustExecute([]string{
		"!TestSwitch",
	})
	if *trace {
		t.Fatal()
	}
}

func TestCollect(t *testing.T) {
	files := Collect[string]("TestCollect", "files to run")
	GlobalExecutor.MustExecute([]string{
		"TestCollect", "a.py",
		"TestCollect", "b.py",
	})
	if str := fmt.Sprintf("%v", *files); str != "[a.py b.py]" {
		t.Fatalf("got %s", str)
	}
}

func TestTypedVar(t *testing.T) {
	type Path string
	v := Var[Path]("TestTypedVar", "prelude path")
	GlobalExecutor.MustExecute([]string{
		"TestTypedVar", "prelude.py",
	})
	if *v != "prelude.py" {
		t.Fatalf("got %s", *v)
	}
}
