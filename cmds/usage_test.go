package cmds

import (
	"strings"
	"testing"
)

func TestUsage(t *testing.T) {
	executor := NewExecutor()
	executor.Define("run", Sub(map[string]*Command{
		"file": Func(func(string) {
		}).Desc("run a source file"),
		"heap": Sub(map[string]*Command{
			"stats": Func(func() {}).Desc("print heap stats"),
		}).Desc("heap commands"),
	}).Desc("run commands"))
	executor.Define("-pages", Func(func(int) {}).Desc("memory pages").Alias("-p"))
	executor.Define("-limit", Func(func(*uint32) {}).Desc("optional limit"))

	var b strings.Builder
	executor.WriteUsage(&b)
	usage := b.String()
	for _, want := range []string{
		"-pages <int> (-p)\tmemory pages\n",
		"run\trun commands\n",
		"  file <string>\trun a source file\n",
		"    stats\tprint heap stats\n",
		"-h (help, -help, --help)\tprint this usage\n",
		"-limit [uint32]\toptional limit\n",
	} {
		if !strings.Contains(usage, want) {
			t.Fatalf("missing %q in\n%s", want, usage)
		}
	}
	if strings.Count(usage, "memory pages") != 1 {
		t.Fatalf("alias listed twice:\n%s", usage)
	}
}
