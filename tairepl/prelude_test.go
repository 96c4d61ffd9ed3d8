package tairepl

import (
	"strings"
	"testing"

	"github.com/reusee/tairepl/taipy"
)

func TestEnsureBuiltins(t *testing.T) {
	src := "  \n\tprint(1)"
	got := EnsureBuiltins(src, nil)
	if !strings.HasPrefix(got, "\n"+Prelude+"\n\n") {
		t.Fatalf("got %q", got)
	}
	if !strings.HasSuffix(got, "\n\nprint(1)\n") {
		t.Fatalf("got %q", got)
	}

	_, env, err := taipy.Check(nil, got)
	if err != nil {
		t.Fatal(err)
	}
	if !env.HasClass(PreludeClass) {
		t.Fatal("prelude class not declared")
	}
	if _, ok := env.Funcs["range"]; !ok {
		t.Fatal("range not declared")
	}

	// idempotent once registered
	if again := EnsureBuiltins(src, env); again != src {
		t.Fatalf("got %q", again)
	}
	if again := EnsureBuiltins(EnsureBuiltins(src, env), env); again != src {
		t.Fatalf("got %q", again)
	}
}

func TestPreludeRegisteredOnce(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	var cfg Config
	runOK(t, s, &cfg, "1")
	id := cfg.Types.Classes[PreludeClass].ID
	symbol := cfg.Types.Funcs["range"].Symbol
	functions := cfg.Functions

	runOK(t, s, &cfg, "2")
	if cfg.Types.Classes[PreludeClass].ID != id || cfg.Types.Funcs["range"].Symbol != symbol {
		t.Fatal("prelude registered twice")
	}
	if cfg.Functions != functions {
		t.Fatal("functions grew without new definitions")
	}
}

func TestPreludeRetriedAfterFailure(t *testing.T) {
	s, out := newTestSession(t, Options{})
	var cfg Config
	if _, err := s.Run(t.Context(), "undefined", cfg); err == nil {
		t.Fatal("should fail")
	}
	runOK(t, s, &cfg, "for i in range(1, 2):\n    print(i)")
	if out.String() != "1\n" {
		t.Fatalf("got %q", out.String())
	}
}
