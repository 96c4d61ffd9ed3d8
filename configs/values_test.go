package configs

import (
	"testing"
)

func TestFirst(t *testing.T) {
	loader := NewLoader([]string{
		writeConfig(t, "tairepl.cue", `history: "h"`),
	}, testSchema)

	if got := First[string](loader, "history"); got != "h" {
		t.Fatalf("got %v", got)
	}
	if got := First[int](loader, "pages"); got != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestFirstPanicsOnBadConfig(t *testing.T) {
	loader := NewLoader([]string{
		writeConfig(t, "tairepl.cue", `history: 1`),
	}, testSchema)
	defer func() {
		if recover() == nil {
			t.Fatal("should panic")
		}
	}()
	First[string](loader, "history")
}

func TestAll(t *testing.T) {
	loader := NewLoader([]string{
		writeConfig(t, "a.cue", `prelude: ["a.py"]`),
		writeConfig(t, "b.cue", `pages: 2`),
		writeConfig(t, "c.cue", `prelude: ["c.py", "d.py"]`),
	}, testSchema)

	var got []string
	for files, err := range All[[]string](loader, "prelude") {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, files...)
	}
	if len(got) != 3 || got[0] != "a.py" || got[2] != "d.py" {
		t.Fatalf("got %v", got)
	}
}

func TestAllStopsAtError(t *testing.T) {
	loader := NewLoader([]string{
		writeConfig(t, "tairepl.cue", `pages: 0`),
	}, testSchema)
	n := 0
	for _, err := range All[int](loader, "pages") {
		n++
		if err == nil {
			t.Fatal("should fail")
		}
	}
	if n != 1 {
		t.Fatalf("got %d", n)
	}
}
