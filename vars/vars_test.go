package vars

import "testing"

func TestStrToBool(t *testing.T) {
	for str, want := range map[string]bool{
		"true":  true,
		"Y":     true,
		" on ":  true,
		"1":     true,
		"false": false,
		"no":    false,
		"":      false,
		"maybe": false,
	} {
		if got := StrToBool(str); got != want {
			t.Fatalf("%q: got %v", str, got)
		}
	}
}
