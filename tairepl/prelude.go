package tairepl

import (
	"strings"

	"github.com/reusee/tairepl/taipy"
)

const PreludeVersion = 1

// PreludeClass is the class whose presence marks the prelude as registered.
const PreludeClass = "Range"

const Prelude = `class Range:
    curr : int = 0
    end : int = 0

    def new(self: Range, start: int, end: int) -> Range:
        self.curr = start
        self.end = end
        return self

    def next(self: Range) -> int:
        temp : int = 0
        temp = self.curr
        self.curr = self.curr + 1
        return temp

    def has_next(self: Range) -> bool:
        return self.curr < self.end

def range(start: int, end: int) -> Range:
    return Range().new(start, end)`

// EnsureBuiltins prepends the prelude to source unless env already defines it.
func EnsureBuiltins(source string, env *taipy.TypeEnv) string {
	if env.HasClass(PreludeClass) {
		return source
	}
	// the snippet starts at column zero after the prelude
	return "\n" + Prelude + "\n\n" + strings.TrimLeft(source, " \t\r\n") + "\n"
}
