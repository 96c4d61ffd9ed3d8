package tairepl

import (
	"github.com/reusee/tairepl/taibind"
	"github.com/reusee/tairepl/taipy"
	"github.com/reusee/tairepl/taiword"
)

// Config is the state threaded between runs of a session.
// A Config returned by a successful run supersedes the one passed in; a failed run leaves it valid.
type Config struct {
	Bindings *taibind.Table
	Types    *taipy.TypeEnv
	// accumulated function definitions of all previous runs
	Functions string
}

// Outcome is the result of a run.
// Value is int64, bool, nil, string or *taiword.Object depending on Type.
type Outcome struct {
	Value  any
	Type   taiword.Type
	Config Config
}

func (o *Outcome) String() string {
	return taiword.Render(o.Type, o.Value)
}
