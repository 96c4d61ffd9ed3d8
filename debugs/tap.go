package debugs

import (
	"context"
	"maps"
	"slices"

	"github.com/reusee/tairepl/logs"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
}

func predeclared(globals map[string]any) starlark.StringDict {
	ret := make(starlark.StringDict, len(globals))
	for name, value := range globals {
		ret[name] = toStarlarkValue(value)
	}
	return ret
}

// Tap starts an interactive starlark prompt on stdin with globals predeclared.
type Tap func(ctx context.Context, what string, globals map[string]any)

func (Module) Tap(
	logger logs.Logger,
) Tap {
	return func(ctx context.Context, what string, globals map[string]any) {
		names := slices.Sorted(maps.Keys(globals))
		logger.InfoContext(ctx, "tap: "+what,
			"globals", names,
		)
		defer func() {
			logger.InfoContext(ctx, "tap end: "+what)
		}()

		thread := &starlark.Thread{
			Name: "tap",
		}
		repl.REPLOptions(fileOptions, thread, predeclared(globals))
	}
}

// Eval evaluates one starlark expression over globals and returns its printed form.
type Eval func(ctx context.Context, expr string, globals map[string]any) (string, error)

func (Module) Eval(
	logger logs.Logger,
) Eval {
	return func(ctx context.Context, expr string, globals map[string]any) (string, error) {
		thread := &starlark.Thread{
			Name: "inspect",
		}
		value, err := starlark.EvalOptions(fileOptions, thread, "<inspect>", expr, predeclared(globals))
		if err != nil {
			return "", err
		}
		logger.DebugContext(ctx, "inspect",
			"expr", expr,
			"type", value.Type(),
		)
		return value.String(), nil
	}
}
