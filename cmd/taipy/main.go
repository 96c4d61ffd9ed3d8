package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/reusee/dscope"
	"github.com/reusee/e5"
	"github.com/reusee/tairepl/cmds"
	"github.com/reusee/tairepl/debugs"
	"github.com/reusee/tairepl/logs"
	"github.com/reusee/tairepl/modes"
	"github.com/reusee/tairepl/taiconfigs"
	"github.com/reusee/tairepl/tairepl"
	"github.com/reusee/tairepl/taiword"
	"golang.org/x/term"
)

var (
	wrap = e5.Wrap.With(e5.WrapStacktrace)

	// source files run in order in one session
	runFiles = cmds.Collect[string]("-run", "run a source file, may be repeated")

	dev = cmds.Switch("-dev", "check the heap after every run")
)

func main() {
	cmds.Execute(os.Args[1:])
	ctx := context.Background()

	dscope.New(
		new(Module),
		modes.Select(*dev),
	).Call(func(
		open tairepl.OpenSession,
		logger logs.Logger,
		newSpan logs.NewSpan,
		history taiconfigs.HistoryFile,
		startup taiconfigs.StartupFiles,
		eval debugs.Eval,
		tap debugs.Tap,
	) {
		session, err := open()
		if err != nil {
			logger.ErrorContext(ctx, "open session", "error", wrap(err))
			os.Exit(-1)
		}
		ctx = logs.WithSpan(ctx, logs.Span(session.ID.String()))
		repl := tairepl.NewREPL(session)

		// startup files, then -run files
		runAll := func(paths []string) {
			for _, path := range paths {
				content, err := os.ReadFile(path)
				if err != nil {
					logger.ErrorContext(ctx, "read file", "path", path, "error", err)
					os.Exit(-1)
				}
				if _, err := repl.Run(ctx, string(content)); err != nil {
					report(ctx, logger, err)
					os.Exit(-1)
				}
			}
		}
		runAll(startup)
		if len(*runFiles) > 0 {
			runAll(*runFiles)
			return
		}

		// piped input
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			content, err := io.ReadAll(os.Stdin)
			if err != nil {
				logger.ErrorContext(ctx, "read stdin", "error", err)
				os.Exit(-1)
			}
			if _, err := repl.Run(ctx, string(content)); err != nil {
				report(ctx, logger, err)
				os.Exit(-1)
			}
			return
		}

		loop := &interactive{
			repl:    repl,
			logger:  logger,
			newSpan: newSpan,
			eval:    eval,
			tap:     tap,
		}
		if err := loop.run(ctx, string(history)); err != nil {
			logger.ErrorContext(ctx, "repl", "error", wrap(err))
			os.Exit(-1)
		}
	})
}

// report prints a run error. Errors that break the session are logged with a stack trace.
func report(ctx context.Context, logger logs.Logger, err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if errors.Is(err, tairepl.ErrLink) || errors.Is(err, tairepl.ErrOutOfMemory) {
		logger.ErrorContext(ctx, "session broken, :reset to continue",
			"error", wrap(logs.WrapSpan(ctx, err)),
		)
	}
}

// echo shows the value of a trailing expression.
func echo(w io.Writer, outcome *tairepl.Outcome) {
	if outcome.Type == taiword.NoneType {
		return
	}
	fmt.Fprintf(w, "=> %s\n", outcome)
}
