package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/reusee/tairepl/debugs"
	"github.com/reusee/tairepl/logs"
	"github.com/reusee/tairepl/tairepl"
)

const (
	prompt         = ">>> "
	continuePrompt = "... "
)

type interactive struct {
	repl    *tairepl.REPL
	logger  logs.Logger
	newSpan logs.NewSpan
	eval    debugs.Eval
	tap     debugs.Tap
	out     io.Writer
}

func (i *interactive) run(ctx context.Context, historyFile string) error {
	if i.out == nil {
		i.out = os.Stdout
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      prompt,
		HistoryFile: historyFile,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	var block []string
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// drop the pending block
			block = block[:0]
			rl.SetPrompt(prompt)
			continue
		}
		if err != nil { // EOF
			return nil
		}

		if len(block) == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			quit, err := i.command(ctx, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		source, done := accumulate(&block, line)
		if !done {
			rl.SetPrompt(continuePrompt)
			continue
		}
		rl.SetPrompt(prompt)
		if strings.TrimSpace(source) == "" {
			continue
		}
		i.snippet(ctx, source)
	}
}

// accumulate collects lines of a compound statement until a blank line ends it.
// Simple statements are complete on their own line.
func accumulate(block *[]string, line string) (string, bool) {
	trimmed := strings.TrimRight(line, " \t")
	if len(*block) == 0 {
		if !strings.HasSuffix(trimmed, ":") {
			return line, true
		}
		*block = append(*block, line)
		return "", false
	}
	if trimmed != "" {
		*block = append(*block, line)
		return "", false
	}
	source := strings.Join(*block, "\n")
	*block = (*block)[:0]
	return source, true
}

func (i *interactive) snippet(ctx context.Context, source string) {
	ctx, _ = i.newSpan(ctx, "")
	outcome, err := i.repl.Run(ctx, source)
	if err != nil {
		report(ctx, i.logger, err)
		return
	}
	echo(i.out, outcome)
}
