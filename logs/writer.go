package logs

import (
	"io"
	"os"

	"github.com/reusee/tairepl/cmds"
)

type Writer io.Writer

var logFileFlag = cmds.Var[string]("-log-file", "append logs to this file instead of stderr")

// Writer is the terminal log destination: the -log-file path if given, else stderr.
func (Module) Writer() Writer {
	if *logFileFlag != "" {
		f, err := os.OpenFile(*logFileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			return f
		}
	}
	return os.Stderr
}
