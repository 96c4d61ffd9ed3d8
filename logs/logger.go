package logs

import (
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/reusee/tairepl/cmds"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

var level = new(slog.LevelVar)

func init() {
	cmds.Define("-log-level", cmds.Func(func(l slog.Level) {
		level.Set(l)
	}).Desc("minimum log level"))
	cmds.Define("-v", cmds.Func(func() {
		level.Set(slog.LevelDebug)
	}).Desc("log run stages at debug level"))
}

type Logger = *slog.Logger

// Logger writes text records to Writer, and to the systemd journal when running as a service unit.
func (Module) Logger(
	writer Writer,
) Logger {
	var handlers []slog.Handler

	if !isService() {
		handlers = append(handlers, slog.NewTextHandler(
			writer,
			&slog.HandlerOptions{
				Level: level,
			},
		))
	} else {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			// no journal socket, fall back to the writer
			handlers = append(handlers, slog.NewJSONHandler(writer, &slog.HandlerOptions{
				Level: level,
			}))
		} else {
			handlers = append(handlers, journal)
		}
	}

	return slog.New(&Handler{
		Handler: slogmulti.Fanout(handlers...),
	})
}

// toJournalKey maps an attribute key to a journal field name.
func toJournalKey(str string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(str))
}

// isService reports whether the process runs in a systemd service cgroup.
func isService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	for line := range strings.SplitSeq(strings.TrimSpace(string(content)), "\n") {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) == 3 && strings.HasSuffix(path.Dir(parts[2]), ".service") {
			return true
		}
	}
	return false
}
