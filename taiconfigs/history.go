package taiconfigs

import (
	"cmp"
	"os"
	"path/filepath"

	"github.com/reusee/tairepl/cmds"
	"github.com/reusee/tairepl/configs"
)

// HistoryFile is the readline history path. Empty disables history.
type HistoryFile string

var historyFlag = cmds.Var[string]("-history", "readline history file")

func (Module) HistoryFile(
	loader configs.Loader,
) HistoryFile {
	var fallback string
	if home, err := os.UserHomeDir(); err == nil {
		fallback = filepath.Join(home, ".tairepl_history")
	}
	return HistoryFile(cmp.Or(
		*historyFlag,
		configs.First[string](loader, "history"),
		fallback,
	))
}
