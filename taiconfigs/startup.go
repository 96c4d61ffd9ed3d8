package taiconfigs

import (
	"github.com/reusee/tairepl/cmds"
	"github.com/reusee/tairepl/configs"
)

// StartupFiles are run in the session before any other input.
// Files from -startup come first, then those of each config file in precedence order.
type StartupFiles []string

var startupFlag = cmds.Collect[string]("-startup", "run a source file before the REPL starts, may be repeated")

func (Module) StartupFiles(
	loader configs.Loader,
) (ret StartupFiles) {
	ret = append(ret, *startupFlag...)
	for files, err := range configs.All[[]string](loader, "startup") {
		if err != nil {
			panic(err)
		}
		ret = append(ret, files...)
	}
	return
}
