package taiconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/tairepl/cmds"
	"github.com/reusee/tairepl/configs"
	"github.com/reusee/tairepl/logs"
)

//go:embed schema.cue
var schema string

var configFlag = cmds.Var[string]("-config", "cue config file")

var configFilenames = []string{
	"tairepl.cue",
	".tairepl.cue",
}

// ConfigsLoader reads the -config file, then tairepl.cue or .tairepl.cue from
// the working directory, the user config dir and /etc. Earlier files take precedence.
func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {
	var paths []string
	if *configFlag != "" {
		paths = append(paths, *configFlag)
	}
	paths = append(paths, searchConfigs(configDirs())...)
	if len(paths) > 0 {
		logger.Debug("config files", "paths", paths)
	}
	return configs.NewLoader(paths, schema)
}

func configDirs() (dirs []string) {
	if dir, err := os.Getwd(); err == nil {
		dirs = append(dirs, dir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	return append(dirs, "/etc")
}

func searchConfigs(dirs []string) (paths []string) {
	for _, dir := range dirs {
		for _, filename := range configFilenames {
			path := filepath.Join(dir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}
	return
}
