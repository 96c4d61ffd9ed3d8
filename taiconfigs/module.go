package taiconfigs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/tairepl/logs"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}
