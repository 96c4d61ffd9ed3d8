package main

import (
	"github.com/reusee/dscope"
	"github.com/reusee/tairepl/debugs"
	"github.com/reusee/tairepl/tairepl"
)

type Module struct {
	dscope.Module
	REPL   tairepl.Module
	Debugs debugs.Module
}
