package tairepl

import (
	"errors"
	"fmt"

	"github.com/reusee/tairepl/taiasm"
	"github.com/reusee/tairepl/taiheap"
	"github.com/reusee/tairepl/taipy"
	"github.com/reusee/tairepl/taivm"
	"github.com/reusee/tairepl/taiword"
)

var (
	ErrSource           = errors.New("source error")
	ErrLink             = errors.New("link error")
	ErrOutOfBounds      = errors.New("out of bounds")
	ErrOutOfMemory      = errors.New("out of memory")
	ErrHostTrap         = errors.New("host trap")
	ErrBusy             = errors.New("session busy")
	ErrSessionBroken    = errors.New("session broken")
	ErrMissingIntrinsic = errors.New("missing intrinsic")
)

type Stage string

const (
	StageStart    Stage = "start"
	StageCheck    Stage = "check"
	StageGenerate Stage = "generate"
	StageReserve  Stage = "reserve"
	StageLink     Stage = "link"
	StageExecute  Stage = "execute"
	StageDecode   Stage = "decode"
)

// Error is a failed run. Kind is one of the sentinels above; Err is the cause.
type Error struct {
	Kind  error
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// fatal reports whether the session must be reset after an error of this kind.
func (e *Error) fatal() bool {
	return e.Kind == ErrLink || e.Kind == ErrOutOfMemory
}

func classify(stage Stage, err error) *Error {
	if e := (*Error)(nil); errors.As(err, &e) {
		return e
	}
	var kind error
	var trap *taivm.Trap
	switch {
	case errors.Is(err, taipy.ErrSource):
		kind = ErrSource
	case errors.Is(err, taiheap.ErrOutOfMemory):
		kind = ErrOutOfMemory
	case errors.Is(err, taipy.ErrUnboundGlobal),
		errors.Is(err, taiheap.ErrCorrupt),
		errors.Is(err, taivm.ErrLink),
		errors.Is(err, taiasm.ErrSyntax):
		kind = ErrLink
	case errors.As(err, &trap):
		kind = ErrHostTrap
	case errors.Is(err, taiword.ErrOutOfBounds),
		errors.Is(err, taiword.ErrBadValue):
		kind = ErrOutOfBounds
	case stage == StageExecute:
		kind = ErrHostTrap
	default:
		kind = ErrLink
	}
	return &Error{
		Kind:  kind,
		Stage: stage,
		Err:   err,
	}
}
