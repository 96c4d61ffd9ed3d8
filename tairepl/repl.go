package tairepl

import (
	"context"
	"iter"

	"github.com/reusee/tairepl/syncs"
	"github.com/reusee/tairepl/taibind"
)

// REPL threads the Config of a session between runs.
type REPL struct {
	session *Session
	sem     syncs.Semaphore
	config  Config
}

func NewREPL(session *Session) *REPL {
	return &REPL{
		session: session,
		sem:     syncs.NewSemaphore(1),
	}
}

func (r *REPL) Session() *Session {
	return r.session
}

// Run runs one snippet. Calls are serialized and the Config is only advanced on success.
func (r *REPL) Run(ctx context.Context, source string) (*Outcome, error) {
	if err := r.sem.AcquireContext(ctx); err != nil {
		return nil, err
	}
	defer r.sem.Release()
	outcome, err := r.session.Run(ctx, source, r.config)
	if err != nil {
		return nil, err
	}
	r.config = outcome.Config
	return outcome, nil
}

func (r *REPL) Config() Config {
	r.sem.Acquire()
	defer r.sem.Release()
	return r.config
}

// Bindings yields the visible global bindings.
func (r *REPL) Bindings() iter.Seq[taibind.Binding] {
	return r.Config().Bindings.Visible()
}

// Collect collects the session heap. Values reachable from globals survive.
func (r *REPL) Collect() (uint32, error) {
	r.sem.Acquire()
	defer r.sem.Release()
	return r.session.Collect()
}

// Reset discards all state.
func (r *REPL) Reset() error {
	r.sem.Acquire()
	defer r.sem.Release()
	if err := r.session.Reset(); err != nil {
		return err
	}
	r.config = Config{}
	return nil
}
