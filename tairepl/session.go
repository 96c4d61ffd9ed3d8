package tairepl

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/reusee/tairepl/taiasm"
	"github.com/reusee/tairepl/taiheap"
	"github.com/reusee/tairepl/taivm"
)

const DefaultPages = 16

type Options struct {
	// initial memory size in pages, defaults to DefaultPages
	Pages uint32
	// heap end in bytes, defaults to the memory size
	HeapLimit  uint32
	Intrinsics Intrinsics
	Logger     *slog.Logger
	// walk the whole heap after every run and break the session if it is corrupt
	CheckHeap bool
}

// Session owns one linear memory and the heap in it.
// Runs of a session are strictly sequential.
type Session struct {
	ID         uuid.UUID
	options    Options
	intrinsics Intrinsics
	logger     *slog.Logger
	cache      *taiasm.Cache

	mem    *taivm.Memory
	heap   *taiheap.Heap
	busy   atomic.Bool
	broken error
	runs   int
}

func NewSession(opts Options) (*Session, error) {
	if err := opts.Intrinsics.validate(); err != nil {
		return nil, err
	}
	if opts.Pages == 0 {
		opts.Pages = DefaultPages
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		ID:         uuid.New(),
		options:    opts,
		intrinsics: opts.Intrinsics,
		cache:      taiasm.NewCache(),
	}
	s.logger = logger.With("session", s.ID.String())
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) init() error {
	mem, err := taivm.NewMemory(s.options.Pages, s.options.Pages)
	if err != nil {
		return err
	}
	heap, err := taiheap.New(mem, taiheap.Options{
		Limit: s.options.HeapLimit,
	})
	if err != nil {
		return err
	}
	s.mem = mem
	s.heap = heap
	s.broken = nil
	s.runs = 0
	return nil
}

// Reset replaces the memory with a fresh one and clears a broken state.
// Configs returned before the reset must not be used afterwards; start again from the zero Config.
func (s *Session) Reset() error {
	if !s.busy.CompareAndSwap(false, true) {
		return &Error{Kind: ErrBusy, Stage: StageStart, Err: ErrBusy}
	}
	defer s.busy.Store(false)
	s.cache.Reset()
	if err := s.init(); err != nil {
		return err
	}
	s.logger.Info("session reset")
	return nil
}

// Memory returns the session memory. It is only valid until the next Reset.
func (s *Session) Memory() *taivm.Memory {
	return s.mem
}

// Broken returns the error that broke the session, or nil.
func (s *Session) Broken() error {
	return s.broken
}

// Collect runs a collection with global slots and extra as roots.
func (s *Session) Collect(extra ...uint32) (uint32, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return 0, &Error{Kind: ErrBusy, Stage: StageStart, Err: ErrBusy}
	}
	defer s.busy.Store(false)
	reclaimed, err := s.heap.Collect(extra)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("collect", "reclaimed", reclaimed)
	return reclaimed, nil
}

type Stats struct {
	Runs      int
	Pages     uint32
	Broken    bool
	Heap      taiheap.Stats
	Assembler taiasm.CacheStats
}

func (s *Session) Stats() (Stats, error) {
	heap, err := s.heap.Stats()
	if err != nil {
		return Stats{}, fmt.Errorf("heap stats: %w", err)
	}
	return Stats{
		Runs:      s.runs,
		Pages:     s.mem.Pages(),
		Broken:    s.broken != nil,
		Heap:      heap,
		Assembler: s.cache.Stats(),
	}, nil
}
