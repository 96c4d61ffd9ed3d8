package tairepl

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/reusee/tairepl/taiasm"
	"github.com/reusee/tairepl/taibind"
	"github.com/reusee/tairepl/taipy"
	"github.com/reusee/tairepl/taivm"
	"github.com/reusee/tairepl/taiword"
)

// Run compiles source against cfg and executes it in the session memory.
// On failure the memory, the heap cursor and the global slots are as before the call,
// and cfg stays valid for the next run.
func (s *Session) Run(ctx context.Context, source string, cfg Config) (*Outcome, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, &Error{Kind: ErrBusy, Stage: StageStart, Err: ErrBusy}
	}
	defer s.busy.Store(false)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.broken != nil {
		return nil, &Error{Kind: ErrSessionBroken, Stage: StageStart, Err: s.broken}
	}

	// compile
	source = EnsureBuiltins(source, cfg.Types)
	prog, env, err := taipy.Check(cfg.Types, source)
	if err != nil {
		return nil, s.fail(ctx, StageCheck, err)
	}
	cursor, err := s.heap.Cursor()
	if err != nil {
		return nil, s.fail(ctx, StageGenerate, err)
	}
	code, bindings, err := taipy.Generate(prog, cfg.Bindings, cursor)
	if err != nil {
		return nil, s.fail(ctx, StageGenerate, err)
	}
	delta, err := newSlots(cfg.Bindings, bindings, cursor)
	if err != nil {
		return nil, s.fail(ctx, StageGenerate, err)
	}

	// from here on the memory changes
	snapshot, err := s.mem.Snapshot(cursor)
	if err != nil {
		return nil, s.fail(ctx, StageReserve, err)
	}
	pins := s.heap.Pins()
	rollback := func(stage Stage, err error) error {
		s.heap.SetRoots(nil)
		if restoreErr := s.mem.Restore(snapshot); restoreErr != nil {
			s.broken = restoreErr
			return classify(stage, fmt.Errorf("%w; restore: %w", err, restoreErr))
		}
		s.heap.SetPins(pins)
		s.logger.DebugContext(ctx, "rolled back", "stage", stage, "cursor", cursor)
		return s.fail(ctx, stage, err)
	}

	if _, err := s.heap.Reserve(delta); err != nil {
		return nil, rollback(StageReserve, err)
	}
	s.logger.DebugContext(ctx, "reserved slots",
		"delta", delta,
		"cursor_before", cursor,
		"cursor_after", cursor+uint32(delta)*taiword.Size,
	)

	// link
	functions := cfg.Functions + code.Funcs
	module, err := s.link(ctx, functions, code.Main)
	if err != nil {
		return nil, rollback(StageLink, err)
	}
	inst, err := taivm.Instantiate(module, s.imports(env))
	if err != nil {
		return nil, rollback(StageLink, err)
	}

	// execute
	ret, hasResult, err := inst.Invoke(taipy.EntryName)
	s.heap.SetRoots(nil)
	if err != nil {
		return nil, rollback(StageExecute, err)
	}

	outcome := &Outcome{
		Type: code.Type,
		Config: Config{
			Bindings:  bindings,
			Types:     env,
			Functions: functions,
		},
	}
	if hasResult {
		value, err := decodeResult(code.Type, taiword.Word(ret), s.mem, env)
		if err != nil {
			return nil, rollback(StageDecode, err)
		}
		outcome.Value = value
	}

	if s.options.CheckHeap {
		if _, err := s.heap.Stats(); err != nil {
			return nil, rollback(StageExecute, err)
		}
	}

	s.runs++
	if after, err := s.heap.Cursor(); err == nil {
		s.logger.DebugContext(ctx, "run done",
			"type", code.Type.String(),
			"cursor_before", cursor,
			"cursor_after", after,
		)
	}
	return outcome, nil
}

// fail classifies err and breaks the session if the error kind requires it.
func (s *Session) fail(ctx context.Context, stage Stage, err error) error {
	e := classify(stage, err)
	if e.fatal() {
		s.broken = e
		s.logger.ErrorContext(ctx, "session broken", "stage", stage, "error", err)
	} else {
		s.logger.DebugContext(ctx, "run failed", "stage", stage, "error", err)
	}
	return e
}

// newSlots checks that the slots added to prior sit contiguously at cursor and returns their count.
func newSlots(prior, next *taibind.Table, cursor uint32) (int, error) {
	delta := next.Len() - prior.Len()
	if delta < 0 {
		return 0, fmt.Errorf("%w: binding table shrank from %d to %d", ErrLink, prior.Len(), next.Len())
	}
	for j := range delta {
		b := next.At(prior.Len() + j)
		if want := cursor + uint32(j)*taiword.Size; b.Addr != want {
			return 0, fmt.Errorf("%w: slot %d of %s at %d, want %d", ErrLink, b.Slot, b.Name, b.Addr, want)
		}
	}
	return delta, nil
}

// link assembles the module of a run and round-trips it through the binary form.
func (s *Session) link(ctx context.Context, functions string, main string) (*taivm.Module, error) {
	text := moduleText(s.mem.Pages(), functions, main)
	module, err := s.cache.Parse(text)
	if err != nil {
		return nil, err
	}
	bin, err := taiasm.Encode(module)
	if err != nil {
		return nil, err
	}
	digest := taiasm.Digest(bin)
	s.logger.DebugContext(ctx, "linked",
		"bytes", len(bin),
		"digest", hex.EncodeToString(digest[:8]),
		"funcs", len(module.Funcs),
	)
	return taiasm.Decode(bin)
}

func moduleText(pages uint32, functions string, main string) string {
	var b strings.Builder
	b.WriteString("(module\n")
	fmt.Fprintf(&b, "(import %q %q (memory %d))\n", taipy.MemoryModule, taipy.MemoryName, pages)
	for _, fn := range taipy.Intrinsics {
		hostImport(&b, fn.Name, taipy.IntrinsicModule, fn)
	}
	for _, fn := range taipy.RuntimeFuncs {
		hostImport(&b, taipy.RuntimeSymbol(fn.Name), taipy.RuntimeModule, fn)
	}
	b.WriteString(functions)
	b.WriteString(main)
	b.WriteString(")\n")
	return b.String()
}

func hostImport(b *strings.Builder, id string, module string, fn taipy.HostFunc) {
	fmt.Fprintf(b, "(func $%s (import %q %q)", id, module, fn.Name)
	for range fn.NumParams {
		b.WriteString(" (param i32)")
	}
	b.WriteString(" (result i32))\n")
}

func decodeResult(t taiword.Type, w taiword.Word, mem taiword.Reader, env *taipy.TypeEnv) (any, error) {
	v, err := taiword.Decode(t, w, mem)
	if err != nil {
		return nil, err
	}
	if obj, ok := v.(*taiword.Object); ok {
		class, ok := env.ClassByID(obj.ClassID)
		if !ok {
			return nil, fmt.Errorf("%w: class id %d at %d", taiword.ErrOutOfBounds, obj.ClassID, obj.Addr)
		}
		obj.Class = class.Name
	}
	return v, nil
}
