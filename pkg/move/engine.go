package move

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/chazu/flowcanvas/pkg/geometry"
	"github.com/chazu/flowcanvas/pkg/graph"
)

// DefaultGridSize is the snap grid used when Options.GridSize is unset.
const DefaultGridSize = 20

// Options configures an Engine.
type Options struct {
	GridSize float64
	// SettleDelay postpones the commit after release so a quick follow-up
	// drag of the same objects folds into one graph mutation. Zero commits
	// immediately.
	SettleDelay time.Duration

	Preview  Preview
	Notifier Notifier
	Capturer PointerCapturer
	// Manager is shared by every engine that may start drags. Nil creates a
	// private one.
	Manager *Manager
	Logger  *log.Logger
}

// Engine is the drag state machine. Its methods are safe to call from any
// goroutine; store requests run without the engine lock held.
type Engine struct {
	store graph.Store
	sel   Selection
	opts  Options

	mu      sync.Mutex
	state   State
	session *Session
	idle    chan struct{}

	// latest coalesced pointer position, consumed by Frame
	pending     *geometry.Point
	pendingFine bool

	settle   func(func())
	settleID uint64

	pinned map[graph.ObjectID]bool
	pins   sync.WaitGroup
}

// New creates an idle engine.
func New(store graph.Store, sel Selection, opts Options) *Engine {
	if opts.GridSize <= 0 {
		opts.GridSize = DefaultGridSize
	}
	if opts.Preview == nil {
		opts.Preview = nopPreview{}
	}
	if opts.Capturer == nil {
		opts.Capturer = nopCapturer{}
	}
	if opts.Manager == nil {
		opts.Manager = NewManager()
	}
	e := &Engine{
		store: store,
		sel:   sel,
		opts:  opts,
		idle:  make(chan struct{}),
	}
	close(e.idle)
	if opts.SettleDelay > 0 {
		e.settle = debounce.New(opts.SettleDelay)
	}
	return e
}

func (e *Engine) debugf(format string, args ...any) {
	if e.opts.Logger != nil {
		e.opts.Logger.Printf(format, args...)
	}
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns a copy of the active session's public fields.
func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// setState moves to next, maintaining the idle channel. Callers hold e.mu.
func (e *Engine) setState(next State) {
	wasIdle := e.state == Idle
	e.state = next
	switch {
	case wasIdle && next != Idle:
		e.idle = make(chan struct{})
	case !wasIdle && next == Idle:
		close(e.idle)
	}
}

// PointerDown arms a drag on ev.Target. Selection follows the usual click
// rules first: without the additive modifier an unselected target becomes
// the only selection; with it the target is toggled and the drag only
// proceeds if the target ends up selected.
//
// A pointer-down on an object whose commit is still settling resumes that
// drag. Anywhere else it flushes the pending commit and returns
// ErrCommitInFlight.
func (e *Engine) PointerDown(ev PointerEvent) error {
	e.mu.Lock()
	switch e.state {
	case Idle:
	case Settling:
		if e.session.Contains(ev.Target) && e.store.IsWritable() {
			e.resumeLocked(ev)
			e.mu.Unlock()
			return nil
		}
		e.dispatchLocked()
		e.mu.Unlock()
		return ErrCommitInFlight
	case Committing:
		e.mu.Unlock()
		return ErrCommitInFlight
	default:
		state := e.state
		e.mu.Unlock()
		e.debugf("move: rejecting pointer-down on %s, drag already %s", ev.Target.Short(), state)
		return ErrSessionActive
	}
	e.mu.Unlock()

	if ev.Target.IsZero() {
		return ErrNotMovable
	}

	// Selection first, outside the engine lock: subscribers may call back in.
	if ev.Modifiers.Additive {
		e.sel.Toggle(ev.Target)
	} else if !e.sel.IsSelected(ev.Target) {
		e.sel.SelectOnly(ev.Target)
	}
	if !e.sel.IsSelected(ev.Target) {
		return ErrNotMovable
	}
	if !e.store.IsWritable() {
		return ErrReadOnly
	}

	ids := e.sel.MovableIDs()
	originals := make(map[graph.ObjectID]geometry.Point, len(ids))
	moved := ids[:0]
	for _, id := range ids {
		p, ok := e.store.ObjectPosition(id)
		if !ok {
			continue
		}
		originals[id] = p
		moved = append(moved, id)
	}
	if _, ok := originals[ev.Target]; !ok {
		return ErrNotMovable
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle {
		return ErrSessionActive
	}
	s := newSession(ev.PointerID, moved, originals, ev.Position)
	if !e.opts.Manager.TryAcquire(s) {
		return ErrSessionActive
	}
	e.session = s
	e.pending = nil
	e.setState(Armed)
	e.opts.Capturer.Capture(ev.PointerID)
	e.debugf("move: armed session %s with %d objects", s.ID, len(moved))
	return nil
}

// resumeLocked re-arms a settling session from a new pointer-down. The
// delta shown so far becomes the base of the resumed drag.
func (e *Engine) resumeLocked(ev PointerEvent) {
	s := e.session
	e.settleID++
	s.base = s.delta
	s.start = ev.Position
	s.PointerID = ev.PointerID
	s.moves = 0
	e.pending = nil
	e.setState(Armed)
	e.opts.Capturer.Capture(ev.PointerID)
	e.debugf("move: resumed session %s", s.ID)
}

// PointerMove records the latest pointer position. It is applied on the next
// Frame; earlier positions within the same frame are discarded.
func (e *Engine) PointerMove(ev PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || ev.PointerID != e.session.PointerID {
		return
	}
	if e.state != Armed && e.state != Dragging {
		return
	}
	p := ev.Position
	e.pending = &p
	e.pendingFine = ev.Modifiers.Fine
}

// Frame applies the coalesced pointer position, if any. The first move
// after arming is dropped. It reports whether the preview changed.
func (e *Engine) Frame() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameLocked()
}

func (e *Engine) frameLocked() bool {
	if e.pending == nil || e.session == nil {
		return false
	}
	if e.state != Armed && e.state != Dragging {
		e.pending = nil
		return false
	}
	s := e.session
	pos, fine := *e.pending, e.pendingFine
	e.pending = nil

	s.moves++
	if s.moves == 1 {
		return false
	}

	if e.state == Armed {
		if !s.previewing {
			if err := e.opts.Preview.Begin(s.IDs); err != nil {
				e.debugf("move: preview begin: %v", err)
			}
			s.previewing = true
			e.pinPortBarsLocked(s)
		}
		e.setState(Dragging)
	}

	grid := e.opts.GridSize
	if fine {
		grid = 1
	}
	delta := s.base.Add(geometry.SnapPoint(pos.Sub(s.start), grid))
	if delta == s.delta {
		return false
	}
	s.delta = delta
	e.opts.Preview.Apply(delta)
	return true
}

// pinPortBarsLocked commits the current bounds of every dragged port-bar
// once per engine, fixing its size before it first moves.
func (e *Engine) pinPortBarsLocked(s *Session) {
	br, ok := e.store.(boundsReader)
	if !ok {
		return
	}
	if e.pinned == nil {
		e.pinned = make(map[graph.ObjectID]bool)
	}
	for _, id := range s.IDs {
		if _, isBar := graph.PortBarSideOf(id); !isBar || e.pinned[id] {
			continue
		}
		b, ok := br.ObjectBounds(id)
		if !ok {
			continue
		}
		e.pinned[id] = true
		e.pins.Add(1)
		go func(id graph.ObjectID, b geometry.Bounds) {
			defer e.pins.Done()
			if err := e.store.CommitTransform(context.Background(), id, b); err != nil {
				e.debugf("move: pin %s: %v", id, err)
				e.mu.Lock()
				delete(e.pinned, id)
				e.mu.Unlock()
			}
		}(id, b)
	}
}

// PointerUp ends the drag. A drag that moved schedules its commit; one that
// never moved just ends.
func (e *Engine) PointerUp(ev PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || ev.PointerID != e.session.PointerID {
		return
	}
	e.releaseLocked()
}

// LostPointerCapture treats a lost capture as a release at the last known
// position.
func (e *Engine) LostPointerCapture(pointerID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || pointerID != e.session.PointerID {
		return
	}
	e.releaseLocked()
}

func (e *Engine) releaseLocked() {
	if e.state != Armed && e.state != Dragging {
		return
	}
	e.frameLocked()
	s := e.session
	e.opts.Capturer.Release(s.PointerID)

	if s.delta.IsZero() {
		e.endLocked(s.finals(nil, geometry.Point{}))
		return
	}
	if e.settle == nil {
		e.dispatchLocked()
		return
	}
	e.setState(Settling)
	e.settleID++
	id := e.settleID
	e.settle(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == Settling && e.settleID == id {
			e.dispatchLocked()
		}
	})
}

// Flush dispatches a settling commit without waiting for the delay.
func (e *Engine) Flush() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Settling {
		return false
	}
	e.dispatchLocked()
	return true
}

// Abort cancels the drag and restores the original positions without
// touching the graph. Once the commit is dispatched it is too late.
func (e *Engine) Abort() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case Idle:
		return ErrNoSession
	case Committing:
		return ErrCommitInFlight
	}
	s := e.session
	e.settleID++
	if e.state == Armed || e.state == Dragging {
		e.opts.Capturer.Release(s.PointerID)
	}
	e.setState(Aborting)
	s.aborted = true
	e.endLocked(s.finals(nil, geometry.Point{}))
	e.debugf("move: aborted session %s", s.ID)
	return nil
}

// endLocked finishes the preview, releases the session and returns to Idle.
func (e *Engine) endLocked(finals map[graph.ObjectID]geometry.Point) {
	s := e.session
	if s.previewing {
		e.opts.Preview.Finish(finals)
		s.previewing = false
	}
	e.opts.Manager.Release(s)
	e.session = nil
	e.pending = nil
	e.setState(Idle)
}

// dispatchLocked sends the commit for the active session.
func (e *Engine) dispatchLocked() {
	s := e.session
	e.settleID++
	e.setState(Committing)

	ids := make([]graph.ObjectID, len(s.IDs))
	copy(ids, s.IDs)
	delta := s.delta
	e.debugf("move: committing session %s, delta %v", s.ID, delta)
	go e.commit(s, ids, delta)
}

func (e *Engine) commit(s *Session, ids []graph.ObjectID, delta geometry.Point) {
	// A pin landing after the move would reset the bar's position.
	e.pins.Wait()
	res, err := e.store.CommitMove(context.Background(), ids, delta)

	var failed []graph.ObjectID
	e.mu.Lock()
	switch {
	case err != nil:
		failed = ids
		err = fmt.Errorf("move %d objects: %w", len(ids), err)
		e.endLocked(s.finals(nil, delta))
	case res.Partial():
		failed = res.Rejected
		err = fmt.Errorf("move: %d of %d objects rejected: %w", len(res.Rejected), len(ids), graph.ErrNotFound)
		e.endLocked(s.finals(res.Moved, delta))
	default:
		e.endLocked(s.finals(res.Moved, delta))
	}
	e.mu.Unlock()

	if err != nil {
		if e.opts.Notifier != nil {
			e.opts.Notifier.MoveFailed(failed, err)
		} else {
			log.Printf("move: %v", err)
		}
	}
}

// WaitIdle blocks until the engine is idle and any port-bar pins have
// resolved.
func (e *Engine) WaitIdle(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.state == Idle {
			e.mu.Unlock()
			break
		}
		ch := e.idle
		e.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan struct{})
	go func() {
		e.pins.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunFrames calls Frame on every tick until ctx ends. Surfaces without an
// animation-frame callback use it as their frame loop.
func (e *Engine) RunFrames(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second / 60
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Frame()
		}
	}
}
