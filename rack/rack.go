// Package rack keeps an ordered chain of modules, delivers topology changes
// to them between frames, and steps them one frame at a time.
package rack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/sparkette/dmabus/hooking"
	"go.uber.org/zap"
)

var (
	// ErrStaleHandle is returned when a handle refers to a removed module.
	ErrStaleHandle = errors.New("rack: stale module handle")

	// ErrPositionOutOfRange is returned when an edit names a position outside
	// the rack.
	ErrPositionOutOfRange = errors.New("rack: position out of range")

	// ErrDuplicateName is returned when a placed module reuses a name.
	ErrDuplicateName = errors.New("rack: duplicate module name")
)

// A Handle identifies a placed module. It goes stale when the module is
// removed, even if its slot is reused.
type Handle struct {
	index int
	gen   uint32
}

// Valid reports whether the handle was issued by a rack. A valid handle can
// still be stale.
func (h Handle) Valid() bool {
	return h.gen != 0
}

func (h Handle) String() string {
	if !h.Valid() {
		return "none"
	}

	return fmt.Sprintf("%d#%d", h.index, h.gen)
}

type slot struct {
	module Module
	gen    uint32

	left  Handle
	right Handle
}

// Rack is an ordered chain of modules. Positions count from the left.
type Rack struct {
	*hooking.HookableBase

	id         string
	name       string
	sampleRate Freq

	slots []slot
	free  []int
	order []int
	names map[string]Handle

	frame atomic.Uint64

	stepLock      sync.Mutex
	singleRunLock sync.Mutex
	pauseLock     sync.Mutex
	isPaused      bool
	isPausedLock  sync.Mutex

	pendingLock sync.Mutex
	pending     []pendingEdit
}

// Builder builds racks.
type Builder struct {
	name       string
	sampleRate Freq
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		name:       "Rack",
		sampleRate: DefaultSampleRate,
	}
}

// WithName sets the name of the rack.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithSampleRate sets the rate frames are processed at.
func (b Builder) WithSampleRate(f Freq) Builder {
	b.sampleRate = f
	return b
}

// Build creates an empty rack.
func (b Builder) Build() *Rack {
	if b.sampleRate <= 0 {
		panic("sample rate must be positive")
	}

	return &Rack{
		HookableBase: hooking.NewHookableBase(),
		id:           xid.New().String(),
		name:         b.name,
		sampleRate:   b.sampleRate,
		names:        make(map[string]Handle),
	}
}

// ID returns the unique ID of the rack.
func (r *Rack) ID() string {
	return r.id
}

// Name returns the name of the rack.
func (r *Rack) Name() string {
	return r.name
}

// SampleRate returns the rate frames are processed at.
func (r *Rack) SampleRate() Freq {
	return r.sampleRate
}

// Frame returns the number of the next frame to process. It is safe to call
// from any goroutine.
func (r *Rack) Frame() uint64 {
	return r.frame.Load()
}

// Len returns the number of placed modules. Like every query below, it must
// be called between frames, from Inspect or from the stepping goroutine.
func (r *Rack) Len() int {
	return len(r.order)
}

// Modules returns the handles of the placed modules from left to right.
func (r *Rack) Modules() []Handle {
	handles := make([]Handle, len(r.order))
	for i, idx := range r.order {
		handles[i] = r.handleOf(idx)
	}

	return handles
}

// Resolve returns the module a handle refers to.
func (r *Rack) Resolve(h Handle) (Module, error) {
	if !r.live(h) {
		return nil, ErrStaleHandle
	}

	return r.slots[h.index].module, nil
}

// Lookup finds a placed module by name.
func (r *Rack) Lookup(name string) (Handle, bool) {
	h, ok := r.names[name]
	return h, ok
}

// Position returns where a module sits, counting from the left.
func (r *Rack) Position(h Handle) (int, error) {
	if !r.live(h) {
		return 0, ErrStaleHandle
	}

	return r.positionOf(h.index), nil
}

// Neighbor returns the handle adjacent to a module on the given side, or an
// invalid handle.
func (r *Rack) Neighbor(h Handle, side Side) (Handle, error) {
	if !r.live(h) {
		return Handle{}, ErrStaleHandle
	}

	if side == Left {
		return r.slots[h.index].left, nil
	}

	return r.slots[h.index].right, nil
}

// Place inserts a module at a position and delivers the resulting topology
// changes before returning. It waits for the current frame to finish.
func (r *Rack) Place(position int, m Module) (Handle, error) {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	return r.place(position, m)
}

// Append places a module at the right end of the rack.
func (r *Rack) Append(m Module) (Handle, error) {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	return r.place(len(r.order), m)
}

// Remove takes a module out of the rack. The module receives empty
// ExpanderChanges on both sides before Remove returns.
func (r *Rack) Remove(h Handle) error {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	return r.remove(h)
}

// Move moves a module to a new position, counted after the module has been
// taken out.
func (r *Rack) Move(h Handle, position int) error {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	return r.move(h, position)
}

// Inspect runs fn between two frames. fn must not call Place, Append, Remove,
// Move, Step, or Inspect.
func (r *Rack) Inspect(fn func()) {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	fn()
}

func (r *Rack) place(position int, m Module) (Handle, error) {
	if position < 0 || position > len(r.order) {
		return Handle{}, ErrPositionOutOfRange
	}

	if _, dup := r.names[m.Name()]; dup {
		return Handle{}, fmt.Errorf("%w: %s", ErrDuplicateName, m.Name())
	}

	idx := r.allocSlot(m)
	h := r.handleOf(idx)
	r.names[m.Name()] = h

	r.order = append(r.order, 0)
	copy(r.order[position+1:], r.order[position:])
	r.order[position] = idx

	m.Attach(func() { r.hostChanged(h) })

	Logger().Debug("module placed",
		zap.String("rack", r.name),
		zap.String("module", m.Name()),
		zap.Int("position", position),
		zap.Stringer("handle", h))

	r.invoke(HookPosModulePlaced, m)
	r.reconcile(nil)

	return h, nil
}

func (r *Rack) remove(h Handle) error {
	if !r.live(h) {
		return ErrStaleHandle
	}

	position := r.positionOf(h.index)
	r.order = append(r.order[:position], r.order[position+1:]...)

	s := &r.slots[h.index]
	m := s.module
	delete(r.names, m.Name())

	r.reconcile(s)

	m.Attach(nil)
	s.module = nil
	r.free = append(r.free, h.index)

	Logger().Debug("module removed",
		zap.String("rack", r.name),
		zap.String("module", m.Name()),
		zap.Int("position", position))

	r.invoke(HookPosModuleRemoved, m)

	return nil
}

func (r *Rack) move(h Handle, position int) error {
	if !r.live(h) {
		return ErrStaleHandle
	}

	if position < 0 || position >= len(r.order) {
		return ErrPositionOutOfRange
	}

	from := r.positionOf(h.index)
	if from == position {
		return nil
	}

	r.order = append(r.order[:from], r.order[from+1:]...)
	r.order = append(r.order, 0)
	copy(r.order[position+1:], r.order[position:])
	r.order[position] = h.index

	Logger().Debug("module moved",
		zap.String("rack", r.name),
		zap.String("module", r.slots[h.index].module.Name()),
		zap.Int("from", from),
		zap.Int("to", position))

	r.reconcile(nil)

	return nil
}

// reconcile delivers every ExpanderChange implied by the current order. A
// removed module is emptied first. The rest are visited from right to left
// so that each client rebinds after everything bus-ward of it.
func (r *Rack) reconcile(removed *slot) {
	if removed != nil {
		r.updateSide(removed, Left, Handle{})
		r.updateSide(removed, Right, Handle{})
	}

	carry := false
	for pos := len(r.order) - 1; pos >= 0; pos-- {
		s := &r.slots[r.order[pos]]

		right := r.handleAt(pos + 1)
		refresh := carry || right != s.right
		if refresh {
			s.right = right
			r.deliver(s.module, Right, right)
		}

		if left := r.handleAt(pos - 1); left != s.left {
			r.updateSide(s, Left, left)
		}

		carry = refresh && s.module.ClientRoles().Len() > 0
	}
}

func (r *Rack) updateSide(s *slot, side Side, h Handle) {
	if side == Left {
		s.left = h
	} else {
		s.right = h
	}

	r.deliver(s.module, side, h)
}

// hostChanged re-delivers the Right change along the client-ward chain of a
// module that changed what it hosts.
func (r *Rack) hostChanged(h Handle) {
	if !r.live(h) {
		return
	}

	for pos := r.positionOf(h.index) - 1; pos >= 0; pos-- {
		s := &r.slots[r.order[pos]]
		r.deliver(s.module, Right, s.right)

		if s.module.ClientRoles().Len() == 0 {
			return
		}
	}
}

func (r *Rack) deliver(m Module, side Side, h Handle) {
	e := ExpanderChange{Side: side, Handle: h}
	if r.live(h) {
		e.Neighbor = r.slots[h.index].module
	}

	m.OnExpanderChange(e)

	if r.NumHooks() > 0 {
		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosExpanderChange,
			Item: TopologyChange{
				Frame:  r.frame.Load(),
				Module: m,
				Change: e,
			},
		})
	}
}

func (r *Rack) invoke(pos *hooking.HookPos, item any) {
	if r.NumHooks() == 0 {
		return
	}

	r.InvokeHook(hooking.HookCtx{Domain: r, Pos: pos, Item: item})
}

func (r *Rack) allocSlot(m Module) int {
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[idx] = slot{module: m, gen: r.slots[idx].gen + 1}

		return idx
	}

	r.slots = append(r.slots, slot{module: m, gen: 1})

	return len(r.slots) - 1
}

func (r *Rack) live(h Handle) bool {
	return h.Valid() &&
		h.index < len(r.slots) &&
		r.slots[h.index].gen == h.gen &&
		r.slots[h.index].module != nil
}

func (r *Rack) handleOf(idx int) Handle {
	return Handle{index: idx, gen: r.slots[idx].gen}
}

func (r *Rack) handleAt(pos int) Handle {
	if pos < 0 || pos >= len(r.order) {
		return Handle{}
	}

	return r.handleOf(r.order[pos])
}

func (r *Rack) positionOf(idx int) int {
	for pos, i := range r.order {
		if i == idx {
			return pos
		}
	}

	panic("module slot not in rack order")
}

// Step applies the submitted edits and processes one frame.
func (r *Rack) Step() {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	r.applyPending()

	frame := r.frame.Load()
	args := ProcessArgs{
		SampleRate: float32(r.sampleRate),
		SampleTime: r.sampleRate.SampleTime(),
		Frame:      frame,
	}

	r.invoke(HookPosBeforeFrame, frame)

	for _, idx := range r.order {
		m := r.slots[idx].module
		m.Process(args)
		m.Publish()
	}

	r.invoke(HookPosAfterFrame, frame)

	r.frame.Store(frame + 1)
}

// Run steps the rack for the given number of frames, or until ctx is done
// when frames is 0.
func (r *Rack) Run(ctx context.Context, frames uint64) error {
	r.singleRunLock.Lock()
	defer r.singleRunLock.Unlock()

	for n := uint64(0); frames == 0 || n < frames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.pauseLock.Lock()
		r.Step()
		r.pauseLock.Unlock()
	}

	return nil
}

// Pause prevents Run from starting more frames.
func (r *Rack) Pause() {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	if r.isPaused {
		return
	}

	r.pauseLock.Lock()
	r.isPaused = true
}

// Continue allows Run to start more frames.
func (r *Rack) Continue() {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	if !r.isPaused {
		return
	}

	r.pauseLock.Unlock()
	r.isPaused = false
}

// Paused reports whether the rack is paused.
func (r *Rack) Paused() bool {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	return r.isPaused
}
