package rack

// An Edit is a topology change that can be submitted from any goroutine and
// is applied at the start of the next frame.
type Edit interface {
	apply(r *Rack) (Handle, error)
}

// Insert places Module at Position.
type Insert struct {
	Position int
	Module   Module
}

func (e Insert) apply(r *Rack) (Handle, error) {
	return r.place(e.Position, e.Module)
}

// Remove takes the module out of the rack.
type Remove struct {
	Handle Handle
}

func (e Remove) apply(r *Rack) (Handle, error) {
	return e.Handle, r.remove(e.Handle)
}

// Move moves the module to Position.
type Move struct {
	Handle   Handle
	Position int
}

func (e Move) apply(r *Rack) (Handle, error) {
	return e.Handle, r.move(e.Handle, e.Position)
}

// EditResult reports how a submitted edit was applied.
type EditResult struct {
	Handle Handle
	Err    error
}

type pendingEdit struct {
	edit Edit
	done chan EditResult
}

// Submit queues an edit. The returned channel receives exactly one result
// once the edit has been applied.
func (r *Rack) Submit(e Edit) <-chan EditResult {
	done := make(chan EditResult, 1)

	r.pendingLock.Lock()
	r.pending = append(r.pending, pendingEdit{edit: e, done: done})
	r.pendingLock.Unlock()

	return done
}

// ApplyPending applies the submitted edits without processing a frame.
func (r *Rack) ApplyPending() {
	r.stepLock.Lock()
	defer r.stepLock.Unlock()

	r.applyPending()
}

func (r *Rack) applyPending() {
	r.pendingLock.Lock()
	pending := r.pending
	r.pending = nil
	r.pendingLock.Unlock()

	for _, p := range pending {
		h, err := p.edit.apply(r)
		p.done <- EditResult{Handle: h, Err: err}
	}
}
