package bus

import "fmt"

// Decorator is a Channel that taps an upstream host's channel 0. When the
// upstream channel is absent, unready, or has a different number of rows,
// the decorator inserts its own local column of rows and exposes only that
// column. It never forwards into such a channel. When the upstream channel
// is compatible, every address forwards 1:1 and the local rows are kept but
// not exposed.
//
// The upstream channel is resolved on every access, so a host that is
// reconfigured or loses readiness is seen at once.
type Decorator[T any] struct {
	rows  int
	local []T

	upstream Host[T]

	onWrite WriteHook[T]
}

// NewDecorator creates a decorator with the given fixed number of local rows.
// It starts unbound, inserting its own row.
func NewDecorator[T any](rows int) *Decorator[T] {
	if rows < 1 {
		panic(fmt.Sprintf("decorator needs at least one row, got %d", rows))
	}

	return &Decorator[T]{
		rows:  rows,
		local: make([]T, rows),
	}
}

// Retarget sets the upstream host. A nil host makes the decorator insert its
// own row.
func (d *Decorator[T]) Retarget(upstream Host[T]) {
	d.upstream = upstream
}

// resolve returns the upstream channel 0 if it can be forwarded to now.
func (d *Decorator[T]) resolve() Channel[T] {
	if d.upstream == nil || !d.upstream.Ready() {
		return nil
	}

	next := d.upstream.Channel(0)
	if next == nil || next.Height() != d.rows {
		return nil
	}

	return next
}

// InsertsOwnRow reports whether the local rows occupy column 0.
func (d *Decorator[T]) InsertsOwnRow() bool {
	return d.resolve() == nil
}

// Next returns the upstream channel writes are forwarded to, or nil.
func (d *Decorator[T]) Next() Channel[T] {
	return d.resolve()
}

// Rows returns the fixed number of local rows.
func (d *Decorator[T]) Rows() int {
	return d.rows
}

// Local returns the locally stored value of a row, whether or not the local
// rows are currently exposed.
func (d *Decorator[T]) Local(row int) T {
	if uint(row) >= uint(d.rows) {
		var zero T
		return zero
	}

	return d.local[row]
}

// SetLocal stores the value of a local row without firing the write hook.
func (d *Decorator[T]) SetLocal(row int, value T) {
	if uint(row) >= uint(d.rows) {
		return
	}

	d.local[row] = value
}

// SetWriteHook registers the write-notification hook. It fires for local and
// forwarded writes alike.
func (d *Decorator[T]) SetWriteHook(hook WriteHook[T]) {
	d.onWrite = hook
}

// Read returns the value at index.
func (d *Decorator[T]) Read(index int) T {
	next := d.resolve()
	if next == nil {
		// A single local column: index is the row.
		if uint(index) >= uint(d.rows) {
			var zero T
			return zero
		}

		return d.local[index]
	}

	if uint(index) >= uint(d.rows*next.Width()) {
		var zero T
		return zero
	}

	return next.Read(index)
}

// Write stores the value at index.
func (d *Decorator[T]) Write(index int, value T) {
	next := d.resolve()

	switch {
	case next == nil:
		if uint(index) >= uint(d.rows) {
			return
		}

		d.local[index] = value
	case uint(index) >= uint(d.rows*next.Width()):
		return
	default:
		next.Write(index, value)
	}

	if d.onWrite != nil {
		d.onWrite(index, value)
	}
}

// ReadCell reads by column and row.
func (d *Decorator[T]) ReadCell(col, row int) T {
	return d.Read(d.Columns()*row + col)
}

// WriteCell writes by column and row.
func (d *Decorator[T]) WriteCell(col, row int, value T) {
	d.Write(d.Columns()*row+col, value)
}

// At returns a handle to the element at index.
func (d *Decorator[T]) At(index int) Ref[T] {
	return Ref[T]{ch: d, index: index}
}

// Len returns rows * columns.
func (d *Decorator[T]) Len() int {
	return d.rows * d.Columns()
}

// Columns returns the current row width.
func (d *Decorator[T]) Columns() int {
	if next := d.resolve(); next != nil {
		return next.Width()
	}

	return 1
}

// Width equals Columns; a decorator always has 2D structure.
func (d *Decorator[T]) Width() int {
	return d.Columns()
}

// Height returns the fixed row count.
func (d *Decorator[T]) Height() int {
	return d.rows
}

var _ Channel[float32] = (*Decorator[float32])(nil)
