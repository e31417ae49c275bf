package bus

import "fmt"

// A Channel is an addressable, fixed-size region of values of one type. The
// region can be viewed as a 1D array or as a grid of Width columns and Height
// rows.
type Channel[T any] interface {
	// Read returns the value at the given index. An index outside [0, Len())
	// reads as the zero value.
	Read(index int) T

	// Write stores the value at the given index and fires the write hook.
	// Writes outside [0, Len()) are dropped.
	Write(index int, value T)

	// ReadCell reads the value at row*Columns()+col.
	ReadCell(col, row int) T

	// WriteCell writes the value at row*Columns()+col.
	WriteCell(col, row int, value T)

	// At returns a read/write handle bound to the index.
	At(index int) Ref[T]

	Len() int
	Columns() int
	Width() int
	Height() int
}

// WriteHook is invoked synchronously after each successful write.
type WriteHook[T any] func(index int, value T)

// Ref is a handle to a single element of a channel. Get reads through the
// channel and Set writes through it, so the write hook fires exactly as it
// would for Channel.Write.
type Ref[T any] struct {
	ch    Channel[T]
	index int
}

// Get reads the current value.
func (r Ref[T]) Get() T {
	return r.ch.Read(r.index)
}

// Set writes the value.
func (r Ref[T]) Set(value T) {
	r.ch.Write(r.index, value)
}

// Index returns the 1D index the handle is bound to.
func (r Ref[T]) Index() int {
	return r.index
}

// MemChannel is a Channel backed by a slice owned by its host module.
type MemChannel[T any] struct {
	mem     []T
	count   int
	columns int
	stride  int
	onWrite WriteHook[T]
}

// NewMemChannel creates a channel of count elements over mem. Element i is
// stored at mem[i*stride]. A columns value of 0 means the channel has no 2D
// structure. It panics when mem is too short or count is not a multiple of
// columns.
func NewMemChannel[T any](mem []T, count, columns, stride int) *MemChannel[T] {
	if stride < 1 {
		panic(fmt.Sprintf("stride must be positive, got %d", stride))
	}

	if count < 0 || columns < 0 {
		panic("count and columns must not be negative")
	}

	if columns > 0 && count%columns != 0 {
		panic(fmt.Sprintf(
			"count %d is not a multiple of columns %d", count, columns))
	}

	if count > 0 && len(mem) < (count-1)*stride+1 {
		panic(fmt.Sprintf(
			"backing memory of %d elements cannot hold %d elements at stride %d",
			len(mem), count, stride))
	}

	return &MemChannel[T]{
		mem:     mem,
		count:   count,
		columns: columns,
		stride:  stride,
	}
}

// SetWriteHook registers the write-notification hook. A nil hook disables
// notification.
func (c *MemChannel[T]) SetWriteHook(hook WriteHook[T]) {
	c.onWrite = hook
}

// Read returns the stored value.
func (c *MemChannel[T]) Read(index int) T {
	if uint(index) >= uint(c.count) {
		var zero T
		return zero
	}

	return c.mem[index*c.stride]
}

// Write stores the value and fires the write hook.
func (c *MemChannel[T]) Write(index int, value T) {
	if uint(index) >= uint(c.count) {
		return
	}

	c.mem[index*c.stride] = value

	if c.onWrite != nil {
		c.onWrite(index, value)
	}
}

// ReadCell reads by column and row.
func (c *MemChannel[T]) ReadCell(col, row int) T {
	return c.Read(c.columns*row + col)
}

// WriteCell writes by column and row.
func (c *MemChannel[T]) WriteCell(col, row int, value T) {
	c.Write(c.columns*row+col, value)
}

// At returns a handle to the element at index.
func (c *MemChannel[T]) At(index int) Ref[T] {
	return Ref[T]{ch: c, index: index}
}

// Len returns the number of elements.
func (c *MemChannel[T]) Len() int {
	return c.count
}

// Columns returns the row width, 0 for a channel without 2D structure.
func (c *MemChannel[T]) Columns() int {
	return c.columns
}

// Width returns the number of columns, or Len when there is no 2D structure.
func (c *MemChannel[T]) Width() int {
	if c.columns == 0 {
		return c.count
	}

	return c.columns
}

// Height returns the number of rows.
func (c *MemChannel[T]) Height() int {
	if c.columns == 0 {
		return 1
	}

	return c.count / c.columns
}

var _ Channel[float32] = (*MemChannel[float32])(nil)
