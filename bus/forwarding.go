package bus

// ForwardingHost is the host face of a module that both taps and extends its
// upstream bus. Channel 0 is a Decorator over the upstream channel 0; every
// other channel is the upstream channel with the same index.
type ForwardingHost[T any] struct {
	client    *Client[T]
	decorator *Decorator[T]
	onChange  func(host Host[T])
}

// NewForwardingHost creates a forwarding host whose decorator has the given
// number of local rows. Binding the returned host's client recomputes the
// decorator shape before Bind returns.
func NewForwardingHost[T any](rows int) *ForwardingHost[T] {
	f := &ForwardingHost[T]{
		client:    NewClient[T](),
		decorator: NewDecorator[T](rows),
	}

	f.client.OnHostChanged(func(host Host[T]) {
		f.decorator.Retarget(host)

		if f.onChange != nil {
			f.onChange(host)
		}
	})

	return f
}

// OnHostChanged sets a function called after the decorator shape has been
// recomputed for a new upstream host.
func (f *ForwardingHost[T]) OnHostChanged(fn func(host Host[T])) {
	f.onChange = fn
}

// Client returns the client role bound to the upstream host.
func (f *ForwardingHost[T]) Client() *Client[T] {
	return f.client
}

// Decorator returns channel 0.
func (f *ForwardingHost[T]) Decorator() *Decorator[T] {
	return f.decorator
}

// ChannelCount returns the upstream channel count, and at least 1 for the
// decorator.
func (f *ForwardingHost[T]) ChannelCount() int {
	if n := f.client.ChannelCount(); n > 1 {
		return n
	}

	return 1
}

// Channel returns the decorator for index 0 and the upstream channel
// otherwise.
func (f *ForwardingHost[T]) Channel(index int) Channel[T] {
	if index == 0 {
		return f.decorator
	}

	return f.client.Channel(index)
}

// Ready is true when unbound, since the local rows are always usable, and
// follows the upstream host otherwise.
func (f *ForwardingHost[T]) Ready() bool {
	if !f.client.Bound() {
		return true
	}

	return f.client.Ready()
}

var _ Host[float32] = (*ForwardingHost[float32])(nil)
