package bus

import "fmt"

// A Role is the type-erased face of a Host or a Client. It lets helpers query
// several typed sub-buses that share the same channel index space.
type Role interface {
	// ChannelCount returns the number of channels currently exposed.
	ChannelCount() int

	// Ready reports whether the channels are safe to use now.
	Ready() bool
}

// A Host exposes a numbered set of channels of one value type.
type Host[T any] interface {
	Role

	// Channel resolves a channel, or returns nil when index is outside
	// [0, ChannelCount()).
	Channel(index int) Channel[T]
}

// ChannelHost is a Host that owns one backing slice carved into equally
// shaped channels.
type ChannelHost[T any] struct {
	mem      []T
	channels []*MemChannel[T]
	notReady bool
}

// NewChannelHost creates a host with n channels of width x height elements.
func NewChannelHost[T any](n, width, height int) *ChannelHost[T] {
	h := &ChannelHost[T]{}
	h.Configure(n, width, height)

	return h
}

// Configure rebuilds the channels with new dimensions. Channel contents are
// discarded. The owning module must notify its clients afterwards, since any
// channel obtained earlier no longer belongs to this host.
func (h *ChannelHost[T]) Configure(n, width, height int) {
	if n < 0 || width < 1 || height < 1 {
		panic(fmt.Sprintf(
			"invalid host shape: %d channels of %dx%d", n, width, height))
	}

	size := width * height
	h.mem = make([]T, n*size)
	h.channels = make([]*MemChannel[T], n)

	for i := range h.channels {
		h.channels[i] = NewMemChannel(h.mem[i*size:(i+1)*size], size, width, 1)
	}
}

// ChannelCount returns the number of channels.
func (h *ChannelHost[T]) ChannelCount() int {
	return len(h.channels)
}

// Channel returns the channel at index or nil.
func (h *ChannelHost[T]) Channel(index int) Channel[T] {
	if uint(index) >= uint(len(h.channels)) {
		return nil
	}

	return h.channels[index]
}

// MemChannel returns the concrete channel at index, for the owning module
// only. It returns nil when index is out of range.
func (h *ChannelHost[T]) MemChannel(index int) *MemChannel[T] {
	if uint(index) >= uint(len(h.channels)) {
		return nil
	}

	return h.channels[index]
}

// Ready reports the readiness flag. Hosts are ready by default.
func (h *ChannelHost[T]) Ready() bool {
	return !h.notReady
}

// SetReady changes the readiness flag.
func (h *ChannelHost[T]) SetReady(ready bool) {
	h.notReady = !ready
}

// Clear sets every element of every channel to the zero value without
// firing write hooks.
func (h *ChannelHost[T]) Clear() {
	clear(h.mem)
}

var _ Host[bool] = (*ChannelHost[bool])(nil)
