package bus

// A Client borrows the channels of at most one Host of its value type. A
// Client is itself a Host that forwards every query to the bound host, so a
// chain of clients resolves the channels of the host at its far end.
type Client[T any] struct {
	host     Host[T]
	onChange func(host Host[T])
}

// NewClient creates an unbound client.
func NewClient[T any]() *Client[T] {
	return &Client[T]{}
}

// OnHostChanged sets the function called synchronously by every Bind, before
// Bind returns. Dependent state, such as a decorator's shape, must be
// recomputed there.
func (c *Client[T]) OnHostChanged(fn func(host Host[T])) {
	c.onChange = fn
}

// Bind replaces the bound host. A nil host unbinds the client.
func (c *Client[T]) Bind(host Host[T]) {
	c.host = host

	if c.onChange != nil {
		c.onChange(host)
	}
}

// Rebind binds the client to the Host[T] that the provider exposes, or
// unbinds it when the provider is nil or exposes no such host.
func (c *Client[T]) Rebind(p Provider) {
	host, _ := AsHost[T](p)
	c.Bind(host)
}

// Host returns the bound host, nil when unbound.
func (c *Client[T]) Host() Host[T] {
	return c.host
}

// Bound reports whether a host is bound.
func (c *Client[T]) Bound() bool {
	return c.host != nil
}

// ChannelCount returns 0 when unbound and delegates otherwise.
func (c *Client[T]) ChannelCount() int {
	if c.host == nil {
		return 0
	}

	return c.host.ChannelCount()
}

// Channel returns nil when unbound and delegates otherwise.
func (c *Client[T]) Channel(index int) Channel[T] {
	if c.host == nil {
		return nil
	}

	return c.host.Channel(index)
}

// Ready returns false when unbound and delegates otherwise.
func (c *Client[T]) Ready() bool {
	if c.host == nil {
		return false
	}

	return c.host.Ready()
}

// ReadAt reads element index of channel ch, or the zero value when the
// channel cannot be resolved.
func (c *Client[T]) ReadAt(ch, index int) T {
	channel := c.Channel(ch)
	if channel == nil {
		var zero T
		return zero
	}

	return channel.Read(index)
}

// WriteAt writes element index of channel ch. It does nothing when the
// channel cannot be resolved.
func (c *Client[T]) WriteAt(ch, index int, value T) {
	channel := c.Channel(ch)
	if channel == nil {
		return
	}

	channel.Write(index, value)
}

var (
	_ Host[float32] = (*Client[float32])(nil)
	_ Binder        = (*Client[float32])(nil)
)
