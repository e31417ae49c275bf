package rack

import (
	"github.com/sparkette/dmabus/bus"
	"github.com/sparkette/dmabus/hooking"
)

// Side names one of the two neighbors of a module. Right is bus-ward: clients
// bind to the host on their right. Left is client-ward.
type Side int

// The two sides of a module.
const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}

	return "right"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	return 1 - s
}

// ExpanderChange reports the neighbor now adjacent on one side. Neighbor is
// nil when the side became empty. A Right change may repeat the current
// neighbor when something further bus-ward changed what that neighbor hosts.
type ExpanderChange struct {
	Side     Side
	Handle   Handle
	Neighbor Module
}

// ProcessArgs is the per-frame context shared by every module.
type ProcessArgs struct {
	SampleRate float32
	SampleTime float32
	Frame      uint64
}

// Indicators is the externally observable state a module publishes every
// frame.
type Indicators struct {
	bus.Status

	// ClientAttached is set on hosts whose client-ward neighbor declares a
	// client for any of the hosted types.
	ClientAttached bool

	// DisplayedChannels is the largest channel count over all the roles of
	// the module.
	DisplayedChannels int
}

// A Module is a processing unit placed in a rack.
type Module interface {
	bus.Provider
	hooking.Hookable

	Name() string

	// OnExpanderChange is called by the rack, between frames, whenever a
	// neighbor changes.
	OnExpanderChange(e ExpanderChange)

	// Process runs one frame.
	Process(args ProcessArgs)

	// Publish refreshes the indicators after Process.
	Publish()

	// Indicators returns the state published by the last Publish.
	Indicators() Indicators

	// Attach is called by the rack on placement with the function that
	// propagates a host change, and with nil on removal.
	Attach(notify func())
}

// ModuleBase implements everything a Module needs except Process.
type ModuleBase struct {
	*hooking.HookableBase

	name    string
	hosts   *bus.Roles
	clients *bus.Roles

	clientAttached bool
	indicators     Indicators
	notify         func()
}

// NewModuleBase creates a module base with empty role sets.
func NewModuleBase(name string) *ModuleBase {
	if name == "" {
		panic("module name cannot be empty")
	}

	return &ModuleBase{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		hosts:        bus.NewRoles(),
		clients:      bus.NewRoles(),
	}
}

// Name returns the name of the module.
func (b *ModuleBase) Name() string {
	return b.name
}

// HostRoles returns the host roles in declaration order.
func (b *ModuleBase) HostRoles() *bus.Roles {
	return b.hosts
}

// ClientRoles returns the client roles in declaration order.
func (b *ModuleBase) ClientRoles() *bus.Roles {
	return b.clients
}

// OnExpanderChange rebinds every client on a Right change and refreshes the
// client-attached indicator on a Left change.
func (b *ModuleBase) OnExpanderChange(e ExpanderChange) {
	switch e.Side {
	case Right:
		bus.RebindAll(b.clients, e.Neighbor)
	case Left:
		b.clientAttached = bus.HasClientFor(b.hosts, e.Neighbor)
	}
}

// ClientAttached reports whether the client-ward neighbor can use one of the
// hosted types.
func (b *ModuleBase) ClientAttached() bool {
	return b.clientAttached
}

// Publish resolves the readiness of the clients and the displayed channel
// count.
func (b *ModuleBase) Publish() {
	b.indicators = Indicators{
		Status:         bus.StatusOf(b.clients),
		ClientAttached: b.clientAttached,
		DisplayedChannels: max(
			bus.AggregateChannelCount(b.clients),
			bus.AggregateChannelCount(b.hosts),
		),
	}
}

// Indicators returns the state published by the last Publish.
func (b *ModuleBase) Indicators() Indicators {
	return b.indicators
}

// Attach stores the host-change notifier.
func (b *ModuleBase) Attach(notify func()) {
	b.notify = notify
}

// NotifyHostChanged must be called whenever the module changes the channels
// it hosts outside of a topology change, for example after resizing. Clients
// along the client-ward chain are rebound before it returns.
func (b *ModuleBase) NotifyHostChanged() {
	if b.notify != nil {
		b.notify()
	}
}
