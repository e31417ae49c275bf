package modules

import (
	"github.com/sparkette/dmabus/bus"
	"github.com/sparkette/dmabus/rack"
)

// Accessor reads and writes addressed cells of one channel of the bus it is
// attached to. The float channel is used when the host has one at the
// selected index, the flag channel otherwise.
type Accessor struct {
	*rack.ModuleBase

	floats *bus.Client[float32]
	flags  *bus.Client[bool]

	// Channel selects the channel to access.
	Channel int

	// Data scales the data input. Without a data voice it is the written
	// value itself.
	Data float32

	// WriteAlways writes every addressed cell every frame.
	WriteAlways bool

	X, Y   Poly
	DataIn Poly
	Write  Poly

	// Out carries the value of every addressed cell after the writes.
	Out Poly

	channelInRange bool
	dataLevel      float32
	addresses      [MaxVoices]int
}

// NewAccessor creates an accessor for channel 0.
func NewAccessor(name string) *Accessor {
	a := &Accessor{
		ModuleBase: rack.NewModuleBase(name),
		floats:     bus.NewClient[float32](),
		flags:      bus.NewClient[bool](),
		Data:       10,
	}

	declareExpander(a.ModuleBase, a.floats, a.flags)

	return a
}

// ChannelInRange reports whether the selected channel existed in the last
// frame.
func (a *Accessor) ChannelInRange() bool {
	return a.channelInRange
}

// DataLevel is the value of the first addressed cell, in -1 to 1 for flags.
func (a *Accessor) DataLevel() float32 {
	return a.dataLevel
}

// Process performs the writes and reads of one frame.
func (a *Accessor) Process(rack.ProcessArgs) {
	count := bus.AggregateChannelCount(a.ClientRoles())
	a.channelInRange = a.Channel >= 0 && a.Channel < count

	if ready, _ := bus.ResolveReadyHost(a.ClientRoles()); !ready || !a.channelInRange {
		a.dataLevel = 0
		a.Out.Channels = 0

		return
	}

	switch bus.SlotOwner(a.ClientRoles(), a.Channel) {
	case 0:
		access(a, a.floats, floatVoltages)
	case 1:
		access(a, a.flags, flagVoltages)
	}
}

type voltageConverter[T any] struct {
	fromVoltage func(v float32) T
	toVoltage   func(v T) float32
	level       func(v T) float32
}

var floatVoltages = voltageConverter[float32]{
	fromVoltage: func(v float32) float32 { return v },
	toVoltage:   func(v float32) float32 { return v },
	level:       func(v float32) float32 { return v },
}

var flagVoltages = voltageConverter[bool]{
	fromVoltage: func(v float32) bool { return v > gateThreshold },
	toVoltage: func(v bool) float32 {
		if v {
			return 1
		}

		return 0
	},
	level: func(v bool) float32 {
		if v {
			return 1
		}

		return -1
	},
}

func access[T any](a *Accessor, c *bus.Client[T], conv voltageConverter[T]) {
	ch := c.Channel(a.Channel)
	FillAddresses(&a.addresses, 0, 0, &a.X, &a.Y, 1, ch.Width(), ch.Height())

	n := max(a.X.Channels, a.Y.Channels)

	writeAll := a.WriteAlways
	writeN := a.Write.Channels
	if writeAll || (writeN == 1 && a.Write.High(0)) {
		writeN = n
		writeAll = true
	}

	scale := a.Data
	in := conv.fromVoltage(scale)
	scale /= 10

	for i := 0; i < writeN; i++ {
		if !writeAll && !a.Write.High(i) {
			continue
		}

		if i < a.DataIn.Channels {
			in = conv.fromVoltage(a.DataIn.Voltages[i] * scale)
		}

		c.WriteAt(a.Channel, a.addresses[i], in)
	}

	a.dataLevel = conv.level(c.ReadAt(a.Channel, a.addresses[0]))

	a.Out.Channels = n
	for i := 0; i < n; i++ {
		a.Out.Voltages[i] = conv.toVoltage(c.ReadAt(a.Channel, a.addresses[i]))
	}
}

// declareExpander makes a module a client of both bus types and passes both
// through to its own client-ward neighbor.
func declareExpander(
	base *rack.ModuleBase,
	floats *bus.Client[float32],
	flags *bus.Client[bool],
) {
	bus.DeclareClient(base.ClientRoles(), floats)
	bus.DeclareClient(base.ClientRoles(), flags)
	bus.DeclareHost[float32](base.HostRoles(), floats)
	bus.DeclareHost[bool](base.HostRoles(), flags)
}
