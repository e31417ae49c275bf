package modules

import (
	"github.com/sparkette/dmabus/bus"
	"github.com/sparkette/dmabus/rack"
	"go.uber.org/zap"
)

// Matrix hosts a set of float channels and a parallel set of flag channels
// with the same shape.
//
// While a clear is in progress the matrix reports itself not ready. One row
// of every channel is cleared per frame.
type Matrix struct {
	*rack.ModuleBase

	floats *bus.ChannelHost[float32]
	flags  *bus.ChannelHost[bool]

	channels int
	width    int
	height   int

	// Clear starts a clear on its rising edge.
	Clear bool

	clearTrig trigger
	clearRow  int
	clearing  bool
}

// NewMatrix creates a matrix of n channels of width x height cells.
func NewMatrix(name string, n, width, height int) *Matrix {
	m := &Matrix{
		ModuleBase: rack.NewModuleBase(name),
		floats:     bus.NewChannelHost[float32](n, width, height),
		flags:      bus.NewChannelHost[bool](n, width, height),
		channels:   n,
		width:      width,
		height:     height,
	}

	bus.DeclareHost[float32](m.HostRoles(), m.floats)
	bus.DeclareHost[bool](m.HostRoles(), m.flags)
	m.traceWrites()

	return m
}

// Floats returns the float channels.
func (m *Matrix) Floats() *bus.ChannelHost[float32] {
	return m.floats
}

// Flags returns the flag channels.
func (m *Matrix) Flags() *bus.ChannelHost[bool] {
	return m.flags
}

// Shape returns the number of channels and their dimensions.
func (m *Matrix) Shape() (n, width, height int) {
	return m.channels, m.width, m.height
}

// Clearing reports whether a clear is in progress.
func (m *Matrix) Clearing() bool {
	return m.clearing
}

// Resize rebuilds the channels with a new shape. Contents are lost and the
// clients are rebound before Resize returns.
func (m *Matrix) Resize(n, width, height int) {
	m.floats.Configure(n, width, height)
	m.flags.Configure(n, width, height)
	m.channels, m.width, m.height = n, width, height
	m.clearing = false
	m.traceWrites()

	rack.Logger().Debug("matrix resized",
		zap.String("module", m.Name()),
		zap.Int("channels", n),
		zap.Int("width", width),
		zap.Int("height", height))

	m.NotifyHostChanged()
}

// SetReady changes the readiness of both channel sets.
func (m *Matrix) SetReady(ready bool) {
	if m.floats.Ready() == ready && m.flags.Ready() == ready {
		return
	}

	m.floats.SetReady(ready)
	m.flags.SetReady(ready)
	m.NotifyHostChanged()
}

func (m *Matrix) traceWrites() {
	for i := 0; i < m.channels; i++ {
		rack.TraceWrites[float32](m, i, m.floats.MemChannel(i))
		rack.TraceWrites[bool](m, i, m.flags.MemChannel(i))
	}
}

// Process advances a clear in progress.
func (m *Matrix) Process(rack.ProcessArgs) {
	if m.clearTrig.process(m.Clear) && !m.clearing {
		m.clearing = true
		m.clearRow = 0
		m.SetReady(false)
	}

	if !m.clearing {
		return
	}

	for i := 0; i < m.channels; i++ {
		f := m.floats.Channel(i)
		b := m.flags.Channel(i)

		for col := 0; col < m.width; col++ {
			f.WriteCell(col, m.clearRow, 0)
			b.WriteCell(col, m.clearRow, false)
		}
	}

	m.clearRow++
	if m.clearRow >= m.height {
		m.clearing = false
		m.SetReady(true)
	}
}
