package modules

import (
	"github.com/sparkette/dmabus/bus"
	"github.com/sparkette/dmabus/rack"
)

// Tap taps the float bus and adds one column of its own rows to it when the
// bus has no rows of the same height. It re-exposes every upstream channel
// to its client-ward neighbor.
type Tap struct {
	*rack.ModuleBase

	fwd *bus.ForwardingHost[float32]

	// In is stored into the local rows every frame, one voice per row.
	In Poly

	// Column selects the column of channel 0 read into Out.
	Column int

	// Out carries one voice per row of the selected column.
	Out Poly
}

// NewTap creates a tap with the given number of rows.
func NewTap(name string, rows int) *Tap {
	if rows > MaxVoices {
		panic("a tap cannot have more rows than voices")
	}

	t := &Tap{
		ModuleBase: rack.NewModuleBase(name),
		fwd:        bus.NewForwardingHost[float32](rows),
	}

	bus.DeclareClient(t.ClientRoles(), t.fwd.Client())
	bus.DeclareHost[float32](t.HostRoles(), t.fwd)
	rack.TraceWrites[float32](t, 0, t.fwd.Decorator())

	return t
}

// Channel returns the channel the tap exposes at index.
func (t *Tap) Channel(index int) bus.Channel[float32] {
	return t.fwd.Channel(index)
}

// InsertsOwnRow reports whether the tap currently contributes its own
// column.
func (t *Tap) InsertsOwnRow() bool {
	return t.fwd.Decorator().InsertsOwnRow()
}

// Process stores the inputs and reads the selected column.
func (t *Tap) Process(rack.ProcessArgs) {
	d := t.fwd.Decorator()
	rows := d.Rows()

	for row := 0; row < rows; row++ {
		d.SetLocal(row, t.In.Voltage(row))
	}

	if t.Column < 0 || t.Column >= d.Width() {
		t.Out.Channels = 0
		return
	}

	t.Out.Channels = rows
	for row := 0; row < rows; row++ {
		t.Out.Voltages[row] = d.ReadCell(t.Column, row)
	}
}
