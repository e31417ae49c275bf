// Package modules holds the modules that use the bus: hosts that own
// channels, expanders that address them, and a tap that adds a row of its
// own.
package modules

// MaxVoices is the number of voices a polyphonic signal can carry.
const MaxVoices = 16

// Poly is a polyphonic voltage signal. Only the first Channels voltages are
// meaningful.
type Poly struct {
	Channels int
	Voltages [MaxVoices]float32
}

// PolyOf creates a signal carrying the given voltages. Extra voltages are
// dropped.
func PolyOf(voltages ...float32) Poly {
	var p Poly
	p.Set(voltages...)

	return p
}

// Set replaces the voltages of the signal.
func (p *Poly) Set(voltages ...float32) {
	p.Channels = copy(p.Voltages[:], voltages)
}

// Voltage returns the voltage of voice i, or 0 for a voice not carried.
func (p *Poly) Voltage(i int) float32 {
	if i < 0 || i >= p.Channels {
		return 0
	}

	return p.Voltages[i]
}

// High reports whether voice i is above the gate threshold.
func (p *Poly) High(i int) bool {
	return p.Voltage(i) > gateThreshold
}

const gateThreshold = 0.5

// trigger detects rising edges of a gate.
type trigger struct {
	high bool
}

func (t *trigger) process(gate bool) bool {
	rising := gate && !t.high
	t.high = gate

	return rising
}
