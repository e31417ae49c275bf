package modules

import (
	"math/rand/v2"

	"github.com/sparkette/dmabus/bus"
	"github.com/sparkette/dmabus/rack"
)

// FX applies whole-channel operations to one channel of the bus it is
// attached to. Each operation runs once on the rising edge of its gate, on
// the float and the flag channel alike.
type FX struct {
	*rack.ModuleBase

	floats *bus.Client[float32]
	flags  *bus.Client[bool]

	// Channel selects the channel to operate on.
	Channel int

	// Invert negates floats and flips flags.
	Invert bool

	// Randomize fills floats with values in [RandMin, RandMax) and flags
	// with coin flips.
	Randomize        bool
	RandMin, RandMax float32

	// Scroll moves every cell by ScrollX columns and ScrollY rows, wrapping
	// around, ScrollAmount times.
	Scroll           bool
	ScrollX, ScrollY int
	ScrollAmount     int

	rng *rand.Rand

	invertTrig    trigger
	randomizeTrig trigger
	scrollTrig    trigger

	floatScratch []float32
	flagScratch  []bool
}

// NewFX creates an FX module whose random operations are seeded with seed.
func NewFX(name string, seed uint64) *FX {
	fx := &FX{
		ModuleBase:   rack.NewModuleBase(name),
		floats:       bus.NewClient[float32](),
		flags:        bus.NewClient[bool](),
		RandMax:      10,
		ScrollAmount: 1,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}

	declareExpander(fx.ModuleBase, fx.floats, fx.flags)

	return fx
}

// Process runs the operations triggered in this frame.
func (fx *FX) Process(rack.ProcessArgs) {
	invert := fx.invertTrig.process(fx.Invert)
	randomize := fx.randomizeTrig.process(fx.Randomize)
	scroll := fx.scrollTrig.process(fx.Scroll)

	if !invert && !randomize && !scroll {
		return
	}

	if ready, _ := bus.ResolveReadyHost(fx.ClientRoles()); !ready {
		return
	}

	f := fx.floats.Channel(fx.Channel)
	b := fx.flags.Channel(fx.Channel)

	if invert {
		fx.invert(f, b)
	}

	if randomize {
		fx.randomize(f, b)
	}

	if scroll {
		for range fx.ScrollAmount {
			fx.floatScratch = scrollChannel(f, fx.ScrollX, fx.ScrollY, fx.floatScratch)
			fx.flagScratch = scrollChannel(b, fx.ScrollX, fx.ScrollY, fx.flagScratch)
		}
	}
}

func (fx *FX) invert(f bus.Channel[float32], b bus.Channel[bool]) {
	if f != nil {
		for i := range f.Len() {
			f.Write(i, -f.Read(i))
		}
	}

	if b != nil {
		for i := range b.Len() {
			b.Write(i, !b.Read(i))
		}
	}
}

func (fx *FX) randomize(f bus.Channel[float32], b bus.Channel[bool]) {
	if f != nil {
		span := fx.RandMax - fx.RandMin
		for i := range f.Len() {
			f.Write(i, fx.RandMin+fx.rng.Float32()*span)
		}
	}

	if b != nil {
		for i := range b.Len() {
			b.Write(i, fx.rng.IntN(2) == 1)
		}
	}
}

// scrollChannel moves every cell of ch by (dx, dy) with wraparound. The
// scratch buffer is reused and returned, grown if the channel needs more.
func scrollChannel[T any](ch bus.Channel[T], dx, dy int, scratch []T) []T {
	if ch == nil {
		return scratch
	}

	n := ch.Len()
	if cap(scratch) < n {
		scratch = make([]T, n)
	}
	scratch = scratch[:n]

	for i := range n {
		scratch[i] = ch.Read(i)
	}

	w, h := ch.Width(), ch.Height()
	for row := range h {
		for col := range w {
			dst := wrap(row+dy, h)*w + wrap(col+dx, w)
			ch.Write(dst, scratch[row*w+col])
		}
	}

	return scratch
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}

	return v
}
