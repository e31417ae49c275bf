package modules

import (
	"fmt"
	"sort"

	"github.com/sparkette/dmabus/rack"
	"gopkg.in/yaml.v3"
)

// A Constructor builds a module from its layout parameters. params may be
// nil, in which case defaults apply.
type Constructor func(name string, params *yaml.Node) (rack.Module, error)

// Factory creates modules by kind.
type Factory struct {
	constructors map[string]Constructor
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// DefaultFactory creates a factory that knows every module of this package.
func DefaultFactory() *Factory {
	f := NewFactory()
	f.Register("matrix", newMatrixFromParams)
	f.Register("accessor", newAccessorFromParams)
	f.Register("fx", newFXFromParams)
	f.Register("tap", newTapFromParams)

	return f
}

// Register adds a module kind. Registering a kind twice panics.
func (f *Factory) Register(kind string, c Constructor) {
	if _, dup := f.constructors[kind]; dup {
		panic("module kind " + kind + " already registered")
	}

	f.constructors[kind] = c
}

// Kinds lists the registered kinds in alphabetical order.
func (f *Factory) Kinds() []string {
	kinds := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}

// Create builds a module of the given kind.
func (f *Factory) Create(kind, name string, params *yaml.Node) (rack.Module, error) {
	c, ok := f.constructors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown module kind %q", kind)
	}

	m, err := c(name, params)
	if err != nil {
		return nil, fmt.Errorf("creating %s %q: %w", kind, name, err)
	}

	return m, nil
}

func decodeParams(params *yaml.Node, out any) error {
	if params == nil {
		return nil
	}

	return params.Decode(out)
}

type matrixParams struct {
	Channels int `yaml:"channels"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
}

func newMatrixFromParams(name string, params *yaml.Node) (rack.Module, error) {
	p := matrixParams{Channels: 1, Width: 16, Height: 16}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	if p.Channels < 0 || p.Width < 1 || p.Height < 1 {
		return nil, fmt.Errorf("invalid shape %d x %dx%d",
			p.Channels, p.Width, p.Height)
	}

	return NewMatrix(name, p.Channels, p.Width, p.Height), nil
}

type accessorParams struct {
	Channel     int       `yaml:"channel"`
	Data        *float32  `yaml:"data"`
	WriteAlways bool      `yaml:"write_always"`
	X           []float32 `yaml:"x"`
	Y           []float32 `yaml:"y"`
	DataIn      []float32 `yaml:"data_in"`
	Write       []float32 `yaml:"write"`
}

func newAccessorFromParams(name string, params *yaml.Node) (rack.Module, error) {
	var p accessorParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	a := NewAccessor(name)
	a.Channel = p.Channel
	a.WriteAlways = p.WriteAlways
	if p.Data != nil {
		a.Data = *p.Data
	}

	a.X.Set(p.X...)
	a.Y.Set(p.Y...)
	a.DataIn.Set(p.DataIn...)
	a.Write.Set(p.Write...)

	return a, nil
}

type fxParams struct {
	Channel      int      `yaml:"channel"`
	Seed         uint64   `yaml:"seed"`
	RandMin      *float32 `yaml:"rand_min"`
	RandMax      *float32 `yaml:"rand_max"`
	ScrollX      int      `yaml:"scroll_x"`
	ScrollY      int      `yaml:"scroll_y"`
	ScrollAmount *int     `yaml:"scroll_amount"`
}

func newFXFromParams(name string, params *yaml.Node) (rack.Module, error) {
	var p fxParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	fx := NewFX(name, p.Seed)
	fx.Channel = p.Channel
	fx.ScrollX = p.ScrollX
	fx.ScrollY = p.ScrollY

	if p.RandMin != nil {
		fx.RandMin = *p.RandMin
	}

	if p.RandMax != nil {
		fx.RandMax = *p.RandMax
	}

	if p.ScrollAmount != nil {
		fx.ScrollAmount = *p.ScrollAmount
	}

	return fx, nil
}

type tapParams struct {
	Rows   int       `yaml:"rows"`
	Column int       `yaml:"column"`
	In     []float32 `yaml:"in"`
}

func newTapFromParams(name string, params *yaml.Node) (rack.Module, error) {
	p := tapParams{Rows: 1}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	if p.Rows < 1 || p.Rows > MaxVoices {
		return nil, fmt.Errorf("rows must be in 1..%d, got %d", MaxVoices, p.Rows)
	}

	t := NewTap(name, p.Rows)
	t.Column = p.Column
	t.In.Set(p.In...)

	return t, nil
}
