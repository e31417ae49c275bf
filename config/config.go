// Package config loads rack layouts and the environment that overrides them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sparkette/dmabus/modules"
	"github.com/sparkette/dmabus/rack"
	"gopkg.in/yaml.v3"
)

// Layout describes a rack and the modules placed in it from left to right.
type Layout struct {
	Name       string         `yaml:"name"`
	SampleRate float64        `yaml:"sample_rate"`
	Modules    []ModuleConfig `yaml:"modules"`
	Trace      TraceConfig    `yaml:"trace"`
	Monitor    MonitorConfig  `yaml:"monitor"`
}

// ModuleConfig configures one module. Params are decoded by the constructor
// registered for Kind.
type ModuleConfig struct {
	Kind   string    `yaml:"kind"`
	Name   string    `yaml:"name"`
	Params yaml.Node `yaml:"params"`
}

// TraceConfig configures trace recording.
type TraceConfig struct {
	File       string `yaml:"file"`
	Writes     bool   `yaml:"writes"`
	StartFrame uint64 `yaml:"start_frame"`
	EndFrame   uint64 `yaml:"end_frame"`
}

// MonitorConfig configures the monitor.
type MonitorConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns an empty layout at the default sample rate.
func Default() *Layout {
	return &Layout{
		Name:       "Rack",
		SampleRate: float64(rack.DefaultSampleRate),
	}
}

// Load reads a layout file, applies DMABUS_* environment overrides, and
// validates the result.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	return Parse(data)
}

// Parse decodes a layout, applies DMABUS_* environment overrides, and
// validates the result.
func Parse(data []byte) (*Layout, error) {
	l := Default()
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	if err := applyEnvOverrides(l); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := validate(l); err != nil {
		return nil, fmt.Errorf("validate layout: %w", err)
	}

	return l, nil
}

// LoadEnv loads the given .env files into the environment without
// overriding variables that are already set. Without arguments it loads .env
// from the working directory if there is one.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		err := godotenv.Load()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}

	return godotenv.Load(files...)
}

// applyEnvOverrides applies DMABUS_* environment variables to the layout.
// Environment variables always override the layout file.
func applyEnvOverrides(l *Layout) error {
	if v := os.Getenv("DMABUS_RACK_NAME"); v != "" {
		l.Name = v
	}

	if v := os.Getenv("DMABUS_SAMPLE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DMABUS_SAMPLE_RATE: %w", err)
		}

		l.SampleRate = rate
	}

	if v := os.Getenv("DMABUS_TRACE_FILE"); v != "" {
		l.Trace.File = v
	}

	if v := os.Getenv("DMABUS_TRACE_WRITES"); v != "" {
		writes, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DMABUS_TRACE_WRITES: %w", err)
		}

		l.Trace.Writes = writes
	}

	if v := os.Getenv("DMABUS_MONITOR_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DMABUS_MONITOR_PORT: %w", err)
		}

		l.Monitor.Enabled = true
		l.Monitor.Port = port
	}

	return nil
}

func validate(l *Layout) error {
	if l.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %g", l.SampleRate)
	}

	if l.Trace.EndFrame != 0 && l.Trace.EndFrame <= l.Trace.StartFrame {
		return fmt.Errorf("trace end frame %d is not after start frame %d",
			l.Trace.EndFrame, l.Trace.StartFrame)
	}

	if l.Monitor.Port < 0 || l.Monitor.Port > 65535 {
		return fmt.Errorf("invalid monitor port %d", l.Monitor.Port)
	}

	seen := make(map[string]bool, len(l.Modules))
	for i, m := range l.Modules {
		if m.Kind == "" {
			return fmt.Errorf("module %d: kind is required", i)
		}

		if m.Name == "" {
			return fmt.Errorf("module %d: name is required", i)
		}

		if seen[m.Name] {
			return fmt.Errorf("module %d: duplicate name %q", i, m.Name)
		}

		seen[m.Name] = true
	}

	return nil
}

// Freq returns the sample rate of the layout.
func (l *Layout) Freq() rack.Freq {
	return rack.Freq(l.SampleRate)
}

// Populate creates the modules of the layout with the factory and appends
// them to the rack in order.
func (l *Layout) Populate(r *rack.Rack, f *modules.Factory) error {
	for i := range l.Modules {
		mc := &l.Modules[i]

		var params *yaml.Node
		if !mc.Params.IsZero() {
			params = &mc.Params
		}

		m, err := f.Create(mc.Kind, mc.Name, params)
		if err != nil {
			return err
		}

		if _, err := r.Append(m); err != nil {
			return fmt.Errorf("placing %q: %w", mc.Name, err)
		}
	}

	return nil
}
