// Package simulation puts a rack together with the services around it: trace
// recording, logging, and the monitor.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sparkette/dmabus/datarecording"
	"github.com/sparkette/dmabus/hooking"
	"github.com/sparkette/dmabus/modules"
	"github.com/sparkette/dmabus/monitoring"
	"github.com/sparkette/dmabus/rack"
	"github.com/sparkette/dmabus/tracing"
	"gopkg.in/yaml.v3"
)

// A Simulation owns a rack and the services that observe it.
type Simulation struct {
	id         string
	outputPath string

	rack           *rack.Rack
	factory        *modules.Factory
	dataRecorder   datarecording.DataRecorder
	dataReader     datarecording.DataReader
	writeTracer    *tracing.WriteTracer
	topologyTracer *tracing.TopologyTracer
	logHook        *tracing.LogHook
	monitor        *monitoring.Monitor

	// hooked is only touched from rack hooks, which run under the rack's
	// step lock.
	hooked map[rack.Module]bool

	barLock sync.Mutex
	bar     *monitoring.ProgressBar
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// OutputFile returns the file traces are recorded to.
func (s *Simulation) OutputFile() string {
	return s.outputPath + ".sqlite3"
}

// Rack returns the simulated rack.
func (s *Simulation) Rack() *rack.Rack {
	return s.rack
}

// Factory returns the factory modules are created with.
func (s *Simulation) Factory() *modules.Factory {
	return s.factory
}

// GetDataRecorder returns the data recorder used in the simulation.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil when monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetWriteTracer returns the write tracer, or nil when write tracing is
// disabled.
func (s *Simulation) GetWriteTracer() *tracing.WriteTracer {
	return s.writeTracer
}

// AddModule creates a module with the factory and appends it to the rack.
func (s *Simulation) AddModule(
	kind, name string,
	params *yaml.Node,
) (rack.Handle, error) {
	m, err := s.factory.Create(kind, name, params)
	if err != nil {
		return rack.Handle{}, err
	}

	return s.rack.Append(m)
}

// StartMonitor starts the monitor's web server and returns its port.
func (s *Simulation) StartMonitor() (int, error) {
	if s.monitor == nil {
		return 0, errors.New("monitoring is disabled")
	}

	s.dataRecorder.Flush()

	reader, err := datarecording.NewReader(s.OutputFile())
	if err != nil {
		return 0, fmt.Errorf("opening trace for the monitor: %w", err)
	}

	s.dataReader = reader
	s.monitor.RegisterDataReader(reader)

	return s.monitor.StartServer()
}

// Run processes the given number of frames, or runs until ctx is done when
// frames is 0. Progress is shown on the monitor.
func (s *Simulation) Run(ctx context.Context, frames uint64) error {
	if s.monitor != nil && frames > 0 {
		bar := s.monitor.CreateProgressBar(s.rack.Name(), frames)
		s.setBar(bar)

		defer func() {
			s.setBar(nil)
			s.monitor.CompleteProgressBar(bar)
		}()
	}

	err := s.rack.Run(ctx, frames)
	s.dataRecorder.Flush()

	return err
}

func (s *Simulation) setBar(bar *monitoring.ProgressBar) {
	s.barLock.Lock()
	defer s.barLock.Unlock()

	s.bar = bar
}

// Func wires every placed module to the tracers and advances the progress
// bar. It is accepted as a hook by the rack.
func (s *Simulation) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case rack.HookPosModulePlaced:
		m, ok := ctx.Item.(rack.Module)
		if ok {
			s.observe(m)
		}
	case rack.HookPosAfterFrame:
		s.barLock.Lock()
		if s.bar != nil {
			s.bar.IncrementFinished(1)
		}
		s.barLock.Unlock()
	}
}

// observe attaches the module hooks once, even if the module is placed again
// after being removed.
func (s *Simulation) observe(m rack.Module) {
	if s.hooked[m] {
		return
	}

	s.hooked[m] = true

	if s.writeTracer != nil {
		tracing.CollectWrites(m, s.writeTracer)
	}

	if s.logHook != nil {
		m.AcceptHook(s.logHook)
	}

	if s.monitor != nil {
		m.AcceptHook(s.monitor.Metrics())
	}
}

// Terminate stops the monitor and closes the recorder, flushing what is left.
func (s *Simulation) Terminate() error {
	var errs []error

	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		errs = append(errs, s.monitor.StopServer(ctx))
	}

	if s.dataReader != nil {
		errs = append(errs, s.dataReader.Close())
	}

	errs = append(errs, s.dataRecorder.Close())

	return errors.Join(errs...)
}
