package simulation

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sparkette/dmabus/datarecording"
	"github.com/sparkette/dmabus/modules"
	"github.com/sparkette/dmabus/monitoring"
	"github.com/sparkette/dmabus/rack"
	"github.com/sparkette/dmabus/tracing"
	"go.uber.org/zap"
)

// Builder can be used to build a simulation.
type Builder struct {
	name           string
	sampleRate     rack.Freq
	monitorOn      bool
	monitorPort    int
	outputFileName string
	traceWrites    bool
	traceStart     uint64
	traceEnd       uint64
	traceRangeSet  bool
	logger         *zap.Logger
	factory        *modules.Factory
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		name:       "Rack",
		sampleRate: rack.DefaultSampleRate,
		monitorOn:  true,
	}
}

// WithName sets the name of the rack.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithSampleRate sets the rate frames are processed at.
func (b Builder) WithSampleRate(f rack.Freq) Builder {
	b.sampleRate = f
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithWriteTracing records every traced channel write of every placed module.
func (b Builder) WithWriteTracing() Builder {
	b.traceWrites = true
	return b
}

// WithTraceFrameRange limits write tracing to frames in [start, end).
func (b Builder) WithTraceFrameRange(start, end uint64) Builder {
	b.traceStart = start
	b.traceEnd = end
	b.traceRangeSet = true

	return b
}

// WithLogger logs placements, topology changes, and channel writes.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// WithFactory sets the factory modules are created with. The default factory
// knows every module of the modules package.
func (b Builder) WithFactory(f *modules.Factory) Builder {
	b.factory = f
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if b.traceRangeSet && !b.traceWrites {
		panic("trace frame range set without write tracing")
	}

	if b.traceRangeSet && b.traceEnd <= b.traceStart {
		panic(fmt.Sprintf("trace frame range [%d, %d) is empty",
			b.traceStart, b.traceEnd))
	}
}

// Build builds the simulation. The monitor, when enabled, is not started
// until StartMonitor is called.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:     xid.New().String(),
		hooked: make(map[rack.Module]bool),
	}

	s.outputPath = b.outputFileName
	if s.outputPath == "" {
		s.outputPath = "dmabus_" + s.id
	}
	s.dataRecorder = datarecording.New(s.outputPath)

	s.factory = b.factory
	if s.factory == nil {
		s.factory = modules.DefaultFactory()
	}

	s.rack = rack.MakeBuilder().
		WithName(b.name).
		WithSampleRate(b.sampleRate).
		Build()

	s.topologyTracer = tracing.NewTopologyTracer(s.dataRecorder)
	s.rack.AcceptHook(s.topologyTracer)

	if b.traceWrites {
		s.writeTracer = tracing.NewWriteTracer(s.rack, s.dataRecorder)
		if b.traceRangeSet {
			s.writeTracer.SetFrameRange(b.traceStart, b.traceEnd)
		}
	}

	if b.logger != nil {
		s.logHook = tracing.NewLogHook(b.logger)
		s.rack.AcceptHook(s.logHook)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().WithPortNumber(b.monitorPort)
		s.monitor.RegisterRack(s.rack)
		s.monitor.RegisterFactory(s.factory)
	}

	s.rack.AcceptHook(s)

	return s
}
