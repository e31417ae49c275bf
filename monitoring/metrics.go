package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sparkette/dmabus/hooking"
	"github.com/sparkette/dmabus/rack"
)

// Metrics counts what happens in a rack. It is a hook: accept it on the rack
// to count frames and topology changes, and on modules to count their writes.
type Metrics struct {
	registry *prometheus.Registry

	Frames          prometheus.Counter
	TopologyChanges *prometheus.CounterVec
	ChannelWrites   *prometheus.CounterVec
	Modules         prometheus.Gauge
}

// NewMetrics creates a set of metrics registered on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Frames: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dmabus",
				Name:      "frames_total",
				Help:      "Total number of processed frames",
			},
		),
		TopologyChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dmabus",
				Name:      "topology_changes_total",
				Help:      "Total number of delivered expander changes",
			},
			[]string{"side"},
		),
		ChannelWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dmabus",
				Name:      "channel_writes_total",
				Help:      "Total number of traced channel writes",
			},
			[]string{"module"},
		),
		Modules: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dmabus",
				Name:      "modules",
				Help:      "Number of modules in the rack",
			},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Func updates the metrics.
func (m *Metrics) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case rack.HookPosAfterFrame:
		m.Frames.Inc()
	case rack.HookPosExpanderChange:
		if change, ok := ctx.Item.(rack.TopologyChange); ok {
			m.TopologyChanges.WithLabelValues(change.Change.Side.String()).Inc()
		}
	case rack.HookPosChannelWrite:
		if w, ok := ctx.Item.(rack.ChannelWrite); ok {
			m.ChannelWrites.WithLabelValues(w.Module).Inc()
		}
	case rack.HookPosModulePlaced:
		m.Modules.Inc()
	case rack.HookPosModuleRemoved:
		m.Modules.Dec()
	}
}
