// Package tracing records what happens on the bus: channel writes and
// topology changes go to a DataRecorder, and the same events can be logged.
package tracing

import (
	"sync"

	"github.com/sparkette/dmabus/datarecording"
	"github.com/sparkette/dmabus/hooking"
	"github.com/sparkette/dmabus/rack"
)

// A FrameTeller can tell the current frame.
type FrameTeller interface {
	Frame() uint64
}

// WriteTableName is the table WriteTracer records into.
const WriteTableName = "channel_writes"

// TopologyTableName is the table TopologyTracer records into.
const TopologyTableName = "topology_changes"

// WriteEntry is one traced channel write.
type WriteEntry struct {
	Frame   uint64
	Module  string
	Channel int
	Index   int
	Kind    string
	Value   float64
}

// TopologyEntry is one delivered ExpanderChange.
type TopologyEntry struct {
	Frame    uint64
	Module   string
	Side     string
	Neighbor string
}

// WriteTracer records traced channel writes. It must be accepted as a hook
// by every module whose writes are of interest.
type WriteTracer struct {
	lock sync.Mutex

	frameTeller FrameTeller
	backend     datarecording.DataRecorder

	enabled          bool
	startFrame       uint64
	endFrame         uint64
	hasFrameRange    bool
	recordedEntryNum uint64
}

// NewWriteTracer creates a write tracer. Tracing starts enabled.
func NewWriteTracer(
	frameTeller FrameTeller,
	backend datarecording.DataRecorder,
) *WriteTracer {
	backend.CreateTable(WriteTableName, WriteEntry{})

	return &WriteTracer{
		frameTeller: frameTeller,
		backend:     backend,
		enabled:     true,
	}
}

// SetFrameRange limits recording to frames in [start, end).
func (t *WriteTracer) SetFrameRange(start, end uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if end <= start {
		panic("end frame must be after start frame")
	}

	t.startFrame = start
	t.endFrame = end
	t.hasFrameRange = true
}

// EnableTracing resumes recording.
func (t *WriteTracer) EnableTracing() {
	t.lock.Lock()
	t.enabled = true
	t.lock.Unlock()
}

// DisableTracing stops recording until EnableTracing is called.
func (t *WriteTracer) DisableTracing() {
	t.lock.Lock()
	t.enabled = false
	t.lock.Unlock()
}

// IsTracing reports whether writes are being recorded.
func (t *WriteTracer) IsTracing() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.enabled
}

// RecordedEntries returns the number of writes recorded so far.
func (t *WriteTracer) RecordedEntries() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.recordedEntryNum
}

// Func records the write carried by a HookPosChannelWrite context.
func (t *WriteTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != rack.HookPosChannelWrite {
		return
	}

	w, ok := ctx.Item.(rack.ChannelWrite)
	if !ok {
		return
	}

	kind, value, ok := numericValue(w.Value)
	if !ok {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	frame := t.frameTeller.Frame()
	if !t.enabled || !t.inRange(frame) {
		return
	}

	t.backend.InsertData(WriteTableName, WriteEntry{
		Frame:   frame,
		Module:  w.Module,
		Channel: w.Channel,
		Index:   w.Index,
		Kind:    kind,
		Value:   value,
	})
	t.recordedEntryNum++
}

func (t *WriteTracer) inRange(frame uint64) bool {
	if !t.hasFrameRange {
		return true
	}

	return frame >= t.startFrame && frame < t.endFrame
}

func numericValue(v any) (kind string, value float64, ok bool) {
	switch v := v.(type) {
	case float32:
		return "float32", float64(v), true
	case float64:
		return "float64", v, true
	case int:
		return "int", float64(v), true
	case bool:
		if v {
			return "bool", 1, true
		}

		return "bool", 0, true
	default:
		return "", 0, false
	}
}

// TopologyTracer records every ExpanderChange a rack delivers. It must be
// accepted as a hook by the rack.
type TopologyTracer struct {
	lock    sync.Mutex
	backend datarecording.DataRecorder
}

// NewTopologyTracer creates a topology tracer.
func NewTopologyTracer(backend datarecording.DataRecorder) *TopologyTracer {
	backend.CreateTable(TopologyTableName, TopologyEntry{})

	return &TopologyTracer{backend: backend}
}

// Func records the change carried by a HookPosExpanderChange context.
func (t *TopologyTracer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != rack.HookPosExpanderChange {
		return
	}

	change, ok := ctx.Item.(rack.TopologyChange)
	if !ok {
		return
	}

	neighbor := ""
	if change.Change.Neighbor != nil {
		neighbor = change.Change.Neighbor.Name()
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.backend.InsertData(TopologyTableName, TopologyEntry{
		Frame:    change.Frame,
		Module:   change.Module.Name(),
		Side:     change.Change.Side.String(),
		Neighbor: neighbor,
	})
}

// CollectWrites makes the tracer record the traced writes of a module.
func CollectWrites(m rack.Module, t *WriteTracer) {
	m.AcceptHook(t)
}
