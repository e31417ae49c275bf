package tracing

import (
	"github.com/sparkette/dmabus/hooking"
	"github.com/sparkette/dmabus/rack"
	"go.uber.org/zap"
)

// LogHook logs rack and module events. Placement and topology changes are
// logged at info level, channel writes at debug level.
type LogHook struct {
	logger *zap.Logger
}

// NewLogHook creates a hook that logs to the given logger.
func NewLogHook(logger *zap.Logger) *LogHook {
	return &LogHook{logger: logger}
}

// Func logs the event.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case rack.HookPosModulePlaced, rack.HookPosModuleRemoved:
		m, ok := ctx.Item.(rack.Module)
		if !ok {
			return
		}

		h.logger.Info(ctx.Pos.Name, zap.String("module", m.Name()))
	case rack.HookPosExpanderChange:
		change, ok := ctx.Item.(rack.TopologyChange)
		if !ok {
			return
		}

		neighbor := "none"
		if change.Change.Neighbor != nil {
			neighbor = change.Change.Neighbor.Name()
		}

		h.logger.Info(ctx.Pos.Name,
			zap.Uint64("frame", change.Frame),
			zap.String("module", change.Module.Name()),
			zap.Stringer("side", change.Change.Side),
			zap.String("neighbor", neighbor))
	case rack.HookPosChannelWrite:
		if ce := h.logger.Check(zap.DebugLevel, ctx.Pos.Name); ce != nil {
			w, ok := ctx.Item.(rack.ChannelWrite)
			if !ok {
				return
			}

			ce.Write(
				zap.String("module", w.Module),
				zap.Int("channel", w.Channel),
				zap.Int("index", w.Index),
				zap.Any("value", w.Value))
		}
	}
}
