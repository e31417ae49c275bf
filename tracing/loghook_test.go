package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sparkette/dmabus/modules"
	"github.com/sparkette/dmabus/rack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("LogHook", func() {
	var (
		logs *observer.ObservedLogs
		hook *LogHook
		r    *rack.Rack
	)

	newHook := func(level zapcore.Level) {
		core, observed := observer.New(level)
		logs = observed
		hook = NewLogHook(zap.New(core))
		r = rack.MakeBuilder().Build()
		r.AcceptHook(hook)
	}

	It("should log placements and topology changes", func() {
		newHook(zapcore.InfoLevel)

		r.Append(modules.NewMatrix("Matrix", 1, 2, 2))
		r.Place(0, modules.NewAccessor("Accessor"))

		Expect(logs.FilterMessage("ModulePlaced").Len()).To(Equal(2))

		changes := logs.FilterMessage("ExpanderChange").AllUntimed()
		Expect(changes).To(HaveLen(2))
		Expect(changes[1].ContextMap()).To(HaveKeyWithValue("module", "Accessor"))
		Expect(changes[1].ContextMap()).To(HaveKeyWithValue("side", "right"))
		Expect(changes[1].ContextMap()).To(HaveKeyWithValue("neighbor", "Matrix"))
	})

	It("should log writes only at debug level", func() {
		newHook(zapcore.InfoLevel)
		matrix := modules.NewMatrix("Matrix", 1, 2, 2)
		matrix.AcceptHook(hook)

		matrix.Floats().Channel(0).Write(1, 2)
		Expect(logs.FilterMessage("ChannelWrite").Len()).To(BeZero())

		newHook(zapcore.DebugLevel)
		matrix = modules.NewMatrix("Matrix", 1, 2, 2)
		matrix.AcceptHook(hook)

		matrix.Floats().Channel(0).Write(1, 2)
		entries := logs.FilterMessage("ChannelWrite").AllUntimed()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].ContextMap()).To(HaveKeyWithValue("index", int64(1)))
	})
})
