package simulation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sparkette/dmabus/datarecording"
	"github.com/sparkette/dmabus/modules"
	"github.com/sparkette/dmabus/rack"
	"github.com/sparkette/dmabus/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

func readBack(file, table string, entry any) []any {
	reader, err := datarecording.NewReader(file)
	Expect(err).NotTo(HaveOccurred())
	defer reader.Close()

	reader.MapTable(table, entry)
	rows, _, err := reader.Query(context.Background(), table,
		datarecording.QueryParams{OrderBy: "Frame"})
	Expect(err).NotTo(HaveOccurred())

	return rows
}

var _ = Describe("Simulation", func() {
	var (
		output string
		s      *Simulation
	)

	BeforeEach(func() {
		output = filepath.Join(GinkgoT().TempDir(), "sim")
	})

	AfterEach(func() {
		if s != nil {
			Expect(s.Terminate()).To(Succeed())
			s = nil
		}
	})

	It("should not allow a monitor port without monitoring", func() {
		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithMonitorPort(8080).Build()
		}).To(Panic())
	})

	It("should not allow a trace range without write tracing", func() {
		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithTraceFrameRange(1, 2).Build()
		}).To(Panic())
	})

	It("should not allow an empty trace range", func() {
		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithWriteTracing().
				WithTraceFrameRange(5, 5).Build()
		}).To(Panic())

		Expect(func() {
			MakeBuilder().WithoutMonitoring().WithWriteTracing().
				WithTraceFrameRange(9, 2).Build()
		}).To(Panic())
	})

	It("should build a rack with the given parameters", func() {
		s = MakeBuilder().
			WithoutMonitoring().
			WithName("Eurorack").
			WithSampleRate(1 * rack.KHz).
			WithOutputFileName(output).
			Build()

		Expect(s.Rack().Name()).To(Equal("Eurorack"))
		Expect(s.Rack().SampleRate()).To(Equal(1 * rack.KHz))
		Expect(s.OutputFile()).To(Equal(output + ".sqlite3"))
		Expect(s.GetMonitor()).To(BeNil())
		Expect(s.GetWriteTracer()).To(BeNil())
		Expect(s.GetDataRecorder().ListTables()).
			To(ContainElement(tracing.TopologyTableName))
	})

	It("should add modules through the factory", func() {
		s = MakeBuilder().WithoutMonitoring().WithOutputFileName(output).Build()

		params := new(yaml.Node)
		Expect(params.Encode(map[string]int{"width": 4, "height": 4})).
			To(Succeed())

		_, err := s.AddModule("accessor", "Accessor", nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.AddModule("matrix", "Matrix", params)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.AddModule("nope", "Nope", nil)
		Expect(err).To(HaveOccurred())

		Expect(s.Rack().Len()).To(Equal(2))
	})

	It("should record topology changes", func() {
		s = MakeBuilder().WithoutMonitoring().WithOutputFileName(output).Build()

		_, err := s.Rack().Append(modules.NewAccessor("Accessor"))
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Rack().Append(modules.NewMatrix("Matrix", 1, 4, 4))
		Expect(err).NotTo(HaveOccurred())
		s.GetDataRecorder().Flush()

		rows := readBack(s.OutputFile(), tracing.TopologyTableName,
			tracing.TopologyEntry{})

		Expect(rows).To(ContainElement(&tracing.TopologyEntry{
			Module:   "Accessor",
			Side:     "right",
			Neighbor: "Matrix",
		}))
		Expect(rows).To(ContainElement(&tracing.TopologyEntry{
			Module:   "Matrix",
			Side:     "left",
			Neighbor: "Accessor",
		}))
	})

	It("should trace writes of modules placed after it is built", func() {
		s = MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(output).
			WithWriteTracing().
			WithTraceFrameRange(1, 2).
			Build()

		a := modules.NewAccessor("Accessor")
		a.X = modules.PolyOf(0)
		a.Write = modules.PolyOf(10)
		a.DataIn = modules.PolyOf(5)
		matrix := modules.NewMatrix("Matrix", 1, 4, 4)

		_, err := s.Rack().Append(a)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Rack().Append(matrix)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background(), 3)).To(Succeed())

		Expect(s.GetWriteTracer().RecordedEntries()).To(Equal(uint64(1)))

		rows := readBack(s.OutputFile(), tracing.WriteTableName,
			tracing.WriteEntry{})
		Expect(rows).To(HaveLen(1))
		Expect(rows[0]).To(Equal(&tracing.WriteEntry{
			Frame:   1,
			Module:  "Matrix",
			Channel: 0,
			Index:   0,
			Kind:    "float32",
			Value:   5,
		}))
	})

	It("should hook a module only once when it is placed again", func() {
		s = MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(output).
			WithWriteTracing().
			Build()

		matrix := modules.NewMatrix("Matrix", 1, 4, 4)
		h, err := s.Rack().Append(matrix)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Rack().Remove(h)).To(Succeed())

		Expect(func() {
			_, err = s.Rack().Append(matrix)
		}).NotTo(Panic())
		Expect(err).NotTo(HaveOccurred())
		Expect(matrix.NumHooks()).To(Equal(1))
	})

	It("should log topology changes", func() {
		core, logs := observer.New(zap.InfoLevel)
		s = MakeBuilder().
			WithoutMonitoring().
			WithOutputFileName(output).
			WithLogger(zap.New(core)).
			Build()

		_, err := s.Rack().Append(modules.NewMatrix("Matrix", 1, 4, 4))
		Expect(err).NotTo(HaveOccurred())

		Expect(logs.FilterMessage(rack.HookPosModulePlaced.Name).Len()).
			To(Equal(1))
	})

	It("should stop running when the context is canceled", func() {
		s = MakeBuilder().WithoutMonitoring().WithOutputFileName(output).Build()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(s.Run(ctx, 0)).To(MatchError(context.Canceled))
	})

	It("should refuse to start a monitor when monitoring is disabled", func() {
		s = MakeBuilder().WithoutMonitoring().WithOutputFileName(output).Build()

		_, err := s.StartMonitor()
		Expect(err).To(HaveOccurred())
	})

	Context("with monitoring", func() {
		var port int

		BeforeEach(func() {
			s = MakeBuilder().WithOutputFileName(output).Build()

			_, err := s.Rack().Append(modules.NewMatrix("Matrix", 1, 4, 4))
			Expect(err).NotTo(HaveOccurred())

			port, err = s.StartMonitor()
			Expect(err).NotTo(HaveOccurred())
		})

		get := func(path string) string {
			rsp, err := http.Get(fmt.Sprintf("http://localhost:%d%s", port, path))
			Expect(err).NotTo(HaveOccurred())
			defer rsp.Body.Close()

			Expect(rsp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(rsp.Body)
			Expect(err).NotTo(HaveOccurred())

			return string(body)
		}

		It("should serve the rack", func() {
			Expect(s.Run(context.Background(), 4)).To(Succeed())

			Expect(get("/api/now")).To(ContainSubstring(`"frame":4`))
			Expect(get("/api/list_modules")).To(ContainSubstring("Matrix"))
			Expect(get("/api/progress")).To(Equal("[]\n"))
			Expect(get("/api/trace/topology_changes")).
				To(ContainSubstring(`"total":`))
			Expect(get("/metrics")).To(ContainSubstring("dmabus_frames_total 4"))
		})
	})
})
