// Package monitoring turns a running rack into a web server that can be
// inspected and edited while frames are being processed.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/sparkette/dmabus/datarecording"
	"github.com/sparkette/dmabus/modules"
	"github.com/sparkette/dmabus/monitoring/web"
	"github.com/sparkette/dmabus/rack"
	"github.com/sparkette/dmabus/tracing"
	"github.com/syifan/goseth"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Monitor can turn a rack into a server and allows external monitoring and
// editing of the rack.
type Monitor struct {
	rack    *rack.Rack
	factory *modules.Factory
	reader  datarecording.DataReader
	metrics *Metrics

	portNumber      int
	profileDuration time.Duration
	server          *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:         NewMetrics(),
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		Logger().Warn("monitor port not allowed, using a random port",
			zap.Int("port", portNumber))
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterRack registers the rack to monitor. The monitor's metrics are
// attached to the rack as a hook.
func (m *Monitor) RegisterRack(r *rack.Rack) {
	m.rack = r
	r.AcceptHook(m.metrics)
	r.Inspect(func() { m.metrics.Modules.Set(float64(r.Len())) })
}

// RegisterFactory registers the factory used to create inserted modules.
func (m *Monitor) RegisterFactory(f *modules.Factory) {
	m.factory = f
}

// RegisterDataReader registers the reader that serves recorded traces.
func (m *Monitor) RegisterDataReader(r datarecording.DataReader) {
	r.MapTable(tracing.WriteTableName, tracing.WriteEntry{})
	r.MapTable(tracing.TopologyTableName, tracing.TopologyEntry{})
	m.reader = r
}

// Metrics returns the metrics the monitor exposes. Accept them as a hook on
// modules whose writes should be counted.
func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the HTTP handler that serves the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseRack)
	r.HandleFunc("/api/continue", m.continueRack)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_modules", m.listModules)
	r.HandleFunc("/api/module/{name}", m.moduleDetails)
	r.HandleFunc("/api/status/{name}", m.moduleStatus)
	r.HandleFunc("/api/edit/insert", m.insertModule).Methods(http.MethodPost)
	r.HandleFunc("/api/edit/remove/{name}", m.removeModule).
		Methods(http.MethodPost)
	r.HandleFunc("/api/edit/move/{name}", m.moveModule).
		Methods(http.MethodPost)
	r.HandleFunc("/api/kinds", m.listKinds)
	r.HandleFunc("/api/trace/{table}", m.queryTrace)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(
		m.metrics.Registry(), promhttp.HandlerOpts{}))
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() (int, error) {
	addr := ":" + strconv.Itoa(m.portNumber)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("starting monitor: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(os.Stderr,
		"Monitoring rack with http://localhost:%d\n", port)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger().Error("monitor stopped", zap.Error(err))
		}
	}()

	return port, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pauseRack(w http.ResponseWriter, _ *http.Request) {
	m.rack.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueRack(w http.ResponseWriter, _ *http.Request) {
	m.rack.Continue()
	w.WriteHeader(http.StatusOK)
}

type nowRsp struct {
	Frame      uint64  `json:"frame"`
	Paused     bool    `json:"paused"`
	SampleRate float64 `json:"sample_rate"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, nowRsp{
		Frame:      m.rack.Frame(),
		Paused:     m.rack.Paused(),
		SampleRate: float64(m.rack.SampleRate()),
	})
}

type moduleRsp struct {
	Name              string `json:"name"`
	Handle            string `json:"handle"`
	Position          int    `json:"position"`
	HostFound         bool   `json:"host_found"`
	Ready             bool   `json:"ready"`
	ClientAttached    bool   `json:"client_attached"`
	DisplayedChannels int    `json:"displayed_channels"`
}

func describeModule(position int, h rack.Handle, mod rack.Module) moduleRsp {
	ind := mod.Indicators()

	return moduleRsp{
		Name:              mod.Name(),
		Handle:            h.String(),
		Position:          position,
		HostFound:         ind.HostFound,
		Ready:             ind.Ready,
		ClientAttached:    ind.ClientAttached,
		DisplayedChannels: ind.DisplayedChannels,
	}
}

func (m *Monitor) listModules(w http.ResponseWriter, _ *http.Request) {
	var rsp []moduleRsp

	m.rack.Inspect(func() {
		handles := m.rack.Modules()
		rsp = make([]moduleRsp, 0, len(handles))

		for i, h := range handles {
			mod, err := m.rack.Resolve(h)
			if err != nil {
				continue
			}

			rsp = append(rsp, describeModule(i, h, mod))
		}
	})

	writeJSON(w, rsp)
}

func (m *Monitor) moduleStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var (
		rsp   moduleRsp
		found bool
	)

	m.rack.Inspect(func() {
		h, mod, ok := m.findModule(name)
		if !ok {
			return
		}

		pos, _ := m.rack.Position(h)
		rsp = describeModule(pos, h, mod)
		found = true
	})

	if !found {
		httpError(w, http.StatusNotFound, "module %q not found", name)
		return
	}

	writeJSON(w, rsp)
}

func (m *Monitor) moduleDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	buf := bytes.NewBuffer(nil)
	found := false

	var err error

	m.rack.Inspect(func() {
		_, mod, ok := m.findModule(name)
		if !ok {
			return
		}

		found = true

		serializer := goseth.NewSerializer()
		serializer.SetRoot(mod)
		serializer.SetMaxDepth(1)
		err = serializer.Serialize(buf)
	})

	if !found {
		httpError(w, http.StatusNotFound, "module %q not found", name)
		return
	}

	if err != nil {
		httpError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

// findModule must be called from Inspect.
func (m *Monitor) findModule(name string) (rack.Handle, rack.Module, bool) {
	h, ok := m.rack.Lookup(name)
	if !ok {
		return rack.Handle{}, nil, false
	}

	mod, err := m.rack.Resolve(h)
	if err != nil {
		return rack.Handle{}, nil, false
	}

	return h, mod, true
}

type insertReq struct {
	Kind     string         `json:"kind"`
	Name     string         `json:"name"`
	Position *int           `json:"position,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

type editRsp struct {
	Handle   string `json:"handle"`
	Position int    `json:"position"`
}

func (m *Monitor) insertModule(w http.ResponseWriter, r *http.Request) {
	if m.factory == nil {
		httpError(w, http.StatusNotImplemented, "no module factory registered")
		return
	}

	req := insertReq{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "decoding request: %v", err)
		return
	}

	var params *yaml.Node
	if req.Params != nil {
		params = new(yaml.Node)
		if err := params.Encode(req.Params); err != nil {
			httpError(w, http.StatusBadRequest, "encoding params: %v", err)
			return
		}
	}

	mod, err := m.factory.Create(req.Kind, req.Name, params)
	if err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}

	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	if position < 0 {
		m.rack.Inspect(func() { position = m.rack.Len() })
	}

	m.applyEdit(w, rack.Insert{Position: position, Module: mod})
}

func (m *Monitor) removeModule(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	h, ok := m.lookup(name)
	if !ok {
		httpError(w, http.StatusNotFound, "module %q not found", name)
		return
	}

	m.applyEdit(w, rack.Remove{Handle: h})
}

func (m *Monitor) moveModule(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	position, err := strconv.Atoi(r.URL.Query().Get("position"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid position: %v", err)
		return
	}

	h, ok := m.lookup(name)
	if !ok {
		httpError(w, http.StatusNotFound, "module %q not found", name)
		return
	}

	m.applyEdit(w, rack.Move{Handle: h, Position: position})
}

func (m *Monitor) lookup(name string) (h rack.Handle, ok bool) {
	m.rack.Inspect(func() { h, ok = m.rack.Lookup(name) })
	return h, ok
}

// applyEdit submits an edit and applies it between two frames, so a running
// rack never sees a half-done topology.
func (m *Monitor) applyEdit(w http.ResponseWriter, e rack.Edit) {
	done := m.rack.Submit(e)
	m.rack.ApplyPending()
	res := <-done

	switch {
	case errors.Is(res.Err, rack.ErrStaleHandle):
		httpError(w, http.StatusNotFound, "%v", res.Err)
		return
	case res.Err != nil:
		httpError(w, http.StatusBadRequest, "%v", res.Err)
		return
	}

	Logger().Info("rack edited",
		zap.String("edit", fmt.Sprintf("%T", e)),
		zap.Stringer("handle", res.Handle))

	rsp := editRsp{Handle: res.Handle.String(), Position: -1}
	m.rack.Inspect(func() {
		if pos, err := m.rack.Position(res.Handle); err == nil {
			rsp.Position = pos
		}
	})

	writeJSON(w, rsp)
}

func (m *Monitor) listKinds(w http.ResponseWriter, _ *http.Request) {
	if m.factory == nil {
		writeJSON(w, []string{})
		return
	}

	writeJSON(w, m.factory.Kinds())
}

type traceRsp struct {
	Total   int   `json:"total"`
	Entries []any `json:"entries"`
}

func (m *Monitor) queryTrace(w http.ResponseWriter, r *http.Request) {
	if m.reader == nil {
		httpError(w, http.StatusNotImplemented, "no trace reader registered")
		return
	}

	table := mux.Vars(r)["table"]
	query := r.URL.Query()

	params := datarecording.QueryParams{OrderBy: "Frame"}
	if module := query.Get("module"); module != "" {
		params.Where = "Module = ?"
		params.Args = []any{module}
	}

	var err error

	if v := query.Get("limit"); v != "" {
		if params.Limit, err = strconv.Atoi(v); err != nil {
			httpError(w, http.StatusBadRequest, "invalid limit: %v", err)
			return
		}
	}

	if v := query.Get("offset"); v != "" {
		if params.Offset, err = strconv.Atoi(v); err != nil {
			httpError(w, http.StatusBadRequest, "invalid offset: %v", err)
			return
		}
	}

	entries, total, err := m.reader.Query(r.Context(), table, params)
	if err != nil {
		httpError(w, http.StatusBadRequest, "%v", err)
		return
	}

	if entries == nil {
		entries = []any{}
	}

	writeJSON(w, traceRsp{Total: total, Entries: entries})
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := m.progressBars
	if bars == nil {
		bars = []*ProgressBar{}
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		httpError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		httpError(w, http.StatusConflict, "%v", err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger().Error("writing response", zap.Error(err))
	}
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	http.Error(w, fmt.Sprintf(format, args...), code)
}
