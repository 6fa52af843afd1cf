// Package monitoring serves the state of a running simulation over HTTP and
// lets users pause and continue it.
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

	// Enable profiling
	_ "net/http/pprof"

	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/id"
	"github.com/campfirenet/meshsim/monitoring/web"
	"github.com/campfirenet/meshsim/simulation"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"
)

// A Controller drives the simulation clock.
type Controller interface {
	Pause()
	Continue()
	IsPaused() bool
	Now() time.Duration
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	sim        *simulation.Simulation
	controller Controller
	gatherer   prometheus.Gatherer
	portNumber int
	logger     *zap.Logger
	idGen      id.Generator

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		gatherer: prometheus.DefaultGatherer,
		logger:   zap.NewNop(),
		idGen:    id.NewSequentialGenerator("progress-"),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("port not allowed for monitoring, using a random port",
			zap.Int("port", portNumber))

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *zap.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterSimulation registers the simulation to be monitored.
func (m *Monitor) RegisterSimulation(s *simulation.Simulation) {
	m.sim = s
}

// RegisterController registers what pauses and continues the simulation.
func (m *Monitor) RegisterController(c Controller) {
	m.controller = c
}

// RegisterGatherer sets where /metrics reads the metrics from.
func (m *Monitor) RegisterGatherer(g prometheus.Gatherer) {
	m.gatherer = g
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGen.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

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

// Router returns the handler of all monitoring routes.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.resume)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/agents", m.listAgents)
	r.HandleFunc("/api/agent/{id}", m.agentDetails)
	r.HandleFunc("/api/links", m.listLinks)
	r.HandleFunc("/api/snapshot", m.snapshot)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info("monitoring simulation", zap.String("url", url))

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitoring server stopped", zap.Error(err))
		}
	}()

	return url, nil
}

// OpenBrowser opens the monitoring page in the default browser.
func (m *Monitor) OpenBrowser(url string) {
	browser.Stdout = os.Stderr
	if err := browser.OpenURL(url); err != nil {
		m.logger.Warn("cannot open browser", zap.Error(err))
	}
}

// Shutdown stops the server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	if !m.controllerOr503(w) {
		return
	}

	m.controller.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) resume(w http.ResponseWriter, _ *http.Request) {
	if !m.controllerOr503(w) {
		return
	}

	m.controller.Continue()
	w.WriteHeader(http.StatusOK)
}

type nowRsp struct {
	Now    float64 `json:"now"`
	Paused bool    `json:"paused"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if !m.controllerOr503(w) {
		return
	}

	m.writeJSON(w, nowRsp{
		Now:    m.controller.Now().Seconds(),
		Paused: m.controller.IsPaused(),
	})
}

func (m *Monitor) listAgents(w http.ResponseWriter, _ *http.Request) {
	if !m.simulationOr503(w) {
		return
	}

	m.writeJSON(w, m.sim.Agents())
}

func (m *Monitor) agentDetails(w http.ResponseWriter, r *http.Request) {
	if !m.simulationOr503(w) {
		return
	}

	agentID := bluetooth.AdapterID(mux.Vars(r)["id"])

	state, found := m.sim.AgentState(agentID)
	if !found {
		http.Error(w, "Agent not found", http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&state)
	serializer.SetMaxDepth(3)

	if err := serializer.Serialize(w); err != nil {
		m.logger.Error("cannot serialize agent", zap.Error(err))
	}
}

func (m *Monitor) listLinks(w http.ResponseWriter, _ *http.Request) {
	if !m.simulationOr503(w) {
		return
	}

	m.writeJSON(w, m.sim.Snapshot().Links)
}

func (m *Monitor) snapshot(w http.ResponseWriter, _ *http.Request) {
	if !m.simulationOr503(w) {
		return
	}

	m.writeJSON(w, m.sim.Snapshot())
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]ProgressBarState, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.State())
	}

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if m.failOn(w, err) {
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if m.failOn(w, err) {
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if m.failOn(w, err) {
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if m.failOn(w, err) {
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if m.failOn(w, err) {
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) controllerOr503(w http.ResponseWriter) bool {
	if m.controller == nil {
		http.Error(w, "No controller registered",
			http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) simulationOr503(w http.ResponseWriter) bool {
	if m.sim == nil {
		http.Error(w, "No simulation registered",
			http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) failOn(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}

	m.logger.Error("monitoring request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)

	return true
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if m.failOn(w, err) {
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		m.logger.Debug("cannot write response", zap.Error(err))
	}
}
