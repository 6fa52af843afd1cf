package instrumentation

import (
	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/hooking"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsHook counts link events in prometheus metrics.
type MetricsHook struct {
	events *prometheus.CounterVec
	bytes  prometheus.Counter
}

// NewMetricsHook creates a MetricsHook and registers its metrics.
func NewMetricsHook(reg prometheus.Registerer) *MetricsHook {
	h := &MetricsHook{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshsim",
			Name:      "link_events_total",
			Help:      "Adapter events handled by links.",
		}, []string{"kind", "outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshsim",
			Name:      "link_bytes_delivered_total",
			Help:      "Payload bytes delivered over links.",
		}),
	}

	reg.MustRegister(h.events, h.bytes)

	return h
}

// Func counts the handled adapter event.
func (h *MetricsHook) Func(ctx hooking.HookCtx) {
	_, evt, outcome, ok := linkEvent(ctx)
	if !ok {
		return
	}

	h.events.WithLabelValues(bluetooth.EventKind(evt), string(outcome)).Inc()

	if n := deliveredBytes(evt, outcome); n > 0 {
		h.bytes.Add(float64(n))
	}
}
