package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Bridge counters
	MessagesReceived atomic.Uint64
	DecodeErrors     atomic.Uint64
	Reconnects       atomic.Uint64

	// Fusion counters
	UpdatesApplied atomic.Uint64
	ImageFrames    atomic.Uint64
	FallEvents     atomic.Uint64

	// Render/stream counters
	FramesComposited atomic.Uint64
	FramesDropped    atomic.Uint64 // Frames skipped for slow stream clients
	ActiveClients    atomic.Uint64
	TotalClients     atomic.Uint64

	// Gauges
	CurrentFPS      atomic.Uint64
	PersonCount     atomic.Uint64
	FallAlertActive atomic.Uint64 // 0 = idle, 1 = alerting
	ConnectionOpen  atomic.Uint64 // 0 = down, 1 = open

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"fusion_bridge_messages_received_total", "Total messages received from the perception bridge", m.MessagesReceived.Load},
		{"fusion_bridge_decode_errors_total", "Total messages dropped due to decode errors", m.DecodeErrors.Load},
		{"fusion_bridge_reconnects_total", "Total bridge reconnection attempts", m.Reconnects.Load},
		{"fusion_updates_applied_total", "Total partial updates applied to the fused frame", m.UpdatesApplied.Load},
		{"fusion_image_frames_total", "Total image frames received", m.ImageFrames.Load},
		{"fusion_fall_events_total", "Total debounced fall alerts raised", m.FallEvents.Load},
		{"fusion_frames_composited_total", "Total overlay frames composited", m.FramesComposited.Load},
		{"fusion_frames_dropped_total", "Total overlay frames dropped for slow clients", m.FramesDropped.Load},
		{"fusion_stream_active_clients", "Number of connected stream clients", m.ActiveClients.Load},
		{"fusion_stream_total_clients", "Total stream clients ever connected", m.TotalClients.Load},
		{"fusion_frames_per_second", "Last published windowed frame rate", m.CurrentFPS.Load},
		{"fusion_person_count", "Number of pose records in the current frame", m.PersonCount.Load},
		{"fusion_fall_alert_active", "Fall alert state (0=idle, 1=alerting)", m.FallAlertActive.Load},
		{"fusion_bridge_connection_open", "Bridge connection state (0=down, 1=open)", m.ConnectionOpen.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// SetBool stores a boolean into a 0/1 gauge counter.
func SetBool(target *atomic.Uint64, value bool) {
	if value {
		target.Store(1)
	} else {
		target.Store(0)
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
