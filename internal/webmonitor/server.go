package webmonitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/2025-AI-Capstone/focus/fusion-server/internal/metrics"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/overlay"
	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// Server serves the monitoring dashboard and stream endpoints.
type Server struct {
	cfg         Config
	source      SnapshotSource
	broadcaster *OverlayBroadcaster
	m           *metrics.Metrics
}

// StatusPayload is the JSON shape served by /api/status and its SSE stream.
type StatusPayload struct {
	ConnState    string  `json:"conn_state"`
	FPS          int     `json:"fps"`
	PersonCount  int     `json:"person_count"`
	BBoxCount    int     `json:"bbox_count"`
	FallActive   bool    `json:"fall_active"`
	FrameAgeSec  float64 `json:"frame_age_sec"`
	Reconnects   uint64  `json:"reconnects"`
	FallEvents   uint64  `json:"fall_events"`
	ClientsTotal uint64  `json:"clients_total"`
	Timestamp    float64 `json:"timestamp"`
}

// NewServer returns a configured monitor server. The broadcaster is not
// started until Start is called.
func NewServer(cfg Config, source SnapshotSource, m *metrics.Metrics) *Server {
	if cfg.PaintFPS <= 0 {
		cfg.PaintFPS = DefaultConfig().PaintFPS
	}
	if cfg.StatusInterval == 0 {
		cfg.StatusInterval = DefaultConfig().StatusInterval
	}
	if cfg.SSEKeepalive == 0 {
		cfg.SSEKeepalive = DefaultConfig().SSEKeepalive
	}

	return &Server{
		cfg:         cfg,
		source:      source,
		broadcaster: NewOverlayBroadcaster(source, overlay.NewCompositor(), cfg.PaintFPS, m),
		m:           m,
	}
}

// Start begins the paint loop behind the MJPEG stream.
func (s *Server) Start() {
	s.broadcaster.Start()
}

// Stop halts the paint loop.
func (s *Server) Stop() {
	s.broadcaster.Stop()
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.cfg.AssetsDir != "" {
		mux.Handle("/assets/", http.StripPrefix("/assets/", newAssetHandler(s.cfg.AssetsDir)))
	}

	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, frameCh := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(id)
	streamMJPEGFromChannel(w, frameCh)
}

func (s *Server) status() StatusPayload {
	snap := s.source.Snapshot()

	payload := StatusPayload{
		ConnState:   snap.ConnState.String(),
		FPS:         snap.FPS,
		PersonCount: snap.PersonCount(),
		BBoxCount:   len(snap.Frame.BoundingBoxes),
		FallActive:  snap.FallActive,
		Timestamp:   float64(time.Now().Unix()),
	}
	if !snap.Frame.ReceivedAt.IsZero() {
		payload.FrameAgeSec = time.Since(snap.Frame.ReceivedAt).Seconds()
	}
	if s.m != nil {
		payload.Reconnects = s.m.Reconnects.Load()
		payload.FallEvents = s.m.FallEvents.Load()
		payload.ClientsTotal = s.m.TotalClients.Load()
	}
	return payload
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := writeSSE(w, s.status()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := writeSSE(w, s.status()); err != nil {
				return
			}
			flusher.Flush()

		case <-time.After(s.cfg.SSEKeepalive):
			// Send keepalive comment to prevent timeout
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	status := http.StatusOK
	if snap.ConnState != types.StateOpen {
		status = http.StatusServiceUnavailable
	}
	writeJSONWithStatus(w, map[string]any{
		"status":     http.StatusText(status),
		"conn_state": snap.ConnState.String(),
	}, status)
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
