package webmonitor

import (
	"sync"
	"time"

	"github.com/2025-AI-Capstone/focus/fusion-server/internal/logger"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/metrics"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/overlay"
	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// SnapshotSource provides the latest fused state for rendering.
type SnapshotSource interface {
	Snapshot() types.Snapshot
}

// OverlayBroadcaster composites annotated frames on a paint tick and fans
// them out to stream clients. Each tick reads the latest snapshot; slow
// clients skip frames rather than stall the loop.
type OverlayBroadcaster struct {
	source   SnapshotSource
	comp     *overlay.Compositor
	interval time.Duration
	m        *metrics.Metrics

	mu      sync.Mutex
	clients map[int]chan []byte
	nextID  int
	stop    chan struct{}
	stopped bool
}

// NewOverlayBroadcaster creates a broadcaster painting at the given rate.
// The metrics argument may be nil.
func NewOverlayBroadcaster(source SnapshotSource, comp *overlay.Compositor, paintFPS int, m *metrics.Metrics) *OverlayBroadcaster {
	if paintFPS <= 0 {
		paintFPS = DefaultConfig().PaintFPS
	}
	return &OverlayBroadcaster{
		source:   source,
		comp:     comp,
		interval: time.Second / time.Duration(paintFPS),
		m:        m,
		clients:  make(map[int]chan []byte),
		stop:     make(chan struct{}),
	}
}

// Subscribe adds a client and returns a channel of composited JPEG frames.
func (b *OverlayBroadcaster) Subscribe() (int, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []byte, 2) // Buffer 2 frames to avoid blocking
	b.clients[id] = ch

	if b.m != nil {
		b.m.ActiveClients.Store(uint64(len(b.clients)))
		b.m.TotalClients.Add(1)
	}
	logger.Debug("Broadcaster", "Client #%d subscribed (total clients: %d)", id, len(b.clients))
	return id, ch
}

// Unsubscribe removes a client. Idempotent.
func (b *OverlayBroadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		if b.m != nil {
			b.m.ActiveClients.Store(uint64(len(b.clients)))
		}
		logger.Debug("Broadcaster", "Client #%d unsubscribed (remaining clients: %d)", id, len(b.clients))
	}
}

// Start begins the paint loop.
func (b *OverlayBroadcaster) Start() {
	go b.run()
}

// Stop halts the paint loop. Idempotent.
func (b *OverlayBroadcaster) Stop() {
	b.mu.Lock()
	if !b.stopped {
		close(b.stop)
		b.stopped = true
	}
	b.mu.Unlock()
}

func (b *OverlayBroadcaster) run() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
		}

		b.mu.Lock()
		clientCount := len(b.clients)
		b.mu.Unlock()
		if clientCount == 0 {
			// Nobody watching, skip compositing entirely.
			continue
		}

		frame, err := b.comp.Compose(b.source.Snapshot())
		if err != nil {
			logger.Warn("Broadcaster", "Compose failed: %v", err)
			continue
		}
		if b.m != nil {
			b.m.FramesComposited.Add(1)
		}
		b.broadcast(frame)
	}
}

func (b *OverlayBroadcaster) broadcast(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.clients {
		select {
		case ch <- frame:
		default:
			// Client too slow, skip this frame for this client
			if b.m != nil {
				b.m.FramesDropped.Add(1)
			}
		}
	}
}
