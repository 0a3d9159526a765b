package fusion

import (
	"context"
	"sync"
	"time"

	"github.com/2025-AI-Capstone/focus/fusion-server/internal/bridge"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/logger"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/metrics"
	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// Topics names the bridge channels the engine consumes.
type Topics struct {
	Combined  string // Combined dashboard envelope
	Image     string // Legacy: base64 JPEG frames
	BBoxes    string // Legacy: detector boxes
	Keypoints string // Legacy: per-person keypoint triples
	Fall      string // Legacy: raw fall flag
}

// DefaultTopics returns the appliance's published topic names.
func DefaultTopics() Topics {
	return Topics{
		Combined:  "/dashboard/data",
		Image:     "/camera/image/compressed",
		BBoxes:    "/detection/bboxes",
		Keypoints: "/pose/keypoints",
		Fall:      "/fall_detection/flag",
	}
}

// Config configures the fusion engine.
type Config struct {
	Topics   Topics
	Legacy   bool          // Subscribe the per-topic variant instead of the combined topic
	FallHold time.Duration // Alert hold duration; 0 means DefaultFallHold
}

// Engine is the long-lived session object tying the bridge to the fused
// state: it owns the transport, the topic subscriptions, the fusion state,
// the fall debouncer and the FPS estimator for one mounted session.
type Engine struct {
	cfg       Config
	transport bridge.Transport
	registry  *bridge.Registry
	state     *State
	debouncer *FallDebouncer
	fps       *FPSEstimator
	m         *metrics.Metrics

	mu        sync.Mutex
	subs      []*bridge.Subscription
	closeOnce sync.Once
}

// NewEngine creates an engine over the given transport. The metrics argument
// may be nil.
func NewEngine(cfg Config, tr bridge.Transport, m *metrics.Metrics) *Engine {
	if cfg.Topics == (Topics{}) {
		cfg.Topics = DefaultTopics()
	}
	e := &Engine{
		cfg:       cfg,
		transport: tr,
		registry:  bridge.NewRegistry(tr, m),
		state:     NewState(),
		fps:       NewFPSEstimator(),
		m:         m,
	}
	e.debouncer = NewFallDebouncer(cfg.FallHold, e.onFallChange)
	return e
}

// Start subscribes the configured topics and connects the transport.
func (e *Engine) Start(ctx context.Context) error {
	topics := []string{e.cfg.Topics.Combined}
	if e.cfg.Legacy {
		topics = []string{
			e.cfg.Topics.Image,
			e.cfg.Topics.BBoxes,
			e.cfg.Topics.Keypoints,
			e.cfg.Topics.Fall,
		}
	}

	for _, topic := range topics {
		sub, err := e.registry.Subscribe(topic, e.apply)
		if err != nil {
			e.Close()
			return err
		}
		e.mu.Lock()
		e.subs = append(e.subs, sub)
		e.mu.Unlock()
	}

	logger.Info("Engine", "Subscribed %d topic(s), connecting...", len(topics))
	return e.transport.Connect(ctx)
}

// apply is the single update path into the fused state. It runs on the
// transport's delivery goroutine, so updates land in receipt order.
func (e *Engine) apply(u types.Update) {
	e.state.Apply(u)
	e.fps.FrameArrived()
	if u.FallSignal != nil {
		e.debouncer.Observe(*u.FallSignal)
	}

	if e.m != nil {
		e.m.UpdatesApplied.Add(1)
		if u.Image != nil {
			e.m.ImageFrames.Add(1)
		}
		if u.Poses != nil {
			e.m.PersonCount.Store(uint64(len(u.Poses)))
		}
		e.m.CurrentFPS.Store(uint64(e.fps.Value()))
	}
}

func (e *Engine) onFallChange(active bool) {
	if active {
		logger.Warn("Engine", "Fall detected, alert raised")
	} else {
		logger.Info("Engine", "Fall alert cleared")
	}
	if e.m != nil {
		if active {
			e.m.FallEvents.Add(1)
		}
		metrics.SetBool(&e.m.FallAlertActive, active)
	}
}

// OnConnState tracks transport lifecycle transitions; wire it as the
// transport's state observer.
func (e *Engine) OnConnState(s types.ConnState) {
	logger.Info("Engine", "Bridge state: %s", s)
	if e.m != nil {
		metrics.SetBool(&e.m.ConnectionOpen, s == types.StateOpen)
		if s == types.StateReconnecting {
			e.m.Reconnects.Add(1)
		}
	}
}

// Snapshot returns a consistent view of the fused state for rendering.
func (e *Engine) Snapshot() types.Snapshot {
	return types.Snapshot{
		Frame:      e.state.Frame(),
		FallActive: e.debouncer.Active(),
		FPS:        e.fps.Value(),
		ConnState:  e.transport.State(),
	}
}

// Close tears the session down in order: cancel subscriptions, close the
// connection, stop the hold timer. Idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		subs := e.subs
		e.subs = nil
		e.mu.Unlock()

		for _, sub := range subs {
			sub.Cancel()
		}
		if err := e.transport.Close(); err != nil {
			logger.Debug("Engine", "Transport close: %v", err)
		}
		e.debouncer.Stop()
	})
	return nil
}
