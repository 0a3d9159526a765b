package bridge

import (
	"sync"

	"github.com/2025-AI-Capstone/focus/fusion-server/internal/logger"
	"github.com/2025-AI-Capstone/focus/fusion-server/internal/metrics"
	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// UpdateHandler receives decoded frame updates for a subscription.
type UpdateHandler func(u types.Update)

// Registry routes incoming bridge messages to decoders by topic name. One
// transport topic may back multiple logical subscriptions; the transport is
// only told about a topic on its first subscription and released on its last.
type Registry struct {
	tr Transport
	m  *metrics.Metrics

	mu     sync.Mutex
	subs   map[int]*Subscription
	byTop  map[string][]*Subscription
	nextID int
}

// Subscription is a handle returned by Subscribe. Cancel is idempotent.
type Subscription struct {
	id      int
	topic   string
	decoder Decoder
	handler UpdateHandler
	reg     *Registry

	mu        sync.Mutex
	cancelled bool
}

// Topic returns the topic this subscription listens on.
func (s *Subscription) Topic() string { return s.topic }

// Cancel removes the subscription. Safe to call multiple times and after
// the underlying connection has closed.
func (s *Subscription) Cancel() {
	s.reg.Unsubscribe(s)
}

// NewRegistry creates a registry over the given transport. The metrics
// argument may be nil.
func NewRegistry(tr Transport, m *metrics.Metrics) *Registry {
	return &Registry{
		tr:    tr,
		m:     m,
		subs:  make(map[int]*Subscription),
		byTop: make(map[string][]*Subscription),
	}
}

// Subscribe registers interest in a topic. The decode strategy is chosen
// here, once, by topic name.
func (r *Registry) Subscribe(topic string, handler UpdateHandler) (*Subscription, error) {
	sub := &Subscription{
		topic:   topic,
		decoder: DecoderForTopic(topic),
		handler: handler,
		reg:     r,
	}

	r.mu.Lock()
	sub.id = r.nextID
	r.nextID++
	r.subs[sub.id] = sub
	first := len(r.byTop[topic]) == 0
	r.byTop[topic] = append(r.byTop[topic], sub)
	r.mu.Unlock()

	if first {
		if err := r.tr.Subscribe(topic, r.handleMessage); err != nil {
			r.Unsubscribe(sub)
			return nil, err
		}
	}

	logger.Debug("Registry", "Subscribed #%d to %s", sub.id, topic)
	return sub, nil
}

// Unsubscribe removes a subscription. Idempotent; safe after transport close.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.mu.Lock()
	if sub.cancelled {
		sub.mu.Unlock()
		return
	}
	sub.cancelled = true
	sub.mu.Unlock()

	r.mu.Lock()
	delete(r.subs, sub.id)
	remaining := r.byTop[sub.topic][:0]
	for _, s := range r.byTop[sub.topic] {
		if s != sub {
			remaining = append(remaining, s)
		}
	}
	r.byTop[sub.topic] = remaining
	last := len(remaining) == 0
	if last {
		delete(r.byTop, sub.topic)
	}
	r.mu.Unlock()

	if last {
		if err := r.tr.Unsubscribe(sub.topic); err != nil && err != ErrClosed {
			logger.Debug("Registry", "Transport unsubscribe %s: %v", sub.topic, err)
		}
	}
}

// handleMessage decodes one raw message and fans the update out to the
// topic's subscriptions. Decode failures drop the message; they never
// propagate.
func (r *Registry) handleMessage(topic string, payload []byte) {
	if r.m != nil {
		r.m.MessagesReceived.Add(1)
	}

	r.mu.Lock()
	subs := append([]*Subscription(nil), r.byTop[topic]...)
	r.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	u, err := subs[0].decoder(payload)
	if err != nil {
		if r.m != nil {
			r.m.DecodeErrors.Add(1)
		}
		logger.Warn("Registry", "Dropped message on %s: %v", topic, err)
		return
	}

	for _, sub := range subs {
		sub.handler(u)
	}
}
