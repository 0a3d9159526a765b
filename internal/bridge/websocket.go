package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2025-AI-Capstone/focus/fusion-server/internal/logger"
	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// WSConfig configures the WebSocket transport.
type WSConfig struct {
	Endpoint       string        // Bridge endpoint, e.g. ws://localhost:8080
	DefaultTopic   string        // Topic assigned to bare (non-envelope) messages
	ReconnectDelay time.Duration // Fixed retry delay; 0 means DefaultReconnectDelay
	DialTimeout    time.Duration // Per-attempt dial timeout
	OnStateChange  StateHandler  // Optional lifecycle observer
}

// wireEnvelope is the bridge's subscribe/publish envelope. Older bridge
// builds push the combined payload without any envelope; those messages are
// delivered under DefaultTopic.
type wireEnvelope struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}

// WSTransport is the WebSocket session to the perception bridge.
type WSTransport struct {
	cfg WSConfig
	sup *supervisor

	mu       sync.Mutex
	conn     *websocket.Conn
	state    types.ConnState
	handlers map[string]MessageHandler
	closed   bool
	ctx      context.Context

	writeMu sync.Mutex
}

// NewWSTransport creates a WebSocket transport. Connect must be called to
// start the session.
func NewWSTransport(cfg WSConfig) *WSTransport {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &WSTransport{
		cfg:      cfg,
		sup:      newSupervisor(cfg.ReconnectDelay),
		state:    types.StateClosed,
		handlers: make(map[string]MessageHandler),
	}
}

// Connect dials the bridge and starts supervision. A failed first dial is
// not an error: the retry timer takes over, like every later disconnect.
func (t *WSTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.ctx = ctx
	t.setStateLocked(types.StateConnecting)
	t.mu.Unlock()

	if err := t.dial(); err != nil {
		logger.Warn("Bridge", "Initial dial failed: %v", err)
		t.scheduleRetry()
	}
	return nil
}

func (t *WSTransport) dial() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	ctx := t.ctx
	t.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: t.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, t.cfg.Endpoint, nil)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	t.conn = conn
	t.setStateLocked(types.StateOpen)
	topics := make([]string, 0, len(t.handlers))
	for topic := range t.handlers {
		topics = append(topics, topic)
	}
	t.mu.Unlock()

	logger.Info("Bridge", "Connected to %s", t.cfg.Endpoint)

	// Subscriptions only exist while the connection is open; re-declare
	// them after every (re)connect.
	for _, topic := range topics {
		t.sendEnvelope(wireEnvelope{Op: "subscribe", Topic: topic})
	}

	go t.readLoop(conn)
	return nil
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.handleDisconnect(conn, err)
			return
		}
		t.dispatch(payload)
	}
}

// dispatch routes one raw message. Envelope publishes go to their topic's
// handler; bare payloads go to the default topic. Unroutable messages are
// dropped.
func (t *WSTransport) dispatch(payload []byte) {
	var env wireEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Op == "publish" && env.Topic != "" {
		if h := t.handlerFor(env.Topic); h != nil {
			h(env.Topic, env.Msg)
		} else {
			logger.Debug("Bridge", "No subscription for topic %s, message dropped", env.Topic)
		}
		return
	}
	if h := t.handlerFor(t.cfg.DefaultTopic); h != nil {
		h(t.cfg.DefaultTopic, payload)
	}
}

func (t *WSTransport) handlerFor(topic string) MessageHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers[topic]
}

func (t *WSTransport) handleDisconnect(conn *websocket.Conn, err error) {
	t.mu.Lock()
	if t.closed || t.conn != conn {
		// Already torn down, or a newer connection replaced this one.
		t.mu.Unlock()
		return
	}
	_ = conn.Close()
	t.conn = nil
	t.mu.Unlock()

	logger.Warn("Bridge", "Connection lost: %v", err)
	t.scheduleRetry()
}

func (t *WSTransport) scheduleRetry() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.setStateLocked(types.StateReconnecting)
	t.mu.Unlock()

	t.sup.schedule(func() {
		if err := t.dial(); err != nil {
			if err == ErrClosed {
				return
			}
			logger.Warn("Bridge", "Reconnect failed: %v", err)
			t.scheduleRetry()
		}
	})
}

// Subscribe registers a handler for a topic and declares it to the bridge
// if the connection is currently open.
func (t *WSTransport) Subscribe(topic string, handler MessageHandler) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.handlers[topic] = handler
	open := t.state == types.StateOpen
	t.mu.Unlock()

	if open {
		t.sendEnvelope(wireEnvelope{Op: "subscribe", Topic: topic})
	}
	return nil
}

// Unsubscribe removes a topic handler. Safe to call repeatedly and after
// the connection has already closed.
func (t *WSTransport) Unsubscribe(topic string) error {
	t.mu.Lock()
	_, known := t.handlers[topic]
	delete(t.handlers, topic)
	open := !t.closed && t.state == types.StateOpen
	t.mu.Unlock()

	if known && open {
		t.sendEnvelope(wireEnvelope{Op: "unsubscribe", Topic: topic})
	}
	return nil
}

func (t *WSTransport) sendEnvelope(env wireEnvelope) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.WriteJSON(env); err != nil {
		logger.Debug("Bridge", "Write %s %s failed: %v", env.Op, env.Topic, err)
	}
}

// State returns the current lifecycle state.
func (t *WSTransport) State() types.ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Retries returns the number of reconnection attempts scheduled so far.
func (t *WSTransport) Retries() uint64 {
	return t.sup.retries()
}

// Close tears the session down: cancels any pending retry and closes the
// socket. Idempotent.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.setStateLocked(types.StateClosed)
	t.mu.Unlock()

	t.sup.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	return nil
}

// setStateLocked updates the state and notifies the observer. Caller holds mu.
func (t *WSTransport) setStateLocked(state types.ConnState) {
	if t.state == state {
		return
	}
	t.state = state
	if t.cfg.OnStateChange != nil {
		// Notify without holding mu so observers may call back in.
		go t.cfg.OnStateChange(state)
	}
}
