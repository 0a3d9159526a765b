package bridge

import (
	"context"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/2025-AI-Capstone/focus/fusion-server/internal/logger"
	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker        string // e.g. tcp://localhost:1883
	ClientID      string
	Username      string
	Password      string
	QoS           byte
	OnStateChange StateHandler
}

// MQTTTransport consumes perception topics through an MQTT broker instead of
// the WebSocket bridge. Retry policy is delegated to the client's built-in
// auto-reconnect; resubscription happens in the OnConnect hook.
type MQTTTransport struct {
	cfg    MQTTConfig
	client mqtt.Client

	mu       sync.Mutex
	state    types.ConnState
	handlers map[string]MessageHandler
	closed   bool
}

// NewMQTTTransport creates an MQTT transport. Connect must be called to
// start the session.
func NewMQTTTransport(cfg MQTTConfig) *MQTTTransport {
	if cfg.ClientID == "" {
		cfg.ClientID = "fusion-server"
	}
	return &MQTTTransport{
		cfg:      cfg,
		state:    types.StateClosed,
		handlers: make(map[string]MessageHandler),
	}
}

// Connect establishes the broker session.
func (t *MQTTTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.setStateLocked(types.StateConnecting)
	t.mu.Unlock()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.cfg.Broker)
	opts.SetClientID(t.cfg.ClientID)
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
	}
	if t.cfg.Password != "" {
		opts.SetPassword(t.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(DefaultReconnectDelay)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(t.onConnect)
	opts.SetConnectionLostHandler(t.onConnectionLost)

	client := mqtt.NewClient(opts)
	t.mu.Lock()
	t.client = client
	t.mu.Unlock()

	// An unreachable broker is not a startup error: the client keeps
	// retrying at the fixed delay, like the WS transport's supervisor.
	token := client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logger.Warn("Bridge", "MQTT connect: %v", token.Error())
		}
	}()
	return nil
}

func (t *MQTTTransport) onConnect(client mqtt.Client) {
	t.mu.Lock()
	t.setStateLocked(types.StateOpen)
	topics := make([]string, 0, len(t.handlers))
	for topic := range t.handlers {
		topics = append(topics, topic)
	}
	t.mu.Unlock()

	logger.Info("Bridge", "Connected to MQTT broker %s", t.cfg.Broker)
	for _, topic := range topics {
		t.subscribeTopic(client, topic)
	}
}

func (t *MQTTTransport) onConnectionLost(_ mqtt.Client, err error) {
	logger.Warn("Bridge", "MQTT connection lost: %v", err)
	t.mu.Lock()
	if !t.closed {
		t.setStateLocked(types.StateReconnecting)
	}
	t.mu.Unlock()
}

func (t *MQTTTransport) subscribeTopic(client mqtt.Client, topic string) {
	token := client.Subscribe(topic, t.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		if h := t.handlerFor(msg.Topic()); h != nil {
			h(msg.Topic(), msg.Payload())
		}
	})
	if token.Wait() && token.Error() != nil {
		logger.Error("Bridge", "Subscribe to %s failed: %v", topic, token.Error())
	}
}

func (t *MQTTTransport) handlerFor(topic string) MessageHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handlers[topic]
}

// Subscribe registers a handler and subscribes on the broker when connected.
func (t *MQTTTransport) Subscribe(topic string, handler MessageHandler) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.handlers[topic] = handler
	client := t.client
	connected := client != nil && client.IsConnected()
	t.mu.Unlock()

	if connected {
		t.subscribeTopic(client, topic)
	}
	return nil
}

// Unsubscribe removes a topic handler. Safe to call repeatedly and after
// the session has closed.
func (t *MQTTTransport) Unsubscribe(topic string) error {
	t.mu.Lock()
	_, known := t.handlers[topic]
	delete(t.handlers, topic)
	client := t.client
	connected := !t.closed && client != nil && client.IsConnected()
	t.mu.Unlock()

	if known && connected {
		if token := client.Unsubscribe(topic); token.Wait() && token.Error() != nil {
			logger.Debug("Bridge", "Unsubscribe %s failed: %v", topic, token.Error())
		}
	}
	return nil
}

// State returns the current lifecycle state.
func (t *MQTTTransport) State() types.ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close disconnects from the broker. Idempotent.
func (t *MQTTTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	client := t.client
	t.setStateLocked(types.StateClosed)
	t.mu.Unlock()

	// Disconnect also stops a connect-retry loop that never reached the
	// broker.
	if client != nil {
		client.Disconnect(250)
	}
	return nil
}

func (t *MQTTTransport) setStateLocked(state types.ConnState) {
	if t.state == state {
		return
	}
	t.state = state
	if t.cfg.OnStateChange != nil {
		go t.cfg.OnStateChange(state)
	}
}
