package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// Broker-free lifecycle checks; actual session behavior is delegated to the
// paho client.

func TestMQTTTransportLifecycle(t *testing.T) {
	tr := NewMQTTTransport(MQTTConfig{Broker: "tcp://localhost:1883"})

	if err := tr.Subscribe("/dashboard/data", func(string, []byte) {}); err != nil {
		t.Fatalf("Subscribe before connect: %v", err)
	}
	if err := tr.Unsubscribe("/dashboard/data"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := tr.Unsubscribe("/never/subscribed"); err != nil {
		t.Fatalf("Unsubscribe of unknown topic: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := tr.Subscribe("/dashboard/data", func(string, []byte) {}); err != ErrClosed {
		t.Fatalf("Subscribe after Close = %v, want ErrClosed", err)
	}
}

func TestMQTTTransportConnectSurvivesDeadBroker(t *testing.T) {
	tr := NewMQTTTransport(MQTTConfig{Broker: "tcp://127.0.0.1:1"}) // Nothing listens here
	defer tr.Close()

	// A dead broker is not a startup error: Connect hands the session to
	// the client's retry loop and returns.
	done := make(chan error, 1)
	go func() { done <- tr.Connect(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Connect blocked on an unreachable broker")
	}
	if got := tr.State(); got != types.StateConnecting {
		t.Fatalf("state = %s, want connecting", got)
	}
}

func TestMQTTTransportDefaultClientID(t *testing.T) {
	tr := NewMQTTTransport(MQTTConfig{Broker: "tcp://localhost:1883"})
	if tr.cfg.ClientID != "fusion-server" {
		t.Fatalf("client id = %q", tr.cfg.ClientID)
	}
}
