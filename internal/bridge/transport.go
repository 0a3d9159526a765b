package bridge

import (
	"context"
	"errors"

	"github.com/2025-AI-Capstone/focus/fusion-server/pkg/types"
)

// ErrClosed is returned when an operation is attempted on a torn-down transport.
var ErrClosed = errors.New("bridge: transport closed")

// MessageHandler processes one raw message from a topic.
type MessageHandler func(topic string, payload []byte)

// StateHandler observes connection lifecycle transitions.
type StateHandler func(state types.ConnState)

// Transport is one persistent duplex session to the perception bridge.
//
// Connect begins the session and hands it to the transport's own supervision:
// dial failures and dropped connections are retried internally and never
// surfaced as fatal errors. Close is idempotent and cancels any pending
// retry.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(topic string, handler MessageHandler) error
	Unsubscribe(topic string) error
	State() types.ConnState
	Close() error
}
