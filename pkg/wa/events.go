package wa

import (
	"context"
	"fmt"

	"github.com/vkick/wabridge/pkg/relay"
)

// ConnectionState is the single authoritative connection value for the
// bridge. The strings are wire-stable, /api/status serves them as-is.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateQRPending    ConnectionState = "qr_pending"
	StateConnected    ConnectionState = "connected"
)

// EventType discriminates the events a Session delivers to the
// controller loop.
type EventType int

const (
	// EventQR carries a fresh pairing challenge. Each one replaces the
	// previous payload, the protocol issues one challenge at a time.
	EventQR EventType = iota
	// EventConnected means the session is authenticated and open.
	EventConnected
	// EventDisconnected means the session closed. LoggedOut tells the
	// controller whether the close is terminal.
	EventDisconnected
	// EventMessage carries one normalized live inbound message.
	EventMessage
	// eventRetry is internal: a backoff timer fired. Timers never touch
	// controller state directly, they re-enter through the loop.
	eventRetry
)

func (t EventType) String() string {
	switch t {
	case EventQR:
		return "qr"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	case eventRetry:
		return "retry"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is one item on the controller's input channel.
type Event struct {
	Type      EventType
	Code      string // EventQR: raw pairing code
	Reason    string // EventDisconnected: human-readable close reason
	LoggedOut bool   // EventDisconnected: explicit logout, terminal
	Message   relay.InboundMessage

	gen int // eventRetry: timer generation, stale timers are dropped
}

// Session is one authenticated protocol connection. The concrete
// implementation wraps a whatsmeow client; tests substitute a fake.
// Implementations deliver lifecycle and message events on Events()
// and must not block the controller loop.
type Session interface {
	// Connect loads credentials and dials asynchronously. An error
	// means the attempt never got off the ground (bad store, no
	// network); outcomes past that arrive as events.
	Connect(ctx context.Context) error
	// Disconnect tears the connection down without logging out.
	Disconnect()
	// Events is the session's event stream. Closed when the session is
	// permanently done.
	Events() <-chan Event
	// SendText delivers a text message and returns the protocol ack id.
	SendText(ctx context.Context, to string, text string) (string, error)
}
