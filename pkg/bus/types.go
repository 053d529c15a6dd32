package bus

import (
	"time"
)

// EventType labels a bus event. The strings go straight onto the
// websocket wire.
type EventType string

const (
	// EventStatus: the connection state changed.
	EventStatus EventType = "status"
	// EventQR: a new pairing challenge was rendered.
	EventQR EventType = "qr"
	// EventMessageIn: a live inbound message was buffered.
	EventMessageIn EventType = "message_in"
	// EventMessageOut: an outbound message was accepted by the protocol.
	EventMessageOut EventType = "message_out"
)

// Event is one observed bridge event.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Time    time.Time   `json:"time"`
}

// StatusEvent mirrors the controller snapshot.
type StatusEvent struct {
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Terminal bool   `json:"terminal"`
	Notice   string `json:"notice,omitempty"`
}

// QREvent carries a rendered pairing challenge in both forms a
// browser consumer can embed directly.
type QREvent struct {
	DataURI string `json:"data_uri"`
	SVG     string `json:"svg"`
}

// OutboundEvent records an accepted send.
type OutboundEvent struct {
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
}
