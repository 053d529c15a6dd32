package wa

import (
	"context"
	"sync"
	"time"

	"github.com/vkick/wabridge/pkg/bus"
	"github.com/vkick/wabridge/pkg/logger"
	"github.com/vkick/wabridge/pkg/relay"
)

const (
	// DefaultMaxAttempts bounds automatic reconnects. Once exhausted the
	// bridge stays down until an operator restarts it.
	DefaultMaxAttempts = 10
	// DefaultBaseDelay seeds the exponential backoff.
	DefaultBaseDelay = time.Second
	// DefaultMaxDelay caps the backoff.
	DefaultMaxDelay = 60 * time.Second
)

// ControllerConfig tunes the reconnect policy. Zero values mean the
// defaults above; tests shrink the delays to milliseconds.
type ControllerConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (cfg ControllerConfig) withDefaults() ControllerConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	return cfg
}

// Status is a point-in-time snapshot of the controller for the HTTP
// layer and the websocket stream.
type Status struct {
	State    ConnectionState `json:"status"`
	Attempts int             `json:"attempts"`
	Terminal bool            `json:"terminal"`
	Notice   string          `json:"notice,omitempty"`
}

// Controller owns exactly one Session and keeps the bridge's
// ConnectionState consistent with it. All state writes happen on one
// goroutine consuming typed events; HTTP handlers only read snapshots.
type Controller struct {
	session Session
	buffer  *relay.Buffer
	events  *bus.Bus
	cfg     ControllerConfig

	ctx    context.Context
	cancel context.CancelFunc
	retryc chan Event

	mu           sync.RWMutex
	started      bool
	state        ConnectionState
	qrPNG        string
	qrSVG        string
	attempts     int
	terminal     bool
	notice       string
	timerGen     int
	retryPending bool
}

// NewController wires a controller to its session, relay buffer and
// event bus. Call Start to bring the session up.
func NewController(session Session, buffer *relay.Buffer, events *bus.Bus, cfg ControllerConfig) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		session: session,
		buffer:  buffer,
		events:  events,
		cfg:     cfg.withDefaults(),
		ctx:     ctx,
		cancel:  cancel,
		retryc:  make(chan Event, 1),
		state:   StateDisconnected,
	}
}

// Start spawns the event loop and opens the session. Idempotent and
// non-blocking; repeat calls are no-ops.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run()
}

// Stop tears the session down and ends the event loop.
func (c *Controller) Stop() {
	c.cancel()
}

// State returns the current connection state.
func (c *Controller) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// QR returns the rendered pairing challenge. ok is false outside of
// qr_pending or before the first challenge arrived.
func (c *Controller) QR() (dataURI, svg string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateQRPending || c.qrPNG == "" {
		return "", "", false
	}
	return c.qrPNG, c.qrSVG, true
}

// Attempts returns the current reconnect counter.
func (c *Controller) Attempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts
}

// Snapshot returns the full status for /api handlers and the event
// stream.
func (c *Controller) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		State:    c.state,
		Attempts: c.attempts,
		Terminal: c.terminal,
		Notice:   c.notice,
	}
}

func (c *Controller) run() {
	c.connect()
	for {
		select {
		case <-c.ctx.Done():
			c.session.Disconnect()
			return
		case evt, ok := <-c.session.Events():
			if !ok {
				return
			}
			c.handleEvent(evt)
		case evt := <-c.retryc:
			c.handleEvent(evt)
		}
	}
}

// connect opens the session. Failures before the dial gets off the
// ground (credential store, protocol negotiation) are folded into the
// transient close path rather than crashing anything.
func (c *Controller) connect() {
	logger.InfoCF("lifecycle", "Opening session", map[string]interface{}{
		"attempt": c.Attempts(),
	})
	if err := c.session.Connect(c.ctx); err != nil {
		logger.WarnCF("lifecycle", "Session open failed", map[string]interface{}{
			"error": err.Error(),
		})
		c.handleEvent(Event{Type: EventDisconnected, Reason: err.Error()})
	}
}

func (c *Controller) handleEvent(evt Event) {
	switch evt.Type {
	case EventQR:
		c.handleQR(evt.Code)
	case EventConnected:
		c.handleConnected()
	case EventDisconnected:
		c.handleDisconnected(evt)
	case EventMessage:
		c.handleMessage(evt.Message)
	case eventRetry:
		c.handleRetry(evt.gen)
	}
}

func (c *Controller) handleQR(code string) {
	dataURI, svg, err := RenderQR(code)
	if err != nil {
		logger.ErrorCF("lifecycle", "QR render failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.mu.Lock()
	c.state = StateQRPending
	c.qrPNG = dataURI
	c.qrSVG = svg
	c.mu.Unlock()

	logger.InfoC("lifecycle", "Pairing challenge received, scan required")
	c.events.Publish(bus.Event{Type: bus.EventQR, Payload: bus.QREvent{DataURI: dataURI, SVG: svg}})
	c.publishStatus()
}

func (c *Controller) handleConnected() {
	c.mu.Lock()
	c.state = StateConnected
	c.qrPNG = ""
	c.qrSVG = ""
	c.attempts = 0
	c.terminal = false
	c.notice = ""
	c.timerGen++
	c.retryPending = false
	c.mu.Unlock()

	logger.InfoC("lifecycle", "Session connected")
	c.publishStatus()
}

func (c *Controller) handleDisconnected(evt Event) {
	c.mu.Lock()
	c.state = StateDisconnected
	c.qrPNG = ""
	c.qrSVG = ""

	switch {
	case evt.LoggedOut:
		c.terminal = true
		c.notice = "logged out by the service: wipe the credential store and restart to pair again"
		c.timerGen++
		c.retryPending = false
		c.mu.Unlock()
		logger.ErrorCF("lifecycle", "Session logged out, not reconnecting", map[string]interface{}{
			"reason": evt.Reason,
		})

	case c.retryPending:
		// One failure can surface as several close events; the retry
		// already on the clock covers them all.
		c.mu.Unlock()
		logger.DebugCF("lifecycle", "Close event while reconnect pending", map[string]interface{}{
			"reason": evt.Reason,
		})

	case c.attempts < c.cfg.MaxAttempts:
		c.attempts++
		delay := reconnectDelay(c.attempts, c.cfg.BaseDelay, c.cfg.MaxDelay)
		c.timerGen++
		gen := c.timerGen
		attempt := c.attempts
		c.retryPending = true
		c.mu.Unlock()

		logger.WarnCF("lifecycle", "Session closed, reconnect scheduled", map[string]interface{}{
			"reason":  evt.Reason,
			"attempt": attempt,
			"delay":   delay.String(),
		})
		time.AfterFunc(delay, func() {
			select {
			case c.retryc <- Event{Type: eventRetry, gen: gen}:
			case <-c.ctx.Done():
			}
		})

	default:
		c.terminal = true
		c.notice = "reconnect attempts exhausted: restart the bridge to try again"
		c.timerGen++
		c.retryPending = false
		c.mu.Unlock()
		logger.ErrorCF("lifecycle", "Reconnect attempts exhausted", map[string]interface{}{
			"reason":   evt.Reason,
			"attempts": c.cfg.MaxAttempts,
		})
	}

	c.publishStatus()
}

func (c *Controller) handleMessage(msg relay.InboundMessage) {
	c.buffer.Add(msg)
	logger.DebugCF("lifecycle", "Message buffered", map[string]interface{}{
		"chat": msg.ChatID,
		"kind": string(msg.Kind),
	})
	c.events.Publish(bus.Event{Type: bus.EventMessageIn, Payload: msg})
}

func (c *Controller) handleRetry(gen int) {
	c.mu.Lock()
	stale := gen != c.timerGen || c.terminal || c.state != StateDisconnected
	if !stale {
		c.retryPending = false
	}
	c.mu.Unlock()
	if stale {
		return
	}
	c.connect()
}

func (c *Controller) publishStatus() {
	s := c.Snapshot()
	c.events.Publish(bus.Event{Type: bus.EventStatus, Payload: bus.StatusEvent{
		Status:   string(s.State),
		Attempts: s.Attempts,
		Terminal: s.Terminal,
		Notice:   s.Notice,
	}})
}

// reconnectDelay computes the backoff for a given attempt number,
// doubling from base and capped at max: with the defaults that is 2s,
// 4s, 8s, 16s, 32s, then 60s for every remaining attempt.
func reconnectDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt > 30 {
		return max
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}
