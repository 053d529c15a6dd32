package wa

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"github.com/vkick/wabridge/pkg/logger"
	"github.com/vkick/wabridge/pkg/relay"
	"github.com/vkick/wabridge/pkg/voice"
)

// ClientConfig configures the whatsmeow-backed session.
type ClientConfig struct {
	// StorePath is the credential store location. The directory is
	// created on first connect; wiping it forces a fresh QR pairing.
	StorePath string
	// ShowTerminalQR additionally renders pairing codes to stdout for
	// operators running the bridge in a terminal.
	ShowTerminalQR bool
}

// Client adapts a whatsmeow client to the Session interface: whatsmeow
// callbacks and the QR pairing channel are folded into one typed event
// stream consumed by the controller.
type Client struct {
	cfg         ClientConfig
	transcriber *voice.Transcriber

	mu        sync.Mutex
	client    *whatsmeow.Client
	container *sqlstore.Container
	db        *sql.DB

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient prepares a session adapter. No IO happens until Connect.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		cfg:    cfg,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

// SetTranscriber injects an optional voice-note transcriber.
func (c *Client) SetTranscriber(t *voice.Transcriber) {
	c.transcriber = t
}

// Events implements Session.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Connect loads the credential store on first use and dials WhatsApp.
// An unpaired device goes through the QR flow; pairing codes arrive as
// EventQR on the event stream. Connection outcomes arrive as events.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		if err := c.initClient(ctx); err != nil {
			return err
		}
	}

	if c.client.Store.ID == nil {
		logger.InfoC("whatsapp", "No existing session found, starting QR pairing")
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to get QR channel: %w", err)
		}
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect for QR: %w", err)
		}
		go c.pumpQR(qrChan)
		return nil
	}

	logger.InfoCF("whatsapp", "Resuming existing session", map[string]interface{}{
		"device_id": c.client.Store.ID.String(),
	})
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

// initClient opens the SQLite credential store and builds the whatsmeow
// client. Called once, under c.mu.
func (c *Client) initClient(ctx context.Context) error {
	storePath := resolveStorePath(c.cfg.StorePath)
	if err := os.MkdirAll(filepath.Dir(storePath), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	// Serialize all database access through a single connection to
	// prevent SQLITE_BUSY.
	dbLog := waLog.Stdout("WhatsApp-DB", "WARN", true)
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", storePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open whatsmeow database: %w", err)
	}
	db.SetMaxOpenConns(1)

	container := sqlstore.NewWithDB(db, "sqlite", dbLog)
	if err := container.Upgrade(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to upgrade whatsmeow database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to get device from store: %w", err)
	}

	clientLog := waLog.Stdout("WhatsApp", "WARN", true)
	client := whatsmeow.NewClient(deviceStore, clientLog)
	// Reconnection policy belongs to the controller.
	client.EnableAutoReconnect = false
	client.AddEventHandler(c.eventHandler)

	c.db = db
	c.container = container
	c.client = client
	return nil
}

// Disconnect implements Session. The credential store stays open so a
// later Connect can resume.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Disconnect()
	}
}

// Close releases the credential store. The event stream stops after
// this; the adapter cannot be reused.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.client != nil {
			c.client.Disconnect()
		}
		if c.db != nil {
			c.db.Close()
		}
	})
}

func (c *Client) deliver(evt Event) {
	select {
	case c.events <- evt:
	case <-c.done:
	}
}

// pumpQR forwards pairing-channel items as typed events. Success ends
// the pump; events.Connected follows on the main handler.
func (c *Client) pumpQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			if c.cfg.ShowTerminalQR {
				fmt.Println("\n--- Scan this QR code with WhatsApp (Linked Devices) ---")
				qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, os.Stdout)
				fmt.Println("--- Waiting for scan... ---")
			}
			c.deliver(Event{Type: EventQR, Code: item.Code})

		case "login", "success":
			logger.InfoC("whatsapp", "QR pairing successful")
			return

		case "timeout":
			logger.WarnC("whatsapp", "QR pairing timed out")
			c.deliver(Event{Type: EventDisconnected, Reason: "qr pairing timed out"})
			return

		case "error":
			reason := "qr pairing error"
			if item.Error != nil {
				reason = item.Error.Error()
			}
			logger.ErrorCF("whatsapp", "QR pairing failed", map[string]interface{}{
				"error": reason,
			})
			c.deliver(Event{Type: EventDisconnected, Reason: reason})
			return
		}
	}
}

// eventHandler is the central whatsmeow event dispatcher.
func (c *Client) eventHandler(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		c.handleMessage(v)
	case *events.Connected:
		c.deliver(Event{Type: EventConnected})
	case *events.Disconnected:
		c.deliver(Event{Type: EventDisconnected, Reason: "connection closed"})
	case *events.StreamReplaced:
		c.deliver(Event{Type: EventDisconnected, Reason: "stream replaced by another client"})
	case *events.ConnectFailure:
		c.deliver(Event{Type: EventDisconnected, Reason: fmt.Sprintf("connect failure: %v", v.Reason)})
	case *events.ClientOutdated:
		c.deliver(Event{Type: EventDisconnected, Reason: "client protocol version outdated"})
	case *events.TemporaryBan:
		c.deliver(Event{Type: EventDisconnected, Reason: fmt.Sprintf("temporary ban: %v", v.Code)})
	case *events.LoggedOut:
		c.deliver(Event{Type: EventDisconnected, LoggedOut: true, Reason: fmt.Sprintf("%v", v.Reason)})
	case *events.HistorySync:
		// Ignore history syncs, only real-time messages feed the relay
	}
}

func (c *Client) handleMessage(evt *events.Message) {
	m, ok := relay.FromEvent(evt)
	if !ok {
		return
	}

	if m.Kind == relay.KindVoiceNote {
		if text := c.transcribeVoiceNote(evt); text != "" {
			m.BodyText = text
		}
	}

	logger.InfoCF("whatsapp", "Message received", map[string]interface{}{
		"chat":    m.ChatID,
		"kind":    string(m.Kind),
		"preview": truncate(m.BodyText, 50),
	})
	c.deliver(Event{Type: EventMessage, Message: m})
}

// transcribeVoiceNote downloads a push-to-talk recording and runs it
// through the transcriber. Failures degrade to an empty body, the
// message is relayed either way.
func (c *Client) transcribeVoiceNote(evt *events.Message) string {
	if c.transcriber == nil || !c.transcriber.IsAvailable() {
		return ""
	}
	audio := evt.Message.GetAudioMessage()
	if audio == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	data, err := c.client.Download(ctx, audio)
	if err != nil {
		logger.ErrorCF("whatsapp", "Failed to download voice note", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}

	mediaDir := filepath.Join(os.TempDir(), "wabridge_media")
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		logger.ErrorCF("whatsapp", "Failed to create media directory", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	path := filepath.Join(mediaDir, fmt.Sprintf("wa_%d.ogg", time.Now().UnixNano()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.ErrorCF("whatsapp", "Failed to write voice note", map[string]interface{}{
			"error": err.Error(),
			"path":  path,
		})
		return ""
	}
	defer os.Remove(path)

	result, err := c.transcriber.Transcribe(ctx, path)
	if err != nil {
		logger.ErrorCF("whatsapp", "Voice transcription failed", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	logger.InfoCF("whatsapp", "Voice note transcribed", map[string]interface{}{
		"preview": truncate(result.Text, 50),
	})
	return result.Text
}

// SendText implements Session: parse the prepared address, show a
// typing indicator, send, and return the protocol ack id.
func (c *Client) SendText(ctx context.Context, to, text string) (string, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return "", fmt.Errorf("whatsapp client not connected")
	}

	targetJID, err := types.ParseJID(to)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID '%s': %w", to, err)
	}

	// Typing indicator
	_ = client.SendChatPresence(ctx, targetJID, types.ChatPresenceComposing, "")

	waMsg := &waE2E.Message{
		Conversation: proto.String(text),
	}
	resp, err := client.SendMessage(ctx, targetJID, waMsg)
	if err != nil {
		return "", fmt.Errorf("failed to send whatsapp message: %w", err)
	}

	// Clear typing indicator
	_ = client.SendChatPresence(ctx, targetJID, types.ChatPresencePaused, "")

	return string(resp.ID), nil
}

// resolveStorePath expands ~ in the configured store path.
func resolveStorePath(path string) string {
	if path == "" {
		path = "~/.wabridge/whatsapp/whatsmeow.db"
	}
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && (path[1] == '/' || path[1] == '\\') {
			path = home + path[1:]
		} else {
			path = home
		}
	}
	return path
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
