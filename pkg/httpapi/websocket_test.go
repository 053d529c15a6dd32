package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vkick/wabridge/pkg/bus"
)

func TestWebSocketStreamsEvents(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, "")

	wsURL := "ws" + strings.TrimPrefix(api.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer conn.Close()

	hub := api.server.hub
	waitFor(t, "client registration", func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 1
	})

	api.msgBus.Publish(bus.Event{Type: bus.EventStatus, Payload: bus.StatusEvent{
		Status: "connected",
	}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage error: %v", err)
	}

	var evt struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(frame, &evt); err != nil {
		t.Fatalf("invalid frame %q: %v", frame, err)
	}
	if evt.Type != "status" {
		t.Errorf("frame type = %q, want status", evt.Type)
	}
	if evt.Payload["status"] != "connected" {
		t.Errorf("frame payload = %v, want status connected", evt.Payload)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t, "sekrit-token")

	wsURL := "ws" + strings.TrimPrefix(api.ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("Dial without token succeeded, want rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %v, want 401", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=sekrit-token", nil)
	if err != nil {
		t.Fatalf("Dial with token error: %v", err)
	}
	conn.Close()
}
