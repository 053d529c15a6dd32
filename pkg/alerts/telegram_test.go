package alerts

import (
	"strings"
	"testing"
	"time"

	"github.com/vkick/wabridge/pkg/bus"
)

func TestAlertText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		evt    bus.Event
		want   string
		wantOK bool
	}{
		{
			name: "logged out",
			evt: bus.Event{Type: bus.EventStatus, Payload: bus.StatusEvent{
				Status:   "disconnected",
				Terminal: true,
				Notice:   "logged out by the service: wipe the credential store and restart to pair again",
			}},
			want:   "wipe the credential store",
			wantOK: true,
		},
		{
			name: "retries exhausted",
			evt: bus.Event{Type: bus.EventStatus, Payload: bus.StatusEvent{
				Status:   "disconnected",
				Attempts: 10,
				Terminal: true,
				Notice:   "reconnect attempts exhausted: restart the bridge to try again",
			}},
			want:   "reconnect attempts exhausted",
			wantOK: true,
		},
		{
			name: "transient disconnect",
			evt: bus.Event{Type: bus.EventStatus, Payload: bus.StatusEvent{
				Status:   "disconnected",
				Attempts: 2,
			}},
			wantOK: false,
		},
		{
			name: "connected",
			evt: bus.Event{Type: bus.EventStatus, Payload: bus.StatusEvent{
				Status: "connected",
			}},
			wantOK: false,
		},
		{
			name:   "inbound message",
			evt:    bus.Event{Type: bus.EventMessageIn, Time: time.Unix(1000, 0)},
			wantOK: false,
		},
		{
			name:   "malformed payload",
			evt:    bus.Event{Type: bus.EventStatus, Payload: "oops"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := alertText(tt.evt)
			if ok != tt.wantOK {
				t.Fatalf("alertText ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK && !strings.Contains(got, tt.want) {
				t.Errorf("alertText = %q, want containing %q", got, tt.want)
			}
		})
	}
}

func TestNewNotifierRequiresConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewNotifier(Config{Enabled: true, ChatID: 42}, bus.New()); err == nil {
		t.Error("NewNotifier without token succeeded, want error")
	}
	if _, err := NewNotifier(Config{Enabled: true, Token: "123:abc"}, bus.New()); err == nil {
		t.Error("NewNotifier without chat id succeeded, want error")
	}
}
