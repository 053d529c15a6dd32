package relay

import (
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func liveEvent(msg *waE2E.Message) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   types.NewJID("15551234567", types.DefaultUserServer),
				Sender: types.NewJID("15551234567", types.DefaultUserServer),
			},
			ID:        "A1",
			PushName:  "Ada",
			Timestamp: time.Unix(1000, 0),
		},
		Message: msg,
	}
}

func TestClassifyKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		msg      *waE2E.Message
		wantKind Kind
		wantBody string
	}{
		{"nil", nil, KindUnknown, ""},
		{"empty", &waE2E.Message{}, KindUnknown, ""},
		{"conversation", &waE2E.Message{Conversation: proto.String("hello")}, KindText, "hello"},
		{"extended", &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("quoted")}}, KindText, "quoted"},
		{"image", &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("pic")}}, KindImage, "pic"},
		{"video", &waE2E.Message{VideoMessage: &waE2E.VideoMessage{Caption: proto.String("clip")}}, KindVideo, "clip"},
		{"document", &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{Caption: proto.String("doc")}}, KindDocument, "doc"},
		{"audio", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}}, KindAudio, ""},
		{"voice note", &waE2E.Message{AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)}}, KindVoiceNote, ""},
		{"sticker", &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}}, KindSticker, ""},
		{"contact", &waE2E.Message{ContactMessage: &waE2E.ContactMessage{DisplayName: proto.String("Bob")}}, KindContact, ""},
		{"location", &waE2E.Message{LocationMessage: &waE2E.LocationMessage{}}, KindLocation, ""},
	}

	for _, tc := range cases {
		kind, body := Classify(tc.msg)
		if kind != tc.wantKind {
			t.Errorf("%s: kind got %s, want %s", tc.name, kind, tc.wantKind)
		}
		if body != tc.wantBody {
			t.Errorf("%s: body got %q, want %q", tc.name, body, tc.wantBody)
		}
	}
}

func TestClassifyPrecedence(t *testing.T) {
	t.Parallel()

	// Plain text beats everything else present on the same envelope.
	msg := &waE2E.Message{
		Conversation: proto.String("hello"),
		ImageMessage: &waE2E.ImageMessage{Caption: proto.String("pic")},
	}
	kind, body := Classify(msg)
	if kind != KindText || body != "hello" {
		t.Errorf("got %s %q, want text %q", kind, body, "hello")
	}

	// Image beats audio when both are set.
	msg = &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{Caption: proto.String("pic")},
		AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)},
	}
	kind, _ = Classify(msg)
	if kind != KindImage {
		t.Errorf("got %s, want image", kind)
	}
}

func TestClassifyStable(t *testing.T) {
	t.Parallel()

	msg := &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("pic")}}
	k1, b1 := Classify(msg)
	k2, b2 := Classify(msg)
	if k1 != k2 || b1 != b2 {
		t.Errorf("classification not stable: (%s,%q) vs (%s,%q)", k1, b1, k2, b2)
	}
}

func TestFromEvent(t *testing.T) {
	t.Parallel()

	evt := liveEvent(&waE2E.Message{Conversation: proto.String("hello")})
	m, ok := FromEvent(evt)
	if !ok {
		t.Fatal("FromEvent: got ok=false, want true")
	}
	if m.ID != "A1" {
		t.Errorf("ID: got %s, want A1", m.ID)
	}
	if m.Kind != KindText || m.BodyText != "hello" {
		t.Errorf("classification: got %s %q, want text hello", m.Kind, m.BodyText)
	}
	if m.Timestamp != 1000 {
		t.Errorf("timestamp: got %d, want 1000", m.Timestamp)
	}
	if m.DisplayName != "Ada" {
		t.Errorf("display name: got %s, want Ada", m.DisplayName)
	}
	if m.IsGroup {
		t.Error("IsGroup: got true for a direct chat")
	}
}

func TestFromEventSkipsOwnMessages(t *testing.T) {
	t.Parallel()

	evt := liveEvent(&waE2E.Message{Conversation: proto.String("hello")})
	evt.Info.IsFromMe = true
	if _, ok := FromEvent(evt); ok {
		t.Error("own message accepted, want skipped")
	}
}

func TestFromEventSkipsBroadcast(t *testing.T) {
	t.Parallel()

	evt := liveEvent(&waE2E.Message{Conversation: proto.String("hello")})
	evt.Info.Chat = types.NewJID("status", "broadcast")
	if _, ok := FromEvent(evt); ok {
		t.Error("broadcast message accepted, want skipped")
	}
}

func TestFromEventGroupChat(t *testing.T) {
	t.Parallel()

	evt := liveEvent(&waE2E.Message{Conversation: proto.String("hello")})
	evt.Info.Chat = types.NewJID("120363021234567890", types.GroupServer)
	m, ok := FromEvent(evt)
	if !ok {
		t.Fatal("group message skipped, want accepted")
	}
	if !m.IsGroup {
		t.Error("IsGroup: got false, want true")
	}
}

func TestFromEventTimestampFallback(t *testing.T) {
	t.Parallel()

	before := time.Now().Unix()
	evt := liveEvent(&waE2E.Message{Conversation: proto.String("hello")})
	evt.Info.Timestamp = time.Time{}
	m, ok := FromEvent(evt)
	if !ok {
		t.Fatal("event skipped, want accepted")
	}
	if m.Timestamp < before {
		t.Errorf("timestamp fallback: got %d, want >= %d (wall clock)", m.Timestamp, before)
	}
}
