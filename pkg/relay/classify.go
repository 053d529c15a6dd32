package relay

import (
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// Classify maps an envelope onto exactly one Kind plus its text body.
// Precedence is fixed: plain text, extended/quoted text, image, video,
// document, audio (voice note when push-to-talk), sticker, contact,
// location, unknown. The first populated field wins; captions become
// the body for the media kinds that carry one.
func Classify(msg *waE2E.Message) (Kind, string) {
	if msg == nil {
		return KindUnknown, ""
	}
	if t := msg.GetConversation(); t != "" {
		return KindText, t
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return KindText, ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return KindImage, img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return KindVideo, vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return KindDocument, doc.GetCaption()
	}
	if audio := msg.GetAudioMessage(); audio != nil {
		if audio.GetPTT() {
			return KindVoiceNote, ""
		}
		return KindAudio, ""
	}
	if msg.GetStickerMessage() != nil {
		return KindSticker, ""
	}
	if msg.GetContactMessage() != nil {
		return KindContact, ""
	}
	if msg.GetLocationMessage() != nil {
		return KindLocation, ""
	}
	return KindUnknown, ""
}

// FromEvent normalizes a live whatsmeow message event. It reports false
// for envelopes the bridge ignores: our own outgoing messages echoed
// back, and status-broadcast traffic. History replays never get here,
// the session adapter drops HistorySync events wholesale.
func FromEvent(evt *events.Message) (InboundMessage, bool) {
	if evt == nil || evt.Info.IsFromMe {
		return InboundMessage{}, false
	}
	if evt.Info.Chat.Server == "broadcast" {
		return InboundMessage{}, false
	}

	kind, body := Classify(evt.Message)

	ts := evt.Info.Timestamp.Unix()
	if evt.Info.Timestamp.IsZero() || ts <= 0 {
		ts = time.Now().Unix()
	}

	return InboundMessage{
		ID:          string(evt.Info.ID),
		ChatID:      evt.Info.Chat.String(),
		SenderID:    evt.Info.Sender.String(),
		DisplayName: evt.Info.PushName,
		BodyText:    body,
		Kind:        kind,
		Timestamp:   ts,
		IsGroup:     evt.Info.Chat.Server == types.GroupServer,
	}, true
}
