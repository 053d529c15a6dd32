package relay

// Kind labels what a WhatsApp envelope carried. Exactly one kind is
// assigned per message, by the precedence order in Classify.
type Kind string

const (
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
	KindDocument  Kind = "document"
	KindAudio     Kind = "audio"
	KindVoiceNote Kind = "voiceNote"
	KindSticker   Kind = "sticker"
	KindContact   Kind = "contact"
	KindLocation  Kind = "location"
	KindUnknown   Kind = "unknown"
)

// InboundMessage is the normalized form of one live inbound envelope.
// Immutable once constructed. Identity is (ID, Timestamp); the buffer
// does not deduplicate re-deliveries, consumers poll by timestamp.
type InboundMessage struct {
	ID          string `json:"id"`
	ChatID      string `json:"chat_id"`
	SenderID    string `json:"sender_id"`
	DisplayName string `json:"display_name,omitempty"`
	BodyText    string `json:"body_text,omitempty"`
	Kind        Kind   `json:"kind"`
	Timestamp   int64  `json:"timestamp"`
	IsGroup     bool   `json:"is_group"`
}
