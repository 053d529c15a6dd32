package wa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/vkick/wabridge/pkg/bus"
	"github.com/vkick/wabridge/pkg/logger"
)

var (
	// ErrNotConnected rejects sends while the session is down; the HTTP
	// layer maps it to 503.
	ErrNotConnected = errors.New("session not connected")
	// ErrBadRecipient rejects unusable addresses; mapped to 400.
	ErrBadRecipient = errors.New("invalid recipient")
)

// SendResult is the acknowledged outcome of one outbound send.
type SendResult struct {
	Recipient string
	MessageID string
}

// NormalizeRecipient turns a raw recipient into a canonical JID. A bare
// phone number (no "@") keeps only its digits and gets the standard
// user server; anything else must already parse as a full address.
func NormalizeRecipient(recipient string) (types.JID, error) {
	r := strings.TrimSpace(recipient)
	if r == "" {
		return types.EmptyJID, fmt.Errorf("%w: empty", ErrBadRecipient)
	}

	if !strings.ContainsRune(r, '@') {
		var digits strings.Builder
		for _, ch := range r {
			if ch >= '0' && ch <= '9' {
				digits.WriteRune(ch)
			}
		}
		if digits.Len() == 0 {
			return types.EmptyJID, fmt.Errorf("%w: no digits in %q", ErrBadRecipient, recipient)
		}
		return types.NewJID(digits.String(), types.DefaultUserServer), nil
	}

	jid, err := types.ParseJID(r)
	if err != nil {
		return types.EmptyJID, fmt.Errorf("%w: %v", ErrBadRecipient, err)
	}
	return jid, nil
}

// Send validates, normalizes and forwards one outbound text message to
// the live session. No queueing and no retry: a send while disconnected
// fails synchronously, a protocol failure is surfaced to the caller.
func (c *Controller) Send(ctx context.Context, recipient, text string) (SendResult, error) {
	if c.State() != StateConnected {
		return SendResult{}, ErrNotConnected
	}

	jid, err := NormalizeRecipient(recipient)
	if err != nil {
		return SendResult{}, err
	}

	id, err := c.session.SendText(ctx, jid.String(), text)
	if err != nil {
		return SendResult{}, fmt.Errorf("send to %s failed: %w", jid.String(), err)
	}

	logger.DebugCF("lifecycle", "Message sent", map[string]interface{}{
		"to":         jid.String(),
		"message_id": id,
	})
	c.events.Publish(bus.Event{Type: bus.EventMessageOut, Payload: bus.OutboundEvent{
		Recipient: jid.String(),
		MessageID: id,
		Body:      text,
	}})

	return SendResult{Recipient: jid.String(), MessageID: id}, nil
}
