package contacts

import (
	"context"
	"time"

	"github.com/vkick/wabridge/pkg/bus"
	"github.com/vkick/wabridge/pkg/logger"
	"github.com/vkick/wabridge/pkg/relay"
	"github.com/vkick/wabridge/pkg/storage/repository"
)

// Tracker keeps the contact directory current from live inbound
// traffic. It is the only writer, so read-modify-write on the
// repository needs no extra locking.
type Tracker struct {
	repo   repository.ContactsRepository
	events *bus.Bus
}

func NewTracker(repo repository.ContactsRepository, events *bus.Bus) *Tracker {
	return &Tracker{repo: repo, events: events}
}

// Run consumes inbound message events until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ch := t.events.Subscribe()
	defer t.events.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Type != bus.EventMessageIn {
				continue
			}
			msg, ok := event.Payload.(relay.InboundMessage)
			if !ok {
				continue
			}
			obsCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := t.Observe(obsCtx, msg)
			cancel()
			if err != nil {
				logger.WarnCF("contacts", "Contact update failed", map[string]interface{}{
					"chat_id": msg.ChatID,
					"error":   err.Error(),
				})
			}
		}
	}
}

// Observe folds one inbound message into the directory entry for its
// chat. Group entries are keyed by the group JID; the sender push name
// only labels direct chats.
func (t *Tracker) Observe(ctx context.Context, msg relay.InboundMessage) error {
	existing, err := t.repo.Get(ctx, msg.ChatID)
	if err != nil {
		return err
	}

	seen := time.Unix(msg.Timestamp, 0)
	var c repository.Contact
	if existing != nil {
		c = *existing
	} else {
		c.JID = msg.ChatID
		c.IsGroup = msg.IsGroup
		c.FirstSeen = seen
	}
	if !msg.IsGroup && msg.DisplayName != "" {
		c.DisplayName = msg.DisplayName
	}
	c.MessageCount++
	c.LastKind = string(msg.Kind)
	if seen.After(c.LastSeen) {
		c.LastSeen = seen
	}

	return t.repo.Set(ctx, c)
}
