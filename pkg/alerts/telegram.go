package alerts

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkick/wabridge/pkg/bus"
	"github.com/vkick/wabridge/pkg/logger"
)

// Config enables operator alerts over Telegram.
type Config struct {
	Enabled bool
	Token   string
	ChatID  int64
}

// Notifier pushes a Telegram message when the bridge reaches a state
// only an operator can fix: logged out, or reconnects exhausted.
type Notifier struct {
	cfg    Config
	bot    *tgbotapi.BotAPI
	events *bus.Bus
}

func NewNotifier(cfg Config, events *bus.Bus) (*Notifier, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram alerts need a bot token and a chat id")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init failed: %w", err)
	}

	return &Notifier{cfg: cfg, bot: bot, events: events}, nil
}

// Run consumes bus events until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	events := n.events.Subscribe()
	defer n.events.Unsubscribe(events)

	logger.InfoC("alerts", "Telegram notifier started")

	// One terminal state can surface as repeated status events.
	var lastSent string

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			text, ok := alertText(evt)
			if !ok || text == lastSent {
				continue
			}
			lastSent = text
			n.send(text)
		}
	}
}

// alertText extracts the operator-facing text from a bus event. ok is
// false when the event needs no alert.
func alertText(evt bus.Event) (string, bool) {
	if evt.Type != bus.EventStatus {
		return "", false
	}
	status, ok := evt.Payload.(bus.StatusEvent)
	if !ok || !status.Terminal {
		return "", false
	}
	return fmt.Sprintf("wabridge: session %s\n%s", status.Status, status.Notice), true
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		logger.WarnCF("alerts", "Telegram alert failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	logger.InfoC("alerts", "Operator alerted over Telegram")
}
