// Package notify forwards domain events to administrators over Telegram.
package notify

import (
	"context"
	"fmt"
	"strings"

	"eyegic/internal/events"
	"eyegic/internal/models"
	"eyegic/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the part of tgbotapi.BotAPI the notifier needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBotSender connects to the Bot API with token.
func NewBotSender(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// Notifier renders events on the publisher's goroutine and sends them from Run.
type Notifier struct {
	sender TelegramSender
	chats  []int64
	queue  chan string
	logger *zerolog.Logger
}

func NewNotifier(sender TelegramSender, chats []int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chats:  chats,
		queue:  make(chan string, models.WorkerQueueSize),
		logger: logger,
	}
}

// Run delivers queued messages until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if dropped := len(n.queue); dropped > 0 {
				n.logger.Warn().Int("dropped", dropped).Msg("notifier stopped with pending messages")
			}
			return
		case text := <-n.queue:
			_ = n.Broadcast(text)
		}
	}
}

// Subscribe registers the notifier for every event it renders.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.handle)
	bus.Subscribe(events.EventBookingStatusChanged, n.handle)
	bus.Subscribe(events.EventBookingProviderAssigned, n.handle)
	bus.Subscribe(events.EventProviderOnboarded, n.handle)
	bus.Subscribe(events.EventProviderActiveChanged, n.handle)
}

func (n *Notifier) handle(ev *events.Event) error {
	text, err := Render(ev)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	select {
	case n.queue <- text:
	default:
		n.logger.Warn().Str("event", ev.Type).Msg("notifier queue full, message dropped")
	}
	return nil
}

// Broadcast sends text to every configured chat and returns the first failure.
func (n *Notifier) Broadcast(text string) error {
	var firstErr error
	for _, chatID := range n.chats {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := n.sender.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send error")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Render formats an event as a Markdown message. Unknown events render empty.
func Render(ev *events.Event) (string, error) {
	switch ev.Type {
	case events.EventBookingCreated, events.EventBookingStatusChanged, events.EventBookingProviderAssigned:
		var p events.BookingEventPayload
		if err := ev.Decode(&p); err != nil {
			return "", err
		}
		return renderBooking(ev.Type, p), nil
	case events.EventProviderOnboarded, events.EventProviderActiveChanged:
		var p events.ProviderEventPayload
		if err := ev.Decode(&p); err != nil {
			return "", err
		}
		return renderProvider(ev.Type, p), nil
	}
	return "", nil
}

func renderBooking(eventType string, p events.BookingEventPayload) string {
	var b strings.Builder
	switch eventType {
	case events.EventBookingCreated:
		fmt.Fprintf(&b, "*New booking #%d*\n", p.BookingID)
		fmt.Fprintf(&b, "Type: %s\nCustomer: `%s`\nTotal: %s", p.BookingType, escape(p.Customer), pricing.FormatINR(p.Total))
	case events.EventBookingStatusChanged:
		fmt.Fprintf(&b, "*Booking #%d* %s → %s", p.BookingID, p.PreviousStatus, p.Status)
		if p.ChangedBy != "" {
			fmt.Fprintf(&b, "\nBy: `%s`", escape(p.ChangedBy))
		}
	case events.EventBookingProviderAssigned:
		fmt.Fprintf(&b, "*Booking #%d* assigned to `%s`", p.BookingID, escape(p.Provider))
	}
	return b.String()
}

func renderProvider(eventType string, p events.ProviderEventPayload) string {
	if eventType == events.EventProviderOnboarded {
		return fmt.Sprintf("*Provider onboarded*\n%s (`%s`)", escape(p.Name), escape(p.ProviderID))
	}
	state := "deactivated"
	if p.Active {
		state = "activated"
	}
	return fmt.Sprintf("*Provider %s*\n%s (`%s`)", state, escape(p.Name), escape(p.ProviderID))
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
