// Package notify holds operator-facing notifications: the in-process queue
// that backs the dashboard toasts, the opportunity simulator, and delivery to
// external chat channels (Telegram, Discord) filtered by notification type.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/arblens/internal/domain"
)

// Sender is the interface that each external channel must implement.
type Sender interface {
	// Send delivers n to the channel.
	Send(ctx context.Context, n domain.Notification) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It keeps a set of
// allowed notification types; Notify only forwards those, while NotifyAll
// bypasses the filter.
type Notifier struct {
	senders []Sender
	events  map[domain.NotificationType]bool
	timeout time.Duration
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// notification types listed in events are forwarded by Notify; an empty list
// allows every type.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.NotificationType]bool, len(events))
	for _, e := range events {
		allowed[domain.NotificationType(strings.ToLower(strings.TrimSpace(e)))] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		timeout: 10 * time.Second,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool { return len(n.senders) > 0 }

// Notify sends to all senders when the notification type is allowed.
func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	if len(n.events) > 0 && !n.events[note.Type] {
		n.logger.DebugContext(ctx, "notification filtered out",
			slog.String("type", string(note.Type)),
		)
		return nil
	}
	return n.dispatch(ctx, note)
}

// NotifyAll sends to all senders regardless of type.
func (n *Notifier) NotifyAll(ctx context.Context, note domain.Notification) error {
	return n.dispatch(ctx, note)
}

// dispatch iterates over all senders. A single sender failure does not
// prevent delivery to the rest; failures are combined into one error.
func (n *Notifier) dispatch(ctx context.Context, note domain.Notification) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, note); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", note.Title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Listener forwards added notifications to the senders in the background.
// Removals are ignored.
func (n *Notifier) Listener(ctx context.Context) Listener {
	return func(e Event) {
		if e.Kind != EventAdded || !n.Enabled() {
			return
		}
		go func(note domain.Notification) {
			sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
			defer cancel()
			_ = n.Notify(sendCtx, note)
		}(e.Notification)
	}
}

// Publisher is the publish half of a signal bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// BusMessage is the payload published on domain.ChannelNotify.
type BusMessage struct {
	Kind         EventKind           `json:"kind"`
	Notification domain.Notification `json:"notification"`
}

// BusListener publishes every queue change to domain.ChannelNotify so that
// WebSocket clients can mirror the queue.
func BusListener(ctx context.Context, bus Publisher, logger *slog.Logger) Listener {
	logger = logger.With(slog.String("component", "notify_publisher"))
	return func(e Event) {
		payload, err := json.Marshal(BusMessage{Kind: e.Kind, Notification: e.Notification})
		if err != nil {
			logger.Error("marshal notification", slog.String("error", err.Error()))
			return
		}
		if err := bus.Publish(ctx, domain.ChannelNotify, payload); err != nil {
			logger.Warn("publish notification failed",
				slog.String("id", e.Notification.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// renderText formats n as a title line followed by the message and any
// opportunity details.
func renderText(n domain.Notification, bold func(string) string) string {
	var b strings.Builder
	b.WriteString(bold(n.Title))
	if n.Message != "" {
		b.WriteString("\n")
		b.WriteString(n.Message)
	}
	if n.Data != nil {
		fmt.Fprintf(&b, "\nPair: %s (est. profit %s%%)", n.Data.Pair, n.Data.Profit)
	}
	return b.String()
}
