package domain

import (
	"encoding/json"
	"time"
)

// NotificationType selects how a notification is presented.
type NotificationType string

const (
	NotifyOpportunity NotificationType = "opportunity"
	NotifyWarning     NotificationType = "warning"
	NotifyError       NotificationType = "error"
	NotifySuccess     NotificationType = "success"
	NotifyDefault     NotificationType = "default"
)

// NotificationData carries the pair and profit hint of an opportunity.
type NotificationData struct {
	Pair   string `json:"pair"`
	Profit string `json:"profit"`
}

// NotificationAction is an operator action offered by a notification.
type NotificationAction struct {
	Label string `json:"label"`
}

// Notification is an ephemeral operator-facing message.
//
// AutoClose of zero means the queue default applies; Sticky disables
// expiry entirely.
type Notification struct {
	ID        string              `json:"id"`
	Type      NotificationType    `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Data      *NotificationData   `json:"data,omitempty"`
	Action    *NotificationAction `json:"action,omitempty"`
	AutoClose time.Duration       `json:"-"`
	Sticky    bool                `json:"sticky,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// ReviewPairAction is the label of the action that jumps to the best pair.
const ReviewPairAction = "Review Pair"

type notificationJSON struct {
	notificationAlias
	AutoCloseMS int64 `json:"auto_close_ms"`
}

type notificationAlias Notification

// MarshalJSON renders AutoClose in milliseconds.
func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(notificationJSON{
		notificationAlias: notificationAlias(n),
		AutoCloseMS:       n.AutoClose.Milliseconds(),
	})
}

// UnmarshalJSON reads AutoClose from milliseconds.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var v notificationJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Notification(v.notificationAlias)
	n.AutoClose = time.Duration(v.AutoCloseMS) * time.Millisecond
	return nil
}
