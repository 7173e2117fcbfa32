// Package notify delivers user-facing notifications. Handlers build a
// Message with one of the event constructors and hand it to a Notifier;
// the backend decides whether it is logged, mailed directly or queued for
// cmd/notifier.
package notify

import (
	"context"       // Cancellation
	"encoding/json" // Queue payloads
	"fmt"           // Error wrapping

	"github.com/sirupsen/logrus" // Structured logging
)

// Kind names a notification event
type Kind string

const (
	KindAppointmentBooked     Kind = "appointment.booked"
	KindAppointmentRequested  Kind = "appointment.requested"
	KindAppointmentStatus     Kind = "appointment.status"
	KindSubscriptionActivated Kind = "subscription.activated"
	KindPaymentRejected       Kind = "payment.rejected"
)

// Message is a single rendered notification
type Message struct {
	Kind           Kind   `json:"kind"`
	To             string `json:"to"`
	Name           string `json:"name"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentName string `json:"attachmentName,omitempty"`
	Attachment     []byte `json:"attachment,omitempty"`
}

// Notifier sends messages
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Deliver sends msg and only logs a failure; callers never fail on it
func Deliver(ctx context.Context, n Notifier, msg Message) {
	if n == nil || msg.To == "" {
		return
	}
	if err := n.Send(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{"kind": msg.Kind, "to": msg.To}).WithError(err).Warn("notification delivery failed")
	}
}

// Encode serializes a message for the queue
func Encode(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return b, nil
}

// Decode parses a queued message
func Decode(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	if msg.To == "" {
		return Message{}, fmt.Errorf("notification %q has no recipient", msg.Kind)
	}
	return msg, nil
}

// LogNotifier only writes notifications to the log
type LogNotifier struct{}

// Send logs the message
func (LogNotifier) Send(_ context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"kind":       msg.Kind,
		"to":         msg.To,
		"subject":    msg.Subject,
		"attachment": msg.AttachmentName,
	}).Info("notification")
	return nil
}
