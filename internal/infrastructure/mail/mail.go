// Package mail defines the transport-neutral message shape shared by the
// Resend and SMTP senders.
package mail

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a sender is missing its credentials.
var ErrNotConfigured = errors.New("email provider not configured")

// Message is one HTML email. An empty From falls back to the sender's default.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers one message synchronously. No retries.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
