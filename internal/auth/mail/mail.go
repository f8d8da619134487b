// Package mail is the notification gateway: it renders and delivers the
// transactional emails the auth flows depend on. The orchestrator only sees
// the Mailer interface; delivery is SMTP in production and a structured log
// line in development.
package mail

import "context"

// Message is a fully rendered outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Result reports a successful delivery. ID is the provider message id; flows
// that treat delivery as mandatory (password reset) check it is non-empty.
type Result struct {
	ID string
}

// Mailer sends a single message. Implementations must be safe for concurrent
// use.
type Mailer interface {
	Send(ctx context.Context, msg Message) (Result, error)
}
