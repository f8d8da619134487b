package mail

import (
	"context"
	"log/slog"

	"github.com/copperlane/gatehouse/pkg/idx"
)

// LogMailer is the development stand-in used when SMTP is unconfigured.
// It logs the message instead of sending it and fabricates a delivery id so
// flows that require one still work locally.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) (Result, error) {
	id := idx.New().String()
	m.Logger.Info("mail delivery skipped (no SMTP configured)",
		"to", msg.To,
		"subject", msg.Subject,
		"message_id", id,
		"text", msg.Text,
	)
	return Result{ID: id}, nil
}
