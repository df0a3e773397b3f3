package mail

import (
	"context"
	"log/slog"
)

// LogSender records messages in the log instead of delivering them. It is
// the development default.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a logging transport.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "mail")}
}

// Send logs msg metadata. It never fails.
func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	s.logger.InfoContext(ctx, "email sent",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", names,
	)
	return nil
}
