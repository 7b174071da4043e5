package mail

import (
	"context"
	"log/slog"
)

// Log "sends" mail by writing it to the default logger. Meant for local runs
// where no SMTP relay exists.
type Log struct {
	from string
}

func NewLog(from string) *Log {
	return &Log{from: from}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	from := msg.From
	if from == "" {
		from = l.from
	}

	if _, _, err := compose(from, msg); err != nil {
		return err
	}

	slog.InfoContext(ctx, "mail sent to log transport",
		"from", from,
		"to", msg.To,
		"subject", msg.Subject,
		"text_body", msg.TextBody,
	)
	return nil
}

func (l *Log) Close() error {
	return nil
}
