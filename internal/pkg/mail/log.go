package mail

import (
	"context"
	"log/slog"
)

// Log writes messages to the default slog logger instead of sending them.
// Bodies are not logged.
type Log struct {
	defaultFrom string
}

func NewLog(from string) *Log {
	return &Log{defaultFrom: from}
}

func (l *Log) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(msg.recipients()) == 0 {
		return ErrNoRecipients
	}

	from, err := msg.sender(l.defaultFrom)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "mail suppressed by log driver", "from", from, "to", msg.To, "subject", msg.Subject)
	return nil
}

func (l *Log) Close() error {
	return nil
}
