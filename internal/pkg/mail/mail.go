package mail

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNoRecipients is returned when To, Cc and Bcc are all empty.
	ErrNoRecipients = errors.New("mail: no recipients provided")
	// ErrNoSender is returned when neither Message.From nor the driver default is set.
	ErrNoSender = errors.New("mail: no sender provided")
)

// Message is a provider-agnostic email.
type Message struct {
	From     string // optional, the driver default applies when empty
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

func (m Message) recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

func (m Message) sender(fallback string) (string, error) {
	if m.From != "" {
		return m.From, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", ErrNoSender
}

// Mail is an email provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
