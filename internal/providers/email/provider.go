package email

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidMessage = errors.New("email message requires a recipient and subject")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Text    string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" {
		return ErrInvalidMessage
	}
	if strings.ContainsAny(m.To+m.Subject, "\r\n") {
		return ErrInvalidMessage
	}
	return nil
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	return msg.Validate()
}
