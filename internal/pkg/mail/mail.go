package mail

import (
	"context"
	"io"
)

// Message is a provider agnostic email payload.
type Message struct {
	// From overrides the sender configured on the transport.
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mail delivers messages.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
