// Package mailer provides outbound email transports. The delivery
// orchestrator only sees the Transport interface; SMTP and SES are
// interchangeable behind it.
package mailer

import "context"

// Message is one outbound email, fully rendered.
type Message struct {
	From     string
	FromName string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	HTML     string
}

// Transport delivers a message to the recipients' mail servers.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}
