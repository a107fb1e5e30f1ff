// Package email renders and delivers transactional messages.
package email

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Message is one outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender logs the recipient and subject instead of delivering. Used when SMTP is not configured.
type LogSender struct {
	Log logrus.FieldLogger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email not delivered: smtp not configured")
	return nil
}

// Outbox records messages in memory. Used by tests.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.sent = append(o.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}

// Last returns the most recent message, or false if none was sent.
func (o *Outbox) Last() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return Message{}, false
	}
	return o.sent[len(o.sent)-1], true
}
