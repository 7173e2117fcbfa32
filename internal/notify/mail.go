package notify

import (
	"context" // Cancellation
	"fmt"     // Error wrapping
	"io"      // Attachment copy

	"github.com/go-gomail/gomail" // SMTP mail
)

// MailNotifier sends messages over SMTP
type MailNotifier struct {
	from string
	send func(m ...*gomail.Message) error
}

// NewMailNotifier dials the SMTP server for every message
func NewMailNotifier(host string, port int, user, pass, from string) *MailNotifier {
	d := gomail.NewDialer(host, port, user, pass)
	return &MailNotifier{from: from, send: d.DialAndSend}
}

// NewMailNotifierWithSender sends through an existing gomail.Sender
func NewMailNotifierWithSender(from string, s gomail.Sender) *MailNotifier {
	return &MailNotifier{from: from, send: func(m ...*gomail.Message) error {
		return gomail.Send(s, m...)
	}}
}

// Compose renders msg as a mail message
func (n *MailNotifier) Compose(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetAddressHeader("To", msg.To, msg.Name)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	// Add attachment
	if msg.AttachmentName != "" && len(msg.Attachment) > 0 {
		data := msg.Attachment
		m.Attach(msg.AttachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m
}

// Send mails msg
func (n *MailNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.send(n.Compose(msg)); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
