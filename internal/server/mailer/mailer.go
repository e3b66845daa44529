// Package mailer delivers enrollment codes by email.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/playerhub/internal/common"
	"github.com/dmitrijs2005/playerhub/internal/logging"
)

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an SMTP relay with PLAIN auth when a user is set.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// sendMail is a seam for tests.
var sendMail = smtp.SendMail

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	m := &SMTPMailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
	}
	if user != "" {
		m.auth = smtp.PlainAuth("", user, password, host)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := common.MakeRandHexString(16)
	if err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	msg := buildMessage(m.from, to, subject, body, messageID(id, m.from))
	if err := sendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// messageID scopes a random id to the sender's domain.
func messageID(id, from string) string {
	domain := "playerhub.local"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = strings.TrimSuffix(from[at+1:], ">")
	}
	return "<" + id + "@" + domain + ">"
}

func buildMessage(from, to, subject, body, id string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: %s\r\n", id)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them. Used when
// no SMTP host is configured.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log.With("module", "mailer")}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.Info(ctx, "mail not sent, smtp disabled", "to", to, "subject", subject, "body", body)
	return nil
}
