// Package notify delivers the outcome of a trigger request to the people and
// systems that follow a station: email to the station's contacts, a NATS
// subject for automated consumers, and the daemon log.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/large-farva/fast-trigger/internal/station"
)

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends the alert text as a plain-text message to every recipient.
type Email struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
	log  zerolog.Logger
}

// NewEmail returns an email notifier.
func NewEmail(cfg SMTPConfig, logger zerolog.Logger) *Email {
	return &Email{
		cfg:  cfg,
		send: smtp.SendMail,
		now:  time.Now,
		log:  logger.With().Str("component", "notify.email").Logger(),
	}
}

// Notify implements station.Notifier.
func (e *Email) Notify(ctx context.Context, n station.Notification) error {
	if e.cfg.Host == "" {
		return errors.New("smtp not configured")
	}
	to := addresses(n.Recipients)
	if len(to) == 0 {
		return fmt.Errorf("station %s has no email recipients", n.Station)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	msg := e.buildMessage(to, n)
	if err := e.send(addr, auth, e.cfg.From, to, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	e.log.Info().
		Str("station", n.Station).
		Strs("to", to).
		Str("subject", n.Subject).
		Msg("email notification sent")
	return nil
}

func (e *Email) buildMessage(to []string, n station.Notification) []byte {
	from := e.cfg.From
	if e.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", e.cfg.FromName, e.cfg.From)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", e.now().UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(n.Body, "\n", "\r\n"))
	return []byte(msg.String())
}

func addresses(cs []station.Contact) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		if c.Email != "" {
			out = append(out, c.Email)
		}
	}
	return out
}
