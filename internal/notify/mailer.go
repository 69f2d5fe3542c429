// Package notify tells the operator about committed bookings.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/config"
	"github.com/comigor/nazborg-go/internal/logger"
)

var bodyTemplate = template.Must(template.New("booking").Parse(`<h2>New meeting booked</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Reason:</strong> {{.Reason}}</p>
<p><strong>When:</strong> {{.When}}</p>
<p><a href="{{.Link}}">Open in Google Calendar</a></p>
`))

type bodyData struct {
	Name   string
	Reason string
	When   string
	Link   string
}

// Mailer sends one HTML mail per booking through SMTP.
type Mailer struct {
	from string
	to   string
	loc  *time.Location
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewMailer builds a Mailer for cfg. SMTP auth is used when a username is set.
func NewMailer(cfg config.NotifyConfig, loc *time.Location) (*Mailer, error) {
	if cfg.To == "" {
		return nil, errors.New("notify.to is required")
	}
	from := cfg.From
	if from == "" {
		from = cfg.SMTPUsername
	}

	opts := []mail.Option{mail.WithPort(cfg.SMTPPort), mail.WithTLSPortPolicy(mail.TLSOpportunistic)}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	if loc == nil {
		loc = time.UTC
	}
	return &Mailer{
		from: from,
		to:   cfg.To,
		loc:  loc,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// Notify sends the booking mail.
func (m *Mailer) Notify(ctx context.Context, n booking.Notification) error {
	msg, err := m.message(n)
	if err != nil {
		return err
	}
	return m.send(ctx, msg)
}

func (m *Mailer) message(n booking.Notification) (*mail.Msg, error) {
	body, err := renderBody(n, m.loc)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject("New meeting booked with " + n.Name)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func renderBody(n booking.Notification, loc *time.Location) (string, error) {
	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, bodyData{
		Name:   n.Name,
		Reason: n.Reason,
		When:   n.Start.In(loc).Format("Monday, January 2, 2006 at 3:04 PM MST"),
		Link:   n.Link,
	})
	if err != nil {
		return "", fmt.Errorf("render mail body: %w", err)
	}
	return buf.String(), nil
}

// LogNotifier records bookings in the log when no mail server is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n booking.Notification) error {
	logger.L.Info("booking notification", "name", n.Name, "reason", n.Reason, "start", n.Start.Format(time.RFC3339), "link", n.Link)
	return nil
}

// New returns a Mailer when SMTP is configured, LogNotifier otherwise.
func New(cfg config.NotifyConfig, loc *time.Location) (booking.Notifier, error) {
	if cfg.SMTPHost == "" {
		return LogNotifier{}, nil
	}
	return NewMailer(cfg, loc)
}
