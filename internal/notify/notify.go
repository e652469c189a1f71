// Package notify sends outbound email and records in-app notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is one outbound email. HTML is optional.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Notifier delivers a Message. Implementations must honour ctx cancellation.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("notify: message has no recipient")

// LogNotifier writes messages to the log instead of delivering them. The body
// is logged so one-time codes stay retrievable in development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("email",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)
	return nil
}

type SendGridOptions struct {
	APIKey    string
	FromEmail string
	FromName  string
	Sandbox   bool
	// BaseURL overrides the API host, e.g. for tests.
	BaseURL string
}

// SendGridNotifier delivers through the SendGrid v3 mail API.
type SendGridNotifier struct {
	opts SendGridOptions
	from *mail.Email
}

func NewSendGridNotifier(opts SendGridOptions) (*SendGridNotifier, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("notify: sendgrid api key is empty")
	}
	if opts.FromEmail == "" {
		return nil, fmt.Errorf("notify: sendgrid from address is empty")
	}
	return &SendGridNotifier{opts: opts, from: mail.NewEmail(opts.FromName, opts.FromEmail)}, nil
}

func (n *SendGridNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	m := mail.NewSingleEmail(n.from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)
	if n.opts.Sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		m.MailSettings = ms
	}

	// The client carries the request body, so one is built per send.
	client := sendgrid.NewSendClient(n.opts.APIKey)
	if n.opts.BaseURL != "" {
		client.BaseURL = strings.TrimRight(n.opts.BaseURL, "/") + "/v3/mail/send"
	}

	resp, err := client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
