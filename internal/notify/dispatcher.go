package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/garnizeh/hirehub/internal/metrics"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository"
)

const DefaultTimeout = 5 * time.Second

// Dispatcher performs best-effort side effects: it renders, bounds each send
// with a timeout and logs and counts failures instead of returning them.
type Dispatcher struct {
	notifier      Notifier
	notifications repository.NotificationRepo
	renderer      *Renderer
	timeout       time.Duration
	logger        *slog.Logger
	metrics       metrics.Recorder
}

type DispatcherOptions struct {
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

func NewDispatcher(n Notifier, notifications repository.NotificationRepo, opts DispatcherOptions) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{
		notifier:      n,
		notifications: notifications,
		renderer:      MustRenderer(),
		timeout:       opts.Timeout,
		logger:        opts.Logger,
		metrics:       metrics.OrNop(opts.Metrics),
	}
}

// Email renders tmpl and sends it to the given address. It reports whether
// the send succeeded.
func (d *Dispatcher) Email(ctx context.Context, to, tmpl string, data any) bool {
	r, err := d.renderer.Render(tmpl, data)
	if err != nil {
		d.logger.Error("render email", slog.String("template", tmpl), slog.Any("err", err))
		d.metrics.RecordNotifierFailure("email")
		return false
	}
	return d.send(ctx, Message{To: to, Subject: r.Subject, Text: r.Text, HTML: r.HTML}, tmpl)
}

// Notify stores an in-app notification for userID and then emails to. The
// two steps fail independently. An empty to skips the email.
func (d *Dispatcher) Notify(ctx context.Context, userID int64, kind, to, tmpl string, data any) {
	r, err := d.renderer.Render(tmpl, data)
	if err != nil {
		d.logger.Error("render notification", slog.String("template", tmpl), slog.Any("err", err))
		d.metrics.RecordNotifierFailure("in_app")
		return
	}

	n := &models.Notification{
		UserID:    userID,
		Message:   r.InApp,
		Type:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if n.Message == "" {
		n.Message = r.Text
	}
	if _, err := d.notifications.CreateNotification(ctx, n); err != nil {
		d.logger.Error("create notification", slog.Int64("user_id", userID), slog.String("type", kind), slog.Any("err", err))
		d.metrics.RecordNotifierFailure("in_app")
	}

	if to == "" {
		return
	}
	d.send(ctx, Message{To: to, Subject: r.Subject, Text: r.Text, HTML: r.HTML}, tmpl)
}

func (d *Dispatcher) send(ctx context.Context, msg Message, tmpl string) bool {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.notifier.Send(sendCtx, msg); err != nil {
		d.logger.Warn("email not delivered",
			slog.String("to", msg.To),
			slog.String("template", tmpl),
			slog.Any("err", err),
		)
		d.metrics.RecordNotifierFailure("email")
		return false
	}
	return true
}
