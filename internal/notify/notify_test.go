package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/garnizeh/hirehub/internal/notify"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository/mock"
)

func TestMain(m *testing.M) {
	defer goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
	os.Exit(m.Run())
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (c *captureNotifier) Send(ctx context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return c.err
}

type blockingNotifier struct{}

func (blockingNotifier) Send(ctx context.Context, msg notify.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRenderer_Templates(t *testing.T) {
	r, err := notify.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	data := notify.ApplicationData{JobTitle: "Go Dev", JobID: 42, Status: models.StatusRejected}
	tests := []struct {
		tmpl        string
		data        any
		subject     string
		textHas     string
		inApp       string
		wantHTMLHas string
	}{
		{notify.TemplateOTP, notify.OTPData{Code: "123456", TTLMinutes: 5}, "HireHub - Your OTP Code", "Your OTP code is: 123456", "", "123456"},
		{notify.TemplateApplicationSubmitted, data, "Job Application Confirmation", `"Go Dev" (Job ID: 42)`,
			`Your application for the position "Go Dev" (Job ID: 42) has been successfully submitted.`, "Go Dev"},
		{notify.TemplateStatusShortlisted, data, "You have been shortlisted for the next Round!", "(Go Dev)", "", ""},
		{notify.TemplateStatusRejected, data, "Update on your application", "not be moving forward", "", ""},
		{notify.TemplateStatusAccepted, data, "Your application has been accepted", "has been accepted", "", ""},
		{notify.TemplateStatusOther, data, "Your application status has changed", "is now Rejected", "", ""},
		{notify.TemplateWithdrawn, data, "Application withdrawn", "has been withdrawn", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.tmpl, func(t *testing.T) {
			got, err := r.Render(tc.tmpl, tc.data)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got.Subject != tc.subject {
				t.Errorf("subject = %q, want %q", got.Subject, tc.subject)
			}
			if !strings.Contains(got.Text, tc.textHas) {
				t.Errorf("text %q does not contain %q", got.Text, tc.textHas)
			}
			if tc.inApp != "" && got.InApp != tc.inApp {
				t.Errorf("inapp = %q, want %q", got.InApp, tc.inApp)
			}
			if tc.wantHTMLHas != "" && !strings.Contains(got.HTML, tc.wantHTMLHas) {
				t.Errorf("html %q does not contain %q", got.HTML, tc.wantHTMLHas)
			}
		})
	}

	if _, err := r.Render("missing", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestRenderer_HTMLEscapes(t *testing.T) {
	r := notify.MustRenderer()
	got, err := r.Render(notify.TemplateApplicationSubmitted, notify.ApplicationData{JobTitle: "<script>x</script>", JobID: 1})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(got.HTML, "<script>") {
		t.Fatalf("html body must escape job title: %q", got.HTML)
	}
}

func TestStatusTemplate(t *testing.T) {
	tests := map[models.ApplicationStatus]string{
		models.StatusShortlisted: notify.TemplateStatusShortlisted,
		models.StatusAccepted:    notify.TemplateStatusAccepted,
		models.StatusRejected:    notify.TemplateStatusRejected,
		models.StatusApplied:     notify.TemplateStatusOther,
	}
	for status, want := range tests {
		if got := notify.StatusTemplate(status); got != want {
			t.Errorf("StatusTemplate(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestDispatcher_Notify(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewRepo()
	n := &captureNotifier{}
	d := notify.NewDispatcher(n, repo, notify.DispatcherOptions{Logger: quiet})

	d.Notify(ctx, 7, models.NotificationApplication, "a@x.com", notify.TemplateApplicationSubmitted,
		notify.ApplicationData{JobTitle: "Go Dev", JobID: 42})

	list, _ := repo.ListNotificationsByUser(ctx, 7)
	if len(list) != 1 {
		t.Fatalf("notifications = %d, want 1", len(list))
	}
	if list[0].Type != models.NotificationApplication || !strings.Contains(list[0].Message, "Go Dev") {
		t.Fatalf("unexpected notification %#v", list[0])
	}
	if len(n.sent) != 1 || n.sent[0].To != "a@x.com" || n.sent[0].Subject != "Job Application Confirmation" {
		t.Fatalf("unexpected sends %#v", n.sent)
	}
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewRepo()
	repo.CreateNotificationErr = errors.New("disk full")
	n := &captureNotifier{err: errors.New("smtp down")}
	d := notify.NewDispatcher(n, repo, notify.DispatcherOptions{Logger: quiet})

	// the email is still attempted when the in-app write fails
	d.Notify(ctx, 1, models.NotificationStatus, "a@x.com", notify.TemplateStatusRejected, notify.ApplicationData{JobTitle: "X"})
	if len(n.sent) != 1 {
		t.Fatalf("expected one email attempt, got %d", len(n.sent))
	}

	if ok := d.Email(ctx, "a@x.com", notify.TemplateOTP, notify.OTPData{Code: "1"}); ok {
		t.Fatalf("Email should report failure")
	}
}

func TestDispatcher_EmptyRecipientSkipsEmail(t *testing.T) {
	repo := mock.NewRepo()
	n := &captureNotifier{}
	d := notify.NewDispatcher(n, repo, notify.DispatcherOptions{Logger: quiet})

	d.Notify(context.Background(), 3, models.NotificationWithdrawn, "", notify.TemplateWithdrawn, notify.ApplicationData{JobTitle: "X", JobID: 1})
	if len(n.sent) != 0 {
		t.Fatalf("expected no email, got %d", len(n.sent))
	}
	list, _ := repo.ListNotificationsByUser(context.Background(), 3)
	if len(list) != 1 {
		t.Fatalf("expected in-app notification")
	}
}

func TestDispatcher_Timeout(t *testing.T) {
	d := notify.NewDispatcher(blockingNotifier{}, mock.NewRepo(), notify.DispatcherOptions{Timeout: 20 * time.Millisecond, Logger: quiet})

	start := time.Now()
	if ok := d.Email(context.Background(), "a@x.com", notify.TemplateOTP, notify.OTPData{Code: "1"}); ok {
		t.Fatalf("expected timeout to count as failure")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("send was not bounded by the timeout")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf strings.Builder
	n := notify.NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	if err := n.Send(context.Background(), notify.Message{}); !errors.Is(err, notify.ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if err := n.Send(context.Background(), notify.Message{To: "a@x.com", Subject: "s", Text: "code 123456"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "123456") {
		t.Fatalf("log should contain the body, got %s", buf.String())
	}
}

func TestSendGridNotifier(t *testing.T) {
	var (
		mu      sync.Mutex
		payload map[string]any
		auth    string
	)
	status := http.StatusAccepted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Path != "/v3/mail/send" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	if _, err := notify.NewSendGridNotifier(notify.SendGridOptions{FromEmail: "x@y"}); err == nil {
		t.Fatalf("expected error for missing api key")
	}

	n, err := notify.NewSendGridNotifier(notify.SendGridOptions{
		APIKey: "SG.test", FromEmail: "noreply@hirehub.dev", FromName: "HireHub", Sandbox: true, BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewSendGridNotifier: %v", err)
	}

	if err := n.Send(context.Background(), notify.Message{To: "a@x.com", Subject: "Hi", Text: "body"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	mu.Lock()
	if auth != "Bearer SG.test" {
		t.Errorf("authorization = %q", auth)
	}
	if payload["subject"] != "Hi" {
		t.Errorf("subject = %v", payload["subject"])
	}
	if _, ok := payload["mail_settings"]; !ok {
		t.Errorf("expected sandbox mail settings in payload")
	}
	status = http.StatusBadRequest
	mu.Unlock()

	if err := n.Send(context.Background(), notify.Message{To: "a@x.com", Subject: "Hi", Text: "body"}); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}
