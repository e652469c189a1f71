package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/garnizeh/hirehub/internal/application"
	"github.com/garnizeh/hirehub/internal/notify"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository/mock"
)

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

type fixture struct {
	svc  *application.Service
	repo *mock.Repo
	mail *captureNotifier
}

func newFixture() *fixture {
	repo := mock.NewRepo()
	repo.PutAccount(models.Account{ID: 1, FullName: "Alice", Email: "a@x.com", Role: models.RoleSeeker, Active: true})
	repo.PutJob(models.Job{ID: 42, RecruiterID: 7, CompanyID: 3, Title: "Go Developer", Active: true})

	mail := &captureNotifier{}
	d := notify.NewDispatcher(mail, repo, notify.DispatcherOptions{Logger: quiet})
	return &fixture{
		svc:  application.NewService(repo, repo, repo, d, application.Options{Logger: quiet}),
		repo: repo,
		mail: mail,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.ApplicationStatus
		want     bool
	}{
		{models.StatusApplied, models.StatusShortlisted, true},
		{models.StatusApplied, models.StatusAccepted, true},
		{models.StatusApplied, models.StatusRejected, true},
		{models.StatusShortlisted, models.StatusAccepted, true},
		{models.StatusShortlisted, models.StatusRejected, true},
		{models.StatusApplied, models.StatusApplied, false},
		{models.StatusShortlisted, models.StatusApplied, false},
		{models.StatusAccepted, models.StatusRejected, false},
		{models.StatusRejected, models.StatusAccepted, false},
		{models.StatusAccepted, models.StatusShortlisted, false},
	}
	for _, tc := range tests {
		if got := application.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	app, err := f.svc.Apply(ctx, 1, 42, "resume.pdf")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if app.Status != models.StatusApplied || app.ID == 0 || app.AppliedAt.IsZero() {
		t.Fatalf("unexpected application %#v", app)
	}

	notes, _ := f.repo.ListNotificationsByUser(ctx, 1)
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}
	want := `Your application for the position "Go Developer" (Job ID: 42) has been successfully submitted.`
	if notes[0].Message != want || notes[0].Type != models.NotificationApplication {
		t.Fatalf("notification = %#v", notes[0])
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0].Subject != "Job Application Confirmation" || f.mail.sent[0].To != "a@x.com" {
		t.Fatalf("unexpected emails %#v", f.mail.sent)
	}

	if _, err := f.svc.Apply(ctx, 1, 42, ""); !errors.Is(err, models.ErrDuplicateApplication) {
		t.Fatalf("duplicate apply err = %v", err)
	}
	if _, err := f.svc.Apply(ctx, 1, 999, ""); !errors.Is(err, models.ErrJobNotFound) {
		t.Fatalf("missing job err = %v", err)
	}
	if _, err := f.svc.Apply(ctx, 0, 42, ""); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("zero user err = %v", err)
	}
}

func TestApply_SideEffectFailuresKeepApplication(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.mail.err = errors.New("smtp down")
	f.repo.CreateNotificationErr = errors.New("disk full")

	app, err := f.svc.Apply(ctx, 1, 42, "")
	if err != nil {
		t.Fatalf("Apply should succeed despite side-effect failures: %v", err)
	}
	list, _ := f.svc.ListForUser(ctx, 1)
	if len(list) != 1 || list[0].ID != app.ID {
		t.Fatalf("application should be persisted, got %#v", list)
	}
}

func TestApply_StorageError(t *testing.T) {
	f := newFixture()
	f.repo.GetJobErr = errors.New("db locked")
	if _, err := f.svc.Apply(context.Background(), 1, 42, ""); !errors.Is(err, models.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
}

func TestApplyThenAcceptEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	app, err := f.svc.Apply(ctx, 1, 42, "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, app.ID, "Accepted"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	list, err := f.svc.ListForUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 1 || list[0].Status != models.StatusAccepted {
		t.Fatalf("expected one Accepted row, got %#v", list)
	}
}

func TestUpdateStatus_Rejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	app, _ := f.svc.Apply(ctx, 1, 42, "")
	before, _ := f.svc.Get(ctx, app.ID)
	f.mail.sent = nil

	v, err := f.svc.UpdateStatus(ctx, app.ID, "Rejected")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if v.Status != models.StatusRejected || v.UpdatedAt.Before(before.UpdatedAt) {
		t.Fatalf("unexpected view %#v", v)
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0].Subject != "Update on your application" {
		t.Fatalf("expected exactly one Rejected email, got %#v", f.mail.sent)
	}

	notes, _ := f.repo.ListNotificationsByUser(ctx, 1)
	var statusNotes int
	for _, n := range notes {
		if n.Type == models.NotificationStatus {
			statusNotes++
		}
	}
	if statusNotes != 1 {
		t.Fatalf("status notifications = %d, want 1", statusNotes)
	}
}

func TestUpdateStatus_NotifierFailureKeepsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	app, _ := f.svc.Apply(ctx, 1, 42, "")
	f.mail.err = errors.New("smtp down")

	if _, err := f.svc.UpdateStatus(ctx, app.ID, "Rejected"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	v, _ := f.svc.Get(ctx, app.ID)
	if v.Status != models.StatusRejected {
		t.Fatalf("status = %s, want Rejected", v.Status)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	app, _ := f.svc.Apply(ctx, 1, 42, "")

	if _, err := f.svc.UpdateStatus(ctx, app.ID, "Hired"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("unknown status err = %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, 999, "Accepted"); !errors.Is(err, models.ErrApplicationNotFound) {
		t.Fatalf("missing application err = %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, app.ID, "Applied"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("self transition err = %v", err)
	}

	f.repo.UpdateStatusErr = errors.New("db locked")
	if _, err := f.svc.UpdateStatus(ctx, app.ID, "Shortlisted"); !errors.Is(err, models.ErrStorage) {
		t.Fatalf("storage err = %v", err)
	}
	f.repo.UpdateStatusErr = nil

	if _, err := f.svc.UpdateStatus(ctx, app.ID, "Shortlisted"); err != nil {
		t.Fatalf("Shortlisted: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, app.ID, "Accepted"); err != nil {
		t.Fatalf("Accepted: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, app.ID, "Rejected"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("terminal transition err = %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	app, _ := f.svc.Apply(ctx, 1, 42, "")

	if err := f.svc.Withdraw(ctx, app.ID); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	list, _ := f.svc.ListForUser(ctx, 1)
	if len(list) != 0 {
		t.Fatalf("withdrawn application still listed: %#v", list)
	}

	notes, _ := f.repo.ListNotificationsByUser(ctx, 1)
	var withdrawn int
	for _, n := range notes {
		if n.Type == models.NotificationWithdrawn {
			withdrawn++
		}
	}
	if withdrawn != 1 {
		t.Fatalf("withdrawal notifications = %d, want 1", withdrawn)
	}

	if err := f.svc.Withdraw(ctx, app.ID); !errors.Is(err, models.ErrApplicationNotFound) {
		t.Fatalf("second withdraw err = %v", err)
	}
}

func TestWithdraw_TerminalRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	app, _ := f.svc.Apply(ctx, 1, 42, "")
	_, _ = f.svc.UpdateStatus(ctx, app.ID, "Accepted")

	if err := f.svc.Withdraw(ctx, app.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestListAllAndForJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.PutAccount(models.Account{ID: 2, FullName: "Bob", Email: "b@x.com", Role: models.RoleSeeker, Active: true})
	_, _ = f.svc.Apply(ctx, 1, 42, "")
	_, _ = f.svc.Apply(ctx, 2, 42, "")

	all, err := f.svc.ListAll(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListAll: %d, %v", len(all), err)
	}
	byJob, err := f.svc.ListForJob(ctx, 42)
	if err != nil || len(byJob) != 2 {
		t.Fatalf("ListForJob: %d, %v", len(byJob), err)
	}
	if byJob[0].Job.Title != "Go Developer" {
		t.Fatalf("expected job summary, got %#v", byJob[0].Job)
	}
	if _, err := f.svc.ListForJob(ctx, 404); !errors.Is(err, models.ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func TestApply_ClosedJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)
	f.repo.PutJob(models.Job{ID: 43, RecruiterID: 7, Title: "Paused", Active: false})
	f.repo.PutJob(models.Job{ID: 44, RecruiterID: 7, Title: "Expired", Active: true, ClosingAt: &past})
	f.repo.PutJob(models.Job{ID: 45, RecruiterID: 7, Title: "Open", Active: true, ClosingAt: &future})

	tests := []struct {
		name  string
		jobID int64
		want  error
	}{
		{"inactive", 43, models.ErrJobClosed},
		{"closing date passed", 44, models.ErrJobClosed},
		{"closing date ahead", 45, nil},
		{"no closing date", 42, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Apply(ctx, 1, tc.jobID, "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("Apply(job %d) err = %v, want %v", tc.jobID, err, tc.want)
			}
		})
	}

	list, _ := f.svc.ListForUser(ctx, 1)
	if len(list) != 2 {
		t.Fatalf("applications = %d, want 2", len(list))
	}
	notes, _ := f.repo.ListNotificationsByUser(ctx, 1)
	if len(notes) != 2 {
		t.Fatalf("notifications = %d, want 2", len(notes))
	}
}

// racingRepo runs change once, right after the service has read the
// application and before it writes.
type racingRepo struct {
	*mock.Repo
	once   sync.Once
	change func()
}

func (r *racingRepo) GetApplicationByID(ctx context.Context, id int64) (*models.ApplicationView, error) {
	v, err := r.Repo.GetApplicationByID(ctx, id)
	r.once.Do(r.change)
	return v, err
}

func TestConcurrentChangeWinsOverStaleWrite(t *testing.T) {
	tests := []struct {
		name   string
		change func(ctx context.Context, repo *mock.Repo, id int64)
		act    func(ctx context.Context, svc *application.Service, id int64) error
		want   error
		after  models.ApplicationStatus
	}{
		{
			name: "update after delete",
			change: func(ctx context.Context, repo *mock.Repo, id int64) {
				_ = repo.WithdrawApplication(ctx, id)
			},
			act: func(ctx context.Context, svc *application.Service, id int64) error {
				_, err := svc.UpdateStatus(ctx, id, "Rejected")
				return err
			},
			want: models.ErrApplicationNotFound,
		},
		{
			name: "reject after accept",
			change: func(ctx context.Context, repo *mock.Repo, id int64) {
				_ = repo.UpdateApplicationStatus(ctx, id, models.StatusApplied, models.StatusAccepted, time.Now())
			},
			act: func(ctx context.Context, svc *application.Service, id int64) error {
				_, err := svc.UpdateStatus(ctx, id, "Rejected")
				return err
			},
			want:  models.ErrInvalidTransition,
			after: models.StatusAccepted,
		},
		{
			name: "withdraw after accept",
			change: func(ctx context.Context, repo *mock.Repo, id int64) {
				_ = repo.UpdateApplicationStatus(ctx, id, models.StatusApplied, models.StatusAccepted, time.Now())
			},
			act: func(ctx context.Context, svc *application.Service, id int64) error {
				return svc.Withdraw(ctx, id)
			},
			want:  models.ErrInvalidTransition,
			after: models.StatusAccepted,
		},
		{
			name: "withdraw after delete",
			change: func(ctx context.Context, repo *mock.Repo, id int64) {
				_ = repo.WithdrawApplication(ctx, id)
			},
			act: func(ctx context.Context, svc *application.Service, id int64) error {
				return svc.Withdraw(ctx, id)
			},
			want: models.ErrApplicationNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			app, err := f.svc.Apply(ctx, 1, 42, "")
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			f.mail.sent = nil

			racing := &racingRepo{Repo: f.repo}
			racing.change = func() { tc.change(ctx, f.repo, app.ID) }
			d := notify.NewDispatcher(f.mail, f.repo, notify.DispatcherOptions{Logger: quiet})
			svc := application.NewService(racing, f.repo, f.repo, d, application.Options{Logger: quiet})

			if err := tc.act(ctx, svc, app.ID); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if len(f.mail.sent) != 0 {
				t.Fatalf("stale write sent email %#v", f.mail.sent)
			}
			notes, _ := f.repo.ListNotificationsByUser(ctx, 1)
			if len(notes) != 1 || notes[0].Type != models.NotificationApplication {
				t.Fatalf("stale write recorded notifications %#v", notes)
			}

			v, _ := f.repo.GetApplicationByID(ctx, app.ID)
			switch {
			case tc.after == "" && v != nil:
				t.Fatalf("application reappeared: %#v", v)
			case tc.after != "" && (v == nil || v.Status != tc.after):
				t.Fatalf("application = %#v, want status %s", v, tc.after)
			}
		})
	}
}

func TestListForRecruiter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.repo.PutJob(models.Job{ID: 50, RecruiterID: 8, Title: "Elsewhere", Active: true})
	_, _ = f.svc.Apply(ctx, 1, 42, "")
	_, _ = f.svc.Apply(ctx, 1, 50, "")

	tests := []struct {
		recruiter int64
		want      int64
	}{
		{7, 42},
		{8, 50},
	}
	for _, tc := range tests {
		list, err := f.svc.ListForRecruiter(ctx, tc.recruiter)
		if err != nil {
			t.Fatalf("ListForRecruiter(%d): %v", tc.recruiter, err)
		}
		if len(list) != 1 || list[0].JobID != tc.want {
			t.Fatalf("ListForRecruiter(%d) = %#v", tc.recruiter, list)
		}
	}
}

func TestEveryReachableStatusHasItsOwnEmail(t *testing.T) {
	all := []models.ApplicationStatus{models.StatusApplied, models.StatusShortlisted, models.StatusAccepted, models.StatusRejected}
	for _, from := range all {
		for _, to := range all {
			if application.CanTransition(from, to) && notify.StatusTemplate(to) == notify.TemplateStatusOther {
				t.Errorf("%s -> %s falls back to the generic status email", from, to)
			}
		}
	}
}
