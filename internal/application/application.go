// Package application implements the job application lifecycle: apply,
// status transitions, withdrawal and the notifications they trigger.
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/garnizeh/hirehub/internal/metrics"
	"github.com/garnizeh/hirehub/internal/notify"
	"github.com/garnizeh/hirehub/internal/validation"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository"
)

// Notifier records an in-app notification and emails the applicant. It
// never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind, to, tmpl string, data any)
}

type Options struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

type Service struct {
	applications repository.ApplicationRepo
	jobs         repository.JobRepo
	accounts     repository.AccountRepo
	notifier     Notifier
	logger       *slog.Logger
	metrics      metrics.Recorder
	now          func() time.Time
}

func NewService(applications repository.ApplicationRepo, jobs repository.JobRepo, accounts repository.AccountRepo, notifier Notifier, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		applications: applications,
		jobs:         jobs,
		accounts:     accounts,
		notifier:     notifier,
		logger:       opts.Logger,
		metrics:      metrics.OrNop(opts.Metrics),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

var transitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusApplied:     {models.StatusShortlisted, models.StatusAccepted, models.StatusRejected},
	models.StatusShortlisted: {models.StatusAccepted, models.StatusRejected},
}

// CanTransition reports whether an application may move from one status to
// another. Accepted and Rejected are terminal.
func CanTransition(from, to models.ApplicationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Apply creates an Applied application and then notifies the applicant.
func (s *Service) Apply(ctx context.Context, userID, jobID int64, resume string) (*models.Application, error) {
	if err := validation.Var("userId", userID, "gt=0"); err != nil {
		return nil, err
	}
	if err := validation.Var("jobId", jobID, "gt=0"); err != nil {
		return nil, err
	}
	if err := validation.Var("resume", resume, "max=2048"); err != nil {
		return nil, err
	}

	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, models.StorageErr("lookup job", err)
	}
	if job == nil {
		return nil, models.ErrJobNotFound
	}
	if !job.Open(s.now()) {
		return nil, models.ErrJobClosed
	}

	existing, err := s.applications.GetApplicationByUserAndJob(ctx, userID, jobID)
	if err != nil {
		return nil, models.StorageErr("lookup application", err)
	}
	if existing != nil {
		return nil, models.ErrDuplicateApplication
	}

	now := s.now()
	app := &models.Application{
		UserID:    userID,
		JobID:     jobID,
		Resume:    resume,
		Status:    models.StatusApplied,
		AppliedAt: now,
		UpdatedAt: now,
	}
	id, err := s.applications.CreateApplication(ctx, app)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, models.ErrDuplicateApplication
		}
		return nil, models.StorageErr("create application", err)
	}
	app.ID = id
	s.metrics.RecordApplication()
	s.logger.Info("application created", slog.Int64("application_id", id), slog.Int64("user_id", userID), slog.Int64("job_id", jobID))

	s.notifier.Notify(ctx, userID, models.NotificationApplication, s.applicantEmail(ctx, userID),
		notify.TemplateApplicationSubmitted, notify.ApplicationData{JobTitle: job.Title, JobID: job.ID})

	return app, nil
}

func (s *Service) applicantEmail(ctx context.Context, userID int64) string {
	acct, err := s.accounts.GetAccountByID(ctx, userID)
	if err != nil {
		s.logger.Warn("lookup applicant for email", slog.Int64("user_id", userID), slog.Any("err", err))
		return ""
	}
	if acct == nil {
		return ""
	}
	return acct.Email
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]models.ApplicationView, error) {
	list, err := s.applications.ListApplicationsByUser(ctx, userID)
	if err != nil {
		return nil, models.StorageErr("list applications", err)
	}
	return list, nil
}

func (s *Service) ListAll(ctx context.Context) ([]models.ApplicationView, error) {
	list, err := s.applications.ListAllApplications(ctx)
	if err != nil {
		return nil, models.StorageErr("list applications", err)
	}
	return list, nil
}

// ListForRecruiter returns the applications to every job the recruiter owns.
func (s *Service) ListForRecruiter(ctx context.Context, recruiterID int64) ([]models.ApplicationView, error) {
	list, err := s.applications.ListApplicationsByRecruiter(ctx, recruiterID)
	if err != nil {
		return nil, models.StorageErr("list applications", err)
	}
	return list, nil
}

// ListForJob returns the applicants of one job.
func (s *Service) ListForJob(ctx context.Context, jobID int64) ([]models.ApplicationView, error) {
	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, models.StorageErr("lookup job", err)
	}
	if job == nil {
		return nil, models.ErrJobNotFound
	}
	list, err := s.applications.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return nil, models.StorageErr("list applications", err)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.ApplicationView, error) {
	v, err := s.applications.GetApplicationByID(ctx, id)
	if err != nil {
		return nil, models.StorageErr("lookup application", err)
	}
	if v == nil {
		return nil, models.ErrApplicationNotFound
	}
	return v, nil
}

// UpdateStatus moves the application to newStatus, then records one
// notification and attempts one status-specific email.
func (s *Service) UpdateStatus(ctx context.Context, id int64, newStatus string) (*models.ApplicationView, error) {
	status := models.ApplicationStatus(newStatus)
	if !status.Valid() {
		return nil, models.NewValidationError("newStatus", "must be one of [Applied Shortlisted Accepted Rejected]")
	}

	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(v.Status, status) {
		return nil, models.ErrInvalidTransition
	}

	now := s.now()
	if err := s.applications.UpdateApplicationStatus(ctx, id, v.Status, status, now); err != nil {
		return nil, s.writeErr(ctx, id, "update application status", err)
	}
	from := v.Status
	v.Status = status
	v.UpdatedAt = now
	s.metrics.RecordStatusUpdate(string(status))
	s.logger.Info("application status updated", slog.Int64("application_id", id), slog.String("from", string(from)), slog.String("to", string(status)))

	s.notifier.Notify(ctx, v.UserID, models.NotificationStatus, v.Applicant.Email, notify.StatusTemplate(status), notify.ApplicationData{
		ApplicantName: v.Applicant.FullName,
		JobTitle:      v.Job.Title,
		JobID:         v.JobID,
		CompanyName:   v.Job.CompanyName,
		Status:        status,
	})

	return v, nil
}

// Withdraw deletes a non-terminal application and notifies the applicant.
func (s *Service) Withdraw(ctx context.Context, id int64) error {
	v, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if v.Status.Terminal() {
		return models.ErrInvalidTransition
	}

	if err := s.applications.WithdrawApplication(ctx, id); err != nil {
		return s.writeErr(ctx, id, "withdraw application", err)
	}
	s.logger.Info("application withdrawn", slog.Int64("application_id", id), slog.Int64("user_id", v.UserID))

	s.notifier.Notify(ctx, v.UserID, models.NotificationWithdrawn, v.Applicant.Email, notify.TemplateWithdrawn, notify.ApplicationData{
		ApplicantName: v.Applicant.FullName,
		JobTitle:      v.Job.Title,
		JobID:         v.JobID,
		CompanyName:   v.Job.CompanyName,
	})
	return nil
}

// writeErr explains a failed conditional write. A stale write means another
// request deleted the application or moved its status after it was read.
func (s *Service) writeErr(ctx context.Context, id int64, op string, err error) error {
	if !errors.Is(err, repository.ErrStale) {
		return models.StorageErr(op, err)
	}
	v, err := s.applications.GetApplicationByID(ctx, id)
	if err != nil {
		return models.StorageErr("lookup application", err)
	}
	if v == nil {
		return models.ErrApplicationNotFound
	}
	s.logger.Warn("application changed concurrently", slog.Int64("application_id", id), slog.String("status", string(v.Status)))
	return models.ErrInvalidTransition
}
