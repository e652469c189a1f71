package repository

import (
	"context"
	"errors"
	"time"

	"github.com/garnizeh/hirehub/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Single-row lookups return (nil, nil) when the row does not exist.

type AccountRepo interface {
	CreateAccount(ctx context.Context, a *models.Account) (int64, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetAccountActive(ctx context.Context, id int64, active bool) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	// DeleteAccount removes the account and everything hanging off it in one
	// transaction: its applications and notifications, and when it is a
	// recruiter the recruiter's jobs, their applications and the recruiter row.
	DeleteAccount(ctx context.Context, id int64) error
}

type CompanyRepo interface {
	GetCompanyByID(ctx context.Context, id int64) (*models.Company, error)
	GetCompanyByName(ctx context.Context, name string) (*models.Company, error)
}

type RecruiterRepo interface {
	// CreateRecruiterAccount stores the account, looks up or creates the
	// company by name and links them, all in one transaction.
	CreateRecruiterAccount(ctx context.Context, a *models.Account, c *models.Company) (*models.Recruiter, error)
	GetRecruiterByID(ctx context.Context, id int64) (*models.Recruiter, error)
	GetRecruiterByAccountID(ctx context.Context, accountID int64) (*models.Recruiter, error)
	ListRecruiters(ctx context.Context) ([]models.Recruiter, error)
	// DeleteRecruiter removes the applications to the recruiter's jobs, the
	// jobs and then the recruiter row. The login account is kept.
	DeleteRecruiter(ctx context.Context, id int64) error
}

type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) (int64, error)
	GetJobByID(ctx context.Context, id int64) (*models.Job, error)
	UpdateJob(ctx context.Context, j *models.Job) error
	// DeleteJob removes the job's applications and then the job itself.
	DeleteJob(ctx context.Context, id int64) error
	ListJobsByRecruiter(ctx context.Context, recruiterID int64) ([]models.Job, error)
	SearchJobs(ctx context.Context, f models.JobFilter) ([]models.Job, error)
}

type ApplicationRepo interface {
	CreateApplication(ctx context.Context, a *models.Application) (int64, error)
	GetApplicationByID(ctx context.Context, id int64) (*models.ApplicationView, error)
	GetApplicationByUserAndJob(ctx context.Context, userID, jobID int64) (*models.Application, error)
	// UpdateApplicationStatus moves the application from one status to
	// another. It returns ErrStale when the row is gone or no longer in from.
	UpdateApplicationStatus(ctx context.Context, id int64, from, to models.ApplicationStatus, updatedAt time.Time) error
	// WithdrawApplication deletes the application while it is Applied or
	// Shortlisted, and returns ErrStale otherwise.
	WithdrawApplication(ctx context.Context, id int64) error
	ListApplicationsByUser(ctx context.Context, userID int64) ([]models.ApplicationView, error)
	ListApplicationsByJob(ctx context.Context, jobID int64) ([]models.ApplicationView, error)
	ListApplicationsByRecruiter(ctx context.Context, recruiterID int64) ([]models.ApplicationView, error)
	ListAllApplications(ctx context.Context) ([]models.ApplicationView, error)
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *models.Notification) (int64, error)
	GetNotificationByID(ctx context.Context, id int64) (*models.Notification, error)
	ListNotificationsByUser(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkNotificationSeen(ctx context.Context, id int64) error
}

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("repository: unique constraint violated")

// ErrStale is returned by conditional writes that matched no row.
var ErrStale = errors.New("repository: row missing or changed")
