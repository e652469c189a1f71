package models

import "time"

// Domain models matching the database schema in db/migrations/0001_init.sql

type Role string

const (
	RoleSeeker    Role = "seeker"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSeeker, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

type Account struct {
	ID           int64     `json:"id" db:"id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Phone        string    `json:"mobile_no,omitempty" db:"phone"`
	WorkStatus   string    `json:"work_status,omitempty" db:"work_status"`
	Role         Role      `json:"role" db:"role"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Company struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Info     string `json:"info,omitempty" db:"info"`
	Location string `json:"location,omitempty" db:"location"`
	Industry string `json:"industry,omitempty" db:"industry"`
	Website  string `json:"website,omitempty" db:"website"`
}

type Recruiter struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"account_id" db:"account_id"`
	CompanyID int64     `json:"company_id" db:"company_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Populated by joined queries.
	FullName    string `json:"full_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
	CompanyName string `json:"company_name,omitempty"`
}

type Job struct {
	ID                 int64      `json:"id" db:"id"`
	RecruiterID        int64      `json:"recruiter_id" db:"recruiter_id"`
	CompanyID          int64      `json:"company_id" db:"company_id"`
	Title              string     `json:"title" db:"title"`
	Description        string     `json:"description,omitempty" db:"description"`
	CTC                string     `json:"ctc,omitempty" db:"ctc"`
	Location           string     `json:"location,omitempty" db:"location"`
	PostedAt           time.Time  `json:"posted_at" db:"posted_at"`
	ClosingAt          *time.Time `json:"closing_at,omitempty" db:"closing_at"`
	Eligibility        string     `json:"eligibility,omitempty" db:"eligibility"`
	EmploymentType     string     `json:"employment_type,omitempty" db:"employment_type"`
	ExperienceRequired string     `json:"experience_required,omitempty" db:"experience_required"`
	Active             bool       `json:"active" db:"active"`

	// Populated by search queries.
	CompanyName string `json:"company_name,omitempty"`
}

// Open reports whether the job still takes applications at now.
func (j *Job) Open(now time.Time) bool {
	if !j.Active {
		return false
	}
	return j.ClosingAt == nil || now.Before(*j.ClosingAt)
}

// JobFilter narrows a job search. Text fields match case-insensitively as
// substrings; empty fields match everything.
type JobFilter struct {
	Title          string
	Location       string
	EmploymentType string
	Company        string
	Limit          int
	Offset         int
}

type ApplicationStatus string

const (
	StatusApplied     ApplicationStatus = "Applied"
	StatusShortlisted ApplicationStatus = "Shortlisted"
	StatusAccepted    ApplicationStatus = "Accepted"
	StatusRejected    ApplicationStatus = "Rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusShortlisted, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition (including withdrawal) is allowed.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

type Application struct {
	ID        int64             `json:"id" db:"id"`
	UserID    int64             `json:"user_id" db:"user_id"`
	JobID     int64             `json:"job_id" db:"job_id"`
	Resume    string            `json:"resume,omitempty" db:"resume"`
	Status    ApplicationStatus `json:"status" db:"status"`
	AppliedAt time.Time         `json:"applied_at" db:"applied_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// ApplicationView is an Application joined with the summaries the list and
// detail endpoints return.
type ApplicationView struct {
	Application
	Applicant ApplicantSummary `json:"user"`
	Job       JobSummary       `json:"job"`
}

type ApplicantSummary struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type JobSummary struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	RecruiterID int64      `json:"recruiter_id"`
	Recruiter   string     `json:"recruiter_name,omitempty"`
	CompanyID   int64      `json:"company_id"`
	CompanyName string     `json:"company_name,omitempty"`
	PostedAt    time.Time  `json:"posted_at"`
	ClosingAt   *time.Time `json:"closing_at,omitempty"`
}

type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Seen      bool      `json:"seen" db:"seen"`
}

const (
	NotificationApplication = "Application"
	NotificationStatus      = "StatusUpdate"
	NotificationWithdrawn   = "Withdrawn"
)
