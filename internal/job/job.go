// Package job manages job postings owned by recruiters.
package job

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/hirehub/internal/validation"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository"
)

//go:embed schema/job_update.json
var updateSchemaJSON []byte

// Input is the body of a new job posting.
type Input struct {
	Title              string     `json:"title" validate:"required,max=200"`
	Description        string     `json:"description" validate:"max=20000"`
	CTC                string     `json:"ctc" validate:"max=100"`
	Location           string     `json:"location" validate:"max=200"`
	ClosingAt          *time.Time `json:"closing_at"`
	Eligibility        string     `json:"eligibility" validate:"max=2000"`
	EmploymentType     string     `json:"employment_type" validate:"max=100"`
	ExperienceRequired string     `json:"experience_required" validate:"max=100"`
}

// Page size bounds for Search.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Query is a job search. Page counts from 1; zero values take the defaults.
type Query struct {
	Title          string `json:"job_title" validate:"max=200"`
	Location       string `json:"location" validate:"max=200"`
	EmploymentType string `json:"employment_type" validate:"max=100"`
	Company        string `json:"company_name" validate:"max=200"`
	Page           int    `json:"page" validate:"gte=0"`
	Limit          int    `json:"limit" validate:"gte=0,lte=100"`
}

// patch mirrors schema/job_update.json. ClosingAt stays raw so an explicit
// null can clear the date.
type patch struct {
	Title              *string         `json:"title"`
	Description        *string         `json:"description"`
	CTC                *string         `json:"ctc"`
	Location           *string         `json:"location"`
	ClosingAt          json.RawMessage `json:"closing_at"`
	Eligibility        *string         `json:"eligibility"`
	EmploymentType     *string         `json:"employment_type"`
	ExperienceRequired *string         `json:"experience_required"`
	Active             *bool           `json:"active"`
}

type Options struct {
	Logger *slog.Logger
}

type Service struct {
	jobs       repository.JobRepo
	recruiters repository.RecruiterRepo
	schema     *jsonschema.Schema
	policy     *bluemonday.Policy
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(jobs repository.JobRepo, recruiters repository.RecruiterRepo, opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(updateSchemaJSON, rs); err != nil {
		return nil, fmt.Errorf("compile job update schema: %w", err)
	}
	return &Service{
		jobs:       jobs,
		recruiters: recruiters,
		schema:     rs,
		policy:     bluemonday.UGCPolicy(),
		logger:     opts.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Post creates an active job for the recruiter's company.
func (s *Service) Post(ctx context.Context, recruiterID int64, in Input) (*models.Job, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	rec, err := s.recruiters.GetRecruiterByID(ctx, recruiterID)
	if err != nil {
		return nil, models.StorageErr("lookup recruiter", err)
	}
	if rec == nil {
		return nil, models.ErrRecruiterNotFound
	}

	j := &models.Job{
		RecruiterID:        rec.ID,
		CompanyID:          rec.CompanyID,
		Title:              strings.TrimSpace(in.Title),
		Description:        s.policy.Sanitize(in.Description),
		CTC:                in.CTC,
		Location:           in.Location,
		PostedAt:           s.now(),
		ClosingAt:          in.ClosingAt,
		Eligibility:        in.Eligibility,
		EmploymentType:     in.EmploymentType,
		ExperienceRequired: in.ExperienceRequired,
		Active:             true,
	}
	id, err := s.jobs.CreateJob(ctx, j)
	if err != nil {
		return nil, models.StorageErr("create job", err)
	}
	j.ID = id
	s.logger.Info("job posted", slog.Int64("job_id", id), slog.Int64("recruiter_id", rec.ID))
	return j, nil
}

// Update applies a partial JSON document to the job. Unknown fields are
// rejected by the update schema.
func (s *Service) Update(ctx context.Context, jobID int64, body []byte) (*models.Job, error) {
	verrs, err := s.schema.ValidateBytes(ctx, body)
	if err != nil {
		return nil, models.NewValidationError("body", "must be a JSON object")
	}
	if len(verrs) > 0 {
		field := strings.TrimPrefix(verrs[0].PropertyPath, "/")
		return nil, models.NewValidationError(field, verrs[0].Message)
	}

	var p patch
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, models.NewValidationError("body", "must be a JSON object")
	}

	j, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(j, &p); err != nil {
		return nil, err
	}
	if err := s.jobs.UpdateJob(ctx, j); err != nil {
		return nil, models.StorageErr("update job", err)
	}
	s.logger.Info("job updated", slog.Int64("job_id", j.ID))
	return j, nil
}

func (s *Service) apply(j *models.Job, p *patch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return models.NewValidationError("title", "is required")
		}
		j.Title = title
	}
	if p.Description != nil {
		j.Description = s.policy.Sanitize(*p.Description)
	}
	if p.CTC != nil {
		j.CTC = *p.CTC
	}
	if p.Location != nil {
		j.Location = *p.Location
	}
	if len(p.ClosingAt) > 0 {
		if bytes.Equal(p.ClosingAt, []byte("null")) {
			j.ClosingAt = nil
		} else {
			var t time.Time
			if err := json.Unmarshal(p.ClosingAt, &t); err != nil {
				return models.NewValidationError("closing_at", "must be an RFC 3339 timestamp")
			}
			j.ClosingAt = &t
		}
	}
	if p.Eligibility != nil {
		j.Eligibility = *p.Eligibility
	}
	if p.EmploymentType != nil {
		j.EmploymentType = *p.EmploymentType
	}
	if p.ExperienceRequired != nil {
		j.ExperienceRequired = *p.ExperienceRequired
	}
	if p.Active != nil {
		j.Active = *p.Active
	}
	return nil
}

// Delete removes the job together with its applications.
func (s *Service) Delete(ctx context.Context, jobID int64) error {
	if _, err := s.Get(ctx, jobID); err != nil {
		return err
	}
	if err := s.jobs.DeleteJob(ctx, jobID); err != nil {
		return models.StorageErr("delete job", err)
	}
	s.logger.Info("job deleted", slog.Int64("job_id", jobID))
	return nil
}

func (s *Service) Get(ctx context.Context, jobID int64) (*models.Job, error) {
	j, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, models.StorageErr("lookup job", err)
	}
	if j == nil {
		return nil, models.ErrJobNotFound
	}
	return j, nil
}

func (s *Service) ListByRecruiter(ctx context.Context, recruiterID int64) ([]models.Job, error) {
	list, err := s.jobs.ListJobsByRecruiter(ctx, recruiterID)
	if err != nil {
		return nil, models.StorageErr("list jobs", err)
	}
	return list, nil
}

// Search pages through jobs matching q, newest first.
func (s *Service) Search(ctx context.Context, q Query) ([]models.Job, error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	list, err := s.jobs.SearchJobs(ctx, models.JobFilter{
		Title:          q.Title,
		Location:       q.Location,
		EmploymentType: q.EmploymentType,
		Company:        q.Company,
		Limit:          q.Limit,
		Offset:         (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return nil, models.StorageErr("search jobs", err)
	}
	return list, nil
}
