package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/hirehub/pkg/models"
)

// applicationViewSelect joins each application with its applicant and job
// summaries. Company and recruiter joins are outer so a half-populated job
// still lists.
const applicationViewSelect = `SELECT a.id, a.user_id, a.job_id, a.resume, a.status, a.applied_at, a.updated_at,
	u.id, u.full_name, u.email,
	j.id, j.title, j.recruiter_id, ru.full_name, j.company_id, c.name, j.posted_at, j.closing_at
FROM applications a
JOIN accounts u ON u.id = a.user_id
JOIN jobs j ON j.id = a.job_id
LEFT JOIN companies c ON c.id = j.company_id
LEFT JOIN recruiters r ON r.id = j.recruiter_id
LEFT JOIN accounts ru ON ru.id = r.account_id`

const applicationViewOrder = ` ORDER BY a.applied_at DESC, a.id DESC`

func scanApplicationView(row rowScanner) (*models.ApplicationView, error) {
	var (
		v                     models.ApplicationView
		resume                sql.NullString
		status                string
		applied, updated      int64
		recruiterName, compNm sql.NullString
		posted                int64
		closing               sql.NullInt64
	)
	err := row.Scan(
		&v.ID, &v.UserID, &v.JobID, &resume, &status, &applied, &updated,
		&v.Applicant.ID, &v.Applicant.FullName, &v.Applicant.Email,
		&v.Job.ID, &v.Job.Title, &v.Job.RecruiterID, &recruiterName, &v.Job.CompanyID, &compNm, &posted, &closing,
	)
	if err != nil {
		return nil, err
	}
	v.Resume = resume.String
	v.Status = models.ApplicationStatus(status)
	v.AppliedAt = fromMillis(applied)
	v.UpdatedAt = fromMillis(updated)
	v.Job.Recruiter = recruiterName.String
	v.Job.CompanyName = compNm.String
	v.Job.PostedAt = fromMillis(posted)
	v.Job.ClosingAt = timePtr(closing)
	return &v, nil
}

func (r *SQLiteRepo) listApplicationViews(ctx context.Context, where string, args ...any) ([]models.ApplicationView, error) {
	rows, err := r.conn.QueryRows(ctx, applicationViewSelect+where+applicationViewOrder, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ApplicationView{}
	for rows.Next() {
		v, err := scanApplicationView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) CreateApplication(ctx context.Context, a *models.Application) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("application is nil")
	}

	applied := toMillis(a.AppliedAt)
	updated := applied
	if !a.UpdatedAt.IsZero() {
		updated = toMillis(a.UpdatedAt)
	}
	res, err := r.conn.Exec(ctx,
		`INSERT INTO applications (user_id, job_id, resume, status, applied_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.JobID, a.Resume, string(a.Status), applied, updated)
	if err != nil {
		return 0, mapWriteErr(err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetApplicationByID(ctx context.Context, id int64) (*models.ApplicationView, error) {
	v, err := scanApplicationView(r.conn.QueryRow(ctx, applicationViewSelect+` WHERE a.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func (r *SQLiteRepo) GetApplicationByUserAndJob(ctx context.Context, userID, jobID int64) (*models.Application, error) {
	var (
		a                models.Application
		resume           sql.NullString
		status           string
		applied, updated int64
	)
	err := r.conn.QueryRow(ctx,
		`SELECT id, user_id, job_id, resume, status, applied_at, updated_at FROM applications WHERE user_id = ? AND job_id = ?`,
		userID, jobID).Scan(&a.ID, &a.UserID, &a.JobID, &resume, &status, &applied, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Resume = resume.String
	a.Status = models.ApplicationStatus(status)
	a.AppliedAt = fromMillis(applied)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func (r *SQLiteRepo) UpdateApplicationStatus(ctx context.Context, id int64, from, to models.ApplicationStatus, updatedAt time.Time) error {
	res, err := r.conn.Exec(ctx, `UPDATE applications SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), toMillis(updatedAt), id, string(from))
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *SQLiteRepo) WithdrawApplication(ctx context.Context, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM applications WHERE id = ? AND status IN (?, ?)`,
		id, string(models.StatusApplied), string(models.StatusShortlisted))
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *SQLiteRepo) ListApplicationsByUser(ctx context.Context, userID int64) ([]models.ApplicationView, error) {
	return r.listApplicationViews(ctx, ` WHERE a.user_id = ?`, userID)
}

func (r *SQLiteRepo) ListApplicationsByJob(ctx context.Context, jobID int64) ([]models.ApplicationView, error) {
	return r.listApplicationViews(ctx, ` WHERE a.job_id = ?`, jobID)
}

func (r *SQLiteRepo) ListApplicationsByRecruiter(ctx context.Context, recruiterID int64) ([]models.ApplicationView, error) {
	return r.listApplicationViews(ctx, ` WHERE j.recruiter_id = ?`, recruiterID)
}

func (r *SQLiteRepo) ListAllApplications(ctx context.Context) ([]models.ApplicationView, error) {
	return r.listApplicationViews(ctx, "")
}
