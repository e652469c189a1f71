package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/hirehub/pkg/models"
)

const jobColumns = `id, recruiter_id, company_id, title, description, ctc, location, posted_at, closing_at, eligibility, employment_type, experience_required, active`

// jobSearchSelect qualifies jobColumns for the company join.
const jobSearchSelect = `SELECT j.id, j.recruiter_id, j.company_id, j.title, j.description, j.ctc, j.location, j.posted_at, j.closing_at, j.eligibility, j.employment_type, j.experience_required, j.active, c.name
FROM jobs j
LEFT JOIN companies c ON c.id = j.company_id`

// scanJob reads jobColumns, followed by any extra destinations.
func scanJob(row rowScanner, extra ...any) (*models.Job, error) {
	var (
		j       models.Job
		posted  int64
		closing sql.NullInt64
		active  int
	)
	var description, ctc, location, eligibility, empType, exp sql.NullString
	dest := []any{&j.ID, &j.RecruiterID, &j.CompanyID, &j.Title, &description, &ctc, &location, &posted, &closing, &eligibility, &empType, &exp, &active}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	j.Description = description.String
	j.CTC = ctc.String
	j.Location = location.String
	j.PostedAt = fromMillis(posted)
	j.ClosingAt = timePtr(closing)
	j.Eligibility = eligibility.String
	j.EmploymentType = empType.String
	j.ExperienceRequired = exp.String
	j.Active = active == 1
	return &j, nil
}

func (r *SQLiteRepo) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}

	res, err := r.conn.Exec(ctx,
		`INSERT INTO jobs (recruiter_id, company_id, title, description, ctc, location, posted_at, closing_at, eligibility, employment_type, experience_required, active) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.RecruiterID, j.CompanyID, j.Title, j.Description, j.CTC, j.Location, toMillis(j.PostedAt), nullMillis(j.ClosingAt),
		j.Eligibility, j.EmploymentType, j.ExperienceRequired, boolInt(j.Active))
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetJobByID(ctx context.Context, id int64) (*models.Job, error) {
	j, err := scanJob(r.conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

// UpdateJob overwrites the mutable columns. Ownership columns are left alone.
func (r *SQLiteRepo) UpdateJob(ctx context.Context, j *models.Job) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}

	_, err := r.conn.Exec(ctx,
		`UPDATE jobs SET title = ?, description = ?, ctc = ?, location = ?, closing_at = ?, eligibility = ?, employment_type = ?, experience_required = ?, active = ? WHERE id = ?`,
		j.Title, j.Description, j.CTC, j.Location, nullMillis(j.ClosingAt), j.Eligibility, j.EmploymentType, j.ExperienceRequired, boolInt(j.Active), j.ID)
	return err
}

func (r *SQLiteRepo) DeleteJob(ctx context.Context, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE job_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete applications: %w", err)
		}
		removed, _ := res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete job: %w", err)
		}

		r.logger.Debug("job deleted", "job_id", id, "applications_removed", removed)
		return nil
	})
}

func (r *SQLiteRepo) ListJobsByRecruiter(ctx context.Context, recruiterID int64) ([]models.Job, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+jobColumns+` FROM jobs WHERE recruiter_id = ? ORDER BY posted_at DESC, id DESC`, recruiterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// SearchJobs pages through jobs matching every non-empty filter field,
// newest first.
func (r *SQLiteRepo) SearchJobs(ctx context.Context, f models.JobFilter) ([]models.Job, error) {
	var (
		where []string
		args  []any
	)
	for _, c := range []struct {
		column, value string
	}{
		{"j.title", f.Title},
		{"j.location", f.Location},
		{"j.employment_type", f.EmploymentType},
		{"c.name", f.Company},
	} {
		if v := strings.TrimSpace(c.value); v != "" {
			where = append(where, "LOWER("+c.column+") LIKE ? ESCAPE '\\'")
			args = append(args, containsPattern(v))
		}
	}

	query := jobSearchSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY j.posted_at DESC, j.id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Job{}
	for rows.Next() {
		var company sql.NullString
		j, err := scanJob(rows, &company)
		if err != nil {
			return nil, err
		}
		j.CompanyName = company.String
		out = append(out, *j)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern matching v anywhere.
func containsPattern(v string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(v)) + "%"
}
