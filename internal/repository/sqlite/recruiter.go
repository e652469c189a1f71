package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/hirehub/pkg/models"
)

func scanCompany(row rowScanner) (*models.Company, error) {
	var c models.Company
	var info, location, industry, website sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &info, &location, &industry, &website); err != nil {
		return nil, err
	}
	c.Info = info.String
	c.Location = location.String
	c.Industry = industry.String
	c.Website = website.String
	return &c, nil
}

func (r *SQLiteRepo) GetCompanyByID(ctx context.Context, id int64) (*models.Company, error) {
	c, err := scanCompany(r.conn.QueryRow(ctx, `SELECT id, name, info, location, industry, website FROM companies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// GetCompanyByName matches names case-insensitively.
func (r *SQLiteRepo) GetCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	c, err := scanCompany(r.conn.QueryRow(ctx, `SELECT id, name, info, location, industry, website FROM companies WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1`, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *SQLiteRepo) CreateRecruiterAccount(ctx context.Context, a *models.Account, c *models.Company) (*models.Recruiter, error) {
	if a == nil || c == nil {
		return nil, fmt.Errorf("account and company are required")
	}

	created := toMillis(a.CreatedAt)
	var rec models.Recruiter
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (full_name, email, password_hash, phone, work_status, role, active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.FullName, a.Email, a.PasswordHash, a.Phone, a.WorkStatus, string(models.RoleRecruiter), boolInt(a.Active), created)
		if err != nil {
			return mapWriteErr(err)
		}
		accountID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		var companyID int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM companies WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1`, strings.TrimSpace(c.Name)).Scan(&companyID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO companies (name, info, location, industry, website) VALUES (?, ?, ?, ?, ?)`,
				strings.TrimSpace(c.Name), c.Info, c.Location, c.Industry, c.Website)
			if err != nil {
				return fmt.Errorf("insert company: %w", err)
			}
			if companyID, err = res.LastInsertId(); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("lookup company: %w", err)
		}

		res, err = tx.ExecContext(ctx, `INSERT INTO recruiters (account_id, company_id, created_at) VALUES (?, ?, ?)`, accountID, companyID, created)
		if err != nil {
			return mapWriteErr(err)
		}
		recID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		a.ID = accountID
		a.Role = models.RoleRecruiter
		c.ID = companyID
		rec = models.Recruiter{
			ID:          recID,
			AccountID:   accountID,
			CompanyID:   companyID,
			CreatedAt:   fromMillis(created),
			FullName:    a.FullName,
			Email:       a.Email,
			Active:      a.Active,
			CompanyName: strings.TrimSpace(c.Name),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("recruiter created", "recruiter_id", rec.ID, "company_id", rec.CompanyID)
	return &rec, nil
}

const recruiterSelect = `SELECT r.id, r.account_id, r.company_id, r.created_at, a.full_name, a.email, a.active, c.name
FROM recruiters r
JOIN accounts a ON a.id = r.account_id
JOIN companies c ON c.id = r.company_id`

func scanRecruiter(row rowScanner) (*models.Recruiter, error) {
	var (
		rec     models.Recruiter
		created int64
		active  int
	)
	if err := row.Scan(&rec.ID, &rec.AccountID, &rec.CompanyID, &created, &rec.FullName, &rec.Email, &active, &rec.CompanyName); err != nil {
		return nil, err
	}
	rec.CreatedAt = fromMillis(created)
	rec.Active = active == 1
	return &rec, nil
}

func (r *SQLiteRepo) GetRecruiterByID(ctx context.Context, id int64) (*models.Recruiter, error) {
	rec, err := scanRecruiter(r.conn.QueryRow(ctx, recruiterSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *SQLiteRepo) GetRecruiterByAccountID(ctx context.Context, accountID int64) (*models.Recruiter, error) {
	rec, err := scanRecruiter(r.conn.QueryRow(ctx, recruiterSelect+` WHERE r.account_id = ?`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *SQLiteRepo) ListRecruiters(ctx context.Context) ([]models.Recruiter, error) {
	rows, err := r.conn.QueryRows(ctx, recruiterSelect+` ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Recruiter{}
	for rows.Next() {
		rec, err := scanRecruiter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteRecruiter(ctx context.Context, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		jobs, err := deleteRecruiterTx(ctx, tx, id)
		if err != nil {
			return err
		}
		r.logger.Debug("recruiter deleted", "recruiter_id", id, "jobs_removed", jobs)
		return nil
	})
}

// deleteRecruiterTx removes the applications to the recruiter's jobs, the
// jobs and the recruiter row, in that order.
func deleteRecruiterTx(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM applications WHERE job_id IN (SELECT id FROM jobs WHERE recruiter_id = ?)`, id); err != nil {
		return 0, fmt.Errorf("delete applications: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE recruiter_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete jobs: %w", err)
	}
	jobs, _ := res.RowsAffected()
	if _, err := tx.ExecContext(ctx, `DELETE FROM recruiters WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("delete recruiter: %w", err)
	}
	return jobs, nil
}
