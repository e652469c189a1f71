package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/hirehub/pkg/models"
)

const accountColumns = `id, full_name, email, password_hash, phone, work_status, role, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a          models.Account
		phone      sql.NullString
		workStatus sql.NullString
		role       string
		active     int
		created    int64
	)
	if err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.PasswordHash, &phone, &workStatus, &role, &active, &created); err != nil {
		return nil, err
	}
	a.Phone = phone.String
	a.WorkStatus = workStatus.String
	a.Role = models.Role(role)
	a.Active = active == 1
	a.CreatedAt = fromMillis(created)
	return &a, nil
}

func (r *SQLiteRepo) CreateAccount(ctx context.Context, a *models.Account) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("account is nil")
	}

	res, err := r.conn.Exec(ctx,
		`INSERT INTO accounts (full_name, email, password_hash, phone, work_status, role, active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.FullName, a.Email, a.PasswordHash, a.Phone, a.WorkStatus, string(a.Role), boolInt(a.Active), toMillis(a.CreatedAt))
	if err != nil {
		return 0, mapWriteErr(err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	a, err := scanAccount(r.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *SQLiteRepo) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, err := scanAccount(r.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *SQLiteRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.conn.Exec(ctx, `UPDATE accounts SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return err
}

func (r *SQLiteRepo) SetAccountActive(ctx context.Context, id int64, active bool) error {
	_, err := r.conn.Exec(ctx, `UPDATE accounts SET active = ? WHERE id = ?`, boolInt(active), id)
	return err
}

func (r *SQLiteRepo) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteAccount(ctx context.Context, id int64) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE user_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete applications: %w", err)
		}
		applications, _ := res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}

		var recruiterID int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM recruiters WHERE account_id = ?`, id).Scan(&recruiterID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("lookup recruiter: %w", err)
		default:
			if _, err := deleteRecruiterTx(ctx, tx, recruiterID); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}

		r.logger.Debug("account deleted", "account_id", id, "applications_removed", applications, "recruiter_id", recruiterID)
		return nil
	})
}
