package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/hirehub/pkg/models"
)

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n       models.Notification
		created int64
		seen    int
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &created, &seen); err != nil {
		return nil, err
	}
	n.CreatedAt = fromMillis(created)
	n.Seen = seen == 1
	return &n, nil
}

func (r *SQLiteRepo) CreateNotification(ctx context.Context, n *models.Notification) (int64, error) {
	if n == nil {
		return 0, fmt.Errorf("notification is nil")
	}

	res, err := r.conn.Exec(ctx,
		`INSERT INTO notifications (user_id, message, type, created_at, seen) VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.Message, n.Type, toMillis(n.CreatedAt), boolInt(n.Seen))
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetNotificationByID(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := scanNotification(r.conn.QueryRow(ctx, `SELECT id, user_id, message, type, created_at, seen FROM notifications WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

// ListNotificationsByUser returns newest first.
func (r *SQLiteRepo) ListNotificationsByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, user_id, message, type, created_at, seen FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) MarkNotificationSeen(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `UPDATE notifications SET seen = 1 WHERE id = ?`, id)
	return err
}
