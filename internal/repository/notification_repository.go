package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

const notificationColumns = "id, user_id, type, title, message, related_match_id, is_read, created_at"

type NotificationRepo struct{ DB *sqlx.DB }

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, related_match_id, is_read, created_at)
		VALUES (:user_id, :type, :title, :message, :related_match_id, :is_read, :created_at)`, n)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListByUser returns one page of the user's notifications, newest first,
// and the total count.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Notification, int, error) {
	var total int
	if err := r.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications WHERE user_id=?", userID); err != nil {
		return nil, 0, err
	}
	var out []model.Notification
	err := r.DB.SelectContext(ctx, &out,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM notifications WHERE user_id=? AND is_read=false", userID)
	return n, err
}

// MarkRead flags the given notifications of userID as read.  Ids that belong
// to someone else are ignored.  It returns the number of rows changed.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID uint64, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In("UPDATE notifications SET is_read=true WHERE user_id=? AND id IN (?)", userID, ids)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
