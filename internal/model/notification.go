package model

import "time"

// NotificationType identifies the event a notification was created for.
type NotificationType string

const (
	NotifyParticipationCreated   NotificationType = "PARTICIPATION_CREATED"
	NotifyParticipationApproved  NotificationType = "PARTICIPATION_APPROVED"
	NotifyParticipationRejected  NotificationType = "PARTICIPATION_REJECTED"
	NotifyParticipationCancelled NotificationType = "PARTICIPATION_CANCELLED"
	NotifyMatchCancelled         NotificationType = "MATCH_CANCELLED"
)

// Notification mirrors the `notifications` table.  Rows are written by the
// queue consumer, never by request handlers.
type Notification struct {
	ID             uint64           `db:"id"`
	UserID         uint64           `db:"user_id"`          // recipient
	Type           NotificationType `db:"type"`
	Title          string           `db:"title"`
	Message        string           `db:"message"`
	RelatedMatchID *uint64          `db:"related_match_id"` // nullable
	IsRead         bool             `db:"is_read"`
	CreatedAt      time.Time        `db:"created_at"`
}
