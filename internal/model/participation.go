package model

import "time"

// ParticipationStatus is the state of a user's request to play in a match.
type ParticipationStatus string

const (
	ParticipationPending        ParticipationStatus = "PENDING"         // awaiting host decision
	ParticipationConfirmed      ParticipationStatus = "CONFIRMED"       // approved, counted
	ParticipationRejected       ParticipationStatus = "REJECTED"        // rejected by host
	ParticipationCancelled      ParticipationStatus = "CANCELLED"       // withdrawn by user
	ParticipationMatchCancelled ParticipationStatus = "MATCH_CANCELLED" // cascaded from match cancel
)

// Participation mirrors the `participations` table.
type Participation struct {
	ID           uint64              `db:"id"`
	MatchID      uint64              `db:"match_id"`
	UserID       uint64              `db:"user_id"`
	UserNickname string              `db:"user_nickname"`
	Status       ParticipationStatus `db:"status"`
	RejectReason *string             `db:"reject_reason"` // nullable
	JoinedAt     time.Time           `db:"joined_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

// IsActive reports whether the participation still holds a place or a
// pending request.
func (p Participation) IsActive() bool {
	return p.Status == ParticipationPending || p.Status == ParticipationConfirmed
}

// CountsAsReapplication reports whether the participation ended by a user
// or host decision.  Rows cascaded from a match cancel do not count.
func (p Participation) CountsAsReapplication() bool {
	return p.Status == ParticipationCancelled || p.Status == ParticipationRejected
}
