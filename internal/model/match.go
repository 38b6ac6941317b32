package model

import "time"

// MatchStatus is the persisted lifecycle state of a match.  The four
// persisted values are also the wire values.  FULL is never stored; it is
// derived from the confirmed count while the match is PENDING.
type MatchStatus string

const (
	MatchPending    MatchStatus = "PENDING"     // recruiting
	MatchInProgress MatchStatus = "IN_PROGRESS" // start time reached
	MatchEnded      MatchStatus = "ENDED"       // end time reached
	MatchCancelled  MatchStatus = "CANCELLED"   // cancelled by host
	MatchFull       MatchStatus = "FULL"        // display only
)

// Valid reports whether s is one of the persisted statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchInProgress, MatchEnded, MatchCancelled:
		return true
	}
	return false
}

// RecruitmentStatus is a projection of the remaining slots used by list views.
type RecruitmentStatus string

const (
	Recruiting  RecruitmentStatus = "RECRUITING"
	AlmostFull  RecruitmentStatus = "ALMOST_FULL"
	FullyBooked RecruitmentStatus = "FULL"
)

// Match mirrors the `matches` table.  The location is stored as a snapshot so
// that past matches keep the address they were played at.
type Match struct {
	ID                  uint64      `db:"id"`                   // matches.id
	Version             uint64      `db:"version"`              // optimistic counter
	HostID              uint64      `db:"host_id"`              // users.id of the host
	HostNickname        string      `db:"host_nickname"`        // captured at creation
	Title               string      `db:"title"`                // matches.title
	Description         *string     `db:"description"`          // nullable
	LocationID          uint64      `db:"location_id"`          // locations.id
	LocationName        string      `db:"location_name"`        // snapshot
	Address             string      `db:"address"`              // snapshot
	Latitude            float64     `db:"latitude"`             // WGS-84
	Longitude           float64     `db:"longitude"`            // WGS-84
	StartsAt            time.Time   `db:"starts_at"`            // UTC
	EndsAt              time.Time   `db:"ends_at"`              // UTC
	MaxParticipants     int         `db:"max_participants"`     // 4..20 at creation
	CurrentParticipants int         `db:"current_participants"` // confirmed count
	Status              MatchStatus `db:"status"`               // persisted status
	CancelReason        *string     `db:"cancel_reason"`        // nullable
	CancelledAt         *time.Time  `db:"cancelled_at"`         // nullable
	CreatedAt           time.Time   `db:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at"`
}

func (m Match) IsHost(userID uint64) bool { return m.HostID == userID }

func (m Match) IsFull() bool { return m.CurrentParticipants >= m.MaxParticipants }

// RemainingSlots never goes below zero.
func (m Match) RemainingSlots() int {
	if n := m.MaxParticipants - m.CurrentParticipants; n > 0 {
		return n
	}
	return 0
}

// IsActive reports whether the match still occupies its host's calendar.
func (m Match) IsActive() bool {
	return m.Status == MatchPending || m.Status == MatchInProgress
}

// IsRecruiting reports whether new join requests may be accepted at now.
func (m Match) IsRecruiting(now time.Time) bool {
	return m.Status == MatchPending && now.Before(m.StartsAt)
}

// Overlaps reports whether the half-open windows [StartsAt, EndsAt) of the
// two matches intersect.
func (m Match) Overlaps(start, end time.Time) bool {
	return m.StartsAt.Before(end) && start.Before(m.EndsAt)
}

// DisplayStatus folds the capacity into the status shown to clients.
func (m Match) DisplayStatus() MatchStatus {
	if m.Status == MatchPending && m.IsFull() {
		return MatchFull
	}
	return m.Status
}

// RecruitmentStatus classifies the remaining slots.  threshold is the number
// of remaining slots at or below which the match is reported ALMOST_FULL.
func (m Match) RecruitmentStatus(threshold int) RecruitmentStatus {
	remaining := m.RemainingSlots()
	switch {
	case remaining == 0:
		return FullyBooked
	case remaining <= threshold:
		return AlmostFull
	default:
		return Recruiting
	}
}

// NextStatus returns the status the match should have at now.  It is a pure
// function: PENDING becomes IN_PROGRESS once the start time is reached and
// IN_PROGRESS becomes ENDED once the end time is reached.  Both steps can
// apply in a single call.  CANCELLED and ENDED never change.
func NextStatus(m Match, now time.Time) MatchStatus {
	s := m.Status
	if s == MatchPending && !now.Before(m.StartsAt) {
		s = MatchInProgress
	}
	if s == MatchInProgress && !now.Before(m.EndsAt) {
		s = MatchEnded
	}
	return s
}
