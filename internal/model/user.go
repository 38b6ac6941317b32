package model

import "time"

// User is a player account.  Email and Nickname are each unique; the
// nickname is what shows up as host or applicant on matches.  Rating and
// TotalMatches start at zero.
type User struct {
	ID           uint64    `db:"id"`
	Email        string    `db:"email"`
	Nickname     string    `db:"nickname"`
	PasswordHash string    `db:"password_hash"`
	ProfileImage *string   `db:"profile_image"`
	Rating       float64   `db:"rating"`
	TotalMatches int       `db:"total_matches"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Principal is the caller resolved from an access token.
type Principal struct {
	UserID   uint64
	Nickname string
}

// RefreshToken is a row of refresh_tokens.  Only the SHA-256 of the raw
// token is kept; RevokedAt is set on rotation and logout.
type RefreshToken struct {
	ID        uint64     `db:"id"`
	UserID    uint64     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}
