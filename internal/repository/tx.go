package repository

import (
	"context"

	"github.com/kangminhyuk1111/hoops/internal/geo"
	"github.com/kangminhyuk1111/hoops/internal/model"
)

// Tx is the set of operations that run inside one transaction.  Lock
// methods block until the row lock is granted and keep it until the
// transaction ends.  Callers lock users before matches.
type Tx interface {
	// LockUser serialises calendar changes of a single user.
	LockUser(ctx context.Context, userID uint64) error
	// LockMatch loads the match and holds its row lock.
	LockMatch(ctx context.Context, id uint64) (model.Match, error)
	InsertMatch(ctx context.Context, m *model.Match) error
	// UpdateMatch writes m if its version still matches and bumps
	// m.Version.  It returns ErrVersionConflict otherwise.
	UpdateMatch(ctx context.Context, m *model.Match) error
	// CommitmentsOf returns every active match the user hosts or holds an
	// active participation in.
	CommitmentsOf(ctx context.Context, userID uint64) ([]model.Match, error)

	GetParticipation(ctx context.Context, id uint64) (model.Participation, error)
	ParticipationsOf(ctx context.Context, matchID, userID uint64) ([]model.Participation, error)
	ActiveParticipations(ctx context.Context, matchID uint64) ([]model.Participation, error)
	InsertParticipation(ctx context.Context, p *model.Participation) error
	UpdateParticipation(ctx context.Context, p *model.Participation) error
}

// MatchSearch narrows the candidate set of a match listing.  Zero values
// mean no restriction.  A non-nil empty IDs slice matches nothing.
type MatchSearch struct {
	Statuses []model.MatchStatus
	Box      *geo.BoundingBox
	IDs      []uint64
	Limit    int
}
