package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

// Store bundles the MySQL repositories behind the transactional interface
// used by the match services.
type Store struct {
	db             *sqlx.DB
	Matches        *MatchRepo
	Participations *ParticipationRepo
	Locations      *LocationRepo
	Users          *UserRepo
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:             db,
		Matches:        NewMatchRepo(db),
		Participations: NewParticipationRepo(db),
		Locations:      NewLocationRepo(db),
		Users:          NewUserRepo(db),
	}
}

// InTx runs fn inside a transaction.  The transaction is committed when fn
// returns nil and rolled back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) GetMatch(ctx context.Context, id uint64) (model.Match, error) {
	return s.Matches.GetByID(ctx, id)
}

func (s *Store) SearchMatches(ctx context.Context, q MatchSearch) ([]model.Match, error) {
	return s.Matches.Search(ctx, q)
}

func (s *Store) HostedMatches(ctx context.Context, hostID uint64) ([]model.Match, error) {
	return s.Matches.ListByHost(ctx, hostID)
}

func (s *Store) DueMatchIDs(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	return s.Matches.DueIDs(ctx, now, limit)
}

func (s *Store) MatchParticipations(ctx context.Context, matchID uint64) ([]model.Participation, error) {
	return s.Participations.ListByMatch(ctx, matchID)
}

func (s *Store) UserParticipations(ctx context.Context, userID uint64) ([]model.Participation, error) {
	return s.Participations.ListByUser(ctx, userID)
}

func (s *Store) GetLocation(ctx context.Context, id uint64) (model.Location, error) {
	return s.Locations.GetByID(ctx, id)
}

func (s *Store) CreateLocation(ctx context.Context, l *model.Location) error {
	return s.Locations.Create(ctx, l)
}

func (s *Store) SearchLocations(ctx context.Context, q string, limit int) ([]model.Location, error) {
	return s.Locations.SearchByName(ctx, q, limit)
}

// sqlTx adapts the repositories' Tx methods to the Tx interface.
type sqlTx struct {
	s  *Store
	tx *sqlx.Tx
}

func (t *sqlTx) LockUser(ctx context.Context, userID uint64) error {
	return t.s.Users.LockTx(ctx, t.tx, userID)
}

func (t *sqlTx) LockMatch(ctx context.Context, id uint64) (model.Match, error) {
	return t.s.Matches.GetForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) InsertMatch(ctx context.Context, m *model.Match) error {
	return t.s.Matches.CreateTx(ctx, t.tx, m)
}

func (t *sqlTx) UpdateMatch(ctx context.Context, m *model.Match) error {
	return t.s.Matches.UpdateTx(ctx, t.tx, m)
}

func (t *sqlTx) CommitmentsOf(ctx context.Context, userID uint64) ([]model.Match, error) {
	return t.s.Matches.CommitmentsTx(ctx, t.tx, userID)
}

func (t *sqlTx) GetParticipation(ctx context.Context, id uint64) (model.Participation, error) {
	return t.s.Participations.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) ParticipationsOf(ctx context.Context, matchID, userID uint64) ([]model.Participation, error) {
	return t.s.Participations.ListByMatchUserTx(ctx, t.tx, matchID, userID)
}

func (t *sqlTx) ActiveParticipations(ctx context.Context, matchID uint64) ([]model.Participation, error) {
	return t.s.Participations.ListActiveByMatchTx(ctx, t.tx, matchID)
}

func (t *sqlTx) InsertParticipation(ctx context.Context, p *model.Participation) error {
	return t.s.Participations.CreateTx(ctx, t.tx, p)
}

func (t *sqlTx) UpdateParticipation(ctx context.Context, p *model.Participation) error {
	return t.s.Participations.UpdateTx(ctx, t.tx, p)
}
