package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kangminhyuk1111/hoops/internal/geo"
	"github.com/kangminhyuk1111/hoops/internal/model"
)

const matchColumns = `id, version, host_id, host_nickname, title, description,
	location_id, location_name, address, latitude, longitude,
	starts_at, ends_at, max_participants, current_participants, status,
	cancel_reason, cancelled_at, created_at, updated_at`

// MatchRepo reads and writes the `matches` table.
type MatchRepo struct{ DB *sqlx.DB }

func NewMatchRepo(db *sqlx.DB) *MatchRepo { return &MatchRepo{DB: db} }

// GetByID returns the match or ErrNotFound.
func (r *MatchRepo) GetByID(ctx context.Context, id uint64) (model.Match, error) {
	var m model.Match
	err := r.DB.GetContext(ctx, &m, "SELECT "+matchColumns+" FROM matches WHERE id=? LIMIT 1", id)
	return m, notFound(err)
}

// GetForUpdateTx loads the match and takes its row lock for the rest of tx.
func (r *MatchRepo) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Match, error) {
	var m model.Match
	err := tx.GetContext(ctx, &m, "SELECT "+matchColumns+" FROM matches WHERE id=? FOR UPDATE", id)
	return m, notFound(err)
}

// CreateTx inserts m and fills its ID.  Version starts at 1.
func (r *MatchRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, m *model.Match) error {
	m.Version = 1
	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO matches (version, host_id, host_nickname, title, description,
			location_id, location_name, address, latitude, longitude,
			starts_at, ends_at, max_participants, current_participants, status,
			cancel_reason, cancelled_at, created_at, updated_at)
		VALUES (:version, :host_id, :host_nickname, :title, :description,
			:location_id, :location_name, :address, :latitude, :longitude,
			:starts_at, :ends_at, :max_participants, :current_participants, :status,
			:cancel_reason, :cancelled_at, :created_at, :updated_at)`, m)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// UpdateTx writes every mutable column guarded by the version the caller
// read.  Zero affected rows means another writer got there first.
func (r *MatchRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, m *model.Match) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET version=version+1, title=?, description=?,
			starts_at=?, ends_at=?, max_participants=?, current_participants=?,
			status=?, cancel_reason=?, cancelled_at=?, updated_at=?
		WHERE id=? AND version=?`,
		m.Title, m.Description, m.StartsAt, m.EndsAt, m.MaxParticipants, m.CurrentParticipants,
		m.Status, m.CancelReason, m.CancelledAt, m.UpdatedAt, m.ID, m.Version)
	if err != nil {
		return fmt.Errorf("update match %d: %w", m.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	m.Version++
	return nil
}

// CommitmentsTx returns the active matches a user hosts or participates in.
func (r *MatchRepo) CommitmentsTx(ctx context.Context, tx *sqlx.Tx, userID uint64) ([]model.Match, error) {
	var out []model.Match
	err := tx.SelectContext(ctx, &out, `
		SELECT `+matchColumns+` FROM matches
		WHERE status IN ('PENDING','IN_PROGRESS') AND (
			host_id=? OR id IN (
				SELECT match_id FROM participations
				WHERE user_id=? AND status IN ('PENDING','CONFIRMED')))`,
		userID, userID)
	return out, err
}

// Search returns matches matching s ordered by start time.
func (r *MatchRepo) Search(ctx context.Context, s MatchSearch) ([]model.Match, error) {
	if s.IDs != nil && len(s.IDs) == 0 {
		return nil, nil
	}
	var (
		where []string
		args  []interface{}
	)
	if len(s.Statuses) > 0 {
		where = append(where, "status IN (?)")
		args = append(args, s.Statuses)
	}
	if len(s.IDs) > 0 {
		where = append(where, "id IN (?)")
		args = append(args, s.IDs)
	}
	if s.Box != nil {
		clause, bargs := boxClause(*s.Box)
		where = append(where, clause)
		args = append(args, bargs...)
	}

	q := "SELECT " + matchColumns + " FROM matches"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY starts_at, id"
	if s.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", s.Limit)
	}

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Match
	if err := r.DB.SelectContext(ctx, &out, r.DB.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("search matches: %w", err)
	}
	return out, nil
}

// ListByHost returns every match the user hosts, newest start first.
func (r *MatchRepo) ListByHost(ctx context.Context, hostID uint64) ([]model.Match, error) {
	var out []model.Match
	err := r.DB.SelectContext(ctx, &out,
		"SELECT "+matchColumns+" FROM matches WHERE host_id=? ORDER BY starts_at DESC, id DESC", hostID)
	return out, err
}

// DueIDs returns ids of matches whose start or end time has been reached
// while their status still says otherwise.
func (r *MatchRepo) DueIDs(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	var ids []uint64
	err := r.DB.SelectContext(ctx, &ids, `
		SELECT id FROM matches
		WHERE (status='PENDING' AND starts_at<=?) OR (status='IN_PROGRESS' AND ends_at<=?)
		ORDER BY starts_at, id LIMIT ?`, now, now, limit)
	return ids, err
}

// boxClause restricts rows to b, splitting the longitude range when the
// box crosses the antimeridian.
func boxClause(b geo.BoundingBox) (string, []interface{}) {
	lon := "longitude BETWEEN ? AND ?"
	if b.CrossesAntimeridian() {
		lon = "(longitude >= ? OR longitude <= ?)"
	}
	return "latitude BETWEEN ? AND ? AND " + lon, []interface{}{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon}
}
