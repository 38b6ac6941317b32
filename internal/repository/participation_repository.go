package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

const participationColumns = `id, match_id, user_id, user_nickname, status, reject_reason, joined_at, updated_at`

// ParticipationRepo reads and writes the `participations` table.  Writes
// only happen inside a transaction that already holds the match row lock.
type ParticipationRepo struct{ DB *sqlx.DB }

func NewParticipationRepo(db *sqlx.DB) *ParticipationRepo { return &ParticipationRepo{DB: db} }

func (r *ParticipationRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Participation, error) {
	var p model.Participation
	err := tx.GetContext(ctx, &p, "SELECT "+participationColumns+" FROM participations WHERE id=? LIMIT 1", id)
	return p, notFound(err)
}

// ListByMatchUserTx returns the full history of a user on one match.
func (r *ParticipationRepo) ListByMatchUserTx(ctx context.Context, tx *sqlx.Tx, matchID, userID uint64) ([]model.Participation, error) {
	var out []model.Participation
	err := tx.SelectContext(ctx, &out,
		"SELECT "+participationColumns+" FROM participations WHERE match_id=? AND user_id=? ORDER BY id",
		matchID, userID)
	return out, err
}

// ListActiveByMatchTx returns PENDING and CONFIRMED rows of a match.
func (r *ParticipationRepo) ListActiveByMatchTx(ctx context.Context, tx *sqlx.Tx, matchID uint64) ([]model.Participation, error) {
	var out []model.Participation
	err := tx.SelectContext(ctx, &out,
		"SELECT "+participationColumns+" FROM participations WHERE match_id=? AND status IN ('PENDING','CONFIRMED') ORDER BY id",
		matchID)
	return out, err
}

func (r *ParticipationRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.Participation) error {
	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO participations (match_id, user_id, user_nickname, status, reject_reason, joined_at, updated_at)
		VALUES (:match_id, :user_id, :user_nickname, :status, :reject_reason, :joined_at, :updated_at)`, p)
	if err != nil {
		return fmt.Errorf("insert participation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *ParticipationRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, p *model.Participation) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE participations SET status=?, reject_reason=?, updated_at=? WHERE id=?",
		p.Status, p.RejectReason, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update participation %d: %w", p.ID, err)
	}
	return nil
}

// ListByMatch returns every participation of a match except self-cancelled
// ones, oldest request first.
func (r *ParticipationRepo) ListByMatch(ctx context.Context, matchID uint64) ([]model.Participation, error) {
	var out []model.Participation
	err := r.DB.SelectContext(ctx, &out,
		"SELECT "+participationColumns+" FROM participations WHERE match_id=? AND status<>'CANCELLED' ORDER BY joined_at, id",
		matchID)
	return out, err
}

// ListByUser returns the caller's participations, newest first.
func (r *ParticipationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Participation, error) {
	var out []model.Participation
	err := r.DB.SelectContext(ctx, &out,
		"SELECT "+participationColumns+" FROM participations WHERE user_id=? ORDER BY joined_at DESC, id DESC",
		userID)
	return out, err
}
