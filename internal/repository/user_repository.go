package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/utils"
)

const userColumns = "id, email, nickname, password_hash, profile_image, rating, total_matches, created_at, updated_at"

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts user and returns its ID.  ErrDuplicate means the email or
// nickname is taken.
func (r *UserRepo) Create(ctx context.Context, email, nickname, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, nickname, password_hash, created_at, updated_at) VALUES (?,?,?,?,?)",
		email, strings.TrimSpace(nickname), hash, now, now)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return u, notFound(err)
}

// UpdateProfile replaces the nickname and profile image; a nil image clears
// it.  Matches and participations keep the nickname they were created with.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, nickname string, image *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET nickname=?, profile_image=?, updated_at=? WHERE id=?", nickname, image, time.Now().UTC(), id)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LockTx takes the user row lock so overlap checks on the user's calendar
// are serialised.
func (r *UserRepo) LockTx(ctx context.Context, tx *sqlx.Tx, id uint64) error {
	var got uint64
	err := tx.GetContext(ctx, &got, "SELECT id FROM users WHERE id=? FOR UPDATE", id)
	return notFound(err)
}
