package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

const locationColumns = "id, name, slug, address, latitude, longitude, created_by, created_at"

// LocationRepo reads and writes the `locations` table.  Rows are never
// updated so matches referencing them keep a stable address.
type LocationRepo struct{ DB *sqlx.DB }

func NewLocationRepo(db *sqlx.DB) *LocationRepo { return &LocationRepo{DB: db} }

// Create inserts l and fills its ID.  ErrDuplicate means the slug exists.
func (r *LocationRepo) Create(ctx context.Context, l *model.Location) error {
	res, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO locations (name, slug, address, latitude, longitude, created_by, created_at)
		VALUES (:name, :slug, :address, :latitude, :longitude, :created_by, :created_at)`, l)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert location: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

func (r *LocationRepo) GetByID(ctx context.Context, id uint64) (model.Location, error) {
	var l model.Location
	err := r.DB.GetContext(ctx, &l, "SELECT "+locationColumns+" FROM locations WHERE id=? LIMIT 1", id)
	return l, notFound(err)
}

// SearchByName does a prefix-insensitive substring match on the name.  An
// empty query lists the most recent locations.
func (r *LocationRepo) SearchByName(ctx context.Context, q string, limit int) ([]model.Location, error) {
	var out []model.Location
	var err error
	if q == "" {
		err = r.DB.SelectContext(ctx, &out,
			"SELECT "+locationColumns+" FROM locations ORDER BY id DESC LIMIT ?", limit)
	} else {
		err = r.DB.SelectContext(ctx, &out,
			"SELECT "+locationColumns+" FROM locations WHERE name LIKE ? ORDER BY name, id LIMIT ?",
			"%"+q+"%", limit)
	}
	return out, err
}
