package model

import "time"

// Location is a court that matches can be scheduled at.  Slug is the
// normalised name and carries the uniqueness constraint, so "Han River Court"
// and "han-river court" are the same location.
type Location struct {
	ID        uint64    `db:"id"`         // locations.id
	Name      string    `db:"name"`       // display name
	Slug      string    `db:"slug"`       // unique
	Address   string    `db:"address"`    // free-form street address
	Latitude  float64   `db:"latitude"`   // WGS-84
	Longitude float64   `db:"longitude"`  // WGS-84
	CreatedBy uint64    `db:"created_by"` // users.id
	CreatedAt time.Time `db:"created_at"`
}
