package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/labstack/gommon/log"

	"github.com/kangminhyuk1111/hoops/internal/geo"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
)

// LocationStore persists courts.
type LocationStore interface {
	GetLocation(ctx context.Context, id uint64) (model.Location, error)
	CreateLocation(ctx context.Context, l *model.Location) error
	SearchLocations(ctx context.Context, q string, limit int) ([]model.Location, error)
}

type CreateLocationCommand struct {
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
}

// LocationService registers and looks up courts.
type LocationService struct {
	store LocationStore
	log   *log.Logger
	now   func() time.Time
}

func NewLocationService(store LocationStore, l *log.Logger) *LocationService {
	return &LocationService{store: store, log: l, now: time.Now}
}

// Create registers a court.  Names are compared by slug so differences in
// case, spacing or punctuation do not create duplicates.
func (s *LocationService) Create(ctx context.Context, actor model.Principal, cmd CreateLocationCommand) (model.Location, error) {
	name := strings.TrimSpace(cmd.Name)
	address := strings.TrimSpace(cmd.Address)
	p := geo.Point{Lat: cmd.Latitude, Lon: cmd.Longitude}
	if name == "" || address == "" || !p.Valid() || (p.Lat == 0 && p.Lon == 0) ||
		tooLong(name, maxLocNameLen) || tooLong(address, maxAddressLen) {
		return model.Location{}, ErrInvalidLocation
	}
	sl := slug.Make(name)
	if sl == "" {
		return model.Location{}, ErrInvalidLocation
	}
	l := model.Location{
		Name:      name,
		Slug:      sl,
		Address:   address,
		Latitude:  p.Lat,
		Longitude: p.Lon,
		CreatedBy: actor.UserID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateLocation(ctx, &l); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Location{}, ErrDuplicateLocationName
		}
		return model.Location{}, err
	}
	if s.log != nil {
		s.log.Infof("location created id=%d slug=%s", l.ID, l.Slug)
	}
	return l, nil
}

func (s *LocationService) Get(ctx context.Context, id uint64) (model.Location, error) {
	l, err := s.store.GetLocation(ctx, id)
	if err != nil {
		return model.Location{}, lookup(err, ErrLocationNotFound)
	}
	return l, nil
}

// Search lists courts whose name contains q.
func (s *LocationService) Search(ctx context.Context, q string, limit int) ([]model.Location, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return s.store.SearchLocations(ctx, strings.TrimSpace(q), limit)
}
