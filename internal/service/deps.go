// Package service holds the match lifecycle, participation workflow and
// nearby-match query.  Every mutation of a match or its participations runs
// in one store transaction holding the match row lock; notifications and
// geo index updates happen after commit and never fail the operation.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/kangminhyuk1111/hoops/internal/config"
	"github.com/kangminhyuk1111/hoops/internal/geo"
	"github.com/kangminhyuk1111/hoops/internal/logger"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
)

// Store is the persistence the match services need.  It is implemented by
// repository.Store (MySQL) and memory.Store.
type Store interface {
	InTx(ctx context.Context, fn func(repository.Tx) error) error
	GetMatch(ctx context.Context, id uint64) (model.Match, error)
	SearchMatches(ctx context.Context, q repository.MatchSearch) ([]model.Match, error)
	HostedMatches(ctx context.Context, hostID uint64) ([]model.Match, error)
	DueMatchIDs(ctx context.Context, now time.Time, limit int) ([]uint64, error)
	MatchParticipations(ctx context.Context, matchID uint64) ([]model.Participation, error)
	UserParticipations(ctx context.Context, userID uint64) ([]model.Participation, error)
	GetLocation(ctx context.Context, id uint64) (model.Location, error)
}

// Notifier fans participation and match events out to the affected users.
// Calls are made after commit; errors are logged and dropped.
type Notifier interface {
	ParticipationChanged(ctx context.Context, t model.NotificationType, m model.Match, p model.Participation) error
	MatchCancelled(ctx context.Context, m model.Match, affected []model.Participation) error
}

// GeoIndex narrows nearby searches to a candidate id set.
type GeoIndex interface {
	Put(ctx context.Context, m model.Match) error
	Remove(ctx context.Context, id uint64) error
	Nearby(ctx context.Context, origin geo.Point, km float64) ([]uint64, error)
	PutAll(ctx context.Context, matches []model.Match) error
	Members(ctx context.Context) ([]uint64, error)
}

// Deps is shared by the match services.  Notifier and Index are optional.
type Deps struct {
	Store    Store
	Notifier Notifier
	Index    GeoIndex
	Policy   config.MatchPolicy
	Log      *log.Logger
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) logger() *log.Logger {
	if d.Log == nil {
		return logger.Discard()
	}
	return d.Log
}

// withRetry runs fn and, when it loses a race with a concurrent writer,
// runs it exactly once more.  fn must reload all state it depends on.
func (d Deps) withRetry(op string, fn func() error) error {
	err := fn()
	if err == nil || !isConcurrency(err) {
		return err
	}
	d.logger().Debugf("%s: concurrent modification, retrying: %v", op, err)
	err = fn()
	if err != nil && isConcurrency(err) {
		return ErrConcurrentModification
	}
	return err
}

// lookup maps repository.ErrNotFound onto the given domain error.
func lookup(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}

func (d Deps) indexPut(ctx context.Context, m model.Match) {
	if d.Index == nil {
		return
	}
	if err := d.Index.Put(ctx, m); err != nil {
		d.logger().Warnf("geo index put match=%d: %v", m.ID, err)
	}
}

func (d Deps) indexRemove(ctx context.Context, id uint64) {
	if d.Index == nil {
		return
	}
	if err := d.Index.Remove(ctx, id); err != nil {
		d.logger().Warnf("geo index remove match=%d: %v", id, err)
	}
}

func (d Deps) notifyParticipation(ctx context.Context, t model.NotificationType, m model.Match, p model.Participation) {
	if d.Notifier == nil {
		return
	}
	if err := d.Notifier.ParticipationChanged(ctx, t, m, p); err != nil {
		d.logger().Warnf("notify %s match=%d participation=%d: %v", t, m.ID, p.ID, err)
	}
}

func (d Deps) notifyMatchCancelled(ctx context.Context, m model.Match, affected []model.Participation) {
	if d.Notifier == nil || len(affected) == 0 {
		return
	}
	if err := d.Notifier.MatchCancelled(ctx, m, affected); err != nil {
		d.logger().Warnf("notify match cancelled match=%d: %v", m.ID, err)
	}
}
