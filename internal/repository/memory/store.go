// Package memory is an in-process implementation of the match store.  Row
// locks are per-id mutexes held until the transaction ends and writes are
// staged until commit, so it has the same all-or-nothing and serialisation
// behaviour as the MySQL store.  It backs the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kangminhyuk1111/hoops/internal/geo"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
)

type Store struct {
	mu             sync.Mutex
	nextID         uint64
	users          map[uint64]model.User
	matches        map[uint64]model.Match
	participations map[uint64]model.Participation
	locations      map[uint64]model.Location
	conflicts      int

	matchLocks keyedMutex
	userLocks  keyedMutex
}

func New() *Store {
	return &Store{
		users:          map[uint64]model.User{},
		matches:        map[uint64]model.Match{},
		participations: map[uint64]model.Participation{},
		locations:      map[uint64]model.Location{},
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// AddUser registers a user so it can be locked.
func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	s.users[u.ID] = u
	return u
}

// PutMatch stores m as is, bypassing every rule.  It assigns an id when m
// has none.
func (s *Store) PutMatch(m model.Match) model.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.id()
	}
	if m.Version == 0 {
		m.Version = 1
	}
	s.matches[m.ID] = m
	return m
}

// PutParticipation stores p as is.
func (s *Store) PutParticipation(p model.Participation) model.Participation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.participations[p.ID] = p
	return p
}

// Participation returns the committed row.
func (s *Store) Participation(id uint64) (model.Participation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participations[id]
	return p, ok
}

// InjectVersionConflicts makes the next n match updates fail with
// repository.ErrVersionConflict.
func (s *Store) InjectVersionConflicts(n int) {
	s.mu.Lock()
	s.conflicts = n
	s.mu.Unlock()
}

// InTx runs fn with staged writes that are applied only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(repository.Tx) error) error {
	t := &tx{
		s:              s,
		matches:        map[uint64]model.Match{},
		participations: map[uint64]model.Participation{},
		lockedMatches:  map[uint64]bool{},
		lockedUsers:    map[uint64]bool{},
	}
	defer t.release()
	if err := fn(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range t.matches {
		s.matches[id] = m
	}
	for id, p := range t.participations {
		s.participations[id] = p
	}
	return nil
}

func (s *Store) GetMatch(_ context.Context, id uint64) (model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return model.Match{}, repository.ErrNotFound
	}
	return m, nil
}

func (s *Store) SearchMatches(_ context.Context, q repository.MatchSearch) ([]model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids map[uint64]bool
	if q.IDs != nil {
		ids = make(map[uint64]bool, len(q.IDs))
		for _, id := range q.IDs {
			ids[id] = true
		}
	}
	statuses := map[model.MatchStatus]bool{}
	for _, st := range q.Statuses {
		statuses[st] = true
	}
	var out []model.Match
	for _, m := range s.matches {
		if ids != nil && !ids[m.ID] {
			continue
		}
		if len(statuses) > 0 && !statuses[m.Status] {
			continue
		}
		if q.Box != nil && !q.Box.Contains(geo.Point{Lat: m.Latitude, Lon: m.Longitude}) {
			continue
		}
		out = append(out, m)
	}
	sortMatches(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) HostedMatches(_ context.Context, hostID uint64) ([]model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Match
	for _, m := range s.matches {
		if m.HostID == hostID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.After(out[j].StartsAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) DueMatchIDs(_ context.Context, now time.Time, limit int) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []model.Match
	for _, m := range s.matches {
		if (m.Status == model.MatchPending && !m.StartsAt.After(now)) ||
			(m.Status == model.MatchInProgress && !m.EndsAt.After(now)) {
			due = append(due, m)
		}
	}
	sortMatches(due)
	ids := make([]uint64, 0, len(due))
	for i, m := range due {
		if limit > 0 && i >= limit {
			break
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *Store) MatchParticipations(_ context.Context, matchID uint64) ([]model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Participation
	for _, p := range s.participations {
		if p.MatchID == matchID && p.Status != model.ParticipationCancelled {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UserParticipations(_ context.Context, userID uint64) ([]model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Participation
	for _, p := range s.participations {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) GetLocation(_ context.Context, id uint64) (model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return model.Location{}, repository.ErrNotFound
	}
	return l, nil
}

func (s *Store) CreateLocation(_ context.Context, l *model.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.locations {
		if other.Slug == l.Slug {
			return repository.ErrDuplicate
		}
	}
	l.ID = s.id()
	s.locations[l.ID] = *l
	return nil
}

func (s *Store) SearchLocations(_ context.Context, q string, limit int) ([]model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q = strings.ToLower(q)
	var out []model.Location
	for _, l := range s.locations {
		if q == "" || strings.Contains(strings.ToLower(l.Name), q) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortMatches(ms []model.Match) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].StartsAt.Equal(ms[j].StartsAt) {
			return ms[i].StartsAt.Before(ms[j].StartsAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

// keyedMutex hands out one mutex per id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func (k *keyedMutex) get(id uint64) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = map[uint64]*sync.Mutex{}
	}
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	return l
}
