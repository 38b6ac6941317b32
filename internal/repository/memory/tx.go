package memory

import (
	"context"
	"sort"

	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
)

type tx struct {
	s              *Store
	matches        map[uint64]model.Match
	participations map[uint64]model.Participation
	lockedMatches  map[uint64]bool
	lockedUsers    map[uint64]bool
	held           []interface{ Unlock() }
}

func (t *tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

func (t *tx) LockUser(_ context.Context, userID uint64) error {
	t.s.mu.Lock()
	_, ok := t.s.users[userID]
	t.s.mu.Unlock()
	if !ok {
		return repository.ErrNotFound
	}
	if t.lockedUsers[userID] {
		return nil
	}
	l := t.s.userLocks.get(userID)
	l.Lock()
	t.held = append(t.held, l)
	t.lockedUsers[userID] = true
	return nil
}

func (t *tx) LockMatch(ctx context.Context, id uint64) (model.Match, error) {
	if !t.lockedMatches[id] {
		t.s.mu.Lock()
		_, ok := t.s.matches[id]
		t.s.mu.Unlock()
		if !ok {
			return model.Match{}, repository.ErrNotFound
		}
		l := t.s.matchLocks.get(id)
		l.Lock()
		t.held = append(t.held, l)
		t.lockedMatches[id] = true
	}
	return t.match(id)
}

func (t *tx) match(id uint64) (model.Match, error) {
	if m, ok := t.matches[id]; ok {
		return m, nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	m, ok := t.s.matches[id]
	if !ok {
		return model.Match{}, repository.ErrNotFound
	}
	return m, nil
}

func (t *tx) InsertMatch(_ context.Context, m *model.Match) error {
	t.s.mu.Lock()
	m.ID = t.s.id()
	t.s.mu.Unlock()
	m.Version = 1
	t.matches[m.ID] = *m
	return nil
}

func (t *tx) UpdateMatch(_ context.Context, m *model.Match) error {
	t.s.mu.Lock()
	if t.s.conflicts > 0 {
		t.s.conflicts--
		t.s.mu.Unlock()
		return repository.ErrVersionConflict
	}
	t.s.mu.Unlock()

	cur, err := t.match(m.ID)
	if err != nil {
		return err
	}
	if cur.Version != m.Version {
		return repository.ErrVersionConflict
	}
	m.Version++
	t.matches[m.ID] = *m
	return nil
}

// allMatches merges committed rows with this transaction's staged rows.
func (t *tx) allMatches() map[uint64]model.Match {
	t.s.mu.Lock()
	out := make(map[uint64]model.Match, len(t.s.matches))
	for id, m := range t.s.matches {
		out[id] = m
	}
	t.s.mu.Unlock()
	for id, m := range t.matches {
		out[id] = m
	}
	return out
}

func (t *tx) allParticipations() map[uint64]model.Participation {
	t.s.mu.Lock()
	out := make(map[uint64]model.Participation, len(t.s.participations))
	for id, p := range t.s.participations {
		out[id] = p
	}
	t.s.mu.Unlock()
	for id, p := range t.participations {
		out[id] = p
	}
	return out
}

func (t *tx) CommitmentsOf(_ context.Context, userID uint64) ([]model.Match, error) {
	joined := map[uint64]bool{}
	for _, p := range t.allParticipations() {
		if p.UserID == userID && p.IsActive() {
			joined[p.MatchID] = true
		}
	}
	var out []model.Match
	for _, m := range t.allMatches() {
		if m.IsActive() && (m.HostID == userID || joined[m.ID]) {
			out = append(out, m)
		}
	}
	sortMatches(out)
	return out, nil
}

func (t *tx) GetParticipation(_ context.Context, id uint64) (model.Participation, error) {
	if p, ok := t.participations[id]; ok {
		return p, nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	p, ok := t.s.participations[id]
	if !ok {
		return model.Participation{}, repository.ErrNotFound
	}
	return p, nil
}

func (t *tx) ParticipationsOf(_ context.Context, matchID, userID uint64) ([]model.Participation, error) {
	return t.filterParticipations(func(p model.Participation) bool {
		return p.MatchID == matchID && p.UserID == userID
	}), nil
}

func (t *tx) ActiveParticipations(_ context.Context, matchID uint64) ([]model.Participation, error) {
	return t.filterParticipations(func(p model.Participation) bool {
		return p.MatchID == matchID && p.IsActive()
	}), nil
}

func (t *tx) filterParticipations(keep func(model.Participation) bool) []model.Participation {
	var out []model.Participation
	for _, p := range t.allParticipations() {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) InsertParticipation(_ context.Context, p *model.Participation) error {
	t.s.mu.Lock()
	p.ID = t.s.id()
	t.s.mu.Unlock()
	t.participations[p.ID] = *p
	return nil
}

func (t *tx) UpdateParticipation(_ context.Context, p *model.Participation) error {
	if _, err := t.GetParticipation(context.Background(), p.ID); err != nil {
		return err
	}
	t.participations[p.ID] = *p
	return nil
}
