package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kangminhyuk1111/hoops/internal/config"
	"github.com/kangminhyuk1111/hoops/internal/logger"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type notification struct {
	typ      model.NotificationType
	match    uint64
	affected int
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (r *recordingNotifier) ParticipationChanged(_ context.Context, t model.NotificationType, m model.Match, _ model.Participation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{typ: t, match: m.ID, affected: 1})
	return r.err
}

func (r *recordingNotifier) MatchCancelled(_ context.Context, m model.Match, affected []model.Participation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{typ: model.NotifyMatchCancelled, match: m.ID, affected: len(affected)})
	return r.err
}

func (r *recordingNotifier) last() notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return notification{}
	}
	return r.sent[len(r.sent)-1]
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	clock    *fakeClock
	notifier *recordingNotifier
	deps     Deps
	matches  *MatchService
	parts    *ParticipationService
	query    *QueryService
	host     model.Principal
	location model.Location
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	policy := config.DefaultMatchPolicy()
	policy.Location = time.UTC

	d := Deps{
		Store:    store,
		Notifier: notifier,
		Policy:   policy,
		Log:      logger.Discard(),
		Now:      clock.Now,
	}
	h := &harness{
		t:        t,
		ctx:      context.Background(),
		store:    store,
		clock:    clock,
		notifier: notifier,
		deps:     d,
		matches:  NewMatchService(d),
		parts:    NewParticipationService(d),
		query:    NewQueryService(d),
	}
	h.host = h.user("host")
	loc := model.Location{Name: "Han River Court", Slug: "han-river-court", Address: "Seoul", Latitude: 37.5284, Longitude: 126.9340}
	if err := store.CreateLocation(h.ctx, &loc); err != nil {
		t.Fatalf("seed location: %v", err)
	}
	h.location = loc
	return h
}

func (h *harness) user(nickname string) model.Principal {
	u := h.store.AddUser(model.User{Nickname: nickname})
	return model.Principal{UserID: u.ID, Nickname: u.Nickname}
}

// cmd builds a create command starting `in` from the fake now.
func (h *harness) cmd(in, length time.Duration, max int) CreateMatchCommand {
	start := h.clock.Now().Add(in)
	return CreateMatchCommand{
		LocationID:      h.location.ID,
		Title:           "Pickup run",
		MatchDate:       start.Format(dateLayout),
		StartTime:       start.Format(timeLayout),
		EndTime:         start.Add(length).Format(timeLayout),
		MaxParticipants: max,
	}
}

func (h *harness) createMatch(host model.Principal, in time.Duration) model.Match {
	h.t.Helper()
	m, err := h.matches.Create(h.ctx, host, h.cmd(in, 90*time.Minute, 10))
	if err != nil {
		h.t.Fatalf("create match: %v", err)
	}
	return m
}

func (h *harness) join(m model.Match, u model.Principal) model.Participation {
	h.t.Helper()
	p, err := h.parts.RequestJoin(h.ctx, m.ID, u)
	if err != nil {
		h.t.Fatalf("join %s: %v", u.Nickname, err)
	}
	return p
}

func (h *harness) approve(m model.Match, p model.Participation) {
	h.t.Helper()
	if _, err := h.parts.Approve(h.ctx, m.ID, p.ID, h.principalOf(m)); err != nil {
		h.t.Fatalf("approve %d: %v", p.ID, err)
	}
}

func (h *harness) principalOf(m model.Match) model.Principal {
	return model.Principal{UserID: m.HostID, Nickname: m.HostNickname}
}

func (h *harness) reload(id uint64) model.Match {
	h.t.Helper()
	m, err := h.store.GetMatch(h.ctx, id)
	if err != nil {
		h.t.Fatalf("reload match %d: %v", id, err)
	}
	return m
}

func (h *harness) participation(id uint64) model.Participation {
	h.t.Helper()
	p, ok := h.store.Participation(id)
	if !ok {
		h.t.Fatalf("participation %d missing", id)
	}
	return p
}

func wantErr(t *testing.T, got error, want *Error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("error = %v, want %s", got, want.Code)
	}
}
