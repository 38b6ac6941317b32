package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// CreateMatchCommand carries a new match as entered by the host.  Date and
// times are wall-clock values in the policy's zone.
type CreateMatchCommand struct {
	LocationID      uint64
	Title           string
	Description     *string
	MatchDate       string // YYYY-MM-DD
	StartTime       string // HH:MM
	EndTime         string // HH:MM
	MaxParticipants int
}

// UpdateMatchCommand is a partial update.  Nil fields keep their value.
type UpdateMatchCommand struct {
	Title           *string
	Description     *string
	MatchDate       *string
	StartTime       *string
	EndTime         *string
	MaxParticipants *int
}

// TransitionResult counts the status changes applied by TransitionDue.
type TransitionResult struct {
	Started int
	Ended   int
}

// MatchService owns the match state machine.
type MatchService struct {
	Deps
}

func NewMatchService(d Deps) *MatchService { return &MatchService{Deps: d} }

// Create validates the schedule and capacity, checks the host's calendar
// and inserts a PENDING match with no confirmed participants.
func (s *MatchService) Create(ctx context.Context, host model.Principal, cmd CreateMatchCommand) (model.Match, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" || cmd.LocationID == 0 {
		return model.Match{}, ErrInvalidCommand
	}
	if tooLong(title, maxTitleLen) {
		return model.Match{}, ErrTitleTooLong
	}
	start, end, err := s.parseSchedule(cmd.MatchDate, cmd.StartTime, cmd.EndTime)
	if err != nil {
		return model.Match{}, err
	}
	now := s.now()
	if err := s.validateSchedule(start, end, now); err != nil {
		return model.Match{}, err
	}
	if err := s.validateCapacity(cmd.MaxParticipants); err != nil {
		return model.Match{}, err
	}
	loc, err := s.Store.GetLocation(ctx, cmd.LocationID)
	if err != nil {
		return model.Match{}, lookup(err, ErrLocationNotFound)
	}

	var m model.Match
	err = s.withRetry("create match", func() error {
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			if err := tx.LockUser(ctx, host.UserID); err != nil {
				return lookup(err, ErrUserNotFound)
			}
			if err := checkCalendar(ctx, tx, host.UserID, 0, start, end, ErrOverlappingHosting); err != nil {
				return err
			}
			m = model.Match{
				HostID:          host.UserID,
				HostNickname:    host.Nickname,
				Title:           title,
				Description:     trimmed(cmd.Description),
				LocationID:      loc.ID,
				LocationName:    loc.Name,
				Address:         loc.Address,
				Latitude:        loc.Latitude,
				Longitude:       loc.Longitude,
				StartsAt:        start,
				EndsAt:          end,
				MaxParticipants: cmd.MaxParticipants,
				Status:          model.MatchPending,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			return tx.InsertMatch(ctx, &m)
		})
	})
	if err != nil {
		return model.Match{}, err
	}
	s.indexPut(ctx, m)
	s.logger().Infof("match created id=%d host=%d starts_at=%s", m.ID, m.HostID, m.StartsAt.Format(time.RFC3339))
	return m, nil
}

// Cancel moves a recruiting match to CANCELLED and cascades every active
// participation to MATCH_CANCELLED.  The confirmed count is kept so a
// reactivation restores the match as it was.
func (s *MatchService) Cancel(ctx context.Context, matchID uint64, actor model.Principal, reason string) (model.Match, error) {
	reason = strings.TrimSpace(reason)
	if tooLong(reason, maxReasonLen) {
		return model.Match{}, ErrReasonTooLong
	}
	var (
		m        model.Match
		affected []model.Participation
	)
	err := s.withRetry("cancel match", func() error {
		affected = nil
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			now := s.now()
			cur, err := tx.LockMatch(ctx, matchID)
			if err != nil {
				return lookup(err, ErrMatchNotFound)
			}
			if !cur.IsHost(actor.UserID) {
				return ErrNotMatchHost
			}
			switch model.NextStatus(cur, now) {
			case model.MatchInProgress, model.MatchEnded:
				return ErrMatchAlreadyStarted
			case model.MatchCancelled:
				return ErrMatchAlreadyCancelled
			}
			if reason == "" {
				return ErrCancelReasonRequired
			}
			if cur.StartsAt.Sub(now) < s.Policy.CancelCutoff {
				return ErrCancelTimeExceeded
			}

			parts, err := tx.ActiveParticipations(ctx, cur.ID)
			if err != nil {
				return err
			}
			for i := range parts {
				parts[i].Status = model.ParticipationMatchCancelled
				parts[i].UpdatedAt = now
				if err := tx.UpdateParticipation(ctx, &parts[i]); err != nil {
					return err
				}
			}
			cur.Status = model.MatchCancelled
			cur.CancelReason = &reason
			cur.CancelledAt = &now
			cur.UpdatedAt = now
			if err := tx.UpdateMatch(ctx, &cur); err != nil {
				return err
			}
			m, affected = cur, parts
			return nil
		})
	})
	if err != nil {
		return model.Match{}, err
	}
	s.indexRemove(ctx, m.ID)
	s.notifyMatchCancelled(ctx, m, affected)
	s.logger().Infof("match cancelled id=%d participations=%d", m.ID, len(affected))
	return m, nil
}

// Reactivate undoes a cancellation within the reactivation window.  The
// match returns to PENDING with its confirmed count; cascaded
// participations stay MATCH_CANCELLED and players must request again.
func (s *MatchService) Reactivate(ctx context.Context, matchID uint64, actor model.Principal) (model.Match, error) {
	var m model.Match
	err := s.withRetry("reactivate match", func() error {
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			now := s.now()
			if err := tx.LockUser(ctx, actor.UserID); err != nil {
				return lookup(err, ErrUserNotFound)
			}
			cur, err := tx.LockMatch(ctx, matchID)
			if err != nil {
				return lookup(err, ErrMatchNotFound)
			}
			if !cur.IsHost(actor.UserID) {
				return ErrNotMatchHost
			}
			if cur.Status != model.MatchCancelled || cur.CancelledAt == nil {
				return ErrMatchCannotReactivate
			}
			if now.Sub(*cur.CancelledAt) > s.Policy.ReactivateWindow {
				return ErrReactivateWindowExpired
			}
			if !now.Before(cur.StartsAt) {
				return ErrMatchCannotReactivate
			}
			if err := checkCalendar(ctx, tx, actor.UserID, cur.ID, cur.StartsAt, cur.EndsAt, ErrOverlappingHosting); err != nil {
				return err
			}
			cur.Status = model.MatchPending
			cur.CancelReason = nil
			cur.CancelledAt = nil
			cur.UpdatedAt = now
			if err := tx.UpdateMatch(ctx, &cur); err != nil {
				return err
			}
			m = cur
			return nil
		})
	})
	if err != nil {
		return model.Match{}, err
	}
	s.indexPut(ctx, m)
	s.logger().Infof("match reactivated id=%d", m.ID)
	return m, nil
}

// Update changes the details of a PENDING match that has not started.  The
// schedule is fixed once any participation is PENDING or CONFIRMED.
func (s *MatchService) Update(ctx context.Context, matchID uint64, actor model.Principal, cmd UpdateMatchCommand) (model.Match, error) {
	var m model.Match
	err := s.withRetry("update match", func() error {
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			now := s.now()
			if err := tx.LockUser(ctx, actor.UserID); err != nil {
				return lookup(err, ErrUserNotFound)
			}
			cur, err := tx.LockMatch(ctx, matchID)
			if err != nil {
				return lookup(err, ErrMatchNotFound)
			}
			if !cur.IsHost(actor.UserID) {
				return ErrNotMatchHost
			}
			if model.NextStatus(cur, now) != model.MatchPending {
				return ErrMatchCannotBeUpdated
			}

			if cmd.Title != nil {
				t := strings.TrimSpace(*cmd.Title)
				if t == "" {
					return ErrInvalidCommand
				}
				if tooLong(t, maxTitleLen) {
					return ErrTitleTooLong
				}
				cur.Title = t
			}
			if cmd.Description != nil {
				cur.Description = trimmed(cmd.Description)
			}
			if cmd.MatchDate != nil || cmd.StartTime != nil || cmd.EndTime != nil {
				local := cur.StartsAt.In(s.Policy.Location)
				date := pick(cmd.MatchDate, local.Format(dateLayout))
				startT := pick(cmd.StartTime, local.Format(timeLayout))
				endT := pick(cmd.EndTime, cur.EndsAt.In(s.Policy.Location).Format(timeLayout))
				start, end, err := s.parseSchedule(date, startT, endT)
				if err != nil {
					return err
				}
				if err := s.validateSchedule(start, end, now); err != nil {
					return err
				}
				moved := !start.Equal(cur.StartsAt) || !end.Equal(cur.EndsAt)
				if moved {
					// Players' calendars were checked against the old window.
					active, err := tx.ActiveParticipations(ctx, cur.ID)
					if err != nil {
						return err
					}
					if len(active) > 0 {
						return ErrScheduleLocked
					}
				}
				if err := checkCalendar(ctx, tx, actor.UserID, cur.ID, start, end, ErrOverlappingHosting); err != nil {
					return err
				}
				cur.StartsAt, cur.EndsAt = start, end
			}
			if cmd.MaxParticipants != nil {
				n := *cmd.MaxParticipants
				if err := s.validateCapacity(n); err != nil {
					return err
				}
				if n < cur.CurrentParticipants {
					return ErrInvalidMaxParticipantsUpdate
				}
				cur.MaxParticipants = n
			}
			cur.UpdatedAt = now
			if err := tx.UpdateMatch(ctx, &cur); err != nil {
				return err
			}
			m = cur
			return nil
		})
	})
	if err != nil {
		return model.Match{}, err
	}
	s.indexPut(ctx, m)
	return m, nil
}

func (s *MatchService) Get(ctx context.Context, id uint64) (model.Match, error) {
	m, err := s.Store.GetMatch(ctx, id)
	if err != nil {
		return model.Match{}, lookup(err, ErrMatchNotFound)
	}
	return m, nil
}

func (s *MatchService) ListHosted(ctx context.Context, hostID uint64) ([]model.Match, error) {
	return s.Store.HostedMatches(ctx, hostID)
}

// TransitionByTime returns the status m should have at now.  It is safe to
// call any number of times.
func TransitionByTime(m model.Match, now time.Time) model.MatchStatus {
	return model.NextStatus(m, now)
}

// TransitionDue starts and ends every match whose time has come.  Each
// match is handled in its own transaction under the match row lock, so a
// redundant or concurrent run is harmless.
func (s *MatchService) TransitionDue(ctx context.Context) (TransitionResult, error) {
	var res TransitionResult
	now := s.now()
	ids, err := s.Store.DueMatchIDs(ctx, now, 500)
	if err != nil {
		return res, fmt.Errorf("load due matches: %w", err)
	}
	for _, id := range ids {
		next, err := s.transition(ctx, id, now)
		if err != nil {
			s.logger().Errorf("transition match=%d: %v", id, err)
			continue
		}
		switch next {
		case model.MatchInProgress:
			res.Started++
			if m, err := s.Store.GetMatch(ctx, id); err == nil {
				s.indexPut(ctx, m)
			}
		case model.MatchEnded:
			res.Ended++
			s.indexRemove(ctx, id)
		}
	}
	if res.Started > 0 || res.Ended > 0 {
		s.logger().Infof("match transitions started=%d ended=%d", res.Started, res.Ended)
	}
	return res, nil
}

// ReindexResult reports what Reindex changed.
type ReindexResult struct {
	Indexed int
	Pruned  int
}

// Reindex reconciles the geo index with the store.  Every PENDING or
// IN_PROGRESS match is (re)added; a member is dropped only after the store
// confirms the match is no longer active.  The key is never cleared, so a
// Put racing with the run is not lost.
func (s *MatchService) Reindex(ctx context.Context) (ReindexResult, error) {
	var res ReindexResult
	if s.Index == nil {
		return res, nil
	}
	active, err := s.Store.SearchMatches(ctx, repository.MatchSearch{
		Statuses: []model.MatchStatus{model.MatchPending, model.MatchInProgress},
	})
	if err != nil {
		return res, fmt.Errorf("load active matches: %w", err)
	}
	if err := s.Index.PutAll(ctx, active); err != nil {
		return res, fmt.Errorf("index active matches: %w", err)
	}
	res.Indexed = len(active)

	live := make(map[uint64]bool, len(active))
	for _, m := range active {
		live[m.ID] = true
	}
	members, err := s.Index.Members(ctx)
	if err != nil {
		return res, fmt.Errorf("list index members: %w", err)
	}
	for _, id := range members {
		if live[id] {
			continue
		}
		m, err := s.Store.GetMatch(ctx, id)
		if err == nil && m.IsActive() {
			continue // became active after the snapshot
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger().Warnf("reindex: load match=%d: %v", id, err)
			continue
		}
		if err := s.Index.Remove(ctx, id); err != nil {
			return res, fmt.Errorf("prune match=%d: %w", id, err)
		}
		res.Pruned++
	}
	if res.Pruned > 0 {
		s.logger().Infof("geo index reconciled indexed=%d pruned=%d", res.Indexed, res.Pruned)
	}
	return res, nil
}

// transition applies TransitionByTime to one match.  It returns the new
// status, or "" when nothing changed.
func (s *MatchService) transition(ctx context.Context, id uint64, now time.Time) (model.MatchStatus, error) {
	var changed model.MatchStatus
	err := s.withRetry("transition match", func() error {
		changed = ""
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			cur, err := tx.LockMatch(ctx, id)
			if err != nil {
				return err
			}
			next := TransitionByTime(cur, now)
			if next == cur.Status {
				return nil
			}
			cur.Status = next
			cur.UpdatedAt = now
			if err := tx.UpdateMatch(ctx, &cur); err != nil {
				return err
			}
			changed = next
			return nil
		})
	})
	return changed, err
}

// parseSchedule turns wall-clock inputs into UTC instants.  An end time at
// or before the start is reported as too short rather than rolled over to
// the next day.
func (s *MatchService) parseSchedule(date, start, end string) (time.Time, time.Time, error) {
	loc := s.Policy.Location
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidSchedule
	}
	st, err := parseClock(start)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidSchedule
	}
	et, err := parseClock(end)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidSchedule
	}
	startAt := time.Date(d.Year(), d.Month(), d.Day(), st.Hour(), st.Minute(), 0, 0, loc)
	endAt := time.Date(d.Year(), d.Month(), d.Day(), et.Hour(), et.Minute(), 0, 0, loc)
	return startAt.UTC(), endAt.UTC(), nil
}

func parseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", s)
}

func (s *MatchService) validateSchedule(start, end, now time.Time) error {
	if end.Sub(start) < s.Policy.MinDuration {
		return ErrMatchDurationTooShort
	}
	if start.Before(now.Add(s.Policy.MinLeadTime)) {
		return ErrMatchTooSoon
	}
	if start.After(now.Add(s.Policy.MaxHorizon)) {
		return ErrMatchTooFar
	}
	return nil
}

func (s *MatchService) validateCapacity(n int) error {
	if n < s.Policy.MinParticipants || n > s.Policy.MaxParticipants {
		return ErrInvalidMaxParticipants
	}
	return nil
}

// checkCalendar fails with conflict when any active commitment of userID
// other than match skip overlaps [start, end).
func checkCalendar(ctx context.Context, tx repository.Tx, userID, skip uint64, start, end time.Time, conflict error) error {
	commitments, err := tx.CommitmentsOf(ctx, userID)
	if err != nil {
		return err
	}
	for _, c := range commitments {
		if c.ID != skip && c.Overlaps(start, end) {
			return conflict
		}
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func pick(v *string, def string) string {
	if v != nil {
		return *v
	}
	return def
}
