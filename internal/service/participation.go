package service

import (
	"context"
	"strings"

	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
)

// ParticipationService runs the join request and approval workflow.  The
// confirmed count on the match only changes here and always under the match
// row lock.
type ParticipationService struct {
	Deps
}

func NewParticipationService(d Deps) *ParticipationService {
	return &ParticipationService{Deps: d}
}

// RequestJoin creates a PENDING participation.  The confirmed count is not
// touched until the host approves.
func (s *ParticipationService) RequestJoin(ctx context.Context, matchID uint64, user model.Principal) (model.Participation, error) {
	var (
		m model.Match
		p model.Participation
	)
	err := s.withRetry("request join", func() error {
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			now := s.now()
			if err := tx.LockUser(ctx, user.UserID); err != nil {
				return lookup(err, ErrUserNotFound)
			}
			cur, err := tx.LockMatch(ctx, matchID)
			if err != nil {
				return lookup(err, ErrMatchNotFound)
			}
			if cur.IsHost(user.UserID) {
				return ErrHostCannotParticipate
			}
			if !cur.IsRecruiting(now) {
				return ErrMatchNotRecruiting
			}
			if cur.IsFull() {
				return ErrMatchFull
			}

			history, err := tx.ParticipationsOf(ctx, cur.ID, user.UserID)
			if err != nil {
				return err
			}
			ended := 0
			for _, h := range history {
				if h.IsActive() {
					return ErrAlreadyParticipating
				}
				if h.CountsAsReapplication() {
					ended++
				}
			}
			if ended > s.Policy.MaxReapplications {
				return ErrReapplyLimitExceeded
			}
			if err := checkCalendar(ctx, tx, user.UserID, cur.ID, cur.StartsAt, cur.EndsAt, ErrOverlappingParticipation); err != nil {
				return err
			}

			p = model.Participation{
				MatchID:      cur.ID,
				UserID:       user.UserID,
				UserNickname: user.Nickname,
				Status:       model.ParticipationPending,
				JoinedAt:     now,
				UpdatedAt:    now,
			}
			if err := tx.InsertParticipation(ctx, &p); err != nil {
				return err
			}
			m = cur
			return nil
		})
	})
	if err != nil {
		return model.Participation{}, err
	}
	s.notifyParticipation(ctx, model.NotifyParticipationCreated, m, p)
	return p, nil
}

// Approve confirms a PENDING request and takes one slot.  The capacity
// check runs under the match lock so concurrent approvals cannot overshoot.
func (s *ParticipationService) Approve(ctx context.Context, matchID, participationID uint64, actor model.Principal) (model.Participation, error) {
	var (
		m model.Match
		p model.Participation
	)
	err := s.withRetry("approve participation", func() error {
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			now := s.now()
			cur, part, err := s.lockPair(ctx, tx, matchID, participationID)
			if err != nil {
				return err
			}
			if !cur.IsHost(actor.UserID) {
				return ErrNotMatchHost
			}
			if part.Status != model.ParticipationPending {
				return ErrInvalidParticipationStatus
			}
			if !cur.IsRecruiting(now) {
				return ErrMatchNotRecruiting
			}
			if cur.IsFull() {
				return ErrMatchFull
			}

			part.Status = model.ParticipationConfirmed
			part.UpdatedAt = now
			if err := tx.UpdateParticipation(ctx, &part); err != nil {
				return err
			}
			cur.CurrentParticipants++
			cur.UpdatedAt = now
			if err := tx.UpdateMatch(ctx, &cur); err != nil {
				return err
			}
			m, p = cur, part
			return nil
		})
	})
	if err != nil {
		return model.Participation{}, err
	}
	s.notifyParticipation(ctx, model.NotifyParticipationApproved, m, p)
	return p, nil
}

// Reject turns down a PENDING request with a reason.
func (s *ParticipationService) Reject(ctx context.Context, matchID, participationID uint64, actor model.Principal, reason string) (model.Participation, error) {
	reason = strings.TrimSpace(reason)
	var (
		m model.Match
		p model.Participation
	)
	err := s.withRetry("reject participation", func() error {
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			cur, part, err := s.lockPair(ctx, tx, matchID, participationID)
			if err != nil {
				return err
			}
			if !cur.IsHost(actor.UserID) {
				return ErrNotMatchHost
			}
			if part.Status != model.ParticipationPending {
				return ErrInvalidParticipationStatus
			}
			if reason == "" {
				return ErrRejectReasonRequired
			}
			if tooLong(reason, maxReasonLen) {
				return ErrReasonTooLong
			}
			part.Status = model.ParticipationRejected
			part.RejectReason = &reason
			part.UpdatedAt = s.now()
			if err := tx.UpdateParticipation(ctx, &part); err != nil {
				return err
			}
			m, p = cur, part
			return nil
		})
	})
	if err != nil {
		return model.Participation{}, err
	}
	s.notifyParticipation(ctx, model.NotifyParticipationRejected, m, p)
	return p, nil
}

// CancelParticipation withdraws the caller's request or confirmed place.
// The cutoff applies to PENDING requests too.
func (s *ParticipationService) CancelParticipation(ctx context.Context, matchID, participationID uint64, actor model.Principal) (model.Participation, error) {
	var (
		m model.Match
		p model.Participation
	)
	err := s.withRetry("cancel participation", func() error {
		return s.Store.InTx(ctx, func(tx repository.Tx) error {
			now := s.now()
			cur, part, err := s.lockPair(ctx, tx, matchID, participationID)
			if err != nil {
				return err
			}
			if part.UserID != actor.UserID {
				return ErrNotParticipant
			}
			if !part.IsActive() {
				return ErrInvalidParticipationStatus
			}
			if cur.StartsAt.Sub(now) <= s.Policy.ParticipationCancelCutoff {
				return ErrParticipationCancelTimeOver
			}

			wasConfirmed := part.Status == model.ParticipationConfirmed
			part.Status = model.ParticipationCancelled
			part.UpdatedAt = now
			if err := tx.UpdateParticipation(ctx, &part); err != nil {
				return err
			}
			if wasConfirmed {
				cur.CurrentParticipants--
				cur.UpdatedAt = now
				if err := tx.UpdateMatch(ctx, &cur); err != nil {
					return err
				}
			}
			m, p = cur, part
			return nil
		})
	})
	if err != nil {
		return model.Participation{}, err
	}
	s.notifyParticipation(ctx, model.NotifyParticipationCancelled, m, p)
	return p, nil
}

// ListByMatch returns the participations shown on a match page.
func (s *ParticipationService) ListByMatch(ctx context.Context, matchID uint64) ([]model.Participation, error) {
	if _, err := s.Store.GetMatch(ctx, matchID); err != nil {
		return nil, lookup(err, ErrMatchNotFound)
	}
	return s.Store.MatchParticipations(ctx, matchID)
}

// ListMine returns every participation of the user.
func (s *ParticipationService) ListMine(ctx context.Context, userID uint64) ([]model.Participation, error) {
	return s.Store.UserParticipations(ctx, userID)
}

// lockPair locks the match and loads one of its participations.
func (s *ParticipationService) lockPair(ctx context.Context, tx repository.Tx, matchID, participationID uint64) (model.Match, model.Participation, error) {
	cur, err := tx.LockMatch(ctx, matchID)
	if err != nil {
		return model.Match{}, model.Participation{}, lookup(err, ErrMatchNotFound)
	}
	part, err := tx.GetParticipation(ctx, participationID)
	if err != nil {
		return model.Match{}, model.Participation{}, lookup(err, ErrParticipationNotFound)
	}
	if part.MatchID != cur.ID {
		return model.Match{}, model.Participation{}, ErrParticipationNotFound
	}
	return cur, part, nil
}
