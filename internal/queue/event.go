// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that turns match events into stored
// notifications.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

// NotificationQueue is the durable queue carrying NotificationEvent messages.
const NotificationQueue = "hoops.notifications"

// NotificationEvent is addressed to exactly one recipient.  It carries enough
// of the match for the consumer to render the notification without querying
// the matches table.
type NotificationEvent struct {
	EventID         string                 `json:"event_id"`
	Type            model.NotificationType `json:"type"`
	RecipientID     uint64                 `json:"recipient_id"`
	MatchID         uint64                 `json:"match_id"`
	MatchTitle      string                 `json:"match_title"`
	ParticipationID uint64                 `json:"participation_id,omitempty"`
	ActorNickname   string                 `json:"actor_nickname,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	OccurredAt      string                 `json:"occurred_at"`
}

// ParticipationEvent builds the event for a participation change.  Join
// requests and withdrawals go to the host; decisions go to the player.
func ParticipationEvent(t model.NotificationType, m model.Match, p model.Participation) NotificationEvent {
	ev := NotificationEvent{
		EventID:         uuid.NewString(),
		Type:            t,
		MatchID:         m.ID,
		MatchTitle:      m.Title,
		ParticipationID: p.ID,
		OccurredAt:      p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	switch t {
	case model.NotifyParticipationCreated, model.NotifyParticipationCancelled:
		ev.RecipientID = m.HostID
		ev.ActorNickname = p.UserNickname
	default:
		ev.RecipientID = p.UserID
		ev.ActorNickname = m.HostNickname
	}
	if p.RejectReason != nil {
		ev.Reason = *p.RejectReason
	}
	return ev
}

// MatchCancelledEvents builds one event per participant affected by a
// cancellation.
func MatchCancelledEvents(m model.Match, affected []model.Participation) []NotificationEvent {
	reason := ""
	if m.CancelReason != nil {
		reason = *m.CancelReason
	}
	at := m.UpdatedAt.UTC().Format(time.RFC3339)
	out := make([]NotificationEvent, 0, len(affected))
	for _, p := range affected {
		out = append(out, NotificationEvent{
			EventID:         uuid.NewString(),
			Type:            model.NotifyMatchCancelled,
			RecipientID:     p.UserID,
			MatchID:         m.ID,
			MatchTitle:      m.Title,
			ParticipationID: p.ID,
			ActorNickname:   m.HostNickname,
			Reason:          reason,
			OccurredAt:      at,
		})
	}
	return out
}

// Notification renders the stored notification for ev.
func (ev NotificationEvent) Notification(now time.Time) model.Notification {
	matchID := ev.MatchID
	n := model.Notification{
		UserID:         ev.RecipientID,
		Type:           ev.Type,
		RelatedMatchID: &matchID,
		CreatedAt:      now.UTC(),
	}
	switch ev.Type {
	case model.NotifyParticipationCreated:
		n.Title = "New join request"
		n.Message = fmt.Sprintf("%s wants to join %q.", ev.ActorNickname, ev.MatchTitle)
	case model.NotifyParticipationApproved:
		n.Title = "Request approved"
		n.Message = fmt.Sprintf("You are confirmed for %q.", ev.MatchTitle)
	case model.NotifyParticipationRejected:
		n.Title = "Request rejected"
		n.Message = fmt.Sprintf("Your request for %q was rejected: %s", ev.MatchTitle, ev.Reason)
	case model.NotifyParticipationCancelled:
		n.Title = "Player withdrew"
		n.Message = fmt.Sprintf("%s withdrew from %q.", ev.ActorNickname, ev.MatchTitle)
	case model.NotifyMatchCancelled:
		n.Title = "Match cancelled"
		n.Message = fmt.Sprintf("%q was cancelled by the host: %s", ev.MatchTitle, ev.Reason)
	default:
		n.Title = "Match update"
		n.Message = fmt.Sprintf("%q was updated.", ev.MatchTitle)
	}
	return n
}
