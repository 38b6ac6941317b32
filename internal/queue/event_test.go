package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

func sampleMatch() model.Match {
	reason := "rain"
	return model.Match{
		ID:           7,
		HostID:       1,
		HostNickname: "host",
		Title:        "Friday run",
		CancelReason: &reason,
		UpdatedAt:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestParticipationEventRecipients(t *testing.T) {
	m := sampleMatch()
	p := model.Participation{ID: 3, MatchID: 7, UserID: 2, UserNickname: "guard"}

	cases := []struct {
		typ       model.NotificationType
		recipient uint64
		actor     string
	}{
		{model.NotifyParticipationCreated, 1, "guard"},
		{model.NotifyParticipationCancelled, 1, "guard"},
		{model.NotifyParticipationApproved, 2, "host"},
		{model.NotifyParticipationRejected, 2, "host"},
	}
	for _, tc := range cases {
		ev := ParticipationEvent(tc.typ, m, p)
		if ev.RecipientID != tc.recipient || ev.ActorNickname != tc.actor {
			t.Errorf("%s: recipient=%d actor=%q, want %d %q", tc.typ, ev.RecipientID, ev.ActorNickname, tc.recipient, tc.actor)
		}
		if ev.EventID == "" || ev.MatchID != 7 || ev.ParticipationID != 3 {
			t.Errorf("%s: incomplete event %+v", tc.typ, ev)
		}
	}
}

func TestMatchCancelledEvents(t *testing.T) {
	m := sampleMatch()
	affected := []model.Participation{{ID: 3, UserID: 2}, {ID: 4, UserID: 5}}

	evs := MatchCancelledEvents(m, affected)
	if len(evs) != 2 {
		t.Fatalf("got %d events", len(evs))
	}
	if evs[0].EventID == evs[1].EventID {
		t.Fatal("event ids must be unique")
	}
	for i, ev := range evs {
		if ev.RecipientID != affected[i].UserID || ev.Reason != "rain" || ev.Type != model.NotifyMatchCancelled {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}
}

type recordingStore struct {
	got []model.Notification
	err error
}

func (r *recordingStore) Create(_ context.Context, n *model.Notification) error {
	if r.err != nil {
		return r.err
	}
	n.ID = uint64(len(r.got) + 1)
	r.got = append(r.got, *n)
	return nil
}

func TestConsumerHandleMessage(t *testing.T) {
	store := &recordingStore{}
	c := NewConsumer("amqp://unused", store, nil)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	body, _ := json.Marshal(MatchCancelledEvents(sampleMatch(), []model.Participation{{ID: 3, UserID: 2}})[0])
	if err := c.HandleMessage(context.Background(), body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(store.got) != 1 {
		t.Fatalf("stored %d notifications", len(store.got))
	}
	n := store.got[0]
	if n.UserID != 2 || n.Type != model.NotifyMatchCancelled || n.RelatedMatchID == nil || *n.RelatedMatchID != 7 {
		t.Fatalf("notification = %+v", n)
	}
	if !strings.Contains(n.Message, "rain") || !n.CreatedAt.Equal(now) {
		t.Fatalf("message %q created %v", n.Message, n.CreatedAt)
	}
}

func TestConsumerRejectsBadMessages(t *testing.T) {
	store := &recordingStore{}
	c := NewConsumer("amqp://unused", store, nil)

	if err := c.HandleMessage(context.Background(), []byte("{")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := c.HandleMessage(context.Background(), []byte(`{"type":"MATCH_CANCELLED"}`)); err == nil {
		t.Fatal("expected missing recipient error")
	}

	store.err = errors.New("db down")
	body, _ := json.Marshal(NotificationEvent{Type: model.NotifyParticipationApproved, RecipientID: 2, MatchID: 7})
	if err := c.HandleMessage(context.Background(), body); err == nil {
		t.Fatal("expected store error")
	}
}
