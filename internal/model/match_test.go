package model

import (
	"testing"
	"time"
)

func testMatch(status MatchStatus, start time.Time) Match {
	return Match{
		Status:          status,
		StartsAt:        start,
		EndsAt:          start.Add(90 * time.Minute),
		MaxParticipants: 10,
	}
}

func TestNextStatus(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		status MatchStatus
		now    time.Time
		want   MatchStatus
	}{
		{"pending before start", MatchPending, start.Add(-time.Minute), MatchPending},
		{"pending at start", MatchPending, start, MatchInProgress},
		{"pending after end", MatchPending, start.Add(2 * time.Hour), MatchEnded},
		{"in progress before end", MatchInProgress, start.Add(time.Hour), MatchInProgress},
		{"in progress at end", MatchInProgress, start.Add(90 * time.Minute), MatchEnded},
		{"cancelled after start", MatchCancelled, start.Add(time.Hour), MatchCancelled},
		{"ended stays ended", MatchEnded, start.Add(-time.Hour), MatchEnded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := testMatch(tc.status, start)
			got := NextStatus(m, tc.now)
			if got != tc.want {
				t.Fatalf("NextStatus = %s, want %s", got, tc.want)
			}
			m.Status = got
			if again := NextStatus(m, tc.now); again != got {
				t.Fatalf("second call = %s, want %s", again, got)
			}
		})
	}
}

func TestDisplayAndRecruitmentStatus(t *testing.T) {
	m := testMatch(MatchPending, time.Now())
	m.MaxParticipants = 4

	cases := []struct {
		current     int
		display     MatchStatus
		recruitment RecruitmentStatus
	}{
		{0, MatchPending, Recruiting},
		{1, MatchPending, Recruiting},
		{2, MatchPending, AlmostFull},
		{3, MatchPending, AlmostFull},
		{4, MatchFull, FullyBooked},
	}
	for _, tc := range cases {
		m.CurrentParticipants = tc.current
		if got := m.DisplayStatus(); got != tc.display {
			t.Errorf("current=%d display = %s, want %s", tc.current, got, tc.display)
		}
		if got := m.RecruitmentStatus(2); got != tc.recruitment {
			t.Errorf("current=%d recruitment = %s, want %s", tc.current, got, tc.recruitment)
		}
	}

	m.Status = MatchCancelled
	if got := m.DisplayStatus(); got != MatchCancelled {
		t.Fatalf("cancelled full match display = %s", got)
	}
}

func TestOverlaps(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	m := testMatch(MatchPending, start)

	if !m.Overlaps(start.Add(time.Hour), start.Add(3*time.Hour)) {
		t.Fatal("expected overlap for window starting inside")
	}
	if m.Overlaps(m.EndsAt, m.EndsAt.Add(time.Hour)) {
		t.Fatal("back-to-back windows must not overlap")
	}
	if m.Overlaps(start.Add(-2*time.Hour), start) {
		t.Fatal("window ending at start must not overlap")
	}
}
