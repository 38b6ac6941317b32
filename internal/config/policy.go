package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// MatchPolicy holds the product rules of the match lifecycle.  Every value
// can be overridden from the environment; DefaultMatchPolicy documents the
// shipped values.
type MatchPolicy struct {
	MinLeadTime               time.Duration  // earliest start relative to creation
	MaxHorizon                time.Duration  // latest start relative to creation
	MinDuration               time.Duration  // shortest allowed match
	MinParticipants           int            // lower bound for max participants
	MaxParticipants           int            // upper bound for max participants
	CancelCutoff              time.Duration  // host cannot cancel closer than this to the start
	ParticipationCancelCutoff time.Duration  // participant cannot withdraw closer than this
	ReactivateWindow          time.Duration  // how long after cancelling a host may undo it
	MaxReapplications         int            // re-requests allowed after CANCELLED/REJECTED
	AlmostFullThreshold       int            // remaining slots reported as ALMOST_FULL
	MaxSearchRadiusKm         float64        // upper bound for the distance filter
	Location                  *time.Location // zone of matchDate/startTime on the wire
	TransitionInterval        time.Duration  // how often due matches are started/ended
	ReindexInterval           time.Duration  // how often the geo index is rebuilt from MySQL
}

// DefaultMatchPolicy returns the policy the service ships with.
func DefaultMatchPolicy() MatchPolicy {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	return MatchPolicy{
		MinLeadTime:               2 * time.Hour,
		MaxHorizon:                14 * 24 * time.Hour,
		MinDuration:               time.Hour,
		MinParticipants:           4,
		MaxParticipants:           20,
		CancelCutoff:              2 * time.Hour,
		ParticipationCancelCutoff: 2 * time.Hour,
		ReactivateWindow:          time.Hour,
		MaxReapplications:         1,
		AlmostFullThreshold:       2,
		MaxSearchRadiusKm:         50,
		Location:                  loc,
		TransitionInterval:        time.Minute,
		ReindexInterval:           10 * time.Minute,
	}
}

// LoadMatchPolicy applies MATCH_* overrides on top of the defaults.
func LoadMatchPolicy() MatchPolicy {
	p := DefaultMatchPolicy()
	p.MinLeadTime = envDur("MATCH_MIN_LEAD_TIME", p.MinLeadTime)
	p.MaxHorizon = envDur("MATCH_MAX_HORIZON", p.MaxHorizon)
	p.MinDuration = envDur("MATCH_MIN_DURATION", p.MinDuration)
	p.CancelCutoff = envDur("MATCH_CANCEL_CUTOFF", p.CancelCutoff)
	p.ParticipationCancelCutoff = envDur("PARTICIPATION_CANCEL_CUTOFF", p.ParticipationCancelCutoff)
	p.ReactivateWindow = envDur("MATCH_REACTIVATE_WINDOW", p.ReactivateWindow)
	p.MaxReapplications = envInt("MAX_REAPPLICATIONS", p.MaxReapplications)
	p.AlmostFullThreshold = envInt("ALMOST_FULL_THRESHOLD", p.AlmostFullThreshold)
	p.TransitionInterval = envDur("MATCH_TRANSITION_INTERVAL", p.TransitionInterval)
	p.ReindexInterval = envDur("MATCH_REINDEX_INTERVAL", p.ReindexInterval)
	if v := os.Getenv("MATCH_MAX_SEARCH_RADIUS_KM"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			p.MaxSearchRadiusKm = f
		}
	}
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("invalid APP_TIMEZONE %q: %v", tz, err)
		}
		p.Location = loc
	}
	if p.MaxReapplications < 0 {
		p.MaxReapplications = 0
	}
	if p.TransitionInterval < time.Second {
		p.TransitionInterval = time.Minute
	}
	if p.ReindexInterval < p.TransitionInterval {
		p.ReindexInterval = 10 * p.TransitionInterval
	}
	return p
}
