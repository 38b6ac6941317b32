package config

import (
	"testing"
	"time"
)

func TestLoadMatchPolicyClampsOverrides(t *testing.T) {
	t.Setenv("MAX_REAPPLICATIONS", "-3")
	t.Setenv("MATCH_TRANSITION_INTERVAL", "10ms")
	t.Setenv("MATCH_REINDEX_INTERVAL", "1s")
	t.Setenv("MATCH_MAX_SEARCH_RADIUS_KM", "-1")
	t.Setenv("APP_TIMEZONE", "UTC")

	p := LoadMatchPolicy()
	if p.MaxReapplications != 0 {
		t.Errorf("MaxReapplications = %d", p.MaxReapplications)
	}
	if p.TransitionInterval != time.Minute {
		t.Errorf("TransitionInterval = %s", p.TransitionInterval)
	}
	if p.ReindexInterval != 10*time.Minute {
		t.Errorf("ReindexInterval = %s", p.ReindexInterval)
	}
	if p.MaxSearchRadiusKm != 50 {
		t.Errorf("MaxSearchRadiusKm = %v", p.MaxSearchRadiusKm)
	}
	if p.Location != time.UTC {
		t.Errorf("Location = %v", p.Location)
	}
}

func TestLoadMatchPolicyDefaults(t *testing.T) {
	p := LoadMatchPolicy()
	d := DefaultMatchPolicy()
	if p.MinLeadTime != d.MinLeadTime || p.ReindexInterval != 10*time.Minute || p.MaxReapplications != 1 {
		t.Fatalf("policy = %+v", p)
	}
}
