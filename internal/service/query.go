package service

import (
	"context"
	"sort"
	"strings"

	"github.com/kangminhyuk1111/hoops/internal/geo"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
)

// SortType orders a nearby listing.
type SortType string

const (
	SortDistance SortType = "DISTANCE"
	SortUrgency  SortType = "URGENCY"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// geoSlack widens the Redis radius so members on the boundary survive
	// the difference between Redis' and our own distance formula.
	geoSlack = 1.01
)

// ParseSortType accepts DISTANCE or URGENCY in any case.  Empty means
// DISTANCE.
func ParseSortType(s string) (SortType, error) {
	switch SortType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", SortDistance:
		return SortDistance, nil
	case SortUrgency:
		return SortUrgency, nil
	}
	return "", ErrInvalidSortType
}

// ParseStatusFilter accepts one of the wire statuses or FULL.  Empty means
// no filter.
func ParseStatusFilter(s string) (*model.MatchStatus, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return nil, nil
	}
	st := model.MatchStatus(s)
	if !st.Valid() && st != model.MatchFull {
		return nil, ErrInvalidStatusFilter
	}
	return &st, nil
}

// ListQuery describes a nearby listing.
type ListQuery struct {
	Origin   geo.Point
	RadiusKm *float64           // nil means unbounded
	Status   *model.MatchStatus // nil means PENDING and IN_PROGRESS
	Sort     SortType
	Page     int // zero based
	Size     int // zero means default
}

// MatchItem is a match annotated for list views.
type MatchItem struct {
	Match          model.Match
	DistanceKm     float64
	RemainingSlots int
	Recruitment    model.RecruitmentStatus
	Display        model.MatchStatus
}

type MatchPage struct {
	Items      []MatchItem
	Page       int
	Size       int
	TotalCount int
	HasMore    bool
}

// QueryService answers nearby match listings.
type QueryService struct {
	Deps
}

func NewQueryService(d Deps) *QueryService { return &QueryService{Deps: d} }

// List loads candidates, keeps those within the radius, applies the status
// filter, sorts and pages the result.
func (s *QueryService) List(ctx context.Context, q ListQuery) (MatchPage, error) {
	if !q.Origin.Valid() {
		return MatchPage{}, ErrInvalidCoordinates
	}
	if q.RadiusKm != nil && (*q.RadiusKm <= 0 || *q.RadiusKm > s.Policy.MaxSearchRadiusKm) {
		return MatchPage{}, ErrInvalidSearchDistance
	}
	if q.Sort == "" {
		q.Sort = SortDistance
	}
	if q.Sort != SortDistance && q.Sort != SortUrgency {
		return MatchPage{}, ErrInvalidSortType
	}
	if q.Size == 0 {
		q.Size = defaultPageSize
	}
	if q.Page < 0 || q.Size < 1 || q.Size > maxPageSize {
		return MatchPage{}, ErrInvalidPaging
	}

	statuses := []model.MatchStatus{model.MatchPending, model.MatchInProgress}
	if q.Status != nil {
		st := *q.Status
		if st == model.MatchFull {
			st = model.MatchPending
		}
		statuses = []model.MatchStatus{st}
	}

	candidates, err := s.candidates(ctx, q, statuses)
	if err != nil {
		return MatchPage{}, err
	}
	located := geo.Filter(q.Origin, candidates, matchPoint, q.RadiusKm)
	if q.Status != nil {
		kept := located[:0]
		for _, l := range located {
			if matchesStatus(l.Item, *q.Status) {
				kept = append(kept, l)
			}
		}
		located = kept
	}

	now := s.now()
	switch q.Sort {
	case SortUrgency:
		sort.SliceStable(located, func(i, j int) bool {
			a, b := located[i], located[j]
			aStarted, bStarted := !now.Before(a.Item.StartsAt), !now.Before(b.Item.StartsAt)
			if aStarted != bStarted {
				return !aStarted
			}
			if !a.Item.StartsAt.Equal(b.Item.StartsAt) {
				return a.Item.StartsAt.Before(b.Item.StartsAt)
			}
			if a.DistanceKm != b.DistanceKm {
				return a.DistanceKm < b.DistanceKm
			}
			return a.Item.ID < b.Item.ID
		})
	default:
		sort.SliceStable(located, func(i, j int) bool {
			a, b := located[i], located[j]
			if a.DistanceKm != b.DistanceKm {
				return a.DistanceKm < b.DistanceKm
			}
			if !a.Item.StartsAt.Equal(b.Item.StartsAt) {
				return a.Item.StartsAt.Before(b.Item.StartsAt)
			}
			return a.Item.ID < b.Item.ID
		})
	}

	page := MatchPage{Page: q.Page, Size: q.Size, TotalCount: len(located), Items: []MatchItem{}}
	from := q.Page * q.Size
	if from >= len(located) {
		return page, nil
	}
	to := from + q.Size
	if to > len(located) {
		to = len(located)
	}
	for _, l := range located[from:to] {
		page.Items = append(page.Items, s.item(l))
	}
	page.HasMore = to < len(located)
	return page, nil
}

// Item annotates a single match without a distance, for detail views.
func (s *QueryService) Item(m model.Match) MatchItem {
	return s.item(geo.Located[model.Match]{Item: m})
}

func (s *QueryService) item(l geo.Located[model.Match]) MatchItem {
	return MatchItem{
		Match:          l.Item,
		DistanceKm:     geo.RoundKm(l.DistanceKm),
		RemainingSlots: l.Item.RemainingSlots(),
		Recruitment:    l.Item.RecruitmentStatus(s.Policy.AlmostFullThreshold),
		Display:        l.Item.DisplayStatus(),
	}
}

// candidates asks the geo index first when it can answer the query and
// falls back to a bounding box scan in MySQL.
func (s *QueryService) candidates(ctx context.Context, q ListQuery, statuses []model.MatchStatus) ([]model.Match, error) {
	search := repository.MatchSearch{Statuses: statuses}
	if q.RadiusKm != nil {
		if s.Index != nil && indexed(statuses) {
			ids, err := s.Index.Nearby(ctx, q.Origin, *q.RadiusKm*geoSlack)
			if err == nil {
				search.IDs = append([]uint64{}, ids...)
				return s.Store.SearchMatches(ctx, search)
			}
			s.logger().Warnf("geo index nearby failed, falling back to MySQL: %v", err)
		}
		box := geo.NewBoundingBox(q.Origin, *q.RadiusKm)
		search.Box = &box
	}
	return s.Store.SearchMatches(ctx, search)
}

// indexed reports whether the geo index holds every requested status.
func indexed(statuses []model.MatchStatus) bool {
	for _, st := range statuses {
		if st != model.MatchPending && st != model.MatchInProgress {
			return false
		}
	}
	return true
}

func matchesStatus(m model.Match, want model.MatchStatus) bool {
	if want == model.MatchFull {
		return m.DisplayStatus() == model.MatchFull
	}
	return m.Status == want
}

func matchPoint(m model.Match) geo.Point { return geo.Point{Lat: m.Latitude, Lon: m.Longitude} }
