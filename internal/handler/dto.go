package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/middleware"
	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/service"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type locationPart struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type matchResponse struct {
	ID                  uint64                  `json:"id"`
	Title               string                  `json:"title"`
	Description         *string                 `json:"description,omitempty"`
	HostID              uint64                  `json:"hostId"`
	HostNickname        string                  `json:"hostNickname"`
	Location            locationPart            `json:"location"`
	MatchDate           string                  `json:"matchDate"`
	StartTime           string                  `json:"startTime"`
	EndTime             string                  `json:"endTime"`
	MaxParticipants     int                     `json:"maxParticipants"`
	CurrentParticipants int                     `json:"currentParticipants"`
	RemainingSlots      int                     `json:"remainingSlots"`
	Status              model.MatchStatus       `json:"status"`
	RecruitmentStatus   model.RecruitmentStatus `json:"recruitmentStatus"`
	DistanceKm          *float64                `json:"distanceKm,omitempty"`
	CancelReason        *string                 `json:"cancelReason,omitempty"`
	CreatedAt           time.Time               `json:"createdAt"`
}

// toMatchResponse renders a match with wall-clock times in zone.  The
// distance is included only for nearby listings.
func toMatchResponse(it service.MatchItem, zone *time.Location, withDistance bool) matchResponse {
	m := it.Match
	start := m.StartsAt.In(zone)
	r := matchResponse{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		HostID:       m.HostID,
		HostNickname: m.HostNickname,
		Location: locationPart{
			ID:        m.LocationID,
			Name:      m.LocationName,
			Address:   m.Address,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		},
		MatchDate:           start.Format(dateLayout),
		StartTime:           start.Format(timeLayout),
		EndTime:             m.EndsAt.In(zone).Format(timeLayout),
		MaxParticipants:     m.MaxParticipants,
		CurrentParticipants: m.CurrentParticipants,
		RemainingSlots:      it.RemainingSlots,
		Status:              it.Display,
		RecruitmentStatus:   it.Recruitment,
		CancelReason:        m.CancelReason,
		CreatedAt:           m.CreatedAt,
	}
	if withDistance {
		d := it.DistanceKm
		r.DistanceKm = &d
	}
	return r
}

type participationResponse struct {
	ID           uint64                    `json:"id"`
	MatchID      uint64                    `json:"matchId"`
	UserID       uint64                    `json:"userId"`
	UserNickname string                    `json:"userNickname"`
	Status       model.ParticipationStatus `json:"status"`
	RejectReason *string                   `json:"rejectReason,omitempty"`
	JoinedAt     time.Time                 `json:"joinedAt"`
}

func toParticipationResponse(p model.Participation) participationResponse {
	return participationResponse{
		ID:           p.ID,
		MatchID:      p.MatchID,
		UserID:       p.UserID,
		UserNickname: p.UserNickname,
		Status:       p.Status,
		RejectReason: p.RejectReason,
		JoinedAt:     p.JoinedAt,
	}
}

func toParticipationResponses(ps []model.Participation) []participationResponse {
	out := make([]participationResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toParticipationResponse(p))
	}
	return out
}

type locationResponse struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

func toLocationResponse(l model.Location) locationResponse {
	return locationResponse{
		ID:        l.ID,
		Name:      l.Name,
		Address:   l.Address,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		CreatedAt: l.CreatedAt,
	}
}

type pageResponse[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	TotalCount int  `json:"totalCount"`
	HasMore    bool `json:"hasMore"`
}

// principal returns the authenticated caller.  Routes using it sit behind
// JWTAuth, so a missing principal is a wiring error answered with 401.
func principal(c echo.Context) (model.Principal, bool) {
	return middleware.Principal(c)
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// intQuery parses an optional integer query parameter.
func intQuery(c echo.Context, name string, def int) (int, bool) {
	s := c.QueryParam(name)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
