package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/geo"
	"github.com/kangminhyuk1111/hoops/internal/service"
)

// MatchHandler serves the match lifecycle and the nearby listing.
type MatchHandler struct {
	Matches *service.MatchService
	Query   *service.QueryService
	Zone    *time.Location // zone of matchDate/startTime/endTime
}

func NewMatchHandler(matches *service.MatchService, query *service.QueryService, zone *time.Location) *MatchHandler {
	if zone == nil {
		zone = time.UTC
	}
	return &MatchHandler{Matches: matches, Query: query, Zone: zone}
}

type createMatchReq struct {
	LocationID      uint64  `json:"locationId"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	MatchDate       string  `json:"matchDate"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	MaxParticipants int     `json:"maxParticipants"`
}

type updateMatchReq struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	MatchDate       *string `json:"matchDate"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	MaxParticipants *int    `json:"maxParticipants"`
}

type reasonReq struct {
	Reason string `json:"reason"`
}

// List handles GET /api/matches.
func (h *MatchHandler) List(c echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("latitude"), 64)
	lon, errLon := strconv.ParseFloat(c.QueryParam("longitude"), 64)
	if errLat != nil || errLon != nil {
		return fail(c, service.ErrInvalidCoordinates)
	}
	q := service.ListQuery{Origin: geo.Point{Lat: lat, Lon: lon}}

	if s := c.QueryParam("distance"); s != "" {
		km, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fail(c, service.ErrInvalidSearchDistance)
		}
		q.RadiusKm = &km
	}
	st, err := service.ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return fail(c, err)
	}
	q.Status = st
	if q.Sort, err = service.ParseSortType(c.QueryParam("sort")); err != nil {
		return fail(c, err)
	}
	var ok1, ok2 bool
	q.Page, ok1 = intQuery(c, "page", 0)
	q.Size, ok2 = intQuery(c, "size", 0)
	if !ok1 || !ok2 {
		return fail(c, service.ErrInvalidPaging)
	}

	page, err := h.Query.List(c.Request().Context(), q)
	if err != nil {
		return fail(c, err)
	}
	items := make([]matchResponse, 0, len(page.Items))
	for _, it := range page.Items {
		items = append(items, toMatchResponse(it, h.Zone, true))
	}
	return c.JSON(http.StatusOK, pageResponse[matchResponse]{
		Items:      items,
		Page:       page.Page,
		Size:       page.Size,
		TotalCount: page.TotalCount,
		HasMore:    page.HasMore,
	})
}

// Get handles GET /api/matches/:id.
func (h *MatchHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, service.ErrMatchNotFound)
	}
	m, err := h.Matches.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toMatchResponse(h.Query.Item(m), h.Zone, false))
}

// Hosted handles GET /api/matches/hosted.
func (h *MatchHandler) Hosted(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	ms, err := h.Matches.ListHosted(c.Request().Context(), p.UserID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]matchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMatchResponse(h.Query.Item(m), h.Zone, false))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /api/matches.
func (h *MatchHandler) Create(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	var req createMatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, service.ErrInvalidCommand)
	}
	m, err := h.Matches.Create(c.Request().Context(), p, service.CreateMatchCommand{
		LocationID:      req.LocationID,
		Title:           req.Title,
		Description:     req.Description,
		MatchDate:       req.MatchDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toMatchResponse(h.Query.Item(m), h.Zone, false))
}

// Update handles PUT /api/matches/:id.
func (h *MatchHandler) Update(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, service.ErrMatchNotFound)
	}
	var req updateMatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, service.ErrInvalidCommand)
	}
	m, err := h.Matches.Update(c.Request().Context(), id, p, service.UpdateMatchCommand{
		Title:           req.Title,
		Description:     req.Description,
		MatchDate:       req.MatchDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toMatchResponse(h.Query.Item(m), h.Zone, false))
}

// Cancel handles DELETE /api/matches/:id with a {"reason"} body.
func (h *MatchHandler) Cancel(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, service.ErrMatchNotFound)
	}
	// the body is optional; an empty one binds to the zero value
	var req reasonReq
	if err := c.Bind(&req); err != nil {
		return fail(c, service.ErrInvalidCommand)
	}
	if req.Reason == "" {
		req.Reason = c.QueryParam("reason")
	}
	m, err := h.Matches.Cancel(c.Request().Context(), id, p, strings.TrimSpace(req.Reason))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toMatchResponse(h.Query.Item(m), h.Zone, false))
}

// Reactivate handles POST /api/matches/:id/reactivate.
func (h *MatchHandler) Reactivate(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, service.ErrMatchNotFound)
	}
	m, err := h.Matches.Reactivate(c.Request().Context(), id, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toMatchResponse(h.Query.Item(m), h.Zone, false))
}
