package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/service"
)

// ParticipationHandler serves join requests and host decisions.
type ParticipationHandler struct {
	Participations *service.ParticipationService
}

func NewParticipationHandler(s *service.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{Participations: s}
}

// ids reads the caller and the :id / :pid path parameters.  pid is skipped
// when withParticipation is false.
func (h *ParticipationHandler) ids(c echo.Context, withParticipation bool) (model.Principal, uint64, uint64, error) {
	p, ok := principal(c)
	if !ok {
		return p, 0, 0, errLoginRequired
	}
	matchID, ok := idParam(c, "id")
	if !ok {
		return p, 0, 0, service.ErrMatchNotFound
	}
	if !withParticipation {
		return p, matchID, 0, nil
	}
	pid, ok := idParam(c, "pid")
	if !ok {
		return p, 0, 0, service.ErrParticipationNotFound
	}
	return p, matchID, pid, nil
}

// Request handles POST /api/matches/:id/participations.
func (h *ParticipationHandler) Request(c echo.Context) error {
	p, matchID, _, err := h.ids(c, false)
	if err != nil {
		return fail(c, err)
	}
	part, err := h.Participations.RequestJoin(c.Request().Context(), matchID, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toParticipationResponse(part))
}

// ListByMatch handles GET /api/matches/:id/participations.
func (h *ParticipationHandler) ListByMatch(c echo.Context) error {
	matchID, ok := idParam(c, "id")
	if !ok {
		return fail(c, service.ErrMatchNotFound)
	}
	ps, err := h.Participations.ListByMatch(c.Request().Context(), matchID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toParticipationResponses(ps))
}

// Approve handles PUT /api/matches/:id/participations/:pid/approve.
func (h *ParticipationHandler) Approve(c echo.Context) error {
	p, matchID, pid, err := h.ids(c, true)
	if err != nil {
		return fail(c, err)
	}
	part, err := h.Participations.Approve(c.Request().Context(), matchID, pid, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toParticipationResponse(part))
}

// Reject handles PUT /api/matches/:id/participations/:pid/reject.
func (h *ParticipationHandler) Reject(c echo.Context) error {
	p, matchID, pid, err := h.ids(c, true)
	if err != nil {
		return fail(c, err)
	}
	var req reasonReq
	if err := c.Bind(&req); err != nil {
		return fail(c, service.ErrInvalidCommand)
	}
	part, err := h.Participations.Reject(c.Request().Context(), matchID, pid, p, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toParticipationResponse(part))
}

// Cancel handles DELETE /api/matches/:id/participations/:pid.
func (h *ParticipationHandler) Cancel(c echo.Context) error {
	p, matchID, pid, err := h.ids(c, true)
	if err != nil {
		return fail(c, err)
	}
	part, err := h.Participations.CancelParticipation(c.Request().Context(), matchID, pid, p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toParticipationResponse(part))
}

// Mine handles GET /api/participations/me.
func (h *ParticipationHandler) Mine(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	ps, err := h.Participations.ListMine(c.Request().Context(), p.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toParticipationResponses(ps))
}
