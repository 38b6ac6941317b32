package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/service"
)

type LocationHandler struct {
	Locations *service.LocationService
}

func NewLocationHandler(s *service.LocationService) *LocationHandler {
	return &LocationHandler{Locations: s}
}

type createLocationReq struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Create handles POST /api/locations.
func (h *LocationHandler) Create(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	var req createLocationReq
	if err := c.Bind(&req); err != nil {
		return fail(c, service.ErrInvalidLocation)
	}
	l, err := h.Locations.Create(c.Request().Context(), p, service.CreateLocationCommand{
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, toLocationResponse(l))
}

// Get handles GET /api/locations/:id.
func (h *LocationHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, service.ErrLocationNotFound)
	}
	l, err := h.Locations.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toLocationResponse(l))
}

// Search handles GET /api/locations?name=&size=.
func (h *LocationHandler) Search(c echo.Context) error {
	size, ok := intQuery(c, "size", 0)
	if !ok {
		return fail(c, service.ErrInvalidPaging)
	}
	ls, err := h.Locations.Search(c.Request().Context(), c.QueryParam("name"), size)
	if err != nil {
		return fail(c, err)
	}
	out := make([]locationResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLocationResponse(l))
	}
	return c.JSON(http.StatusOK, out)
}
