package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/repository"
	"github.com/kangminhyuk1111/hoops/internal/service"
)

type UserHandler struct {
	Users UserStore
}

func NewUserHandler(u UserStore) *UserHandler {
	return &UserHandler{Users: u}
}

type profileResponse struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email,omitempty"`
	Nickname     string    `json:"nickname"`
	ProfileImage *string   `json:"profileImage"`
	Rating       float64   `json:"rating"`
	TotalMatches int       `json:"totalMatches"`
	CreatedAt    time.Time `json:"createdAt"`
}

// updateProfileReq leaves the image alone when profileImage is absent or
// null; an empty string removes it.
type updateProfileReq struct {
	Nickname     string  `json:"nickname"`
	ProfileImage *string `json:"profileImage"`
}

func toProfile(u model.User) profileResponse {
	return profileResponse{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		ProfileImage: u.ProfileImage,
		Rating:       u.Rating,
		TotalMatches: u.TotalMatches,
		CreatedAt:    u.CreatedAt,
	}
}

// toPublicProfile is what other players see: everything but the email.
func toPublicProfile(u model.User) profileResponse {
	p := toProfile(u)
	p.Email = ""
	return p
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	u, err := h.Users.GetByID(c.Request().Context(), p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, service.ErrUserNotFound)
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toProfile(u))
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return fail(c, service.ErrUserNotFound)
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, service.ErrUserNotFound)
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toPublicProfile(u))
}

// UpdateMe handles PUT /api/users/me.  A new access token carries the new
// nickname after the next refresh.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return fail(c, service.ErrInvalidNickname)
	}
	nick := strings.TrimSpace(req.Nickname)
	if !validNickname(nick) {
		return fail(c, service.ErrInvalidNickname)
	}
	ctx := c.Request().Context()
	cur, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, service.ErrUserNotFound)
		}
		return fail(c, err)
	}
	image := cur.ProfileImage
	if req.ProfileImage != nil {
		img := strings.TrimSpace(*req.ProfileImage)
		switch {
		case img == "":
			image = nil
		case !service.ValidProfileImage(img):
			return fail(c, service.ErrInvalidProfileImage)
		default:
			image = &img
		}
	}
	if err := h.Users.UpdateProfile(ctx, p.UserID, nick, image); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return fail(c, service.ErrDuplicateNickname)
		case errors.Is(err, repository.ErrNotFound):
			return fail(c, service.ErrUserNotFound)
		}
		return fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toProfile(u))
}
