package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/service"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func statusOf(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindConflict, service.KindConcurrency:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// errLoginRequired is answered with 401.  Routes behind JWTAuth never see
// it; it guards handlers mounted without the middleware by mistake.
var errLoginRequired = errors.New("login required")

// fail writes err as an API error.  Domain errors keep their code; anything
// else is logged and hidden behind INTERNAL_ERROR.
func fail(c echo.Context, err error) error {
	if errors.Is(err, errLoginRequired) {
		return unauthorized(c, err.Error())
	}
	if e, ok := service.AsError(err); ok {
		return c.JSON(statusOf(e.Kind), errorBody{ErrorCode: string(e.Code), Message: e.Message})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, errorBody{ErrorCode: "INTERNAL_ERROR", Message: "internal server error"})
}

func badRequest(c echo.Context, code, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{ErrorCode: code, Message: msg})
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorBody{ErrorCode: "UNAUTHORIZED", Message: msg})
}

// ErrorHandler renders errors returned by echo itself (unknown route, method
// not allowed, bind failures) in the API error shape.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = fail(c, err)
		return
	}
	code := "HTTP_ERROR"
	switch he.Code {
	case http.StatusNotFound:
		code = "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		code = "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest:
		code = "BAD_REQUEST"
	case http.StatusUnauthorized:
		code = "UNAUTHORIZED"
	case http.StatusRequestEntityTooLarge:
		code = "PAYLOAD_TOO_LARGE"
	}
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, errorBody{ErrorCode: code, Message: msg})
}
