package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/kangminhyuk1111/hoops/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller in the request context.  Handlers read it back with
// Principal(c).  The provided secret must match the one used when issuing
// tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			}
			p, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return deny(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token")
			}
			setPrincipal(c, p)
			return next(c)
		}
	}
}

// OptionalJWT identifies the caller when a valid token is present and lets
// anonymous requests through.  Public read endpoints use it so that the rate
// limiter can key on the user.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if p, err := utils.ParseAccessToken(secret, raw); err == nil {
					setPrincipal(c, p)
				}
			}
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// deny writes the API error body used across the service.
func deny(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"errorCode": code, "message": msg})
}
