package middleware

// identity.go keeps the authenticated caller in the echo context.  JWTAuth
// and OptionalJWT write it; handlers and the rate limiter read it.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/model"
)

const (
	ctxUserID   = "user_id"
	ctxNickname = "nickname"
)

func setPrincipal(c echo.Context, p model.Principal) {
	c.Set(ctxUserID, p.UserID)
	c.Set(ctxNickname, p.Nickname)
}

// Principal returns the caller set by JWTAuth.  ok is false for anonymous
// requests.
func Principal(c echo.Context) (model.Principal, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	if !ok || id == 0 {
		return model.Principal{}, false
	}
	nick, _ := c.Get(ctxNickname).(string)
	return model.Principal{UserID: id, Nickname: nick}, true
}

// userID renders the caller for cache and rate limit keys.  It returns
// "anon" when no user is authenticated.
func userID(c echo.Context) string {
	if p, ok := Principal(c); ok {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "anon"
}
