package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/handler"
	"github.com/kangminhyuk1111/hoops/internal/middleware"
)

// RegisterRoutes registers routes that sit outside /api.  Currently it
// exposes only a health check for load balancers and monitoring.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterAuth registers the session endpoints under /api/auth.  None of
// them require an access token: logout accepts either a refresh token in the
// body or a bearer token, which the handler verifies itself.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler) {
	auth := g.Group("/auth")
	auth.POST("/signup", a.Signup)
	auth.POST("/login", a.Login)
	// rotates the refresh token
	auth.POST("/refresh", a.Refresh)
	auth.POST("/logout", a.Logout)
}

// RegisterAccount registers the caller's profile and notification inbox.
// Every route except the public profile requires a valid access token.
func RegisterAccount(g *echo.Group, u *handler.UserHandler, n *handler.NotificationHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	g.GET("/users/me", u.Me, auth)
	g.PUT("/users/me", u.UpdateMe, auth)
	g.GET("/users/:id", u.Get)

	g.GET("/notifications", n.List, auth)
	g.GET("/notifications/unread-count", n.UnreadCount, auth)
	g.PUT("/notifications/:id/read", n.MarkRead, auth)
}
