package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/handler"
	"github.com/kangminhyuk1111/hoops/internal/middleware"
)

// RegisterMatches registers match and participation endpoints.  Reads are
// public; every mutation requires a valid JWT and the handlers enforce host
// or participant ownership.
func RegisterMatches(g *echo.Group, m *handler.MatchHandler, p *handler.ParticipationHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)

	g.GET("/matches", m.List)
	// registered before /matches/:id so "hosted" is not read as an id
	g.GET("/matches/hosted", m.Hosted, auth)
	g.GET("/matches/:id", m.Get)
	g.POST("/matches", m.Create, auth)
	g.PUT("/matches/:id", m.Update, auth)
	g.DELETE("/matches/:id", m.Cancel, auth)
	g.POST("/matches/:id/reactivate", m.Reactivate, auth)

	g.GET("/matches/:id/participations", p.ListByMatch)
	g.POST("/matches/:id/participations", p.Request, auth)
	g.PUT("/matches/:id/participations/:pid/approve", p.Approve, auth)
	g.PUT("/matches/:id/participations/:pid/reject", p.Reject, auth)
	g.DELETE("/matches/:id/participations/:pid", p.Cancel, auth)
	g.GET("/participations/me", p.Mine, auth)
}
