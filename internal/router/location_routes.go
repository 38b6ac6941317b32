package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kangminhyuk1111/hoops/internal/config"
	"github.com/kangminhyuk1111/hoops/internal/handler"
	"github.com/kangminhyuk1111/hoops/internal/middleware"
)

// RegisterLocations registers court endpoints.  Reads go through the Redis
// response cache; creating a court purges it.  A nil client disables both.
func RegisterLocations(g *echo.Group, h *handler.LocationHandler, jwtSecret string, cache config.CacheConfig, rdb *redis.Client) {
	cached := middleware.NewRedisCache(cache, rdb)

	g.GET("/locations", h.Search, cached)
	g.GET("/locations/:id", h.Get, cached)
	g.POST("/locations", h.Create, middleware.JWTAuth(jwtSecret), middleware.PurgeCache(cache, rdb))
}
