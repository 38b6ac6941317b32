package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the process and its backing stores are
// reachable.  Redis is optional: when it is not configured it is reported as
// "disabled" and does not fail the check.
type HealthHandler struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: db, Redis: rdb}
}

// Health is used by load balancers and monitoring.  It answers 200 when the
// database responds and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := echo.Map{"status": "ok", "db": "disabled", "redis": "disabled"}
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			out["db"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			out["db"] = "up"
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			out["redis"] = "down"
		} else {
			out["redis"] = "up"
		}
	}
	if status != http.StatusOK {
		out["status"] = "degraded"
	}
	return c.JSON(status, out)
}
