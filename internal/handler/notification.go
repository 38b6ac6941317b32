package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kangminhyuk1111/hoops/internal/model"
	"github.com/kangminhyuk1111/hoops/internal/service"
)

// NotificationReader is the read side of the notification table.  Rows are
// written by the queue consumer.
type NotificationReader interface {
	ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Notification, int, error)
	CountUnread(ctx context.Context, userID uint64) (int, error)
	MarkRead(ctx context.Context, userID uint64, ids []uint64) (int64, error)
}

type NotificationHandler struct {
	Notifications NotificationReader
}

func NewNotificationHandler(r NotificationReader) *NotificationHandler {
	return &NotificationHandler{Notifications: r}
}

type notificationResponse struct {
	ID             uint64                 `json:"id"`
	Type           model.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	RelatedMatchID *uint64                `json:"relatedMatchId,omitempty"`
	IsRead         bool                   `json:"isRead"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// List handles GET /api/notifications?page=&size=.
func (h *NotificationHandler) List(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	page, ok1 := intQuery(c, "page", 0)
	size, ok2 := intQuery(c, "size", 20)
	if !ok1 || !ok2 || page < 0 || size < 1 || size > 100 {
		return fail(c, service.ErrInvalidPaging)
	}
	ns, total, err := h.Notifications.ListByUser(c.Request().Context(), p.UserID, size, page*size)
	if err != nil {
		return fail(c, err)
	}
	items := make([]notificationResponse, 0, len(ns))
	for _, n := range ns {
		items = append(items, notificationResponse{
			ID:             n.ID,
			Type:           n.Type,
			Title:          n.Title,
			Message:        n.Message,
			RelatedMatchID: n.RelatedMatchID,
			IsRead:         n.IsRead,
			CreatedAt:      n.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, pageResponse[notificationResponse]{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalCount: total,
		HasMore:    (page+1)*size < total,
	})
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	n, err := h.Notifications.CountUnread(c.Request().Context(), p.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// MarkRead handles PUT /api/notifications/:id/read.  Marking someone else's
// notification looks the same as marking a missing one.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return fail(c, errLoginRequired)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody{ErrorCode: "NOTIFICATION_NOT_FOUND", Message: "notification not found"})
	}
	n, err := h.Notifications.MarkRead(c.Request().Context(), p.UserID, []uint64{id})
	if err != nil {
		return fail(c, err)
	}
	if n == 0 {
		return c.JSON(http.StatusNotFound, errorBody{ErrorCode: "NOTIFICATION_NOT_FOUND", Message: "notification not found"})
	}
	return c.NoContent(http.StatusNoContent)
}
