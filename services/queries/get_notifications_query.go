package queries

import (
	"context"
	"fmt"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/interfaces"
	"github.com/Sontara444/taskmanager-client/models"
)

type NotificationQueryHandler struct {
	Cache   *cache.Cache
	Svc     interfaces.NotificationQueryContext
	Session interfaces.SessionContext
}

func NewNotificationQueryHandler(c *cache.Cache, svc interfaces.NotificationQueryContext, session interfaces.SessionContext) *NotificationQueryHandler {
	return &NotificationQueryHandler{Cache: c, Svc: svc, Session: session}
}

func (h *NotificationQueryHandler) Handle(ctx context.Context) ([]models.Notification, error) {
	if _, ok := h.Session.CurrentUser(); !ok {
		return nil, models.ErrNotAuthenticated
	}

	list, err := cache.Read(ctx, h.Cache, NotificationsKey(), h.Svc.GetNotifications)
	if err != nil {
		return list, fmt.Errorf("failed to get notifications: %w", err)
	}
	return list, nil
}

// Refetch invalidates the notification list and reads it again.
func (h *NotificationQueryHandler) Refetch(ctx context.Context) ([]models.Notification, error) {
	if _, ok := h.Session.CurrentUser(); !ok {
		return nil, models.ErrNotAuthenticated
	}
	h.Cache.Invalidate(cache.Exact(NotificationsKey()))
	return h.Handle(ctx)
}

func (h *NotificationQueryHandler) UnreadCount(ctx context.Context) (int, error) {
	list, err := h.Handle(ctx)
	if err != nil {
		return 0, err
	}
	return models.CountUnread(list), nil
}

func (h *NotificationQueryHandler) Subscribe(fn func(cache.Event)) (dispose func()) {
	return h.Cache.Subscribe(NotificationsKey(), fn)
}
