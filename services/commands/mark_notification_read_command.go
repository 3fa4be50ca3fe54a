package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/interfaces"
	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/services/queries"
)

type MarkNotificationReadCommand struct {
	NotificationID string
}

type MarkNotificationReadHandler struct {
	Cache   *cache.Cache
	Svc     interfaces.NotificationCommandContext
	Session interfaces.SessionContext
}

func NewMarkNotificationReadHandler(c *cache.Cache, svc interfaces.NotificationCommandContext, session interfaces.SessionContext) *MarkNotificationReadHandler {
	return &MarkNotificationReadHandler{Cache: c, Svc: svc, Session: session}
}

func (h *MarkNotificationReadHandler) Handle(ctx context.Context, cmd MarkNotificationReadCommand) (models.Notification, error) {
	if _, ok := h.Session.CurrentUser(); !ok {
		return models.Notification{}, models.ErrNotAuthenticated
	}
	if strings.TrimSpace(cmd.NotificationID) == "" {
		return models.Notification{}, models.NewValidationError("id", "required", "Notification id is required")
	}

	n, err := h.Svc.MarkAsRead(ctx, cmd.NotificationID)
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	h.Cache.Invalidate(queries.AllNotifications())
	return n, nil
}

type MarkAllNotificationsReadHandler struct {
	Cache   *cache.Cache
	Svc     interfaces.NotificationCommandContext
	Session interfaces.SessionContext
}

func NewMarkAllNotificationsReadHandler(c *cache.Cache, svc interfaces.NotificationCommandContext, session interfaces.SessionContext) *MarkAllNotificationsReadHandler {
	return &MarkAllNotificationsReadHandler{Cache: c, Svc: svc, Session: session}
}

func (h *MarkAllNotificationsReadHandler) Handle(ctx context.Context) error {
	if _, ok := h.Session.CurrentUser(); !ok {
		return models.ErrNotAuthenticated
	}

	if err := h.Svc.MarkAllAsRead(ctx); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	h.Cache.Invalidate(queries.AllNotifications())
	return nil
}
