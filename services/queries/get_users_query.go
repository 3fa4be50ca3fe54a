package queries

import (
	"context"
	"fmt"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/interfaces"
	"github.com/Sontara444/taskmanager-client/models"
)

// UserQueryHandler lists the users tasks can be assigned to.
type UserQueryHandler struct {
	Cache   *cache.Cache
	Svc     interfaces.UserQueryContext
	Session interfaces.SessionContext
}

func NewUserQueryHandler(c *cache.Cache, svc interfaces.UserQueryContext, session interfaces.SessionContext) *UserQueryHandler {
	return &UserQueryHandler{Cache: c, Svc: svc, Session: session}
}

func (h *UserQueryHandler) Handle(ctx context.Context) ([]models.User, error) {
	if _, ok := h.Session.CurrentUser(); !ok {
		return nil, models.ErrNotAuthenticated
	}

	users, err := cache.Read(ctx, h.Cache, UsersKey(), h.Svc.GetUsers)
	if err != nil {
		return users, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}
