package interfaces

import (
	"context"

	"github.com/Sontara444/taskmanager-client/models"
)

type TaskQueryContext interface {
	GetTasks(ctx context.Context, filters models.TaskFilters) ([]models.Task, error)
}

type TaskCommandContext interface {
	CreateTask(ctx context.Context, data models.CreateTaskData) (models.Task, error)
	UpdateTask(ctx context.Context, id string, data models.UpdateTaskData) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type NotificationQueryContext interface {
	GetNotifications(ctx context.Context) ([]models.Notification, error)
}

type NotificationCommandContext interface {
	MarkAsRead(ctx context.Context, id string) (models.Notification, error)
	MarkAllAsRead(ctx context.Context) error
}

type UserQueryContext interface {
	GetUsers(ctx context.Context) ([]models.User, error)
}

type AuthContext interface {
	Login(ctx context.Context, data models.LoginData) (models.User, string, error)
	Register(ctx context.Context, data models.RegisterData) (models.User, string, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (models.User, error)
	UpdateProfile(ctx context.Context, data models.ProfileData) (models.User, error)
}

// SessionContext is the authentication gate shared by the cache layer and
// the push channel.
type SessionContext interface {
	CurrentUser() (models.User, bool)
}
