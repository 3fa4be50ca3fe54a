package queries

import (
	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/models"
)

// Cache scopes of the server-derived collections.
const (
	TasksScope         = "tasks"
	NotificationsScope = "notifications"
	UsersScope         = "users"
)

// TasksKey partitions the task cache by filter set.
func TasksKey(filters models.TaskFilters) cache.Key {
	return cache.Key{Scope: TasksScope, Params: filters.Key()}
}

func NotificationsKey() cache.Key { return cache.Key{Scope: NotificationsScope} }

func UsersKey() cache.Key { return cache.Key{Scope: UsersScope} }

// AllTasks matches every cached task collection, whatever its filters.
func AllTasks() cache.Pattern { return cache.Scope(TasksScope) }

func AllNotifications() cache.Pattern { return cache.Scope(NotificationsScope) }

func AllUsers() cache.Pattern { return cache.Scope(UsersScope) }
