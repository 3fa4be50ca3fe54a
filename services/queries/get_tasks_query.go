package queries

import (
	"context"
	"fmt"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/interfaces"
	"github.com/Sontara444/taskmanager-client/models"
)

type GetTasksQuery struct {
	Filters models.TaskFilters
}

type TaskQueryHandler struct {
	Cache   *cache.Cache
	Svc     interfaces.TaskQueryContext
	Session interfaces.SessionContext
}

func NewTaskQueryHandler(c *cache.Cache, svc interfaces.TaskQueryContext, session interfaces.SessionContext) *TaskQueryHandler {
	return &TaskQueryHandler{Cache: c, Svc: svc, Session: session}
}

// Handle returns the task list for the query's filter set, from the cache
// when it is fresh. When a refetch fails the last known list is returned
// together with the error.
func (h *TaskQueryHandler) Handle(ctx context.Context, q GetTasksQuery) ([]models.Task, error) {
	if _, ok := h.Session.CurrentUser(); !ok {
		return nil, models.ErrNotAuthenticated
	}
	if err := models.Validate(q.Filters); err != nil {
		return nil, err
	}

	filters := q.Filters
	tasks, err := cache.Read(ctx, h.Cache, TasksKey(filters), func(ctx context.Context) ([]models.Task, error) {
		return h.Svc.GetTasks(ctx, filters)
	})
	if err != nil {
		return tasks, fmt.Errorf("failed to get tasks: %w", err)
	}
	return tasks, nil
}

// Stats summarizes the task list of a filter set.
func (h *TaskQueryHandler) Stats(ctx context.Context, filters models.TaskFilters, today models.Date) (models.TaskStats, error) {
	tasks, err := h.Handle(ctx, GetTasksQuery{Filters: filters})
	if err != nil {
		return models.TaskStats{}, err
	}
	return models.ComputeStats(tasks, today), nil
}

// Subscribe watches the cache entry of a filter set. The entry is evicted
// once every subscriber has disposed.
func (h *TaskQueryHandler) Subscribe(filters models.TaskFilters, fn func(cache.Event)) (dispose func()) {
	return h.Cache.Subscribe(TasksKey(filters), fn)
}
