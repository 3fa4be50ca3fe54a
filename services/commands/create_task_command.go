package commands

import (
	"context"
	"fmt"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/interfaces"
	"github.com/Sontara444/taskmanager-client/logging"
	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/services/queries"
)

type CreateTaskCommand struct {
	Data models.CreateTaskData
}

type CreateTaskHandler struct {
	Cache   *cache.Cache
	Svc     interfaces.TaskCommandContext
	Session interfaces.SessionContext
}

func NewCreateTaskHandler(c *cache.Cache, svc interfaces.TaskCommandContext, session interfaces.SessionContext) *CreateTaskHandler {
	return &CreateTaskHandler{Cache: c, Svc: svc, Session: session}
}

// Handle creates the task and invalidates every task list. Nothing is
// inserted into the cache before the server answers.
func (h *CreateTaskHandler) Handle(ctx context.Context, cmd CreateTaskCommand) (models.Task, error) {
	if _, ok := h.Session.CurrentUser(); !ok {
		return models.Task{}, models.ErrNotAuthenticated
	}
	if err := models.Validate(cmd.Data); err != nil {
		return models.Task{}, err
	}

	task, err := h.Svc.CreateTask(ctx, cmd.Data)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to create task: %w", err)
	}

	h.Cache.Invalidate(queries.AllTasks())
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: task %s created", task.ID)
	return task, nil
}
