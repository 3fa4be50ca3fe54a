package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/interfaces"
	"github.com/Sontara444/taskmanager-client/logging"
	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/services/queries"
)

type UpdateTaskCommand struct {
	TaskID string
	Data   models.UpdateTaskData
}

type UpdateTaskHandler struct {
	Cache   *cache.Cache
	Svc     interfaces.TaskCommandContext
	Session interfaces.SessionContext
}

func NewUpdateTaskHandler(c *cache.Cache, svc interfaces.TaskCommandContext, session interfaces.SessionContext) *UpdateTaskHandler {
	return &UpdateTaskHandler{Cache: c, Svc: svc, Session: session}
}

func (h *UpdateTaskHandler) Handle(ctx context.Context, cmd UpdateTaskCommand) (models.Task, error) {
	if _, ok := h.Session.CurrentUser(); !ok {
		return models.Task{}, models.ErrNotAuthenticated
	}
	if strings.TrimSpace(cmd.TaskID) == "" {
		return models.Task{}, models.NewValidationError("id", "required", "Task id is required")
	}
	if cmd.Data.Empty() {
		return models.Task{}, models.NewValidationError("", "empty", "Nothing to update")
	}
	if err := models.Validate(cmd.Data); err != nil {
		return models.Task{}, err
	}

	task, err := h.Svc.UpdateTask(ctx, cmd.TaskID, cmd.Data)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}

	h.Cache.Invalidate(queries.AllTasks())
	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: task %s updated", cmd.TaskID)
	return task, nil
}
