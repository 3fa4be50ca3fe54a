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

type DeleteTaskCommand struct {
	TaskID string
}

// DeleteTaskHandler deletes a task optimistically: the task disappears from
// every cached collection before the request is sent and the collections
// are put back exactly as they were if the server refuses.
type DeleteTaskHandler struct {
	Cache   *cache.Cache
	Svc     interfaces.TaskCommandContext
	Session interfaces.SessionContext
}

func NewDeleteTaskHandler(c *cache.Cache, svc interfaces.TaskCommandContext, session interfaces.SessionContext) *DeleteTaskHandler {
	return &DeleteTaskHandler{Cache: c, Svc: svc, Session: session}
}

func (h *DeleteTaskHandler) Handle(ctx context.Context, cmd DeleteTaskCommand) error {
	if _, ok := h.Session.CurrentUser(); !ok {
		return models.ErrNotAuthenticated
	}
	if strings.TrimSpace(cmd.TaskID) == "" {
		return models.NewValidationError("id", "required", "Task id is required")
	}

	tasks := queries.AllTasks()
	release := h.Cache.Hold(tasks)
	defer release()

	// In-flight list fetches started before the delete would bring the
	// task back.
	h.Cache.Cancel(tasks)
	snapshot := h.Cache.Snapshot(tasks)
	changed := h.Cache.Update(tasks, func(_ cache.Key, v any) (any, bool) {
		list, ok := v.([]models.Task)
		if !ok {
			return v, false
		}
		return withoutTask(list, cmd.TaskID)
	})
	logging.Logger.Debugf("Event ID: TASK_DELETE_OPTIMISTIC, Description: removed task %s from %d cached lists", cmd.TaskID, changed)

	if err := h.Svc.DeleteTask(ctx, cmd.TaskID); err != nil {
		h.Cache.Restore(snapshot)
		logging.Logger.Warnf("Event ID: TASK_DELETE_ROLLBACK, Description: delete of task %s failed, restored %d cached lists: %v", cmd.TaskID, len(snapshot), err)
		return fmt.Errorf("failed to delete task: %w", err)
	}

	h.Cache.Invalidate(tasks)
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: task %s deleted", cmd.TaskID)
	return nil
}

// withoutTask returns a copy of list without the task. A list that does not
// contain it is returned unchanged.
func withoutTask(list []models.Task, id string) ([]models.Task, bool) {
	idx := -1
	for i, t := range list {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return list, false
	}

	out := make([]models.Task, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	return out, true
}
