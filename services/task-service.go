package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sontara444/taskmanager-client/models"
)

type TaskService struct {
	client Transport
}

func NewTaskService(client Transport) *TaskService {
	return &TaskService{client: client}
}

// GetTasks lists tasks matching filters. Unset filter fields are not sent.
func (s *TaskService) GetTasks(ctx context.Context, filters models.TaskFilters) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.client.Get(ctx, "/tasks", filters.Values(), &tasks); err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *TaskService) CreateTask(ctx context.Context, data models.CreateTaskData) (models.Task, error) {
	var task models.Task
	if err := s.client.Post(ctx, "/tasks", data, &task); err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id string, data models.UpdateTaskData) (models.Task, error) {
	var task models.Task
	if err := s.client.Put(ctx, taskPath(id), data, &task); err != nil {
		return models.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, taskPath(id), nil); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}
