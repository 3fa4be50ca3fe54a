package testutil

import (
	"context"
	"sync"

	"github.com/Sontara444/taskmanager-client/models"
)

// TaskService is an in-memory task backend with hooks for holding calls.
type TaskService struct {
	mu    sync.Mutex
	tasks []models.Task

	gets    int
	creates []models.CreateTaskData
	updates map[string]models.UpdateTaskData
	deletes []string

	// GetGate, when set, blocks GetTasks until it is closed.
	GetGate chan struct{}
	// DeleteStarted receives the id of every delete before it blocks on
	// DeleteGate.
	DeleteStarted chan string
	DeleteGate    chan struct{}
	// Err is returned by mutations when set.
	Err error
}

func NewTaskService(tasks ...models.Task) *TaskService {
	return &TaskService{tasks: tasks, updates: make(map[string]models.UpdateTaskData)}
}

func (s *TaskService) SetTasks(tasks ...models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
}

func (s *TaskService) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func (s *TaskService) Creates() []models.CreateTaskData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CreateTaskData(nil), s.creates...)
}

func (s *TaskService) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

// GetTasks filters by status only, which is enough to partition test data.
func (s *TaskService) GetTasks(ctx context.Context, filters models.TaskFilters) ([]models.Task, error) {
	s.mu.Lock()
	s.gets++
	gate := s.GetGate
	snapshot := append([]models.Task(nil), s.tasks...)
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	out := []models.Task{}
	for _, t := range snapshot {
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *TaskService) CreateTask(ctx context.Context, data models.CreateTaskData) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, data)
	if s.Err != nil {
		return models.Task{}, s.Err
	}
	t := models.Task{ID: "new-" + data.Title, Title: data.Title, Description: data.Description, DueDate: data.DueDate, Priority: data.Priority, Status: models.StatusToDo}
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id string, data models.UpdateTaskData) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[id] = data
	if s.Err != nil {
		return models.Task{}, s.Err
	}
	for i, t := range s.tasks {
		if t.ID != id {
			continue
		}
		if data.Title != nil {
			t.Title = *data.Title
		}
		if data.Status != nil {
			t.Status = *data.Status
		}
		s.tasks[i] = t
		return t, nil
	}
	return models.Task{ID: id}, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, id)
	started, gate := s.DeleteStarted, s.DeleteGate
	s.mu.Unlock()

	if started != nil {
		started <- id
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	kept := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	return nil
}

// SetErr changes the error returned by mutations.
func (s *TaskService) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
