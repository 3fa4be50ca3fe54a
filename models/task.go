package models

import (
	"time"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
	PriorityUrgent TaskPriority = "Urgent"
)

// Priorities lists every priority in ascending order.
var Priorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Rank orders priorities Low < Medium < High < Urgent. Unknown values rank 0.
func (p TaskPriority) Rank() int {
	for i, v := range Priorities {
		if v == p {
			return i + 1
		}
	}
	return 0
}

func (p TaskPriority) Valid() bool { return p.Rank() > 0 }

type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusReview     TaskStatus = "Review"
	StatusCompleted  TaskStatus = "Completed"
)

// Statuses lists the workflow in display order. Any transition between
// them is allowed.
var Statuses = []TaskStatus{StatusToDo, StatusInProgress, StatusReview, StatusCompleted}

func (s TaskStatus) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

type Task struct {
	ID          string       `json:"_id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	DueDate     Date         `json:"dueDate" yaml:"dueDate"`
	Priority    TaskPriority `json:"priority" yaml:"priority"`
	Status      TaskStatus   `json:"status" yaml:"status"`
	Creator     UserRef      `json:"creatorId" yaml:"creator"`
	Assignee    *UserRef     `json:"assignedToId,omitempty" yaml:"assignee,omitempty"`
	CreatedAt   time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" yaml:"updatedAt"`
}

// IsOverdue reports whether the task is not completed and its due date is
// strictly before today.
func (t Task) IsOverdue(today Date) bool {
	if t.DueDate.IsZero() || t.Status == StatusCompleted {
		return false
	}
	return t.DueDate.Before(today)
}

type CreateTaskData struct {
	Title       string       `json:"title" validate:"required,max=100"`
	Description string       `json:"description" validate:"required"`
	DueDate     Date         `json:"dueDate"`
	Priority    TaskPriority `json:"priority" validate:"priority"`
	Status      TaskStatus   `json:"status,omitempty" validate:"omitempty,status"`
	AssigneeID  string       `json:"assignedToId,omitempty"`
}

// UpdateTaskData carries a partial update. Nil fields are left untouched
// by the server.
type UpdateTaskData struct {
	Title       *string       `json:"title,omitempty" validate:"omitnil,min=1,max=100"`
	Description *string       `json:"description,omitempty" validate:"omitnil,min=1"`
	DueDate     *Date         `json:"dueDate,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty" validate:"omitnil,priority"`
	Status      *TaskStatus   `json:"status,omitempty" validate:"omitnil,status"`
	AssigneeID  *string       `json:"assignedToId,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u UpdateTaskData) Empty() bool {
	return u.Title == nil && u.Description == nil && u.DueDate == nil &&
		u.Priority == nil && u.Status == nil && u.AssigneeID == nil
}
