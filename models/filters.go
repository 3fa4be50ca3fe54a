package models

import (
	"net/url"
	"strconv"
)

type SortKey string

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByDueDate   SortKey = "dueDate"
	SortByPriority  SortKey = "priority"
)

func (k SortKey) Valid() bool {
	return k == SortByCreatedAt || k == SortByDueDate || k == SortByPriority
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool { return o == SortAsc || o == SortDesc }

// TaskFilters is an immutable query descriptor for the task list. A zero
// field means "no constraint" and is never sent to the server. Flags have
// no "false" constraint, matching the checkbox semantics of the filter bar.
type TaskFilters struct {
	Status       TaskStatus   `json:"status,omitempty" validate:"omitempty,status"`
	Priority     TaskPriority `json:"priority,omitempty" validate:"omitempty,priority"`
	Search       string       `json:"search,omitempty"`
	SortBy       SortKey      `json:"sortBy,omitempty" validate:"omitempty,sortkey"`
	SortOrder    SortOrder    `json:"sortOrder,omitempty" validate:"omitempty,sortorder"`
	AssignedToMe bool         `json:"assignedToMe,omitempty"`
	CreatedByMe  bool         `json:"createdByMe,omitempty"`
	Overdue      bool         `json:"overdue,omitempty"`
}

// Values builds the query string parameters, dropping unset fields.
func (f TaskFilters) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Priority != "" {
		v.Set("priority", string(f.Priority))
	}
	if f.SortBy != "" {
		v.Set("sortBy", string(f.SortBy))
	}
	if f.SortOrder != "" {
		v.Set("sortOrder", string(f.SortOrder))
	}
	if f.AssignedToMe {
		v.Set("assignedToMe", strconv.FormatBool(true))
	}
	if f.CreatedByMe {
		v.Set("createdByMe", strconv.FormatBool(true))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Overdue {
		v.Set("overdue", strconv.FormatBool(true))
	}
	return v
}

// Key is the canonical serialization used to partition the task cache.
// Filter sets that differ in any field have different keys.
func (f TaskFilters) Key() string {
	return f.Values().Encode()
}
