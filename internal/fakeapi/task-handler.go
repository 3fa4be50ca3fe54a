package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Sontara444/taskmanager-client/models"
)

type taskRecord struct {
	id          string
	title       string
	description string
	dueDate     models.Date
	priority    models.TaskPriority
	status      models.TaskStatus
	creatorID   string
	assigneeID  string
	createdAt   time.Time
	updatedAt   time.Time
	seq         int
}

func (b *Backend) refLocked(id string) models.UserRef {
	if u, ok := b.users[id]; ok {
		return models.UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return models.UserRef{ID: id}
}

func (b *Backend) taskLocked(t *taskRecord) models.Task {
	out := models.Task{
		ID:          t.id,
		Title:       t.title,
		Description: t.description,
		DueDate:     t.dueDate,
		Priority:    t.priority,
		Status:      t.status,
		Creator:     b.refLocked(t.creatorID),
		CreatedAt:   t.createdAt,
		UpdatedAt:   t.updatedAt,
	}
	if t.assigneeID != "" {
		ref := b.refLocked(t.assigneeID)
		out.Assignee = &ref
	}
	return out
}

// AddTask stores a task directly, without push events. Zero fields get
// defaults (Medium priority, To Do status, due in a week).
func (b *Backend) AddTask(creatorID string, t models.Task) models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.opts.Now()
	rec := &taskRecord{
		id:          t.ID,
		title:       t.Title,
		description: t.Description,
		dueDate:     t.DueDate,
		priority:    t.Priority,
		status:      t.Status,
		creatorID:   creatorID,
		createdAt:   now,
		updatedAt:   now,
		seq:         b.nextSeq(),
	}
	if rec.id == "" {
		rec.id = newID()
	}
	if rec.priority == "" {
		rec.priority = models.PriorityMedium
	}
	if rec.status == "" {
		rec.status = models.StatusToDo
	}
	if rec.dueDate.IsZero() {
		rec.dueDate = models.DateOf(now.AddDate(0, 0, 7))
	}
	if t.Assignee != nil {
		rec.assigneeID = t.Assignee.ID
	}
	b.tasks[rec.id] = rec
	return b.taskLocked(rec)
}

// Task returns the stored task.
func (b *Backend) Task(id string) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return b.taskLocked(t), true
}

func visibleTo(t *taskRecord, userID string) bool {
	return t.creatorID == userID || t.assigneeID == userID
}

func (b *Backend) listTasks(w http.ResponseWriter, r *http.Request) {
	me := sessionOf(r).userID
	q := r.URL.Query()
	today := b.today()
	search := strings.ToLower(q.Get("search"))

	b.mu.Lock()
	matched := make([]*taskRecord, 0)
	for _, t := range b.tasks {
		if !visibleTo(t, me) {
			continue
		}
		if s := q.Get("status"); s != "" && string(t.status) != s {
			continue
		}
		if p := q.Get("priority"); p != "" && string(t.priority) != p {
			continue
		}
		if q.Get("assignedToMe") == "true" && t.assigneeID != me {
			continue
		}
		if q.Get("createdByMe") == "true" && t.creatorID != me {
			continue
		}
		if q.Get("overdue") == "true" && !(t.status != models.StatusCompleted && t.dueDate.Before(today)) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.title), search) && !strings.Contains(strings.ToLower(t.description), search) {
			continue
		}
		matched = append(matched, t)
	}

	sortTasks(matched, models.SortKey(q.Get("sortBy")), models.SortOrder(q.Get("sortOrder")))
	out := make([]models.Task, 0, len(matched))
	for _, t := range matched {
		out = append(out, b.taskLocked(t))
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

// sortTasks orders by key, newest first by default. Ties keep insertion
// order.
func sortTasks(tasks []*taskRecord, key models.SortKey, order models.SortOrder) {
	if key == "" {
		key = models.SortByCreatedAt
	}
	if order == "" {
		order = models.SortDesc
	}
	cmp := func(a, b *taskRecord) int {
		switch key {
		case models.SortByDueDate:
			return a.dueDate.Compare(b.dueDate)
		case models.SortByPriority:
			return a.priority.Rank() - b.priority.Rank()
		default:
			return a.seq - b.seq
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		c := cmp(tasks[i], tasks[j])
		if c == 0 {
			return tasks[i].seq < tasks[j].seq
		}
		if order == models.SortDesc {
			return c > 0
		}
		return c < 0
	})
}

func (b *Backend) createTask(w http.ResponseWriter, r *http.Request) {
	var data models.CreateTaskData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(data.Title) == "" || strings.TrimSpace(data.Description) == "" || data.DueDate.IsZero() {
		writeError(w, http.StatusBadRequest, "Please provide all required fields")
		return
	}
	if !data.Priority.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid priority")
		return
	}
	if data.Status != "" && !data.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	me := sessionOf(r).userID
	b.mu.Lock()
	if data.AssigneeID != "" {
		if _, ok := b.users[data.AssigneeID]; !ok {
			b.mu.Unlock()
			writeError(w, http.StatusBadRequest, "Assigned user not found")
			return
		}
	}
	now := b.opts.Now()
	rec := &taskRecord{
		id:          newID(),
		title:       data.Title,
		description: data.Description,
		dueDate:     data.DueDate,
		priority:    data.Priority,
		status:      data.Status,
		creatorID:   me,
		assigneeID:  data.AssigneeID,
		createdAt:   now,
		updatedAt:   now,
		seq:         b.nextSeq(),
	}
	if rec.status == "" {
		rec.status = models.StatusToDo
	}
	b.tasks[rec.id] = rec
	task := b.taskLocked(rec)
	var notice *models.Notification
	if rec.assigneeID != "" && rec.assigneeID != me {
		notice = b.notifyLocked(rec.assigneeID, me, "task_assigned", "You have been assigned a new task: "+rec.title, rec)
	}
	b.mu.Unlock()

	b.emitAll("task_created", task)
	if notice != nil {
		b.emitAssignment(task, *notice)
	}
	writeJSON(w, http.StatusCreated, task)
}

func (b *Backend) updateTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var data models.UpdateTaskData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if data.Priority != nil && !data.Priority.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid priority")
		return
	}
	if data.Status != nil && !data.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	me := sessionOf(r).userID
	b.mu.Lock()
	rec, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if !visibleTo(rec, me) {
		b.mu.Unlock()
		writeError(w, http.StatusForbidden, "Not authorized to update this task")
		return
	}

	previousAssignee := rec.assigneeID
	if data.Title != nil {
		rec.title = *data.Title
	}
	if data.Description != nil {
		rec.description = *data.Description
	}
	if data.DueDate != nil {
		rec.dueDate = *data.DueDate
	}
	if data.Priority != nil {
		rec.priority = *data.Priority
	}
	if data.Status != nil {
		rec.status = *data.Status
	}
	if data.AssigneeID != nil {
		rec.assigneeID = *data.AssigneeID
	}
	rec.updatedAt = b.opts.Now()
	task := b.taskLocked(rec)
	var notice *models.Notification
	if rec.assigneeID != "" && rec.assigneeID != previousAssignee && rec.assigneeID != me {
		notice = b.notifyLocked(rec.assigneeID, me, "task_assigned", "You have been assigned a task: "+rec.title, rec)
	}
	b.mu.Unlock()

	b.emitAll("task_updated", task)
	if notice != nil {
		b.emitAssignment(task, *notice)
	}
	writeJSON(w, http.StatusOK, task)
}

func (b *Backend) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	me := sessionOf(r).userID

	b.mu.Lock()
	rec, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if rec.creatorID != me {
		b.mu.Unlock()
		writeError(w, http.StatusForbidden, "Only the creator can delete this task")
		return
	}
	delete(b.tasks, id)
	b.mu.Unlock()

	b.emitAll("task_deleted", map[string]string{"taskId": id})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task removed"})
}
