package fakeapi

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/Sontara444/taskmanager-client/models"
)

type notificationRecord struct {
	models.Notification
	seq int
}

func (b *Backend) notifyLocked(recipientID, senderID, kind, message string, task *taskRecord) *models.Notification {
	n := &notificationRecord{
		Notification: models.Notification{
			ID:          newID(),
			RecipientID: recipientID,
			Type:        kind,
			Message:     message,
			CreatedAt:   b.opts.Now(),
		},
		seq: b.nextSeq(),
	}
	if senderID != "" {
		ref := b.refLocked(senderID)
		n.Sender = &ref
	}
	if task != nil {
		n.RelatedTask = &models.TaskRef{ID: task.id, Title: task.title}
	}
	b.notifications[n.ID] = n
	out := n.Notification
	return &out
}

// AddNotification stores a notification for recipientID without push events.
func (b *Backend) AddNotification(recipientID, message string) models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.notifyLocked(recipientID, "", "info", message, nil)
}

// Notify stores a notification and pushes it to the recipient, the way the
// server does when a task is assigned.
func (b *Backend) Notify(recipientID, message, taskID string) models.Notification {
	b.mu.Lock()
	var task *taskRecord
	if taskID != "" {
		task = b.tasks[taskID]
	}
	n := *b.notifyLocked(recipientID, "", "info", message, task)
	b.mu.Unlock()

	b.Emit(recipientID, "notification", models.PushNotification{Message: message, TaskID: taskID})
	return n
}

func (b *Backend) listNotifications(w http.ResponseWriter, r *http.Request) {
	me := sessionOf(r).userID

	b.mu.Lock()
	records := make([]*notificationRecord, 0)
	for _, n := range b.notifications {
		if n.RecipientID == me {
			records = append(records, n)
		}
	}
	b.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].seq > records[j].seq })
	out := make([]models.Notification, 0, len(records))
	for _, n := range records {
		out = append(out, n.Notification)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) markRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	me := sessionOf(r).userID

	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.notifications[id]
	if !ok || n.RecipientID != me {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	n.IsRead = true
	writeJSON(w, http.StatusOK, n.Notification)
}

func (b *Backend) markAllRead(w http.ResponseWriter, r *http.Request) {
	me := sessionOf(r).userID

	b.mu.Lock()
	for _, n := range b.notifications {
		if n.RecipientID == me {
			n.IsRead = true
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

// emitAssignment tells the assignee about a new assignment.
func (b *Backend) emitAssignment(task models.Task, n models.Notification) {
	if b.opts.Quiet {
		return
	}
	b.Emit(n.RecipientID, "task_assigned", task)
	b.Emit(n.RecipientID, "notification", models.PushNotification{Message: n.Message, TaskID: task.ID})
}
