package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Notification struct {
	ID          string    `json:"_id" yaml:"id"`
	RecipientID string    `json:"recipientId" yaml:"recipientId"`
	Sender      *UserRef  `json:"senderId,omitempty" yaml:"sender,omitempty"`
	Type        string    `json:"type" yaml:"type"`
	Message     string    `json:"message" yaml:"message"`
	RelatedTask *TaskRef  `json:"relatedTaskId,omitempty" yaml:"relatedTask,omitempty"`
	IsRead      bool      `json:"isRead" yaml:"isRead"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// TaskRef is a task reference as embedded in notifications.
type TaskRef struct {
	ID    string `json:"_id" yaml:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

func (r *TaskRef) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode task reference: %w", err)
		}
		*r = TaskRef{ID: id}
		return nil
	}
	type plain TaskRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode task reference: %w", err)
	}
	*r = TaskRef(p)
	return nil
}

// PushNotification is the payload of the "notification" push event.
type PushNotification struct {
	Message string `json:"message"`
	TaskID  string `json:"taskId,omitempty"`
}

// CountUnread returns how many notifications are still unread.
func CountUnread(list []Notification) int {
	n := 0
	for _, item := range list {
		if !item.IsRead {
			n++
		}
	}
	return n
}
