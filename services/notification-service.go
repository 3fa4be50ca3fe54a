package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sontara444/taskmanager-client/models"
)

type NotificationService struct {
	client Transport
}

func NewNotificationService(client Transport) *NotificationService {
	return &NotificationService{client: client}
}

func (s *NotificationService) GetNotifications(ctx context.Context) ([]models.Notification, error) {
	var list []models.Notification
	if err := s.client.Get(ctx, "/notifications", nil, &list); err != nil {
		return nil, fmt.Errorf("get notifications: %w", err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id string) (models.Notification, error) {
	var n models.Notification
	if err := s.client.Put(ctx, "/notifications/"+url.PathEscape(id)+"/read", nil, &n); err != nil {
		return models.Notification{}, fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return n, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context) error {
	if err := s.client.Put(ctx, "/notifications/read-all", nil, nil); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
