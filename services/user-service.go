package services

import (
	"context"
	"fmt"

	"github.com/Sontara444/taskmanager-client/models"
)

type UserService struct {
	client Transport
}

func NewUserService(client Transport) *UserService {
	return &UserService{client: client}
}

// GetUsers lists the users a task can be assigned to.
func (s *UserService) GetUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.client.Get(ctx, "/auth/users", nil, &users); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}
