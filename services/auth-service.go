package services

import (
	"context"
	"fmt"

	"github.com/Sontara444/taskmanager-client/models"
)

type AuthService struct {
	client Transport
}

func NewAuthService(client Transport) *AuthService {
	return &AuthService{client: client}
}

// authResponse is the user object, optionally carrying a bearer token. When
// the server relies on cookies only, Token is empty.
type authResponse struct {
	models.User
	Token string `json:"token,omitempty"`
}

func (s *AuthService) Login(ctx context.Context, data models.LoginData) (models.User, string, error) {
	var resp authResponse
	if err := s.client.Post(ctx, "/auth/login", data, &resp); err != nil {
		return models.User{}, "", fmt.Errorf("login: %w", err)
	}
	return resp.User, resp.Token, nil
}

func (s *AuthService) Register(ctx context.Context, data models.RegisterData) (models.User, string, error) {
	var resp authResponse
	if err := s.client.Post(ctx, "/auth/register", data, &resp); err != nil {
		return models.User{}, "", fmt.Errorf("register: %w", err)
	}
	return resp.User, resp.Token, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the user the current credentials belong to.
func (s *AuthService) Me(ctx context.Context) (models.User, error) {
	var user models.User
	if err := s.client.Get(ctx, "/auth/me", nil, &user); err != nil {
		return models.User{}, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, data models.ProfileData) (models.User, error) {
	var user models.User
	if err := s.client.Put(ctx, "/auth/profile", data, &user); err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}
