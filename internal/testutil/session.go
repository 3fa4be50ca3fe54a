// Package testutil holds fakes shared by package tests.
package testutil

import (
	"sync"

	"github.com/Sontara444/taskmanager-client/models"
)

// Session is a settable interfaces.SessionContext.
type Session struct {
	mu   sync.Mutex
	user *models.User
}

func SignedIn(u models.User) *Session {
	return &Session{user: &u}
}

func (s *Session) CurrentUser() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}
