package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/interfaces"
	"github.com/Sontara444/taskmanager-client/logging"
	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/services/queries"
	"github.com/Sontara444/taskmanager-client/transport"
)

// Binding is a resource that lives exactly as long as a session, such as
// the push channel.
type Binding interface {
	Start(ctx context.Context, user models.User) error
	Stop()
}

// Manager owns the signed in user. Everything that needs authentication
// asks it through CurrentUser.
type Manager struct {
	auth   interfaces.AuthContext
	tokens TokenStore
	cache  *cache.Cache
	now    func() time.Time

	// lifecycle serializes sign in and sign out.
	lifecycle sync.Mutex

	mu       sync.RWMutex
	user     models.User
	signedIn bool
	bindings []Binding
}

func NewManager(auth interfaces.AuthContext, tokens TokenStore, c *cache.Cache) *Manager {
	return &Manager{auth: auth, tokens: tokens, cache: c, now: time.Now}
}

// Bind registers b to be started on every sign in and stopped on logout.
func (m *Manager) Bind(b Binding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings = append(m.bindings, b)
}

func (m *Manager) CurrentUser() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.signedIn
}

func (m *Manager) Login(ctx context.Context, data models.LoginData) (models.User, error) {
	if err := models.Validate(data); err != nil {
		return models.User{}, err
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	user, token, err := m.auth.Login(ctx, data)
	if err != nil {
		return models.User{}, fmt.Errorf("login failed: %w", err)
	}
	if err := m.begin(ctx, user, token); err != nil {
		return models.User{}, err
	}
	logging.Logger.Infof("Event ID: LOGIN_SUCCESS, Description: user %s signed in", user.Email)
	return user, nil
}

func (m *Manager) Register(ctx context.Context, data models.RegisterData) (models.User, error) {
	if err := models.Validate(data); err != nil {
		return models.User{}, err
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	user, token, err := m.auth.Register(ctx, data)
	if err != nil {
		return models.User{}, fmt.Errorf("registration failed: %w", err)
	}
	if err := m.begin(ctx, user, token); err != nil {
		return models.User{}, err
	}
	logging.Logger.Infof("Event ID: REGISTER_SUCCESS, Description: user %s registered", user.Email)
	return user, nil
}

// Restore resumes the session of a stored token. It returns
// models.ErrNotAuthenticated when there is no usable token; an expired or
// rejected token is cleared.
func (m *Manager) Restore(ctx context.Context) (models.User, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	token := m.tokens.Token()
	if token == "" {
		return models.User{}, models.ErrNotAuthenticated
	}
	if Expired(token, m.now()) {
		logging.Logger.Infof("Event ID: TOKEN_EXPIRED, Description: stored token expired, clearing it")
		if err := m.tokens.Clear(); err != nil {
			return models.User{}, err
		}
		return models.User{}, models.ErrNotAuthenticated
	}

	user, err := m.auth.Me(ctx)
	if err != nil {
		if transport.IsStatus(err, http.StatusUnauthorized) {
			if clearErr := m.tokens.Clear(); clearErr != nil {
				return models.User{}, clearErr
			}
			return models.User{}, models.ErrNotAuthenticated
		}
		return models.User{}, fmt.Errorf("restore session: %w", err)
	}

	if err := m.begin(ctx, user, ""); err != nil {
		return models.User{}, err
	}
	logging.Logger.Infof("Event ID: SESSION_RESTORED, Description: session of %s restored", user.Email)
	return user, nil
}

// Logout ends the session. Local state is always torn down: bindings are
// stopped, the cache is cleared and the token is removed. A failed server
// logout is returned afterwards.
func (m *Manager) Logout(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	_, signedIn := m.CurrentUser()
	var serverErr error
	if signedIn {
		if err := m.auth.Logout(ctx); err != nil {
			serverErr = fmt.Errorf("logout failed: %w", err)
			logging.Logger.Warnf("Event ID: LOGOUT_SERVER_FAILED, Description: %v", err)
		}
	}

	m.end()
	clearErr := m.tokens.Clear()
	logging.Logger.Infof("Event ID: LOGOUT, Description: session ended")
	return errors.Join(serverErr, clearErr)
}

// Close stops the bindings and forgets the user locally. The stored token is
// kept so a later Restore can resume the session.
func (m *Manager) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.end()
}

func (m *Manager) UpdateProfile(ctx context.Context, data models.ProfileData) (models.User, error) {
	if _, ok := m.CurrentUser(); !ok {
		return models.User{}, models.ErrNotAuthenticated
	}
	if err := models.Validate(data); err != nil {
		return models.User{}, err
	}

	user, err := m.auth.UpdateProfile(ctx, data)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to update profile: %w", err)
	}

	m.mu.Lock()
	if m.signedIn {
		m.user = user
	}
	m.mu.Unlock()

	m.cache.Invalidate(queries.AllUsers())
	return user, nil
}

// begin installs user as the current session, replacing any previous one,
// and starts the bindings. A binding that fails to start is logged; the
// session stays usable without it.
func (m *Manager) begin(ctx context.Context, user models.User, token string) error {
	if _, ok := m.CurrentUser(); ok {
		m.end()
	}
	if token != "" {
		if err := m.tokens.Save(token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}

	m.mu.Lock()
	m.user = user
	m.signedIn = true
	bindings := append([]Binding(nil), m.bindings...)
	m.mu.Unlock()

	for _, b := range bindings {
		if err := b.Start(ctx, user); err != nil {
			logging.Logger.Warnf("Event ID: SESSION_BINDING_FAILED, Description: %v", err)
		}
	}
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.user = models.User{}
	m.signedIn = false
	bindings := append([]Binding(nil), m.bindings...)
	m.mu.Unlock()

	for i := len(bindings) - 1; i >= 0; i-- {
		bindings[i].Stop()
	}
	m.cache.Clear()
}
