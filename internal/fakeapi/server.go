// Package fakeapi is an in-memory backend speaking the task manager's REST
// and push protocol. Tests run it behind httptest.
package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/Sontara444/taskmanager-client/logging"
	"github.com/Sontara444/taskmanager-client/models"
)

const apiPrefix = "/api"

type Options struct {
	// Secret signs issued tokens. A fixed test secret is used when empty.
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time
	// CookieOnly omits the token from login responses, so the client relies
	// on the session cookie alone.
	CookieOnly bool
	// Quiet disables push events for mutations.
	Quiet bool
}

type failure struct {
	status  int
	message string
}

// Backend is safe for concurrent use.
type Backend struct {
	opts   Options
	router *mux.Router
	hub    *hub

	mu            sync.Mutex
	users         map[string]*userRecord
	tasks         map[string]*taskRecord
	notifications map[string]*notificationRecord
	seq           int
	failures      map[string][]failure
	gates         map[string]chan struct{}
	counts        map[string]int
}

func New(opts Options) *Backend {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("fakeapi-secret")
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 2 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	b := &Backend{
		opts:          opts,
		hub:           newHub(),
		users:         make(map[string]*userRecord),
		tasks:         make(map[string]*taskRecord),
		notifications: make(map[string]*notificationRecord),
		failures:      make(map[string][]failure),
		gates:         make(map[string]chan struct{}),
		counts:        make(map[string]int),
	}
	b.router = b.routes()
	return b
}

func (b *Backend) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(b.logRequests)

	r.Methods(http.MethodGet).Path("/ws").HandlerFunc(b.serveWS)

	api := r.PathPrefix(apiPrefix).Subrouter()
	api.Use(b.injectFailures)
	api.Methods(http.MethodPost).Path("/auth/login").HandlerFunc(b.login)
	api.Methods(http.MethodPost).Path("/auth/register").HandlerFunc(b.register)

	authed := api.NewRoute().Subrouter()
	authed.Use(b.authMiddleware)
	authed.Methods(http.MethodPost).Path("/auth/logout").HandlerFunc(b.logout)
	authed.Methods(http.MethodGet).Path("/auth/me").HandlerFunc(b.me)
	authed.Methods(http.MethodGet).Path("/auth/users").HandlerFunc(b.listUsers)
	authed.Methods(http.MethodPut).Path("/auth/profile").HandlerFunc(b.updateProfile)

	authed.Methods(http.MethodGet).Path("/tasks").HandlerFunc(b.listTasks)
	authed.Methods(http.MethodPost).Path("/tasks").HandlerFunc(b.createTask)
	authed.Methods(http.MethodPut).Path("/tasks/{id}").HandlerFunc(b.updateTask)
	authed.Methods(http.MethodDelete).Path("/tasks/{id}").HandlerFunc(b.deleteTask)

	authed.Methods(http.MethodGet).Path("/notifications").HandlerFunc(b.listNotifications)
	authed.Methods(http.MethodPut).Path("/notifications/read-all").HandlerFunc(b.markAllRead)
	authed.Methods(http.MethodPut).Path("/notifications/{id}/read").HandlerFunc(b.markRead)
	return r
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// Close drops every push connection.
func (b *Backend) Close() {
	b.hub.closeAll()
}

func routeKey(method, path string) string {
	return method + " " + path
}

// apiPath strips the /api prefix, so "/api/tasks/1" is counted as "/tasks/1".
func apiPath(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, apiPrefix)
}

func (b *Backend) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.counts[routeKey(r.Method, apiPath(r))]++
		b.mu.Unlock()

		m := httpsnoop.CaptureMetrics(next, w, r)
		logging.Logger.Debugf("Event ID: FAKEAPI_REQUEST, Description: %s %s -> %d in %s (request %s)", r.Method, r.URL, m.Code, m.Duration, r.Header.Get("X-Request-ID"))
	})
}

// injectFailures answers with a queued failure, or holds the request while
// its route is gated.
func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, apiPath(r))

		b.mu.Lock()
		gate := b.gates[key]
		b.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		b.mu.Lock()
		var f *failure
		if queued := b.failures[key]; len(queued) > 0 {
			f = &queued[0]
			b.failures[key] = queued[1:]
		}
		b.mu.Unlock()
		if f != nil {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next request to method and path (without the /api
// prefix) answer with status and message.
func (b *Backend) FailNext(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := routeKey(method, path)
	b.failures[key] = append(b.failures[key], failure{status: status, message: message})
}

// Gate holds requests to method and path until release is called.
func (b *Backend) Gate(method, path string) (release func()) {
	ch := make(chan struct{})
	key := routeKey(method, path)

	b.mu.Lock()
	b.gates[key] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gates[key] == ch {
				delete(b.gates, key)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Count returns how many requests reached method and path.
func (b *Backend) Count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[routeKey(method, path)]
}

// WaitForCount blocks until Count reaches n or ctx ends.
func (b *Backend) WaitForCount(ctx context.Context, method, path string, n int) bool {
	t := time.NewTicker(5 * time.Millisecond)
	defer t.Stop()
	for {
		if b.Count(method, path) >= n {
			return true
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return false
		}
	}
}

func (b *Backend) nextSeq() int {
	b.seq++
	return b.seq
}

func (b *Backend) today() models.Date {
	return models.DateOf(b.opts.Now())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: FAKEAPI_ENCODE_FAILED, Description: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
