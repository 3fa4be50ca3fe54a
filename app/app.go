package app

import (
	"fmt"
	"net/http"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/config"
	"github.com/Sontara444/taskmanager-client/logging"
	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/realtime"
	"github.com/Sontara444/taskmanager-client/services"
	"github.com/Sontara444/taskmanager-client/services/commands"
	"github.com/Sontara444/taskmanager-client/services/queries"
	"github.com/Sontara444/taskmanager-client/session"
	"github.com/Sontara444/taskmanager-client/transport"
)

// App wires the data layer together.
type App struct {
	Config  *config.Config
	Client  *transport.Client
	Cache   *cache.Cache
	Session *session.Manager
	Channel *realtime.Channel

	Tasks         *queries.TaskQueryHandler
	Notifications *queries.NotificationQueryHandler
	Users         *queries.UserQueryHandler

	CreateTask  *commands.CreateTaskHandler
	UpdateTask  *commands.UpdateTaskHandler
	DeleteTask  *commands.DeleteTaskHandler
	MarkRead    *commands.MarkNotificationReadHandler
	MarkAllRead *commands.MarkAllNotificationsReadHandler

	reconciler *realtime.Reconciler
}

type Option func(*settings)

type settings struct {
	tokens     session.TokenStore
	httpClient *http.Client
	onNotify   func(models.PushNotification)
	noPush     bool
}

// WithTokenStore replaces the token file from the configuration.
func WithTokenStore(s session.TokenStore) Option {
	return func(o *settings) { o.tokens = s }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *settings) { o.httpClient = c }
}

// WithNotificationHandler receives the payload of every pushed notification.
func WithNotificationHandler(fn func(models.PushNotification)) Option {
	return func(o *settings) { o.onNotify = fn }
}

// WithoutPush keeps the session from opening the push channel, for one-shot
// commands that exit before any event could arrive.
func WithoutPush() Option {
	return func(o *settings) { o.noPush = true }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	var o settings
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokens == nil {
		o.tokens = session.NewFileTokenStore(cfg.TokenFile)
	}

	client, err := transport.NewHTTPClient(transport.Options{
		BaseURL:            cfg.APIBaseURL(),
		Timeout:            cfg.RequestTimeout,
		Tokens:             o.tokens,
		BreakerName:        "backend-cb",
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerTimeout:     cfg.BreakerTimeout,
		HTTPClient:         o.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	pushURL, err := cfg.PushURL()
	if err != nil {
		return nil, err
	}

	store := cache.New(cache.Options{StaleTime: cfg.StaleTime})
	authSvc := services.NewAuthService(client)
	taskSvc := services.NewTaskService(client)
	notificationSvc := services.NewNotificationService(client)
	userSvc := services.NewUserService(client)

	manager := session.NewManager(authSvc, o.tokens, store)

	a := &App{
		Config:  cfg,
		Client:  client,
		Cache:   store,
		Session: manager,

		Tasks:         queries.NewTaskQueryHandler(store, taskSvc, manager),
		Notifications: queries.NewNotificationQueryHandler(store, notificationSvc, manager),
		Users:         queries.NewUserQueryHandler(store, userSvc, manager),

		CreateTask:  commands.NewCreateTaskHandler(store, taskSvc, manager),
		UpdateTask:  commands.NewUpdateTaskHandler(store, taskSvc, manager),
		DeleteTask:  commands.NewDeleteTaskHandler(store, taskSvc, manager),
		MarkRead:    commands.NewMarkNotificationReadHandler(store, notificationSvc, manager),
		MarkAllRead: commands.NewMarkAllNotificationsReadHandler(store, notificationSvc, manager),
	}

	a.Channel = realtime.NewChannel(realtime.Options{
		URL:            pushURL,
		Header:         client.AuthHeader,
		Jar:            client.Jar(),
		ReconnectDelay: cfg.ReconnectDelay,
	})
	a.reconciler = &realtime.Reconciler{
		Cache:          store,
		Notifications:  a.Notifications,
		OnNotification: o.onNotify,
	}
	if !o.noPush {
		manager.Bind(realtime.NewLink(a.Channel, a.reconciler))
	}

	logging.Logger.Infof("Event ID: APP_READY, Description: client configured for %s", cfg.APIBaseURL())
	return a, nil
}

// Close ends the push channel without logging out on the server.
func (a *App) Close() {
	a.Session.Close()
}
