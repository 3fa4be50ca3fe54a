package realtime

import (
	"context"
	"sync"

	"github.com/Sontara444/taskmanager-client/cache"
	"github.com/Sontara444/taskmanager-client/logging"
	"github.com/Sontara444/taskmanager-client/models"
	"github.com/Sontara444/taskmanager-client/services/queries"
)

// NotificationRefetcher reloads the notification list.
type NotificationRefetcher interface {
	Refetch(ctx context.Context) ([]models.Notification, error)
}

// Reconciler turns push events into cache invalidation. Event payloads are
// never patched into cached lists; the next read fetches the server's view.
type Reconciler struct {
	Cache         *cache.Cache
	Notifications NotificationRefetcher
	// OnNotification receives the payload of every "notification" event.
	OnNotification func(models.PushNotification)
}

// Attach subscribes the reconciler to ch until dispose is called.
func (r *Reconciler) Attach(ctx context.Context, ch *Channel) (dispose func()) {
	var disposers []func()

	for _, event := range TaskEvents {
		disposers = append(disposers, ch.Subscribe(event, r.taskEvent))
	}
	disposers = append(disposers, ch.Subscribe(EventNotification, func(msg Message) {
		r.notificationEvent(ctx, msg)
	}))

	var mu sync.Mutex
	joined := false
	disposers = append(disposers, ch.OnStateChange(func(s State) {
		if s != Joined {
			return
		}
		mu.Lock()
		rejoin := joined
		joined = true
		mu.Unlock()
		if rejoin {
			r.rejoined()
		}
	}))

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, d := range disposers {
				d()
			}
		})
	}
}

func (r *Reconciler) taskEvent(msg Message) {
	n := r.Cache.Invalidate(queries.AllTasks())
	logging.Logger.Debugf("Event ID: PUSH_TASKS_INVALIDATED, Description: %q invalidated %d task lists", msg.Event, n)
}

func (r *Reconciler) notificationEvent(ctx context.Context, msg Message) {
	var payload models.PushNotification
	decoded := true
	if err := msg.Decode(&payload); err != nil {
		decoded = false
		logging.Logger.Warnf("Event ID: PUSH_BAD_NOTIFICATION, Description: %v", err)
	}

	if r.Notifications != nil {
		if _, err := r.Notifications.Refetch(ctx); err != nil {
			logging.Logger.Warnf("Event ID: NOTIFICATIONS_REFETCH_FAILED, Description: %v", err)
		}
	} else {
		r.Cache.Invalidate(queries.AllNotifications())
	}

	if decoded && r.OnNotification != nil {
		r.OnNotification(payload)
	}
}

// rejoined invalidates everything the push channel keeps fresh, since
// events may have been missed while disconnected.
func (r *Reconciler) rejoined() {
	r.Cache.Invalidate(queries.AllTasks())
	r.Cache.Invalidate(queries.AllNotifications())
	logging.Logger.Infof("Event ID: PUSH_REJOINED, Description: rejoined push channel, task and notification lists invalidated")
}
