package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sontara444/taskmanager-client/models"
)

// Link ties a Channel and its Reconciler to the session: it opens the
// channel when a user signs in and closes it on logout.
type Link struct {
	Channel    *Channel
	Reconciler *Reconciler

	mu      sync.Mutex
	cancel  context.CancelFunc
	dispose func()
}

func NewLink(ch *Channel, r *Reconciler) *Link {
	return &Link{Channel: ch, Reconciler: r}
}

func (l *Link) Start(ctx context.Context, user models.User) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return ErrAlreadyOpen
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	dispose := l.Reconciler.Attach(runCtx, l.Channel)
	if err := l.Channel.Open(runCtx, user.ID); err != nil {
		dispose()
		cancel()
		return fmt.Errorf("open push channel: %w", err)
	}

	l.cancel = cancel
	l.dispose = dispose
	return nil
}

func (l *Link) Stop() {
	l.mu.Lock()
	cancel, dispose := l.cancel, l.dispose
	l.cancel, l.dispose = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	l.Channel.Close()
	dispose()
}
