package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/rand"

	"github.com/Sontara444/taskmanager-client/logging"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Joined
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Push event names.
const (
	EventJoin         = "join"
	EventTaskCreated  = "task_created"
	EventTaskUpdated  = "task_updated"
	EventTaskDeleted  = "task_deleted"
	EventTaskAssigned = "task_assigned"
	EventNotification = "notification"
)

// TaskEvents are the events that make every cached task list stale.
var TaskEvents = []string{EventTaskCreated, EventTaskUpdated, EventTaskDeleted, EventTaskAssigned}

var (
	ErrNoIdentity  = errors.New("realtime: a user id is required to join")
	ErrAlreadyOpen = errors.New("realtime: channel is already open")
)

// Message is one text frame on the push socket.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the event payload.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("event %q has no payload", m.Event)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %q payload: %w", m.Event, err)
	}
	return nil
}

type Handler func(Message)

type Options struct {
	// URL is the websocket endpoint, for example ws://localhost:5000/ws.
	URL string
	// Header returns the credential headers sent with each dial.
	Header func() http.Header
	// Jar supplies session cookies for the handshake.
	Jar            http.CookieJar
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
}

// Channel is a persistent push connection scoped to one signed in user.
//
// Open starts a loop that dials, announces the user with a join frame and
// dispatches incoming events to subscribers. An unexpected drop moves the
// channel back to Connecting and the loop redials. Close stops the loop and
// releases every listener; no handler runs after Close returns.
type Channel struct {
	opts   Options
	dialer websocket.Dialer

	mu        sync.Mutex
	state     State
	gen       uint64
	cancel    context.CancelFunc
	done      chan struct{}
	listeners map[string]map[uint64]Handler
	watchers  map[uint64]func(State)
	nextID    uint64
}

func NewChannel(opts Options) *Channel {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 2 * time.Second
	}
	dialer := *websocket.DefaultDialer
	if opts.Dialer != nil {
		dialer = *opts.Dialer
	}
	dialer.Jar = opts.Jar

	return &Channel{
		opts:      opts,
		dialer:    dialer,
		listeners: make(map[string]map[uint64]Handler),
		watchers:  make(map[uint64]func(State)),
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers handler for one event name.
func (c *Channel) Subscribe(event string, handler Handler) (dispose func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	if c.listeners[event] == nil {
		c.listeners[event] = make(map[uint64]Handler)
	}
	c.listeners[event][id] = handler
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if byID := c.listeners[event]; byID != nil {
				delete(byID, id)
			}
		})
	}
}

// OnStateChange registers fn for every state transition made by the
// connection loop.
func (c *Channel) OnStateChange(fn func(State)) (dispose func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.watchers, id)
		})
	}
}

// Open starts connecting as userID. The connection stays up until Close is
// called or ctx ends.
func (c *Channel) Open(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoIdentity
	}

	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyOpen
	}
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.state = Connecting
	watchers := c.stateWatchers()
	c.mu.Unlock()

	logging.Logger.Infof("Event ID: PUSH_CONNECTING, Description: opening push channel %s for user %s", c.opts.URL, userID)
	for _, fn := range watchers {
		fn(Connecting)
	}

	go c.run(runCtx, gen, userID, done)
	return nil
}

// Close disconnects and releases every listener. It waits for the
// connection loop to exit.
func (c *Channel) Close() {
	c.mu.Lock()
	c.gen++
	c.state = Disconnected
	c.listeners = make(map[string]map[uint64]Handler)
	c.watchers = make(map[uint64]func(State))
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logging.Logger.Infof("Event ID: PUSH_CLOSED, Description: push channel %s closed", c.opts.URL)
}

func (c *Channel) stateWatchers() []func(State) {
	ids := make([]uint64, 0, len(c.watchers))
	for id := range c.watchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.watchers[id])
	}
	return out
}

// transition moves the channel to s unless the loop of gen was superseded.
func (c *Channel) transition(gen uint64, s State) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.state = s
	watchers := c.stateWatchers()
	if s == Disconnected {
		c.cancel, c.done = nil, nil
	}
	c.mu.Unlock()

	for _, fn := range watchers {
		fn(s)
	}
	return true
}

func (c *Channel) run(ctx context.Context, gen uint64, userID string, done chan struct{}) {
	defer close(done)

	for {
		conn, err := c.connect(ctx, userID)
		if err != nil {
			if ctx.Err() != nil {
				c.transition(gen, Disconnected)
				return
			}
			logging.Logger.Warnf("Event ID: PUSH_CONNECT_FAILED, Description: connecting to %s failed: %v", c.opts.URL, err)
		} else {
			if !c.transition(gen, Joined) {
				conn.Close()
				return
			}
			logging.Logger.Infof("Event ID: PUSH_JOINED, Description: joined push channel as user %s", userID)

			err = c.readLoop(ctx, gen, conn)
			if ctx.Err() != nil {
				c.transition(gen, Disconnected)
				return
			}
			logging.Logger.Warnf("Event ID: PUSH_CONNECTION_LOST, Description: push connection lost: %v", err)
			if !c.transition(gen, Connecting) {
				return
			}
		}

		if !sleep(ctx, c.backoff()) {
			c.transition(gen, Disconnected)
			return
		}
	}
}

func (c *Channel) connect(ctx context.Context, userID string) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.Header != nil {
		for k, v := range c.opts.Header() {
			header[k] = v
		}
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", c.opts.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	join, err := json.Marshal(map[string]string{"event": EventJoin, "data": userID})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode join frame: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send join frame: %w", err)
	}
	return conn, nil
}

func (c *Channel) readLoop(ctx context.Context, gen uint64, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event == "" {
			logging.Logger.Warnf("Event ID: PUSH_BAD_FRAME, Description: ignoring malformed push frame: %s", raw)
			continue
		}
		c.dispatch(gen, msg)
	}
}

func (c *Channel) dispatch(gen uint64, msg Message) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	byID := c.listeners[msg.Event]
	ids := make([]uint64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, byID[id])
	}
	c.mu.Unlock()

	logging.Logger.Debugf("Event ID: PUSH_EVENT, Description: received %q for %d listeners", msg.Event, len(handlers))
	for _, h := range handlers {
		h(msg)
	}
}

// backoff is the reconnect delay plus up to 50% jitter.
func (c *Channel) backoff() time.Duration {
	d := c.opts.ReconnectDelay
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
