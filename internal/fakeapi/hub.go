package fakeapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Sontara444/taskmanager-client/logging"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type peer struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	userID string
}

func (p *peer) send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, payload)
}

type hub struct {
	mu    sync.Mutex
	peers map[*peer]struct{}
	joins []string
}

func newHub() *hub {
	return &hub{peers: make(map[*peer]struct{})}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (b *Backend) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Errorf("Event ID: FAKEAPI_WS_UPGRADE_FAILED, Description: %v", err)
		return
	}
	p := &peer{conn: conn}

	b.hub.mu.Lock()
	b.hub.peers[p] = struct{}{}
	b.hub.mu.Unlock()

	defer func() {
		b.hub.mu.Lock()
		delete(b.hub.peers, p)
		b.hub.mu.Unlock()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		if f.Event != "join" {
			continue
		}
		var userID string
		if err := json.Unmarshal(f.Data, &userID); err != nil || userID == "" {
			continue
		}

		b.hub.mu.Lock()
		p.userID = userID
		b.hub.joins = append(b.hub.joins, userID)
		b.hub.mu.Unlock()
		logging.Logger.Debugf("Event ID: FAKEAPI_WS_JOIN, Description: user %s joined", userID)
	}
}

// Joins lists every join frame received, in order.
func (b *Backend) Joins() []string {
	b.hub.mu.Lock()
	defer b.hub.mu.Unlock()
	return append([]string(nil), b.hub.joins...)
}

// Connected counts the open push connections joined as userID.
func (b *Backend) Connected(userID string) int {
	b.hub.mu.Lock()
	defer b.hub.mu.Unlock()
	n := 0
	for p := range b.hub.peers {
		if p.userID == userID {
			n++
		}
	}
	return n
}

// Emit pushes an event to the connections joined as userID, or to every
// joined connection when userID is empty.
func (b *Backend) Emit(userID, event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logging.Logger.Errorf("Event ID: FAKEAPI_EMIT_FAILED, Description: %v", err)
		return
	}
	payload, err := json.Marshal(frame{Event: event, Data: raw})
	if err != nil {
		logging.Logger.Errorf("Event ID: FAKEAPI_EMIT_FAILED, Description: %v", err)
		return
	}

	b.hub.mu.Lock()
	targets := make([]*peer, 0, len(b.hub.peers))
	for p := range b.hub.peers {
		if p.userID == "" {
			continue
		}
		if userID == "" || p.userID == userID {
			targets = append(targets, p)
		}
	}
	b.hub.mu.Unlock()

	for _, p := range targets {
		if err := p.send(payload); err != nil {
			logging.Logger.Warnf("Event ID: FAKEAPI_EMIT_FAILED, Description: push to %s failed: %v", p.userID, err)
		}
	}
}

// EmitRaw writes a frame verbatim to every joined connection.
func (b *Backend) EmitRaw(payload []byte) {
	b.hub.mu.Lock()
	targets := make([]*peer, 0, len(b.hub.peers))
	for p := range b.hub.peers {
		if p.userID != "" {
			targets = append(targets, p)
		}
	}
	b.hub.mu.Unlock()

	for _, p := range targets {
		_ = p.send(payload)
	}
}

// DropConnections closes every push connection, as a server restart would.
func (b *Backend) DropConnections() {
	b.hub.closeAll()
}

func (b *Backend) emitAll(event string, data any) {
	if b.opts.Quiet {
		return
	}
	b.Emit("", event, data)
}
