package controlapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/OpenTouch/night-watch/internal/nwlog"
	"github.com/OpenTouch/night-watch/internal/nwtypes"
	"github.com/gorilla/websocket"
)

// maxStreamClients bounds concurrent GET /api/v1/night-watch/stream
// connections, mirroring the connection cap itskum47-FluxForge's
// MetricsHub applies to its own websocket clients.
const maxStreamClients = 200

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans a TaskDict out to every connected stream client whenever a
// task crosses a state boundary. Grounded on
// itskum47-FluxForge/control_plane/ws_hub.go's register/unregister
// channel pattern, adapted from "poll and broadcast every tick" to
// "push only on change" since night-watch already knows exactly when
// a task's state changed (task.Task.OnStateChange).
type Hub struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	events     chan nwtypes.TaskDict
}

// NewHub builds an unstarted Hub; call Run to start its event loop.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		events:     make(chan nwtypes.TaskDict, 64),
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log := nwlog.WithComponent("controlapi.stream")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case conn := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxStreamClients {
				h.mu.Unlock()
				log.Warn().Msg("stream connection rejected, at capacity")
				conn.Close()
				continue
			}
			h.clients[conn] = struct{}{}
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
		case dict := <-h.events:
			h.send(dict)
		}
	}
}

func (h *Hub) send(dict nwtypes.TaskDict) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(dict); err != nil {
			go h.Unregister(conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

// Broadcast queues dict for delivery to every connected client. Safe
// to call from any goroutine, including a scheduler worker mid-tick;
// registered with taskmanager.Manager.SetUpdateHook.
func (h *Hub) Broadcast(dict nwtypes.TaskDict) {
	select {
	case h.events <- dict:
	default:
		nwlog.WithComponent("controlapi.stream").Warn().Str("task", dict.Name).Msg("stream event dropped, buffer full")
	}
}

// Register adds a client connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) { h.register <- conn }

// Unregister removes a client connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) { h.unregister <- conn }

// ServeWS upgrades the request to a websocket and registers it with
// the hub, implementing GET /api/v1/night-watch/stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		nwlog.WithComponent("controlapi.stream").Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.Register(conn)
}
