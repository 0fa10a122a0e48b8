// Package notify mirrors task-state changes to websocket subscribers. The
// channel is best effort: a slow or broken subscriber is dropped, and no
// failure here ever reaches the pipeline.
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/pkruk/stayimport/internal/model"
)

// Notifier receives task status transitions.
type Notifier interface {
	TaskUpdate(taskID string, status model.TaskStatus, message string)
}

// NopNotifier discards updates; used where no push channel is wired.
type NopNotifier struct{}

// TaskUpdate implements Notifier.
func (NopNotifier) TaskUpdate(string, model.TaskStatus, string) {}

// TaskUpdate is the event sent to subscribers.
type TaskUpdate struct {
	TaskID  string           `json:"taskId"`
	Status  model.TaskStatus `json:"status"`
	Message string           `json:"message,omitempty"`
	EventAt time.Time        `json:"eventAt"`
}

const writeTimeout = 5 * time.Second

// Hub upgrades websocket connections and broadcasts task updates to them.
type Hub struct {
	log      *logrus.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// writeMu serializes broadcasts; gorilla connections do not support
	// concurrent writers and updates arrive from every worker goroutine.
	writeMu sync.Mutex
}

// NewHub constructs a hub.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			// The feed is read-only status data; any origin may subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.log.WithField("remote", conn.RemoteAddr().String()).Debug("websocket client connected")

	// Subscribers never send payloads; the read loop only notices closes.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// TaskUpdate broadcasts a transition to every subscriber. Write errors drop
// the subscriber and are otherwise swallowed.
func (h *Hub) TaskUpdate(taskID string, status model.TaskStatus, message string) {
	update := TaskUpdate{TaskID: taskID, Status: status, Message: message, EventAt: time.Now().UTC()}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(update); err != nil {
			h.log.WithError(err).Debug("dropping websocket client")
			h.drop(conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}
