package events

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks connected recipients (recipientId -> *websocket.Conn) so
// notifications can be pushed as they are written. Polling clients that never
// connect here still see everything through GET /notifications; the socket is
// a faster mirror, not the source of truth.
type Hub struct {
	clients map[string]*websocket.Conn
	mutex   sync.Mutex
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*websocket.Conn),
	}
}

// ServeWS upgrades the request and registers the connection under the
// recipientId query param
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}

	recipientID := r.URL.Query().Get("recipientId")
	if recipientID == "" {
		conn.Close()
		return
	}

	h.mutex.Lock()
	h.clients[recipientID] = conn
	h.mutex.Unlock()
	zap.S().Debugf("recipient %s connected to /ws/notifications", recipientID)

	conn.SetCloseHandler(func(code int, text string) error {
		h.mutex.Lock()
		delete(h.clients, recipientID)
		h.mutex.Unlock()
		zap.S().Debugf("recipient %s disconnected from /ws/notifications", recipientID)
		return nil
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			conn.Close()
			break
		}
	}
}

// Send pushes a payload to a connected recipient, dropping the connection on
// write failure. A recipient that is not connected is silently skipped.
func (h *Hub) Send(recipientID string, payload interface{}) {
	h.mutex.Lock()
	conn, exists := h.clients[recipientID]
	h.mutex.Unlock()

	if !exists {
		return
	}

	err := conn.WriteJSON(map[string]interface{}{
		"event": "new_notification",
		"data":  payload,
	})
	if err != nil {
		zap.S().Warnw("failed to push notification", "recipientId", recipientID, "error", err)
		h.mutex.Lock()
		delete(h.clients, recipientID)
		h.mutex.Unlock()
		conn.Close()
	}
}
