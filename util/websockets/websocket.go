package websockets

import (
	"net/http"

	"github.com/bwise1/forest_places/internal/metrics"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const broadcastBuffer = 32

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until Stop is called.
func (manager *WebSocketManager) Run() {
	for {
		select {
		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client.Conn] = client
			manager.mu.Unlock()
			metrics.TrackStreamConnection(true)

		case conn := <-manager.unregister:
			manager.drop(conn)

		case message := <-manager.broadcast:
			manager.mu.Lock()
			var failed []*websocket.Conn
			for conn, client := range manager.clients {
				m := message
				if m.Type == MsgTypeMarkersChanged {
					m.Viewport = client.Viewport
				}
				b, err := json.Marshal(m)
				if err != nil {
					log.Error().Err(err).Str("type", m.Type).Msg("marshal stream message")
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					failed = append(failed, conn)
				}
			}
			manager.mu.Unlock()
			for _, conn := range failed {
				manager.drop(conn)
			}

		case <-manager.done:
			manager.mu.Lock()
			for conn := range manager.clients {
				conn.Close()
				delete(manager.clients, conn)
				metrics.TrackStreamConnection(false)
			}
			manager.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every connection.
func (manager *WebSocketManager) Stop() {
	select {
	case <-manager.done:
	default:
		close(manager.done)
	}
}

func (manager *WebSocketManager) drop(conn *websocket.Conn) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if _, exists := manager.clients[conn]; exists {
		delete(manager.clients, conn)
		conn.Close()
		metrics.TrackStreamConnection(false)
		log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("stream client disconnected")
	}
}

// Clients returns the number of connected clients.
func (manager *WebSocketManager) Clients() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.clients)
}

// Publish queues msg for every client. When the queue is full the message
// is dropped; pushes only tell clients to refetch. A markers_changed push
// carries the viewport the client last subscribed with.
func (manager *WebSocketManager) Publish(msg Message) {
	select {
	case manager.broadcast <- msg:
	case <-manager.done:
	default:
		log.Warn().Str("type", msg.Type).Msg("stream queue full, push dropped")
	}
}

func (manager *WebSocketManager) MarkersChanged(version uint64) {
	manager.Publish(Message{Type: MsgTypeMarkersChanged, Version: version})
}

// HandleConnections upgrades the request and reads subscribe messages until
// the client goes away.
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	client := &Client{Conn: conn}
	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}

	defer func() {
		select {
		case manager.unregister <- conn:
		case <-manager.done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var message Message
		if err := json.Unmarshal(msg, &message); err != nil {
			log.Debug().Err(err).Msg("invalid stream message")
			continue
		}

		switch message.Type {
		case MsgTypeSubscribe:
			manager.mu.Lock()
			client.Viewport = message.Viewport
			manager.mu.Unlock()
		}
	}
}

func (manager *WebSocketManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	manager.HandleConnections(w, r)
}
