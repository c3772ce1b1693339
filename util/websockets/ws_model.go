package websockets

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeSubscribe      = "subscribe"
	MsgTypeMarkersChanged = "markers_changed"
	MsgTypeDraftChanged   = "draft_changed"
	MsgTypeDetailChanged  = "detail_changed"
	MsgTypeSessionChanged = "session_changed"
)

// Client is one connected map surface.
type Client struct {
	Conn     *websocket.Conn
	Viewport *Viewport
}

// Viewport is the last viewport a client subscribed with.
type Viewport struct {
	Zoom  int     `json:"zoom"`
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

type WebSocketManager struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan Message
	register   chan *Client
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.Mutex
}

// Message is pushed to clients. Version is the place list version a
// markers_changed push refers to.
type Message struct {
	Type     string    `json:"type"`
	Version  uint64    `json:"version,omitempty"`
	Viewport *Viewport `json:"viewport,omitempty"`
}
