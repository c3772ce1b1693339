package websockets

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMarkersChangedReachesSubscribers(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()
	defer manager.Stop()

	srv := httptest.NewServer(manager)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return manager.Clients() == 1 })

	vp := &Viewport{Zoom: 10, North: 54, South: 53, East: 28, West: 27}
	if err := conn.WriteJSON(Message{Type: MsgTypeSubscribe, Viewport: vp}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		manager.mu.Lock()
		defer manager.mu.Unlock()
		for _, c := range manager.clients {
			return c.Viewport != nil
		}
		return false
	})

	manager.MarkersChanged(7)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != MsgTypeMarkersChanged || got.Version != 7 || got.Viewport == nil || got.Viewport.Zoom != 10 {
		t.Fatalf("message = %s", raw)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()
	defer manager.Stop()

	srv := httptest.NewServer(manager)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return manager.Clients() == 1 })
	conn.Close()
	waitFor(t, func() bool { return manager.Clients() == 0 })
}
