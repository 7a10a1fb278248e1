package api

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/config"
)

func testHub() *Hub {
	return NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())
}

func testClient(hub *Hub, channels ...string) *WSClient {
	subs := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		subs[ch] = struct{}{}
	}
	return &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: subs,
	}
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := testHub()
	client := testClient(hub, ChannelDevicesChanged)
	hub.Register(client)

	hub.Broadcast(ChannelDevicesChanged, map[string]string{"id": "a"})

	msg := receive(t, client)
	if msg.Type != WSTypeEvent {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeEvent)
	}
	if msg.EventType != ChannelDevicesChanged {
		t.Errorf("event_type = %q, want %q", msg.EventType, ChannelDevicesChanged)
	}
	if msg.Timestamp == "" {
		t.Error("timestamp should be set")
	}
}

func TestHub_BroadcastSkipsUnsubscribed(t *testing.T) {
	hub := testHub()
	client := testClient(hub, ChannelDevicesChanged)
	hub.Register(client)

	hub.Broadcast(ChannelFrame, map[string]string{"seq": "1"})

	select {
	case data := <-client.send:
		t.Errorf("unsubscribed client received %s", data)
	default:
	}
}

func TestHub_ClientCountAndUnregister(t *testing.T) {
	hub := testHub()
	a := testClient(hub)
	b := testClient(hub)
	hub.Register(a)
	hub.Register(b)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	hub.Unregister(a)
	hub.Unregister(a)
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() after unregister = %d, want 1", got)
	}
	if _, ok := <-a.send; ok {
		t.Error("send channel should be closed after unregister")
	}

	// Broadcasting after a client left must not panic.
	hub.Broadcast(ChannelFrame, nil)
}

func TestHub_HasSubscribers(t *testing.T) {
	hub := testHub()
	if hub.HasSubscribers(ChannelFrame) {
		t.Error("empty hub reports frame subscribers")
	}

	client := testClient(hub, ChannelDevicesChanged)
	hub.Register(client)
	if hub.HasSubscribers(ChannelFrame) {
		t.Error("HasSubscribers(frame) = true, want false")
	}

	client.handleMessage([]byte(`{"type":"subscribe","id":"1","payload":{"channels":["viewer.frame"]}}`))
	receive(t, client)
	if !hub.HasSubscribers(ChannelFrame) {
		t.Error("HasSubscribers(frame) = false after subscribe")
	}

	client.handleMessage([]byte(`{"type":"unsubscribe","id":"2","payload":{"channels":["viewer.frame"]}}`))
	receive(t, client)
	if hub.HasSubscribers(ChannelFrame) {
		t.Error("HasSubscribers(frame) = true after unsubscribe")
	}
}

func TestClient_HandleMessage(t *testing.T) {
	hub := testHub()
	hub.SetCommandHandler(func(msg WSMessage) (any, error) {
		if msg.Type == "fail" {
			return nil, errors.New("boom")
		}
		return map[string]string{"ran": msg.Type}, nil
	})
	client := testClient(hub)

	tests := []struct {
		name     string
		message  string
		wantType string
		wantID   string
	}{
		{"ping", `{"type":"ping","id":"p"}`, WSTypePong, "p"},
		{"invalid json", `{nope`, WSTypeError, ""},
		{"command", `{"type":"select","id":"c"}`, WSTypeResponse, "c"},
		{"command error", `{"type":"fail","id":"f"}`, WSTypeError, "f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client.handleMessage([]byte(tt.message))
			msg := receive(t, client)
			if msg.Type != tt.wantType {
				t.Errorf("type = %q, want %q", msg.Type, tt.wantType)
			}
			if msg.ID != tt.wantID {
				t.Errorf("id = %q, want %q", msg.ID, tt.wantID)
			}
		})
	}
}

func TestClient_NoCommandHandler(t *testing.T) {
	client := testClient(testHub())
	client.handleMessage([]byte(`{"type":"select","id":"x"}`))

	msg := receive(t, client)
	if msg.Type != WSTypeError {
		t.Fatalf("type = %q, want %q", msg.Type, WSTypeError)
	}
	payload, _ := msg.Payload.(map[string]any)
	if payload["message"] != "unknown message type: select" {
		t.Errorf("message = %v", payload["message"])
	}
}

// ─── End-to-end over a real connection ─────────────────────────────

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()                  //nolint:errcheck // Upgrade response has no body
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, request string) WSMessage {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(request)); err != nil {
		t.Fatalf("write: %v", err)
	}
	return readWS(t, conn)
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()

	//nolint:errcheck // Read below reports a deadline failure
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return msg
}

func TestWebSocket_SubscribeAndCommands(t *testing.T) {
	srv, _, fv := testServer(t)
	conn := dialWS(t, srv)

	msg := roundTrip(t, conn, `{"type":"subscribe","id":"1","payload":{"channels":["viewer.frame"]}}`)
	if msg.Type != WSTypeResponse || msg.ID != "1" {
		t.Fatalf("subscribe reply = %+v", msg)
	}

	msg = roundTrip(t, conn, `{"type":"select","id":"2","payload":{"device_id":"b"}}`)
	if msg.Type != WSTypeResponse || msg.ID != "2" {
		t.Fatalf("select reply = %+v", msg)
	}
	if got := fv.selections(); len(got) != 1 || got[0] != "b" {
		t.Errorf("selected = %v, want [b]", got)
	}

	msg = roundTrip(t, conn, `{"type":"resize","id":"3","payload":{"width":0,"height":10}}`)
	if msg.Type != WSTypeError || msg.ID != "3" {
		t.Errorf("invalid resize reply = %+v, want error", msg)
	}

	msg = roundTrip(t, conn, `{"type":"select","id":"4","payload":{}}`)
	if msg.Type != WSTypeError {
		t.Errorf("empty select reply = %+v, want error", msg)
	}

	surface := NewHubSurface(srv.hub)
	if err := surface.Draw(testFrame(7)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	msg = readWS(t, conn)
	if msg.EventType != ChannelFrame {
		t.Fatalf("event_type = %q, want %q", msg.EventType, ChannelFrame)
	}
	payload, ok := msg.Payload.(map[string]any)
	if !ok || payload["seq"] != float64(7) {
		t.Errorf("frame payload = %v", msg.Payload)
	}
}

func TestWebSocket_NoViewer(t *testing.T) {
	srv := newServer(t, Deps{Store: testStore(t)})
	conn := dialWS(t, srv)

	msg := roundTrip(t, conn, `{"type":"select","id":"1","payload":{"device_id":"b"}}`)
	if msg.Type != WSTypeError {
		t.Errorf("reply type = %q, want %q", msg.Type, WSTypeError)
	}
}
