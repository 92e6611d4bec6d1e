package live

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T) (*Hub, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	hub := NewHub(redisClient, testLogger())
	t.Cleanup(func() { hub.Close() })
	return hub, mr
}

// dialTestConn opens a real websocket pair and wraps the server side in a
// Conn so Send/writePump behave as in production.
func dialTestConn(t *testing.T, formID string) (*Conn, *websocket.Conn) {
	connCh := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connCh <- ws
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + server.URL[4:]
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	serverWS := <-connCh
	conn := NewConn(serverWS, formID, testLogger())
	go conn.writePump()
	t.Cleanup(func() { conn.Close() })
	return conn, client
}

// waitForSubscription gives a freshly started room subscriber time to
// register with redis before the first publish.
func waitForSubscription() {
	time.Sleep(100 * time.Millisecond)
}

func readFrame(t *testing.T, ws *websocket.Conn) Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return msg
}

func TestHub_BroadcastReachesRoomMembers(t *testing.T) {
	hub, _ := newTestHub(t)

	conn, client := dialTestConn(t, "form_1")
	hub.Join(conn, "form_1")
	waitForSubscription()

	hub.Broadcast("form_1", "analytics:update", map[string]int{"totalResponses": 3})

	msg := readFrame(t, client)
	if msg.Type != "analytics:update" {
		t.Errorf("expected analytics:update, got %s", msg.Type)
	}
	if msg.FormID != "form_1" {
		t.Errorf("expected form_1, got %s", msg.FormID)
	}
	var data map[string]int
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data["totalResponses"] != 3 {
		t.Errorf("payload did not round-trip: %v", data)
	}
}

func TestHub_RoomIsolation(t *testing.T) {
	hub, _ := newTestHub(t)

	connA, clientA := dialTestConn(t, "form_a")
	connB, clientB := dialTestConn(t, "form_b")
	hub.Join(connA, "form_a")
	hub.Join(connB, "form_b")
	waitForSubscription()

	hub.Broadcast("form_a", "analytics:update", map[string]int{"n": 1})

	msg := readFrame(t, clientA)
	if msg.FormID != "form_a" {
		t.Errorf("expected form_a frame, got %s", msg.FormID)
	}

	clientB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := clientB.ReadMessage(); err == nil {
		t.Error("form_b viewer must not receive form_a broadcasts")
	}
}

func TestHub_BroadcastToEmptyRoom(t *testing.T) {
	hub, _ := newTestHub(t)

	// No subscribers anywhere; must not panic or error.
	hub.Broadcast("form_none", "analytics:update", map[string]int{"n": 1})
}

func TestHub_LocalFallbackWithoutRedis(t *testing.T) {
	hub := NewHub(nil, testLogger())
	defer hub.Close()

	conn, client := dialTestConn(t, "form_1")
	hub.Join(conn, "form_1")

	hub.Broadcast("form_1", "analytics:update", map[string]int{"n": 7})

	msg := readFrame(t, client)
	if msg.FormID != "form_1" {
		t.Errorf("local delivery failed, got %+v", msg)
	}
}

func TestHub_LeaveIdempotent(t *testing.T) {
	hub, _ := newTestHub(t)

	conn, _ := dialTestConn(t, "form_1")
	hub.Join(conn, "form_1")

	hub.Leave(conn)
	hub.Leave(conn)

	stats := hub.Stats()
	if stats.TotalConnections != 0 {
		t.Errorf("expected 0 connections, got %d", stats.TotalConnections)
	}
	if len(stats.Rooms) != 0 {
		t.Errorf("emptied room should be torn down, got %v", stats.Rooms)
	}
}

func TestHub_RejoinAfterRoomTeardown(t *testing.T) {
	hub, _ := newTestHub(t)

	conn, client := dialTestConn(t, "form_1")
	hub.Join(conn, "form_1")
	hub.Leave(conn)

	hub.Join(conn, "form_1")
	waitForSubscription()
	hub.Broadcast("form_1", "analytics:update", map[string]int{"n": 2})

	msg := readFrame(t, client)
	if msg.FormID != "form_1" {
		t.Errorf("rejoined connection should receive broadcasts, got %+v", msg)
	}
}

func TestHub_RoomSurvivesRedisRestart(t *testing.T) {
	hub, mr := newTestHub(t)

	conn, client := dialTestConn(t, "form_1")
	hub.Join(conn, "form_1")
	waitForSubscription()

	if err := mr.Restart(); err != nil {
		t.Fatalf("restart miniredis: %v", err)
	}

	// Publishes succeed again immediately after the restart, so delivery
	// must come through the resubscribed channel, not the local fallback.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				hub.Broadcast("form_1", "analytics:update", map[string]int{"n": 1})
				time.Sleep(200 * time.Millisecond)
			}
		}
	}()

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("room never recovered after redis restart: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if msg.FormID != "form_1" {
		t.Errorf("unexpected frame %+v", msg)
	}
}

func TestHub_Stats(t *testing.T) {
	hub, _ := newTestHub(t)

	connA1, _ := dialTestConn(t, "form_a")
	connA2, _ := dialTestConn(t, "form_a")
	connB, _ := dialTestConn(t, "form_b")
	hub.Join(connA1, "form_a")
	hub.Join(connA2, "form_a")
	hub.Join(connB, "form_b")

	stats := hub.Stats()
	if stats.TotalConnections != 3 {
		t.Errorf("expected 3 connections, got %d", stats.TotalConnections)
	}
	if stats.Rooms["form_a"] != 2 || stats.Rooms["form_b"] != 1 {
		t.Errorf("unexpected per-room counts %v", stats.Rooms)
	}
}

func TestHub_SlowConnectionDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(nil, testLogger())
	defer hub.Close()

	// The slow conn has no running write pump, so its buffer fills and
	// further frames drop without delaying the healthy member.
	slowCh := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		slowCh <- ws
	}))
	defer server.Close()

	wsURL := "ws" + server.URL[4:]
	slowClient, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer slowClient.Close()
	slow := NewConn(<-slowCh, "form_1", testLogger())
	defer slow.Close()

	healthy, healthyClient := dialTestConn(t, "form_1")
	hub.Join(slow, "form_1")
	hub.Join(healthy, "form_1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer+16; i++ {
			hub.Broadcast("form_1", "analytics:update", map[string]int{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast stalled on a slow connection")
	}

	// The healthy member still receives frames.
	readFrame(t, healthyClient)
}
