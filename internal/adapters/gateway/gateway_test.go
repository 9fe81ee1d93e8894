package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"roshambo/internal/core"
	"roshambo/internal/domain"
)

type fakeScores struct {
	mu   sync.Mutex
	wins map[string]int
}

func (f *fakeScores) IncrementWins(username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wins == nil {
		f.wins = make(map[string]int)
	}
	f.wins[username]++
	return nil
}

func (f *fakeScores) count(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wins[username]
}

type testServer struct {
	srv      *httptest.Server
	registry *core.Registry
	scores   *fakeScores
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := core.NewRegistry(4)
	scores := &fakeScores{}
	ctl := NewController(registry, scores, 4096)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		// stands in for the session middleware
		c.Set("username", c.Query("u"))
		ctl.HandleWS(c)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, registry: registry, scores: scores}
}

func (ts *testServer) dial(t *testing.T, username string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws?u=" + username
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", username, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("bad frame %q: %v", data, err)
	}
	return frame
}

func recvType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	frame := recv(t, conn)
	if frame["type"] != want {
		t.Fatalf("frame type = %v, want %s (frame: %v)", frame["type"], want, frame)
	}
	return frame
}

func TestFullMatch(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice")
	send(t, alice, map[string]string{"type": "create"})
	created := recvType(t, alice, "room_created")
	room, _ := created["room"].(string)
	if len(room) != 4 || created["player1"] != "alice" {
		t.Fatalf("room_created = %v", created)
	}

	bob := ts.dial(t, "bob")
	send(t, bob, map[string]string{"type": "join", "room": room})

	for _, conn := range []*websocket.Conn{alice, bob} {
		joined := recvType(t, conn, "opponent_joined")
		if joined["player1"] != "alice" || joined["player2"] != "bob" {
			t.Fatalf("opponent_joined = %v", joined)
		}
	}

	// alice answers first: both see a waiting notice, no outcome yet
	send(t, alice, map[string]string{"type": "choice", "choice": "rock"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		waiting := recvType(t, conn, "waiting")
		if waiting["side"] != "player1" {
			t.Fatalf("waiting = %v", waiting)
		}
	}
	if _, ok := ts.registry.Snapshot(domain.RoomCode(room)); !ok {
		t.Fatal("room should still be active while waiting")
	}

	send(t, bob, map[string]string{"type": "choice", "choice": "scissors"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		result := recvType(t, conn, "result")
		if result["outcome"] != "side1_win" || result["winner"] != "alice" {
			t.Fatalf("result = %v", result)
		}
		choices, _ := result["choices"].(map[string]any)
		if choices["player1"] != "rock" || choices["player2"] != "scissors" {
			t.Fatalf("choices = %v", choices)
		}
	}

	if got := ts.scores.count("alice"); got != 1 {
		t.Fatalf("alice wins = %d, want 1", got)
	}
	if got := ts.scores.count("bob"); got != 0 {
		t.Fatalf("bob wins = %d, want 0", got)
	}

	// next round starts immediately on the same room
	send(t, bob, map[string]string{"type": "choice", "choice": "paper"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		waiting := recvType(t, conn, "waiting")
		if waiting["side"] != "player2" {
			t.Fatalf("waiting = %v", waiting)
		}
	}
	send(t, alice, map[string]string{"type": "choice", "choice": "paper"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		result := recvType(t, conn, "result")
		if result["outcome"] != "tie" {
			t.Fatalf("result = %v", result)
		}
		if _, hasWinner := result["winner"]; hasWinner {
			t.Fatalf("tie carries no winner: %v", result)
		}
	}
	if got := ts.scores.count("alice"); got != 1 {
		t.Fatalf("tie must not credit a win, alice = %d", got)
	}

	// leaving tears the room down and notifies everyone
	send(t, bob, map[string]string{"type": "leave"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		left := recvType(t, conn, "opponent_left")
		if left["name"] != "bob" {
			t.Fatalf("opponent_left = %v", left)
		}
	}
	if _, ok := ts.registry.Snapshot(domain.RoomCode(room)); ok {
		t.Fatal("room should be gone after leave")
	}

	// alice is no longer in a room
	send(t, alice, map[string]string{"type": "choice", "choice": "rock"})
	errFrame := recvType(t, alice, "error")
	if errFrame["code"] != "not_in_room" {
		t.Fatalf("error = %v", errFrame)
	}
}

func TestJoinErrors(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice")
	send(t, alice, map[string]string{"type": "create"})
	created := recvType(t, alice, "room_created")
	room, _ := created["room"].(string)

	ghost := ts.dial(t, "ghost")
	send(t, ghost, map[string]string{"type": "join", "room": "ZZZZ"})
	if frame := recvType(t, ghost, "error"); frame["code"] != "room_not_found" {
		t.Fatalf("error = %v", frame)
	}

	bob := ts.dial(t, "bob")
	send(t, bob, map[string]string{"type": "join", "room": room})
	recvType(t, bob, "opponent_joined")
	recvType(t, alice, "opponent_joined")

	carol := ts.dial(t, "carol")
	send(t, carol, map[string]string{"type": "join", "room": room})
	if frame := recvType(t, carol, "error"); frame["code"] != "room_full" {
		t.Fatalf("error = %v", frame)
	}

	// the rejected join changed nothing for the occupants
	snap, ok := ts.registry.Snapshot(domain.RoomCode(room))
	if !ok || snap.Player1 != "alice" || snap.Player2 != "bob" {
		t.Fatalf("snapshot = %+v, %v", snap, ok)
	}
}

func TestInvalidChoice(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice")
	send(t, alice, map[string]string{"type": "create"})
	recvType(t, alice, "room_created")

	send(t, alice, map[string]string{"type": "choice", "choice": "lizard"})
	if frame := recvType(t, alice, "error"); frame["code"] != "invalid_choice" {
		t.Fatalf("error = %v", frame)
	}
}

func TestDisconnectClosesRoom(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.dial(t, "alice")
	send(t, alice, map[string]string{"type": "create"})
	created := recvType(t, alice, "room_created")
	room, _ := created["room"].(string)

	bob := ts.dial(t, "bob")
	send(t, bob, map[string]string{"type": "join", "room": room})
	recvType(t, bob, "opponent_joined")
	recvType(t, alice, "opponent_joined")

	bob.Close()

	left := recvType(t, alice, "opponent_left")
	if left["name"] != "bob" {
		t.Fatalf("opponent_left = %v", left)
	}
	if _, ok := ts.registry.Snapshot(domain.RoomCode(room)); ok {
		t.Fatal("room should be gone after disconnect")
	}
}

func TestPing(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.dial(t, "alice")
	send(t, alice, map[string]string{"type": "ping"})
	recvType(t, alice, "pong")
}
