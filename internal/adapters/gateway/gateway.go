// Package gateway is the real-time transport layer: it receives
// create/join/choice/leave events from connected clients, drives the room
// registry and resolver, and broadcasts results to every room participant.
package gateway

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"roshambo/internal/core"
	"roshambo/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// ScoreKeeper is the slice of the user store the gateway needs: crediting a
// round winner.
type ScoreKeeper interface {
	IncrementWins(username string) error
}

// Controller owns the websocket side of a match: which connections are
// subscribed to which room, and the fanout of broadcast frames.
type Controller struct {
	Registry  *core.Registry
	Scores    ScoreKeeper
	ReadLimit int64

	mu   sync.RWMutex
	subs map[domain.RoomCode]map[*Conn]struct{}
}

func NewController(registry *core.Registry, scores ScoreKeeper, readLimit int64) *Controller {
	return &Controller{
		Registry:  registry,
		Scores:    scores,
		ReadLimit: readLimit,
		subs:      make(map[domain.RoomCode]map[*Conn]struct{}),
	}
}

// Conn wraps one websocket with a buffered send channel. room and side are
// mutated both by the conn's own read loop and by room teardown, so they sit
// behind the lock with the closed flag.
type Conn struct {
	conn *websocket.Conn
	send chan []byte

	username string

	mu     sync.RWMutex
	closed bool
	room   domain.RoomCode
	side   domain.Side
}

func (c *Conn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *Conn) position() (domain.RoomCode, domain.Side) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room, c.side
}

func (c *Conn) setPosition(room domain.RoomCode, side domain.Side) {
	c.mu.Lock()
	c.room, c.side = room, side
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades an authenticated request into a game connection. The
// router's session middleware has already placed the username in the context.
func (ctl *Controller) HandleWS(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	log.Info().Str("module", "gateway").Str("username", username).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("ws upgrade")
		return
	}

	conn := &Conn{
		conn:     ws,
		send:     make(chan []byte, 32),
		username: username,
	}

	go ctl.writePump(conn)
	ctl.readPump(conn)
}

func (ctl *Controller) subscribe(code domain.RoomCode, c *Conn) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	set, ok := ctl.subs[code]
	if !ok {
		set = make(map[*Conn]struct{})
		ctl.subs[code] = set
	}
	set[c] = struct{}{}
}

func (ctl *Controller) unsubscribe(code domain.RoomCode, c *Conn) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if set, ok := ctl.subs[code]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(ctl.subs, code)
		}
	}
}

// broadcast sends a frame to every connection subscribed to the room.
func (ctl *Controller) broadcast(code domain.RoomCode, v any) {
	ctl.mu.RLock()
	conns := make([]*Conn, 0, len(ctl.subs[code]))
	for c := range ctl.subs[code] {
		conns = append(conns, c)
	}
	ctl.mu.RUnlock()

	for _, c := range conns {
		ctl.sendJSON(c, v)
	}
}

// dropRoom removes the room's subscription table and detaches every member
// from it. The sockets stay open; the players are just no longer in a room.
func (ctl *Controller) dropRoom(code domain.RoomCode) {
	ctl.mu.Lock()
	set := ctl.subs[code]
	delete(ctl.subs, code)
	ctl.mu.Unlock()

	for c := range set {
		c.setPosition("", 0)
	}
}
