package gateway

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"roshambo/internal/domain"
)

func (ctl *Controller) writePump(c *Conn) {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			log.Error().Err(err).Str("module", "gateway").Msg("writePump set deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "gateway").Msg("writePump write error")
			return
		}
	}
}

func (ctl *Controller) readPump(c *Conn) {
	defer func() {
		log.Info().Str("module", "gateway").Str("username", c.username).Msg("readPump closing")
		ctl.disconnect(c)
	}()

	if ctl.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.ReadLimit)
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		ctl.handleEvent(c, data)
	}
}

func (ctl *Controller) handleEvent(c *Conn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad json")
		ctl.sendError(c, "bad_payload", "malformed event")
		return
	}

	switch env.Type {
	case "create":
		ctl.handleCreate(c)
	case "join":
		ctl.handleJoin(c, data)
	case "choice":
		ctl.handleChoice(c, data)
	case "leave":
		ctl.handleLeave(c)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "gateway").Str("type", env.Type).Msg("unknown event")
		ctl.sendError(c, "unknown_event", "unknown event type")
	}
}

func (ctl *Controller) handlePing(c *Conn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
}

func (ctl *Controller) sendJSON(c *Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *Conn, code, message string) {
	ctl.sendJSON(c, struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Type:    "error",
		Code:    code,
		Message: message,
	})
}

// sendFailure maps a registry error onto a rejected-operation frame. Every
// error here is recoverable; the connection stays up.
func (ctl *Controller) sendFailure(c *Conn, err error) {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		code = "room_not_found"
	case errors.Is(err, domain.ErrRoomFull):
		code = "room_full"
	case errors.Is(err, domain.ErrRoomCreationExhausted):
		code = "room_creation_exhausted"
	case errors.Is(err, domain.ErrInvalidChoice):
		code = "invalid_choice"
	case errors.Is(err, domain.ErrNotInRoom):
		code = "not_in_room"
	}
	ctl.sendError(c, code, err.Error())
}
