package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"roshambo/internal/domain"
)

func (ctl *Controller) handleCreate(c *Conn) {
	if room, _ := c.position(); room != "" {
		ctl.sendError(c, "already_in_room", "leave the current room first")
		return
	}

	code, err := ctl.Registry.CreateRoom(c.username)
	if err != nil {
		ctl.sendFailure(c, err)
		return
	}

	ctl.subscribe(code, c)
	c.setPosition(code, domain.Side1)

	resp := struct {
		Type    string          `json:"type"`
		Room    domain.RoomCode `json:"room"`
		Player1 string          `json:"player1"`
	}{
		Type:    "room_created",
		Room:    code,
		Player1: c.username,
	}
	ctl.sendJSON(c, resp)
}

func (ctl *Controller) handleJoin(c *Conn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad join payload")
		ctl.sendError(c, "bad_payload", "malformed join")
		return
	}

	if room, _ := c.position(); room != "" {
		ctl.sendError(c, "already_in_room", "leave the current room first")
		return
	}

	code := domain.RoomCode(p.Room)
	player1, player2, err := ctl.Registry.JoinRoom(code, c.username)
	if err != nil {
		// rejected join leaves the requester in no room and the room untouched
		ctl.sendFailure(c, err)
		return
	}

	ctl.subscribe(code, c)
	c.setPosition(code, domain.Side2)

	resp := struct {
		Type    string          `json:"type"`
		Room    domain.RoomCode `json:"room"`
		Player1 string          `json:"player1"`
		Player2 string          `json:"player2"`
	}{
		Type:    "opponent_joined",
		Room:    code,
		Player1: player1,
		Player2: player2,
	}
	ctl.broadcast(code, resp)
}

func (ctl *Controller) handleChoice(c *Conn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Choice string `json:"choice"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("bad choice payload")
		ctl.sendError(c, "bad_payload", "malformed choice")
		return
	}

	code, side := c.position()
	if code == "" {
		ctl.sendFailure(c, domain.ErrNotInRoom)
		return
	}

	res, err := ctl.Registry.RecordChoice(code, side, p.Choice)
	if err != nil {
		ctl.sendFailure(c, err)
		return
	}

	if !res.Resolved {
		ctl.broadcast(code, struct {
			Type string `json:"type"`
			Side string `json:"side"`
		}{
			Type: "waiting",
			Side: res.Waiting.String(),
		})
		return
	}

	if res.Winner != "" {
		if err := ctl.Scores.IncrementWins(res.Winner); err != nil {
			log.Error().Err(err).Str("module", "gateway").Str("winner", res.Winner).Msg("record win")
		}
	}

	ctl.broadcast(code, struct {
		Type    string            `json:"type"`
		Outcome domain.Outcome    `json:"outcome"`
		Winner  string            `json:"winner,omitempty"`
		Choices map[string]string `json:"choices"`
	}{
		Type:    "result",
		Outcome: res.Outcome,
		Winner:  res.Winner,
		Choices: map[string]string{
			"player1": string(res.Choice1),
			"player2": string(res.Choice2),
		},
	})
}

// handleLeave tears the room down for everyone: any departure ends the
// match, and the remaining occupant is told who left.
func (ctl *Controller) handleLeave(c *Conn) {
	code, _ := c.position()
	if code == "" {
		ctl.sendFailure(c, domain.ErrNotInRoom)
		return
	}
	ctl.leaveRoom(c, code)
}

func (ctl *Controller) leaveRoom(c *Conn, code domain.RoomCode) {
	ctl.Registry.LeaveRoom(code)

	ctl.broadcast(code, struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{
		Type: "opponent_left",
		Name: c.username,
	})

	ctl.dropRoom(code)
	log.Info().Str("module", "gateway").Str("room", string(code)).Str("username", c.username).Msg("left room")
}

// disconnect is the socket-level teardown; a dropped connection counts as a
// leave for whatever room the player was in.
func (ctl *Controller) disconnect(c *Conn) {
	if code, _ := c.position(); code != "" {
		ctl.leaveRoom(c, code)
	}
	c.Close()
}
