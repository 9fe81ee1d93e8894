package domain

import "errors"

var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrRoomFull              = errors.New("room full")
	ErrRoomCreationExhausted = errors.New("room code space exhausted")
	ErrNotInRoom             = errors.New("not in room")
)

// RoomCode is the short uppercase identifier players share to meet.
type RoomCode string

// Side is one of the two occupant slots of a room.
type Side int

const (
	Side1 Side = 1
	Side2 Side = 2
)

func (s Side) Other() Side {
	if s == Side1 {
		return Side2
	}
	return Side1
}

func (s Side) String() string {
	if s == Side1 {
		return "player1"
	}
	return "player2"
}

// Room pairs up to two participants for one match. Player2 starts empty,
// pending choices are cleared after every resolved round. The struct itself
// carries no locking; callers serialize access per room.
type Room struct {
	Code    RoomCode
	Player1 string
	Player2 string

	choice1 Choice
	choice2 Choice
}

func NewRoom(code RoomCode, creator string) *Room {
	return &Room{Code: code, Player1: creator}
}

// SetPlayer2 fills the free slot. Fails on an already-full room so a late
// joiner can never displace the current opponent.
func (r *Room) SetPlayer2(name string) error {
	if r.Player2 != "" {
		return ErrRoomFull
	}
	r.Player2 = name
	return nil
}

// Occupied reports whether the given side has a player.
func (r *Room) Occupied(s Side) bool {
	if s == Side1 {
		return r.Player1 != ""
	}
	return r.Player2 != ""
}

// Player returns the display name occupying the given side.
func (r *Room) Player(s Side) string {
	if s == Side1 {
		return r.Player1
	}
	return r.Player2
}

// SetChoice records the pending choice for a side. A second call for the
// same side before the round resolves overwrites the previous value.
func (r *Room) SetChoice(s Side, c Choice) error {
	if !r.Occupied(s) {
		return ErrNotInRoom
	}
	if s == Side1 {
		r.choice1 = c
	} else {
		r.choice2 = c
	}
	return nil
}

// BothChosen reports whether a round is ready to resolve.
func (r *Room) BothChosen() bool {
	return r.choice1 != "" && r.choice2 != ""
}

// TakeChoices returns both pending choices and clears the slots, so the next
// round can begin on the same room.
func (r *Room) TakeChoices() (Choice, Choice) {
	c1, c2 := r.choice1, r.choice2
	r.choice1, r.choice2 = "", ""
	return c1, c2
}
