package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"roshambo/internal/domain"
)

// createAttempts bounds the retry loop when a generated code collides with
// an active room. At four letters the space is 26^4, so hitting the bound
// means the registry is effectively full.
const createAttempts = 16

// RoundResult is what RecordChoice hands back: either "the other side still
// has to answer" or a fully resolved round.
type RoundResult struct {
	Resolved bool

	// set when not resolved: the side whose choice was just recorded
	Waiting domain.Side

	// set when resolved
	Outcome domain.Outcome
	Choice1 domain.Choice
	Choice2 domain.Choice
	Winner  string // display name, empty on a tie
}

// roomState guards one room with its own lock, so operations on different
// rooms proceed fully in parallel while same-room operations serialize.
type roomState struct {
	mu   sync.Mutex
	room *domain.Room
}

// Registry is the single source of truth for active matches.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomCode]*roomState
	codeLen int
}

func NewRegistry(codeLen int) *Registry {
	return &Registry{
		rooms:   make(map[domain.RoomCode]*roomState),
		codeLen: codeLen,
	}
}

// CreateRoom allocates a fresh unique code and registers a room with the
// creator on side one. Collisions are retried a bounded number of times.
func (r *Registry) CreateRoom(creator string) (domain.RoomCode, error) {
	for i := 0; i < createAttempts; i++ {
		code := GenerateCode(r.codeLen)

		r.mu.Lock()
		if _, taken := r.rooms[code]; !taken {
			r.rooms[code] = &roomState{room: domain.NewRoom(code, creator)}
			r.mu.Unlock()
			log.Info().Str("module", "core.registry").Str("room", string(code)).Str("creator", creator).Msg("room created")
			return code, nil
		}
		r.mu.Unlock()
		log.Warn().Str("module", "core.registry").Str("room", string(code)).Msg("code collision, retrying")
	}
	return "", domain.ErrRoomCreationExhausted
}

// JoinRoom fills the free slot and returns both display names.
func (r *Registry) JoinRoom(code domain.RoomCode, joiner string) (player1, player2 string, err error) {
	rs, ok := r.get(code)
	if !ok {
		return "", "", domain.ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err := rs.room.SetPlayer2(joiner); err != nil {
		return "", "", err
	}
	log.Info().Str("module", "core.registry").Str("room", string(code)).Str("joiner", joiner).Msg("room joined")
	return rs.room.Player1, rs.room.Player2, nil
}

// LeaveRoom removes the room entirely; any departure ends the match.
// Idempotent: leaving an absent room is a no-op.
func (r *Registry) LeaveRoom(code domain.RoomCode) {
	r.mu.Lock()
	_, ok := r.rooms[code]
	delete(r.rooms, code)
	r.mu.Unlock()
	if ok {
		log.Info().Str("module", "core.registry").Str("room", string(code)).Msg("room closed")
	}
}

// RecordChoice stores the pending choice for a side. When the opposite side
// already answered, it reads both choices, clears them and resolves the
// round, all inside the room's critical section; two concurrent choices can
// never double-resolve or lose a value.
func (r *Registry) RecordChoice(code domain.RoomCode, side domain.Side, raw string) (RoundResult, error) {
	choice, err := domain.ParseChoice(raw)
	if err != nil {
		return RoundResult{}, err
	}

	rs, ok := r.get(code)
	if !ok {
		return RoundResult{}, domain.ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := rs.room.SetChoice(side, choice); err != nil {
		return RoundResult{}, err
	}

	if !rs.room.BothChosen() {
		return RoundResult{Waiting: side}, nil
	}

	c1, c2 := rs.room.TakeChoices()
	outcome := domain.Resolve(c1, c2)

	res := RoundResult{
		Resolved: true,
		Outcome:  outcome,
		Choice1:  c1,
		Choice2:  c2,
	}
	switch outcome {
	case domain.Side1Win:
		res.Winner = rs.room.Player1
	case domain.Side2Win:
		res.Winner = rs.room.Player2
	}
	log.Info().Str("module", "core.registry").Str("room", string(code)).Str("outcome", string(outcome)).Msg("round resolved")
	return res, nil
}

// Snapshot returns a copy of the room's occupants for read-only callers.
func (r *Registry) Snapshot(code domain.RoomCode) (domain.Room, bool) {
	rs, ok := r.get(code)
	if !ok {
		return domain.Room{}, false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return *rs.room, true
}

// Len reports the number of active rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) get(code domain.RoomCode) (*roomState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rooms[code]
	return rs, ok
}
