// Package store persists user accounts and win counters. It is the external
// collaborator the match core talks to: the gateway only ever calls FindUser
// and IncrementWins.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"roshambo/internal/domain"
)

const minPasswordLen = 6

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrEmailTaken         = errors.New("email taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password too short")
)

// Users is a JSON-file-backed user store. All records live in memory behind
// one RWMutex; mutations are persisted with a snapshot write so the lock is
// never held during disk IO.
type Users struct {
	mu      sync.RWMutex
	byID    map[domain.UserID]*domain.User
	byName  map[string]*domain.User
	byEmail map[string]*domain.User
	path    string
}

// diskUser mirrors domain.User for persistence; the API-facing struct hides
// the password hash from JSON, the disk record must not.
type diskUser struct {
	ID           domain.UserID `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash []byte        `json:"password_hash"`
	Wins         int           `json:"wins"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Open opens or creates the user store under dir and loads existing records.
func Open(dir string) (*Users, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &Users{
		byID:    make(map[domain.UserID]*domain.User),
		byName:  make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
		path:    filepath.Join(dir, "users.json"),
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var records []diskUser
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, err
	}
	for _, rec := range records {
		u := &domain.User{
			ID:           rec.ID,
			Username:     rec.Username,
			Email:        rec.Email,
			PasswordHash: rec.PasswordHash,
			Wins:         rec.Wins,
			CreatedAt:    rec.CreatedAt,
		}
		s.index(u)
	}
	log.Info().Str("module", "store").Int("users", len(records)).Str("path", s.path).Msg("user store loaded")
	return s, nil
}

func (s *Users) index(u *domain.User) {
	s.byID[u.ID] = u
	s.byName[strings.ToLower(u.Username)] = u
	s.byEmail[strings.ToLower(u.Email)] = u
}

func (s *Users) snapshot() []diskUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]diskUser, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, diskUser{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			Wins:         u.Wins,
			CreatedAt:    u.CreatedAt,
		})
	}
	return out
}

func (s *Users) save() error {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Create registers a new account. Username and email must be unused.
func (s *Users) Create(username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := domain.NewUser(username, email, hash)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, taken := s.byName[strings.ToLower(username)]; taken {
		s.mu.Unlock()
		return nil, ErrUsernameTaken
	}
	if _, taken := s.byEmail[strings.ToLower(email)]; taken {
		s.mu.Unlock()
		return nil, ErrEmailTaken
	}
	s.index(u)
	s.mu.Unlock()

	if err := s.save(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "store").Str("username", username).Msg("user created")
	cp := *u
	return &cp, nil
}

// Authenticate verifies email and password with bcrypt.
func (s *Users) Authenticate(email, password string) (*domain.User, error) {
	s.mu.RLock()
	u := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	s.mu.RUnlock()
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	cp := *u
	return &cp, nil
}

// FindUser returns a copy of the record for the given username.
func (s *Users) FindUser(username string) (*domain.User, bool) {
	s.mu.RLock()
	u := s.byName[strings.ToLower(strings.TrimSpace(username))]
	s.mu.RUnlock()
	if u == nil {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// IncrementWins bumps the win counter for the given username. The
// read-modify-write happens under the store's write lock, so concurrent wins
// for the same user cannot lose an update.
func (s *Users) IncrementWins(username string) error {
	s.mu.Lock()
	u := s.byName[strings.ToLower(username)]
	if u == nil {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	u.Wins++
	s.mu.Unlock()

	log.Info().Str("module", "store").Str("username", username).Msg("win recorded")
	return s.save()
}

// Rename changes the account's username, keeping it unique.
func (s *Users) Rename(username, newUsername string) error {
	newUsername = strings.TrimSpace(newUsername)
	if err := domain.ValidateUsername(newUsername); err != nil {
		return err
	}

	lcOld := strings.ToLower(username)
	lcNew := strings.ToLower(newUsername)

	s.mu.Lock()
	u := s.byName[lcOld]
	if u == nil {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	if other, taken := s.byName[lcNew]; taken && other != u {
		s.mu.Unlock()
		return ErrUsernameTaken
	}
	delete(s.byName, lcOld)
	u.Username = newUsername
	s.byName[lcNew] = u
	s.mu.Unlock()

	log.Info().Str("module", "store").Str("old", username).Str("new", newUsername).Msg("user renamed")
	return s.save()
}

// Leaderboard returns all users sorted by wins descending, username
// ascending as the tiebreak.
func (s *Users) Leaderboard() []*domain.User {
	s.mu.RLock()
	users := make([]*domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		cp := *u
		users = append(users, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].Wins == users[j].Wins {
			return users[i].Username < users[j].Username
		}
		return users[i].Wins > users[j].Wins
	})
	return users
}

// Rank returns the user's 1-based position on the leaderboard.
func (s *Users) Rank(username string) (int, error) {
	lc := strings.ToLower(strings.TrimSpace(username))
	for i, u := range s.Leaderboard() {
		if strings.ToLower(u.Username) == lc {
			return i + 1, nil
		}
	}
	return 0, ErrUserNotFound
}
