/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Ambiguous glyphs (I, O) are left out of room codes.
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	roomCodeLength   = 4

	maxOccupants      = 16
	recentFragmentCap = 20

	submitGrace = 500 * time.Millisecond
	turnPacing  = 300 * time.Millisecond
)

type RoomState string

const (
	StateLobby    RoomState = "LOBBY"
	StateInGame   RoomState = "IN_GAME"
	StateGameOver RoomState = "GAME_OVER"
)

// Player is one occupant of a room. ID is the ephemeral connection id,
// rebound on reconnect; Token is the stable identity that survives it.
type Player struct {
	ID          string
	Token       string
	Name        string
	LivesLeft   int
	Ready       bool
	Connected   bool
	Eliminated  bool
	IsSpectator bool
}

type Settings struct {
	LivesInitial int    `json:"livesInitial"`
	TimeMin      int    `json:"timeMin"`
	TimeMax      int    `json:"timeMax"`
	MinWordLen   int    `json:"minWordLen"`
	FragLen      string `json:"fragLen"`
	NoRepeat     bool   `json:"noRepeat"`
}

func defaultSettings() Settings {
	return Settings{
		LivesInitial: 3,
		TimeMin:      5,
		TimeMax:      15,
		MinWordLen:   2,
		FragLen:      "random",
		NoRepeat:     true,
	}
}

// apply clamps a requested update into the server-enforced bounds. Zero
// fields fall back to defaults rather than the previous values.
func (s *Settings) apply(msg *SettingsMessage) {
	s.LivesInitial = clampOr(msg.LivesInitial, 3, 1, 10)
	s.TimeMin = clampOr(msg.TimeMin, 5, 3, 30)
	s.TimeMax = clampOr(msg.TimeMax, 15, 5, 60)
	if s.TimeMax < s.TimeMin {
		s.TimeMax = s.TimeMin + 2
	}
	s.MinWordLen = clampOr(msg.MinWordLen, 2, 2, 10)

	switch msg.FragLen {
	case "2", "3", "4", "random":
		s.FragLen = msg.FragLen
	default:
		s.FragLen = "random"
	}

	s.NoRepeat = msg.NoRepeat == nil || *msg.NoRepeat
}

func clampOr(val, def, min, max int) int {
	if val == 0 {
		val = def
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Turn is the active submission window for one player.
type Turn struct {
	PlayerID   string
	PlayerName string
	Fragment   string
	Duration   time.Duration
	StartedAt  time.Time
}

// Room is one game session. All fields are owned by the room's executor
// goroutine; nothing outside it may touch them.
type Room struct {
	Code            string
	State           RoomState
	Settings        Settings
	HostID          string
	Players         []*Player
	Spectators      []*Player
	CurrentTurn     *Turn
	UsedWords       map[string]struct{}
	RecentFragments []string
	AcceptedWords   []AcceptedWord

	// turnSeq increments whenever a turn starts or ends, so deferred
	// callbacks scheduled for a superseded turn are discarded on arrival.
	turnSeq     int
	turnTimer   gameTimer
	nextTimer   gameTimer
	graceTimers map[string]gameTimer
	idleTimers  map[string]gameTimer

	// closed flips once at teardown. It is the only room field read off
	// the executor goroutine, by connections about to post.
	closed atomic.Bool

	events chan event

	bus     roomBus
	clock   gameClock
	rng     *rand.Rand
	dict    *Dictionary
	frags   *FragmentGenerator
	cfg     *Config
	manager *RoomManager
}

func (r *Room) occupants() int {
	return len(r.Players) + len(r.Spectators)
}

func (r *Room) findByConn(connID string) *Player {
	for _, p := range r.Players {
		if p.ID == connID {
			return p
		}
	}
	for _, p := range r.Spectators {
		if p.ID == connID {
			return p
		}
	}
	return nil
}

// findByToken resolves stable identity across reconnects, players first.
func (r *Room) findByToken(token string) *Player {
	if token == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.Token == token {
			return p
		}
	}
	for _, p := range r.Spectators {
		if p.Token == token {
			return p
		}
	}
	return nil
}

func (r *Room) livingPlayers() []*Player {
	living := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if !p.Eliminated {
			living = append(living, p)
		}
	}
	return living
}

// RoomManager owns the registry of live rooms. Rooms are created here and
// pruned when their last occupant leaves; everything inside a room happens
// on that room's own executor.
type RoomManager struct {
	mu    sync.Mutex
	rooms map[string]*Room

	rng   *rand.Rand
	clock gameClock
	dict  *Dictionary
	frags *FragmentGenerator
	cfg   *Config
}

func NewRoomManager(cfg *Config, dict *Dictionary, frags *FragmentGenerator) *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*Room),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		clock: realClock{},
		dict:  dict,
		frags: frags,
		cfg:   cfg,
	}
}

// CreateRoom allocates a room under a fresh code and starts its executor.
// The creator still joins through the room's event channel like everyone
// else.
func (m *RoomManager) CreateRoom() *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	var code string
	for {
		buf := make([]byte, roomCodeLength)
		for i := range buf {
			buf[i] = roomCodeAlphabet[m.rng.Intn(len(roomCodeAlphabet))]
		}
		code = string(buf)
		if _, exists := m.rooms[code]; !exists {
			break
		}
	}

	room := newRoom(code, m, rand.New(rand.NewSource(m.rng.Int63())))
	m.rooms[code] = room
	go room.run()

	logf(m.cfg, "ROOMS: Created room %s", code)

	return room
}

func (m *RoomManager) Room(code string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rooms[code]
}

func (m *RoomManager) remove(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rooms, code)

	logf(m.cfg, "ROOMS: Deleted room %s", code)
}
