/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

// Messages coming from clients
type ClientMessage struct {
	Type     string           `json:"type"`               // "room:create", "room:join", "room:leave", "player:ready", "settings:update", "game:start", "game:submitWord", "game:typing", "chat:send", "room:backToLobby"
	Name     string           `json:"name,omitempty"`     // room:create / room:join
	Token    string           `json:"token,omitempty"`    // room:create / room:join
	RoomCode string           `json:"roomCode,omitempty"` // room:join
	Ready    *bool            `json:"ready,omitempty"`    // player:ready
	Settings *SettingsMessage `json:"settings,omitempty"` // settings:update
	Word     string           `json:"word,omitempty"`     // game:submitWord
	Text     string           `json:"text,omitempty"`     // game:typing
	Message  string           `json:"message,omitempty"`  // chat:send
}

// SettingsMessage carries a requested settings update; zero/missing fields
// fall back to defaults and everything is clamped server-side.
type SettingsMessage struct {
	LivesInitial int    `json:"livesInitial,omitempty"`
	TimeMin      int    `json:"timeMin,omitempty"`
	TimeMax      int    `json:"timeMax,omitempty"`
	MinWordLen   int    `json:"minWordLen,omitempty"`
	FragLen      string `json:"fragLen,omitempty"`
	NoRepeat     *bool  `json:"noRepeat,omitempty"`
}

// Sent to a single client when a request cannot be honored.
type ErrorMessage struct {
	Type    string `json:"type"` // "room:error"
	Message string `json:"message"`
}

// PlayerEntry is one occupant as rendered in a room snapshot.
type PlayerEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LivesLeft   int    `json:"livesLeft"`
	Ready       bool   `json:"ready"`
	Connected   bool   `json:"connected"`
	Eliminated  bool   `json:"eliminated"`
	IsSpectator bool   `json:"isSpectator"`
	Token       string `json:"token"`
}

// TurnEntry is the active turn as rendered in a room snapshot.
type TurnEntry struct {
	PlayerID   string `json:"playerId"`
	Fragment   string `json:"fragment"`
	DurationMs int64  `json:"durationMs"`
	StartedAt  int64  `json:"startedAt"`
}

// AcceptedWord is one entry in the per-game accepted-words log.
type AcceptedWord struct {
	PlayerName string `json:"playerName"`
	Word       string `json:"word"`
}

// SnapshotMessage is the full room state, broadcast after every change a
// client needs to render.
type SnapshotMessage struct {
	Type          string         `json:"type"` // "room:snapshot"
	Code          string         `json:"code"`
	HostID        string         `json:"hostId"`
	State         RoomState      `json:"state"`
	Settings      Settings       `json:"settings"`
	Players       []PlayerEntry  `json:"players"`
	Spectators    []PlayerEntry  `json:"spectators"`
	CurrentTurn   *TurnEntry     `json:"currentTurn"`
	AcceptedWords []AcceptedWord `json:"acceptedWords"`
}

type ChatMessage struct {
	Type       string `json:"type"` // "chat:message"
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Ts         int64  `json:"ts"`
}

type TurnStartedMessage struct {
	Type       string `json:"type"` // "game:turnStarted"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Fragment   string `json:"fragment"`
	DurationMs int64  `json:"durationMs"`
	ServerNow  int64  `json:"serverNow"`
	StartedAt  int64  `json:"startedAt"`
}

type WordRejectedMessage struct {
	Type   string `json:"type"` // "game:wordRejected"
	Reason string `json:"reason"`
}

type WordAcceptedMessage struct {
	Type       string `json:"type"` // "game:wordAccepted"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Word       string `json:"word"`
}

type TypingMessage struct {
	Type       string `json:"type"` // "player:typing"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Text       string `json:"text"`
}

type ExplodedMessage struct {
	Type       string `json:"type"` // "game:playerExploded"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	LivesLeft  int    `json:"livesLeft"`
}

type EliminatedMessage struct {
	Type       string `json:"type"` // "game:playerEliminated"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type GameOverMessage struct {
	Type       string `json:"type"` // "game:gameOver"
	WinnerID   string `json:"winnerId"`
	WinnerName string `json:"winnerName"`
}
