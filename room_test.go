/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCreateRoomCodes(t *testing.T) {
	cfg := &Config{turnGrace: 2 * time.Second, idleTimeout: 30 * time.Second}
	dict := newDictionary(testWords)
	m := NewRoomManager(cfg, dict, buildFragments(dict))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		room := m.CreateRoom()

		if len(room.Code) != roomCodeLength {
			t.Fatalf("code %q has wrong length", room.Code)
		}
		for _, r := range room.Code {
			if !strings.ContainsRune(roomCodeAlphabet, r) {
				t.Fatalf("code %q contains %q, outside the alphabet", room.Code, r)
			}
		}
		if seen[room.Code] {
			t.Fatalf("duplicate code %q", room.Code)
		}
		seen[room.Code] = true

		if m.Room(room.Code) != room {
			t.Fatalf("lookup failed for %q", room.Code)
		}
	}
}

func TestRoomLookupMiss(t *testing.T) {
	cfg := &Config{turnGrace: 2 * time.Second, idleTimeout: 30 * time.Second}
	dict := newDictionary(testWords)
	m := NewRoomManager(cfg, dict, buildFragments(dict))

	if m.Room("QQQQ") != nil {
		t.Fatal("expected nil for unknown code")
	}
}

func TestJoinCapacity(t *testing.T) {
	h := newEngineHarness(t, 2)

	for i := 0; i < maxOccupants; i++ {
		h.join(fmt.Sprintf("conn-%d", i), fmt.Sprintf("t%d", i), fmt.Sprintf("P%d", i))
	}
	if h.room.occupants() != maxOccupants {
		t.Fatalf("expected %d occupants, got %d", maxOccupants, h.room.occupants())
	}

	extra := h.join("conn-x", "tx", "X")
	if h.room.occupants() != maxOccupants {
		t.Fatal("room accepted a 17th occupant")
	}

	var rejected bool
	for _, s := range h.bus.sent {
		if m, ok := s.msg.(ErrorMessage); ok && s.to == extra.id && m.Message == "ROOM_FULL" {
			rejected = true
		}
	}
	if !rejected {
		t.Fatal("expected a ROOM_FULL error for the 17th occupant")
	}
}

func TestReconnectReusesPlayer(t *testing.T) {
	h := newEngineHarness(t, 2)
	h.join("conn-a", "t1", "A")
	h.join("conn-b", "t2", "B")

	h.join("conn-a2", "t1", "Anna")

	if len(h.room.Players) != 2 {
		t.Fatalf("reconnect created a new player: %d players", len(h.room.Players))
	}

	p := h.room.findByToken("t1")
	if p.ID != "conn-a2" || p.Name != "Anna" || !p.Connected {
		t.Fatalf("reconnect did not rebind: %+v", p)
	}

	// The host keeps hosting across a reconnect.
	if h.room.HostID != "conn-a2" {
		t.Fatalf("host id should follow the reconnect, got %s", h.room.HostID)
	}
}

func TestFindByTokenSearchesSpectators(t *testing.T) {
	h := newEngineHarness(t, 2)
	a := h.join("conn-a", "t1", "A")
	h.join("conn-b", "t2", "B")
	h.start(a)

	h.join("conn-c", "t3", "C")

	if p := h.room.findByToken("t3"); p == nil || !p.IsSpectator {
		t.Fatalf("expected spectator lookup to succeed, got %+v", p)
	}
	if h.room.findByToken("") != nil {
		t.Fatal("empty token must not match")
	}
}

func TestSettingsClamping(t *testing.T) {
	tests := []struct {
		name string
		in   SettingsMessage
		want Settings
	}{
		{
			name: "defaults when empty",
			in:   SettingsMessage{},
			want: Settings{LivesInitial: 3, TimeMin: 5, TimeMax: 15, MinWordLen: 2, FragLen: "random", NoRepeat: true},
		},
		{
			name: "clamps out-of-range values",
			in:   SettingsMessage{LivesInitial: 99, TimeMin: 1, TimeMax: 90, MinWordLen: 50, FragLen: "7"},
			want: Settings{LivesInitial: 10, TimeMin: 3, TimeMax: 60, MinWordLen: 10, FragLen: "random", NoRepeat: true},
		},
		{
			name: "raises timeMax above timeMin",
			in:   SettingsMessage{TimeMin: 20, TimeMax: 6},
			want: Settings{LivesInitial: 3, TimeMin: 20, TimeMax: 22, MinWordLen: 2, FragLen: "random", NoRepeat: true},
		},
		{
			name: "fixed fragment length",
			in:   SettingsMessage{FragLen: "4", NoRepeat: boolPtr(false)},
			want: Settings{LivesInitial: 3, TimeMin: 5, TimeMax: 15, MinWordLen: 2, FragLen: "4", NoRepeat: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			s.apply(&tt.in)
			if s != tt.want {
				t.Fatalf("apply(%+v) = %+v, want %+v", tt.in, s, tt.want)
			}
		})
	}
}

func TestNonHostSettingsIgnored(t *testing.T) {
	h := newEngineHarness(t, 2)
	h.join("conn-a", "t1", "A")
	b := h.join("conn-b", "t2", "B")

	h.room.handle(event{kind: evSettings, client: b, msg: ClientMessage{
		Type:     "settings:update",
		Settings: &SettingsMessage{LivesInitial: 9},
	}})

	if h.room.Settings.LivesInitial != 3 {
		t.Fatalf("non-host settings change applied: %+v", h.room.Settings)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
