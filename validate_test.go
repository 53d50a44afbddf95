/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand"
	"testing"
	"time"
)

func TestNormalizeWord(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "CASA", want: "casa"},
		{name: "trims", in: "  casa \n", want: "casa"},
		{name: "strips accents", in: "ÁrBOL", want: "arbol"},
		{name: "all accented vowels", in: "áéíóúü", want: "aeiouu"},
		{name: "keeps enye", in: "mañana", want: "mañana"},
		{name: "drops punctuation and digits", in: "ca-sa!123", want: "casa"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeWord(tt.in); got != tt.want {
				t.Fatalf("NormalizeWord(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeWordIdempotent(t *testing.T) {
	for _, w := range []string{"ÁrBOL", "mañana", "  Cañón!  ", "número"} {
		once := NormalizeWord(w)
		if twice := NormalizeWord(once); twice != once {
			t.Fatalf("normalize not idempotent for %q: %q != %q", w, twice, once)
		}
	}
}

func validationRoom(fragment string, minLen int, used ...string) *Room {
	r := newRoom("TEST", nil, rand.New(rand.NewSource(1)))
	r.Settings.MinWordLen = minLen
	r.CurrentTurn = &Turn{
		PlayerID:  "conn-x",
		Fragment:  fragment,
		Duration:  10 * time.Second,
		StartedAt: time.UnixMilli(0),
	}
	for _, w := range used {
		r.UsedWords[w] = struct{}{}
	}
	return r
}

func TestValidateWord(t *testing.T) {
	dict := newDictionary([]string{"campanario", "arbol", "ar"})

	tests := []struct {
		name       string
		word       string
		room       *Room
		want       string
		wantReason string
	}{
		{
			name: "accepts and normalizes",
			word: "  CampanArio ",
			room: validationRoom("ar", 2),
			want: "campanario",
		},
		{
			name:       "too short even with fragment and membership",
			word:       "ar",
			room:       validationRoom("ar", 3),
			wantReason: rejectTooShort,
		},
		{
			name:       "missing fragment",
			word:       "arbol",
			room:       validationRoom("io", 2),
			wantReason: rejectMissingFragment,
		},
		{
			name:       "not in dictionary",
			word:       "zzzar",
			room:       validationRoom("ar", 2),
			wantReason: rejectNotInDictionary,
		},
		{
			name:       "already used",
			word:       "campanario",
			room:       validationRoom("ar", 2, "campanario"),
			wantReason: rejectAlreadyUsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := validateWord(tt.word, tt.room, dict)
			if reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", reason, tt.wantReason)
			}
			if got != tt.want {
				t.Fatalf("normalized = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateWordRepeatAllowedWhenNoRepeatOff(t *testing.T) {
	dict := newDictionary([]string{"campanario"})
	room := validationRoom("ar", 2, "campanario")
	room.Settings.NoRepeat = false

	got, reason := validateWord("campanario", room, dict)
	if reason != "" || got != "campanario" {
		t.Fatalf("got %q/%q, want acceptance", got, reason)
	}
}
