/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import "strings"

// Rejection reasons reported back to the submitting client.
const (
	rejectTooShort        = "TOO_SHORT"
	rejectMissingFragment = "MISSING_FRAGMENT"
	rejectNotInDictionary = "NOT_IN_DICTIONARY"
	rejectAlreadyUsed     = "ALREADY_USED"
	rejectNotYourTurn     = "NOT_YOUR_TURN"
	rejectTimeOver        = "TIME_OVER"
)

// validateWord normalizes a submission and checks it against the current
// turn and room rules, short-circuiting on the first failure. Returns the
// normalized word, or a rejection reason.
func validateWord(word string, room *Room, dict *Dictionary) (string, string) {
	normalized := NormalizeWord(word)

	if len([]rune(normalized)) < room.Settings.MinWordLen {
		return "", rejectTooShort
	}

	if !strings.Contains(normalized, room.CurrentTurn.Fragment) {
		return "", rejectMissingFragment
	}

	if !dict.Has(normalized) {
		return "", rejectNotInDictionary
	}

	if room.Settings.NoRepeat {
		if _, used := room.UsedWords[normalized]; used {
			return "", rejectAlreadyUsed
		}
	}

	return normalized, ""
}
