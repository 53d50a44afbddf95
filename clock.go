/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import "time"

// gameClock abstracts wall-clock reads and deferred callbacks so deadline
// behavior can be tested without real delays.
type gameClock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) gameTimer
}

type gameTimer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) gameTimer {
	return time.AfterFunc(d, f)
}
