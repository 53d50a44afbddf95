/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand"
	"time"
)

type eventKind int

const (
	evJoin eventKind = iota
	evLeave
	evReady
	evSettings
	evStart
	evSubmit
	evTyping
	evChat
	evBackToLobby
	evDisconnect
	evTurnTimeout
	evNextTurn
	evGraceExpired
	evIdleExpired
)

// event is one unit of work for a room's executor: either an inbound client
// message or a fired timer re-entering the loop.
type event struct {
	kind     eventKind
	client   *client
	msg      ClientMessage
	token    string // presence timer events
	seq      int    // turn sequence the timer was armed for
	playerID string // evNextTurn: the chosen player
}

// roomBus delivers outbound messages. The production implementation wraps
// websocket clients; tests substitute a recording fake.
type roomBus interface {
	Attach(c *client)
	Detach(connID string)
	Send(c *client, msg any)
	Broadcast(msg any)
	BroadcastExcept(connID string, msg any)
}

func newRoom(code string, m *RoomManager, rng *rand.Rand) *Room {
	r := &Room{
		Code:            code,
		State:           StateLobby,
		Settings:        defaultSettings(),
		UsedWords:       make(map[string]struct{}),
		RecentFragments: make([]string, 0, recentFragmentCap),
		AcceptedWords:   make([]AcceptedWord, 0),
		graceTimers:     make(map[string]gameTimer),
		idleTimers:      make(map[string]gameTimer),
		events:          make(chan event, 64),
		bus:             newWSBus(),
		rng:             rng,
		manager:         m,
	}

	if m != nil {
		r.clock = m.clock
		r.dict = m.dict
		r.frags = m.frags
		r.cfg = m.cfg
	}

	return r
}

// run is the room's executor: every mutation of room state happens here, so
// handlers never race each other and no locking is needed.
func (r *Room) run() {
	for ev := range r.events {
		r.handle(ev)
		if r.closed.Load() {
			return
		}
	}
}

// post hands an event to the executor. The send never blocks: a torn-down
// (or hopelessly backlogged) room reports failure instead, so the caller
// can unbind rather than wait on an executor that will never answer.
func (r *Room) post(ev event) bool {
	if r.closed.Load() {
		return false
	}
	select {
	case r.events <- ev:
		return true
	default:
		return false
	}
}

func (r *Room) handle(ev event) {
	if r.closed.Load() {
		return
	}

	switch ev.kind {
	case evJoin:
		r.handleJoin(ev.client, ev.msg)
	case evLeave:
		r.leave(ev.client.id, ev.client.token)
	case evReady:
		r.handleReady(ev.client, ev.msg)
	case evSettings:
		r.handleSettings(ev.client, ev.msg)
	case evStart:
		r.handleStart(ev.client)
	case evSubmit:
		r.handleSubmit(ev.client, ev.msg)
	case evTyping:
		r.handleTyping(ev.client, ev.msg)
	case evChat:
		r.handleChat(ev.client, ev.msg)
	case evBackToLobby:
		r.handleBackToLobby(ev.client)
	case evDisconnect:
		r.handleDisconnect(ev.client)
	case evTurnTimeout:
		r.handleTurnTimeout(ev.seq)
	case evNextTurn:
		r.handleNextTurn(ev.seq, ev.playerID)
	case evGraceExpired:
		r.handleGraceExpired(ev.token)
	case evIdleExpired:
		r.handleIdleExpired(ev.token)
	}
}

// handleJoin covers creation, joining, and reconnection: a token already
// present in the room means the same player on a new connection.
func (r *Room) handleJoin(c *client, msg ClientMessage) {
	if p := r.findByToken(msg.Token); p != nil {
		oldID := p.ID
		p.ID = c.id
		p.Connected = true
		if msg.Name != "" {
			p.Name = msg.Name
		}
		if r.HostID == oldID {
			r.HostID = c.id
		}
		if r.CurrentTurn != nil && r.CurrentTurn.PlayerID == oldID {
			r.CurrentTurn.PlayerID = c.id
			r.CurrentTurn.PlayerName = p.Name
		}
		r.cancelPresence(p.Token)
		r.bus.Attach(c)
		r.broadcastSnapshot()

		logf(r.cfg, "GAMES: Player %q reconnected to %s", p.Name, r.Code)

		return
	}

	if r.occupants() >= maxOccupants {
		r.bus.Send(c, ErrorMessage{Type: "room:error", Message: "ROOM_FULL"})
		c.room.Store(nil)
		return
	}

	p := &Player{
		ID:        c.id,
		Token:     msg.Token,
		Name:      msg.Name,
		LivesLeft: r.Settings.LivesInitial,
		Connected: true,
	}

	if r.State == StateInGame || r.State == StateGameOver {
		p.IsSpectator = true
		r.Spectators = append(r.Spectators, p)
	} else {
		r.Players = append(r.Players, p)
	}

	if r.HostID == "" {
		r.HostID = c.id
	}

	r.bus.Attach(c)
	r.broadcastSnapshot()

	if r.occupants() > 1 {
		r.systemChat(p.Name + " joined the room")
	}

	logf(r.cfg, "GAMES: Player %q joined %s", p.Name, r.Code)
}

func (r *Room) leave(connID, token string) {
	p := r.findByToken(token)
	if p == nil {
		p = r.findByConn(connID)
	}
	if p == nil {
		return
	}

	r.cancelPresence(p.Token)
	r.removePlayer(p)
	r.bus.Detach(p.ID)

	logf(r.cfg, "GAMES: Player %q left %s", p.Name, r.Code)

	if r.HostID == p.ID {
		if len(r.Players) > 0 {
			r.HostID = r.Players[0].ID
		} else if len(r.Spectators) > 0 {
			r.HostID = r.Spectators[0].ID
		}
	}

	if r.occupants() == 0 {
		r.teardown()
		return
	}

	r.systemChat(p.Name + " left the room")

	wasHolder := r.State == StateInGame && r.CurrentTurn != nil && r.CurrentTurn.PlayerID == p.ID
	if wasHolder {
		r.endTurn()
	}

	if r.State == StateInGame {
		if len(r.livingPlayers()) <= 1 {
			r.finishGame()
		} else if wasHolder {
			r.scheduleNextTurn(p.ID)
		}
	}

	r.broadcastSnapshot()
}

func (r *Room) removePlayer(p *Player) {
	for i, q := range r.Players {
		if q == p {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
	for i, q := range r.Spectators {
		if q == p {
			r.Spectators = append(r.Spectators[:i], r.Spectators[i+1:]...)
			return
		}
	}
}

func (r *Room) handleReady(c *client, msg ClientMessage) {
	if r.State != StateLobby {
		return
	}
	p := r.findByConn(c.id)
	if p == nil {
		return
	}
	p.Ready = msg.Ready != nil && *msg.Ready
	r.broadcastSnapshot()
}

// Settings changes are host-only; requests from anyone else are dropped so
// that stale client UI cannot error-spam the room.
func (r *Room) handleSettings(c *client, msg ClientMessage) {
	if r.State != StateLobby || c.id != r.HostID || msg.Settings == nil {
		return
	}
	r.Settings.apply(msg.Settings)
	r.broadcastSnapshot()
}

func (r *Room) handleStart(c *client) {
	if c.id != r.HostID {
		return
	}
	if r.State != StateLobby && r.State != StateGameOver {
		return
	}
	if r.occupants() < 2 {
		r.bus.Send(c, ErrorMessage{Type: "room:error", Message: "at least 2 players are required"})
		return
	}

	r.startGame()
}

func (r *Room) startGame() {
	for _, s := range r.Spectators {
		s.IsSpectator = false
		s.Ready = false
		r.Players = append(r.Players, s)
	}
	r.Spectators = nil

	r.State = StateInGame
	r.UsedWords = make(map[string]struct{})
	r.RecentFragments = r.RecentFragments[:0]
	r.AcceptedWords = make([]AcceptedWord, 0)
	for _, p := range r.Players {
		p.LivesLeft = r.Settings.LivesInitial
		p.Eliminated = false
		p.Ready = false
	}
	r.cancelAllPresence()

	r.broadcastSnapshot()

	logf(r.cfg, "GAMES: Game started in %s with %d players", r.Code, len(r.Players))

	living := r.livingPlayers()
	r.startTurn(living[r.rng.Intn(len(living))].ID)
}

func (r *Room) startTurn(playerID string) {
	if r.State != StateInGame {
		return
	}

	p := r.findByConn(playerID)
	if p == nil || p.Eliminated || p.IsSpectator {
		living := r.livingPlayers()
		if len(living) <= 1 {
			r.finishGame()
			return
		}
		p = living[r.rng.Intn(len(living))]
	}

	fragment := r.frags.Fragment(r.fragmentLength(), r.RecentFragments, r.rng)
	r.RecentFragments = append(r.RecentFragments, fragment)
	if len(r.RecentFragments) > recentFragmentCap {
		r.RecentFragments = r.RecentFragments[1:]
	}

	minMs := r.Settings.TimeMin * 1000
	maxMs := r.Settings.TimeMax * 1000
	duration := time.Duration(minMs+r.rng.Intn(maxMs-minMs+1)) * time.Millisecond

	now := r.clock.Now()
	r.turnSeq++
	seq := r.turnSeq
	r.CurrentTurn = &Turn{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Fragment:   fragment,
		Duration:   duration,
		StartedAt:  now,
	}

	r.bus.Broadcast(TurnStartedMessage{
		Type:       "game:turnStarted",
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Fragment:   fragment,
		DurationMs: duration.Milliseconds(),
		ServerNow:  now.UnixMilli(),
		StartedAt:  now.UnixMilli(),
	})

	r.stopTimer(&r.turnTimer)
	r.turnTimer = r.clock.AfterFunc(duration, func() {
		r.post(event{kind: evTurnTimeout, seq: seq})
	})
}

func (r *Room) fragmentLength() int {
	switch r.Settings.FragLen {
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	}

	// Weighted draw: 20% length 2, 60% length 3, 20% length 4.
	f := r.rng.Float64()
	switch {
	case f < 0.2:
		return 2
	case f < 0.8:
		return 3
	default:
		return 4
	}
}

// endTurn retires the current turn. Bumping turnSeq invalidates every timer
// armed for it, so a callback that already fired cannot act on a successor.
func (r *Room) endTurn() {
	r.stopTimer(&r.turnTimer)
	r.CurrentTurn = nil
	r.turnSeq++
}

func (r *Room) handleSubmit(c *client, msg ClientMessage) {
	if r.State != StateInGame {
		return
	}

	turn := r.CurrentTurn
	if turn == nil || turn.PlayerID != c.id {
		r.bus.Send(c, WordRejectedMessage{Type: "game:wordRejected", Reason: rejectNotYourTurn})
		return
	}

	if r.clock.Now().Sub(turn.StartedAt) > turn.Duration+submitGrace {
		r.bus.Send(c, WordRejectedMessage{Type: "game:wordRejected", Reason: rejectTimeOver})
		return
	}

	normalized, reason := validateWord(msg.Word, r, r.dict)
	if reason != "" {
		r.bus.Send(c, WordRejectedMessage{Type: "game:wordRejected", Reason: reason})
		return
	}

	p := r.findByConn(c.id)
	if p == nil {
		return
	}

	if r.Settings.NoRepeat {
		r.UsedWords[normalized] = struct{}{}
	}
	r.AcceptedWords = append(r.AcceptedWords, AcceptedWord{PlayerName: p.Name, Word: normalized})

	r.bus.Broadcast(WordAcceptedMessage{
		Type:       "game:wordAccepted",
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Word:       normalized,
	})

	logf(r.cfg, "GAMES: %q played %q in %s", p.Name, normalized, r.Code)

	r.endTurn()
	r.scheduleNextTurn(p.ID)
}

func (r *Room) handleTyping(c *client, msg ClientMessage) {
	if r.State != StateInGame || r.CurrentTurn == nil || r.CurrentTurn.PlayerID != c.id {
		return
	}
	p := r.findByConn(c.id)
	if p == nil {
		return
	}

	r.bus.BroadcastExcept(c.id, TypingMessage{
		Type:       "player:typing",
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Text:       truncateRunes(msg.Text, 40),
	})
}

func (r *Room) handleChat(c *client, msg ClientMessage) {
	if msg.Message == "" {
		return
	}
	p := r.findByConn(c.id)
	if p == nil {
		return
	}

	r.bus.Broadcast(ChatMessage{
		Type:       "chat:message",
		PlayerName: p.Name,
		Message:    truncateRunes(msg.Message, 200),
		Ts:         r.clock.Now().UnixMilli(),
	})
}

func (r *Room) handleBackToLobby(c *client) {
	if r.findByConn(c.id) == nil {
		return
	}
	if r.State != StateGameOver && c.id != r.HostID {
		return
	}

	r.State = StateLobby
	for _, s := range r.Spectators {
		s.IsSpectator = false
		r.Players = append(r.Players, s)
	}
	r.Spectators = nil
	for _, p := range r.Players {
		p.Ready = false
		p.Eliminated = false
		p.LivesLeft = r.Settings.LivesInitial
	}
	r.AcceptedWords = make([]AcceptedWord, 0)

	r.endTurn()
	r.stopTimer(&r.nextTimer)
	r.cancelAllPresence()

	r.broadcastSnapshot()
}

// handleDisconnect soft-removes a player: identity is preserved by token,
// the connection id stays bound until a reconnect replaces it.
func (r *Room) handleDisconnect(c *client) {
	r.bus.Detach(c.id)
	c.closeSend()

	p := r.findByToken(c.token)
	if p == nil {
		p = r.findByConn(c.id)
	}
	if p == nil {
		return
	}

	p.Connected = false

	if r.State == StateInGame && r.CurrentTurn != nil && r.CurrentTurn.PlayerID == p.ID {
		token := p.Token
		r.stopPresence(r.graceTimers, token)
		r.graceTimers[token] = r.clock.AfterFunc(r.cfg.turnGrace, func() {
			r.post(event{kind: evGraceExpired, token: token})
		})
	}

	if r.State == StateLobby {
		token := p.Token
		r.stopPresence(r.idleTimers, token)
		r.idleTimers[token] = r.clock.AfterFunc(r.cfg.idleTimeout, func() {
			r.post(event{kind: evIdleExpired, token: token})
		})
	}

	r.broadcastSnapshot()
}

func (r *Room) handleTurnTimeout(seq int) {
	if r.State != StateInGame || r.CurrentTurn == nil || seq != r.turnSeq {
		return
	}

	p := r.findByConn(r.CurrentTurn.PlayerID)
	r.endTurn()
	r.explode(p)
}

func (r *Room) handleNextTurn(seq int, playerID string) {
	if r.State != StateInGame || seq != r.turnSeq {
		return
	}
	r.startTurn(playerID)
}

// handleGraceExpired fires when a turn holder stayed disconnected through
// the whole grace period: they explode exactly as a timeout would.
func (r *Room) handleGraceExpired(token string) {
	delete(r.graceTimers, token)

	p := r.findByToken(token)
	if p == nil || p.Connected {
		return
	}
	if r.State != StateInGame || r.CurrentTurn == nil || r.CurrentTurn.PlayerID != p.ID {
		return
	}

	r.endTurn()
	r.explode(p)
}

func (r *Room) handleIdleExpired(token string) {
	delete(r.idleTimers, token)

	p := r.findByToken(token)
	if p == nil || p.Connected || r.State != StateLobby {
		return
	}

	r.leave(p.ID, token)
}

func (r *Room) explode(p *Player) {
	if p == nil || p.Eliminated {
		return
	}

	p.LivesLeft--

	r.bus.Broadcast(ExplodedMessage{
		Type:       "game:playerExploded",
		PlayerID:   p.ID,
		PlayerName: p.Name,
		LivesLeft:  p.LivesLeft,
	})

	logf(r.cfg, "GAMES: %q exploded in %s (%d lives left)", p.Name, r.Code, p.LivesLeft)

	if p.LivesLeft <= 0 {
		p.Eliminated = true
		r.bus.Broadcast(EliminatedMessage{
			Type:       "game:playerEliminated",
			PlayerID:   p.ID,
			PlayerName: p.Name,
		})
	}

	if len(r.livingPlayers()) <= 1 {
		r.finishGame()
		return
	}

	r.scheduleNextTurn(p.ID)
}

func (r *Room) scheduleNextTurn(exclude string) {
	if r.State != StateInGame {
		return
	}

	living := r.livingPlayers()
	if len(living) <= 1 {
		r.finishGame()
		return
	}

	candidates := make([]*Player, 0, len(living))
	for _, p := range living {
		if p.ID != exclude {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = living
	}
	next := candidates[r.rng.Intn(len(candidates))]

	seq := r.turnSeq
	r.stopTimer(&r.nextTimer)
	r.nextTimer = r.clock.AfterFunc(turnPacing, func() {
		r.post(event{kind: evNextTurn, seq: seq, playerID: next.ID})
	})
}

func (r *Room) finishGame() {
	r.State = StateGameOver
	r.endTurn()
	r.stopTimer(&r.nextTimer)
	r.cancelAllPresence()

	var winnerID, winnerName string
	if living := r.livingPlayers(); len(living) == 1 {
		winnerID = living[0].ID
		winnerName = living[0].Name
	}

	r.bus.Broadcast(GameOverMessage{
		Type:       "game:gameOver",
		WinnerID:   winnerID,
		WinnerName: winnerName,
	})

	logf(r.cfg, "GAMES: Game over in %s, winner %q", r.Code, winnerName)
}

// teardown ends the executor once the last occupant is gone.
func (r *Room) teardown() {
	r.endTurn()
	r.stopTimer(&r.nextTimer)
	r.cancelAllPresence()
	r.closed.Store(true)
	if r.manager != nil {
		r.manager.remove(r.Code)
	}
}

func (r *Room) stopTimer(t *gameTimer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (r *Room) stopPresence(timers map[string]gameTimer, token string) {
	if t, ok := timers[token]; ok {
		t.Stop()
		delete(timers, token)
	}
}

// cancelPresence stops both per-token timers; they are mutually cancelling
// on any transition touching that token.
func (r *Room) cancelPresence(token string) {
	r.stopPresence(r.graceTimers, token)
	r.stopPresence(r.idleTimers, token)
}

func (r *Room) cancelAllPresence() {
	for token := range r.graceTimers {
		r.stopPresence(r.graceTimers, token)
	}
	for token := range r.idleTimers {
		r.stopPresence(r.idleTimers, token)
	}
}

func (r *Room) systemChat(text string) {
	r.bus.Broadcast(ChatMessage{
		Type:       "chat:message",
		PlayerName: "System",
		Message:    text,
		Ts:         r.clock.Now().UnixMilli(),
	})
}

func (r *Room) broadcastSnapshot() {
	players := make([]PlayerEntry, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, PlayerEntry{
			ID:         p.ID,
			Name:       p.Name,
			LivesLeft:  p.LivesLeft,
			Ready:      p.Ready,
			Connected:  p.Connected,
			Eliminated: p.Eliminated,
			Token:      p.Token,
		})
	}

	spectators := make([]PlayerEntry, 0, len(r.Spectators))
	for _, p := range r.Spectators {
		spectators = append(spectators, PlayerEntry{
			ID:          p.ID,
			Name:        p.Name,
			Connected:   p.Connected,
			IsSpectator: true,
			Token:       p.Token,
		})
	}

	var turn *TurnEntry
	if r.CurrentTurn != nil {
		turn = &TurnEntry{
			PlayerID:   r.CurrentTurn.PlayerID,
			Fragment:   r.CurrentTurn.Fragment,
			DurationMs: r.CurrentTurn.Duration.Milliseconds(),
			StartedAt:  r.CurrentTurn.StartedAt.UnixMilli(),
		}
	}

	r.bus.Broadcast(SnapshotMessage{
		Type:          "room:snapshot",
		Code:          r.Code,
		HostID:        r.HostID,
		State:         r.State,
		Settings:      r.Settings,
		Players:       players,
		Spectators:    spectators,
		CurrentTurn:   turn,
		AcceptedWords: r.AcceptedWords,
	})
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
