/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	submitRateLimit  = 5
	submitRateWindow = time.Second
)

// rateWindow is an advisory per-connection submission throttle; correctness
// never depends on it.
type rateWindow struct {
	count   int
	resetAt time.Time
}

func (w *rateWindow) allow(now time.Time) bool {
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(submitRateWindow)
	}
	w.count++
	return w.count <= submitRateLimit
}

// client is one websocket connection. Its id is ephemeral; the token it
// presents on join is the identity that survives reconnects.
type client struct {
	id    string
	token string
	conn  *websocket.Conn
	send  chan any
	room  atomic.Pointer[Room]
	limit rateWindow

	closed    atomic.Bool
	closeOnce sync.Once
}

func (c *client) closeSend() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.send)
	})
}

func (c *client) trySend(msg any) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Event types a client may send once it occupies a room.
var clientEventKinds = map[string]eventKind{
	"room:leave":       evLeave,
	"player:ready":     evReady,
	"settings:update":  evSettings,
	"game:start":       evStart,
	"game:submitWord":  evSubmit,
	"game:typing":      evTyping,
	"chat:send":        evChat,
	"room:backToLobby": evBackToLobby,
}

func (c *client) readPump(manager *RoomManager) {
	defer func() {
		room := c.room.Load()
		if room == nil || !room.post(event{kind: evDisconnect, client: c}) {
			c.closeSend()
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "room:create":
			if c.room.Load() != nil {
				continue
			}
			if msg.Name == "" || msg.Token == "" {
				c.trySend(ErrorMessage{Type: "room:error", Message: "name and token are required"})
				continue
			}
			c.token = msg.Token
			room := manager.CreateRoom()
			c.room.Store(room)
			if !room.post(event{kind: evJoin, client: c, msg: msg}) {
				c.room.Store(nil)
				c.trySend(ErrorMessage{Type: "room:error", Message: "room could not be created"})
			}

		case "room:join":
			if c.room.Load() != nil {
				continue
			}
			if msg.RoomCode == "" || msg.Name == "" || msg.Token == "" {
				c.trySend(ErrorMessage{Type: "room:error", Message: "room code, name and token are required"})
				continue
			}
			room := manager.Room(strings.ToUpper(msg.RoomCode))
			if room == nil {
				c.trySend(ErrorMessage{Type: "room:error", Message: "room not found: " + msg.RoomCode})
				continue
			}
			c.token = msg.Token
			c.room.Store(room)
			if !room.post(event{kind: evJoin, client: c, msg: msg}) {
				// The last occupant left between lookup and post.
				c.room.Store(nil)
				c.trySend(ErrorMessage{Type: "room:error", Message: "room not found: " + msg.RoomCode})
			}

		default:
			room := c.room.Load()
			if room == nil {
				continue
			}
			kind, ok := clientEventKinds[msg.Type]
			if !ok {
				continue
			}
			if kind == evSubmit && !c.limit.allow(time.Now()) {
				continue
			}
			if !room.post(event{kind: kind, client: c, msg: msg}) {
				c.room.Store(nil)
			}
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// wsBus fans room broadcasts out to the attached websocket clients. It is
// only ever called from the owning room's executor, so the map needs no
// lock.
type wsBus struct {
	clients map[string]*client
}

func newWSBus() roomBus {
	return &wsBus{clients: make(map[string]*client)}
}

func (b *wsBus) Attach(c *client) {
	b.clients[c.id] = c
}

func (b *wsBus) Detach(connID string) {
	if c, ok := b.clients[connID]; ok {
		delete(b.clients, connID)
		c.closeSend()
	}
}

func (b *wsBus) Send(c *client, msg any) {
	if !c.trySend(msg) {
		b.Detach(c.id)
	}
}

func (b *wsBus) Broadcast(msg any) {
	for id, c := range b.clients {
		if !c.trySend(msg) {
			delete(b.clients, id)
			c.closeSend()
		}
	}
}

func (b *wsBus) BroadcastExcept(connID string, msg any) {
	for id, c := range b.clients {
		if id == connID {
			continue
		}
		if !c.trySend(msg) {
			delete(b.clients, id)
			c.closeSend()
		}
	}
}

func serveWS(cfg *Config, manager *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		c := &client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan any, 8),
		}

		logf(cfg, "GAMES: Connection %s from %s", c.id, realIP(r))

		go c.writePump()
		c.readPump(manager)
	}
}
