package live

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"tablematch/models"
	"tablematch/mq"
)

type Client struct {
	Send      chan []byte
	SessionID string
	UserID    string
}

type broadcastMsg struct {
	SessionID string
	Data      []byte
}

// Hub fans change events out to the websocket clients watching each
// session. Rooms are keyed by session ID.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	stop       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for room, clients := range h.rooms {
				for c := range clients {
					close(c.Send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.SessionID] == nil {
				h.rooms[c.SessionID] = make(map[*Client]bool)
			}
			h.rooms[c.SessionID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if clients := h.rooms[c.SessionID]; clients != nil {
				if clients[c] {
					delete(clients, c)
					close(c.Send)
				}
				if len(clients) == 0 {
					delete(h.rooms, c.SessionID)
				}
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.SessionID] {
				select {
				case c.Send <- m.Data:
				default:
					close(c.Send)
					delete(h.rooms[m.SessionID], c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Stop() {
	close(h.stop)
}

// add registers a client, reporting false when the hub has already stopped.
// Run has returned by then, so an unguarded send would block forever.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stop:
		return false
	}
}

// drop unregisters a client. Safe to call after Stop: the stopped hub has
// closed every Send channel itself, so there is nothing left to clean up.
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

// Notify pushes one event to every client in the session's room.
func (h *Hub) Notify(event models.ChangeEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[live] marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- broadcastMsg{SessionID: event.SessionID, Data: data}:
	case <-h.stop:
	}
}

// Bridge feeds redis-published change events into the hub until ctx is
// cancelled, so clients connected to any process instance see every
// mutation.
func (h *Hub) Bridge(ctx context.Context) {
	for event := range mq.Subscribe(ctx) {
		h.Notify(event)
	}
}
