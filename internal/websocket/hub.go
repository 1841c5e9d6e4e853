package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/isdelr/nota-be/internal/models"
	"github.com/rs/zerolog/log"
)

const eventBuffer = 256

// Hub maintains the set of active clients and fans note events out to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	revoke     chan string
	events     chan models.NoteEvent

	done     chan struct{}
	stopOnce sync.Once
	count    atomic.Int64
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		revoke:     make(chan string),
		events:     make(chan models.NoteEvent, eventBuffer),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			log.Info().Int("total_clients", len(h.clients)).Str("user_id", client.session.UserID).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case token := <-h.revoke:
			for client := range h.clients {
				if client.session.Token == token {
					h.drop(client)
					log.Info().Str("user_id", client.session.UserID).Msg("Client disconnected, token revoked")
				}
			}
		case event := <-h.events:
			h.deliver(event)
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop terminates Run and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client. It is a no-op once the hub is stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// DropToken disconnects every client that authenticated with token. It
// returns once the hub has dropped them, so events published afterwards
// never reach those clients.
func (h *Hub) DropToken(token string) {
	if token == "" {
		return
	}
	select {
	case h.revoke <- token:
	case <-h.done:
	}
}

// Publish queues a note event for delivery. Events are dropped when the
// queue is full or the hub is stopped.
func (h *Hub) Publish(event models.NoteEvent) {
	select {
	case h.events <- event:
	case <-h.done:
	default:
		log.Warn().Str("type", string(event.Type)).Str("note_id", event.NoteID).Msg("Event queue full, dropping note event")
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

func (h *Hub) deliver(event models.NoteEvent) {
	message, err := json.Marshal(NewNoteMessage(event))
	if err != nil {
		log.Error().Err(err).Str("note_id", event.NoteID).Msg("Error encoding note event")
		return
	}

	// Clients that could see the note before an update narrowed its
	// visibility are told it is gone.
	var narrowed []byte
	for client := range h.clients {
		out := message
		if !client.CanSee(event.Visibility) {
			if event.Type != models.NoteUpdated || event.PreviousVisibility == "" || !client.CanSee(event.PreviousVisibility) {
				continue
			}
			if narrowed == nil {
				narrowed, err = json.Marshal(NewNoteMessage(models.NoteEvent{Type: models.NoteDeleted, NoteID: event.NoteID}))
				if err != nil {
					log.Error().Err(err).Str("note_id", event.NoteID).Msg("Error encoding note event")
					continue
				}
			}
			out = narrowed
		}
		select {
		case client.Send <- out:
		default:
			log.Warn().Msg("Client send buffer full, dropping client")
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.count.Store(int64(len(h.clients)))
}
