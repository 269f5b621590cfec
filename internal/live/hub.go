// Package live implements a Hub for broadcasting real-time tournament score updates.
// Clients watching a tournament hold a WebSocket open; whenever a score tied to
// that tournament is created, edited or deleted, the Hub pushes the change to
// every client watching it, so leaderboards refresh without polling.
package live

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// sendBuffer is how many outgoing messages a client may have queued before
// the Hub treats it as too slow and disconnects it.
const sendBuffer = 16

// Client represents a single connected WebSocket client.
type Client struct {
	TournamentID string      // Which tournament this client is watching
	Send         chan []byte // Outgoing messages; the Hub writes here, the socket writer drains it
}

// NewClient creates a client watching tournamentID.
func NewClient(tournamentID string) *Client {
	return &Client{
		TournamentID: tournamentID,
		Send:         make(chan []byte, sendBuffer),
	}
}

// Message is a unit of data to broadcast to all clients watching one tournament.
type Message struct {
	TournamentID string
	Data         []byte
}

// Hub manages all active WebSocket connections, grouped by tournament ID.
// Only the Run goroutine mutates the clients map; everything else talks to it
// through channels.
type Hub struct {
	// clients: tournamentID -> set of clients
	clients map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// mu guards clients for readers outside Run (ClientCount).
	mu sync.RWMutex
}

// NewHub creates and initializes a Hub with empty channels and maps.
// The broadcast channel is buffered so a score write doesn't wait on the Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the Hub's main event loop. Start it in a goroutine ("go hub.Run(ctx)").
// It returns when ctx is cancelled, closing every client's Send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.TournamentID] == nil {
				h.clients[client.TournamentID] = make(map[*Client]bool)
			}
			h.clients[client.TournamentID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.TournamentID] {
				select {
				case client.Send <- msg.Data:
				default:
					// Send buffer full: the client is too slow, drop it rather than
					// stall the broadcast for everyone else.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove deletes client and closes its Send channel. Caller holds mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.TournamentID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.TournamentID)
	}
}

// BroadcastToTournament queues data for every client watching tournamentID.
// It never blocks: if the queue is full or the Hub has stopped, the update is dropped.
func (h *Hub) BroadcastToTournament(tournamentID string, data []byte) {
	select {
	case h.broadcast <- &Message{TournamentID: tournamentID, Data: data}:
	case <-h.done:
	default:
		log.WithField("tournament_id", tournamentID).Warn("Live update queue full, dropping update")
	}
}

// Register adds a client so it starts receiving broadcasts for its tournament.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client when its WebSocket connection closes.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns how many clients are watching tournamentID.
func (h *Hub) ClientCount(tournamentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tournamentID])
}
