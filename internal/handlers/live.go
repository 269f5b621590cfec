package handlers

// live.go: GET /api/ws/tournaments/:id, the live score feed.
// The client opens a WebSocket for one tournament and receives a JSON
// message (see scoreEvent) every time a score in that tournament changes.
// Browsers can't set headers on a WebSocket handshake, so the bearer token
// comes in as ?token= and is checked by the regular Auth middleware.

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trentd187/golf-scorekeeper/internal/live"
)

// writeWait bounds how long a single write to a slow peer may take.
const writeWait = 10 * time.Second

// liveTournamentKey is the Locals key LiveUpgrade stores the canonical
// tournament id under. The hub is keyed by uuid.UUID.String(), which is
// lower-case whatever case the URL used.
const liveTournamentKey = "liveTournamentID"

// LiveUpgrade returns a handler that checks the tournament exists and that the
// request really is a WebSocket handshake before handing it to LiveFeed.
func LiveUpgrade(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.NewError(fiber.StatusUpgradeRequired, "WebSocket upgrade required")
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := findTournament(c, dbFor(c, db), id); err != nil {
			return err
		}
		c.Locals(liveTournamentKey, id.String())
		return c.Next()
	}
}

// LiveFeed returns the WebSocket handler that streams hub broadcasts for the
// tournament in the URL to the connected client.
func LiveFeed(hub *live.Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		tournamentID, _ := conn.Locals(liveTournamentKey).(string)
		client := live.NewClient(tournamentID)
		hub.Register(client)
		defer hub.Unregister(client)

		logger := log.WithField("tournament_id", client.TournamentID)
		logger.Debug("Live feed client connected")

		// The reader only exists to notice the peer going away; clients don't
		// send anything we act on.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				logger.Debug("Live feed client disconnected")
				return
			case data, ok := <-client.Send:
				if !ok {
					// The hub dropped us (too slow, or shutting down).
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					logger.WithError(err).Debug("Live feed write failed")
					return
				}
			}
		}
	})
}
