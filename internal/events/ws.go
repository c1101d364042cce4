package events

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // OK for demo; restrict in production
	},
}

// WSHandler upgrades a catalog client onto the WebSocket event feed. The
// feed is one-way: whatever the client sends is drained and discarded, and
// the first failed read unregisters it.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		// clients have nothing meaningful to say; cap what they can push
		ws.SetReadLimit(512)

		hub.AddWS(ws)
		log.Printf("[feed] ws client connected: %s", c.ClientIP())

		if welcome, err := json.Marshal(Event{Type: TypeWelcome, At: time.Now()}); err == nil {
			_ = ws.WriteMessage(websocket.TextMessage, append(welcome, '\n'))
		}

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		log.Printf("[feed] ws client disconnected: %s", c.ClientIP())
	}
}
