package ws

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DevOwais28/wepollin/internal/server/middleware"
	"github.com/DevOwais28/wepollin/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are filtered by the reverse proxy in front of the service.
		return true
	},
}

// ServeWs upgrades an authenticated request into a live connection joined to
// the room of the poll named by the `pollId` query parameter. The viewer
// receives a tally snapshot immediately, so a poll opened mid-flight shows
// live state rather than a stale zero.
func ServeWs(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.GetUserFromContext(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		pollID, err := primitive.ObjectIDFromHex(c.Query("pollId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pollId"})
			return
		}
		accessKey := c.Query("key")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}

		client := newClient(hub, conn, user.ID, pollID, accessKey)
		hub.register <- client

		if snapshot, err := hub.snapshot(c.Request.Context(), client); err != nil {
			kind := service.KindOf(err)
			if kind == "" {
				kind = "INTERNAL"
			}
			client.trySend(marshalErrorFrame(string(kind), "failed to load poll"))
		} else {
			client.trySend(snapshot)
		}

		go client.writePump()
		go client.readPump()
	}
}
