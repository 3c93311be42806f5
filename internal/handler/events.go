package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/notifier"
)

// heartbeatInterval keeps intermediaries from reaping idle SSE streams.
const heartbeatInterval = 25 * time.Second

// EventsHandler serves the live event stream.
type EventsHandler struct {
	hub *notifier.Hub
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(hub *notifier.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /v1/events. It registers an SSE connection for
// the (user_id, role) identity and forwards hub events until the client
// disconnects or the connection is replaced by a newer one.
func (h *EventsHandler) Stream(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}

	role := notifier.RoleRider
	if c.Query("role") == string(notifier.RoleDriver) {
		role = notifier.RoleDriver
	}

	conn := h.hub.Register(userID, role)
	defer h.hub.Unregister(conn)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case event, ok := <-conn.Events():
			if !ok {
				// Replaced by a newer connection for the same identity.
				return
			}
			c.SSEvent(event.Name, event)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"ts": time.Now().UTC().Format(time.RFC3339)})
			c.Writer.Flush()
		}
	}
}
