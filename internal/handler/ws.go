package handler

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/ws" // websocket hub
)

// WSHandler upgrades authenticated clients to a websocket connection
// registered with the event hub.  Each user holds at most one live
// connection; a newer one replaces the previous.
type WSHandler struct {
	Hub *ws.Hub
}

// NewWSHandler constructs a WSHandler and panics on a nil hub.
func NewWSHandler(hub *ws.Hub) *WSHandler {
	if hub == nil {
		panic("nil hub passed to NewWSHandler")
	}
	return &WSHandler{Hub: hub}
}

// Serve handles GET /v1/ws.  The JWT middleware has already
// authenticated the request; the hub takes over the connection and
// pushes negotiation events until the client disconnects.
func (h *WSHandler) Serve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.Hub.Serve(c.Response(), c.Request(), userID)
}
