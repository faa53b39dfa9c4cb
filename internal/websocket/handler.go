package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a connection to a session room and blocks until the
// connection drops. onMessage receives each inbound frame; the returned
// pumps keep the connection alive with ping/pong.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID, userID string, onMessage func(data []byte)) {
	client := &Client{
		Hub:       hub,
		Conn:      c,
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan []byte, 256),
		OnMessage: onMessage,
	}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
