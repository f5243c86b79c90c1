package utils

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Upgrader is shared by the live endpoints. Pages are served from the same
// origin, and the API is public, so any origin is accepted.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
