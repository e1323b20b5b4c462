package websocket

import "errors"

var (
	// ErrHubClosed indicates the hub no longer accepts connections or states.
	ErrHubClosed = errors.New("hub closed")
	// ErrConnectionClosed indicates the connection is closed.
	ErrConnectionClosed = errors.New("connection closed")
)
