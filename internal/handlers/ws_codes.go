// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handler.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Seat token missing, expired, or issued for another game.
	InvalidSeatError      = 3002 // Token names a seat that cannot be played by a client, e.g. a bot seat.
)
