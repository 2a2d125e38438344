// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/caps/internal/caps"
	"github.com/jason-s-yu/caps/internal/game"
	"github.com/jason-s-yu/caps/internal/middleware"
)

// GameMessage is an incoming WebSocket message.
type GameMessage struct {
	Type  string `json:"type"`
	Kind  string `json:"kind,omitempty"`
	Slots []int  `json:"slots,omitempty"`
}

// GameWSHandler upgrades /game/ws/{id} for the seat named by the caller's token
// and runs its read loop until the socket closes.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	logger := gs.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := gameIDFromPath(r.URL.Path, "/game/ws/")
		if err != nil {
			http.Error(w, "Invalid game_id format", http.StatusBadRequest)
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.WithError(err).WithField("game_id", gameID).Warn("websocket accept failed")
			return
		}
		defer c.Close(websocket.StatusInternalError, "internal error")

		if c.Subprotocol() != "game" {
			c.Close(websocket.StatusCode(BadSubprotocolError), "client must use the 'game' subprotocol")
			return
		}
		seat, err := authenticateSeat(r, gameID)
		if err != nil {
			logger.WithError(err).WithField("game_id", gameID).Warn("seat authentication failed")
			c.Close(websocket.StatusCode(InvalidAuthTokenError), "invalid seat token")
			return
		}

		log := logger.WithFields(logrus.Fields{"game_id": gameID, "seat": seat})
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &SeatConnection{Seat: seat, Cancel: cancel, OutChan: make(chan []byte, outQueueSize)}
		gs.attach(gameID, conn)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		if err := g.HandleConnect(seat); err != nil {
			gs.detach(gameID, conn)
			c.Close(websocket.StatusCode(InvalidSeatError), err.Error())
			return
		}

		go writePump(ctx, c, conn, log)
		err = readGameMessages(ctx, c, g, conn, gs, log)

		if gs.detach(gameID, conn) {
			g.HandleDisconnect(seat)
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readGameMessages routes client messages to the session until the socket fails
// or ctx is cancelled.
func readGameMessages(ctx context.Context, c *websocket.Conn, g *game.CapsGame, conn *SeatConnection, gs *GameServer, log logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", msgType)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendError(gs, g, conn, "invalid JSON format")
			continue
		}
		log.WithField("type", msg.Type).Debug("received message")

		switch msg.Type {
		case "action_move":
			kind, err := caps.ParseMoveKind(msg.Kind)
			if err != nil || kind == caps.Pass {
				sendError(gs, g, conn, fmt.Sprintf("unknown move kind %q", msg.Kind))
				continue
			}
			if err := g.SubmitMove(conn.Seat, kind, msg.Slots); err != nil {
				sendError(gs, g, conn, err.Error())
			}

		case "action_pass":
			if err := g.Pass(conn.Seat); err != nil {
				sendError(gs, g, conn, err.Error())
			}

		case "action_sync":
			st := g.SyncState(conn.Seat)
			sendEvent(gs, g, conn, game.GameEvent{Type: game.EventPrivateSyncState, State: &st})

		case "ping":
			sendMessage(gs, g, conn, map[string]string{"type": "pong"})

		default:
			sendError(gs, g, conn, fmt.Sprintf("unknown action type: %s", msg.Type))
		}
	}
}

func sendMessage(gs *GameServer, g *game.CapsGame, conn *SeatConnection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		gs.Logger.WithError(err).Error("failed to marshal message")
		return
	}
	gs.enqueue(g.ID, conn, data)
}

func sendEvent(gs *GameServer, g *game.CapsGame, conn *SeatConnection, ev game.GameEvent) {
	sendMessage(gs, g, conn, ev)
}

func sendError(gs *GameServer, g *game.CapsGame, conn *SeatConnection, msg string) {
	sendEvent(gs, g, conn, game.GameEvent{
		Type:    game.EventError,
		Payload: map[string]interface{}{"message": msg},
	})
}

// writePump drains conn.OutChan onto the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *SeatConnection, log logrus.FieldLogger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-conn.OutChan:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.WithError(err).Warn("failed to write to websocket")
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				log.WithError(err).Warn("ping failed, assuming disconnect")
				conn.Cancel()
				return
			}
		}
	}
}
