// internal/handlers/game_server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/caps/internal/game"
	"github.com/jason-s-yu/caps/internal/middleware"
)

// outQueueSize is how many events a slow client may fall behind before events are dropped.
const outQueueSize = 64

// SeatConnection wraps the active WebSocket of one seat.
type SeatConnection struct {
	Seat    int
	Cancel  context.CancelFunc
	OutChan chan []byte
}

// GameServer holds the live tables and the WebSocket connections attached to them.
type GameServer struct {
	GameStore *game.GameStore
	Logger    *logrus.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]map[int]*SeatConnection
}

func NewGameServer(logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GameServer{
		GameStore: game.NewGameStore(),
		Logger:    logger,
		conns:     make(map[uuid.UUID]map[int]*SeatConnection),
	}
}

// NewGame creates a table, wires its broadcasts to this server and starts it.
func (gs *GameServer) NewGame(cfg game.Config) (*game.CapsGame, error) {
	g, err := game.NewCapsGame(cfg, gs.Logger)
	if err != nil {
		return nil, err
	}
	g.BroadcastFn = gs.broadcastFunc(g.ID)
	g.BroadcastToPlayerFn = gs.broadcastToSeatFunc(g.ID)
	gs.GameStore.AddGame(g)
	g.Start()
	return g, nil
}

// attach registers conn for seat, replacing and cancelling any older connection.
func (gs *GameServer) attach(gameID uuid.UUID, conn *SeatConnection) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	seats, ok := gs.conns[gameID]
	if !ok {
		seats = make(map[int]*SeatConnection)
		gs.conns[gameID] = seats
	}
	if old, ok := seats[conn.Seat]; ok && old.Cancel != nil {
		old.Cancel()
	}
	seats[conn.Seat] = conn
}

// detach removes conn if it is still the seat's current connection.
func (gs *GameServer) detach(gameID uuid.UUID, conn *SeatConnection) bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	seats := gs.conns[gameID]
	if seats[conn.Seat] != conn {
		return false
	}
	delete(seats, conn.Seat)
	if len(seats) == 0 {
		delete(gs.conns, gameID)
	}
	return true
}

// enqueue never blocks: the caller may be holding a game lock.
func (gs *GameServer) enqueue(gameID uuid.UUID, conn *SeatConnection, data []byte) {
	select {
	case conn.OutChan <- data:
	default:
		gs.Logger.WithFields(logrus.Fields{"game_id": gameID, "seat": conn.Seat}).Warn("outgoing queue full, dropping event")
	}
}

func (gs *GameServer) broadcastFunc(gameID uuid.UUID) func(ev game.GameEvent) {
	return func(ev game.GameEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			gs.Logger.WithError(err).WithField("type", ev.Type).Error("failed to marshal broadcast event")
			return
		}
		gs.mu.Lock()
		defer gs.mu.Unlock()
		for _, conn := range gs.conns[gameID] {
			gs.enqueue(gameID, conn, data)
		}
	}
}

func (gs *GameServer) broadcastToSeatFunc(gameID uuid.UUID) func(seat int, ev game.GameEvent) {
	return func(seat int, ev game.GameEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			gs.Logger.WithError(err).WithField("type", ev.Type).Error("failed to marshal private event")
			return
		}
		gs.mu.Lock()
		defer gs.mu.Unlock()
		if conn, ok := gs.conns[gameID][seat]; ok {
			gs.enqueue(gameID, conn, data)
		}
	}
}

// RegisterRoutes mounts the game endpoints on mux, each behind request logging.
func RegisterRoutes(mux *http.ServeMux, gs *GameServer) {
	logged := middleware.LogMiddleware(gs.Logger)
	mux.Handle("/game/create", logged(CreateGameHandler(gs)))
	mux.Handle("/game/join/", logged(JoinGameHandler(gs)))
	mux.Handle("/game/state/", logged(GameStateHandler(gs)))
	mux.Handle("/game/history/", logged(GameHistoryHandler(gs)))
	mux.Handle("/game/ws/", logged(GameWSHandler(gs)))
}
