// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/caps/internal/auth"
	"github.com/jason-s-yu/caps/internal/caps"
	"github.com/jason-s-yu/caps/internal/game"
)

// CreateGameRequest is the optional body of POST /game/create.
type CreateGameRequest struct {
	Seed          int64   `json:"seed"`
	Bots          []int   `json:"bots"`
	BotPassChance float64 `json:"bot_pass_chance"`
	Password      string  `json:"password"`
}

// JoinGameRequest is the optional body of POST /game/join/{id}.
type JoinGameRequest struct {
	Password string `json:"password"`
}

// SeatResponse hands a client its seat and the token that proves it.
type SeatResponse struct {
	GameID string `json:"game_id"`
	Seat   int    `json:"seat"`
	Token  string `json:"token,omitempty"`
	Seed   int64  `json:"seed,omitempty"`
}

// decodeOptional decodes r's body into v, accepting an empty body.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// CreateGameHandler deals a new table and seats the caller at the first human seat.
// If every seat is a bot the game plays out at once and no token is issued.
func CreateGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req CreateGameRequest
		if err := decodeOptional(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.BotPassChance < 0 || req.BotPassChance >= 1 {
			http.Error(w, "bot_pass_chance must be in [0, 1)", http.StatusBadRequest)
			return
		}

		cfg := game.Config{Seed: req.Seed, Bots: req.Bots, BotPassChance: req.BotPassChance}
		if req.Password != "" {
			hash, err := auth.HashPassword(req.Password, auth.TableParams)
			if err != nil {
				gs.Logger.WithError(err).Error("failed to hash table password")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			cfg.PasswordHash = hash
		}

		g, err := gs.NewGame(cfg)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := SeatResponse{GameID: g.ID.String(), Seat: -1, Seed: g.Seed}
		seat, err := g.ClaimSeat(req.Password)
		switch {
		case errors.Is(err, game.ErrNoFreeSeat):
		case err != nil:
			writeError(w, err)
			return
		default:
			token, err := auth.CreateSeatToken(g.ID, seat)
			if err != nil {
				writeError(w, err)
				return
			}
			resp.Seat, resp.Token = seat, token
		}

		gs.Logger.WithFields(logrus.Fields{"game_id": g.ID, "seat": resp.Seat}).Info("game created over http")
		writeJSON(w, http.StatusOK, resp)
	}
}

// JoinGameHandler claims the next free human seat: POST /game/join/{id}.
func JoinGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		gameID, err := gameIDFromPath(r.URL.Path, "/game/join/")
		if err != nil {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			writeError(w, fmt.Errorf("%w: %s", game.ErrGameNotFound, gameID))
			return
		}
		var req JoinGameRequest
		if err := decodeOptional(r, &req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		seat, err := g.ClaimSeat(req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		token, err := auth.CreateSeatToken(g.ID, seat)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SeatResponse{GameID: g.ID.String(), Seat: seat, Token: token})
	}
}

// GameStateHandler returns the caller's view of the table: GET /game/state/{id}.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		gameID, err := gameIDFromPath(r.URL.Path, "/game/state/")
		if err != nil {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			writeError(w, fmt.Errorf("%w: %s", game.ErrGameNotFound, gameID))
			return
		}
		seat, err := authenticateSeat(r, gameID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g.SyncState(seat))
	}
}

// GameHistoryHandler returns the executed move log: GET /game/history/{id}.
// The log is public, so any seat of the game may read it.
func GameHistoryHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := gameIDFromPath(r.URL.Path, "/game/history/")
		if err != nil {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}
		g, ok := gs.GameStore.GetGame(gameID)
		if !ok {
			writeError(w, fmt.Errorf("%w: %s", game.ErrGameNotFound, gameID))
			return
		}
		if _, err := authenticateSeat(r, gameID); err != nil {
			writeError(w, err)
			return
		}
		hist := g.Engine().History()
		if hist == nil {
			hist = []caps.PlayedMove{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"game_id": gameID, "moves": hist})
	}
}
