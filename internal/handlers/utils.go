package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jason-s-yu/caps/internal/auth"
	"github.com/jason-s-yu/caps/internal/game"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// tokenFromRequest looks for a seat token in the Authorization header, the
// auth_token cookie, then the token query parameter.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if t := extractCookieToken(r.Header.Get("Cookie"), "auth_token"); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

// authenticateSeat checks that r carries a token for gameID and returns its seat.
func authenticateSeat(r *http.Request, gameID uuid.UUID) (int, error) {
	tokenGame, seat, err := auth.AuthenticateSeatToken(tokenFromRequest(r))
	if err != nil {
		return 0, err
	}
	if tokenGame != gameID {
		return 0, auth.ErrInvalidToken
	}
	return seat, nil
}

// gameIDFromPath parses the id following prefix, e.g. "/game/state/".
func gameIDFromPath(path, prefix string) (uuid.UUID, error) {
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.Index(rest, "/"); i != -1 {
		rest = rest[:i]
	}
	return uuid.Parse(rest)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps session and auth errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNotInitialized):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrBadPassword), errors.Is(err, game.ErrBotSeat):
		return http.StatusForbidden
	case errors.Is(err, game.ErrNoFreeSeat), errors.Is(err, game.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidSeat), errors.Is(err, game.ErrIllegalMove):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
}
