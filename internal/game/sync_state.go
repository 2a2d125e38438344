// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/caps/internal/caps"
)

// SeatState is one seat as seen by the requesting seat. Only the requester's own
// hand is revealed.
type SeatState struct {
	Seat          int         `json:"seat"`
	HandSize      int         `json:"hand_size"`
	Bot           bool        `json:"bot"`
	Connected     bool        `json:"connected"`
	IsCurrentTurn bool        `json:"is_current_turn"`
	Finished      bool        `json:"finished"`
	Hand          []caps.Card `json:"hand,omitempty"`
}

// SyncState is the full picture a client needs after connecting or reconnecting.
type SyncState struct {
	GameID        uuid.UUID       `json:"game_id"`
	Seat          int             `json:"seat"`
	CurrentHolder int             `json:"current_holder"`
	ActiveType    caps.ActiveType `json:"active_type"`
	TopRank       caps.Rank       `json:"top_rank"`
	Pile          caps.Pile       `json:"pile"`
	MovesPlayed   int             `json:"moves_played"`
	GameOver      bool            `json:"game_over"`
	FinishOrder   []int           `json:"finish_order,omitempty"`
	Seats         []SeatState     `json:"seats"`
	LegalMoves    []caps.Move     `json:"legal_moves,omitempty"`
}

// SyncState returns the state as seen from seat.
func (g *CapsGame) SyncState(seat int) SyncState {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.syncState(seat)
}

// syncState builds the per-seat view. Assumes lock is held.
func (g *CapsGame) syncState(seat int) SyncState {
	holder := g.engine.CurrentHolder()
	st := SyncState{
		GameID:        g.ID,
		Seat:          seat,
		CurrentHolder: holder,
		ActiveType:    g.engine.ActiveType(),
		TopRank:       g.engine.TopRank(),
		Pile:          g.engine.Pile(),
		MovesPlayed:   len(g.engine.History()),
		GameOver:      g.GameOver,
		FinishOrder:   append([]int(nil), g.FinishOrder...),
	}
	if st.Pile == nil {
		st.Pile = caps.Pile{}
	}

	hands := g.engine.Hands()
	for i, s := range g.Seats {
		ss := SeatState{
			Seat:          i,
			HandSize:      hands[i].Count(),
			Bot:           s.Bot,
			Connected:     s.Connected,
			IsCurrentTurn: i == holder,
			Finished:      hands[i].IsEmpty(),
		}
		if i == seat {
			// Slots keep their positions so clients can address them in moves.
			ss.Hand = hands[i][:]
		}
		st.Seats = append(st.Seats, ss)
	}
	if !g.GameOver && seat >= 0 && seat < caps.NumPlayers {
		st.LegalMoves = g.engine.LegalMoves(seat)
	}
	return st
}

// sendSyncState sends the private state to seat. Assumes lock is held.
func (g *CapsGame) sendSyncState(seat int) {
	if g.Seats[seat].Bot {
		return
	}
	st := g.syncState(seat)
	g.fireEventToPlayer(seat, GameEvent{Type: EventPrivateSyncState, State: &st})
}
