package historian

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jason-s-yu/caps/internal/cache"
	"github.com/jason-s-yu/caps/internal/caps"
)

var (
	ErrEmptyLog = errors.New("no moves to replay")
	ErrMixedLog = errors.New("records belong to different games")
	ErrGap      = errors.New("sequence gap in move log")
	ErrDiverged = errors.New("replay diverged from move log")
)

// Replay rebuilds a game from its move log and checks every recorded outcome
// (cards played, next holder, active type) against the engine.
func Replay(recs []cache.MoveRecord) (*caps.Game, error) {
	if len(recs) == 0 {
		return nil, ErrEmptyLog
	}
	sorted := slices.Clone(recs)
	slices.SortFunc(sorted, func(a, b cache.MoveRecord) int { return a.Seq - b.Seq })

	first := sorted[0]
	g := caps.NewGame(first.Seed)
	for i, rec := range sorted {
		if rec.GameID != first.GameID || rec.Seed != first.Seed {
			return nil, fmt.Errorf("%w: seq %d", ErrMixedLog, rec.Seq)
		}
		if rec.Seq != i+1 {
			return nil, fmt.Errorf("%w: want seq %d, got %d", ErrGap, i+1, rec.Seq)
		}
		kind, err := caps.ParseMoveKind(rec.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: seq %d: %w", ErrDiverged, rec.Seq, err)
		}

		ok, _ := g.DoMove(caps.Move{Mover: rec.Seat, Kind: kind, Slots: rec.Slots})
		if !ok {
			return nil, fmt.Errorf("%w: seq %d: %s %v rejected", ErrDiverged, rec.Seq, kind, rec.Slots)
		}
		if err := checkOutcome(g, rec); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func checkOutcome(g *caps.Game, rec cache.MoveRecord) error {
	hist := g.History()
	if len(hist) != rec.Seq {
		return fmt.Errorf("%w: seq %d: history has %d entries", ErrDiverged, rec.Seq, len(hist))
	}
	var cards []string
	for _, c := range hist[len(hist)-1].Cards {
		cards = append(cards, c.String())
	}
	if strings.Join(cards, ",") != strings.Join(rec.Cards, ",") {
		return fmt.Errorf("%w: seq %d: played %v, log says %v", ErrDiverged, rec.Seq, cards, rec.Cards)
	}
	if g.CurrentHolder() != rec.Holder || g.ActiveType().String() != rec.Active {
		return fmt.Errorf("%w: seq %d: holder %d/%s, log says %d/%s",
			ErrDiverged, rec.Seq, g.CurrentHolder(), g.ActiveType(), rec.Holder, rec.Active)
	}
	return nil
}
