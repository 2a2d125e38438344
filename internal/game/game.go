// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/caps/internal/agent"
	"github.com/jason-s-yu/caps/internal/auth"
	"github.com/jason-s-yu/caps/internal/cache"
	"github.com/jason-s-yu/caps/internal/caps"
)

var (
	ErrGameOver     = errors.New("game is over")
	ErrIllegalMove  = errors.New("illegal move")
	ErrInvalidSeat  = errors.New("invalid seat")
	ErrBotSeat      = errors.New("seat is played by a bot")
	ErrNoFreeSeat   = errors.New("no free seat")
	ErrBadPassword  = errors.New("wrong table password")
	ErrGameNotFound = errors.New("game not found")
)

// maxBotSteps bounds one burst of bot play between human actions.
const maxBotSteps = 2000

// GameEventType names an event broadcast to clients.
type GameEventType string

const (
	EventPlayerMove       GameEventType = "player_move"
	EventPlayerPass       GameEventType = "player_pass"
	EventPileCleared      GameEventType = "pile_cleared"
	EventPlayerOut        GameEventType = "player_out"
	EventGamePlayerTurn   GameEventType = "game_player_turn"
	EventPrivateSyncState GameEventType = "private_sync_state"
	EventGameEnd          GameEventType = "game_end"
	EventError            GameEventType = "error"
)

// GameEvent is the single shape every server event takes on the wire.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Seat    *int                   `json:"seat,omitempty"`
	Kind    caps.MoveKind          `json:"kind,omitempty"`
	Cards   []caps.Card            `json:"cards,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *SyncState             `json:"state,omitempty"`
}

func seatRef(s int) *int { return &s }

// Seat is one of the five places at the table.
type Seat struct {
	Index     int  `json:"seat"`
	Bot       bool `json:"bot"`
	Claimed   bool `json:"claimed"`
	Connected bool `json:"connected"`
}

// Config describes a new table.
type Config struct {
	// Seed deals the cards; 0 picks one from the clock.
	Seed int64
	// Bots lists seats played by a RandomAgent.
	Bots []int
	// BotPassChance is each bot's chance to pass on its turn while holding a play.
	BotPassChance float64
	// PasswordHash, when set, is required to claim a seat.
	PasswordHash string
}

// CapsGame is one live table: the engine plus seats, bots and event plumbing.
// All exported methods lock Mu. BroadcastFn and BroadcastToPlayerFn run with Mu
// held and must not call back into the game.
type CapsGame struct {
	ID        uuid.UUID
	Seed      int64
	CreatedAt time.Time
	Seats     [caps.NumPlayers]Seat
	GameOver  bool
	EndedAt   time.Time

	// FinishOrder lists seats in the order they went out; the last seat is appended at game end.
	FinishOrder []int

	PasswordHash string

	Mu sync.Mutex

	engine *caps.Game
	bots   map[int]*agent.RandomAgent
	seq    int

	// BroadcastFn sends an event to every connected seat. If nil, nothing is sent.
	BroadcastFn func(ev GameEvent)

	// BroadcastToPlayerFn sends an event to a single seat.
	BroadcastToPlayerFn func(seat int, ev GameEvent)

	// PublishFn receives every accepted move. Defaults to an ordered async Redis push.
	PublishFn func(rec cache.MoveRecord)

	// pushFn delivers one record; pubCh feeds the single goroutine calling it.
	pushFn func(ctx context.Context, rec cache.MoveRecord) error
	pubCh  chan cache.MoveRecord

	Logger logrus.FieldLogger
}

// publishQueueSize bounds the records waiting for Redis per game.
const publishQueueSize = 256

// NewCapsGame deals a new table.
func NewCapsGame(cfg Config, logger logrus.FieldLogger) (*CapsGame, error) {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	g := &CapsGame{
		ID:           uuid.New(),
		Seed:         cfg.Seed,
		CreatedAt:    time.Now(),
		PasswordHash: cfg.PasswordHash,
		engine:       caps.NewGame(cfg.Seed),
		bots:         make(map[int]*agent.RandomAgent),
	}
	g.Logger = logger.WithField("game_id", g.ID)
	g.PublishFn = g.publishAsync
	g.pushFn = cache.PublishMove

	for i := range g.Seats {
		g.Seats[i].Index = i
	}
	// Bots draw from their own stream so the deal stays a function of Seed alone.
	rng := rand.New(rand.NewSource(cfg.Seed ^ 0x5eed))
	for _, s := range cfg.Bots {
		if s < 0 || s >= caps.NumPlayers {
			return nil, fmt.Errorf("%w: bot seat %d", ErrInvalidSeat, s)
		}
		a := agent.NewRandomAgent(s, rng)
		a.PassChance = cfg.BotPassChance
		g.bots[s] = a
		g.Seats[s].Bot = true
		g.Seats[s].Claimed = true
	}

	g.Logger.WithFields(logrus.Fields{
		"seed":   cfg.Seed,
		"bots":   cfg.Bots,
		"holder": g.engine.CurrentHolder(),
	}).Info("game created")
	return g, nil
}

// Start lets bots act if one of them holds the opening card.
func (g *CapsGame) Start() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.runBots()
	g.broadcastPlayerTurn()
}

// ClaimSeat hands out the lowest unclaimed human seat. password is checked only
// when the table has one.
func (g *CapsGame) ClaimSeat(password string) (int, error) {
	// Hashing is slow; do it before taking the lock.
	if g.PasswordHash != "" {
		ok, err := auth.CheckPassword(password, g.PasswordHash)
		if err != nil {
			return 0, fmt.Errorf("checking table password: %w", err)
		}
		if !ok {
			return 0, ErrBadPassword
		}
	}

	g.Mu.Lock()
	defer g.Mu.Unlock()
	for i := range g.Seats {
		if !g.Seats[i].Claimed {
			g.Seats[i].Claimed = true
			g.Logger.WithField("seat", i).Info("seat claimed")
			return i, nil
		}
	}
	return 0, ErrNoFreeSeat
}

// HandleConnect marks seat connected and sends it a private sync state.
func (g *CapsGame) HandleConnect(seat int) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if err := g.checkHumanSeat(seat); err != nil {
		return err
	}
	g.Seats[seat].Connected = true
	g.Seats[seat].Claimed = true
	g.Logger.WithField("seat", seat).Info("player connected")
	g.sendSyncState(seat)
	return nil
}

// HandleDisconnect marks seat disconnected. The seat keeps its cards and its token.
func (g *CapsGame) HandleDisconnect(seat int) {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if seat < 0 || seat >= caps.NumPlayers {
		return
	}
	g.Seats[seat].Connected = false
	g.Logger.WithField("seat", seat).Info("player disconnected")
}

// SubmitMove validates and applies a move from seat, then lets bots respond.
func (g *CapsGame) SubmitMove(seat int, kind caps.MoveKind, slots []int) error {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.GameOver {
		return ErrGameOver
	}
	if err := g.checkHumanSeat(seat); err != nil {
		return err
	}

	m := caps.Move{Mover: seat, Kind: kind, Slots: slots}
	if !g.apply(m) {
		g.Logger.WithFields(logrus.Fields{"seat": seat, "kind": kind, "slots": slots}).Debug("rejected move")
		return fmt.Errorf("%w: %s %v", ErrIllegalMove, kind, slots)
	}
	g.runBots()
	g.broadcastPlayerTurn()
	return nil
}

// Pass submits a PASS for seat.
func (g *CapsGame) Pass(seat int) error {
	return g.SubmitMove(seat, caps.Pass, nil)
}

// LegalMoves lists what seat may submit right now.
func (g *CapsGame) LegalMoves(seat int) []caps.Move {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	if g.GameOver {
		return nil
	}
	return g.engine.LegalMoves(seat)
}

// Engine returns a copy of the underlying engine state.
func (g *CapsGame) Engine() *caps.Game {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.engine.Clone()
}

func (g *CapsGame) checkHumanSeat(seat int) error {
	if seat < 0 || seat >= caps.NumPlayers {
		return fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	if g.Seats[seat].Bot {
		return fmt.Errorf("%w: %d", ErrBotSeat, seat)
	}
	return nil
}

// apply runs m through the engine and reports what changed. Assumes lock is held.
func (g *CapsGame) apply(m caps.Move) bool {
	before := len(g.engine.History())
	hadPile := g.engine.ActiveType() != caps.ActiveNone

	ok, _ := g.engine.DoMove(m)
	if !ok {
		return false
	}
	hist := g.engine.History()
	if len(hist) == before {
		// Out-of-turn pass: accepted, nothing happened.
		return true
	}
	played := hist[len(hist)-1]
	g.seq++

	log := g.Logger.WithFields(logrus.Fields{"seat": m.Mover, "kind": m.Kind, "seq": g.seq})
	if played.Kind == caps.Pass {
		log.Debug("pass")
		g.fireEvent(GameEvent{Type: EventPlayerPass, Seat: seatRef(m.Mover)})
	} else {
		log.WithField("cards", played.Cards).Debug("move")
		g.fireEvent(GameEvent{Type: EventPlayerMove, Seat: seatRef(m.Mover), Kind: played.Kind, Cards: played.Cards})
	}

	cleared := played.Kind == caps.Completion ||
		(played.Kind == caps.Single && played.Cards[0].Rank == caps.RankTwo) ||
		(hadPile && g.engine.ActiveType() == caps.ActiveNone)
	if cleared {
		g.fireEvent(GameEvent{Type: EventPileCleared, Seat: seatRef(m.Mover)})
	}

	g.checkPlayerOut(m.Mover)
	g.publish(m, played)
	if played.Kind != caps.Pass {
		g.sendSyncState(m.Mover)
	}
	return true
}

// checkPlayerOut records seat going out and ends the game once one seat holds cards. Assumes lock is held.
func (g *CapsGame) checkPlayerOut(seat int) {
	if !g.engine.Finished(seat) {
		return
	}
	for _, s := range g.FinishOrder {
		if s == seat {
			return
		}
	}
	g.FinishOrder = append(g.FinishOrder, seat)
	g.Logger.WithFields(logrus.Fields{"seat": seat, "place": len(g.FinishOrder)}).Info("player out")
	g.fireEvent(GameEvent{
		Type:    EventPlayerOut,
		Seat:    seatRef(seat),
		Payload: map[string]interface{}{"place": len(g.FinishOrder)},
	})

	if len(g.FinishOrder) == caps.NumPlayers-1 {
		g.endGame()
	}
}

// endGame appends the last seat still holding cards and broadcasts the result. Assumes lock is held.
func (g *CapsGame) endGame() {
	for p := 0; p < caps.NumPlayers; p++ {
		if !g.engine.Finished(p) {
			g.FinishOrder = append(g.FinishOrder, p)
		}
	}
	g.GameOver = true
	g.EndedAt = time.Now()
	g.Logger.WithField("finish_order", g.FinishOrder).Info("game over")
	g.fireEvent(GameEvent{
		Type:    EventGameEnd,
		Payload: map[string]interface{}{"finish_order": g.FinishOrder, "winner": g.FinishOrder[0]},
	})
}

// runBots lets bot seats snipe and play until a human must act. A holder who has
// already gone out is passed for automatically. Assumes lock is held.
func (g *CapsGame) runBots() {
	for step := 0; step < maxBotSteps && !g.GameOver; step++ {
		if holder := g.engine.CurrentHolder(); g.engine.Finished(holder) {
			g.apply(caps.Move{Mover: holder, Kind: caps.Pass})
			continue
		}

		acted := false
		for p := 0; p < caps.NumPlayers; p++ {
			bot, ok := g.bots[p]
			if !ok || p == g.engine.CurrentHolder() {
				continue
			}
			if m := bot.Choose(g.engine); m.Kind == caps.Completion {
				g.apply(m)
				acted = true
				break
			}
		}
		if acted || g.GameOver {
			continue
		}

		bot, ok := g.bots[g.engine.CurrentHolder()]
		if !ok {
			return
		}
		g.apply(bot.Choose(g.engine))
	}
	if !g.GameOver {
		if _, ok := g.bots[g.engine.CurrentHolder()]; ok {
			g.Logger.Warn("bot step limit reached")
		}
	}
}

// broadcastPlayerTurn notifies all seats whose turn it is now. Assumes lock is held.
func (g *CapsGame) broadcastPlayerTurn() {
	if g.GameOver {
		return
	}
	g.fireEvent(GameEvent{
		Type: EventGamePlayerTurn,
		Seat: seatRef(g.engine.CurrentHolder()),
		Payload: map[string]interface{}{
			"active_type": g.engine.ActiveType(),
			"top_rank":    g.engine.TopRank(),
		},
	})
}

func (g *CapsGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

func (g *CapsGame) fireEventToPlayer(seat int, ev GameEvent) {
	if g.BroadcastToPlayerFn != nil && g.Seats[seat].Connected {
		g.BroadcastToPlayerFn(seat, ev)
	}
}

// publish hands the executed move to PublishFn. Assumes lock is held.
func (g *CapsGame) publish(m caps.Move, played caps.PlayedMove) {
	if g.PublishFn == nil {
		return
	}
	rec := cache.MoveRecord{
		GameID:    g.ID,
		Seed:      g.Seed,
		Seq:       g.seq,
		Seat:      played.Mover,
		Kind:      played.Kind.String(),
		Slots:     append([]int(nil), m.Slots...),
		Holder:    g.engine.CurrentHolder(),
		Active:    g.engine.ActiveType().String(),
		GameOver:  g.GameOver,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, c := range played.Cards {
		rec.Cards = append(rec.Cards, c.String())
	}
	g.PublishFn(rec)
}

// publishAsync queues rec for the game's publisher goroutine, which pushes
// records one at a time so the log keeps seq order. Assumes lock is held.
func (g *CapsGame) publishAsync(rec cache.MoveRecord) {
	if g.pubCh == nil {
		g.pubCh = make(chan cache.MoveRecord, publishQueueSize)
		go g.publishLoop(g.pubCh)
	}
	// Blocks only when Redis has fallen publishQueueSize records behind.
	g.pubCh <- rec
	if rec.GameOver {
		close(g.pubCh)
	}
}

func (g *CapsGame) publishLoop(recs <-chan cache.MoveRecord) {
	for rec := range recs {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := g.pushFn(ctx, rec)
		cancel()
		if err != nil && !errors.Is(err, cache.ErrNotConnected) {
			g.Logger.WithError(err).WithField("seq", rec.Seq).Warn("failed to publish move")
		}
	}
}
