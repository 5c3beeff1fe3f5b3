// Package server is the reference caller of the rules engine: a game
// lifecycle manager plus a WebSocket gateway. Each hosted game runs one
// worker goroutine so distinct games proceed in parallel while actions
// within a game stay strictly serialized.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game"
	"github.com/openduel/engine-go/internal/game/state"
	"github.com/openduel/engine-go/internal/metrics"
	"go.uber.org/zap"
)

// GameStatus represents the lifecycle state of a hosted game.
type GameStatus int

const (
	GameStatusWaiting GameStatus = iota
	GameStatusInProgress
	GameStatusFinished
)

func (s GameStatus) String() string {
	switch s {
	case GameStatusWaiting:
		return "WAITING"
	case GameStatusInProgress:
		return "IN_PROGRESS"
	case GameStatusFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Engine is the surface the gateway drives. Both *game.Engine and
// *game.NullEngine satisfy it.
type Engine interface {
	ApplyAction(playerID string, action game.Action) (*state.GameState, error)
	View(viewerID string) game.GameView
	State() *state.GameState
	Signals() <-chan game.Signal
}

// Seat describes one player joining a new game: identity plus the deck
// as definition references resolved against the card source.
type Seat struct {
	PlayerID string         `json:"player_id"`
	Name     string         `json:"name"`
	Deck     []carddata.Ref `json:"deck"`
}

// Options tunes hosted-game construction.
type Options struct {
	StartingLife int
	SignalBuffer int
	// IdleTimeout, when positive, makes the game worker submit a
	// synthetic pass_priority for the priority holder after this much
	// inactivity.
	IdleTimeout time.Duration
}

type queuedAction struct {
	playerID string
	action   game.Action
	reply    chan actionResult
}

type actionResult struct {
	state *state.GameState
	err   error
}

// HostedGame is one game under management: the engine, its seats, its
// subscribers and its action worker.
type HostedGame struct {
	ID         string
	engine     Engine
	status     GameStatus
	seatNames  map[string]string // playerID -> display name
	seatOrder  []string
	joined     map[string]bool
	winnerID   string
	createTime time.Time
	startTime  *time.Time
	endTime    *time.Time

	idleTimeout time.Duration
	actions     chan queuedAction
	subscribers map[chan game.Signal]bool
	done        chan struct{}
	closeOnce   sync.Once

	logger  *zap.Logger
	metrics *metrics.Metrics
	mu      sync.RWMutex
}

// Join marks a seat as occupied. When every seat is occupied the game
// moves to IN_PROGRESS and actions are accepted.
func (g *HostedGame) Join(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seatNames[playerID]; !ok {
		return fmt.Errorf("player %s has no seat in game %s", playerID, g.ID)
	}
	if g.status == GameStatusFinished {
		return fmt.Errorf("game %s is finished", g.ID)
	}
	g.joined[playerID] = true

	if g.status == GameStatusWaiting && len(g.joined) == len(g.seatNames) {
		g.status = GameStatusInProgress
		now := time.Now()
		g.startTime = &now
		g.metrics.GameStarted()
		g.logger.Info("game started",
			zap.String("game_id", g.ID),
			zap.Strings("players", g.seatOrder),
		)
	}
	return nil
}

// Submit queues one action for the game worker and waits for the
// engine's verdict. Actions are rejected while seats are still empty.
func (g *HostedGame) Submit(playerID string, action game.Action) (*state.GameState, error) {
	g.mu.RLock()
	status := g.status
	g.mu.RUnlock()

	if status == GameStatusWaiting {
		return nil, fmt.Errorf("game %s is waiting for players", g.ID)
	}

	qa := queuedAction{playerID: playerID, action: action, reply: make(chan actionResult, 1)}
	select {
	case g.actions <- qa:
	case <-g.done:
		return nil, fmt.Errorf("game %s is closed", g.ID)
	}

	select {
	case res := <-qa.reply:
		return res.state, res.err
	case <-g.done:
		return nil, fmt.Errorf("game %s is closed", g.ID)
	}
}

// View renders the game as seen by viewerID.
func (g *HostedGame) View(viewerID string) game.GameView {
	return g.engine.View(viewerID)
}

// Status returns the lifecycle state.
func (g *HostedGame) Status() GameStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Winner returns the winner's player id once the game is finished.
func (g *HostedGame) Winner() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.winnerID
}

// Players returns the seat order.
func (g *HostedGame) Players() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.seatOrder...)
}

// HasSeat reports whether playerID belongs to this game.
func (g *HostedGame) HasSeat(playerID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.seatNames[playerID]
	return ok
}

// Subscribe registers a signal fan-out channel. The worker never blocks
// on subscribers: a full channel drops the signal.
func (g *HostedGame) Subscribe() chan game.Signal {
	ch := make(chan game.Signal, 16)
	g.mu.Lock()
	g.subscribers[ch] = true
	g.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a fan-out channel.
func (g *HostedGame) Unsubscribe(ch chan game.Signal) {
	g.mu.Lock()
	if g.subscribers[ch] {
		delete(g.subscribers, ch)
		close(ch)
	}
	g.mu.Unlock()
}

// Close stops the worker and closes all subscriber channels.
func (g *HostedGame) Close() {
	g.closeOnce.Do(func() {
		close(g.done)
	})
}

// run is the per-game worker: it serializes actions, forwards engine
// signals to subscribers, and fires idle-timeout synthetic passes.
func (g *HostedGame) run() {
	var idleC <-chan time.Time
	var idleTimer *time.Timer
	if g.idleTimeout > 0 {
		idleTimer = time.NewTimer(g.idleTimeout)
		idleC = idleTimer.C
		defer idleTimer.Stop()
	}

	resetIdle := func() {
		if idleTimer == nil {
			return
		}
		if !idleTimer.Stop() {
			select {
			case <-idleTimer.C:
			default:
			}
		}
		idleTimer.Reset(g.idleTimeout)
	}

	defer g.closeSubscribers()

	for {
		select {
		case qa := <-g.actions:
			st, err := g.engine.ApplyAction(qa.playerID, qa.action)
			qa.reply <- actionResult{state: st, err: err}
			resetIdle()

		case sig := <-g.engine.Signals():
			g.fanOut(sig)
			if sig.Kind == game.SignalGameOver {
				g.markFinished(sig.WinnerID)
			}

		case <-idleC:
			g.fireIdlePass()
			resetIdle()

		case <-g.done:
			return
		}
	}
}

// fireIdlePass submits a synthetic pass_priority for whoever holds
// priority. Rejections are expected (e.g. a step without priority) and
// only logged at debug level.
func (g *HostedGame) fireIdlePass() {
	g.mu.RLock()
	status := g.status
	g.mu.RUnlock()
	if status != GameStatusInProgress {
		return
	}

	gs := g.engine.State()
	if gs == nil || gs.Over || gs.PriorityPlayer == "" {
		return
	}
	if _, err := g.engine.ApplyAction(gs.PriorityPlayer, game.Action{Kind: game.ActionPassPriority}); err != nil {
		g.logger.Debug("idle pass rejected",
			zap.String("game_id", g.ID),
			zap.String("player_id", gs.PriorityPlayer),
			zap.Error(err),
		)
		return
	}
	g.logger.Info("idle timeout, passed priority",
		zap.String("game_id", g.ID),
		zap.String("player_id", gs.PriorityPlayer),
	)
}

func (g *HostedGame) fanOut(sig game.Signal) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for ch := range g.subscribers {
		select {
		case ch <- sig:
		default:
		}
	}
}

func (g *HostedGame) markFinished(winnerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == GameStatusFinished {
		return
	}
	g.status = GameStatusFinished
	g.winnerID = winnerID
	now := time.Now()
	g.endTime = &now
	g.logger.Info("game finished",
		zap.String("game_id", g.ID),
		zap.String("winner_id", winnerID),
	)
}

func (g *HostedGame) closeSubscribers() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ch := range g.subscribers {
		close(ch)
	}
	g.subscribers = make(map[chan game.Signal]bool)
}

// Manager manages hosted games.
type Manager struct {
	games   map[string]*HostedGame
	source  carddata.DefinitionSource
	tokens  carddata.TokenSource
	opts    Options
	metrics *metrics.Metrics
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewManager creates a game manager. source resolves deck references at
// game creation; tokens is handed to each engine for token effects.
func NewManager(source carddata.DefinitionSource, tokens carddata.TokenSource, m *metrics.Metrics, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StartingLife <= 0 {
		opts.StartingLife = state.DefaultStartingLife
	}
	return &Manager{
		games:   make(map[string]*HostedGame),
		source:  source,
		tokens:  tokens,
		opts:    opts,
		metrics: m,
		logger:  logger,
	}
}

// CreateGame resolves each seat's deck, builds a fresh game and starts
// its worker. A zero seed is replaced with the current time.
func (m *Manager) CreateGame(ctx context.Context, gameID string, seed int64, seats []Seat) (*HostedGame, error) {
	if len(seats) < 2 {
		return nil, fmt.Errorf("need at least 2 seats, got %d", len(seats))
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	setups := make([]state.PlayerSetup, 0, len(seats))
	for _, seat := range seats {
		if seat.PlayerID == "" {
			return nil, fmt.Errorf("seat is missing a player id")
		}
		deck := make([]carddata.CardDefinition, 0, len(seat.Deck))
		for _, ref := range seat.Deck {
			def, err := m.source.Definition(ctx, ref)
			if err != nil {
				return nil, fmt.Errorf("deck of %s: %w", seat.PlayerID, err)
			}
			deck = append(deck, def)
		}
		setups = append(setups, state.PlayerSetup{
			ID:   seat.PlayerID,
			Name: seat.Name,
			Deck: deck,
			Life: m.opts.StartingLife,
		})
	}

	gs, err := state.NewGame(gameID, seed, setups)
	if err != nil {
		return nil, err
	}

	engine := game.NewEngine(gs, game.Config{
		Logger:       m.logger,
		Tokens:       m.tokens,
		Metrics:      m.metrics,
		SignalBuffer: m.opts.SignalBuffer,
	})

	hosted := m.register(gs.GameID, engine, seats)
	m.logger.Info("game created",
		zap.String("game_id", gs.GameID),
		zap.Int64("seed", seed),
		zap.Int("seats", len(seats)),
	)
	return hosted, nil
}

// CreateDemoGame hosts a NullEngine-backed game: every action is
// accepted and recorded, nothing resolves. Seats are pre-joined.
func (m *Manager) CreateDemoGame(gameID string, players []string) *HostedGame {
	engine := game.NewNullEngine(gameID, players, m.logger)

	seats := make([]Seat, 0, len(players))
	for _, id := range players {
		seats = append(seats, Seat{PlayerID: id, Name: id})
	}
	hosted := m.register(gameID, engine, seats)

	hosted.mu.Lock()
	for _, id := range players {
		hosted.joined[id] = true
	}
	hosted.status = GameStatusInProgress
	now := time.Now()
	hosted.startTime = &now
	hosted.mu.Unlock()
	m.metrics.GameStarted()

	m.logger.Info("demo game created", zap.String("game_id", gameID))
	return hosted
}

func (m *Manager) register(gameID string, engine Engine, seats []Seat) *HostedGame {
	hosted := &HostedGame{
		ID:          gameID,
		engine:      engine,
		status:      GameStatusWaiting,
		seatNames:   make(map[string]string, len(seats)),
		seatOrder:   make([]string, 0, len(seats)),
		joined:      make(map[string]bool, len(seats)),
		createTime:  time.Now(),
		idleTimeout: m.opts.IdleTimeout,
		actions:     make(chan queuedAction),
		subscribers: make(map[chan game.Signal]bool),
		done:        make(chan struct{}),
		logger:      m.logger,
		metrics:     m.metrics,
	}
	for _, seat := range seats {
		hosted.seatNames[seat.PlayerID] = seat.Name
		hosted.seatOrder = append(hosted.seatOrder, seat.PlayerID)
	}

	m.mu.Lock()
	m.games[gameID] = hosted
	m.mu.Unlock()

	go hosted.run()
	return hosted
}

// Game retrieves a hosted game by id.
func (m *Manager) Game(gameID string) (*HostedGame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	return g, ok
}

// RemoveGame stops a game's worker and drops it from the registry.
func (m *Manager) RemoveGame(gameID string) {
	m.mu.Lock()
	g, ok := m.games[gameID]
	delete(m.games, gameID)
	m.mu.Unlock()

	if ok {
		g.Close()
		m.logger.Info("game removed", zap.String("game_id", gameID))
	}
}

// ActiveGameCount returns the number of games not yet finished.
func (m *Manager) ActiveGameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, g := range m.games {
		if g.Status() != GameStatusFinished {
			count++
		}
	}
	return count
}

// CloseAll stops every game worker. Used during shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	games := make([]*HostedGame, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.games = make(map[string]*HostedGame)
	m.mu.Unlock()

	for _, g := range games {
		g.Close()
	}
}
