package game

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openduel/engine-go/internal/game/state"
)

// NullEngine is a stub that accepts every action without applying any
// rules, recording it for inspection. The gateway runs it in demo mode
// and wiring tests exercise transport plumbing against it.
type NullEngine struct {
	log *zap.Logger

	mu      sync.Mutex
	gs      *state.GameState
	actions []RecordedAction
	signals chan Signal
}

// RecordedAction is one action the null engine accepted.
type RecordedAction struct {
	PlayerID string
	Action   Action
}

// nullActionCap bounds the recorded history.
const nullActionCap = 200

// NewNullEngine builds a stub engine for the given players. The state it
// hands back never changes beyond the player roster.
func NewNullEngine(gameID string, players []string, logger *zap.Logger) *NullEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gs := &state.GameState{
		GameID:  gameID,
		Turn:    1,
		Phase:   state.PhasePrecombatMain,
		Step:    state.StepMain1,
		Players: make(map[string]*state.PlayerState, len(players)),
		Cards:   make(map[string]*state.CardObject),
	}
	for _, id := range players {
		gs.Players[id] = &state.PlayerState{ID: id, Life: state.DefaultStartingLife, LandLimit: 1}
		gs.PlayerOrder = append(gs.PlayerOrder, id)
	}
	if len(players) > 0 {
		gs.ActivePlayer = players[0]
		gs.PriorityPlayer = players[0]
	}

	logger.Info("null engine started game",
		zap.String("game_id", gameID),
		zap.Strings("players", players),
	)
	return &NullEngine{
		log:     logger,
		gs:      gs,
		signals: make(chan Signal, defaultSignalBuffer),
	}
}

// ApplyAction records the action and reports success.
func (n *NullEngine) ApplyAction(playerID string, action Action) (*state.GameState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.actions = append(n.actions, RecordedAction{PlayerID: playerID, Action: action})
	if len(n.actions) > nullActionCap {
		n.actions = n.actions[len(n.actions)-nullActionCap:]
	}

	n.log.Debug("null engine recorded action",
		zap.String("game_id", n.gs.GameID),
		zap.String("player_id", playerID),
		zap.String("action", action.Kind.String()),
	)

	select {
	case n.signals <- Signal{Kind: SignalStateChanged, GameID: n.gs.GameID, State: n.gs}:
	default:
	}
	return n.gs, nil
}

// View renders the static roster state.
func (n *NullEngine) View(viewerID string) GameView {
	n.mu.Lock()
	defer n.mu.Unlock()
	return BuildView(n.gs, viewerID)
}

// State returns the static state.
func (n *NullEngine) State() *state.GameState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gs
}

// Signals returns the outbound signal channel.
func (n *NullEngine) Signals() <-chan Signal {
	return n.signals
}

// Actions returns a snapshot of the recorded actions.
func (n *NullEngine) Actions() []RecordedAction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]RecordedAction(nil), n.actions...)
}
