package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openduel/engine-go/internal/game/state"
)

// duelHarness drives a real engine through complete actions the way a
// gateway would, with helpers for the repetitive sequences.
type duelHarness struct {
	t *testing.T
	e *Engine
}

func newDuel(t *testing.T) *duelHarness {
	t.Helper()
	return newDuelWith(t, duelState())
}

func newDuelWith(t *testing.T, gs *state.GameState) *duelHarness {
	t.Helper()
	e := NewEngine(gs, Config{
		Logger: zaptest.NewLogger(t),
		Tokens: testCatalog(),
		// Large enough that gameplay tests never drop signals.
		SignalBuffer: 256,
	})
	return &duelHarness{t: t, e: e}
}

func (h *duelHarness) state() *state.GameState {
	return h.e.State()
}

// apply submits an action that must succeed.
func (h *duelHarness) apply(playerID string, action Action) *state.GameState {
	h.t.Helper()
	gs, err := h.e.ApplyAction(playerID, action)
	require.NoError(h.t, err, "action %s by %s", action.Kind, playerID)
	return gs
}

// applyErr submits an action that must be rejected.
func (h *duelHarness) applyErr(playerID string, action Action) error {
	h.t.Helper()
	_, err := h.e.ApplyAction(playerID, action)
	require.Error(h.t, err, "action %s by %s unexpectedly succeeded", action.Kind, playerID)
	return err
}

func (h *duelHarness) pass(playerID string) {
	h.t.Helper()
	h.apply(playerID, Action{Kind: ActionPassPriority})
}

// passRound has both players pass once, starting from the priority
// holder, which resolves the top of the stack or advances the step.
func (h *duelHarness) passRound() {
	h.t.Helper()
	h.pass(h.e.State().PriorityPlayer)
	h.pass(h.e.State().PriorityPlayer)
}

// passUntil passes priority until done reports true, up to a bound.
func (h *duelHarness) passUntil(label string, done func(*state.GameState) bool) {
	h.t.Helper()
	for i := 0; i < 64; i++ {
		gs := h.e.State()
		if done(gs) {
			return
		}
		h.pass(gs.PriorityPlayer)
	}
	h.t.Fatalf("gave up waiting for %s after 64 passes", label)
}

func (h *duelHarness) passUntilStep(step state.Step) {
	h.t.Helper()
	h.passUntil(step.String(), func(gs *state.GameState) bool {
		return gs.Step == step
	})
}

// tap activates the first ability of each card, which for fixture lands
// is their mana ability.
func (h *duelHarness) tap(playerID string, cardIDs ...string) {
	h.t.Helper()
	for _, id := range cardIDs {
		h.apply(playerID, Action{Kind: ActionActivateAbility, CardID: id, AbilityIndex: 0})
	}
}

func (h *duelHarness) life(playerID string) int {
	h.t.Helper()
	player, ok := h.e.State().Player(playerID)
	require.True(h.t, ok, "player %s not in game", playerID)
	return player.Life
}

func (h *duelHarness) zoneOf(cardID string) state.Zone {
	h.t.Helper()
	card, ok := h.e.State().Card(cardID)
	require.True(h.t, ok, "card %s not in game", cardID)
	return card.Zone
}

// drainSignals empties the signal channel.
func (h *duelHarness) drainSignals() []Signal {
	var out []Signal
	for {
		select {
		case sig := <-h.e.Signals():
			out = append(out, sig)
		default:
			return out
		}
	}
}
