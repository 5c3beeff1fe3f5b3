package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openduel/engine-go/internal/game/state"
)

func TestPassPriorityMovesToNextPlayer(t *testing.T) {
	gs := newDuel()

	outcome, err := PassPriority(gs, "p1")

	require.NoError(t, err)
	assert.Equal(t, OutcomePassed, outcome)
	assert.Equal(t, "p2", gs.PriorityPlayer)
	assert.True(t, gs.Players["p1"].Passed)
}

func TestPassPriorityRequiresHolding(t *testing.T) {
	gs := newDuel()

	_, err := PassPriority(gs, "p2")

	require.Error(t, err)
	assert.False(t, gs.Players["p2"].Passed)
}

func TestAllPassEmptyStackAdvances(t *testing.T) {
	gs := newDuel()

	outcome, err := PassPriority(gs, "p1")
	require.NoError(t, err)
	require.Equal(t, OutcomePassed, outcome)

	outcome, err = PassPriority(gs, "p2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanceStep, outcome)
}

func TestAllPassWithStackResolves(t *testing.T) {
	gs := newDuel()
	gs.Stack = append(gs.Stack, &state.StackObject{ID: "s1", Controller: "p1"})

	_, err := PassPriority(gs, "p1")
	require.NoError(t, err)

	outcome, err := PassPriority(gs, "p2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolveTop, outcome)
}

func TestResetAfterResolution(t *testing.T) {
	gs := newDuel()
	gs.Players["p1"].Passed = true
	gs.Players["p2"].Passed = true
	gs.PriorityPlayer = "p2"

	ResetAfterResolution(gs)

	assert.False(t, gs.Players["p1"].Passed)
	assert.False(t, gs.Players["p2"].Passed)
	assert.Equal(t, "p1", gs.PriorityPlayer)
}

func TestPassSkipsLostPlayers(t *testing.T) {
	gs := newDuel()
	gs.PlayerOrder = append(gs.PlayerOrder, "p3")
	gs.Players["p3"] = &state.PlayerState{ID: "p3", Life: 20, LandLimit: 1}
	gs.Players["p2"].Lost = true

	outcome, err := PassPriority(gs, "p1")

	require.NoError(t, err)
	assert.Equal(t, OutcomePassed, outcome)
	assert.Equal(t, "p3", gs.PriorityPlayer, "priority skips the lost player")

	outcome, err = PassPriority(gs, "p3")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanceStep, outcome, "lost players do not block the pass round")
}

func TestPassOutcomeString(t *testing.T) {
	assert.Equal(t, "PASSED", OutcomePassed.String())
	assert.Equal(t, "RESOLVE_TOP", OutcomeResolveTop.String())
	assert.Equal(t, "ADVANCE_STEP", OutcomeAdvanceStep.String())
	assert.Equal(t, "UNKNOWN", PassOutcome(99).String())
}
