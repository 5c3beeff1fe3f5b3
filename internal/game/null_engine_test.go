package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNullEngineAcceptsEverything(t *testing.T) {
	n := NewNullEngine("demo-1", []string{"p1", "p2"}, zaptest.NewLogger(t))

	_, err := n.ApplyAction("p1", Action{Kind: ActionPassPriority})
	require.NoError(t, err)
	_, err = n.ApplyAction("nobody", Action{Kind: ActionCastSpell, CardID: "made-up"})
	require.NoError(t, err, "the null engine applies no rules")

	actions := n.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, "p1", actions[0].PlayerID)
	assert.Equal(t, ActionPassPriority, actions[0].Action.Kind)
	assert.Equal(t, "nobody", actions[1].PlayerID)
	assert.Equal(t, "made-up", actions[1].Action.CardID)
}

func TestNullEngineCapsRecordedHistory(t *testing.T) {
	n := NewNullEngine("demo-1", []string{"p1", "p2"}, nil)

	total := nullActionCap + 25
	for i := 0; i < total; i++ {
		_, err := n.ApplyAction("p1", Action{Kind: ActionCastSpell, CardID: fmt.Sprintf("c-%d", i)})
		require.NoError(t, err)
	}

	actions := n.Actions()
	require.Len(t, actions, nullActionCap)
	assert.Equal(t, fmt.Sprintf("c-%d", total-nullActionCap), actions[0].Action.CardID)
	assert.Equal(t, fmt.Sprintf("c-%d", total-1), actions[len(actions)-1].Action.CardID)
}

func TestNullEngineEmitsStateSignals(t *testing.T) {
	n := NewNullEngine("demo-1", []string{"p1", "p2"}, nil)

	_, err := n.ApplyAction("p1", Action{Kind: ActionPassPriority})
	require.NoError(t, err)

	select {
	case sig := <-n.Signals():
		assert.Equal(t, SignalStateChanged, sig.Kind)
		assert.Equal(t, "demo-1", sig.GameID)
	default:
		t.Fatal("expected a state signal after the action")
	}
}

func TestNullEngineViewListsPlayers(t *testing.T) {
	n := NewNullEngine("demo-1", []string{"p1", "p2"}, nil)

	view := n.View("p2")
	assert.Equal(t, "demo-1", view.GameID)
	assert.Equal(t, "p2", view.ViewerID)
	require.Len(t, view.Players, 2)
	for _, pv := range view.Players {
		assert.Equal(t, 20, pv.Life)
	}
	assert.Equal(t, "p1", view.ActivePlayer)
}
