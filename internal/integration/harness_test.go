package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game"
	"github.com/openduel/engine-go/internal/game/state"
	"github.com/openduel/engine-go/internal/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// maxDuelActions caps bot-driven games. A duel that drags all the way to
// the deck-out turn needs roughly 1500 actions; anything past the cap is
// a wedged game, not a slow one.
const maxDuelActions = 4000

// integrationCatalog is the card pool the integration decks draw from:
// three basics, a vanilla creature, a burn spell, a counterspell and a
// flying finisher nobody ever casts.
func integrationCatalog(t testing.TB) *carddata.Catalog {
	t.Helper()
	catalog := carddata.NewCatalog()
	defs := []carddata.CardDefinition{
		basicLand("Mountain", "mountain", "R"),
		basicLand("Island", "island", "U"),
		basicLand("Forest", "forest", "G"),
		{
			SetCode:     "TST",
			CollectorID: "bears",
			Name:        "Grizzly Bears",
			ManaCost:    "{1}{G}",
			Colors:      []string{"G"},
			Types:       []string{carddata.TypeCreature},
			Subtypes:    []string{"Bear"},
			Power:       "2",
			Toughness:   "2",
		},
		{
			SetCode:      "TST",
			CollectorID:  "strike",
			Name:         "Lightning Strike",
			ManaCost:     "{1}{R}",
			Colors:       []string{"R"},
			Types:        []string{carddata.TypeInstant},
			SpellSpeed:   carddata.SpeedInstant,
			SpellTargets: []carddata.TargetSpec{{Kind: carddata.TargetAny, Min: 1, Max: 1}},
			SpellEffects: []carddata.EffectDescriptor{{Op: carddata.OpDealDamage, Selector: "target", Amount: 3}},
		},
		{
			SetCode:      "TST",
			CollectorID:  "veto",
			Name:         "Veto",
			ManaCost:     "{1}{U}",
			Colors:       []string{"U"},
			Types:        []string{carddata.TypeInstant},
			SpellSpeed:   carddata.SpeedInstant,
			SpellTargets: []carddata.TargetSpec{{Kind: carddata.TargetSpell, Min: 1, Max: 1}},
			SpellEffects: []carddata.EffectDescriptor{{Op: carddata.OpCounterSpell, Selector: "target"}},
		},
		{
			SetCode:     "TST",
			CollectorID: "elemental",
			Name:        "Air Elemental",
			ManaCost:    "{3}{U}{U}",
			Colors:      []string{"U"},
			Types:       []string{carddata.TypeCreature},
			Subtypes:    []string{"Elemental"},
			Power:       "4",
			Toughness:   "4",
			Keywords:    []string{"flying"},
		},
	}
	for _, def := range defs {
		require.NoError(t, catalog.Put(def))
	}
	return catalog
}

func basicLand(name, collector, color string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: collector,
		Name:        name,
		Supertypes:  []string{"Basic"},
		Types:       []string{carddata.TypeLand},
		Subtypes:    []string{name},
		Abilities: []carddata.AbilityDefinition{{
			Kind:    carddata.AbilityMana,
			TapCost: true,
			Mana:    []string{color},
		}},
	}
}

func repeatRef(collector string, n int) []carddata.Ref {
	refs := make([]carddata.Ref, n)
	for i := range refs {
		refs[i] = carddata.Ref{SetCode: "TST", CollectorID: collector}
	}
	return refs
}

// Every deck is 30 cards so zone-conservation checks can compare against
// a single constant.
const deckSize = 30

func burnDeck() []carddata.Ref {
	deck := repeatRef("mountain", 13)
	return append(deck, repeatRef("strike", 17)...)
}

func aggroDeck() []carddata.Ref {
	deck := repeatRef("forest", 13)
	return append(deck, repeatRef("bears", 17)...)
}

func controlDeck() []carddata.Ref {
	deck := repeatRef("island", 18)
	deck = append(deck, repeatRef("veto", 8)...)
	return append(deck, repeatRef("elemental", 4)...)
}

func manaOnlyDeck() []carddata.Ref {
	deck := repeatRef("island", 20)
	return append(deck, repeatRef("elemental", 10)...)
}

func resolveDeck(t testing.TB, catalog *carddata.Catalog, refs []carddata.Ref) []carddata.CardDefinition {
	t.Helper()
	defs := make([]carddata.CardDefinition, 0, len(refs))
	for _, ref := range refs {
		def, err := catalog.Definition(context.Background(), ref)
		require.NoError(t, err)
		defs = append(defs, def)
	}
	return defs
}

func duelSetups(t testing.TB, catalog *carddata.Catalog, p1Deck, p2Deck []carddata.Ref) []state.PlayerSetup {
	t.Helper()
	return []state.PlayerSetup{
		{ID: "p1", Name: "Alice", Deck: resolveDeck(t, catalog, p1Deck)},
		{ID: "p2", Name: "Bob", Deck: resolveDeck(t, catalog, p2Deck)},
	}
}

// hostDuel creates a two-seat game on a fresh manager and joins both
// players, leaving the game in progress. The signal buffer is oversized
// so a full bot-speed game cannot shake off its game-over signal.
func hostDuel(t *testing.T, gameID string, seed int64, p1Deck, p2Deck []carddata.Ref) *server.HostedGame {
	t.Helper()
	catalog := integrationCatalog(t)
	m := server.NewManager(catalog, catalog, nil, server.Options{SignalBuffer: 256}, zaptest.NewLogger(t))
	t.Cleanup(m.CloseAll)

	g, err := m.CreateGame(context.Background(), gameID, seed, []server.Seat{
		{PlayerID: "p1", Name: "Alice", Deck: p1Deck},
		{PlayerID: "p2", Name: "Bob", Deck: p2Deck},
	})
	require.NoError(t, err)
	require.NoError(t, g.Join("p1"))
	require.NoError(t, g.Join("p2"))
	return g
}

// gameDriver abstracts where actions go, so the same bots can drive a
// hosted game and a bare engine.
type gameDriver interface {
	View(viewerID string) game.GameView
	Submit(playerID string, action game.Action) error
}

type hostedDriver struct{ g *server.HostedGame }

func (d hostedDriver) View(viewerID string) game.GameView { return d.g.View(viewerID) }

func (d hostedDriver) Submit(playerID string, action game.Action) error {
	_, err := d.g.Submit(playerID, action)
	return err
}

type engineDriver struct{ eng *game.Engine }

func (d engineDriver) View(viewerID string) game.GameView { return d.eng.View(viewerID) }

func (d engineDriver) Submit(playerID string, action game.Action) error {
	_, err := d.eng.ApplyAction(playerID, action)
	return err
}

// seatBot decides one seat's next move from that seat's view of the
// game. Returning false passes priority.
type seatBot interface {
	Act(view game.GameView) (game.Action, bool)
}

// runDuel feeds bot decisions into the driver until the game ends. Bots
// only ever see their own view; the spectator view steers the loop. Any
// rejected action is a bot bug and fails the test on the spot.
func runDuel(t *testing.T, d gameDriver, bots map[string]seatBot) game.GameView {
	t.Helper()
	for i := 0; i < maxDuelActions; i++ {
		view := d.View("")
		if view.Over {
			return view
		}
		pid := view.PriorityPlayer
		require.NotEmpty(t, pid, "nobody holds priority in a live game")
		bot, ok := bots[pid]
		require.True(t, ok, "no bot for seat %s", pid)

		action, act := bot.Act(d.View(pid))
		if !act {
			action = game.Action{Kind: game.ActionPassPriority}
		}
		if err := d.Submit(pid, action); err != nil {
			t.Fatalf("turn %d %s: %s by %s rejected: %v", view.Turn, view.Step, action.Kind, pid, err)
		}
	}
	t.Fatalf("game did not finish within %d actions", maxDuelActions)
	return game.GameView{}
}

func seatView(v game.GameView, playerID string) game.PlayerView {
	for _, p := range v.Players {
		if p.ID == playerID {
			return p
		}
	}
	return game.PlayerView{}
}

func handCard(p game.PlayerView, name string) string {
	for _, c := range p.Hand {
		if c.Name == name {
			return c.ID
		}
	}
	return ""
}

func poolTotal(p game.PlayerView) int {
	total := 0
	for _, n := range p.ManaPool {
		total += n
	}
	return total
}

func untappedLands(v game.GameView, controller string) []string {
	var ids []string
	for _, c := range v.Battlefield {
		if c.Controller == controller && !c.Tapped && strings.Contains(c.TypeLine, carddata.TypeLand) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// nextLandTap returns a mana activation that moves the pool toward cost.
// ok is false when the cost is already covered or out of reach this
// window; bots never tap mana they cannot turn into a spell.
func nextLandTap(v game.GameView, me game.PlayerView, owner string, cost int) (game.Action, bool) {
	pool := poolTotal(me)
	if pool >= cost {
		return game.Action{}, false
	}
	lands := untappedLands(v, owner)
	if len(lands) == 0 || pool+len(lands) < cost {
		return game.Action{}, false
	}
	return game.Action{Kind: game.ActionActivateAbility, CardID: lands[0], AbilityIndex: 0}, true
}

// canDropLand reports whether the seat may lay a land right now: own
// main phase, empty stack, land drop still available.
func canDropLand(v game.GameView, me game.PlayerView) bool {
	return v.ActivePlayer == me.ID &&
		v.Step == state.StepMain1.String() &&
		len(v.Stack) == 0 &&
		me.LandsPlayed < me.LandLimit
}

// ownedCardCount sums every zone a player's cards can occupy in a view.
// Tokens are excluded so the total is comparable to the deck size.
func ownedCardCount(v game.GameView, playerID string) int {
	total := 0
	for _, p := range v.Players {
		if p.ID == playerID {
			total += p.LibraryCount + p.HandCount
			for _, c := range p.Graveyard {
				if !c.IsToken {
					total++
				}
			}
		}
	}
	for _, c := range v.Battlefield {
		if c.Owner == playerID && !c.IsToken {
			total++
		}
	}
	for _, c := range v.Exile {
		if c.Owner == playerID && !c.IsToken {
			total++
		}
	}
	for _, s := range v.Stack {
		if s.Kind == state.StackSpell.String() && s.Controller == playerID {
			total++
		}
	}
	return total
}

// burnBot plays mountains and points burn at the opposing player from
// any priority window it can pay in.
type burnBot struct {
	me, opp     string
	land, spell string
	cost        int
}

func (b *burnBot) Act(v game.GameView) (game.Action, bool) {
	me := seatView(v, b.me)
	if canDropLand(v, me) {
		if id := handCard(me, b.land); id != "" {
			return game.Action{Kind: game.ActionPlayLand, CardID: id}, true
		}
	}
	spell := handCard(me, b.spell)
	if spell == "" {
		return game.Action{}, false
	}
	if poolTotal(me) >= b.cost {
		return game.Action{Kind: game.ActionCastSpell, CardID: spell, Targets: []string{b.opp}}, true
	}
	return nextLandTap(v, me, b.me, b.cost)
}

// controlBot plays islands and counters the top enemy spell whenever it
// holds a counter it can pay for. It never taps out in advance: lands
// stay open until there is something to answer.
type controlBot struct {
	me            string
	land, counter string
	cost          int
}

func (b *controlBot) Act(v game.GameView) (game.Action, bool) {
	me := seatView(v, b.me)
	if canDropLand(v, me) {
		if id := handCard(me, b.land); id != "" {
			return game.Action{Kind: game.ActionPlayLand, CardID: id}, true
		}
	}
	if len(v.Stack) == 0 {
		return game.Action{}, false
	}
	top := v.Stack[len(v.Stack)-1]
	if top.Controller == b.me {
		return game.Action{}, false
	}
	counter := handCard(me, b.counter)
	if counter == "" {
		return game.Action{}, false
	}
	if poolTotal(me) >= b.cost {
		return game.Action{Kind: game.ActionCastSpell, CardID: counter, Targets: []string{top.ID}}, true
	}
	return nextLandTap(v, me, b.me, b.cost)
}

// beatdownBot plays lands, casts creatures at sorcery speed, and turns
// everything that has shed summoning sickness sideways. It remembers
// the turn each creature was cast because views deliberately do not
// expose that.
type beatdownBot struct {
	me             string
	land, creature string
	cost           int
	castTurn       map[string]int
}

func newBeatdownBot(me, land, creature string, cost int) *beatdownBot {
	return &beatdownBot{
		me:       me,
		land:     land,
		creature: creature,
		cost:     cost,
		castTurn: make(map[string]int),
	}
}

func (b *beatdownBot) Act(v game.GameView) (game.Action, bool) {
	me := seatView(v, b.me)
	if v.ActivePlayer == b.me && v.Step == state.StepMain1.String() && len(v.Stack) == 0 {
		if me.LandsPlayed < me.LandLimit {
			if id := handCard(me, b.land); id != "" {
				return game.Action{Kind: game.ActionPlayLand, CardID: id}, true
			}
		}
		if id := handCard(me, b.creature); id != "" {
			if poolTotal(me) >= b.cost {
				b.castTurn[id] = v.Turn
				return game.Action{Kind: game.ActionCastSpell, CardID: id}, true
			}
			return nextLandTap(v, me, b.me, b.cost)
		}
		return game.Action{}, false
	}

	// The combat view only materializes once attackers are declared, so
	// a nil view at the declare step means the declaration is still ours
	// to make.
	if v.ActivePlayer == b.me && v.Step == state.StepDeclareAttackers.String() && v.Combat == nil {
		var attackers []string
		for _, card := range v.Battlefield {
			if card.Controller != b.me || card.Tapped || !strings.Contains(card.TypeLine, carddata.TypeCreature) {
				continue
			}
			if b.castTurn[card.ID] == v.Turn {
				continue
			}
			attackers = append(attackers, card.ID)
		}
		if len(attackers) > 0 {
			return game.Action{Kind: game.ActionDeclareAttackers, Attackers: attackers}, true
		}
	}
	return game.Action{}, false
}

// landBot plays one land a turn and otherwise passes: a deliberately
// passive opponent for scenarios that need one seat to just survive.
type landBot struct {
	me, land string
}

func (b *landBot) Act(v game.GameView) (game.Action, bool) {
	me := seatView(v, b.me)
	if canDropLand(v, me) {
		if id := handCard(me, b.land); id != "" {
			return game.Action{Kind: game.ActionPlayLand, CardID: id}, true
		}
	}
	return game.Action{}, false
}
