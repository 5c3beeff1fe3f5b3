package effects

import (
	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/counters"
	"github.com/openduel/engine-go/internal/game/state"
)

// Fixture builders in the style of the rules package tests: states are
// constructed directly so each case starts exactly where it needs to.

func newDuel() *state.GameState {
	return &state.GameState{
		GameID:         "g1",
		Turn:           3,
		Phase:          state.PhasePrecombatMain,
		Step:           state.StepMain1,
		ActivePlayer:   "p1",
		PriorityPlayer: "p1",
		PlayerOrder:    []string{"p1", "p2"},
		Players: map[string]*state.PlayerState{
			"p1": {ID: "p1", Name: "Alice", Life: 20, LandLimit: 1},
			"p2": {ID: "p2", Name: "Bob", Life: 20, LandLimit: 1},
		},
		Cards: map[string]*state.CardObject{},
	}
}

func addCard(gs *state.GameState, id, owner string, zone state.Zone, def carddata.CardDefinition) *state.CardObject {
	card := &state.CardObject{
		ID:         id,
		Base:       def,
		Owner:      owner,
		Controller: owner,
		Zone:       zone,
		Counters:   counters.NewSet(),
	}
	gs.Cards[id] = card
	switch zone {
	case state.ZoneLibrary:
		player := gs.Players[owner]
		player.Library = append(player.Library, id)
	case state.ZoneHand:
		player := gs.Players[owner]
		player.Hand = append(player.Hand, id)
	case state.ZoneGraveyard:
		player := gs.Players[owner]
		player.Graveyard = append(player.Graveyard, id)
	case state.ZoneBattlefield:
		gs.Battlefield = append(gs.Battlefield, id)
	case state.ZoneExile:
		gs.Exile = append(gs.Exile, id)
	}
	return card
}

func creature(name, power, toughness string, keywords ...string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: name,
		Name:        name,
		ManaCost:    "{1}{G}",
		Types:       []string{"Creature"},
		Subtypes:    []string{"Beast"},
		Power:       power,
		Toughness:   toughness,
		Keywords:    keywords,
	}
}

func instantDef(name string, effects ...carddata.EffectDescriptor) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:      "TST",
		CollectorID:  name,
		Name:         name,
		ManaCost:     "{U}",
		Types:        []string{"Instant"},
		SpellSpeed:   carddata.SpeedInstant,
		SpellEffects: effects,
	}
}

// spellOnStack puts a card from its owner's hand onto the stack and
// returns the stack object, the way the engine stages a cast.
func spellOnStack(gs *state.GameState, cardID string, targets []string, specs ...carddata.TargetSpec) *state.StackObject {
	card := gs.Cards[cardID]
	if err := gs.MoveCard(cardID, card.Zone, state.ZoneStack, state.CauseCast); err != nil {
		panic(err)
	}
	obj := &state.StackObject{
		ID:           "stack-" + cardID,
		Kind:         state.StackSpell,
		SourceID:     cardID,
		Controller:   card.Owner,
		AbilityIndex: -1,
		Targets:      targets,
		Effects:      carddata.CopyEffects(card.Base.SpellEffects),
		TargetSpecs:  append([]carddata.TargetSpec(nil), specs...),
		Description:  card.Base.Name,
	}
	gs.Stack = append(gs.Stack, obj)
	return obj
}

// tokenCatalog returns a catalog holding one 1/1 Soldier token template.
func tokenCatalog() *carddata.Catalog {
	catalog := carddata.NewCatalog()
	if err := catalog.Put(carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: "T1",
		Name:        "Soldier",
		Types:       []string{"Creature"},
		Subtypes:    []string{"Soldier"},
		Power:       "1",
		Toughness:   "1",
		IsToken:     true,
	}); err != nil {
		panic(err)
	}
	return catalog
}

func newTestResolver() *Resolver {
	return NewResolver(tokenCatalog(), nil)
}
