package rules

import (
	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/counters"
	"github.com/openduel/engine-go/internal/game/state"
)

// Fixture builders. Tests construct states directly instead of playing
// out full games, so each case starts exactly where it needs to.

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

func landDef(name string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: name,
		Name:        name,
		Supertypes:  []string{"Basic"},
		Types:       []string{"Land"},
		Subtypes:    []string{name},
	}
}

func sorceryDef(name string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: name,
		Name:        name,
		ManaCost:    "{R}",
		Types:       []string{"Sorcery"},
		SpellSpeed:  carddata.SpeedSorcery,
	}
}

func instantDef(name string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: name,
		Name:        name,
		ManaCost:    "{U}",
		Types:       []string{"Instant"},
		SpellSpeed:  carddata.SpeedInstant,
	}
}

// atStep positions the fixture at a step without walking the sequence.
func atStep(gs *state.GameState, phase state.Phase, step state.Step) {
	gs.Phase = phase
	gs.Step = step
}

// inCombat sets up a combat with the given attackers declared against p2.
func inCombat(gs *state.GameState, attackerIDs ...string) {
	atStep(gs, state.PhaseCombat, state.StepDeclareBlockers)
	gs.Combat = state.NewCombat()
	for _, id := range attackerIDs {
		gs.Combat.Attackers = append(gs.Combat.Attackers, id)
		gs.Combat.Defending[id] = "p2"
	}
	gs.Combat.AttackersDeclared = true
}
