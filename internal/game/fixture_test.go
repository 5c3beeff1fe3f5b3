package game

import (
	"fmt"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/counters"
	"github.com/openduel/engine-go/internal/game/state"
)

// Fixture builders. Engine tests drive complete actions through
// ApplyAction, so the opening states are constructed directly with known
// card ids instead of shuffled decks. duelState is a pure function of
// nothing: two calls build identical states, which the replay tests rely
// on.

func duelState() *state.GameState {
	gs := &state.GameState{
		GameID:         "g-engine",
		Seed:           7,
		Turn:           3,
		Phase:          state.PhasePrecombatMain,
		Step:           state.StepMain1,
		ActivePlayer:   "p1",
		PriorityPlayer: "p1",
		PlayerOrder:    []string{"p1", "p2"},
		Players: map[string]*state.PlayerState{
			"p1": {ID: "p1", Name: "Alice", Life: 20, LandLimit: 1, KeptHand: true},
			"p2": {ID: "p2", Name: "Bob", Life: 20, LandLimit: 1, KeptHand: true},
		},
		Cards: map[string]*state.CardObject{},
	}
	// Library filler so turn rolls never draw from empty.
	for _, pid := range gs.PlayerOrder {
		for i := 0; i < 8; i++ {
			addCard(gs, fmt.Sprintf("%s-lib-%d", pid, i), pid, state.ZoneLibrary,
				creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
		}
	}
	return gs
}

// addCard places a card directly in a zone, bypassing move bookkeeping.
func addCard(gs *state.GameState, id, owner string, zone state.Zone, def carddata.CardDefinition) *state.CardObject {
	card := &state.CardObject{
		ID:         id,
		Ref:        carddata.Ref{SetCode: def.SetCode, CollectorID: def.CollectorID},
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

func basicLand(name, color string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: name,
		Name:        name,
		Supertypes:  []string{"Basic"},
		Types:       []string{"Land"},
		Subtypes:    []string{name},
		Abilities: []carddata.AbilityDefinition{{
			Kind:    carddata.AbilityMana,
			TapCost: true,
			Mana:    []string{color},
			Text:    "{T}: Add {" + color + "}.",
		}},
	}
}

func creatureDef(name, cost, power, toughness string, keywords ...string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: name,
		Name:        name,
		ManaCost:    cost,
		Colors:      []string{"G"},
		Types:       []string{"Creature"},
		Subtypes:    []string{"Bear"},
		Power:       power,
		Toughness:   toughness,
		Keywords:    keywords,
	}
}

// burnSpell is an instant dealing amount damage to any single target.
func burnSpell(name, cost string, amount int) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:      "TST",
		CollectorID:  name,
		Name:         name,
		ManaCost:     cost,
		Colors:       []string{"R"},
		Types:        []string{"Instant"},
		SpellSpeed:   carddata.SpeedInstant,
		SpellTargets: []carddata.TargetSpec{{Kind: carddata.TargetAny, Min: 1, Max: 1}},
		SpellEffects: []carddata.EffectDescriptor{{
			Op:       carddata.OpDealDamage,
			Selector: "target",
			Amount:   amount,
		}},
	}
}

// xBurnSpell deals X damage to any single target.
func xBurnSpell(name string) carddata.CardDefinition {
	return burnSpell(name, "{X}{R}", 0)
}

// etbLifeCreature gains its controller 1 life when it enters.
func etbLifeCreature(name, cost string) carddata.CardDefinition {
	def := creatureDef(name, cost, "1", "1")
	def.Abilities = []carddata.AbilityDefinition{{
		Kind: carddata.AbilityTriggered,
		Trigger: &carddata.TriggerSpec{
			Event: carddata.TriggerEntersBattlefield,
			Self:  true,
		},
		Effects: []carddata.EffectDescriptor{{
			Op:       carddata.OpGainLife,
			Selector: "controller",
			Amount:   1,
		}},
		Text: "When " + name + " enters the battlefield, you gain 1 life.",
	}}
	return def
}

// extraLandSorcery raises the caster's land limit by one this turn.
func extraLandSorcery(name, cost string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: name,
		Name:        name,
		ManaCost:    cost,
		Colors:      []string{"G"},
		Types:       []string{"Sorcery"},
		SpellSpeed:  carddata.SpeedSorcery,
		SpellEffects: []carddata.EffectDescriptor{{
			Op:       carddata.OpRaiseLandLimit,
			Selector: "controller",
			Amount:   1,
		}},
	}
}

// tokenSorcery creates two Soldier tokens from the test catalog.
func tokenSorcery(name, cost string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: name,
		Name:        name,
		ManaCost:    cost,
		Colors:      []string{"W"},
		Types:       []string{"Sorcery"},
		SpellSpeed:  carddata.SpeedSorcery,
		SpellEffects: []carddata.EffectDescriptor{{
			Op:        carddata.OpCreateToken,
			TokenSet:  "TST",
			TokenName: "Soldier",
			Count:     2,
		}},
	}
}

// counterSpell counters one target spell on the stack.
func counterSpell(name, cost string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:      "TST",
		CollectorID:  name,
		Name:         name,
		ManaCost:     cost,
		Colors:       []string{"U"},
		Types:        []string{"Instant"},
		SpellSpeed:   carddata.SpeedInstant,
		SpellTargets: []carddata.TargetSpec{{Kind: carddata.TargetSpell, Min: 1, Max: 1}},
		SpellEffects: []carddata.EffectDescriptor{{
			Op:       carddata.OpCounterSpell,
			Selector: "target",
		}},
	}
}

// pumpSpell gives one target creature +3/+3 until end of turn.
func pumpSpell(name, cost string) carddata.CardDefinition {
	return carddata.CardDefinition{
		SetCode:      "TST",
		CollectorID:  name,
		Name:         name,
		ManaCost:     cost,
		Colors:       []string{"G"},
		Types:        []string{"Instant"},
		SpellSpeed:   carddata.SpeedInstant,
		SpellTargets: []carddata.TargetSpec{{Kind: carddata.TargetCreature, Min: 1, Max: 1}},
		SpellEffects: []carddata.EffectDescriptor{{
			Op:             carddata.OpModifyChars,
			Selector:       "target",
			PowerDelta:     3,
			ToughnessDelta: 3,
			Duration:       carddata.DurationEndOfTurn,
		}},
	}
}

func testCatalog() *carddata.Catalog {
	catalog := carddata.NewCatalog()
	_ = catalog.Put(carddata.CardDefinition{
		SetCode:     "TST",
		CollectorID: "T1",
		Name:        "Soldier",
		Colors:      []string{"W"},
		Types:       []string{"Creature"},
		Subtypes:    []string{"Soldier"},
		Power:       "1",
		Toughness:   "1",
		IsToken:     true,
	})
	return catalog
}
