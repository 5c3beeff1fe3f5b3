package effects

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/state"
)

// TriggerOrderer decides the stacking order of simultaneous triggers
// controlled by the same player. The engine takes one at construction;
// game rules leave this ordering to the controller, so interactive
// callers may implement it with a player prompt.
type TriggerOrderer interface {
	Order(controller string, pending []*state.StackObject) []*state.StackObject
}

// DetectionOrder is the default TriggerOrderer. Triggers keep the order
// they were detected in: provenance order first, battlefield order for
// permanents that triggered off the same note.
type DetectionOrder struct{}

// Order implements TriggerOrderer.
func (DetectionOrder) Order(_ string, pending []*state.StackObject) []*state.StackObject {
	return pending
}

// DetectTriggers scans the provenance notes recorded after sinceSeq and
// returns the triggered abilities they set off, in stacking order: the
// active player's triggers first, then each other player's in turn order.
// Simultaneous triggers under one controller are ordered by the orderer.
// The caller pushes the result onto the stack in the returned order, so
// the last player's triggers resolve first.
func DetectTriggers(gs *state.GameState, sinceSeq uint64, orderer TriggerOrderer) []*state.StackObject {
	notes := gs.NotesSince(sinceSeq)
	if len(notes) == 0 {
		return nil
	}

	var pending []*state.StackObject
	collect := func(card *state.CardObject, note state.ProvenanceNote) {
		for idx, ability := range card.Base.Abilities {
			if ability.Kind != carddata.AbilityTriggered || ability.Trigger == nil {
				continue
			}
			if !triggerMatches(gs, card, *ability.Trigger, note) {
				continue
			}
			pending = append(pending, newTrigger(gs, card, idx, ability, note))
		}
	}

	for _, note := range notes {
		for _, card := range gs.BattlefieldCards() {
			// A permanent that entered during the window only sees
			// notes from its entry onward.
			if note.Seq < entrySeq(notes, card.ID) {
				continue
			}
			collect(card, note)
		}
		// A card leaving the battlefield is checked against its own
		// departure, so dies triggers fire for the creature that died.
		if note.From == state.ZoneBattlefield && note.To != state.ZoneBattlefield {
			if card, ok := gs.Cards[note.CardID]; ok {
				collect(card, note)
			}
		}
	}
	return orderForStacking(gs, pending, orderer)
}

// entrySeq returns the note sequence at which the card last entered the
// battlefield within the window, or zero if it was already there.
func entrySeq(notes []state.ProvenanceNote, cardID string) uint64 {
	var seq uint64
	for _, note := range notes {
		if note.CardID == cardID && note.To == state.ZoneBattlefield && note.From != state.ZoneBattlefield {
			seq = note.Seq
		}
	}
	return seq
}

func triggerMatches(gs *state.GameState, source *state.CardObject, spec carddata.TriggerSpec, note state.ProvenanceNote) bool {
	switch spec.Event {
	case carddata.TriggerEntersBattlefield:
		if note.To != state.ZoneBattlefield || note.From == state.ZoneBattlefield {
			return false
		}
	case carddata.TriggerDies:
		if note.From != state.ZoneBattlefield || note.To != state.ZoneGraveyard {
			return false
		}
	case carddata.TriggerAttacks:
		if note.Cause != state.CauseAttack {
			return false
		}
	case carddata.TriggerUpkeep:
		if note.Cause != state.CauseUpkeep {
			return false
		}
		// The note's subject is the player whose upkeep began.
		if spec.ControllerOnly && note.CardID != chars.Compute(source).Controller {
			return false
		}
		return true
	case carddata.TriggerLandPlayed:
		if note.Cause != state.CausePlayLand {
			return false
		}
	case carddata.TriggerSpellCast:
		if note.Cause != state.CauseCast {
			return false
		}
	default:
		return false
	}

	if spec.Self && note.CardID != source.ID {
		return false
	}
	if spec.OfType != "" || spec.ControllerOnly {
		subject, ok := gs.Cards[note.CardID]
		if !ok {
			return false
		}
		eff := chars.Compute(subject)
		if spec.OfType != "" && !eff.HasType(spec.OfType) {
			return false
		}
		if spec.ControllerOnly && eff.Controller != chars.Compute(source).Controller {
			return false
		}
	}
	return true
}

func newTrigger(gs *state.GameState, source *state.CardObject, abilityIndex int, ability carddata.AbilityDefinition, note state.ProvenanceNote) *state.StackObject {
	eff := chars.Compute(source)
	return &state.StackObject{
		ID:           triggerInstanceID(gs, source.ID, abilityIndex, note.Seq),
		Kind:         state.StackTriggeredAbility,
		SourceID:     source.ID,
		Controller:   eff.Controller,
		AbilityIndex: abilityIndex,
		Effects:      carddata.CopyEffects(ability.Effects),
		TargetSpecs:  append([]carddata.TargetSpec(nil), ability.Targets...),
		Description:  fmt.Sprintf("triggered ability of %s", eff.Name),
	}
}

// triggerInstanceID derives the trigger's id from the note that caused
// it, so replays mint identical ids. Detection windows never overlap, so
// the same note cannot mint the same trigger twice.
func triggerInstanceID(gs *state.GameState, sourceID string, abilityIndex int, noteSeq uint64) string {
	seed := fmt.Sprintf("%s|trigger|%s|%d|%d", gs.GameID, sourceID, abilityIndex, noteSeq)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// orderForStacking arranges pending triggers in the order they go onto
// the stack: active player's first, then the other players in turn order.
func orderForStacking(gs *state.GameState, pending []*state.StackObject, orderer TriggerOrderer) []*state.StackObject {
	if len(pending) == 0 {
		return nil
	}
	if orderer == nil {
		orderer = DetectionOrder{}
	}
	var ordered []*state.StackObject
	for _, pid := range apnapOrder(gs) {
		var mine []*state.StackObject
		for _, trigger := range pending {
			if trigger.Controller == pid {
				mine = append(mine, trigger)
			}
		}
		if len(mine) > 1 {
			mine = orderer.Order(pid, mine)
		}
		ordered = append(ordered, mine...)
	}
	return ordered
}

func apnapOrder(gs *state.GameState) []string {
	start := 0
	for i, id := range gs.PlayerOrder {
		if id == gs.ActivePlayer {
			start = i
			break
		}
	}
	order := make([]string, 0, len(gs.PlayerOrder))
	for i := range gs.PlayerOrder {
		order = append(order, gs.PlayerOrder[(start+i)%len(gs.PlayerOrder)])
	}
	return order
}
