package state

import (
	"github.com/openduel/engine-go/internal/game/counters"
	"github.com/openduel/engine-go/internal/game/rulerr"
)

// MoveCard is the only sanctioned way a card changes zone. It verifies
// the card is currently in from, updates the zone field and the ordered
// zone slices, and appends a provenance note. It performs no other side
// effects; triggered abilities and state-based consequences are detected
// by later passes over the provenance log.
//
// Player-owned zones (library, hand, graveyard) always belong to the
// card's owner. Cards added to the library or graveyard go on top.
func (gs *GameState) MoveCard(cardID string, from, to Zone, cause string) error {
	card, ok := gs.Cards[cardID]
	if !ok {
		return rulerr.Newf(rulerr.CodeZoneMismatch, "card %s does not exist", cardID)
	}
	if card.Zone != from {
		return rulerr.Newf(rulerr.CodeZoneMismatch,
			"card %s is in %s, not %s", cardID, card.Zone, from).
			WithMetadata("card_id", cardID).
			WithMetadata("zone", card.Zone.String())
	}

	if slice := gs.zoneSlice(card, from); slice != nil {
		*slice = removeID(*slice, cardID)
	}
	if slice := gs.zoneSlice(card, to); slice != nil {
		*slice = append(*slice, cardID)
	}

	card.Zone = to

	if to == ZoneBattlefield {
		card.EnteredTurn = gs.Turn
	}
	if from == ZoneBattlefield && to != ZoneBattlefield {
		// A permanent leaving the battlefield becomes a new object:
		// marked damage, counters, taps, and modifications do not follow it.
		card.Tapped = false
		card.DamageMarked = 0
		card.DeathtouchHit = false
		card.Counters = counters.NewSet()
		card.Mods = nil
		if gs.Combat != nil {
			gs.Combat.RemoveAttacker(cardID)
			gs.Combat.RemoveBlocker(cardID)
		}
	}

	gs.RecordEvent(cardID, from, to, cause)

	return nil
}

// RecordEvent appends a provenance note. MoveCard records zone
// transitions through it; turn and combat code use it directly for
// events the trigger detector needs that are not zone transitions.
func (gs *GameState) RecordEvent(subjectID string, from, to Zone, cause string) {
	gs.ProvenanceSeq++
	gs.Provenance = append(gs.Provenance, ProvenanceNote{
		Seq:    gs.ProvenanceSeq,
		Turn:   gs.Turn,
		CardID: subjectID,
		From:   from,
		To:     to,
		Cause:  cause,
	})
}

// EnterToken registers a freshly created token object and puts it onto
// the battlefield. Tokens never pass through another zone on the way in.
func (gs *GameState) EnterToken(card *CardObject) {
	card.Zone = ZoneBattlefield
	card.EnteredTurn = gs.Turn
	gs.Cards[card.ID] = card
	gs.Battlefield = append(gs.Battlefield, card.ID)
	gs.RecordEvent(card.ID, ZoneOutside, ZoneBattlefield, CauseToken)
}

// RemoveFromGame deletes a card object entirely. Only state-based cleanup
// of tokens that left the battlefield uses this.
func (gs *GameState) RemoveFromGame(cardID string) {
	card, ok := gs.Cards[cardID]
	if !ok {
		return
	}
	if slice := gs.zoneSlice(card, card.Zone); slice != nil {
		*slice = removeID(*slice, cardID)
	}
	gs.RecordEvent(cardID, card.Zone, ZoneOutside, CauseCeases)
	delete(gs.Cards, cardID)
}

// zoneSlice returns the ordered id slice backing a zone for this card,
// or nil for the stack, whose order lives in Stack itself.
func (gs *GameState) zoneSlice(card *CardObject, zone Zone) *[]string {
	switch zone {
	case ZoneLibrary, ZoneHand, ZoneGraveyard:
		owner, ok := gs.Players[card.Owner]
		if !ok {
			return nil
		}
		switch zone {
		case ZoneLibrary:
			return &owner.Library
		case ZoneHand:
			return &owner.Hand
		default:
			return &owner.Graveyard
		}
	case ZoneBattlefield:
		return &gs.Battlefield
	case ZoneExile:
		return &gs.Exile
	case ZoneCommand:
		return &gs.Command
	default:
		return nil
	}
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// NotesSince returns the provenance notes recorded after seq, oldest
// first.
func (gs *GameState) NotesSince(seq uint64) []ProvenanceNote {
	for i, note := range gs.Provenance {
		if note.Seq > seq {
			return gs.Provenance[i:]
		}
	}
	return nil
}
