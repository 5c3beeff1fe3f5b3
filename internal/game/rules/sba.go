package rules

import (
	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/state"
)

// Loss reasons recorded by the state-based sweep.
const (
	LossLifeDepleted = "life total reached zero"
	LossPoisoned     = "received ten or more poison counters"
	LossEmptyDraw    = "drew from an empty library"
)

// PoisonThreshold is the poison counter total at which a player loses.
const PoisonThreshold = 10

// CheckStateBasedActions sweeps the game for conditions that resolve
// without using the stack: lethal damage, zero toughness, deathtouch,
// player losses, token cleanup, counter annihilation, and expiry of
// grants whose source left the battlefield. The sweep repeats until a
// full pass applies nothing, since one action can expose another.
// Returns the total number of actions applied, so callers know whether
// triggers may have been created.
func CheckStateBasedActions(gs *state.GameState) int {
	total := 0
	for {
		applied := sweepOnce(gs)
		total += applied
		if applied == 0 {
			return total
		}
	}
}

func sweepOnce(gs *state.GameState) int {
	applied := 0

	// Grants expire before lethality is judged so the check sees the
	// post-expiry toughness.
	applied += expireOrphanedGrants(gs)

	for _, id := range gs.PlayerOrder {
		player := gs.Players[id]
		if player.Lost {
			continue
		}
		switch {
		case player.Life <= 0:
			gs.MarkLoss(id, LossLifeDepleted)
			applied++
		case player.Poison >= PoisonThreshold:
			gs.MarkLoss(id, LossPoisoned)
			applied++
		case player.DrewFromEmpty:
			gs.MarkLoss(id, LossEmptyDraw)
			applied++
		}
	}

	// Battlefield checks walk a snapshot of the ordering since dying
	// creatures mutate it.
	for _, card := range gs.BattlefieldCards() {
		eff := chars.Compute(card)
		if !eff.IsCreature() || !eff.HasPT {
			continue
		}
		switch {
		case eff.Toughness <= 0:
			if moveToGraveyard(gs, card) {
				applied++
			}
		case card.DamageMarked >= eff.Toughness:
			if moveToGraveyard(gs, card) {
				applied++
			}
		case card.DeathtouchHit && card.DamageMarked > 0:
			if moveToGraveyard(gs, card) {
				applied++
			}
		}
	}

	// Tokens exist only on the battlefield. The sweep walks the ordered
	// zone slices rather than the card map so removal order, and with it
	// the provenance log, is deterministic.
	for _, id := range strayTokens(gs) {
		gs.RemoveFromGame(id)
		applied++
	}

	for _, card := range gs.BattlefieldCards() {
		if pairs := card.Counters.Annihilate(); pairs > 0 {
			applied++
		}
	}

	return applied
}

// expireOrphanedGrants drops while-on-battlefield modifications whose
// granting permanent is no longer on the battlefield.
func expireOrphanedGrants(gs *state.GameState) int {
	dropped := 0
	for _, card := range gs.BattlefieldCards() {
		kept := card.Mods[:0]
		for _, mod := range card.Mods {
			if mod.Duration == carddata.DurationWhileOnField && !onBattlefield(gs, mod.SourceID) {
				dropped++
				continue
			}
			kept = append(kept, mod)
		}
		card.Mods = kept
	}
	return dropped
}

func onBattlefield(gs *state.GameState, cardID string) bool {
	card, ok := gs.Cards[cardID]
	return ok && card.Zone == state.ZoneBattlefield
}

func strayTokens(gs *state.GameState) []string {
	var stray []string
	appendTokens := func(ids []string) {
		for _, id := range ids {
			if card, ok := gs.Cards[id]; ok && card.IsToken {
				stray = append(stray, id)
			}
		}
	}
	for _, pid := range gs.PlayerOrder {
		player := gs.Players[pid]
		appendTokens(player.Library)
		appendTokens(player.Hand)
		appendTokens(player.Graveyard)
	}
	appendTokens(gs.Exile)
	appendTokens(gs.Command)
	return stray
}

func moveToGraveyard(gs *state.GameState, card *state.CardObject) bool {
	if err := gs.MoveCard(card.ID, state.ZoneBattlefield, state.ZoneGraveyard, state.CauseDies); err != nil {
		return false
	}
	return true
}

// DealDamageToPlayer applies damage to a player's life total. Damage to
// players is immediate life loss; the terminal check happens in the next
// state-based sweep.
func DealDamageToPlayer(gs *state.GameState, playerID string, amount int) {
	if amount <= 0 {
		return
	}
	if player, ok := gs.Players[playerID]; ok {
		player.Life -= amount
	}
}

// DealDamageToCard marks damage on a creature and records whether the
// source had deathtouch. The damage itself does not destroy; the
// state-based sweep judges lethality.
func DealDamageToCard(gs *state.GameState, cardID string, amount int, deathtouch bool) {
	if amount <= 0 {
		return
	}
	card, ok := gs.Cards[cardID]
	if !ok || card.Zone != state.ZoneBattlefield {
		return
	}
	card.DamageMarked += amount
	if deathtouch {
		card.DeathtouchHit = true
	}
}

// LifelinkGain credits the controller of a lifelink source for damage it
// dealt.
func LifelinkGain(gs *state.GameState, controllerID string, amount int) {
	if amount <= 0 {
		return
	}
	if player, ok := gs.Players[controllerID]; ok {
		player.Life += amount
	}
}
