package rules

import (
	"strconv"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/rulerr"
	"github.com/openduel/engine-go/internal/game/state"
)

// The validators are pure predicates, one per action kind. Each returns
// nil for a legal action or a coded error naming the first failed
// condition. They never mutate state, so callers can use them both to
// gate execution and to list a player's legal actions.

// CanPlayLand checks the special action of playing a land: the card must
// be a land in the player's hand, it must be that player's turn with
// priority during a main phase with an empty stack, and the per-turn land
// limit must not be reached.
func CanPlayLand(gs *state.GameState, playerID, cardID string) error {
	player, err := actingPlayer(gs, playerID)
	if err != nil {
		return err
	}
	card, ok := gs.Cards[cardID]
	if !ok {
		return rulerr.Newf(rulerr.CodeIllegalAction, "card %s does not exist", cardID)
	}
	if card.Zone != state.ZoneHand || card.Owner != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "not in hand")
	}
	if !chars.Compute(card).IsLand() {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is not a land", card.Base.Name)
	}
	if gs.ActivePlayer != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "lands may only be played on your own turn")
	}
	if !gs.Phase.IsMainPhase() {
		return rulerr.Newf(rulerr.CodeIllegalAction, "lands may only be played during a main phase")
	}
	if len(gs.Stack) > 0 {
		return rulerr.Newf(rulerr.CodeIllegalAction, "lands may not be played while the stack is occupied")
	}
	if player.LandsPlayed >= player.LandLimit {
		return rulerr.Newf(rulerr.CodeLimitExceeded,
			"already played %d of %d lands this turn", player.LandsPlayed, player.LandLimit).
			WithMetadata("limit", strconv.Itoa(player.LandLimit))
	}
	return nil
}

// CanCastSpell checks casting timing: the card must be a non-land in the
// caster's hand, and sorcery-speed spells additionally need the caster's
// own main phase with an empty stack.
func CanCastSpell(gs *state.GameState, playerID, cardID string) error {
	if _, err := actingPlayer(gs, playerID); err != nil {
		return err
	}
	card, ok := gs.Cards[cardID]
	if !ok {
		return rulerr.Newf(rulerr.CodeIllegalAction, "card %s does not exist", cardID)
	}
	if card.Zone != state.ZoneHand || card.Owner != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "not in hand")
	}
	eff := chars.Compute(card)
	if eff.IsLand() {
		return rulerr.Newf(rulerr.CodeIllegalAction, "not a castable spell type")
	}
	if card.Base.SpellSpeed != carddata.SpeedInstant {
		if err := sorceryTiming(gs, playerID); err != nil {
			return err
		}
	}
	return nil
}

// CanActivateAbility checks the ability index and its declared speed.
// Mana abilities may be activated whenever their controller could pay a
// cost, including while casting; other abilities follow spell timing.
func CanActivateAbility(gs *state.GameState, playerID, cardID string, abilityIndex int) error {
	if _, err := actingPlayer(gs, playerID); err != nil {
		return err
	}
	card, ok := gs.Cards[cardID]
	if !ok {
		return rulerr.Newf(rulerr.CodeIllegalAction, "card %s does not exist", cardID)
	}
	if abilityIndex < 0 || abilityIndex >= len(card.Base.Abilities) {
		return rulerr.Newf(rulerr.CodeIllegalAction,
			"%s has no ability %d", card.Base.Name, abilityIndex)
	}
	ability := card.Base.Abilities[abilityIndex]
	if ability.Kind != carddata.AbilityActivated && ability.Kind != carddata.AbilityMana {
		return rulerr.Newf(rulerr.CodeIllegalAction,
			"ability %d of %s is not activatable", abilityIndex, card.Base.Name)
	}

	eff := chars.Compute(card)
	if card.Zone != state.ZoneBattlefield {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is not on the battlefield", eff.Name)
	}
	if eff.Controller != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "you do not control %s", eff.Name)
	}
	if ability.TapCost {
		if card.Tapped {
			return rulerr.Newf(rulerr.CodeIllegalAction, "%s is already tapped", eff.Name)
		}
		if eff.IsCreature() && chars.SummoningSick(card, gs.Turn) {
			return rulerr.Newf(rulerr.CodeIllegalAction, "%s has summoning sickness", eff.Name)
		}
	}
	if ability.Kind != carddata.AbilityMana && ability.Speed == carddata.SpeedSorcery {
		if err := sorceryTiming(gs, playerID); err != nil {
			return err
		}
	}
	return nil
}

// CanPassPriority requires only that the player holds priority in a live
// game.
func CanPassPriority(gs *state.GameState, playerID string) error {
	_, err := actingPlayer(gs, playerID)
	return err
}

// CanDeclareAttackers gates the declare-attackers turn-based action.
func CanDeclareAttackers(gs *state.GameState, playerID string) error {
	if _, err := actingPlayer(gs, playerID); err != nil {
		return err
	}
	if gs.ActivePlayer != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "only the active player declares attackers")
	}
	if gs.Step != state.StepDeclareAttackers {
		return rulerr.Newf(rulerr.CodeIllegalAction,
			"attackers are declared during %s, not %s", state.StepDeclareAttackers, gs.Step)
	}
	if gs.Combat != nil && gs.Combat.AttackersDeclared {
		return rulerr.Newf(rulerr.CodeIllegalAction, "attackers already declared")
	}
	return nil
}

// CanDeclareBlockers gates the declare-blockers turn-based action, taken
// by a defending player.
func CanDeclareBlockers(gs *state.GameState, playerID string) error {
	if _, err := actingPlayer(gs, playerID); err != nil {
		return err
	}
	if gs.ActivePlayer == playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "the attacking player does not declare blockers")
	}
	if gs.Step != state.StepDeclareBlockers {
		return rulerr.Newf(rulerr.CodeIllegalAction,
			"blockers are declared during %s, not %s", state.StepDeclareBlockers, gs.Step)
	}
	if gs.Combat == nil || len(gs.Combat.Attackers) == 0 {
		return rulerr.Newf(rulerr.CodeIllegalAction, "no attackers to block")
	}
	if gs.Combat.BlockersDeclared {
		return rulerr.Newf(rulerr.CodeIllegalAction, "blockers already declared")
	}
	return nil
}

// CanAssignDamage gates manual combat damage division. Damage is dealt as
// the damage step begins, so the division must be submitted while
// blockers are being declared.
func CanAssignDamage(gs *state.GameState, playerID string) error {
	if _, err := actingPlayer(gs, playerID); err != nil {
		return err
	}
	if gs.ActivePlayer != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "only the attacking player assigns combat damage")
	}
	if gs.Step != state.StepDeclareBlockers {
		return rulerr.Newf(rulerr.CodeIllegalAction,
			"damage is assigned during %s, not %s", state.StepDeclareBlockers, gs.Step)
	}
	if gs.Combat == nil || !gs.Combat.BlockersDeclared {
		return rulerr.Newf(rulerr.CodeIllegalAction, "blockers are not declared yet")
	}
	return nil
}

// actingPlayer verifies the game is live, the player exists, still plays,
// and holds priority.
func actingPlayer(gs *state.GameState, playerID string) (*state.PlayerState, error) {
	if gs.Over {
		return nil, rulerr.New(rulerr.CodeGameAlreadyOver, "the game is over")
	}
	player, ok := gs.Players[playerID]
	if !ok {
		return nil, rulerr.Newf(rulerr.CodeIllegalAction, "unknown player %s", playerID)
	}
	if player.Lost {
		return nil, rulerr.Newf(rulerr.CodeIllegalAction, "player %s has lost the game", playerID)
	}
	if gs.PriorityPlayer != playerID {
		return nil, rulerr.Newf(rulerr.CodeIllegalAction,
			"%s does not have priority", playerID).
			WithMetadata("priority", gs.PriorityPlayer)
	}
	return player, nil
}

func sorceryTiming(gs *state.GameState, playerID string) error {
	if gs.ActivePlayer != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "sorcery-speed actions need your own turn")
	}
	if !gs.Phase.IsMainPhase() {
		return rulerr.Newf(rulerr.CodeIllegalAction, "sorcery-speed actions need a main phase")
	}
	if len(gs.Stack) > 0 {
		return rulerr.Newf(rulerr.CodeIllegalAction, "sorcery-speed actions need an empty stack")
	}
	return nil
}
