// Package rules holds the pure rules judgment of the engine: action
// validators, the turn and priority state machine, combat legality, and
// state-based actions. Nothing here performs I/O; every function operates
// on a GameState the caller owns.
package rules

import (
	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/state"
)

type turnEntry struct {
	phase state.Phase
	step  state.Step
}

// baseTurnSequence is the turn structure without the first strike damage
// step, which is inserted dynamically when combat includes a first
// striker.
var baseTurnSequence = []turnEntry{
	{state.PhaseBeginning, state.StepUntap},
	{state.PhaseBeginning, state.StepUpkeep},
	{state.PhaseBeginning, state.StepDraw},
	{state.PhasePrecombatMain, state.StepMain1},
	{state.PhaseCombat, state.StepBeginCombat},
	{state.PhaseCombat, state.StepDeclareAttackers},
	{state.PhaseCombat, state.StepDeclareBlockers},
	{state.PhaseCombat, state.StepCombatDamage},
	{state.PhaseCombat, state.StepEndCombat},
	{state.PhasePostcombatMain, state.StepMain2},
	{state.PhaseEnding, state.StepEnd},
	{state.PhaseEnding, state.StepCleanup},
}

func sequenceIndex(step state.Step) int {
	for i, entry := range baseTurnSequence {
		if entry.step == step {
			return i
		}
	}
	return -1
}

// stepGrantsPriority reports whether players receive priority during the
// step. Untap and cleanup pass by without a priority window.
func stepGrantsPriority(step state.Step) bool {
	return step != state.StepUntap && step != state.StepCleanup
}

// combatHasFirstStriker reports whether any declared attacker or blocker
// currently has first strike, which inserts the extra damage step.
func combatHasFirstStriker(gs *state.GameState) bool {
	if gs.Combat == nil {
		return false
	}
	check := func(id string) bool {
		card, ok := gs.Cards[id]
		if !ok || card.Zone != state.ZoneBattlefield {
			return false
		}
		return chars.Compute(card).HasKeyword(chars.KeywordFirstStrike)
	}
	for _, attacker := range gs.Combat.Attackers {
		if check(attacker) {
			return true
		}
		for _, blocker := range gs.Combat.Blockers[attacker] {
			if check(blocker) {
				return true
			}
		}
	}
	return false
}

// nextEntry computes the step after the current one, handling the dynamic
// pieces of the sequence: the optional first strike damage step, and the
// jump from declare-attackers to end-of-combat when nothing attacks.
func nextEntry(gs *state.GameState) (turnEntry, bool) {
	switch gs.Step {
	case state.StepDeclareAttackers:
		if gs.Combat == nil || len(gs.Combat.Attackers) == 0 {
			return turnEntry{state.PhaseCombat, state.StepEndCombat}, false
		}
	case state.StepDeclareBlockers:
		if combatHasFirstStriker(gs) {
			return turnEntry{state.PhaseCombat, state.StepFirstStrikeDamage}, false
		}
		return turnEntry{state.PhaseCombat, state.StepCombatDamage}, false
	case state.StepFirstStrikeDamage:
		return turnEntry{state.PhaseCombat, state.StepCombatDamage}, false
	}

	idx := sequenceIndex(gs.Step)
	if idx == -1 || idx+1 >= len(baseTurnSequence) {
		return baseTurnSequence[0], true
	}
	return baseTurnSequence[idx+1], false
}

// AdvanceStep moves the game to the next step, performing the turn-based
// housekeeping of each step it enters: untapping, the draw, cleanup, and
// the turn roll. Steps without a priority window are passed through, so
// the state always lands on a step where a player can act (or on a
// finished game). Combat damage steps are returned to the caller before
// priority opens; dealing the damage is the caller's turn-based action.
//
// On every step change pass flags reset, mana pools empty, and priority
// returns to the active player.
func AdvanceStep(gs *state.GameState) state.Step {
	for {
		entry, rolled := nextEntry(gs)
		if rolled {
			rollTurn(gs)
		}
		gs.Phase = entry.phase
		gs.Step = entry.step
		gs.ResetPasses()
		emptyManaPools(gs)
		gs.PriorityPlayer = gs.ActivePlayer

		switch entry.step {
		case state.StepUntap:
			untapStep(gs)
		case state.StepUpkeep:
			gs.RecordEvent(gs.ActivePlayer, state.ZoneOutside, state.ZoneOutside, state.CauseUpkeep)
		case state.StepDraw:
			if !drawStep(gs) {
				return gs.Step
			}
		case state.StepBeginCombat:
			gs.Combat = state.NewCombat()
		case state.StepEndCombat:
			ExpireEndOfCombat(gs)
			gs.Combat = nil
		case state.StepCleanup:
			cleanupStep(gs)
		}

		if gs.Over {
			return gs.Step
		}
		if stepGrantsPriority(entry.step) {
			return gs.Step
		}
	}
}

func rollTurn(gs *state.GameState) {
	gs.Turn++
	gs.ActivePlayer = gs.NextInOrder(gs.ActivePlayer)
	for _, player := range gs.Players {
		player.LandsPlayed = 0
		player.LandLimit = 1
	}
}

// untapStep untaps every permanent the active player controls.
func untapStep(gs *state.GameState) {
	for _, card := range gs.BattlefieldCards() {
		if chars.Compute(card).Controller == gs.ActivePlayer {
			card.Tapped = false
		}
	}
}

// drawStep performs the turn-based draw. Returns false when the draw
// failed and ended the game for the active player; the caller stops
// advancing so the loss is observable where it happened.
func drawStep(gs *state.GameState) bool {
	if gs.SkipDrawFor == gs.ActivePlayer && gs.Turn == 1 {
		gs.SkipDrawFor = ""
		return true
	}
	return DrawCards(gs, gs.ActivePlayer, 1)
}

// DrawCards moves n cards from the top of a player's library to their
// hand. A draw from an empty library flags the player; the next
// state-based action sweep turns the flag into a loss. Returns false when
// a draw failed.
func DrawCards(gs *state.GameState, playerID string, n int) bool {
	player, ok := gs.Players[playerID]
	if !ok {
		return false
	}
	for i := 0; i < n; i++ {
		if len(player.Library) == 0 {
			player.DrewFromEmpty = true
			return false
		}
		top := player.Library[len(player.Library)-1]
		if err := gs.MoveCard(top, state.ZoneLibrary, state.ZoneHand, state.CauseDraw); err != nil {
			return false
		}
	}
	return true
}

// cleanupStep discards the active player down to maximum hand size,
// removes all marked damage, and expires until-end-of-turn effects.
func cleanupStep(gs *state.GameState) {
	player, ok := gs.Players[gs.ActivePlayer]
	if ok {
		for len(player.Hand) > state.DefaultHandSize {
			last := player.Hand[len(player.Hand)-1]
			if err := gs.MoveCard(last, state.ZoneHand, state.ZoneGraveyard, state.CauseDiscard); err != nil {
				break
			}
		}
	}
	for _, card := range gs.BattlefieldCards() {
		card.DamageMarked = 0
		card.DeathtouchHit = false
	}
	ExpireEndOfTurn(gs)
}

// ExpireEndOfTurn drops every until-end-of-turn modification in the game.
func ExpireEndOfTurn(gs *state.GameState) {
	for _, card := range gs.Cards {
		card.ExpireMods(carddata.DurationEndOfTurn)
	}
}

// ExpireEndOfCombat drops until-end-of-combat modifications.
func ExpireEndOfCombat(gs *state.GameState) {
	for _, card := range gs.Cards {
		card.ExpireMods(carddata.DurationEndOfCombat)
	}
}

func emptyManaPools(gs *state.GameState) {
	for _, player := range gs.Players {
		player.ManaPool.Empty()
	}
}
