// Package targeting checks chosen targets against a spell or ability's
// declared target specs, both when the object is put on the stack and
// again at resolution.
package targeting

import (
	"strings"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/rulerr"
	"github.com/openduel/engine-go/internal/game/state"
)

// ValidateSelection checks a flat target list against the spec list.
// Specs consume targets greedily in order: each spec takes up to its Max
// entries before the next spec begins. The same target may not be chosen
// twice.
func ValidateSelection(gs *state.GameState, controller string, specs []carddata.TargetSpec, chosen []string) error {
	minTotal, maxTotal := 0, 0
	for _, spec := range specs {
		minTotal += spec.Min
		maxTotal += spec.Max
	}
	if len(chosen) < minTotal {
		return rulerr.Newf(rulerr.CodeInvalidTarget,
			"not enough targets: need at least %d, got %d", minTotal, len(chosen))
	}
	if len(chosen) > maxTotal {
		return rulerr.Newf(rulerr.CodeInvalidTarget,
			"too many targets: need at most %d, got %d", maxTotal, len(chosen))
	}

	seen := make(map[string]bool, len(chosen))
	for _, id := range chosen {
		if seen[id] {
			return rulerr.Newf(rulerr.CodeInvalidTarget, "duplicate target %s", id)
		}
		seen[id] = true
	}

	idx := 0
	for _, spec := range specs {
		taken := 0
		for idx < len(chosen) && taken < spec.Max {
			if err := Check(gs, controller, spec, chosen[idx]); err != nil {
				return err
			}
			idx++
			taken++
		}
		if taken < spec.Min {
			return rulerr.Newf(rulerr.CodeInvalidTarget,
				"target %q requires %d choices, got %d", spec.Kind, spec.Min, taken)
		}
	}
	return nil
}

// Check verifies one target against one spec in the current state. It is
// called both at cast time and again at resolution; a target that has
// become illegal in between causes the spell to fizzle.
func Check(gs *state.GameState, controller string, spec carddata.TargetSpec, targetID string) error {
	switch spec.Kind {
	case carddata.TargetPlayer:
		return checkPlayer(gs, targetID)

	case carddata.TargetSpell:
		for _, obj := range gs.Stack {
			if obj.ID == targetID {
				return nil
			}
		}
		return rulerr.Newf(rulerr.CodeInvalidTarget, "target %s is not a spell on the stack", targetID)

	case carddata.TargetCreature:
		return checkBattlefieldCard(gs, controller, targetID, "Creature")

	case carddata.TargetPermanent:
		return checkBattlefieldCard(gs, controller, targetID, "")

	case carddata.TargetAny:
		if err := checkPlayer(gs, targetID); err == nil {
			return nil
		}
		return checkBattlefieldCard(gs, controller, targetID, "Creature")

	default:
		return rulerr.Newf(rulerr.CodeInvalidTarget, "unknown target kind %q", spec.Kind)
	}
}

// Legal reports whether the target is still valid, for fizzle checks at
// resolution.
func Legal(gs *state.GameState, controller string, spec carddata.TargetSpec, targetID string) bool {
	return Check(gs, controller, spec, targetID) == nil
}

func checkPlayer(gs *state.GameState, targetID string) error {
	player, ok := gs.Players[targetID]
	if !ok {
		return rulerr.Newf(rulerr.CodeInvalidTarget, "target %s is not a player", targetID)
	}
	if player.Lost {
		return rulerr.Newf(rulerr.CodeInvalidTarget, "player %s has lost the game", targetID)
	}
	return nil
}

func checkBattlefieldCard(gs *state.GameState, controller, targetID, requiredType string) error {
	card, ok := gs.Cards[targetID]
	if !ok {
		return rulerr.Newf(rulerr.CodeInvalidTarget, "target %s not found", targetID)
	}
	if card.Zone != state.ZoneBattlefield {
		return rulerr.Newf(rulerr.CodeInvalidTarget,
			"target %s is in %s, not on the battlefield", targetID, card.Zone)
	}

	eff := chars.Compute(card)
	if requiredType != "" && !eff.HasType(requiredType) {
		return rulerr.Newf(rulerr.CodeInvalidTarget,
			"target %s is not a %s", eff.Name, strings.ToLower(requiredType))
	}
	if eff.HasKeyword(chars.KeywordHexproof) && eff.Controller != controller {
		return rulerr.Newf(rulerr.CodeInvalidTarget,
			"target %s has hexproof", eff.Name)
	}
	return nil
}
