package rules

import (
	"github.com/openduel/engine-go/internal/game/state"
)

// PassOutcome tells the caller what a priority pass led to.
type PassOutcome int

const (
	// OutcomePassed means priority simply moved to the next player.
	OutcomePassed PassOutcome = iota
	// OutcomeResolveTop means every player passed with objects on the
	// stack; the caller must resolve the top object.
	OutcomeResolveTop
	// OutcomeAdvanceStep means every player passed on an empty stack; the
	// caller must advance to the next step.
	OutcomeAdvanceStep
)

var passOutcomeNames = map[PassOutcome]string{
	OutcomePassed:      "PASSED",
	OutcomeResolveTop:  "RESOLVE_TOP",
	OutcomeAdvanceStep: "ADVANCE_STEP",
}

func (o PassOutcome) String() string {
	if name, ok := passOutcomeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// PassPriority records playerID's pass and moves priority along. When the
// pass completes a full round it reports whether the stack should resolve
// or the step should advance; the caller performs that follow-up and then
// restores priority with ResetAfterResolution or AdvanceStep.
func PassPriority(gs *state.GameState, playerID string) (PassOutcome, error) {
	if err := CanPassPriority(gs, playerID); err != nil {
		return OutcomePassed, err
	}

	gs.Players[playerID].Passed = true
	if gs.AllPassed() {
		if len(gs.Stack) > 0 {
			return OutcomeResolveTop, nil
		}
		return OutcomeAdvanceStep, nil
	}
	gs.PriorityPlayer = gs.NextInOrder(playerID)
	return OutcomePassed, nil
}

// ResetAfterResolution reopens the priority round after a stack object
// resolved or a hold-priority action happened: passes clear and the
// active player receives priority.
func ResetAfterResolution(gs *state.GameState) {
	gs.ResetPasses()
	gs.PriorityPlayer = gs.ActivePlayer
}
