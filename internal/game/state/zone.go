package state

import "fmt"

// Zone identifies a card's current location.
type Zone int

const (
	ZoneLibrary Zone = iota
	ZoneHand
	ZoneBattlefield
	ZoneGraveyard
	ZoneStack
	ZoneExile
	ZoneCommand
	// ZoneOutside is where tokens come from and where they go when they
	// cease to exist. No card ever has it as its current zone.
	ZoneOutside
)

var zoneNames = map[Zone]string{
	ZoneLibrary:     "LIBRARY",
	ZoneHand:        "HAND",
	ZoneBattlefield: "BATTLEFIELD",
	ZoneGraveyard:   "GRAVEYARD",
	ZoneStack:       "STACK",
	ZoneExile:       "EXILE",
	ZoneCommand:     "COMMAND",
	ZoneOutside:     "OUTSIDE",
}

func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("ZONE_%d", int(z))
}

// ParseZone resolves a zone name as carried in action payloads and effect
// descriptors. Unknown names return false.
func ParseZone(name string) (Zone, bool) {
	for zone, zoneName := range zoneNames {
		if zoneName == name {
			return zone, true
		}
	}
	switch name {
	case "library":
		return ZoneLibrary, true
	case "hand":
		return ZoneHand, true
	case "battlefield":
		return ZoneBattlefield, true
	case "graveyard":
		return ZoneGraveyard, true
	case "stack":
		return ZoneStack, true
	case "exile":
		return ZoneExile, true
	case "command":
		return ZoneCommand, true
	case "outside":
		return ZoneOutside, true
	}
	return 0, false
}

// Phase represents the broad phases of a turn.
type Phase int

const (
	PhaseBeginning Phase = iota
	PhasePrecombatMain
	PhaseCombat
	PhasePostcombatMain
	PhaseEnding
)

var phaseNames = map[Phase]string{
	PhaseBeginning:      "BEGINNING",
	PhasePrecombatMain:  "PRECOMBAT_MAIN",
	PhaseCombat:         "COMBAT",
	PhasePostcombatMain: "POSTCOMBAT_MAIN",
	PhaseEnding:         "ENDING",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Step represents the individual steps that comprise a turn.
type Step int

const (
	StepUntap Step = iota
	StepUpkeep
	StepDraw
	StepMain1
	StepBeginCombat
	StepDeclareAttackers
	StepDeclareBlockers
	StepFirstStrikeDamage
	StepCombatDamage
	StepEndCombat
	StepMain2
	StepEnd
	StepCleanup
)

var stepNames = map[Step]string{
	StepUntap:             "UNTAP",
	StepUpkeep:            "UPKEEP",
	StepDraw:              "DRAW",
	StepMain1:             "MAIN1",
	StepBeginCombat:       "BEGIN_COMBAT",
	StepDeclareAttackers:  "DECLARE_ATTACKERS",
	StepDeclareBlockers:   "DECLARE_BLOCKERS",
	StepFirstStrikeDamage: "FIRST_STRIKE_DAMAGE",
	StepCombatDamage:      "COMBAT_DAMAGE",
	StepEndCombat:         "END_COMBAT",
	StepMain2:             "MAIN2",
	StepEnd:               "END",
	StepCleanup:           "CLEANUP",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// IsMainPhase reports whether sorcery-speed actions are allowed in p.
func (p Phase) IsMainPhase() bool {
	return p == PhasePrecombatMain || p == PhasePostcombatMain
}

// StackKind distinguishes what a StackObject represents.
type StackKind int

const (
	StackSpell StackKind = iota
	StackActivatedAbility
	StackTriggeredAbility
)

var stackKindNames = map[StackKind]string{
	StackSpell:            "SPELL",
	StackActivatedAbility: "ACTIVATED_ABILITY",
	StackTriggeredAbility: "TRIGGERED_ABILITY",
}

func (k StackKind) String() string {
	if name, ok := stackKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("STACK_KIND_%d", int(k))
}
