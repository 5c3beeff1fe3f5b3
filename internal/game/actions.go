package game

import (
	"encoding/json"
	"fmt"
)

// ActionKind selects the variant of an Action.
type ActionKind int

const (
	ActionPlayLand ActionKind = iota
	ActionCastSpell
	ActionActivateAbility
	ActionPassPriority
	ActionDeclareAttackers
	ActionDeclareBlockers
	ActionAssignDamage
)

var actionKindNames = map[ActionKind]string{
	ActionPlayLand:         "play_land",
	ActionCastSpell:        "cast_spell",
	ActionActivateAbility:  "activate_ability",
	ActionPassPriority:     "pass_priority",
	ActionDeclareAttackers: "declare_attackers",
	ActionDeclareBlockers:  "declare_blockers",
	ActionAssignDamage:     "assign_damage",
}

func (k ActionKind) String() string {
	if name, ok := actionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// ParseActionKind maps a wire name back to its kind.
func ParseActionKind(s string) (ActionKind, error) {
	for kind, name := range actionKindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown action kind %q", s)
}

// Action is one player request. Kind selects the variant; the remaining
// fields parameterize it and are ignored by the other variants.
type Action struct {
	Kind ActionKind

	// CardID names the card instance for play_land, cast_spell, and
	// activate_ability.
	CardID string
	// AbilityIndex selects the ability for activate_ability.
	AbilityIndex int
	// Targets holds chosen target ids for cast_spell and activate_ability,
	// positional against the card's target specs.
	Targets []string
	// Modes holds chosen mode indices for modal spells.
	Modes []int
	// X is the chosen value for costs with an {X} component.
	X int

	// Attackers lists the declared attackers; empty declares no attack.
	Attackers []string
	// Blocks maps each blocked attacker to its blockers in damage order.
	Blocks map[string][]string
	// Assignments maps attacker id to recipient id to damage amount for
	// explicit combat damage division.
	Assignments map[string]map[string]int
}

// actionWire is the JSON shape of an Action; the kind travels by name.
type actionWire struct {
	Kind         string                    `json:"kind"`
	CardID       string                    `json:"card_id,omitempty"`
	AbilityIndex int                       `json:"ability_index,omitempty"`
	Targets      []string                  `json:"targets,omitempty"`
	Modes        []int                     `json:"modes,omitempty"`
	X            int                       `json:"x,omitempty"`
	Attackers    []string                  `json:"attackers,omitempty"`
	Blocks       map[string][]string       `json:"blocks,omitempty"`
	Assignments  map[string]map[string]int `json:"assignments,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionWire{
		Kind:         a.Kind.String(),
		CardID:       a.CardID,
		AbilityIndex: a.AbilityIndex,
		Targets:      a.Targets,
		Modes:        a.Modes,
		X:            a.X,
		Attackers:    a.Attackers,
		Blocks:       a.Blocks,
		Assignments:  a.Assignments,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Action) UnmarshalJSON(data []byte) error {
	var wire actionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	kind, err := ParseActionKind(wire.Kind)
	if err != nil {
		return err
	}
	*a = Action{
		Kind:         kind,
		CardID:       wire.CardID,
		AbilityIndex: wire.AbilityIndex,
		Targets:      wire.Targets,
		Modes:        wire.Modes,
		X:            wire.X,
		Attackers:    wire.Attackers,
		Blocks:       wire.Blocks,
		Assignments:  wire.Assignments,
	}
	return nil
}
