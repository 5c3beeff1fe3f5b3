// Package carddata defines the canonical card-definition model and the
// sources that resolve definitions and token templates. External payloads
// are normalized into CardDefinition exactly once, at this boundary; the
// engine never sees untyped card data.
package carddata

import "strings"

// Speed is a timing restriction for spells and activated abilities.
type Speed string

const (
	// SpeedInstant allows casting/activation any time the player holds
	// priority.
	SpeedInstant Speed = "INSTANT"
	// SpeedSorcery restricts casting/activation to the player's own main
	// phase with an empty stack.
	SpeedSorcery Speed = "SORCERY"
)

// AbilityKind classifies a card ability.
type AbilityKind string

const (
	AbilityActivated AbilityKind = "ACTIVATED"
	AbilityTriggered AbilityKind = "TRIGGERED"
	AbilityStatic    AbilityKind = "STATIC"
	// AbilityMana marks activated abilities that produce mana; they
	// resolve immediately without using the stack.
	AbilityMana AbilityKind = "MANA"
)

// Trigger events recognized by the trigger detector.
const (
	TriggerEntersBattlefield = "enters_battlefield"
	TriggerDies              = "dies"
	TriggerAttacks           = "attacks"
	TriggerUpkeep            = "upkeep"
	TriggerLandPlayed        = "land_played"
	TriggerSpellCast         = "spell_cast"
)

// TriggerSpec declares the condition under which a triggered ability
// queues itself.
type TriggerSpec struct {
	Event string `json:"event"`
	// Self restricts the trigger to events about the source card itself
	// (e.g. "when this creature enters the battlefield").
	Self bool `json:"self,omitempty"`
	// OfType restricts the trigger to events whose subject has the given
	// card type (e.g. "whenever a Creature dies").
	OfType string `json:"of_type,omitempty"`
	// ControllerOnly restricts the trigger to events caused by the
	// source's controller.
	ControllerOnly bool `json:"controller_only,omitempty"`
}

// TargetSpec declares one target requirement of a spell or ability.
type TargetSpec struct {
	Kind     string `json:"kind"` // creature | player | any | permanent | spell
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Optional bool   `json:"optional,omitempty"`
}

// Target kinds.
const (
	TargetCreature  = "creature"
	TargetPlayer    = "player"
	TargetAny       = "any"
	TargetPermanent = "permanent"
	TargetSpell     = "spell"
)

// EffectDescriptor is one tagged effect step. Op selects the variant; the
// remaining fields parameterize it. Ops outside the recognized vocabulary
// fail closed at resolution.
type EffectDescriptor struct {
	Op       string `json:"op"`
	Selector string `json:"selector,omitempty"` // self | target[i] | controller | opponent | each_player | each_creature

	// move_card
	ToZone string `json:"to_zone,omitempty"`

	// create_token
	TokenSet  string `json:"token_set,omitempty"`
	TokenName string `json:"token_name,omitempty"`
	Count     int    `json:"count,omitempty"`

	// modify_characteristic / grant_ability
	SetPower       *int     `json:"set_power,omitempty"`
	SetToughness   *int     `json:"set_toughness,omitempty"`
	PowerDelta     int      `json:"power_delta,omitempty"`
	ToughnessDelta int      `json:"toughness_delta,omitempty"`
	AddTypes       []string `json:"add_types,omitempty"`
	RemoveTypes    []string `json:"remove_types,omitempty"`
	AddColors      []string `json:"add_colors,omitempty"`
	AddKeywords    []string `json:"add_keywords,omitempty"`
	SetName        string   `json:"set_name,omitempty"`
	SetController  string   `json:"set_controller,omitempty"`
	Keyword        string   `json:"keyword,omitempty"`
	Duration       string   `json:"duration,omitempty"` // end_of_turn | end_of_combat | while_on_battlefield | permanent

	// deal_damage / gain_life / lose_life / draw_cards / add_counters /
	// raise_land_limit
	Amount  int    `json:"amount,omitempty"`
	Counter string `json:"counter,omitempty"`

	// add_mana
	Mana []string `json:"mana,omitempty"`
}

// Recognized effect ops.
const (
	OpMoveCard       = "move_card"
	OpCreateToken    = "create_token"
	OpModifyChars    = "modify_characteristic"
	OpDealDamage     = "deal_damage"
	OpGainLife       = "gain_life"
	OpLoseLife       = "lose_life"
	OpDrawCards      = "draw_cards"
	OpGrantAbility   = "grant_ability"
	OpAddMana        = "add_mana"
	OpAddCounters    = "add_counters"
	OpTap            = "tap"
	OpUntap          = "untap"
	OpCounterSpell   = "counter_spell"
	OpRaiseLandLimit = "raise_land_limit"
)

// Effect durations. An empty duration means permanent.
const (
	DurationEndOfTurn    = "end_of_turn"
	DurationEndOfCombat  = "end_of_combat"
	DurationWhileOnField = "while_on_battlefield"
	DurationPermanent    = "permanent"
)

// AbilityDefinition is one ability printed on a card.
type AbilityDefinition struct {
	Kind    AbilityKind        `json:"kind"`
	Cost    string             `json:"cost,omitempty"` // mana symbols, e.g. "{1}{W}"
	TapCost bool               `json:"tap_cost,omitempty"`
	Speed   Speed              `json:"speed,omitempty"`
	Targets []TargetSpec       `json:"targets,omitempty"`
	Effects []EffectDescriptor `json:"effects,omitempty"`
	Trigger *TriggerSpec       `json:"trigger,omitempty"`
	// Mana lists the colors produced by a mana ability.
	Mana []string `json:"mana,omitempty"`
	Text string   `json:"text,omitempty"`
}

// CardDefinition is the canonical, fully-typed card definition consumed
// by the engine. All external card payloads normalize into this shape.
type CardDefinition struct {
	OracleID    string `json:"oracle_id,omitempty"`
	SetCode     string `json:"set_code,omitempty"`
	CollectorID string `json:"collector_id,omitempty"`

	Name       string   `json:"name"`
	ManaCost   string   `json:"mana_cost,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	Supertypes []string `json:"supertypes,omitempty"`
	Types      []string `json:"types,omitempty"`
	Subtypes   []string `json:"subtypes,omitempty"`
	Power      string   `json:"power,omitempty"`
	Toughness  string   `json:"toughness,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Text       string   `json:"text,omitempty"`

	// Spell behavior (non-permanent or permanent ETB side, per data).
	SpellSpeed   Speed              `json:"spell_speed,omitempty"`
	SpellTargets []TargetSpec       `json:"spell_targets,omitempty"`
	SpellEffects []EffectDescriptor `json:"spell_effects,omitempty"`

	Abilities []AbilityDefinition `json:"abilities,omitempty"`

	IsToken bool `json:"is_token,omitempty"`
}

// Card type names used by the rules.
const (
	TypeLand         = "Land"
	TypeCreature     = "Creature"
	TypeInstant      = "Instant"
	TypeSorcery      = "Sorcery"
	TypeArtifact     = "Artifact"
	TypeEnchantment  = "Enchantment"
	TypePlaneswalker = "Planeswalker"
	TypeBattle       = "Battle"
)

// HasType reports whether the printed types include t (case-insensitive).
func (d CardDefinition) HasType(t string) bool {
	for _, have := range d.Types {
		if strings.EqualFold(have, t) {
			return true
		}
	}
	return false
}

// IsPermanent reports whether the card stays on the battlefield when it
// resolves.
func (d CardDefinition) IsPermanent() bool {
	return !d.HasType(TypeInstant) && !d.HasType(TypeSorcery)
}

// TypeLine renders the full printed type line.
func (d CardDefinition) TypeLine() string {
	var b strings.Builder
	for _, s := range d.Supertypes {
		b.WriteString(s)
		b.WriteString(" ")
	}
	b.WriteString(strings.Join(d.Types, " "))
	if len(d.Subtypes) > 0 {
		b.WriteString(" - ")
		b.WriteString(strings.Join(d.Subtypes, " "))
	}
	return b.String()
}

// Copy returns a deep copy of the definition.
func (d CardDefinition) Copy() CardDefinition {
	out := d
	out.Colors = copyStrings(d.Colors)
	out.Supertypes = copyStrings(d.Supertypes)
	out.Types = copyStrings(d.Types)
	out.Subtypes = copyStrings(d.Subtypes)
	out.Keywords = copyStrings(d.Keywords)
	out.SpellTargets = append([]TargetSpec(nil), d.SpellTargets...)
	out.SpellEffects = CopyEffects(d.SpellEffects)
	if d.Abilities != nil {
		out.Abilities = make([]AbilityDefinition, len(d.Abilities))
		for i, ab := range d.Abilities {
			cp := ab
			cp.Targets = append([]TargetSpec(nil), ab.Targets...)
			cp.Effects = CopyEffects(ab.Effects)
			cp.Mana = copyStrings(ab.Mana)
			if ab.Trigger != nil {
				trigger := *ab.Trigger
				cp.Trigger = &trigger
			}
			out.Abilities[i] = cp
		}
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// CopyEffects deep-copies a descriptor list. Stack objects snapshot their
// effect lists with it so later changes to the source do not leak in.
func CopyEffects(in []EffectDescriptor) []EffectDescriptor {
	if in == nil {
		return nil
	}
	out := make([]EffectDescriptor, len(in))
	for i, e := range in {
		cp := e
		if e.SetPower != nil {
			v := *e.SetPower
			cp.SetPower = &v
		}
		if e.SetToughness != nil {
			v := *e.SetToughness
			cp.SetToughness = &v
		}
		cp.AddTypes = copyStrings(e.AddTypes)
		cp.RemoveTypes = copyStrings(e.RemoveTypes)
		cp.AddColors = copyStrings(e.AddColors)
		cp.AddKeywords = copyStrings(e.AddKeywords)
		cp.Mana = copyStrings(e.Mana)
		out[i] = cp
	}
	return out
}
