// Package chars computes a card's current effective characteristics from
// its printed base plus active modifications. It is a stateless
// derivation, recomputed on demand; nothing here mutates game state.
package chars

import (
	"sort"
	"strconv"
	"strings"

	"github.com/openduel/engine-go/internal/game/state"
)

// Effective is the result of characteristic computation for one card.
type Effective struct {
	Name       string
	ManaCost   string
	Colors     []string
	Supertypes []string
	Types      []string
	Subtypes   []string
	Keywords   []string
	Controller string
	Power      int
	Toughness  int
	// HasPT is false for cards with no printed power/toughness and no
	// effect setting one.
	HasPT bool
}

// Compute applies the modification layers in fixed order: printed base,
// copy, control, text, type/color, power/toughness setting,
// power/toughness modification in timestamp order, then counters. Each
// layer only sees the output of prior layers; the order never depends on
// the order modifications were created, except inside the modify layer
// where timestamps break ties.
func Compute(card *state.CardObject) Effective {
	base := card.Base
	for _, mod := range sortedMods(card, state.LayerCopy) {
		if mod.CopyBase != nil {
			base = *mod.CopyBase
		}
	}

	eff := Effective{
		Name:       base.Name,
		ManaCost:   base.ManaCost,
		Colors:     append([]string(nil), base.Colors...),
		Supertypes: append([]string(nil), base.Supertypes...),
		Types:      append([]string(nil), base.Types...),
		Subtypes:   append([]string(nil), base.Subtypes...),
		Keywords:   append([]string(nil), base.Keywords...),
		Controller: card.Controller,
	}
	eff.Power, eff.HasPT = parsePT(base.Power)
	if toughness, ok := parsePT(base.Toughness); ok {
		eff.Toughness = toughness
		eff.HasPT = true
	}

	for _, mod := range sortedMods(card, state.LayerControl) {
		if mod.NewController != "" {
			eff.Controller = mod.NewController
		}
	}

	for _, mod := range sortedMods(card, state.LayerText) {
		if mod.NewName != "" {
			eff.Name = mod.NewName
		}
	}

	for _, mod := range sortedMods(card, state.LayerTypeColor) {
		for _, t := range mod.RemoveTypes {
			eff.Types = removeFold(eff.Types, t)
			eff.Subtypes = removeFold(eff.Subtypes, t)
		}
		for _, t := range mod.AddTypes {
			eff.Types = appendUnique(eff.Types, t)
		}
		for _, c := range mod.AddColors {
			eff.Colors = appendUnique(eff.Colors, c)
		}
		for _, k := range mod.AddKeywords {
			eff.Keywords = appendUnique(eff.Keywords, strings.ToLower(k))
		}
	}

	for _, mod := range sortedMods(card, state.LayerPTSet) {
		if mod.SetPower != nil {
			eff.Power = *mod.SetPower
			eff.HasPT = true
		}
		if mod.SetToughness != nil {
			eff.Toughness = *mod.SetToughness
			eff.HasPT = true
		}
	}

	for _, mod := range sortedMods(card, state.LayerPTModify) {
		eff.Power += mod.PowerDelta
		eff.Toughness += mod.ToughnessDelta
	}

	counterPower, counterToughness := card.Counters.BoostTotals()
	eff.Power += counterPower
	eff.Toughness += counterToughness

	return eff
}

// sortedMods returns the card's modifications for one layer in timestamp
// order.
func sortedMods(card *state.CardObject, layer state.Layer) []state.Modification {
	var mods []state.Modification
	for _, mod := range card.Mods {
		if mod.Layer == layer {
			mods = append(mods, mod)
		}
	}
	sort.SliceStable(mods, func(i, j int) bool { return mods[i].Seq < mods[j].Seq })
	return mods
}

func parsePT(printed string) (int, bool) {
	printed = strings.TrimSpace(printed)
	if printed == "" {
		return 0, false
	}
	// Star values depend on an effect to define them; without one they
	// count as zero.
	if printed == "*" {
		return 0, true
	}
	if v, err := strconv.Atoi(printed); err == nil {
		return v, true
	}
	return 0, true
}

func removeFold(list []string, target string) []string {
	kept := list[:0]
	for _, s := range list {
		if !strings.EqualFold(s, target) {
			kept = append(kept, s)
		}
	}
	return kept
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, s) {
			return list
		}
	}
	return append(list, s)
}

// HasType reports whether the effective type line includes the given card
// type or subtype.
func (e Effective) HasType(name string) bool {
	for _, t := range e.Types {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	for _, t := range e.Subtypes {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// HasKeyword reports whether the card currently has the given keyword
// ability.
func (e Effective) HasKeyword(keyword string) bool {
	for _, k := range e.Keywords {
		if strings.EqualFold(k, keyword) {
			return true
		}
	}
	return false
}

// IsCreature reports whether the card is currently a creature.
func (e Effective) IsCreature() bool { return e.HasType("Creature") }

// IsLand reports whether the card is currently a land.
func (e Effective) IsLand() bool { return e.HasType("Land") }

// Keywords the combat rules consult.
const (
	KeywordFlying      = "flying"
	KeywordReach       = "reach"
	KeywordHaste       = "haste"
	KeywordVigilance   = "vigilance"
	KeywordDefender    = "defender"
	KeywordMenace      = "menace"
	KeywordTrample     = "trample"
	KeywordDeathtouch  = "deathtouch"
	KeywordLifelink    = "lifelink"
	KeywordFirstStrike = "first strike"
	KeywordHexproof    = "hexproof"
)

// SummoningSick reports whether the card is still subject to summoning
// sickness on the given turn: it entered the battlefield this turn under
// its current controller and does not have haste.
func SummoningSick(card *state.CardObject, turn int) bool {
	if !card.EnteredThisTurn(turn) {
		return false
	}
	return !Compute(card).HasKeyword(KeywordHaste)
}
