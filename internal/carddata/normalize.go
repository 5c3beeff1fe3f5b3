package carddata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Normalize converts one untyped card payload into the canonical
// CardDefinition. Source payloads mix naming conventions (snake_case,
// camelCase, legacy aliases) and value shapes (numbers as strings, type
// lines vs. type arrays); everything is resolved here so the engine never
// branches on field presence.
func Normalize(raw map[string]any) (CardDefinition, error) {
	if raw == nil {
		return CardDefinition{}, fmt.Errorf("card payload is nil")
	}

	def := CardDefinition{
		OracleID:    stringField(raw, "oracle_id", "oracleId", "oracleID"),
		SetCode:     strings.ToUpper(stringField(raw, "set_code", "setCode", "set")),
		CollectorID: stringField(raw, "collector_id", "collectorId", "collector_number", "card_number", "cn"),
		Name:        stringField(raw, "name", "card_name", "cardName"),
		ManaCost:    stringField(raw, "mana_cost", "manaCost", "cost", "mana_costs"),
		Power:       numericString(raw, "power", "pow"),
		Toughness:   numericString(raw, "toughness", "tou"),
		Text:        stringField(raw, "text", "oracle_text", "rules_text", "rules"),
		IsToken:     boolField(raw, "is_token", "token"),
	}

	if def.Name == "" {
		return CardDefinition{}, fmt.Errorf("card payload has no name")
	}

	def.Colors = upperAll(stringsField(raw, "colors", "color_identity", "colorIdentity"))
	def.Keywords = lowerAll(stringsField(raw, "keywords", "keyword_abilities", "keywordAbilities"))

	def.Supertypes = stringsField(raw, "supertypes", "super_types", "superTypes")
	def.Types = stringsField(raw, "types", "card_types", "cardTypes")
	def.Subtypes = stringsField(raw, "subtypes", "sub_types", "subTypes")
	if len(def.Types) == 0 {
		if line := stringField(raw, "type_line", "typeLine", "card_type", "type"); line != "" {
			def.Supertypes, def.Types, def.Subtypes = ParseTypeLine(line)
		}
	}
	if len(def.Types) == 0 {
		return CardDefinition{}, fmt.Errorf("card %q has no types", def.Name)
	}
	def.Supertypes = titleAll(def.Supertypes)
	def.Types = titleAll(def.Types)
	def.Subtypes = titleAll(def.Subtypes)

	def.SpellSpeed = normalizeSpeed(stringField(raw, "spell_speed", "speed", "timing"))
	if def.SpellSpeed == "" {
		if def.HasType(TypeInstant) {
			def.SpellSpeed = SpeedInstant
		} else {
			def.SpellSpeed = SpeedSorcery
		}
	}

	var err error
	if def.SpellTargets, err = normalizeTargets(anySlice(raw, "spell_targets", "targets")); err != nil {
		return CardDefinition{}, fmt.Errorf("card %q: %w", def.Name, err)
	}
	if def.SpellEffects, err = normalizeEffects(anySlice(raw, "spell_effects", "effects")); err != nil {
		return CardDefinition{}, fmt.Errorf("card %q: %w", def.Name, err)
	}
	if def.Abilities, err = normalizeAbilities(anySlice(raw, "abilities")); err != nil {
		return CardDefinition{}, fmt.Errorf("card %q: %w", def.Name, err)
	}

	return def, nil
}

// NormalizeJSON normalizes a single JSON-encoded card payload.
func NormalizeJSON(data []byte) (CardDefinition, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return CardDefinition{}, fmt.Errorf("decode card payload: %w", err)
	}
	return Normalize(raw)
}

// NormalizeSet normalizes a JSON array of card payloads, as found in set
// files. Entries that fail to normalize are returned as errors keyed by
// index so an import can report every gap at once.
func NormalizeSet(data []byte) ([]CardDefinition, []error) {
	var raws []map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, []error{fmt.Errorf("decode set file: %w", err)}
	}
	defs := make([]CardDefinition, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		def, err := Normalize(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

// ParseTypeLine splits a printed type line ("Legendary Creature - Elf
// Druid") into supertypes, types, and subtypes. Both the em-dash and the
// plain hyphen separate subtypes.
func ParseTypeLine(line string) (supertypes, types, subtypes []string) {
	main := line
	for _, sep := range []string{"—", " - "} {
		if left, right, found := strings.Cut(line, sep); found {
			main = left
			subtypes = strings.Fields(right)
			break
		}
	}
	for _, word := range strings.Fields(main) {
		if isSupertype(word) {
			supertypes = append(supertypes, word)
		} else {
			types = append(types, word)
		}
	}
	return supertypes, types, subtypes
}

var supertypeNames = map[string]bool{
	"basic":     true,
	"legendary": true,
	"snow":      true,
	"world":     true,
	"ongoing":   true,
}

func isSupertype(word string) bool {
	return supertypeNames[strings.ToLower(word)]
}

func normalizeSpeed(s string) Speed {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INSTANT":
		return SpeedInstant
	case "SORCERY":
		return SpeedSorcery
	default:
		return ""
	}
}

func normalizeTargets(raws []any) ([]TargetSpec, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	specs := make([]TargetSpec, 0, len(raws))
	for i, entry := range raws {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("target %d is not an object", i)
		}
		spec := TargetSpec{
			Kind:     strings.ToLower(stringField(m, "kind", "type")),
			Min:      intField(m, "min", "min_targets", "minTargets"),
			Max:      intField(m, "max", "max_targets", "maxTargets"),
			Optional: boolField(m, "optional"),
		}
		if spec.Kind == "" {
			spec.Kind = TargetAny
		}
		if spec.Max == 0 {
			spec.Max = 1
		}
		if spec.Min == 0 && !spec.Optional {
			spec.Min = 1
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func normalizeEffects(raws []any) ([]EffectDescriptor, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	effects := make([]EffectDescriptor, 0, len(raws))
	for i, entry := range raws {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("effect %d is not an object", i)
		}
		effects = append(effects, NormalizeEffect(m))
	}
	return effects, nil
}

// NormalizeEffect converts one untyped effect payload into a descriptor.
// Unrecognized ops are preserved verbatim: the resolver fails them closed
// at resolution time, which keeps data gaps visible per action rather
// than at load time.
func NormalizeEffect(m map[string]any) EffectDescriptor {
	e := EffectDescriptor{
		Op:             strings.ToLower(stringField(m, "op", "kind", "effect", "type")),
		Selector:       strings.ToLower(stringField(m, "selector", "target", "who")),
		ToZone:         strings.ToLower(stringField(m, "to_zone", "toZone", "zone")),
		TokenSet:       strings.ToUpper(stringField(m, "token_set", "tokenSet", "set_code", "set")),
		TokenName:      stringField(m, "token_name", "tokenName"),
		Count:          intField(m, "count"),
		PowerDelta:     intField(m, "power_delta", "powerDelta", "power"),
		ToughnessDelta: intField(m, "toughness_delta", "toughnessDelta", "toughness"),
		AddTypes:       titleAll(stringsField(m, "add_types", "addTypes")),
		RemoveTypes:    titleAll(stringsField(m, "remove_types", "removeTypes")),
		AddColors:      upperAll(stringsField(m, "add_colors", "addColors")),
		AddKeywords:    lowerAll(stringsField(m, "add_keywords", "addKeywords")),
		SetName:        stringField(m, "set_name", "setName"),
		SetController:  strings.ToLower(stringField(m, "set_controller", "setController")),
		Keyword:        strings.ToLower(stringField(m, "keyword", "ability")),
		Duration:       strings.ToLower(stringField(m, "duration")),
		Amount:         intField(m, "amount", "value", "n", "delta"),
		Counter:        stringField(m, "counter", "counter_name", "counterName"),
		Mana:           upperAll(stringsField(m, "mana", "colors", "produces")),
	}
	if v, ok := intFieldOK(m, "set_power", "setPower"); ok {
		e.SetPower = &v
	}
	if v, ok := intFieldOK(m, "set_toughness", "setToughness"); ok {
		e.SetToughness = &v
	}
	return e
}

func normalizeAbilities(raws []any) ([]AbilityDefinition, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	abilities := make([]AbilityDefinition, 0, len(raws))
	for i, entry := range raws {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ability %d is not an object", i)
		}
		ab := AbilityDefinition{
			Kind:    AbilityKind(strings.ToUpper(stringField(m, "kind", "type"))),
			Cost:    stringField(m, "cost", "mana_cost", "manaCost"),
			TapCost: boolField(m, "tap_cost", "tapCost", "tap"),
			Speed:   normalizeSpeed(stringField(m, "speed", "timing")),
			Mana:    upperAll(stringsField(m, "mana", "produces")),
			Text:    stringField(m, "text"),
		}
		var err error
		if ab.Targets, err = normalizeTargets(anySlice(m, "targets")); err != nil {
			return nil, fmt.Errorf("ability %d: %w", i, err)
		}
		if ab.Effects, err = normalizeEffects(anySlice(m, "effects")); err != nil {
			return nil, fmt.Errorf("ability %d: %w", i, err)
		}
		if trig, ok := m["trigger"].(map[string]any); ok {
			ab.Trigger = &TriggerSpec{
				Event:          strings.ToLower(stringField(trig, "event", "on", "when")),
				Self:           boolField(trig, "self"),
				OfType:         titleWord(stringField(trig, "of_type", "ofType", "filter_type")),
				ControllerOnly: boolField(trig, "controller_only", "controllerOnly", "you_only"),
			}
		}
		if ab.Kind == "" {
			switch {
			case ab.Trigger != nil:
				ab.Kind = AbilityTriggered
			case len(ab.Mana) > 0:
				ab.Kind = AbilityMana
			case ab.Cost != "" || ab.TapCost:
				ab.Kind = AbilityActivated
			default:
				ab.Kind = AbilityStatic
			}
		}
		if ab.Kind == AbilityActivated && len(ab.Mana) > 0 && len(ab.Targets) == 0 {
			ab.Kind = AbilityMana
		}
		if ab.Speed == "" {
			ab.Speed = SpeedInstant
		}
		abilities = append(abilities, ab)
	}
	return abilities, nil
}

// field helpers tolerate the naming drift of external payloads.

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			return strings.TrimSpace(s)
		case fmt.Stringer:
			return strings.TrimSpace(s.String())
		}
	}
	return ""
}

func numericString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case string:
			return strings.TrimSpace(n)
		case float64:
			return strconv.Itoa(int(n))
		case int:
			return strconv.Itoa(n)
		}
	}
	return ""
}

func intField(m map[string]any, keys ...string) int {
	v, _ := intFieldOK(m, keys...)
	return v
}

func intFieldOK(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n), true
		case int:
			return n, true
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func boolField(m map[string]any, keys ...string) bool {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case string:
			return strings.EqualFold(b, "true") || b == "1"
		}
	}
	return false
}

func stringsField(m map[string]any, keys ...string) []string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch list := v.(type) {
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			return out
		case []string:
			return append([]string(nil), list...)
		case string:
			if list == "" {
				return nil
			}
			fields := strings.FieldsFunc(list, func(r rune) bool {
				return r == ',' || r == ';' || r == ' '
			})
			out := make([]string, 0, len(fields))
			for _, f := range fields {
				if f != "" {
					out = append(out, f)
				}
			}
			return out
		}
	}
	return nil
}

func anySlice(m map[string]any, keys ...string) []any {
	for _, key := range keys {
		if v, ok := m[key].([]any); ok {
			return v
		}
	}
	return nil
}

func upperAll(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToUpper(s)
	}
	return in
}

func lowerAll(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToLower(s)
	}
	return in
}

func titleAll(in []string) []string {
	for i, s := range in {
		in[i] = titleWord(s)
	}
	return in
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
