// Package effects resolves stack objects. It dispatches their effect
// descriptor lists against game state, creates tokens through the
// injected catalog, and detects triggered abilities from the provenance
// log. Descriptors outside the recognized vocabulary fail closed, one
// step at a time, so a data gap in one card never takes the game down.
package effects

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/counters"
	"github.com/openduel/engine-go/internal/game/mana"
	"github.com/openduel/engine-go/internal/game/rulerr"
	"github.com/openduel/engine-go/internal/game/rules"
	"github.com/openduel/engine-go/internal/game/state"
	"github.com/openduel/engine-go/internal/game/targeting"
)

// Selector values recognized in effect descriptors. target and target[i]
// forms are parsed, not enumerated.
const (
	SelectorSelf         = "self"
	SelectorController   = "controller"
	SelectorOpponent     = "opponent"
	SelectorEachPlayer   = "each_player"
	SelectorEachCreature = "each_creature"
)

// Resolver applies effect descriptor lists to game state. The token
// catalog and logger are fixed at construction; resolution itself never
// performs I/O.
type Resolver struct {
	tokens carddata.TokenSource
	log    *zap.Logger
}

// NewResolver builds a resolver. A nil logger disables logging.
func NewResolver(tokens carddata.TokenSource, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{tokens: tokens, log: log}
}

// Resolution reports how one stack object resolved.
type Resolution struct {
	Object *state.StackObject
	// Fizzled is set when every target the object required became illegal
	// before resolution. No effect steps were applied.
	Fizzled bool
	// StepErrors collects per-step failures, typically data gaps (unknown
	// effect op, unknown token template). Steps before and after a failed
	// one still applied.
	StepErrors []error
}

// ResolveTop pops the top object of the stack and resolves it. Permanent
// spells move to the battlefield before their effects apply; instants and
// sorceries apply their effects and then move to the graveyard. Abilities
// leave no card behind.
func (r *Resolver) ResolveTop(gs *state.GameState) (*Resolution, error) {
	if len(gs.Stack) == 0 {
		return nil, rulerr.New(rulerr.CodeIllegalAction, "the stack is empty")
	}
	obj := gs.Stack[len(gs.Stack)-1]
	gs.Stack = gs.Stack[:len(gs.Stack)-1]

	res := &Resolution{Object: obj}
	source := gs.Cards[obj.SourceID]

	live, legal := r.recheckTargets(gs, obj)
	if len(obj.Targets) > 0 && legal == 0 && requiredTargets(obj.TargetSpecs) > 0 {
		res.Fizzled = true
		res.StepErrors = append(res.StepErrors, rulerr.Newf(rulerr.CodeInvalidTarget,
			"%s lost all its targets", obj.Description))
		r.log.Info("stack object fizzled",
			zap.String("game_id", gs.GameID),
			zap.String("source_id", obj.SourceID),
			zap.String("description", obj.Description),
		)
		if obj.Kind == state.StackSpell && source != nil {
			if err := gs.MoveCard(source.ID, state.ZoneStack, state.ZoneGraveyard, state.CauseFizzle); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	if obj.Kind == state.StackSpell && source != nil && source.Base.IsPermanent() {
		if err := gs.MoveCard(source.ID, state.ZoneStack, state.ZoneBattlefield, state.CauseResolve); err != nil {
			return res, err
		}
		res.StepErrors = append(res.StepErrors, r.applyAll(gs, obj, source, live)...)
		return res, nil
	}

	res.StepErrors = append(res.StepErrors, r.applyAll(gs, obj, source, live)...)
	if obj.Kind == state.StackSpell && source != nil {
		if err := gs.MoveCard(source.ID, state.ZoneStack, state.ZoneGraveyard, state.CauseResolve); err != nil {
			return res, err
		}
	}
	return res, nil
}

// ApplyDirect applies a descriptor list without a stack object. Mana
// abilities resolve this way; they never use the stack.
func (r *Resolver) ApplyDirect(gs *state.GameState, controller string, source *state.CardObject, descs []carddata.EffectDescriptor) []error {
	obj := &state.StackObject{
		Kind:         state.StackActivatedAbility,
		Controller:   controller,
		AbilityIndex: -1,
		Effects:      descs,
	}
	if source != nil {
		obj.SourceID = source.ID
	}
	return r.applyAll(gs, obj, source, nil)
}

// recheckTargets re-validates each chosen target against the specs it was
// chosen for, mirroring the greedy consumption used at cast time. Targets
// that became illegal are dropped; the returned slice keeps positions so
// target[i] selectors still line up.
func (r *Resolver) recheckTargets(gs *state.GameState, obj *state.StackObject) ([]string, int) {
	if len(obj.Targets) == 0 {
		return nil, 0
	}
	live := make([]string, len(obj.Targets))
	legal := 0
	idx := 0
	for _, spec := range obj.TargetSpecs {
		for taken := 0; idx < len(obj.Targets) && taken < spec.Max; taken++ {
			id := obj.Targets[idx]
			if targeting.Legal(gs, obj.Controller, spec, id) {
				live[idx] = id
				legal++
			} else {
				r.log.Debug("target dropped at resolution",
					zap.String("game_id", gs.GameID),
					zap.String("source_id", obj.SourceID),
					zap.String("target_id", id),
				)
			}
			idx++
		}
	}
	return live, legal
}

func requiredTargets(specs []carddata.TargetSpec) int {
	total := 0
	for _, spec := range specs {
		total += spec.Min
	}
	return total
}

func (r *Resolver) applyAll(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string) []error {
	var errs []error
	for i, desc := range obj.Effects {
		if err := r.applyStep(gs, obj, source, targets, desc); err != nil {
			errs = append(errs, err)
			r.log.Warn("effect step failed",
				zap.String("game_id", gs.GameID),
				zap.String("source_id", obj.SourceID),
				zap.String("op", desc.Op),
				zap.Int("step", i),
				zap.Error(err),
			)
		}
	}
	return errs
}

func (r *Resolver) applyStep(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	switch d.Op {
	case carddata.OpMoveCard:
		return r.moveCards(gs, obj, source, targets, d)
	case carddata.OpCreateToken:
		return r.createTokens(gs, obj, d)
	case carddata.OpModifyChars:
		return r.modifyCharacteristics(gs, obj, source, targets, d)
	case carddata.OpDealDamage:
		return r.dealDamage(gs, obj, source, targets, d)
	case carddata.OpGainLife:
		return r.adjustLife(gs, obj, source, targets, d, d.Amount)
	case carddata.OpLoseLife:
		return r.adjustLife(gs, obj, source, targets, d, -d.Amount)
	case carddata.OpDrawCards:
		return r.drawCards(gs, obj, source, targets, d)
	case carddata.OpGrantAbility:
		return r.grantAbility(gs, obj, source, targets, d)
	case carddata.OpAddMana:
		return r.addMana(gs, obj, d)
	case carddata.OpAddCounters:
		return r.addCounters(gs, obj, source, targets, d)
	case carddata.OpTap, carddata.OpUntap:
		return r.setTapped(gs, obj, source, targets, d)
	case carddata.OpCounterSpell:
		return r.counterSpells(gs, obj, source, targets, d)
	case carddata.OpRaiseLandLimit:
		return r.raiseLandLimit(gs, obj, source, targets, d)
	default:
		return rulerr.Newf(rulerr.CodeUnknownEffect, "unrecognized effect op %q", d.Op).
			WithMetadata("op", d.Op)
	}
}

// subject is one thing an effect step acts on: a player, a card, or an
// object on the stack. Exactly one field is set.
type subject struct {
	playerID string
	cardID   string
	stackID  string
}

// subjects resolves a selector to its subjects in deterministic order.
// target[i] indices that were dropped at recheck or never chosen resolve
// to nothing, which skips that part of the step.
func (r *Resolver) subjects(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, selector string) ([]subject, error) {
	switch selector {
	case "", SelectorSelf:
		if source != nil {
			return []subject{{cardID: source.ID}}, nil
		}
		return nil, nil
	case SelectorController:
		return []subject{{playerID: obj.Controller}}, nil
	case SelectorOpponent:
		if opp := gs.OpponentOf(obj.Controller); opp != "" {
			return []subject{{playerID: opp}}, nil
		}
		return nil, nil
	case SelectorEachPlayer:
		var subs []subject
		for _, id := range gs.PlayerOrder {
			if !gs.Players[id].Lost {
				subs = append(subs, subject{playerID: id})
			}
		}
		return subs, nil
	case SelectorEachCreature:
		var subs []subject
		for _, card := range gs.BattlefieldCards() {
			if chars.Compute(card).IsCreature() {
				subs = append(subs, subject{cardID: card.ID})
			}
		}
		return subs, nil
	}

	idxs, ok := targetIndices(selector, len(targets))
	if !ok {
		return nil, rulerr.Newf(rulerr.CodeUnknownEffect, "unrecognized selector %q", selector).
			WithMetadata("selector", selector)
	}
	var subs []subject
	for _, i := range idxs {
		if targets[i] == "" {
			continue
		}
		subs = append(subs, classify(gs, targets[i]))
	}
	return subs, nil
}

// playerSubjects is subjects for steps that act on players. For those,
// an absent or self selector means the effect's controller.
func (r *Resolver) playerSubjects(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, selector string) ([]subject, error) {
	if selector == "" || selector == SelectorSelf {
		selector = SelectorController
	}
	return r.subjects(gs, obj, source, targets, selector)
}

// targetIndices parses the target and target[i] selector forms. A bare
// target means every chosen target. Indices out of range resolve to
// nothing rather than failing: optional targets may not have been chosen.
func targetIndices(selector string, n int) ([]int, bool) {
	if selector == "target" || selector == "targets" {
		idxs := make([]int, n)
		for i := range idxs {
			idxs[i] = i
		}
		return idxs, true
	}
	if strings.HasPrefix(selector, "target[") && strings.HasSuffix(selector, "]") {
		i, err := strconv.Atoi(selector[len("target[") : len(selector)-1])
		if err != nil || i < 0 {
			return nil, false
		}
		if i >= n {
			return nil, true
		}
		return []int{i}, true
	}
	return nil, false
}

func classify(gs *state.GameState, id string) subject {
	if _, ok := gs.Players[id]; ok {
		return subject{playerID: id}
	}
	for _, so := range gs.Stack {
		if so.ID == id {
			return subject{stackID: id}
		}
	}
	return subject{cardID: id}
}

func (r *Resolver) moveCards(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	zone, ok := state.ParseZone(d.ToZone)
	if !ok {
		return rulerr.Newf(rulerr.CodeUnknownEffect, "unrecognized destination zone %q", d.ToZone).
			WithMetadata("op", d.Op)
	}
	subs, err := r.subjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		card, live := gs.Cards[sub.cardID]
		if sub.cardID == "" || !live || card.Zone == zone {
			continue
		}
		cause := state.CauseEffect
		if card.Zone == state.ZoneBattlefield && zone == state.ZoneGraveyard {
			cause = state.CauseDies
		}
		if err := gs.MoveCard(card.ID, card.Zone, zone, cause); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) createTokens(gs *state.GameState, obj *state.StackObject, d carddata.EffectDescriptor) error {
	def, err := r.tokens.Token(context.Background(), d.TokenSet, d.TokenName)
	if err != nil {
		return rulerr.Wrap(rulerr.CodeUnknownToken,
			fmt.Sprintf("no token template %s/%s", d.TokenSet, d.TokenName), err).
			WithMetadata("token_set", d.TokenSet).
			WithMetadata("token_name", d.TokenName)
	}
	count := d.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		card := &state.CardObject{
			ID:         tokenInstanceID(gs, obj.SourceID, i),
			Ref:        carddata.Ref{SetCode: def.SetCode, CollectorID: def.CollectorID},
			Base:       def.Copy(),
			Owner:      obj.Controller,
			Controller: obj.Controller,
			Counters:   counters.NewSet(),
			IsToken:    true,
		}
		gs.EnterToken(card)
	}
	return nil
}

// tokenInstanceID derives a token id from the game id and the provenance
// position it is created at, so replays mint identical ids.
func tokenInstanceID(gs *state.GameState, sourceID string, n int) string {
	seed := fmt.Sprintf("%s|token|%s|%d|%d", gs.GameID, sourceID, gs.ProvenanceSeq, n)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func (r *Resolver) modifyCharacteristics(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	subs, err := r.subjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		card, ok := gs.Cards[sub.cardID]
		if sub.cardID == "" || !ok || card.Zone != state.ZoneBattlefield {
			continue
		}
		for _, mod := range modsFromDescriptor(gs, obj.SourceID, obj.Controller, d) {
			card.AddMod(mod)
		}
	}
	return nil
}

// modsFromDescriptor splits one modify_characteristic descriptor into
// per-layer modifications, each with its own layer timestamp. A single
// descriptor may touch several layers.
func modsFromDescriptor(gs *state.GameState, sourceID, controller string, d carddata.EffectDescriptor) []state.Modification {
	var mods []state.Modification
	if d.SetController != "" {
		gs.LayerSeq++
		mods = append(mods, state.Modification{
			Seq:           gs.LayerSeq,
			Layer:         state.LayerControl,
			SourceID:      sourceID,
			Duration:      d.Duration,
			NewController: resolveControllerValue(gs, controller, d.SetController),
		})
	}
	if d.SetName != "" {
		gs.LayerSeq++
		mods = append(mods, state.Modification{
			Seq:      gs.LayerSeq,
			Layer:    state.LayerText,
			SourceID: sourceID,
			Duration: d.Duration,
			NewName:  d.SetName,
		})
	}
	if len(d.AddTypes)+len(d.RemoveTypes)+len(d.AddColors)+len(d.AddKeywords) > 0 {
		gs.LayerSeq++
		mods = append(mods, state.Modification{
			Seq:         gs.LayerSeq,
			Layer:       state.LayerTypeColor,
			SourceID:    sourceID,
			Duration:    d.Duration,
			AddTypes:    append([]string(nil), d.AddTypes...),
			RemoveTypes: append([]string(nil), d.RemoveTypes...),
			AddColors:   append([]string(nil), d.AddColors...),
			AddKeywords: append([]string(nil), d.AddKeywords...),
		})
	}
	if d.SetPower != nil || d.SetToughness != nil {
		gs.LayerSeq++
		mod := state.Modification{
			Seq:      gs.LayerSeq,
			Layer:    state.LayerPTSet,
			SourceID: sourceID,
			Duration: d.Duration,
		}
		if d.SetPower != nil {
			v := *d.SetPower
			mod.SetPower = &v
		}
		if d.SetToughness != nil {
			v := *d.SetToughness
			mod.SetToughness = &v
		}
		mods = append(mods, mod)
	}
	if d.PowerDelta != 0 || d.ToughnessDelta != 0 {
		gs.LayerSeq++
		mods = append(mods, state.Modification{
			Seq:            gs.LayerSeq,
			Layer:          state.LayerPTModify,
			SourceID:       sourceID,
			Duration:       d.Duration,
			PowerDelta:     d.PowerDelta,
			ToughnessDelta: d.ToughnessDelta,
		})
	}
	return mods
}

// resolveControllerValue maps the set_controller field to a player id.
// The literal values controller and opponent are relative to the effect's
// controller; anything else names a player directly.
func resolveControllerValue(gs *state.GameState, controller, value string) string {
	switch value {
	case SelectorController:
		return controller
	case SelectorOpponent:
		return gs.OpponentOf(controller)
	default:
		return value
	}
}

func (r *Resolver) dealDamage(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	subs, err := r.subjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	amount := d.Amount
	if amount == 0 && obj.XValue > 0 {
		amount = obj.XValue
	}
	if amount <= 0 {
		return nil
	}
	deathtouch, lifelink := sourceDamageKeywords(source)
	dealt := 0
	for _, sub := range subs {
		switch {
		case sub.playerID != "":
			rules.DealDamageToPlayer(gs, sub.playerID, amount)
			dealt += amount
		case sub.cardID != "":
			card, ok := gs.Cards[sub.cardID]
			if !ok || card.Zone != state.ZoneBattlefield {
				continue
			}
			rules.DealDamageToCard(gs, card.ID, amount, deathtouch)
			dealt += amount
		}
	}
	if lifelink && dealt > 0 {
		rules.LifelinkGain(gs, obj.Controller, dealt)
	}
	return nil
}

func sourceDamageKeywords(source *state.CardObject) (deathtouch, lifelink bool) {
	if source == nil {
		return false, false
	}
	eff := chars.Compute(source)
	return eff.HasKeyword(chars.KeywordDeathtouch), eff.HasKeyword(chars.KeywordLifelink)
}

func (r *Resolver) adjustLife(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor, delta int) error {
	subs, err := r.playerSubjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	for _, sub := range subs {
		if sub.playerID == "" {
			continue
		}
		if player, ok := gs.Players[sub.playerID]; ok {
			player.Life += delta
		}
	}
	return nil
}

func (r *Resolver) drawCards(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	subs, err := r.playerSubjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	count := d.Count
	if count <= 0 {
		count = 1
	}
	for _, sub := range subs {
		if sub.playerID != "" {
			rules.DrawCards(gs, sub.playerID, count)
		}
	}
	return nil
}

func (r *Resolver) grantAbility(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	if d.Keyword == "" {
		return rulerr.New(rulerr.CodeUnknownEffect, "grant_ability without a keyword").
			WithMetadata("op", d.Op)
	}
	subs, err := r.subjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		card, ok := gs.Cards[sub.cardID]
		if sub.cardID == "" || !ok || card.Zone != state.ZoneBattlefield {
			continue
		}
		gs.LayerSeq++
		card.AddMod(state.Modification{
			Seq:         gs.LayerSeq,
			Layer:       state.LayerTypeColor,
			SourceID:    obj.SourceID,
			Duration:    d.Duration,
			AddKeywords: []string{d.Keyword},
		})
	}
	return nil
}

func (r *Resolver) addMana(gs *state.GameState, obj *state.StackObject, d carddata.EffectDescriptor) error {
	player, ok := gs.Players[obj.Controller]
	if !ok {
		return nil
	}
	for _, symbol := range d.Mana {
		player.ManaPool.Add(mana.Type(strings.ToUpper(symbol)), 1)
	}
	return nil
}

func (r *Resolver) addCounters(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	if d.Counter == "" {
		return rulerr.New(rulerr.CodeUnknownEffect, "add_counters without a counter name").
			WithMetadata("op", d.Op)
	}
	count := d.Count
	if count <= 0 {
		count = 1
	}
	subs, err := r.subjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		card, ok := gs.Cards[sub.cardID]
		if sub.cardID == "" || !ok || card.Zone != state.ZoneBattlefield {
			continue
		}
		card.Counters = card.Counters.Add(d.Counter, count)
	}
	return nil
}

func (r *Resolver) setTapped(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	subs, err := r.subjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		card, ok := gs.Cards[sub.cardID]
		if sub.cardID == "" || !ok || card.Zone != state.ZoneBattlefield {
			continue
		}
		card.Tapped = d.Op == carddata.OpTap
	}
	return nil
}

func (r *Resolver) counterSpells(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	subs, err := r.subjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.stackID == "" {
			continue
		}
		countered := removeStackObject(gs, sub.stackID)
		if countered == nil {
			continue
		}
		if countered.Kind == state.StackSpell {
			if card, ok := gs.Cards[countered.SourceID]; ok && card.Zone == state.ZoneStack {
				if err := gs.MoveCard(card.ID, state.ZoneStack, state.ZoneGraveyard, state.CauseCountered); err != nil {
					return err
				}
			}
		}
		r.log.Info("spell countered",
			zap.String("game_id", gs.GameID),
			zap.String("countered", countered.Description),
			zap.String("by", obj.Description),
		)
	}
	return nil
}

func removeStackObject(gs *state.GameState, id string) *state.StackObject {
	for i, so := range gs.Stack {
		if so.ID == id {
			gs.Stack = append(gs.Stack[:i], gs.Stack[i+1:]...)
			return so
		}
	}
	return nil
}

func (r *Resolver) raiseLandLimit(gs *state.GameState, obj *state.StackObject, source *state.CardObject, targets []string, d carddata.EffectDescriptor) error {
	subs, err := r.playerSubjects(gs, obj, source, targets, d.Selector)
	if err != nil {
		return err
	}
	delta := d.Amount
	if delta <= 0 {
		delta = 1
	}
	for _, sub := range subs {
		if sub.playerID == "" {
			continue
		}
		if player, ok := gs.Players[sub.playerID]; ok {
			player.LandLimit += delta
		}
	}
	return nil
}
