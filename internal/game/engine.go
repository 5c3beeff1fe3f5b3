// Package game ties the rules packages together into a playable engine.
// One Engine drives one game: it validates player actions against the
// rules layer, applies them on a private copy of the state, and commits
// the copy only when the whole action succeeded, so callers never observe
// a partially applied action.
package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/effects"
	"github.com/openduel/engine-go/internal/game/mana"
	"github.com/openduel/engine-go/internal/game/rulerr"
	"github.com/openduel/engine-go/internal/game/rules"
	"github.com/openduel/engine-go/internal/game/state"
	"github.com/openduel/engine-go/internal/game/targeting"
	"github.com/openduel/engine-go/internal/metrics"
)

// SignalKind distinguishes the engine's outbound signals.
type SignalKind int

const (
	// SignalStateChanged follows every committed action.
	SignalStateChanged SignalKind = iota
	// SignalGameOver follows the action that ended the game.
	SignalGameOver
)

var signalKindNames = map[SignalKind]string{
	SignalStateChanged: "STATE_CHANGED",
	SignalGameOver:     "GAME_OVER",
}

func (k SignalKind) String() string {
	if name, ok := signalKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Signal is one outbound notification. State is the committed snapshot
// after the action; committed states are never mutated again, so holding
// on to it is safe.
type Signal struct {
	Kind     SignalKind
	GameID   string
	WinnerID string
	State    *state.GameState
}

// Config carries the collaborators an engine is built with. Every field
// is optional except Tokens, which any game whose cards create tokens
// needs.
type Config struct {
	Logger  *zap.Logger
	Tokens  carddata.TokenSource
	Orderer effects.TriggerOrderer
	Metrics *metrics.Metrics
	// SignalBuffer sizes the outbound signal channel.
	SignalBuffer int
}

const defaultSignalBuffer = 16

// settleRoundLimit caps the state-based-action / trigger loop so broken
// card data cannot spin the engine forever.
const settleRoundLimit = 100

// Engine drives one game. All access is serialized by its mutex: one
// action validates, applies, and commits before the next begins.
type Engine struct {
	mu sync.Mutex

	log      *zap.Logger
	metrics  *metrics.Metrics
	resolver *effects.Resolver
	orderer  effects.TriggerOrderer

	gs      *state.GameState
	journal *Journal
	signals chan Signal
}

// NewEngine wraps an opening state in an engine. The state is owned by
// the engine from here on; callers read it back through State, views, or
// signals.
func NewEngine(gs *state.GameState, cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	orderer := cfg.Orderer
	if orderer == nil {
		orderer = effects.DetectionOrder{}
	}
	buffer := cfg.SignalBuffer
	if buffer <= 0 {
		buffer = defaultSignalBuffer
	}

	e := &Engine{
		log:      log,
		metrics:  cfg.Metrics,
		resolver: effects.NewResolver(cfg.Tokens, log),
		orderer:  orderer,
		gs:       gs,
		journal:  NewJournal(gs.GameID, gs.Seed),
		signals:  make(chan Signal, buffer),
	}
	cfg.Metrics.GameStarted()

	log.Info("engine started",
		zap.String("game_id", gs.GameID),
		zap.Int64("seed", gs.Seed),
		zap.Strings("players", gs.PlayerOrder),
	)
	return e
}

// Signals returns the outbound signal channel. The engine never blocks on
// it: when the buffer is full the signal is dropped with a warning.
func (e *Engine) Signals() <-chan Signal {
	return e.signals
}

// State returns the last committed state. Committed states are immutable;
// the next action works on a fresh copy.
func (e *Engine) State() *state.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gs
}

// ApplyAction validates and applies one action for playerID. On success
// the new committed state is returned; on failure the previous state is
// returned unchanged alongside the typed error. Exactly one action is in
// flight per game at a time.
func (e *Engine) ApplyAction(playerID string, action Action) (*state.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	work := e.gs.Clone()

	if err := e.dispatch(work, playerID, action); err != nil {
		e.metrics.ObserveAction(action.Kind.String(), "rejected", time.Since(start))
		e.log.Info("action rejected",
			zap.String("game_id", e.gs.GameID),
			zap.String("player_id", playerID),
			zap.String("action", action.Kind.String()),
			zap.String("code", string(rulerr.CodeOf(err))),
			zap.Error(err),
		)
		return e.gs, err
	}

	wasOver := e.gs.Over
	e.gs = work
	fingerprint := work.Fingerprint()
	e.journal.append(playerID, action, fingerprint)

	e.metrics.ObserveAction(action.Kind.String(), "applied", time.Since(start))
	e.log.Info("action applied",
		zap.String("game_id", work.GameID),
		zap.String("player_id", playerID),
		zap.String("action", action.Kind.String()),
		zap.Int("turn", work.Turn),
		zap.String("step", work.Step.String()),
		zap.Int("stack_depth", len(work.Stack)),
	)

	e.emit(Signal{Kind: SignalStateChanged, GameID: work.GameID, State: work})
	if work.Over && !wasOver {
		e.metrics.GameFinished()
		e.log.Info("game over",
			zap.String("game_id", work.GameID),
			zap.String("winner_id", work.WinnerID),
			zap.Int("turn", work.Turn),
		)
		e.emit(Signal{Kind: SignalGameOver, GameID: work.GameID, WinnerID: work.WinnerID, State: work})
	}
	return e.gs, nil
}

func (e *Engine) emit(sig Signal) {
	select {
	case e.signals <- sig:
	default:
		e.log.Warn("signal buffer full, dropping signal",
			zap.String("game_id", sig.GameID),
			zap.String("kind", sig.Kind.String()),
		)
	}
}

// dispatch routes one action to its handler. Handlers mutate gs freely;
// it is the caller's private copy.
func (e *Engine) dispatch(gs *state.GameState, playerID string, action Action) error {
	switch action.Kind {
	case ActionPlayLand:
		return e.playLand(gs, playerID, action.CardID)
	case ActionCastSpell:
		return e.castSpell(gs, playerID, action)
	case ActionActivateAbility:
		return e.activateAbility(gs, playerID, action)
	case ActionPassPriority:
		return e.passPriority(gs, playerID)
	case ActionDeclareAttackers:
		return e.declareAttackers(gs, playerID, action.Attackers)
	case ActionDeclareBlockers:
		return e.declareBlockers(gs, playerID, action.Blocks)
	case ActionAssignDamage:
		return e.assignDamage(gs, playerID, action.Assignments)
	default:
		return rulerr.Newf(rulerr.CodeIllegalAction, "unknown action kind %d", int(action.Kind))
	}
}

// playLand performs the special action of playing a land: no stack, no
// cost, counts against the per-turn limit.
func (e *Engine) playLand(gs *state.GameState, playerID, cardID string) error {
	if err := rules.CanPlayLand(gs, playerID, cardID); err != nil {
		return err
	}
	if err := gs.MoveCard(cardID, state.ZoneHand, state.ZoneBattlefield, state.CausePlayLand); err != nil {
		return err
	}
	gs.Players[playerID].LandsPlayed++
	gs.ResetPasses()
	e.settle(gs)
	return nil
}

// castSpell stages a spell: validates timing and targets, pays the mana
// cost, moves the card onto the stack, and snapshots its effects into a
// stack object. The caster retains priority.
func (e *Engine) castSpell(gs *state.GameState, playerID string, action Action) error {
	if err := rules.CanCastSpell(gs, playerID, action.CardID); err != nil {
		return err
	}
	card := gs.Cards[action.CardID]
	if err := targeting.ValidateSelection(gs, playerID, card.Base.SpellTargets, action.Targets); err != nil {
		return err
	}
	if err := payManaCost(gs, playerID, card.Base.ManaCost, action.X); err != nil {
		return err
	}

	obj := &state.StackObject{
		ID:           gs.NewObjectID("spell"),
		Kind:         state.StackSpell,
		SourceID:     card.ID,
		Controller:   playerID,
		AbilityIndex: -1,
		Targets:      append([]string(nil), action.Targets...),
		Modes:        append([]int(nil), action.Modes...),
		Effects:      carddata.CopyEffects(card.Base.SpellEffects),
		TargetSpecs:  append([]carddata.TargetSpec(nil), card.Base.SpellTargets...),
		XValue:       action.X,
		Description:  card.Base.Name,
	}
	if err := gs.MoveCard(card.ID, state.ZoneHand, state.ZoneStack, state.CauseCast); err != nil {
		return err
	}
	gs.PushStack(obj)
	gs.ResetPasses()
	e.settle(gs)
	return nil
}

// activateAbility stages an activated ability. Mana abilities skip the
// stack and resolve on the spot; everything else becomes a stack object
// like a spell.
func (e *Engine) activateAbility(gs *state.GameState, playerID string, action Action) error {
	if err := rules.CanActivateAbility(gs, playerID, action.CardID, action.AbilityIndex); err != nil {
		return err
	}
	card := gs.Cards[action.CardID]
	ability := card.Base.Abilities[action.AbilityIndex]
	if err := targeting.ValidateSelection(gs, playerID, ability.Targets, action.Targets); err != nil {
		return err
	}
	if err := payManaCost(gs, playerID, ability.Cost, action.X); err != nil {
		return err
	}
	if ability.TapCost {
		card.Tapped = true
	}

	if ability.Kind == carddata.AbilityMana {
		player := gs.Players[playerID]
		for _, symbol := range ability.Mana {
			player.ManaPool.Add(mana.Type(strings.ToUpper(symbol)), 1)
		}
		if len(ability.Effects) > 0 {
			e.resolver.ApplyDirect(gs, playerID, card, ability.Effects)
		}
		gs.ResetPasses()
		e.settle(gs)
		return nil
	}

	obj := &state.StackObject{
		ID:           gs.NewObjectID("ability"),
		Kind:         state.StackActivatedAbility,
		SourceID:     card.ID,
		Controller:   playerID,
		AbilityIndex: action.AbilityIndex,
		Targets:      append([]string(nil), action.Targets...),
		Effects:      carddata.CopyEffects(ability.Effects),
		TargetSpecs:  append([]carddata.TargetSpec(nil), ability.Targets...),
		XValue:       action.X,
		Description:  fmt.Sprintf("activated ability of %s", card.Base.Name),
	}
	gs.PushStack(obj)
	gs.ResetPasses()
	e.settle(gs)
	return nil
}

// passPriority records the pass. When the pass closes a full round the
// engine performs the follow-up: resolve the top of the stack, or advance
// to the next step.
func (e *Engine) passPriority(gs *state.GameState, playerID string) error {
	outcome, err := rules.PassPriority(gs, playerID)
	if err != nil {
		return err
	}
	switch outcome {
	case rules.OutcomeResolveTop:
		return e.resolveTop(gs)
	case rules.OutcomeAdvanceStep:
		e.advance(gs)
	}
	return nil
}

// resolveTop resolves exactly one stack object, then reopens priority
// with the active player. Remaining stack objects wait for the next full
// pass round.
func (e *Engine) resolveTop(gs *state.GameState) error {
	res, err := e.resolver.ResolveTop(gs)
	if err != nil {
		return err
	}
	e.log.Debug("stack object resolved",
		zap.String("game_id", gs.GameID),
		zap.String("object_id", res.Object.ID),
		zap.String("description", res.Object.Description),
		zap.Bool("fizzled", res.Fizzled),
		zap.Int("step_errors", len(res.StepErrors)),
	)
	rules.ResetAfterResolution(gs)
	e.settle(gs)
	return nil
}

// advance moves to the next step. Entering a combat damage step deals
// that step's damage wave as a turn-based action before priority opens.
func (e *Engine) advance(gs *state.GameState) {
	step := rules.AdvanceStep(gs)
	switch step {
	case state.StepFirstStrikeDamage:
		rules.DealCombatDamage(gs, true)
	case state.StepCombatDamage:
		rules.DealCombatDamage(gs, false)
	}
	e.settle(gs)
}

// declareAttackers performs the turn-based attack declaration. The active
// player keeps priority afterwards.
func (e *Engine) declareAttackers(gs *state.GameState, playerID string, attackers []string) error {
	if err := rules.DeclareAttackers(gs, playerID, attackers); err != nil {
		return err
	}
	gs.ResetPasses()
	e.settle(gs)
	return nil
}

// declareBlockers performs the turn-based block declaration, after which
// priority returns to the active player.
func (e *Engine) declareBlockers(gs *state.GameState, playerID string, blocks map[string][]string) error {
	if err := rules.DeclareBlockers(gs, playerID, blocks); err != nil {
		return err
	}
	gs.ResetPasses()
	gs.PriorityPlayer = gs.ActivePlayer
	e.settle(gs)
	return nil
}

// assignDamage records an explicit combat damage division for the coming
// damage step.
func (e *Engine) assignDamage(gs *state.GameState, playerID string, assignments map[string]map[string]int) error {
	if err := rules.AssignDamage(gs, playerID, assignments); err != nil {
		return err
	}
	gs.ResetPasses()
	e.settle(gs)
	return nil
}

// payManaCost solves and executes the payment for a brace-symbol cost
// from the player's pool. Free costs pass through untouched.
func payManaCost(gs *state.GameState, playerID, cost string, xValue int) error {
	parsed, err := mana.ParseCost(cost)
	if err != nil {
		return rulerr.Wrap(rulerr.CodeCannotPayCost,
			fmt.Sprintf("unreadable mana cost %q", cost), err)
	}
	player := gs.Players[playerID]
	result := mana.Solve(parsed, player.ManaPool, xValue)
	if !result.OK {
		return rulerr.Newf(rulerr.CodeCannotPayCost, "cannot pay %q: %s", cost, result.Reason)
	}
	if !mana.Pay(result.Plan, &player.ManaPool) {
		return rulerr.Newf(rulerr.CodeCannotPayCost, "mana pool changed while paying %q", cost)
	}
	return nil
}

// settle runs the between-actions loop: state-based actions, then trigger
// detection over the provenance notes appended since the last scan,
// repeated until neither finds work. Every action handler calls it before
// returning, so triggers are on the stack by the time any player next
// receives priority.
func (e *Engine) settle(gs *state.GameState) {
	for round := 0; round < settleRoundLimit; round++ {
		acted := rules.CheckStateBasedActions(gs) > 0
		if gs.Over {
			return
		}
		queued := e.queueTriggers(gs)
		if !acted && !queued {
			return
		}
	}
	e.log.Warn("settle loop hit its round limit",
		zap.String("game_id", gs.GameID),
		zap.Int("limit", settleRoundLimit),
	)
}

// queueTriggers detects triggered abilities in the unprocessed provenance
// window and pushes them in APNAP order. It advances the watermark so the
// same note never triggers twice.
func (e *Engine) queueTriggers(gs *state.GameState) bool {
	since := gs.TriggerSeq
	gs.TriggerSeq = gs.ProvenanceSeq
	pending := effects.DetectTriggers(gs, since, e.orderer)
	for _, obj := range pending {
		gs.PushStack(obj)
		e.log.Debug("triggered ability queued",
			zap.String("game_id", gs.GameID),
			zap.String("object_id", obj.ID),
			zap.String("source_id", obj.SourceID),
			zap.String("controller", obj.Controller),
		)
	}
	e.metrics.TriggersQueued(len(pending))
	return len(pending) > 0
}
