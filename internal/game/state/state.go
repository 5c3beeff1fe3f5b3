// Package state holds the canonical, serializable representation of one
// game in progress. It is a pure data model: the only mutation primitive
// it exports beyond field access is MoveCard, and nothing here performs
// I/O or rules judgment.
package state

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/counters"
	"github.com/openduel/engine-go/internal/game/mana"
)

// DefaultStartingLife is the life total players begin with unless the
// game setup overrides it.
const DefaultStartingLife = 20

// DefaultHandSize is the number of cards drawn for an opening hand.
const DefaultHandSize = 7

// PlayerState is the per-participant slice of the game state. Ordered
// zone slices hold card instance ids; for Library and Graveyard the last
// element is the top.
type PlayerState struct {
	ID   string
	Name string

	Life   int
	Poison int
	Energy int

	Library   []string
	Hand      []string
	Graveyard []string

	ManaPool mana.Pool

	Passed      bool
	LandsPlayed int
	LandLimit   int

	Mulligans int
	KeptHand  bool

	// DrewFromEmpty is set when a forced draw found the library empty; the
	// next state-based action sweep converts it into a loss.
	DrewFromEmpty bool

	Lost       bool
	LossReason string
}

// StackObject is a pending spell or ability.
type StackObject struct {
	ID         string
	Kind       StackKind
	SourceID   string
	Controller string
	// AbilityIndex selects the source's ability for activated and
	// triggered objects. It is -1 for spells.
	AbilityIndex int
	Targets      []string
	Modes        []int
	// Effects and TargetSpecs are snapshots taken when the object was put
	// on the stack, so resolution does not depend on the source still
	// being around or unchanged.
	Effects     []carddata.EffectDescriptor
	TargetSpecs []carddata.TargetSpec
	XValue      int
	Description string
}

// Combat records the declared attack for the current combat phase.
type Combat struct {
	// Attackers in declaration order.
	Attackers []string
	// Defending maps each attacker to the player it attacks.
	Defending map[string]string
	// Blockers maps an attacker to its blockers in declared order, which
	// is also the default damage assignment order.
	Blockers map[string][]string
	// Blocked records which attackers had a block declared. An attacker
	// stays blocked even if every blocker later leaves combat.
	Blocked map[string]bool
	// Assignments holds explicit damage divisions submitted through
	// assign_damage: attacker id to recipient id to amount.
	Assignments map[string]map[string]int
	// AttackersDeclared and BlockersDeclared distinguish an empty
	// declaration from none yet; each turn-based declaration happens at
	// most once per combat.
	AttackersDeclared bool
	BlockersDeclared  bool
	// FirstStrikeResolved is set once the first strike damage step has
	// dealt its wave.
	FirstStrikeResolved bool
}

// NewCombat returns an empty combat record.
func NewCombat() *Combat {
	return &Combat{
		Defending:   make(map[string]string),
		Blockers:    make(map[string][]string),
		Blocked:     make(map[string]bool),
		Assignments: make(map[string]map[string]int),
	}
}

// IsBlocked reports whether a block was declared against the attacker,
// regardless of whether the blockers are still around.
func (c *Combat) IsBlocked(attackerID string) bool {
	return c.Blocked[attackerID]
}

// RemoveAttacker drops an attacker from combat, e.g. when it leaves the
// battlefield before damage.
func (c *Combat) RemoveAttacker(attackerID string) {
	kept := c.Attackers[:0]
	for _, id := range c.Attackers {
		if id != attackerID {
			kept = append(kept, id)
		}
	}
	c.Attackers = kept
	delete(c.Defending, attackerID)
	delete(c.Blockers, attackerID)
	delete(c.Blocked, attackerID)
	delete(c.Assignments, attackerID)
}

// RemoveBlocker drops a blocker from every group it blocks in. The
// attacker stays blocked if other blockers remain.
func (c *Combat) RemoveBlocker(blockerID string) {
	for attackerID, blockers := range c.Blockers {
		kept := blockers[:0]
		for _, id := range blockers {
			if id != blockerID {
				kept = append(kept, id)
			}
		}
		c.Blockers[attackerID] = kept
	}
}

// ProvenanceNote records one game event, most often a zone transition.
// The resolver scans notes appended since the last settled action to
// detect triggered abilities. For events that are not zone transitions
// (attack declarations, upkeep beginnings) CardID carries the subject,
// which may be a player id, and the zones describe where the subject is.
type ProvenanceNote struct {
	Seq    uint64
	Turn   int
	CardID string
	From   Zone
	To     Zone
	Cause  string
}

// Causes recorded on provenance notes.
const (
	CausePlayLand  = "play_land"
	CauseCast      = "cast"
	CauseResolve   = "resolve"
	CauseCountered = "countered"
	CauseDraw      = "draw"
	CauseDies      = "dies"
	CauseSacrifice = "sacrifice"
	CauseDiscard   = "discard"
	CauseToken     = "token_created"
	CauseCeases    = "token_ceases"
	CauseEffect    = "effect"
	CauseFizzle    = "fizzle"
	CauseAttack    = "attacks"
	CauseUpkeep    = "upkeep"
)

// GameState is the root aggregate for one game. It exclusively owns every
// CardObject, PlayerState, and StackObject reachable through it; all
// mutation flows through validated actions in the engine.
type GameState struct {
	GameID string
	Seed   int64

	Turn           int
	Phase          Phase
	Step           Step
	ActivePlayer   string
	PriorityPlayer string

	PlayerOrder []string
	Players     map[string]*PlayerState
	Cards       map[string]*CardObject

	// Battlefield, Exile, and Command are shared zones in entry order.
	Battlefield []string
	Exile       []string
	Command     []string

	// Stack holds pending objects, last element on top.
	Stack []*StackObject

	Combat *Combat

	// LayerSeq is the monotonically increasing layer timestamp handed to
	// new modifications. ProvenanceSeq orders provenance notes.
	LayerSeq      uint64
	ProvenanceSeq uint64
	Provenance    []ProvenanceNote

	// TriggerSeq is the provenance watermark up to which triggered
	// abilities have been detected and queued. Notes past it are the next
	// detection window.
	TriggerSeq uint64

	// SkipDrawFor names the player whose next draw step is skipped, used
	// for the first turn of the game.
	SkipDrawFor string

	Over     bool
	WinnerID string
}

// PlayerSetup describes one participant at game creation.
type PlayerSetup struct {
	ID   string
	Name string
	// Deck holds resolved card definitions in decklist order.
	Deck []carddata.CardDefinition
	// Life overrides DefaultStartingLife when positive.
	Life int
}

// NewGame builds the opening state: libraries instantiated and shuffled
// with the given seed, opening hands drawn, turn 1 positioned at the
// upkeep step with the first player holding priority. The first player's
// draw step on turn 1 is skipped. Instance ids are derived from the game
// id, so the same inputs rebuild the identical game.
func NewGame(gameID string, seed int64, setups []PlayerSetup) (*GameState, error) {
	if len(setups) < 2 {
		return nil, fmt.Errorf("a game needs at least two players, got %d", len(setups))
	}

	gs := &GameState{
		GameID:  gameID,
		Seed:    seed,
		Turn:    1,
		Phase:   PhaseBeginning,
		Step:    StepUpkeep,
		Players: make(map[string]*PlayerState, len(setups)),
		Cards:   make(map[string]*CardObject),
	}

	rng := rand.New(rand.NewSource(seed))

	for _, setup := range setups {
		if setup.ID == "" {
			return nil, fmt.Errorf("player setup has no id")
		}
		if _, exists := gs.Players[setup.ID]; exists {
			return nil, fmt.Errorf("duplicate player id %q", setup.ID)
		}

		life := setup.Life
		if life <= 0 {
			life = DefaultStartingLife
		}
		player := &PlayerState{
			ID:        setup.ID,
			Name:      setup.Name,
			Life:      life,
			LandLimit: 1,
			KeptHand:  true,
		}

		for i, def := range setup.Deck {
			card := &CardObject{
				ID:         instanceID(gameID, setup.ID, i),
				Ref:        carddata.Ref{SetCode: def.SetCode, CollectorID: def.CollectorID},
				Base:       def.Copy(),
				Owner:      setup.ID,
				Controller: setup.ID,
				Zone:       ZoneLibrary,
				Counters:   counters.NewSet(),
			}
			gs.Cards[card.ID] = card
			player.Library = append(player.Library, card.ID)
		}

		rng.Shuffle(len(player.Library), func(i, j int) {
			player.Library[i], player.Library[j] = player.Library[j], player.Library[i]
		})

		gs.Players[setup.ID] = player
		gs.PlayerOrder = append(gs.PlayerOrder, setup.ID)
	}

	gs.ActivePlayer = gs.PlayerOrder[0]
	gs.PriorityPlayer = gs.PlayerOrder[0]
	gs.SkipDrawFor = gs.PlayerOrder[0]

	for _, id := range gs.PlayerOrder {
		player := gs.Players[id]
		for i := 0; i < DefaultHandSize && len(player.Library) > 0; i++ {
			top := player.Library[len(player.Library)-1]
			player.Library = player.Library[:len(player.Library)-1]
			player.Hand = append(player.Hand, top)
			gs.Cards[top].Zone = ZoneHand
		}
	}

	return gs, nil
}

// instanceID derives a stable card instance id from game, owner, and deck
// position.
func instanceID(gameID, playerID string, index int) string {
	name := fmt.Sprintf("%s/%s/%d", gameID, playerID, index)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// NewObjectID derives a stable id for an object created mid-game, keyed
// by the current provenance sequence so repeated runs agree.
func (gs *GameState) NewObjectID(kind string) string {
	gs.ProvenanceSeq++
	name := fmt.Sprintf("%s/%s/%d", gs.GameID, kind, gs.ProvenanceSeq)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Player returns the player state for id.
func (gs *GameState) Player(id string) (*PlayerState, bool) {
	player, ok := gs.Players[id]
	return player, ok
}

// Card returns the card object for id.
func (gs *GameState) Card(id string) (*CardObject, bool) {
	card, ok := gs.Cards[id]
	return card, ok
}

// NextLayerSeq hands out the next layer timestamp.
func (gs *GameState) NextLayerSeq() uint64 {
	gs.LayerSeq++
	return gs.LayerSeq
}

// TopOfStack returns the most recently pushed stack object, or nil.
func (gs *GameState) TopOfStack() *StackObject {
	if len(gs.Stack) == 0 {
		return nil
	}
	return gs.Stack[len(gs.Stack)-1]
}

// PushStack puts obj on top of the stack.
func (gs *GameState) PushStack(obj *StackObject) {
	gs.Stack = append(gs.Stack, obj)
}

// PopStack removes and returns the top stack object, or nil when empty.
func (gs *GameState) PopStack() *StackObject {
	if len(gs.Stack) == 0 {
		return nil
	}
	top := gs.Stack[len(gs.Stack)-1]
	gs.Stack = gs.Stack[:len(gs.Stack)-1]
	return top
}

// RemoveFromStack removes the stack object with the given id, preserving
// the order of the rest. Used when a spell is countered.
func (gs *GameState) RemoveFromStack(objectID string) *StackObject {
	for i, obj := range gs.Stack {
		if obj.ID == objectID {
			gs.Stack = append(gs.Stack[:i], gs.Stack[i+1:]...)
			return obj
		}
	}
	return nil
}

// NextInOrder returns the player after id in turn order, wrapping around.
// Players who already lost are skipped; if everyone else lost, id itself
// comes back.
func (gs *GameState) NextInOrder(id string) string {
	idx := -1
	for i, pid := range gs.PlayerOrder {
		if pid == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return id
	}
	for offset := 1; offset <= len(gs.PlayerOrder); offset++ {
		candidate := gs.PlayerOrder[(idx+offset)%len(gs.PlayerOrder)]
		if player, ok := gs.Players[candidate]; ok && !player.Lost {
			return candidate
		}
	}
	return id
}

// OpponentOf returns the next non-lost player after id. In a two-player
// game that is the opponent.
func (gs *GameState) OpponentOf(id string) string {
	next := gs.NextInOrder(id)
	if next == id {
		return ""
	}
	return next
}

// AlivePlayers returns the players still in the game, in turn order.
func (gs *GameState) AlivePlayers() []string {
	alive := make([]string, 0, len(gs.PlayerOrder))
	for _, id := range gs.PlayerOrder {
		if player, ok := gs.Players[id]; ok && !player.Lost {
			alive = append(alive, id)
		}
	}
	return alive
}

// ResetPasses clears every player's pass flag. Any legal action resets
// the pass round.
func (gs *GameState) ResetPasses() {
	for _, player := range gs.Players {
		player.Passed = false
	}
}

// AllPassed reports whether every non-lost player has passed consecutively.
func (gs *GameState) AllPassed() bool {
	for _, id := range gs.PlayerOrder {
		player := gs.Players[id]
		if !player.Lost && !player.Passed {
			return false
		}
	}
	return true
}

// BattlefieldCards returns the battlefield card objects in entry order.
func (gs *GameState) BattlefieldCards() []*CardObject {
	cards := make([]*CardObject, 0, len(gs.Battlefield))
	for _, id := range gs.Battlefield {
		if card, ok := gs.Cards[id]; ok {
			cards = append(cards, card)
		}
	}
	return cards
}

// MarkLoss records that a player lost and, when only one player remains,
// closes out the game.
func (gs *GameState) MarkLoss(playerID, reason string) {
	player, ok := gs.Players[playerID]
	if !ok || player.Lost {
		return
	}
	player.Lost = true
	player.LossReason = reason

	alive := gs.AlivePlayers()
	if len(alive) == 1 {
		gs.Over = true
		gs.WinnerID = alive[0]
	} else if len(alive) == 0 {
		gs.Over = true
	}
}
