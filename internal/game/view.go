package game

import (
	"strings"

	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/counters"
	"github.com/openduel/engine-go/internal/game/state"
)

// GameView is the caller-facing snapshot of one game as seen by one
// player. Hidden zones are reduced to counts except the viewer's own
// hand; card characteristics are the computed ones, not the printed ones.
type GameView struct {
	GameID         string `json:"game_id"`
	ViewerID       string `json:"viewer_id"`
	Turn           int    `json:"turn"`
	Phase          string `json:"phase"`
	Step           string `json:"step"`
	ActivePlayer   string `json:"active_player"`
	PriorityPlayer string `json:"priority_player"`

	Players     []PlayerView `json:"players"`
	Battlefield []CardView   `json:"battlefield"`
	Stack       []StackView  `json:"stack"`
	Exile       []CardView   `json:"exile"`

	Combat *CombatView `json:"combat,omitempty"`

	Over     bool   `json:"over,omitempty"`
	WinnerID string `json:"winner_id,omitempty"`
}

// PlayerView is one participant's public state plus, for the viewer
// themselves, the hand.
type PlayerView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	Life         int            `json:"life"`
	Poison       int            `json:"poison,omitempty"`
	Energy       int            `json:"energy,omitempty"`
	LibraryCount int            `json:"library_count"`
	HandCount    int            `json:"hand_count"`
	Hand         []CardView     `json:"hand,omitempty"`
	Graveyard    []CardView     `json:"graveyard"`
	ManaPool     map[string]int `json:"mana_pool,omitempty"`
	Passed       bool           `json:"passed,omitempty"`
	LandsPlayed  int            `json:"lands_played"`
	LandLimit    int            `json:"land_limit"`
	Lost         bool           `json:"lost,omitempty"`
	LossReason   string         `json:"loss_reason,omitempty"`
}

// CardView is one card with its characteristics computed through the
// layer system.
type CardView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	TypeLine   string          `json:"type_line"`
	ManaCost   string          `json:"mana_cost,omitempty"`
	Colors     []string        `json:"colors,omitempty"`
	Keywords   []string        `json:"keywords,omitempty"`
	Power      int             `json:"power"`
	Toughness  int             `json:"toughness"`
	HasPT      bool            `json:"has_pt"`
	Zone       string          `json:"zone"`
	Controller string          `json:"controller"`
	Owner      string          `json:"owner"`
	Tapped     bool            `json:"tapped,omitempty"`
	Damage     int             `json:"damage,omitempty"`
	IsToken    bool            `json:"is_token,omitempty"`
	Counters   []counters.View `json:"counters,omitempty"`
}

// StackView is one pending stack object, bottom first.
type StackView struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	SourceID    string   `json:"source_id"`
	Controller  string   `json:"controller"`
	Targets     []string `json:"targets,omitempty"`
}

// CombatView is the declared attack as far as it has progressed.
type CombatView struct {
	Attackers []string            `json:"attackers"`
	Defending map[string]string   `json:"defending"`
	Blockers  map[string][]string `json:"blockers,omitempty"`
}

// View builds the committed state's view for one player.
func (e *Engine) View(viewerID string) GameView {
	e.mu.Lock()
	gs := e.gs
	e.mu.Unlock()
	return BuildView(gs, viewerID)
}

// BuildView renders gs as seen by viewerID. Pass an empty viewer for a
// spectator view with no hand contents.
func BuildView(gs *state.GameState, viewerID string) GameView {
	view := GameView{
		GameID:         gs.GameID,
		ViewerID:       viewerID,
		Turn:           gs.Turn,
		Phase:          gs.Phase.String(),
		Step:           gs.Step.String(),
		ActivePlayer:   gs.ActivePlayer,
		PriorityPlayer: gs.PriorityPlayer,
		Over:           gs.Over,
		WinnerID:       gs.WinnerID,
	}

	for _, playerID := range gs.PlayerOrder {
		player := gs.Players[playerID]
		pv := PlayerView{
			ID:           player.ID,
			Name:         player.Name,
			Life:         player.Life,
			Poison:       player.Poison,
			Energy:       player.Energy,
			LibraryCount: len(player.Library),
			HandCount:    len(player.Hand),
			Graveyard:    cardViews(gs, player.Graveyard),
			ManaPool:     manaPoolView(player),
			Passed:       player.Passed,
			LandsPlayed:  player.LandsPlayed,
			LandLimit:    player.LandLimit,
			Lost:         player.Lost,
			LossReason:   player.LossReason,
		}
		if playerID == viewerID {
			pv.Hand = cardViews(gs, player.Hand)
		}
		view.Players = append(view.Players, pv)
	}

	view.Battlefield = cardViews(gs, gs.Battlefield)
	view.Exile = cardViews(gs, gs.Exile)

	for _, obj := range gs.Stack {
		view.Stack = append(view.Stack, StackView{
			ID:          obj.ID,
			Kind:        obj.Kind.String(),
			Description: obj.Description,
			SourceID:    obj.SourceID,
			Controller:  obj.Controller,
			Targets:     append([]string(nil), obj.Targets...),
		})
	}

	if gs.Combat != nil && gs.Combat.AttackersDeclared {
		combat := &CombatView{
			Attackers: append([]string(nil), gs.Combat.Attackers...),
			Defending: make(map[string]string, len(gs.Combat.Defending)),
			Blockers:  make(map[string][]string, len(gs.Combat.Blockers)),
		}
		for attacker, defender := range gs.Combat.Defending {
			combat.Defending[attacker] = defender
		}
		for attacker, blockers := range gs.Combat.Blockers {
			combat.Blockers[attacker] = append([]string(nil), blockers...)
		}
		view.Combat = combat
	}

	return view
}

func cardViews(gs *state.GameState, ids []string) []CardView {
	views := make([]CardView, 0, len(ids))
	for _, id := range ids {
		card, ok := gs.Cards[id]
		if !ok {
			continue
		}
		views = append(views, cardView(card))
	}
	return views
}

func cardView(card *state.CardObject) CardView {
	eff := chars.Compute(card)
	return CardView{
		ID:         card.ID,
		Name:       eff.Name,
		TypeLine:   typeLine(eff),
		ManaCost:   eff.ManaCost,
		Colors:     eff.Colors,
		Keywords:   eff.Keywords,
		Power:      eff.Power,
		Toughness:  eff.Toughness,
		HasPT:      eff.HasPT,
		Zone:       card.Zone.String(),
		Controller: eff.Controller,
		Owner:      card.Owner,
		Tapped:     card.Tapped,
		Damage:     card.DamageMarked,
		IsToken:    card.IsToken,
		Counters:   card.Counters.ToView(),
	}
}

func typeLine(eff chars.Effective) string {
	var b strings.Builder
	for _, s := range eff.Supertypes {
		b.WriteString(s)
		b.WriteString(" ")
	}
	b.WriteString(strings.Join(eff.Types, " "))
	if len(eff.Subtypes) > 0 {
		b.WriteString(" - ")
		b.WriteString(strings.Join(eff.Subtypes, " "))
	}
	return b.String()
}

func manaPoolView(player *state.PlayerState) map[string]int {
	pool := player.ManaPool
	if pool.IsEmpty() {
		return nil
	}
	view := make(map[string]int, 6)
	add := func(symbol string, amount int) {
		if amount > 0 {
			view[symbol] = amount
		}
	}
	add("W", pool.White)
	add("U", pool.Blue)
	add("B", pool.Black)
	add("R", pool.Red)
	add("G", pool.Green)
	add("C", pool.Colorless)
	return view
}
