package state

import "github.com/openduel/engine-go/internal/carddata"

// Clone returns a deep copy of the game state. The engine mutates a clone
// and swaps it in only when the whole action commits, so a rejected
// action leaves the original untouched.
func (gs *GameState) Clone() *GameState {
	dup := *gs

	dup.PlayerOrder = append([]string(nil), gs.PlayerOrder...)
	dup.Battlefield = append([]string(nil), gs.Battlefield...)
	dup.Exile = append([]string(nil), gs.Exile...)
	dup.Command = append([]string(nil), gs.Command...)
	dup.Provenance = append([]ProvenanceNote(nil), gs.Provenance...)

	dup.Players = make(map[string]*PlayerState, len(gs.Players))
	for id, player := range gs.Players {
		dup.Players[id] = player.copy()
	}

	dup.Cards = make(map[string]*CardObject, len(gs.Cards))
	for id, card := range gs.Cards {
		dup.Cards[id] = card.Copy()
	}

	if gs.Stack != nil {
		dup.Stack = make([]*StackObject, len(gs.Stack))
		for i, obj := range gs.Stack {
			dup.Stack[i] = obj.copy()
		}
	}

	if gs.Combat != nil {
		dup.Combat = gs.Combat.copy()
	}

	return &dup
}

func (p *PlayerState) copy() *PlayerState {
	dup := *p
	dup.Library = append([]string(nil), p.Library...)
	dup.Hand = append([]string(nil), p.Hand...)
	dup.Graveyard = append([]string(nil), p.Graveyard...)
	dup.ManaPool = p.ManaPool.Copy()
	return &dup
}

func (s *StackObject) copy() *StackObject {
	dup := *s
	dup.Targets = append([]string(nil), s.Targets...)
	if s.Modes != nil {
		dup.Modes = append([]int(nil), s.Modes...)
	}
	dup.Effects = carddata.CopyEffects(s.Effects)
	dup.TargetSpecs = append([]carddata.TargetSpec(nil), s.TargetSpecs...)
	return &dup
}

func (c *Combat) copy() *Combat {
	dup := &Combat{
		Attackers:           append([]string(nil), c.Attackers...),
		Defending:           make(map[string]string, len(c.Defending)),
		Blockers:            make(map[string][]string, len(c.Blockers)),
		Blocked:             make(map[string]bool, len(c.Blocked)),
		Assignments:         make(map[string]map[string]int, len(c.Assignments)),
		AttackersDeclared:   c.AttackersDeclared,
		BlockersDeclared:    c.BlockersDeclared,
		FirstStrikeResolved: c.FirstStrikeResolved,
	}
	for k, v := range c.Defending {
		dup.Defending[k] = v
	}
	for k, v := range c.Blocked {
		dup.Blocked[k] = v
	}
	for k, v := range c.Blockers {
		dup.Blockers[k] = append([]string(nil), v...)
	}
	for k, v := range c.Assignments {
		inner := make(map[string]int, len(v))
		for rk, rv := range v {
			inner[rk] = rv
		}
		dup.Assignments[k] = inner
	}
	return dup
}
