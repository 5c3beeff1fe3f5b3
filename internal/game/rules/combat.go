package rules

import (
	"sort"

	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/rulerr"
	"github.com/openduel/engine-go/internal/game/state"
)

// DeclareAttackers validates and records the active player's attack.
// Every named creature must be able to attack; on success attackers
// without vigilance tap and the declaration locks in. An empty list is a
// legal declaration meaning no attack this turn.
func DeclareAttackers(gs *state.GameState, playerID string, attackerIDs []string) error {
	if err := CanDeclareAttackers(gs, playerID); err != nil {
		return err
	}

	defender := gs.OpponentOf(playerID)
	if defender == "" && len(attackerIDs) > 0 {
		return rulerr.New(rulerr.CodeIllegalAction, "no opponent left to attack")
	}

	seen := make(map[string]bool, len(attackerIDs))
	for _, id := range attackerIDs {
		if seen[id] {
			return rulerr.Newf(rulerr.CodeIllegalAction, "%s declared as attacker twice", id)
		}
		seen[id] = true
		if err := canAttack(gs, playerID, id); err != nil {
			return err
		}
	}

	if gs.Combat == nil {
		gs.Combat = state.NewCombat()
	}
	for _, id := range attackerIDs {
		gs.Combat.Attackers = append(gs.Combat.Attackers, id)
		gs.Combat.Defending[id] = defender
		card := gs.Cards[id]
		if !chars.Compute(card).HasKeyword(chars.KeywordVigilance) {
			card.Tapped = true
		}
		gs.RecordEvent(id, state.ZoneBattlefield, state.ZoneBattlefield, state.CauseAttack)
	}
	gs.Combat.AttackersDeclared = true
	return nil
}

func canAttack(gs *state.GameState, playerID, cardID string) error {
	card, ok := gs.Cards[cardID]
	if !ok || card.Zone != state.ZoneBattlefield {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is not on the battlefield", cardID)
	}
	eff := chars.Compute(card)
	if eff.Controller != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "you do not control %s", eff.Name)
	}
	if !eff.IsCreature() {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is not a creature", eff.Name)
	}
	if card.Tapped {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is tapped", eff.Name)
	}
	if chars.SummoningSick(card, gs.Turn) {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s has summoning sickness", eff.Name)
	}
	if eff.HasKeyword(chars.KeywordDefender) {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s has defender and cannot attack", eff.Name)
	}
	return nil
}

// DeclareBlockers validates and records the defending player's blocks.
// blocks maps each blocked attacker to its blockers in damage assignment
// order. An empty map is a legal declaration meaning no blocks.
func DeclareBlockers(gs *state.GameState, playerID string, blocks map[string][]string) error {
	if err := CanDeclareBlockers(gs, playerID); err != nil {
		return err
	}

	// Validation walks attackers in sorted order so the reported error
	// does not depend on map iteration.
	attackerIDs := make([]string, 0, len(blocks))
	for attackerID := range blocks {
		attackerIDs = append(attackerIDs, attackerID)
	}
	sort.Strings(attackerIDs)
	blockerUsed := make(map[string]bool)
	for _, attackerID := range attackerIDs {
		blockerIDs := blocks[attackerID]
		if gs.Combat.Defending[attackerID] != playerID {
			return rulerr.Newf(rulerr.CodeIllegalAction, "%s is not attacking you", attackerID)
		}
		attacker, ok := gs.Cards[attackerID]
		if !ok || attacker.Zone != state.ZoneBattlefield {
			return rulerr.Newf(rulerr.CodeIllegalAction, "attacker %s is gone", attackerID)
		}
		attackerEff := chars.Compute(attacker)
		if attackerEff.HasKeyword(chars.KeywordMenace) && len(blockerIDs) == 1 {
			return rulerr.Newf(rulerr.CodeIllegalAction,
				"%s has menace and needs at least two blockers", attackerEff.Name)
		}
		for _, blockerID := range blockerIDs {
			if blockerUsed[blockerID] {
				return rulerr.Newf(rulerr.CodeIllegalAction,
					"%s cannot block more than one attacker", blockerID)
			}
			blockerUsed[blockerID] = true
			if err := canBlock(gs, playerID, blockerID, attackerEff); err != nil {
				return err
			}
		}
	}

	for _, attackerID := range attackerIDs {
		if blockerIDs := blocks[attackerID]; len(blockerIDs) > 0 {
			gs.Combat.Blockers[attackerID] = append([]string(nil), blockerIDs...)
			gs.Combat.Blocked[attackerID] = true
		}
	}
	gs.Combat.BlockersDeclared = true
	return nil
}

func canBlock(gs *state.GameState, playerID, blockerID string, attacker chars.Effective) error {
	card, ok := gs.Cards[blockerID]
	if !ok || card.Zone != state.ZoneBattlefield {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is not on the battlefield", blockerID)
	}
	eff := chars.Compute(card)
	if eff.Controller != playerID {
		return rulerr.Newf(rulerr.CodeIllegalAction, "you do not control %s", eff.Name)
	}
	if !eff.IsCreature() {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is not a creature", eff.Name)
	}
	if card.Tapped {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is tapped and cannot block", eff.Name)
	}
	if attacker.HasKeyword(chars.KeywordFlying) &&
		!eff.HasKeyword(chars.KeywordFlying) && !eff.HasKeyword(chars.KeywordReach) {
		return rulerr.Newf(rulerr.CodeIllegalAction,
			"%s cannot block %s (flying)", eff.Name, attacker.Name)
	}
	return nil
}

// AssignDamage validates and records an explicit combat damage division,
// replacing the default lethal-order split for the attackers it names.
// assignments maps attacker id to recipient id (blockers or the defending
// player) to amount.
func AssignDamage(gs *state.GameState, playerID string, assignments map[string]map[string]int) error {
	if err := CanAssignDamage(gs, playerID); err != nil {
		return err
	}

	attackerIDs := make([]string, 0, len(assignments))
	for attackerID := range assignments {
		attackerIDs = append(attackerIDs, attackerID)
	}
	sort.Strings(attackerIDs)
	for _, attackerID := range attackerIDs {
		if err := checkAssignment(gs, attackerID, assignments[attackerID]); err != nil {
			return err
		}
	}

	for attackerID, split := range assignments {
		inner := make(map[string]int, len(split))
		for recipient, amount := range split {
			inner[recipient] = amount
		}
		gs.Combat.Assignments[attackerID] = inner
	}
	return nil
}

// checkAssignment enforces the division rules for one attacker: the split
// totals the attacker's power, recipients are its blockers plus (with
// trample, or unblocked) the defending player, and each blocker in order
// must be assigned lethal damage before anything later receives any.
func checkAssignment(gs *state.GameState, attackerID string, split map[string]int) error {
	if !isDeclaredAttacker(gs, attackerID) {
		return rulerr.Newf(rulerr.CodeIllegalAction, "%s is not attacking", attackerID)
	}
	attacker, ok := gs.Cards[attackerID]
	if !ok || attacker.Zone != state.ZoneBattlefield {
		return rulerr.Newf(rulerr.CodeIllegalAction, "attacker %s is gone", attackerID)
	}
	eff := chars.Compute(attacker)
	power := eff.Power
	if power < 0 {
		power = 0
	}
	deathtouch := eff.HasKeyword(chars.KeywordDeathtouch)
	trample := eff.HasKeyword(chars.KeywordTrample)
	blockers := gs.Combat.Blockers[attackerID]
	defender := gs.Combat.Defending[attackerID]

	total := 0
	for recipient, amount := range split {
		if amount < 0 {
			return rulerr.Newf(rulerr.CodeIllegalAction, "negative damage to %s", recipient)
		}
		total += amount
		if recipient == defender {
			if len(blockers) > 0 && !trample {
				return rulerr.Newf(rulerr.CodeIllegalAction,
					"%s is blocked and has no trample", eff.Name)
			}
			continue
		}
		if !containsID(blockers, recipient) {
			return rulerr.Newf(rulerr.CodeIllegalAction,
				"%s is not blocking %s", recipient, eff.Name)
		}
	}
	if total != power {
		return rulerr.Newf(rulerr.CodeIllegalAction,
			"assigned %d damage for %s, power is %d", total, eff.Name, power).
			WithMetadata("attacker", attackerID)
	}

	// Lethal-order rule: once a blocker gets less than lethal, no later
	// recipient may get anything.
	earlierShort := false
	for _, blockerID := range blockers {
		assigned := split[blockerID]
		if earlierShort && assigned > 0 {
			return rulerr.Newf(rulerr.CodeIllegalAction,
				"earlier blockers must be assigned lethal damage before %s receives any", blockerID)
		}
		if assigned < lethalFor(gs, blockerID, deathtouch) {
			earlierShort = true
		}
	}
	if earlierShort && split[defender] > 0 {
		return rulerr.Newf(rulerr.CodeIllegalAction,
			"trample damage requires lethal damage assigned to every blocker")
	}
	return nil
}

// lethalFor computes the damage needed to make the marked total lethal
// for the creature. Deathtouch makes any single point lethal.
func lethalFor(gs *state.GameState, cardID string, deathtouch bool) int {
	if deathtouch {
		return 1
	}
	card, ok := gs.Cards[cardID]
	if !ok {
		return 0
	}
	remaining := chars.Compute(card).Toughness - card.DamageMarked
	if remaining < 0 {
		return 0
	}
	return remaining
}

func isDeclaredAttacker(gs *state.GameState, cardID string) bool {
	if gs.Combat == nil {
		return false
	}
	return containsID(gs.Combat.Attackers, cardID)
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// damageEvent is one pending combat damage packet. All packets of a wave
// are computed against the pre-wave state, then applied together, so
// creatures that kill each other both deal their damage.
type damageEvent struct {
	toPlayer   string
	toCard     string
	amount     int
	deathtouch bool
	// lifelink credits this controller when the packet lands.
	lifelink string
}

// DealCombatDamage deals one damage wave. With firstStrike true only
// creatures that have first strike deal damage; in the regular wave only
// those that do not (they already dealt theirs). Damage is marked, life
// adjusted, and lethality left to the following state-based sweep.
func DealCombatDamage(gs *state.GameState, firstStrike bool) {
	if gs.Combat == nil {
		return
	}

	var events []damageEvent
	for _, attackerID := range gs.Combat.Attackers {
		events = append(events, attackerWave(gs, attackerID, firstStrike)...)
		for _, blockerID := range gs.Combat.Blockers[attackerID] {
			events = append(events, blockerWave(gs, blockerID, attackerID, firstStrike)...)
		}
	}

	for _, ev := range events {
		if ev.toPlayer != "" {
			DealDamageToPlayer(gs, ev.toPlayer, ev.amount)
		} else {
			DealDamageToCard(gs, ev.toCard, ev.amount, ev.deathtouch)
		}
		LifelinkGain(gs, ev.lifelink, ev.amount)
	}

	if firstStrike {
		gs.Combat.FirstStrikeResolved = true
	}
}

// dealsInWave reports whether a creature participates in the current
// damage wave.
func dealsInWave(eff chars.Effective, firstStrike bool) bool {
	return eff.HasKeyword(chars.KeywordFirstStrike) == firstStrike
}

func attackerWave(gs *state.GameState, attackerID string, firstStrike bool) []damageEvent {
	attacker, ok := gs.Cards[attackerID]
	if !ok || attacker.Zone != state.ZoneBattlefield {
		return nil
	}
	eff := chars.Compute(attacker)
	if !dealsInWave(eff, firstStrike) || eff.Power <= 0 {
		return nil
	}

	deathtouch := eff.HasKeyword(chars.KeywordDeathtouch)
	trample := eff.HasKeyword(chars.KeywordTrample)
	lifelink := ""
	if eff.HasKeyword(chars.KeywordLifelink) {
		lifelink = eff.Controller
	}
	defender := gs.Combat.Defending[attackerID]
	blockers := gs.Combat.Blockers[attackerID]

	if len(blockers) == 0 {
		if !gs.Combat.IsBlocked(attackerID) && defender != "" {
			return []damageEvent{{toPlayer: defender, amount: eff.Power, lifelink: lifelink}}
		}
		// Blocked, but every blocker left combat: damage is dealt only
		// with trample.
		if trample && defender != "" {
			return []damageEvent{{toPlayer: defender, amount: eff.Power, lifelink: lifelink}}
		}
		return nil
	}

	if split, ok := gs.Combat.Assignments[attackerID]; ok {
		return assignedEvents(split, blockers, defender, deathtouch, lifelink)
	}
	return defaultSplit(gs, eff.Power, blockers, defender, deathtouch, trample, lifelink)
}

// assignedEvents converts a recorded manual division into damage packets.
// Blockers that left combat since the division was recorded take their
// share with them; leaving the battlefield strips them from the block
// ordering.
func assignedEvents(split map[string]int, blockers []string, defender string, deathtouch bool, lifelink string) []damageEvent {
	var events []damageEvent
	for _, blockerID := range blockers {
		if amount := split[blockerID]; amount > 0 {
			events = append(events, damageEvent{
				toCard: blockerID, amount: amount, deathtouch: deathtouch, lifelink: lifelink,
			})
		}
	}
	if amount := split[defender]; amount > 0 {
		events = append(events, damageEvent{toPlayer: defender, amount: amount, lifelink: lifelink})
	}
	return events
}

// defaultSplit assigns lethal damage to each blocker in declared order,
// then sends any remainder to the last blocker, or to the defending
// player when the attacker tramples.
func defaultSplit(gs *state.GameState, power int, blockers []string, defender string, deathtouch, trample bool, lifelink string) []damageEvent {
	var events []damageEvent
	remaining := power
	for i, blockerID := range blockers {
		if remaining <= 0 {
			break
		}
		amount := lethalFor(gs, blockerID, deathtouch)
		if amount > remaining {
			amount = remaining
		}
		if i == len(blockers)-1 && !trample {
			amount = remaining
		}
		if amount > 0 {
			events = append(events, damageEvent{
				toCard: blockerID, amount: amount, deathtouch: deathtouch, lifelink: lifelink,
			})
			remaining -= amount
		}
	}

	if remaining > 0 && trample && defender != "" {
		events = append(events, damageEvent{toPlayer: defender, amount: remaining, lifelink: lifelink})
	}
	return events
}

func blockerWave(gs *state.GameState, blockerID, attackerID string, firstStrike bool) []damageEvent {
	blocker, ok := gs.Cards[blockerID]
	if !ok || blocker.Zone != state.ZoneBattlefield {
		return nil
	}
	attacker, ok := gs.Cards[attackerID]
	if !ok || attacker.Zone != state.ZoneBattlefield {
		return nil
	}
	eff := chars.Compute(blocker)
	if !dealsInWave(eff, firstStrike) || eff.Power <= 0 {
		return nil
	}
	lifelink := ""
	if eff.HasKeyword(chars.KeywordLifelink) {
		lifelink = eff.Controller
	}
	return []damageEvent{{
		toCard:     attackerID,
		amount:     eff.Power,
		deathtouch: eff.HasKeyword(chars.KeywordDeathtouch),
		lifelink:   lifelink,
	}}
}
