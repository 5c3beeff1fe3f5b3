package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openduel/engine-go/internal/game/chars"
	"github.com/openduel/engine-go/internal/game/rulerr"
	"github.com/openduel/engine-go/internal/game/state"
)

// attackWith advances to the declare-attackers step and declares for the
// active player.
func (h *duelHarness) attackWith(attackers ...string) {
	h.t.Helper()
	h.passUntilStep(state.StepDeclareAttackers)
	h.apply(h.state().ActivePlayer, Action{Kind: ActionDeclareAttackers, Attackers: attackers})
}

// blockWith advances to the declare-blockers step, hands priority to the
// defending player, and declares the blocks.
func (h *duelHarness) blockWith(blocks map[string][]string) {
	h.t.Helper()
	h.passUntilStep(state.StepDeclareBlockers)
	gs := h.state()
	defender := gs.OpponentOf(gs.ActivePlayer)
	h.pass(gs.ActivePlayer)
	h.apply(defender, Action{Kind: ActionDeclareBlockers, Blocks: blocks})
}

func TestUnblockedAttackerHitsPlayer(t *testing.T) {
	gs := duelState()
	addCard(gs, "bear-a", "p1", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	h := newDuelWith(t, gs)

	h.attackWith("bear-a")
	attacker, _ := h.state().Card("bear-a")
	assert.True(t, attacker.Tapped, "attacking taps without vigilance")

	h.passUntilStep(state.StepCombatDamage)
	assert.Equal(t, 18, h.life("p2"))
	assert.Equal(t, 20, h.life("p1"))

	h.passUntilStep(state.StepEndCombat)
	assert.Nil(t, h.state().Combat, "combat data is dropped at end of combat")
}

func TestBlockedCreaturesTrade(t *testing.T) {
	gs := duelState()
	addCard(gs, "bear-a", "p1", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	addCard(gs, "bear-b", "p2", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	h := newDuelWith(t, gs)

	h.attackWith("bear-a")
	h.blockWith(map[string][]string{"bear-a": {"bear-b"}})
	h.passUntilStep(state.StepCombatDamage)

	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("bear-a"))
	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("bear-b"))
	assert.Equal(t, 20, h.life("p1"))
	assert.Equal(t, 20, h.life("p2"))
}

func TestVigilanceAttackerStaysUntapped(t *testing.T) {
	gs := duelState()
	addCard(gs, "ox-a", "p1", state.ZoneBattlefield,
		creatureDef("Yoked Ox", "{2}{W}", "2", "4", chars.KeywordVigilance))
	h := newDuelWith(t, gs)

	h.attackWith("ox-a")
	attacker, _ := h.state().Card("ox-a")
	assert.False(t, attacker.Tapped)
}

func TestFlyingNeedsFlyingOrReachBlocker(t *testing.T) {
	gs := duelState()
	addCard(gs, "hawk-a", "p1", state.ZoneBattlefield,
		creatureDef("Wind Hawk", "{1}{U}", "2", "2", chars.KeywordFlying))
	addCard(gs, "bear-b", "p2", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	addCard(gs, "spider-b", "p2", state.ZoneBattlefield,
		creatureDef("Watchful Spider", "{2}{G}", "1", "3", chars.KeywordReach))
	h := newDuelWith(t, gs)

	h.attackWith("hawk-a")
	h.passUntilStep(state.StepDeclareBlockers)
	h.pass("p1")

	err := h.applyErr("p2", Action{Kind: ActionDeclareBlockers,
		Blocks: map[string][]string{"hawk-a": {"bear-b"}}})
	assert.True(t, rulerr.HasCode(err, rulerr.CodeIllegalAction), "got %v", err)

	h.apply("p2", Action{Kind: ActionDeclareBlockers,
		Blocks: map[string][]string{"hawk-a": {"spider-b"}}})
	h.passUntilStep(state.StepCombatDamage)

	hawk, _ := h.state().Card("hawk-a")
	spider, _ := h.state().Card("spider-b")
	assert.Equal(t, state.ZoneBattlefield, hawk.Zone)
	assert.Equal(t, state.ZoneBattlefield, spider.Zone)
	assert.Equal(t, 1, hawk.DamageMarked)
	assert.Equal(t, 2, spider.DamageMarked)
	assert.Equal(t, 20, h.life("p2"))
}

func TestMenaceNeedsTwoBlockers(t *testing.T) {
	gs := duelState()
	addCard(gs, "brute-a", "p1", state.ZoneBattlefield,
		creatureDef("Alley Brute", "{2}{B}", "3", "3", chars.KeywordMenace))
	addCard(gs, "bear-b", "p2", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	addCard(gs, "bear-c", "p2", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	h := newDuelWith(t, gs)

	h.attackWith("brute-a")
	h.passUntilStep(state.StepDeclareBlockers)
	h.pass("p1")

	err := h.applyErr("p2", Action{Kind: ActionDeclareBlockers,
		Blocks: map[string][]string{"brute-a": {"bear-b"}}})
	assert.True(t, rulerr.HasCode(err, rulerr.CodeIllegalAction), "got %v", err)

	h.apply("p2", Action{Kind: ActionDeclareBlockers,
		Blocks: map[string][]string{"brute-a": {"bear-b", "bear-c"}}})
	h.passUntilStep(state.StepCombatDamage)

	// Default split: lethal two to the first bear, the remainder to the
	// last. The brute takes four back and dies.
	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("bear-b"))
	bearC, _ := h.state().Card("bear-c")
	assert.Equal(t, state.ZoneBattlefield, bearC.Zone)
	assert.Equal(t, 1, bearC.DamageMarked)
	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("brute-a"))
}

func TestTrampleOverflowsToPlayer(t *testing.T) {
	gs := duelState()
	addCard(gs, "wurm-a", "p1", state.ZoneBattlefield,
		creatureDef("Charging Wurm", "{3}{G}", "4", "4", chars.KeywordTrample))
	addCard(gs, "bear-b", "p2", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	h := newDuelWith(t, gs)

	h.attackWith("wurm-a")
	h.blockWith(map[string][]string{"wurm-a": {"bear-b"}})
	h.passUntilStep(state.StepCombatDamage)

	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("bear-b"))
	wurm, _ := h.state().Card("wurm-a")
	assert.Equal(t, state.ZoneBattlefield, wurm.Zone)
	assert.Equal(t, 2, wurm.DamageMarked)
	assert.Equal(t, 18, h.life("p2"))
}

func TestDeathtouchDropsBigBlocker(t *testing.T) {
	gs := duelState()
	addCard(gs, "rat-a", "p1", state.ZoneBattlefield,
		creatureDef("Typhoid Rat", "{B}", "1", "1", chars.KeywordDeathtouch))
	addCard(gs, "ox-b", "p2", state.ZoneBattlefield, creatureDef("Plated Ox", "{3}{G}", "4", "4"))
	h := newDuelWith(t, gs)

	h.attackWith("rat-a")
	h.blockWith(map[string][]string{"rat-a": {"ox-b"}})
	h.passUntilStep(state.StepCombatDamage)

	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("ox-b"), "one point of deathtouch damage is lethal")
	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("rat-a"))
}

func TestLifelinkHealsController(t *testing.T) {
	gs := duelState()
	addCard(gs, "cleric-a", "p1", state.ZoneBattlefield,
		creatureDef("Dawn Cleric", "{1}{W}", "2", "2", chars.KeywordLifelink))
	h := newDuelWith(t, gs)

	h.attackWith("cleric-a")
	h.passUntilStep(state.StepCombatDamage)

	assert.Equal(t, 22, h.life("p1"))
	assert.Equal(t, 18, h.life("p2"))
}

func TestFirstStrikeKillsBeforeCounterattack(t *testing.T) {
	gs := duelState()
	addCard(gs, "fencer-a", "p1", state.ZoneBattlefield,
		creatureDef("Deft Fencer", "{1}{R}", "2", "2", chars.KeywordFirstStrike))
	addCard(gs, "bear-b", "p2", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	h := newDuelWith(t, gs)

	h.attackWith("fencer-a")
	h.blockWith(map[string][]string{"fencer-a": {"bear-b"}})

	// The extra damage step fires first and only the fencer deals damage
	// in it.
	h.passUntilStep(state.StepFirstStrikeDamage)
	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("bear-b"))
	fencer, _ := h.state().Card("fencer-a")
	assert.Equal(t, 0, fencer.DamageMarked)

	// The regular wave has nothing left to do: the blocker is gone and the
	// fencer already dealt its damage.
	h.passUntilStep(state.StepCombatDamage)
	fencer, _ = h.state().Card("fencer-a")
	assert.Equal(t, state.ZoneBattlefield, fencer.Zone)
	assert.Equal(t, 0, fencer.DamageMarked)
	assert.Equal(t, 20, h.life("p2"))
}

func TestDefenderCannotAttack(t *testing.T) {
	gs := duelState()
	addCard(gs, "wall-a", "p1", state.ZoneBattlefield,
		creatureDef("Stone Wall", "{1}{W}", "0", "4", chars.KeywordDefender))
	h := newDuelWith(t, gs)

	h.passUntilStep(state.StepDeclareAttackers)
	err := h.applyErr("p1", Action{Kind: ActionDeclareAttackers, Attackers: []string{"wall-a"}})
	assert.True(t, rulerr.HasCode(err, rulerr.CodeIllegalAction), "got %v", err)
}

func TestSummoningSicknessGatesTheAttack(t *testing.T) {
	gs := duelState()
	addCard(gs, "forest-a", "p1", state.ZoneBattlefield, basicLand("Forest", "G"))
	addCard(gs, "forest-b", "p1", state.ZoneBattlefield, basicLand("Forest", "G"))
	addCard(gs, "forest-c", "p1", state.ZoneBattlefield, basicLand("Forest", "G"))
	addCard(gs, "forest-d", "p1", state.ZoneBattlefield, basicLand("Forest", "G"))
	addCard(gs, "bear-1", "p1", state.ZoneHand, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	addCard(gs, "rider-1", "p1", state.ZoneHand,
		creatureDef("Raging Rider", "{1}{G}", "2", "2", chars.KeywordHaste))
	h := newDuelWith(t, gs)

	h.tap("p1", "forest-a", "forest-b", "forest-c", "forest-d")
	h.apply("p1", Action{Kind: ActionCastSpell, CardID: "bear-1"})
	h.passRound()
	h.apply("p1", Action{Kind: ActionCastSpell, CardID: "rider-1"})
	h.passRound()

	h.passUntilStep(state.StepDeclareAttackers)
	err := h.applyErr("p1", Action{Kind: ActionDeclareAttackers, Attackers: []string{"bear-1"}})
	assert.True(t, rulerr.HasCode(err, rulerr.CodeIllegalAction), "got %v", err)

	// Haste ignores the sickness.
	h.apply("p1", Action{Kind: ActionDeclareAttackers, Attackers: []string{"rider-1"}})
	h.passUntilStep(state.StepCombatDamage)
	assert.Equal(t, 18, h.life("p2"))
}

func TestTappedCreatureCannotBlock(t *testing.T) {
	gs := duelState()
	addCard(gs, "bear-a", "p1", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	blocker := addCard(gs, "bear-b", "p2", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	blocker.Tapped = true
	h := newDuelWith(t, gs)

	h.attackWith("bear-a")
	h.passUntilStep(state.StepDeclareBlockers)
	h.pass("p1")

	err := h.applyErr("p2", Action{Kind: ActionDeclareBlockers,
		Blocks: map[string][]string{"bear-a": {"bear-b"}}})
	assert.True(t, rulerr.HasCode(err, rulerr.CodeIllegalAction), "got %v", err)
}

func TestManualDamageAssignmentRespectsLethalOrder(t *testing.T) {
	gs := duelState()
	addCard(gs, "giant-a", "p1", state.ZoneBattlefield, creatureDef("Hill Giant", "{4}{R}", "5", "5"))
	addCard(gs, "bear-b", "p2", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	addCard(gs, "ox-c", "p2", state.ZoneBattlefield, creatureDef("Plated Ox", "{3}{G}", "3", "3"))
	h := newDuelWith(t, gs)

	h.attackWith("giant-a")
	h.blockWith(map[string][]string{"giant-a": {"bear-b", "ox-c"}})

	// Short-changing the first blocker while the second still gets damage
	// breaks the lethal-order rule.
	err := h.applyErr("p1", Action{Kind: ActionAssignDamage,
		Assignments: map[string]map[string]int{"giant-a": {"bear-b": 1, "ox-c": 4}}})
	assert.True(t, rulerr.HasCode(err, rulerr.CodeIllegalAction), "got %v", err)

	// Piling everything on the first blocker is legal.
	h.apply("p1", Action{Kind: ActionAssignDamage,
		Assignments: map[string]map[string]int{"giant-a": {"bear-b": 5, "ox-c": 0}}})
	h.passUntilStep(state.StepCombatDamage)

	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("bear-b"))
	ox, _ := h.state().Card("ox-c")
	assert.Equal(t, state.ZoneBattlefield, ox.Zone)
	assert.Equal(t, 0, ox.DamageMarked)
	// Both blockers still hit back; five damage finishes the giant.
	assert.Equal(t, state.ZoneGraveyard, h.zoneOf("giant-a"))
}

func TestEmptyAttackSkipsToEndOfCombat(t *testing.T) {
	gs := duelState()
	addCard(gs, "bear-a", "p1", state.ZoneBattlefield, creatureDef("Grizzly Bears", "{1}{G}", "2", "2"))
	h := newDuelWith(t, gs)

	h.attackWith()
	require.Empty(t, h.state().Combat.Attackers)

	h.passRound()
	gsNow := h.state()
	assert.Equal(t, state.StepEndCombat, gsNow.Step, "no attack skips blockers and damage")
	assert.Nil(t, gsNow.Combat)
	assert.Equal(t, 20, h.life("p2"))
}
