package state

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint computes a deterministic digest of the full game state.
// Two states with equal fingerprints are byte-for-byte identical as far
// as game semantics go: every ordered zone in order, every map walked in
// sorted key order. Rejected actions are verified against it, and the
// journal records one per committed action to catch replay divergence.
func (gs *GameState) Fingerprint() string {
	sum := blake2b.Sum256([]byte(gs.canonicalString()))
	return hex.EncodeToString(sum[:])
}

// canonicalString renders the state into a stable textual form. Zone
// slices keep their order because order is part of the state; maps are
// sorted by key.
func (gs *GameState) canonicalString() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%d|%s|%s|%s|%s|%t|%s\n",
		gs.GameID, gs.Seed, gs.Turn, gs.Phase, gs.Step,
		gs.ActivePlayer, gs.PriorityPlayer, gs.Over, gs.WinnerID)
	fmt.Fprintf(&buf, "SEQ:%d|%d|%d|%s\n", gs.LayerSeq, gs.ProvenanceSeq, gs.TriggerSeq, gs.SkipDrawFor)
	fmt.Fprintf(&buf, "ORDER:%s\n", strings.Join(gs.PlayerOrder, ","))

	playerIDs := make([]string, 0, len(gs.Players))
	for id := range gs.Players {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)
	for _, id := range playerIDs {
		p := gs.Players[id]
		fmt.Fprintf(&buf, "PLAYER:%s|%d|%d|%d|%t|%d|%d|%t|%t|%s\n",
			id, p.Life, p.Poison, p.Energy, p.Passed, p.LandsPlayed, p.LandLimit,
			p.DrewFromEmpty, p.Lost, p.LossReason)
		fmt.Fprintf(&buf, "  LIBRARY:%s\n", strings.Join(p.Library, ","))
		fmt.Fprintf(&buf, "  HAND:%s\n", strings.Join(p.Hand, ","))
		fmt.Fprintf(&buf, "  GRAVEYARD:%s\n", strings.Join(p.Graveyard, ","))
		fmt.Fprintf(&buf, "  MANA:W%d|U%d|B%d|R%d|G%d|C%d\n",
			p.ManaPool.White, p.ManaPool.Blue, p.ManaPool.Black,
			p.ManaPool.Red, p.ManaPool.Green, p.ManaPool.Colorless)
	}

	cardIDs := make([]string, 0, len(gs.Cards))
	for id := range gs.Cards {
		cardIDs = append(cardIDs, id)
	}
	sort.Strings(cardIDs)
	for _, id := range cardIDs {
		c := gs.Cards[id]
		fmt.Fprintf(&buf, "CARD:%s|%s|%s|%s|%s|%t|%d|%t|%t|%d\n",
			id, c.Base.Name, c.Owner, c.Controller, c.Zone,
			c.Tapped, c.DamageMarked, c.DeathtouchHit, c.IsToken, c.EnteredTurn)
		for _, name := range c.Counters.Names() {
			fmt.Fprintf(&buf, "  COUNTER:%s=%d\n", name, c.Counters.Count(name))
		}
		for _, mod := range c.Mods {
			fmt.Fprintf(&buf, "  MOD:%d|%s|%s|%s|%s\n",
				mod.Seq, mod.Layer, mod.SourceID, mod.Duration, modBody(mod))
		}
	}

	fmt.Fprintf(&buf, "BATTLEFIELD:%s\n", strings.Join(gs.Battlefield, ","))
	fmt.Fprintf(&buf, "EXILE:%s\n", strings.Join(gs.Exile, ","))
	fmt.Fprintf(&buf, "COMMAND:%s\n", strings.Join(gs.Command, ","))

	buf.WriteString("STACK:\n")
	for i, obj := range gs.Stack {
		fmt.Fprintf(&buf, "  %d:%s|%s|%s|%s|%d|%s\n",
			i, obj.ID, obj.Kind, obj.SourceID, obj.Controller,
			obj.AbilityIndex, strings.Join(obj.Targets, ","))
	}

	if gs.Combat != nil {
		fmt.Fprintf(&buf, "COMBAT:%s|%t|%t|%t\n",
			strings.Join(gs.Combat.Attackers, ","),
			gs.Combat.AttackersDeclared, gs.Combat.BlockersDeclared,
			gs.Combat.FirstStrikeResolved)
		for _, attacker := range gs.Combat.Attackers {
			fmt.Fprintf(&buf, "  ATTACK:%s->%s|blocked=%t|blockers=%s\n",
				attacker, gs.Combat.Defending[attacker], gs.Combat.Blocked[attacker],
				strings.Join(gs.Combat.Blockers[attacker], ","))
			if assignment, ok := gs.Combat.Assignments[attacker]; ok {
				recipients := make([]string, 0, len(assignment))
				for recipient := range assignment {
					recipients = append(recipients, recipient)
				}
				sort.Strings(recipients)
				for _, recipient := range recipients {
					fmt.Fprintf(&buf, "    ASSIGN:%s=%d\n", recipient, assignment[recipient])
				}
			}
		}
	}

	return buf.String()
}

func modBody(mod Modification) string {
	var parts []string
	if mod.CopyBase != nil {
		parts = append(parts, "copy="+mod.CopyBase.Name)
	}
	if mod.NewController != "" {
		parts = append(parts, "control="+mod.NewController)
	}
	if mod.NewName != "" {
		parts = append(parts, "name="+mod.NewName)
	}
	if len(mod.AddTypes) > 0 {
		parts = append(parts, "types+"+strings.Join(mod.AddTypes, "/"))
	}
	if len(mod.RemoveTypes) > 0 {
		parts = append(parts, "types-"+strings.Join(mod.RemoveTypes, "/"))
	}
	if len(mod.AddColors) > 0 {
		parts = append(parts, "colors+"+strings.Join(mod.AddColors, "/"))
	}
	if len(mod.AddKeywords) > 0 {
		parts = append(parts, "kw+"+strings.Join(mod.AddKeywords, "/"))
	}
	if mod.SetPower != nil {
		parts = append(parts, fmt.Sprintf("p=%d", *mod.SetPower))
	}
	if mod.SetToughness != nil {
		parts = append(parts, fmt.Sprintf("t=%d", *mod.SetToughness))
	}
	if mod.PowerDelta != 0 || mod.ToughnessDelta != 0 {
		parts = append(parts, fmt.Sprintf("pt%+d/%+d", mod.PowerDelta, mod.ToughnessDelta))
	}
	return strings.Join(parts, ";")
}
