package state

import (
	"github.com/openduel/engine-go/internal/carddata"
	"github.com/openduel/engine-go/internal/game/counters"
)

// Layer is the ordered category a continuous effect applies in. Effective
// characteristics are computed base first, then each layer in ascending
// order, then counters.
type Layer int

const (
	LayerCopy Layer = iota + 1
	LayerControl
	LayerText
	LayerTypeColor
	LayerPTSet
	LayerPTModify
)

var layerNames = map[Layer]string{
	LayerCopy:      "COPY",
	LayerControl:   "CONTROL",
	LayerText:      "TEXT",
	LayerTypeColor: "TYPE_COLOR",
	LayerPTSet:     "PT_SET",
	LayerPTModify:  "PT_MODIFY",
}

func (l Layer) String() string {
	if name, ok := layerNames[l]; ok {
		return name
	}
	return "LAYER_UNKNOWN"
}

// Modification is one active continuous effect on a card. Seq is the
// layer timestamp assigned when the effect resolved; within LayerPTModify
// it decides application order.
type Modification struct {
	Seq      uint64
	Layer    Layer
	SourceID string
	Duration string // carddata duration name, empty means permanent

	// LayerCopy
	CopyBase *carddata.CardDefinition

	// LayerControl
	NewController string

	// LayerText
	NewName string

	// LayerTypeColor
	AddTypes    []string
	RemoveTypes []string
	AddColors   []string
	AddKeywords []string

	// LayerPTSet
	SetPower     *int
	SetToughness *int

	// LayerPTModify
	PowerDelta     int
	ToughnessDelta int
}

// CardObject is one instantiated card in a game. The instance id is
// unique and immutable for the object's life; "destruction" is a zone
// transition, not deletion.
type CardObject struct {
	ID  string
	Ref carddata.Ref

	// Base holds the printed characteristics. Effective characteristics
	// are derived from Base plus Mods plus Counters, never stored here.
	Base carddata.CardDefinition

	Owner      string
	Controller string
	Zone       Zone

	Tapped       bool
	DamageMarked int
	// DeathtouchHit records that some of the marked damage came from a
	// deathtouch source, which lowers the lethal threshold to one.
	DeathtouchHit bool

	Counters counters.Set
	Mods     []Modification

	IsToken bool
	// EnteredTurn is the turn this object entered the battlefield, used
	// for summoning sickness. Zero when it has never been there.
	EnteredTurn int
}

// EnteredThisTurn reports whether the card entered the battlefield on the
// given turn.
func (c *CardObject) EnteredThisTurn(turn int) bool {
	return c.Zone == ZoneBattlefield && c.EnteredTurn == turn
}

// AddMod appends a modification.
func (c *CardObject) AddMod(mod Modification) {
	c.Mods = append(c.Mods, mod)
}

// ExpireMods removes modifications whose duration matches the given name
// and returns how many were dropped.
func (c *CardObject) ExpireMods(duration string) int {
	kept := c.Mods[:0]
	dropped := 0
	for _, mod := range c.Mods {
		if mod.Duration == duration {
			dropped++
			continue
		}
		kept = append(kept, mod)
	}
	c.Mods = kept
	return dropped
}

// Copy returns a deep copy of the card object.
func (c *CardObject) Copy() *CardObject {
	dup := *c
	dup.Base = c.Base.Copy()
	dup.Counters = c.Counters.Copy()
	if c.Mods != nil {
		dup.Mods = make([]Modification, len(c.Mods))
		for i, mod := range c.Mods {
			dup.Mods[i] = mod.copy()
		}
	}
	return &dup
}

func (m Modification) copy() Modification {
	dup := m
	if m.CopyBase != nil {
		base := m.CopyBase.Copy()
		dup.CopyBase = &base
	}
	if m.SetPower != nil {
		v := *m.SetPower
		dup.SetPower = &v
	}
	if m.SetToughness != nil {
		v := *m.SetToughness
		dup.SetToughness = &v
	}
	dup.AddTypes = copyStringsOrNil(m.AddTypes)
	dup.RemoveTypes = copyStringsOrNil(m.RemoveTypes)
	dup.AddColors = copyStringsOrNil(m.AddColors)
	dup.AddKeywords = copyStringsOrNil(m.AddKeywords)
	return dup
}

func copyStringsOrNil(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
