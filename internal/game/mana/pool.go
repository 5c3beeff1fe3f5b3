// Package mana implements mana pools, cost parsing, and payment solving.
package mana

// Type identifies a kind of mana. Values match the cost-symbol letters.
type Type string

const (
	White     Type = "W"
	Blue      Type = "U"
	Black     Type = "B"
	Red       Type = "R"
	Green     Type = "G"
	Colorless Type = "C"
	// Generic marks a cost component payable with any mana type.
	Generic Type = "GENERIC"
)

// Types lists the concrete mana types in WUBRG+C order.
var Types = []Type{White, Blue, Black, Red, Green, Colorless}

// Pool is a player's mana pool. It is plain serializable data; the engine
// serializes all access per game, so no locking lives here. Pools empty at
// every step and phase boundary.
type Pool struct {
	White     int `json:"white"`
	Blue      int `json:"blue"`
	Black     int `json:"black"`
	Red       int `json:"red"`
	Green     int `json:"green"`
	Colorless int `json:"colorless"`
}

// Add adds amount mana of the given type. Non-positive amounts are ignored.
func (p *Pool) Add(t Type, amount int) {
	if amount <= 0 {
		return
	}
	switch t {
	case White:
		p.White += amount
	case Blue:
		p.Blue += amount
	case Black:
		p.Black += amount
	case Red:
		p.Red += amount
	case Green:
		p.Green += amount
	case Colorless:
		p.Colorless += amount
	}
}

// Amount returns the pooled amount of the given type.
func (p *Pool) Amount(t Type) int {
	switch t {
	case White:
		return p.White
	case Blue:
		return p.Blue
	case Black:
		return p.Black
	case Red:
		return p.Red
	case Green:
		return p.Green
	case Colorless:
		return p.Colorless
	default:
		return 0
	}
}

// Total returns the pooled amount across all types.
func (p *Pool) Total() int {
	return p.White + p.Blue + p.Black + p.Red + p.Green + p.Colorless
}

// Spend removes amount mana of the given type and reports whether the
// pool held enough.
func (p *Pool) Spend(t Type, amount int) bool {
	if amount <= 0 {
		return true
	}
	if p.Amount(t) < amount {
		return false
	}
	switch t {
	case White:
		p.White -= amount
	case Blue:
		p.Blue -= amount
	case Black:
		p.Black -= amount
	case Red:
		p.Red -= amount
	case Green:
		p.Green -= amount
	case Colorless:
		p.Colorless -= amount
	}
	return true
}

// Empty clears the pool. Called at every step and phase boundary.
func (p *Pool) Empty() {
	*p = Pool{}
}

// IsEmpty reports whether the pool holds no mana.
func (p *Pool) IsEmpty() bool {
	return p.Total() == 0
}

// Copy returns a copy of the pool.
func (p *Pool) Copy() Pool {
	return *p
}
