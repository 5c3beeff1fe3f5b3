package mana

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Cost is a parsed mana cost.
type Cost struct {
	Generic   int
	White     int
	Blue      int
	Black     int
	Red       int
	Green     int
	Colorless int
	X         bool
	Hybrid    []Hybrid
}

// Hybrid is a hybrid cost component such as {W/U} or {2/B}. Each option
// is one way to pay the component.
type Hybrid struct {
	Options []Type
}

var symbolPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses a cost string such as "{1}{G}", "{2}{R}{R}", or
// "{X}{W/U}". Symbols: numbers (generic), W/U/B/R/G/C, X, and two-part
// hybrids. An empty string is a free cost.
func ParseCost(s string) (Cost, error) {
	var cost Cost
	if s == "" {
		return cost, nil
	}

	matches := symbolPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return cost, fmt.Errorf("malformed mana cost %q", s)
	}

	for _, match := range matches {
		symbol := strings.ToUpper(strings.TrimSpace(match[1]))
		switch symbol {
		case "X":
			cost.X = true
		case "W":
			cost.White++
		case "U":
			cost.Blue++
		case "B":
			cost.Black++
		case "R":
			cost.Red++
		case "G":
			cost.Green++
		case "C":
			cost.Colorless++
		default:
			if n, err := strconv.Atoi(symbol); err == nil {
				cost.Generic += n
				continue
			}
			if strings.Contains(symbol, "/") {
				hybrid, err := parseHybrid(symbol)
				if err != nil {
					return Cost{}, err
				}
				cost.Hybrid = append(cost.Hybrid, hybrid)
				continue
			}
			return Cost{}, fmt.Errorf("unknown mana symbol {%s}", symbol)
		}
	}
	return cost, nil
}

func parseHybrid(symbol string) (Hybrid, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 {
		return Hybrid{}, fmt.Errorf("malformed hybrid symbol {%s}", symbol)
	}
	var h Hybrid
	for _, part := range parts {
		t, err := parseSymbolType(strings.TrimSpace(part))
		if err != nil {
			return Hybrid{}, fmt.Errorf("malformed hybrid symbol {%s}: %w", symbol, err)
		}
		h.Options = append(h.Options, t)
	}
	return h, nil
}

func parseSymbolType(s string) (Type, error) {
	switch s {
	case "W", "U", "B", "R", "G", "C":
		return Type(s), nil
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return Generic, nil
	}
	return "", fmt.Errorf("unknown component %q", s)
}

// ColoredAmount returns the required amount of the given concrete type.
func (c Cost) ColoredAmount(t Type) int {
	switch t {
	case White:
		return c.White
	case Blue:
		return c.Blue
	case Black:
		return c.Black
	case Red:
		return c.Red
	case Green:
		return c.Green
	case Colorless:
		return c.Colorless
	default:
		return 0
	}
}

// ManaValue returns the converted cost with the given X value. Hybrid
// components count one each.
func (c Cost) ManaValue(xValue int) int {
	total := c.Generic + c.White + c.Blue + c.Black + c.Red + c.Green + c.Colorless + len(c.Hybrid)
	if c.X {
		total += xValue
	}
	return total
}

// IsFree reports whether the cost requires no mana.
func (c Cost) IsFree() bool {
	return c.ManaValue(0) == 0 && !c.X
}

// String renders the cost back to brace notation.
func (c Cost) String() string {
	var b strings.Builder
	if c.X {
		b.WriteString("{X}")
	}
	if c.Generic > 0 {
		fmt.Fprintf(&b, "{%d}", c.Generic)
	}
	writeSymbols(&b, "W", c.White)
	writeSymbols(&b, "U", c.Blue)
	writeSymbols(&b, "B", c.Black)
	writeSymbols(&b, "R", c.Red)
	writeSymbols(&b, "G", c.Green)
	writeSymbols(&b, "C", c.Colorless)
	for _, h := range c.Hybrid {
		b.WriteString("{")
		for i, opt := range h.Options {
			if i > 0 {
				b.WriteString("/")
			}
			if opt == Generic {
				b.WriteString("2")
			} else {
				b.WriteString(string(opt))
			}
		}
		b.WriteString("}")
	}
	return b.String()
}

func writeSymbols(b *strings.Builder, symbol string, count int) {
	for i := 0; i < count; i++ {
		b.WriteString("{")
		b.WriteString(symbol)
		b.WriteString("}")
	}
}
