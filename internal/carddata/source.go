package carddata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound reports that no definition exists for the requested ref.
var ErrNotFound = errors.New("card definition not found")

// Ref identifies one printing of a card: set code plus collector id.
type Ref struct {
	SetCode     string `json:"setCode"`
	CollectorID string `json:"collectorId"`
}

func (r Ref) String() string {
	return r.SetCode + "/" + r.CollectorID
}

// DefinitionSource resolves card refs to canonical definitions. The engine
// holds exactly one of these and calls it only while staging an action,
// never during resolution, so implementations may be backed by memory or
// by a database.
type DefinitionSource interface {
	Definition(ctx context.Context, ref Ref) (CardDefinition, error)
}

// TokenSource resolves token definitions by set and name for effects that
// create tokens.
type TokenSource interface {
	Token(ctx context.Context, setCode, name string) (CardDefinition, error)
}

// Catalog is an in-memory DefinitionSource and TokenSource. It is the
// canonical backing for engine games: definitions are loaded up front and
// every lookup afterwards is a map read.
type Catalog struct {
	mu     sync.RWMutex
	cards  map[Ref]CardDefinition
	tokens map[tokenKey]CardDefinition
}

type tokenKey struct {
	set  string
	name string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		cards:  make(map[Ref]CardDefinition),
		tokens: make(map[tokenKey]CardDefinition),
	}
}

// Put stores one definition, replacing any previous entry for its ref.
// Token definitions are additionally indexed by set and name.
func (c *Catalog) Put(def CardDefinition) error {
	if def.SetCode == "" || def.CollectorID == "" {
		return fmt.Errorf("definition %q has no set code or collector id", def.Name)
	}
	ref := Ref{SetCode: strings.ToUpper(def.SetCode), CollectorID: def.CollectorID}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards[ref] = def
	if def.IsToken {
		c.tokens[tokenKey{set: ref.SetCode, name: strings.ToLower(def.Name)}] = def
	}
	return nil
}

// LoadSetJSON normalizes and stores every card in a JSON set file.
// It returns the number of cards stored; normalization errors for
// individual entries are joined and returned after the rest of the set
// has loaded.
func (c *Catalog) LoadSetJSON(data []byte) (int, error) {
	defs, errs := NormalizeSet(data)
	for _, def := range defs {
		if err := c.Put(def); err != nil {
			errs = append(errs, err)
		}
	}
	return len(defs), errors.Join(errs...)
}

// Definition implements DefinitionSource.
func (c *Catalog) Definition(_ context.Context, ref Ref) (CardDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.cards[Ref{SetCode: strings.ToUpper(ref.SetCode), CollectorID: ref.CollectorID}]
	if !ok {
		return CardDefinition{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return def.Copy(), nil
}

// Token implements TokenSource.
func (c *Catalog) Token(_ context.Context, setCode, name string) (CardDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.tokens[tokenKey{set: strings.ToUpper(setCode), name: strings.ToLower(name)}]
	if !ok {
		return CardDefinition{}, fmt.Errorf("token %s/%s: %w", setCode, name, ErrNotFound)
	}
	return def.Copy(), nil
}

// Len reports the number of stored definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// Refs returns all stored refs sorted by set then collector id, for
// deterministic iteration in imports and tests.
func (c *Catalog) Refs() []Ref {
	c.mu.RLock()
	defer c.mu.RUnlock()
	refs := make([]Ref, 0, len(c.cards))
	for ref := range c.cards {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].SetCode != refs[j].SetCode {
			return refs[i].SetCode < refs[j].SetCode
		}
		return refs[i].CollectorID < refs[j].CollectorID
	})
	return refs
}
