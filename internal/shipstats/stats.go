// Package shipstats computes the numeric statistics of a build and the
// time-to-kill of one build against another.
//
// The pipeline is Aggregate (base ship, components, upgrades, crew) ->
// ResolveActives (active abilities, on a copy) -> TimeToKill. Every stage
// returns a fresh *Stats; nothing mutates its input, so a single aggregated
// baseline can be shared by concurrent callers.
package shipstats

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
)

// Scope names one stat set: the ship itself or one component slot.
type Scope uint8

// ScopeShip is the ship-level scope. Component scopes share their numeric
// value with catalog.Category.
const ScopeShip Scope = 0

const numScopes = catalog.NumCategories + 1

// ScopeOf returns the scope of a component category.
func ScopeOf(c catalog.Category) Scope { return Scope(c) }

// Category returns the component category of a scope, or 0 for ScopeShip.
func (s Scope) Category() catalog.Category { return catalog.Category(s) }

func (s Scope) String() string {
	if s == ScopeShip {
		return "Ship"
	}
	return catalog.Category(s).String()
}

func (s Scope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseScope accepts "Ship" or any category reference understood by
// catalog.ParseCategory.
func ParseScope(ref string) (Scope, error) {
	if strings.EqualFold(strings.TrimSpace(ref), "ship") {
		return ScopeShip, nil
	}
	c, err := catalog.ParseCategory(ref)
	if err != nil {
		return 0, err
	}
	return ScopeOf(c), nil
}

// noOwner marks deltas that do not originate from a component (crew
// passives, active effects).
const noOwner Scope = 255

const (
	multiplicativeMarker = "[Pc]"
	additiveMarker       = "[Pb]"
)

// aliases maps alternative stat spellings found in the data files onto
// their canonical name.
var aliases = map[string]string{
	"Cooldown_Time": "Cooldown",
}

// ParseStatName strips the composition markers from a raw stat name and
// reports whether the delta is multiplicative.
func ParseStatName(raw string) (name string, multiplicative bool) {
	multiplicative = strings.Contains(raw, multiplicativeMarker)
	name = strings.ReplaceAll(raw, multiplicativeMarker, "")
	name = strings.ReplaceAll(name, additiveMarker, "")
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	return name, multiplicative
}

// Stats is the accumulator of an aggregation: one stat set per scope,
// indexed by Scope. Absent scopes are nil.
type Stats struct {
	sets [numScopes]catalog.Stats
}

// NewStats returns an empty accumulator.
func NewStats() *Stats { return &Stats{} }

// Clone returns a deep copy.
func (s *Stats) Clone() *Stats {
	c := &Stats{}
	for i, set := range s.sets {
		c.sets[i] = set.Clone()
	}
	return c
}

// Scope returns a copy of the stat set of sc.
func (s *Stats) Scope(sc Scope) (catalog.Stats, bool) {
	if int(sc) >= numScopes || s.sets[sc] == nil {
		return nil, false
	}
	return s.sets[sc].Clone(), true
}

// Get returns a single stat value.
func (s *Stats) Get(sc Scope, stat string) (float64, bool) {
	if int(sc) >= numScopes {
		return 0, false
	}
	v, ok := s.sets[sc][stat]
	return v, ok
}

// Has reports whether scope sc defines stat.
func (s *Stats) Has(sc Scope, stat string) bool {
	_, ok := s.Get(sc, stat)
	return ok
}

// Scopes returns the populated scopes in canonical order.
func (s *Stats) Scopes() []Scope {
	var out []Scope
	for i, set := range s.sets {
		if set != nil {
			out = append(out, Scope(i))
		}
	}
	return out
}

// Equal reports whether both accumulators hold exactly the same values.
func (s *Stats) Equal(o *Stats) bool {
	for i := range s.sets {
		a, b := s.sets[i], o.sets[i]
		if (a == nil) != (b == nil) || len(a) != len(b) {
			return false
		}
		for k, v := range a {
			if w, ok := b[k]; !ok || w != v {
				return false
			}
		}
	}
	return true
}

func (s *Stats) MarshalJSON() ([]byte, error) {
	out := make(map[string]catalog.Stats, numScopes)
	for _, sc := range s.Scopes() {
		out[sc.String()] = s.sets[sc]
	}
	return json.Marshal(out)
}

// seed replaces the set of sc with a normalised copy of base.
func (s *Stats) seed(sc Scope, base catalog.Stats) {
	set := make(catalog.Stats, len(base))
	for raw, v := range base {
		name, _ := ParseStatName(raw)
		set[name] = v
	}
	s.sets[sc] = set
}

// update applies one delta. Stats the scope does not already define are
// ignored: aggregation never introduces new keys.
func (s *Stats) update(sc Scope, stat string, multiplicative bool, value float64) bool {
	if int(sc) >= numScopes {
		return false
	}
	set := s.sets[sc]
	cur, ok := set[stat]
	if !ok {
		return false
	}
	set[stat] = compose(cur, multiplicative, value)
	return true
}

func compose(cur float64, multiplicative bool, delta float64) float64 {
	if multiplicative {
		return cur * (delta + 1)
	}
	return cur + delta
}

// applyDeltas applies a delta mapping to the scopes selected by target.
// Deltas are applied in sorted stat-name order so results never depend on
// map iteration. Returns the raw names of deltas that found no scope.
func (s *Stats) applyDeltas(target catalog.Target, owner Scope, deltas catalog.Stats) []string {
	var dropped []string
	for _, raw := range deltas.Keys() {
		name, mul := ParseStatName(raw)
		applied := false
		for _, sc := range s.targetScopes(target, owner, name) {
			if s.update(sc, name, mul, deltas[raw]) {
				applied = true
			}
		}
		if !applied {
			dropped = append(dropped, raw)
		}
	}
	return dropped
}

// targetScopes resolves a target tag into concrete scopes for one stat.
func (s *Stats) targetScopes(target catalog.Target, owner Scope, stat string) []Scope {
	switch target.Kind {
	case catalog.TargetSelf:
		if owner == noOwner {
			return nil
		}
		return []Scope{owner}
	case catalog.TargetShip:
		return []Scope{ScopeShip}
	case catalog.TargetCategory:
		return []Scope{ScopeOf(target.Category)}
	case catalog.TargetPrimaryWeapons:
		return weaponPair(catalog.PrimaryWeapon)
	case catalog.TargetSecondaryWeapons:
		return weaponPair(catalog.SecondaryWeapon)
	}
	if s.Has(ScopeShip, stat) {
		return []Scope{ScopeShip}
	}
	if owner != noOwner {
		if s.Has(owner, stat) {
			return []Scope{owner}
		}
		return nil
	}
	return s.guessScopes(stat)
}

// guessScopes finds the scopes for a stat without an explicit target: the
// ship first, then the primary weapon pair, the secondary weapon pair and
// the remaining components in canonical order. The first group in which any
// scope defines the stat receives it on every member that does.
func (s *Stats) guessScopes(stat string) []Scope {
	if s.Has(ScopeShip, stat) {
		return []Scope{ScopeShip}
	}
	for _, group := range guessGroups {
		var hits []Scope
		for _, sc := range group {
			if s.Has(sc, stat) {
				hits = append(hits, sc)
			}
		}
		if len(hits) > 0 {
			return hits
		}
	}
	return nil
}

var guessGroups = func() [][]Scope {
	groups := [][]Scope{
		weaponPair(catalog.PrimaryWeapon),
		weaponPair(catalog.SecondaryWeapon),
	}
	for _, c := range catalog.Categories {
		if !c.IsWeapon() {
			groups = append(groups, []Scope{ScopeOf(c)})
		}
	}
	return groups
}()

// weaponPair returns the scopes of both slots of a weapon kind.
func weaponPair(c catalog.Category) []Scope {
	return []Scope{ScopeOf(c), ScopeOf(c.Sibling())}
}

func (s *Stats) String() string {
	var b strings.Builder
	for _, sc := range s.Scopes() {
		fmt.Fprintf(&b, "%s:", sc)
		for _, k := range s.sets[sc].Keys() {
			fmt.Fprintf(&b, " %s=%g", k, s.sets[sc][k])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
