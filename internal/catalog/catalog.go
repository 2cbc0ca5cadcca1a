// Package catalog holds the static ship reference data: base ship stats,
// components with their talent trees, crew passives and active abilities.
//
// A Catalog is immutable once loaded. Reloading produces a new snapshot that
// callers swap in as a whole, so a *Catalog may be shared freely across
// goroutines.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrLookupMiss is returned when a ship, component, crew member or other
// identifier is not present in the catalog.
var ErrLookupMiss = errors.New("catalog lookup miss")

// Stats maps a statistic name to its value. Names may carry the "[Pc]"
// multiplicative marker when used as deltas.
type Stats map[string]float64

// Clone returns a copy of s.
func (s Stats) Clone() Stats {
	if s == nil {
		return nil
	}
	out := make(Stats, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the stat names in sorted order.
func (s Stats) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ship is the reference data of one ship hull.
type Ship struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Faction    string                   `json:"faction"`
	Category   string                   `json:"category"`
	Tier       string                   `json:"tier"`
	Stats      Stats                    `json:"stats"`
	Components map[Category][]Component `json:"components"`
}

// Component is one selectable component for a ship slot.
type Component struct {
	Name string `json:"name"`
	// Stats seeds the component's own scope.
	Stats Stats `json:"stats"`
	// ShipStats are deltas folded into the ship scope after upgrades.
	ShipStats  Stats       `json:"shipStats,omitempty"`
	TalentTree [][]Upgrade `json:"talentTree"`
}

// Upgrade returns the talent tree entry at tier and side.
func (c *Component) Upgrade(tier, side int) (Upgrade, bool) {
	if tier < 0 || tier >= len(c.TalentTree) {
		return Upgrade{}, false
	}
	options := c.TalentTree[tier]
	if side < 0 || side >= len(options) {
		return Upgrade{}, false
	}
	return options[side], true
}

// Upgrade is one talent tree node.
type Upgrade struct {
	Target Target `json:"target"`
	Stats  Stats  `json:"stats"`
}

// CrewMember is a companion seated in a crew role.
type CrewMember struct {
	Name             string `json:"name"`
	Faction          string `json:"faction"`
	Role             Role   `json:"role"`
	Passive          Stats  `json:"passive"`
	SecondaryPassive Stats  `json:"secondaryPassive"`
}

// Active is a player triggered ability.
type Active struct {
	Name    string `json:"name"`
	Effects Stats  `json:"effects,omitempty"`
	// Unsupported marks abilities without a numeric effect the calculator
	// can model.
	Unsupported bool            `json:"unsupported,omitempty"`
	TalentTree  []ActiveUpgrade `json:"talentTree,omitempty"`
}

// ActiveUpgrade binds a talent of the component the active originates from
// to the stat deltas it adds while the active runs.
type ActiveUpgrade struct {
	Tier    int `json:"tier"`
	Side    int `json:"side"`
	Upgrade
}

// HasTalentTree reports whether the active belongs to an upgradeable
// component.
func (a *Active) HasTalentTree() bool { return len(a.TalentTree) > 0 }

// Upgrade returns the active effect bound to the component talent at tier
// and side.
func (a *Active) Upgrade(tier, side int) (Upgrade, bool) {
	for _, u := range a.TalentTree {
		if u.Tier == tier && u.Side == side {
			return u.Upgrade, true
		}
	}
	return Upgrade{}, false
}

// Initials returns the lowercase first letters of each word of the name.
func (a *Active) Initials() string { return initials(a.Name) }

// Catalog is an immutable snapshot of the reference data.
type Catalog struct {
	Ships   []*Ship                      `json:"ships"`
	Crew    []CrewMember                 `json:"crew"`
	Actives []Active                     `json:"actives"`
	Aliases map[string]map[string]string `json:"aliases"`

	// Version is the blake3 fingerprint of the source the snapshot was
	// decoded from.
	Version string `json:"-"`

	shipsByID map[string]*Ship
}

// index builds lookup tables. Called once by the loaders.
func (c *Catalog) index() {
	c.shipsByID = make(map[string]*Ship, len(c.Ships))
	for _, s := range c.Ships {
		c.shipsByID[s.ID] = s
	}
}

// Ship returns the ship with the given fully-qualified id.
func (c *Catalog) Ship(id string) (*Ship, error) {
	if c.shipsByID != nil {
		if s, ok := c.shipsByID[id]; ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: ship %q", ErrLookupMiss, id)
	}
	for _, s := range c.Ships {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: ship %q", ErrLookupMiss, id)
}

// ResolveShip accepts a ship id, a display name (case-insensitive) or a base
// code such as "i2s" (Imperial tier 2 scout).
func (c *Catalog) ResolveShip(ref string) (*Ship, error) {
	ref = strings.TrimSpace(ref)
	if s, err := c.Ship(ref); err == nil {
		return s, nil
	}
	for _, s := range c.Ships {
		if strings.EqualFold(s.Name, ref) {
			return s, nil
		}
	}
	if faction, tier, ok := parseBaseCode(ref); ok {
		for _, s := range c.Ships {
			if s.Faction == faction && strings.EqualFold(s.Tier, tier) {
				return s, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: ship %q", ErrLookupMiss, ref)
}

// parseBaseCode splits "r3b" into ("Republic", "T3B").
func parseBaseCode(ref string) (string, string, bool) {
	ref = strings.ToLower(ref)
	if len(ref) != 3 || ref[1] < '1' || ref[1] > '9' {
		return "", "", false
	}
	var faction string
	switch ref[0] {
	case 'i':
		faction = "Imperial"
	case 'r':
		faction = "Republic"
	default:
		return "", "", false
	}
	switch ref[2] {
	case 'f', 's', 'g', 'b':
	default:
		return "", "", false
	}
	return faction, "T" + strings.ToUpper(ref[1:]), true
}

// Component returns the named component of a ship's category.
func (c *Catalog) Component(shipID string, category Category, name string) (*Component, error) {
	s, err := c.Ship(shipID)
	if err != nil {
		return nil, err
	}
	return s.Component(category, name)
}

// Component returns the named component in category.
func (s *Ship) Component(category Category, name string) (*Component, error) {
	list, ok := s.Components[category]
	if !ok {
		return nil, fmt.Errorf("%w: category %s not available for ship %q", ErrLookupMiss, category, s.Name)
	}
	for i := range list {
		if list[i].Name == name {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: component %q for ship %q", ErrLookupMiss, name, s.Name)
}

// HasCategory reports whether the ship has the slot at all.
func (s *Ship) HasCategory(category Category) bool {
	_, ok := s.Components[category]
	return ok
}

// ResolveComponentName turns a user supplied fragment into a full component
// name using the alias table of the category's family. Matching order: exact
// alias, exact full name, alias prefix, full-name prefix, then initials of
// the full name.
func (c *Catalog) ResolveComponentName(category Category, fragment string) (string, error) {
	aliases := c.Aliases[category.Family()]
	frag := strings.ToLower(strings.TrimSpace(fragment))
	if frag == "" {
		return "", fmt.Errorf("%w: empty component name", ErrLookupMiss)
	}
	if full, ok := aliases[frag]; ok {
		return full, nil
	}
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.ToLower(aliases[k]) == frag {
			return aliases[k], nil
		}
	}
	for _, k := range keys {
		full := aliases[k]
		if strings.HasPrefix(k, frag) || strings.HasPrefix(strings.ToLower(full), frag) {
			return full, nil
		}
	}
	for _, k := range keys {
		full := aliases[k]
		if initials(full) == frag {
			return full, nil
		}
	}
	return "", fmt.Errorf("%w: component shorthand %q", ErrLookupMiss, fragment)
}

func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		b.WriteString(strings.ToLower(word[:1]))
	}
	return b.String()
}

// CrewMember returns an exact crew member.
func (c *Catalog) CrewMember(faction string, role Role, name string) (*CrewMember, error) {
	for i := range c.Crew {
		m := &c.Crew[i]
		if m.Faction == faction && m.Role == role && m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: crew member %q (%s, %s)", ErrLookupMiss, name, faction, role)
}

// ResolveCrew matches a role fragment and a member name fragment
// (case-insensitive substring) within a faction.
func (c *Catalog) ResolveCrew(faction, roleFragment, nameFragment string) (*CrewMember, error) {
	role, err := ParseRole(roleFragment)
	if err != nil {
		return nil, err
	}
	frag := strings.ToLower(strings.TrimSpace(nameFragment))
	if frag == "" {
		return nil, fmt.Errorf("%w: empty crew member name", ErrLookupMiss)
	}
	for i := range c.Crew {
		m := &c.Crew[i]
		if m.Faction == faction && m.Role == role && strings.EqualFold(m.Name, frag) {
			return m, nil
		}
	}
	for i := range c.Crew {
		m := &c.Crew[i]
		if m.Faction == faction && m.Role == role && strings.Contains(strings.ToLower(m.Name), frag) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: crew member %q in %s", ErrLookupMiss, nameFragment, role)
}

// FindCrew looks a member up by name across all factions and roles.
func (c *Catalog) FindCrew(name string) (*CrewMember, error) {
	frag := strings.ToLower(strings.TrimSpace(name))
	if frag != "" {
		for i := range c.Crew {
			if strings.Contains(strings.ToLower(c.Crew[i].Name), frag) {
				return &c.Crew[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: crew member %q", ErrLookupMiss, name)
}

// FindComponent looks a component up across all ships by category and name
// fragment, for reference display.
func (c *Catalog) FindComponent(category Category, fragment string) (*Component, error) {
	name, err := c.ResolveComponentName(category, fragment)
	if err != nil {
		return nil, err
	}
	for _, s := range c.Ships {
		if comp, err := s.Component(category, name); err == nil {
			return comp, nil
		}
	}
	return nil, fmt.Errorf("%w: component %q", ErrLookupMiss, name)
}

// Validate checks that every talent tree matches the tier structure of its
// category class. Aggregation relies on this: an enabled upgrade that passed
// class validation always has a talent tree node.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Ships))
	for _, s := range c.Ships {
		if s.ID == "" {
			return errors.New("ship without id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate ship id %q", s.ID)
		}
		seen[s.ID] = true
		for category, list := range s.Components {
			class := category.Class()
			for _, comp := range list {
				if len(comp.TalentTree) != class.Tiers() {
					return fmt.Errorf("ship %q component %q: talent tree has %d tiers, %s components have %d",
						s.ID, comp.Name, len(comp.TalentTree), class, class.Tiers())
				}
				for tier, options := range comp.TalentTree {
					if len(options) != class.Sides(tier) {
						return fmt.Errorf("ship %q component %q: tier %d has %d options, want %d",
							s.ID, comp.Name, tier, len(options), class.Sides(tier))
					}
				}
			}
		}
	}
	for _, a := range c.Actives {
		if a.Name == "" {
			return errors.New("active without name")
		}
		if a.Unsupported && (len(a.Effects) > 0 || a.HasTalentTree()) {
			return fmt.Errorf("active %q is marked unsupported but carries effects", a.Name)
		}
		if a.HasTalentTree() {
			if err := c.validateActiveTree(&a); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateActiveTree checks that an active's talent tree has exactly one
// entry per talent of the component the active comes from.
func (c *Catalog) validateActiveTree(a *Active) error {
	classes := make(map[Class]bool)
	for _, s := range c.Ships {
		for category, list := range s.Components {
			for _, comp := range list {
				if comp.Name == a.Name {
					classes[category.Class()] = true
				}
			}
		}
	}
	if len(classes) == 0 {
		return fmt.Errorf("active %q has a talent tree but no component carries it", a.Name)
	}
	for class := range classes {
		type key struct{ tier, side int }
		seen := make(map[key]bool, len(a.TalentTree))
		for _, u := range a.TalentTree {
			if u.Tier < 0 || u.Tier >= class.Tiers() || u.Side < 0 || u.Side >= class.Sides(u.Tier) {
				return fmt.Errorf("active %q: talent tier %d side %d does not exist on %s components", a.Name, u.Tier, u.Side, class)
			}
			k := key{u.Tier, u.Side}
			if seen[k] {
				return fmt.Errorf("active %q: duplicate talent tier %d side %d", a.Name, u.Tier, u.Side)
			}
			seen[k] = true
		}
		for tier := 0; tier < class.Tiers(); tier++ {
			for side := 0; side < class.Sides(tier); side++ {
				if !seen[key{tier, side}] {
					return fmt.Errorf("active %q: talent tree misses tier %d side %d", a.Name, tier, side)
				}
			}
		}
	}
	return nil
}
