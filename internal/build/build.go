// Package build models a player's ship build: a ship hull with a component
// selected per slot and a crew member per role, plus the flat string
// encoding builds are stored as.
package build

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
)

// ErrInvalidElement is returned for select elements that do not follow the
// element grammar.
var ErrInvalidElement = errors.New("invalid build element")

// Build is a ship plus its component and crew selections.
type Build struct {
	Ship       string
	Faction    string
	Components map[catalog.Category]*ComponentSelection
	Crew       map[catalog.Role]string
}

// New returns a build of ship with every slot empty.
func New(ship *catalog.Ship) *Build {
	return &Build{
		Ship:       ship.ID,
		Faction:    ship.Faction,
		Components: make(map[catalog.Category]*ComponentSelection),
		Crew:       make(map[catalog.Role]string),
	}
}

// Component returns the selection in category, or nil when the slot is
// empty.
func (b *Build) Component(category catalog.Category) *ComponentSelection {
	return b.Components[category]
}

// Set places sel in its category slot.
func (b *Build) Set(sel *ComponentSelection) {
	b.Components[sel.Category] = sel
}

// Clear empties a component slot.
func (b *Build) Clear(category catalog.Category) {
	delete(b.Components, category)
}

// SetCrew seats a crew member.
func (b *Build) SetCrew(role catalog.Role, name string) {
	b.Crew[role] = name
}

// Equipped returns the selection whose component has the given name.
func (b *Build) Equipped(name string) *ComponentSelection {
	for _, c := range catalog.Categories {
		if sel := b.Components[c]; sel != nil && sel.Name == name {
			return sel
		}
	}
	return nil
}

// Clone returns a deep copy.
func (b *Build) Clone() *Build {
	c := &Build{
		Ship:       b.Ship,
		Faction:    b.Faction,
		Components: make(map[catalog.Category]*ComponentSelection, len(b.Components)),
		Crew:       make(map[catalog.Role]string, len(b.Crew)),
	}
	for k, v := range b.Components {
		c.Components[k] = v.Clone()
	}
	for k, v := range b.Crew {
		c.Crew[k] = v
	}
	return c
}

// Serialize encodes the build as
//
//	shipId;key/Component Name/upgrades;...;crew/Role/Member Name;
//
// Components are written in canonical category order and crew in role
// order, so equal builds always serialize identically.
func (b *Build) Serialize() string {
	var sb strings.Builder
	sb.WriteString(b.Ship)
	sb.WriteByte(';')
	for _, c := range catalog.Categories {
		sel := b.Components[c]
		if sel == nil {
			continue
		}
		fmt.Fprintf(&sb, "%s/%s/%s;", c.Key(), sel.Name, sel.upgradeToken())
	}
	for _, r := range catalog.Roles {
		name, ok := b.Crew[r]
		if !ok || name == "" {
			continue
		}
		fmt.Fprintf(&sb, "crew/%s/%s;", r, name)
	}
	return sb.String()
}

// Parse rebuilds a build from its serialized form.
func Parse(cat *catalog.Catalog, data string) (*Build, error) {
	elements := strings.Split(data, ";")
	ship, err := cat.Ship(elements[0])
	if err != nil {
		return nil, err
	}
	b := New(ship)
	for _, element := range elements[1:] {
		if strings.TrimSpace(element) == "" {
			continue
		}
		if _, err := b.ApplyElement(cat, element); err != nil {
			return nil, fmt.Errorf("parsing build %q: %w", elements[0], err)
		}
	}
	return b, nil
}

// ApplyElement updates one slot from an element string and returns a
// confirmation message. Elements take one of two forms:
//
//	category/component[/upgrades]
//	crew/role/member
//
// Category, component, role and member may all be abbreviated.
func (b *Build) ApplyElement(cat *catalog.Catalog, element string) (string, error) {
	element = strings.Trim(strings.TrimSpace(element), ";")
	parts := strings.Split(element, "/")
	if strings.EqualFold(parts[0], "crew") {
		if len(parts) != 3 {
			return "", fmt.Errorf("%w: crew element %q", ErrInvalidElement, element)
		}
		member, err := cat.ResolveCrew(b.Faction, parts[1], parts[2])
		if err != nil {
			return "", err
		}
		b.SetCrew(member.Role, member.Name)
		return fmt.Sprintf("%s now set to %s.", member.Role, member.Name), nil
	}

	var upgrades string
	switch len(parts) {
	case 2:
	case 3:
		upgrades = parts[2]
	default:
		return "", fmt.Errorf("%w: component element %q", ErrInvalidElement, element)
	}
	category, err := catalog.ParseCategory(parts[0])
	if err != nil {
		return "", err
	}
	ship, err := cat.Ship(b.Ship)
	if err != nil {
		return "", err
	}
	if !ship.HasCategory(category) {
		return "", fmt.Errorf("%w: category %s not available for ship %q", catalog.ErrLookupMiss, category, ship.Name)
	}
	name, err := resolveComponent(cat, ship, category, parts[1])
	if err != nil {
		return "", err
	}
	sel := NewSelection(category, name)
	if err := sel.parseUpgradeToken(upgrades); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidElement, err)
	}
	b.Set(sel)
	return fmt.Sprintf("%s now set to %s.", category.Label(), sel), nil
}

// resolveComponent prefers an exact name on the ship, then the alias
// tables.
func resolveComponent(cat *catalog.Catalog, ship *catalog.Ship, category catalog.Category, fragment string) (string, error) {
	if comp, err := ship.Component(category, fragment); err == nil {
		return comp.Name, nil
	}
	name, err := cat.ResolveComponentName(category, fragment)
	if err != nil {
		return "", err
	}
	if _, err := ship.Component(category, name); err != nil {
		return "", err
	}
	return name, nil
}
