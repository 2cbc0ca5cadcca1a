package catalog

import (
	"fmt"
	"strings"
)

// Category identifies one of the component slots of a ship.
type Category uint8

const (
	PrimaryWeapon Category = iota + 1
	PrimaryWeapon2
	SecondaryWeapon
	SecondaryWeapon2
	Engine
	ShieldProjector
	Systems
	Armor
	Reactor
	Magazine
	Sensor
	Thruster
	Capacitor
)

// NumCategories is the number of component slots on a ship.
const NumCategories = 13

// Categories lists every category in canonical order. Stat aggregation walks
// components in this order.
var Categories = []Category{
	PrimaryWeapon,
	PrimaryWeapon2,
	SecondaryWeapon,
	SecondaryWeapon2,
	Engine,
	ShieldProjector,
	Systems,
	Armor,
	Reactor,
	Magazine,
	Sensor,
	Thruster,
	Capacitor,
}

type categoryInfo struct {
	name      string
	key       string
	shorthand string
	label     string
	family    string
	class     Class
}

var categoryTable = [NumCategories + 1]categoryInfo{
	{},
	{"PrimaryWeapon", "primary", "pw", "Primary Weapon", "primary", Major},
	{"PrimaryWeapon2", "primary2", "p2", "Primary Weapon II", "primary", Major},
	{"SecondaryWeapon", "secondary", "sw", "Secondary Weapon", "secondary", Major},
	{"SecondaryWeapon2", "secondary2", "s2", "Secondary Weapon II", "secondary", Major},
	{"Engine", "engine", "en", "Engine", "engine", Middle},
	{"ShieldProjector", "shields", "sp", "Shields", "shields", Middle},
	{"Systems", "systems", "sy", "Systems", "systems", Major},
	{"Armor", "armor", "a", "Armor", "armor", Minor},
	{"Reactor", "reactor", "r", "Reactor", "reactor", Minor},
	{"Magazine", "magazine", "m", "Magazine", "magazine", Minor},
	{"Sensor", "sensors", "s", "Sensors", "sensors", Minor},
	{"Thruster", "thrusters", "t", "Thrusters", "thrusters", Minor},
	{"Capacitor", "capacitor", "c", "Capacitor", "capacitor", Minor},
}

func (c Category) info() categoryInfo {
	if c == 0 || int(c) > NumCategories {
		return categoryInfo{}
	}
	return categoryTable[c]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool { return c != 0 && int(c) <= NumCategories }

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return c.info().name
}

// Key is the lowercase slot key used in serialized builds ("primary", "shields").
func (c Category) Key() string { return c.info().key }

// Shorthand is the short code accepted by the select command ("pw", "sp").
func (c Category) Shorthand() string { return c.info().shorthand }

// Label is the human readable slot name.
func (c Category) Label() string { return c.info().label }

// Family groups the two slots of the same weapon kind. Component aliases are
// keyed by family.
func (c Category) Family() string { return c.info().family }

// Class returns the upgrade tree class of the category.
func (c Category) Class() Class { return c.info().class }

// Sibling returns the other slot of a weapon pair, or 0 for single slots.
func (c Category) Sibling() Category {
	switch c {
	case PrimaryWeapon:
		return PrimaryWeapon2
	case PrimaryWeapon2:
		return PrimaryWeapon
	case SecondaryWeapon:
		return SecondaryWeapon2
	case SecondaryWeapon2:
		return SecondaryWeapon
	}
	return 0
}

// IsWeapon reports whether the category is a primary or secondary weapon slot.
func (c Category) IsWeapon() bool {
	return c >= PrimaryWeapon && c <= SecondaryWeapon2
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	for _, cat := range Categories {
		if cat.String() == string(text) {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("%w: category %q", ErrLookupMiss, string(text))
}

// ParseCategory resolves a user supplied category reference. Accepted forms,
// tried in order: shorthand ("pw"), slot key ("primary2"), canonical name
// (case-insensitive) and finally a case-insensitive substring of the
// canonical name, first match in canonical order.
func ParseCategory(ref string) (Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("%w: empty category", ErrLookupMiss)
	}
	lower := strings.ToLower(ref)
	for _, c := range Categories {
		if c.Shorthand() == lower {
			return c, nil
		}
	}
	for _, c := range Categories {
		if c.Key() == lower || strings.ToLower(c.String()) == lower {
			return c, nil
		}
	}
	for _, c := range Categories {
		if strings.Contains(strings.ToLower(c.String()), lower) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: category %q", ErrLookupMiss, ref)
}

// Class describes the shape of a component's upgrade tree.
type Class uint8

const (
	Major Class = iota + 1
	Middle
	Minor
)

func (c Class) String() string {
	switch c {
	case Major:
		return "major"
	case Middle:
		return "middle"
	case Minor:
		return "minor"
	}
	return "unknown"
}

// Tiers returns the number of upgrade tiers for the class.
func (c Class) Tiers() int {
	switch c {
	case Major:
		return 5
	case Middle, Minor:
		return 3
	}
	return 0
}

// Sides returns how many mutually exclusive alternatives a tier offers.
func (c Class) Sides(tier int) int {
	if tier < 0 || tier >= c.Tiers() {
		return 0
	}
	switch c {
	case Major:
		if tier >= 3 {
			return 2
		}
	case Middle:
		if tier == 2 {
			return 2
		}
	}
	return 1
}

// Role is a crew seat.
type Role uint8

const (
	Engineering Role = iota + 1
	Offensive
	Tactical
	Defensive
	CoPilot
)

// Roles lists crew seats in the order crew passives are applied.
var Roles = []Role{Engineering, Offensive, Tactical, Defensive, CoPilot}

var roleNames = [...]string{"", "Engineering", "Offensive", "Tactical", "Defensive", "CoPilot"}

func (r Role) Valid() bool { return r >= Engineering && r <= CoPilot }

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
	return roleNames[r]
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// ParseRole matches a role by exact name or by case-insensitive fragment.
func ParseRole(ref string) (Role, error) {
	lower := strings.ToLower(strings.TrimSpace(ref))
	if lower != "" {
		for _, r := range Roles {
			if strings.ToLower(r.String()) == lower {
				return r, nil
			}
		}
		for _, r := range Roles {
			if strings.Contains(strings.ToLower(r.String()), lower) {
				return r, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: crew role %q", ErrLookupMiss, ref)
}
