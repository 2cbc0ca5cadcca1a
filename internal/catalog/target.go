package catalog

import (
	"fmt"
	"strings"
)

// TargetKind says which stat scope an upgrade delta applies to.
type TargetKind uint8

const (
	// TargetNone applies to the ship scope when it defines the stat and
	// falls back to the owning scope otherwise.
	TargetNone TargetKind = iota
	// TargetSelf is the component the upgrade belongs to, or for active
	// abilities the ability's own effect mapping.
	TargetSelf
	// TargetShip is the ship-level scope.
	TargetShip
	// TargetCategory is a single named component scope.
	TargetCategory
	// TargetPrimaryWeapons broadcasts to both primary weapon slots.
	TargetPrimaryWeapons
	// TargetSecondaryWeapons broadcasts to both secondary weapon slots.
	TargetSecondaryWeapons
)

// Target is the resolved target tag of an upgrade.
type Target struct {
	Kind     TargetKind
	Category Category
}

// ParseTarget decodes a target tag from the data files. The raw data uses a
// stray "0x00" marker on some entries which is ignored.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "0x00", ""))
	switch strings.ToLower(raw) {
	case "", "none":
		return Target{Kind: TargetNone}, nil
	case "self":
		return Target{Kind: TargetSelf}, nil
	case "ship":
		return Target{Kind: TargetShip}, nil
	case "primaryweapons":
		return Target{Kind: TargetPrimaryWeapons}, nil
	case "secondaryweapons":
		return Target{Kind: TargetSecondaryWeapons}, nil
	}
	var c Category
	if err := c.UnmarshalText([]byte(raw)); err != nil {
		return Target{}, fmt.Errorf("unknown upgrade target %q", raw)
	}
	return Target{Kind: TargetCategory, Category: c}, nil
}

func (t Target) String() string {
	switch t.Kind {
	case TargetSelf:
		return "self"
	case TargetShip:
		return "Ship"
	case TargetCategory:
		return t.Category.String()
	case TargetPrimaryWeapons:
		return "PrimaryWeapons"
	case TargetSecondaryWeapons:
		return "SecondaryWeapons"
	}
	return ""
}

func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
