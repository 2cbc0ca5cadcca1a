package build

import (
	"fmt"

	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
)

const maxTiers = 5

// UpgradeKey addresses one talent tree node.
type UpgradeKey struct {
	Tier int `json:"tier"`
	Side int `json:"side"`
}

// ComponentSelection is a component chosen for a slot together with its
// enabled upgrades.
//
// Each tier stores at most one enabled side, so enabling one side of a
// two-sided tier disables the other.
type ComponentSelection struct {
	Category catalog.Category
	Name     string

	// tiers[i] is 0 when tier i is off, otherwise side+1.
	tiers [maxTiers]uint8
}

// NewSelection returns a selection with no upgrades enabled.
func NewSelection(category catalog.Category, name string) *ComponentSelection {
	return &ComponentSelection{Category: category, Name: name}
}

// Enable turns on the upgrade at tier and side, replacing the other side of
// the same tier if it was enabled.
func (s *ComponentSelection) Enable(tier, side int) error {
	class := s.Category.Class()
	if tier < 0 || tier >= class.Tiers() {
		return fmt.Errorf("tier %d out of range for %s component", tier+1, class)
	}
	if side < 0 || side >= class.Sides(tier) {
		return fmt.Errorf("tier %d of a %s component has no side %d", tier+1, class, side)
	}
	s.tiers[tier] = uint8(side + 1)
	return nil
}

// Disable turns off whichever side of tier is enabled.
func (s *ComponentSelection) Disable(tier int) {
	if tier >= 0 && tier < maxTiers {
		s.tiers[tier] = 0
	}
}

// Enabled reports whether the upgrade at tier and side is on.
func (s *ComponentSelection) Enabled(tier, side int) bool {
	if tier < 0 || tier >= maxTiers {
		return false
	}
	return s.tiers[tier] == uint8(side+1)
}

// Upgrades returns the enabled upgrades in tier order.
func (s *ComponentSelection) Upgrades() []UpgradeKey {
	var keys []UpgradeKey
	for tier, v := range s.tiers {
		if v != 0 {
			keys = append(keys, UpgradeKey{Tier: tier, Side: int(v) - 1})
		}
	}
	return keys
}

// Clone returns an independent copy.
func (s *ComponentSelection) Clone() *ComponentSelection {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (s *ComponentSelection) String() string {
	if up := s.upgradeToken(); up != "" {
		return fmt.Sprintf("%s (%s)", s.Name, up)
	}
	return s.Name
}

// upgradeToken encodes the enabled upgrades one character per tier: the
// tier number for single-sided tiers, L or R for two-sided tiers and "-"
// for a skipped tier. Trailing skips are dropped.
func (s *ComponentSelection) upgradeToken() string {
	class := s.Category.Class()
	buf := make([]byte, 0, maxTiers)
	last := 0
	for tier := 0; tier < class.Tiers(); tier++ {
		v := s.tiers[tier]
		switch {
		case v == 0:
			buf = append(buf, '-')
			continue
		case class.Sides(tier) == 2 && v == 1:
			buf = append(buf, 'L')
		case class.Sides(tier) == 2:
			buf = append(buf, 'R')
		default:
			buf = append(buf, byte('1'+tier))
		}
		last = len(buf)
	}
	return string(buf[:last])
}

// parseUpgradeToken applies an upgrade token to s. The position of each
// character is its tier.
func (s *ComponentSelection) parseUpgradeToken(token string) error {
	for tier, ch := range token {
		var err error
		switch {
		case ch == '-':
			continue
		case ch >= '1' && ch <= '9':
			err = s.Enable(tier, 0)
		case ch == 'L' || ch == 'l':
			err = s.Enable(tier, 0)
		case ch == 'R' || ch == 'r':
			err = s.Enable(tier, 1)
		default:
			err = fmt.Errorf("invalid upgrade character %q", ch)
		}
		if err != nil {
			return fmt.Errorf("upgrade string %q: %w", token, err)
		}
	}
	return nil
}
