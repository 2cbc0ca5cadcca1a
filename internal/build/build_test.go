package build

import (
	"errors"
	"testing"

	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
)

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.LoadFile("../catalog/testdata/catalog.json")
	if err != nil {
		t.Fatalf("loading fixture catalog: %v", err)
	}
	return cat
}

func newSting(t *testing.T, cat *catalog.Catalog) *Build {
	t.Helper()
	ship, err := cat.Ship("Imperial_S_Sting")
	if err != nil {
		t.Fatal(err)
	}
	return New(ship)
}

func TestSelectionMutualExclusion(t *testing.T) {
	sel := NewSelection(catalog.PrimaryWeapon, "Laser Cannon")
	if err := sel.Enable(3, 0); err != nil {
		t.Fatal(err)
	}
	if err := sel.Enable(3, 1); err != nil {
		t.Fatal(err)
	}
	if sel.Enabled(3, 0) {
		t.Error("left side of tier 4 still enabled after enabling the right side")
	}
	if !sel.Enabled(3, 1) {
		t.Error("right side of tier 4 not enabled")
	}
	if got := sel.Upgrades(); len(got) != 1 || got[0] != (UpgradeKey{Tier: 3, Side: 1}) {
		t.Errorf("Upgrades() = %v, want [{3 1}]", got)
	}

	sel.Disable(3)
	if len(sel.Upgrades()) != 0 {
		t.Errorf("Upgrades() after Disable = %v, want none", sel.Upgrades())
	}
}

func TestSelectionEnableValidatesClass(t *testing.T) {
	tests := []struct {
		category   catalog.Category
		tier, side int
		ok         bool
	}{
		{catalog.PrimaryWeapon, 0, 0, true},
		{catalog.PrimaryWeapon, 0, 1, false},
		{catalog.PrimaryWeapon, 4, 1, true},
		{catalog.PrimaryWeapon, 5, 0, false},
		{catalog.ShieldProjector, 2, 1, true},
		{catalog.ShieldProjector, 1, 1, false},
		{catalog.ShieldProjector, 3, 0, false},
		{catalog.Armor, 2, 0, true},
		{catalog.Armor, 2, 1, false},
		{catalog.Armor, -1, 0, false},
	}
	for _, tt := range tests {
		err := NewSelection(tt.category, "x").Enable(tt.tier, tt.side)
		if (err == nil) != tt.ok {
			t.Errorf("%s Enable(%d, %d) err = %v, want ok=%v", tt.category, tt.tier, tt.side, err, tt.ok)
		}
	}
}

func TestUpgradeToken(t *testing.T) {
	tests := []struct {
		category catalog.Category
		keys     []UpgradeKey
		want     string
	}{
		{catalog.PrimaryWeapon, nil, ""},
		{catalog.PrimaryWeapon, []UpgradeKey{{0, 0}, {1, 0}, {2, 0}, {3, 1}, {4, 0}}, "123RL"},
		{catalog.PrimaryWeapon, []UpgradeKey{{0, 0}, {3, 0}}, "1--L"},
		{catalog.ShieldProjector, []UpgradeKey{{2, 1}}, "--R"},
		{catalog.Armor, []UpgradeKey{{0, 0}, {1, 0}, {2, 0}}, "123"},
	}
	for _, tt := range tests {
		sel := NewSelection(tt.category, "x")
		for _, k := range tt.keys {
			if err := sel.Enable(k.Tier, k.Side); err != nil {
				t.Fatal(err)
			}
		}
		got := sel.upgradeToken()
		if got != tt.want {
			t.Errorf("%s %v token = %q, want %q", tt.category, tt.keys, got, tt.want)
		}

		parsed := NewSelection(tt.category, "x")
		if err := parsed.parseUpgradeToken(got); err != nil {
			t.Fatalf("parsing %q: %v", got, err)
		}
		if *parsed != *sel {
			t.Errorf("token %q did not parse back to the same selection", got)
		}
	}
}

func TestParseUpgradeTokenErrors(t *testing.T) {
	for _, token := range []string{"x", "12R", "1234RR", "123456"} {
		sel := NewSelection(catalog.PrimaryWeapon, "x")
		if err := sel.parseUpgradeToken(token); err == nil {
			t.Errorf("parseUpgradeToken(%q) accepted an invalid token", token)
		}
	}
}

func TestApplyElement(t *testing.T) {
	cat := loadCatalog(t)

	tests := []struct {
		element string
		message string
	}{
		{"primary/lc", "Primary Weapon now set to Laser Cannon."},
		{"pw/heavy/1", "Primary Weapon now set to Heavy Laser Cannon (1)."},
		{"primary/Laser Cannon/123RL", "Primary Weapon now set to Laser Cannon (123RL)."},
		{"sy/bo/---L", "Systems now set to Blaster Overcharge (---L)."},
		{"shields/projector/12R", "Shields now set to Shield Projector (12R)."},
		{"armor/hull", "Armor now set to Reinforced Armor."},
		{"crew/off/vex", "Offensive now set to Gunner Vex."},
		{"crew/Engineering/Doc Lokin", "Engineering now set to Doc Lokin."},
	}
	for _, tt := range tests {
		t.Run(tt.element, func(t *testing.T) {
			b := newSting(t, cat)
			msg, err := b.ApplyElement(cat, tt.element)
			if err != nil {
				t.Fatalf("ApplyElement(%q): %v", tt.element, err)
			}
			if msg != tt.message {
				t.Errorf("message = %q, want %q", msg, tt.message)
			}
		})
	}
}

func TestApplyElementErrors(t *testing.T) {
	cat := loadCatalog(t)

	tests := []struct {
		element string
		want    error
	}{
		{"primary", ErrInvalidElement},
		{"primary/lc/1/2", ErrInvalidElement},
		{"crew/off", ErrInvalidElement},
		{"primary/lc/x", ErrInvalidElement},
		{"armor/hull/1R", ErrInvalidElement},
		{"nonsense/lc", catalog.ErrLookupMiss},
		{"engine/ion", catalog.ErrLookupMiss},
		{"primary/railgun", catalog.ErrLookupMiss},
		{"crew/off/jorgan", catalog.ErrLookupMiss},
	}
	for _, tt := range tests {
		b := newSting(t, cat)
		if _, err := b.ApplyElement(cat, tt.element); !errors.Is(err, tt.want) {
			t.Errorf("ApplyElement(%q) err = %v, want %v", tt.element, err, tt.want)
		}
	}
}

func TestApplyElementReplacesSlot(t *testing.T) {
	cat := loadCatalog(t)
	b := newSting(t, cat)
	for _, e := range []string{"primary/lc/123", "primary/hlc"} {
		if _, err := b.ApplyElement(cat, e); err != nil {
			t.Fatal(err)
		}
	}
	sel := b.Component(catalog.PrimaryWeapon)
	if sel.Name != "Heavy Laser Cannon" || len(sel.Upgrades()) != 0 {
		t.Errorf("slot = %s, want a fresh Heavy Laser Cannon", sel)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	cat := loadCatalog(t)
	b := newSting(t, cat)
	for _, e := range []string{"crew/eng/doc", "sy/bo/---LL", "primary/lc/12-R", "armor/hull", "crew/off/vex", "sp/sp/1"} {
		if _, err := b.ApplyElement(cat, e); err != nil {
			t.Fatalf("%s: %v", e, err)
		}
	}

	want := "Imperial_S_Sting;primary/Laser Cannon/12-R;shields/Shield Projector/1;systems/Blaster Overcharge/---LL;armor/Reinforced Armor/;crew/Engineering/Doc Lokin;crew/Offensive/Gunner Vex;"
	got := b.Serialize()
	if got != want {
		t.Fatalf("Serialize() =\n%s\nwant\n%s", got, want)
	}

	parsed, err := Parse(cat, got)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if again := parsed.Serialize(); again != got {
		t.Errorf("round trip changed the build:\n%s\n%s", got, again)
	}
}

func TestParseErrors(t *testing.T) {
	cat := loadCatalog(t)
	if _, err := Parse(cat, "Imperial_S_Nothing;"); !errors.Is(err, catalog.ErrLookupMiss) {
		t.Errorf("unknown ship err = %v, want ErrLookupMiss", err)
	}
	if _, err := Parse(cat, "Imperial_S_Sting;primary/Rail Gun/;"); !errors.Is(err, catalog.ErrLookupMiss) {
		t.Errorf("unknown component err = %v, want ErrLookupMiss", err)
	}
}

func TestEquippedAndClone(t *testing.T) {
	cat := loadCatalog(t)
	b := newSting(t, cat)
	if _, err := b.ApplyElement(cat, "sy/bo/---L"); err != nil {
		t.Fatal(err)
	}
	if sel := b.Equipped("Blaster Overcharge"); sel == nil || sel.Category != catalog.Systems {
		t.Errorf("Equipped(Blaster Overcharge) = %v", sel)
	}
	if b.Equipped("Bypass") != nil {
		t.Error("Equipped(Bypass) found a component that is not fitted")
	}

	c := b.Clone()
	c.Component(catalog.Systems).Disable(3)
	c.SetCrew(catalog.Tactical, "Someone")
	if !b.Component(catalog.Systems).Enabled(3, 0) {
		t.Error("changing the clone changed the original selection")
	}
	if _, ok := b.Crew[catalog.Tactical]; ok {
		t.Error("changing the clone changed the original crew")
	}
}
