package shipstats

import (
	"testing"

	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
)

const fixturePath = "../catalog/testdata/catalog.json"

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.LoadFile(fixturePath)
	if err != nil {
		t.Fatalf("loading fixture catalog: %v", err)
	}
	return cat
}

func mustBuild(t *testing.T, cat *catalog.Catalog, shipID string, elements ...string) *build.Build {
	t.Helper()
	ship, err := cat.Ship(shipID)
	if err != nil {
		t.Fatalf("ship %s: %v", shipID, err)
	}
	b := build.New(ship)
	for _, e := range elements {
		if _, err := b.ApplyElement(cat, e); err != nil {
			t.Fatalf("applying %q: %v", e, err)
		}
	}
	return b
}

func mustAggregate(t *testing.T, cat *catalog.Catalog, b *build.Build) *Stats {
	t.Helper()
	st, err := Aggregate(cat, b)
	if err != nil {
		t.Fatalf("Aggregate(%s): %v", b.Serialize(), err)
	}
	return st
}

// weaponSet is a flat-curve weapon dealing 50 per shot at 2 shots per second.
func weaponSet() catalog.Stats {
	return catalog.Stats{
		StatRangePointBlank:  1,
		StatRangeMid:         5,
		StatRangeLong:        10,
		StatDamagePointBlank: 1,
		StatDamageMid:        1,
		StatDamageLong:       1,
		StatAccPointBlank:    0,
		StatAccMid:           -0.1,
		StatAccLong:          -0.2,
		StatBaseDamage:       50,
		StatBaseAccuracy:     0.9,
		StatHullMultiplier:   1,
		StatShieldMultiplier: 1,
		StatShieldPiercing:   0,
		StatRateOfFire:       2,
		StatCritChance:       0,
		StatCritMultiplier:   0.5,
	}
}

func shipSet(hull, shields float64) catalog.Stats {
	return catalog.Stats{
		StatMaxHealth:          hull,
		StatShieldCapacity:     shields,
		StatShieldBleedThrough: 0,
		StatEvasion:            0.1,
	}
}

// attacker returns stats holding only a primary weapon built from
// weaponSet with the given overrides.
func attacker(overrides catalog.Stats) *Stats {
	w := weaponSet()
	for k, v := range overrides {
		w[k] = v
	}
	st := NewStats()
	st.seed(ScopeShip, shipSet(1000, 500))
	st.seed(ScopeOf(catalog.PrimaryWeapon), w)
	return st
}

func defender(hull, shields float64) *Stats {
	st := NewStats()
	st.seed(ScopeShip, shipSet(hull, shields))
	return st
}
