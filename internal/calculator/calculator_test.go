package calculator

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/nzvengeance/gsf-buildbot/internal/shipstats"
)

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	cat, err := catalog.LoadFile("../catalog/testdata/catalog.json")
	if err != nil {
		t.Fatal(err)
	}
	calc, err := New(cat, 16)
	if err != nil {
		t.Fatal(err)
	}
	return calc
}

func mustBuild(t *testing.T, cat *catalog.Catalog, shipID string, elements ...string) *build.Build {
	t.Helper()
	ship, err := cat.Ship(shipID)
	if err != nil {
		t.Fatal(err)
	}
	b := build.New(ship)
	for _, e := range elements {
		if _, err := b.ApplyElement(cat, e); err != nil {
			t.Fatalf("%s: %v", e, err)
		}
	}
	return b
}

func TestParseBuildRef(t *testing.T) {
	tests := []struct {
		ref     string
		id      int64
		actives []string
	}{
		{"12", 12, nil},
		{" 7 ", 7, nil},
		{"12()", 12, nil},
		{"12(bo)", 12, []string{"bo"}},
		{"12(bo,wingman)", 12, []string{"bo", "wingman"}},
		{"3(bo,,cf, )", 3, []string{"bo", "cf"}},
	}
	for _, tt := range tests {
		got, err := ParseBuildRef(tt.ref)
		if err != nil {
			t.Errorf("ParseBuildRef(%q): %v", tt.ref, err)
			continue
		}
		if got.ID != tt.id || len(got.Actives) != len(tt.actives) {
			t.Errorf("ParseBuildRef(%q) = %+v, want id %d actives %v", tt.ref, got, tt.id, tt.actives)
			continue
		}
		for i := range tt.actives {
			if got.Actives[i] != tt.actives[i] {
				t.Errorf("ParseBuildRef(%q) active %d = %q, want %q", tt.ref, i, got.Actives[i], tt.actives[i])
			}
		}
	}

	for _, bad := range []string{"", "abc", "-3", "12(bo", "12(bo))", "(bo)"} {
		if _, err := ParseBuildRef(bad); !errors.Is(err, ErrInvalidBuildRef) {
			t.Errorf("ParseBuildRef(%q) err = %v, want ErrInvalidBuildRef", bad, err)
		}
	}
}

func TestStatsAreCachedAsCopies(t *testing.T) {
	calc := newCalculator(t)
	b := mustBuild(t, calc.Catalog(), "Imperial_S_Sting", "primary/lc/1")

	first, err := calc.Stats(b)
	if err != nil {
		t.Fatal(err)
	}
	if calc.cache.Len() != 1 {
		t.Fatalf("cache holds %d entries, want 1", calc.cache.Len())
	}
	if _, _, err := shipstats.ResolveActives(calc.Catalog(), first, []string{"bypass"}, b); err != nil {
		t.Fatal(err)
	}
	second, err := calc.Stats(b)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Error("cached stats differ from the first aggregation")
	}
	if first == second {
		t.Error("cache handed out the same pointer twice")
	}
}

func TestTimeToKill(t *testing.T) {
	calc := newCalculator(t)
	cat := calc.Catalog()
	attacker := mustBuild(t, cat, "Imperial_S_Sting", "primary/lc", "sy/bo")
	victim := mustBuild(t, cat, "Imperial_S_Sting")

	res, err := calc.TimeToKill(context.Background(), Engagement{
		Source:   Side{Build: attacker},
		Target:   Side{Build: victim},
		Distance: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Shots != 30 || math.Abs(res.Time-15) > 1e-9 {
		t.Errorf("got %d shots in %gs, want 30 in 15s", res.Shots, res.Time)
	}
	if res.Weapon != shipstats.ScopeOf(catalog.PrimaryWeapon) {
		t.Errorf("weapon = %s, want PrimaryWeapon", res.Weapon)
	}

	boosted, err := calc.TimeToKill(context.Background(), Engagement{
		Source:   Side{Build: attacker, Actives: []string{"bo"}},
		Target:   Side{Build: victim},
		Distance: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(boosted.SourceActives) != 1 || boosted.SourceActives[0] != "Blaster Overcharge" {
		t.Errorf("source actives = %v", boosted.SourceActives)
	}
	if len(boosted.TargetActives) != 0 {
		t.Errorf("target actives = %v, want none", boosted.TargetActives)
	}
	// Rate of fire 2.5 instead of 2: same shots, less time.
	if boosted.Shots != 30 || math.Abs(boosted.Time-12) > 1e-9 {
		t.Errorf("boosted: %d shots in %gs, want 30 in 12s", boosted.Shots, boosted.Time)
	}
}

func TestTimeToKillErrors(t *testing.T) {
	calc := newCalculator(t)
	cat := calc.Catalog()
	armed := mustBuild(t, cat, "Imperial_S_Sting", "primary/lc")
	victim := mustBuild(t, cat, "Republic_S_Flashfire")

	tests := []struct {
		name string
		e    Engagement
		want error
	}{
		{"out of range", Engagement{Source: Side{Build: armed}, Target: Side{Build: victim}, Distance: 30}, shipstats.ErrInfiniteShots},
		{"unknown active", Engagement{Source: Side{Build: armed, Actives: []string{"zzz"}}, Target: Side{Build: victim}, Distance: 1}, shipstats.ErrActiveNotFound},
		{"active not fitted", Engagement{Source: Side{Build: armed, Actives: []string{"bo"}}, Target: Side{Build: victim}, Distance: 1}, shipstats.ErrActiveNotAvailable},
		{"target active unsupported", Engagement{Source: Side{Build: armed}, Target: Side{Build: victim, Actives: []string{"lockdown"}}, Distance: 1}, shipstats.ErrActiveNotSupported},
		{"secondary not fitted", Engagement{Source: Side{Build: armed}, Target: Side{Build: victim}, Distance: 1, Weapon: shipstats.ScopeOf(catalog.SecondaryWeapon)}, shipstats.ErrWeaponNotEquipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := calc.TimeToKill(context.Background(), tt.e); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := calc.TimeToKill(ctx, Engagement{Source: Side{Build: armed}, Target: Side{Build: victim}, Distance: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context err = %v", err)
	}
}

func TestSwapDropsCache(t *testing.T) {
	calc := newCalculator(t)
	b := mustBuild(t, calc.Catalog(), "Imperial_S_Sting", "primary/lc")
	if _, err := calc.Stats(b); err != nil {
		t.Fatal(err)
	}

	next, err := catalog.LoadFile("../catalog/testdata/catalog.json")
	if err != nil {
		t.Fatal(err)
	}
	old := calc.Swap(next)
	if old == next || calc.Catalog() != next {
		t.Error("Swap did not install the new snapshot")
	}
	if calc.cache.Len() != 0 {
		t.Errorf("cache holds %d entries after swap", calc.cache.Len())
	}
}

func TestConcurrentCalculations(t *testing.T) {
	calc := newCalculator(t)
	cat := calc.Catalog()
	attacker := mustBuild(t, cat, "Imperial_S_Sting", "primary/lc/123", "sy/bo/---LL")
	victim := mustBuild(t, cat, "Republic_S_Flashfire", "primary/lc")
	scenarios := [][]string{nil, {"bo"}, {"bypass"}, {"cf", "wingman"}, {"bo", "bypass"}}

	want := make([]Result, len(scenarios))
	for i, actives := range scenarios {
		res, err := calc.TimeToKill(context.Background(), Engagement{
			Source: Side{Build: attacker, Actives: actives}, Target: Side{Build: victim}, Distance: 3, Accuracy: true,
		})
		if err != nil {
			t.Fatalf("scenario %v: %v", actives, err)
		}
		want[i] = res
	}

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		for i, actives := range scenarios {
			wg.Add(1)
			go func(i int, actives []string) {
				defer wg.Done()
				res, err := calc.TimeToKill(context.Background(), Engagement{
					Source: Side{Build: attacker, Actives: actives}, Target: Side{Build: victim}, Distance: 3, Accuracy: true,
				})
				if err != nil {
					t.Errorf("scenario %v: %v", actives, err)
					return
				}
				if res.Result != want[i].Result {
					t.Errorf("scenario %v: %+v, want %+v", actives, res.Result, want[i].Result)
				}
			}(i, actives)
		}
	}
	wg.Wait()
}
