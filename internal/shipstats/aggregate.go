package shipstats

import (
	"fmt"

	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/rs/zerolog/log"
)

// Aggregate computes the stat sets of a build.
//
// Order of application is fixed: ship base stats, then each populated
// component in canonical category order (its own stats, its enabled
// upgrades in tier order, then its ship modifiers), then crew passives in
// role order. Multiplicative and additive deltas are applied in sequence on
// the same accumulator, so this order is part of the result.
func Aggregate(cat *catalog.Catalog, b *build.Build) (*Stats, error) {
	ship, err := cat.Ship(b.Ship)
	if err != nil {
		return nil, err
	}

	st := NewStats()
	st.seed(ScopeShip, ship.Stats)

	for _, category := range catalog.Categories {
		sel := b.Component(category)
		if sel == nil {
			continue
		}
		if !ship.HasCategory(category) {
			log.Debug().Str("ship", ship.ID).Str("category", category.String()).Msg("ship has no slot for component, skipping")
			continue
		}
		comp, err := ship.Component(category, sel.Name)
		if err != nil {
			return nil, err
		}
		applyComponent(st, comp, sel)
	}

	for _, role := range catalog.Roles {
		name := b.Crew[role]
		if name == "" || role == catalog.CoPilot {
			// The co-pilot contributes an active ability, not passives.
			continue
		}
		member, err := cat.CrewMember(ship.Faction, role, name)
		if err != nil {
			return nil, err
		}
		for _, passive := range []catalog.Stats{member.Passive, member.SecondaryPassive} {
			for _, raw := range st.applyDeltas(catalog.Target{}, noOwner, passive) {
				log.Warn().
					Str("crew", member.Name).
					Str("stat", raw).
					Msg("could not determine stat scope for crew passive")
			}
		}
	}

	return st, nil
}

func applyComponent(st *Stats, comp *catalog.Component, sel *build.ComponentSelection) {
	scope := ScopeOf(sel.Category)
	st.seed(scope, comp.Stats)

	for _, key := range sel.Upgrades() {
		up, ok := comp.Upgrade(key.Tier, key.Side)
		if !ok {
			// Selections are validated against the class structure and
			// the catalog against the same structure at load time.
			panic(fmt.Sprintf("component %q has no upgrade at tier %d side %d", comp.Name, key.Tier, key.Side))
		}
		for _, raw := range st.applyDeltas(up.Target, scope, up.Stats) {
			log.Debug().
				Str("component", comp.Name).
				Int("tier", key.Tier).
				Str("stat", raw).
				Msg("upgrade stat not defined by target scope")
		}
	}

	st.applyDeltas(catalog.Target{Kind: catalog.TargetShip}, scope, comp.ShipStats)
}
