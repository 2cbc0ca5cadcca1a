package shipstats

import (
	"fmt"
	"strings"

	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/rs/zerolog/log"
)

// MatchActive finds the first active, in catalog order, whose name starts
// with fragment (case-insensitive) or whose initials equal fragment. Both
// rules are tried per entry before moving on, so an earlier entry matching
// by initials wins over a later one matching by prefix.
func MatchActive(actives []catalog.Active, fragment string) (*catalog.Active, error) {
	frag := strings.ToLower(strings.TrimSpace(fragment))
	if frag == "" {
		return nil, fmt.Errorf("%w: empty name", ErrActiveNotFound)
	}
	for i := range actives {
		a := &actives[i]
		if strings.HasPrefix(strings.ToLower(a.Name), frag) || a.Initials() == frag {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrActiveNotFound, fragment)
}

// ResolveActives applies the named active abilities, in order, to a copy of
// stats and returns the copy with the canonical names that were applied.
// stats itself is never modified.
func ResolveActives(cat *catalog.Catalog, stats *Stats, names []string, b *build.Build) (*Stats, []string, error) {
	out := stats.Clone()
	applied := make([]string, 0, len(names))
	for _, name := range names {
		active, err := MatchActive(cat.Actives, name)
		if err != nil {
			return nil, nil, err
		}
		if err := applyActive(out, active, b); err != nil {
			return nil, nil, err
		}
		applied = append(applied, active.Name)
	}
	return out, applied, nil
}

func applyActive(st *Stats, active *catalog.Active, b *build.Build) error {
	if active.Unsupported {
		return fmt.Errorf("%w: %s", ErrActiveNotSupported, active.Name)
	}
	effects := active.Effects.Clone()
	if effects == nil {
		effects = catalog.Stats{}
	}

	if active.HasTalentTree() {
		sel := b.Equipped(active.Name)
		if sel == nil {
			return fmt.Errorf("%w: %s is not equipped", ErrActiveNotAvailable, active.Name)
		}
		owner := ScopeOf(sel.Category)
		for _, key := range sel.Upgrades() {
			up, ok := active.Upgrade(key.Tier, key.Side)
			if !ok {
				// Validate requires one entry per talent of the component.
				panic(fmt.Sprintf("active %q has no upgrade at tier %d side %d", active.Name, key.Tier, key.Side))
			}
			if up.Target.Kind == catalog.TargetSelf {
				modifyEffects(effects, up.Stats)
				continue
			}
			st.applyDeltas(up.Target, owner, up.Stats)
		}
	}

	for _, raw := range st.applyDeltas(catalog.Target{}, noOwner, effects) {
		log.Debug().Str("active", active.Name).Str("stat", raw).Msg("active effect stat not defined by any scope")
	}
	return nil
}

// modifyEffects applies talent deltas to an active's own effect mapping.
// Effect keys keep their composition marker; deltas match them by stat
// name.
func modifyEffects(effects, deltas catalog.Stats) {
	for _, raw := range deltas.Keys() {
		name, mul := ParseStatName(raw)
		for _, key := range effects.Keys() {
			if effectName, _ := ParseStatName(key); effectName == name {
				effects[key] = compose(effects[key], mul, deltas[raw])
			}
		}
	}
}
