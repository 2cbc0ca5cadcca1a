// Package calculator is the entry point the service layers use for stat and
// time-to-kill calculations. It owns the current catalog snapshot and a
// cache of aggregated build stats.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/nzvengeance/gsf-buildbot/internal/shipstats"
)

// DefaultDistance is the engagement distance used when none is given, in
// hundreds of metres.
const DefaultDistance = 30

// ErrInvalidBuildRef is returned by ParseBuildRef.
var ErrInvalidBuildRef = errors.New("invalid build reference")

// Calculator computes build statistics against the current catalog.
// It is safe for concurrent use.
type Calculator struct {
	catalog atomic.Pointer[catalog.Catalog]
	cache   *lru.Cache[string, *shipstats.Stats]
}

// New creates a calculator serving cat. cacheSize bounds the number of
// aggregated builds kept in memory.
func New(cat *catalog.Catalog, cacheSize int) (*Calculator, error) {
	if cat == nil {
		return nil, errors.New("calculator needs a catalog")
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, *shipstats.Stats](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating stats cache: %w", err)
	}
	c := &Calculator{cache: cache}
	c.catalog.Store(cat)
	return c, nil
}

// Catalog returns the snapshot currently in use.
func (c *Calculator) Catalog() *catalog.Catalog {
	return c.catalog.Load()
}

// Swap replaces the catalog snapshot and returns the previous one. Cached
// stats of the old snapshot are dropped.
func (c *Calculator) Swap(cat *catalog.Catalog) *catalog.Catalog {
	old := c.catalog.Swap(cat)
	c.cache.Purge()
	log.Info().
		Str("version", shortVersion(cat.Version)).
		Str("previous", shortVersion(old.Version)).
		Msg("catalog swapped")
	return old
}

// Stats returns the aggregated stats of b. The result belongs to the caller.
func (c *Calculator) Stats(b *build.Build) (*shipstats.Stats, error) {
	cat := c.Catalog()
	key := catalog.Fingerprint([]byte(cat.Version + "\x00" + b.Serialize()))
	if st, ok := c.cache.Get(key); ok {
		return st.Clone(), nil
	}
	st, err := shipstats.Aggregate(cat, b)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, st)
	return st.Clone(), nil
}

// StatsWithActives aggregates b and applies the named active abilities.
// It returns the canonical names of the actives applied.
func (c *Calculator) StatsWithActives(b *build.Build, actives []string) (*shipstats.Stats, []string, error) {
	st, err := c.Stats(b)
	if err != nil {
		return nil, nil, err
	}
	if len(actives) == 0 {
		return st, []string{}, nil
	}
	return shipstats.ResolveActives(c.Catalog(), st, actives, b)
}

// Side is one participant of an engagement.
type Side struct {
	Build   *build.Build
	Actives []string
}

// Engagement describes a time-to-kill question.
type Engagement struct {
	Source   Side
	Target   Side
	Distance float64
	// Weapon is the source weapon scope. The zero value selects the
	// primary weapon.
	Weapon   shipstats.Scope
	Accuracy bool
}

// Result is a time-to-kill answer with the actives applied on each side.
type Result struct {
	shipstats.Result
	SourceActives []string `json:"source_actives"`
	TargetActives []string `json:"target_actives"`
}

// TimeToKill runs aggregation, active resolution and the time-to-kill
// calculation for both sides of e.
func (c *Calculator) TimeToKill(ctx context.Context, e Engagement) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	source, sourceActives, err := c.StatsWithActives(e.Source.Build, e.Source.Actives)
	if err != nil {
		return Result{}, fmt.Errorf("source build: %w", err)
	}
	target, targetActives, err := c.StatsWithActives(e.Target.Build, e.Target.Actives)
	if err != nil {
		return Result{}, fmt.Errorf("target build: %w", err)
	}

	weapon := e.Weapon
	if weapon == shipstats.ScopeShip {
		weapon = shipstats.ScopeOf(catalog.PrimaryWeapon)
	}
	res, err := shipstats.TimeToKill(source, target, e.Distance,
		shipstats.WithWeapon(weapon),
		shipstats.WithAccuracy(e.Accuracy),
	)
	if err != nil {
		return Result{}, err
	}
	return Result{Result: res, SourceActives: sourceActives, TargetActives: targetActives}, nil
}

// BuildRef is a build id with the active abilities to apply to it.
type BuildRef struct {
	ID      int64
	Actives []string
}

// ParseBuildRef parses "12" or "12(bo,wingman)".
func ParseBuildRef(ref string) (BuildRef, error) {
	ref = strings.TrimSpace(ref)
	idPart, rest, hasActives := strings.Cut(ref, "(")
	var out BuildRef
	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil || id <= 0 {
		return out, fmt.Errorf("%w: %q is not a build id", ErrInvalidBuildRef, ref)
	}
	out.ID = id
	if !hasActives {
		return out, nil
	}
	list, ok := strings.CutSuffix(rest, ")")
	if !ok || strings.ContainsAny(list, "()") {
		return out, fmt.Errorf("%w: unbalanced parentheses in %q", ErrInvalidBuildRef, ref)
	}
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out.Actives = append(out.Actives, name)
		}
	}
	return out, nil
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}
