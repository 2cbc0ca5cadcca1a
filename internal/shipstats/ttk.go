package shipstats

import (
	"fmt"
	"math"

	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/rs/zerolog/log"
)

// Weapon stat names.
const (
	StatRangePointBlank  = "Weapon_Range_Point_Blank"
	StatRangeMid         = "Weapon_Range_Mid"
	StatRangeLong        = "Weapon_Range_Long"
	StatDamagePointBlank = "pbRangeDamMulti"
	StatDamageMid        = "midRangeDamMulti"
	StatDamageLong       = "longRangeDamMulti"
	StatAccPointBlank    = "pbRangeAccMulti"
	StatAccMid           = "midRangeAccMulti"
	StatAccLong          = "longRangeAccMulti"
	StatBaseDamage       = "Weapon_Base_Damage"
	StatBaseAccuracy     = "Weapon_Base_Accuracy"
	StatShieldMultiplier = "Weapon_Shield_Damage_Multiplier"
	StatHullMultiplier   = "Weapon_Hull_Damage_Multiplier"
	StatShieldPiercing   = "Weapon_Shield_Piercing"
	StatRateOfFire       = "Weapon_Rate_of_Fire"
	StatCritChance       = "Crit_Chance"
	StatCritMultiplier   = "Crit_Damage_Multiplier"
)

// Ship stat names read from the target.
const (
	StatShieldCapacity     = "Shields_Max_Power_(Capacity)"
	StatMaxHealth          = "Max_Health"
	StatShieldBleedThrough = "Shield_Bleed_Through"
	StatEvasion            = "Ship_Evasion"
)

// Result is the outcome of one time-to-kill calculation.
type Result struct {
	Shots    int     `json:"shots"`
	Time     float64 `json:"time"`
	Distance float64 `json:"distance"`
	Weapon   Scope   `json:"weapon"`
	// HitChance is the accuracy minus evasion used to correct the result,
	// zero when the result is uncorrected.
	HitChance float64 `json:"hit_chance,omitempty"`
}

type options struct {
	weapon   Scope
	accuracy bool
}

// Option configures TimeToKill.
type Option func(*options)

// WithWeapon selects the weapon scope that fires. Defaults to the primary
// weapon.
func WithWeapon(sc Scope) Option {
	return func(o *options) { o.weapon = sc }
}

// WithAccuracy corrects the result for the attacker's range adjusted
// accuracy against the target's evasion.
func WithAccuracy(enabled bool) Option {
	return func(o *options) { o.accuracy = enabled }
}

// TimeToKill returns the shots and seconds the source weapon needs to
// destroy the target at distance (hundreds of metres).
func TimeToKill(source, target *Stats, distance float64, opts ...Option) (Result, error) {
	o := options{weapon: ScopeOf(catalog.PrimaryWeapon)}
	for _, opt := range opts {
		opt(&o)
	}

	weapon, ok := source.Scope(o.weapon)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrWeaponNotEquipped, o.weapon)
	}
	ship, ok := target.Scope(ScopeShip)
	if !ok {
		return Result{}, fmt.Errorf("%w: target has no ship stats", ErrMissingStat)
	}
	w := statReader{set: weapon, scope: o.weapon}
	t := statReader{set: ship, scope: ScopeShip}

	base, err := rangeAdjusted(&w, distance, w.get(StatBaseDamage), damageCurve, scaleMod)
	if err != nil {
		return Result{}, err
	}
	hullReg := base * w.get(StatHullMultiplier)
	shieldReg := base * w.get(StatShieldMultiplier)
	chance := w.get(StatCritChance)
	crit := critMultiplier(w.get(StatCritMultiplier))
	piercing := w.get(StatShieldPiercing)
	rof := w.get(StatRateOfFire)

	bleed := t.get(StatShieldBleedThrough)
	hull := t.get(StatMaxHealth)
	shields := t.get(StatShieldCapacity)
	if err := firstErr(w.err, t.err); err != nil {
		return Result{}, err
	}

	pierce := bleed + piercing - bleed*piercing
	avgHull := expectedDamage(hullReg, crit, chance)
	avgShield := expectedDamage(shieldReg, crit, chance)

	shots, err := shotsToKill(avgHull, avgShield, pierce, hull, shields)
	if err != nil {
		return Result{}, err
	}
	if rof <= 0 {
		return Result{}, fmt.Errorf("%w: weapon never fires", ErrZeroDamage)
	}

	res := Result{
		Shots:    shots,
		Time:     float64(shots) / rof,
		Distance: distance,
		Weapon:   o.weapon,
	}

	log.Debug().
		Float64("avg_hull", avgHull).
		Float64("avg_shield", avgShield).
		Float64("pierce", pierce).
		Float64("hull", hull).
		Float64("shields", shields).
		Int("shots", shots).
		Float64("distance", distance).
		Msg("time to kill calculated")

	if !o.accuracy {
		return res, nil
	}

	acc, err := rangeAdjusted(&w, distance, w.get(StatBaseAccuracy), accuracyCurve, offsetMod)
	if err != nil {
		return Result{}, err
	}
	evasion := t.get(StatEvasion)
	if err := firstErr(w.err, t.err); err != nil {
		return Result{}, err
	}
	hit := acc - evasion
	if hit <= 0 {
		return Result{}, fmt.Errorf("%w: accuracy %.2f does not beat evasion %.2f", ErrInfiniteShots, acc, evasion)
	}
	hit = math.Min(hit, 1)
	expected := float64(shots) / hit
	res.Shots = int(ceil(expected))
	res.Time = expected / rof
	res.HitChance = hit
	return res, nil
}

type curve [3][2]string

// Breakpoint stat names per curve: (range stat, modifier stat).
var (
	damageCurve = curve{
		{StatRangePointBlank, StatDamagePointBlank},
		{StatRangeMid, StatDamageMid},
		{StatRangeLong, StatDamageLong},
	}
	accuracyCurve = curve{
		{StatRangePointBlank, StatAccPointBlank},
		{StatRangeMid, StatAccMid},
		{StatRangeLong, StatAccLong},
	}
)

// Damage modifiers scale the base value, accuracy modifiers offset it.
func scaleMod(base, mod float64) float64  { return base * mod }
func offsetMod(base, mod float64) float64 { return base + mod }

// rangeAdjusted evaluates base at distance along the piecewise linear
// curve through the point-blank, mid and long breakpoints. Beyond long
// range the weapon cannot reach.
func rangeAdjusted(w *statReader, distance, base float64, c curve, apply func(base, mod float64) float64) (float64, error) {
	var x, y [3]float64
	for i, bp := range c {
		x[i] = w.get(bp[0])
		y[i] = apply(base, w.get(bp[1]))
	}
	if w.err != nil {
		return 0, w.err
	}
	switch {
	case distance <= x[0]:
		return y[0], nil
	case distance <= x[1]:
		return linear(x[0], y[0], x[1], y[1], distance), nil
	case distance <= x[2]:
		return linear(x[1], y[1], x[2], y[2], distance), nil
	}
	return 0, fmt.Errorf("%w: distance %g beyond long range %g", ErrInfiniteShots, distance, x[2])
}

func linear(x1, y1, x2, y2, x float64) float64 {
	return y1 + (x-x1)*(y2-y1)/(x2-x1)
}

// critMultiplier normalises the crit damage multiplier. The data tables
// store it in two conventions: below 1 it is the bonus on top of regular
// damage, from 1 upwards it is the full multiplier.
func critMultiplier(m float64) float64 {
	if m < 1 {
		return m + 1
	}
	return m
}

func expectedDamage(regular, critMult, chance float64) float64 {
	return regular*(1-chance) + regular*critMult*chance
}

// shotsToKill counts shots in two phases. While shields hold, each shot
// removes absorbed shield points and leaks pierce*avgHull into the hull.
// The shot that breaks the shields (the border shot) splits its
// non-piercing part between the last shield points and the hull. After
// that every shot deals avgHull.
func shotsToKill(avgHull, avgShield, pierce, hull, shields float64) (int, error) {
	if avgHull == 0 {
		return 0, ErrZeroDamage
	}
	if hull <= 0 {
		return 0, nil
	}
	absorbed := avgShield * (1 - pierce)
	if absorbed <= 0 {
		if pierce <= 0 {
			return 0, fmt.Errorf("%w: weapon cannot break shields", ErrZeroDamage)
		}
		return int(ceil(hull / (avgHull * pierce))), nil
	}

	shieldShots := floor(shields / absorbed)
	leaked := shieldShots * pierce * avgHull
	if leaked >= hull {
		// The hull breaks through piercing before the shields fall.
		return int(ceil(hull / (avgHull * pierce))), nil
	}

	var border, borderHull float64
	if remaining := shields - shieldShots*absorbed; remaining > epsilon {
		border = 1
		borderHull = avgHull * (pierce + (1-pierce)*(1-remaining/absorbed))
	}
	hullShots := math.Max(0, ceil((hull-leaked-borderHull)/avgHull))
	return int(shieldShots + border + hullShots), nil
}

// epsilon absorbs float noise around whole shot counts, so 16.000000000001
// shots rounds to 16 and not 17.
const epsilon = 1e-9

func ceil(x float64) float64  { return math.Ceil(x - epsilon) }
func floor(x float64) float64 { return math.Floor(x + epsilon) }

// statReader reads required stats and remembers the first one missing.
type statReader struct {
	set   catalog.Stats
	scope Scope
	err   error
}

func (r *statReader) get(name string) float64 {
	v, ok := r.set[name]
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%w: %s in %s", ErrMissingStat, name, r.scope)
	}
	return v
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
