package shipstats

import "errors"

// Active ability resolution errors. These describe user input problems and
// are meant to be reported back verbatim.
var (
	ErrActiveNotFound     = errors.New("active ability not found")
	ErrActiveNotSupported = errors.New("active ability not supported by the calculator")
	ErrActiveNotAvailable = errors.New("active ability not available on this build")
)

// Time-to-kill errors.
var (
	// ErrInfiniteShots means the engagement can never end: the target is
	// out of weapon range or the attacker can never land a hit.
	ErrInfiniteShots = errors.New("infinite shots required")
	// ErrZeroDamage means the weapon deals no damage the target can die
	// from.
	ErrZeroDamage = errors.New("weapon deals zero damage")
	// ErrWeaponNotEquipped means the requested weapon scope is empty on the
	// source build.
	ErrWeaponNotEquipped = errors.New("weapon not equipped")
	// ErrMissingStat means a stat the calculation needs is absent from the
	// aggregated stats, which points at incomplete catalog data.
	ErrMissingStat = errors.New("missing stat")
)
