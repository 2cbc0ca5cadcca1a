package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/calculator"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/nzvengeance/gsf-buildbot/internal/database"
	"github.com/nzvengeance/gsf-buildbot/internal/shipstats"
	"github.com/rs/zerolog/log"
)

// errNoReadAccess is returned when a user reads a private build of someone
// else.
var errNoReadAccess = errors.New("no read access to build")

// errorMapping turns a domain error into a status and a message fit for the
// chat user. An empty message means the error's own text is shown.
var errorMapping = []struct {
	err     error
	status  int
	message string
}{
	{shipstats.ErrInfiniteShots, http.StatusUnprocessableEntity,
		"That scenario would take an incalculable amount of time. Check whether your distance is given in hundreds of metres."},
	{shipstats.ErrZeroDamage, http.StatusUnprocessableEntity,
		"Division by zero! That weapon cannot kill this target."},
	{shipstats.ErrActiveNotAvailable, http.StatusUnprocessableEntity,
		"One of those actives is not available on the ship you requested it on."},
	{shipstats.ErrActiveNotSupported, http.StatusUnprocessableEntity,
		"That active ability is not supported by the calculator."},
	{shipstats.ErrActiveNotFound, http.StatusUnprocessableEntity,
		"One of the active abilities either does not exist or has not been implemented."},
	{shipstats.ErrWeaponNotEquipped, http.StatusUnprocessableEntity,
		"The source build has no weapon in that slot."},
	{shipstats.ErrMissingStat, http.StatusUnprocessableEntity,
		"The catalog is missing a stat this calculation needs."},
	{calculator.ErrInvalidBuildRef, http.StatusBadRequest,
		"Those are not valid build identifiers."},
	{database.ErrBuildNotFound, http.StatusNotFound,
		"That build does not exist."},
	{errNoReadAccess, http.StatusForbidden,
		"You do not have access to that build."},
	{database.ErrNotOwner, http.StatusForbidden,
		"Shame on you. That build is not yours."},
	{database.ErrDuplicateBuild, http.StatusConflict,
		"You already have a build with that name."},
	{build.ErrInvalidElement, http.StatusBadRequest, ""},
	{catalog.ErrLookupMiss, http.StatusBadRequest, ""},
	{context.DeadlineExceeded, http.StatusGatewayTimeout,
		"That took too long. Try again later."},
}

// errorResponse maps err to an HTTP status and user message.
func errorResponse(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if m.message == "" {
				return m.status, err.Error()
			}
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "And... That's an error. Sorry."
}

// writeDomainError writes the mapped response for err and logs unexpected
// failures.
func writeDomainError(w http.ResponseWriter, err error) {
	status, msg := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeError(w, status, msg)
}
