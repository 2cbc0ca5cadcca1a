package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/database"
	"github.com/nzvengeance/gsf-buildbot/internal/models"
	"github.com/rs/zerolog/log"
)

// readableBuild resolves a build reference (id, or the name of one of the
// user's builds) and checks read access.
func (s *Server) readableBuild(ctx context.Context, ref, user string) (*models.Build, error) {
	b, err := s.db.ResolveBuild(ctx, ref, user)
	if err != nil {
		return nil, err
	}
	if !b.Public && b.Owner != user {
		return nil, errNoReadAccess
	}
	return b, nil
}

// buildView decodes a stored build for display.
func (s *Server) buildView(b *models.Build) (*models.BuildView, error) {
	cat := s.calc.Catalog()
	decoded, err := build.Parse(cat, b.Data)
	if err != nil {
		return nil, err
	}
	ship, err := cat.Ship(decoded.Ship)
	if err != nil {
		return nil, err
	}

	view := &models.BuildView{
		Build:    *b,
		ShipID:   ship.ID,
		ShipName: ship.Name,
		Faction:  ship.Faction,
		Category: ship.Category,
		Slots:    make(map[string]string, len(decoded.Components)),
		Crew:     make(map[string]string, len(decoded.Crew)),
	}
	for category, sel := range decoded.Components {
		view.Slots[category.String()] = sel.String()
	}
	for role, name := range decoded.Crew {
		view.Crew[role.String()] = name
	}
	return view, nil
}

func (s *Server) listBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := s.db.ListBuildsByOwner(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if builds == nil {
		builds = []models.Build{}
	}
	writeJSON(w, http.StatusOK, builds)
}

func (s *Server) listPublicBuilds(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	builds, err := s.db.ListPublicBuilds(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if builds == nil {
		builds = []models.Build{}
	}
	writeJSON(w, http.StatusOK, builds)
}

func (s *Server) createBuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Base   string `json:"base"`
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.ContainsAny(req.Name, ";/") {
		writeError(w, http.StatusBadRequest, "Build names must be non-empty and cannot contain ';' or '/'")
		return
	}
	if _, err := strconv.ParseInt(req.Name, 10, 64); err == nil {
		writeError(w, http.StatusBadRequest, "Build names cannot be numbers, those are reserved for identifiers")
		return
	}

	ship, err := s.calc.Catalog().ResolveShip(req.Base)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	owner := userFrom(ctx)
	id, err := s.db.InsertBuild(ctx, owner, req.Name, build.New(ship).Serialize(), req.Public)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	log.Info().Int64("id", id).Str("owner", owner).Str("ship", ship.ID).Msg("build created")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      id,
		"name":    req.Name,
		"ship":    ship.Name,
		"message": fmt.Sprintf("Build %q created with ship %s and identifier %d.", req.Name, ship.Name, id),
	})
}

func (s *Server) getBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := s.readableBuild(ctx, chi.URLParam(r, "ref"), userFrom(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	view, err := s.buildView(b)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFrom(ctx)
	b, err := s.db.ResolveBuild(ctx, chi.URLParam(r, "ref"), user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	name, err := s.db.DeleteBuild(ctx, b.ID, user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Build %q deleted.", name)})
}

// selectElement applies one "category/component/upgrades" or
// "crew/role/member" element to a build the user owns.
func (s *Server) selectElement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Element string `json:"element"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ctx := r.Context()
	user := userFrom(ctx)
	b, err := s.db.ResolveBuild(ctx, chi.URLParam(r, "ref"), user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if b.Owner != user {
		writeDomainError(w, database.ErrNotOwner)
		return
	}

	cat := s.calc.Catalog()
	decoded, err := build.Parse(cat, b.Data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	msg, err := decoded.ApplyElement(cat, req.Element)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.db.UpdateBuildData(ctx, b.ID, user, decoded.Serialize()); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": msg,
		"data":    decoded.Serialize(),
	})
}

func (s *Server) setBuildPublic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Public bool `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	ctx := r.Context()
	user := userFrom(ctx)
	b, err := s.db.ResolveBuild(ctx, chi.URLParam(r, "ref"), user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.db.UpdateBuildPublic(ctx, b.ID, user, req.Public); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": b.ID, "public": req.Public})
}

// getBuildStats returns the aggregated statistics of a build, with the
// actives listed in ?actives=a,b applied.
func (s *Server) getBuildStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := s.readableBuild(ctx, chi.URLParam(r, "ref"), userFrom(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	decoded, err := build.Parse(s.calc.Catalog(), b.Data)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var actives []string
	for _, a := range strings.Split(r.URL.Query().Get("actives"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			actives = append(actives, a)
		}
	}

	st, applied, err := s.calc.StatsWithActives(decoded, actives)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      b.ID,
		"name":    b.Name,
		"actives": applied,
		"stats":   st,
	})
}
