package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nzvengeance/gsf-buildbot/internal/analysis"
	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/calculator"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/nzvengeance/gsf-buildbot/internal/models"
	"github.com/nzvengeance/gsf-buildbot/internal/shipstats"
)

// --- Reference data ---

type shipSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Faction  string `json:"faction"`
	Category string `json:"category"`
	Tier     string `json:"tier"`
}

func (s *Server) listShips(w http.ResponseWriter, r *http.Request) {
	cat := s.calc.Catalog()
	faction := r.URL.Query().Get("faction")

	ships := make([]shipSummary, 0, len(cat.Ships))
	for _, sh := range cat.Ships {
		if faction != "" && !strings.EqualFold(sh.Faction, faction) {
			continue
		}
		ships = append(ships, shipSummary{ID: sh.ID, Name: sh.Name, Faction: sh.Faction, Category: sh.Category, Tier: sh.Tier})
	}
	writeJSON(w, http.StatusOK, ships)
}

func (s *Server) getShip(w http.ResponseWriter, r *http.Request) {
	ship, err := s.calc.Catalog().ResolveShip(chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Ship not found")
		return
	}
	writeJSON(w, http.StatusOK, ship)
}

func (s *Server) lookupComponent(w http.ResponseWriter, r *http.Request) {
	cat := s.calc.Catalog()
	category, err := catalog.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown component category")
		return
	}
	comp, err := cat.FindComponent(category, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Component not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category":  category,
		"component": comp,
	})
}

func (s *Server) lookupCrew(w http.ResponseWriter, r *http.Request) {
	member, err := s.calc.Catalog().FindCrew(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Crew member not found")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// --- Calculations ---

// distanceParam reads ?distance=, in hundreds of metres.
func (s *Server) distanceParam(r *http.Request) (float64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("distance"))
	if raw == "" {
		if s.cfg.DefaultDistance > 0 {
			return s.cfg.DefaultDistance, true
		}
		return calculator.DefaultDistance, true
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

func (s *Server) accuracyParam(r *http.Request) bool {
	acc, err := strconv.ParseBool(r.URL.Query().Get("accuracy"))
	if err != nil {
		return s.cfg.DefaultAccuracy
	}
	return acc
}

// timeToKill answers ?source=12(bo)&target=13&distance=30.
func (s *Server) timeToKill(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	distance, ok := s.distanceParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Distance argument should be a number [hundreds of metres].")
		return
	}

	var weapon shipstats.Scope
	if raw := q.Get("weapon"); raw != "" {
		sc, err := shipstats.ParseScope(raw)
		if err != nil || sc == shipstats.ScopeShip || !sc.Category().IsWeapon() {
			writeError(w, http.StatusBadRequest, "The weapon argument must name a weapon slot.")
			return
		}
		weapon = sc
	}

	sourceRef, err := calculator.ParseBuildRef(q.Get("source"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	targetRef, err := calculator.ParseBuildRef(q.Get("target"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	user := userFrom(ctx)
	cat := s.calc.Catalog()

	var sides [2]calculator.Side
	var names [2]string
	for i, ref := range []calculator.BuildRef{sourceRef, targetRef} {
		b, err := s.readableBuild(ctx, strconv.FormatInt(ref.ID, 10), user)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		decoded, err := build.Parse(cat, b.Data)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		sides[i] = calculator.Side{Build: decoded, Actives: ref.Actives}
		names[i] = b.Name
	}

	accuracy := s.accuracyParam(r)
	res, err := s.calc.TimeToKill(ctx, calculator.Engagement{
		Source:   sides[0],
		Target:   sides[1],
		Distance: distance,
		Weapon:   weapon,
		Accuracy: accuracy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TTKResponse{
		Source:        names[0],
		Target:        names[1],
		Shots:         res.Shots,
		Time:          res.Time,
		Distance:      res.Distance,
		Weapon:        res.Weapon.String(),
		HitChance:     res.HitChance,
		Accuracy:      accuracy,
		SourceActives: res.SourceActives,
		TargetActives: res.TargetActives,
	})
}

// getAnalysis returns the matchup matrix of the user's builds.
func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	distance, ok := s.distanceParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Distance argument should be a number [hundreds of metres].")
		return
	}
	ctx := r.Context()
	builds, err := s.db.ListBuildsByOwner(ctx, userFrom(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := analysis.AnalyzeBuilds(ctx, s.calc, builds, distance, s.accuracyParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
