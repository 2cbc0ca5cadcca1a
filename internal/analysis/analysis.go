package analysis

import (
	"context"
	"errors"

	"github.com/nzvengeance/gsf-buildbot/internal/build"
	"github.com/nzvengeance/gsf-buildbot/internal/calculator"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/nzvengeance/gsf-buildbot/internal/models"
	"github.com/nzvengeance/gsf-buildbot/internal/shipstats"
	"github.com/rs/zerolog/log"
)

// Short reasons reported in matrix cells that have no time.
const (
	KindInfinite     = "out of range"
	KindZeroDamage   = "zero damage"
	KindNoWeapon     = "no weapon"
	KindMissingStat  = "missing stat"
	KindInvalidBuild = "invalid build"
	KindError        = "error"
)

// ErrorKind maps a time-to-kill error to its short matrix reason.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, shipstats.ErrInfiniteShots):
		return KindInfinite
	case errors.Is(err, shipstats.ErrZeroDamage):
		return KindZeroDamage
	case errors.Is(err, shipstats.ErrWeaponNotEquipped):
		return KindNoWeapon
	case errors.Is(err, shipstats.ErrMissingStat):
		return KindMissingStat
	case errors.Is(err, catalog.ErrLookupMiss), errors.Is(err, build.ErrInvalidElement):
		return KindInvalidBuild
	default:
		return KindError
	}
}

// AnalyzeBuilds decodes builds against the calculator's catalog and computes
// the overview, the time-to-kill matrix (row attacks column) and one summary
// per build.
func AnalyzeBuilds(ctx context.Context, calc *calculator.Calculator, builds []models.Build, distance float64, accuracy bool) (*models.BuildAnalysis, error) {
	cat := calc.Catalog()

	decoded := make([]*build.Build, len(builds))
	for i, b := range builds {
		parsed, err := build.Parse(cat, b.Data)
		if err != nil {
			log.Warn().Err(err).Int64("build", b.ID).Msg("skipping undecodable build in analysis")
			continue
		}
		decoded[i] = parsed
	}

	analysis := &models.BuildAnalysis{
		Overview: buildOverview(cat, builds, decoded, distance),
	}

	matrix, err := buildMatrix(ctx, calc, builds, decoded, distance, accuracy)
	if err != nil {
		return nil, err
	}
	analysis.Matchups = matrix
	analysis.Summaries = buildSummaries(builds, decoded, matrix)

	return analysis, nil
}

func buildOverview(cat *catalog.Catalog, builds []models.Build, decoded []*build.Build, distance float64) models.BuildOverview {
	overview := models.BuildOverview{
		TotalBuilds:    len(builds),
		Distance:       distance,
		ShipCategories: make(map[string]int),
		Factions:       make(map[string]int),
		Ships:          make(map[string]int),
	}

	for i, b := range builds {
		if b.Public {
			overview.PublicBuilds++
		}
		if decoded[i] == nil {
			overview.ShipCategories["Unknown"]++
			continue
		}
		ship, err := cat.Ship(decoded[i].Ship)
		if err != nil {
			overview.ShipCategories["Unknown"]++
			continue
		}
		overview.ShipCategories[ship.Category]++
		overview.Factions[ship.Faction]++
		overview.Ships[ship.Name]++
	}

	return overview
}

func buildMatrix(ctx context.Context, calc *calculator.Calculator, builds []models.Build, decoded []*build.Build, distance float64, accuracy bool) ([][]models.MatchupCell, error) {
	matrix := make([][]models.MatchupCell, len(builds))
	for i := range builds {
		matrix[i] = make([]models.MatchupCell, len(builds))
		for j := range builds {
			cell := models.MatchupCell{SourceID: builds[i].ID, TargetID: builds[j].ID}
			if decoded[i] == nil || decoded[j] == nil {
				cell.Error = KindInvalidBuild
				matrix[i][j] = cell
				continue
			}

			res, err := calc.TimeToKill(ctx, calculator.Engagement{
				Source:   calculator.Side{Build: decoded[i]},
				Target:   calculator.Side{Build: decoded[j]},
				Distance: distance,
				Accuracy: accuracy,
			})
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil, err
			case err != nil:
				cell.Error = ErrorKind(err)
			default:
				cell.Shots = res.Shots
				cell.Time = res.Time
			}
			matrix[i][j] = cell
		}
	}
	return matrix, nil
}

// buildSummaries ignores the diagonal: a build against itself says nothing
// about its matchups.
func buildSummaries(builds []models.Build, decoded []*build.Build, matrix [][]models.MatchupCell) []models.BuildSummary {
	summaries := make([]models.BuildSummary, 0, len(builds))
	for i, b := range builds {
		summary := models.BuildSummary{BuildID: b.ID, Name: b.Name}
		if decoded[i] != nil {
			summary.Ship = decoded[i].Ship
		}

		for j, cell := range matrix[i] {
			if i == j {
				continue
			}
			if cell.Error != "" {
				summary.CannotKill++
				continue
			}
			m := &models.Matchup{BuildID: builds[j].ID, Name: builds[j].Name, Time: cell.Time}
			if summary.BestVs == nil || cell.Time < summary.BestVs.Time {
				summary.BestVs = m
			}
			if summary.WorstVs == nil || cell.Time > summary.WorstVs.Time {
				summary.WorstVs = m
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
