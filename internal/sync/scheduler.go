package sync

import (
	"bytes"
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/nzvengeance/gsf-buildbot/internal/calculator"
	"github.com/nzvengeance/gsf-buildbot/internal/catalog"
	"github.com/nzvengeance/gsf-buildbot/internal/config"
	"github.com/nzvengeance/gsf-buildbot/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SourceCatalog is the sync_history source of catalog reloads.
const SourceCatalog = "catalog"

// Sync statuses recorded in sync_history.
const (
	StatusRunning   = "running"
	StatusSuccess   = "success"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
)

// ReloadResult describes one catalog reload.
type ReloadResult struct {
	Changed bool   `json:"changed"`
	Version string `json:"version"`
	Ships   int    `json:"ships"`
}

type Scheduler struct {
	db   *database.DB
	calc *calculator.Calculator
	cfg  *config.Config
	cron *cron.Cron

	mu gosync.Mutex // serializes reloads
}

func NewScheduler(db *database.DB, calc *calculator.Calculator, cfg *config.Config) *Scheduler {
	return &Scheduler{
		db:   db,
		calc: calc,
		cfg:  cfg,
		cron: cron.New(),
	}
}

// Start begins the scheduled reload job. An empty schedule disables it.
func (s *Scheduler) Start() error {
	if s.cfg.ReloadSchedule == "" {
		log.Info().Msg("catalog reload schedule empty, scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.ReloadSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := s.ReloadCatalog(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled catalog reload failed")
		}
	})
	if err != nil {
		return fmt.Errorf("adding cron job: %w", err)
	}

	s.cron.Start()
	log.Info().Str("schedule", s.cfg.ReloadSchedule).Msg("catalog reload scheduler started")
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("catalog reload scheduler stopped")
}

// ReloadCatalog re-reads the catalog file and swaps it into the calculator
// when its fingerprint differs from the snapshot in use. A catalog that
// fails validation leaves the current snapshot in place.
func (s *Scheduler) ReloadCatalog(ctx context.Context) (ReloadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	syncID, err := s.db.InsertSyncHistory(ctx, SourceCatalog)
	if err != nil {
		log.Warn().Err(err).Msg("failed to record catalog reload start")
	}

	data, err := catalog.ReadFile(s.cfg.CatalogPath)
	if err != nil {
		s.finish(ctx, syncID, StatusError, "", 0, err)
		return ReloadResult{}, err
	}

	current := s.calc.Catalog()
	version := catalog.Fingerprint(data)
	if version == current.Version {
		s.finish(ctx, syncID, StatusUnchanged, version, len(current.Ships), nil)
		log.Debug().Str("version", version[:12]).Msg("catalog unchanged")
		return ReloadResult{Version: version, Ships: len(current.Ships)}, nil
	}

	next, err := catalog.Load(bytes.NewReader(data))
	if err != nil {
		s.finish(ctx, syncID, StatusError, version, 0, err)
		return ReloadResult{}, fmt.Errorf("loading %s: %w", s.cfg.CatalogPath, err)
	}

	s.calc.Swap(next)
	s.finish(ctx, syncID, StatusSuccess, version, len(next.Ships), nil)
	return ReloadResult{Changed: true, Version: version, Ships: len(next.Ships)}, nil
}

func (s *Scheduler) finish(ctx context.Context, syncID int, status, version string, count int, cause error) {
	if syncID == 0 {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := s.db.UpdateSyncHistory(ctx, syncID, status, version, count, msg); err != nil {
		log.Warn().Err(err).Int("sync_id", syncID).Msg("failed to record catalog reload result")
	}
}
