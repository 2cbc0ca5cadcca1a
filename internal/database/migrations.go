package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

func (db *DB) migrate() error {
	log.Info().Msg("running database migrations")

	migrations := []string{
		db.migrationBuilds(),
		db.migrationAppSettings(),
		db.migrationSyncHistory(),
		db.migrationAIAnalyses(),
	}

	for i, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_builds_owner ON builds(owner)",
		"CREATE INDEX IF NOT EXISTS idx_builds_public ON builds(public)",
		"CREATE INDEX IF NOT EXISTS idx_sync_history_started_at ON sync_history(started_at)",
		"CREATE INDEX IF NOT EXISTS idx_ai_analyses_owner ON ai_analyses(owner)",
	}
	for _, idx := range indexes {
		if _, err := db.conn.Exec(idx); err != nil {
			return fmt.Errorf("index creation: %w", err)
		}
	}

	log.Info().Msg("migrations complete")
	return nil
}

func (db *DB) migrationBuilds() string {
	ts := db.timestampType()
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS builds (
		id %s,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		data TEXT NOT NULL,
		public BOOLEAN NOT NULL DEFAULT FALSE,
		created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (owner, name)
	)`, db.autoIncrement(), ts, ts)
}

func (db *DB) migrationAppSettings() string {
	return `CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
}

func (db *DB) migrationSyncHistory() string {
	ts := db.timestampType()
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sync_history (
		id %s,
		source TEXT NOT NULL,
		status TEXT NOT NULL,
		version TEXT,
		record_count INTEGER DEFAULT 0,
		error_message TEXT,
		started_at %s DEFAULT CURRENT_TIMESTAMP,
		completed_at %s
	)`, db.autoIncrement(), ts, ts)
}

func (db *DB) migrationAIAnalyses() string {
	ts := db.timestampType()
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ai_analyses (
		id %s,
		owner TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		build_count INTEGER NOT NULL,
		analysis TEXT NOT NULL,
		created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, db.autoIncrement(), ts)
}
