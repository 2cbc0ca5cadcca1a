package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nzvengeance/gsf-buildbot/internal/config"
	"github.com/nzvengeance/gsf-buildbot/internal/models"
	"github.com/rs/zerolog/log"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

var (
	// ErrBuildNotFound is returned when no build matches an id or name.
	ErrBuildNotFound = errors.New("build not found")
	// ErrDuplicateBuild is returned when the owner already has a build with
	// the requested name.
	ErrDuplicateBuild = errors.New("build with that name already exists")
	// ErrNotOwner is returned when a user tries to change a build they do
	// not own.
	ErrNotOwner = errors.New("build is owned by another user")
)

// DB provides the data access layer
type DB struct {
	conn   *sql.DB
	driver string
}

// New creates a new database connection based on config
func New(cfg *config.Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch cfg.DBDriver {
	case "sqlite", "sqlite-pure":
		if cfg.DBPath != ":memory:" {
			dir := filepath.Dir(cfg.DBPath)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
		if cfg.DBDriver == "sqlite" {
			conn, err = sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
		} else {
			// modernc.org/sqlite, no cgo required
			conn, err = sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
		}
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		conn.SetMaxOpenConns(1) // SQLite is single-writer
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DATABASE_URL required for postgres driver")
		}
		conn, err = sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		conn.SetMaxOpenConns(10)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{conn: conn, driver: cfg.DBDriver}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	log.Info().Str("driver", cfg.DBDriver).Msg("database connected")
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection, for health reporting.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) isPostgres() bool {
	return db.driver == "postgres"
}

// autoIncrement returns the correct auto-increment syntax
func (db *DB) autoIncrement() string {
	if db.isPostgres() {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// onConflictUpdate returns the correct upsert syntax
func (db *DB) onConflictUpdate(conflictCol, updateCols string) string {
	if db.isPostgres() {
		return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflictCol, updateCols)
	}
	return fmt.Sprintf("ON CONFLICT(%s) DO UPDATE SET %s", conflictCol, updateCols)
}

// timestampType returns the correct timestamp type
func (db *DB) timestampType() string {
	if db.isPostgres() {
		return "TIMESTAMPTZ"
	}
	return "DATETIME"
}

// now returns the correct current timestamp function
func (db *DB) now() string {
	if db.isPostgres() {
		return "NOW()"
	}
	return "datetime('now')"
}

// q adapts a query written with ? placeholders to the driver.
func (db *DB) q(query string) string {
	if db.isPostgres() {
		return replacePlaceholders(query)
	}
	return query
}

// insertReturningID runs an INSERT and returns the new row id.
func (db *DB) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	if db.isPostgres() {
		var id int64
		err := db.conn.QueryRowContext(ctx, replacePlaceholders(query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// --- Build Operations ---

const buildColumns = "id, owner, name, data, public, created_at, updated_at"

func scanBuild(row interface{ Scan(...any) error }) (*models.Build, error) {
	var b models.Build
	if err := row.Scan(&b.ID, &b.Owner, &b.Name, &b.Data, &b.Public, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// InsertBuild stores a new build and returns its id. An owner cannot have
// two builds with the same name.
func (db *DB) InsertBuild(ctx context.Context, owner, name, data string, public bool) (int64, error) {
	if _, err := db.GetBuildByName(ctx, owner, name); err == nil {
		return 0, ErrDuplicateBuild
	} else if !errors.Is(err, ErrBuildNotFound) {
		return 0, err
	}

	query := fmt.Sprintf(`INSERT INTO builds (owner, name, data, public, created_at, updated_at)
		VALUES (?, ?, ?, ?, %s, %s)`, db.now(), db.now())
	id, err := db.insertReturningID(ctx, query, owner, name, data, public)
	if err != nil {
		return 0, fmt.Errorf("inserting build: %w", err)
	}
	log.Debug().Int64("id", id).Str("owner", owner).Str("name", name).Msg("build created")
	return id, nil
}

func (db *DB) GetBuild(ctx context.Context, id int64) (*models.Build, error) {
	row := db.conn.QueryRowContext(ctx, db.q("SELECT "+buildColumns+" FROM builds WHERE id = ?"), id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrBuildNotFound, id)
	}
	return b, err
}

func (db *DB) GetBuildByName(ctx context.Context, owner, name string) (*models.Build, error) {
	row := db.conn.QueryRowContext(ctx, db.q("SELECT "+buildColumns+" FROM builds WHERE owner = ? AND name = ?"), owner, name)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrBuildNotFound, name)
	}
	return b, err
}

// ResolveBuild accepts a numeric id or the name of one of owner's builds.
func (db *DB) ResolveBuild(ctx context.Context, ref, owner string) (*models.Build, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return db.GetBuild(ctx, id)
	}
	return db.GetBuildByName(ctx, owner, ref)
}

// UpdateBuildData replaces the serialized build of a build owned by owner.
func (db *DB) UpdateBuildData(ctx context.Context, id int64, owner, data string) error {
	return db.updateOwned(ctx, id, owner, "data = ?", data)
}

// UpdateBuildPublic changes the visibility of a build owned by owner.
func (db *DB) UpdateBuildPublic(ctx context.Context, id int64, owner string, public bool) error {
	return db.updateOwned(ctx, id, owner, "public = ?", public)
}

func (db *DB) updateOwned(ctx context.Context, id int64, owner, set string, value any) error {
	b, err := db.GetBuild(ctx, id)
	if err != nil {
		return err
	}
	if b.Owner != owner {
		return ErrNotOwner
	}
	query := fmt.Sprintf("UPDATE builds SET %s, updated_at = %s WHERE id = ? AND owner = ?", set, db.now())
	_, err = db.conn.ExecContext(ctx, db.q(query), value, id, owner)
	return err
}

// DeleteBuild removes a build owned by owner and returns its name.
func (db *DB) DeleteBuild(ctx context.Context, id int64, owner string) (string, error) {
	b, err := db.GetBuild(ctx, id)
	if err != nil {
		return "", err
	}
	if b.Owner != owner {
		return "", ErrNotOwner
	}
	if _, err := db.conn.ExecContext(ctx, db.q("DELETE FROM builds WHERE id = ? AND owner = ?"), id, owner); err != nil {
		return "", err
	}
	log.Info().Int64("id", id).Str("owner", owner).Str("name", b.Name).Msg("build deleted")
	return b.Name, nil
}

func (db *DB) ListBuildsByOwner(ctx context.Context, owner string) ([]models.Build, error) {
	return db.listBuilds(ctx, db.q("SELECT "+buildColumns+" FROM builds WHERE owner = ? ORDER BY name"), owner)
}

func (db *DB) ListPublicBuilds(ctx context.Context, limit int) ([]models.Build, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM builds WHERE public = ? ORDER BY updated_at DESC, id DESC LIMIT %d", buildColumns, limit)
	return db.listBuilds(ctx, db.q(query), true)
}

func (db *DB) listBuilds(ctx context.Context, query string, args ...any) ([]models.Build, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []models.Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, *b)
	}
	return builds, rows.Err()
}

// BuildReadAccess reports whether user may read the build: owners always
// can, everyone else only when the build is public.
func (db *DB) BuildReadAccess(ctx context.Context, id int64, user string) (bool, error) {
	b, err := db.GetBuild(ctx, id)
	if err != nil {
		return false, err
	}
	return b.Public || b.Owner == user, nil
}

// --- Settings Operations ---

func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, db.q("SELECT value FROM app_settings WHERE key = ?"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil // Key not found = empty
	}
	return value, err
}

func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	query := "INSERT INTO app_settings (key, value) VALUES (?, ?) " + db.onConflictUpdate("key", "value=excluded.value")
	_, err := db.conn.ExecContext(ctx, db.q(query), key, value)
	return err
}

func (db *DB) DeleteSetting(ctx context.Context, key string) error {
	_, err := db.conn.ExecContext(ctx, db.q("DELETE FROM app_settings WHERE key = ?"), key)
	return err
}

const (
	settingLLMProvider = "llm_provider"
	settingLLMAPIKey   = "llm_api_key"
	settingLLMModel    = "llm_model"
)

// GetLLMConfig returns the stored LLM configuration, or nil when none is set.
func (db *DB) GetLLMConfig(ctx context.Context) (*models.LLMConfig, error) {
	var cfg models.LLMConfig
	for key, dst := range map[string]*string{
		settingLLMProvider: &cfg.Provider,
		settingLLMAPIKey:   &cfg.EncryptedAPIKey,
		settingLLMModel:    &cfg.Model,
	} {
		v, err := db.GetSetting(ctx, key)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	if cfg.Provider == "" {
		return nil, nil
	}
	return &cfg, nil
}

func (db *DB) SetLLMConfig(ctx context.Context, cfg models.LLMConfig) error {
	for _, kv := range [][2]string{
		{settingLLMProvider, cfg.Provider},
		{settingLLMAPIKey, cfg.EncryptedAPIKey},
		{settingLLMModel, cfg.Model},
	} {
		if err := db.SetSetting(ctx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) ClearLLMConfig(ctx context.Context) error {
	for _, key := range []string{settingLLMProvider, settingLLMAPIKey, settingLLMModel} {
		if err := db.DeleteSetting(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// --- Sync History Operations ---

func (db *DB) InsertSyncHistory(ctx context.Context, source string) (int, error) {
	query := fmt.Sprintf(`INSERT INTO sync_history (source, status, started_at) VALUES (?, 'running', %s)`, db.now())
	id, err := db.insertReturningID(ctx, query, source)
	return int(id), err
}

func (db *DB) UpdateSyncHistory(ctx context.Context, id int, status, version string, count int, errMsg string) error {
	query := fmt.Sprintf("UPDATE sync_history SET status = ?, version = ?, record_count = ?, error_message = ?, completed_at = %s WHERE id = ?", db.now())
	_, err := db.conn.ExecContext(ctx, db.q(query), status, version, count, errMsg, id)
	return err
}

func (db *DB) GetLatestSyncHistory(ctx context.Context, limit int) ([]models.SyncHistory, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, source, status, version, record_count, error_message, started_at, completed_at
		FROM sync_history ORDER BY started_at DESC, id DESC LIMIT %d`, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.SyncHistory
	for rows.Next() {
		var h models.SyncHistory
		var version, errMsg sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&h.ID, &h.Source, &h.Status, &version, &h.RecordCount, &errMsg,
			&h.StartedAt, &completedAt); err != nil {
			return nil, err
		}
		h.Version = version.String
		h.ErrorMessage = errMsg.String
		if completedAt.Valid {
			h.CompletedAt = &completedAt.Time
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// replacePlaceholders converts ? to $1, $2, etc. for PostgreSQL
func replacePlaceholders(query string) string {
	result := make([]byte, 0, len(query)+10)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(n), 10)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

// --- AI Analysis Operations ---

// SaveAIAnalysis stores a new AI build analysis
func (db *DB) SaveAIAnalysis(ctx context.Context, owner, provider, model string, buildCount int, analysis string) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO ai_analyses (owner, provider, model, build_count, analysis, created_at) VALUES (?, ?, ?, ?, ?, %s)`, db.now())
	return db.insertReturningID(ctx, query, owner, provider, model, buildCount, analysis)
}

// GetLatestAIAnalysis retrieves the most recent AI analysis of owner
func (db *DB) GetLatestAIAnalysis(ctx context.Context, owner string) (*models.AIAnalysis, error) {
	query := db.q(`SELECT id, owner, created_at, provider, model, build_count, analysis FROM ai_analyses WHERE owner = ? ORDER BY created_at DESC, id DESC LIMIT 1`)

	var a models.AIAnalysis
	err := db.conn.QueryRowContext(ctx, query, owner).Scan(&a.ID, &a.Owner, &a.CreatedAt, &a.Provider, &a.Model, &a.BuildCount, &a.Analysis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAIAnalysisHistory retrieves the analyses of owner, newest first
func (db *DB) GetAIAnalysisHistory(ctx context.Context, owner string, limit int) ([]models.AIAnalysis, error) {
	if limit <= 0 {
		limit = 50
	}
	query := db.q(fmt.Sprintf(`SELECT id, owner, created_at, provider, model, build_count, analysis FROM ai_analyses WHERE owner = ? ORDER BY created_at DESC, id DESC LIMIT %d`, limit))

	rows, err := db.conn.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []models.AIAnalysis
	for rows.Next() {
		var a models.AIAnalysis
		if err := rows.Scan(&a.ID, &a.Owner, &a.CreatedAt, &a.Provider, &a.Model, &a.BuildCount, &a.Analysis); err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// DeleteAIAnalysis deletes one of owner's analyses
func (db *DB) DeleteAIAnalysis(ctx context.Context, id int64, owner string) error {
	_, err := db.conn.ExecContext(ctx, db.q(`DELETE FROM ai_analyses WHERE id = ? AND owner = ?`), id, owner)
	return err
}
