package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nzvengeance/gsf-buildbot/internal/config"
	"github.com/nzvengeance/gsf-buildbot/internal/models"
)

func newTestDB(t *testing.T, driver string) *DB {
	t.Helper()
	db, err := New(&config.Config{DBDriver: driver, DBPath: ":memory:"})
	if err != nil {
		if driver == "sqlite" && strings.Contains(err.Error(), "cgo") {
			t.Skip("go-sqlite3 needs cgo")
		}
		t.Fatalf("New(%s): %v", driver, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// forEachDriver runs fn against both embedded SQLite drivers.
func forEachDriver(t *testing.T, fn func(t *testing.T, db *DB)) {
	for _, driver := range []string{"sqlite-pure", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			fn(t, newTestDB(t, driver))
		})
	}
}

func TestReplacePlaceholders(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"WHERE id = ?", "WHERE id = $1"},
		{"VALUES (?, ?, ?)", "VALUES ($1, $2, $3)"},
	}
	for _, tt := range tests {
		if got := replacePlaceholders(tt.in); got != tt.want {
			t.Errorf("replacePlaceholders(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewUnsupportedDriver(t *testing.T) {
	if _, err := New(&config.Config{DBDriver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := New(&config.Config{DBDriver: "postgres"}); err == nil {
		t.Fatal("expected error for postgres without DATABASE_URL")
	}
}

func TestBuildLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()

		id, err := db.InsertBuild(ctx, "pilot#1", "sting", "Imperial_S_Sting;", false)
		if err != nil {
			t.Fatalf("InsertBuild: %v", err)
		}
		if id <= 0 {
			t.Fatalf("id = %d", id)
		}

		if _, err := db.InsertBuild(ctx, "pilot#1", "sting", "x", false); !errors.Is(err, ErrDuplicateBuild) {
			t.Errorf("duplicate insert err = %v, want ErrDuplicateBuild", err)
		}
		// Another owner may reuse the name.
		otherID, err := db.InsertBuild(ctx, "pilot#2", "sting", "Imperial_S_Sting;", true)
		if err != nil {
			t.Fatalf("InsertBuild other owner: %v", err)
		}

		b, err := db.GetBuild(ctx, id)
		if err != nil {
			t.Fatalf("GetBuild: %v", err)
		}
		if b.Owner != "pilot#1" || b.Name != "sting" || b.Public {
			t.Errorf("GetBuild = %+v", b)
		}
		if b.CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}

		if err := db.UpdateBuildData(ctx, id, "pilot#1", "Imperial_S_Sting;primary/Laser Cannon/1;"); err != nil {
			t.Fatalf("UpdateBuildData: %v", err)
		}
		if err := db.UpdateBuildData(ctx, id, "pilot#2", "x"); !errors.Is(err, ErrNotOwner) {
			t.Errorf("UpdateBuildData by other owner err = %v, want ErrNotOwner", err)
		}
		if err := db.UpdateBuildPublic(ctx, id, "pilot#1", true); err != nil {
			t.Fatalf("UpdateBuildPublic: %v", err)
		}

		b, err = db.GetBuildByName(ctx, "pilot#1", "sting")
		if err != nil {
			t.Fatalf("GetBuildByName: %v", err)
		}
		if !b.Public || !strings.Contains(b.Data, "Laser Cannon") {
			t.Errorf("after updates = %+v", b)
		}

		public, err := db.ListPublicBuilds(ctx, 10)
		if err != nil {
			t.Fatalf("ListPublicBuilds: %v", err)
		}
		if len(public) != 2 {
			t.Errorf("public builds = %d, want 2", len(public))
		}

		mine, err := db.ListBuildsByOwner(ctx, "pilot#2")
		if err != nil {
			t.Fatalf("ListBuildsByOwner: %v", err)
		}
		if len(mine) != 1 || mine[0].ID != otherID {
			t.Errorf("ListBuildsByOwner = %+v", mine)
		}

		if _, err := db.DeleteBuild(ctx, id, "pilot#2"); !errors.Is(err, ErrNotOwner) {
			t.Errorf("DeleteBuild by other owner err = %v, want ErrNotOwner", err)
		}
		name, err := db.DeleteBuild(ctx, id, "pilot#1")
		if err != nil {
			t.Fatalf("DeleteBuild: %v", err)
		}
		if name != "sting" {
			t.Errorf("DeleteBuild name = %q", name)
		}
		if _, err := db.GetBuild(ctx, id); !errors.Is(err, ErrBuildNotFound) {
			t.Errorf("GetBuild after delete err = %v, want ErrBuildNotFound", err)
		}
		if _, err := db.DeleteBuild(ctx, id, "pilot#1"); !errors.Is(err, ErrBuildNotFound) {
			t.Errorf("second DeleteBuild err = %v, want ErrBuildNotFound", err)
		}
	})
}

func TestResolveBuildAndAccess(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		private, _ := db.InsertBuild(ctx, "a", "private", "d", false)
		shared, _ := db.InsertBuild(ctx, "a", "shared", "d", true)

		b, err := db.ResolveBuild(ctx, "shared", "a")
		if err != nil || b.ID != shared {
			t.Errorf("ResolveBuild by name = %+v, %v", b, err)
		}
		b, err = db.ResolveBuild(ctx, " 1 ", "b")
		if err != nil || b.ID != private {
			t.Errorf("ResolveBuild by id = %+v, %v", b, err)
		}
		if _, err := db.ResolveBuild(ctx, "shared", "b"); !errors.Is(err, ErrBuildNotFound) {
			t.Errorf("ResolveBuild other owner's name err = %v", err)
		}

		tests := []struct {
			id   int64
			user string
			want bool
		}{
			{private, "a", true},
			{private, "b", false},
			{shared, "b", true},
		}
		for _, tt := range tests {
			got, err := db.BuildReadAccess(ctx, tt.id, tt.user)
			if err != nil {
				t.Fatalf("BuildReadAccess: %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildReadAccess(%d, %s) = %v, want %v", tt.id, tt.user, got, tt.want)
			}
		}
		if _, err := db.BuildReadAccess(ctx, 999, "a"); !errors.Is(err, ErrBuildNotFound) {
			t.Errorf("BuildReadAccess missing err = %v", err)
		}
	})
}

func TestSettingsAndLLMConfig(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()

		v, err := db.GetSetting(ctx, "missing")
		if err != nil || v != "" {
			t.Errorf("GetSetting(missing) = %q, %v", v, err)
		}
		if err := db.SetSetting(ctx, "k", "1"); err != nil {
			t.Fatal(err)
		}
		if err := db.SetSetting(ctx, "k", "2"); err != nil {
			t.Fatal(err)
		}
		if v, _ := db.GetSetting(ctx, "k"); v != "2" {
			t.Errorf("upserted setting = %q, want 2", v)
		}

		cfg, err := db.GetLLMConfig(ctx)
		if err != nil || cfg != nil {
			t.Fatalf("GetLLMConfig empty = %+v, %v", cfg, err)
		}
		want := models.LLMConfig{Provider: "openai", EncryptedAPIKey: "ciphertext", Model: "gpt-4o"}
		if err := db.SetLLMConfig(ctx, want); err != nil {
			t.Fatal(err)
		}
		cfg, err = db.GetLLMConfig(ctx)
		if err != nil || cfg == nil || *cfg != want {
			t.Errorf("GetLLMConfig = %+v, %v", cfg, err)
		}
		if err := db.ClearLLMConfig(ctx); err != nil {
			t.Fatal(err)
		}
		if cfg, _ := db.GetLLMConfig(ctx); cfg != nil {
			t.Errorf("GetLLMConfig after clear = %+v", cfg)
		}
	})
}

func TestSyncHistory(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()

		first, err := db.InsertSyncHistory(ctx, "catalog")
		if err != nil {
			t.Fatal(err)
		}
		if err := db.UpdateSyncHistory(ctx, first, "success", "abc", 3, ""); err != nil {
			t.Fatal(err)
		}
		second, _ := db.InsertSyncHistory(ctx, "catalog")
		if err := db.UpdateSyncHistory(ctx, second, "error", "", 0, "bad json"); err != nil {
			t.Fatal(err)
		}

		history, err := db.GetLatestSyncHistory(ctx, 5)
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != 2 {
			t.Fatalf("history len = %d", len(history))
		}
		if history[0].ID != second || history[0].ErrorMessage != "bad json" {
			t.Errorf("latest = %+v", history[0])
		}
		if history[1].Version != "abc" || history[1].RecordCount != 3 || history[1].CompletedAt == nil {
			t.Errorf("first = %+v", history[1])
		}
	})
}

func TestAIAnalyses(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()

		if a, err := db.GetLatestAIAnalysis(ctx, "a"); err != nil || a != nil {
			t.Fatalf("GetLatestAIAnalysis empty = %+v, %v", a, err)
		}
		db.SaveAIAnalysis(ctx, "a", "openai", "gpt-4o", 2, "first")
		id, err := db.SaveAIAnalysis(ctx, "a", "openai", "gpt-4o", 3, "second")
		if err != nil {
			t.Fatal(err)
		}
		db.SaveAIAnalysis(ctx, "b", "google", "gemini", 1, "other")

		latest, err := db.GetLatestAIAnalysis(ctx, "a")
		if err != nil || latest == nil || latest.Analysis != "second" {
			t.Errorf("GetLatestAIAnalysis = %+v, %v", latest, err)
		}
		history, _ := db.GetAIAnalysisHistory(ctx, "a", 10)
		if len(history) != 2 {
			t.Errorf("history len = %d, want 2", len(history))
		}

		// Deleting as another owner is a no-op.
		db.DeleteAIAnalysis(ctx, id, "b")
		if history, _ := db.GetAIAnalysisHistory(ctx, "a", 10); len(history) != 2 {
			t.Errorf("foreign delete removed a row")
		}
		db.DeleteAIAnalysis(ctx, id, "a")
		if history, _ := db.GetAIAnalysisHistory(ctx, "a", 10); len(history) != 1 {
			t.Errorf("history after delete = %d, want 1", len(history))
		}
	})
}
