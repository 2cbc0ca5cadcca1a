package models

import "time"

// --- Builds ---

// Build is a stored ship build. Data holds the serialized build string.
type Build struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Data      string    `json:"data"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BuildView is a build as returned by the API: the record plus the decoded
// slots.
type BuildView struct {
	Build
	ShipID   string            `json:"ship_id"`
	ShipName string            `json:"ship_name"`
	Faction  string            `json:"faction"`
	Category string            `json:"category"`
	Slots    map[string]string `json:"slots"`
	Crew     map[string]string `json:"crew"`
}

// --- Settings ---

// LLMConfig is the provider configuration for build write-ups. The API key is
// stored encrypted in app_settings.
type LLMConfig struct {
	Provider        string `json:"provider"`
	EncryptedAPIKey string `json:"-"`
	Model           string `json:"model,omitempty"`
}

// --- Sync & Audit ---

type SyncHistory struct {
	ID           int        `json:"id"`
	Source       string     `json:"source"`
	Status       string     `json:"status"`
	Version      string     `json:"version,omitempty"`
	RecordCount  int        `json:"record_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type AIAnalysis struct {
	ID         int64     `json:"id"`
	Owner      string    `json:"owner"`
	CreatedAt  time.Time `json:"created_at"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	BuildCount int       `json:"build_count"`
	Analysis   string    `json:"analysis"`
}

// --- Calculation Types ---

// TTKResponse is the answer to a time-to-kill request.
type TTKResponse struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	Shots         int      `json:"shots"`
	Time          float64  `json:"time"`
	Distance      float64  `json:"distance"`
	Weapon        string   `json:"weapon"`
	HitChance     float64  `json:"hit_chance,omitempty"`
	Accuracy      bool     `json:"accuracy"`
	SourceActives []string `json:"source_actives"`
	TargetActives []string `json:"target_actives"`
}

// --- Analysis Types ---

type BuildAnalysis struct {
	Overview  BuildOverview   `json:"overview"`
	Matchups  [][]MatchupCell `json:"matchups"`
	Summaries []BuildSummary  `json:"summaries"`
}

type BuildOverview struct {
	TotalBuilds    int            `json:"total_builds"`
	PublicBuilds   int            `json:"public_builds"`
	Distance       float64        `json:"distance"`
	ShipCategories map[string]int `json:"ship_categories"`
	Factions       map[string]int `json:"factions"`
	Ships          map[string]int `json:"ships"`
}

// MatchupCell is the time-to-kill of the row build against the column build.
// Error holds a short reason when no time could be computed.
type MatchupCell struct {
	SourceID int64   `json:"source_id"`
	TargetID int64   `json:"target_id"`
	Shots    int     `json:"shots,omitempty"`
	Time     float64 `json:"time,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// BuildSummary condenses one matrix row: the fastest and slowest kill and
// the number of opponents the build cannot kill at all.
type BuildSummary struct {
	BuildID    int64    `json:"build_id"`
	Name       string   `json:"name"`
	Ship       string   `json:"ship"`
	BestVs     *Matchup `json:"best_vs,omitempty"`
	WorstVs    *Matchup `json:"worst_vs,omitempty"`
	CannotKill int      `json:"cannot_kill"`
}

type Matchup struct {
	BuildID int64   `json:"build_id"`
	Name    string  `json:"name"`
	Time    float64 `json:"time"`
}
