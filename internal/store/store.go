// Package store persists captured ratio history and scoring outcomes.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sgdevmon/devhealth-cli/internal/model"
	"github.com/sgdevmon/devhealth-cli/internal/scoring"
)

// ScoreRun is one scoring batch over the roster.
type ScoreRun struct {
	ID             string     `json:"id"`
	PolicyHash     string     `json:"policyHash"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	DeveloperCount int        `json:"developerCount"`
}

// DeveloperScore is one developer's outcome within a score run.
type DeveloperScore struct {
	RunID  string         `json:"runId"`
	Ticker string         `json:"ticker"`
	Name   string         `json:"name"`
	Result scoring.Result `json:"result"`
}

// Store defines the persistence interface shared by the SQLite and
// Postgres backends.
type Store interface {
	// Ratio history
	SaveHistory(ctx context.Context, history *model.RatiosHistory) error
	LatestHistory(ctx context.Context) (*model.RatiosHistory, error)

	// Score runs
	CreateScoreRun(ctx context.Context, policyHash string) (*ScoreRun, error)
	CompleteScoreRun(ctx context.Context, runID string, developerCount int) error
	GetScoreRun(ctx context.Context, runID string) (*ScoreRun, error)
	LatestScoreRun(ctx context.Context) (*ScoreRun, error)

	// Scores
	SaveScores(ctx context.Context, scores []DeveloperScore) error
	ScoresForRun(ctx context.Context, runID string) ([]DeveloperScore, error)
	GetDeveloperScore(ctx context.Context, runID, ticker string) (*DeveloperScore, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver, "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres", "postgresql":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
