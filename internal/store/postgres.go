package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sgdevmon/devhealth-cli/internal/db"
	"github.com/sgdevmon/devhealth-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS developer_ratios (
	ticker     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	source     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS score_runs (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	policy_hash     TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ,
	developer_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS developer_scores (
	run_id TEXT NOT NULL REFERENCES score_runs(id),
	ticker TEXT NOT NULL,
	name   TEXT NOT NULL,
	result JSONB NOT NULL,
	PRIMARY KEY (run_id, ticker)
);

CREATE INDEX IF NOT EXISTS idx_score_runs_started_at ON score_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_developer_scores_ticker ON developer_scores(ticker);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveHistory(ctx context.Context, history *model.RatiosHistory) error {
	rows := make([][]any, 0, len(history.Developers))
	for _, dev := range history.Developers {
		payload, err := json.Marshal(dev)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal developer %s", dev.Ticker)
		}
		rows = append(rows, []any{dev.Ticker, dev.Name, string(payload), history.Source, history.UpdatedAt.UTC()})
	}

	_, err := db.Upsert(ctx, s.pool, db.UpsertConfig{
		Table:        "developer_ratios",
		Columns:      []string{"ticker", "name", "payload", "source", "updated_at"},
		ConflictKeys: []string{"ticker"},
	}, rows)
	return err
}

func (s *PostgresStore) LatestHistory(ctx context.Context) (*model.RatiosHistory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload, source, updated_at FROM developer_ratios ORDER BY ticker`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load history")
	}
	defer rows.Close()

	var history *model.RatiosHistory
	for rows.Next() {
		var payload []byte
		var source string
		var updatedAt time.Time
		if err := rows.Scan(&payload, &source, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan developer")
		}
		var dev model.Developer
		if err := json.Unmarshal(payload, &dev); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal developer")
		}
		if history == nil {
			history = &model.RatiosHistory{Source: source}
		}
		if updatedAt.After(history.UpdatedAt) {
			history.UpdatedAt = updatedAt
		}
		history.Developers = append(history.Developers, dev)
	}
	return history, eris.Wrap(rows.Err(), "postgres: load history iterate")
}

func (s *PostgresStore) CreateScoreRun(ctx context.Context, policyHash string) (*ScoreRun, error) {
	run := &ScoreRun{
		ID:         uuid.New().String(),
		PolicyHash: policyHash,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO score_runs (id, policy_hash, started_at) VALUES ($1, $2, $3)`,
		run.ID, run.PolicyHash, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert score run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteScoreRun(ctx context.Context, runID string, developerCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE score_runs SET completed_at = $1, developer_count = $2 WHERE id = $3`,
		time.Now().UTC(), developerCount, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete score run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("score run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetScoreRun(ctx context.Context, runID string) (*ScoreRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, policy_hash, started_at, completed_at, developer_count
		 FROM score_runs WHERE id = $1`,
		runID,
	)
	return scanPgScoreRun(row)
}

func (s *PostgresStore) LatestScoreRun(ctx context.Context) (*ScoreRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, policy_hash, started_at, completed_at, developer_count
		 FROM score_runs WHERE completed_at IS NOT NULL
		 ORDER BY started_at DESC LIMIT 1`,
	)
	run, err := scanPgScoreRun(row)
	if err == errRunNotFound {
		return nil, nil
	}
	return run, err
}

func (s *PostgresStore) SaveScores(ctx context.Context, scores []DeveloperScore) error {
	rows := make([][]any, 0, len(scores))
	for _, score := range scores {
		resultJSON, err := json.Marshal(score.Result)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal score %s", score.Ticker)
		}
		rows = append(rows, []any{score.RunID, score.Ticker, score.Name, string(resultJSON)})
	}

	_, err := db.CopyFrom(ctx, s.pool, "developer_scores",
		[]string{"run_id", "ticker", "name", "result"}, rows)
	return err
}

func (s *PostgresStore) ScoresForRun(ctx context.Context, runID string) ([]DeveloperScore, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, ticker, name, result FROM developer_scores
		 WHERE run_id = $1 ORDER BY ticker`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list scores for run %s", runID)
	}
	defer rows.Close()

	var scores []DeveloperScore
	for rows.Next() {
		score, err := scanPgDeveloperScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)
	}
	return scores, eris.Wrap(rows.Err(), "postgres: list scores iterate")
}

func (s *PostgresStore) GetDeveloperScore(ctx context.Context, runID, ticker string) (*DeveloperScore, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT run_id, ticker, name, result FROM developer_scores
		 WHERE run_id = $1 AND ticker = $2`,
		runID, ticker,
	)
	score, err := scanPgDeveloperScore(row)
	if err == errScoreNotFound {
		return nil, nil
	}
	return score, err
}

func scanPgScoreRun(row pgx.Row) (*ScoreRun, error) {
	var run ScoreRun
	var completedAt *time.Time

	err := row.Scan(&run.ID, &run.PolicyHash, &run.StartedAt, &completedAt, &run.DeveloperCount)
	if err == pgx.ErrNoRows {
		return nil, errRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan score run")
	}
	run.CompletedAt = completedAt
	return &run, nil
}

func scanPgDeveloperScore(row pgx.Row) (*DeveloperScore, error) {
	var score DeveloperScore
	var resultJSON []byte

	err := row.Scan(&score.RunID, &score.Ticker, &score.Name, &resultJSON)
	if err == pgx.ErrNoRows {
		return nil, errScoreNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan developer score")
	}
	if err := json.Unmarshal(resultJSON, &score.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal score result")
	}
	return &score, nil
}
