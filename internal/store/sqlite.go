package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sgdevmon/devhealth-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS developer_ratios (
	ticker     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	source     TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS score_runs (
	id              TEXT PRIMARY KEY,
	policy_hash     TEXT NOT NULL,
	started_at      DATETIME NOT NULL,
	completed_at    DATETIME,
	developer_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS developer_scores (
	run_id TEXT NOT NULL REFERENCES score_runs(id),
	ticker TEXT NOT NULL,
	name   TEXT NOT NULL,
	result TEXT NOT NULL,
	PRIMARY KEY (run_id, ticker)
);

CREATE INDEX IF NOT EXISTS idx_score_runs_started_at ON score_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_developer_scores_ticker ON developer_scores(ticker);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveHistory(ctx context.Context, history *model.RatiosHistory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save history")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, dev := range history.Developers {
		payload, err := json.Marshal(dev)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal developer %s", dev.Ticker)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO developer_ratios (ticker, name, payload, source, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(ticker) DO UPDATE SET
			   name = excluded.name, payload = excluded.payload,
			   source = excluded.source, updated_at = excluded.updated_at`,
			dev.Ticker, dev.Name, string(payload), history.Source, history.UpdatedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert developer %s", dev.Ticker)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save history")
}

func (s *SQLiteStore) LatestHistory(ctx context.Context) (*model.RatiosHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload, source, updated_at FROM developer_ratios ORDER BY ticker`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load history")
	}
	defer rows.Close()

	var history *model.RatiosHistory
	for rows.Next() {
		var payload, source string
		var updatedAt time.Time
		if err := rows.Scan(&payload, &source, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan developer")
		}
		var dev model.Developer
		if err := json.Unmarshal([]byte(payload), &dev); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal developer")
		}
		if history == nil {
			history = &model.RatiosHistory{Source: source}
		}
		if updatedAt.After(history.UpdatedAt) {
			history.UpdatedAt = updatedAt
		}
		history.Developers = append(history.Developers, dev)
	}
	return history, eris.Wrap(rows.Err(), "sqlite: load history iterate")
}

func (s *SQLiteStore) CreateScoreRun(ctx context.Context, policyHash string) (*ScoreRun, error) {
	run := &ScoreRun{
		ID:         uuid.New().String(),
		PolicyHash: policyHash,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO score_runs (id, policy_hash, started_at) VALUES (?, ?, ?)`,
		run.ID, run.PolicyHash, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert score run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteScoreRun(ctx context.Context, runID string, developerCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE score_runs SET completed_at = ?, developer_count = ? WHERE id = ?`,
		time.Now().UTC(), developerCount, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete score run %s", runID)
	}
	return checkRowsAffected(res, "score run", runID)
}

func (s *SQLiteStore) GetScoreRun(ctx context.Context, runID string) (*ScoreRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy_hash, started_at, completed_at, developer_count
		 FROM score_runs WHERE id = ?`,
		runID,
	)
	return scanScoreRun(row)
}

func (s *SQLiteStore) LatestScoreRun(ctx context.Context) (*ScoreRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy_hash, started_at, completed_at, developer_count
		 FROM score_runs WHERE completed_at IS NOT NULL
		 ORDER BY started_at DESC LIMIT 1`,
	)
	run, err := scanScoreRun(row)
	if err == errRunNotFound {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) SaveScores(ctx context.Context, scores []DeveloperScore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save scores")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, score := range scores {
		resultJSON, err := json.Marshal(score.Result)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal score %s", score.Ticker)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO developer_scores (run_id, ticker, name, result)
			 VALUES (?, ?, ?, ?)`,
			score.RunID, score.Ticker, score.Name, string(resultJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert score %s", score.Ticker)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save scores")
}

func (s *SQLiteStore) ScoresForRun(ctx context.Context, runID string) ([]DeveloperScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, ticker, name, result FROM developer_scores
		 WHERE run_id = ? ORDER BY ticker`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list scores for run %s", runID)
	}
	defer rows.Close()

	var scores []DeveloperScore
	for rows.Next() {
		score, err := scanDeveloperScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)
	}
	return scores, eris.Wrap(rows.Err(), "sqlite: list scores iterate")
}

func (s *SQLiteStore) GetDeveloperScore(ctx context.Context, runID, ticker string) (*DeveloperScore, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, ticker, name, result FROM developer_scores
		 WHERE run_id = ? AND ticker = ?`,
		runID, ticker,
	)
	score, err := scanDeveloperScore(row)
	if err == errScoreNotFound {
		return nil, nil
	}
	return score, err
}

// helpers

var (
	errRunNotFound   = eris.New("score run not found")
	errScoreNotFound = eris.New("developer score not found")
)

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScoreRun(row scannable) (*ScoreRun, error) {
	var run ScoreRun
	var completedAt sql.NullTime

	err := row.Scan(&run.ID, &run.PolicyHash, &run.StartedAt, &completedAt, &run.DeveloperCount)
	if err == sql.ErrNoRows {
		return nil, errRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan score run")
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		run.CompletedAt = &t
	}
	return &run, nil
}

func scanDeveloperScore(row scannable) (*DeveloperScore, error) {
	var score DeveloperScore
	var resultJSON string

	err := row.Scan(&score.RunID, &score.Ticker, &score.Name, &resultJSON)
	if err == sql.ErrNoRows {
		return nil, errScoreNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan developer score")
	}
	if err := json.Unmarshal([]byte(resultJSON), &score.Result); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal score result")
	}
	return &score, nil
}
