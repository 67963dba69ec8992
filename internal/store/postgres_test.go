package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgdevmon/devhealth-cli/internal/scoring"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_CreateScoreRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO score_runs`).
		WithArgs(pgxmock.AnyArg(), "hash1234", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateScoreRun(context.Background(), "hash1234")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "hash1234", run.PolicyHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteScoreRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE score_runs SET completed_at`).
		WithArgs(pgxmock.AnyArg(), 3, "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteScoreRun(context.Background(), "missing-run", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScoreRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	startedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	completedAt := startedAt.Add(time.Minute)
	mock.ExpectQuery(`SELECT id, policy_hash, started_at, completed_at, developer_count`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "policy_hash", "started_at", "completed_at", "developer_count"}).
			AddRow("run-1", "hash1234", startedAt, &completedAt, 12))

	run, err := s.GetScoreRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "hash1234", run.PolicyHash)
	assert.Equal(t, 12, run.DeveloperCount)
	require.NotNil(t, run.CompletedAt)
	assert.True(t, run.CompletedAt.Equal(completedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestScoreRun_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, policy_hash, started_at, completed_at, developer_count`).
		WillReturnError(pgx.ErrNoRows)

	run, err := s.LatestScoreRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScores_UsesCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"developer_scores"},
		[]string{"run_id", "ticker", "name", "result"}).
		WillReturnResult(2)

	scores := []DeveloperScore{
		{RunID: "run-1", Ticker: "C09", Name: "CityLand Development", Result: scoring.Result{HealthStatus: scoring.StatusGreen}},
		{RunID: "run-1", Ticker: "H13", Name: "Harbour Trust", Result: scoring.Result{HealthStatus: scoring.StatusPending}},
	}
	require.NoError(t, s.SaveScores(context.Background(), scores))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDeveloperScore_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT run_id, ticker, name, result FROM developer_scores`).
		WithArgs("run-1", "ZZZ").
		WillReturnError(pgx.ErrNoRows)

	score, err := s.GetDeveloperScore(context.Background(), "run-1", "ZZZ")
	require.NoError(t, err)
	assert.Nil(t, score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveHistory_Upserts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "developer_ratios"`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	history := sampleHistory(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	history.Developers = history.Developers[:1]
	require.NoError(t, s.SaveHistory(context.Background(), history))
	assert.NoError(t, mock.ExpectationsWereMet())
}
