package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_EmptyRows(t *testing.T) {
	n, err := Upsert(context.Background(), nil, UpsertConfig{
		Table:        "developer_ratios",
		Columns:      []string{"ticker", "payload"},
		ConflictKeys: []string{"ticker"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUpsert_NoColumns(t *testing.T) {
	_, err := Upsert(context.Background(), nil, UpsertConfig{
		Table:        "developer_ratios",
		ConflictKeys: []string{"ticker"},
	}, [][]any{{"C09", "{}"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestUpsert_NoConflictKeys(t *testing.T) {
	_, err := Upsert(context.Background(), nil, UpsertConfig{
		Table:   "developer_ratios",
		Columns: []string{"ticker", "payload"},
	}, [][]any{{"C09", "{}"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := UpsertConfig{
		Table:        "developer_ratios",
		Columns:      []string{"ticker", "name", "payload"},
		ConflictKeys: []string{"ticker"},
	}

	mock.ExpectExec(`INSERT INTO "developer_ratios"`).
		WithArgs("C09", "CityLand Development", "{}").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO "developer_ratios"`).
		WithArgs("H13", "Harbour Trust", "{}").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rows := [][]any{
		{"C09", "CityLand Development", "{}"},
		{"H13", "Harbour Trust", "{}"},
	}
	n, err := Upsert(context.Background(), mock, cfg, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RowArityMismatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = Upsert(context.Background(), mock, UpsertConfig{
		Table:        "developer_ratios",
		Columns:      []string{"ticker", "payload"},
		ConflictKeys: []string{"ticker"},
	}, [][]any{{"C09"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row has 1 values, want 2")
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"ticker", "name", "payload"})
	assert.Equal(t, `"ticker", "name", "payload"`, result)
}
