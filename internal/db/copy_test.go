package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "developer_scores", []string{"ticker", "result"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"developer_scores"}, []string{"ticker", "result"}).WillReturnResult(3)

	rows := [][]any{{"C09", "{}"}, {"H13", "{}"}, {"M35", "{}"}}
	n, err := CopyFrom(context.Background(), mock, "developer_scores", []string{"ticker", "result"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"developer_scores"}, []string{"ticker", "result"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"C09", "{}"}}
	_, err = CopyFrom(context.Background(), mock, "developer_scores", []string{"ticker", "result"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO developer_scores")
	assert.NoError(t, mock.ExpectationsWereMet())
}
