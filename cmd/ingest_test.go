package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgdevmon/devhealth-cli/internal/model"
)

func TestWriteHistoryArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "history.json")
	history := &model.RatiosHistory{
		UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Source:    "stockanalysis",
		Developers: []model.Developer{
			{Ticker: "C09", Name: "CityLand Development", FetchStatus: model.FetchStatusOK},
		},
	}

	require.NoError(t, writeHistoryArtifact(path, history))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got model.RatiosHistory
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "stockanalysis", got.Source)
	require.Len(t, got.Developers, 1)
	assert.Equal(t, "C09", got.Developers[0].Ticker)
}
