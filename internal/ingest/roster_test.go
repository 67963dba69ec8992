package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeRoster(t, `company_name,sgx_ticker,stockanalysis_symbol,stockanalysis_ratios_url
CityLand Development,C09,sgx/C09,https://stockanalysis.com/quote/sgx/C09/financials/ratios/
Harbour Trust,H13,,https://stockanalysis.com/quote/sgx/H13/financials/ratios/
Meridian Estates,m35,sgx/M35,
`)

	roster, err := LoadRoster(path)
	require.NoError(t, err)
	require.Len(t, roster, 3)

	assert.Equal(t, "SGX/C09", roster[0].Ticker)
	assert.Equal(t, "CityLand Development", roster[0].Name)
	assert.Equal(t, "https://stockanalysis.com/quote/sgx/C09/financials/ratios/", roster[0].RatiosURL)

	// Falls back to the SGX ticker when no scraping symbol is given.
	assert.Equal(t, "H13", roster[1].Ticker)

	assert.Equal(t, "SGX/M35", roster[2].Ticker)
	assert.Empty(t, roster[2].RatiosURL)
}

func TestLoadRosterHeaderReordered(t *testing.T) {
	path := writeRoster(t, ` Stockanalysis_Symbol ,company_name
sgx/U14,United Landholdings
`)

	roster, err := LoadRoster(path)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "SGX/U14", roster[0].Ticker)
	assert.Equal(t, "United Landholdings", roster[0].Name)
}

func TestLoadRosterMissingFile(t *testing.T) {
	_, err := LoadRoster(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
