package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sgdevmon/devhealth-cli/internal/model"
)

// LoadRoster reads the listed-developer roster CSV. The scraping symbol
// column wins over the raw SGX ticker when both are present.
func LoadRoster(path string) ([]model.RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open roster %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read roster header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var roster []model.RosterEntry
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read roster row")
		}

		ticker := field(row, "stockanalysis_symbol")
		if ticker == "" {
			ticker = field(row, "sgx_ticker")
		}
		roster = append(roster, model.RosterEntry{
			Ticker:    strings.ToUpper(ticker),
			Name:      field(row, "company_name"),
			RatiosURL: field(row, "stockanalysis_ratios_url"),
		})
	}
	return roster, nil
}
