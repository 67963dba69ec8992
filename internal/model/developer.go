// Package model defines the shared domain types: the developer roster,
// per-developer financial ratio history, and the dashboard payload.
package model

import "time"

// PeriodCurrent is the period label for the most recent (TTM) column.
const PeriodCurrent = "Current"

// FetchStatus reports the outcome of a ratio ingestion attempt.
type FetchStatus string

const (
	FetchStatusOK      FetchStatus = "ok"
	FetchStatusPartial FetchStatus = "partial"
	FetchStatusError   FetchStatus = "error"
)

// MetricSeries holds one financial ratio for one developer across periods.
// Values maps a period label ("Current" or "FY <year>") to a numeric value,
// or nil when the upstream source had no usable number for that period.
type MetricSeries struct {
	Label     string              `json:"label"`
	Unit      string              `json:"unit,omitempty"`
	Values    map[string]*float64 `json:"values"`
	RawValues map[string]string   `json:"rawValues,omitempty"`
}

// Current returns the metric's "Current" period value, or nil.
func (m MetricSeries) Current() *float64 {
	return m.Values[PeriodCurrent]
}

// Period describes one reporting column of the upstream ratios table.
type Period struct {
	Label        string  `json:"label"`
	PeriodEnding *string `json:"periodEnding"`
}

// Developer is one roster entry plus its fetched ratio history.
type Developer struct {
	Ticker        string                  `json:"ticker"`
	Name          string                  `json:"name"`
	RatiosURL     string                  `json:"stockanalysis_ratios_url"`
	Periods       []Period                `json:"periods"`
	Metrics       map[string]MetricSeries `json:"metrics"`
	LastFetchedAt time.Time               `json:"lastFetchedAt"`
	FetchStatus   FetchStatus             `json:"fetchStatus"`
	FetchError    *string                 `json:"fetchError"`
}

// RatiosHistory is the persisted ingestion artifact: every roster developer
// with whatever ratio history could be captured.
type RatiosHistory struct {
	UpdatedAt  time.Time   `json:"updatedAt"`
	Source     string      `json:"source"`
	Developers []Developer `json:"developers"`
}

// RosterEntry is one row of the listed-developer roster CSV.
type RosterEntry struct {
	Ticker    string
	Name      string
	RatiosURL string
}
