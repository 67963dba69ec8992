// Package ingest loads the developer roster and captures per-developer
// financial ratio history from the upstream ratios pages.
package ingest

import (
	"github.com/sgdevmon/devhealth-cli/internal/model"
)

// metricMeta describes one metric of the fixed upstream schema.
type metricMeta struct {
	Label   string
	Aliases []string
	Unit    string
}

// metricSchema is the fixed set of ratios captured per developer. Row labels
// on the upstream page drift over time, hence the alias lists.
var metricSchema = map[string]metricMeta{
	"marketCap":       {Label: "Market Capitalization", Aliases: []string{"Market Capitalization"}, Unit: "millions SGD"},
	"netDebtToEbitda": {Label: "Net Debt / EBITDA Ratio", Aliases: []string{"Net Debt / EBITDA Ratio", "Net Debt / EBITDA"}},
	"debtToEquity":    {Label: "Debt / Equity Ratio", Aliases: []string{"Debt / Equity Ratio", "Debt / Equity"}},
	"netDebtToEquity": {Label: "Net Debt / Equity Ratio", Aliases: []string{"Net Debt / Equity Ratio", "Net Debt / Equity"}},
	"debtToEbitda":    {Label: "Debt / EBITDA Ratio", Aliases: []string{"Debt / EBITDA Ratio", "Debt / EBITDA"}},
	"quickRatio":      {Label: "Quick Ratio", Aliases: []string{"Quick Ratio"}},
	"currentRatio":    {Label: "Current Ratio", Aliases: []string{"Current Ratio"}},
	"roic":            {Label: "ROIC", Aliases: []string{"ROIC", "Return on Invested Capital (ROIC)"}},
	"roe":             {Label: "ROE", Aliases: []string{"ROE", "Return on Equity (ROE)"}},
	"payoutRatio":     {Label: "Payout Ratio", Aliases: []string{"Payout Ratio"}},
	"assetTurnover":   {Label: "Asset Turnover", Aliases: []string{"Asset Turnover", "Asset Turnover Ratio"}},
}

// aliasLookup maps normalized row labels to metric keys.
var aliasLookup = buildAliasLookup()

func buildAliasLookup() map[string]string {
	lookup := make(map[string]string)
	for key, meta := range metricSchema {
		for _, alias := range meta.Aliases {
			lookup[normalizeLabel(alias)] = key
		}
	}
	return lookup
}

// emptyMetrics returns a fresh metrics map with every schema key present and
// no values, so downstream consumers see a stable shape even on fetch errors.
func emptyMetrics() map[string]model.MetricSeries {
	metrics := make(map[string]model.MetricSeries, len(metricSchema))
	for key, meta := range metricSchema {
		metrics[key] = model.MetricSeries{
			Label:     meta.Label,
			Unit:      meta.Unit,
			Values:    make(map[string]*float64),
			RawValues: make(map[string]string),
		}
	}
	return metrics
}
