package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ratiosPage = `<html><body>
<table>
  <tr><th>Something else</th><th>Whatever</th></tr>
  <tr><td>Noise</td><td>1</td></tr>
</table>
<table>
  <tr><th>Ratios</th><th>Current</th><th>FY 2024</th><th>FY 2023</th></tr>
  <tr><td>Period Ending</td><td>-</td><td>Dec 31, 2024</td><td>Dec 31, 2023</td></tr>
  <tr><td>Market Capitalization</td><td>5,432</td><td>5,100</td><td>4,800</td></tr>
  <tr><td>Net Debt / EBITDA</td><td>2.1</td><td>1.8</td><td>1.5</td></tr>
  <tr><td>Debt / Equity Ratio</td><td>1.2</td><td>1.1</td><td>0.9</td></tr>
  <tr><td>Current Ratio</td><td>1.6</td><td>1.7</td><td>1.9</td></tr>
  <tr><td>Return on Equity (ROE)</td><td>8.4%</td><td>9.1%</td><td>10.3%</td></tr>
  <tr><td>Payout Ratio</td><td>-</td><td>45%</td><td>40%</td></tr>
  <tr><td>Unrecognized Row</td><td>7</td><td>8</td><td>9</td></tr>
</table>
</body></html>`

func TestParseRatiosHTML(t *testing.T) {
	parsed, err := ParseRatiosHTML(ratiosPage)
	require.NoError(t, err)

	require.Len(t, parsed.Periods, 3)
	assert.Equal(t, "Current", parsed.Periods[0].Label)
	assert.Equal(t, "FY 2024", parsed.Periods[1].Label)
	require.NotNil(t, parsed.Periods[1].PeriodEnding)
	assert.Equal(t, "Dec 31, 2024", *parsed.Periods[1].PeriodEnding)

	// Every schema key is present even when the page had no row for it.
	assert.Len(t, parsed.Metrics, len(metricSchema))

	nde := parsed.Metrics["netDebtToEbitda"]
	require.NotNil(t, nde.Values["Current"])
	assert.InDelta(t, 2.1, *nde.Values["Current"], 1e-9)
	require.NotNil(t, nde.Values["FY 2023"])
	assert.InDelta(t, 1.5, *nde.Values["FY 2023"], 1e-9)

	roe := parsed.Metrics["roe"]
	require.NotNil(t, roe.Values["Current"])
	assert.InDelta(t, 8.4, *roe.Values["Current"], 1e-9)

	payout := parsed.Metrics["payoutRatio"]
	assert.Nil(t, payout.Values["Current"])
	require.NotNil(t, payout.Values["FY 2024"])
	assert.InDelta(t, 45, *payout.Values["FY 2024"], 1e-9)
	assert.Equal(t, "-", payout.RawValues["Current"])

	// Rows without a schema alias are dropped.
	quick := parsed.Metrics["quickRatio"]
	assert.Empty(t, quick.Values)
}

func TestParseRatiosHTMLNoTable(t *testing.T) {
	_, err := ParseRatiosHTML(`<html><body><p>maintenance page</p></body></html>`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to locate ratios table")
}

func TestParseRatiosHTMLHeaderFallback(t *testing.T) {
	// No "Ratios" label: the header row is found by its "Current" column.
	page := `<table>
	  <tr><th></th><th>Current</th><th>2024</th></tr>
	  <tr><td>Quick Ratio</td><td>0.9</td><td>1.0</td></tr>
	</table>`

	parsed, err := ParseRatiosHTML(page)
	require.NoError(t, err)
	require.Len(t, parsed.Periods, 2)
	assert.Equal(t, "FY 2024", parsed.Periods[1].Label)

	quick := parsed.Metrics["quickRatio"]
	require.NotNil(t, quick.Values["Current"])
	assert.InDelta(t, 0.9, *quick.Values["Current"], 1e-9)
}
