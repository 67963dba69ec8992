package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyValid(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
}

func TestPolicyValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr string
	}{
		{
			name: "equal good and bad",
			mutate: func(p *Policy) {
				p.Thresholds["debtToEquity"] = Threshold{Direction: HigherWorse, Good: 1, Bad: 1}
			},
			wantErr: "good must differ from bad",
		},
		{
			name: "weights not summing to one",
			mutate: func(p *Policy) {
				p.PillarWeights["leverage"] = 0.5
			},
			wantErr: "must sum to 1.00",
		},
		{
			name: "negative weight",
			mutate: func(p *Policy) {
				p.PillarWeights["leverage"] = -0.35
			},
			wantErr: "weight must be >= 0",
		},
		{
			name: "single aggregation with two metrics",
			mutate: func(p *Policy) {
				p.Pillars["liquidity"] = PillarDef{
					MetricKeys:  []string{"currentRatio", "quickRatio"},
					Aggregation: AggSingle,
				}
			},
			wantErr: "requires exactly one metric",
		},
		{
			name: "pillar metric without threshold",
			mutate: func(p *Policy) {
				p.Pillars["liquidity"] = PillarDef{
					MetricKeys:  []string{"cashConversion"},
					Aggregation: AggSingle,
				}
			},
			wantErr: "has no threshold",
		},
		{
			name:    "softening out of range",
			mutate:  func(p *Policy) { p.NetCashSoftening = 1.2 },
			wantErr: "net_cash_softening",
		},
		{
			name:    "bands inverted",
			mutate:  func(p *Policy) { p.GreenBand = 40 },
			wantErr: "green_band must be > amber_band",
		},
		{
			name:    "coverage threshold out of range",
			mutate:  func(p *Policy) { p.CoverageThreshold = 1.5 },
			wantErr: "coverage_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReferenceMetrics(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t,
		[]string{"debtToEbitda", "netDebtToEquity", "quickRatio"},
		p.referenceMetrics())
}

func TestPolicyHashStable(t *testing.T) {
	a := DefaultPolicy()
	b := DefaultPolicy()

	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 32)

	b.TrendCap = 20
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestLoadPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policy:
  trend_cap: 20
  green_band: 75
`), 0o644))

	p, err := LoadPolicyFile(path)
	require.NoError(t, err)

	// Overrides applied, defaults preserved.
	assert.Equal(t, 20.0, p.TrendCap)
	assert.Equal(t, 75, p.GreenBand)
	assert.Equal(t, DefaultPolicy().CoverageThreshold, p.CoverageThreshold)
	assert.Len(t, p.Pillars, 3)
}

func TestLoadPolicyFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
policy:
  green_band: 10
`), 0o644))

	_, err := LoadPolicyFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "green_band")
}

func TestLoadPolicyFileMissing(t *testing.T) {
	_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
