package scoring

import "time"

// Status is the banded health classification for a developer.
type Status string

const (
	StatusGreen   Status = "Green"
	StatusAmber   Status = "Amber"
	StatusRed     Status = "Red"
	StatusPending Status = "Pending data"
)

// noteInsufficientCoverage is the only failure state the engine produces.
const noteInsufficientCoverage = "Insufficient ratio coverage"

// Result is the immutable output of one scoring call. HealthScore is nil when
// available pillar weight falls below the policy's coverage threshold; the
// provisional computation is still reported in Components for diagnostics.
type Result struct {
	HealthScore   *int       `json:"healthScore"`
	HealthStatus  Status     `json:"healthStatus"`
	ScoreCoverage float64    `json:"scoreCoverage"`
	ScoreNote     *string    `json:"scoreNote"`
	Components    Components `json:"healthScoreComponents"`
	LastScoredAt  time.Time  `json:"lastScoredAt"`
}

// Components is the full explainability breakdown behind a Result.
type Components struct {
	StaticRiskScore      *float64                      `json:"staticRiskScore"`
	StaticHealthScore    *float64                      `json:"staticHealthScore"`
	TrendPenalty         float64                       `json:"trendPenalty"`
	FinalHealthScore     *int                          `json:"finalHealthScore"`
	ScoreCoverage        float64                       `json:"scoreCoverage"`
	MissingMetrics       []string                      `json:"missingMetrics"`
	ExcludedMetrics      []string                      `json:"excludedMetrics"`
	UsedMetrics          []string                      `json:"usedMetrics"`
	RiskByMetric         map[string]float64            `json:"riskByMetric"`
	PillarContributors   map[string]PillarContribution `json:"pillarContributors"`
	PillarRisks          map[string]*float64           `json:"pillarRisks"`
	MetricAdjustments    map[string]MetricAdjustment   `json:"metricAdjustments"`
	TrendBreakdown       map[string]TrendDetail        `json:"trendBreakdown"`
	RawTrendPenalty      float64                       `json:"rawTrendPenalty"`
	WorseningMetricCount int                           `json:"worseningMetricCount"`
}

// PillarContribution records how one available pillar entered the composite.
// WeightedRiskContribution values sum (within rounding) to StaticRiskScore.
type PillarContribution struct {
	MetricKeys               []string    `json:"metricKeys"`
	Aggregation              Aggregation `json:"aggregation"`
	PillarRiskScore          float64     `json:"pillarRiskScore"`
	WeightedRiskContribution float64     `json:"weightedRiskContribution"`
}

// SupportBand classifies the strength of corroborating support metrics when
// the negative-leverage gate fires.
type SupportBand string

const (
	SupportNone   SupportBand = "none"
	SupportStrong SupportBand = "strong"
	SupportMixed  SupportBand = "mixed"
	SupportWeak   SupportBand = "weak"
)

// MetricAdjustment records a risk override applied to one metric, with the
// rationale retained for explainability.
type MetricAdjustment struct {
	Rule               string      `json:"rule"`
	CurrentValue       float64     `json:"currentValue"`
	OriginalRisk       float64     `json:"originalRisk"`
	AdjustedRisk       float64     `json:"adjustedRisk"`
	SupportBand        SupportBand `json:"supportBand"`
	SupportHealthScore *float64    `json:"supportHealthScore"`
	SupportMetrics     []string    `json:"supportMetrics"`
	Applied            bool        `json:"applied"`
}

// TrendDetail records the multi-year comparison behind one trend rule.
type TrendDetail struct {
	ComparedYears       []int   `json:"comparedYears"`
	LatestWorsened      bool    `json:"latestWorsened"`
	ConsecutiveWorsened bool    `json:"consecutiveWorsened"`
	AppliedPenalty      float64 `json:"appliedPenalty"`
}
