// Package scoring implements the developer financial health scoring engine:
// a pure, deterministic transform from a developer's historical financial
// ratios to an explainable 0-100 health score, a status band, and a coverage
// signal. The engine performs no I/O and holds no state between calls.
package scoring

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Direction indicates which way a metric's value maps to risk.
type Direction string

const (
	// HigherWorse means larger values carry more risk (e.g. debt ratios).
	HigherWorse Direction = "higherWorse"
	// LowerWorse means smaller values carry more risk (e.g. liquidity ratios).
	LowerWorse Direction = "lowerWorse"
)

// Aggregation selects how a pillar combines its member metric risks.
type Aggregation string

const (
	AggMedian  Aggregation = "median"
	AggAverage Aggregation = "average"
	AggSingle  Aggregation = "single"
)

// Threshold maps a metric value to risk: Good is the value at which risk is 0,
// Bad the value at which risk is 100. Values between are linearly interpolated;
// values beyond either endpoint saturate.
type Threshold struct {
	Direction Direction `json:"direction" yaml:"direction"`
	Good      float64   `json:"good" yaml:"good"`
	Bad       float64   `json:"bad" yaml:"bad"`
}

// PillarDef groups related metrics under a named pillar.
type PillarDef struct {
	MetricKeys  []string    `json:"metricKeys" yaml:"metric_keys"`
	Aggregation Aggregation `json:"aggregation" yaml:"aggregation"`
}

// SupportGatePolicy governs the negative-leverage override: a negative
// leverage ratio (net cash) is only allowed to score as low-risk when
// independent support metrics corroborate genuine strength.
type SupportGatePolicy struct {
	TargetMetrics         []string `json:"targetMetrics" yaml:"target_metrics"`
	SupportMetrics        []string `json:"supportMetrics" yaml:"support_metrics"`
	StrongMinHealthScore  float64  `json:"strongMinHealthScore" yaml:"strong_min_health_score"`
	MixedMinHealthScore   float64  `json:"mixedMinHealthScore" yaml:"mixed_min_health_score"`
	NoSupportRiskFloor    float64  `json:"noSupportRiskFloor" yaml:"no_support_risk_floor"`
	MixedSupportRiskFloor float64  `json:"mixedSupportRiskFloor" yaml:"mixed_support_risk_floor"`
	WeakSupportRiskFloor  float64  `json:"weakSupportRiskFloor" yaml:"weak_support_risk_floor"`
}

// TrendRule defines per-metric penalties for multi-year worsening.
// Consecutive supersedes Base when two years in a row worsen.
type TrendRule struct {
	Direction   Direction `json:"direction" yaml:"direction"`
	Base        float64   `json:"base" yaml:"base"`
	Consecutive float64   `json:"consecutive" yaml:"consecutive"`
}

// Policy is the full immutable scoring configuration. Multiple policies
// (e.g. versioned models) can coexist; each Engine is built around one.
type Policy struct {
	Thresholds    map[string]Threshold `json:"thresholds" yaml:"thresholds"`
	Pillars       map[string]PillarDef `json:"pillars" yaml:"pillars"`
	PillarWeights map[string]float64   `json:"pillarWeights" yaml:"pillar_weights"`

	SupportGate SupportGatePolicy `json:"supportGate" yaml:"support_gate"`

	// Net-cash softening: when both metrics are simultaneously negative,
	// the leverage pillar risk is multiplied by NetCashSoftening (< 1).
	NetCashMetrics   []string `json:"netCashMetrics" yaml:"net_cash_metrics"`
	NetCashSoftening float64  `json:"netCashSoftening" yaml:"net_cash_softening"`
	LeveragePillar   string   `json:"leveragePillar" yaml:"leverage_pillar"`

	TrendRules          map[string]TrendRule `json:"trendRules" yaml:"trend_rules"`
	MinWorseningMetrics int                  `json:"minWorseningMetrics" yaml:"min_worsening_metrics"`
	TrendMultiplier     float64              `json:"trendMultiplier" yaml:"trend_multiplier"`
	TrendCap            float64              `json:"trendCap" yaml:"trend_cap"`

	CoverageThreshold float64 `json:"coverageThreshold" yaml:"coverage_threshold"`
	GreenBand         int     `json:"greenBand" yaml:"green_band"`
	AmberBand         int     `json:"amberBand" yaml:"amber_band"`
}

// DefaultPolicy returns the canonical pillar-based scoring model.
// Pillar weights sum to 1.00.
func DefaultPolicy() Policy {
	return Policy{
		Thresholds: map[string]Threshold{
			"netDebtToEbitda": {Direction: HigherWorse, Good: 1.0, Bad: 6.0},
			"debtToEquity":    {Direction: HigherWorse, Good: 0.8, Bad: 2.5},
			"netDebtToEquity": {Direction: HigherWorse, Good: 0.5, Bad: 2.0},
			"debtToEbitda":    {Direction: HigherWorse, Good: 1.5, Bad: 7.0},
			"quickRatio":      {Direction: LowerWorse, Good: 1.0, Bad: 0.3},
			"currentRatio":    {Direction: LowerWorse, Good: 2.0, Bad: 0.8},
			"roic":            {Direction: LowerWorse, Good: 8.0, Bad: 0.0},
			"roe":             {Direction: LowerWorse, Good: 12.0, Bad: 0.0},
			"payoutRatio":     {Direction: HigherWorse, Good: 60.0, Bad: 120.0},
		},
		Pillars: map[string]PillarDef{
			"leverage": {
				MetricKeys:  []string{"netDebtToEbitda", "debtToEquity"},
				Aggregation: AggMedian,
			},
			"liquidity": {
				MetricKeys:  []string{"currentRatio"},
				Aggregation: AggSingle,
			},
			"resilience": {
				MetricKeys:  []string{"roic", "roe", "payoutRatio"},
				Aggregation: AggAverage,
			},
		},
		PillarWeights: map[string]float64{
			"leverage":   0.35,
			"liquidity":  0.30,
			"resilience": 0.35,
		},
		SupportGate: SupportGatePolicy{
			TargetMetrics:         []string{"netDebtToEbitda", "netDebtToEquity"},
			SupportMetrics:        []string{"currentRatio", "roic", "roe"},
			StrongMinHealthScore:  70,
			MixedMinHealthScore:   45,
			NoSupportRiskFloor:    45,
			MixedSupportRiskFloor: 30,
			WeakSupportRiskFloor:  60,
		},
		NetCashMetrics:   []string{"netDebtToEbitda", "netDebtToEquity"},
		NetCashSoftening: 0.6,
		LeveragePillar:   "leverage",
		TrendRules: map[string]TrendRule{
			"netDebtToEbitda": {Direction: HigherWorse, Base: 2, Consecutive: 4},
			"debtToEquity":    {Direction: HigherWorse, Base: 2, Consecutive: 4},
			"currentRatio":    {Direction: LowerWorse, Base: 1.5, Consecutive: 3},
			"roic":            {Direction: LowerWorse, Base: 1, Consecutive: 2},
			"roe":             {Direction: LowerWorse, Base: 1, Consecutive: 2},
		},
		MinWorseningMetrics: 2,
		TrendMultiplier:     1.5,
		TrendCap:            15,
		CoverageThreshold:   0.5,
		GreenBand:           70,
		AmberBand:           45,
	}
}

// Validate checks that a Policy is internally consistent.
func (p Policy) Validate() error {
	var errs []string

	for key, th := range p.Thresholds {
		if th.Good == th.Bad {
			errs = append(errs, fmt.Sprintf("threshold %s: good must differ from bad", key))
		}
		if th.Direction != HigherWorse && th.Direction != LowerWorse {
			errs = append(errs, fmt.Sprintf("threshold %s: unknown direction %q", key, th.Direction))
		}
	}

	var weightSum float64
	for pillar, w := range p.PillarWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("pillar %s: weight must be >= 0", pillar))
		}
		if _, ok := p.Pillars[pillar]; !ok {
			errs = append(errs, fmt.Sprintf("pillar %s: weighted but not defined", pillar))
		}
		weightSum += w
	}
	if math.Abs(weightSum-1.0) > 1e-9 {
		errs = append(errs, fmt.Sprintf("pillar weights must sum to 1.00, got %.4f", weightSum))
	}
	for pillar, def := range p.Pillars {
		if _, ok := p.PillarWeights[pillar]; !ok {
			errs = append(errs, fmt.Sprintf("pillar %s: defined but unweighted", pillar))
		}
		if len(def.MetricKeys) == 0 {
			errs = append(errs, fmt.Sprintf("pillar %s: no metric keys", pillar))
		}
		if def.Aggregation == AggSingle && len(def.MetricKeys) != 1 {
			errs = append(errs, fmt.Sprintf("pillar %s: single aggregation requires exactly one metric", pillar))
		}
		for _, key := range def.MetricKeys {
			if _, ok := p.Thresholds[key]; !ok {
				errs = append(errs, fmt.Sprintf("pillar %s: metric %s has no threshold", pillar, key))
			}
		}
	}

	if p.NetCashSoftening <= 0 || p.NetCashSoftening >= 1 {
		errs = append(errs, "net_cash_softening must be in (0, 1)")
	}
	if _, ok := p.Pillars[p.LeveragePillar]; !ok {
		errs = append(errs, fmt.Sprintf("leverage pillar %q not defined", p.LeveragePillar))
	}

	if p.SupportGate.StrongMinHealthScore < p.SupportGate.MixedMinHealthScore {
		errs = append(errs, "strong_min_health_score must be >= mixed_min_health_score")
	}

	if p.MinWorseningMetrics < 1 {
		errs = append(errs, "min_worsening_metrics must be >= 1")
	}
	if p.TrendMultiplier <= 0 {
		errs = append(errs, "trend_multiplier must be > 0")
	}
	if p.TrendCap < 0 {
		errs = append(errs, "trend_cap must be >= 0")
	}

	if p.CoverageThreshold < 0 || p.CoverageThreshold > 1 {
		errs = append(errs, "coverage_threshold must be between 0 and 1")
	}
	if p.GreenBand <= p.AmberBand {
		errs = append(errs, "green_band must be > amber_band")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: policy validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadPolicyFile reads an alternate scoring policy from a YAML file.
// Fields omitted in the file keep their DefaultPolicy values.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "scoring: read policy %s", path)
	}

	// The YAML has a top-level "policy" key.
	wrapper := struct {
		Policy Policy `yaml:"policy"`
	}{Policy: DefaultPolicy()}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Policy{}, eris.Wrap(err, "scoring: parse policy")
	}

	if err := wrapper.Policy.Validate(); err != nil {
		return Policy{}, err
	}
	return wrapper.Policy, nil
}

// Hash returns a short SHA-256 digest of the policy for run reproducibility.
func (p Policy) Hash() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16])
}

// referenceMetrics returns the threshold-configured metric keys that feed no
// pillar, sorted. These are scored for visibility but never affect the
// composite score or coverage.
func (p Policy) referenceMetrics() []string {
	member := make(map[string]bool)
	for _, def := range p.Pillars {
		for _, key := range def.MetricKeys {
			member[key] = true
		}
	}
	var refs []string
	for key := range p.Thresholds {
		if !member[key] {
			refs = append(refs, key)
		}
	}
	sort.Strings(refs)
	return refs
}
