package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/sgdevmon/devhealth-cli/internal/model"
)

// Engine scores developers against one immutable policy. It is safe for
// concurrent use: scoring is a pure function of its inputs.
type Engine struct {
	policy Policy
}

// NewEngine builds an engine around a validated policy.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy}, nil
}

// Policy returns the engine's scoring policy.
func (e *Engine) Policy() Policy { return e.policy }

// Score turns a developer's metric history into a health score, status band
// and coverage signal. Missing or malformed metric data never errors; the
// affected metric, pillar or trend rule is excluded and computation continues
// with whatever remains. The only failure state is insufficient coverage,
// reported as a nil score with status "Pending data".
func (e *Engine) Score(metrics map[string]model.MetricSeries, now time.Time) Result {
	p := e.policy

	// Current values and per-metric risks for every configured metric.
	current := make(map[string]*float64, len(p.Thresholds))
	risks := make(map[string]float64, len(p.Thresholds))
	for key := range p.Thresholds {
		value := metrics[key].Current()
		current[key] = value
		if risk := p.metricRisk(key, value); risk != nil {
			risks[key] = *risk
		}
	}

	adjusted, adjustments := p.applySupportGate(risks, current)
	pillarRisks := p.aggregatePillars(adjusted, current)
	comp := p.composeScore(pillarRisks)

	used, missing := p.splitPillarMetrics(adjusted)
	usedSet := make(map[string]bool, len(used))
	for _, key := range used {
		usedSet[key] = true
	}
	trend := p.evaluateTrend(metrics, usedSet)

	components := Components{
		StaticRiskScore:      comp.staticRisk,
		StaticHealthScore:    comp.staticHealth,
		TrendPenalty:         trend.penalty,
		ScoreCoverage:        comp.availableWeight,
		MissingMetrics:       missing,
		ExcludedMetrics:      p.referenceMetrics(),
		UsedMetrics:          used,
		RiskByMetric:         adjusted,
		PillarContributors:   comp.contributors,
		PillarRisks:          pillarRisks,
		MetricAdjustments:    adjustments,
		TrendBreakdown:       trend.breakdown,
		RawTrendPenalty:      trend.rawPenalty,
		WorseningMetricCount: trend.worseningCount,
	}

	result := Result{
		ScoreCoverage: comp.availableWeight,
		Components:    components,
		LastScoredAt:  now.UTC(),
	}

	if comp.staticHealth != nil {
		final := int(math.Round(clamp(*comp.staticHealth-trend.penalty, 0, 100)))
		result.Components.FinalHealthScore = &final
	}

	if comp.staticHealth == nil || comp.availableWeight < p.CoverageThreshold {
		note := noteInsufficientCoverage
		result.HealthStatus = StatusPending
		result.ScoreNote = &note
		return result
	}

	final := *result.Components.FinalHealthScore
	result.HealthScore = &final
	result.HealthStatus = p.statusForScore(final)
	return result
}

// statusForScore maps a final health score to its status band.
func (p Policy) statusForScore(score int) Status {
	switch {
	case score >= p.GreenBand:
		return StatusGreen
	case score >= p.AmberBand:
		return StatusAmber
	default:
		return StatusRed
	}
}

// splitPillarMetrics partitions the pillar member metrics into those that
// were scored and those that could not be, both sorted.
func (p Policy) splitPillarMetrics(risks map[string]float64) (used, missing []string) {
	for _, def := range p.Pillars {
		for _, key := range def.MetricKeys {
			if _, ok := risks[key]; ok {
				used = append(used, key)
			} else {
				missing = append(missing, key)
			}
		}
	}
	sort.Strings(used)
	sort.Strings(missing)
	if used == nil {
		used = []string{}
	}
	if missing == nil {
		missing = []string{}
	}
	return used, missing
}
