package scoring

// ruleNegativeLeverageSupport names the one adjustment rule the engine applies.
const ruleNegativeLeverageSupport = "negativeLeverageSupport"

// supportHealthScore averages (100 - risk) across the support metrics that
// were scored. Returns nil when none are available.
func (p Policy) supportHealthScore(risks map[string]float64) *float64 {
	var sum float64
	var n int
	for _, key := range p.SupportGate.SupportMetrics {
		risk, ok := risks[key]
		if !ok {
			continue
		}
		sum += 100 - risk
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// supportBand classifies the support health score and returns the risk floor
// for negative leverage targets in that band.
func (p Policy) supportBand(health *float64) (SupportBand, float64) {
	switch {
	case health == nil:
		return SupportNone, p.SupportGate.NoSupportRiskFloor
	case *health >= p.SupportGate.StrongMinHealthScore:
		return SupportStrong, 0
	case *health >= p.SupportGate.MixedMinHealthScore:
		return SupportMixed, p.SupportGate.MixedSupportRiskFloor
	default:
		return SupportWeak, p.SupportGate.WeakSupportRiskFloor
	}
}

// applySupportGate prevents a negative leverage ratio (net cash) from scoring
// as automatically low-risk unless support metrics corroborate genuine
// strength. It is a pure transform: the input risk map is left untouched and
// a new map is returned together with the adjustment rationale per target.
func (p Policy) applySupportGate(risks map[string]float64, current map[string]*float64) (map[string]float64, map[string]MetricAdjustment) {
	adjusted := make(map[string]float64, len(risks))
	for k, v := range risks {
		adjusted[k] = v
	}
	adjustments := make(map[string]MetricAdjustment)

	health := p.supportHealthScore(risks)
	band, floor := p.supportBand(health)

	for _, target := range p.SupportGate.TargetMetrics {
		risk, scored := risks[target]
		if !scored {
			continue
		}
		value := current[target]
		if value == nil || *value >= 0 {
			continue
		}

		newRisk := risk
		if floor > newRisk {
			newRisk = floor
		}
		adjusted[target] = newRisk
		adjustments[target] = MetricAdjustment{
			Rule:               ruleNegativeLeverageSupport,
			CurrentValue:       *value,
			OriginalRisk:       risk,
			AdjustedRisk:       newRisk,
			SupportBand:        band,
			SupportHealthScore: health,
			SupportMetrics:     p.SupportGate.SupportMetrics,
			Applied:            newRisk > risk,
		}
	}

	return adjusted, adjustments
}
