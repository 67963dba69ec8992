package scoring

import "sort"

// aggregatePillars collapses gate-adjusted metric risks into per-pillar risks.
// A pillar with no scored member metrics gets a nil risk. When both net-cash
// metrics are simultaneously negative, the leverage pillar risk is softened:
// a double-negative (cash-rich on two measures) is rewarded beyond the
// support gate.
func (p Policy) aggregatePillars(risks map[string]float64, current map[string]*float64) map[string]*float64 {
	pillarRisks := make(map[string]*float64, len(p.Pillars))

	for name, def := range p.Pillars {
		var member []float64
		for _, key := range def.MetricKeys {
			if risk, ok := risks[key]; ok {
				member = append(member, risk)
			}
		}
		if len(member) == 0 {
			pillarRisks[name] = nil
			continue
		}

		var risk float64
		switch def.Aggregation {
		case AggMedian:
			risk = median(member)
		case AggSingle:
			risk = member[0]
		default:
			risk = mean(member)
		}

		if name == p.LeveragePillar && p.netCashPosition(current) {
			risk *= p.NetCashSoftening
		}
		pillarRisks[name] = &risk
	}

	return pillarRisks
}

// netCashPosition reports whether every configured net-leverage metric has a
// current value and all are simultaneously negative.
func (p Policy) netCashPosition(current map[string]*float64) bool {
	if len(p.NetCashMetrics) == 0 {
		return false
	}
	for _, key := range p.NetCashMetrics {
		value := current[key]
		if value == nil || *value >= 0 {
			return false
		}
	}
	return true
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
