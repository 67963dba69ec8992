package scoring

import "math"

// metricPayoutRatio gets special handling: a negative payout ratio (negative
// earnings or negative dividend base) is not interpretable as risk.
const metricPayoutRatio = "payoutRatio"

// metricRisk maps one metric's current value to a 0-100 risk via the metric's
// directional piecewise-linear threshold. Returns nil when the value is
// absent or non-finite, when no threshold is configured for the key, or for
// a negative payout ratio; the metric is then excluded rather than erroring.
func (p Policy) metricRisk(key string, value *float64) *float64 {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return nil
	}
	th, ok := p.Thresholds[key]
	if !ok {
		return nil
	}
	if key == metricPayoutRatio && *value < 0 {
		return nil
	}

	// Good maps to 0, Bad to 100; the sign of (Bad - Good) encodes direction,
	// so a single interpolation covers both. Values beyond either endpoint
	// saturate rather than extrapolate.
	frac := (*value - th.Good) / (th.Bad - th.Good)
	risk := clamp(frac*100, 0, 100)
	return &risk
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
