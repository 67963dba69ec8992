package scoring

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/sgdevmon/devhealth-cli/internal/model"
)

var fyPeriodRe = regexp.MustCompile(`^FY (\d{4})$`)

type trendResult struct {
	breakdown      map[string]TrendDetail
	rawPenalty     float64
	worseningCount int
	penalty        float64
}

// evaluateTrend inspects multi-year history for the metrics in the current
// used set and accumulates worsening penalties. A single noisy metric is not
// penalized: the penalty only engages once MinWorseningMetrics rules show
// latest-year worsening, and is then capped.
func (p Policy) evaluateTrend(metrics map[string]model.MetricSeries, used map[string]bool) trendResult {
	res := trendResult{breakdown: make(map[string]TrendDetail)}

	for key, rule := range p.TrendRules {
		if !used[key] {
			continue
		}
		years, values := fiscalHistory(metrics[key])
		if len(values) < 2 {
			continue
		}

		compared := years
		if len(compared) > 3 {
			compared = compared[:3]
		}

		latestWorsened := worsened(rule.Direction, values[0], values[1])
		consecutiveWorsened := len(values) >= 3 &&
			latestWorsened && worsened(rule.Direction, values[1], values[2])

		var applied float64
		switch {
		case !latestWorsened:
			applied = 0
			res.breakdown[key] = TrendDetail{ComparedYears: compared}
			continue
		case consecutiveWorsened:
			applied = rule.Consecutive
		default:
			applied = rule.Base
		}

		res.rawPenalty += applied
		res.worseningCount++
		res.breakdown[key] = TrendDetail{
			ComparedYears:       compared,
			LatestWorsened:      latestWorsened,
			ConsecutiveWorsened: consecutiveWorsened,
			AppliedPenalty:      applied,
		}
	}

	if res.worseningCount >= p.MinWorseningMetrics {
		res.penalty = math.Min(p.TrendCap, res.rawPenalty*p.TrendMultiplier)
	}
	return res
}

// fiscalHistory extracts the finite "FY <year>" entries of a series, sorted
// by year descending.
func fiscalHistory(series model.MetricSeries) ([]int, []float64) {
	type entry struct {
		year  int
		value float64
	}
	var entries []entry
	for label, value := range series.Values {
		if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
			continue
		}
		m := fyPeriodRe.FindStringSubmatch(label)
		if m == nil {
			continue
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		entries = append(entries, entry{year: year, value: *value})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].year > entries[j].year })

	years := make([]int, len(entries))
	values := make([]float64, len(entries))
	for i, e := range entries {
		years[i] = e.year
		values[i] = e.value
	}
	return years, values
}

// worsened reports whether newer is worse than older in the rule's direction.
func worsened(dir Direction, newer, older float64) bool {
	if dir == HigherWorse {
		return newer > older
	}
	return newer < older
}
