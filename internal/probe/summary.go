package probe

import (
	"fmt"

	"github.com/sgdevmon/devhealth-cli/internal/model"
	"github.com/sgdevmon/devhealth-cli/internal/scoring"
	"github.com/sgdevmon/devhealth-cli/internal/store"
)

// Summarize inspects the latest captured history and score run and derives
// the probe's row counts, key checks and overall status.
func Summarize(history *model.RatiosHistory, run *store.ScoreRun, scores []store.DeveloperScore) BuildOptions {
	opts := BuildOptions{
		RowCounts: map[string]float64{},
	}

	if history == nil {
		opts.KeyChecks = append(opts.KeyChecks, Check{
			Name:   "ratio_capture",
			Status: StatusFail,
			Detail: "no captured ratio history",
		})
	} else {
		opts.MaxDate = history.UpdatedAt
		var ok, partial, failed int
		for _, dev := range history.Developers {
			switch dev.FetchStatus {
			case model.FetchStatusOK:
				ok++
			case model.FetchStatusPartial:
				partial++
			default:
				failed++
			}
		}
		opts.RowCounts["developers"] = float64(len(history.Developers))
		opts.RowCounts["fetch_ok"] = float64(ok)
		opts.RowCounts["fetch_partial"] = float64(partial)
		opts.RowCounts["fetch_error"] = float64(failed)

		check := Check{Name: "ratio_capture", Status: StatusOK, Detail: "all developers captured"}
		if failed > 0 {
			metric := float64(failed)
			check.Status = StatusWarn
			check.Detail = fmt.Sprintf("%d of %d developers failed capture", failed, len(history.Developers))
			check.Metric = &metric
		}
		opts.KeyChecks = append(opts.KeyChecks, check)
	}

	if run == nil {
		opts.KeyChecks = append(opts.KeyChecks, Check{
			Name:   "score_run",
			Status: StatusWarn,
			Detail: "no completed score run",
		})
		opts.Warnings = append(opts.Warnings, "no completed score run")
	} else {
		opts.LastRunTime = run.StartedAt
		opts.SchemaHash = run.PolicyHash
		opts.RowCounts["scored"] = float64(run.DeveloperCount)

		var pending int
		for _, score := range scores {
			if score.Result.HealthStatus == scoring.StatusPending {
				pending++
			}
		}
		opts.RowCounts["pending"] = float64(pending)

		check := Check{Name: "score_coverage", Status: StatusOK, Detail: "all scored developers have a health score"}
		if pending > 0 {
			metric := float64(pending)
			check.Status = StatusWarn
			check.Detail = fmt.Sprintf("%d of %d developers pending on coverage", pending, len(scores))
			check.Metric = &metric
		}
		opts.KeyChecks = append(opts.KeyChecks, check)
	}

	opts.Status = string(worstStatus(opts.KeyChecks))
	return opts
}

// worstStatus returns FAIL over WARN over OK across the checks.
func worstStatus(checks []Check) Status {
	status := StatusOK
	for _, c := range checks {
		switch c.Status {
		case StatusFail:
			return StatusFail
		case StatusWarn:
			status = StatusWarn
		}
	}
	return status
}
