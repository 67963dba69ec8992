// Package probe emits the standardized ops/probe.json health artifact
// consumed by the fleet monitoring dashboard.
package probe

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"strings"
	"time"
)

// Status is the coarse probe outcome.
type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// SchemaVersion identifies the probe.json layout.
const SchemaVersion = "1.0"

// staleAfter is how old the newest captured data may be before the probe
// flags it stale.
const staleAfter = 36 * time.Hour

// Check is one named health check inside the probe.
type Check struct {
	Name   string   `json:"name"`
	Status Status   `json:"status"`
	Detail string   `json:"detail"`
	Metric *float64 `json:"metric,omitempty"`
}

// Artifact links a labeled output the run produced.
type Artifact struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Freshness reports how recent the newest captured data is.
type Freshness struct {
	MaxDate    *string  `json:"max_date"`
	LagSeconds *float64 `json:"lag_seconds"`
	Stale      *bool    `json:"stale"`
}

// Probe is the full probe.json document.
type Probe struct {
	SchemaVersion   string             `json:"schema_version"`
	Status          Status             `json:"status"`
	LastRunTime     *string            `json:"last_run_time"`
	DurationSeconds *float64           `json:"duration_seconds"`
	Freshness       Freshness          `json:"freshness"`
	RowCounts       map[string]float64 `json:"row_counts"`
	SchemaHash      *string            `json:"schema_hash"`
	KeyChecks       []Check            `json:"key_checks"`
	Warnings        []string           `json:"warnings"`
	ArtifactLinks   []Artifact         `json:"artifact_links"`
	Meta            map[string]any     `json:"meta"`
}

// normalizeStatus maps arbitrary input to an allowed status, defaulting
// unknown values to WARN and empty input to OK.
func normalizeStatus(raw string) Status {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusOK, StatusWarn, StatusFail:
		return s
	case "":
		return StatusOK
	default:
		return StatusWarn
	}
}

// normalizeChecks coerces check statuses to the allowed set and fills
// default names.
func normalizeChecks(checks []Check) []Check {
	out := make([]Check, 0, len(checks))
	for _, c := range checks {
		if c.Name == "" {
			c.Name = "check"
		}
		switch c.Status {
		case StatusOK, StatusWarn, StatusFail:
		default:
			c.Status = StatusWarn
		}
		out = append(out, c)
	}
	return out
}

// normalizeArtifacts drops entries without a parseable scheme and
// deduplicates by URL, keeping first occurrence order.
func normalizeArtifacts(artifacts []Artifact) []Artifact {
	seen := make(map[string]bool, len(artifacts))
	out := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		a.URL = strings.TrimSpace(a.URL)
		a.Label = strings.TrimSpace(a.Label)
		if a.Label == "" {
			a.Label = "artifact"
		}
		if a.URL == "" || seen[a.URL] {
			continue
		}
		parsed, err := url.Parse(a.URL)
		if err != nil || parsed.Scheme == "" {
			continue
		}
		seen[a.URL] = true
		out = append(out, a)
	}
	return out
}

// dedupeWarnings drops empty and repeated warnings, keeping order.
func dedupeWarnings(warnings []string) []string {
	seen := make(map[string]bool, len(warnings))
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// fileSchemaHash returns the sha256 of the schema file, or nil when the
// file is absent.
func fileSchemaHash(path string) *string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	return &digest
}

// runMetadata collects CI run context from the environment.
func runMetadata() map[string]any {
	meta := map[string]any{
		"repo":     nil,
		"run_id":   nil,
		"run_url":  nil,
		"workflow": nil,
		"job":      nil,
		"sha":      nil,
	}
	setIfPresent := func(key, env string) {
		if v := os.Getenv(env); v != "" {
			meta[key] = v
		}
	}
	setIfPresent("repo", "GITHUB_REPOSITORY")
	setIfPresent("run_id", "GITHUB_RUN_ID")
	setIfPresent("workflow", "GITHUB_WORKFLOW")
	setIfPresent("job", "GITHUB_JOB")
	setIfPresent("sha", "GITHUB_SHA")

	repo, _ := meta["repo"].(string)
	runID, _ := meta["run_id"].(string)
	if repo != "" && runID != "" {
		server := os.Getenv("GITHUB_SERVER_URL")
		if server == "" {
			server = "https://github.com"
		}
		meta["run_url"] = server + "/" + repo + "/actions/runs/" + runID
	}
	return meta
}

func isoUTC(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}
