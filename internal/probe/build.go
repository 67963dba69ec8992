package probe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// BuildOptions carries everything a command knows about the run being
// probed. Zero values are filled with sensible defaults.
type BuildOptions struct {
	Status      string
	LastRunTime time.Time
	StartTime   time.Time
	EndTime     time.Time
	// MaxDate is the timestamp of the newest captured data.
	MaxDate    time.Time
	SchemaFile string
	SchemaHash string
	RowCounts  map[string]float64
	Warnings   []string
	KeyChecks  []Check
	Artifacts  []Artifact
	// Now overrides the clock in tests.
	Now time.Time
}

// Build assembles the probe document from the run's facts.
func Build(opts BuildOptions) *Probe {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	end := opts.EndTime
	if end.IsZero() {
		end = now
	}
	lastRun := opts.LastRunTime
	if lastRun.IsZero() {
		lastRun = end
	}
	lastRunISO := isoUTC(lastRun)

	var duration *float64
	if !opts.StartTime.IsZero() {
		d := end.Sub(opts.StartTime).Seconds()
		if d < 0 {
			d = 0
		}
		duration = &d
	}

	freshness := Freshness{}
	if !opts.MaxDate.IsZero() {
		maxDate := isoUTC(opts.MaxDate)
		lag := now.Sub(opts.MaxDate).Seconds()
		if lag < 0 {
			lag = 0
		}
		stale := lag > staleAfter.Seconds()
		freshness = Freshness{MaxDate: &maxDate, LagSeconds: &lag, Stale: &stale}
	}

	schemaHash := fileSchemaHash(opts.SchemaFile)
	if opts.SchemaHash != "" {
		h := opts.SchemaHash
		schemaHash = &h
	}

	rowCounts := opts.RowCounts
	if rowCounts == nil {
		rowCounts = map[string]float64{}
	}

	meta := runMetadata()
	artifacts := opts.Artifacts
	if runURL, ok := meta["run_url"].(string); ok && runURL != "" {
		artifacts = append(artifacts, Artifact{Label: "workflow_run", URL: runURL})
	}

	return &Probe{
		SchemaVersion:   SchemaVersion,
		Status:          normalizeStatus(opts.Status),
		LastRunTime:     &lastRunISO,
		DurationSeconds: duration,
		Freshness:       freshness,
		RowCounts:       rowCounts,
		SchemaHash:      schemaHash,
		KeyChecks:       normalizeChecks(opts.KeyChecks),
		Warnings:        dedupeWarnings(opts.Warnings),
		ArtifactLinks:   normalizeArtifacts(artifacts),
		Meta:            meta,
	}
}

// Fallback builds the FAIL-status probe emitted when probe assembly itself
// fails, so the dashboard still sees a document.
func Fallback(cause error, now time.Time) *Probe {
	if now.IsZero() {
		now = time.Now()
	}
	lastRun := isoUTC(now)

	meta := runMetadata()
	var artifacts []Artifact
	if runURL, ok := meta["run_url"].(string); ok && runURL != "" {
		artifacts = append(artifacts, Artifact{Label: "workflow_run", URL: runURL})
	}

	return &Probe{
		SchemaVersion: SchemaVersion,
		Status:        StatusFail,
		LastRunTime:   &lastRun,
		Freshness:     Freshness{},
		RowCounts:     map[string]float64{},
		KeyChecks:     []Check{},
		Warnings:      []string{"Probe emitter failed: " + cause.Error()},
		ArtifactLinks: normalizeArtifacts(artifacts),
		Meta:          meta,
	}
}

// Write renders the probe to path, creating parent directories.
func Write(path string, p *Probe) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "probe: create dir for %s", path)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return eris.Wrap(err, "probe: marshal")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "probe: write %s", path)
	}
	return nil
}
