package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgdevmon/devhealth-cli/internal/probe"
	"github.com/sgdevmon/devhealth-cli/internal/store"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Emit the ops/probe.json health artifact",
	Long: `Inspect the latest capture and score run and emit the standardized
probe.json document for the fleet monitoring dashboard: capture freshness,
row counts, key checks and run metadata.

Probe assembly failures are non-blocking: a FAIL-status fallback document
is written instead, unless --strict is set.

Examples:
  probe
  probe --output ops/probe.json --artifact history=https://example.com/history.json`,
	RunE: runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.String("output", "", "probe artifact path (default from config)")
	f.StringArray("artifact", nil, "artifact link as label=url (repeatable)")
	f.StringArray("warning", nil, "extra warning to include (repeatable)")
	f.Bool("strict", false, "fail the command instead of writing a FAIL fallback")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = cfg.Probe.OutputPath
	}
	artifactFlags, _ := cmd.Flags().GetStringArray("artifact")
	warnings, _ := cmd.Flags().GetStringArray("warning")
	strict, _ := cmd.Flags().GetBool("strict")

	if err := cfg.Validate("probe"); err != nil {
		return err
	}

	started := time.Now()
	doc, err := buildProbe(ctx, artifactFlags, warnings, started)
	if err != nil {
		if strict {
			return err
		}
		zap.L().Warn("probe: assembly failed, writing fallback", zap.Error(err))
		doc = probe.Fallback(err, time.Now())
	}

	if err := probe.Write(outputPath, doc); err != nil {
		return err
	}
	fmt.Printf("Wrote probe: %s (%s)\n", outputPath, doc.Status)
	return nil
}

func buildProbe(ctx context.Context, artifactFlags, warnings []string, started time.Time) (*probe.Probe, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	history, err := st.LatestHistory(ctx)
	if err != nil {
		return nil, err
	}
	run, err := st.LatestScoreRun(ctx)
	if err != nil {
		return nil, err
	}
	var scores []store.DeveloperScore
	if run != nil {
		scores, err = st.ScoresForRun(ctx, run.ID)
		if err != nil {
			return nil, err
		}
	}

	opts := probe.Summarize(history, run, scores)
	opts.StartTime = started
	opts.EndTime = time.Now()
	opts.Warnings = append(opts.Warnings, warnings...)
	for _, raw := range artifactFlags {
		opts.Artifacts = append(opts.Artifacts, parseArtifactFlag(raw))
	}

	return probe.Build(opts), nil
}

// parseArtifactFlag splits "label=url", defaulting the label.
func parseArtifactFlag(raw string) probe.Artifact {
	if label, url, ok := strings.Cut(raw, "="); ok {
		return probe.Artifact{Label: strings.TrimSpace(label), URL: strings.TrimSpace(url)}
	}
	return probe.Artifact{Label: "artifact", URL: strings.TrimSpace(raw)}
}
