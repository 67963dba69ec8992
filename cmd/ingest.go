package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgdevmon/devhealth-cli/internal/ingest"
	"github.com/sgdevmon/devhealth-cli/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Capture ratio history for the developer roster",
	Long: `Fetch the financial ratios page for every developer in the roster CSV,
parse the ratio table into the fixed metric schema, and persist the
combined history artifact.

Individual fetch failures degrade that developer's record to
fetchStatus "error" without aborting the batch.

Examples:
  # Capture the configured roster
  ingest

  # Capture into a custom artifact without touching the store
  ingest --roster roster.csv --output history.json --no-store`,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.String("roster", "", "roster CSV path (default from config)")
	f.String("output", "", "history artifact path (default from config)")
	f.String("cache-dir", "", "per-ticker raw page cache dir (default from config)")
	f.Int("concurrency", 0, "parallel fetches (default from config)")
	f.Bool("no-store", false, "skip persisting the history to the store")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rosterPath, _ := cmd.Flags().GetString("roster")
	if rosterPath == "" {
		rosterPath = cfg.Ingest.RosterPath
	}
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = cfg.Ingest.OutputPath
	}
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	if cacheDir == "" {
		cacheDir = cfg.Ingest.CacheDir
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency == 0 {
		concurrency = cfg.Ingest.Concurrency
	}
	noStore, _ := cmd.Flags().GetBool("no-store")

	if err := cfg.Validate("ingest"); err != nil {
		return err
	}

	roster, err := ingest.LoadRoster(rosterPath)
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		return eris.Errorf("ingest: roster %s is empty", rosterPath)
	}

	log := zap.L().With(zap.String("command", "ingest"))
	log.Info("starting roster capture",
		zap.Int("developers", len(roster)),
		zap.Int("concurrency", concurrency),
	)
	started := time.Now()

	fetcher := ingest.NewFetcher(ingest.FetchOptions{
		UserAgent:  cfg.Ingest.UserAgent,
		Timeout:    time.Duration(cfg.Ingest.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Ingest.MaxRetries,
		RatePerSec: cfg.Ingest.RatePerSec,
	})
	ingester := ingest.NewIngester(fetcher, cacheDir, concurrency)

	history, err := ingester.Run(ctx, roster)
	if err != nil {
		return err
	}

	if err := writeHistoryArtifact(outputPath, history); err != nil {
		return err
	}

	if !noStore {
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SaveHistory(ctx, history); err != nil {
			return err
		}
	}

	printIngestSummary(history, time.Since(started))
	return nil
}

func writeHistoryArtifact(path string, history *model.RatiosHistory) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "ingest: create dir for %s", path)
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ingest: marshal history")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "ingest: write %s", path)
	}
	return nil
}

func printIngestSummary(history *model.RatiosHistory, elapsed time.Duration) {
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
	fmt.Printf("\n--- Capture Summary ---\n")
	fmt.Printf("Developers: %d\n", len(history.Developers))
	fmt.Printf("OK:         %d\n", ok)
	fmt.Printf("Partial:    %d\n", partial)
	fmt.Printf("Error:      %d\n", failed)
	fmt.Printf("Elapsed:    %s\n", elapsed.Round(time.Millisecond))
}
