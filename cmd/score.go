package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgdevmon/devhealth-cli/internal/model"
	"github.com/sgdevmon/devhealth-cli/internal/scoring"
	"github.com/sgdevmon/devhealth-cli/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score developer financial health from captured ratios",
	Long: `Score every developer in the captured ratio history against the risk
policy. Each metric's current value is mapped to a 0-100 risk, risks are
aggregated into leverage, liquidity and resilience pillars, composed into
a weighted health score, and penalized for worsening fiscal-year trends.

Developers whose available pillar weight is below the coverage threshold
report "Pending data" instead of a score.

Examples:
  # Score the latest captured history from the store
  score

  # Score one developer with full component detail
  score --ticker C09 --detail

  # Score a history artifact against a custom policy and keep the run
  score --input history.json --policy policy.yaml --save

  # Export to CSV
  score --format csv --output scores.csv`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("ticker", "", "score a single developer by ticker")
	f.String("policy", "", "risk policy YAML path (default: built-in policy)")
	f.String("input", "", "history artifact path (default: latest from store)")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")
	f.Bool("detail", false, "print full component breakdown (single ticker)")
	f.Bool("save", false, "save results to the store as a score run")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}

	ticker, _ := cmd.Flags().GetString("ticker")
	policyPath, _ := cmd.Flags().GetString("policy")
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	detail, _ := cmd.Flags().GetBool("detail")
	save, _ := cmd.Flags().GetBool("save")

	if format != "table" && format != "csv" {
		return eris.Errorf("score: --format must be table or csv (got %q)", format)
	}
	if policyPath == "" {
		policyPath = cfg.Score.PolicyPath
	}

	policy := scoring.DefaultPolicy()
	if policyPath != "" {
		loaded, err := scoring.LoadPolicyFile(policyPath)
		if err != nil {
			return err
		}
		policy = loaded
	}
	engine, err := scoring.NewEngine(policy)
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "score"))

	var st store.Store
	needStore := inputPath == "" || save
	if needStore {
		st, err = openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
	}

	history, err := loadHistory(ctx, st, inputPath)
	if err != nil {
		return err
	}

	developers := history.Developers
	if ticker != "" {
		developers = nil
		for _, dev := range history.Developers {
			if strings.EqualFold(dev.Ticker, ticker) {
				developers = append(developers, dev)
				break
			}
		}
		if len(developers) == 0 {
			return eris.Errorf("score: ticker %s not in captured history", ticker)
		}
	}

	log.Info("scoring developers",
		zap.Int("developers", len(developers)),
		zap.String("policy_hash", policy.Hash()),
	)

	now := time.Now().UTC()
	scores := make([]store.DeveloperScore, 0, len(developers))
	for _, dev := range developers {
		scores = append(scores, store.DeveloperScore{
			Ticker: dev.Ticker,
			Name:   dev.Name,
			Result: engine.Score(dev.Metrics, now),
		})
	}

	if detail && len(scores) == 1 {
		return printScoreDetail(scores[0])
	}

	if err := outputScores(scores, format, outputPath); err != nil {
		return err
	}

	if save {
		run, err := st.CreateScoreRun(ctx, policy.Hash())
		if err != nil {
			return err
		}
		for i := range scores {
			scores[i].RunID = run.ID
		}
		if err := st.SaveScores(ctx, scores); err != nil {
			return err
		}
		if err := st.CompleteScoreRun(ctx, run.ID, len(scores)); err != nil {
			return err
		}
		fmt.Printf("Saved score run %s (%d developers)\n", run.ID, len(scores))
	}

	printScoreSummary(scores)
	return nil
}

// loadHistory reads the history artifact from a file, or the latest capture
// from the store when no path is given.
func loadHistory(ctx context.Context, st store.Store, inputPath string) (*model.RatiosHistory, error) {
	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, eris.Wrapf(err, "score: read history %s", inputPath)
		}
		var history model.RatiosHistory
		if err := json.Unmarshal(data, &history); err != nil {
			return nil, eris.Wrapf(err, "score: parse history %s", inputPath)
		}
		return &history, nil
	}

	history, err := st.LatestHistory(ctx)
	if err != nil {
		return nil, err
	}
	if history == nil {
		return nil, eris.New("score: no captured history in store, run 'ingest' first")
	}
	return history, nil
}

func printScoreDetail(score store.DeveloperScore) error {
	fmt.Printf("Ticker:   %s\n", score.Ticker)
	fmt.Printf("Name:     %s\n", score.Name)
	fmt.Printf("Score:    %s\n", formatScore(score.Result.HealthScore))
	fmt.Printf("Status:   %s\n", score.Result.HealthStatus)
	fmt.Printf("Coverage: %.2f\n", score.Result.ScoreCoverage)
	if score.Result.ScoreNote != nil {
		fmt.Printf("Note:     %s\n", *score.Result.ScoreNote)
	}

	data, err := json.MarshalIndent(score.Result.Components, "", "  ")
	if err != nil {
		return eris.Wrap(err, "score: marshal components")
	}
	fmt.Printf("\nComponents:\n%s\n", data)
	return nil
}

func printScoreSummary(scores []store.DeveloperScore) {
	if len(scores) == 0 {
		fmt.Println("No results.")
		return
	}
	counts := map[scoring.Status]int{}
	var sum, scored int
	for _, s := range scores {
		counts[s.Result.HealthStatus]++
		if s.Result.HealthScore != nil {
			sum += *s.Result.HealthScore
			scored++
		}
	}
	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Total:   %d\n", len(scores))
	fmt.Printf("Green:   %d\n", counts[scoring.StatusGreen])
	fmt.Printf("Amber:   %d\n", counts[scoring.StatusAmber])
	fmt.Printf("Red:     %d\n", counts[scoring.StatusRed])
	fmt.Printf("Pending: %d\n", counts[scoring.StatusPending])
	if scored > 0 {
		fmt.Printf("Average: %.1f\n", float64(sum)/float64(scored))
	}
}

func outputScores(scores []store.DeveloperScore, format, outputPath string) error {
	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	switch format {
	case "csv":
		return writeScoreCSV(w, scores)
	default:
		return writeScoreTable(w, scores)
	}
}

func writeScoreCSV(w *os.File, scores []store.DeveloperScore) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"ticker", "name", "health_score", "health_status", "score_coverage", "trend_penalty", "score_note"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}

	for _, s := range scores {
		note := ""
		if s.Result.ScoreNote != nil {
			note = *s.Result.ScoreNote
		}
		row := []string{
			s.Ticker,
			s.Name,
			formatScore(s.Result.HealthScore),
			string(s.Result.HealthStatus),
			fmt.Sprintf("%.2f", s.Result.ScoreCoverage),
			fmt.Sprintf("%.1f", s.Result.Components.TrendPenalty),
			note,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	return nil
}

func writeScoreTable(w *os.File, scores []store.DeveloperScore) error {
	header := fmt.Sprintf("%-10s %-40s %6s %-13s %9s %8s\n",
		"Ticker", "Name", "Score", "Status", "Coverage", "Penalty")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "score: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 92)); err != nil {
		return eris.Wrap(err, "score: write table separator")
	}

	for _, s := range scores {
		name := s.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		line := fmt.Sprintf("%-10s %-40s %6s %-13s %9.2f %8.1f\n",
			s.Ticker, name, formatScore(s.Result.HealthScore), s.Result.HealthStatus,
			s.Result.ScoreCoverage, s.Result.Components.TrendPenalty)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "score: write table row")
		}
	}
	return nil
}

func formatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *score)
}
