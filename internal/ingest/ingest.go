package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sgdevmon/devhealth-cli/internal/model"
)

// sourceName identifies the upstream ratios provider in the artifact.
const sourceName = "stockanalysis"

var errMissingURL = eris.New("ingest: missing stockanalysis_ratios_url")

// Ingester captures ratio history for every roster developer.
type Ingester struct {
	fetcher     *Fetcher
	cacheDir    string
	concurrency int
}

// NewIngester creates an Ingester. cacheDir may be empty to disable the
// per-ticker raw HTML/JSON cache.
func NewIngester(fetcher *Fetcher, cacheDir string, concurrency int) *Ingester {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ingester{fetcher: fetcher, cacheDir: cacheDir, concurrency: concurrency}
}

// Run fetches and parses ratios for the whole roster. Individual fetch or
// parse failures degrade that developer's record to fetchStatus "error"
// without aborting the batch; output preserves roster order.
func (ing *Ingester) Run(ctx context.Context, roster []model.RosterEntry) (*model.RatiosHistory, error) {
	if ing.cacheDir != "" {
		if err := os.MkdirAll(ing.cacheDir, 0o755); err != nil {
			zap.L().Warn("ingest: cannot create cache dir", zap.String("dir", ing.cacheDir), zap.Error(err))
		}
	}

	developers := make([]model.Developer, len(roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.concurrency)

	for i, entry := range roster {
		g.Go(func() error {
			developers[i] = ing.fetchOne(gctx, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	history := &model.RatiosHistory{
		UpdatedAt:  time.Now().UTC(),
		Source:     sourceName,
		Developers: developers,
	}

	var ok, partial, failed int
	for _, d := range developers {
		switch d.FetchStatus {
		case model.FetchStatusOK:
			ok++
		case model.FetchStatusPartial:
			partial++
		default:
			failed++
		}
	}
	zap.L().Info("ingest: roster complete",
		zap.Int("developers", len(developers)),
		zap.Int("ok", ok),
		zap.Int("partial", partial),
		zap.Int("error", failed),
	)

	return history, nil
}

func (ing *Ingester) fetchOne(ctx context.Context, entry model.RosterEntry) model.Developer {
	log := zap.L().With(zap.String("ticker", entry.Ticker))

	dev := model.Developer{
		Ticker:        entry.Ticker,
		Name:          entry.Name,
		RatiosURL:     entry.RatiosURL,
		Periods:       []model.Period{},
		Metrics:       emptyMetrics(),
		LastFetchedAt: time.Now().UTC(),
		FetchStatus:   model.FetchStatusError,
	}

	fail := func(err error) model.Developer {
		msg := err.Error()
		dev.FetchError = &msg
		log.Warn("ingest: developer failed", zap.Error(err))
		return dev
	}

	if entry.RatiosURL == "" {
		return fail(errMissingURL)
	}

	htmlText, err := ing.fetcher.FetchHTML(ctx, entry.RatiosURL)
	if err != nil {
		return fail(err)
	}
	ing.cacheWrite(entry.Ticker+".html", []byte(htmlText))

	parsed, err := ParseRatiosHTML(htmlText)
	if err != nil {
		return fail(err)
	}

	dev.Periods = parsed.Periods
	dev.Metrics = parsed.Metrics

	captured := 0
	for _, series := range parsed.Metrics {
		if len(series.Values) > 0 {
			captured++
		}
	}
	if captured == len(metricSchema) {
		dev.FetchStatus = model.FetchStatusOK
	} else {
		dev.FetchStatus = model.FetchStatusPartial
	}

	if data, err := json.MarshalIndent(parsed, "", "  "); err == nil {
		ing.cacheWrite(entry.Ticker+".json", data)
	}

	log.Info("ingest: developer captured",
		zap.String("status", string(dev.FetchStatus)),
		zap.Int("metrics", captured),
		zap.Int("periods", len(dev.Periods)),
	)
	return dev
}

func (ing *Ingester) cacheWrite(name string, data []byte) {
	if ing.cacheDir == "" {
		return
	}
	// Scraping symbols can carry path separators; keep the cache flat.
	name = strings.ReplaceAll(name, "/", "_")
	path := filepath.Join(ing.cacheDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		zap.L().Warn("ingest: cache write failed", zap.String("path", path), zap.Error(err))
	}
}
