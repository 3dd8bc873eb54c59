// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rates orchestrates the per-paper analysis pipeline:
// prepare → filter/smooth → forecast, under one shared parameter set
// for the whole corpus. The result is a pure function of the corpus
// document, the scrape timestamp, the model parameters, and the
// horizon — identical inputs always produce an identical document.
package rates

import (
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/pdiddy/citation-engine/internal/forecast"
	"github.com/pdiddy/citation-engine/internal/kalman"
	"github.com/pdiddy/citation-engine/internal/prepare"
	"github.com/pdiddy/citation-engine/pkg/types"
)

// ModelType names the only smoothing model currently implemented.
const ModelType = "kalman"

// Analyze runs the pipeline over every paper in the corpus and
// assembles the output document. Papers are processed concurrently;
// warnings are buffered and re-emitted on w in input order so output
// stays deterministic. A malformed corpus or invalid parameters fail
// the run before any paper is modeled.
func Analyze(corpus types.CitationCorpus, cfg types.ModelConfig, w io.Writer) (types.RateDocument, error) {
	if err := cfg.Validate(); err != nil {
		return types.RateDocument{}, err
	}
	if err := corpus.Validate(); err != nil {
		return types.RateDocument{}, err
	}
	scrapedAt, err := corpus.ScrapeTime()
	if err != nil {
		return types.RateDocument{}, err
	}

	papers := make([]types.PaperRates, len(corpus.Papers))
	warnings := make([][]string, len(corpus.Papers))
	errs := make([]error, len(corpus.Papers))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for k := 0; k < runtime.NumCPU(); k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				papers[i], warnings[i], errs[i] = AnalyzePaper(corpus.Papers[i], scrapedAt, cfg)
			}
		}()
	}
	for i := range corpus.Papers {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return types.RateDocument{}, fmt.Errorf("paper %q: %w", corpus.Papers[i].Title, err)
		}
	}
	for _, ws := range warnings {
		for _, msg := range ws {
			fmt.Fprintln(w, msg)
		}
	}

	return types.RateDocument{
		UserID:    corpus.UserID,
		ScrapedAt: corpus.ScrapedAt,
		Model:     modelInfo(cfg),
		Papers:    papers,
	}, nil
}

// AnalyzePaper runs one paper through prepare, the smoother, and (for a
// positive horizon) the forecaster. A paper with no citation data
// degrades to a record of empty arrays, not an error.
func AnalyzePaper(p types.PaperCitations, scrapedAt time.Time, cfg types.ModelConfig) (types.PaperRates, []string, error) {
	counts, err := p.YearCounts()
	if err != nil {
		return types.PaperRates{}, nil, err
	}

	series := prepare.Build(counts, scrapedAt, cfg.MinCount)
	if series.Len() == 0 {
		return emptyRecord(p.Title), nil, nil
	}

	smoothed, _, err := kalman.Run(series, kalmanOptions(cfg))
	if err != nil {
		return types.PaperRates{}, nil, locateInstability(err, series)
	}

	record := types.PaperRates{
		Title:             p.Title,
		Years:             series.Years,
		ObservedCitations: series.Counts,
		ExposureFraction:  series.Exposure,
		EmpiricalRate:     series.Empirical,
		SmoothedRate:      smoothed.Rate,
		SmoothedLogRate:   smoothed.LogRate,
		SmoothedRateStd:   smoothed.RateStd,
	}

	if cfg.Horizon > 0 {
		last := series.Len() - 1
		fc := forecast.Project(
			smoothed.LogRate[last], smoothed.LogVar[last],
			cfg.ProcessVar, series.Years[last], cfg.Horizon,
		)
		record.ForecastYears = fc.Years
		record.ForecastLogRateMean = fc.LogMean
		record.ForecastLogRateVar = fc.LogVar
		record.ForecastRateMedian = fc.RateMedian
		record.ForecastRateMean = fc.RateMean
		record.ForecastRateStd = fc.RateStd
		record.ForecastCountsMean = fc.CountsMean
		record.ForecastCountsStd = fc.CountsStd
	}

	return record, conservationWarnings(p, series), nil
}

// PrepareCorpus builds the prepared series for every paper, in corpus
// order. The tuner consumes these directly; it needs no smoothing.
func PrepareCorpus(corpus types.CitationCorpus, minCount float64) ([]prepare.Series, error) {
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	scrapedAt, err := corpus.ScrapeTime()
	if err != nil {
		return nil, err
	}

	out := make([]prepare.Series, len(corpus.Papers))
	for i, p := range corpus.Papers {
		counts, err := p.YearCounts()
		if err != nil {
			return nil, err
		}
		out[i] = prepare.Build(counts, scrapedAt, minCount)
	}
	return out, nil
}

// conservationWarnings compares the per-year sum against the scraper's
// headline total. A mismatch is advisory only: the histogram can lag
// the headline count by scrape timing.
func conservationWarnings(p types.PaperCitations, series prepare.Series) []string {
	if p.TotalCitations == 0 {
		return nil
	}
	sum := 0.0
	for _, c := range series.Counts {
		sum += c
	}
	if math.Abs(sum-float64(p.TotalCitations)) > 0.5 {
		return []string{fmt.Sprintf(
			"warning: %s: yearly counts sum to %.0f, total_citations is %d",
			truncateTitle(p.Title), sum, p.TotalCitations,
		)}
	}
	return nil
}

// locateInstability rewrites a step-indexed instability error in terms
// of the offending calendar year.
func locateInstability(err error, series prepare.Series) error {
	var ie *kalman.InstabilityError
	if errors.As(err, &ie) && ie.Step < series.Len() {
		return fmt.Errorf("year %d: %w", series.Years[ie.Step], err)
	}
	return err
}

func kalmanOptions(cfg types.ModelConfig) kalman.Options {
	return kalman.Options{
		ProcessVar:     cfg.ProcessVar,
		Overdispersion: cfg.Overdispersion,
		ObsVar:         cfg.ObsVar,
		MinCount:       cfg.MinCount,
		VarianceFloor:  cfg.VarianceFloor,
		InitialVar:     cfg.InitialVar,
	}
}

func modelInfo(cfg types.ModelConfig) types.ModelInfo {
	info := types.ModelInfo{
		Type:          ModelType,
		ProcessVar:    cfg.ProcessVar,
		MinCount:      cfg.MinCount,
		VarianceFloor: cfg.VarianceFloor,
	}
	if cfg.ObsVar > 0 {
		info.ObsVar = cfg.ObsVar
	} else {
		info.Overdispersion = cfg.Overdispersion
	}
	return info
}

// emptyRecord keeps the degraded shape explicit: empty arrays, not
// nulls, so the document is uniform for the chart layer.
func emptyRecord(title string) types.PaperRates {
	return types.PaperRates{
		Title:             title,
		Years:             []int{},
		ObservedCitations: []float64{},
		ExposureFraction:  []float64{},
		EmpiricalRate:     []float64{},
		SmoothedRate:      []float64{},
		SmoothedLogRate:   []float64{},
		SmoothedRateStd:   []float64{},
	}
}

func truncateTitle(title string) string {
	if len(title) <= 50 {
		return title
	}
	return title[:50] + "..."
}
