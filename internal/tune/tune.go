// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tune selects the global model hyperparameters by maximizing
// the total marginal log-likelihood over the corpus.
//
// The search is a map-reduce over a log-spaced (q, φ) grid: every cell
// is an independent forward-filter evaluation per paper, summed per
// cell and reduced to a global argmax. Rows are evaluated concurrently;
// the reduction is deterministic regardless of worker count.
package tune

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/pdiddy/citation-engine/internal/kalman"
	"github.com/pdiddy/citation-engine/internal/prepare"
	"github.com/pdiddy/citation-engine/pkg/types"
)

// minInformativeYears is the shortest series that contributes to the
// objective. A single observation only initializes the filter and
// yields a degenerate per-paper likelihood.
const minInformativeYears = 2

// Search evaluates the total marginal log-likelihood on the configured
// grid and returns the maximizing (q, φ) pair. The fixed parameters
// minCount, varianceFloor and initialVar are shared by every candidate.
// Progress goes to w.
func Search(papers []prepare.Series, cfg types.TuneConfig, minCount, varianceFloor, initialVar float64, w io.Writer) (types.TuneResult, error) {
	if err := cfg.Validate(); err != nil {
		return types.TuneResult{}, err
	}
	if minCount <= 0 {
		return types.TuneResult{}, fmt.Errorf("invalid hyperparameter: min count %g <= 0", minCount)
	}
	if varianceFloor < 0 {
		return types.TuneResult{}, fmt.Errorf("invalid hyperparameter: variance floor %g < 0", varianceFloor)
	}
	if initialVar <= 0 {
		return types.TuneResult{}, fmt.Errorf("invalid hyperparameter: initial variance %g <= 0", initialVar)
	}

	informative := make([]prepare.Series, 0, len(papers))
	nPapers := 0
	for _, p := range papers {
		if p.Len() == 0 {
			continue
		}
		nPapers++
		if p.Len() >= minInformativeYears {
			informative = append(informative, p)
		}
	}
	if len(informative) == 0 {
		return types.TuneResult{}, fmt.Errorf("no paper has %d or more observed years; nothing to tune on", minInformativeYears)
	}

	domain := types.SearchDomain{
		Q:   floats.LogSpan(make([]float64, cfg.GridSize), cfg.QMin, cfg.QMax),
		Phi: floats.LogSpan(make([]float64, cfg.GridSize), cfg.PhiMin, cfg.PhiMax),
	}

	fmt.Fprintf(w, "evaluating %dx%d grid over %d papers (%d informative)...\n",
		cfg.GridSize, cfg.GridSize, nPapers, len(informative))

	surface, err := evaluateSurface(informative, domain, minCount, varianceFloor, initialVar, cfg.Workers)
	if err != nil {
		return types.TuneResult{}, err
	}

	bestI, bestJ := argmax(surface)
	result := types.TuneResult{
		NPapers:       nPapers,
		NInformative:  len(informative),
		MinCount:      minCount,
		VarianceFloor: varianceFloor,
		Domain:        domain,
		Optimal: types.TunedParameters{
			ProcessVar:     domain.Q[bestI],
			Overdispersion: domain.Phi[bestJ],
			LogLikelihood:  surface[bestI][bestJ],
		},
	}
	if cfg.KeepSurface {
		result.Surface = surface
	}

	fmt.Fprintf(w, "optimal: process_var=%.4f overdispersion=%.4f log_likelihood=%.2f\n",
		result.Optimal.ProcessVar, result.Optimal.Overdispersion, result.Optimal.LogLikelihood)
	return result, nil
}

// evaluateSurface fills the log-likelihood grid, one worker per row.
func evaluateSurface(papers []prepare.Series, domain types.SearchDomain, minCount, varianceFloor, initialVar float64, workers int) ([][]float64, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	surface := make([][]float64, len(domain.Q))
	rowErrs := make([]error, len(domain.Q))

	rows := make(chan int)
	var wg sync.WaitGroup
	for k := 0; k < workers; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				surface[i], rowErrs[i] = evaluateRow(papers, domain.Q[i], domain.Phi, minCount, varianceFloor, initialVar)
			}
		}()
	}
	for i := range domain.Q {
		rows <- i
	}
	close(rows)
	wg.Wait()

	for _, err := range rowErrs {
		if err != nil {
			return nil, err
		}
	}
	return surface, nil
}

// evaluateRow scores every φ for one q.
func evaluateRow(papers []prepare.Series, q float64, phis []float64, minCount, varianceFloor, initialVar float64) ([]float64, error) {
	row := make([]float64, len(phis))
	for j, phi := range phis {
		total, err := TotalLogLikelihood(papers, q, phi, minCount, varianceFloor, initialVar)
		if err != nil {
			return nil, fmt.Errorf("scoring q=%g phi=%g: %w", q, phi, err)
		}
		row[j] = total
	}
	return row, nil
}

// TotalLogLikelihood sums the forward-pass marginal log-likelihood of
// every informative paper for one (q, φ) candidate. Papers with fewer
// than two observed years contribute nothing.
func TotalLogLikelihood(papers []prepare.Series, q, phi, minCount, varianceFloor, initialVar float64) (float64, error) {
	opts := kalman.Options{
		ProcessVar:     q,
		Overdispersion: phi,
		MinCount:       minCount,
		VarianceFloor:  varianceFloor,
		InitialVar:     initialVar,
	}

	total := 0.0
	for _, p := range papers {
		if p.Len() < minInformativeYears {
			continue
		}
		tr, err := kalman.Filter(p.LogObs, kalman.ObsVariance(p.Empirical, opts), q, initialVar)
		if err != nil {
			return 0, err
		}
		total += kalman.LogLikelihood(tr)
	}
	return total, nil
}

// argmax returns the row-major first maximum of the surface, so ties
// resolve identically on every run.
func argmax(surface [][]float64) (int, int) {
	bestI, bestJ := 0, 0
	best := math.Inf(-1)
	for i, row := range surface {
		for j, v := range row {
			if v > best {
				best, bestI, bestJ = v, i, j
			}
		}
	}
	return bestI, bestJ
}
