// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tune

import (
	"io"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/pdiddy/citation-engine/internal/prepare"
	"github.com/pdiddy/citation-engine/pkg/types"
)

const (
	minCount = 0.5
	floor    = 0.01
	initVar  = 1.0
)

// simulate draws a corpus from the generative model itself: a log-rate
// random walk with process variance q0, observed with the
// Poisson-motivated noise at overdispersion phi0.
func simulate(rng *rand.Rand, nPapers, nYears int, q0, phi0 float64) []prepare.Series {
	papers := make([]prepare.Series, nPapers)
	for p := range papers {
		s := prepare.Series{
			Years:     make([]int, nYears),
			Empirical: make([]float64, nYears),
			LogObs:    make([]float64, nYears),
		}
		x := 0.5 + 2.5*rng.Float64()
		for t := 0; t < nYears; t++ {
			x += rng.NormFloat64() * math.Sqrt(q0)
			rate := math.Exp(x)
			obsVar := phi0/(rate+minCount) + floor
			obs := x + rng.NormFloat64()*math.Sqrt(obsVar)

			s.Years[t] = 2000 + t
			s.Empirical[t] = math.Max(math.Exp(obs)-minCount, 0)
			s.LogObs[t] = math.Log(s.Empirical[t] + minCount)
		}
		papers[p] = s
	}
	return papers
}

// The objective at the generating parameters must dominate the
// objective at parameter pairs far from them.
func TestTotalLogLikelihoodRecoversTruth(t *testing.T) {
	const q0, phi0 = 0.2, 1.0
	rng := rand.New(rand.NewSource(7))
	papers := simulate(rng, 30, 25, q0, phi0)

	atTruth, err := TotalLogLikelihood(papers, q0, phi0, minCount, floor, initVar)
	if err != nil {
		t.Fatalf("TotalLogLikelihood at truth: %v", err)
	}

	far := []struct{ q, phi float64 }{
		{5.0, 0.05},
		{0.001, 20.0},
		{0.005, 0.05},
		{3.0, 8.0},
	}
	for _, c := range far {
		got, err := TotalLogLikelihood(papers, c.q, c.phi, minCount, floor, initVar)
		if err != nil {
			t.Fatalf("TotalLogLikelihood at (%g, %g): %v", c.q, c.phi, err)
		}
		if got >= atTruth {
			t.Errorf("logL(%g, %g) = %.1f, want below logL(q0, phi0) = %.1f", c.q, c.phi, got, atTruth)
		}
	}
}

func TestTotalLogLikelihoodExcludesShortPapers(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	papers := simulate(rng, 5, 10, 0.25, 0.56)

	base, err := TotalLogLikelihood(papers, 0.25, 0.56, minCount, floor, initVar)
	if err != nil {
		t.Fatal(err)
	}

	// Appending single-year and empty papers must not move the total.
	padded := append(append([]prepare.Series{}, papers...),
		prepare.Series{Years: []int{2021}, Empirical: []float64{4}, LogObs: []float64{math.Log(4.5)}},
		prepare.Series{},
	)
	got, err := TotalLogLikelihood(padded, 0.25, 0.56, minCount, floor, initVar)
	if err != nil {
		t.Fatal(err)
	}
	if got != base {
		t.Errorf("total with short papers = %g, want %g", got, base)
	}
}

func searchCfg(gridSize, workers int) types.TuneConfig {
	cfg := types.DefaultTuneConfig()
	cfg.GridSize = gridSize
	cfg.Workers = workers
	cfg.KeepSurface = true
	return cfg
}

func TestSearchFindsNeighborhoodOfTruth(t *testing.T) {
	const q0, phi0 = 0.3, 1.2
	rng := rand.New(rand.NewSource(11))
	papers := simulate(rng, 40, 20, q0, phi0)

	res, err := Search(papers, searchCfg(15, 4), minCount, floor, initVar, io.Discard)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	// The maximizer should land within the (coarse) grid's reach of the
	// generating values: well inside an order of magnitude.
	if res.Optimal.ProcessVar < q0/4 || res.Optimal.ProcessVar > q0*4 {
		t.Errorf("ProcessVar = %g, want near %g", res.Optimal.ProcessVar, q0)
	}
	if res.Optimal.Overdispersion < phi0/4 || res.Optimal.Overdispersion > phi0*4 {
		t.Errorf("Overdispersion = %g, want near %g", res.Optimal.Overdispersion, phi0)
	}

	if len(res.Surface) != 15 || len(res.Surface[0]) != 15 {
		t.Errorf("surface is %dx%d, want 15x15", len(res.Surface), len(res.Surface[0]))
	}
	if res.NInformative != 40 {
		t.Errorf("NInformative = %d, want 40", res.NInformative)
	}

	// The reported optimum is the surface maximum.
	for i, row := range res.Surface {
		for j, v := range row {
			if v > res.Optimal.LogLikelihood {
				t.Errorf("surface[%d][%d] = %g exceeds reported optimum %g", i, j, v, res.Optimal.LogLikelihood)
			}
		}
	}
}

// Worker count must not change the result.
func TestSearchDeterministicAcrossWorkers(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	papers := simulate(rng, 10, 12, 0.25, 0.56)

	one, err := Search(papers, searchCfg(8, 1), minCount, floor, initVar, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	many, err := Search(papers, searchCfg(8, 8), minCount, floor, initVar, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	if one.Optimal != many.Optimal {
		t.Errorf("optimal differs: %+v vs %+v", one.Optimal, many.Optimal)
	}
	if !reflect.DeepEqual(one.Surface, many.Surface) {
		t.Error("surface differs between worker counts")
	}
}

func TestSearchRequiresInformativePapers(t *testing.T) {
	papers := []prepare.Series{
		{},
		{Years: []int{2021}, Empirical: []float64{2}, LogObs: []float64{math.Log(2.5)}},
	}
	if _, err := Search(papers, searchCfg(5, 1), minCount, floor, initVar, io.Discard); err == nil {
		t.Error("Search with no informative papers should fail")
	}
}

func TestSearchRejectsBadDomain(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	papers := simulate(rng, 3, 8, 0.25, 0.56)

	cfg := searchCfg(5, 1)
	cfg.QMin = -1
	if _, err := Search(papers, cfg, minCount, floor, initVar, io.Discard); err == nil {
		t.Error("negative q_min should be rejected")
	}

	if _, err := Search(papers, searchCfg(5, 1), 0, floor, initVar, io.Discard); err == nil {
		t.Error("zero min count should be rejected")
	}
}
