// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prepare turns a sparse per-year citation map into a dense,
// exposure-adjusted time series ready for filtering. Every function is
// a pure value-returning transformation; nothing here mutates its input.
package prepare

import (
	"math"
	"sort"
	"time"
)

// exposureEps guards the rate division against a degenerate exposure.
const exposureEps = 1e-6

// Series is a prepared per-paper time series. All slices share one
// length T and index; an empty Series (T = 0) means the paper had no
// citation data and downstream stages skip modeling it.
type Series struct {
	// Years is the contiguous year grid from the first to the last
	// observed year. Interior years missing from the raw map appear
	// with a zero count: the paper existed and drew no citations.
	Years []int

	// Counts holds the observed citation counts on the year grid.
	Counts []float64

	// Exposure is the observed fraction of each year, in (0, 1]. Only
	// the final year can be fractional, and only when it is the scrape
	// year itself.
	Exposure []float64

	// Empirical is the annualized rate Counts/Exposure.
	Empirical []float64

	// LogObs is log(Empirical + minCount), the filter's observation.
	LogObs []float64
}

// Len returns the number of years in the series.
func (s Series) Len() int { return len(s.Years) }

// Build constructs a Series from a raw year→count map and the corpus
// scrape time. An empty map yields an empty Series, not an error.
func Build(citations map[int]int, scrapedAt time.Time, minCount float64) Series {
	if len(citations) == 0 {
		return Series{}
	}

	years := yearGrid(citations)
	n := len(years)

	s := Series{
		Years:     years,
		Counts:    make([]float64, n),
		Exposure:  make([]float64, n),
		Empirical: make([]float64, n),
		LogObs:    make([]float64, n),
	}

	scrapeYear := scrapedAt.Year()
	for i, y := range years {
		s.Counts[i] = float64(citations[y])
		s.Exposure[i] = 1.0
		if i == n-1 && y == scrapeYear {
			s.Exposure[i] = ExposureFraction(scrapedAt)
		}
		s.Empirical[i] = s.Counts[i] / math.Max(s.Exposure[i], exposureEps)
		s.LogObs[i] = math.Log(s.Empirical[i] + minCount)
	}
	return s
}

// yearGrid returns every year from min to max of the map keys, inclusive.
func yearGrid(citations map[int]int) []int {
	keys := make([]int, 0, len(citations))
	for y := range citations {
		keys = append(keys, y)
	}
	sort.Ints(keys)

	first, last := keys[0], keys[len(keys)-1]
	grid := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		grid = append(grid, y)
	}
	return grid
}

// ExposureFraction returns the fraction of scrapedAt's calendar year
// elapsed at the scrape instant, in (0, 1]. Any timestamp anomaly falls
// back to 1.0 rather than producing an out-of-range exposure.
func ExposureFraction(scrapedAt time.Time) float64 {
	loc := scrapedAt.Location()
	year := scrapedAt.Year()

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	nextStart := time.Date(year+1, time.January, 1, 0, 0, 0, 0, loc)

	total := nextStart.Sub(yearStart).Seconds()
	elapsed := scrapedAt.Sub(yearStart).Seconds()
	if total <= 0 {
		return 1.0
	}

	fraction := elapsed / total
	if fraction <= 0 || fraction > 1 {
		return 1.0
	}
	return fraction
}
