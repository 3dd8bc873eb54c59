// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prepare

import (
	"math"
	"testing"
	"time"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return ts
}

func TestBuildFillsInteriorGaps(t *testing.T) {
	scraped := mustParse(t, "2025-06-01T00:00:00Z")
	s := Build(map[int]int{2018: 20, 2020: 30}, scraped, 0.5)

	wantYears := []int{2018, 2019, 2020}
	wantCounts := []float64{20, 0, 30}

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	for i := range wantYears {
		if s.Years[i] != wantYears[i] {
			t.Errorf("Years[%d] = %d, want %d", i, s.Years[i], wantYears[i])
		}
		if s.Counts[i] != wantCounts[i] {
			t.Errorf("Counts[%d] = %g, want %g", i, s.Counts[i], wantCounts[i])
		}
		if s.Exposure[i] != 1.0 {
			t.Errorf("Exposure[%d] = %g, want 1.0", i, s.Exposure[i])
		}
	}
}

func TestBuildEmptyMap(t *testing.T) {
	s := Build(nil, mustParse(t, "2025-06-01T00:00:00Z"), 0.5)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if s.Counts != nil || s.LogObs != nil {
		t.Error("empty map should yield zero-value slices")
	}
}

func TestBuildScrapeYearExposure(t *testing.T) {
	// Mid-year scrape: the final (scrape) year is partially observed,
	// earlier years fully.
	scraped := mustParse(t, "2025-07-02T12:00:00Z")
	s := Build(map[int]int{2023: 10, 2025: 6}, scraped, 0.5)

	if s.Exposure[0] != 1.0 || s.Exposure[1] != 1.0 {
		t.Errorf("pre-scrape-year exposure = %v, want 1.0", s.Exposure[:2])
	}

	frac := s.Exposure[2]
	if frac <= 0.4 || frac >= 0.6 {
		t.Errorf("scrape-year exposure = %g, want roughly half the year", frac)
	}

	// Annualization: 6 citations over half a year is a rate of ~12/yr.
	wantRate := 6.0 / frac
	if math.Abs(s.Empirical[2]-wantRate) > 1e-12 {
		t.Errorf("Empirical[2] = %g, want %g", s.Empirical[2], wantRate)
	}
	if got := math.Log(wantRate + 0.5); math.Abs(s.LogObs[2]-got) > 1e-12 {
		t.Errorf("LogObs[2] = %g, want %g", s.LogObs[2], got)
	}
}

func TestBuildLastYearBeforeScrapeYear(t *testing.T) {
	// Paper's last citation year precedes the scrape year: every year
	// is fully exposed, even though the scrape is mid-year.
	scraped := mustParse(t, "2025-03-15T08:00:00Z")
	s := Build(map[int]int{2020: 4, 2022: 1}, scraped, 0.5)
	for i, e := range s.Exposure {
		if e != 1.0 {
			t.Errorf("Exposure[%d] = %g, want 1.0", i, e)
		}
	}
}

func TestExposureFraction(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		lo   float64
		hi   float64
	}{
		{"early january", "2025-01-02T00:00:00Z", 0.001, 0.01},
		{"mid year", "2025-07-02T12:00:00Z", 0.49, 0.51},
		{"late december", "2025-12-31T12:00:00Z", 0.99, 1.0},
		{"offset timezone", "2025-07-02T12:00:00+02:00", 0.49, 0.51},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frac := ExposureFraction(mustParse(t, tt.ts))
			if frac < tt.lo || frac > tt.hi {
				t.Errorf("ExposureFraction = %g, want in [%g, %g]", frac, tt.lo, tt.hi)
			}
		})
	}
}

func TestExposureFractionAnomalyFallsBack(t *testing.T) {
	// Exactly at year start the elapsed fraction is zero, which is an
	// out-of-range exposure; the fallback is a full year.
	frac := ExposureFraction(mustParse(t, "2025-01-01T00:00:00Z"))
	if frac != 1.0 {
		t.Errorf("ExposureFraction at year start = %g, want 1.0 fallback", frac)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	raw := map[int]int{2018: 20, 2020: 30}
	_ = Build(raw, mustParse(t, "2025-06-01T00:00:00Z"), 0.5)
	if len(raw) != 2 || raw[2018] != 20 || raw[2020] != 30 {
		t.Errorf("input map mutated: %v", raw)
	}
}
