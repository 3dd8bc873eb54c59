// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"testing"
	"time"
)

func validCorpus() CitationCorpus {
	return CitationCorpus{
		UserID:    "RIi-1pAAAAAJ",
		ScrapedAt: "2025-06-01T00:00:00Z",
		Papers: []PaperCitations{
			{
				Title:           "Adaptive Scheduling in Overlay Networks",
				TotalCitations:  77,
				CitationsByYear: map[string]int{"2020": 10, "2021": 25, "2022": 42},
			},
		},
	}
}

func TestYearCounts(t *testing.T) {
	p := PaperCitations{
		Title:           "Adaptive Scheduling in Overlay Networks",
		CitationsByYear: map[string]int{"2020": 10, "2022": 42},
	}
	counts, err := p.YearCounts()
	if err != nil {
		t.Fatalf("YearCounts: %v", err)
	}
	if len(counts) != 2 || counts[2020] != 10 || counts[2022] != 42 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestYearCountsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		years map[string]int
		want  string
	}{
		{"non-numeric year", map[string]int{"20x1": 3}, "non-numeric year"},
		{"negative count", map[string]int{"2021": -1}, "negative count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PaperCitations{Title: "t", CitationsByYear: tt.years}
			if _, err := p.YearCounts(); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("YearCounts() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestScrapeTime(t *testing.T) {
	c := validCorpus()
	ts, err := c.ScrapeTime()
	if err != nil {
		t.Fatalf("ScrapeTime: %v", err)
	}
	want := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("ScrapeTime() = %v, want %v", ts, want)
	}
}

func TestCorpusValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CitationCorpus)
		want   string // empty means valid
	}{
		{"valid", func(c *CitationCorpus) {}, ""},
		{"missing scraped_at", func(c *CitationCorpus) { c.ScrapedAt = "" }, "missing scraped_at"},
		{"no offset", func(c *CitationCorpus) { c.ScrapedAt = "2025-06-01T00:00:00" }, "parsing scraped_at"},
		{"missing title", func(c *CitationCorpus) { c.Papers[0].Title = "" }, "missing title"},
		{"bad year key", func(c *CitationCorpus) { c.Papers[0].CitationsByYear["n/a"] = 1 }, "non-numeric year"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCorpus()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestModelConfigValidate(t *testing.T) {
	if err := DefaultModelConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ModelConfig)
	}{
		{"zero process var", func(c *ModelConfig) { c.ProcessVar = 0 }},
		{"negative obs var", func(c *ModelConfig) { c.ObsVar = -1 }},
		{"zero overdispersion", func(c *ModelConfig) { c.Overdispersion = 0 }},
		{"zero min count", func(c *ModelConfig) { c.MinCount = 0 }},
		{"negative variance floor", func(c *ModelConfig) { c.VarianceFloor = -0.01 }},
		{"zero initial var", func(c *ModelConfig) { c.InitialVar = 0 }},
		{"negative horizon", func(c *ModelConfig) { c.Horizon = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultModelConfig()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	// Constant observation variance makes overdispersion irrelevant.
	c := DefaultModelConfig()
	c.ObsVar = 0.5
	c.Overdispersion = 0
	if err := c.Validate(); err != nil {
		t.Errorf("constant obs_var config invalid: %v", err)
	}
}

func TestTuneConfigValidate(t *testing.T) {
	if err := DefaultTuneConfig().Validate(); err != nil {
		t.Fatalf("default tune config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TuneConfig)
	}{
		{"grid too small", func(c *TuneConfig) { c.GridSize = 1 }},
		{"inverted q range", func(c *TuneConfig) { c.QMin, c.QMax = 2, 1 }},
		{"zero q min", func(c *TuneConfig) { c.QMin = 0 }},
		{"inverted phi range", func(c *TuneConfig) { c.PhiMin, c.PhiMax = 8, 1 }},
		{"negative workers", func(c *TuneConfig) { c.Workers = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultTuneConfig()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
