// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the document shapes and configuration shared
// across the citation-engine stages. The corpus and rates documents are
// the engine's only external boundary: the scraper produces the former,
// the visualization layer consumes the latter.
package types

import (
	"fmt"
	"strconv"
	"time"
)

// PaperCitations holds one paper's raw citation data as scraped.
type PaperCitations struct {
	// Title is the paper title as reported by the scraper.
	Title string `json:"title" yaml:"title"`

	// TotalCitations is the scraper's all-time citation count. It may
	// legitimately differ from the sum of CitationsByYear because the
	// per-year histogram lags the headline number.
	TotalCitations int `json:"total_citations" yaml:"total_citations"`

	// CitationsByYear maps a calendar year (as a decimal string, the
	// scraper's wire format) to the citation count observed in that
	// year. Years with zero citations may be absent.
	CitationsByYear map[string]int `json:"citations_by_year" yaml:"citations_by_year"`
}

// YearCounts parses CitationsByYear into integer-keyed form. A
// non-numeric year key or a negative count is malformed input.
func (p PaperCitations) YearCounts() (map[int]int, error) {
	out := make(map[int]int, len(p.CitationsByYear))
	for key, count := range p.CitationsByYear {
		year, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("paper %q: non-numeric year key %q", p.Title, key)
		}
		if count < 0 {
			return nil, fmt.Errorf("paper %q: negative count %d for year %d", p.Title, count, year)
		}
		out[year] = count
	}
	return out, nil
}

// CitationCorpus is the input document produced by the scraping stage.
type CitationCorpus struct {
	// UserID is the scholar profile the corpus was scraped from.
	UserID string `json:"user_id" yaml:"user_id"`

	// ScrapedAt is the scrape timestamp in RFC 3339 form. It must carry
	// an explicit UTC offset; the exposure fraction of the scrape year
	// depends on it.
	ScrapedAt string `json:"scraped_at" yaml:"scraped_at"`

	// Papers lists every paper in the corpus, in scrape order.
	Papers []PaperCitations `json:"papers" yaml:"papers"`
}

// ScrapeTime parses ScrapedAt. RFC 3339 requires an explicit offset, so
// a bare local timestamp is rejected rather than guessed at.
func (c CitationCorpus) ScrapeTime() (time.Time, error) {
	if c.ScrapedAt == "" {
		return time.Time{}, fmt.Errorf("corpus is missing scraped_at")
	}
	ts, err := time.Parse(time.RFC3339, c.ScrapedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing scraped_at %q: %w", c.ScrapedAt, err)
	}
	return ts, nil
}

// Validate checks the whole corpus before any modeling starts. A
// malformed corpus fails the entire run; no partial output is emitted.
func (c CitationCorpus) Validate() error {
	if _, err := c.ScrapeTime(); err != nil {
		return err
	}
	for i, p := range c.Papers {
		if p.Title == "" {
			return fmt.Errorf("paper %d: missing title", i)
		}
		if _, err := p.YearCounts(); err != nil {
			return err
		}
	}
	return nil
}
