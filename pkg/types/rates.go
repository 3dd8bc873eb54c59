// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ModelInfo records the model parameters a rates document was generated
// with, so downstream consumers can label and reproduce the fit.
type ModelInfo struct {
	// Type names the smoothing model. Currently always "kalman".
	Type string `json:"type" yaml:"type"`

	// ProcessVar is the random-walk variance q on the log-rate state.
	ProcessVar float64 `json:"process_var" yaml:"process_var"`

	// Overdispersion is the factor φ scaling the Poisson-motivated
	// observation variance. Zero when a constant ObsVar was used.
	Overdispersion float64 `json:"obs_overdispersion,omitempty" yaml:"obs_overdispersion,omitempty"`

	// ObsVar is the constant observation variance, used only when
	// Overdispersion is unset.
	ObsVar float64 `json:"obs_var,omitempty" yaml:"obs_var,omitempty"`

	// MinCount is the pseudocount added before the log transform.
	MinCount float64 `json:"min_count" yaml:"min_count"`

	// VarianceFloor is the additive floor on the observation variance.
	VarianceFloor float64 `json:"variance_floor" yaml:"variance_floor"`
}

// PaperRates is the per-paper output record. All slices are aligned
// with Years. The forecast slices are aligned with ForecastYears and
// present only when the run was made with a positive horizon.
type PaperRates struct {
	Title string `json:"title" yaml:"title"`

	// Years is the contiguous year grid from first to last observed year.
	Years []int `json:"years" yaml:"years"`

	// ObservedCitations holds the raw counts, zero-filled for gap years.
	ObservedCitations []float64 `json:"observed_citations" yaml:"observed_citations"`

	// ExposureFraction is the observed fraction of each year, 1.0
	// except possibly for the scrape year.
	ExposureFraction []float64 `json:"exposure_fraction" yaml:"exposure_fraction"`

	// EmpiricalRate is the annualized count, count/exposure.
	EmpiricalRate []float64 `json:"empirical_rate" yaml:"empirical_rate"`

	// SmoothedRate is the retrospective rate estimate exp(SmoothedLogRate).
	SmoothedRate []float64 `json:"smoothed_rate" yaml:"smoothed_rate"`

	// SmoothedLogRate is the RTS-smoothed latent state.
	SmoothedLogRate []float64 `json:"smoothed_log_rate" yaml:"smoothed_log_rate"`

	// SmoothedRateStd is the delta-method standard deviation of SmoothedRate.
	SmoothedRateStd []float64 `json:"smoothed_rate_std" yaml:"smoothed_rate_std"`

	ForecastYears       []int     `json:"forecast_years,omitempty" yaml:"forecast_years,omitempty"`
	ForecastLogRateMean []float64 `json:"forecast_log_rate_mean,omitempty" yaml:"forecast_log_rate_mean,omitempty"`
	ForecastLogRateVar  []float64 `json:"forecast_log_rate_var,omitempty" yaml:"forecast_log_rate_var,omitempty"`
	ForecastRateMedian  []float64 `json:"forecast_rate_median,omitempty" yaml:"forecast_rate_median,omitempty"`
	ForecastRateMean    []float64 `json:"forecast_rate_mean,omitempty" yaml:"forecast_rate_mean,omitempty"`
	ForecastRateStd     []float64 `json:"forecast_rate_std,omitempty" yaml:"forecast_rate_std,omitempty"`
	ForecastCountsMean  []float64 `json:"forecast_counts_mean,omitempty" yaml:"forecast_counts_mean,omitempty"`
	ForecastCountsStd   []float64 `json:"forecast_counts_std,omitempty" yaml:"forecast_counts_std,omitempty"`
}

// RateDocument is the output document consumed by the visualization
// layer. UserID and ScrapedAt pass through from the corpus unchanged.
type RateDocument struct {
	UserID    string       `json:"user_id" yaml:"user_id"`
	ScrapedAt string       `json:"scraped_at" yaml:"scraped_at"`
	Model     ModelInfo    `json:"model" yaml:"model"`
	Papers    []PaperRates `json:"papers" yaml:"papers"`
}

// SearchDomain describes the hyperparameter grid a tuning run evaluated.
type SearchDomain struct {
	// Q and Phi are the log-spaced grid values per axis.
	Q   []float64 `json:"process_var_grid" yaml:"process_var_grid"`
	Phi []float64 `json:"overdispersion_grid" yaml:"overdispersion_grid"`
}

// TunedParameters is the argmax of the total marginal log-likelihood.
type TunedParameters struct {
	ProcessVar     float64 `json:"process_var" yaml:"process_var"`
	Overdispersion float64 `json:"overdispersion" yaml:"overdispersion"`
	LogLikelihood  float64 `json:"log_likelihood" yaml:"log_likelihood"`
}

// TuneResult is the tuner's output document.
type TuneResult struct {
	// NPapers counts papers with any citation data; NInformative those
	// with at least two observed years, the only ones scored.
	NPapers      int `json:"n_papers" yaml:"n_papers"`
	NInformative int `json:"n_papers_with_2plus_years" yaml:"n_papers_with_2plus_years"`

	MinCount      float64      `json:"min_count" yaml:"min_count"`
	VarianceFloor float64      `json:"variance_floor" yaml:"variance_floor"`
	Domain        SearchDomain `json:"search_domain" yaml:"search_domain"`

	Optimal TunedParameters `json:"optimal" yaml:"optimal"`

	// Surface is the full log-likelihood grid, row i = Domain.Q[i],
	// column j = Domain.Phi[j]. Populated only on request; it is large.
	Surface [][]float64 `json:"log_likelihood_surface,omitempty" yaml:"log_likelihood_surface,omitempty"`
}
