package types

import "fmt"

// ModelConfig holds the shared model parameters for one analysis run.
// One value is constructed per run and threaded through every per-paper
// call; there is no ambient parameter state.
type ModelConfig struct {
	// ProcessVar is the random-walk variance q (> 0).
	ProcessVar float64 `json:"process_var" yaml:"process_var"`

	// Overdispersion is the observation-variance factor φ (> 0 unless
	// ObsVar is set, in which case it is ignored).
	Overdispersion float64 `json:"overdispersion" yaml:"overdispersion"`

	// ObsVar, when positive, replaces the Poisson-motivated
	// time-varying observation variance with a constant.
	ObsVar float64 `json:"obs_var,omitempty" yaml:"obs_var,omitempty"`

	// MinCount is the pseudocount added before the log transform (> 0).
	MinCount float64 `json:"min_count" yaml:"min_count"`

	// VarianceFloor is the additive floor σ²min on the observation
	// variance (>= 0). It stays a plain scalar regardless of the final
	// year's partial exposure.
	VarianceFloor float64 `json:"variance_floor" yaml:"variance_floor"`

	// InitialVar is the prior variance on the first log-rate state.
	InitialVar float64 `json:"initial_var" yaml:"initial_var"`

	// Horizon is the number of years to forecast past the last observed
	// year. Zero disables forecasting.
	Horizon int `json:"horizon" yaml:"horizon"`
}

// DefaultModelConfig returns the globally tuned defaults.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ProcessVar:     0.25,
		Overdispersion: 0.56,
		MinCount:       0.5,
		VarianceFloor:  0.01,
		InitialVar:     1.0,
	}
}

// Validate rejects invalid hyperparameters before any filtering begins.
func (c ModelConfig) Validate() error {
	if c.ProcessVar <= 0 {
		return fmt.Errorf("process_var must be > 0, got %g", c.ProcessVar)
	}
	if c.ObsVar < 0 {
		return fmt.Errorf("obs_var must be >= 0, got %g", c.ObsVar)
	}
	if c.ObsVar == 0 && c.Overdispersion <= 0 {
		return fmt.Errorf("overdispersion must be > 0, got %g", c.Overdispersion)
	}
	if c.MinCount <= 0 {
		return fmt.Errorf("min_count must be > 0, got %g", c.MinCount)
	}
	if c.VarianceFloor < 0 {
		return fmt.Errorf("variance_floor must be >= 0, got %g", c.VarianceFloor)
	}
	if c.InitialVar <= 0 {
		return fmt.Errorf("initial_var must be > 0, got %g", c.InitialVar)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must be >= 0, got %d", c.Horizon)
	}
	return nil
}

// TuneConfig holds the tuning stage settings.
type TuneConfig struct {
	// GridSize is the number of grid points per axis (default 40).
	GridSize int `json:"grid_size" yaml:"grid_size"`

	// QMin/QMax bound the process-variance axis (log-spaced).
	QMin float64 `json:"q_min" yaml:"q_min"`
	QMax float64 `json:"q_max" yaml:"q_max"`

	// PhiMin/PhiMax bound the overdispersion axis (log-spaced).
	PhiMin float64 `json:"phi_min" yaml:"phi_min"`
	PhiMax float64 `json:"phi_max" yaml:"phi_max"`

	// Workers caps the number of concurrent grid-row evaluations.
	// Zero means one worker per CPU.
	Workers int `json:"workers" yaml:"workers"`

	// KeepSurface retains the full log-likelihood grid in the result.
	KeepSurface bool `json:"keep_surface" yaml:"keep_surface"`
}

// DefaultTuneConfig returns the search domain from the model design:
// q in exp([-3, 1]), φ in exp([-1, 2]), 40 points per axis.
func DefaultTuneConfig() TuneConfig {
	return TuneConfig{
		GridSize: 40,
		QMin:     0.049787068367863944, // e^-3
		QMax:     2.718281828459045,    // e^1
		PhiMin:   0.36787944117144233,  // e^-1
		PhiMax:   7.38905609893065,     // e^2
	}
}

// Validate checks the search domain.
func (c TuneConfig) Validate() error {
	if c.GridSize < 2 {
		return fmt.Errorf("grid_size must be >= 2, got %d", c.GridSize)
	}
	if c.QMin <= 0 || c.QMax <= c.QMin {
		return fmt.Errorf("q range (%g, %g) must satisfy 0 < q_min < q_max", c.QMin, c.QMax)
	}
	if c.PhiMin <= 0 || c.PhiMax <= c.PhiMin {
		return fmt.Errorf("phi range (%g, %g) must satisfy 0 < phi_min < phi_max", c.PhiMin, c.PhiMax)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// StoreConfig holds settings for the run archive.
type StoreConfig struct {
	// ResultsDir is the directory holding the archive database and any
	// exported documents (default "results").
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}
