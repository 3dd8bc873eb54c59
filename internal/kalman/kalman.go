// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kalman implements the scalar local-level filter and RTS
// smoother behind the citation rate model.
//
// The model lives on the log scale: the latent log-rate follows a pure
// random walk x_t = x_{t-1} + ε_t with ε_t ~ N(0, q), observed as
// z_t = x_t + η_t with η_t ~ N(0, R_t). The observation variance is
// time-varying, R_t = φ/(rate_t + minCount) + σ²min: counts with a
// higher rate pin the log-rate down more precisely.
package kalman

import (
	"fmt"
	"math"

	"github.com/pdiddy/citation-engine/internal/prepare"
)

// Options holds the model hyperparameters for one filtering run.
type Options struct {
	// ProcessVar is the random-walk variance q (> 0).
	ProcessVar float64

	// Overdispersion is the observation-variance factor φ (> 0 unless
	// ObsVar is set).
	Overdispersion float64

	// ObsVar, when positive, fixes the observation variance to a
	// constant instead of the Poisson-motivated form.
	ObsVar float64

	// MinCount is the pseudocount shared with the log transform (> 0).
	MinCount float64

	// VarianceFloor is the additive floor σ²min on R_t (>= 0).
	VarianceFloor float64

	// InitialVar is the prior variance on the first state (> 0).
	InitialVar float64
}

// Validate rejects invalid hyperparameters before any recursion runs.
func (o Options) Validate() error {
	switch {
	case o.ProcessVar <= 0:
		return fmt.Errorf("invalid hyperparameter: process variance %g <= 0", o.ProcessVar)
	case o.ObsVar < 0:
		return fmt.Errorf("invalid hyperparameter: observation variance %g < 0", o.ObsVar)
	case o.ObsVar == 0 && o.Overdispersion <= 0:
		return fmt.Errorf("invalid hyperparameter: overdispersion %g <= 0", o.Overdispersion)
	case o.MinCount <= 0:
		return fmt.Errorf("invalid hyperparameter: min count %g <= 0", o.MinCount)
	case o.VarianceFloor < 0:
		return fmt.Errorf("invalid hyperparameter: variance floor %g < 0", o.VarianceFloor)
	case o.InitialVar <= 0:
		return fmt.Errorf("invalid hyperparameter: initial variance %g <= 0", o.InitialVar)
	}
	return nil
}

// InstabilityError reports a non-positive or non-finite quantity inside
// the recursions. The value is never clamped into a plausible one; the
// run fails with the offending step identified.
type InstabilityError struct {
	// Step is the zero-based time index at which the recursion broke.
	Step int

	// Quantity names the broken term (e.g. "filtered variance").
	Quantity string

	// Value is the offending value.
	Value float64
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("numerical instability at step %d: %s = %g", e.Step, e.Quantity, e.Value)
}

// Trace records the forward pass. V and S are the one-step prediction
// errors and their variances, the sole inputs to likelihood scoring.
type Trace struct {
	XPred []float64
	PPred []float64
	XFilt []float64
	PFilt []float64
	V     []float64
	S     []float64
}

// Len returns the number of filtered steps.
func (tr Trace) Len() int { return len(tr.XFilt) }

// ObsVariance returns R_t for each year of the prepared series. In the
// constant mode (ObsVar > 0) every entry is ObsVar; otherwise
// R_t = φ/(empiricalRate_t + minCount) + σ²min.
func ObsVariance(empirical []float64, o Options) []float64 {
	r := make([]float64, len(empirical))
	for t, rate := range empirical {
		if o.ObsVar > 0 {
			r[t] = o.ObsVar
			continue
		}
		r[t] = o.Overdispersion/(rate+o.MinCount) + o.VarianceFloor
	}
	return r
}

// Filter runs the forward pass over observations z with per-step
// observation variances obsVar. The first step is initialized with the
// first observation as the predicted mean and initialVar as the
// predicted variance, so v_1 = 0 by construction.
func Filter(z, obsVar []float64, processVar, initialVar float64) (Trace, error) {
	n := len(z)
	tr := Trace{
		XPred: make([]float64, n),
		PPred: make([]float64, n),
		XFilt: make([]float64, n),
		PFilt: make([]float64, n),
		V:     make([]float64, n),
		S:     make([]float64, n),
	}

	for t := 0; t < n; t++ {
		if t == 0 {
			tr.XPred[t] = z[0]
			tr.PPred[t] = initialVar
		} else {
			tr.XPred[t] = tr.XFilt[t-1]
			tr.PPred[t] = tr.PFilt[t-1] + processVar
		}

		tr.V[t] = z[t] - tr.XPred[t]
		tr.S[t] = tr.PPred[t] + obsVar[t]
		if err := checkVariance(t, "innovation variance", tr.S[t]); err != nil {
			return Trace{}, err
		}

		gain := tr.PPred[t] / tr.S[t]
		tr.XFilt[t] = tr.XPred[t] + gain*tr.V[t]
		tr.PFilt[t] = (1 - gain) * tr.PPred[t]

		if err := checkVariance(t, "filtered variance", tr.PFilt[t]); err != nil {
			return Trace{}, err
		}
		if err := checkFinite(t, "filtered mean", tr.XFilt[t]); err != nil {
			return Trace{}, err
		}
	}
	return tr, nil
}

// Smooth runs the RTS backward pass over a forward trace, returning the
// smoothed means and variances.
func Smooth(tr Trace) (mean, variance []float64, err error) {
	n := tr.Len()
	if n == 0 {
		return nil, nil, nil
	}

	mean = make([]float64, n)
	variance = make([]float64, n)
	mean[n-1] = tr.XFilt[n-1]
	variance[n-1] = tr.PFilt[n-1]

	for t := n - 2; t >= 0; t-- {
		gain := tr.PFilt[t] / tr.PPred[t+1]
		mean[t] = tr.XFilt[t] + gain*(mean[t+1]-tr.XPred[t+1])
		variance[t] = tr.PFilt[t] + gain*gain*(variance[t+1]-tr.PPred[t+1])

		if err := checkVariance(t, "smoothed variance", variance[t]); err != nil {
			return nil, nil, err
		}
		if err := checkFinite(t, "smoothed mean", mean[t]); err != nil {
			return nil, nil, err
		}
	}
	return mean, variance, nil
}

// LogLikelihood returns the marginal log-likelihood of the observations
// under the model that produced the trace:
//
//	logL = -1/2 Σ_t [log 2π + log S_t + v_t²/S_t]
func LogLikelihood(tr Trace) float64 {
	ll := 0.0
	for t := range tr.S {
		ll += math.Log(2*math.Pi) + math.Log(tr.S[t]) + tr.V[t]*tr.V[t]/tr.S[t]
	}
	return -0.5 * ll
}

// Smoothed is the smoother's output in both log and rate space.
type Smoothed struct {
	// LogRate and LogVar are the smoothed state mean and variance.
	LogRate []float64
	LogVar  []float64

	// Rate is exp(LogRate); RateStd is the delta-method standard
	// deviation Rate·sqrt(LogVar).
	Rate    []float64
	RateStd []float64
}

// Run filters and smooths a prepared series, returning the smoothed
// estimates and the forward trace. An empty series yields an empty
// result and a nil error: there is nothing to model, which is not a
// failure.
func Run(s prepare.Series, o Options) (Smoothed, Trace, error) {
	if err := o.Validate(); err != nil {
		return Smoothed{}, Trace{}, err
	}
	if s.Len() == 0 {
		return Smoothed{}, Trace{}, nil
	}

	tr, err := Filter(s.LogObs, ObsVariance(s.Empirical, o), o.ProcessVar, o.InitialVar)
	if err != nil {
		return Smoothed{}, Trace{}, err
	}

	mean, variance, err := Smooth(tr)
	if err != nil {
		return Smoothed{}, Trace{}, err
	}

	n := len(mean)
	sm := Smoothed{
		LogRate: mean,
		LogVar:  variance,
		Rate:    make([]float64, n),
		RateStd: make([]float64, n),
	}
	for t := 0; t < n; t++ {
		sm.Rate[t] = math.Exp(mean[t])
		sm.RateStd[t] = sm.Rate[t] * math.Sqrt(variance[t])
	}
	return sm, tr, nil
}

func checkVariance(step int, quantity string, v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return &InstabilityError{Step: step, Quantity: quantity, Value: v}
	}
	return nil
}

func checkFinite(step int, quantity string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InstabilityError{Step: step, Quantity: quantity, Value: v}
	}
	return nil
}
