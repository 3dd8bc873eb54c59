// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package forecast extends a smoothed terminal state forward by pure
// state prediction. No new observations enter: the forecast mean stays
// at the terminal log-rate (driftless random walk) while the variance
// grows linearly with the horizon.
package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Series holds H forecast points for the years following the last
// observed year, all slices aligned by horizon step. A zero horizon
// yields the zero value: forecasting is strictly additive and never
// touches historical output.
type Series struct {
	// Years are the forecast calendar years, lastYear+1 .. lastYear+H,
	// assumed fully exposed.
	Years []int

	// LogMean and LogVar are the predictive mean and variance of the
	// log-rate at each horizon step: x_T and P_T + h·q.
	LogMean []float64
	LogVar  []float64

	// RateMedian, RateMean and RateStd are the log-normal back-transform
	// of the predictive distribution into rate space.
	RateMedian []float64
	RateMean   []float64
	RateStd    []float64

	// CountsMean and CountsStd describe next years' citation counts at
	// unit exposure under Poisson mixing: the count variance is the
	// rate mean plus the rate variance.
	CountsMean []float64
	CountsStd  []float64
}

// Len returns the forecast horizon.
func (s Series) Len() int { return len(s.Years) }

// Project forecasts horizon steps ahead from the terminal smoothed
// state (logRate, logVar) under process variance processVar.
func Project(logRate, logVar, processVar float64, lastYear, horizon int) Series {
	if horizon <= 0 {
		return Series{}
	}

	s := Series{
		Years:      make([]int, horizon),
		LogMean:    make([]float64, horizon),
		LogVar:     make([]float64, horizon),
		RateMedian: make([]float64, horizon),
		RateMean:   make([]float64, horizon),
		RateStd:    make([]float64, horizon),
		CountsMean: make([]float64, horizon),
		CountsStd:  make([]float64, horizon),
	}

	for h := 1; h <= horizon; h++ {
		i := h - 1
		variance := logVar + float64(h)*processVar

		dist := distuv.LogNormal{Mu: logRate, Sigma: math.Sqrt(variance)}
		rateMean := dist.Mean()
		rateVar := dist.Variance()

		s.Years[i] = lastYear + h
		s.LogMean[i] = logRate
		s.LogVar[i] = variance
		s.RateMedian[i] = dist.Median()
		s.RateMean[i] = rateMean
		s.RateStd[i] = dist.StdDev()
		s.CountsMean[i] = rateMean
		s.CountsStd[i] = math.Sqrt(rateMean + rateVar)
	}
	return s
}
