// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citation-engine/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{ResultsDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDoc() types.RateDocument {
	return types.RateDocument{
		UserID:    "RIi-1pAAAAAJ",
		ScrapedAt: "2025-06-01T00:00:00Z",
		Model: types.ModelInfo{
			Type:           "kalman",
			ProcessVar:     0.25,
			Overdispersion: 0.56,
			MinCount:       0.5,
			VarianceFloor:  0.01,
		},
		Papers: []types.PaperRates{
			{
				Title:           "Adaptive Scheduling in Overlay Networks",
				Years:           []int{2020, 2021},
				SmoothedRate:    []float64{11.2, 24.9},
				SmoothedLogRate: []float64{2.42, 3.21},
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveRun(ctx, sampleDoc())
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc(), got)

	_, err = s.GetRun(ctx, id+100)
	assert.Error(t, err)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SaveRun(ctx, sampleDoc())
	require.NoError(t, err)
	second, err := s.SaveRun(ctx, sampleDoc())
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, 1, runs[0].NPapers)
	assert.Equal(t, 0.25, runs[0].ProcessVar)
}

func TestTunedRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Empty archive is an explicit error, not a zero value.
	_, err := s.LatestTuned(ctx)
	assert.Error(t, err)

	res := types.TuneResult{
		NPapers: 12,
		Domain: types.SearchDomain{
			Q:   []float64{0.05, 0.5},
			Phi: []float64{0.4, 4.0},
		},
		Optimal: types.TunedParameters{ProcessVar: 0.21, Overdispersion: 0.9, LogLikelihood: -301.5},
	}
	_, err = s.SaveTuned(ctx, res)
	require.NoError(t, err)

	// A later save supersedes the earlier one.
	res.Optimal = types.TunedParameters{ProcessVar: 0.3, Overdispersion: 1.1, LogLikelihood: -298.2}
	_, err = s.SaveTuned(ctx, res)
	require.NoError(t, err)

	got, err := s.LatestTuned(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Optimal, got)
}
