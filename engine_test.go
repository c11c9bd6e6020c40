package clusterkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/clusterkit/resource"
)

func twoBlobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0, 1}, {1, 0},
		{10, 10}, {10, 11}, {11, 10},
	}
}

func assertBlobPartition(t *testing.T, labels []int) {
	t.Helper()
	require.Len(t, labels, 6)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[3], labels[5])
	assert.NotEqual(t, labels[0], labels[3])
}

// straddlingSeed returns a seed whose first two draws of rand.Perm(6) pick
// one point from each blob.
func straddlingSeed() int64 {
	for s := int64(1); ; s++ {
		perm := rand.New(rand.NewSource(s)).Perm(6)
		if (perm[0] < 3) != (perm[1] < 3) {
			return s
		}
	}
}

func ptr[T any](v T) *T { return &v }

func TestScenarioA_KMeans(t *testing.T) {
	eng := New()
	for seed := int64(0); seed < 10; seed++ {
		res, err := eng.Fit(context.Background(), Request{
			Method:   MethodKMeans,
			Points:   twoBlobs(),
			K:        2,
			MaxIters: 10,
			Seed:     ptr(seed),
		})
		require.NoError(t, err)
		assertBlobPartition(t, res.Labels)
		assert.Equal(t, MethodKMeans, res.Method)
		assert.Len(t, res.Centroids, 2)
		assert.True(t, res.Converged)
		require.NotNil(t, res.Inertia)
		assert.InDelta(t, 8.0/3, *res.Inertia, 1e-9)
		assert.Equal(t, seed, res.Seed)
	}
}

func TestScenarioB_EM(t *testing.T) {
	eng := New()
	res, err := eng.Fit(context.Background(), Request{
		Method: MethodEM,
		Points: twoBlobs(),
		K:      2,
		Seed:   ptr(straddlingSeed()),
	})
	require.NoError(t, err)

	assertBlobPartition(t, res.Labels)
	require.Len(t, res.Weights, 2)
	assert.InDelta(t, 0.5, res.Weights[0], 1e-6)
	assert.InDelta(t, 0.5, res.Weights[1], 1e-6)
	require.Len(t, res.Covariances, 2)
	assert.Len(t, res.Covariances[0], 2)
	assert.Len(t, res.Covariances[0][0], 2)
	assert.Equal(t, DefaultMaxIters, res.Iterations)
	require.NotNil(t, res.LogLikelihood)
	assert.False(t, math.IsNaN(*res.LogLikelihood))
}

func TestScenarioC_Hierarchical(t *testing.T) {
	eng := New()
	res, err := eng.Hierarchical(context.Background(), twoBlobs(), 2, "ward")
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, res.Labels)
	require.Len(t, res.LinkageMatrix, 5)
	for i := 1; i < len(res.LinkageMatrix); i++ {
		assert.GreaterOrEqual(t, res.LinkageMatrix[i][2], res.LinkageMatrix[i-1][2])
	}
	assert.Equal(t, "ward", res.Linkage)

	require.Len(t, res.Centroids, 2)
	assert.InDelta(t, 1.0/3, res.Centroids[0][0], 1e-12)
	assert.InDelta(t, 1.0/3, res.Centroids[0][1], 1e-12)
	assert.InDelta(t, 31.0/3, res.Centroids[1][0], 1e-12)
	assert.InDelta(t, 31.0/3, res.Centroids[1][1], 1e-12)
}

func TestScenarioD_KMeansKEqualsN(t *testing.T) {
	res, err := New().Fit(context.Background(), Request{
		Method: MethodKMeans,
		Points: twoBlobs(),
		K:      6,
		Seed:   ptr(int64(3)),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Converged)
	require.NotNil(t, res.Inertia)
	assert.Equal(t, 0.0, *res.Inertia)
	for _, size := range res.Sizes() {
		assert.Equal(t, 1, size)
	}
}

func TestScenarioE_InvalidCardinality(t *testing.T) {
	eng := New()
	for _, m := range Methods {
		for _, k := range []int{0, 1, 7, -2} {
			res, err := eng.Fit(context.Background(), Request{Method: m, Points: twoBlobs(), K: k})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidCardinality, "method %s k=%d", m, k)

			var ce *CardinalityError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, k, ce.K)
			assert.Equal(t, 6, ce.N)
		}
	}
}

func TestFit_MalformedInput(t *testing.T) {
	tests := []struct {
		name   string
		points [][]float64
	}{
		{"Empty", nil},
		{"SinglePoint", [][]float64{{1, 2}}},
		{"NoDimensions", [][]float64{{}, {}}},
		{"Ragged", [][]float64{{1, 2}, {3}}},
		{"NaN", [][]float64{{1, 2}, {math.NaN(), 0}}},
		{"Inf", [][]float64{{1, math.Inf(1)}, {0, 0}}},
	}

	eng := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Fit(context.Background(), Request{Method: MethodKMeans, Points: tt.points, K: 2})
			assert.ErrorIs(t, err, ErrMalformedInput)
			assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
		})
	}

	_, err := eng.Fit(context.Background(), Request{Method: MethodKMeans, Points: [][]float64{{1, 2}, {math.NaN(), 0}}, K: 2})
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Row)
	assert.Equal(t, 0, ie.Col)
}

func TestFit_InvalidParameters(t *testing.T) {
	eng := New()
	ctx := context.Background()

	_, err := eng.Fit(ctx, Request{Method: "dbscan", Points: twoBlobs(), K: 2})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = eng.Fit(ctx, Request{Method: MethodHierarchical, Points: twoBlobs(), K: 2, Linkage: "nearest"})
	assert.ErrorIs(t, err, ErrInvalidLinkage)

	_, err = eng.Fit(ctx, Request{Method: MethodKMeans, Points: twoBlobs(), K: 2, MaxIters: -1})
	assert.ErrorIs(t, err, ErrInvalidIterations)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestFit_MethodAliases(t *testing.T) {
	eng := New(WithSeed(5))
	for alias, want := range map[Method]Method{"k-means": MethodKMeans, "GMM": MethodEM, "agglomerative": MethodHierarchical} {
		res, err := eng.Fit(context.Background(), Request{Method: alias, Points: twoBlobs(), K: 2, MaxIters: 20})
		require.NoError(t, err)
		assert.Equal(t, want, res.Method)
	}
}

func TestFit_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().KMeans(ctx, twoBlobs(), 2, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(err))
}

func TestFit_SeedReproducible(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := make([][]float64, 80)
	for i := range points {
		points[i] = []float64{rng.NormFloat64() + float64(i%4)*4, rng.NormFloat64()}
	}

	eng := New(WithSeed(77))
	for _, m := range Methods {
		a, err := eng.Fit(context.Background(), Request{Method: m, Points: points, K: 4, MaxIters: 30})
		require.NoError(t, err)
		b, err := eng.Fit(context.Background(), Request{Method: m, Points: points, K: 4, MaxIters: 30})
		require.NoError(t, err)
		assert.Equal(t, a.Labels, b.Labels, "method %s", m)
		assert.Equal(t, a.Centroids, b.Centroids, "method %s", m)
		assert.Equal(t, int64(77), a.Seed)
	}
}

func TestFit_StopOnConvergenceOverride(t *testing.T) {
	eng := New(WithSeed(straddlingSeed()))

	fixed, err := eng.EM(context.Background(), twoBlobs(), 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, fixed.Iterations)

	early, err := eng.Fit(context.Background(), Request{
		Method:            MethodEM,
		Points:            twoBlobs(),
		K:                 2,
		MaxIters:          50,
		StopOnConvergence: ptr(true),
	})
	require.NoError(t, err)
	assert.Less(t, early.Iterations, 50)
	assert.True(t, early.Converged)

	full, err := eng.Fit(context.Background(), Request{
		Method:            MethodKMeans,
		Points:            twoBlobs(),
		K:                 2,
		MaxIters:          12,
		StopOnConvergence: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, full.Iterations)
}

func TestFit_DoesNotMutateInput(t *testing.T) {
	points := twoBlobs()
	eng := New(WithSeed(1))
	for _, m := range Methods {
		_, err := eng.Fit(context.Background(), Request{Method: m, Points: points, K: 2})
		require.NoError(t, err)
		assert.Equal(t, twoBlobs(), points)
	}
}

func TestFitAll(t *testing.T) {
	eng := New(WithSeed(straddlingSeed()))
	results, err := eng.FitAll(context.Background(), Request{Points: twoBlobs(), K: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, m := range Methods {
		require.Contains(t, results, m)
		assert.Equal(t, m, results[m].Method)
		assertBlobPartition(t, results[m].Labels)
	}
	assert.Equal(t, 1.0, RandIndex(results[MethodKMeans].Labels, results[MethodHierarchical].Labels))

	_, err = eng.FitAll(context.Background(), Request{Points: twoBlobs(), K: 9})
	assert.ErrorIs(t, err, ErrInvalidCardinality)
}

func TestFit_ConcurrentEngines(t *testing.T) {
	eng := New(WithSeed(4))
	var wg sync.WaitGroup
	errs := make(chan error, 24)
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(m Method) {
			defer wg.Done()
			res, err := eng.Fit(context.Background(), Request{Method: m, Points: twoBlobs(), K: 2, MaxIters: 20})
			if err == nil && len(res.Labels) != 6 {
				err = errors.New("wrong label count")
			}
			errs <- err
		}(Methods[i%3])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestFit_ResourceController(t *testing.T) {
	t.Run("MemoryLimit", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
		metrics := &BasicMetricsCollector{}
		eng := New(WithResourceController(rc), WithMetricsCollector(metrics))

		_, err := eng.Hierarchical(context.Background(), twoBlobs(), 2, "")
		assert.ErrorIs(t, err, ErrOverloaded)
		assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(err))
		assert.Equal(t, int64(1), metrics.GetStats().RejectedCount)
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})

	t.Run("FitSlots", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MaxConcurrentFits: 1})
		var buf bytes.Buffer
		logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		eng := New(WithResourceController(rc), WithLogger(logger))

		require.NoError(t, rc.AcquireFit(context.Background()))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := eng.KMeans(ctx, twoBlobs(), 2, 10)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, buf.String(), "waiting for fit slot")
		rc.ReleaseFit()

		buf.Reset()
		_, err = eng.KMeans(context.Background(), twoBlobs(), 2, 10)
		require.NoError(t, err)
		assert.NotContains(t, buf.String(), "waiting for fit slot")
		assert.True(t, rc.TryAcquireFit())
		rc.ReleaseFit()
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})
}

func TestFit_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	eng := New(WithMetricsCollector(metrics), WithSeed(1))

	_, err := eng.KMeans(context.Background(), twoBlobs(), 2, 10)
	require.NoError(t, err)
	_, err = eng.EM(context.Background(), twoBlobs(), 2, 5)
	require.NoError(t, err)
	_, err = eng.Hierarchical(context.Background(), twoBlobs(), 2, "")
	require.NoError(t, err)
	_, err = eng.KMeans(context.Background(), twoBlobs(), 0, 10)
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(4), stats.FitCount)
	assert.Equal(t, int64(1), stats.FitErrors)
	assert.Equal(t, int64(1), stats.KMeansCount)
	assert.Equal(t, int64(1), stats.EMCount)
	assert.Equal(t, int64(1), stats.HierarchicalCount)
	assert.Equal(t, int64(18), stats.FitPoints)
}

func TestResult_JSON(t *testing.T) {
	res, err := New(WithSeed(1)).Hierarchical(context.Background(), twoBlobs(), 2, "")
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "labels")
	assert.Contains(t, decoded, "centroids")
	assert.Contains(t, decoded, "linkage_matrix")
	assert.NotContains(t, decoded, "covariances")
	assert.Len(t, decoded["linkage_matrix"], 5)
}
