// Package distance provides the point-to-center distance and Gaussian density
// kernels shared by the clustering engines.
package distance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// DensityFloor is substituted for a density that cannot be evaluated,
// either because the covariance is not positive definite or because the
// evaluation produced NaN.
const DensityFloor = 1e-300

// Euclidean calculates the Euclidean distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// SquaredEuclidean calculates the squared Euclidean distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Metric represents the distance metric used for point comparison.
type Metric int

const (
	MetricEuclidean Metric = iota
	MetricSquaredEuclidean
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "Euclidean"
	case MetricSquaredEuclidean:
		return "SquaredEuclidean"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float64) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricEuclidean:
		return Euclidean, nil
	case MetricSquaredEuclidean:
		return SquaredEuclidean, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// Pairwise returns the N×C matrix of Euclidean distances between every row of
// points and every row of centers. Both matrices must have the same number of
// columns.
func Pairwise(points, centers mat.Matrix) *mat.Dense {
	return PairwiseMetric(points, centers, Euclidean)
}

// PairwiseMetric is Pairwise with a caller-provided distance function.
func PairwiseMetric(points, centers mat.Matrix, fn Func) *mat.Dense {
	n, d := points.Dims()
	c, cd := centers.Dims()
	if d != cd {
		panic(mat.ErrShape)
	}

	out := mat.NewDense(n, c, nil)
	p := make([]float64, d)
	q := make([]float64, d)
	for j := 0; j < c; j++ {
		mat.Row(q, j, centers)
		for i := 0; i < n; i++ {
			mat.Row(p, i, points)
			out.Set(i, j, fn(p, q))
		}
	}
	return out
}

// GaussianDensity evaluates the multivariate normal density N(x | mean, cov)
// for every row x of points.
//
// It never fails: when cov is not positive definite every entry is
// DensityFloor, a NaN evaluation is replaced by DensityFloor, and a density
// too large for a float64 is clamped to math.MaxFloat64.
func GaussianDensity(points mat.Matrix, mean []float64, cov mat.Symmetric) []float64 {
	out, ok := logProbs(points, mean, cov)
	for i, lp := range out {
		p := math.Exp(lp)
		switch {
		case !ok || math.IsNaN(p):
			p = DensityFloor
		case math.IsInf(p, 1):
			p = math.MaxFloat64
		}
		out[i] = p
	}
	return out
}

// GaussianLogDensity is GaussianDensity in log space. Entries that cannot be
// evaluated are log(DensityFloor); results are never NaN or +Inf.
func GaussianLogDensity(points mat.Matrix, mean []float64, cov mat.Symmetric) []float64 {
	out, ok := logProbs(points, mean, cov)
	logFloor := math.Log(DensityFloor)
	for i, lp := range out {
		switch {
		case !ok || math.IsNaN(lp):
			out[i] = logFloor
		case math.IsInf(lp, 1):
			out[i] = math.MaxFloat64
		}
	}
	return out
}

// logProbs returns the raw log densities, or ok=false when cov is not
// positive definite.
func logProbs(points mat.Matrix, mean []float64, cov mat.Symmetric) ([]float64, bool) {
	n, d := points.Dims()
	out := make([]float64, n)

	normal, ok := distmv.NewNormal(mean, cov, nil)
	if !ok {
		return out, false
	}

	x := make([]float64, d)
	for i := 0; i < n; i++ {
		mat.Row(x, i, points)
		out[i] = normal.LogProb(x)
	}
	return out, true
}
