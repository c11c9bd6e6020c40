package kmeans

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/clusterkit/distance"
)

const (
	// DefaultMaxIters is the iteration budget used when Config.MaxIters is zero.
	DefaultMaxIters = 100
	// DefaultRelTol is the relative tolerance of the centroid convergence check.
	DefaultRelTol = 1e-5
	// DefaultAbsTol is the absolute tolerance of the centroid convergence check.
	DefaultAbsTol = 1e-8
)

var (
	// ErrInvalidK is returned when k is not in [1, n].
	ErrInvalidK = errors.New("kmeans: k must be between 1 and the number of points")
	// ErrEmptyInput is returned for a point matrix without rows or columns.
	ErrEmptyInput = errors.New("kmeans: empty point matrix")
	// ErrInvalidIterations is returned for a negative iteration budget.
	ErrInvalidIterations = errors.New("kmeans: max iterations must be positive")
)

// Config controls a single k-means fit.
type Config struct {
	K        int
	MaxIters int

	// StopOnConvergence ends the fit as soon as no centroid moves beyond the
	// tolerance. When false the full MaxIters budget is spent.
	StopOnConvergence bool

	RelTol float64
	AbsTol float64

	// Rand seeds the initial centroids. A time-seeded source is used when nil.
	Rand *rand.Rand
}

// Model is the result of a k-means fit.
type Model struct {
	Labels     []int
	Centroids  *mat.Dense
	Iterations int
	Converged  bool

	// Inertia is the sum of squared distances from each point to its assigned
	// centroid under the final labels.
	Inertia float64

	// History holds the inertia measured after every assignment step.
	History []float64
}

// Fit clusters the rows of points into cfg.K groups using Lloyd's algorithm.
//
// The initial centroids are k distinct rows drawn without replacement. A
// cluster that receives no points keeps its previous centroid.
func Fit(points mat.Matrix, cfg Config) (*Model, error) {
	n, dim := points.Dims()
	if n == 0 || dim == 0 {
		return nil, ErrEmptyInput
	}
	k := cfg.K
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: k=%d n=%d", ErrInvalidK, k, n)
	}
	maxIters := cfg.MaxIters
	if maxIters == 0 {
		maxIters = DefaultMaxIters
	}
	if maxIters < 0 {
		return nil, ErrInvalidIterations
	}
	rtol, atol := cfg.RelTol, cfg.AbsTol
	if rtol == 0 {
		rtol = DefaultRelTol
	}
	if atol == 0 {
		atol = DefaultAbsTol
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // seeding only
	}

	// Work on a private copy; the caller's matrix is never written.
	x := mat.DenseCopyOf(points)

	centroids := mat.NewDense(k, dim, nil)
	perm := rng.Perm(n)
	for j := 0; j < k; j++ {
		centroids.SetRow(j, x.RawRowView(perm[j]))
	}

	labels := make([]int, n)
	counts := make([]int, k)
	next := mat.NewDense(k, dim, nil)

	m := &Model{}
	for iter := 0; iter < maxIters; iter++ {
		// Assignment step
		m.History = append(m.History, assign(x, centroids, labels))

		// Update step
		next.Zero()
		for j := range counts {
			counts[j] = 0
		}
		for i := 0; i < n; i++ {
			c := labels[i]
			floats.Add(next.RawRowView(c), x.RawRowView(i))
			counts[c]++
		}
		for j := 0; j < k; j++ {
			row := next.RawRowView(j)
			if counts[j] == 0 {
				copy(row, centroids.RawRowView(j))
				continue
			}
			floats.Scale(1/float64(counts[j]), row)
		}

		m.Iterations = iter + 1
		converged := allClose(next, centroids, rtol, atol)
		centroids.Copy(next)

		if converged {
			m.Converged = true
			if cfg.StopOnConvergence {
				break
			}
		}
	}

	m.Inertia = assign(x, centroids, labels)
	m.Labels = labels
	m.Centroids = centroids
	return m, nil
}

// Predict returns the index of the nearest centroid for every row of points.
func (m *Model) Predict(points mat.Matrix) []int {
	n, _ := points.Dims()
	labels := make([]int, n)
	assign(mat.DenseCopyOf(points), m.Centroids, labels)
	return labels
}

// Assign returns the index of the centroid closest to vec. Ties go to the
// lowest index.
func Assign(vec []float64, centroids *mat.Dense) int {
	k, _ := centroids.Dims()
	best := 0
	minDist := distance.SquaredEuclidean(vec, centroids.RawRowView(0))
	for j := 1; j < k; j++ {
		d := distance.SquaredEuclidean(vec, centroids.RawRowView(j))
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

// assign labels every row with its nearest centroid and returns the inertia.
func assign(x, centroids *mat.Dense, labels []int) float64 {
	var inertia float64
	for i := range labels {
		vec := x.RawRowView(i)
		c := Assign(vec, centroids)
		labels[i] = c
		inertia += distance.SquaredEuclidean(vec, centroids.RawRowView(c))
	}
	return inertia
}

// allClose reports whether |a-b| <= atol + rtol*|b| holds element-wise.
func allClose(a, b *mat.Dense, rtol, atol float64) bool {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		ar, br := a.RawRowView(i), b.RawRowView(i)
		for j := 0; j < c; j++ {
			if math.Abs(ar[j]-br[j]) > atol+rtol*math.Abs(br[j]) {
				return false
			}
		}
	}
	return true
}
