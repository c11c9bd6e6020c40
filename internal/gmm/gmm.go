package gmm

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
	// DefaultInitScale is the diagonal of every initial covariance.
	DefaultInitScale = 5.0
	// DefaultRidge is added to the diagonal of every re-estimated covariance.
	DefaultRidge = 1e-6
	// DefaultFloor is the smallest responsibility row or column sum used as a divisor.
	DefaultFloor = 1e-10
	// DefaultTolerance is the log-likelihood change treated as converged.
	DefaultTolerance = 1e-6
)

var (
	// ErrInvalidK is returned when k is not in [1, n].
	ErrInvalidK = errors.New("gmm: k must be between 1 and the number of points")
	// ErrEmptyInput is returned for a point matrix without rows or columns.
	ErrEmptyInput = errors.New("gmm: empty point matrix")
	// ErrInvalidIterations is returned for a negative iteration budget.
	ErrInvalidIterations = errors.New("gmm: max iterations must be positive")
	// ErrInvalidInit is returned when Config.InitMeans does not match k×d.
	ErrInvalidInit = errors.New("gmm: initial means must be k×d")
)

// Config controls a single EM fit.
type Config struct {
	K        int
	MaxIters int

	// StopOnConvergence ends the fit once the log-likelihood changes by less
	// than Tolerance between two E-steps. When false exactly MaxIters rounds run.
	StopOnConvergence bool
	Tolerance         float64

	InitScale float64
	Ridge     float64
	Floor     float64

	// InitMeans optionally replaces the random draw of initial means.
	InitMeans mat.Matrix

	// Rand seeds the initial means. A time-seeded source is used when nil.
	Rand *rand.Rand
}

// Model is a fitted Gaussian mixture.
type Model struct {
	Labels      []int
	Means       *mat.Dense
	Covariances []*mat.SymDense
	Weights     []float64

	Iterations int
	Converged  bool

	// LogLikelihood is the data log-likelihood under the final parameters.
	LogLikelihood float64
}

// K returns the number of mixture components.
func (m *Model) K() int { return len(m.Weights) }

type fitter struct {
	x       *mat.Dense
	n, dim  int
	k       int
	floor   float64
	ridge   float64
	means   *mat.Dense
	covs    []*mat.SymDense
	weights []float64
}

// Fit estimates a k-component Gaussian mixture with expectation maximization.
//
// Densities that cannot be evaluated and rows or columns of the
// responsibility matrix that sum to (numerically) zero are floored instead
// of failing the fit. Every re-estimated covariance receives Ridge on its
// diagonal.
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
	tol := orDefault(cfg.Tolerance, DefaultTolerance)

	f := &fitter{
		x:     mat.DenseCopyOf(points),
		n:     n,
		dim:   dim,
		k:     k,
		floor: orDefault(cfg.Floor, DefaultFloor),
		ridge: orDefault(cfg.Ridge, DefaultRidge),
	}
	if err := f.init(cfg); err != nil {
		return nil, err
	}

	resp := mat.NewDense(n, k, nil)
	m := &Model{}
	prev := math.Inf(-1)
	for iter := 0; iter < maxIters; iter++ {
		ll := f.expectation(resp)
		if iter > 0 {
			m.Converged = math.Abs(ll-prev) < tol
			if m.Converged && cfg.StopOnConvergence {
				break
			}
		}
		prev = ll
		f.maximization(resp)
		m.Iterations = iter + 1
	}

	ll := f.expectation(resp)
	if m.Iterations > 0 && math.Abs(ll-prev) < tol {
		m.Converged = true
	}

	m.Labels = argmax(resp)
	m.Means = f.means
	m.Covariances = f.covs
	m.Weights = f.weights
	m.LogLikelihood = ll
	return m, nil
}

// Responsibilities returns the normalized N×k responsibility matrix of points
// under model. Every row sums to 1.
func Responsibilities(points mat.Matrix, model *Model) *mat.Dense {
	n, dim := points.Dims()
	f := &fitter{
		x:       mat.DenseCopyOf(points),
		n:       n,
		dim:     dim,
		k:       model.K(),
		floor:   DefaultFloor,
		means:   model.Means,
		covs:    model.Covariances,
		weights: model.Weights,
	}
	resp := mat.NewDense(n, f.k, nil)
	f.expectation(resp)
	return resp
}

// Predict returns the most likely component for every row of points.
func (m *Model) Predict(points mat.Matrix) []int {
	return argmax(Responsibilities(points, m))
}

func (f *fitter) init(cfg Config) error {
	f.means = mat.NewDense(f.k, f.dim, nil)
	if cfg.InitMeans != nil {
		r, c := cfg.InitMeans.Dims()
		if r != f.k || c != f.dim {
			return fmt.Errorf("%w: got %d×%d, want %d×%d", ErrInvalidInit, r, c, f.k, f.dim)
		}
		f.means.Copy(cfg.InitMeans)
	} else {
		rng := cfg.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // seeding only
		}
		perm := rng.Perm(f.n)
		for c := 0; c < f.k; c++ {
			f.means.SetRow(c, f.x.RawRowView(perm[c]))
		}
	}

	scale := orDefault(cfg.InitScale, DefaultInitScale)
	f.covs = make([]*mat.SymDense, f.k)
	f.weights = make([]float64, f.k)
	for c := 0; c < f.k; c++ {
		cov := mat.NewSymDense(f.dim, nil)
		for d := 0; d < f.dim; d++ {
			cov.SetSym(d, d, scale)
		}
		f.covs[c] = cov
		f.weights[c] = 1 / float64(f.k)
	}
	return nil
}

// expectation fills resp with normalized responsibilities and returns the
// log-likelihood of the data under the current parameters.
//
// Rows are normalized in log space, so densities far below or above the
// float64 range still yield proper responsibilities. A row whose weighted
// density sum underflows to zero is an orphan and gets every entry raised
// to the floor, which normalizes to a uniform assignment.
func (f *fitter) expectation(resp *mat.Dense) float64 {
	for c := 0; c < f.k; c++ {
		logDens := distance.GaussianLogDensity(f.x, f.means.RawRowView(c), f.covs[c])
		logW := math.Log(f.weights[c])
		for i, lp := range logDens {
			resp.Set(i, c, logW+lp)
		}
	}

	minLog := math.Log(math.SmallestNonzeroFloat64)
	var ll float64
	for i := 0; i < f.n; i++ {
		row := resp.RawRowView(i)
		lse := floats.LogSumExp(row)

		if math.IsNaN(lse) || math.Exp(lse) == 0 {
			// Orphaned point: no component explains it.
			for c := range row {
				row[c] = f.floor
			}
			floats.Scale(1/floats.Sum(row), row)
			if math.IsNaN(lse) {
				lse = minLog
			}
			ll += lse
			continue
		}

		ll += lse
		for c, v := range row {
			row[c] = math.Exp(v - lse)
		}
	}
	return ll
}

func (f *fitter) maximization(resp *mat.Dense) {
	col := make([]float64, f.n)
	diff := make([]float64, f.dim)
	for c := 0; c < f.k; c++ {
		mat.Col(col, c, resp)
		rsum := floats.Sum(col)
		if rsum < f.floor {
			rsum = f.floor
		}
		f.weights[c] = rsum / float64(f.n)

		mean := f.means.RawRowView(c)
		for d := range mean {
			mean[d] = 0
		}
		for i := 0; i < f.n; i++ {
			floats.AddScaled(mean, col[i], f.x.RawRowView(i))
		}
		floats.Scale(1/rsum, mean)

		cov := mat.NewSymDense(f.dim, nil)
		for i := 0; i < f.n; i++ {
			if col[i] == 0 {
				continue
			}
			floats.SubTo(diff, f.x.RawRowView(i), mean)
			cov.SymRankOne(cov, col[i]/rsum, mat.NewVecDense(f.dim, diff))
		}
		for d := 0; d < f.dim; d++ {
			cov.SetSym(d, d, cov.At(d, d)+f.ridge)
		}
		f.covs[c] = cov
	}
}

func argmax(resp *mat.Dense) []int {
	n, _ := resp.Dims()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = floats.MaxIdx(resp.RawRowView(i))
	}
	return labels
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
