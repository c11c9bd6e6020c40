package clusterkit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/clusterkit/internal/gmm"
	"github.com/hupe1980/clusterkit/internal/hierarchy"
	"github.com/hupe1980/clusterkit/internal/kmeans"
)

// Method selects a clustering algorithm.
type Method string

const (
	MethodKMeans       Method = "kmeans"
	MethodEM           Method = "em"
	MethodHierarchical Method = "hierarchical"
)

// Methods lists every supported method in a stable order.
var Methods = []Method{MethodKMeans, MethodEM, MethodHierarchical}

// ParseMethod resolves a method name. Common aliases ("k-means", "gmm",
// "agglomerative") are accepted.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "kmeans", "k-means":
		return MethodKMeans, nil
	case "em", "gmm":
		return MethodEM, nil
	case "hierarchical", "agglomerative":
		return MethodHierarchical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, name)
	}
}

// Request describes a single fit.
type Request struct {
	Method Method      `json:"method"`
	Points [][]float64 `json:"points"`
	K      int         `json:"k"`

	// MaxIters bounds the iterative engines. Zero selects the engine default.
	MaxIters int `json:"max_iters,omitempty"`

	// Linkage names the hierarchical merge rule. Empty selects "ward".
	Linkage string `json:"linkage,omitempty"`

	// Seed fixes the random initialization of k-means and EM.
	Seed *int64 `json:"seed,omitempty"`

	// StopOnConvergence overrides the engine default: k-means stops on
	// convergence, EM runs its full budget.
	StopOnConvergence *bool `json:"stop_on_convergence,omitempty"`
}

// Result is the JSON-serializable outcome of a fit.
type Result struct {
	Method        Method        `json:"method"`
	Labels        []int         `json:"labels"`
	Centroids     [][]float64   `json:"centroids"`
	Covariances   [][][]float64 `json:"covariances,omitempty"`
	Weights       []float64     `json:"weights,omitempty"`
	LinkageMatrix [][4]float64  `json:"linkage_matrix,omitempty"`
	Linkage       string        `json:"linkage,omitempty"`
	Iterations    int           `json:"iterations,omitempty"`
	Converged     bool          `json:"converged"`
	Inertia       *float64      `json:"inertia,omitempty"`
	LogLikelihood *float64      `json:"log_likelihood,omitempty"`
	Seed          int64         `json:"seed"`
}

// K returns the number of clusters in the result.
func (r *Result) K() int { return len(r.Centroids) }

// Engine fits clustering models. It holds configuration only; every fit
// builds its model from scratch, so an Engine is safe for concurrent use.
type Engine struct {
	opts options
}

// New creates an Engine.
func New(optFns ...Option) *Engine {
	return &Engine{opts: applyOptions(optFns)}
}

// Fit runs the method named in req.
//
// Input problems are reported before any computation as ErrMalformedInput,
// ErrInvalidCardinality, ErrInvalidMethod, ErrInvalidLinkage or
// ErrInvalidIterations. Numerical trouble inside EM is absorbed and never
// returned.
func (e *Engine) Fit(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := e.fit(ctx, req)
	err = translateError(err)
	elapsed := time.Since(start)

	method := req.Method
	if m, perr := ParseMethod(string(method)); perr == nil {
		method = m
	}
	n := len(req.Points)
	iterations := 0
	if res != nil {
		iterations = res.Iterations
	}
	if isOverloaded(err) {
		e.opts.metricsCollector.RecordRejected(method)
		e.opts.logger.LogRejected(ctx, method, err)
	}
	e.opts.metricsCollector.RecordFit(method, n, req.K, iterations, elapsed, err)
	e.opts.logger.LogFit(ctx, method, n, req.K, res, elapsed, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// KMeans clusters points into k groups with Lloyd's algorithm.
func (e *Engine) KMeans(ctx context.Context, points [][]float64, k, maxIters int) (*Result, error) {
	return e.Fit(ctx, Request{Method: MethodKMeans, Points: points, K: k, MaxIters: maxIters})
}

// EM fits a k-component Gaussian mixture to points.
func (e *Engine) EM(ctx context.Context, points [][]float64, k, maxIters int) (*Result, error) {
	return e.Fit(ctx, Request{Method: MethodEM, Points: points, K: k, MaxIters: maxIters})
}

// Hierarchical builds a linkage tree over points and cuts it into nClusters
// groups. An empty linkage selects ward.
func (e *Engine) Hierarchical(ctx context.Context, points [][]float64, nClusters int, linkage string) (*Result, error) {
	return e.Fit(ctx, Request{Method: MethodHierarchical, Points: points, K: nClusters, Linkage: linkage})
}

// FitAll runs every method on the same request concurrently. The Method
// field of req is ignored.
func (e *Engine) FitAll(ctx context.Context, req Request) (map[Method]*Result, error) {
	results := make([]*Result, len(Methods))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range Methods {
		r := req
		r.Method = m
		g.Go(func() error {
			res, err := e.Fit(gctx, r)
			if err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Method]*Result, len(Methods))
	for i, m := range Methods {
		out[m] = results[i]
	}
	return out, nil
}

func (e *Engine) fit(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method, err := ParseMethod(string(req.Method))
	if err != nil {
		return nil, err
	}
	if err := ValidatePoints(req.Points); err != nil {
		return nil, err
	}
	n, dim := len(req.Points), len(req.Points[0])
	if err := validateCardinality(req.K, n); err != nil {
		return nil, err
	}
	maxIters := req.MaxIters
	if maxIters == 0 {
		maxIters = e.opts.defaultMaxIters
	}
	if maxIters < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIterations, maxIters)
	}
	var linkage hierarchy.Method
	if method == MethodHierarchical {
		if linkage, err = hierarchy.ParseMethod(req.Linkage); err != nil {
			return nil, err
		}
	}

	rc := e.opts.resources
	mem := workingSetBytes(method, n, dim, req.K)
	if err := rc.AcquireMemory(ctx, mem); err != nil {
		return nil, err
	}
	defer rc.ReleaseMemory(mem)
	if !rc.TryAcquireFit() {
		e.opts.logger.DebugContext(ctx, "waiting for fit slot", "method", string(method))
		if err := rc.AcquireFit(ctx); err != nil {
			return nil, err
		}
	}
	defer rc.ReleaseFit()

	seed := e.seedFor(req)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // clustering seeds
	points := toDense(req.Points)

	var res *Result
	switch method {
	case MethodKMeans:
		res, err = e.fitKMeans(points, req, maxIters, rng)
	case MethodEM:
		res, err = e.fitEM(points, req, maxIters, rng)
	default:
		res, err = e.fitHierarchical(points, req, linkage)
	}
	if err != nil {
		return nil, err
	}
	res.Method = method
	res.Seed = seed
	return res, nil
}

func (e *Engine) seedFor(req Request) int64 {
	switch {
	case req.Seed != nil:
		return *req.Seed
	case e.opts.seed != nil:
		return *e.opts.seed
	default:
		return time.Now().UnixNano()
	}
}

func stopFlag(req Request, def bool) bool {
	if req.StopOnConvergence != nil {
		return *req.StopOnConvergence
	}
	return def
}

// workingSetBytes estimates the float64 storage a fit allocates.
func workingSetBytes(m Method, n, dim, k int) int64 {
	var floats int64
	switch m {
	case MethodKMeans:
		floats = int64(n*dim + 2*k*dim + n)
	case MethodEM:
		floats = int64(n*dim + n*k + k*dim*dim + k*dim)
	default:
		floats = int64(n*n + n*dim + 4*n)
	}
	return 8 * floats
}

func isOverloaded(err error) bool {
	return errors.Is(err, ErrOverloaded)
}

func (e *Engine) fitKMeans(points *mat.Dense, req Request, maxIters int, rng *rand.Rand) (*Result, error) {
	m, err := kmeans.Fit(points, kmeans.Config{
		K:                 req.K,
		MaxIters:          maxIters,
		StopOnConvergence: stopFlag(req, e.opts.kmeansStop),
		RelTol:            e.opts.kmeansRelTol,
		AbsTol:            e.opts.kmeansAbsTol,
		Rand:              rng,
	})
	if err != nil {
		return nil, err
	}
	inertia := m.Inertia
	return &Result{
		Labels:     m.Labels,
		Centroids:  fromDense(m.Centroids),
		Iterations: m.Iterations,
		Converged:  m.Converged,
		Inertia:    &inertia,
	}, nil
}

func (e *Engine) fitEM(points *mat.Dense, req Request, maxIters int, rng *rand.Rand) (*Result, error) {
	m, err := gmm.Fit(points, gmm.Config{
		K:                 req.K,
		MaxIters:          maxIters,
		StopOnConvergence: stopFlag(req, e.opts.emStop),
		Tolerance:         e.opts.emTolerance,
		InitScale:         e.opts.emInitScale,
		Ridge:             e.opts.emRidge,
		Floor:             e.opts.emFloor,
		Rand:              rng,
	})
	if err != nil {
		return nil, err
	}
	covs := make([][][]float64, len(m.Covariances))
	for i, c := range m.Covariances {
		covs[i] = fromSym(c)
	}
	ll := m.LogLikelihood
	return &Result{
		Labels:        m.Labels,
		Centroids:     fromDense(m.Means),
		Covariances:   covs,
		Weights:       m.Weights,
		Iterations:    m.Iterations,
		Converged:     m.Converged,
		LogLikelihood: &ll,
	}, nil
}

func (e *Engine) fitHierarchical(points *mat.Dense, req Request, linkage hierarchy.Method) (*Result, error) {
	labels, tree, err := hierarchy.Fit(points, req.K, linkage)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Labels:        labels,
		LinkageMatrix: tree.Matrix(),
		Linkage:       linkage.String(),
		Converged:     true,
	}
	res.Centroids = Centroids(req.Points, res.Members())
	return res, nil
}
