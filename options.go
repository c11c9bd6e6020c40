package clusterkit

import (
	"log/slog"

	"github.com/hupe1980/clusterkit/internal/gmm"
	"github.com/hupe1980/clusterkit/internal/kmeans"
	"github.com/hupe1980/clusterkit/resource"
)

// DefaultMaxIters is the iteration budget used when a request leaves
// max_iters unset.
const DefaultMaxIters = 100

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	resources        *resource.Controller
	seed             *int64
	defaultMaxIters  int

	kmeansStop   bool
	kmeansRelTol float64
	kmeansAbsTol float64

	emStop      bool
	emTolerance float64
	emInitScale float64
	emRidge     float64
	emFloor     float64
}

// Option configures an Engine.
type Option func(*options)

// WithLogger configures the logger used for fit events.
// Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel installs a text logger on stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring fits.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &clusterkit.BasicMetricsCollector{}
//	eng := clusterkit.New(clusterkit.WithMetricsCollector(metrics))
//	// ... fit ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController bounds concurrent fits and their working memory.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithSeed fixes the seed used for requests that do not carry their own.
// Every fit still gets its own generator, so concurrent fits never share
// random state.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// WithDefaultMaxIters sets the iteration budget for requests without max_iters.
func WithDefaultMaxIters(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultMaxIters = n
		}
	}
}

// WithKMeansConvergence configures the k-means centroid check.
// When stop is false every k-means fit runs its full iteration budget.
func WithKMeansConvergence(stop bool, relTol, absTol float64) Option {
	return func(o *options) {
		o.kmeansStop = stop
		if relTol > 0 {
			o.kmeansRelTol = relTol
		}
		if absTol > 0 {
			o.kmeansAbsTol = absTol
		}
	}
}

// WithEMConvergence makes EM stop once the log-likelihood moves by less
// than tol. By default EM runs its full iteration budget.
func WithEMConvergence(stop bool, tol float64) Option {
	return func(o *options) {
		o.emStop = stop
		if tol > 0 {
			o.emTolerance = tol
		}
	}
}

// WithEMParams sets the initial covariance scale, the covariance ridge and
// the responsibility floor. Non-positive values keep the defaults.
func WithEMParams(initScale, ridge, floor float64) Option {
	return func(o *options) {
		if initScale > 0 {
			o.emInitScale = initScale
		}
		if ridge > 0 {
			o.emRidge = ridge
		}
		if floor > 0 {
			o.emFloor = floor
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		defaultMaxIters:  DefaultMaxIters,
		kmeansStop:       true,
		kmeansRelTol:     kmeans.DefaultRelTol,
		kmeansAbsTol:     kmeans.DefaultAbsTol,
		emTolerance:      gmm.DefaultTolerance,
		emInitScale:      gmm.DefaultInitScale,
		emRidge:          gmm.DefaultRidge,
		emFloor:          gmm.DefaultFloor,
	}

	for _, fn := range optFns {
		fn(&o)
	}

	return o
}
