package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hupe1980/clusterkit"
	"github.com/hupe1980/clusterkit/blobstore"
	"github.com/hupe1980/clusterkit/codec"
	"github.com/hupe1980/clusterkit/dataset"
	"github.com/hupe1980/clusterkit/resource"
	"github.com/hupe1980/clusterkit/resultstore"
)

// Config holds request defaults and limits.
type Config struct {
	// Dataset is the blob served by /api/data when no name is given.
	Dataset string `toml:"dataset"`
	// CSV controls how CSV datasets are parsed.
	CSVHeader      bool `toml:"csv_header"`
	CSVSkipColumns int  `toml:"csv_skip_columns"`

	// DefaultK is used when a fit request names no cluster count.
	DefaultK int `toml:"default_k"`
	// DefaultMaxIters is used when a fit request names no iteration budget.
	DefaultMaxIters int `toml:"default_max_iters"`
	// PresetSeed seeds /api/dataset.
	PresetSeed int64 `toml:"preset_seed"`

	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
	// AllowOrigin is sent as Access-Control-Allow-Origin. Empty disables CORS.
	AllowOrigin string `toml:"allow_origin"`
	// FitTimeout bounds a single fit. Zero means no timeout.
	FitTimeout time.Duration `toml:"fit_timeout"`
}

// DefaultConfig returns the defaults of the demo application.
func DefaultConfig() Config {
	return Config{
		Dataset:         "data.csv",
		CSVHeader:       true,
		CSVSkipColumns:  1,
		DefaultK:        3,
		DefaultMaxIters: 100,
		PresetSeed:      dataset.DefaultPresetSeed,
		MaxBodyBytes:    32 << 20,
		AllowOrigin:     "*",
	}
}

// Server routes HTTP requests to the engine.
type Server struct {
	cfg     Config
	engine  *clusterkit.Engine
	blobs   blobstore.BlobStore
	results *resultstore.Store
	rc      *resource.Controller
	metrics clusterkit.MetricsCollector
	logger  *clusterkit.Logger
	codec   codec.Codec

	metricsHandler http.Handler
	mux            *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// WithResultStore enables saving fits and the /api/results routes.
func WithResultStore(rs *resultstore.Store) Option {
	return func(s *Server) { s.results = rs }
}

// WithResourceController applies request admission and dataset IO limits.
// Fit concurrency and memory are limited by the engine's own controller.
func WithResourceController(rc *resource.Controller) Option {
	return func(s *Server) { s.rc = rc }
}

// WithMetricsCollector records admission rejections.
func WithMetricsCollector(mc clusterkit.MetricsCollector) Option {
	return func(s *Server) {
		if mc != nil {
			s.metrics = mc
		}
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithLogger sets the request logger.
func WithLogger(l *clusterkit.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCodec sets the response codec.
func WithCodec(c codec.Codec) Option {
	return func(s *Server) {
		if c != nil {
			s.codec = c
		}
	}
}

// New creates a Server. blobs holds the datasets served by /api/data.
func New(engine *clusterkit.Engine, blobs blobstore.BlobStore, optFns ...Option) *Server {
	s := &Server{
		cfg:     DefaultConfig(),
		engine:  engine,
		blobs:   blobs,
		metrics: clusterkit.NoopMetricsCollector{},
		logger:  clusterkit.NoopLogger(),
		codec:   codec.Default,
		mux:     http.NewServeMux(),
	}
	for _, fn := range optFns {
		fn(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/data", s.handleData)
	s.mux.HandleFunc("GET /api/dataset", s.handlePreset(false))
	s.mux.HandleFunc("GET /get-dataset", s.handlePreset(true))
	s.mux.HandleFunc("POST /api/cluster", s.handleCluster)
	s.mux.HandleFunc("POST /cluster", s.handleCluster)
	s.mux.HandleFunc("POST /api/plot", s.handlePlot)
	s.mux.HandleFunc("GET /api/results/{dataset}", s.handleLatest)
	s.mux.HandleFunc("GET /api/results/{dataset}/runs", s.handleRuns)
	s.mux.HandleFunc("GET /api/results/{dataset}/runs/{id}", s.handleRun)
	if s.metricsHandler != nil {
		s.mux.Handle("GET /metrics", s.metricsHandler)
	}
}

// Handler returns the routed handler wrapped with CORS, panic recovery and
// request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.recoverPanics(s.cors(s.mux)))
}

func (s *Server) cors(next http.Handler) http.Handler {
	if s.cfg.AllowOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.cfg.AllowOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.ErrorContext(r.Context(), "handler panic",
					slog.String("path", r.URL.Path),
					slog.Any("panic", v),
				)
				s.writeError(w, fmt.Errorf("internal error: %v", v))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.LogAttrs(r.Context(), level, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
